package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	c := NewClient(baseURL, "test-key", "basketball", "nba", 5*time.Second)
	c.retryDelay = time.Millisecond
	return c
}

func TestClient_FetchTeams(t *testing.T) {
	var gotKey, gotLeague string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/teams", r.URL.Path)
		gotKey = r.URL.Query().Get("key")
		gotLeague = r.URL.Query().Get("league")

		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"id": "team_lakers", "name": "Los Angeles Lakers"},
				{"id": "team_celtics", "name": "Boston Celtics"},
			},
		})
	}))
	defer server.Close()

	teams, err := newTestClient(server.URL).FetchTeams(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "nba", gotLeague)
	require.Len(t, teams, 2)
	assert.Equal(t, "team_lakers", teams[0]["id"])
}

func TestClient_FetchPlayersDrainsPages(t *testing.T) {
	var pages []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		pages = append(pages, page)

		pageNum := 1
		if page == "2" {
			pageNum = 2
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"id": fmt.Sprintf("player_%d", pageNum)},
			},
			"page":        pageNum,
			"total_pages": 2,
		})
	}))
	defer server.Close()

	players, err := newTestClient(server.URL).FetchPlayers(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2"}, pages)
	require.Len(t, players, 2)
	assert.Equal(t, "player_1", players[0]["id"])
	assert.Equal(t, "player_2", players[1]["id"])
}

func TestClient_RetriesOnServiceUnavailable(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{{"id": "f1"}},
		})
	}))
	defer server.Close()

	fixtures, err := newTestClient(server.URL).FetchActiveFixtures(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(3), calls.Load())
	require.Len(t, fixtures, 1)
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchTeams(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")

	// Initial attempt plus maxRetries retries.
	assert.Equal(t, int32(4), calls.Load())
}

func TestClient_NoRetryOnAuthFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchTeams(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication failed")
	assert.Equal(t, int32(1), calls.Load(), "auth failures are not retried")
}

func TestClient_NoRetryOnBadRequest(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchTeams(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_FetchPlayerResultsParams(t *testing.T) {
	since := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fixtures/player-results", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "player_lebron", q.Get("player_id"))
		assert.Equal(t, "completed", q.Get("status"))
		assert.Equal(t, "2026-08-01T00:00:00Z", q.Get("start_date_after"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"fixture": map[string]interface{}{"id": "fx1"}},
			},
		})
	}))
	defer server.Close()

	results, err := newTestClient(server.URL).FetchPlayerResults(context.Background(), "player_lebron", since)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestClient_FetchFixtureOddsEmptyInput(t *testing.T) {
	odds, err := newTestClient("http://unused").FetchFixtureOdds(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, odds)
}
