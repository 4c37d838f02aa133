package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"trendybets/ingestion/internal/models"
	"trendybets/ingestion/internal/syncer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "secret-token"

type fakeStatusLedger struct {
	records []*models.RunRecord
	err     error
}

func (l *fakeStatusLedger) ListRecent(ctx context.Context, limit int) ([]*models.RunRecord, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.records, nil
}

func newTestServer(runners map[string]RunFunc, ledger StatusLedger, healthErr error) *Server {
	if ledger == nil {
		ledger = &fakeStatusLedger{}
	}
	return NewServer(testToken, runners, ledger, func(ctx context.Context) error {
		return healthErr
	})
}

func doRequest(t *testing.T, s *Server, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("api-token", token)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestServer_RejectsMissingToken(t *testing.T) {
	s := newTestServer(nil, nil, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/sync", "", `{"syncType":"teams"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Unauthorized", body["error"])
}

func TestServer_RejectsWrongToken(t *testing.T) {
	s := newTestServer(nil, nil, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/sync", "wrong", `{"syncType":"teams"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_RunsSync(t *testing.T) {
	var got syncer.Request
	runners := map[string]RunFunc{
		"player-history": func(ctx context.Context, req syncer.Request) (*syncer.Summary, error) {
			got = req
			return &syncer.Summary{RecordsProcessed: 12, UnitsProcessed: 4, WorkersUsed: 2}, nil
		},
	}
	s := newTestServer(runners, nil, nil)

	body := `{"syncType":"player-history","unitId":"p1","sinceCursor":"2026-08-01T00:00:00Z","workerMode":true,"startIndex":3,"endIndex":9}`
	rec := doRequest(t, s, http.MethodPost, "/api/sync", testToken, body)

	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "player-history", got.SyncType)
	assert.Equal(t, "p1", got.UnitID)
	assert.True(t, got.WorkerMode)
	assert.Equal(t, 3, got.StartIndex)
	assert.Equal(t, 9, got.EndIndex)
	require.NotNil(t, got.SinceCursor)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), got.SinceCursor.UTC())

	var resp map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 12, resp["recordsProcessed"])
	assert.Equal(t, 4, resp["unitsProcessed"])
	assert.Equal(t, 2, resp["workersUsed"])
}

func TestServer_UnknownSyncType(t *testing.T) {
	s := newTestServer(map[string]RunFunc{}, nil, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/sync", testToken, `{"syncType":"nonsense"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "nonsense")
}

func TestServer_InvalidBody(t *testing.T) {
	s := newTestServer(nil, nil, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/sync", testToken, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_InvalidCursor(t *testing.T) {
	runners := map[string]RunFunc{
		"teams": func(ctx context.Context, req syncer.Request) (*syncer.Summary, error) {
			return &syncer.Summary{}, nil
		},
	}
	s := newTestServer(runners, nil, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/sync", testToken, `{"syncType":"teams","sinceCursor":"08/01/2026"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_SyncFailureReturns500(t *testing.T) {
	runners := map[string]RunFunc{
		"odds": func(ctx context.Context, req syncer.Request) (*syncer.Summary, error) {
			return nil, errors.New("store unreachable")
		},
	}
	s := newTestServer(runners, nil, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/sync", testToken, `{"syncType":"odds"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "store unreachable")
}

func TestServer_Status(t *testing.T) {
	startedAt := time.Date(2026, 8, 30, 2, 0, 0, 0, time.UTC)
	ledger := &fakeStatusLedger{records: []*models.RunRecord{
		{
			SyncType:         "teams",
			StartedAt:        startedAt,
			CompletedAt:      sql.NullTime{Time: startedAt.Add(time.Minute), Valid: true},
			Status:           models.RunStatusCompleted,
			Watermark:        sql.NullTime{Time: startedAt, Valid: true},
			RecordsProcessed: 30,
		},
		{
			SyncType:  "odds",
			StartedAt: startedAt.Add(time.Hour),
			Status:    models.RunStatusRunning,
		},
	}}
	s := newTestServer(nil, ledger, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/sync/status", testToken, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Runs []struct {
			SyncType         string     `json:"syncType"`
			Status           string     `json:"status"`
			CompletedAt      *time.Time `json:"completedAt"`
			Watermark        *time.Time `json:"watermark"`
			RecordsProcessed int        `json:"recordsProcessed"`
		} `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Runs, 2)

	assert.Equal(t, "teams", body.Runs[0].SyncType)
	assert.Equal(t, 30, body.Runs[0].RecordsProcessed)
	require.NotNil(t, body.Runs[0].Watermark)
	assert.Equal(t, startedAt, body.Runs[0].Watermark.UTC())

	assert.Equal(t, models.RunStatusRunning, body.Runs[1].Status)
	assert.Nil(t, body.Runs[1].CompletedAt)
}

func TestServer_StatusRequiresToken(t *testing.T) {
	s := newTestServer(nil, nil, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/sync/status", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_Health(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		s := newTestServer(nil, nil, nil)
		rec := doRequest(t, s, http.MethodGet, "/health", "", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unhealthy", func(t *testing.T) {
		s := newTestServer(nil, nil, errors.New("database down"))
		rec := doRequest(t, s, http.MethodGet, "/health", "", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Contains(t, body["error"], "database down")
	})
}
