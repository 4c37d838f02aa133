package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"trendybets/ingestion/internal/metrics"

	"github.com/rs/zerolog/log"
)

// Sportsbooks whose lines we ingest.
const (
	BookDraftKings = "draftkings"
	BookFanDuel    = "fanduel"
	BookBetMGM     = "betmgm"
	BookCaesars    = "caesars"
)

// Markets requested per fixture.
const (
	MarketMoneyline   = "moneyline"
	MarketPointSpread = "point_spread"
	MarketTotalPoints = "total_points"
)

// pageDelay is the pause between pages on paginated endpoints, keeping us
// under the upstream rate limit when a roster spans many pages.
const pageDelay = time.Second

// Client is the OpticOdds API client
type Client struct {
	baseURL     string
	apiKey      string
	sport       string
	league      string
	httpClient  *http.Client
	rateLimiter chan struct{} // Rate limiting semaphore
	maxRetries  int
	retryDelay  time.Duration
}

// NewClient creates a new OpticOdds API client
func NewClient(baseURL, apiKey, sport, league string, timeout time.Duration) *Client {
	// Rate limiter: max 10 concurrent requests
	rateLimiter := make(chan struct{}, 10)
	for i := 0; i < 10; i++ {
		rateLimiter <- struct{}{}
	}

	return &Client{
		baseURL:     baseURL,
		apiKey:      apiKey,
		sport:       sport,
		league:      league,
		rateLimiter: rateLimiter,
		maxRetries:  3,
		retryDelay:  1 * time.Second,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// envelope is the standard OpticOdds response wrapper
type envelope struct {
	Data       json.RawMessage `json:"data"`
	Page       int             `json:"page"`
	TotalPages int             `json:"total_pages"`
}

// get performs a GET request with retry logic and rate limiting. Params are
// flat key/value pairs; repeated keys go through multiParams.
func (c *Client) get(ctx context.Context, path string, params map[string][]string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, path)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s
			backoff := c.retryDelay * time.Duration(1<<uint(attempt-1))
			log.Info().
				Str("url", url).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Retrying API request after backoff")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		start := time.Now()
		body, retryable, err := c.doOnce(ctx, url, params)
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.RecordAPICall(path, status, time.Since(start).Seconds())

		if err == nil {
			return body, nil
		}

		lastErr = err
		if !retryable || attempt == c.maxRetries {
			return nil, lastErr
		}
	}

	return nil, lastErr
}

// doOnce performs a single request attempt, holding a rate-limiter slot for
// its duration. The bool reports whether the failure is worth retrying.
func (c *Client) doOnce(ctx context.Context, url string, params map[string][]string) ([]byte, bool, error) {
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case <-c.rateLimiter:
	}
	defer func() { c.rateLimiter <- struct{}{} }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	q := req.URL.Query()
	q.Set("key", c.apiKey)
	for key, values := range params {
		for _, value := range values {
			q.Add(key, value)
		}
	}
	req.URL.RawQuery = q.Encode()

	log.Debug().
		Str("url", url).
		Msg("Making API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, false, nil

	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		log.Warn().
			Str("url", url).
			Int("status", resp.StatusCode).
			Msg("Received retryable error from API")
		return nil, true, fmt.Errorf("API returned retryable status %d: %s", resp.StatusCode, string(body))

	case http.StatusUnauthorized, http.StatusForbidden:
		// Don't retry auth errors
		return nil, false, fmt.Errorf("API authentication failed (status %d): %s", resp.StatusCode, string(body))

	default:
		return nil, false, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}
}

// getData fetches one page and returns the decoded data array
func (c *Client) getData(ctx context.Context, path string, params map[string][]string) ([]map[string]interface{}, error) {
	body, err := c.get(ctx, path, params)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	var data []map[string]interface{}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response data: %w", err)
	}

	return data, nil
}

// getAllPages drains a paginated endpoint, pausing between pages
func (c *Client) getAllPages(ctx context.Context, path string, params map[string][]string) ([]map[string]interface{}, error) {
	var all []map[string]interface{}

	page := 1
	for {
		pageParams := make(map[string][]string, len(params)+1)
		for k, v := range params {
			pageParams[k] = v
		}
		pageParams["page"] = []string{fmt.Sprintf("%d", page)}

		body, err := c.get(ctx, path, pageParams)
		if err != nil {
			return nil, err
		}

		var env envelope
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, fmt.Errorf("failed to unmarshal response: %w", err)
		}

		var data []map[string]interface{}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal response data: %w", err)
		}
		all = append(all, data...)

		if env.TotalPages == 0 || page >= env.TotalPages {
			break
		}
		page++

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pageDelay):
		}
	}

	return all, nil
}

func (c *Client) leagueParams() map[string][]string {
	return map[string][]string{
		"sport":  {c.sport},
		"league": {c.league},
	}
}

// FetchTeams fetches all teams for the configured league
func (c *Client) FetchTeams(ctx context.Context) ([]map[string]interface{}, error) {
	teams, err := c.getData(ctx, "teams", c.leagueParams())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch teams: %w", err)
	}

	return teams, nil
}

// FetchPlayers fetches the full league roster, draining all pages
func (c *Client) FetchPlayers(ctx context.Context) ([]map[string]interface{}, error) {
	players, err := c.getAllPages(ctx, "players", c.leagueParams())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch players: %w", err)
	}

	return players, nil
}

// FetchActiveFixtures fetches fixtures that are upcoming or in progress
func (c *Client) FetchActiveFixtures(ctx context.Context) ([]map[string]interface{}, error) {
	fixtures, err := c.getData(ctx, "fixtures/active", c.leagueParams())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active fixtures: %w", err)
	}

	return fixtures, nil
}

// FetchFixtureOdds fetches current odds for a set of fixtures across the
// configured sportsbooks and markets
func (c *Client) FetchFixtureOdds(ctx context.Context, fixtureIDs []string) ([]map[string]interface{}, error) {
	if len(fixtureIDs) == 0 {
		return nil, nil
	}

	params := c.leagueParams()
	params["fixture_id"] = fixtureIDs
	params["sportsbook"] = []string{BookDraftKings, BookFanDuel, BookBetMGM, BookCaesars}
	params["market"] = []string{MarketMoneyline, MarketPointSpread, MarketTotalPoints}
	params["is_main"] = []string{"true"}

	odds, err := c.getData(ctx, "fixtures/odds", params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fixture odds: %w", err)
	}

	return odds, nil
}

// FetchPlayerResults fetches one player's completed-fixture results since a
// cutoff date
func (c *Client) FetchPlayerResults(ctx context.Context, playerID string, since time.Time) ([]map[string]interface{}, error) {
	params := c.leagueParams()
	params["player_id"] = []string{playerID}
	params["status"] = []string{"completed"}
	params["start_date_after"] = []string{since.UTC().Format(time.RFC3339)}

	results, err := c.getData(ctx, "fixtures/player-results", params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch player results: %w", err)
	}

	return results, nil
}
