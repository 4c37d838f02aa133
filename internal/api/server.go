// Package api exposes the sync engine over HTTP: trigger endpoints for the
// cron driver, a run-status view, and liveness.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"trendybets/ingestion/internal/models"
	"trendybets/ingestion/internal/syncer"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// RunFunc executes one sync invocation.
type RunFunc func(ctx context.Context, req syncer.Request) (*syncer.Summary, error)

// StatusLedger is the read side of the run ledger used by the status
// endpoint.
type StatusLedger interface {
	ListRecent(ctx context.Context, limit int) ([]*models.RunRecord, error)
}

// Server handles the sync HTTP surface.
type Server struct {
	token   string
	runners map[string]RunFunc
	ledger  StatusLedger
	health  func(ctx context.Context) error
}

// NewServer creates an API server. runners maps a syncType to its
// implementation; unknown types 404.
func NewServer(token string, runners map[string]RunFunc, ledger StatusLedger, health func(ctx context.Context) error) *Server {
	return &Server{
		token:   token,
		runners: runners,
		ledger:  ledger,
		health:  health,
	}
}

// Router builds the chi router for the server.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/health", s.handleHealth)

	r.Route("/api/sync", func(r chi.Router) {
		r.Use(s.requireToken)
		r.Post("/", s.handleSync)
		r.Get("/status", s.handleStatus)
	})

	return r
}

// requireToken rejects requests without the expected api-token header.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("api-token") != s.token {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("HTTP request")
	})
}

// syncRequest is the POST /api/sync body.
type syncRequest struct {
	SyncType    string  `json:"syncType"`
	UnitID      string  `json:"unitId,omitempty"`
	SinceCursor *string `json:"sinceCursor,omitempty"`
	WorkerMode  bool    `json:"workerMode,omitempty"`
	StartIndex  int     `json:"startIndex,omitempty"`
	EndIndex    int     `json:"endIndex,omitempty"`
}

// syncResponse is the POST /api/sync success body.
type syncResponse struct {
	RecordsProcessed int `json:"recordsProcessed"`
	UnitsProcessed   int `json:"unitsProcessed"`
	WorkersUsed      int `json:"workersUsed,omitempty"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var body syncRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	run, ok := s.runners[body.SyncType]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown sync type: "+body.SyncType)
		return
	}

	req := syncer.Request{
		SyncType:   body.SyncType,
		UnitID:     body.UnitID,
		WorkerMode: body.WorkerMode,
		StartIndex: body.StartIndex,
		EndIndex:   body.EndIndex,
	}

	if body.SinceCursor != nil {
		cursor, err := time.Parse(time.RFC3339, *body.SinceCursor)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid sinceCursor, want RFC 3339")
			return
		}
		req.SinceCursor = &cursor
	}

	summary, err := run(r.Context(), req)
	if err != nil {
		log.Error().Err(err).Str("sync_type", body.SyncType).Msg("Sync run failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, syncResponse{
		RecordsProcessed: summary.RecordsProcessed,
		UnitsProcessed:   summary.UnitsProcessed,
		WorkersUsed:      summary.WorkersUsed,
	})
}

// runStatus is one entry in the GET /api/sync/status response.
type runStatus struct {
	SyncType         string             `json:"syncType"`
	StartedAt        time.Time          `json:"startedAt"`
	CompletedAt      *time.Time         `json:"completedAt,omitempty"`
	Status           string             `json:"status"`
	Watermark        *time.Time         `json:"watermark,omitempty"`
	RecordsProcessed int                `json:"recordsProcessed"`
	Errors           []models.UnitError `json:"errors,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	records, err := s.ledger.ListRecent(r.Context(), 20)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load sync status")
		writeError(w, http.StatusInternalServerError, "failed to load sync status")
		return
	}

	statuses := make([]runStatus, 0, len(records))
	for _, record := range records {
		status := runStatus{
			SyncType:         record.SyncType,
			StartedAt:        record.StartedAt,
			Status:           record.Status,
			RecordsProcessed: record.RecordsProcessed,
			Errors:           record.Errors,
		}
		if record.CompletedAt.Valid {
			t := record.CompletedAt.Time
			status.CompletedAt = &t
		}
		if record.Watermark.Valid {
			t := record.Watermark.Time
			status.Watermark = &t
		}
		statuses = append(statuses, status)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": statuses})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.health(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
