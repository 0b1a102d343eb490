package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kalambet/rootcause/internal/dataset"
	"github.com/kalambet/rootcause/internal/pipeline"
	"github.com/kalambet/rootcause/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// StatusSource reports the loaded snapshot state.
type StatusSource interface {
	Status() pipeline.Status
}

// DashboardSource returns warehouse aggregates.
type DashboardSource interface {
	Dashboard(ctx context.Context) (storage.Dashboard, error)
}

// RecordSource looks up one warehouse record by its position in the log.
type RecordSource interface {
	Record(ctx context.Context, seq int) (dataset.InteractionRecord, error)
}

// Deps holds what the HTTP handlers need.
type Deps struct {
	Sessions *Sessions
	Status   StatusSource
	Stats    DashboardSource
	Records  RecordSource
	// Token enables bearer auth on /v1 when non-empty.
	Token string
}

// AskRequest is the body of POST /v1/ask. Exactly one of Query and
// Suggestion should be set; SessionID continues an existing conversation.
type AskRequest struct {
	Query      string `json:"query"`
	Suggestion int    `json:"suggestion,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
}

type AskResponse struct {
	SessionID  string              `json:"session_id"`
	Answer     string              `json:"answer"`
	Kind       pipeline.AnswerKind `json:"kind"`
	Triggers   []string            `json:"triggers"`
	NoteCount  int                 `json:"note_count"`
	DurationMs int64               `json:"duration_ms"`
}

type suggestion struct {
	N        int    `json:"n"`
	Question string `json:"question"`
}

// NewHandler returns the HTTP API.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Route("/v1", func(r chi.Router) {
		if deps.Token != "" {
			r.Use(BearerAuth(deps.Token))
		}
		r.Get("/status", handleStatus(deps))
		r.Get("/suggestions", handleSuggestions)
		r.Get("/stats", handleStats(deps))
		r.Post("/ask", handleAsk(deps))
		r.Get("/sessions/{id}", handleGetSession(deps))
		r.Get("/records/{seq}", handleGetRecord(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleStatus(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Status.Status())
	}
}

func handleSuggestions(w http.ResponseWriter, r *http.Request) {
	qs := pipeline.SuggestedQuestions()
	out := make([]suggestion, len(qs))
	for i, q := range qs {
		out[i] = suggestion{N: i + 1, Question: q}
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": out})
}

func handleStats(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Stats == nil {
			httpError(w, http.StatusServiceUnavailable, "unavailable", "stats warehouse is not configured")
			return
		}
		d, err := deps.Stats.Dashboard(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "internal_error", "failed to compute stats: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, d.Top(parseIntParam(r, "top", 0, 1000)))
	}
}

func handleAsk(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req AskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid JSON: %v", err)
			return
		}

		query := req.Query
		if req.Suggestion != 0 {
			q, ok := pipeline.Suggestion(req.Suggestion)
			if !ok {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "suggestion must be between 1 and %d", len(pipeline.SuggestedQuestions()))
				return
			}
			query = q
		}
		if strings.TrimSpace(query) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "query is required")
			return
		}

		id := req.SessionID
		if id == "" {
			id = deps.Sessions.Create()
		}

		ans, found, err := deps.Sessions.Ask(r.Context(), id, query)
		if !found {
			httpError(w, http.StatusNotFound, "not_found", "session %q not found", id)
			return
		}
		if errors.Is(err, pipeline.ErrEmptyQuery) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "query is required")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "internal_error", "%v", err)
			return
		}

		triggers := make([]string, len(ans.Selection.Triggers))
		for i, t := range ans.Selection.Triggers {
			triggers[i] = string(t)
		}

		zap.L().Debug("api ask",
			zap.String("component", "api"),
			zap.String("session_id", id),
			zap.String("kind", string(ans.Kind)),
		)

		writeJSON(w, http.StatusOK, AskResponse{
			SessionID:  id,
			Answer:     ans.Text,
			Kind:       ans.Kind,
			Triggers:   triggers,
			NoteCount:  ans.Selection.NoteCount,
			DurationMs: ans.Duration.Milliseconds(),
		})
	}
}

type sessionResponse struct {
	ID    string          `json:"id"`
	Turns []pipeline.Turn `json:"turns"`
}

func handleGetSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		turns, ok := deps.Sessions.History(id)
		if !ok {
			httpError(w, http.StatusNotFound, "not_found", "session %q not found", id)
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse{ID: id, Turns: turns})
	}
}

// handleGetRecord returns the seq-th (0-based) record of the normalized log.
func handleGetRecord(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Records == nil {
			httpError(w, http.StatusServiceUnavailable, "unavailable", "record warehouse is not configured")
			return
		}
		seq, err := strconv.Atoi(chi.URLParam(r, "seq"))
		if err != nil || seq < 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "seq must be a non-negative integer")
			return
		}
		rec, err := deps.Records.Record(r.Context(), seq)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "record %d not found", seq)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "internal_error", "failed to read record: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

// NewServer wraps handler in an http.Server with the timeouts used by serve.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
