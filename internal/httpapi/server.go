package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/foxseedlab/meetbot/internal/analysis"
	"github.com/foxseedlab/meetbot/internal/memory"
	"github.com/foxseedlab/meetbot/internal/repository"
	"github.com/foxseedlab/meetbot/internal/session"
	"github.com/foxseedlab/meetbot/internal/transcriber"
)

const (
	ServiceName    = "meetbot"
	ServiceVersion = "1.0.0"

	readHeaderTimeout  = 10 * time.Second
	serverStopTimeout  = 15 * time.Second
	maxRequestBodySize = 1 << 20
	maxDiarizationRows = 50
	defaultMemoryLimit = 5
)

// Sessions is the part of the session manager the API serves.
type Sessions interface {
	StartSession(req session.Request) (session.Snapshot, error)
	StopSession(ctx context.Context, id int64) (session.Snapshot, error)
	GetStatus(ctx context.Context, id int64) (session.Snapshot, error)
	Transcript(ctx context.Context, id int64) (transcriber.Transcript, error)
	Summary(ctx context.Context, id int64) (analysis.Summary, error)
	Diarization(ctx context.Context, id int64) (analysis.Diarization, error)
	Topics(ctx context.Context, id int64) (analysis.Topics, error)
	Sentiment(ctx context.Context, id int64) (analysis.Sentiment, error)
	ActionItems(ctx context.Context, id int64) (analysis.ActionItems, error)
	Analytics(ctx context.Context, id int64) (analysis.Metrics, error)
	Followup(ctx context.Context, id int64) (analysis.FollowupEmail, error)
	ReportPath(ctx context.Context, id int64) (string, error)
	ListRecent(ctx context.Context, limit int) ([]repository.Meeting, error)
}

type Server struct {
	sessions Sessions
	memory   memory.Index
	mux      *http.ServeMux
}

// NewServer builds the API. A nil sessions value makes every meeting
// endpoint answer 503; a nil memory index does the same for memory endpoints.
func NewServer(sessions Sessions, mem memory.Index) *Server {
	s := &Server{sessions: sessions, memory: mem, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleHealth)
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("POST /meetings/join", s.withSessions(s.handleJoin))
	s.mux.HandleFunc("GET /meetings/recent", s.withSessions(s.handleRecent))
	s.mux.HandleFunc("GET /meetings/{id}/status", s.withSessions(s.handleStatus))
	s.mux.HandleFunc("POST /meetings/{id}/stop", s.withSessions(s.handleStop))
	s.mux.HandleFunc("GET /meetings/{id}/transcript", s.withSessions(s.handleTranscript))
	s.mux.HandleFunc("GET /meetings/{id}/summary", s.withSessions(s.handleSummary))
	s.mux.HandleFunc("GET /meetings/{id}/pdf", s.withSessions(s.handlePDF))
	s.mux.HandleFunc("GET /meetings/{id}/analytics", s.withSessions(s.handleAnalytics))
	s.mux.HandleFunc("GET /meetings/{id}/diarization", s.withSessions(s.handleDiarization))
	s.mux.HandleFunc("GET /meetings/{id}/topics", s.withSessions(s.handleTopics))
	s.mux.HandleFunc("GET /meetings/{id}/sentiment", s.withSessions(s.handleSentiment))
	s.mux.HandleFunc("GET /meetings/{id}/action-items", s.withSessions(s.handleActionItems))
	s.mux.HandleFunc("GET /meetings/{id}/followup-email", s.withSessions(s.handleFollowup))

	s.mux.HandleFunc("DELETE /meetings/{id}/memory", s.withMemory(s.handleForget))
	s.mux.HandleFunc("GET /memory/history", s.withMemory(s.handleMemoryHistory))
	s.mux.HandleFunc("POST /memory/search", s.withMemory(s.handleMemorySearch))
	s.mux.HandleFunc("POST /memory/ask", s.withMemory(s.handleMemoryAsk))
}

func (s *Server) Handler() http.Handler {
	return logRequests(s.mux)
}

// ListenAndServe serves until ctx is canceled, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http api listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverStopTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) withSessions(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.sessions == nil {
			writeError(w, http.StatusServiceUnavailable, "session manager not initialized")
			return
		}
		h(w, r)
	}
}

func (s *Server) withMemory(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.memory == nil {
			writeError(w, http.StatusServiceUnavailable, memory.UnavailableAnswer)
			return
		}
		h(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("http request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "elapsed", time.Since(started).String())
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeLookupError maps session errors onto status codes.
func writeLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "meeting not found")
	case errors.Is(err, session.ErrNotAvailable):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrResourceBusy):
		writeError(w, http.StatusConflict, session.MessageSessionBusy)
	case errors.Is(err, session.ErrManagerClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
