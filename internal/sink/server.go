package sink

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/tracehook/internal/langfuse"
	"github.com/MikeSquared-Agency/tracehook/internal/store"
)

const maxTraceBody = 10 << 20

// Store persists received traces.
type Store interface {
	Upsert(ctx context.Context, r store.Record) error
	Get(ctx context.Context, id string) (store.Record, error)
	ListBySession(ctx context.Context, sessionID string) ([]store.Record, error)
}

// Notifier is told about every stored trace.
type Notifier interface {
	TraceStored(r store.Record) error
}

// Options configures a Server. Empty keys disable authentication.
type Options struct {
	Port      int
	PublicKey string
	SecretKey string
	Notifier  Notifier
}

// Server implements the subset of the Langfuse public API that the hook uses.
type Server struct {
	router *chi.Mux
	opts   Options
	store  Store
	logger *slog.Logger
	now    func() time.Time
	srv    *http.Server
}

func NewServer(opts Options, st Store, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		opts:   opts,
		store:  st,
		logger: logger,
		now:    time.Now,
	}

	router.Get("/health", s.health)
	router.Route("/api/public", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Post("/traces", s.createTrace)
		r.Get("/traces/{id}", s.getTrace)
		r.Get("/sessions/{sessionID}/traces", s.listSessionTraces)
	})

	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("trace sink listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// authenticate accepts both the literal "Basic pk:sk" header and standard
// base64 Basic credentials.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.PublicKey == "" && s.opts.SecretKey == "" {
			next.ServeHTTP(w, r)
			return
		}
		got := r.Header.Get("Authorization")
		for _, mode := range []langfuse.AuthMode{langfuse.AuthLiteral, langfuse.AuthBasic} {
			want := mode.Header(s.opts.PublicKey, s.opts.SecretKey)
			if subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1 {
				next.ServeHTTP(w, r)
				return
			}
		}
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) createTrace(w http.ResponseWriter, r *http.Request) {
	var t langfuse.Trace
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTraceBody)).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "invalid trace body: "+err.Error())
		return
	}
	if t.ID == "" {
		writeError(w, http.StatusBadRequest, "trace id is required")
		return
	}

	rec := store.Record{Trace: t, ReceivedAt: s.now().UTC()}
	if err := s.store.Upsert(r.Context(), rec); err != nil {
		s.logger.Error("failed to store trace", "trace_id", t.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store trace")
		return
	}
	s.logger.Info("trace received",
		"trace_id", t.ID,
		"session_id", t.SessionID,
		"project", t.Metadata.Project,
		"message_index", t.Metadata.MessageIndex,
		"request_id", r.Header.Get("X-Request-Id"),
	)

	if s.opts.Notifier != nil {
		if err := s.opts.Notifier.TraceStored(rec); err != nil {
			s.logger.Warn("failed to announce trace", "trace_id", t.ID, "error", err)
		}
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": t.ID})
}

func (s *Server) getTrace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "trace not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to load trace", "trace_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load trace")
		return
	}
	writeJSON(w, http.StatusOK, rec.Trace)
}

func (s *Server) listSessionTraces(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	recs, err := s.store.ListBySession(r.Context(), sessionID)
	if err != nil {
		s.logger.Error("failed to list traces", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list traces")
		return
	}
	traces := make([]langfuse.Trace, 0, len(recs))
	for _, rec := range recs {
		traces = append(traces, rec.Trace)
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": traces})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
