package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/callback/internal/processor"
	"github.com/MikeSquared-Agency/callback/internal/schedule"
)

type Server struct {
	router    *chi.Mux
	port      int
	processor *processor.Processor
	sched     *schedule.Scheduler
	logger    *slog.Logger
}

func NewServer(port int, proc *processor.Processor, sched *schedule.Scheduler, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:    router,
		port:      port,
		processor: proc,
		sched:     sched,
		logger:    logger,
	}

	router.Post("/webhook", s.webhook)
	router.Get("/health", s.health)
	router.Get("/api/v1/callback/status", s.status)
	router.Get("/api/v1/followups", s.followups)

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// webhook accepts a voice-platform event. Processing failures come back as
// a 500 with the error message; the server keeps serving either way.
func (s *Server) webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("read body: %w", err))
		return
	}

	result, err := s.processor.HandleEvent(r.Context(), body)
	if err != nil {
		s.logger.Error("webhook processing failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(result)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"service": "callback",
		"status":  "ok",
		"pending": s.sched.PendingCount(),
	})
}

// followups exposes the masked scheduler snapshot for operators.
func (s *Server) followups(w http.ResponseWriter, r *http.Request) {
	entries := s.sched.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"pending": s.sched.PendingCount(),
		"entries": entries,
	})
}

func writeError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
