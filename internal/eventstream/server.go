package eventstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"reelfactory/internal/jobs"
	"reelfactory/internal/logging"
	"reelfactory/internal/workflow"
)

// Orchestrator is the read surface the HTTP endpoints expose.
type Orchestrator interface {
	Source
	Status(ctx context.Context, jobID string, kind jobs.Kind) (workflow.StatusView, error)
	Health(ctx context.Context) []workflow.PipelineHealth
}

// Server is an HTTP listener for the relay and status endpoints. It can also
// host arbitrary handlers such as the metrics exposition.
type Server struct {
	bind   string
	logger *slog.Logger
	mux    *http.ServeMux

	listener net.Listener
	server   *http.Server
}

// NewServer builds an empty server for bind. A blank bind returns nil.
func NewServer(bind string, logger *slog.Logger) *Server {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil
	}
	mux := http.NewServeMux()
	return &Server{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "http"),
		mux:    mux,
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// MountEvents registers /events and the JSON status endpoints. token, when
// set, guards every route.
func (s *Server) MountEvents(orch Orchestrator, token string) {
	if s == nil {
		return
	}
	relay := NewRelay(orch, s.logger)
	s.mux.HandleFunc("/events", authMiddleware(token, relay.ServeHTTP))
	s.mux.HandleFunc("/api/status", authMiddleware(token, statusHandler(orch, s)))
	s.mux.HandleFunc("/api/health", authMiddleware(token, healthHandler(orch, s)))
}

// Handle mounts handler at pattern.
func (s *Server) Handle(pattern string, handler http.Handler) {
	if s == nil {
		return
	}
	s.mux.Handle(pattern, handler)
}

// Addr reports the bound address once started.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start listens and serves until ctx ends or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.bind, err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("http server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down. Relay connections end when the hub closes.
func (s *Server) Stop() {
	if s == nil || s.server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	_ = s.server.Close()
}

func statusHandler(orch Orchestrator, s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		query := r.URL.Query()
		view, err := orch.Status(r.Context(), strings.TrimSpace(query.Get("job")), jobs.Kind(strings.TrimSpace(query.Get("kind"))))
		if errors.Is(err, jobs.ErrJobNotFound) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, view)
	}
}

func healthHandler(orch Orchestrator, s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.writeJSON(w, http.StatusOK, orch.Health(r.Context()))
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
