package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"refnet/internal/logger"
	"refnet/internal/xerrors"
)

// Server is the thin HTTP collaborator fronting Ingress: a bearer-token
// protected POST to start a crawl and a GET to poll its status.
type Server struct {
	router      *chi.Mux
	httpServer  *http.Server
	ingress     *Ingress
	bearerToken string
}

// ServerConfig configures the listening address, timeouts, and bearer
// token the Server enforces on every request.
type ServerConfig struct {
	Host         string
	Port         int
	BearerToken  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewServer wires an Ingress behind chi routing and the request
// middleware stack.
func NewServer(ing *Ingress, cfg ServerConfig) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		ingress:     ing,
		bearerToken: cfg.BearerToken,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))

	s.router.Get("/health", s.handleHealth)
	s.router.Route("/papers", func(r chi.Router) {
		r.Use(s.requireBearer)
		r.Post("/", s.handleStart)
		r.Get("/{id}", s.handleStatus)
	})

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	logger.Info("starting ingress server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("ingress server failed to start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.bearerToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		if header != "Bearer "+s.bearerToken {
			s.respondError(w, http.StatusUnauthorized, "missing or invalid bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type startRequest struct {
	SeedID    string `json:"seed_id"`
	MaxHops   int    `json:"max_hops"`
	MaxPapers int    `json:"max_papers,omitempty"`
}

type startResponse struct {
	PaperID string `json:"paper_id"`
	TaskID  int64  `json:"task_id"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.ingress.Start(r.Context(), req.SeedID, req.MaxHops)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.respondJSON(w, http.StatusAccepted, startResponse{PaperID: result.PaperID, TaskID: result.TaskID})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	status, err := s.ingress.Status(r.Context(), id)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) || xerrors.Classify(err) == xerrors.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "paper not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, "failed to load paper status")
		return
	}

	s.respondJSON(w, http.StatusOK, status)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("ingress: failed to encode response", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": strings.TrimSpace(message)})
}
