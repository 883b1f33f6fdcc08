// Package api serves scribe's HTTP surface.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/scribe/internal/gaps"
	"github.com/MikeSquared-Agency/scribe/internal/mapping"
	"github.com/MikeSquared-Agency/scribe/internal/store"
)

// maxBodyBytes caps request bodies; transcripts of long sessions fit well within it.
const maxBodyBytes = 8 << 20

// Store is the persistence the API needs. Nil disables persistence.
type Store interface {
	SaveMapping(ctx context.Context, res *mapping.Result) (uuid.UUID, error)
	GetMapping(ctx context.Context, id uuid.UUID) (*store.MappingRow, error)
	SaveGapAnalysis(ctx context.Context, res *gaps.Result) (uuid.UUID, error)
	Ping(ctx context.Context) error
}

type Server struct {
	router *chi.Mux
	port   int
	engine *mapping.Engine
	store  Store
	logger *slog.Logger
}

func NewServer(port int, apiToken string, engine *mapping.Engine, st Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		port:   port,
		engine: engine,
		store:  st,
		logger: logger,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/scribe/status", s.status)

	router.Route("/api/v1/notes", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Post("/map", s.mapContent)
		r.Post("/gaps", s.detectGaps)
		r.Post("/gaps/section", s.analyzeSection)
		r.Get("/llm/health", s.llmHealth)
		r.Get("/mappings/{id}", s.getMapping)
	})

	return s
}

// Handler exposes the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// BearerAuthMiddleware rejects requests without "Authorization: Bearer <token>".
// An empty token disables the check.
func BearerAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	persistence := "disabled"
	if s.store != nil {
		persistence = "enabled"
		if err := s.store.Ping(r.Context()); err != nil {
			s.logger.Warn("database ping failed", "error", err)
			persistence = "unreachable"
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"agent":       "scribe",
		"status":      "active",
		"persistence": persistence,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}
