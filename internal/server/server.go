// Package server exposes one conversation list session over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chatwoot/inboxq/internal/inbox"
	"github.com/chatwoot/inboxq/internal/location"
)

// Server is an HTTP front end for a session.
type Server struct {
	router   *chi.Mux
	session  *inbox.Session
	location *location.Memory
	logger   *slog.Logger
}

// Config for the server
type Config struct {
	CORSOrigins []string
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// New wires routes for session. loc must be the location the session was
// built with so /api/sync can replace it.
func New(session *inbox.Session, loc *location.Memory, cfg Config) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		session:  session,
		location: loc,
		logger:   cfg.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.setupMiddleware(cfg)
	s.setupRoutes(cfg)
	return s
}

func (s *Server) setupMiddleware(cfg Config) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes(cfg Config) {
	s.router.Get("/healthz", s.healthHandler)
	if cfg.Gatherer != nil {
		s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/state", s.stateHandler)
		r.Post("/sync", s.syncHandler)
		r.Delete("/error", s.clearErrorHandler)

		r.Route("/filters", func(r chi.Router) {
			r.Put("/search", s.searchHandler)
			r.Put("/date-range", s.dateRangeHandler)
			r.Put("/status", s.statusHandler)
			r.Put("/sentiment", s.sentimentHandler)
			r.Put("/handoff", s.handoffHandler)
			r.Delete("/", s.clearFiltersHandler)
			r.Delete("/{key}", s.removeFilterHandler)
		})

		r.Put("/sorting", s.sortingHandler)
		r.Put("/per-page", s.perPageHandler)
		r.Post("/page/next", s.nextPageHandler)
		r.Post("/page/prev", s.prevPageHandler)
		r.Put("/page", s.goToPageHandler)

		r.Route("/saved-filters", func(r chi.Router) {
			r.Get("/", s.listSavedHandler)
			r.Post("/", s.saveFilterHandler)
			r.Post("/{id}/apply", s.applySavedHandler)
			r.Delete("/{id}", s.deleteSavedHandler)
		})
	})
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
