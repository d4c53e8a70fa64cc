package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/lms-api/internal/auth"
	"github.com/Clark-Hu/lms-api/internal/config"
	"github.com/Clark-Hu/lms-api/internal/metrics"
	"github.com/Clark-Hu/lms-api/internal/repository"
)

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg       config.Config
	health    HealthChecker
	repo      *repository.Repository
	tokens    *auth.TokenManager
	hasher    auth.Hasher
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	validate  *validator.Validate
	dummyHash string
	router    chi.Router
	httpSrv   *http.Server
}

// New constructs the HTTP server with base middleware and routes.
func New(cfg config.Config, health HealthChecker, repo *repository.Repository, tokens *auth.TokenManager, m *metrics.Metrics, logger zerolog.Logger) *Server {
	if m == nil {
		m = metrics.New()
	}

	s := &Server{
		cfg:      cfg,
		health:   health,
		repo:     repo,
		tokens:   tokens,
		hasher:   auth.NewHasher(cfg.BcryptCost),
		metrics:  m,
		logger:   logger.With().Str("component", "http").Logger(),
		validate: newValidator(),
	}
	// Compared against on unknown emails so login latency does not reveal
	// which addresses are registered.
	if hash, err := s.hasher.Hash("lms-api-unknown-user"); err == nil {
		s.dummyHash = hash
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(m.Instrument)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders: []string{"Location"},
			MaxAge:         300,
		}))
	}
	if cfg.RateLimitRequests > 0 && cfg.RateLimitWindowSec > 0 {
		r.Use(httprate.Limit(
			cfg.RateLimitRequests,
			time.Duration(cfg.RateLimitWindowSec)*time.Second,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
				s.respondError(w, http.StatusTooManyRequests, codeRateLimited, "Too many requests")
			}),
		))
	}

	s.router = r
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.Get("/", s.handleRoot)
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", s.handleSignup)
			r.Post("/login", s.handleLogin)
		})
		r.Route("/courses", func(r chi.Router) {
			r.Get("/", s.handleListCourses)
			if s.cfg.AdminToken != "" {
				r.Post("/", s.handleCreateCourse)
			}
			r.Get("/latest", s.handleLatestCourses)
			r.Get("/recommended", s.handleRecommendedCourses)
			r.With(s.requireUser).Get("/me/favorites", s.handleListFavorites)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetCourse)
				r.Group(func(r chi.Router) {
					r.Use(s.requireUser)
					r.Post("/review", s.handleAddReview)
					r.Post("/like", s.handleLikeCourse)
					r.Post("/unlike", s.handleUnlikeCourse)
				})
			})
		})
	})
}

// Handler exposes the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start boots the HTTP server and blocks until ctx is cancelled or the
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.httpSrv.Addr).Msg("http server listening")
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("http server shutdown failed")
		}
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			s.logger.Error().Err(err).Str("addr", s.httpSrv.Addr).Msg("http server stopped unexpectedly")
		}
		return err
	}
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx expires. Calling it again, or before Start, is a no-op.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	s.logger.Info().Msg("http server draining")
	err := s.httpSrv.Shutdown(ctx)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Server is running"))
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.health != nil {
		if err := s.health.HealthCheck(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("health check failed")
			s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
