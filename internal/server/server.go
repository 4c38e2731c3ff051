// Package server is the composition root: it opens the database, builds the
// services and handlers, and mounts them on a chi router under /api.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sumo47/exam-prep-back/internal/auth"
	"github.com/sumo47/exam-prep-back/internal/config"
	"github.com/sumo47/exam-prep-back/internal/handler"
	"github.com/sumo47/exam-prep-back/internal/middleware"
	sqliteRepo "github.com/sumo47/exam-prep-back/internal/repository/sqlite"
	"github.com/sumo47/exam-prep-back/internal/service"
)

// shutdownTimeout is how long in-flight requests get to finish on SIGINT/SIGTERM.
const shutdownTimeout = 30 * time.Second

// Server owns the router and the database handle. The database is closed
// when Start returns.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB

	verifier auth.IdentityVerifier
}

// Option customizes a Server. Tests use it to replace Google.
type Option func(*Server)

// WithIdentityVerifier replaces the Google ID-token verifier.
func WithIdentityVerifier(v auth.IdentityVerifier) Option {
	return func(s *Server) { s.verifier = v }
}

// New opens the database and wires every dependency.
func New(cfg config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database. Start calls it on the way out; tests that
// only use Handler call it directly.
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes mounts:
//
// GET    /api/health                 → liveness + DB ping
// POST   /api/auth/google            → sign in with a Google credential or code
// GET    /api/auth/me                → current user              [auth]
// GET    /api/questions              → list questions
// POST   /api/questions              → post a question           [auth]
// GET    /api/questions/{id}         → question with answers
// POST   /api/questions/{id}/answers → post an answer            [auth]
// GET    /api/users/{id}             → public profile
// PUT    /api/users/{id}             → edit own profile          [auth]
//
// RealIP runs before the logger and the limiter so both see the client
// address rather than the proxy's.
func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenServiceWithTTL(s.config.JWTSecret, s.config.SessionTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	s.logger.Debug("session tokens configured", slog.Duration("ttl", tokens.TTL()))

	verifier := s.verifier
	if verifier == nil {
		gv, err := auth.NewGoogleVerifier(s.config.GoogleClientID, auth.WithCertsURL(s.config.GoogleCertsURL))
		if err != nil {
			return fmt.Errorf("creating Google verifier: %w", err)
		}
		verifier = gv
	}

	// The code flow needs the client secret; without it only ID-token
	// sign-in is offered.
	var exchanger service.CodeExchanger
	if s.config.CodeExchangeEnabled() {
		exchanger = auth.NewGoogleProvider(
			s.config.GoogleClientID,
			s.config.GoogleClientSecret,
			s.config.GoogleRedirectURL,
			verifier,
		)
	}

	// s.db implements both repository interfaces.
	authService := service.NewAuthService(s.db, verifier, exchanger, tokens, s.logger)
	questionService := service.NewQuestionService(s.db, s.logger)
	userService := service.NewUserService(s.db, s.logger)

	authHandler := handler.NewAuthHandler(authService, s.logger)
	questionHandler := handler.NewQuestionHandler(questionService, s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	requireAuth := auth.RequireAuth(tokens, s.db, s.logger)
	limiter := middleware.NewRateLimiter(s.config.RateLimitRequests, s.config.RateLimitWindow)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.SecurityHeaders)
	s.router.Use(middleware.CORS(s.config.FrontendURL))
	s.router.Use(chimiddleware.Compress(5, "application/json"))
	s.router.Use(chimiddleware.RequestSize(s.config.MaxBodyBytes))

	s.router.Route("/api", func(r chi.Router) {
		r.Use(limiter.Handler)

		r.Get("/health", healthHandler.HandleHealth)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/google", authHandler.HandleGoogle)
			r.With(requireAuth).Get("/me", authHandler.HandleMe)
		})

		r.Route("/questions", func(r chi.Router) {
			r.Get("/", questionHandler.HandleList)
			r.Get("/{id}", questionHandler.HandleGet)
			r.With(requireAuth).Post("/", questionHandler.HandleCreate)
			r.With(requireAuth).Post("/{id}/answers", questionHandler.HandleCreateAnswer)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/{id}", userHandler.HandleGet)
			r.With(requireAuth).Put("/{id}", userHandler.HandleUpdate)
		})
	})

	return nil
}

// Start listens on the configured port until the process receives SIGINT or
// SIGTERM, then drains in-flight requests for up to shutdownTimeout.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.String("frontend", s.config.FrontendURL),
			slog.Bool("codeExchange", s.config.CodeExchangeEnabled()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
