// Package server is the composition root: it opens the store, builds the
// services and handlers, and wires them to routes.
//
// Dependencies flow one way:
//
//	config -> sqlstore.DB -> AdvertService / UserService -> handlers -> chi routes
//
// Handlers never see the database and services never see HTTP.
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

	"github.com/sakif/puzzle-market/internal/auth"
	"github.com/sakif/puzzle-market/internal/config"
	"github.com/sakif/puzzle-market/internal/handler"
	"github.com/sakif/puzzle-market/internal/metrics"
	"github.com/sakif/puzzle-market/internal/middleware"
	"github.com/sakif/puzzle-market/internal/repository/sqlstore"
	"github.com/sakif/puzzle-market/internal/service"
)

// Server owns the router and the database handle. The handle is closed when
// Start returns.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	db      *sqlstore.DB
	metrics *metrics.Metrics
	tokens  *auth.TokenService
}

// New opens the database (running migrations) and builds the full handler
// tree from cfg.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	m := metrics.New()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sqlstore.Open(ctx, sqlstore.Options{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		Metrics:         m,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s, err := newWithDB(cfg, logger, db, m)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func newWithDB(cfg *config.Config, logger *slog.Logger, db *sqlstore.DB, m *metrics.Metrics) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		metrics: m,
		tokens:  tokens,
	}
	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// setupRoutes registers middleware and routes.
//
//	GET    /healthz
//	GET    /metrics
//	POST   /api/users
//	POST   /api/sessions
//	DELETE /api/sessions
//	GET    /api/me                        (auth)
//	PATCH  /api/me                        (auth)
//	GET    /api/me/adverts                (auth)
//	GET    /api/adverts
//	GET    /api/adverts/limits
//	GET    /api/adverts/{id}
//	GET    /api/users/{username}/adverts
//	POST   /api/adverts                   (auth)
//	PUT    /api/adverts/{id}              (auth, owner)
//	PUT    /api/adverts/{id}/sold         (auth, owner)
//	DELETE /api/adverts/{id}              (auth, owner)
//
// Middleware runs in the order added: request id first so every log line
// carries it, Recoverer last so a panic is still logged and counted as a 500.
func (s *Server) setupRoutes() error {
	hasher, err := auth.NewHasher(s.config.Auth.PasswordScheme, s.config.Auth.BcryptCost)
	if err != nil {
		return fmt.Errorf("creating password hasher: %w", err)
	}

	adverts := service.NewAdvertService(s.db, s.logger, service.ListingOptions{
		DefaultLimit:   s.config.Listing.DefaultLimit,
		MaxLimit:       s.config.Listing.MaxLimit,
		MaskReadErrors: s.config.Listing.MaskReadErrors,
	})
	users, err := service.NewUserService(s.db, hasher, s.tokens, s.logger)
	if err != nil {
		return fmt.Errorf("creating user service: %w", err)
	}

	advertHandler := handler.NewAdvertHandler(adverts, s.logger)
	userHandler := handler.NewUserHandler(users, s.tokens, s.config.Auth.CookieSecure, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics(s.metrics))
	s.router.Use(chimiddleware.Recoverer)

	s.router.Get("/healthz", healthHandler.HandleHealth)
	s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	requireAuth := auth.RequireAuth(s.tokens)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/users", userHandler.HandleRegister)
		r.Get("/users/{username}/adverts", advertHandler.HandleByUser)
		r.Post("/sessions", userHandler.HandleLogin)
		r.Delete("/sessions", userHandler.HandleLogout)

		r.Get("/adverts", advertHandler.HandleSearch)
		r.Get("/adverts/limits", advertHandler.HandleLimits)
		r.Get("/adverts/{id}", advertHandler.HandleGet)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/me", userHandler.HandleMe)
			r.Patch("/me", userHandler.HandleUpdateMe)
			r.Get("/me/adverts", advertHandler.HandleMine)

			r.Post("/adverts", advertHandler.HandleCreate)
			r.Put("/adverts/{id}", advertHandler.HandleUpdate)
			r.Put("/adverts/{id}/sold", advertHandler.HandleMarkSold)
			r.Delete("/adverts/{id}", advertHandler.HandleDelete)
		})
	})

	return nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database handle.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests for up
// to the configured shutdown timeout and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("env", s.config.Env),
			slog.String("driver", s.config.Database.Driver),
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

		ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
