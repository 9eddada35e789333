// Package server is the composition root: it opens storage, builds the
// services and handlers, and mounts them on a chi router.
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → sqlite.DB → revision.Settings
//	                          → QuestionService, AuthService, TutorService
//	                          → handlers → routes
//
// Every dependency is wired here, in one place, so no other package needs
// to know how its collaborators are constructed.
package server

import (
	"context"
	"crypto/rand"
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
	"github.com/rs/cors"

	"github.com/sakif/revision-tracker/internal/auth"
	"github.com/sakif/revision-tracker/internal/config"
	"github.com/sakif/revision-tracker/internal/handler"
	"github.com/sakif/revision-tracker/internal/middleware"
	sqliteRepo "github.com/sakif/revision-tracker/internal/repository/sqlite"
	"github.com/sakif/revision-tracker/internal/revision"
	"github.com/sakif/revision-tracker/internal/service"
	"github.com/sakif/revision-tracker/internal/tutor"
)

// Server represents the HTTP server and the resources it owns.
// The database is closed when Start returns.
type Server struct {
	router chi.Router
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database and wires every route.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// The tutor is optional: without an API key /api/tutor/chat answers 503.
	var tutorClient service.TutorClient
	client, err := tutor.New(cfg.TutorConfig(), logger)
	switch {
	case err == nil:
		tutorClient = client
		logger.Info("AI tutor enabled", slog.String("model", client.Model()))
	case errors.Is(err, tutor.ErrNotConfigured):
		logger.Warn("TUTOR_API_KEY not set, the AI tutor is disabled")
	default:
		db.Close()
		return nil, fmt.Errorf("creating tutor client: %w", err)
	}

	s, err := newServer(cfg, db, tutorClient, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// newServer wires routes around an already-open database. Tests call it
// with an in-memory database and a fake tutor.
func newServer(cfg config.Config, db *sqliteRepo.DB, tutorClient service.TutorClient, logger *slog.Logger) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	if err := s.setupRoutes(context.Background(), tutorClient); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler returns the fully wrapped router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// tokenService builds the JWT service. Without JWT_SECRET a random secret is
// generated, so sessions work but do not survive a restart.
func (s *Server) tokenService() (*auth.TokenService, error) {
	secret := s.config.JWTSecret
	if !s.config.HasJWTSecret() {
		s.logger.Warn("JWT_SECRET not set, using a random secret: sessions end when the server restarts")
		secret = rand.Text()
	}
	return auth.NewTokenService(secret)
}

// setupRoutes configures middleware and routes.
//
// ROUTE STRUCTURE:
//
//	GET    /healthz
//	GET    /auth/github/login, /auth/github/callback   (GitHub configured)
//	POST   /auth/signup, /auth/login, /auth/logout
//	GET    /api/me
//	GET    /api/questions                 ?search=&difficulty=&sort=&group=topic
//	POST   /api/questions
//	GET    /api/questions/due
//	GET    /api/questions/random
//	GET    /api/questions/{id}
//	PUT    /api/questions/{id}
//	DELETE /api/questions/{id}
//	POST   /api/questions/{id}/revise
//	GET    /api/stats                     ?tz=
//	GET    /api/settings, PUT /api/settings
//	GET    /api/export, POST /api/import
//	POST   /api/tutor/chat                (rate limited per user)
//
// MIDDLEWARE ORDER MATTERS:
// RequestID → RealIP → Recoverer → Logger → CORS. CORS answers preflight
// requests itself, before routing, so OPTIONS never reaches a handler.
func (s *Server) setupRoutes(ctx context.Context, tutorClient service.TutorClient) error {
	tokens, err := s.tokenService()
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	settings := revision.NewSettings(s.db)
	if err := settings.Load(ctx); err != nil {
		return err
	}

	// === Services ===
	questionService := service.NewQuestionService(s.db, settings, s.logger)
	settingsService := service.NewSettingsService(settings, s.logger, s.config.SettingsAdmins...)
	authService := service.NewAuthService(s.db, tokens, auth.NewPasswordService(), s.logger)
	tutorService := service.NewTutorService(tutorClient, s.db, s.logger)

	// === Handlers ===
	var github *auth.GitHubProvider
	if s.config.GitHubEnabled() {
		github = auth.NewGitHubProvider(s.config.GitHubClientID, s.config.GitHubClientSecret, s.config.GitHubCallbackURL)
	}
	authHandler := handler.NewAuthHandler(github, authService, tokens, s.config.FrontendURL, s.logger)
	questionHandler := handler.NewQuestionHandler(questionService, s.logger)
	statsHandler := handler.NewStatsHandler(questionService, s.config.Location(), s.logger)
	settingsHandler := handler.NewSettingsHandler(settingsService, s.logger)
	transferHandler := handler.NewTransferHandler(questionService, s.logger)
	tutorHandler := handler.NewTutorHandler(tutorService, s.logger)
	tutorLimiter := middleware.NewPerMinuteLimiter(s.config.TutorRatePerMinute)

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(cors.New(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With", "Accept", "Origin"},
		ExposedHeaders:   []string{"Content-Disposition", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           86400,
	}).Handler)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.Ping(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})

	// === Auth Routes ===
	s.router.Route("/auth", func(r chi.Router) {
		if github != nil {
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
		}
		r.Post("/signup", authHandler.HandleSignup)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
	})

	// === API Routes ===
	// Everything under /api is per user, so the whole group requires auth.
	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))
		r.Use(middleware.RecordUser)

		r.Get("/me", authHandler.HandleMe)

		r.Route("/questions", func(r chi.Router) {
			r.Get("/", questionHandler.HandleList)
			r.Post("/", questionHandler.HandleCreate)
			r.Get("/due", questionHandler.HandleDue)
			r.Get("/random", questionHandler.HandleRandom)
			r.Get("/{id}", questionHandler.HandleGet)
			r.Put("/{id}", questionHandler.HandleUpdate)
			r.Delete("/{id}", questionHandler.HandleDelete)
			r.Post("/{id}/revise", questionHandler.HandleRevise)
		})

		r.Get("/stats", statsHandler.HandleStats)
		r.Get("/settings", settingsHandler.HandleGet)
		r.Put("/settings", settingsHandler.HandleUpdate)
		r.Get("/export", transferHandler.HandleExport)
		r.Post("/import", transferHandler.HandleImport)

		r.With(tutorLimiter.PerUser).Post("/tutor/chat", tutorHandler.HandleChat)
	})

	return nil
}

// Start serves HTTP until SIGINT or SIGTERM, then shuts down gracefully:
// stop accepting connections, give in-flight requests 30 seconds, close
// the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Tutor replies can take several model round trips.
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
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
			slog.Bool("github", s.config.GitHubEnabled()),
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

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}
