// File: internal/app/server.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"fitcoach_backend/internal/auth"
	"fitcoach_backend/internal/authstate"
	"fitcoach_backend/internal/common"
	"fitcoach_backend/internal/config"
	"fitcoach_backend/internal/guard"
	"fitcoach_backend/internal/jobs"
	"fitcoach_backend/internal/middleware"
	"fitcoach_backend/internal/notification"
	"fitcoach_backend/internal/platform/metrics"
	"fitcoach_backend/internal/profile"
	"fitcoach_backend/internal/progress"
	"fitcoach_backend/internal/role"
	"fitcoach_backend/internal/web"
	"fitcoach_backend/internal/workout"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Handlers groups the HTTP handlers mounted by the server.
type Handlers struct {
	Web          *web.Handler
	Auth         *auth.Handler
	Profile      *profile.Handler
	Workout      *workout.Handler
	Progress     *progress.Handler
	Notification *notification.Handler
}

// Server struct holds the dependencies for the HTTP server.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	cfg        *config.Config
	logger     *zap.Logger

	registry         *authstate.Registry
	sessionExpiryJob *jobs.SessionExpiryJob
}

// NewServer builds the router and the http.Server around it.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	handlers Handlers,
	g *guard.Guard,
	registry *authstate.Registry,
	rec metrics.Recorder,
	gatherer prometheus.Gatherer,
	sessionExpiryJob *jobs.SessionExpiryJob,
) (*Server, error) {
	gin.SetMode(cfg.GinMode)
	router := NewRouter(cfg, logger, handlers, g, rec, gatherer)

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	httpServer := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: /api/v1/auth/state/stream is long lived.
		IdleTimeout: 120 * time.Second,
	}

	return &Server{
		httpServer:       httpServer,
		router:           router,
		cfg:              cfg,
		logger:           logger,
		registry:         registry,
		sessionExpiryJob: sessionExpiryJob,
	}, nil
}

// NewRouter wires middleware and routes. gatherer may be nil to skip /metrics.
func NewRouter(cfg *config.Config, logger *zap.Logger, h Handlers, g *guard.Guard, rec metrics.Recorder, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true

	// --- Global Middleware ---
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.ZapLogger(logger, cfg))
	router.Use(middleware.RequestMetrics(rec))
	router.Use(middleware.ErrorHandler(logger))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader, common.ClientIDHeader}
	// Credentials are needed for the client cookie; they cannot be combined with "*".
	corsConfig.AllowCredentials = !corsConfig.AllowAllOrigins
	corsConfig.ExposeHeaders = []string{"Content-Length", middleware.RequestIDHeader, common.ClientIDHeader}
	router.Use(cors.New(corsConfig))

	router.Use(middleware.ClientIdentity(cfg))

	router.NoRoute(middleware.NotFound())
	router.NoMethod(middleware.MethodNotAllowed())

	// --- Setup Routes ---
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "FitCoach API is healthy!"})
	})
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler(gatherer)))
	}
	if cfg.AvatarStoragePath != "" && cfg.AvatarPublicBaseURL != "" && cfg.AvatarPublicBaseURL[0] == '/' {
		router.Static(cfg.AvatarPublicBaseURL, cfg.AvatarStoragePath)
	}

	var signInLimiter gin.HandlerFunc
	if cfg.SignInRatePerMinute > 0 {
		signInLimiter = middleware.NewSignInRateLimiter(cfg).Middleware()
	}

	authMW := g.API(role.None)
	trainerMW := g.API(role.Trainer)
	studentMW := g.API(role.Student)

	if h.Web != nil {
		h.Web.RegisterRoutes(router, signInLimiter)
	}

	v1 := router.Group("/api/v1")
	if h.Web != nil {
		h.Web.RegisterStateRoutes(v1)
	}
	if h.Auth != nil {
		h.Auth.RegisterRoutes(v1, signInLimiter)
	}
	if h.Profile != nil {
		h.Profile.RegisterRoutes(v1, authMW, trainerMW)
	}
	if h.Workout != nil {
		h.Workout.RegisterRoutes(v1, authMW, trainerMW)
	}
	if h.Progress != nil {
		h.Progress.RegisterRoutes(v1, authMW, studentMW)
	}
	if h.Notification != nil {
		h.Notification.RegisterRoutes(v1.Group("/notifications", authMW))
		h.Notification.RegisterTrainerRoutes(v1.Group("/trainer/notifications", trainerMW))
	} else {
		logger.Warn("Notification handler is nil, routes will not be registered.")
	}

	return router
}

// Router exposes the engine for tests.
func (s *Server) Router() *gin.Engine { return s.router }

func (s *Server) Start() error {
	if s.sessionExpiryJob != nil {
		if err := s.sessionExpiryJob.SetupAndStart(); err != nil {
			s.logger.Error("Failed to setup and start session expiry job", zap.Error(err))
		}
	} else {
		s.logger.Info("Session expiry job is not configured, skipping start.")
	}

	s.logger.Info("HTTP Server starting",
		zap.String("address", s.httpServer.Addr),
		zap.String("gin_mode", s.cfg.GinMode),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}
	s.logger.Info("HTTP Server stopped")
	return nil
}

// Shutdown stops the job, drains HTTP and then stops every client auth state.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Attempting graceful server shutdown...")
	if s.sessionExpiryJob != nil {
		s.sessionExpiryJob.Stop()
	}
	err := s.httpServer.Shutdown(ctx)
	if s.registry != nil {
		s.registry.Close()
	}
	return err
}
