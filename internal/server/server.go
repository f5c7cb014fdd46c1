// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "dumdummies/docs" // swagger docs
	"dumdummies/internal/bootstrap"
	"dumdummies/internal/config"
	"dumdummies/internal/featureflags"
	"dumdummies/internal/live"
	"dumdummies/internal/middleware"
	"dumdummies/internal/models"
	"dumdummies/internal/notifications"
	"dumdummies/internal/reconciler"
	"dumdummies/internal/repository"
	"dumdummies/internal/security"
	"dumdummies/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	featureFlags   *featureflags.Manager

	userRepo repository.UserRepository

	notifier  *notifications.Notifier
	broker    *notifications.Broker
	publisher *notifications.Publisher
	hub       *notifications.ChannelHub
	gate      *security.Gate
	registry  *live.Registry

	authService      *service.AuthService
	channelService   *service.ChannelService
	challengeService *service.ChallengeService
	donationService  *service.DonationService
	chatService      *service.ChatService
	streamService    *service.StreamService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SeedDemo: cfg.SeedDemo})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, rdb)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil, in which case events stay in-process and rate
// limits fail open.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	palette := reconciler.DefaultPalette()
	if cfg.PaletteFile != "" {
		p, err := reconciler.LoadPalette(cfg.PaletteFile)
		if err != nil {
			return nil, fmt.Errorf("load palette: %w", err)
		}
		palette = p
	}

	userRepo := repository.NewUserRepository(db)
	channelRepo := repository.NewChannelRepository(db)
	violationRepo := repository.NewSecurityRepository(db)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("dumdummies-api"),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		userRepo:       userRepo,
		notifier:       notifications.NewNotifier(redisClient),
		broker:         notifications.NewBroker(),
		gate:           security.NewGate(channelRepo, violationRepo),
	}
	server.publisher = notifications.NewPublisher(server.notifier, server.broker)
	server.hub = notifications.NewChannelHub(server.broker)

	server.authService = service.NewAuthService(userRepo)
	server.channelService = service.NewChannelService(channelRepo, violationRepo, server.gate, server.publisher)
	server.challengeService = service.NewChallengeService(
		repository.NewChallengeRepository(db), channelRepo, server.gate, server.publisher)
	server.donationService = service.NewDonationService(
		repository.NewDonationRepository(db), channelRepo, userRepo, server.publisher)
	server.chatService = service.NewChatService(
		repository.NewChatRepository(db), channelRepo, userRepo, server.publisher)
	server.streamService = service.NewStreamService(
		repository.NewStreamRepository(db), channelRepo, server.gate, server.publisher, cfg.RTMPServerURL)

	server.registry = live.NewRegistry(&live.ServiceBackend{
		Channels:   server.channelService,
		Challenges: server.challengeService,
		Donations:  server.donationService,
		Chat:       server.chatService,
		Streams:    server.streamService,
	}, server.broker, server.gate, cfg.ChatLogCap, palette)

	server.hub.SetViewerCallbacks(
		server.channelService.TrackViewer(1),
		func(ctx context.Context, channelID string) {
			server.channelService.TrackViewer(-1)(ctx, channelID)
			if server.hub.ViewerCount(channelID) == 0 {
				server.registry.Evict(channelID)
			}
		},
	)

	return server, nil
}

// App builds the Fiber application with middleware and routes. It is built
// once; later calls return the same app.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:      "DumDummies API",
		ErrorHandler: s.errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return models.RespondWithError(c, fe.Code, errors.New(fe.Message))
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
		slog.String("path", c.Path()),
		slog.String("error", err.Error()),
	)
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (300 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")
	secret := s.config.JWTSecret

	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api.Get("/swagger/*", swagger.HandlerDefault)

	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Get("/me", middleware.AuthRequired(secret), s.Me)

	api.Get("/feature-flags", middleware.OptionalAuth(secret), s.GetFeatureFlags)

	// Public channel routes
	channels := api.Group("/channels")
	channels.Get("/", s.ListChannels)
	channels.Get("/:id/state", s.GetChannelState)
	channels.Get("/:id/messages", s.GetMessages)
	channels.Get("/:id/donations", s.GetDonations)
	channels.Get("/:id/challenges/active", s.GetActiveChallenge)
	channels.Get("/:id/challenges", s.GetChallenges)
	channels.Get("/:id", s.GetChannel)

	// Viewers may watch anonymously; a ?token= identifies signed-in viewers.
	api.Get("/ws/channels/:id", middleware.OptionalAuth(secret), s.WebSocketUpgrade, s.ChannelWebSocketHandler())

	// Everything below requires a bearer token.
	protected := api.Group("", middleware.AuthRequired(secret))
	protected.Post("/channels", s.CreateChannel)
	protected.Post("/channels/:id/creator", s.ClaimCreator)
	protected.Get("/channels/:id/creator", s.GetCreatorStatus)
	protected.Post("/channels/:id/challenges",
		s.FeatureRequired(featureflags.ChallengeRequests),
		middleware.RateLimit(s.redis, 5, time.Minute, "challenge_request"),
		s.RequestChallenge)
	protected.Post("/channels/:id/donations",
		middleware.RateLimit(s.redis, 20, time.Minute, "donation"), s.Donate)
	protected.Post("/channels/:id/messages",
		middleware.RateLimit(s.redis, 30, time.Minute, "channel_chat"), s.SendMessage)
	protected.Post("/channels/:id/viewers", s.AdjustViewers)
	protected.Post("/channels/:id/violations", s.ReportViolation)
	protected.Get("/channels/:id/violations", s.GetViolations)

	stream := protected.Group("/channels/:id/stream")
	stream.Post("/start", s.StartStream)
	stream.Post("/end", s.EndStream)
	stream.Get("/key", s.GetStreamKey)
	stream.Post("/key/rotate", s.FeatureRequired(featureflags.StreamKeyRotation), s.RotateStreamKey)

	challenges := protected.Group("/challenges")
	challenges.Post("/:id/approve", s.ApproveChallenge)
	challenges.Post("/:id/reject", s.RejectChallenge)
}

// StartRealtime feeds events published by other instances through Redis
// into the local broker until ctx is cancelled.
func (s *Server) StartRealtime(ctx context.Context) error {
	if !s.notifier.Enabled() {
		return nil
	}
	return s.publisher.StartWiring(ctx)
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := s.App()

	go func() {
		if err := s.StartRealtime(s.shutdownCtx); err != nil {
			middleware.Logger.Error("failed to start realtime wiring", slog.String("error", err.Error()))
		}
	}()

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down channel hub", slog.String("error", err.Error()))
	}
	s.registry.Close()

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
