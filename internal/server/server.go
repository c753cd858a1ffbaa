// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "struggles/docs" // swagger docs
	"struggles/internal/ai"
	"struggles/internal/bootstrap"
	"struggles/internal/cache"
	"struggles/internal/config"
	"struggles/internal/featureflags"
	"struggles/internal/middleware"
	"struggles/internal/models"
	"struggles/internal/notifications"
	"struggles/internal/repository"
	"struggles/internal/service"
	"struggles/internal/session"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const serviceName = "struggles-api"

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	hub          *notifications.Hub
	notifier     *notifications.Notifier
	featureFlags *featureflags.Manager
	sessions     *session.Manager
	guard        *session.Guard
	generator    ai.Generator

	userService  *service.UserService
	storyService *service.StoryService
	chatService  *service.ChatService
	teamService  *service.TeamService
}

// NewServer connects the stores described by cfg and builds a server over them.
func NewServer(cfg *config.Config) (*Server, error) {
	rt, err := bootstrap.InitRuntime(context.Background(), cfg, bootstrap.Options{})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, rt.DB, rt.Redis)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; sessions then cannot be revoked, websocket tickets
// are unavailable and live updates stay local to this instance.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, fmt.Errorf("server needs a config and a database")
	}

	store := cache.NewStore(redisClient)
	userRepo := repository.NewUserRepository(db, store)
	storyRepo := repository.NewStoryRepository(db, store)
	chatRepo := repository.NewChatRepository(db)
	teamRepo := repository.NewTeamRepository(db)

	hub := notifications.NewHub()
	var notifier *notifications.Notifier
	if redisClient != nil {
		notifier = notifications.NewNotifier(redisClient)
	}
	feed := notifications.NewFeed(hub, notifier)
	directory := service.NewUserDirectoryCache(cfg.UserCacheTTL())

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics(serviceName),
		hub:            hub,
		notifier:       notifier,
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		sessions:       session.NewManager(cfg.JWTSecret, cfg.SessionTTL(), redisClient),
		generator: ai.NewHTTPGenerator(ai.HTTPConfig{
			Endpoint:   cfg.AIEndpoint,
			APIKey:     cfg.AIAPIKey,
			Model:      cfg.AIModel,
			Timeout:    cfg.AITimeout(),
			MaxRetries: cfg.AIMaxRetries,
		}),
		userService:  service.NewUserService(userRepo, directory),
		storyService: service.NewStoryService(storyRepo, directory),
		chatService:  service.NewChatService(chatRepo, userRepo, hub, feed),
		teamService:  service.NewTeamService(teamRepo),
	}
	s.guard = session.NewGuard(s.sessions, userRepo)
	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit so error responses
	// still carry the headers.
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

	app.Use(limiter.New(limiter.Config{
		Max:        100,
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

	app.Use(middleware.RouteGate(middleware.GateConfig{
		CookieName: s.config.SessionCookieName,
		Protected:  middleware.ProtectedPagePrefixes,
		LoginPath:  "/login",
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/", s.ReadinessCheck)
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Stories Of Struggles Metrics",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)
	api.Get("/feature-flags", s.OptionalUser(), s.GetFeatureFlags)

	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.Logout)
	auth.Get("/me", s.AuthRequired(), s.Me)
	auth.Post("/ws-ticket", s.AuthRequired(), s.IssueWSTicket)

	stories := api.Group("/stories")
	stories.Get("/", s.GetStories)
	stories.Get("/:id", s.GetStory)
	stories.Post("/", s.AuthRequired(),
		middleware.RateLimit(s.redis, 5, 10*time.Minute, "create_story"), s.CreateStory)

	users := api.Group("/users")
	users.Get("/", s.GetUsers)
	users.Put("/me", s.AuthRequired(), s.UpdateMyProfile)
	// Specific /:username/:resource routes before the generic /:username route.
	users.Get("/:username/stories", s.GetUserStories)
	users.Post("/:username/follow", s.AuthRequired(), s.FollowUser)
	users.Delete("/:username/follow", s.AuthRequired(), s.UnfollowUser)
	users.Get("/:username", s.OptionalUser(), s.GetUserProfile)

	chats := api.Group("/chats", s.AuthRequired())
	chats.Post("/", s.CreateOrGetChat)
	chats.Get("/", s.GetChats)
	chats.Get("/:id/messages", s.GetMessages)
	chats.Post("/:id/messages", middleware.RateLimit(s.redis, 15, time.Minute, "send_message"), s.SendMessage)
	chats.Get("/:id", s.GetChat)

	teams := api.Group("/teams")
	teams.Get("/", s.GetTeams)
	teams.Get("/mine", s.AuthRequired(), s.GetMyTeams)
	teams.Post("/", s.AuthRequired(), s.CreateTeam)
	teams.Post("/:id/join", s.AuthRequired(), s.JoinTeam)
	teams.Get("/:id", s.GetTeam)

	aiRoutes := api.Group("/ai", s.AuthRequired(), s.FeatureRequired(featureflags.AIGeneration),
		middleware.RateLimit(s.redis, 10, time.Minute, "ai_generate"))
	aiRoutes.Post("/story-prompt", s.GenerateStoryPrompt)
	aiRoutes.Post("/project-story", s.GenerateProjectStory)

	ws := api.Group("/ws", s.AuthRequired(), s.FeatureRequired(featureflags.LiveStreams))
	ws.Get("/chats", s.ChatsStreamHandler())
	ws.Get("/chats/:id/messages", s.MessagesStreamHandler())

	s.setupPageRoutes(app)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now().UTC(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional: its
// absence is reported but does not fail the check.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now().UTC(),
	})
}

// AuthRequired rejects requests without a resolvable user with 401. Websocket
// routes may authenticate with a single-use ticket instead of a token.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		if ticket := c.Query("ticket"); ticket != "" && strings.HasPrefix(c.Path(), "/api/ws") {
			userID, err := s.sessions.RedeemTicket(ctx, ticket)
			if err != nil {
				return models.Respond(c, models.NewUnauthenticatedError("Invalid or expired WebSocket ticket"))
			}
			user, err := s.userService.GetByID(ctx, userID)
			if err != nil {
				return models.Respond(c, models.NewUnauthenticatedError("Invalid or expired WebSocket ticket"))
			}
			s.setCurrentUser(c, user)
			return c.Next()
		}

		user := s.guard.ResolveCurrentUser(ctx, s.sessionToken(c))
		if user == nil {
			return models.Respond(c, models.NewUnauthenticatedError("Sign in required"))
		}
		s.setCurrentUser(c, user)
		return c.Next()
	}
}

// OptionalUser resolves the user when a credential is present and otherwise
// lets the request through anonymously.
func (s *Server) OptionalUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if user := s.guard.ResolveCurrentUser(c.UserContext(), s.sessionToken(c)); user != nil {
			s.setCurrentUser(c, user)
		}
		return c.Next()
	}
}

// FeatureRequired hides a route behind a feature flag for the current user.
func (s *Server) FeatureRequired(flag string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !s.featureFlags.Enabled(flag, currentUserID(c)) {
			return models.Respond(c, models.NewNotFoundError("Feature", flag))
		}
		return c.Next()
	}
}

// App builds the Fiber app with middleware and routes installed.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:   "Stories Of Struggles API",
		BodyLimit: 1 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, err)
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// Start wires cross-instance live updates and listens on the configured port.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := s.App()

	if s.notifier.Enabled() {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start live wiring",
					slog.String("hub", s.hub.Name()), slog.String("error", err.Error()))
			}
		}()
	}

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
		middleware.Logger.Error("error shutting down live hub", slog.String("error", err.Error()))
	}

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
