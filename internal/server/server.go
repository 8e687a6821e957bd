// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"pipal/internal/cache"
	"pipal/internal/config"
	"pipal/internal/database"
	"pipal/internal/featureflags"
	"pipal/internal/middleware"
	"pipal/internal/models"
	"pipal/internal/notifications"
	"pipal/internal/repository"
	"pipal/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config      *config.Config
	db          *gorm.DB
	redis       *redis.Client
	app         *fiber.App
	shutdownCtx context.Context
	shutdownFn  context.CancelFunc

	broadcaster  *notifications.Broadcaster
	notifier     *notifications.Notifier
	kafka        *notifications.KafkaSink
	hub          *notifications.LiveHub
	featureFlags *featureflags.Manager

	authService    *service.AuthService
	voteService    *service.VoteService
	liveService    *service.LiveService
	postService    *service.PostService
	productService *service.ProductService
	orderService   *service.OrderService
	chatService    *service.ChatService
	socialService  *service.SocialService
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient and flags may be nil. extraSinks receive every broadcast event
// alongside Redis and Kafka.
func NewServerWithDeps(
	cfg *config.Config,
	db *gorm.DB,
	redisClient *redis.Client,
	flags *featureflags.Manager,
	extraSinks ...notifications.Sink,
) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, fmt.Errorf("server requires config and database")
	}
	if flags == nil {
		flags = featureflags.NewManager(cfg.FeatureFlags)
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	voteRepo := repository.NewVoteRepository(db)
	sessionRepo := repository.NewLiveSessionRepository(db)
	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	socialRepo := repository.NewSocialRepository(db)

	s := &Server{
		config:       cfg,
		db:           db,
		redis:        redisClient,
		hub:          notifications.NewLiveHub(),
		featureFlags: flags,
	}

	// Without Redis the hub is fed in-process; with Redis it listens on the pattern subscription.
	var sinks []notifications.Sink
	if redisClient != nil {
		s.notifier = notifications.NewNotifier(redisClient)
		sinks = append(sinks, s.notifier)
	} else {
		sinks = append(sinks, s.hub)
	}
	if brokers := cfg.KafkaBrokerList(); len(brokers) > 0 {
		s.kafka = notifications.NewKafkaSink(brokers, cfg.KafkaTopic)
		sinks = append(sinks, s.kafka)
	}
	sinks = append(sinks, extraSinks...)
	s.broadcaster = notifications.NewBroadcaster(sinks...)

	tokenTTL := time.Duration(cfg.JWTTTLHours) * time.Hour
	s.authService = service.NewAuthService(userRepo, redisClient, cfg.JWTSecret, tokenTTL)
	s.voteService = service.NewVoteService(voteRepo, s.broadcaster, cfg.VoteThreshold)
	s.liveService = service.NewLiveService(sessionRepo, postRepo, s.broadcaster, redisClient, flags, service.LiveConfig{
		VoteThreshold:         cfg.VoteThreshold,
		SingleActivePerSeller: cfg.SingleActiveLivePerSeller,
	})
	s.postService = service.NewPostService(postRepo, productRepo)
	s.productService = service.NewProductService(productRepo, s.broadcaster)
	s.orderService = service.NewOrderService(orderRepo)
	s.socialService = service.NewSocialService(socialRepo, userRepo)
	s.chatService = service.NewChatService(sessionRepo, cache.NewIdempotencyStore(redisClient), s.broadcaster)

	s.broadcaster.Listen(notifications.EventThresholdCrossed, s.liveService.HandleThresholdCrossed)
	s.hub.SetPresenceCallbacks(s.liveService.ViewerJoined, s.liveService.ViewerLeft)

	s.shutdownCtx, s.shutdownFn = context.WithCancel(context.Background())
	s.app = s.App()
	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())
	middleware.RegisterMetrics(app, s.config.OTelServiceName)
	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:19006,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Idempotency-Key, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(middleware.RateLimit(s.redis, middleware.RateLimitConfig{
		Limit:    s.config.RateLimitMax,
		Window:   s.config.RateLimitWindow,
		Resource: "api",
		Policy:   middleware.FailOpen,
		Disabled: s.config.Env == "test",
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	api := app.Group("/api")

	// Auth is attached per route. A prefix-less group would run it for every /api path.
	authed := s.AuthRequired()
	seller := s.RequireRole(models.RoleSeller)

	auth := api.Group("/auth")
	loginLimit := middleware.RateLimit(s.redis, middleware.RateLimitConfig{
		Limit:    10,
		Window:   5 * time.Minute,
		Resource: "login",
		Disabled: s.config.Env == "test",
	})
	auth.Post("/login", loginLimit, s.Login)
	auth.Post("/register", loginLimit, s.Register)
	auth.Get("/me", authed, s.GetMe)

	// Users and follows
	users := api.Group("/users")
	users.Get("/:id", s.GetUserProfile)
	users.Get("/:id/followers", s.GetFollowers)
	users.Get("/:id/following", s.GetFollowing)
	users.Post("/:id/follow", authed, s.ToggleFollow)

	// Votes
	api.Get("/votes/:postId/tally", s.GetVoteTally)
	api.Get("/votes/:postId", s.ListVoters)
	api.Post("/votes/:postId", authed, s.CastVote)

	// Live sessions
	api.Get("/live", s.ListLiveSessions)
	api.Get("/live/:id", s.GetLiveSession)
	api.Post("/live", authed, seller, s.CreateLiveSession)
	api.Post("/live/:id/start", authed, s.StartLiveSession)
	api.Post("/live/:id/end", authed, s.EndLiveSession)
	api.Post("/live/:id/cancel", authed, s.CancelLiveSession)

	// Posts
	api.Get("/posts", s.GetPosts)
	api.Get("/posts/:id", s.GetPost)
	api.Post("/posts", authed, s.CreatePost)
	api.Post("/posts/:id/like", authed, s.ToggleLike)

	// Products
	api.Get("/products", s.GetProducts)
	api.Get("/products/:id", s.GetProduct)
	api.Post("/products", authed, seller, s.CreateProduct)
	api.Patch("/products/:id/inventory", authed, seller, s.SetProductInventory)

	// Orders: /mine before /:id
	api.Post("/orders", authed, s.PlaceOrder)
	api.Get("/orders/mine", authed, s.GetMyOrders)
	api.Get("/orders/:id", authed, s.GetOrder)

	// Chat
	api.Post("/chat/live/:sessionId", authed, s.SendLiveChat)

	api.Get("/feature-flags", authed, s.GetFeatureFlags)

	// WebSocket
	api.Post("/ws/ticket", authed, s.IssueWSTicket)
	api.Get("/ws/live/:sessionId", s.requireUpgrade, authed, s.LiveRoomHandler())
}

// App builds the Fiber application with middleware and routes.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "pipal API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return models.RespondWithError(c, fe.Code, fe)
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// LivenessCheck reports that the process is up
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now().UTC(),
	})
}

// ReadinessCheck reports whether the DB and Redis answer
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis == nil {
		redisStatus = "unavailable"
	} else if err := s.redis.Ping(ctx).Err(); err != nil {
		redisStatus = "unhealthy"
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now().UTC(),
	})
}

// AuthRequired resolves the caller from a websocket ticket (websocket routes only)
// or a bearer token, and rejects inactive users.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var (
			user *models.User
			err  error
		)
		if strings.HasPrefix(c.Path(), "/api/ws/live") {
			user, err = s.authService.ConsumeWSTicket(c.UserContext(), c.Query("ticket"))
		} else {
			token := middleware.BearerToken(c)
			if token == "" {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Authorization required"))
			}
			user, err = s.authService.Verify(c.UserContext(), token)
		}
		if err != nil {
			return s.mapServiceError(c, err)
		}

		c.Locals("userID", user.ID)
		c.Locals("user", user)
		c.SetUserContext(middleware.WithUserID(c.UserContext(), user.ID))
		return c.Next()
	}
}

// RequireRole rejects callers without one of roles. Must follow AuthRequired.
func (s *Server) RequireRole(roles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := c.Locals("user").(*models.User)
		if !ok || !user.HasRole(roles...) {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Insufficient role"))
		}
		return c.Next()
	}
}

// Start wires the websocket hub and serves HTTP until the listener fails.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", ":"+s.config.Port)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve runs the app on ln until Shutdown. Live rooms start receiving broadcasts
// before the first request is accepted.
func (s *Server) Serve(ln net.Listener) error {
	if s.notifier != nil {
		if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
			middleware.Logger.Error("failed to start live hub wiring", slog.String("error", err.Error()))
		}
	}

	middleware.Logger.Info("Server starting", slog.String("addr", ln.Addr().String()))
	return s.app.Listener(ln)
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

	if s.kafka != nil {
		if err := s.kafka.Close(); err != nil {
			middleware.Logger.Error("error closing kafka writer", slog.String("error", err.Error()))
		}
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

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
