// Package server contains the HTTP handlers and wiring for the postline web service.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "postline/docs" // swagger docs
	"postline/internal/cache"
	"postline/internal/config"
	"postline/internal/database"
	"postline/internal/featureflags"
	"postline/internal/middleware"
	"postline/internal/models"
	"postline/internal/repository"
	"postline/internal/service"
	"postline/internal/storage"

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
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	pageCache      cache.PageCache
	storage        storage.Storage
	featureFlags   *featureflags.Manager
	userRepo       repository.UserRepository
	groupRepo      repository.GroupRepository
	followService  *service.FollowService
	feedService    *service.FeedService
	postService    *service.PostService
}

// Option customizes a Server built by NewServerWithDeps.
type Option func(*Server)

// WithPageCache replaces the Redis-backed page cache.
func WithPageCache(pc cache.PageCache) Option {
	return func(s *Server) { s.pageCache = pc }
}

// WithStorage replaces the storage backend selected by STORAGE_BACKEND.
func WithStorage(st storage.Storage) Option {
	return func(s *Server) { s.storage = st }
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	redisClient := cache.Connect(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; caching and rate limiting are then skipped.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, opts ...Option) (*Server, error) {
	store := cache.NewStore(redisClient)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("postline"),
		pageCache:      cache.NewPageCache(store),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}
	for _, opt := range opts {
		opt(server)
	}

	if server.storage == nil {
		st, err := storage.New(context.Background(), cfg)
		if err != nil {
			return nil, fmt.Errorf("storage init failed: %w", err)
		}
		server.storage = st
	}

	server.userRepo = repository.NewUserRepository(db)
	server.groupRepo = repository.NewGroupRepository(db, store)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	followRepo := repository.NewFollowRepository(db)

	images := service.NewImageService(server.storage, server.featureFlags, cfg)
	server.followService = service.NewFollowService(followRepo)
	server.feedService = service.NewFeedService(postRepo, server.groupRepo, server.userRepo, server.followService, cfg.PageSize)
	server.postService = service.NewPostService(postRepo, commentRepo, server.groupRepo, images)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{CrossOriginEmbedderPolicy: "unsafe-none"}))
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000,http://127.0.0.1:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: time.Minute,
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

// SetupRoutes configures all routes for the application. Fixed paths are
// registered before the /:username catch-alls.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "postline metrics",
	}))
	app.Get("/swagger/*", swagger.HandlerDefault)

	auth := app.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Get("/login", s.LoginForm)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.Logout)

	about := app.Group("/about")
	about.Get("/author", s.AboutAuthor)
	about.Get("/tech", s.AboutTech)

	app.Get("/media/*", s.ServeMedia)

	app.Get("/", cache.CachePage(s.pageCache, s.config.IndexCacheTTL(), s.indexCacheEnabled), s.Index)
	app.Get("/group/:slug", s.GroupPosts)
	app.Get("/follow", s.AuthRequired(), s.FollowIndex)
	app.Get("/new", s.AuthRequired(), s.NewPostForm)
	app.Post("/new", s.AuthRequired(),
		middleware.RateLimit(s.redis, 10, time.Minute, "create_post"), s.CreatePost)

	app.Get("/:username", s.Profile)
	for _, method := range []string{fiber.MethodGet, fiber.MethodPost} {
		app.Add(method, "/:username/follow", s.AuthRequired(), s.ProfileFollow)
		app.Add(method, "/:username/unfollow", s.AuthRequired(), s.ProfileUnfollow)
	}
	app.Get("/:username/:post_id<int>", s.PostView)
	app.Get("/:username/:post_id<int>/edit", s.AuthRequired(), s.EditPostForm)
	app.Post("/:username/:post_id<int>/edit", s.AuthRequired(), s.EditPost)
	app.Post("/:username/:post_id<int>/comment", s.AuthRequired(),
		middleware.RateLimit(s.redis, 20, time.Minute, "create_comment"), s.AddComment)

	app.Use(s.NotFound)
}

func (s *Server) indexCacheEnabled(*fiber.Ctx) bool {
	return s.featureFlags.On(featureflags.IndexCache)
}

// newApp builds the Fiber application with middleware and routes attached.
func (s *Server) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "postline",
		BodyLimit:    (s.config.ImageMaxUploadSizeMB + 1) * 1024 * 1024,
		ErrorHandler: s.errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// errorHandler renders errors that escaped a handler. Fiber's own errors
// (405, 413, ...) keep their status; anything else is a generic 500.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code != fiber.StatusInternalServerError {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}

	middleware.Logger.ErrorContext(c.UserContext(), "Unhandled error",
		slog.String("path", c.Path()), slog.String("error", err.Error()))
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

// NotFound renders the JSON 404 for paths no route matched.
func (s *Server) NotFound(c *fiber.Ctx) error {
	return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("page", c.Path()))
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck pings the database and Redis concurrently. Redis is
// optional: without a client it reports "disabled" and does not fail readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus, redisStatus := "healthy", "disabled"

	var g errgroup.Group
	g.Go(func() error {
		sqlDB, err := s.db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			dbStatus = "unhealthy"
		}
		return err
	})
	if s.redis != nil {
		redisStatus = "healthy"
		g.Go(func() error {
			err := s.redis.Ping(ctx).Err()
			if err != nil {
				redisStatus = "unhealthy"
			}
			return err
		})
	}

	status, overall := fiber.StatusOK, "healthy"
	if err := g.Wait(); err != nil {
		status, overall = fiber.StatusServiceUnavailable, "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	s.app = s.newApp()
	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
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
