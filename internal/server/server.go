// Package server contains the HTTP handlers and page rendering of the blog.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"inkwell/internal/bootstrap"
	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/events"
	"inkwell/internal/media"
	"inkwell/internal/middleware"
	"inkwell/internal/repository"
	"inkwell/internal/service"
	"inkwell/web"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
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
	publisher      events.Publisher
	runtime        *bootstrap.Runtime
	images         *media.Store
	userRepo       repository.UserRepository
	groupRepo      repository.GroupRepository
	postRepo       repository.PostRepository
	commentRepo    repository.CommentRepository
	followRepo     repository.FollowRepository
	feedService    *service.FeedService
	postService    *service.PostService
	commentService *service.CommentService
	followService  *service.FollowService
	userService    *service.UserService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	rt, err := bootstrap.InitRuntime(cfg)
	if err != nil {
		return nil, err
	}
	server, err := NewServerWithDeps(cfg, rt.DB, rt.Redis, rt.Events)
	if err != nil {
		rt.Close()
		return nil, err
	}
	server.runtime = rt
	return server, nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, publisher events.Publisher) (*Server, error) {
	if db == nil {
		return nil, fmt.Errorf("server requires a database")
	}
	if publisher == nil {
		publisher = events.Noop{}
	}

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("inkwell"),
		publisher:      publisher,
		images:         media.NewStore(cfg.MediaRoot, cfg.MaxUploadBytes()),
		userRepo:       repository.NewUserRepository(db),
		groupRepo:      repository.NewGroupRepository(db),
		postRepo:       repository.NewPostRepository(db),
		commentRepo:    repository.NewCommentRepository(db),
		followRepo:     repository.NewFollowRepository(db),
	}

	server.feedService = service.NewFeedService(server.postRepo, server.groupRepo, server.userRepo, server.followRepo, cfg.PostsOnPage)
	server.postService = service.NewPostService(server.postRepo, server.commentRepo, server.groupRepo, server.images, publisher)
	server.commentService = service.NewCommentService(server.commentRepo, server.postRepo, publisher)
	server.followService = service.NewFollowService(server.followRepo, server.userRepo, publisher)
	server.userService = service.NewUserService(server.userRepo)

	return server, nil
}

// NewApp builds the Fiber application with views, middleware and routes.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Inkwell",
		Views:        newViews(),
		ViewsLayout:  baseLayout,
		BodyLimit:    int(s.config.MaxUploadBytes()) + 1<<20,
		ErrorHandler: s.errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	app.Use(middleware.TracingMiddleware())

	// Context Middleware to propagate Request ID and trace ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers. Uploaded images are served from the same origin.
	app.Use(helmet.New(helmet.Config{
		CrossOriginEmbedderPolicy: "unsafe-none",
	}))

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// Session cookie; anonymous requests pass through.
	app.Use(s.CurrentUser())
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Use("/static", filesystem.New(filesystem.Config{
		Root:   http.FS(web.Static()),
		MaxAge: 3600,
	}))
	app.Static("/media", s.config.MediaRoot)

	writeLimit := middleware.RateLimit(s.redis, s.config.RateLimitPerMinute, time.Minute, "write")

	// Auth routes
	auth := app.Group("/auth")
	auth.Get("/signup/", s.SignupForm)
	auth.Post("/signup/", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Get("/login/", s.LoginForm)
	auth.Post("/login/", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Get("/logout/", s.Logout)
	auth.Post("/logout/", s.Logout)

	// Public pages. Only the index is served from the page cache.
	app.Get("/", cache.Page(s.config.PageCacheTTL(), cache.URLKey), s.Index)
	app.Get("/group/:slug/", s.GroupPosts)
	app.Get("/profile/:username/", s.Profile)
	app.Get("/posts/:id/", s.PostDetail)

	// Login-only pages. Attached per route so unknown paths still 404.
	login := s.LoginRequired()
	app.Get("/create/", login, s.PostCreateForm)
	app.Post("/create/", login, writeLimit, s.PostCreate)
	app.Get("/posts/:id/edit/", login, s.PostEditForm)
	app.Post("/posts/:id/edit/", login, writeLimit, s.PostEdit)
	app.Get("/posts/:id/comment/", login, s.AddComment)
	app.Post("/posts/:id/comment/", login, writeLimit, s.AddComment)
	app.Post("/posts/:id/delete/", login, s.PostDelete)
	app.Get("/follow/", login, s.FollowIndex)
	app.Get("/profile/:username/follow/", login, writeLimit, s.ProfileFollow)
	app.Get("/profile/:username/unfollow/", login, s.ProfileUnfollow)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
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

	// Redis only backs the page cache and rate limits; pages render without it.
	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	} else if redisStatus == "unhealthy" {
		overallStatus = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	app := s.app
	if app == nil {
		app = s.NewApp()
	}

	middleware.Logger.Info("server starting", "port", s.config.Port, "env", s.config.Env)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully stops the HTTP listener and releases connections opened by NewServer.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.app != nil {
		err = s.app.ShutdownWithContext(ctx)
	}
	if s.runtime != nil {
		s.runtime.Close()
	}
	return err
}
