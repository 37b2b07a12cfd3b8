package app

import (
	"context"
	"fmt"
	"net/http"

	_ "github.com/clusterhub/server/cmd/server/docs" // swagger docs
	"github.com/clusterhub/server/internal/infra/events"
	"github.com/clusterhub/server/internal/module/auth"
	"github.com/clusterhub/server/internal/module/comment"
	"github.com/clusterhub/server/internal/module/file"
	"github.com/clusterhub/server/internal/module/invitation"
	"github.com/clusterhub/server/internal/module/notification"
	"github.com/clusterhub/server/internal/module/project"
	"github.com/clusterhub/server/internal/module/stage"
	"github.com/clusterhub/server/internal/module/user"
	"github.com/clusterhub/server/internal/shared/authz"
	sharedcache "github.com/clusterhub/server/internal/shared/cache"
	"github.com/clusterhub/server/internal/shared/config"
	"github.com/clusterhub/server/internal/shared/database"
	"github.com/clusterhub/server/internal/shared/logger"
	"github.com/clusterhub/server/internal/utils/metrics"
	"github.com/clusterhub/server/internal/utils/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App represents the application.
type App struct {
	config    *config.Config
	db        *gorm.DB
	redis     redis.UniversalClient
	router    *gin.Engine
	logger    *logger.Logger
	zapLogger *zap.Logger
	metrics   *metrics.Metrics

	// Shared infrastructure
	eventBus   *events.Bus
	enforcer   *authz.Enforcer
	limiter    middleware.RateLimiter
	jwtManager *auth.JWTManager
	mailer     notification.Mailer

	// Services (for cross-module dependencies)
	userService       *user.Service
	projectService    *project.Service
	invitationService *invitation.Service
	stageService      *stage.Service
	sweeper           *invitation.Sweeper

	// Handlers
	authHandler       *auth.Handler
	userHandler       *user.Handler
	projectHandler    *project.Handler
	invitationHandler *invitation.Handler
	stageHandler      *stage.Handler
	commentHandler    *comment.Handler
	fileHandler       *file.Handler
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	log := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	zapLog, err := logger.NewZapLogger(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("init zap logger: %w", err)
	}

	app := &App{
		config:    cfg,
		logger:    log,
		zapLogger: zapLog,
	}
	if cfg.Metrics.Enabled {
		app.metrics = metrics.New(cfg.Metrics.Namespace)
	}

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(&cfg.Database); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	app.db = db

	// Redis is optional; limits fall back to a per-process limiter.
	if cfg.Redis.Address != "" {
		redisClient, err := sharedcache.NewRedisClient(&cfg.Redis)
		if err != nil {
			zapLog.Warn("redis unavailable, using in-memory rate limiting", zap.Error(err))
		} else {
			app.redis = redisClient
		}
	}
	if app.redis != nil {
		app.limiter = auth.NewRateLimiter(app.redis)
	} else {
		app.limiter = middleware.NewMemoryRateLimiter(0)
	}

	app.enforcer, err = authz.NewEnforcer()
	if err != nil {
		return nil, fmt.Errorf("init authz: %w", err)
	}

	app.router = app.setupRouter()

	if err := app.initModules(); err != nil {
		return nil, fmt.Errorf("init modules: %w", err)
	}
	app.registerRoutes()

	app.sweeper = invitation.NewSweeper(app.invitationService, cfg.Invitation.SweepInterval, zapLog)
	app.sweeper.Start()

	return app, nil
}

// setupRouter creates and configures the Gin router.
func (a *App) setupRouter() *gin.Engine {
	if a.config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(middleware.Recovery(a.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(a.logger))
	r.Use(middleware.Metrics(a.metrics))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(a.config.Server.CORSOrigins...)))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if a.metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	return r
}

// initModules initializes all application modules.
func (a *App) initModules() error {
	a.eventBus = events.NewBus(a.zapLogger)
	a.mailer = notification.NewFromConfig(&a.config.Email, a.metrics, a.zapLogger)

	if err := a.initUserModule(); err != nil {
		return fmt.Errorf("init user module: %w", err)
	}
	a.initAuthModule()
	a.initProjectModule()
	a.initInvitationModule()
	a.initStageModule()
	a.initCommentModule()

	if err := a.initFileModule(); err != nil {
		return fmt.Errorf("init file module: %w", err)
	}

	a.registerEventHandlers()
	return nil
}

// registerEventHandlers registers all domain event handlers.
func (a *App) registerEventHandlers() {
	// Project module drops memberships and owned projects of deleted users.
	a.eventBus.Register(project.NewEventHandler(a.projectService, a.zapLogger))
}

// initUserModule initializes the user directory and identity webhook.
func (a *App) initUserModule() error {
	a.userService = user.NewService(user.NewRepository(a.db), a.eventBus, a.zapLogger)

	var verifier *user.WebhookVerifier
	if a.config.Webhook.IdentitySecret != "" {
		v, err := user.NewWebhookVerifier(a.config.Webhook.IdentitySecret, a.config.Webhook.Tolerance)
		if err != nil {
			return fmt.Errorf("create webhook verifier: %w", err)
		}
		verifier = v
	} else {
		a.zapLogger.Warn("webhook.identity_secret not set, identity webhook disabled")
	}

	a.userHandler = user.NewHandler(a.userService, a.enforcer, verifier, a.zapLogger)
	return nil
}

// initAuthModule initializes local credentials and token issuance.
func (a *App) initAuthModule() {
	a.jwtManager = auth.NewJWTManager(&auth.JWTConfig{
		Secret:            a.config.Auth.JWTSecret,
		AccessTokenExpiry: a.config.Auth.AccessTokenExpiry,
		Issuer:            a.config.Auth.Issuer,
	})

	authService := auth.NewService(
		a.userService,
		a.jwtManager,
		a.mailer,
		auth.VerificationConfig{
			BaseURL: a.config.Auth.VerifyBaseURL,
			TTL:     a.config.Auth.VerificationTTL,
		},
		a.metrics,
		a.zapLogger,
	)
	a.authHandler = auth.NewHandler(authService, a.limiter, a.config.Auth.LoginRateLimit)
}

// initProjectModule initializes projects and project access control.
func (a *App) initProjectModule() {
	a.projectService = project.NewService(project.NewRepository(a.db), a.userService, a.zapLogger)
	a.projectHandler = project.NewHandler(a.projectService, a.enforcer)
}

// initInvitationModule initializes the invitation engine.
func (a *App) initInvitationModule() {
	a.invitationService = invitation.NewService(
		invitation.NewRepository(a.db),
		a.projectService,
		a.userService,
		a.mailer,
		a.eventBus,
		a.metrics,
		invitation.Config{
			ExpiryDays:    a.config.Invitation.ExpiryDays,
			AcceptBaseURL: a.config.Invitation.AcceptBaseURL,
		},
		a.zapLogger,
	)
	a.invitationHandler = invitation.NewHandler(a.invitationService, a.enforcer, a.limiter, a.config.Invitation.RateLimit)
}

// initStageModule initializes stages and tasks.
func (a *App) initStageModule() {
	a.stageService = stage.NewService(stage.NewRepository(a.db), a.projectService, a.zapLogger)
	a.stageHandler = stage.NewHandler(a.stageService, a.enforcer)
}

// initCommentModule initializes task comments.
func (a *App) initCommentModule() {
	commentService := comment.NewService(
		comment.NewRepository(a.db),
		a.stageService,
		a.projectService,
		a.userService,
		a.zapLogger,
	)
	a.commentHandler = comment.NewHandler(commentService, a.enforcer)
}

// initFileModule initializes project files. It is skipped without a bucket.
func (a *App) initFileModule() error {
	if a.config.Storage.Bucket == "" {
		a.zapLogger.Info("storage.bucket not set, file module disabled")
		return nil
	}

	store, err := file.NewS3Store(context.Background(), &a.config.Storage)
	if err != nil {
		return fmt.Errorf("create object store: %w", err)
	}

	fileService := file.NewService(
		file.NewRepository(a.db),
		store,
		a.projectService,
		a.userService,
		file.Config{
			MaxFileSize:   a.config.Storage.MaxFileSize,
			PresignExpiry: a.config.Storage.PresignExpiry,
		},
		a.zapLogger,
	)
	a.fileHandler = file.NewHandler(fileService, a.enforcer)
	return nil
}

// registerRoutes registers all module routes.
func (a *App) registerRoutes() {
	v1 := a.router.Group("/api/v1")

	// Public routes (no auth required)
	public := v1.Group("")
	a.authHandler.RegisterRoutes(public)
	a.invitationHandler.RegisterPublicRoutes(public)
	a.userHandler.RegisterWebhookRoutes(public)

	// Protected routes (auth required). Role and email come from the user
	// record, not the token. Idempotency-Key replay needs redis.
	protected := v1.Group("")
	protected.Use(middleware.RequireAuth(a.jwtManager))
	protected.Use(authz.RefreshCaller(a.userService))
	protected.Use(middleware.Idempotency(a.redis, 0))

	a.authHandler.RegisterProtectedRoutes(protected)
	a.userHandler.RegisterRoutes(protected)
	a.projectHandler.RegisterRoutes(protected)
	a.invitationHandler.RegisterRoutes(protected)
	a.stageHandler.RegisterRoutes(protected)
	a.commentHandler.RegisterRoutes(protected)
	if a.fileHandler != nil {
		a.fileHandler.RegisterRoutes(protected)
	}
}

// Router returns the HTTP router.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Stop stops the application and releases resources.
func (a *App) Stop() {
	if a.sweeper != nil {
		a.sweeper.Stop()
	}

	if a.redis != nil {
		_ = sharedcache.Close(a.redis)
	}

	if a.db != nil {
		_ = database.Close(a.db)
	}

	_ = a.zapLogger.Sync()
}
