// Package app wires the application together.
package app

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/capecontrol/server/cmd/server/docs" // swagger docs
	"github.com/capecontrol/server/internal/module/ai"
	"github.com/capecontrol/server/internal/module/billing"
	"github.com/capecontrol/server/internal/module/billing/export"
	"github.com/capecontrol/server/internal/module/billing/quota"
	"github.com/capecontrol/server/internal/module/ledger"
	"github.com/capecontrol/server/internal/module/payment"
	paymentprovider "github.com/capecontrol/server/internal/module/payment/provider"
	"github.com/capecontrol/server/internal/module/user"
	"github.com/capecontrol/server/internal/shared/cache"
	"github.com/capecontrol/server/internal/shared/config"
	"github.com/capecontrol/server/internal/shared/database"
	"github.com/capecontrol/server/internal/shared/logger"
	"github.com/capecontrol/server/internal/utils/metrics"
	"github.com/capecontrol/server/internal/utils/middleware"
)

// App represents the application.
type App struct {
	config  *config.Config
	db      *gorm.DB
	redis   *redis.Client
	router  *gin.Engine
	logger  *zap.Logger
	metrics *metrics.Metrics

	// Modules
	userService    *user.Service
	userHandler    *user.Handler
	aiHandler      *ai.Handler
	billingHandler *billing.Handler
	paymentHandler *payment.Handler
	webhookHandler *payment.WebhookHandler

	jwtManager *user.JWTManager
	rates      *billing.RateSource
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	app := &App{
		config:  cfg,
		logger:  log,
		metrics: metrics.New("capecontrol"),
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	app.db = db

	if err := migrate(db); err != nil {
		return nil, err
	}

	// Redis is optional; without it the free-tier quota gate degrades to
	// allow-all and usage is still metered.
	if cfg.Redis.Address != "" {
		redisClient, err := cache.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Warn("redis connection failed, quota counting disabled", zap.Error(err))
		} else {
			app.redis = redisClient
		}
	}

	if err := app.initModules(); err != nil {
		return nil, fmt.Errorf("init modules: %w", err)
	}

	app.router = app.setupRouter()

	// Rate changes in the config file take effect without a restart.
	config.Watch(func(fresh *config.Config) {
		app.rates.Set(fresh.Billing.UnitRevenueCents)
		log.Info("billing rate reloaded",
			zap.Int64("unit_revenue_cents", fresh.Billing.UnitRevenueCents))
	})

	return app, nil
}

// Router returns the HTTP router.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Stop releases application resources.
func (a *App) Stop() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if err := database.Close(a.db); err != nil {
		a.logger.Warn("failed to close database", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func migrate(db *gorm.DB) error {
	if err := ledger.Migrate(db); err != nil {
		return err
	}
	if err := user.Migrate(db); err != nil {
		return err
	}
	return payment.Migrate(db)
}

// initModules initializes all application modules.
func (a *App) initModules() error {
	store := ledger.NewGormStore(a.db)

	// User module
	userRepo := user.NewRepository(a.db)
	a.jwtManager = user.NewJWTManager(&user.JWTConfig{
		Secret:            a.config.Auth.JWTSecret,
		AccessTokenExpiry: a.config.Auth.AccessTokenExpiry,
		Issuer:            a.config.Auth.Issuer,
	})
	a.userService = user.NewService(userRepo, a.jwtManager, a.logger)
	a.userHandler = user.NewHandler(a.userService, a.logger)

	// Billing module
	a.rates = billing.NewRateSource(a.config.Billing.UnitRevenueCents)
	recorder := billing.NewRecorder(store, a.rates, a.metrics, a.logger)
	settler := billing.NewSettler(store)

	var exporter billing.ReportExporter
	if a.config.Export.Enabled() {
		e, err := export.NewExporter(&a.config.Export, a.logger)
		if err != nil {
			return fmt.Errorf("init settlement exporter: %w", err)
		}
		exporter = e
	}
	a.billingHandler = billing.NewHandler(settler, recorder, exporter, a.logger)

	var counter quota.Counter
	if a.redis != nil {
		counter = quota.NewRedisCounter(a.redis)
	}
	gate := quota.NewGate(store, counter, a.config.Billing.FreeDailyQueryQuota, a.metrics, a.logger)

	// AI module
	queryProvider, err := ai.NewProvider(&a.config.AI)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	aiService := ai.NewService(queryProvider, gate, recorder, a.logger)
	a.aiHandler = ai.NewHandler(aiService, a.logger)

	// Payment module
	stripeProvider := paymentprovider.NewStripeProvider(&paymentprovider.StripeConfig{
		APIKey:            a.config.Stripe.SecretKey,
		WebhookSecret:     a.config.Stripe.WebhookSecret,
		PremiumPriceCents: a.config.Stripe.PremiumPriceCents,
	})
	paymentRepo := payment.NewRepository(a.db)
	paymentService := payment.NewService(store, a.userService, paymentRepo, stripeProvider, a.metrics, a.logger)
	a.paymentHandler = payment.NewHandler(paymentService, a.logger)
	a.webhookHandler = payment.NewWebhookHandler(paymentService, a.logger)

	return nil
}

// setupRouter creates and configures the Gin router.
func (a *App) setupRouter() *gin.Engine {
	if a.config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(a.logger))
	r.Use(middleware.Recovery(a.logger))
	r.Use(middleware.Metrics(a.metrics))

	corsConfig := middleware.DefaultCORSConfig()
	if a.config.Server.FrontendURL != "" {
		corsConfig.AllowOrigins = []string{a.config.Server.FrontendURL}
	}
	r.Use(middleware.CORS(corsConfig))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	// Webhooks authenticate via provider signature, not bearer tokens.
	a.webhookHandler.RegisterRoutes(r)

	api := r.Group("/api")
	a.userHandler.RegisterRoutes(api)

	authed := api.Group("")
	authed.Use(middleware.RequireAuth(a.jwtManager))
	a.aiHandler.RegisterRoutes(authed)
	a.billingHandler.RegisterRoutes(authed)
	a.paymentHandler.RegisterRoutes(authed)

	return r
}
