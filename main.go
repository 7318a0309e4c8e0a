package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/antonioqueb/ooak/apperr"
	"github.com/antonioqueb/ooak/cache"
	"github.com/antonioqueb/ooak/cart"
	"github.com/antonioqueb/ooak/clients"
	"github.com/antonioqueb/ooak/config"
	"github.com/antonioqueb/ooak/content"
	"github.com/antonioqueb/ooak/controllers"
	"github.com/antonioqueb/ooak/database"
	"github.com/antonioqueb/ooak/kafka"
	"github.com/antonioqueb/ooak/logger"
	"github.com/antonioqueb/ooak/middleware"
	aws_pkg "github.com/antonioqueb/ooak/pkg/aws"
	"github.com/antonioqueb/ooak/repository"
	"github.com/antonioqueb/ooak/routes"
	"github.com/antonioqueb/ooak/services"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Initialize(os.Getenv("APP_ENV")).Fatal("Failed to load config", zap.Error(err))
	}

	log := logger.Initialize(cfg.Env)
	defer log.Sync() //nolint:errcheck

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Event sinks and metrics are optional; the service runs without them.
	var (
		events      services.EventPublisher
		eventsTopic string
		metrics     aws_pkg.Recorder
	)
	if len(cfg.KafkaBrokers) > 0 {
		producer := kafka.NewProducer(cfg.KafkaBrokers, log)
		defer producer.Close() //nolint:errcheck
		events, eventsTopic = producer, cfg.OrderKafkaTopic
	}
	useSNS := events == nil && cfg.OrderSNSTopicARN != ""
	if useSNS || cfg.CloudWatchEnabled {
		awsCfg, awsErr := aws_pkg.LoadAWSConfig(context.Background())
		if awsErr != nil {
			log.Warn("AWS config unavailable, SNS and CloudWatch disabled", zap.Error(awsErr))
		} else {
			if useSNS {
				events, eventsTopic = aws_pkg.NewSNSClient(awsCfg), cfg.OrderSNSTopicARN
			}
			if cfg.CloudWatchEnabled {
				metrics = aws_pkg.NewMetricsClient(awsCfg, "Storefront")
			}
		}
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClient(context.Background(), cfg.RedisURL)
		if err != nil {
			if cfg.SyncLedger == config.LedgerRedis {
				log.Fatal("Redis is required for the sync ledger", zap.Error(err))
			}
			log.Warn("Redis unavailable, content cache disabled", zap.Error(err))
		} else {
			log.Info("Connected to Redis")
			defer redisClient.Close() //nolint:errcheck
		}
	}

	ledger, closeLedger := buildLedger(cfg, redisClient, log)
	defer closeLedger()

	var contentCache cache.ContentCache = cache.NoopCache{}
	if redisClient != nil {
		contentCache = cache.NewRedisContentCache(redisClient, cfg.ContentCacheTTL, log)
	}

	carts := cart.NewRegistry(cfg.CartIdleTTL)
	defer carts.Close()

	// DI chain
	erp := clients.NewERPClient(cfg.ERPBaseURL, cfg.ERPAPIToken, cfg.ERPTimeout)
	stripeSvc := services.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.StripeTimeout)
	syncer := services.NewOrderSyncService(erp, cfg.ERPOrderPath, ledger, cfg.SyncClaimTTL, events, eventsTopic, metrics, log)

	assetBase := cfg.ERPPublicURL
	if assetBase == "" {
		assetBase = cfg.ERPBaseURL
	}
	checkoutSvc := services.NewCheckoutService(stripeSvc, syncer, carts, services.CheckoutOptions{
		Currency:          cfg.CheckoutCurrency,
		ShippingCountries: cfg.ShippingCountries,
		ReturnURL:         cfg.CheckoutReturnURL(),
		AssetBaseURL:      assetBase,
	}, metrics, log)
	webhookSvc := services.NewWebhookService(stripeSvc, syncer, carts, metrics, log)
	contentSvc := services.NewContentService(erp, contentCache, content.MustLoadFallback(), content.NewNormalizer(assetBase), metrics, log)

	limiter := middleware.NewRateLimiter(rate.Every(time.Minute/120), 60, 5*time.Minute)
	defer limiter.Close()

	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(log),
		middleware.Metrics(metrics, "storefront"),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.AllowedOrigins),
		middleware.Timeout(cfg.RequestTimeout),
		apperr.ErrorMiddleware(),
	)

	routes.RegisterRoutes(r, routes.Controllers{
		Cart:     controllers.NewCartController(carts),
		Checkout: controllers.NewCheckoutController(checkoutSvc, carts),
		Webhook:  controllers.NewWebhookController(webhookSvc, log),
		Content:  controllers.NewContentController(contentSvc, cfg.ERPAPIToken),
	}, limiter.Middleware())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	log.Info("Storefront service started",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
		zap.String("sync_ledger", cfg.SyncLedger),
	)
	<-quit
	log.Info("Shutting down storefront service...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}
	log.Info("Server exited cleanly")
}

// buildLedger picks the order-sync dedup backend named by SYNC_LEDGER.
func buildLedger(cfg *config.Config, redisClient *redis.Client, log *zap.Logger) (repository.SyncLedger, func()) {
	switch cfg.SyncLedger {
	case config.LedgerRedis:
		return repository.NewRedisLedger(redisClient, "order-sync:"), func() {}
	case config.LedgerPostgres:
		db, err := database.ConnectPostgres(cfg.PostgresDSN(), log, &repository.OrderSync{})
		if err != nil {
			log.Fatal("Failed to connect to database", zap.Error(err))
		}
		return repository.NewGormLedger(db), func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
	default:
		l := repository.NewMemoryLedger()
		return l, func() { _ = l.Close() }
	}
}
