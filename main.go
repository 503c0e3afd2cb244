package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/shopswift-api/common/logger"
	commonmw "github.com/yashrajoria/shopswift-api/common/middleware"
	"github.com/yashrajoria/shopswift-api/controllers"
	"github.com/yashrajoria/shopswift-api/database"
	"github.com/yashrajoria/shopswift-api/events"
	aws_pkg "github.com/yashrajoria/shopswift-api/pkg/aws"
	"github.com/yashrajoria/shopswift-api/repository"
	"github.com/yashrajoria/shopswift-api/services"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		logger.Initialize("development")
		logger.Log.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- AWS (only when something needs it) ---
	var awsCfg sdkaws.Config
	needAWS := cfg.CloudWatchMetrics || cfg.CloudWatchLogs || hasPublisher(cfg, "sns")
	if needAWS {
		awsCfg, err = aws_pkg.LoadAWSConfig(ctx, aws_pkg.Options{
			Region:          cfg.AWSRegion,
			Endpoint:        cfg.AWSEndpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretKey,
		})
		if err != nil {
			logger.Initialize(cfg.Env)
			logger.Log.Fatal("Failed to load AWS config", zap.Error(err))
		}
	}

	// --- Logging ---
	logger.Initialize(cfg.Env)
	if cfg.CloudWatchLogs {
		cwLogs, err := aws_pkg.NewCloudWatchLogsClient(ctx, awsCfg, cfg.LogGroup, cfg.ServiceName, true)
		if err != nil {
			logger.Log.Warn("CloudWatch Logs disabled", zap.Error(err))
		} else {
			logger.InitializeWithWriter(cfg.Env, cwLogs)
		}
	}
	defer logger.Sync()

	if err := run(ctx, cfg, awsCfg); err != nil {
		logger.Log.Fatal("Service stopped with error", zap.Error(err))
	}
	logger.Log.Info("Service stopped gracefully")
}

func run(ctx context.Context, cfg *Config, awsCfg sdkaws.Config) error {
	// --- Database ---
	mongoDB, err := database.ConnectWithConfig(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return err
	}
	defer func() {
		if err := mongoDB.Close(); err != nil {
			logger.Log.Error("Failed to close MongoDB", zap.Error(err))
		}
	}()
	if err := mongoDB.EnsureIndexes(ctx); err != nil {
		logger.Log.Warn("Failed to ensure indexes", zap.Error(err))
	}

	var transactor repository.Transactor = repository.NewSequentialTransactor()
	if cfg.MongoTransactions {
		transactor = repository.NewMongoTransactor(mongoDB.Client)
	}

	var users repository.UserRepo = repository.NewMongoUserRepository(mongoDB.DB)
	if cfg.UserStore == "postgres" {
		pg, err := database.ConnectPostgres(cfg.Postgres)
		if err != nil {
			return err
		}
		defer func() {
			if err := database.ClosePostgres(pg); err != nil {
				logger.Log.Error("Failed to close Postgres", zap.Error(err))
			}
		}()
		users = repository.NewGormUserRepository(pg)
	}

	var idempotency repository.IdempotencyRepo
	if cfg.RedisURL != "" {
		rdb, err := database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		idempotency = repository.NewRedisIdempotencyRepository(rdb, cfg.IdempotencyTTL)
	} else {
		logger.Log.Info("REDIS_URL not set, Idempotency-Key is ignored")
	}

	// --- Events and metrics ---
	publisher, err := buildPublisher(cfg, awsCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Log.Error("Failed to close event publishers", zap.Error(err))
		}
	}()

	var metrics services.Metrics
	var metricsClient *aws_pkg.MetricsClient
	if cfg.CloudWatchMetrics {
		metricsClient = aws_pkg.NewMetricsClient(awsCfg, "ShopSwift", true)
		metrics = metricsClient
	}

	// --- Services ---
	orderService := services.NewOrderService(services.OrderServiceDeps{
		Products:       repository.NewProductRepository(mongoDB.DB),
		Carts:          repository.NewCartRepository(mongoDB.DB),
		Orders:         repository.NewOrderRepository(mongoDB.DB),
		Users:          users,
		Idempotency:    idempotency,
		Transactor:     transactor,
		Publisher:      publisher,
		Metrics:        metrics,
		Logger:         logger.Log,
		PlaceTimeout:   cfg.PlaceOrderTimeout,
		PublishTimeout: cfg.PublishTimeout,
		ServiceName:    cfg.ServiceName,
	})
	cartService := services.NewCartService(repository.NewCartRepository(mongoDB.DB), repository.NewProductRepository(mongoDB.DB))

	// --- HTTP router ---
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	ipLimiter := commonmw.NewRateLimiter(cfg.IPRateLimitPerMin, cfg.IPRateLimitBurst, 15*time.Minute)
	userLimiter := commonmw.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst, 15*time.Minute)
	deps := routerDeps{
		Orders:      controllers.NewOrderController(orderService),
		Carts:       controllers.NewCartController(cartService),
		Health:      controllers.NewHealthController(mongoDB),
		IPLimiter:   ipLimiter,
		UserLimiter: userLimiter,
	}
	if metricsClient != nil {
		deps.Metrics = metricsClient
	}
	r := newRouter(cfg, deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Log.Info("ShopSwift API starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		ipLimiter.RunSweeper(gctx)
		return nil
	})
	g.Go(func() error {
		userLimiter.RunSweeper(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Log.Info("Shutting down ShopSwift API...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildPublisher fans out to every configured backend. With none configured
// the returned publisher drops events.
func buildPublisher(cfg *Config, awsCfg sdkaws.Config) (*events.MultiPublisher, error) {
	var pubs []events.Publisher
	for _, name := range cfg.EventPublishers {
		switch name {
		case "kafka":
			pubs = append(pubs, events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.OrderEventsTopic))
		case "sns":
			pubs = append(pubs, events.NewSNSPublisher(aws_pkg.NewSNSClient(awsCfg), cfg.SNSOrderTopicARN))
		case "rabbitmq":
			p, err := events.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
			if err != nil {
				_ = events.NewMultiPublisher(pubs...).Close()
				return nil, err
			}
			pubs = append(pubs, p)
		}
	}
	multi := events.NewMultiPublisher(pubs...)
	logger.Log.Info("Event publishers configured", zap.Strings("publishers", cfg.EventPublishers), zap.Int("count", multi.Len()))
	return multi, nil
}

func hasPublisher(cfg *Config, name string) bool {
	for _, p := range cfg.EventPublishers {
		if p == name {
			return true
		}
	}
	return false
}
