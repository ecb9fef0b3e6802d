// Package app wires configuration, AWS clients and the order packages into
// the API and worker processes.
package app

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/imrishuroy/go-bakery-orderflow/internal/aws"
	"github.com/imrishuroy/go-bakery-orderflow/internal/catalog"
	"github.com/imrishuroy/go-bakery-orderflow/internal/checkout"
	"github.com/imrishuroy/go-bakery-orderflow/internal/config"
	"github.com/imrishuroy/go-bakery-orderflow/internal/handlers"
	"github.com/imrishuroy/go-bakery-orderflow/internal/idempotency"
	"github.com/imrishuroy/go-bakery-orderflow/internal/metrics"
	"github.com/imrishuroy/go-bakery-orderflow/internal/notify"
	"github.com/imrishuroy/go-bakery-orderflow/internal/orders"
	"github.com/imrishuroy/go-bakery-orderflow/internal/pricing"
	"github.com/imrishuroy/go-bakery-orderflow/internal/queue"
	"github.com/imrishuroy/go-bakery-orderflow/internal/validation"
	"github.com/imrishuroy/go-bakery-orderflow/internal/worker"
)

// NewOrderStore returns the orders table store with idempotent create enabled.
func NewOrderStore(cfg *config.Config, clients *aws.AWSClients) *orders.Store {
	return orders.NewStore(clients.DynamoDB, cfg.OrdersTable,
		orders.WithIdempotency(cfg.IdempotencyTable, cfg.IdempotencyTTL))
}

// NewProcessor builds the notification processor shared by the worker and
// the local API queue. SMS and email are enabled only when configured.
func NewProcessor(cfg *config.Config, clients *aws.AWSClients, store *orders.Store, logger *zap.Logger) *worker.Processor {
	messenger, mailer := notificationProviders(cfg, clients, logger)

	dispatcher := notify.NewDispatcher(cfg.Notify, notify.NewRenderer(cfg.Brand), messenger, mailer, logger,
		notify.WithObserver(func(ch notify.Channel, outcome notify.Outcome) {
			metrics.RecordNotification(string(ch), string(outcome))
		}))

	var publisher worker.MetricsPublisher
	if cfg.MetricsNamespace != "" {
		publisher = aws.NewMetricPublisher(clients.CloudWatch, cfg.MetricsNamespace)
	}
	return worker.NewProcessor(store, dispatcher, publisher, logger)
}

// notificationProviders returns nil for a provider that is switched off or
// has no AWS credentials, so its channels are skipped as unavailable.
func notificationProviders(cfg *config.Config, clients *aws.AWSClients, logger *zap.Logger) (notify.Messenger, notify.Mailer) {
	wantSMS, wantEmail := cfg.SMSEnabled, cfg.EmailFrom != ""
	if (wantSMS || wantEmail) && !clients.CredentialsAvailable {
		logger.Warn("aws credentials unavailable, notification providers disabled",
			zap.Bool("sms_enabled", wantSMS), zap.Bool("email_enabled", wantEmail))
		return nil, nil
	}

	var messenger notify.Messenger
	if wantSMS {
		messenger = notify.NewSNSMessenger(clients.SNS, cfg.SMSSenderID)
	}
	var mailer notify.Mailer
	if wantEmail {
		mailer = notify.NewSESMailer(clients.SES, cfg.EmailFrom, cfg.SESConfigSet)
	}
	if messenger == nil && mailer == nil {
		logger.Warn("no notification providers configured, all channels will be skipped")
	}
	return messenger, mailer
}

// NewCatalog returns the product catalog, cached in redis when REDIS_ADDR is
// set. It returns nil when no products table is configured.
func NewCatalog(cfg *config.Config, clients *aws.AWSClients, logger *zap.Logger) catalog.Reader {
	if cfg.ProductsTable == "" {
		return nil
	}
	store := catalog.NewStore(clients.DynamoDB, cfg.ProductsTable)
	if cfg.RedisAddr == "" {
		return store
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return catalog.NewCachedReader(store, rdb, cfg.CatalogTTL, logger)
}

// API holds what the HTTP process needs at runtime.
type API struct {
	Router *gin.Engine
	// Local is set when jobs run in process instead of on SQS.
	Local *queue.LocalQueue
}

// NewAPI wires the checkout service and HTTP routes.
func NewAPI(cfg *config.Config, clients *aws.AWSClients, logger *zap.Logger) (*API, error) {
	store := NewOrderStore(cfg, clients)
	processor := NewProcessor(cfg, clients, store, logger)

	var (
		enqueuer queue.Enqueuer
		local    *queue.LocalQueue
	)
	if cfg.RunLocal {
		local = queue.NewLocalQueue(processor, logger, queue.WithDelay(cfg.QueueDelay))
		enqueuer = local
	} else {
		if cfg.QueueURL == "" {
			return nil, fmt.Errorf("ORDERS_QUEUE_URL is required outside local mode")
		}
		delay := int32(cfg.QueueDelay.Seconds())
		enqueuer = queue.NewSQSQueue(aws.NewPublisher(clients.SQS, cfg.QueueURL), delay)
	}

	calc, err := pricing.NewCalculator(cfg.Pricing)
	if err != nil {
		return nil, err
	}

	products := NewCatalog(cfg, clients, logger)
	deps := checkout.Deps{
		Orders:     store,
		Queue:      enqueuer,
		Notifier:   processor,
		Calculator: calc,
		Validator:  validation.New(),
		Logger:     logger,
	}
	if cfg.IdempotencyTable != "" {
		deps.Idempotency = idempotency.NewStore(clients.DynamoDB, cfg.IdempotencyTable)
	}
	if products != nil {
		deps.Catalog = products
	}
	svc, err := checkout.NewService(deps)
	if err != nil {
		return nil, fmt.Errorf("checkout service: %w", err)
	}

	var limiter *rate.Limiter
	if cfg.OrderRateLimit > 0 {
		burst := int(cfg.OrderRateLimit * 2)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.OrderRateLimit), burst)
	}

	router := NewRouter(handlers.HandlerConfig{
		Service:      svc,
		Logger:       logger,
		OrderLimiter: limiter,
	}, products, logger)

	logger.Info("api wired",
		zap.Bool("run_local", cfg.RunLocal),
		zap.Bool("catalog", products != nil),
		zap.Bool("redis_cache", cfg.RedisAddr != "" && products != nil),
		zap.Bool("idempotency", deps.Idempotency != nil))
	return &API{Router: router, Local: local}, nil
}

// NewRouter builds the gin engine with health, metrics and the storefront
// routes. Product routes are registered only when products is non-nil.
func NewRouter(cfg handlers.HandlerConfig, products catalog.Reader, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), handlers.RequestLogger(logger), metrics.GinMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", metrics.Handler())

	handlers.RegisterOrdersRoutes(r, cfg)
	if products != nil {
		handlers.RegisterProductRoutes(r, products, logger)
	}
	return r
}
