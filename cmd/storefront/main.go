package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/TemirB/storefront-checkout/internal/application/service"
	"github.com/TemirB/storefront-checkout/internal/cache"
	"github.com/TemirB/storefront-checkout/internal/catalog"
	"github.com/TemirB/storefront-checkout/internal/config"
	"github.com/TemirB/storefront-checkout/internal/events"
	"github.com/TemirB/storefront-checkout/internal/httpapi"
	"github.com/TemirB/storefront-checkout/internal/observability"
	"github.com/TemirB/storefront-checkout/internal/payment"
	"github.com/TemirB/storefront-checkout/internal/pkg/breaker"
	"github.com/TemirB/storefront-checkout/internal/pkg/retry"
	"github.com/TemirB/storefront-checkout/internal/random"
	"github.com/TemirB/storefront-checkout/internal/store"
)

type orderPublisher interface {
	service.Publisher
	Close() error
}

func main() {
	cfg := config.Load()

	logger := newLogger(cfg.Env)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	products, err := loadCatalog(cfg.CatalogFile)
	if err != nil {
		logger.Fatal("catalog", zap.String("file", cfg.CatalogFile), zap.Error(err))
	}
	logger.Info("catalog loaded", zap.Int("products", products.Len()))

	rng := random.New(cfg.Seed)
	resolver := payment.NewResolver(config.Env())
	simulator := payment.NewSimulator(resolver, rng, payment.SystemClock{})

	orders := store.New()
	orderCache, err := cache.New(cfg.CacheCap)
	if err != nil {
		logger.Fatal("cache", zap.Error(err))
	}
	orderCache.Warm(orders)

	metrics := observability.NewInmem(cfg.MetricsWindow)
	tracer := observability.NewLogTracer(logger)

	publisher := newPublisher(ctx, cfg, logger)

	svc := service.NewService(service.Deps{
		Catalog:   products,
		Orders:    orders,
		Cache:     orderCache,
		Charger:   simulator,
		Providers: resolver,
		Publisher: publisher,
		Random:    rng,
		Logger:    logger,
		Metrics:   metrics,
		Tracer:    tracer,
	})

	server := httpapi.New(svc, logger, metrics, cfg.WebDir)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(gctx, cfg.HTTPAddr)
	})
	g.Go(func() error {
		<-gctx.Done()
		return publisher.Close()
	})

	if err := g.Wait(); err != nil {
		logger.Error("storefront stopped with error", zap.Error(err))
		return
	}
	logger.Info("storefront stopped", zap.Int("orders", orders.Len()))
}

func newLogger(env string) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if env == "" || env == "dev" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(path)
}

// newPublisher falls back to a no-op publisher when Kafka is not configured
// or the topic cannot be ensured; checkout never depends on it.
func newPublisher(ctx context.Context, cfg config.Config, logger *zap.Logger) orderPublisher {
	if !cfg.PublishEnabled() {
		logger.Info("order events disabled, KAFKA_BROKERS is empty")
		return events.NopPublisher{}
	}

	err := retry.Do(ctx, cfg.Retry, func() error {
		return events.EnsureTopic(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Partitions, logger)
	})
	if err != nil {
		logger.Warn("order events disabled, topic unavailable",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
			zap.Error(err),
		)
		return events.NopPublisher{}
	}

	writer := events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	return events.NewPublisher(writer, breaker.New(cfg.Breaker), cfg.Publish.Workers, cfg.Publish.Timeout, logger)
}
