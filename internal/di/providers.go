package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"PricePulse/internal/domain/repository"
	"PricePulse/internal/domain/service"
	"PricePulse/internal/handler/api"
	mid "PricePulse/internal/middleware"
	internalrepo "PricePulse/internal/repository"
	"PricePulse/internal/service/competitor"
	"PricePulse/internal/usecase"
	pkgcache "PricePulse/pkg/cache"
	pkgch "PricePulse/pkg/clickhouse"
	"PricePulse/pkg/config"
	xhttp "PricePulse/pkg/http"
	pkgkafka "PricePulse/pkg/kafka"
	applogger "PricePulse/pkg/logger"
	"PricePulse/pkg/metrics"
	"PricePulse/pkg/queue"
	"PricePulse/pkg/server"

	kafkago "github.com/segmentio/kafka-go"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	if cfg.Environment == "development" {
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		"CREATE TABLE IF NOT EXISTS " + db + `.products (
            product_id String,
            base_price Float64,
            cost_price Float64,
            inventory Int32,
            current_price Float64,
            sales_last_30_days Int32,
            average_rating Float64,
            category String,
            updated_at DateTime DEFAULT now()
        ) ENGINE=ReplacingMergeTree(updated_at) ORDER BY product_id`,
		"CREATE TABLE IF NOT EXISTS " + db + `.sales_history (
            product_id String,
            date Date,
            units_sold Float64,
            price Float64
        ) ENGINE=MergeTree ORDER BY (product_id, date)`,
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideProductStore creates the ClickHouse product catalog store.
func ProvideProductStore(chClient *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.ProductStore {
	store := internalrepo.NewCHProductStore(chClient, cfg.ClickHouse.Database+".products")
	store.SetLogger(l)
	return store
}

// ProvideSalesStore creates the ClickHouse sales history store.
func ProvideSalesStore(chClient *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.SalesStore {
	store := internalrepo.NewCHSalesStore(chClient, cfg.ClickHouse.Database+".sales_history")
	store.SetLogger(l)
	return store
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is not
// configured.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.BatchTimeout),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideDecisionPublisher creates the Kafka decision publisher.
func ProvideDecisionPublisher(producer *pkgkafka.Producer, cfg *config.Config, l *applogger.Logger) repository.DecisionPublisher {
	if producer == nil || cfg.Kafka.DecisionsTopic == "" {
		return nil
	}
	pub := internalrepo.NewKafkaDecisionPublisher(producer, cfg.Kafka.DecisionsTopic)
	pub.SetLogger(l)
	return pub
}

// ProvideCache creates the layered cache backed by Redis, or nil when Redis
// is disabled.
func ProvideCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	host, port := splitAddr(cfg.Redis.Addr)
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPrefix("pricepulse"),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCompetitorSource creates the HTTP competitor price client.
func ProvideCompetitorSource(cfg *config.Config, rc *pkgcache.RedisCache, l *applogger.Logger) service.CompetitorPriceSource {
	client := competitor.New(cfg)
	client.SetLogger(l)
	if rc != nil {
		client.SetCache(pkgcache.NewLayeredCache(rc))
	} else {
		client.SetCache(pkgcache.NewMemoryCache())
	}
	return client
}

// ProvidePricingEngine creates the pricing engine use case.
func ProvidePricingEngine(
	products repository.ProductStore,
	sales repository.SalesStore,
	comp service.CompetitorPriceSource,
	publisher repository.DecisionPublisher,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.PricingEngine {
	engine := usecase.NewPricingEngine(products, sales, comp, publisher, m, usecase.EngineConfig{
		Workers:        cfg.Pricing.Workers,
		ProductTimeout: cfg.Pricing.ProductTimeout,
		CycleTimeout:   cfg.Pricing.CycleTimeout,
		GridPoints:     cfg.Pricing.GridPoints,
		Estimators:     cfg.Pricing.Estimators,
		Seed:           cfg.Pricing.Seed,
	})
	engine.SetLogger(l)
	return engine
}

// ProvideKafkaConsumer creates the sales consumer, or nil when Kafka sales
// ingestion is not configured.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.SalesTopic == "" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideIngestPipeline creates the validation/throttle/buffer stage between
// the sales consumer and storage.
func ProvideIngestPipeline(sales repository.SalesStore, m repository.Metrics) *mid.IngestPipeline {
	return mid.NewIngestPipeline(usecase.NewSalesStoreSink(sales), m,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
}

// ProvideSalesHandler registers the handler for the sales topic.
func ProvideSalesHandler(pipeline *mid.IngestPipeline, m repository.Metrics, cfg *config.Config) *usecase.KafkaSalesHandler {
	if cfg.Kafka.SalesTopic == "" {
		return nil
	}
	return usecase.NewKafkaSalesHandler(cfg.Kafka.SalesTopic, pipeline, m)
}

// ProvideJobQueue creates the Redis-backed job queue, or nil when Redis is
// disabled.
func ProvideJobQueue(rc *pkgcache.RedisCache, l *applogger.Logger) *queue.RedisQueue {
	if rc == nil {
		return nil
	}
	return queue.NewRedisQueue(l, &queue.QueueConfig{
		Workers:    1,
		RetryLimit: 3,
		RetryDelay: 30 * time.Second,
	}, rc.Client(), queue.ModeProducerConsumer, queue.WithKeyPrefix("pricepulse:queue"))
}

// ProvideRepriceJob creates the queue job that runs a full pricing cycle.
// With Redis available the job takes a cross-instance lock so two deployments
// never reprice the same catalog concurrently.
func ProvideRepriceJob(engine *usecase.PricingEngine, rc *pkgcache.RedisCache, l *applogger.Logger) *usecase.RepriceJob {
	job := usecase.NewRepriceJob(engine)
	job.SetLogger(l)
	if rc != nil {
		job.SetLocker(rc)
	}
	return job
}

// ProvideHTTPHandler creates the Echo API handler.
func ProvideHTTPHandler(
	l *applogger.Logger,
	engine *usecase.PricingEngine,
	products repository.ProductStore,
	jobQueue *queue.RedisQueue,
) *api.PricingEchoHandler {
	var jobs queue.QueueService
	if jobQueue != nil {
		jobs = jobQueue
	}
	return api.NewPricingEchoHandler(l, engine, products, jobs)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	engine *usecase.PricingEngine,
	handler *api.PricingEchoHandler,
	consumer *pkgkafka.Consumer,
	salesH *usecase.KafkaSalesHandler,
	pipeline *mid.IngestPipeline,
	jobQueue *queue.RedisQueue,
	repriceJob *usecase.RepriceJob,
	publisher repository.DecisionPublisher,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
) *server.App {
	// aggregate repeated error logs onto a kafka topic for offline triage
	if producer != nil && cfg.Kafka.LogsTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogsTopic,
			Publisher:      &logPublisher{producer: producer},
		})
	}
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NewHookChain(
			pkgkafka.NoopHook{},
			pkgkafka.HookFuncs{
				Err: func(_ context.Context, topic string, _ kafkago.Message, _ []byte, err error) {
					l.Warn("sales message failed",
						applogger.String("topic", topic),
						applogger.Error(err))
				},
			},
		))
	}
	var sh pkgkafka.MessageHandler
	if salesH != nil {
		sh = salesH
	}
	var h xhttp.Handler = handler
	return server.New(cfg, l, engine, h, consumer, sh, pipeline, jobQueue, repriceJob, publisher, chClient)
}

// logPublisher adapts the kafka producer to the log collector's sink.
type logPublisher struct {
	producer *pkgkafka.Producer
}

func (p *logPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}

func splitAddr(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 6379
	}
	return host, port
}
