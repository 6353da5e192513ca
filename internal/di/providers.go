package di

import (
	"context"
	"fmt"
	"time"

	"CoinSight/internal/domain/repository"
	domsvc "CoinSight/internal/domain/service"
	"CoinSight/internal/handler/api"
	mid "CoinSight/internal/middleware"
	internalrepo "CoinSight/internal/repository"
	"CoinSight/internal/service/exchange"
	"CoinSight/internal/service/sentiment"
	"CoinSight/internal/usecase"
	pkgcache "CoinSight/pkg/cache"
	pkgch "CoinSight/pkg/clickhouse"
	"CoinSight/pkg/config"
	xhttp "CoinSight/pkg/http"
	pkgkafka "CoinSight/pkg/kafka"
	applogger "CoinSight/pkg/logger"
	"CoinSight/pkg/metrics"
	pkgqueue "CoinSight/pkg/queue"
	"CoinSight/pkg/server"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	if cfg.Environment == "development" {
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideClickHouseClient creates a ClickHouse client and applies the schema.
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.Schema()); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideCache builds the response cache: layered memory over Redis when
// Redis is enabled, plain in-process memory otherwise.
func ProvideCache(cfg *config.Config) (pkgcache.Service, error) {
	if !cfg.Redis.Enabled {
		return pkgcache.NewMemoryCache(), nil
	}
	redisCache, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisAddr(cfg.Redis.Addr),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return pkgcache.NewLayeredCache(redisCache), nil
}

// ProvideKafkaProducer creates a Kafka producer. Unused when the backend
// writes to ClickHouse directly.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
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

// ProvideKafkaConsumer creates a Kafka consumer, or nil when ingestion
// writes to ClickHouse directly.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if cfg.Backend.Type != "kafka" {
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
	consumer.WithConsumerHook(pkgkafka.NewHookChain(
		pkgkafka.HookFuncs{
			Before: func(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
				ctx = pkgkafka.WithStartTime(ctx, time.Now())
				ctx = pkgkafka.WithTraceID(ctx, pkgkafka.ExtractTraceID(km))
				return ctx, km, data, nil
			},
		},
		pkgkafka.HookFuncs{
			Err: func(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
				l.Warn("kafka message handling failed",
					applogger.String("topic", topic),
					applogger.Int("partition", km.Partition),
					applogger.Error(err),
				)
			},
		},
	))
	return consumer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideMarketStore creates the ClickHouse bar store.
func ProvideMarketStore(chClient *pkgch.Client, l *applogger.Logger) repository.MarketHistoryStore {
	store := internalrepo.NewCHMarketStore(chClient)
	store.SetLogger(l)
	return store
}

// ProvideForecastStore creates the ClickHouse forecast store.
func ProvideForecastStore(chClient *pkgch.Client, l *applogger.Logger) repository.ForecastStore {
	store := internalrepo.NewCHForecastStore(chClient)
	store.SetLogger(l)
	return store
}

// ProvideBarPublisher creates the Kafka bar publisher.
func ProvideBarPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.BarPublisher {
	return internalrepo.NewKafkaBarPublisher(producer, cfg.Kafka.Topic)
}

// ProvideKafkaBarsHandler registers the handler for the bars topic.
func ProvideKafkaBarsHandler(store repository.MarketHistoryStore, m repository.Metrics, cfg *config.Config) *usecase.KafkaBarsHandler {
	return usecase.NewKafkaBarsHandler(cfg.Kafka.Topic, store, m)
}

// ProvideMarketStream creates the exchange WebSocket stream.
func ProvideMarketStream(cfg *config.Config, l *applogger.Logger) repository.MarketStream {
	stream := exchange.NewStream(
		cfg.Exchange.WebSocketURL,
		cfg.Markets.Symbols,
		cfg.Exchange.ReconnectDelay,
		cfg.Exchange.PingInterval,
	)
	if s, ok := stream.(*exchange.Stream); ok {
		s.SetLogger(l)
	}
	return stream
}

// ProvideHistoryProvider creates the exchange REST backfill client.
func ProvideHistoryProvider(cfg *config.Config) domsvc.HistoryProvider {
	return exchange.NewHistoryClient(cfg.Exchange.RestURL, 30*time.Second)
}

// ProvideSentimentProvider creates the sentiment score client.
func ProvideSentimentProvider(cfg *config.Config) domsvc.SentimentProvider {
	return sentiment.New(cfg.Sentiment.BaseURL, cfg.Sentiment.Timeout)
}

// ProvideBarProcessor creates the bar routing processor.
func ProvideBarProcessor(
	pub repository.BarPublisher,
	store repository.MarketHistoryStore,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.BarProcessor {
	return usecase.NewBarProcessor(pub, store, m, cfg.Backend.Type)
}

// ProvideTickCollector creates the stream-to-bars ingestion chain.
func ProvideTickCollector(
	stream repository.MarketStream,
	processor *usecase.BarProcessor,
	m repository.Metrics,
) *usecase.TickCollector {
	agg := usecase.NewBarAggregator(processor, m, time.Minute)
	pipe := mid.NewRealtimePipeline(agg, m,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewTickCollector(stream, agg, m, pipe)
}

// ProvidePredictionsUseCase creates the forecast service.
func ProvidePredictionsUseCase(
	bars repository.MarketHistoryStore,
	forecasts repository.ForecastStore,
	cache pkgcache.Service,
	sent domsvc.SentimentProvider,
	hist domsvc.HistoryProvider,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.PredictionsUseCase {
	uc := usecase.NewPredictionsUseCase(
		bars,
		forecasts,
		cache,
		sent,
		hist,
		m,
		cfg.Forecast,
		cfg.Markets.ReferenceSymbol,
		cfg.Markets.LookbackDays,
	)
	uc.SetLogger(l)
	return uc
}

// ProvideMarketUseCase creates the market history service.
func ProvideMarketUseCase(bars repository.MarketHistoryStore) *usecase.MarketUseCase {
	return usecase.NewMarketUseCase(bars)
}

// ProvideRouter assembles the HTTP API.
func ProvideRouter(
	cfg *config.Config,
	l *applogger.Logger,
	predictions *usecase.PredictionsUseCase,
	market *usecase.MarketUseCase,
	bars repository.MarketHistoryStore,
	collector *usecase.TickCollector,
) xhttp.Handler {
	return api.NewRouter(
		api.NewPredictionsHandler(l, predictions, cfg.API.RateLimitRPS, cfg.API.RateLimitBurst),
		api.NewMarketHandler(l, market),
		api.NewHealthHandler(l, bars, collector),
	)
}

// ProvideRefreshQueue creates the Redis-backed regeneration queue, or nil
// when Redis is disabled.
func ProvideRefreshQueue(cfg *config.Config, l *applogger.Logger, uc *usecase.PredictionsUseCase) *pkgqueue.RedisQueue {
	if !cfg.Redis.Enabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	q := pkgqueue.NewRedisQueue(l, &pkgqueue.QueueConfig{
		Workers:    2,
		RetryLimit: 3,
		RetryDelay: 30 * time.Second,
	}, client, pkgqueue.ModeProducerConsumer)
	q.RegisterJob(usecase.NewRefreshJob(uc, l))
	return q
}

// ProvideRefreshScheduler schedules regeneration ahead of the staleness
// window so read paths rarely pay for model fitting.
func ProvideRefreshScheduler(q *pkgqueue.RedisQueue, cfg *config.Config, l *applogger.Logger) *usecase.RefreshScheduler {
	if q == nil {
		return nil
	}
	return usecase.NewRefreshScheduler(q, cfg.Markets.Symbols, cfg.Forecast.StalenessWindow*2/3, l)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.TickCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaBarsHandler,
	chClient *pkgch.Client,
	handler xhttp.Handler,
	processor *usecase.BarProcessor,
	refreshQueue *pkgqueue.RedisQueue,
	scheduler *usecase.RefreshScheduler,
) *server.App {
	app := server.New(cfg, l, collector, consumer, kh, chClient, handler)
	app.SetProcessorCloser(processor)
	if refreshQueue != nil {
		app.SetRefreshWorker(refreshQueue, scheduler)
	}
	return app
}
