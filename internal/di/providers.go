package di

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"TradeForge/internal/domain/repository"
	internalrepo "TradeForge/internal/repository"
	"TradeForge/internal/service/binance"
	"TradeForge/internal/service/weightstore"
	"TradeForge/internal/services/env"
	"TradeForge/internal/services/policy"
	"TradeForge/internal/services/risk"
	"TradeForge/internal/services/structural"
	"TradeForge/internal/services/validation"
	"TradeForge/internal/usecase"
	"TradeForge/pkg/cache"
	pkgch "TradeForge/pkg/clickhouse"
	"TradeForge/pkg/config"
	pkgkafka "TradeForge/pkg/kafka"
	"TradeForge/pkg/logger"
	"TradeForge/pkg/metrics"
	"TradeForge/pkg/queue"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&cfg.Logger)
}

// ProvideMetrics creates the metrics recorder, or a no-op when the
// Prometheus endpoint is disabled.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Noop{}
	}
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client. Returns nil when
// ClickHouse is disabled; callers fall back to the log-only store.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
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
	return client, nil
}

// ProvideReportStore creates the validation-report store and ensures
// its schema exists.
func ProvideReportStore(chClient *pkgch.Client, l *logger.Logger) (repository.ReportStore, error) {
	if chClient == nil {
		return internalrepo.NewLogReportStore(l), nil
	}

	store := internalrepo.NewCHReportStore(chClient, l)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("report schema: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
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

// ProvideEventPublisher creates the lifecycle event publisher.
func ProvideEventPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.EventPublisher {
	if producer == nil {
		return internalrepo.NopEventPublisher{}
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.Topic)
}

// ProvideRedisClient creates a Redis client, or nil when disabled.
func ProvideRedisClient(cfg *config.Config) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// ProvideQueue creates the Redis-backed job queue. Worker mode fails at
// startup when Redis is disabled.
func ProvideQueue(cfg *config.Config, client *redis.Client, l *logger.Logger) *queue.RedisQueue {
	if client == nil {
		return nil
	}
	return queue.NewRedisQueue(l, &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.MaxRetries,
		RetryDelay: cfg.Queue.RetryDelay,
	}, client, queue.ModeProducerConsumer)
}

// ProvideCache creates the bar-history cache: in-process only, layered
// over Redis when available.
func ProvideCache(client *redis.Client) cache.Service {
	local := cache.NewMemoryCache(0)
	if client == nil {
		return local
	}
	return cache.NewLayeredCache(local, cache.NewRedisCache(client, "tradeforge:cache"))
}

// ProvideBarProvider creates the exchange history client behind the
// cache layer.
func ProvideBarProvider(cfg *config.Config, c cache.Service, l *logger.Logger) repository.BarProvider {
	source := binance.NewClient(cfg.Binance.APIKey, cfg.Binance.SecretKey, l)
	return internalrepo.NewCachedBarProvider(source, c, l)
}

// ProvideWeightStore creates the model-weight store client.
func ProvideWeightStore(cfg *config.Config, l *logger.Logger) repository.WeightStore {
	return weightstore.NewClient(cfg.WeightStore.BaseURL, cfg.WeightStore.Timeout, l)
}

// ProvideOrchestrator creates the batch backtest use case.
func ProvideOrchestrator(
	cfg *config.Config,
	bars repository.BarProvider,
	weights repository.WeightStore,
	m repository.Metrics,
	l *logger.Logger,
) *usecase.Orchestrator {
	return usecase.NewOrchestrator(
		usecase.BacktestConfig{
			UserID:           cfg.WeightStore.UserID,
			Interval:         repository.Timeframe(cfg.Binance.Interval),
			HistoryDays:      cfg.Binance.HistoryDays,
			InitialBalance:   cfg.Backtest.InitialBalance,
			MaxDailyLoss:     cfg.Backtest.MaxDailyLoss,
			MaxDrawdown:      cfg.Backtest.MaxDrawdown,
			MinTradeInterval: cfg.Backtest.MinTradeInterval,
			SampleEvery:      cfg.Backtest.SampleEvery,
			Profile:          risk.Profile(cfg.Backtest.RiskProfile),
		},
		bars,
		weights,
		structural.NewZigZagSource(),
		m,
		l,
	)
}

// ProvideTrainingHandler creates the queued training job handler.
func ProvideTrainingHandler(
	cfg *config.Config,
	bars repository.BarProvider,
	weights repository.WeightStore,
	reports repository.ReportStore,
	jobs repository.JobStore,
	events repository.EventPublisher,
	m repository.Metrics,
	l *logger.Logger,
) *usecase.TrainingHandler {
	interval := repository.Timeframe(cfg.Binance.Interval)
	def := validation.DefaultConfig()
	vcfg := validation.Config{
		TrainMonths:      cfg.Validation.TrainMonths,
		TestMonths:       cfg.Validation.TestMonths,
		BarsPerMonth:     cfg.Validation.BarsPerMonth,
		MinTradeCount:    cfg.Validation.MinTradeCount,
		MinWinRate:       cfg.Validation.MinWinRate,
		MinSharpe:        cfg.Validation.MinSharpe,
		MaxDrawdown:      cfg.Validation.MaxDrawdown,
		MinPassRate:      def.MinPassRate,
		MaxWinRateStdDev: def.MaxWinRateStdDev,
		CatastrophicDD:   def.CatastrophicDD,
		OverfittingGap:   def.OverfittingGap,
		TrainEpisodes:    cfg.Validation.TrainEpisodes,
		Profile:          risk.Profile(cfg.Backtest.RiskProfile),
	}
	if vcfg.BarsPerMonth <= 0 {
		vcfg.BarsPerMonth = repository.BarsPerMonth(interval)
	}

	return usecase.NewTrainingHandler(
		usecase.TrainingConfig{
			UserID:      cfg.WeightStore.UserID,
			Interval:    interval,
			HistoryDays: cfg.Binance.HistoryDays,
			MaxAttempts: cfg.Queue.MaxRetries,
			Env: env.Config{
				InitialBalance:   cfg.Backtest.InitialBalance,
				MaxDailyLoss:     cfg.Backtest.MaxDailyLoss,
				MaxDrawdown:      cfg.Backtest.MaxDrawdown,
				MinTradeInterval: cfg.Backtest.MinTradeInterval,
			},
			Train: policy.TrainConfig{
				Episodes:       cfg.Training.Episodes,
				LearningRate:   cfg.Training.LearningRate,
				Gamma:          cfg.Training.Gamma,
				SequenceLength: cfg.Training.SequenceLength,
				Seed:           cfg.Training.Seed,
			},
			Validate: vcfg,
		},
		bars, weights, reports, jobs, events, m, l,
	)
}
