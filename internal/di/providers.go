package di

import (
	"fmt"
	"strconv"
	"strings"

	drepo "NetRisk/internal/domain/repository"
	dsvc "NetRisk/internal/domain/service"
	"NetRisk/internal/handler/api"
	internalrepo "NetRisk/internal/repository"
	"NetRisk/internal/service/marketdata"
	svcmetrics "NetRisk/internal/service/metrics"
	"NetRisk/internal/service/ratelimit"
	"NetRisk/internal/usecase"
	"NetRisk/pkg/cache"
	pkgch "NetRisk/pkg/clickhouse"
	"NetRisk/pkg/config"
	pkgkafka "NetRisk/pkg/kafka"
	applogger "NetRisk/pkg/logger"
	"NetRisk/pkg/metrics"
	"NetRisk/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := "info"
	format := "json"
	if cfg.Environment == "development" {
		level = "debug"
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: level, Format: format, Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() drepo.Metrics {
	svcmetrics.Register()
	return metrics.New()
}

// ProvideCache creates the cache backend: Redis when configured, an
// in-process cache otherwise.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}
	host, port := splitAddr(cfg.Redis.Addr)
	c, err := cache.NewRedisCache(
		cache.WithRedisHost(host),
		cache.WithRedisPort(port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	// L1 memory over L2 Redis: the input window and alert rules are read on
	// every tick, Redis only needs to absorb restarts
	return cache.NewLayeredCache(c), nil
}

func splitAddr(addr string) (string, int) {
	host, portStr, ok := strings.Cut(addr, ":")
	if !ok {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 6379
	}
	return host, port
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when the
// archive is disabled.
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

// ProvideSnapshotArchive creates the run-history archive when ClickHouse is
// available.
func ProvideSnapshotArchive(chClient *pkgch.Client) drepo.SnapshotArchive {
	if chClient == nil {
		return nil
	}
	return internalrepo.NewSnapshotArchive(chClient)
}

// ProvideBacktestArchive exposes the same archive for accuracy evaluation.
func ProvideBacktestArchive(chClient *pkgch.Client) drepo.BacktestArchive {
	if chClient == nil {
		return nil
	}
	return internalrepo.NewSnapshotArchive(chClient)
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

// ProvideAlertPublisher ships triggered alerts to Kafka when a producer is
// configured.
func ProvideAlertPublisher(producer *pkgkafka.Producer, cfg *config.Config) drepo.AlertPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewAlertPublisher(producer, cfg.Kafka.AlertsTopic)
}

// ProvideAlertStore persists alert rules in the cache backend.
func ProvideAlertStore(cacheSvc cache.Service) drepo.AlertStore {
	return internalrepo.NewAlertStore(cacheSvc)
}

// ProvideScoreSource creates the upstream score-service client.
func ProvideScoreSource(cfg *config.Config, cacheSvc cache.Service, logger *applogger.Logger) dsvc.ScoreSource {
	return marketdata.NewClient(marketdata.Config{
		BaseURL:  cfg.ScoreService.BaseURL,
		APIKey:   cfg.ScoreService.APIKey,
		Timeout:  cfg.ScoreService.Timeout,
		CacheTTL: cfg.ScoreService.CacheTTL,
	}, cacheSvc, logger)
}

// ProvideResultStore creates the published-result holder.
func ProvideResultStore() *usecase.ResultStore {
	return usecase.NewResultStore()
}

// ProvideEngineParams maps config onto the engine knobs.
func ProvideEngineParams(cfg *config.Config) usecase.EngineParams {
	return usecase.EngineParams{
		Horizons:           cfg.Engine.Horizons,
		NettingMaxCycles:   cfg.Engine.NettingMaxCycles,
		CentralityTol:      cfg.Engine.CentralityTolerance,
		CentralityMaxIters: cfg.Engine.CentralityMaxIterations,
		SeedHubThreshold:   cfg.Engine.SeedHubThreshold,
		StabilityThreshold: cfg.Engine.StabilityThreshold,
		ContagionMaxPasses: cfg.Engine.ContagionMaxPasses,
		HighRiskThreshold:  cfg.Engine.HighRiskThreshold,
	}
}

// ProvideOrchestrator creates the per-tick compute pipeline.
func ProvideOrchestrator(
	source dsvc.ScoreSource,
	store *usecase.ResultStore,
	archive drepo.SnapshotArchive,
	m drepo.Metrics,
	logger *applogger.Logger,
	params usecase.EngineParams,
) *usecase.Orchestrator {
	return usecase.NewOrchestrator(source, store, archive, m, logger, params)
}

// ProvideAlertManager creates the alert rule engine.
func ProvideAlertManager(store drepo.AlertStore, publisher drepo.AlertPublisher, logger *applogger.Logger) *usecase.AlertManager {
	return usecase.NewAlertManager(store, publisher, logger)
}

// ProvideTicker creates the recompute heartbeat.
func ProvideTicker(
	orch *usecase.Orchestrator,
	source dsvc.ScoreSource,
	alerts *usecase.AlertManager,
	m drepo.Metrics,
	logger *applogger.Logger,
	cfg *config.Config,
) *usecase.Ticker {
	return usecase.NewTicker(orch, source, alerts, m, logger, usecase.TickerConfig{
		DataRefreshInterval:       cfg.Engine.DataRefreshInterval,
		ForecastRecomputeInterval: cfg.Engine.ForecastRecomputeInterval,
		MaxTickErrors:             cfg.Engine.MaxTickErrors,
		ErrorPause:                cfg.Engine.ErrorPause,
	})
}

// ProvideBacktester creates the forecast-accuracy evaluator.
func ProvideBacktester(archive drepo.BacktestArchive, m drepo.Metrics, logger *applogger.Logger) *usecase.Backtester {
	return usecase.NewBacktester(archive, m, logger)
}

// ProvideRateLimiter creates the per-client token bucket limiter.
func ProvideRateLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

// ProvideConfigView exposes the effective engine configuration to /api/config.
func ProvideConfigView(cfg *config.Config, params usecase.EngineParams, ticker *usecase.Ticker) api.ConfigView {
	status := ticker.Status()
	return api.ConfigView{
		Horizons:                  params.Horizons,
		DataRefreshIntervalSec:    status.DataRefreshIntervalSec,
		ForecastRecomputeInterval: status.ForecastRecomputeInterval,
		MaxTickErrors:             cfg.Engine.MaxTickErrors,
		CentralityTolerance:       params.CentralityTol,
		CentralityMaxIterations:   params.CentralityMaxIters,
		SeedHubThreshold:          params.SeedHubThreshold,
		StabilityThreshold:        params.StabilityThreshold,
		HighRiskThreshold:         params.HighRiskThreshold,
	}
}

// ProvideApp assembles the application server with all HTTP handler groups.
func ProvideApp(
	cfg *config.Config,
	logger *applogger.Logger,
	ticker *usecase.Ticker,
	alerts *usecase.AlertManager,
	source dsvc.ScoreSource,
	store *usecase.ResultStore,
	archive drepo.SnapshotArchive,
	publisher drepo.AlertPublisher,
	chClient *pkgch.Client,
	limiter *ratelimit.Limiter,
	backtester *usecase.Backtester,
	view api.ConfigView,
) *server.App {
	app := server.New(cfg, logger, ticker, alerts, archive, publisher, chClient)
	app.AddHTTPHandler(api.NewForecastEchoHandler(logger, ticker, store, source, archive, limiter, view))
	app.AddHTTPHandler(api.NewAlertsEchoHandler(logger, alerts, store, limiter))
	app.AddHTTPHandler(api.NewBacktestEchoHandler(logger, backtester))
	app.AddHTTPHandler(api.NewStreamHandler(logger, store, ticker))
	return app
}
