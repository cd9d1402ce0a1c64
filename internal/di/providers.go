package di

import (
	"context"
	"fmt"
	"time"

	"SigPull/internal/domain/repository"
	domsvc "SigPull/internal/domain/service"
	"SigPull/internal/handler/api"
	mid "SigPull/internal/middleware"
	internalrepo "SigPull/internal/repository"
	"SigPull/internal/service/cache"
	"SigPull/internal/service/ratelimit"
	"SigPull/internal/services/indicators"
	"SigPull/internal/services/patterns"
	"SigPull/internal/services/screener"
	"SigPull/internal/usecase"
	pkgch "SigPull/pkg/clickhouse"
	"SigPull/pkg/config"
	pkgkafka "SigPull/pkg/kafka"
	applogger "SigPull/pkg/logger"
	"SigPull/pkg/metrics"
	"SigPull/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	lc := &applogger.Config{Level: "info", Format: "console", Output: "stdout"}
	if cfg.Environment == "production" {
		lc.Format = "json"
	}
	l, err := applogger.New(lc)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideLimiter creates the shared token-bucket rate limiter.
func ProvideLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

// ProvideSignalStore creates the JSON file store for ledger persistence.
func ProvideSignalStore(cfg *config.Config) (repository.SignalStore, error) {
	return internalrepo.NewFileSignalStore(cfg.Store.Dir)
}

// ProvideCoinCatalog creates the CoinGecko catalog client.
func ProvideCoinCatalog(cfg *config.Config, limiter *ratelimit.Limiter, l *applogger.Logger) repository.CoinCatalog {
	return internalrepo.NewCoinGeckoCatalog(cfg.CoinGecko.BaseURL, cfg.CoinGecko.Timeout, limiter, l)
}

// ProvideMarketData creates the Binance klines client.
func ProvideMarketData(cfg *config.Config, l *applogger.Logger) repository.MarketData {
	return internalrepo.NewBinanceMarketData(cfg.Binance.APIKey, cfg.Binance.APISecret, l)
}

// ProvideIndicatorAnalyzer creates the technical indicator analyzer.
func ProvideIndicatorAnalyzer(l *applogger.Logger) domsvc.IndicatorAnalyzer {
	return indicators.NewAnalyzer(indicators.DefaultConfig(), l)
}

// ProvidePatternAnalyzer creates the chart pattern analyzer.
func ProvidePatternAnalyzer(l *applogger.Logger) domsvc.PatternAnalyzer {
	return patterns.NewAnalyzer(patterns.DefaultConfig(), l)
}

// ProvideScreener creates the coin screener with default thresholds.
func ProvideScreener() *screener.Filter {
	return screener.NewFilter(screener.DefaultCriteria())
}

// ProvideCoinScreener binds the screener to its domain interface.
func ProvideCoinScreener(f *screener.Filter) domsvc.CoinScreener {
	return f
}

// ProvideAnalyzer creates the multi-timeframe analysis use case.
func ProvideAnalyzer(
	market repository.MarketData,
	indicator domsvc.IndicatorAnalyzer,
	pattern domsvc.PatternAnalyzer,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.Analyzer {
	var tfs []repository.Timeframe
	for _, s := range cfg.Analysis.Timeframes {
		tf := repository.NormalizeTimeframe(s)
		if repository.IsValidTimeframe(tf) {
			tfs = append(tfs, tf)
		}
	}
	return usecase.NewAnalyzer(market, indicator, pattern, m, l, tfs, cfg.Analysis.CandleLimit)
}

// ProvideSignalFactory creates the signal factory.
func ProvideSignalFactory(cfg *config.Config, l *applogger.Logger) *usecase.SignalFactory {
	fc := usecase.DefaultFactoryConfig()
	if cfg.Analysis.MinConfidence > 0 {
		fc.MinConfidence = cfg.Analysis.MinConfidence
	}
	return usecase.NewSignalFactory(fc, l)
}

// ProvideLedger creates the signal ledger.
func ProvideLedger(store repository.SignalStore, m repository.Metrics, l *applogger.Logger) *usecase.SignalLedger {
	return usecase.NewSignalLedger(store, m, l)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
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

// ProvideSignalPublisher creates the lifecycle event publisher.
func ProvideSignalPublisher(producer *pkgkafka.Producer, cfg *config.Config) domsvc.SignalPublisher {
	if producer == nil {
		return internalrepo.NoopPublisher{}
	}
	return internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.Topic)
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when disabled.
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id String,
			symbol String,
			direction String,
			entry_price Float64,
			close_price Float64,
			entry_time DateTime,
			close_time DateTime,
			pnl_percentage Float64,
			pnl_usd Float64,
			close_reason String,
			confidence Int32
		) ENGINE=MergeTree ORDER BY (symbol, close_time)`, historyTable(cfg)),
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

func historyTable(cfg *config.Config) string {
	table := cfg.ClickHouse.Table
	if table == "" {
		table = "signal_history"
	}
	return cfg.ClickHouse.Database + "." + table
}

// ProvideHistoryArchiver creates the closed-signal archiver.
func ProvideHistoryArchiver(chClient *pkgch.Client, cfg *config.Config) domsvc.HistoryArchiver {
	if chClient == nil {
		return internalrepo.NoopArchiver{}
	}
	return internalrepo.NewClickHouseHistory(chClient.DB(), historyTable(cfg))
}

// ProvideScanner creates the scan and refresh loop owner.
func ProvideScanner(
	cfg *config.Config,
	catalog repository.CoinCatalog,
	scr domsvc.CoinScreener,
	analyzer *usecase.Analyzer,
	factory *usecase.SignalFactory,
	ledger *usecase.SignalLedger,
	publisher domsvc.SignalPublisher,
	archiver domsvc.HistoryArchiver,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Scanner {
	sc := usecase.DefaultScannerConfig()
	if cfg.Scanner.ScanInterval > 0 {
		sc.ScanInterval = cfg.Scanner.ScanInterval
	}
	if cfg.Scanner.RefreshInterval > 0 {
		sc.RefreshInterval = cfg.Scanner.RefreshInterval
	}
	if cfg.Scanner.CatalogLimit > 0 {
		sc.CatalogLimit = cfg.Scanner.CatalogLimit
	}
	if cfg.Scanner.CoinsPerScan > 0 {
		sc.CoinsPerScan = cfg.Scanner.CoinsPerScan
	}
	if cfg.Scanner.MaxSignalAge > 0 {
		sc.MaxSignalAge = cfg.Scanner.MaxSignalAge
	}
	return usecase.NewScanner(sc, catalog, scr, analyzer, factory, ledger, publisher, archiver, m, l)
}

// ProvidePriceStream creates the Binance WebSocket stream, or nil when
// streaming is disabled.
func ProvidePriceStream(cfg *config.Config, l *applogger.Logger) repository.PriceStream {
	if !cfg.Binance.StreamEnabled {
		return nil
	}
	return internalrepo.NewBinancePriceStream(
		cfg.Binance.WebSocketURL,
		cfg.Binance.StreamSymbols,
		cfg.Binance.ReconnectDelay,
		cfg.Binance.PingInterval,
		l,
	)
}

// ProvideStreamCollector creates the live tick collector. Ticks flow through
// a throttling pipeline before touching the ledger.
func ProvideStreamCollector(
	stream repository.PriceStream,
	ledger *usecase.SignalLedger,
	publisher domsvc.SignalPublisher,
	archiver domsvc.HistoryArchiver,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.StreamCollector {
	if stream == nil {
		return nil
	}
	col := usecase.NewStreamCollector(stream, ledger, publisher, archiver, m, nil, l)
	pipe := mid.NewPricePipeline(col, m,
		mid.WithMaxRPS(10),
		mid.WithBufferSize(1024),
	)
	col.AttachPipeline(pipe)
	return col
}

// ProvideBytesCache creates the API response cache. Redis when configured,
// an in-process TTL cache otherwise.
func ProvideBytesCache(cfg *config.Config) cache.BytesCache {
	if cfg.Redis.Enabled {
		return cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	return cache.NewTTLCache()
}

// ProvideCatalogReader binds the catalog to the handler's read interface.
func ProvideCatalogReader(catalog repository.CoinCatalog) api.CatalogReader {
	return catalog
}

// ProvideHandler creates the HTTP handler with all routes.
func ProvideHandler(
	l *applogger.Logger,
	ledger *usecase.SignalLedger,
	scanner *usecase.Scanner,
	analyzer *usecase.Analyzer,
	catalog api.CatalogReader,
	scr *screener.Filter,
	bc cache.BytesCache,
	limiter *ratelimit.Limiter,
	collector *usecase.StreamCollector,
	chClient *pkgch.Client,
) *api.SignalsEchoHandler {
	h := api.NewSignalsEchoHandler(l, ledger, scanner, analyzer, catalog, scr, bc, limiter)

	if collector != nil {
		h.AddHealthCheck("price_stream", func(context.Context) error {
			if !collector.IsConnected() {
				return fmt.Errorf("stream disconnected")
			}
			return nil
		})
	}
	if chClient != nil {
		h.AddHealthCheck("clickhouse", func(ctx context.Context) error {
			return chClient.DB().PingContext(ctx)
		})
	}
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	ledger *usecase.SignalLedger,
	scanner *usecase.Scanner,
	collector *usecase.StreamCollector,
	publisher domsvc.SignalPublisher,
	archiver domsvc.HistoryArchiver,
	chClient *pkgch.Client,
	handler *api.SignalsEchoHandler,
) *server.App {
	app := server.New(cfg, l, ledger, scanner, collector, publisher, archiver, chClient)
	app.SetHTTPHandler(handler)
	return app
}
