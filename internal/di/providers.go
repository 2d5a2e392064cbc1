package di

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"AlphaKit/internal/domain/models"
	"AlphaKit/internal/domain/repository"
	"AlphaKit/internal/handler/api"
	"AlphaKit/internal/registry"
	internalrepo "AlphaKit/internal/repository"
	"AlphaKit/internal/service/lock"
	"AlphaKit/internal/service/quandl"
	"AlphaKit/internal/service/secrets"
	"AlphaKit/internal/usecase"
	"AlphaKit/pkg/cache"
	pkgch "AlphaKit/pkg/clickhouse"
	"AlphaKit/pkg/config"
	xhttp "AlphaKit/pkg/http"
	pkgkafka "AlphaKit/pkg/kafka"
	applogger "AlphaKit/pkg/logger"
	"AlphaKit/pkg/metrics"
	"AlphaKit/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvidePrometheusRegistry creates the private registry served on the metrics path.
func ProvidePrometheusRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) repository.Metrics {
	return metrics.New(reg)
}

// ProvideRegistry returns the built-in dataset registry.
func ProvideRegistry() usecase.Registry {
	return registry.Default()
}

// ProvideCacheService backs locks and the report cache with Redis when the lock backend
// is redis, and with process memory otherwise.
func ProvideCacheService(cfg *config.Config) (cache.Service, error) {
	if cfg.Cache.Lock.Backend != "redis" {
		return cache.NewMemoryCache(), nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideLocker creates the per-key lock used by the fetch cache.
func ProvideLocker(cfg *config.Config, svc cache.Service, log *applogger.Logger) repository.Locker {
	if cfg.Cache.Lock.Backend == "redis" {
		return lock.NewLease(svc, log,
			lock.WithTTL(cfg.Cache.Lock.TTL),
			lock.WithRetryEvery(cfg.Cache.Lock.RetryEvery),
		)
	}
	return lock.NewLocal()
}

// ProvideArtifactStore creates the on-disk artifact store under the cache dir.
func ProvideArtifactStore(cfg *config.Config, log *applogger.Logger) (repository.ArtifactStore, error) {
	store, err := internalrepo.NewFileStore(cfg.Cache.Dir, log)
	if err != nil {
		return nil, fmt.Errorf("artifact store: %w", err)
	}
	return store, nil
}

// ProvideSecrets creates the credential loader.
func ProvideSecrets(cfg *config.Config) repository.SecretLoader {
	return secrets.New(secrets.WithFile(cfg.Provider.CredentialFile))
}

// ProvideTransport creates the rate-limited provider client.
func ProvideTransport(cfg *config.Config, log *applogger.Logger) repository.Transport {
	return quandl.New(log,
		quandl.WithHTTPClient(xhttp.NewClient(xhttp.WithTimeout(cfg.Provider.Timeout))),
		quandl.WithBaseURL(models.ProviderQuandl, cfg.Provider.QuandlURL),
		quandl.WithBaseURL(models.ProviderNasdaq, cfg.Provider.NasdaqURL),
		quandl.WithRateLimit(cfg.Provider.RatePerSecond, cfg.Provider.Burst),
		quandl.WithRetry(cfg.Provider.MaxAttempts, cfg.Provider.Backoff),
	)
}

// ProvideReportSink creates the configured report sink.
func ProvideReportSink(cfg *config.Config, reg *prometheus.Registry, log *applogger.Logger) (repository.ReportSink, error) {
	switch cfg.Sink.Type {
	case "kafka":
		producer, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(cfg.Kafka.Brokers),
			pkgkafka.WithTopic(cfg.Kafka.Topic),
			pkgkafka.WithCompression(cfg.Kafka.Compression),
			pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
			pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
			pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.WriteTimeout),
			pkgkafka.WithHashByKey(true),
			pkgkafka.WithRegisterer(reg),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		return internalrepo.NewKafkaReportSink(producer, log), nil
	case "clickhouse":
		return provideClickHouseSink(cfg, log)
	default:
		return internalrepo.NopReportSink{}, nil
	}
}

// clickHouseSink closes the pool together with the sink.
type clickHouseSink struct {
	*internalrepo.ClickHouseReportSink
	client *pkgch.Client
}

func (s clickHouseSink) Close() error { return s.client.Close() }

func provideClickHouseSink(cfg *config.Config, log *applogger.Logger) (repository.ReportSink, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithProtocol(pkgch.Protocol(cfg.ClickHouse.Protocol)),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecTime),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, true),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	sink, err := internalrepo.NewClickHouseReportSink(client.DB(), cfg.ClickHouse.Database, log)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	if err := client.InitSchema(ctx, sink.Schema()); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return clickHouseSink{ClickHouseReportSink: sink, client: client}, nil
}

// ProvideRunnerConfig maps the scenario section onto runner settings.
func ProvideRunnerConfig(cfg *config.Config) usecase.RunnerConfig {
	overrides := make(map[string]models.FillStrategy, len(cfg.Scenario.FillOverrides))
	for col, s := range cfg.Scenario.FillOverrides {
		overrides[col] = models.FillStrategy(s)
	}
	return usecase.RunnerConfig{
		Workers:          cfg.Scenario.Workers,
		RunTimeout:       cfg.Scenario.RunTimeout,
		MissingTolerance: cfg.Scenario.MissingTolerance,
		DefaultFill:      models.FillStrategy(cfg.Scenario.DefaultFill),
		FillOverrides:    overrides,
		Credential:       cfg.Provider.CredentialName,
	}
}

// ProvideHandler creates the scenario HTTP handler.
func ProvideHandler(cfg *config.Config, log *applogger.Logger, runner *usecase.ScenarioRunner, svc cache.Service) xhttp.Handler {
	return xhttp.Handlers{
		xhttp.Routes(func(e *echo.Echo) {
			e.GET("/healthz", func(c echo.Context) error {
				return xhttp.SuccessResponse(c, map[string]string{"environment": cfg.Environment})
			})
		}),
		api.NewScenarioEchoHandler(log, runner, svc, cfg.Cache.ReportTTL),
	}
}

// ProvideHTTPServer creates the Echo server with metrics exposition.
func ProvideHTTPServer(cfg *config.Config, h xhttp.Handler, reg *prometheus.Registry, log *applogger.Logger) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, reg, reg))
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		opts = append(opts, xhttp.WithCORS(cfg.Server.CORSOrigins...))
	}
	return xhttp.NewServer(h, log, opts...)
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	runner *usecase.ScenarioRunner,
	httpServer *xhttp.Server,
	sink repository.ReportSink,
	svc cache.Service,
	log *applogger.Logger,
) *server.App {
	return server.New(cfg, runner, httpServer, log, sink, svc)
}
