package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"

	"github.com/utafrali/partsquote/internal/catalog"
	"github.com/utafrali/partsquote/internal/catalog/memory"
	"github.com/utafrali/partsquote/internal/catalog/postgres"
	"github.com/utafrali/partsquote/internal/config"
	"github.com/utafrali/partsquote/internal/event"
	handler "github.com/utafrali/partsquote/internal/handler/http"
	"github.com/utafrali/partsquote/internal/pricing"
	"github.com/utafrali/partsquote/internal/quote"
	redisrepo "github.com/utafrali/partsquote/internal/repository/redis"
	"github.com/utafrali/partsquote/internal/search"
	"github.com/utafrali/partsquote/internal/service"
	"github.com/utafrali/partsquote/pkg/database"
	"github.com/utafrali/partsquote/pkg/health"
	"github.com/utafrali/partsquote/pkg/httpclient"
	pkgkafka "github.com/utafrali/partsquote/pkg/kafka"
	"github.com/utafrali/partsquote/pkg/middleware"
	"github.com/utafrali/partsquote/pkg/tracing"
)

const serviceName = "quote-service"

// App wires together all dependencies and runs the quote service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *redis.Client
	pool           *pgxpool.Pool
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, cfg.TracingConfig(serviceName))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	// Quote carts live in Redis.
	rdb, err := database.NewRedisClient(ctx, cfg.RedisConfig(), logger)
	if err != nil {
		a.closeAll()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.rdb = rdb
	logger.Info("connected to Redis",
		slog.String("addr", cfg.RedisAddr),
		slog.Int("db", cfg.RedisDB),
	)

	products, err := a.openCatalog(ctx)
	if err != nil {
		a.closeAll()
		return nil, err
	}

	// Events are only published when brokers are configured.
	var publisher event.Publisher = event.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = a.producer
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	} else {
		logger.Warn("no kafka brokers configured, cart events are not published")
	}

	// The intake endpoint deduplicates on Idempotency-Key, so retries are safe.
	intakeHTTP := httpclient.DefaultConfig()
	intakeHTTP.Timeout = cfg.IntakeTimeout
	intakeHTTP.MaxRetries = 2
	intakeClient := httpclient.NewCircuitBreakerClient(
		httpclient.New(intakeHTTP),
		httpclient.DefaultCircuitBreakerConfig("quote-intake"),
		logger,
	)

	svcCfg := service.Config{
		CartTTL:         cfg.CartTTLDuration(),
		MaxLineQuantity: cfg.MaxLineQuantity,
		MaxCartLines:    cfg.MaxCartLines,
		Pricing: pricing.Config{
			CertificateFee: cfg.MaterialCertFee,
			TaxRate:        cfg.GSTRate,
		},
	}
	cartService := service.NewCartService(
		redisrepo.NewCartRepository(rdb, svcCfg.CartTTL, logger),
		products,
		event.NewProducer(publisher, logger),
		quote.NewClient(intakeClient, cfg.IntakeURL, logger),
		logger,
		svcCfg,
	)

	searchService, searchClient := newSearchService(cfg, products, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	if pool := a.pool; pool != nil {
		healthHandler.RegisterCritical("catalog", pool.Ping)
	}
	if a.producer != nil {
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
	}
	healthHandler.RegisterNonCritical("quote-intake", breakerCheck(intakeClient))
	if searchClient != nil {
		healthHandler.RegisterNonCritical("search-upstream", breakerCheck(searchClient))
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins
	corsCfg.Environment = cfg.Environment

	router := handler.NewRouter(cartService, searchService, healthHandler, logger, handler.RouterConfig{
		CORS:          corsCfg,
		SubmitLimiter: middleware.NewRateLimiter(cfg.SubmitRateLimitRPS, cfg.SubmitRateLimitBurst),
		Timeout:       cfg.IntakeTimeout + 5*time.Second,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.IntakeTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// openCatalog returns the product catalog for the configured driver. The
// postgres driver also applies migrations and exports pool metrics.
func (a *App) openCatalog(ctx context.Context) (catalog.Repository, error) {
	cfg := a.cfg
	if cfg.CatalogDriver != config.CatalogPostgres {
		seed := memory.SeedProducts()
		a.logger.Info("using in-memory catalog", slog.Int("products", len(seed)))
		return memory.New(seed...), nil
	}

	pool, err := database.NewPostgresPool(ctx, cfg.PostgresConfig(), a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	a.logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, "catalog"); err != nil {
		return nil, fmt.Errorf("register pool metrics: %w", err)
	}
	if err := database.RunMigrations(ctx, pool, postgres.Migrations(), a.logger); err != nil {
		return nil, fmt.Errorf("run catalog migrations: %w", err)
	}
	database.SetSlowQueryLogging(cfg.SlowQueryThreshold, a.logger)

	return postgres.NewProductRepository(pool), nil
}

// newSearchService builds the search service. With an upstream configured
// the returned breaker client is non-nil so it can be health checked.
func newSearchService(cfg *config.Config, products catalog.Repository, logger *slog.Logger) (*search.Service, *httpclient.CircuitBreakerClient) {
	searchCfg := search.Config{
		Debounce:       cfg.SearchDebounce,
		MinQueryLength: cfg.SearchMinQueryLength,
		Limit:          cfg.SearchLimit,
	}

	if cfg.SearchUpstreamURL == "" {
		return search.NewService(search.NewCatalogSearcher(products), searchCfg, logger), nil
	}

	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = 5 * time.Second
	httpCfg.MaxRetries = 1
	client := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpCfg),
		httpclient.DefaultCircuitBreakerConfig("search-upstream"),
		logger,
	)
	logger.Info("using upstream search", slog.String("url", cfg.SearchUpstreamURL))
	return search.NewService(search.NewUpstreamSearcher(client, cfg.SearchUpstreamURL), searchCfg, logger), client
}

func breakerCheck(client *httpclient.CircuitBreakerClient) health.Checker {
	return func(context.Context) error {
		if client.State() == gobreaker.StateOpen {
			return errors.New("circuit breaker open")
		}
		return nil
	}
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.closeAll()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order: the HTTP server drains
// in-flight requests, then spans are flushed, then the Kafka producer, Redis
// client and catalog pool are closed.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.closeAll(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeAll releases everything except the HTTP server. It is safe to call
// on a partially initialized App.
func (a *App) closeAll() error {
	var errs []error

	if a.tracerShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.tracerShutdown = nil
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.producer = nil
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.rdb = nil
	}

	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}

	return errors.Join(errs...)
}
