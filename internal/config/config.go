package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	pkgconfig "github.com/utafrali/partsquote/pkg/config"
	"github.com/utafrali/partsquote/pkg/database"
	"github.com/utafrali/partsquote/pkg/tracing"
)

// Catalog drivers.
const (
	CatalogPostgres = "postgres"
	CatalogMemory   = "memory"
)

// Config holds all configuration for the quote service.
type Config struct {
	Environment    string `env:"ENVIRONMENT" envDefault:"development"`
	ServiceVersion string `env:"SERVICE_VERSION" envDefault:"0.1.0"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort           int      `env:"QUOTE_HTTP_PORT" envDefault:"8010"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`

	// Redis
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass     string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`

	// Quote cart TTL in hours (default: 7 days)
	CartTTL int `env:"QUOTE_CART_TTL_HOURS" envDefault:"168"`

	// Kafka. Events are dropped when no broker is configured.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	// Catalog
	CatalogDriver      string        `env:"CATALOG_DRIVER" envDefault:"memory"`
	PostgresHost       string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort       int           `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser       string        `env:"POSTGRES_USER" envDefault:"partsquote"`
	PostgresPass       string        `env:"POSTGRES_PASSWORD" envDefault:"partsquote_secret"`
	PostgresDB         string        `env:"POSTGRES_DB" envDefault:"catalog"`
	PostgresSSL        string        `env:"POSTGRES_SSLMODE" envDefault:"disable"`
	PostgresMaxConns   int32         `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
	SlowQueryThreshold time.Duration `env:"SLOW_QUERY_THRESHOLD" envDefault:"200ms"`

	// Quote intake
	IntakeURL     string        `env:"QUOTE_INTAKE_URL" envDefault:"http://localhost:8080/api/quotes"`
	IntakeTimeout time.Duration `env:"QUOTE_INTAKE_TIMEOUT" envDefault:"10s"`

	// Search. The catalog is searched directly when no upstream is set.
	SearchUpstreamURL    string        `env:"SEARCH_UPSTREAM_URL"`
	SearchDebounce       time.Duration `env:"SEARCH_DEBOUNCE" envDefault:"300ms"`
	SearchMinQueryLength int           `env:"SEARCH_MIN_QUERY_LENGTH" envDefault:"2"`
	SearchLimit          int           `env:"SEARCH_LIMIT" envDefault:"20"`

	// Pricing and limits
	MaterialCertFee decimal.Decimal `env:"MATERIAL_CERT_FEE" envDefault:"350"`
	GSTRate         decimal.Decimal `env:"GST_RATE" envDefault:"0.10"`
	MaxLineQuantity int             `env:"MAX_LINE_QUANTITY" envDefault:"999"`
	MaxCartLines    int             `env:"MAX_CART_LINES" envDefault:"50"`

	// Submission rate limit per client IP (default: 5 per minute)
	SubmitRateLimitRPS   float64 `env:"SUBMIT_RATE_LIMIT_RPS" envDefault:"0.0833"`
	SubmitRateLimitBurst int     `env:"SUBMIT_RATE_LIMIT_BURST" envDefault:"5"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load quote config: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.CartTTL < 1 {
		return fmt.Errorf("QUOTE_CART_TTL_HOURS must be positive, got %d", c.CartTTL)
	}
	switch c.CatalogDriver {
	case CatalogMemory:
	case CatalogPostgres:
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required")
		}
		if c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_USER is required")
		}
	default:
		return fmt.Errorf("CATALOG_DRIVER must be %q or %q, got %q", CatalogPostgres, CatalogMemory, c.CatalogDriver)
	}
	if _, err := url.ParseRequestURI(c.IntakeURL); err != nil {
		return fmt.Errorf("QUOTE_INTAKE_URL is invalid: %w", err)
	}
	if c.SearchUpstreamURL != "" {
		if _, err := url.ParseRequestURI(c.SearchUpstreamURL); err != nil {
			return fmt.Errorf("SEARCH_UPSTREAM_URL is invalid: %w", err)
		}
	}
	if c.IntakeTimeout <= 0 {
		return fmt.Errorf("QUOTE_INTAKE_TIMEOUT must be positive")
	}
	if c.SearchDebounce < 0 {
		return fmt.Errorf("SEARCH_DEBOUNCE must not be negative")
	}
	if c.SearchMinQueryLength < 1 || c.SearchLimit < 1 {
		return fmt.Errorf("SEARCH_MIN_QUERY_LENGTH and SEARCH_LIMIT must be at least 1")
	}
	if c.MaterialCertFee.IsNegative() {
		return fmt.Errorf("MATERIAL_CERT_FEE must not be negative, got %s", c.MaterialCertFee)
	}
	if c.GSTRate.IsNegative() || c.GSTRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("GST_RATE must be in [0, 1), got %s", c.GSTRate)
	}
	if c.MaxLineQuantity < 1 || c.MaxCartLines < 1 {
		return fmt.Errorf("MAX_LINE_QUANTITY and MAX_CART_LINES must be at least 1")
	}
	if c.RedisPoolSize < 1 || c.PostgresMaxConns < 1 {
		return fmt.Errorf("REDIS_POOL_SIZE and POSTGRES_MAX_CONNS must be at least 1")
	}
	if c.SubmitRateLimitRPS <= 0 || c.SubmitRateLimitBurst < 1 {
		return fmt.Errorf("submit rate limit must be positive")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// CartTTLDuration returns the cart TTL as a duration.
func (c *Config) CartTTLDuration() time.Duration {
	return time.Duration(c.CartTTL) * time.Hour
}

// PostgresConfig returns the catalog pool settings.
func (c *Config) PostgresConfig() database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPass
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSL
	pg.MaxConns = c.PostgresMaxConns
	return pg
}

// RedisConfig returns the cart store client settings.
func (c *Config) RedisConfig() database.RedisConfig {
	rc := database.DefaultRedisConfig()
	rc.Addr = c.RedisAddr
	rc.Password = c.RedisPass
	rc.DB = c.RedisDB
	rc.PoolSize = c.RedisPoolSize
	return rc
}

// TracingConfig returns the OpenTelemetry exporter settings.
func (c *Config) TracingConfig(serviceName string) tracing.Config {
	tc := tracing.DefaultConfig(serviceName)
	tc.ServiceVersion = c.ServiceVersion
	tc.Environment = c.Environment
	tc.Enabled = c.OTELEnabled
	tc.OTLPEndpoint = c.OTELEndpoint
	tc.SampleRate = c.OTELSampleRate
	return tc
}
