package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	pkgconfig "github.com/utafrali/storefront/pkg/config"
	"github.com/utafrali/storefront/pkg/tracing"
)

// Mode selects between canned fixture data and the live API.
type Mode string

const (
	ModeMock Mode = "mock"
	ModeLive Mode = "live"
)

// IsMock reports whether m is mock mode.
func (m Mode) IsMock() bool { return m == ModeMock }

// Token store backends.
const (
	TokenStoreFile   = "file"
	TokenStoreRedis  = "redis"
	TokenStoreMemory = "memory"
)

// Config holds all configuration for the storefront client.
type Config struct {
	Environment string `env:"APP_ENV" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"text"`

	Mode Mode `env:"STOREFRONT_MODE" envDefault:"live"`

	// API client
	APIBaseURL  string        `env:"STOREFRONT_API_URL" envDefault:"http://localhost:8000/api/v1/"`
	HTTPTimeout time.Duration `env:"STOREFRONT_HTTP_TIMEOUT" envDefault:"15s"`
	MaxRetries  int           `env:"STOREFRONT_HTTP_RETRIES" envDefault:"2"`
	RateLimit   float64       `env:"STOREFRONT_RATE_LIMIT" envDefault:"20"`
	RateBurst   int           `env:"STOREFRONT_RATE_BURST" envDefault:"10"`

	BreakerTimeout     time.Duration `env:"STOREFRONT_BREAKER_TIMEOUT" envDefault:"30s"`
	BreakerMinRequests uint32        `env:"STOREFRONT_BREAKER_MIN_REQUESTS" envDefault:"5"`

	// Token persistence
	TokenStore  string `env:"STOREFRONT_TOKEN_STORE" envDefault:"file"`
	TokenFile   string `env:"STOREFRONT_TOKEN_FILE"`
	RedisAddr   string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass   string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB     int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix string `env:"STOREFRONT_REDIS_PREFIX" envDefault:"storefront:"`

	// Activity events; empty disables publishing.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	Tracing tracing.Config
}

// Load reads configuration from the environment and the given dotenv files.
func Load(dotenvFiles ...string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg, dotenvFiles...); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if cfg.TokenFile == "" {
		cfg.TokenFile = DefaultTokenFile()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultTokenFile is ~/.config/storefront/tokens.json, falling back to the
// working directory when no config dir is known.
func DefaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "storefront-tokens.json"
	}
	return filepath.Join(dir, "storefront", "tokens.json")
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	switch c.Mode {
	case ModeMock, ModeLive:
	default:
		return fmt.Errorf("STOREFRONT_MODE must be %q or %q, got %q", ModeMock, ModeLive, c.Mode)
	}

	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid STOREFRONT_API_URL: %q", c.APIBaseURL)
	}
	if !strings.HasSuffix(c.APIBaseURL, "/") {
		c.APIBaseURL += "/"
	}

	switch c.TokenStore {
	case TokenStoreFile, TokenStoreRedis, TokenStoreMemory:
	default:
		return fmt.Errorf("unknown STOREFRONT_TOKEN_STORE: %q", c.TokenStore)
	}

	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("STOREFRONT_HTTP_TIMEOUT must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("STOREFRONT_HTTP_RETRIES must not be negative")
	}
	if c.RateLimit <= 0 || c.RateBurst < 1 {
		return fmt.Errorf("STOREFRONT_RATE_LIMIT and STOREFRONT_RATE_BURST must be positive")
	}
	if c.BreakerTimeout <= 0 || c.BreakerMinRequests < 1 {
		return fmt.Errorf("STOREFRONT_BREAKER_TIMEOUT and STOREFRONT_BREAKER_MIN_REQUESTS must be positive")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0")
	}
	return nil
}

// MockAPIConfig holds configuration for the mock backend.
type MockAPIConfig struct {
	Environment string `env:"APP_ENV" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"`

	HTTPPort   int           `env:"MOCKAPI_HTTP_PORT" envDefault:"8000"`
	JWTSecret  string        `env:"MOCKAPI_JWT_SECRET" envDefault:"storefront-mockapi-secret"`
	AccessTTL  time.Duration `env:"MOCKAPI_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL time.Duration `env:"MOCKAPI_REFRESH_TTL" envDefault:"168h"`
	// CORSOrigins lists the front end origins allowed to call the API. Empty allows all.
	CORSOrigins []string `env:"MOCKAPI_CORS_ORIGINS" envSeparator:","`

	Tracing tracing.Config
}

// LoadMockAPI reads the mock backend configuration.
func LoadMockAPI(dotenvFiles ...string) (*MockAPIConfig, error) {
	cfg := &MockAPIConfig{}
	if err := pkgconfig.Load(cfg, dotenvFiles...); err != nil {
		return nil, fmt.Errorf("load mockapi config: %w", err)
	}
	if cfg.Tracing.ServiceName == "storefront" {
		cfg.Tracing.ServiceName = "storefront-mockapi"
	}

	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("MOCKAPI_HTTP_PORT must be between 1 and 65535, got %d", cfg.HTTPPort)
	}
	if len(cfg.JWTSecret) < 16 {
		return nil, fmt.Errorf("MOCKAPI_JWT_SECRET must be at least 16 characters")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL < cfg.AccessTTL {
		return nil, fmt.Errorf("MOCKAPI_ACCESS_TTL must be positive and not exceed MOCKAPI_REFRESH_TTL")
	}
	return cfg, nil
}
