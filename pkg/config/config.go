package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront/pkg/enums"
)

type Config struct {
	App         AppConfig
	HTTP        HTTPConfig
	CartService CartServiceConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Session     SessionConfig
	RateLimit   RateLimitConfig
	Events      EventsConfig
	GCP         GCPConfig
	Metrics     MetricsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field rules and reports every violation at once.
func (c *Config) Validate() error {
	var err error
	err = multierr.Append(err, c.CartService.validate())
	err = multierr.Append(err, c.Session.validate())
	err = multierr.Append(err, c.RateLimit.validate())
	err = multierr.Append(err, c.Metrics.validate())
	if c.Events.Enabled {
		if strings.TrimSpace(c.GCP.ProjectID) == "" {
			err = multierr.Append(err, fmt.Errorf("%s is required when %s is true", EnvGCPProjectID, EnvEventsEnabled))
		}
		if strings.TrimSpace(c.Events.Topic) == "" {
			err = multierr.Append(err, fmt.Errorf("%s is required when %s is true", EnvEventsTopic, EnvEventsEnabled))
		}
	}
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type HTTPConfig struct {
	AllowedOrigins  []string      `envconfig:"STOREFRONT_HTTP_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	ReadTimeout     time.Duration `envconfig:"STOREFRONT_HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"STOREFRONT_HTTP_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"STOREFRONT_HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
}

type CartServiceConfig struct {
	BaseURL       string        `envconfig:"STOREFRONT_CART_SERVICE_URL" required:"true"`
	Timeout       time.Duration `envconfig:"STOREFRONT_CART_SERVICE_TIMEOUT" default:"10s"`
	VoucherPolicy string        `envconfig:"STOREFRONT_CART_VOUCHER_POLICY" default:"retain"`
}

// Policy returns the parsed voucher revalidation policy.
func (c CartServiceConfig) Policy() enums.VoucherPolicy {
	policy, err := enums.ParseVoucherPolicy(strings.ToLower(strings.TrimSpace(c.VoucherPolicy)))
	if err != nil {
		return enums.VoucherPolicyRetain
	}
	return policy
}

func (c CartServiceConfig) validate() error {
	var err error
	if u, parseErr := url.ParseRequestURI(strings.TrimSpace(c.BaseURL)); parseErr != nil || u.Host == "" {
		err = multierr.Append(err, fmt.Errorf("%s must be an absolute url", EnvCartServiceURL))
	}
	if c.Timeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvCartServiceTimeout))
	}
	if _, parseErr := enums.ParseVoucherPolicy(strings.ToLower(strings.TrimSpace(c.VoucherPolicy))); parseErr != nil {
		err = multierr.Append(err, fmt.Errorf("%s: %w", EnvCartVoucherPolicy, parseErr))
	}
	return err
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"STOREFRONT_JWT_ISSUER" required:"true"`
}

type SessionConfig struct {
	IdleTTL       time.Duration `envconfig:"STOREFRONT_SESSION_IDLE_TTL" default:"30m"`
	SweepInterval time.Duration `envconfig:"STOREFRONT_SESSION_SWEEP_INTERVAL" default:"1m"`
}

func (s SessionConfig) validate() error {
	var err error
	if s.IdleTTL <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvSessionIdleTTL))
	}
	if s.SweepInterval <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvSessionSweepInterval))
	}
	if s.IdleTTL > 0 && s.SweepInterval > s.IdleTTL {
		err = multierr.Append(err, fmt.Errorf("%s must not exceed %s", EnvSessionSweepInterval, EnvSessionIdleTTL))
	}
	return err
}

type RateLimitConfig struct {
	Window       time.Duration `envconfig:"STOREFRONT_RATE_LIMIT_WINDOW" default:"1m"`
	SessionLimit int           `envconfig:"STOREFRONT_RATE_LIMIT_SESSION_LIMIT" default:"60"`
	IPLimit      int           `envconfig:"STOREFRONT_RATE_LIMIT_IP_LIMIT" default:"300"`
}

func (r RateLimitConfig) validate() error {
	if r.Window < 0 || r.SessionLimit < 0 || r.IPLimit < 0 {
		return errors.New("rate limit window and limits must not be negative")
	}
	return nil
}

type EventsConfig struct {
	Enabled bool   `envconfig:"STOREFRONT_EVENTS_ENABLED" default:"false"`
	Topic   string `envconfig:"STOREFRONT_EVENTS_TOPIC" default:"storefront-cart-events"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"STOREFRONT_GCP_PROJECT_ID"`
}

type MetricsConfig struct {
	Enabled bool   `envconfig:"STOREFRONT_METRICS_ENABLED" default:"true"`
	Path    string `envconfig:"STOREFRONT_METRICS_PATH" default:"/metrics"`
}

func (m MetricsConfig) validate() error {
	if m.Enabled && !strings.HasPrefix(m.Path, "/") {
		return fmt.Errorf("%s must start with /", EnvMetricsPath)
	}
	return nil
}
