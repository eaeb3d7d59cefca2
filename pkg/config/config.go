package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App     AppConfig
	API     APIConfig
	Storage StorageConfig
	DB      DBConfig
	Redis   RedisConfig
	Display DisplayConfig
	Auth    AuthConfig
	Metrics MetricsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Storage.validate(cfg.DB, cfg.Redis); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// APIConfig points the HTTP client at the storefront backend.
type APIConfig struct {
	BaseURL string        `envconfig:"STOREFRONT_API_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"STOREFRONT_API_TIMEOUT" default:"10s"`

	BreakerEnabled     bool          `envconfig:"STOREFRONT_API_BREAKER_ENABLED" default:"true"`
	BreakerMaxFailures uint32        `envconfig:"STOREFRONT_API_BREAKER_MAX_FAILURES" default:"5"`
	BreakerInterval    time.Duration `envconfig:"STOREFRONT_API_BREAKER_INTERVAL" default:"1m"`
	BreakerOpenTimeout time.Duration `envconfig:"STOREFRONT_API_BREAKER_OPEN_TIMEOUT" default:"30s"`
}

// StorageConfig selects the device-local key/value backend.
type StorageConfig struct {
	Driver string `envconfig:"STOREFRONT_STORAGE_DRIVER" default:"memory"`
}

// NormalizedDriver returns the lower-cased driver name.
func (s StorageConfig) NormalizedDriver() string {
	driver := strings.ToLower(strings.TrimSpace(s.Driver))
	if driver == "" {
		return StorageDriverMemory
	}
	return driver
}

type DBConfig struct {
	DSN         string `envconfig:"STOREFRONT_DB_DSN"`
	SQLitePath  string `envconfig:"STOREFRONT_SQLITE_PATH" default:"storefront.db"`
	AutoMigrate bool   `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"true"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"4"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"4"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"3s"`
}

// DisplayConfig controls how long toast notifications stay on screen.
type DisplayConfig struct {
	SuccessDuration time.Duration `envconfig:"STOREFRONT_DISPLAY_SUCCESS_DURATION" default:"1200ms"`
	WarningDuration time.Duration `envconfig:"STOREFRONT_DISPLAY_WARNING_DURATION" default:"2000ms"`
	Offset          int           `envconfig:"STOREFRONT_DISPLAY_OFFSET" default:"80"`
}

type AuthConfig struct {
	LogoutOnUnauthorized bool `envconfig:"STOREFRONT_AUTH_LOGOUT_ON_UNAUTHORIZED" default:"false"`
}

type MetricsConfig struct {
	Enabled bool `envconfig:"STOREFRONT_METRICS_ENABLED" default:"false"`
}

func (s StorageConfig) validate(db DBConfig, redis RedisConfig) error {
	switch s.NormalizedDriver() {
	case StorageDriverMemory:
		return nil
	case StorageDriverRedis:
		if redis.URL == "" && redis.Address == "" {
			return fmt.Errorf("either %s or %s is required for the redis storage driver", EnvRedisURL, EnvRedisAddr)
		}
		return nil
	case StorageDriverSQLite:
		if strings.TrimSpace(db.SQLitePath) == "" {
			return fmt.Errorf("%s is required for the sqlite storage driver", EnvSQLitePath)
		}
		return nil
	case StorageDriverPostgres:
		if db.DSN == "" {
			return fmt.Errorf("%s is required for the postgres storage driver", EnvDBDSN)
		}
		return nil
	default:
		return fmt.Errorf("unsupported %s %q", EnvStorageDriver, s.Driver)
	}
}
