package config

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/citysmiles/dental-admin/internal/remote/postgres"
	"github.com/citysmiles/dental-admin/pkg/errors"
	"github.com/citysmiles/dental-admin/pkg/messaging/redis"
	"github.com/citysmiles/dental-admin/pkg/worker"
)

const (
	SourcePostgres = "postgres"
	SourceRedis    = "redis"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Remote    RemoteConfig    `mapstructure:"-"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Realtime  RealtimeConfig  `mapstructure:"realtime"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Relay     RelayConfig     `mapstructure:"relay"`
	Forms     FormsConfig     `mapstructure:"forms"`
	Lookup    LookupConfig    `mapstructure:"lookup"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	Release         bool          `mapstructure:"release"`
}

// RemoteConfig holds the two connection parameters. They only come from the
// environment and both are required.
type RemoteConfig struct {
	Endpoint  string `envconfig:"REMOTE_ENDPOINT" required:"true"`
	AccessKey string `envconfig:"REMOTE_ACCESS_KEY" required:"true"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RealtimeConfig struct {
	// Source is where API instances take change events from: the database
	// directly or the relay's redis channels.
	Source string `mapstructure:"source"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type RelayConfig struct {
	Buffer        int           `mapstructure:"buffer"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	HealthPort    int           `mapstructure:"health_port"`
}

type FormsConfig struct {
	CompensatePrescriptions bool `mapstructure:"compensate_prescriptions"`
}

type LookupConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("realtime.source", SourcePostgres)

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("relay.buffer", 256)
	v.SetDefault("relay.retry_attempts", 3)
	v.SetDefault("relay.retry_delay", 500*time.Millisecond)
	v.SetDefault("relay.health_port", 8081)

	v.SetDefault("forms.compensate_prescriptions", false)
	v.SetDefault("lookup.ttl", 5*time.Minute)

	v.SetDefault("rate_limit.requests_per_second", 20)
	v.SetDefault("rate_limit.burst", 40)

	v.SetDefault("logging.level", "info")
	v.SetDefault("metrics.namespace", "clinic")
}

// LoadConfig reads config.yml from . or ./config when present, then
// CLINIC_* environment overrides, then the required connection parameters.
func LoadConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("clinic")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) {
			return nil, errors.Config("failed to read config file", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Config("failed to unmarshal config", err)
	}

	if err := envconfig.Process("clinic", &config.Remote); err != nil {
		return nil, errors.Config("missing remote connection parameters", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Remote.Endpoint) == "" || strings.TrimSpace(c.Remote.AccessKey) == "" {
		return errors.Config("remote endpoint and access key must not be empty", nil)
	}
	switch c.Realtime.Source {
	case SourcePostgres, SourceRedis:
	default:
		return errors.Config(fmt.Sprintf("realtime.source must be %s or %s, got %q", SourcePostgres, SourceRedis, c.Realtime.Source), nil)
	}
	if c.Server.Port <= 0 {
		return errors.Config("server.port must be positive", nil)
	}
	if c.Lookup.TTL <= 0 {
		return errors.Config("lookup.ttl must be positive", nil)
	}
	return nil
}

// DSN builds the database connection string from the remote parameters.
func (c *Config) DSN() (string, error) {
	dsn, err := postgres.DSN(c.Remote.Endpoint, c.Remote.AccessKey)
	if err != nil {
		return "", errors.Config("invalid remote endpoint", err)
	}
	return dsn, nil
}

func (c *DatabaseConfig) ToPoolConfig() postgres.PoolConfig {
	return postgres.PoolConfig{
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}
}

func (c *RelayConfig) ToWorkerConfig() worker.RelayConfig {
	return worker.RelayConfig{
		Buffer:        c.Buffer,
		RetryAttempts: c.RetryAttempts,
		RetryDelay:    c.RetryDelay,
	}
}

func (c *RedisConfig) ToBrokerConfig() redis.Config {
	return redis.Config{
		URL:          c.URL,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: c.RetryBackoff,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
}
