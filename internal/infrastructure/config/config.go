package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Gateway       GatewayConfig       `mapstructure:"gateway"`
	Worker        WorkerConfig        `mapstructure:"worker"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	InstanceID    string              `mapstructure:"instance_id"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimitPerMin int           `mapstructure:"rate_limit_per_min"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SSLMode         string        `mapstructure:"ssl_mode"`
}

type RedisConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	DB                int           `mapstructure:"db"`
	Password          string        `mapstructure:"password"`
	ConnectRetries    int           `mapstructure:"connect_retries"`
	ConnectRetryDelay time.Duration `mapstructure:"connect_retry_delay"`
}

// MerchantConfig is one merchant's signing material and notification target.
// Loaded once at startup and treated as immutable afterwards.
type MerchantConfig struct {
	MerchantID string `mapstructure:"merchant_id"`
	SaltKey    string `mapstructure:"salt_key"`
	SaltIndex  string `mapstructure:"salt_index"`
	WebhookURL string `mapstructure:"webhook_url"`
}

type GatewayConfig struct {
	Merchants       []MerchantConfig `mapstructure:"merchants"`
	UpsertTimeout   time.Duration    `mapstructure:"upsert_timeout"`
	UpsertRetries   uint             `mapstructure:"upsert_retries"`
	MaxBodyBytes    int64            `mapstructure:"max_body_bytes"`
	StateCacheTTL   time.Duration    `mapstructure:"state_cache_ttl"`
	ReviewPageLimit int              `mapstructure:"review_page_limit"`
}

type WorkerConfig struct {
	BatchSize               int64         `mapstructure:"batch_size"`
	BlockDuration           time.Duration `mapstructure:"block_duration"`
	ConsumerGroup           string        `mapstructure:"consumer_group"`
	ReclaimInterval         time.Duration `mapstructure:"reclaim_interval"`
	ReclaimMinIdle          time.Duration `mapstructure:"reclaim_min_idle"`
	DeliveryTimeout         time.Duration `mapstructure:"delivery_timeout"`
	DeliveryRetries         uint          `mapstructure:"delivery_retries"`
	DeliveryLockTTL         time.Duration `mapstructure:"delivery_lock_ttl"`
	CircuitBreakerThreshold uint32        `mapstructure:"circuit_breaker_threshold"`
	CircuitBreakerTimeout   time.Duration `mapstructure:"circuit_breaker_timeout"`
}

type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	EnableMetrics  bool   `mapstructure:"enable_metrics"`
	EnableTracing  bool   `mapstructure:"enable_tracing"`
}

func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("GATEWAY")
	v.AutomaticEnv()

	// Read from config file if exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/callback-gateway")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.read_timeout must be positive"))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.write_timeout must be positive"))
	}
	if c.Database.Host == "" {
		errs = append(errs, fmt.Errorf("database.host is required"))
	}
	if c.Database.Port <= 0 {
		errs = append(errs, fmt.Errorf("database.port must be positive"))
	}
	if c.Redis.Port <= 0 {
		errs = append(errs, fmt.Errorf("redis.port must be positive"))
	}
	if c.Gateway.UpsertTimeout <= 0 {
		errs = append(errs, fmt.Errorf("gateway.upsert_timeout must be positive"))
	}
	if c.Gateway.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("gateway.max_body_bytes must be positive"))
	}
	if c.Worker.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("worker.batch_size must be positive"))
	}

	seen := make(map[string]bool, len(c.Gateway.Merchants))
	for i, m := range c.Gateway.Merchants {
		if m.MerchantID == "" {
			errs = append(errs, fmt.Errorf("gateway.merchants[%d].merchant_id is required", i))
			continue
		}
		if seen[m.MerchantID] {
			errs = append(errs, fmt.Errorf("gateway.merchants: duplicate merchant_id %q", m.MerchantID))
		}
		seen[m.MerchantID] = true
		if m.SaltKey == "" || m.SaltIndex == "" {
			errs = append(errs, fmt.Errorf("gateway.merchants[%d]: salt_key and salt_index are required", i))
		}
	}

	// Production environment checks
	env := os.Getenv("ENV")
	if env == "production" || env == "prod" {
		if c.Database.Password == "" {
			errs = append(errs, fmt.Errorf("database.password required in production"))
		}
		if len(c.Gateway.Merchants) == 0 {
			errs = append(errs, fmt.Errorf("gateway.merchants required in production"))
		}
	}

	return errors.Join(errs...)
}

// MerchantByID looks up a merchant's configuration. The bool is false for
// merchants the gateway was not provisioned with.
func (c *GatewayConfig) MerchantByID(merchantID string) (MerchantConfig, bool) {
	for _, m := range c.Merchants {
		if m.MerchantID == merchantID {
			return m, true
		}
	}
	return MerchantConfig{}, false
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.rate_limit_per_min", 600)
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.cors.allow_credentials", false)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "gateway")
	v.SetDefault("database.database", "gateway")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.ssl_mode", "disable")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.connect_retries", 5)
	v.SetDefault("redis.connect_retry_delay", "1s")

	// Gateway defaults
	v.SetDefault("gateway.upsert_timeout", "5s")
	v.SetDefault("gateway.upsert_retries", 3)
	v.SetDefault("gateway.max_body_bytes", 1<<20)
	v.SetDefault("gateway.state_cache_ttl", "10m")
	v.SetDefault("gateway.review_page_limit", 50)

	// Worker defaults
	v.SetDefault("worker.batch_size", 10)
	v.SetDefault("worker.block_duration", "1s")
	v.SetDefault("worker.consumer_group", "merchant-notifiers")
	v.SetDefault("worker.reclaim_interval", "30s")
	v.SetDefault("worker.reclaim_min_idle", "1m")
	v.SetDefault("worker.delivery_timeout", "10s")
	v.SetDefault("worker.delivery_retries", 5)
	v.SetDefault("worker.delivery_lock_ttl", "30s")
	v.SetDefault("worker.circuit_breaker_threshold", 10)
	v.SetDefault("worker.circuit_breaker_timeout", "30s")

	// Observability defaults
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.enable_tracing", true)

	// Instance ID
	v.SetDefault("instance_id", "gateway-1")
}

func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
