package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads the YAML file at path, then a .env file if present, then applies environment overrides.
// A missing YAML file is not an error; defaults and the environment are enough to run.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	// Применяем переменные окружения (переопределяют значения из файла)
	applyEnvOverrides(cfg)

	if err := cfg.parseDurations(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a config that runs against local Redis and Postgres.
func Default() *Config {
	cfg := &Config{}

	cfg.Server.Port = 3000
	cfg.Server.ReadTimeoutStr = "10s"
	cfg.Server.WriteTimeoutStr = "10s"
	cfg.Server.ShutdownTimeoutStr = "15s"

	cfg.PostgreSQL.Host = "localhost"
	cfg.PostgreSQL.Port = 5432
	cfg.PostgreSQL.User = "postgres"
	cfg.PostgreSQL.Database = "btcinvest"
	cfg.PostgreSQL.SSLMode = "disable"
	cfg.PostgreSQL.MaxOpenConns = 10
	cfg.PostgreSQL.MaxIdleConns = 5
	cfg.PostgreSQL.ConnMaxLifetimeStr = "30m"

	cfg.Redis.Host = "localhost"
	cfg.Redis.Port = 6379
	cfg.Redis.PoolSize = 10
	cfg.Redis.KeyPrefix = "bitcoin-investment-api"

	cfg.Queue.Driver = "redis"
	cfg.Queue.CacheSaverQueue = "cache-saver-queue"
	cfg.Queue.DepositEmailQueue = "new-deposit-confirmation-email-queue"
	cfg.Queue.ConsumerGroup = "btcinvest"
	cfg.Queue.MaxDeliveries = 5
	cfg.Queue.ClaimIdleStr = "30s"
	cfg.Queue.BlockStr = "5s"
	cfg.Queue.MaxLen = 10000
	cfg.Queue.MemoryBuffer = 256

	cfg.PriceAPI.BaseURL = "https://api.mercadobitcoin.net/api/v4"
	cfg.PriceAPI.Symbol = "BTC-BRL"
	cfg.PriceAPI.TimeoutStr = "5s"

	cfg.Price.Mode = "live"
	cfg.Price.TestStartPrice = 350000

	cfg.Cache.PriceTTLStr = "1800s"

	cfg.Workers.CachePopulators = 1
	cfg.Workers.MailDispatchers = 1

	cfg.Timeouts.CacheStr = "2s"
	cfg.Timeouts.OriginStr = "5s"
	cfg.Timeouts.QueueStr = "2s"
	cfg.Timeouts.MailStr = "10s"

	cfg.Auth.TokenTTLStr = "1h"
	cfg.Auth.Issuer = "btcinvest"
	cfg.Auth.BcryptCost = 10

	cfg.Mail.FromName = "BTC Invest"
	cfg.Mail.FromAddress = "no-reply@btcinvest.local"

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"

	return cfg
}

func (c *Config) parseDurations() error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"server.read_timeout", c.Server.ReadTimeoutStr, &c.Server.ReadTimeout},
		{"server.write_timeout", c.Server.WriteTimeoutStr, &c.Server.WriteTimeout},
		{"server.shutdown_timeout", c.Server.ShutdownTimeoutStr, &c.Server.ShutdownTimeout},
		{"postgresql.conn_max_lifetime", c.PostgreSQL.ConnMaxLifetimeStr, &c.PostgreSQL.ConnMaxLifetime},
		{"queue.claim_idle", c.Queue.ClaimIdleStr, &c.Queue.ClaimIdle},
		{"queue.block", c.Queue.BlockStr, &c.Queue.Block},
		{"price_api.timeout", c.PriceAPI.TimeoutStr, &c.PriceAPI.Timeout},
		{"cache.price_ttl", c.Cache.PriceTTLStr, &c.Cache.PriceTTL},
		{"timeouts.cache", c.Timeouts.CacheStr, &c.Timeouts.Cache},
		{"timeouts.origin", c.Timeouts.OriginStr, &c.Timeouts.Origin},
		{"timeouts.queue", c.Timeouts.QueueStr, &c.Timeouts.Queue},
		{"timeouts.mail", c.Timeouts.MailStr, &c.Timeouts.Mail},
		{"auth.token_ttl", c.Auth.TokenTTLStr, &c.Auth.TokenTTL},
	}

	for _, f := range fields {
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	switch c.Queue.Driver {
	case "redis", "memory":
	case "rabbitmq":
		if c.Queue.RabbitMQURL == "" {
			errs = append(errs, errors.New("queue.rabbitmq_url is required for the rabbitmq driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown queue.driver %q", c.Queue.Driver))
	}
	if c.Queue.CacheSaverQueue == "" || c.Queue.DepositEmailQueue == "" {
		errs = append(errs, errors.New("queue names must not be empty"))
	}
	if c.Queue.MaxDeliveries <= 0 {
		errs = append(errs, errors.New("queue.max_deliveries must be positive"))
	}
	if c.Queue.MaxLen < 0 {
		errs = append(errs, errors.New("queue.max_len must not be negative"))
	}
	if c.PriceAPI.BaseURL == "" {
		errs = append(errs, errors.New("price_api.base_url is required"))
	}
	if c.Price.Mode != "live" && c.Price.Mode != "test" {
		errs = append(errs, fmt.Errorf("price.mode must be live or test, got %q", c.Price.Mode))
	}
	if c.Cache.PriceTTL <= 0 {
		errs = append(errs, errors.New("cache.price_ttl must be positive"))
	}
	for name, d := range map[string]time.Duration{
		"timeouts.cache":  c.Timeouts.Cache,
		"timeouts.origin": c.Timeouts.Origin,
		"timeouts.queue":  c.Timeouts.Queue,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required (JWT_SECRET)"))
	}

	return errors.Join(errs...)
}

func applyEnvOverrides(cfg *Config) {
	// PostgreSQL
	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		cfg.PostgreSQL.Host = v
	}
	if v := os.Getenv("POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.PostgreSQL.Port = port
		}
	}
	if v := os.Getenv("POSTGRES_USER"); v != "" {
		cfg.PostgreSQL.User = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		cfg.PostgreSQL.Password = v
	}
	if v := os.Getenv("POSTGRES_DB"); v != "" {
		cfg.PostgreSQL.Database = v
	}

	// Redis
	if v := os.Getenv("REDIS_HOST"); v != "" {
		cfg.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Redis.Port = port
		}
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}

	// Queue
	if v := os.Getenv("QUEUE_DRIVER"); v != "" {
		cfg.Queue.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		cfg.Queue.RabbitMQURL = v
	}
	if v := os.Getenv("QUEUE_MAX_LEN"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Queue.MaxLen = n
		}
	}
	if v := os.Getenv("CACHE_SAVER_QUEUE"); v != "" {
		cfg.Queue.CacheSaverQueue = v
	}
	if v := os.Getenv("NEW_DEPOSIT_CONFIRMATION_EMAIL_QUEUE_NAME"); v != "" {
		cfg.Queue.DepositEmailQueue = v
	}

	// Price
	if v := os.Getenv("BTC_API_URL"); v != "" {
		cfg.PriceAPI.BaseURL = v
	}
	if v := os.Getenv("PRICE_MODE"); v != "" {
		cfg.Price.Mode = strings.ToLower(v)
	}

	// Auth and mail
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("SENDGRID_API_KEY"); v != "" {
		cfg.Mail.SendGridAPIKey = v
	}
	if v := os.Getenv("SENDGRID_SENDER"); v != "" {
		cfg.Mail.FromAddress = v
	}

	// Server
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host, c.PostgreSQL.Port, c.PostgreSQL.User,
		c.PostgreSQL.Password, c.PostgreSQL.Database, c.PostgreSQL.SSLMode,
	)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
