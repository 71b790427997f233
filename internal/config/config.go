package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Logger LoggerConfig `yaml:"logger"`
	Store  StoreConfig  `yaml:"store"`
	Redis  RedisConfig  `yaml:"redis"`
	Kafka  KafkaConfig  `yaml:"kafka"`
}

type ServerConfig struct {
	AppEnv          string        `yaml:"app_env"`
	HTTPAddr        string        `yaml:"http_addr"`
	GRPCAddr        string        `yaml:"grpc_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LoggerConfig struct {
	Level             string `yaml:"level"`
	Encoding          string `yaml:"encoding"`
	DisableCaller     bool   `yaml:"disable_caller"`
	DisableStacktrace bool   `yaml:"disable_stacktrace"`
}

type StoreConfig struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
}

// RedisConfig with an empty Addr disables idempotent creates.
type RedisConfig struct {
	Addr           string        `yaml:"addr"`
	Password       string        `yaml:"password"`
	DB             int           `yaml:"db"`
	IdempotencyTTL time.Duration `yaml:"idempotency_ttl"`
}

// KafkaConfig with no Brokers disables event publishing.
type KafkaConfig struct {
	Brokers   []string `yaml:"brokers"`
	Topic     string   `yaml:"topic"`
	Workers   int      `yaml:"workers"`
	QueueSize int      `yaml:"queue_size"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			AppEnv:          "production",
			HTTPAddr:        ":8080",
			GRPCAddr:        ":50051",
			ShutdownTimeout: 5 * time.Second,
		},
		Logger: LoggerConfig{
			Level:             "info",
			Encoding:          "json",
			DisableStacktrace: true,
		},
		Store: StoreConfig{
			Driver:          DriverMySQL,
			DSN:             "root:root@tcp(localhost:3306)/inventory",
			MaxOpenConns:    50,
			MaxIdleConns:    25,
			ConnMaxLifetime: 5 * time.Minute,
			AutoMigrate:     true,
		},
		Redis: RedisConfig{
			IdempotencyTTL: 24 * time.Hour,
		},
		Kafka: KafkaConfig{
			Topic:     "inventory.items",
			Workers:   4,
			QueueSize: 1000,
		},
	}
}

// Load layers the YAML file at path (when given and present) and then the
// environment over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Server.AppEnv = getEnv("APP_ENV", cfg.Server.AppEnv)
	cfg.Server.HTTPAddr = getEnv("HTTP_ADDR", cfg.Server.HTTPAddr)
	cfg.Server.GRPCAddr = getEnv("GRPC_ADDR", cfg.Server.GRPCAddr)
	cfg.Server.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)

	cfg.Logger.Level = getEnv("LOGGER_LEVEL", cfg.Logger.Level)
	cfg.Logger.Encoding = getEnv("LOGGER_ENCODING", cfg.Logger.Encoding)
	cfg.Logger.DisableCaller = getEnvBool("LOGGER_DISABLE_CALLER", cfg.Logger.DisableCaller)
	cfg.Logger.DisableStacktrace = getEnvBool("LOGGER_DISABLE_STACKTRACE", cfg.Logger.DisableStacktrace)

	cfg.Store.Driver = getEnv("STORE_DRIVER", cfg.Store.Driver)
	cfg.Store.DSN = getEnv("MYSQL_DSN", cfg.Store.DSN)
	cfg.Store.MaxOpenConns = getEnvInt("MYSQL_MAX_OPEN_CONNS", cfg.Store.MaxOpenConns)
	cfg.Store.MaxIdleConns = getEnvInt("MYSQL_MAX_IDLE_CONNS", cfg.Store.MaxIdleConns)
	cfg.Store.ConnMaxLifetime = getEnvDuration("MYSQL_CONN_MAX_LIFETIME", cfg.Store.ConnMaxLifetime)
	cfg.Store.AutoMigrate = getEnvBool("STORE_AUTO_MIGRATE", cfg.Store.AutoMigrate)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.IdempotencyTTL = getEnvDuration("REDIS_IDEMPOTENCY_TTL", cfg.Redis.IdempotencyTTL)

	cfg.Kafka.Brokers = getEnvSlice("KAFKA_BROKERS", cfg.Kafka.Brokers)
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC_ITEMS", cfg.Kafka.Topic)
	cfg.Kafka.Workers = getEnvInt("KAFKA_WORKERS", cfg.Kafka.Workers)
	cfg.Kafka.QueueSize = getEnvInt("KAFKA_QUEUE_SIZE", cfg.Kafka.QueueSize)
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMySQL:
		if c.Store.DSN == "" {
			return errors.New("store.dsn is required for the mysql driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	if len(c.Kafka.Brokers) > 0 {
		if c.Kafka.Topic == "" {
			return errors.New("kafka.topic is required when brokers are set")
		}
		if c.Kafka.Workers <= 0 || c.Kafka.QueueSize <= 0 {
			return errors.New("kafka.workers and kafka.queue_size must be positive")
		}
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Server.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if value, ok := os.LookupEnv(key); ok {
		if value == "" {
			return nil
		}
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return fallback
}
