// Package config 从环境变量（可选 .env 文件）加载配置
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig
	HTTP       HTTPConfig
	MySQL      MySQLConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	SMTP       SMTPConfig
	JWT        JWTConfig
	Moderation ModerationConfig
	Outbox     OutboxConfig
	RateLimit  RateLimitConfig
}

type AppConfig struct {
	Environment string `env:"APP_ENV,default=development"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`
}

type HTTPConfig struct {
	Addr         string        `env:"HTTP_ADDR,default=:8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT,default=15s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT,default=15s"`
}

type MySQLConfig struct {
	DSN         string `env:"MYSQL_DSN,default=user:password@tcp(127.0.0.1:3306)/library?charset=utf8mb4&parseTime=True"`
	AutoMigrate bool   `env:"MYSQL_AUTO_MIGRATE,default=true"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,default=0"`
}

type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS"`
	Topic   string   `env:"KAFKA_TOPIC,default=library.notifications"`
}

type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT,default=587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM"`
}

type JWTConfig struct {
	AccessSecret string `env:"JWT_ACCESS_SECRET"`
}

type ModerationConfig struct {
	Endpoint string `env:"MODERATION_ENDPOINT"`
	APIKey   string `env:"MODERATION_API_KEY"`
}

type OutboxConfig struct {
	Interval  time.Duration `env:"OUTBOX_INTERVAL,default=1s"`
	BatchSize int           `env:"OUTBOX_BATCH_SIZE,default=200"`
	MaxRetry  int           `env:"OUTBOX_MAX_RETRY,default=5"`
}

type RateLimitConfig struct {
	RPS   float64 `env:"RATE_LIMIT_RPS,default=5"`
	Burst int     `env:"RATE_LIMIT_BURST,default=10"`
}

// Load 先读 .env（不存在则忽略），再解析环境变量
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.JWT.AccessSecret == "" {
		return errors.New("JWT_ACCESS_SECRET is required")
	}
	if len(c.Kafka.Brokers) > 0 && strings.TrimSpace(c.Kafka.Topic) == "" {
		return errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	if c.SMTP.Host != "" && c.SMTP.From == "" {
		return errors.New("SMTP_FROM is required when SMTP_HOST is set")
	}
	if c.Outbox.BatchSize <= 0 {
		return errors.New("OUTBOX_BATCH_SIZE must be positive")
	}
	return nil
}
