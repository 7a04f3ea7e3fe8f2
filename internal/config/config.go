// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string `env:"APP_PORT" envDefault:"8003"`

	// Database (PostgreSQL)
	DBUser     string `env:"DB_USER,required"`
	DBPassword string `env:"DB_PASSWORD,required"`
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBName     string `env:"DB_NAME,required"`

	RedisURL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	NatsURL  string `env:"NATS_URL" envDefault:"nats://localhost:4222"`

	JWTSecret       string        `env:"JWT_SECRET,required"`
	SessionTokenTTL time.Duration `env:"SESSION_TOKEN_TTL" envDefault:"720h"`
	LoginTokenTTL   time.Duration `env:"LOGIN_TOKEN_TTL" envDefault:"15m"`

	// Object storage (S3-compatible)
	S3Endpoint     string `env:"S3_ENDPOINT,required"`
	AWSRegion      string `env:"AWS_REGION" envDefault:"us-east-1"`
	S3BucketName   string `env:"S3_BUCKET_NAME" envDefault:"user-images"`
	AWSAccessKey   string `env:"AWS_ACCESS_KEY_ID,required"`
	AWSSecretKey   string `env:"AWS_SECRET_ACCESS_KEY,required"`
	S3UsePathStyle bool   `env:"S3_USE_PATH_STYLE" envDefault:"false"`

	// Upload limits
	MaxUploadBytes    int64    `env:"MAX_UPLOAD_BYTES" envDefault:"5242880"`
	AllowedImageTypes []string `env:"ALLOWED_IMAGE_TYPES" envSeparator:"," envDefault:"image/jpeg,image/jpg,image/png,image/webp"`

	PublicSiteURL string `env:"PUBLIC_SITE_URL" envDefault:"http://localhost:3000"`

	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	OtelEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"jaeger:4317"`
}

// Load reads .env.dev when present, then parses the environment.
func Load() (*Config, error) {
	godotenv.Load(".env.dev")

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}
