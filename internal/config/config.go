package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the server configuration, read from the environment (and .env when present)
type Config struct {
	Host     string
	Port     string
	GinMode  string
	LogLevel string
	LogFile  string

	Database  DatabaseConfig
	Auth      AuthConfig
	Realtime  RealtimeConfig
	Storage   StorageConfig
	Feed      FeedConfig
	Telemetry TelemetryConfig

	RepairSchedule string
	CORSOrigins    []string
}

type DatabaseConfig struct {
	Driver   string // postgres, sqlite, mongo
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	MongoURI string
	MongoDB  string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type RealtimeConfig struct {
	Relay         string // none, redis, nats
	RedisAddr     string
	RedisPassword string
	NATSURL       string
	Channel       string

	// inbound socket messages per connection
	MessagesPerSecond int
	Burst             int
}

type StorageConfig struct {
	Driver       string // local, s3
	UploadDir    string
	MediaBaseURL string
	AWSRegion    string
	S3Bucket     string
}

type FeedConfig struct {
	MaxPageSize  int
	RankStrategy string // indexed, scan
}

type TelemetryConfig struct {
	Enabled      bool
	Endpoint     string
	SamplingRate float64
	Environment  string
}

// Load reads .env (if any) and the process environment
func Load() (*Config, error) {
	// .env is optional; real deployments inject the environment directly
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Host:     v.GetString("HOST"),
		Port:     v.GetString("PORT"),
		GinMode:  v.GetString("GIN_MODE"),
		LogLevel: v.GetString("LOG_LEVEL"),
		LogFile:  v.GetString("LOG_FILE"),
		Database: DatabaseConfig{
			Driver:   strings.ToLower(v.GetString("DB_DRIVER")),
			URL:      v.GetString("DATABASE_URL"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
			MongoURI: v.GetString("MONGO_URI"),
			MongoDB:  v.GetString("MONGO_DB"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("JWT_SECRET"),
			TokenTTL:  v.GetDuration("JWT_TTL"),
		},
		Realtime: RealtimeConfig{
			Relay:         strings.ToLower(v.GetString("REALTIME_RELAY")),
			RedisAddr:     v.GetString("REDIS_ADDR"),
			RedisPassword: v.GetString("REDIS_PASSWORD"),
			NATSURL:       v.GetString("NATS_URL"),
			Channel:       v.GetString("REALTIME_CHANNEL"),

			MessagesPerSecond: v.GetInt("WS_MAX_MESSAGES_PER_SECOND"),
			Burst:             v.GetInt("WS_BURST"),
		},
		Storage: StorageConfig{
			Driver:       strings.ToLower(v.GetString("STORAGE_DRIVER")),
			UploadDir:    v.GetString("UPLOAD_DIR"),
			MediaBaseURL: v.GetString("MEDIA_BASE_URL"),
			AWSRegion:    v.GetString("AWS_REGION"),
			S3Bucket:     v.GetString("AWS_S3_BUCKET"),
		},
		Feed: FeedConfig{
			MaxPageSize:  v.GetInt("FEED_MAX_PAGE_SIZE"),
			RankStrategy: strings.ToLower(v.GetString("FEED_RANK_STRATEGY")),
		},
		Telemetry: TelemetryConfig{
			Enabled:      v.GetBool("OTEL_ENABLED"),
			Endpoint:     v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			SamplingRate: v.GetFloat64("OTEL_SAMPLING_RATE"),
			Environment:  v.GetString("ENVIRONMENT"),
		},
		RepairSchedule: v.GetString("REPAIR_SCHEDULE"),
		CORSOrigins:    splitList(v.GetString("CORS_ORIGINS")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", "5000")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "server.log")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "socialflow")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("MONGO_DB", "socialflow")

	v.SetDefault("JWT_TTL", time.Hour)

	v.SetDefault("REALTIME_RELAY", "none")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("NATS_URL", "nats://localhost:4222")
	v.SetDefault("REALTIME_CHANNEL", "socialflow.events")
	v.SetDefault("WS_MAX_MESSAGES_PER_SECOND", 10)
	v.SetDefault("WS_BURST", 20)

	v.SetDefault("STORAGE_DRIVER", "local")
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("MEDIA_BASE_URL", "http://localhost:5000/")

	v.SetDefault("FEED_MAX_PAGE_SIZE", 50)
	v.SetDefault("FEED_RANK_STRATEGY", "indexed")

	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")
	v.SetDefault("OTEL_SAMPLING_RATE", 1.0)
	v.SetDefault("ENVIRONMENT", "development")

	v.SetDefault("REPAIR_SCHEDULE", "@every 30m")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
}

// Validate checks the settings that have no safe default
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite", "mongo":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Database.Driver == "mongo" && c.Database.MongoURI == "" {
		return fmt.Errorf("MONGO_URI is required when DB_DRIVER=mongo")
	}
	switch c.Realtime.Relay {
	case "none", "redis", "nats":
	default:
		return fmt.Errorf("unsupported REALTIME_RELAY %q", c.Realtime.Relay)
	}
	switch c.Storage.Driver {
	case "local":
	case "s3":
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("AWS_S3_BUCKET is required when STORAGE_DRIVER=s3")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.Storage.Driver)
	}
	if c.Feed.MaxPageSize <= 0 {
		return fmt.Errorf("FEED_MAX_PAGE_SIZE must be positive")
	}
	return nil
}

// PostgresDSN builds a DSN from DATABASE_URL or the DB_* parts
func (d DatabaseConfig) PostgresDSN() string {
	if d.URL != "" {
		return d.URL
	}
	dsn := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Name, d.SSLMode)
	if d.Password != "" {
		dsn += " password=" + d.Password
	}
	return dsn
}

// Addr is the listen address
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
