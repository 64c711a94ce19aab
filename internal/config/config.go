package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server  ServerConfig
	Stream  StreamConfig
	Ingest  IngestConfig
	Worker  WorkerConfig
	Uploads UploadsConfig
	DB      DatabaseConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	RateLimitRPS int
}

type StreamConfig struct {
	KeepAliveInterval time.Duration
	SubscriberBuffer  int
}

type IngestConfig struct {
	// APIKey is the shared secret detector producers must present as a
	// bearer token. Empty disables the check.
	APIKey string
}

type WorkerConfig struct {
	Count      int
	BufferSize int
}

type UploadsConfig struct {
	Dir          string
	MaxImageSize int64
}

type DatabaseConfig struct {
	Path string
}

type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "localhost"),
			Port:         getEnvInt("SERVER_PORT", 5000),
			RateLimitRPS: getEnvInt("RATE_LIMIT_RPS", 25),
		},
		Stream: StreamConfig{
			KeepAliveInterval: getEnvDuration("STREAM_KEEPALIVE_INTERVAL", 30*time.Second),
			SubscriberBuffer:  getEnvInt("STREAM_SUBSCRIBER_BUFFER", 64),
		},
		Ingest: IngestConfig{
			APIKey: getEnv("INGEST_API_KEY", ""),
		},
		Worker: WorkerConfig{
			Count:      getEnvInt("WORKER_COUNT", 2),
			BufferSize: getEnvInt("WORKER_BUFFER_SIZE", 20),
		},
		Uploads: UploadsConfig{
			Dir:          getEnv("UPLOADS_DIR", "./uploads"),
			MaxImageSize: int64(getEnvInt("UPLOADS_MAX_IMAGE_BYTES", 5*1024*1024)),
		},
		DB: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/camm.db"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Stream.KeepAliveInterval < time.Second {
		return fmt.Errorf("stream keep-alive interval must be at least 1 second")
	}
	if c.Stream.SubscriberBuffer < 1 {
		return fmt.Errorf("stream subscriber buffer must be at least 1")
	}
	if c.Uploads.MaxImageSize < 1 {
		return fmt.Errorf("max image size must be positive")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
