package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	HTTPPort     string
	AppMode      string
	FiberPrefork bool

	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string

	WorkerBufferSize int
	WorkerBatchSize  int
	WorkerFlushEvery time.Duration
}

// Load reads configuration from environment variables with sane defaults.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:         getEnv("HTTP_PORT", ":8080"),
		AppMode:          strings.ToLower(getEnv("APP_MODE", "dev")),
		FiberPrefork:     parseBoolEnv("FIBER_PREFORK", false),
		InfluxBucket:     getEnv("INFLUXDB_BUCKET", "stream-events"),
		WorkerBufferSize: parseIntEnv("WORKER_BUFFER_SIZE", 1000),
		WorkerBatchSize:  parseIntEnv("WORKER_BATCH_SIZE", 100),
		WorkerFlushEvery: parseDurationEnv("WORKER_FLUSH_EVERY", 5*time.Second),
	}

	cfg.InfluxURL = os.Getenv("INFLUXDB_URL")
	if cfg.InfluxURL == "" {
		return nil, fmt.Errorf("INFLUXDB_URL is required")
	}
	cfg.InfluxToken = os.Getenv("INFLUXDB_TOKEN")
	if cfg.InfluxToken == "" {
		return nil, fmt.Errorf("INFLUXDB_TOKEN is required")
	}
	cfg.InfluxOrg = os.Getenv("INFLUXDB_ORG")
	if cfg.InfluxOrg == "" {
		return nil, fmt.Errorf("INFLUXDB_ORG is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseBoolEnv(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseIntEnv(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseDurationEnv(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}
