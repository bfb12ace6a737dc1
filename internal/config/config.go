// Package config centralises configuration parsing for the roster client.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures runtime configuration values for the roster client.
type Config struct {
	AuthorityURL   string
	HTTPTimeout    time.Duration
	PollInterval   time.Duration // Interval between roster refreshes in watch mode without a change feed.
	StaleGuard     bool          // Discard refresh responses older than the applied snapshot.
	KafkaBrokers   []string      // Empty disables the change feed.
	KafkaTopic     string
	KafkaGroupID   string
	MetricsAddress string // Empty disables the /metrics listener.
	LogLevel       slog.Level
}

// Load reads environment variables into Config, applying defaults for local dev.
func Load() Config {
	cfg := Config{
		AuthorityURL:   getEnv("ROSTER_AUTHORITY_URL", "http://localhost:8000"),
		HTTPTimeout:    getDurationEnv("ROSTER_HTTP_TIMEOUT", 10*time.Second),
		PollInterval:   getDurationEnv("ROSTER_POLL_INTERVAL", 30*time.Second),
		StaleGuard:     getBoolEnv("ROSTER_STALE_GUARD", false),
		KafkaTopic:     getEnv("ROSTER_KAFKA_TOPIC", "roster_changes"),
		KafkaGroupID:   getEnv("ROSTER_KAFKA_GROUP", "roster-client"),
		MetricsAddress: getEnv("ROSTER_METRICS_ADDRESS", ""),
		LogLevel:       getLevelEnv("ROSTER_LOG_LEVEL", slog.LevelInfo),
	}

	cfg.KafkaBrokers = splitAndTrim(getEnv("ROSTER_KAFKA_BROKERS", ""))
	return cfg
}

// ChangeFeedEnabled reports whether Kafka brokers are configured.
func (c Config) ChangeFeedEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getLevelEnv(key string, fallback slog.Level) slog.Level {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(value)); err == nil {
			return level
		}
	}
	return fallback
}
