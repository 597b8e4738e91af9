package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	NewRelic  NewRelicConfig
	Lifecycle LifecycleConfig
	Worker    WorkerConfig
	LogLevel  string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig holds the lifecycle event publisher configuration.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	Enabled bool
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// LifecycleConfig holds the tuning knobs of the quote/trip lifecycle.
type LifecycleConfig struct {
	PaymentWindow    time.Duration // QUOTED -> EXPIRED deadline
	GracePeriod      time.Duration // after scheduled trip end, before auto-complete
	Cooldown         time.Duration // post-trip hold before driver returns to AVAILABLE
	ThrottleInterval time.Duration // minimum gap between accepted location updates
	LocationTTL      time.Duration // trip location record lifetime
	SweepInterval    time.Duration // recurring pending-quote sweep
	AssignRetryDelay time.Duration // one-shot assignment retry after a failed submit
}

// WorkerConfig holds job worker configuration.
type WorkerConfig struct {
	PollInterval time.Duration
	Lease        time.Duration
	MaxAttempts  int
	MetricsAddr  string
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "charter"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: getSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getEnv("KAFKA_TOPIC", "charter-lifecycle-events"),
			Enabled: getBoolEnv("KAFKA_ENABLED", false),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "charter-booking-service"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Lifecycle: LifecycleConfig{
			PaymentWindow:    getDurationEnv("QUOTE_PAYMENT_WINDOW", 24*time.Hour),
			GracePeriod:      getDurationEnv("TRIP_GRACE_PERIOD", 24*time.Hour),
			Cooldown:         getDurationEnv("DRIVER_COOLDOWN", 24*time.Hour),
			ThrottleInterval: getDurationEnv("LOCATION_THROTTLE_INTERVAL", 5*time.Second),
			LocationTTL:      getDurationEnv("LOCATION_TTL", 24*time.Hour),
			SweepInterval:    getDurationEnv("PENDING_QUOTE_SWEEP_INTERVAL", 10*time.Minute),
			AssignRetryDelay: getDurationEnv("ASSIGN_RETRY_DELAY", time.Minute),
		},
		Worker: WorkerConfig{
			PollInterval: getDurationEnv("WORKER_POLL_INTERVAL", time.Second),
			Lease:        getDurationEnv("WORKER_JOB_LEASE", time.Minute),
			MaxAttempts:  getIntEnv("WORKER_MAX_ATTEMPTS", 5),
			MetricsAddr:  getEnv("WORKER_METRICS_ADDR", ":2112"),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
