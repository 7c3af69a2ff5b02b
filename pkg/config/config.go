package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	ServerPort         string
	AppBaseURL         string
	RateLimitPerMinute int
	LogLevel           string

	// Database
	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	AutoMigrate bool

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// JWT
	JWTSecret string

	// Scheduler
	DueSoonSchedule      string
	OverdueSchedule      string
	DueSoonLookaheadDays int
	ScanBatchLimit       int
	JobLockTTL           time.Duration
	Location             *time.Location

	// Mail outbox
	OutboxInterval       time.Duration
	OutboxBatchSize      int
	OutboxMaxRetries     int
	OutboxBaseRetryDelay time.Duration
	OutboxSendTimeout    time.Duration

	// SMTP
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPTLS      bool
}

func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	loc, err := time.LoadLocation(getEnv("TIMEZONE", "Local"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	config := &Config{
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		AppBaseURL:         getEnv("APP_BASE_URL", "http://localhost:3000"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		LogLevel:           getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  getEnv("DB_PASSWORD", "postgres"),
		DBName:      getEnv("DB_NAME", "taskflow"),
		DBSSLMode:   getEnv("DB_SSLMODE", "disable"),
		AutoMigrate: getEnv("DB_AUTO_MIGRATE", "true") == "true",

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		JWTSecret: getEnv("JWT_SECRET", "your-secret-key-change-in-production"),

		DueSoonSchedule:      getEnv("DUE_SOON_SCHEDULE", "@every 1h"),
		OverdueSchedule:      getEnv("OVERDUE_SCHEDULE", "@every 1m"),
		DueSoonLookaheadDays: getEnvInt("DUE_SOON_LOOKAHEAD_DAYS", 2),
		ScanBatchLimit:       getEnvInt("SCAN_BATCH_LIMIT", 500),
		JobLockTTL:           getEnvDuration("JOB_LOCK_TTL", 5*time.Minute),
		Location:             loc,

		OutboxInterval:       getEnvDuration("OUTBOX_INTERVAL", 10*time.Second),
		OutboxBatchSize:      getEnvInt("OUTBOX_BATCH_SIZE", 50),
		OutboxMaxRetries:     getEnvInt("OUTBOX_MAX_RETRIES", 5),
		OutboxBaseRetryDelay: getEnvDuration("OUTBOX_BASE_RETRY_DELAY", 30*time.Second),
		OutboxSendTimeout:    getEnvDuration("OUTBOX_SEND_TIMEOUT", 30*time.Second),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", "no-reply@taskflow.local"),
		SMTPTLS:      getEnv("SMTP_TLS", "false") == "true",
	}

	return config, nil
}

// PostgresDSN builds a DSN from the discrete DB_* settings.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost,
		c.DBUser,
		c.DBPassword,
		c.DBName,
		c.DBPort,
		c.DBSSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}
