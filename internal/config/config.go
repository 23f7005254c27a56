package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	Environment   string `mapstructure:"ENV"`
	DBDSN         string `mapstructure:"DB_DSN"`
	StorageDriver string `mapstructure:"STORAGE_DRIVER"`

	HTTPAddr  string `mapstructure:"HTTP_ADDR"`
	JWTSecret string `mapstructure:"JWT_SECRET"`

	TelegramToken string `mapstructure:"TELEGRAM_TOKEN"`

	RedisURL           string `mapstructure:"REDIS_URL"`
	RateLimitPerMinute int    `mapstructure:"RATE_LIMIT_PER_MINUTE"`

	KafkaBrokers []string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string   `mapstructure:"KAFKA_TOPIC"`

	BookingMinLeadDays    int    `mapstructure:"BOOKING_MIN_LEAD_DAYS"`
	BookingMaxLeadDays    int    `mapstructure:"BOOKING_MAX_LEAD_DAYS"`
	AvailabilityPolicy    string `mapstructure:"AVAILABILITY_POLICY"`
	ReminderCron          string `mapstructure:"REMINDER_CRON"`
	AvailabilityCacheSize int    `mapstructure:"AVAILABILITY_CACHE_SIZE"`
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	return FromEnv(os.Getenv)
}

// FromEnv собирает конфигурацию из переменных окружения
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Environment:        getenv("ENV"),
		DBDSN:              getenv("DB_DSN"),
		StorageDriver:      strings.ToLower(getenv("STORAGE_DRIVER")),
		HTTPAddr:           getenv("HTTP_ADDR"),
		JWTSecret:          getenv("JWT_SECRET"),
		TelegramToken:      getenv("TELEGRAM_TOKEN"),
		RedisURL:           getenv("REDIS_URL"),
		KafkaBrokers:       splitList(getenv("KAFKA_BROKERS")),
		KafkaTopic:         getenv("KAFKA_TOPIC"),
		AvailabilityPolicy: strings.ToLower(getenv("AVAILABILITY_POLICY")),
		ReminderCron:       getenv("REMINDER_CRON"),
	}

	var err error
	if cfg.RateLimitPerMinute, err = intOr(getenv, "RATE_LIMIT_PER_MINUTE", 30); err != nil {
		return nil, err
	}
	if cfg.BookingMinLeadDays, err = intOr(getenv, "BOOKING_MIN_LEAD_DAYS", 1); err != nil {
		return nil, err
	}
	if cfg.BookingMaxLeadDays, err = intOr(getenv, "BOOKING_MAX_LEAD_DAYS", 14); err != nil {
		return nil, err
	}
	if cfg.AvailabilityCacheSize, err = intOr(getenv, "AVAILABILITY_CACHE_SIZE", 256); err != nil {
		return nil, err
	}

	// Устанавливаем дефолтные значения
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.StorageDriver == "" {
		cfg.StorageDriver = StorageDriverPostgres
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.KafkaTopic == "" {
		cfg.KafkaTopic = "booking-events"
	}
	if cfg.AvailabilityPolicy == "" {
		cfg.AvailabilityPolicy = "open"
	}
	if cfg.ReminderCron == "" {
		cfg.ReminderCron = "0 18 * * *"
	}

	// Проверяем обязательные поля
	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		if cfg.DBDSN == "" {
			return nil, fmt.Errorf("DB_DSN is required but not set")
		}
	case StorageDriverMemory:
	default:
		return nil, fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", StorageDriverPostgres, StorageDriverMemory, cfg.StorageDriver)
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but not set")
	}
	if cfg.AvailabilityPolicy != "open" && cfg.AvailabilityPolicy != "strict" {
		return nil, fmt.Errorf("AVAILABILITY_POLICY must be open or strict, got %q", cfg.AvailabilityPolicy)
	}
	if cfg.BookingMinLeadDays < 0 || cfg.BookingMaxLeadDays < cfg.BookingMinLeadDays {
		return nil, fmt.Errorf("invalid booking window: min %d, max %d days", cfg.BookingMinLeadDays, cfg.BookingMaxLeadDays)
	}

	return cfg, nil
}

// IsProduction production-окружение
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func intOr(getenv func(string) string, key string, def int) (int, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
