package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Eursukkul/courier-backoffice/internal/pricing"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	ServerPort string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	RabbitURL     string
	RedisAddress  string
	RedisPassword string

	AWBPrefix   string
	AWBNodeID   int64
	PhoneRegion string

	LogLevel      string
	LogsDirectory string

	TrackingCacheTTL  time.Duration
	StaleAfter        time.Duration
	StaleScanSchedule string

	Tariff pricing.Config
}

// Load reads .env when present, then the environment. Malformed numeric or duration values
// fall back to their defaults.
func Load() *Config {
	_ = godotenv.Load()

	tariff := pricing.DefaultConfig()
	tariff.Currency = getEnv("CURRENCY", tariff.Currency)
	tariff.TaxRate = getDecimal("TAX_RATE", tariff.TaxRate)
	tariff.FuelSurchargeRate = getDecimal("FUEL_SURCHARGE_RATE", tariff.FuelSurchargeRate)
	tariff.InsuranceRate = getDecimal("INSURANCE_RATE", tariff.InsuranceRate)
	tariff.CODRate = getDecimal("COD_RATE", tariff.CODRate)

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "courier_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RabbitURL:     getEnv("RABBITMQ_URL", ""),
		RedisAddress:  getEnv("REDIS_ADDRESS", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		AWBPrefix:   getEnv("AWB_PREFIX", "CX"),
		AWBNodeID:   getInt("AWB_NODE_ID", 1),
		PhoneRegion: getEnv("PHONE_REGION", "IN"),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogsDirectory: getEnv("LOGS_DIRECTORY", ""),

		TrackingCacheTTL:  getDuration("TRACKING_CACHE_TTL", 5*time.Minute),
		StaleAfter:        getDuration("STALE_AFTER", 72*time.Hour),
		StaleScanSchedule: getEnv("STALE_SCAN_SCHEDULE", "@every 1h"),

		Tariff: tariff,
	}
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int64) int64 {
	n, err := strconv.ParseInt(getEnv(key, ""), 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return d
}

func getDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	d, err := decimal.NewFromString(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return d
}
