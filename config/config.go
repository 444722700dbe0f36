package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// ErrMissingJWTSecret is fatal at startup.
var ErrMissingJWTSecret = errors.New("JWT_SECRET must be set")

// Config holds application level configuration loaded from the environment.
type Config struct {
	Port    string
	GinMode string

	DBDriver string
	DBDSN    string

	JWTSecret []byte
	TokenTTL  time.Duration

	RedisAddr    string
	RedisPass    string
	RedisDB      int
	RoleCacheTTL time.Duration

	MQTTBroker      string
	MQTTClientID    string
	MQTTTopicPrefix string

	DeliveryFee decimal.Decimal

	AdminEmail    string
	AdminPassword string

	LogLevel  string
	LogFormat string
}

// Load reads .env (if any) and the environment. The signing secret is mandatory.
func Load() (*Config, error) {
	// A missing .env file is normal outside development.
	_ = godotenv.Load()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, ErrMissingJWTSecret
	}

	fee, err := decimal.NewFromString(getEnv("DELIVERY_FEE", "2.50"))
	if err != nil {
		return nil, fmt.Errorf("DELIVERY_FEE: %w", err)
	}

	return &Config{
		Port:            getEnv("PORT", "8080"),
		GinMode:         os.Getenv("GIN_MODE"),
		DBDriver:        getEnv("DB_DRIVER", "sqlite"),
		DBDSN:           getEnv("DB_DSN", "food_delivery.db"),
		JWTSecret:       []byte(secret),
		TokenTTL:        getEnvDuration("TOKEN_TTL", 24*time.Hour),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPass:       os.Getenv("REDIS_PASSWORD"),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		RoleCacheTTL:    getEnvDuration("ROLE_CACHE_TTL", 5*time.Minute),
		MQTTBroker:      os.Getenv("MQTT_BROKER"),
		MQTTClientID:    getEnv("MQTT_CLIENT_ID", "delivery-marketplace"),
		MQTTTopicPrefix: getEnv("MQTT_TOPIC_PREFIX", "orders"),
		DeliveryFee:     fee,
		AdminEmail:      os.Getenv("ADMIN_EMAIL"),
		AdminPassword:   os.Getenv("ADMIN_PASSWORD"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "text"),
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return fallback
}
