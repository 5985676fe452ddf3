package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port string
	Mode string

	// Database configuration
	DatabaseURL string

	// Redis configuration
	RedisURL string

	// AI provider configuration
	AIAPIKey string
	AIAPIURL string
	AIModel  string

	// Billing webhook configuration
	BillingWebhookSecret string

	// Kill switch: when true every execution request is rejected
	// before any store access
	ServiceDisabled bool

	// Limits
	BurstLimit    int
	ProDailyLimit int
	ServiceName   string
}

var AppConfig *Config

func InitConfig() error {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		// Ignore error if .env file doesn't exist
	}

	AppConfig = &Config{
		Port:                 getEnv("PORT", "8080"),
		Mode:                 getEnv("GIN_MODE", "debug"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		RedisURL:             getEnv("REDIS_URL", "redis://localhost:6379/0"),
		AIAPIKey:             getEnv("AI_API_KEY", ""),
		AIAPIURL:             getEnv("AI_API_URL", "https://openrouter.ai/api/v1/chat/completions"),
		AIModel:              getEnv("AI_MODEL", "google/gemini-flash-1.5"),
		BillingWebhookSecret: getEnv("BILLING_WEBHOOK_SECRET", ""),
		ServiceDisabled:      getEnvBool("SERVICE_DISABLED", false),
		BurstLimit:           getEnvInt("BURST_LIMIT", 15),
		ProDailyLimit:        getEnvInt("PRO_DAILY_LIMIT", 500),
		ServiceName:          getEnv("SERVICE_NAME", "Keyboard AI Service"),
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
