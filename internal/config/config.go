package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App    AppConfig
	Engine EngineConfig
	SMTP   SMTPConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	OtelServiceName    string
}

type EngineConfig struct {
	// TickSeconds is the period of the background recompute pass
	// (decay + preference + clustering) over active sessions.
	TickSeconds int
	// SessionTTLMinutes is how long an idle user session keeps its
	// in-memory working set before being purged.
	SessionTTLMinutes int
	// DigestCheckSeconds is the poll period for scheduled digest delivery.
	DigestCheckSeconds int
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			OtelServiceName:    getEnv("OTEL_SERVICE_NAME", "smartfeed-backend"),
		},
		Engine: EngineConfig{
			TickSeconds:        getEnvAsInt("ENGINE_TICK_SECONDS", 30),
			SessionTTLMinutes:  getEnvAsInt("ENGINE_SESSION_TTL_MINUTES", 120),
			DigestCheckSeconds: getEnvAsInt("ENGINE_DIGEST_CHECK_SECONDS", 60),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "SmartFeed"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
