package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Env struct {
	AppAddr  string `yaml:"app_addr"`
	GinMode  string `yaml:"gin_mode"`
	LogLevel string `yaml:"log_level"`

	DBDriver string `yaml:"db_driver"` // mysql, postgres, sqlite
	DBDSN    string `yaml:"db_dsn"`

	ConflictWindow      time.Duration `yaml:"conflict_window"`
	ConfidenceThreshold float64       `yaml:"confidence_threshold"`
	SessionTTL          time.Duration `yaml:"session_ttl"`

	JWTSecret string `yaml:"jwt_secret"`

	KafkaBrokers        []string      `yaml:"kafka_brokers"`
	EventsTopic         string        `yaml:"events_topic"`
	OutboxDrainInterval time.Duration `yaml:"outbox_drain_interval"`

	GeminiAPIKey string        `yaml:"gemini_api_key"`
	GeminiModel  string        `yaml:"gemini_model"`
	ParseTimeout time.Duration `yaml:"parse_timeout"`
}

// Defaults mirrors the values used when neither the YAML file nor the
// environment sets a field.
func Defaults() Env {
	return Env{
		AppAddr:             ":8080",
		LogLevel:            "info",
		DBDriver:            "mysql",
		DBDSN:               "root:@tcp(127.0.0.1:3306)/dispatch?parseTime=true&loc=UTC&charset=utf8mb4&timeout=5s&readTimeout=30s&writeTimeout=30s",
		ConflictWindow:      90 * time.Minute,
		ConfidenceThreshold: 0.6,
		SessionTTL:          30 * time.Minute,
		EventsTopic:         "dispatch.actions",
		OutboxDrainInterval: 5 * time.Second,
		GeminiModel:         "gemini-2.5-flash",
		ParseTimeout:        15 * time.Second,
	}
}

// LoadEnv reads .env (when present), then CONFIG_FILE (YAML), then
// environment variables. Later sources win. A CONFIG_FILE that cannot be
// read or parsed is an error, not a silent fallback to defaults.
func LoadEnv() (Env, error) {
	_ = godotenv.Load()

	env := Defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return env, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &env); err != nil {
			return env, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	env.AppAddr = getEnv("APP_ADDR", env.AppAddr)
	env.GinMode = getEnv("GIN_MODE", env.GinMode)
	env.LogLevel = getEnv("LOG_LEVEL", env.LogLevel)
	env.DBDriver = strings.ToLower(getEnv("DB_DRIVER", env.DBDriver))
	env.DBDSN = getEnv("DB_DSN", env.DBDSN)
	env.ConflictWindow = getEnvDuration("CONFLICT_WINDOW", env.ConflictWindow)
	env.ConfidenceThreshold = getEnvFloat("CONFIDENCE_THRESHOLD", env.ConfidenceThreshold)
	env.SessionTTL = getEnvDuration("SESSION_TTL", env.SessionTTL)
	env.JWTSecret = getEnv("JWT_SECRET", env.JWTSecret)
	if brokers := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); brokers != "" {
		env.KafkaBrokers = splitList(brokers)
	}
	env.EventsTopic = getEnv("EVENTS_TOPIC", env.EventsTopic)
	env.OutboxDrainInterval = getEnvDuration("OUTBOX_DRAIN_INTERVAL", env.OutboxDrainInterval)
	env.GeminiAPIKey = getEnv("GEMINI_API_KEY", env.GeminiAPIKey)
	env.GeminiModel = getEnv("GEMINI_MODEL", env.GeminiModel)
	env.ParseTimeout = getEnvDuration("PARSE_TIMEOUT", env.ParseTimeout)

	return env, nil
}

func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

// getEnvDuration accepts Go durations ("90m") or plain minutes ("90").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Minute
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return fallback
}

func splitList(raw string) []string {
	out := []string{}
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
