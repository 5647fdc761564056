package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the configuration for the application.
type Config struct {
	Port         string
	DatabasePath string

	JWTSecret         string
	AccessTokenExpiry time.Duration

	// LLM backend: "ollama" (default) or "gemini".
	LLMProvider  string
	OllamaHost   string
	OllamaModel  string
	GeminiAPIKey string
	GeminiModel  string
	LLMTimeout   time.Duration

	HeuristicsEnabled bool

	// Optional extraction cache.
	RedisAddr     string
	CacheTTL      time.Duration
	FetchTimeout  time.Duration
	AllowedOrigin string

	RateLimitRPS   float64
	RateLimitBurst int

	// Telegram Config (required only for the bot binary).
	TelegramBotToken     string
	TelegramWebhookURL   string
	TelegramAllowUserIDs []int64
	TelegramOwnerEmail   string
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable not set")
	}

	cfg := &Config{
		Port:              envOr("PORT", "8000"),
		DatabasePath:      envOr("DATABASE_PATH", "data/recipes.db"),
		JWTSecret:         jwtSecret,
		AccessTokenExpiry: time.Duration(envInt("ACCESS_TOKEN_EXPIRE_MINUTES", 10080)) * time.Minute,
		LLMProvider:       envOr("LLM_PROVIDER", "ollama"),
		OllamaHost:        envOr("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:       envOr("OLLAMA_MODEL", "llama2:13b-chat-q4_0"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       envOr("GEMINI_MODEL", "gemini-pro"),
		LLMTimeout:        time.Duration(envInt("LLM_TIMEOUT_SECONDS", 45)) * time.Second,
		HeuristicsEnabled: envOr("HEURISTICS_ENABLED", "true") == "true",
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		CacheTTL:          time.Duration(envInt("CACHE_TTL_MINUTES", 60)) * time.Minute,
		FetchTimeout:      time.Duration(envInt("FETCH_TIMEOUT_SECONDS", 15)) * time.Second,
		AllowedOrigin:     envOr("CORS_ALLOWED_ORIGINS", "*"),
		RateLimitRPS:      envFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:    envInt("RATE_LIMIT_BURST", 10),
	}

	switch cfg.LLMProvider {
	case "ollama":
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}

	// Telegram config (optional for the API, required for the bot).
	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.TelegramWebhookURL = os.Getenv("TELEGRAM_WEBHOOK_URL")
	cfg.TelegramOwnerEmail = os.Getenv("TELEGRAM_OWNER_EMAIL")
	if ids := os.Getenv("TELEGRAM_ALLOW_USER_IDS"); ids != "" {
		for _, part := range strings.Split(ids, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid TELEGRAM_ALLOW_USER_IDS entry %q", part)
			}
			cfg.TelegramAllowUserIDs = append(cfg.TelegramAllowUserIDs, id)
		}
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
