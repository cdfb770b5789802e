package config

import (
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds runtime configuration for the gateway and summarizer services.
type Config struct {
	// Server
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Upload limits
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"104857600"` // 100MB in bytes

	// Store
	StoreProvider string `env:"STORE_PROVIDER" envDefault:"postgres"` // "postgres" (production database)
	DBURL         string `env:"DB_URL"`

	// Queue
	QueueProvider string `env:"QUEUE_PROVIDER" envDefault:"nats"` // "nats" (required for inter-service communication)
	QueueURL      string `env:"QUEUE_URL"`

	// Cache
	RedisAddr     string        `env:"REDIS_ADDR"` // empty disables caching
	RedisPassword string        `env:"REDIS_PASSWORD"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"24h"`

	// LLM
	LLMProvider string `env:"LLM_PROVIDER" envDefault:"openai"` // "openai" (uses OpenAI API) or "stub" (for testing)
	OpenAIKey   string `env:"OPENAI_API_KEY"`
	LLMModel    string `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`

	// Document validation thresholds
	MinWords          int     `env:"MIN_WORDS" envDefault:"50"`
	MinPages          int     `env:"MIN_PAGES" envDefault:"1"`
	MaxEmptyPageRatio float64 `env:"MAX_EMPTY_PAGE_RATIO" envDefault:"0.5"`

	// Chunking and summarization
	MaxChunkWords        int `env:"MAX_CHUNK_WORDS" envDefault:"6000"`
	MinChunkSummaryWords int `env:"MIN_CHUNK_SUMMARY_WORDS" envDefault:"150"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}
