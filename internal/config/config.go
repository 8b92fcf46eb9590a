// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"dev"`
	Port   int    `env:"PORT" envDefault:"8080"`

	// Messaging platform
	BotToken       string `env:"BOT_TOKEN"`
	BotAPIBaseURL  string `env:"BOT_API_BASE_URL" envDefault:"https://api.telegram.org"`
	WebhookSecret  string `env:"WEBHOOK_SECRET"`
	WebhookURL     string `env:"WEBHOOK_URL"`
	OperatorChatID int64  `env:"OPERATOR_CHAT_ID"`

	// AI providers
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAIModel   string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	GeminiAPIKey  string `env:"GEMINI_API_KEY"`
	GeminiBaseURL string `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	GeminiModel   string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
	// ProviderOrder is the deterministic fail-over order.
	ProviderOrder []string `env:"PROVIDER_ORDER" envSeparator:"," envDefault:"openai,gemini"`

	// AI call orchestration
	AIRequestTimeout  time.Duration `env:"AI_REQUEST_TIMEOUT" envDefault:"30s"`
	AIMaxRetries      int           `env:"AI_MAX_RETRIES" envDefault:"3"`
	AIBackoffInitial  time.Duration `env:"AI_BACKOFF_INITIAL" envDefault:"500ms"`
	AIBackoffMax      time.Duration `env:"AI_BACKOFF_MAX" envDefault:"8s"`
	AIBackoffFactor   float64       `env:"AI_BACKOFF_FACTOR" envDefault:"2.0"`
	AIMaxOutputTokens int           `env:"AI_MAX_OUTPUT_TOKENS" envDefault:"600"`
	AITemperature     float64       `env:"AI_TEMPERATURE" envDefault:"0.3"`

	// Admission gate
	ThrottleMinInterval time.Duration `env:"THROTTLE_MIN_INTERVAL" envDefault:"500ms"`
	FloodThreshold      int           `env:"FLOOD_THRESHOLD" envDefault:"10"`
	FloodBanDuration    time.Duration `env:"FLOOD_BAN_DURATION" envDefault:"60s"`
	FloodScoreDecay     time.Duration `env:"FLOOD_SCORE_DECAY" envDefault:"30s"`

	// Daily AI quota per caller (Redis backed; fail-open when Redis is down)
	AIDailyLimit int    `env:"AI_DAILY_LIMIT" envDefault:"10"`
	RedisAddr    string `env:"REDIS_ADDR"`

	// Record store (spreadsheet bridge)
	SheetsBaseURL string `env:"SHEETS_BASE_URL"`
	SheetsAPIKey  string `env:"SHEETS_API_KEY"`

	// Content
	TemplatesPath string `env:"TEMPLATES_PATH"`
	DocumentsDir  string `env:"DOCUMENTS_DIR" envDefault:"./documents"`

	// Admin surface
	AdminToken string `env:"ADMIN_TOKEN"`

	// HTTP server
	RateLimitPerMin       int           `env:"RATE_LIMIT_PER_MIN" envDefault:"120"`
	CORSAllowOrigins      string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	HTTPIdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`

	// Observability
	OTLPEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTELServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"leadbot"`
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	return cfg, nil
}

// AdminEnabled returns true if the admin report endpoints should be mounted.
func (c Config) AdminEnabled() bool { return c.AdminToken != "" }

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }

// AIBackoffConfig returns backoff knobs for the current environment.
// Tests get short intervals so retry paths run fast.
func (c Config) AIBackoffConfig() (initial, maxInterval time.Duration, factor float64) {
	if c.IsTest() {
		return 10 * time.Millisecond, 100 * time.Millisecond, 2.0
	}
	return c.AIBackoffInitial, c.AIBackoffMax, c.AIBackoffFactor
}
