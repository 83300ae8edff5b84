package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort  string
	DBDriver    string
	DBDSN       string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	JWTSecret   string
	SwaggerHost string
	LogLevel    string

	Shkeeper Shkeeper
	Telegram Telegram
	Queue    Queue

	ReferralTopupBonusPercent int
}

// Shkeeper configures the crypto gateway and the top-up flow around it.
type Shkeeper struct {
	Enabled        bool
	BaseURL        string
	APIKey         string
	CallbackAPIKey string
	Timeout        time.Duration
	Crypto         string
	Currency       string
	DisplayName    string
	MinAmountMinor int64
	MaxAmountMinor int64
	WebhookBaseURL string
	WebhookPath    string
	SuccessURL     string
	FailURL        string
	PaidStatuses   []string
}

// Telegram configures user and admin notifications.
type Telegram struct {
	BotToken     string
	AdminChatIDs []int64
}

// Queue configures the outbound event queue.
type Queue struct {
	SQSQueueURL  string
	AWSRegion    string
	AWSAccessKey string
	AWSSecret    string
}

// Load builds Config from environment with sensible defaults.
// A .env file in the working directory is loaded first when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using process environment")
	}

	return &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		DBDriver:    getEnv("DB_DRIVER", "mysql"),
		DBDSN:       getEnv("DB_DSN", "user:password@tcp(localhost:3306)/app?charset=utf8mb4&parseTime=True&loc=UTC"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:     getEnvInt("REDIS_DB", 0),
		RedisPass:   os.Getenv("REDIS_PASSWORD"),
		JWTSecret:   getEnv("JWT_SECRET", "change-me"),
		SwaggerHost: os.Getenv("SWAGGER_HOST"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Shkeeper: Shkeeper{
			Enabled:        getEnvBool("SHKEEPER_ENABLED", true),
			BaseURL:        os.Getenv("SHKEEPER_BASE_URL"),
			APIKey:         os.Getenv("SHKEEPER_API_KEY"),
			CallbackAPIKey: os.Getenv("SHKEEPER_CALLBACK_API_KEY"),
			Timeout:        getEnvDuration("SHKEEPER_REQUEST_TIMEOUT", 15*time.Second),
			Crypto:         getEnv("SHKEEPER_CRYPTO", "USDT"),
			Currency:       getEnv("SHKEEPER_CURRENCY", "RUB"),
			DisplayName:    getEnv("SHKEEPER_DISPLAY_NAME", "SHKeeper"),
			MinAmountMinor: getEnvInt64("SHKEEPER_MIN_AMOUNT_KOPEKS", 10000),
			MaxAmountMinor: getEnvInt64("SHKEEPER_MAX_AMOUNT_KOPEKS", 10000000),
			WebhookBaseURL: os.Getenv("WEBHOOK_URL"),
			WebhookPath:    getEnv("SHKEEPER_WEBHOOK_PATH", "/webhooks/shkeeper"),
			SuccessURL:     os.Getenv("SHKEEPER_SUCCESS_URL"),
			FailURL:        os.Getenv("SHKEEPER_FAIL_URL"),
			PaidStatuses:   getEnvList("SHKEEPER_PAID_STATUSES", []string{"paid", "success", "completed", "confirmed"}),
		},
		Telegram: Telegram{
			BotToken:     os.Getenv("TELEGRAM_BOT_TOKEN"),
			AdminChatIDs: getEnvInt64List("TELEGRAM_ADMIN_CHAT_IDS"),
		},
		Queue: Queue{
			SQSQueueURL:  os.Getenv("EVENTS_SQS_QUEUE_URL"),
			AWSRegion:    getEnv("AWS_REGION", "eu-central-1"),
			AWSAccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
			AWSSecret:    os.Getenv("AWS_SECRET_ACCESS_KEY"),
		},
		ReferralTopupBonusPercent: getEnvInt("REFERRAL_TOPUP_BONUS_PERCENT", 0),
	}
}

// NewLogger returns the process logger for the configured level.
func (c *Config) NewLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

// getEnvDuration accepts Go durations ("15s") or a plain number of seconds.
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func getEnvInt64List(key string) []int64 {
	var out []int64
	for _, item := range getEnvList(key, nil) {
		if id, err := strconv.ParseInt(item, 10, 64); err == nil {
			out = append(out, id)
		}
	}
	return out
}
