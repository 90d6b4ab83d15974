package config

import (
	"os"
	"strconv"
	"time"

	dErrors "haulready/pkg/domain-errors"
)

// Defaults for the per-identity submission rate limit.
const (
	DefaultRateLimitWindow = 60 * time.Second
	DefaultRateLimitMax    = 3
)

// Config captures everything the submission pipeline reads from the
// environment so main stays lean.
type Config struct {
	Addr        string
	Environment string

	// TurnstileSecretKey enables the CAPTCHA step. When empty the step is
	// skipped entirely; that policy decision is logged at startup rather
	// than silently falling through.
	TurnstileSecretKey string

	TelegramBotToken string
	TelegramChatID   string

	RateLimitWindow time.Duration
	RateLimitMax    int

	// RedisAddr switches the rate limiter to a shared store so multiple
	// server instances enforce one global limit. Empty means in-memory.
	RedisAddr string

	UnsubscribeSigningKey string
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:                  envOr("HAULREADY_ADDR", ":8080"),
		Environment:           envOr("HAULREADY_ENV", "development"),
		TurnstileSecretKey:    os.Getenv("TURNSTILE_SECRET_KEY"),
		TelegramBotToken:      os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:        os.Getenv("TELEGRAM_CHAT_ID"),
		RateLimitWindow:       DefaultRateLimitWindow,
		RateLimitMax:          DefaultRateLimitMax,
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		UnsubscribeSigningKey: os.Getenv("UNSUBSCRIBE_SIGNING_KEY"),
	}

	if v := os.Getenv("RATE_LIMIT_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.RateLimitWindow = d
		}
	}
	if v := os.Getenv("RATE_LIMIT_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateLimitMax = n
		}
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// CaptchaEnabled reports whether the Turnstile verification step runs.
func (c Config) CaptchaEnabled() bool {
	return c.TurnstileSecretKey != ""
}

// Validate checks that every dispatch-dependent handler can work.
// A missing bot token or chat id is an operator error, not something a
// submitter can fix, so the server refuses to start.
func (c Config) Validate() error {
	if c.TelegramBotToken == "" {
		return dErrors.New(dErrors.CodeConfig, "TELEGRAM_BOT_TOKEN is not set")
	}
	if c.TelegramChatID == "" {
		return dErrors.New(dErrors.CodeConfig, "TELEGRAM_CHAT_ID is not set")
	}
	if c.UnsubscribeSigningKey == "" {
		return dErrors.New(dErrors.CodeConfig, "UNSUBSCRIBE_SIGNING_KEY is not set")
	}
	return nil
}
