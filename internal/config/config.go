// Package config loads and validates all environment variables at startup.
// Every other package receives typed values; nothing reads os.Getenv directly.
package config

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nyashahama/safeserve-backend/internal/scoring"
)

// Config is the fully-parsed application configuration.
type Config struct {
	// ── Server ────────────────────────────────────────────────────────────────
	Port       string // default "8080"
	Env        string // "development" | "staging" | "production"
	CORSOrigin string // default "*"

	// ── AI provider ───────────────────────────────────────────────────────────
	// Provider selects the primary generator. When Failover is set, the first
	// other provider with a key becomes the secondary.
	Provider string // "gemini" | "anthropic" | "deepseek", default "gemini"
	Failover bool   // default true

	GeminiAPIKey string
	GeminiModel  string // default "gemini-3-flash-preview"

	AnthropicAPIKey string
	AnthropicModel  string // default "claude-sonnet-4-5"

	DeepSeekAPIKey string
	DeepSeekModel  string // default "deepseek-chat"

	// ── Resilience ────────────────────────────────────────────────────────────
	MaxAttempts    int           // default 3
	InitialDelay   time.Duration // default 1s
	MaxDelay       time.Duration // default 8s
	MaxJitter      time.Duration // default 500ms
	AttemptTimeout time.Duration // default 90s
	QuotaCooldown  time.Duration // default 30s

	// ── Risk model ────────────────────────────────────────────────────────────
	// Parsed from RISK_MODEL (JSON); unset keeps scoring.DefaultModel().
	RiskModel scoring.Model

	// ── Chat ──────────────────────────────────────────────────────────────────
	ChatSessionTTL  time.Duration // default 30m
	MaxChatSessions int           // default 10000
}

// Provider names accepted by AI_PROVIDER.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderDeepSeek  = "deepseek"
)

// Load reads all environment variables and returns a validated Config.
// It automatically loads a .env file from the working directory when present,
// so plain `go run ./cmd/api` works in development without any wrapper.
// Real environment variables always take precedence over .env values.
func Load() (*Config, error) {
	loadDotEnv(".env")

	c := &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("ENV", "development"),
		CORSOrigin:      getEnv("CORS_ORIGIN", "*"),
		Provider:        strings.ToLower(getEnv("AI_PROVIDER", ProviderGemini)),
		Failover:        getEnvAsBool("AI_FAILOVER", true),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-3-flash-preview"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-5"),
		DeepSeekAPIKey:  os.Getenv("DEEPSEEK_API_KEY"),
		DeepSeekModel:   getEnv("DEEPSEEK_MODEL", "deepseek-chat"),
		MaxAttempts:     getEnvAsInt("AI_MAX_ATTEMPTS", 3),
		InitialDelay:    getEnvAsDuration("AI_INITIAL_DELAY", time.Second),
		MaxDelay:        getEnvAsDuration("AI_MAX_DELAY", 8*time.Second),
		MaxJitter:       getEnvAsDuration("AI_MAX_JITTER", 500*time.Millisecond),
		AttemptTimeout:  getEnvAsDuration("AI_ATTEMPT_TIMEOUT", 90*time.Second),
		QuotaCooldown:   getEnvAsDuration("QUOTA_COOLDOWN", 30*time.Second),
		ChatSessionTTL:  getEnvAsDuration("CHAT_SESSION_TTL", 30*time.Minute),
		MaxChatSessions: getEnvAsInt("MAX_CHAT_SESSIONS", 10000),
		RiskModel:       scoring.DefaultModel(),
	}

	var errs []error
	if raw := os.Getenv("RISK_MODEL"); raw != "" {
		m, err := scoring.ParseModel(json.RawMessage(raw))
		if err != nil {
			errs = append(errs, fmt.Errorf("RISK_MODEL: %w", err))
		} else {
			c.RiskModel = m
		}
	}

	return c, errors.Join(append(errs, c.validate())...)
}

// APIKey returns the key configured for provider, or "".
func (c *Config) APIKey(provider string) string {
	switch provider {
	case ProviderGemini:
		return c.GeminiAPIKey
	case ProviderAnthropic:
		return c.AnthropicAPIKey
	case ProviderDeepSeek:
		return c.DeepSeekAPIKey
	}
	return ""
}

// Secondary returns the failover provider, or "" when failover is off or no
// other provider has a key.
func (c *Config) Secondary() string {
	if !c.Failover {
		return ""
	}
	for _, p := range []string{ProviderGemini, ProviderAnthropic, ProviderDeepSeek} {
		if p != c.Provider && c.APIKey(p) != "" {
			return p
		}
	}
	return ""
}

// RequestTimeout bounds one HTTP request: every attempt at its full timeout
// plus the longest back-off and jitter between them.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.MaxAttempts) * (c.AttemptTimeout + c.MaxDelay + c.MaxJitter)
}

func (c *Config) validate() error {
	var errs []error

	switch c.Provider {
	case ProviderGemini, ProviderAnthropic, ProviderDeepSeek:
		if c.APIKey(c.Provider) == "" {
			errs = append(errs, fmt.Errorf("AI_PROVIDER is %q but its API key is not set", c.Provider))
		}
	default:
		errs = append(errs, fmt.Errorf("AI_PROVIDER must be one of gemini, anthropic, deepseek; got %q", c.Provider))
	}

	if c.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("AI_MAX_ATTEMPTS must be at least 1"))
	}
	if c.MaxDelay < c.InitialDelay {
		errs = append(errs, fmt.Errorf("AI_MAX_DELAY must not be shorter than AI_INITIAL_DELAY"))
	}
	if c.AttemptTimeout <= 0 {
		errs = append(errs, fmt.Errorf("AI_ATTEMPT_TIMEOUT must be positive"))
	}
	if c.QuotaCooldown <= 0 {
		errs = append(errs, fmt.Errorf("QUOTA_COOLDOWN must be positive"))
	}
	if c.ChatSessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("CHAT_SESSION_TTL must be positive"))
	}

	return errors.Join(errs...)
}

// ─── DOT-ENV LOADER ──────────────────────────────────────────────────────────

// loadDotEnv reads key=value pairs from path and sets them in the environment,
// but only for keys that are not already set. This means real env vars (e.g.
// from Docker / Railway / your shell) always win over the file.
// Missing file, blank lines, and #-comments are all silently ignored.
func loadDotEnv(path string) {
	f, err := os.Open(path)
	if err != nil {
		return // file absent is fine
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		// Strip optional surrounding quotes: KEY="value" or KEY='value'
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}
		// Only set if the key isn't already present in the environment.
		if os.Getenv(key) == "" {
			_ = os.Setenv(key, value)
		}
	}
}

// ─── HELPERS ─────────────────────────────────────────────────────────────────

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	// Try a plain integer first (treated as seconds, minutes, or hours
	// depending on the variable name).
	if value, err := strconv.Atoi(valueStr); err == nil {
		switch {
		case strings.Contains(key, "HOURS"):
			return time.Duration(value) * time.Hour
		case strings.Contains(key, "MINUTES"):
			return time.Duration(value) * time.Minute
		default:
			return time.Duration(value) * time.Second
		}
	}
	// Fall back to Go duration syntax: "30s", "5m", "1h", etc.
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
