// Package config loads and validates application configuration from
// environment variables and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Generation backend names accepted in Providers.Default.
const (
	ProviderClaude = "claude"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config holds all application configuration.
type Config struct {
	// Server settings.
	Port                int           `yaml:"port"`
	ReadTimeout         time.Duration `yaml:"read_timeout"`
	WriteTimeout        time.Duration `yaml:"write_timeout"` // 0 disables; SSE clears its own deadline anyway.
	ShutdownTimeout     time.Duration `yaml:"shutdown_timeout"`
	MaxRequestBodyBytes int64         `yaml:"max_request_body_bytes"`

	LogLevel string `yaml:"log_level"`

	DataForSEO DataForSEOConfig `yaml:"dataforseo"`
	Providers  ProvidersConfig  `yaml:"providers"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	OTEL       OTELConfig       `yaml:"otel"`
}

// DataForSEOConfig configures the research provider. Empty credentials are
// allowed; research then degrades on every run.
type DataForSEOConfig struct {
	Login             string        `yaml:"login"`
	Password          string        `yaml:"password"`
	BaseURL           string        `yaml:"base_url"`
	LocationCode      int           `yaml:"location_code"`
	LanguageCode      string        `yaml:"language_code"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Timeout           time.Duration `yaml:"timeout"`
	SuggestionLimit   int           `yaml:"suggestion_limit"`
}

// ProvidersConfig configures the generation backends. A backend is enabled
// when its API key is set.
type ProvidersConfig struct {
	Default string        `yaml:"default"`
	Timeout time.Duration `yaml:"timeout"`
	Claude  BackendConfig `yaml:"claude"`
	OpenAI  BackendConfig `yaml:"openai"`
	Gemini  BackendConfig `yaml:"gemini"`
}

// BackendConfig is the connection info for one generation backend.
type BackendConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// RateLimitConfig configures the per-client request limiter.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled"`
	RPS     float64 `yaml:"rps"`
	Burst   int     `yaml:"burst"`
}

// OTELConfig configures the OpenTelemetry exporters. An empty endpoint
// disables export.
type OTELConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		Port:                8080,
		ReadTimeout:         30 * time.Second,
		ShutdownTimeout:     10 * time.Second,
		MaxRequestBodyBytes: 1 * 1024 * 1024, // 1 MB
		LogLevel:            "info",
		DataForSEO: DataForSEOConfig{
			BaseURL:           "https://api.dataforseo.com",
			LocationCode:      2840,
			LanguageCode:      "en",
			RequestsPerSecond: 2,
			Timeout:           30 * time.Second,
			SuggestionLimit:   20,
		},
		Providers: ProvidersConfig{
			Timeout: 5 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			RPS:     0.2,
			Burst:   3,
		},
		OTEL: OTELConfig{
			ServiceName: "quill",
			SampleRatio: 1,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// QUILL_CONFIG (if any), then environment variables. Every malformed
// variable is reported, not just the first.
func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv("QUILL_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	setInt := func(dst *int, key string) {
		v, err := envInt(key, *dst)
		collect(err)
		*dst = v
	}
	setFloat := func(dst *float64, key string) {
		v, err := envFloat(key, *dst)
		collect(err)
		*dst = v
	}
	setBool := func(dst *bool, key string) {
		v, err := envBool(key, *dst)
		collect(err)
		*dst = v
	}
	setDuration := func(dst *time.Duration, key string) {
		v, err := envDuration(key, *dst)
		collect(err)
		*dst = v
	}
	setStr := func(dst *string, key string) { *dst = envStr(key, *dst) }

	setInt(&cfg.Port, "QUILL_PORT")
	setDuration(&cfg.ReadTimeout, "QUILL_READ_TIMEOUT")
	setDuration(&cfg.WriteTimeout, "QUILL_WRITE_TIMEOUT")
	setDuration(&cfg.ShutdownTimeout, "QUILL_SHUTDOWN_TIMEOUT")
	bodyBytes := int(cfg.MaxRequestBodyBytes)
	setInt(&bodyBytes, "QUILL_MAX_REQUEST_BODY_BYTES")
	cfg.MaxRequestBodyBytes = int64(bodyBytes)
	setStr(&cfg.LogLevel, "QUILL_LOG_LEVEL")

	d := &cfg.DataForSEO
	setStr(&d.Login, "DATAFORSEO_LOGIN")
	setStr(&d.Password, "DATAFORSEO_PASSWORD")
	setStr(&d.BaseURL, "DATAFORSEO_BASE_URL")
	setInt(&d.LocationCode, "QUILL_RESEARCH_LOCATION_CODE")
	setStr(&d.LanguageCode, "QUILL_RESEARCH_LANGUAGE_CODE")
	setFloat(&d.RequestsPerSecond, "QUILL_RESEARCH_RPS")
	setDuration(&d.Timeout, "QUILL_RESEARCH_TIMEOUT")
	setInt(&d.SuggestionLimit, "QUILL_RESEARCH_SUGGESTION_LIMIT")

	p := &cfg.Providers
	setStr(&p.Default, "QUILL_PROVIDER")
	setDuration(&p.Timeout, "QUILL_PROVIDER_TIMEOUT")
	setStr(&p.Claude.APIKey, "ANTHROPIC_API_KEY")
	setStr(&p.Claude.Model, "QUILL_CLAUDE_MODEL")
	setStr(&p.Claude.BaseURL, "QUILL_CLAUDE_BASE_URL")
	setStr(&p.OpenAI.APIKey, "OPENAI_API_KEY")
	setStr(&p.OpenAI.Model, "QUILL_OPENAI_MODEL")
	setStr(&p.OpenAI.BaseURL, "QUILL_OPENAI_BASE_URL")
	setStr(&p.Gemini.APIKey, "GEMINI_API_KEY")
	setStr(&p.Gemini.Model, "QUILL_GEMINI_MODEL")
	setStr(&p.Gemini.BaseURL, "QUILL_GEMINI_BASE_URL")

	setBool(&cfg.RateLimit.Enabled, "QUILL_RATE_LIMIT_ENABLED")
	setFloat(&cfg.RateLimit.RPS, "QUILL_RATE_LIMIT_RPS")
	setInt(&cfg.RateLimit.Burst, "QUILL_RATE_LIMIT_BURST")

	setStr(&cfg.OTEL.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setStr(&cfg.OTEL.ServiceName, "OTEL_SERVICE_NAME")
	setBool(&cfg.OTEL.Insecure, "OTEL_EXPORTER_OTLP_INSECURE")
	setFloat(&cfg.OTEL.SampleRatio, "QUILL_OTEL_SAMPLE_RATIO")

	return errors.Join(errs...)
}

// Validate checks that required configuration is present and coherent.
func (c Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("QUILL_PORT must be between 1 and 65535, got %d", c.Port))
	}
	if c.MaxRequestBodyBytes <= 0 {
		errs = append(errs, errors.New("QUILL_MAX_REQUEST_BODY_BYTES must be positive"))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.DataForSEO.LocationCode <= 0 {
		errs = append(errs, errors.New("QUILL_RESEARCH_LOCATION_CODE must be positive"))
	}
	if c.DataForSEO.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("QUILL_RESEARCH_RPS must not be negative"))
	}

	configured := c.Providers.Configured()
	if len(configured) == 0 {
		errs = append(errs, errors.New("at least one of ANTHROPIC_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY is required"))
	}
	if def := strings.ToLower(c.Providers.Default); def != "" {
		switch def {
		case ProviderClaude, ProviderOpenAI, ProviderGemini:
			if c.Providers.Backend(def).APIKey == "" {
				errs = append(errs, fmt.Errorf("QUILL_PROVIDER=%q has no API key configured", def))
			}
		default:
			errs = append(errs, fmt.Errorf("QUILL_PROVIDER=%q is not one of claude, openai, gemini", c.Providers.Default))
		}
	}

	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst < 1) {
		errs = append(errs, errors.New("QUILL_RATE_LIMIT_RPS must be positive and QUILL_RATE_LIMIT_BURST at least 1"))
	}
	if c.OTEL.SampleRatio < 0 || c.OTEL.SampleRatio > 1 {
		errs = append(errs, errors.New("QUILL_OTEL_SAMPLE_RATIO must be between 0 and 1"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Configured returns the names of backends with an API key, in
// registration order.
func (p ProvidersConfig) Configured() []string {
	var out []string
	for _, name := range []string{ProviderClaude, ProviderOpenAI, ProviderGemini} {
		if p.Backend(name).APIKey != "" {
			out = append(out, name)
		}
	}
	return out
}

// Backend returns the settings for the named backend.
func (p ProvidersConfig) Backend(name string) BackendConfig {
	switch name {
	case ProviderClaude:
		return p.Claude
	case ProviderOpenAI:
		return p.OpenAI
	case ProviderGemini:
		return p.Gemini
	}
	return BackendConfig{}
}

// ParseLogLevel maps debug|info|warn|error to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("QUILL_LOG_LEVEL=%q is not one of debug, info, warn, error", s)
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal, fmt.Errorf("%s=%q is not a valid integer", key, v)
	}
	return n, nil
}

func envFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal, fmt.Errorf("%s=%q is not a valid number", key, v)
	}
	return f, nil
}

func envBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal, fmt.Errorf("%s=%q is not a valid boolean", key, v)
	}
	return b, nil
}

func envDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal, fmt.Errorf("%s=%q is not a valid duration", key, v)
	}
	return d, nil
}
