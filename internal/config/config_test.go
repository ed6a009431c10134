package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolateEnv blanks every variable Load reads so the host environment
// cannot leak into a test. Empty values are treated as unset.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"QUILL_CONFIG", "QUILL_PORT", "QUILL_READ_TIMEOUT", "QUILL_WRITE_TIMEOUT",
		"QUILL_SHUTDOWN_TIMEOUT", "QUILL_MAX_REQUEST_BODY_BYTES", "QUILL_LOG_LEVEL",
		"DATAFORSEO_LOGIN", "DATAFORSEO_PASSWORD", "DATAFORSEO_BASE_URL",
		"QUILL_RESEARCH_LOCATION_CODE", "QUILL_RESEARCH_LANGUAGE_CODE", "QUILL_RESEARCH_RPS",
		"QUILL_RESEARCH_TIMEOUT", "QUILL_RESEARCH_SUGGESTION_LIMIT",
		"QUILL_PROVIDER", "QUILL_PROVIDER_TIMEOUT",
		"ANTHROPIC_API_KEY", "QUILL_CLAUDE_MODEL", "QUILL_CLAUDE_BASE_URL",
		"OPENAI_API_KEY", "QUILL_OPENAI_MODEL", "QUILL_OPENAI_BASE_URL",
		"GEMINI_API_KEY", "QUILL_GEMINI_MODEL", "QUILL_GEMINI_BASE_URL",
		"QUILL_RATE_LIMIT_ENABLED", "QUILL_RATE_LIMIT_RPS", "QUILL_RATE_LIMIT_BURST",
		"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_SERVICE_NAME", "OTEL_EXPORTER_OTLP_INSECURE",
		"QUILL_OTEL_SAMPLE_RATIO",
	} {
		t.Setenv(key, "")
	}
}

func TestEnvIntValid(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	v, err := envInt("TEST_INT", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
}

func TestEnvIntFallback(t *testing.T) {
	// TEST_INT_MISSING is not set.
	v, err := envInt("TEST_INT_MISSING", 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 99 {
		t.Fatalf("expected fallback 99, got %d", v)
	}
}

func TestEnvIntInvalid(t *testing.T) {
	t.Setenv("TEST_INT_BAD", "abc")
	_, err := envInt("TEST_INT_BAD", 0)
	if err == nil {
		t.Fatal("expected error for non-integer value, got nil")
	}
	if got := err.Error(); got != `TEST_INT_BAD="abc" is not a valid integer` {
		t.Fatalf("unexpected error message: %s", got)
	}
}

func TestEnvFloatInvalid(t *testing.T) {
	t.Setenv("TEST_FLOAT_BAD", "fast")
	_, err := envFloat("TEST_FLOAT_BAD", 1)
	if err == nil {
		t.Fatal("expected error for non-numeric value, got nil")
	}
	if got := err.Error(); got != `TEST_FLOAT_BAD="fast" is not a valid number` {
		t.Fatalf("unexpected error message: %s", got)
	}
}

func TestEnvBoolValid(t *testing.T) {
	t.Setenv("TEST_BOOL", "true")
	v, err := envBool("TEST_BOOL", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v {
		t.Fatal("expected true")
	}
}

func TestEnvBoolInvalid(t *testing.T) {
	t.Setenv("TEST_BOOL_BAD", "maybe")
	_, err := envBool("TEST_BOOL_BAD", false)
	if err == nil {
		t.Fatal("expected error for non-boolean value, got nil")
	}
	if got := err.Error(); got != `TEST_BOOL_BAD="maybe" is not a valid boolean` {
		t.Fatalf("unexpected error message: %s", got)
	}
}

func TestEnvDurationValid(t *testing.T) {
	t.Setenv("TEST_DUR", "5s")
	v, err := envDuration("TEST_DUR", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Seconds() != 5 {
		t.Fatalf("expected 5s, got %s", v)
	}
}

func TestEnvDurationInvalid(t *testing.T) {
	t.Setenv("TEST_DUR_BAD", "five-seconds")
	_, err := envDuration("TEST_DUR_BAD", 0)
	if err == nil {
		t.Fatal("expected error for invalid duration, got nil")
	}
	if got := err.Error(); got != `TEST_DUR_BAD="five-seconds" is not a valid duration` {
		t.Fatalf("unexpected error message: %s", got)
	}
}

func TestLoadFailsOnInvalidPort(t *testing.T) {
	isolateEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("QUILL_PORT", "abc")
	_, err := Load()
	if err == nil {
		t.Fatal("expected Load() to fail with invalid QUILL_PORT")
	}
	// Error should mention the variable name and value.
	if got := err.Error(); !strings.Contains(got, "QUILL_PORT") || !strings.Contains(got, "abc") {
		t.Fatalf("error should mention QUILL_PORT and value 'abc', got: %s", got)
	}
}

func TestLoadFailsOnMultipleInvalid(t *testing.T) {
	isolateEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("QUILL_PORT", "abc")
	t.Setenv("QUILL_RATE_LIMIT_BURST", "xyz")
	_, err := Load()
	if err == nil {
		t.Fatal("expected Load() to fail with multiple invalid vars")
	}
	got := err.Error()
	if !strings.Contains(got, "QUILL_PORT") {
		t.Fatalf("error should mention QUILL_PORT, got: %s", got)
	}
	if !strings.Contains(got, "QUILL_RATE_LIMIT_BURST") {
		t.Fatalf("error should mention QUILL_RATE_LIMIT_BURST, got: %s", got)
	}
}

func TestLoadSucceedsWithDefaults(t *testing.T) {
	isolateEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected Load() to succeed with defaults, got: %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.DataForSEO.LocationCode != 2840 || cfg.DataForSEO.LanguageCode != "en" {
		t.Fatalf("unexpected research locale defaults: %+v", cfg.DataForSEO)
	}
	if got := cfg.Providers.Configured(); len(got) != 1 || got[0] != ProviderOpenAI {
		t.Fatalf("expected only openai configured, got %v", got)
	}
}

func TestLoadRequiresAGenerationBackend(t *testing.T) {
	isolateEnv(t)
	_, err := Load()
	if err == nil {
		t.Fatal("expected Load() to fail without any provider API key")
	}
	if !strings.Contains(err.Error(), "ANTHROPIC_API_KEY") {
		t.Fatalf("error should name the provider keys, got: %s", err)
	}
}

func TestValidateDefaultProvider(t *testing.T) {
	cfg := Defaults()
	cfg.Providers.Claude.APIKey = "sk-test"

	cfg.Providers.Default = "gemini"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "no API key") {
		t.Fatalf("expected missing-key error for default gemini, got: %v", err)
	}

	cfg.Providers.Default = "mistral"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "not one of") {
		t.Fatalf("expected unknown-provider error, got: %v", err)
	}

	cfg.Providers.Default = "Claude"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected case-insensitive default to validate, got: %v", err)
	}
}

func TestValidateRateLimit(t *testing.T) {
	cfg := Defaults()
	cfg.Providers.Claude.APIKey = "sk-test"
	cfg.RateLimit = RateLimitConfig{Enabled: true, RPS: 0, Burst: 1}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero RPS with limiting enabled")
	}
	cfg.RateLimit.Enabled = false
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled limiter should not be validated, got: %v", err)
	}
}

func TestLoadYAMLOverlay(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "quill.yaml")
	content := `
port: 9090
log_level: debug
dataforseo:
  login: user@example.com
  password: secret
  location_code: 2826
  language_code: en
  timeout: 12s
providers:
  default: gemini
  gemini:
    api_key: g-key
    model: gemini-2.5-pro
rate_limit:
  enabled: false
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("QUILL_CONFIG", path)
	// Environment wins over the file.
	t.Setenv("QUILL_PORT", "7070")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() with YAML overlay: %v", err)
	}
	if cfg.Port != 7070 {
		t.Fatalf("expected env port 7070 to win, got %d", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected log level from file, got %q", cfg.LogLevel)
	}
	if cfg.DataForSEO.LocationCode != 2826 || cfg.DataForSEO.Timeout != 12*time.Second {
		t.Fatalf("unexpected research settings: %+v", cfg.DataForSEO)
	}
	// Defaults survive for keys the file omits.
	if cfg.DataForSEO.BaseURL != "https://api.dataforseo.com" {
		t.Fatalf("expected default base URL, got %q", cfg.DataForSEO.BaseURL)
	}
	if cfg.Providers.Default != "gemini" || cfg.Providers.Gemini.Model != "gemini-2.5-pro" {
		t.Fatalf("unexpected providers: %+v", cfg.Providers)
	}
	if cfg.RateLimit.Enabled {
		t.Fatal("expected rate limiting disabled by file")
	}
}

func TestLoadYAMLRejectsUnknownKeys(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "quill.yaml")
	if err := os.WriteFile(path, []byte("prot: 9090\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("QUILL_CONFIG", path)
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	if _, err := Load(); err == nil {
		t.Fatal("expected unknown YAML key to fail")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"":      slog.LevelInfo,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLogLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLogLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLogLevel("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
