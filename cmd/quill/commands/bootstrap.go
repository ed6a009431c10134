package commands

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/joho/godotenv"

	"github.com/ashita-ai/quill/internal/config"
	"github.com/ashita-ai/quill/internal/llm"
	"github.com/ashita-ai/quill/internal/research"
	"github.com/ashita-ai/quill/internal/service/generation"
)

// loadConfig reads an optional .env file, then the environment.
func loadConfig() (config.Config, error) {
	// Non-fatal; production won't have one.
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newLogger(w io.Writer, level string, jsonFormat bool) *slog.Logger {
	lvl, err := config.ParseLogLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if jsonFormat {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

var backendConstructors = map[string]func(llm.Config, *slog.Logger) (*llm.Backend, error){
	config.ProviderClaude: llm.NewClaude,
	config.ProviderOpenAI: llm.NewOpenAI,
	config.ProviderGemini: llm.NewGemini,
}

// buildRegistry constructs every backend that has an API key. A backend
// that fails to construct is a startup error, not a degraded run.
func buildRegistry(cfg config.ProvidersConfig, logger *slog.Logger) (*llm.Registry, error) {
	var providers []llm.Provider
	for _, name := range cfg.Configured() {
		b := cfg.Backend(name)
		p, err := backendConstructors[name](llm.Config{
			APIKey:  b.APIKey,
			Model:   b.Model,
			BaseURL: b.BaseURL,
			Timeout: cfg.Timeout,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", name, err)
		}
		providers = append(providers, p)
	}
	reg := llm.NewRegistry(providers...)
	if err := reg.SetDefault(cfg.Default); err != nil {
		return nil, err
	}
	return reg, nil
}

func newResearchClient(cfg config.DataForSEOConfig, logger *slog.Logger) *research.Client {
	return research.NewClient(research.Config{
		Login:    cfg.Login,
		Password: cfg.Password,
		BaseURL:  cfg.BaseURL,
		Locale: research.Locale{
			LocationCode: cfg.LocationCode,
			LanguageCode: cfg.LanguageCode,
		},
		RequestsPerSecond: cfg.RequestsPerSecond,
		Timeout:           cfg.Timeout,
	}, logger)
}

// newService wires the research client and generation backends into the
// pipeline shared by every surface.
func newService(cfg config.Config, logger *slog.Logger) (*generation.Service, error) {
	reg, err := buildRegistry(cfg.Providers, logger)
	if err != nil {
		return nil, err
	}
	rc := newResearchClient(cfg.DataForSEO, logger)
	if !rc.Configured() {
		logger.Warn("research: no DataForSEO credentials, runs will use the unavailable placeholder")
	}
	return generation.New(rc, reg, logger,
		generation.WithLocale(research.Locale{
			LocationCode: cfg.DataForSEO.LocationCode,
			LanguageCode: cfg.DataForSEO.LanguageCode,
		}),
		generation.WithSuggestionLimit(cfg.DataForSEO.SuggestionLimit),
	), nil
}
