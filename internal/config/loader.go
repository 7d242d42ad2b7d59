package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidLLMProviders lists the chat backends the proxy knows how to build.
// Used by [Validate] to warn about unrecognised provider names.
var ValidLLMProviders = []string{
	"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	// Export
	if cfg.Export.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("export.timeout_seconds %d must not be negative", cfg.Export.TimeoutSeconds))
	}

	// LLM provider name — warn for unknown names, they may be typos or
	// backends added to any-llm-go after this list was written.
	if name := cfg.LLM.Provider; name != "" && !slices.Contains(ValidLLMProviders, name) {
		slog.Warn("unknown llm provider name",
			"name", name,
			"known", ValidLLMProviders,
		)
	}

	// Availability warnings
	if cfg.LLM.Model == "" {
		slog.Warn("llm.model is empty; chat requests must name a model explicitly")
	}
	if cfg.TTS.URL == "" {
		slog.Warn("tts.url is empty; read-along will be unavailable")
	}
	if cfg.Profiles.PostgresDSN == "" {
		slog.Warn("profiles.postgres_dsn is empty; export profiles will not survive restarts")
	}

	return errors.Join(errs...)
}
