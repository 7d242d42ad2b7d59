// Package config provides the configuration schema and loader for the YAP
// server.
package config

// LogLevel controls log verbosity for the YAP server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for YAP.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Export   ExportConfig   `yaml:"export"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	LLM      LLMConfig      `yaml:"llm"`
	TTS      TTSConfig      `yaml:"tts"`
	Profiles ProfilesConfig `yaml:"profiles"`
	Settings SettingsConfig `yaml:"settings"`
}

// ServerConfig holds network and logging settings for the YAP server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8090").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// ExportConfig tunes the export dispatch pipeline.
type ExportConfig struct {
	// TimeoutSeconds is the per-attempt HTTP timeout for delivering an
	// export to its destination. Zero means the dispatcher default.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// RelayURL is the server-side relay endpoint used as a fallback when a
	// direct browser-style delivery is blocked. Empty disables relaying.
	RelayURL string `yaml:"relay_url"`
}

// MetricsConfig locates the local usage metrics store.
type MetricsConfig struct {
	// SQLitePath is the path of the SQLite database file holding usage
	// events (e.g., "yap-metrics.db"). ":memory:" keeps events in memory.
	SQLitePath string `yaml:"sqlite_path"`
}

// LLMConfig selects the chat model backend for the chat proxy.
type LLMConfig struct {
	// Provider names the backend (e.g., "ollama", "openai"). Defaults to
	// "ollama" when empty.
	Provider string `yaml:"provider"`

	// BaseURL overrides the backend's default endpoint. For Ollama this is
	// the runtime address (default http://localhost:11434).
	BaseURL string `yaml:"base_url"`

	// Model is the default model offered to clients (e.g., "llama3.2").
	Model string `yaml:"model"`

	// APIKey authenticates against hosted backends. Unused for Ollama.
	APIKey string `yaml:"api_key"`
}

// TTSConfig locates the speech synthesis engine used for read-along.
type TTSConfig struct {
	// URL is the Coqui TTS server address (e.g., "http://localhost:5002").
	URL string `yaml:"url"`

	// Language is the language code sent with synthesis requests.
	Language string `yaml:"language"`
}

// ProfilesConfig selects the export profile store backend.
type ProfilesConfig struct {
	// PostgresDSN is the PostgreSQL connection string for durable profile
	// storage. When empty, profiles are kept in memory.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// SettingsConfig locates the persisted user settings.
type SettingsConfig struct {
	// Path is the JSON settings file (e.g., "yap-settings.json").
	Path string `yaml:"path"`
}
