package config

import (
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Backend  BackendConfig
	Model    ModelConfig
	Ollama   OllamaConfig
	Storage  StorageConfig
	Log      LogConfig
	Prober   ProberConfig
	Panel    PanelConfig
	Generate GenerateConfig
	Extract  ExtractConfig
	Browser  BrowserConfig
}

type ServerConfig struct {
	Port  int
	Token string
}

// BackendConfig points at the message-generation service tried first.
type BackendConfig struct {
	URL string
}

// ModelConfig configures the direct OpenRouter fallback. An empty APIKey
// disables that tier.
type ModelConfig struct {
	APIKey string
	// KeySource is KeyFromEnv or KeyFromKeychain when APIKey is set.
	KeySource string
	ID        string
	BaseURL   string
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

type ProberConfig struct {
	Timeout      time.Duration
	PollInterval time.Duration
}

type PanelConfig struct {
	Cooldown time.Duration
}

type GenerateConfig struct {
	TierTimeout time.Duration
}

type ExtractConfig struct {
	MaxPosts int
}

type BrowserConfig struct {
	Headless bool
	// UserDataDir defaults to a chromium directory under the data dir.
	UserDataDir string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4100,
		},
		Backend: BackendConfig{
			URL: "http://localhost:8000",
		},
		Model: ModelConfig{
			ID:      "meta-llama/llama-3.3-8b-instruct:free",
			BaseURL: "https://openrouter.ai/api/v1",
		},
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
			Model:   "phi3.5",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
		Prober: ProberConfig{
			Timeout:      15 * time.Second,
			PollInterval: time.Second,
		},
		Panel: PanelConfig{
			Cooldown: 800 * time.Millisecond,
		},
		Generate: GenerateConfig{
			TierTimeout: 30 * time.Second,
		},
		Extract: ExtractConfig{
			MaxPosts: 5,
		},
	}
}

// Load reads configuration from the platform store, environment variables,
// and the platform secret store.
//
// On macOS the store is UserDefaults (domain: com.genreach.app) and the
// OpenRouter key falls back to the macOS Keychain.
// Elsewhere the store is a JSON file at $XDG_CONFIG_HOME/genreach/config.json
// and the key falls back to $XDG_DATA_HOME/genreach/secrets.json.
//
// Environment variables (GENREACH_*) override stored values on all platforms.
// A missing API key is not an error: the direct model tier is simply skipped.
func Load() (Config, error) {
	return loadWith(newPlatformStore(), keychainReader{})
}

// keychain abstracts the secret store for testing.
type keychain interface {
	APIKey() (string, error)
}

func loadWith(b store, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyStore(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Model.APIKey != "" {
		cfg.Model.KeySource = KeyFromEnv
	} else if key, err := kc.APIKey(); err == nil && key != "" {
		cfg.Model.APIKey = key
		cfg.Model.KeySource = KeyFromKeychain
	}

	if cfg.Browser.UserDataDir == "" {
		cfg.Browser.UserDataDir = browserProfileDir(cfg.Storage.DataDir)
	}

	return cfg, nil
}

// HasModelKey reports whether the direct model tier can be used.
func (c Config) HasModelKey() bool {
	return strings.TrimSpace(c.Model.APIKey) != ""
}

// keychainReader reads the platform secret store.
type keychainReader struct{}

func (keychainReader) APIKey() (string, error) {
	out, err := secretLookup()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
