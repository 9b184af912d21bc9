package config

import (
	"strings"
	"time"

	"github.com/perfil/perfil/internal/backend"
)

type Config struct {
	Server      ServerConfig
	Backends    BackendsConfig
	Render      RenderConfig
	Medium      MediumConfig
	Storage     StorageConfig
	Log         LogConfig
	Environment string
}

type ServerConfig struct {
	Port int
	// Token guards the management API when non-empty.
	Token string
}

type BackendsConfig struct {
	// Timeout is the per-attempt request timeout as a Go duration string.
	Timeout string
	// InsecureSkipVerify disables TLS verification on backend calls. It is
	// forced off when Environment is "production".
	InsecureSkipVerify bool

	Pollinations PollinationsConfig
	OpenAI       OpenAIConfig
	Gemini       GeminiConfig
}

type PollinationsConfig struct {
	BaseURL string
	Model   string
	Token   string
}

type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	Organization string
	Project      string
}

type GeminiConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type RenderConfig struct {
	// Prefer names the paid backend tried first for HTML generation.
	// Empty or "auto" picks the first configured one.
	Prefer string
}

type MediumConfig struct {
	RapidAPIKey  string
	RapidAPIHost string
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4000,
		},
		Backends: BackendsConfig{
			Timeout: "60s",
			Pollinations: PollinationsConfig{
				BaseURL: backend.DefaultPollinationsURL,
				Model:   backend.DefaultPollinationsModel,
			},
			OpenAI: OpenAIConfig{
				BaseURL: backend.DefaultOpenAIURL,
				Model:   backend.DefaultOpenAIModel,
			},
			Gemini: GeminiConfig{
				BaseURL: backend.DefaultGeminiURL,
				Model:   backend.DefaultGeminiModel,
			},
		},
		Render: RenderConfig{
			Prefer: "auto",
		},
		Medium: MediumConfig{
			RapidAPIHost: "medium2.p.rapidapi.com",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
		Environment: "development",
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.perfil.app) and secrets
// fall back to macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/perfil/config.json
// and secrets must be provided via environment variables.
//
// Environment variables (PERFIL_*) override backend values on all platforms.
// No key is required: the free backend works without credentials.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts Keychain access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	// Try platform keychain for secrets still empty after env overrides.
	fillSecret := func(dst *string, account string) {
		if *dst != "" {
			return
		}
		if v, err := kc.Get("perfil", account); err == nil && v != "" {
			*dst = v
		}
	}
	fillSecret(&cfg.Server.Token, "service_token")
	fillSecret(&cfg.Backends.Pollinations.Token, "pollinations_token")
	fillSecret(&cfg.Backends.OpenAI.APIKey, "openai_api_key")
	fillSecret(&cfg.Backends.Gemini.APIKey, "gemini_api_key")
	fillSecret(&cfg.Medium.RapidAPIKey, "rapidapi_key")

	if cfg.Production() {
		cfg.Backends.InsecureSkipVerify = false
	}

	return cfg, nil
}

// Production reports whether the service runs in production mode.
func (c Config) Production() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

// RequestTimeout parses Backends.Timeout, falling back to one minute.
func (c Config) RequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.Backends.Timeout)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

// keychainReader reads from macOS Keychain via the security CLI.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainExec(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
