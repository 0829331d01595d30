package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/bobmcallan/tally/internal/models"
)

// LLM provider names
const (
	ProviderNone   = "none"
	ProviderGemini = "gemini"
	ProviderClaude = "claude"
)

// Config holds all configuration for Tally
type Config struct {
	Environment string                `toml:"environment"`
	Server      ServerConfig          `toml:"server"`
	Storage     StorageConfig         `toml:"storage"`
	Analysis    models.AnalysisConfig `toml:"analysis"`
	LLM         LLMConfig             `toml:"llm"`
	Logging     LoggingConfig         `toml:"logging"`
	Tracing     TracingConfig         `toml:"tracing"`
	Auth        AuthConfig            `toml:"auth"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds the dataset store and upload archive locations
type StorageConfig struct {
	Path        string `toml:"path"`
	UploadsPath string `toml:"uploads_path"`
}

// LLMConfig selects and configures the summary provider
type LLMConfig struct {
	Provider  string       `toml:"provider"` // "gemini", "claude" or "none"
	RateLimit int          `toml:"rate_limit"`
	Timeout   string       `toml:"timeout"`
	Gemini    GeminiConfig `toml:"gemini"`
	Claude    ClaudeConfig `toml:"claude"`
}

// GetTimeout parses and returns the timeout duration
func (c *LLMConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// ClaudeConfig holds Anthropic API configuration
type ClaudeConfig struct {
	APIKey    string `toml:"api_key"`
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string   `toml:"level"`
	Outputs  []string `toml:"outputs"`
	FilePath string   `toml:"file_path"`
}

// TracingConfig enables OpenTelemetry spans written to stdout
type TracingConfig struct {
	Enabled     bool   `toml:"enabled"`
	ServiceName string `toml:"service_name"`
}

// AuthConfig holds API bearer-token configuration. An empty secret disables auth.
type AuthConfig struct {
	JWTSecret   string `toml:"jwt_secret"`
	TokenExpiry string `toml:"token_expiry"` // duration string, default "24h"
}

// GetTokenExpiry parses and returns the token expiry duration.
func (c *AuthConfig) GetTokenExpiry() time.Duration {
	d, err := time.ParseDuration(c.TokenExpiry)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// Enabled reports whether bearer tokens are required.
func (c *AuthConfig) Enabled() bool {
	return c.JWTSecret != ""
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Path:        "data/datasets",
			UploadsPath: "data/uploads",
		},
		Analysis: models.DefaultAnalysisConfig(),
		LLM: LLMConfig{
			Provider:  ProviderNone,
			RateLimit: 2,
			Timeout:   "60s",
			Gemini: GeminiConfig{
				Model: "gemini-2.0-flash",
			},
			Claude: ClaudeConfig{
				Model:     "claude-sonnet-4-20250514",
				MaxTokens: 1024,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Outputs:  []string{"console"},
			FilePath: "./logs/tally.log",
		},
		Tracing: TracingConfig{
			ServiceName: "tally",
		},
		Auth: AuthConfig{
			TokenExpiry: "24h",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("TALLY_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("TALLY_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("TALLY_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("TALLY_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("TALLY_DATA_PATH"); path != "" {
		config.Storage.Path = filepath.Join(path, "datasets")
		config.Storage.UploadsPath = filepath.Join(path, "uploads")
	}

	if n := os.Getenv("TALLY_TOP_N"); n != "" {
		if v, err := strconv.Atoi(n); err == nil {
			config.Analysis.TopN = v
		}
	}

	if p := os.Getenv("TALLY_LLM_PROVIDER"); p != "" {
		config.LLM.Provider = strings.ToLower(p)
	}

	if v := os.Getenv("TALLY_AUTH_JWT_SECRET"); v != "" {
		config.Auth.JWTSecret = v
	}

	if v := ResolveAPIKey("gemini_api_key", config.LLM.Gemini.APIKey); v != "" {
		config.LLM.Gemini.APIKey = v
	}
	if v := ResolveAPIKey("anthropic_api_key", config.LLM.Claude.APIKey); v != "" {
		config.LLM.Claude.APIKey = v
	}
}

// Validate checks the configuration for values the services cannot use
func (c *Config) Validate() error {
	if err := c.Analysis.Validate(); err != nil {
		return err
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch c.LLM.Provider {
	case "", ProviderNone, ProviderGemini, ProviderClaude:
	default:
		return fmt.Errorf("llm.provider must be one of gemini, claude, none; got %q", c.LLM.Provider)
	}
	return nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ResolveAPIKey resolves an API key from environment, or the configured fallback
func ResolveAPIKey(name string, fallback string) string {
	keyToEnvMapping := map[string][]string{
		"gemini_api_key":    {"GEMINI_API_KEY", "TALLY_GEMINI_API_KEY", "GOOGLE_API_KEY"},
		"anthropic_api_key": {"ANTHROPIC_API_KEY", "TALLY_ANTHROPIC_API_KEY"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue
			}
		}
	}
	return fallback
}
