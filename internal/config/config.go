// Package config holds operator-level configuration for an overshare
// installation: data directory, classifier endpoint and model, serving
// limits, retention. Values merge from env vars (OVERSHARE_*) and an
// optional overshare.config.yaml; the OpenAI API key additionally falls
// back to the conventional OPENAI_API_KEY for single-user setups.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Viper keys. Each maps to an env var with the OVERSHARE_ prefix
// (e.g. "openai_model" → OVERSHARE_OPENAI_MODEL) and to a YAML field
// in overshare.config.yaml.
const (
	KeyDataDir              = "data_dir"
	KeyOpenAIAPIKey         = "openai_api_key"
	KeyOpenAIModel          = "openai_model"
	KeyOpenAIBaseURL        = "openai_base_url"
	KeyClassifierCacheSize  = "classifier_cache_size"
	KeyNERBaseURL           = "ner_base_url"
	KeyRulesFile            = "rules_file"
	KeyListenAddr           = "listen_addr"
	KeyAPIKey               = "api_key"
	KeyMaxPostChars         = "max_post_chars"
	KeyRateLimitRPM         = "rate_limit_rpm"
	KeyHistoryRetentionDays = "history_retention_days"
)

const (
	DefaultOpenAIModel         = "gpt-4o-mini"
	DefaultClassifierCacheSize = 512
	DefaultListenAddr          = ":8087"
	DefaultMaxPostChars        = 5000
	DefaultRateLimitRPM        = 120
	DefaultRetentionDays       = 90
)

// Config holds resolved configuration for an overshare process.
type Config struct {
	DataDir              string // Base directory for all state (~/.overshare)
	OpenAIAPIKey         string // Classifier API key; empty disables model/hybrid modes
	OpenAIModel          string
	OpenAIBaseURL        string // Empty means the public OpenAI endpoint
	ClassifierCacheSize  int
	NERBaseURL           string // Entity recognizer sidecar; empty disables NER
	RulesFile            string // Optional scanner rule overrides (YAML)
	ListenAddr           string
	APIKey               string // When set, the HTTP API requires X-API-Key
	MaxPostChars         int
	RateLimitRPM         int
	HistoryRetentionDays int
}

// HistoryDBPath returns the full path to the analysis history SQLite database.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0o700)
}

// ClassifierEnabled reports whether model and hybrid modes have a backend.
func (c *Config) ClassifierEnabled() bool {
	return c.OpenAIAPIKey != ""
}

func init() {
	viper.SetEnvPrefix("OVERSHARE")
	viper.AutomaticEnv()
	viper.SetDefault(KeyOpenAIModel, DefaultOpenAIModel)
	viper.SetDefault(KeyClassifierCacheSize, DefaultClassifierCacheSize)
	viper.SetDefault(KeyListenAddr, DefaultListenAddr)
	viper.SetDefault(KeyMaxPostChars, DefaultMaxPostChars)
	viper.SetDefault(KeyRateLimitRPM, DefaultRateLimitRPM)
	viper.SetDefault(KeyHistoryRetentionDays, DefaultRetentionDays)
}

// Load reads configuration from Viper (which merges env vars, config file,
// and defaults) and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{
		DataDir:              resolveDataDir(),
		OpenAIAPIKey:         resolveAPIKey(),
		OpenAIModel:          viper.GetString(KeyOpenAIModel),
		OpenAIBaseURL:        viper.GetString(KeyOpenAIBaseURL),
		ClassifierCacheSize:  viper.GetInt(KeyClassifierCacheSize),
		NERBaseURL:           viper.GetString(KeyNERBaseURL),
		RulesFile:            viper.GetString(KeyRulesFile),
		ListenAddr:           viper.GetString(KeyListenAddr),
		APIKey:               viper.GetString(KeyAPIKey),
		MaxPostChars:         viper.GetInt(KeyMaxPostChars),
		RateLimitRPM:         viper.GetInt(KeyRateLimitRPM),
		HistoryRetentionDays: viper.GetInt(KeyHistoryRetentionDays),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func resolveDataDir() string {
	if dir := viper.GetString(KeyDataDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".overshare"
	}
	return filepath.Join(home, ".overshare")
}

// resolveAPIKey prefers the prefixed env/config value and falls back to the
// conventional OPENAI_API_KEY. The key has no baked-in default; without one
// the classifier stays disabled and rules mode keeps working.
func resolveAPIKey() string {
	if key := viper.GetString(KeyOpenAIAPIKey); key != "" {
		return key
	}
	return os.Getenv("OPENAI_API_KEY")
}

func (c *Config) validate() error {
	if c.MaxPostChars <= 0 {
		return fmt.Errorf("max_post_chars must be positive")
	}
	if c.RateLimitRPM <= 0 {
		return fmt.Errorf("rate_limit_rpm must be positive")
	}
	if c.ClassifierCacheSize <= 0 {
		return fmt.Errorf("classifier_cache_size must be positive")
	}
	if c.HistoryRetentionDays < 0 {
		return fmt.Errorf("history_retention_days must not be negative")
	}
	return nil
}
