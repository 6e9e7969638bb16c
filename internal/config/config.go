// Package config handles configuration loading for MarketBrief.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	LLM     LLMConfig     `mapstructure:"llm"     yaml:"llm"`
	Data    DataConfig    `mapstructure:"data"    yaml:"data"`
	Report  ReportConfig  `mapstructure:"report"  yaml:"report"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// LLMConfig holds model-provider credentials and call parameters.
// Exactly which agents initialize depends on which keys are present.
type LLMConfig struct {
	Preferred    string  `mapstructure:"preferred"     yaml:"preferred"` // "openai", "claude", "gemini"
	OpenAIKey    string  `mapstructure:"openai_key"    yaml:"openai_key"`
	AnthropicKey string  `mapstructure:"anthropic_key" yaml:"anthropic_key"`
	GeminiKey    string  `mapstructure:"gemini_key"    yaml:"gemini_key"`
	Temperature  float64 `mapstructure:"temperature"   yaml:"temperature"`
	MaxTokens    int     `mapstructure:"max_tokens"    yaml:"max_tokens"`
	TimeoutSec   int     `mapstructure:"timeout_sec"   yaml:"timeout_sec"`
}

// DataConfig holds optional data-source credentials and fetch settings.
type DataConfig struct {
	NewsAPIKey      string `mapstructure:"news_api_key"       yaml:"news_api_key"`
	AlphaVantageKey string `mapstructure:"alpha_vantage_key"  yaml:"alpha_vantage_key"`
	TimeoutSec      int    `mapstructure:"timeout_sec"        yaml:"timeout_sec"`
}

// ReportConfig holds report output settings.
type ReportConfig struct {
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"` // "debug", "info", "warn", "error"
}

// LLMTimeout returns the per-call timeout for model requests.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSec) * time.Second
}

// DataTimeout returns the per-call timeout for data fetches.
func (c *Config) DataTimeout() time.Duration {
	return time.Duration(c.Data.TimeoutSec) * time.Second
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.marketbrief/config.yaml (home directory)
//
// Environment variables override config file values.
// Format: MARKETBRIEF_<SECTION>_<KEY>, e.g., MARKETBRIEF_LLM_OPENAI_KEY.
// The classic unprefixed secret names (OPENAI_API_KEY, ANTHROPIC_API_KEY,
// GOOGLE_API_KEY, NEWS_API_KEY, ALPHA_VANTAGE_API_KEY) are honored too.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".marketbrief"))

	v.SetEnvPrefix("MARKETBRIEF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults plus env vars apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("MARKETBRIEF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Model call parameters match the fixed section-generation framing:
	// bounded output, fixed sampling temperature.
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 2000)
	v.SetDefault("llm.timeout_sec", 120)

	v.SetDefault("data.timeout_sec", 30)

	v.SetDefault("report.output_dir", ".")

	v.SetDefault("logging.level", "info")
}

// overrideFromEnv explicitly reads secrets from environment variables.
// Both the prefixed form and the conventional provider names are accepted;
// the conventional names win so existing .env files keep working.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("MARKETBRIEF_LLM_OPENAI_KEY"); key != "" {
		cfg.LLM.OpenAIKey = key
	}
	if key := os.Getenv("MARKETBRIEF_LLM_ANTHROPIC_KEY"); key != "" {
		cfg.LLM.AnthropicKey = key
	}
	if key := os.Getenv("MARKETBRIEF_LLM_GEMINI_KEY"); key != "" {
		cfg.LLM.GeminiKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.LLM.OpenAIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		cfg.LLM.AnthropicKey = key
	}
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		cfg.LLM.GeminiKey = key
	}
	if key := os.Getenv("NEWS_API_KEY"); key != "" {
		cfg.Data.NewsAPIKey = key
	}
	if key := os.Getenv("ALPHA_VANTAGE_API_KEY"); key != "" {
		cfg.Data.AlphaVantageKey = key
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
