// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultBrandPersona is used when no persona is configured.
const DefaultBrandPersona = "Friendly, helpful, and slightly tech-savvy. Aims to simplify complex topics."

// Provider names accepted in Providers
const (
	ProviderGemini   = "gemini"
	ProviderOpenAI   = "openai"
	ProviderFallback = "fallback"
)

// Config represents the application configuration that can be loaded from a JSON or YAML file.
// All fields are optional; missing values use defaults or environment overrides.
type Config struct {
	// Server
	Port        int    `json:"port,omitempty" yaml:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	DatabaseURL string `json:"database_url,omitempty" yaml:"database_url,omitempty"` // PostgreSQL connection URL
	AMQPURL     string `json:"amqp_url,omitempty" yaml:"amqp_url,omitempty"`         // RabbitMQ URL for lifecycle events
	SeedCatalog bool   `json:"seed_catalog,omitempty" yaml:"seed_catalog,omitempty"` // Load demo products into an empty catalog

	// Providers, in failover order
	Providers     []string `json:"providers,omitempty" yaml:"providers,omitempty" validate:"omitempty,dive,oneof=gemini openai fallback"`
	GeminiAPIKey  string   `json:"gemini_api_key,omitempty" yaml:"gemini_api_key,omitempty"`
	GeminiModel   string   `json:"gemini_model,omitempty" yaml:"gemini_model,omitempty"` // Overrides the standard-tier model
	OpenAIAPIKey  string   `json:"openai_api_key,omitempty" yaml:"openai_api_key,omitempty"`
	OpenAIModel   string   `json:"openai_model,omitempty" yaml:"openai_model,omitempty"`
	OpenAIBaseURL string   `json:"openai_base_url,omitempty" yaml:"openai_base_url,omitempty" validate:"omitempty,url"`

	// Pipeline
	BrandPersona      string            `json:"brand_persona,omitempty" yaml:"brand_persona,omitempty"`
	MaxRetries        *int              `json:"max_retries,omitempty" yaml:"max_retries,omitempty" validate:"omitempty,min=0,max=10"` // nil means unset; 0 disables retries
	TimeoutSeconds    int               `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty" validate:"min=0"`
	ReselectPerStage  bool              `json:"reselect_per_stage,omitempty" yaml:"reselect_per_stage,omitempty"`
	VerifySources     bool              `json:"verify_sources,omitempty" yaml:"verify_sources,omitempty"`
	UseBrowser        bool              `json:"use_browser,omitempty" yaml:"use_browser,omitempty"` // Render thin source pages with a headless browser
	StagePolicies     map[string]string `json:"stage_policies,omitempty" yaml:"stage_policies,omitempty" validate:"omitempty,dive,oneof=substitute abort"`
	FallbackLatencyMs *int              `json:"fallback_latency_ms,omitempty" yaml:"fallback_latency_ms,omitempty" validate:"omitempty,min=0"`

	// Logging
	LogLevel  string `json:"log_level,omitempty" yaml:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	LogFormat string `json:"log_format,omitempty" yaml:"log_format,omitempty" validate:"omitempty,oneof=json text"`
	Verbose   bool   `json:"verbose,omitempty" yaml:"verbose,omitempty"` // Print stage progress boxes
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:              8080,
		Providers:         []string{ProviderGemini, ProviderOpenAI, ProviderFallback},
		BrandPersona:      DefaultBrandPersona,
		MaxRetries:        intPtr(2),
		TimeoutSeconds:    15,
		FallbackLatencyMs: intPtr(500),
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// LoadConfig loads configuration from a JSON or YAML file, chosen by extension.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// ApplyEnv overrides fields from environment variables that are set.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	strs := map[string]*string{
		"DATABASE_URL":    &c.DatabaseURL,
		"AMQP_URL":        &c.AMQPURL,
		"GEMINI_API_KEY":  &c.GeminiAPIKey,
		"GEMINI_MODEL":    &c.GeminiModel,
		"OPENAI_API_KEY":  &c.OpenAIAPIKey,
		"OPENAI_MODEL":    &c.OpenAIModel,
		"OPENAI_BASE_URL": &c.OpenAIBaseURL,
		"BRAND_PERSONA":   &c.BrandPersona,
		"LOG_LEVEL":       &c.LogLevel,
		"LOG_FORMAT":      &c.LogFormat,
	}
	for key, field := range strs {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*field = v
		}
	}
	if v := getenv("LLM_PROVIDERS"); v != "" {
		c.Providers = splitList(v)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToLower(part))
		}
	}
	return out
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	seen := make(map[string]bool, len(c.Providers))
	for _, p := range c.Providers {
		if seen[p] {
			return fmt.Errorf("config error: provider %q listed twice", p)
		}
		seen[p] = true
	}

	if c.UseBrowser && !c.VerifySources {
		return fmt.Errorf("config error: 'use_browser' requires 'verify_sources'")
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply built-in values under a partial config file.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.AMQPURL == "" {
		result.AMQPURL = defaults.AMQPURL
	}
	if result.GeminiAPIKey == "" {
		result.GeminiAPIKey = defaults.GeminiAPIKey
	}
	if result.OpenAIAPIKey == "" {
		result.OpenAIAPIKey = defaults.OpenAIAPIKey
	}
	if result.OpenAIBaseURL == "" {
		result.OpenAIBaseURL = defaults.OpenAIBaseURL
	}
	if strings.TrimSpace(result.BrandPersona) == "" {
		result.BrandPersona = defaults.BrandPersona
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}
	if result.LogFormat == "" {
		result.LogFormat = defaults.LogFormat
	}

	// Int fields: use default if zero
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.MaxRetries == nil && defaults.MaxRetries != nil {
		result.MaxRetries = intPtr(*defaults.MaxRetries)
	}
	if result.TimeoutSeconds == 0 {
		result.TimeoutSeconds = defaults.TimeoutSeconds
	}
	if result.FallbackLatencyMs == nil && defaults.FallbackLatencyMs != nil {
		result.FallbackLatencyMs = intPtr(*defaults.FallbackLatencyMs)
	}

	if len(result.Providers) == 0 {
		result.Providers = append([]string(nil), defaults.Providers...)
	}
	if len(result.StagePolicies) == 0 && len(defaults.StagePolicies) > 0 {
		result.StagePolicies = make(map[string]string, len(defaults.StagePolicies))
		for k, v := range defaults.StagePolicies {
			result.StagePolicies[k] = v
		}
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// Retries returns the configured retry count, zero when unset.
func (c *Config) Retries() int {
	if c.MaxRetries == nil {
		return 0
	}
	return *c.MaxRetries
}

// FallbackLatency returns the simulated latency of the offline provider.
func (c *Config) FallbackLatency() time.Duration {
	if c.FallbackLatencyMs == nil {
		return 0
	}
	return time.Duration(*c.FallbackLatencyMs) * time.Millisecond
}

func intPtr(v int) *int { return &v }

// Load reads the optional config file, fills defaults and applies environment
// overrides, then validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	merged := cfg.MergeWithDefaults(Default())
	merged.ApplyEnv(os.Getenv)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}
