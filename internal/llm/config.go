// Package llm provides the provider capability contract used by the analysis
// pipeline, the model clients behind it and the call-hint enforcement
// (retries, per-attempt deadlines) every agent call goes through.
package llm

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for simple tasks: connectivity checks, scoring, short answers
	TierLite ModelTier = "lite"
	// TierStandard is for structured output: sources, SEO, analysis
	TierStandard ModelTier = "standard"
	// TierAdvanced is for long-form generation: reviews, scripts
	TierAdvanced ModelTier = "advanced"
)

// Backend identifies the vendor SDK a Client talks to
type Backend string

// Backend constants define supported model vendors
const (
	// BackendGemini is the Google Gemini API
	BackendGemini Backend = "gemini"
	// BackendOpenAI is the OpenAI Chat Completions API (or a compatible endpoint)
	BackendOpenAI Backend = "openai"
)

// Config holds the model configuration for one client
type Config struct {
	Backend Backend
	Models  map[ModelTier]string
	// BaseURL overrides the vendor endpoint (OpenAI-compatible gateways)
	BaseURL string
}

// DefaultConfig returns the default configuration (Gemini)
func DefaultConfig() *Config {
	return DefaultGeminiConfig()
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Backend: BackendGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
	}
}

// DefaultOpenAIConfig returns the default OpenAI configuration
func DefaultOpenAIConfig() *Config {
	return &Config{
		Backend: BackendOpenAI,
		Models: map[ModelTier]string{
			TierLite:     "gpt-4o-mini",
			TierStandard: "gpt-4o-mini",
			TierAdvanced: "gpt-4o",
		},
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := &Config{
		Backend: c.Backend,
		BaseURL: c.BaseURL,
		Models:  make(map[ModelTier]string, len(c.Models)+1),
	}
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return newConfig
}
