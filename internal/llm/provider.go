// Package llm provides a unified interface for the model backends that
// write report sections (OpenAI, Anthropic Claude, Google Gemini), plus a
// manager that picks one current agent and falls back across the rest.
package llm

import (
	"context"
	"errors"
	"time"
)

// Agent names as registered with the Manager. Priority order is fixed:
// openai first, then claude, then gemini.
const (
	AgentOpenAI = "openai"
	AgentClaude = "claude"
	AgentGemini = "gemini"
)

// Priority is the fixed agent preference order.
var Priority = []string{AgentOpenAI, AgentClaude, AgentGemini}

// Default models per backend.
const (
	DefaultOpenAIModel = "gpt-4-turbo-preview"
	DefaultClaudeModel = "claude-3-sonnet-20240229"
	DefaultGeminiModel = "gemini-pro"
)

// SystemPrompt frames every section-generation request identically across
// backends.
const SystemPrompt = "You are a financial analyst creating comprehensive market reports. Provide detailed, professional analysis."

// Generation parameters shared by all agents. Single attempt, no retry.
const (
	DefaultMaxTokens   = 2000
	DefaultTemperature = 0.7
	DefaultTimeout     = 120 * time.Second
)

// Common errors.
var (
	ErrNoAPIKey     = errors.New("API key not configured")
	ErrProviderDown = errors.New("provider is not available")
	ErrRateLimit    = errors.New("rate limit exceeded")
	ErrNoAgents     = errors.New("no AI agents available: configure at least one API key")
)

// Agent is the interface all model backends implement. GenerateSection
// sends one prompt plus the serialized market data and returns the
// generated section text.
type Agent interface {
	Name() string
	GenerateSection(ctx context.Context, prompt, data string) (string, error)
}

// userContent joins the section instructions with the data payload the way
// every backend expects it.
func userContent(prompt, data string) string {
	return prompt + "\n\nData to analyze:\n" + data
}
