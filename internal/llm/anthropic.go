package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion        = "2023-06-01"
)

// ClaudeAgent generates sections via the Anthropic messages API.
type ClaudeAgent struct {
	apiKey      string
	model       string
	baseURL     string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
	logger      *zap.Logger
}

// ClaudeOption configures the Claude agent.
type ClaudeOption func(*ClaudeAgent)

// WithClaudeModel sets the model to use.
func WithClaudeModel(model string) ClaudeOption {
	return func(a *ClaudeAgent) { a.model = model }
}

// WithClaudeBaseURL sets a custom API base URL.
func WithClaudeBaseURL(url string) ClaudeOption {
	return func(a *ClaudeAgent) { a.baseURL = url }
}

// WithClaudeHTTPClient sets a custom HTTP client.
func WithClaudeHTTPClient(client *http.Client) ClaudeOption {
	return func(a *ClaudeAgent) { a.httpClient = client }
}

// WithClaudeMaxTokens sets the completion token limit.
func WithClaudeMaxTokens(n int) ClaudeOption {
	return func(a *ClaudeAgent) { a.maxTokens = n }
}

// WithClaudeTemperature sets the sampling temperature.
func WithClaudeTemperature(t float64) ClaudeOption {
	return func(a *ClaudeAgent) { a.temperature = t }
}

// WithClaudeTimeout sets the per-request timeout.
func WithClaudeTimeout(d time.Duration) ClaudeOption {
	return func(a *ClaudeAgent) { a.httpClient.Timeout = d }
}

// NewClaudeAgent creates an Anthropic-backed agent.
func NewClaudeAgent(apiKey string, logger *zap.Logger, opts ...ClaudeOption) *ClaudeAgent {
	a := &ClaudeAgent{
		apiKey:      apiKey,
		model:       DefaultClaudeModel,
		baseURL:     defaultAnthropicBaseURL,
		maxTokens:   DefaultMaxTokens,
		temperature: DefaultTemperature,
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		logger:      logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name implements Agent.
func (a *ClaudeAgent) Name() string { return AgentClaude }

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// GenerateSection implements Agent. The system framing travels in the
// top-level system field, not as a message.
func (a *ClaudeAgent) GenerateSection(ctx context.Context, prompt, data string) (string, error) {
	if a.apiKey == "" {
		return "", ErrNoAPIKey
	}

	reqBody := anthropicRequest{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
		System:      SystemPrompt,
		Messages: []anthropicMessage{
			{Role: "user", Content: userContent(prompt, data)},
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.logger.Warn("anthropic request failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrProviderDown, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		err := a.mapError(resp.StatusCode, respBody)
		a.logger.Warn("anthropic request failed",
			zap.Int("status", resp.StatusCode),
			zap.Error(err))
		return "", err
	}

	var out anthropicResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	if len(out.Content) == 0 {
		return "", fmt.Errorf("anthropic: empty response")
	}
	return out.Content[0].Text, nil
}

func (a *ClaudeAgent) mapError(status int, body []byte) error {
	var out anthropicResponse
	msg := string(body)
	if json.Unmarshal(body, &out) == nil && out.Error != nil {
		msg = out.Error.Message
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrNoAPIKey, msg)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimit, msg)
	case http.StatusInternalServerError, http.StatusServiceUnavailable, 529:
		return fmt.Errorf("%w: %s", ErrProviderDown, msg)
	default:
		return fmt.Errorf("anthropic: HTTP %d: %s", status, msg)
	}
}
