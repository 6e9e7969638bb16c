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

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIAgent generates sections via the OpenAI chat completions API.
type OpenAIAgent struct {
	apiKey      string
	model       string
	baseURL     string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
	logger      *zap.Logger
}

// OpenAIOption configures the OpenAI agent.
type OpenAIOption func(*OpenAIAgent)

// WithOpenAIModel sets the model to use.
func WithOpenAIModel(model string) OpenAIOption {
	return func(a *OpenAIAgent) { a.model = model }
}

// WithOpenAIBaseURL sets a custom API base URL.
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(a *OpenAIAgent) { a.baseURL = url }
}

// WithOpenAIHTTPClient sets a custom HTTP client.
func WithOpenAIHTTPClient(client *http.Client) OpenAIOption {
	return func(a *OpenAIAgent) { a.httpClient = client }
}

// WithOpenAIMaxTokens sets the completion token limit.
func WithOpenAIMaxTokens(n int) OpenAIOption {
	return func(a *OpenAIAgent) { a.maxTokens = n }
}

// WithOpenAITemperature sets the sampling temperature.
func WithOpenAITemperature(t float64) OpenAIOption {
	return func(a *OpenAIAgent) { a.temperature = t }
}

// WithOpenAITimeout sets the per-request timeout.
func WithOpenAITimeout(d time.Duration) OpenAIOption {
	return func(a *OpenAIAgent) { a.httpClient.Timeout = d }
}

// NewOpenAIAgent creates an OpenAI-backed agent.
func NewOpenAIAgent(apiKey string, logger *zap.Logger, opts ...OpenAIOption) *OpenAIAgent {
	a := &OpenAIAgent{
		apiKey:      apiKey,
		model:       DefaultOpenAIModel,
		baseURL:     defaultOpenAIBaseURL,
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
func (a *OpenAIAgent) Name() string { return AgentOpenAI }

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// GenerateSection implements Agent.
func (a *OpenAIAgent) GenerateSection(ctx context.Context, prompt, data string) (string, error) {
	if a.apiKey == "" {
		return "", ErrNoAPIKey
	}

	reqBody := openAIRequest{
		Model: a.model,
		Messages: []openAIMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: userContent(prompt, data)},
		},
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.logger.Warn("openai request failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrProviderDown, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		err := a.mapError(resp.StatusCode, respBody)
		a.logger.Warn("openai request failed",
			zap.Int("status", resp.StatusCode),
			zap.Error(err))
		return "", err
	}

	var out openAIResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openai: empty response")
	}
	return out.Choices[0].Message.Content, nil
}

// mapError converts HTTP error responses to typed errors.
func (a *OpenAIAgent) mapError(status int, body []byte) error {
	var out openAIResponse
	msg := string(body)
	if json.Unmarshal(body, &out) == nil && out.Error != nil {
		msg = out.Error.Message
	}

	switch status {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrNoAPIKey, msg)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimit, msg)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %s", ErrProviderDown, msg)
	default:
		return fmt.Errorf("openai: HTTP %d: %s", status, msg)
	}
}
