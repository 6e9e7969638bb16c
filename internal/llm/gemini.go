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

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiAgent generates sections via the Google Generative Language API.
type GeminiAgent struct {
	apiKey      string
	model       string
	baseURL     string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
	logger      *zap.Logger
}

// GeminiOption configures the Gemini agent.
type GeminiOption func(*GeminiAgent)

// WithGeminiModel sets the model to use.
func WithGeminiModel(model string) GeminiOption {
	return func(a *GeminiAgent) { a.model = model }
}

// WithGeminiBaseURL sets a custom API base URL.
func WithGeminiBaseURL(url string) GeminiOption {
	return func(a *GeminiAgent) { a.baseURL = url }
}

// WithGeminiHTTPClient sets a custom HTTP client.
func WithGeminiHTTPClient(client *http.Client) GeminiOption {
	return func(a *GeminiAgent) { a.httpClient = client }
}

// WithGeminiMaxTokens sets the completion token limit.
func WithGeminiMaxTokens(n int) GeminiOption {
	return func(a *GeminiAgent) { a.maxTokens = n }
}

// WithGeminiTemperature sets the sampling temperature.
func WithGeminiTemperature(t float64) GeminiOption {
	return func(a *GeminiAgent) { a.temperature = t }
}

// WithGeminiTimeout sets the per-request timeout.
func WithGeminiTimeout(d time.Duration) GeminiOption {
	return func(a *GeminiAgent) { a.httpClient.Timeout = d }
}

// NewGeminiAgent creates a Gemini-backed agent.
func NewGeminiAgent(apiKey string, logger *zap.Logger, opts ...GeminiOption) *GeminiAgent {
	a := &GeminiAgent{
		apiKey:      apiKey,
		model:       DefaultGeminiModel,
		baseURL:     defaultGeminiBaseURL,
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
func (a *GeminiAgent) Name() string { return AgentGemini }

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// GenerateSection implements Agent. Gemini has no system role, so the
// framing is prepended to the user turn.
func (a *GeminiAgent) GenerateSection(ctx context.Context, prompt, data string) (string, error) {
	if a.apiKey == "" {
		return "", ErrNoAPIKey
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{
			{
				Role:  "user",
				Parts: []geminiPart{{Text: SystemPrompt + "\n\n" + userContent(prompt, data)}},
			},
		},
		GenerationConfig: geminiGenConfig{
			MaxOutputTokens: a.maxTokens,
			Temperature:     a.temperature,
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", a.baseURL, a.model, a.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.logger.Warn("gemini request failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrProviderDown, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		err := a.mapError(resp.StatusCode, respBody)
		a.logger.Warn("gemini request failed",
			zap.Int("status", resp.StatusCode),
			zap.Error(err))
		return "", err
	}

	var out geminiResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: empty response")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}

func (a *GeminiAgent) mapError(status int, body []byte) error {
	var out geminiResponse
	msg := string(body)
	if json.Unmarshal(body, &out) == nil && out.Error != nil {
		msg = out.Error.Message
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrNoAPIKey, msg)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimit, msg)
	case http.StatusInternalServerError, http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %s", ErrProviderDown, msg)
	default:
		return fmt.Errorf("gemini: HTTP %d: %s", status, msg)
	}
}
