package llm

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/marketbrief/marketbrief/internal/config"
)

// Manager owns the registered agents and routes every section-generation
// call to exactly one current agent. The current agent changes only via
// Switch; there is no automatic mid-run failover.
type Manager struct {
	mu      sync.RWMutex
	agents  map[string]Agent
	current string
	logger  *zap.Logger
}

// NewManager builds a Manager from configured credentials. Each present
// API key yields one registered agent carrying the configured call
// parameters; the current agent is the preferred one when registered,
// otherwise the first available in priority order. Returns ErrNoAgents
// when no key is configured.
func NewManager(cfg *config.Config, logger *zap.Logger, preferred string) (*Manager, error) {
	maxTokens := cfg.LLM.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	temperature := cfg.LLM.Temperature
	if temperature <= 0 {
		temperature = DefaultTemperature
	}
	timeout := cfg.LLMTimeout()
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var agents []Agent
	if cfg.LLM.OpenAIKey != "" {
		agents = append(agents, NewOpenAIAgent(cfg.LLM.OpenAIKey, logger,
			WithOpenAIMaxTokens(maxTokens),
			WithOpenAITemperature(temperature),
			WithOpenAITimeout(timeout)))
	}
	if cfg.LLM.AnthropicKey != "" {
		agents = append(agents, NewClaudeAgent(cfg.LLM.AnthropicKey, logger,
			WithClaudeMaxTokens(maxTokens),
			WithClaudeTemperature(temperature),
			WithClaudeTimeout(timeout)))
	}
	if cfg.LLM.GeminiKey != "" {
		agents = append(agents, NewGeminiAgent(cfg.LLM.GeminiKey, logger,
			WithGeminiMaxTokens(maxTokens),
			WithGeminiTemperature(temperature),
			WithGeminiTimeout(timeout)))
	}
	if preferred == "" {
		preferred = cfg.LLM.Preferred
	}
	return NewManagerWithAgents(logger, preferred, agents...)
}

// NewManagerWithAgents builds a Manager over explicit agents. Agents keep
// their registration order meaning only through Priority; duplicates by
// name overwrite.
func NewManagerWithAgents(logger *zap.Logger, preferred string, agents ...Agent) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		agents: make(map[string]Agent, len(agents)),
		logger: logger,
	}
	for _, a := range agents {
		m.agents[a.Name()] = a
	}
	if len(m.agents) == 0 {
		return nil, ErrNoAgents
	}

	if _, ok := m.agents[preferred]; ok {
		m.current = preferred
	} else {
		for _, name := range Priority {
			if _, ok := m.agents[name]; ok {
				m.current = name
				break
			}
		}
	}

	m.logger.Info("agent manager ready",
		zap.Strings("available", m.Available()),
		zap.String("current", m.current))
	return m, nil
}

// Switch changes the current agent. Returns false and leaves the current
// agent unchanged when the name is not registered.
func (m *Manager) Switch(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.agents[name]; !ok {
		m.logger.Warn("agent not available", zap.String("agent", name))
		return false
	}
	m.current = name
	m.logger.Info("switched agent", zap.String("agent", name))
	return true
}

// Current returns the name of the current agent.
func (m *Manager) Current() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Available returns the registered agent names in priority order.
func (m *Manager) Available() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.agents))
	for _, name := range Priority {
		if _, ok := m.agents[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// GenerateSection routes one section request to the current agent. It
// always returns usable text: backend failures produce an inline error
// placeholder so one bad section never aborts the report.
func (m *Manager) GenerateSection(ctx context.Context, prompt, data string) string {
	m.mu.RLock()
	agent := m.agents[m.current]
	m.mu.RUnlock()

	text, err := agent.GenerateSection(ctx, prompt, data)
	if err != nil {
		m.logger.Error("section generation failed",
			zap.String("agent", agent.Name()),
			zap.Error(err))
		return fmt.Sprintf("Error generating section: %v", err)
	}
	return text
}
