package ai

import (
	"context"

	"whatsapp-ai-translator/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.AIServiceAdapter = (*NoopAI)(nil)

// NoopAI is a stand-in for development without provider credentials. It
// echoes the last user text back.
type NoopAI struct{}

func NewNoopAI() *NoopAI { return &NoopAI{} }

func (n *NoopAI) ListModels(ctx context.Context) ([]string, error) {
	return []string{"noop"}, nil
}

func (n *NoopAI) GetModelInfo(model string) (adapter.ModelInfo, error) {
	return adapter.ModelInfo{Name: "noop", Description: "echo adapter"}, nil
}

func (n *NoopAI) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	total := 0
	for _, m := range messages {
		total += len(m.Content) / 4
	}
	return total, nil
}

func (n *NoopAI) Chat(ctx context.Context, model string, messages []adapter.Message) (string, error) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return "eco: " + messages[i].Content, nil
		}
	}
	return "eco", nil
}

func (n *NoopAI) ChatVision(ctx context.Context, model string, history []adapter.Message, parts []adapter.Part) (string, error) {
	for _, p := range parts {
		if p.Type == "text" {
			return "eco: " + p.Text, nil
		}
	}
	return "eco: imagen recibida", nil
}
