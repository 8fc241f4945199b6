package adapter

import (
	"context"
	"errors"
	"fmt"
)

// Message represents a plain-text chat message.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Part is one segment of a multimodal user message.
type Part struct {
	Type     string    `json:"type"` // "text" | "image_url"
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL carries an inline base64 data URL.
type ImageURL struct {
	URL string `json:"url"`
}

// ModelInfo describes a model.
type ModelInfo struct {
	Name        string
	Description string
	MaxTokens   int
	Supports    []string
}

// FailureKind classifies a chat call failure so callers never have to match
// substrings of provider error text.
type FailureKind int

const (
	FailOther FailureKind = iota
	FailContextOverflow
	FailTimeout
	FailRateLimited
)

func (k FailureKind) String() string {
	switch k {
	case FailContextOverflow:
		return "context_overflow"
	case FailTimeout:
		return "timeout"
	case FailRateLimited:
		return "rate_limited"
	default:
		return "other"
	}
}

// ChatError wraps a provider failure with its classification.
type ChatError struct {
	Kind FailureKind
	Err  error
}

func (e *ChatError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ChatError) Unwrap() error { return e.Err }

// Classify returns the failure kind of err, FailOther when unclassified.
func Classify(err error) FailureKind {
	var ce *ChatError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailTimeout
	}
	return FailOther
}

// AIServiceAdapter is the port for LLM chat and vision.
type AIServiceAdapter interface {
	ListModels(ctx context.Context) ([]string, error)
	GetModelInfo(model string) (ModelInfo, error)

	// CountTokens returns prompt tokens for the provided messages
	// (provider-specific counting; best-effort when exact isn't available).
	CountTokens(ctx context.Context, model string, messages []Message) (int, error)

	// Chat returns only the assistant text. Failures are *ChatError when the
	// provider response could be classified.
	Chat(ctx context.Context, model string, messages []Message) (string, error)

	// ChatVision sends the history plus one multimodal user message built
	// from parts, and returns the assistant text.
	ChatVision(ctx context.Context, model string, history []Message, parts []Part) (string, error)
}
