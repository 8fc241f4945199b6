package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"whatsapp-ai-translator/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.AIServiceAdapter = (*OpenAIAdapter)(nil)

// OpenAIAdapter implements adapter.AIServiceAdapter against an
// OpenAI-compatible Chat Completions gateway (GitHub Models by default).
// Chat completions path is the same as OpenAI: /chat/completions
// Authorization: Bearer <token>
type OpenAIAdapter struct {
	apiKey      string
	base        string // e.g., https://models.github.ai/inference
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
}

func NewOpenAIAdapter(apiKey, model, base string, temperature float64, maxTokens int, timeout time.Duration) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "openai/gpt-4.1"
	}
	if base == "" {
		base = "https://models.github.ai/inference"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &OpenAIAdapter{
		apiKey:      apiKey,
		base:        strings.TrimRight(base, "/"),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		client:      &http.Client{Timeout: timeout},
	}, nil
}

func (o *OpenAIAdapter) ListModels(ctx context.Context) ([]string, error) {
	return []string{o.model}, nil
}

func (o *OpenAIAdapter) GetModelInfo(model string) (adapter.ModelInfo, error) {
	if model == "" {
		model = o.model
	}
	return adapter.ModelInfo{
		Name:        model,
		Description: "OpenAI-compatible Chat Completions model",
		MaxTokens:   o.maxTokens,
		Supports:    []string{"text", "vision"},
	}, nil
}

// CountTokens approximates prompt tokens with tiktoken's cl100k_base encoding.
func (o *OpenAIAdapter) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return 0, err
	}
	total := 0
	for _, m := range messages {
		// 4 tokens of per-message framing, per the chat format accounting.
		total += 4 + len(enc.Encode(m.Content, nil, nil))
	}
	return total, nil
}

func (o *OpenAIAdapter) Chat(ctx context.Context, model string, messages []adapter.Message) (string, error) {
	payload := make([]any, 0, len(messages))
	for _, m := range messages {
		payload = append(payload, m)
	}
	return o.complete(ctx, model, payload)
}

func (o *OpenAIAdapter) ChatVision(ctx context.Context, model string, history []adapter.Message, parts []adapter.Part) (string, error) {
	payload := make([]any, 0, len(history)+1)
	for _, m := range history {
		payload = append(payload, m)
	}
	payload = append(payload, struct {
		Role    string         `json:"role"`
		Content []adapter.Part `json:"content"`
	}{Role: "user", Content: parts})
	return o.complete(ctx, model, payload)
}

func (o *OpenAIAdapter) complete(ctx context.Context, model string, messages []any) (string, error) {
	if model == "" {
		model = o.model
	}
	reqBody := struct {
		Model       string  `json:"model"`
		Messages    []any   `json:"messages"`
		Temperature float64 `json:"temperature"`
		MaxTokens   int     `json:"max_tokens"`
	}{Model: model, Messages: messages, Temperature: o.temperature, MaxTokens: o.maxTokens}

	b, _ := json.Marshal(reqBody)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, o.base+"/chat/completions", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", &adapter.ChatError{Kind: classifyTransport(err), Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return "", classifyAPIError(resp.StatusCode, body)
	}

	var payload struct {
		Choices []struct {
			Message adapter.Message `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	for _, c := range payload.Choices {
		if c.Message.Content != "" {
			return c.Message.Content, nil
		}
	}
	return "", errors.New("no choice content")
}

func classifyTransport(err error) adapter.FailureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return adapter.FailTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return adapter.FailTimeout
	}
	return adapter.FailOther
}

// classifyAPIError maps the provider's error envelope to a structured kind so
// nothing upstream ever matches provider message text.
func classifyAPIError(status int, body []byte) *adapter.ChatError {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	_ = json.Unmarshal(body, &envelope)

	kind := adapter.FailOther
	switch {
	case envelope.Error.Code == "context_length_exceeded",
		strings.Contains(strings.ToLower(envelope.Error.Message), "maximum context length"),
		status == http.StatusRequestEntityTooLarge:
		kind = adapter.FailContextOverflow
	case status == http.StatusTooManyRequests:
		kind = adapter.FailRateLimited
	}

	msg := envelope.Error.Message
	if msg == "" {
		msg = string(body)
	}
	return &adapter.ChatError{Kind: kind, Err: fmt.Errorf("openai http %d: %s", status, msg)}
}
