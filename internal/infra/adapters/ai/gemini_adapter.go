package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"google.golang.org/genai"

	"whatsapp-ai-translator/internal/domain/ports/adapter"
)

var _ adapter.AIServiceAdapter = (*GeminiAdapter)(nil)

// GeminiAdapter is the alternative provider, using the official SDK.
type GeminiAdapter struct {
	client       *genai.Client
	defaultModel string
	temperature  float64
	maxOut       int
}

func NewGeminiAdapter(ctx context.Context, apiKey, baseURL, defaultModel string, temperature float64, maxOut int) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiAdapter{client: c, defaultModel: defaultModel, temperature: temperature, maxOut: maxOut}, nil
}

func (g *GeminiAdapter) ListModels(ctx context.Context) ([]string, error) {
	models := g.client.Models.All(ctx)
	var out []string
	for m := range models {
		if m.Name != "" {
			out = append(out, m.Name)
		}
	}
	if len(out) == 0 && g.defaultModel != "" {
		out = []string{g.defaultModel}
	}
	return out, nil
}

func (g *GeminiAdapter) GetModelInfo(model string) (adapter.ModelInfo, error) {
	ctx := context.Background()
	m, err := g.client.Models.Get(ctx, model, nil)
	if err != nil {
		// Return minimal info on error so callers aren't blocked.
		return adapter.ModelInfo{Name: model}, nil
	}
	return adapter.ModelInfo{
		Name:        m.Name,
		Description: m.Description,
		MaxTokens:   int(m.InputTokenLimit),
		Supports:    m.SupportedActions,
	}, nil
}

func (g *GeminiAdapter) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	contents := toGenAIHistory(messages)
	resp, err := g.client.Models.CountTokens(ctx, modelOrDefault(model, g.defaultModel), contents, nil)
	if err != nil {
		return 0, err
	}
	return int(resp.TotalTokens), nil
}

func (g *GeminiAdapter) Chat(ctx context.Context, model string, messages []adapter.Message) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("gemini: no messages")
	}
	last := messages[len(messages)-1]
	if strings.ToLower(last.Role) != "user" {
		return "", errors.New("gemini: last message must be from user")
	}
	return g.send(ctx, model, messages[:len(messages)-1], genai.Part{Text: last.Content})
}

func (g *GeminiAdapter) ChatVision(ctx context.Context, model string, history []adapter.Message, parts []adapter.Part) (string, error) {
	gparts := make([]genai.Part, 0, len(parts))
	for _, p := range parts {
		switch p.Type {
		case "text":
			gparts = append(gparts, genai.Part{Text: p.Text})
		case "image_url":
			if p.ImageURL == nil {
				continue
			}
			mime, data, err := decodeDataURL(p.ImageURL.URL)
			if err != nil {
				return "", err
			}
			gparts = append(gparts, genai.Part{InlineData: &genai.Blob{MIMEType: mime, Data: data}})
		}
	}
	return g.send(ctx, model, history, gparts...)
}

// --- internal ---

func (g *GeminiAdapter) send(ctx context.Context, model string, history []adapter.Message, parts ...genai.Part) (string, error) {
	chat, err := g.client.Chats.Create(
		ctx,
		modelOrDefault(model, g.defaultModel),
		&genai.GenerateContentConfig{
			Temperature:     genai.Ptr(float32(g.temperature)),
			MaxOutputTokens: int32(g.maxOut),
		},
		toGenAIHistory(history),
	)
	if err != nil {
		return "", classifyGenAI(err)
	}

	resp, err := chat.SendMessage(ctx, parts...)
	if err != nil {
		return "", classifyGenAI(err)
	}

	text := ""
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil && len(resp.Candidates[0].Content.Parts) > 0 {
		if t := resp.Candidates[0].Content.Parts[0].Text; t != "" {
			text = t
		}
	}
	if text == "" {
		return "", errors.New("gemini: empty candidate text")
	}
	return text, nil
}

func classifyGenAI(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 429:
			return &adapter.ChatError{Kind: adapter.FailRateLimited, Err: err}
		case 400:
			if strings.Contains(strings.ToLower(apiErr.Message), "token") {
				return &adapter.ChatError{Kind: adapter.FailContextOverflow, Err: err}
			}
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &adapter.ChatError{Kind: adapter.FailTimeout, Err: err}
	}
	return err
}

func decodeDataURL(u string) (mime string, data []byte, err error) {
	rest, ok := strings.CutPrefix(u, "data:")
	if !ok {
		return "", nil, errors.New("gemini: image part is not a data URL")
	}
	mime, b64, ok := strings.Cut(rest, ";base64,")
	if !ok {
		return "", nil, errors.New("gemini: data URL is not base64 encoded")
	}
	data, err = base64.StdEncoding.DecodeString(b64)
	return mime, data, err
}

func toGenAIHistory(msgs []adapter.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := genai.RoleUser
		switch strings.ToLower(m.Role) {
		case "assistant", "model":
			role = genai.RoleModel
		case "system":
			// Gemini has no separate "system" role in history; treat it as a
			// user instruction.
			role = genai.RoleUser
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return out
}

func modelOrDefault(model, def string) string {
	if strings.TrimSpace(model) != "" {
		return model
	}
	return def
}
