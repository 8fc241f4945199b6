//go:build !integration

package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"whatsapp-ai-translator/internal/domain/ports/adapter"
)

func newTestAdapter(t *testing.T, handler http.HandlerFunc) (*OpenAIAdapter, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	a, err := NewOpenAIAdapter("test-token", "openai/gpt-4.1", srv.URL, 0.3, 1000, 2*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	return a, srv
}

func completionReply(text string) []byte {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": text}},
		},
	})
	return b
}

func TestOpenAIAdapter_Chat(t *testing.T) {
	var gotAuth string
	var gotBody struct {
		Model       string           `json:"model"`
		Messages    []map[string]any `json:"messages"`
		Temperature float64          `json:"temperature"`
		MaxTokens   int              `json:"max_tokens"`
	}
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write(completionReply("hola"))
	})

	reply, err := a.Chat(context.Background(), "", []adapter.Message{
		{Role: "system", Content: "traduce"},
		{Role: "user", Content: "hello"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if reply != "hola" {
		t.Errorf("reply = %q", reply)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("auth = %q", gotAuth)
	}
	if gotBody.Model != "openai/gpt-4.1" {
		t.Errorf("model = %q", gotBody.Model)
	}
	if gotBody.Temperature != 0.3 || gotBody.MaxTokens != 1000 {
		t.Errorf("sampling params = %v / %v", gotBody.Temperature, gotBody.MaxTokens)
	}
	if len(gotBody.Messages) != 2 {
		t.Errorf("messages = %d", len(gotBody.Messages))
	}
}

func TestOpenAIAdapter_ChatVision_SendsParts(t *testing.T) {
	var gotBody struct {
		Messages []json.RawMessage `json:"messages"`
	}
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write(completionReply("una imagen"))
	})

	history := []adapter.Message{{Role: "system", Content: "traduce"}}
	parts := []adapter.Part{
		{Type: "text", Text: "analiza"},
		{Type: "image_url", ImageURL: &adapter.ImageURL{URL: "data:image/png;base64,AAAA"}},
	}
	reply, err := a.ChatVision(context.Background(), "", history, parts)
	if err != nil {
		t.Fatal(err)
	}
	if reply != "una imagen" {
		t.Errorf("reply = %q", reply)
	}
	if len(gotBody.Messages) != 2 {
		t.Fatalf("messages = %d, want history + multimodal turn", len(gotBody.Messages))
	}
	var multimodal struct {
		Role    string         `json:"role"`
		Content []adapter.Part `json:"content"`
	}
	if err := json.Unmarshal(gotBody.Messages[1], &multimodal); err != nil {
		t.Fatal(err)
	}
	if multimodal.Role != "user" || len(multimodal.Content) != 2 {
		t.Errorf("multimodal turn = %+v", multimodal)
	}
}

func TestOpenAIAdapter_ClassifiesContextOverflow(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"error code", http.StatusBadRequest,
			`{"error":{"message":"too long","code":"context_length_exceeded"}}`},
		{"message text", http.StatusBadRequest,
			`{"error":{"message":"This model's maximum context length is 8192 tokens"}}`},
		{"payload too large", http.StatusRequestEntityTooLarge, `{}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := a.Chat(context.Background(), "", []adapter.Message{{Role: "user", Content: "x"}})
			if err == nil {
				t.Fatal("expected error")
			}
			if kind := adapter.Classify(err); kind != adapter.FailContextOverflow {
				t.Errorf("kind = %v, want context overflow", kind)
			}
		})
	}
}

func TestOpenAIAdapter_ClassifiesRateLimit(t *testing.T) {
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down"}}`))
	})
	_, err := a.Chat(context.Background(), "", []adapter.Message{{Role: "user", Content: "x"}})
	if kind := adapter.Classify(err); kind != adapter.FailRateLimited {
		t.Errorf("kind = %v, want rate limited", kind)
	}
}

func TestOpenAIAdapter_ClassifiesTimeout(t *testing.T) {
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write(completionReply("late"))
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := a.Chat(ctx, "", []adapter.Message{{Role: "user", Content: "x"}})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if kind := adapter.Classify(err); kind != adapter.FailTimeout {
		t.Errorf("kind = %v, want timeout", kind)
	}
}

func TestOpenAIAdapter_UnclassifiedServerError(t *testing.T) {
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
	})
	_, err := a.Chat(context.Background(), "", []adapter.Message{{Role: "user", Content: "x"}})
	if kind := adapter.Classify(err); kind != adapter.FailOther {
		t.Errorf("kind = %v, want other", kind)
	}
}

func TestOpenAIAdapter_CountTokens(t *testing.T) {
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {})
	n, err := a.CountTokens(context.Background(), "", []adapter.Message{
		{Role: "user", Content: "hello world"},
	})
	if err != nil {
		t.Fatal(err)
	}
	// 4 tokens of framing plus at least one content token.
	if n < 5 {
		t.Errorf("tokens = %d", n)
	}
}
