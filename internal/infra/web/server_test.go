//go:build !integration

package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"whatsapp-ai-translator/internal/domain/ports/adapter"
	"whatsapp-ai-translator/internal/infra/i18n"
	"whatsapp-ai-translator/internal/infra/worker"
	"whatsapp-ai-translator/internal/usecase"
)

// ===== fakes =====

type fakeExchange struct {
	mu         sync.Mutex
	textCalls  []string
	imageCalls []string
	voiceCalls []string
	reply      string
}

func (f *fakeExchange) HandleText(_ context.Context, senderID, body string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.textCalls = append(f.textCalls, senderID+"|"+body)
	return f.reply
}

func (f *fakeExchange) HandleImage(_ context.Context, senderID, mediaURL, caption string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imageCalls = append(f.imageCalls, senderID+"|"+mediaURL+"|"+caption)
	return f.reply
}

func (f *fakeExchange) HandleVoice(_ context.Context, senderID, mediaURL string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.voiceCalls = append(f.voiceCalls, senderID+"|"+mediaURL)
	return f.reply
}

var _ usecase.ExchangeUseCase = (*fakeExchange)(nil)

type fakeStats struct{ report usecase.Report }

func (f *fakeStats) Report() usecase.Report { return f.report }

var _ usecase.StatsUseCase = (*fakeStats)(nil)

type fakeMessenger struct {
	mu    sync.Mutex
	sends []string
	done  chan struct{}
}

func (f *fakeMessenger) FetchMedia(_ context.Context, _ string) (adapter.Media, error) {
	return adapter.Media{}, nil
}

func (f *fakeMessenger) SendText(_ context.Context, to, body string) error {
	f.mu.Lock()
	f.sends = append(f.sends, to+"|"+body)
	f.mu.Unlock()
	if f.done != nil {
		close(f.done)
	}
	return nil
}

var _ adapter.MessagingAdapter = (*fakeMessenger)(nil)

// ===== harness =====

func newTestServer(t *testing.T, exchange *fakeExchange, async bool) (*Server, *fakeMessenger, *worker.Pool) {
	t.Helper()
	logger := zerolog.Nop()
	tr, err := i18n.NewTranslator(i18n.LocalesFS, "es")
	if err != nil {
		t.Fatal(err)
	}
	msg := &fakeMessenger{}
	pool := worker.NewPool(2, &logger)
	auth := NewAuthManager("test-secret", time.Minute)
	srv := NewServer(exchange, &fakeStats{report: usecase.Report{Service: "svc", Status: "operativo"}},
		msg, pool, nil, auth, tr, RateLimit{}, async, true, &logger)
	return srv, msg, pool
}

func postForm(t *testing.T, h http.Handler, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// ===== tests =====

func TestWebhook_TextMessage(t *testing.T) {
	ex := &fakeExchange{reply: "hola"}
	srv, _, _ := newTestServer(t, ex, false)

	rec := postForm(t, srv.Router(), url.Values{
		"From": {"whatsapp:+1555"},
		"Body": {"hello"},
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/xml") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "<Message>hola</Message>") {
		t.Errorf("body = %q", rec.Body.String())
	}
	if len(ex.textCalls) != 1 || ex.textCalls[0] != "whatsapp:+1555|hello" {
		t.Errorf("text calls = %v", ex.textCalls)
	}
}

func TestWebhook_MissingFrom(t *testing.T) {
	ex := &fakeExchange{}
	srv, _, _ := newTestServer(t, ex, false)

	rec := postForm(t, srv.Router(), url.Values{"Body": {"hi"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(ex.textCalls) != 0 {
		t.Error("exchange invoked without sender")
	}
}

func TestWebhook_ImageMessage(t *testing.T) {
	ex := &fakeExchange{reply: "una foto"}
	srv, _, _ := newTestServer(t, ex, false)

	rec := postForm(t, srv.Router(), url.Values{
		"From":              {"whatsapp:+1555"},
		"Body":              {"mira"},
		"NumMedia":          {"1"},
		"MediaUrl0":         {"https://api.twilio.com/media/1"},
		"MediaContentType0": {"image/jpeg"},
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(ex.imageCalls) != 1 || !strings.HasSuffix(ex.imageCalls[0], "|mira") {
		t.Errorf("image calls = %v", ex.imageCalls)
	}
	if len(ex.textCalls) != 0 {
		t.Error("text handler invoked for media message")
	}
}

func TestWebhook_VoiceMessage(t *testing.T) {
	ex := &fakeExchange{reply: "escuchado"}
	srv, _, _ := newTestServer(t, ex, false)

	rec := postForm(t, srv.Router(), url.Values{
		"From":              {"whatsapp:+1555"},
		"NumMedia":          {"1"},
		"MediaUrl0":         {"https://api.twilio.com/media/2"},
		"MediaContentType0": {"audio/ogg"},
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(ex.voiceCalls) != 1 {
		t.Errorf("voice calls = %v", ex.voiceCalls)
	}
}

func TestWebhook_VoiceDisabledFallsBackToImage(t *testing.T) {
	ex := &fakeExchange{reply: "ok"}
	srv, _, _ := newTestServer(t, ex, false)
	srv.voice = false

	postForm(t, srv.Router(), url.Values{
		"From":              {"whatsapp:+1555"},
		"NumMedia":          {"1"},
		"MediaUrl0":         {"https://api.twilio.com/media/3"},
		"MediaContentType0": {"audio/ogg"},
	})

	if len(ex.voiceCalls) != 0 {
		t.Error("voice handler invoked while disabled")
	}
	if len(ex.imageCalls) != 1 {
		t.Errorf("image calls = %v", ex.imageCalls)
	}
}

func TestWebhook_MediaWithoutURL(t *testing.T) {
	ex := &fakeExchange{}
	srv, _, _ := newTestServer(t, ex, false)

	rec := postForm(t, srv.Router(), url.Values{
		"From":     {"whatsapp:+1555"},
		"NumMedia": {"1"},
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(ex.imageCalls)+len(ex.voiceCalls)+len(ex.textCalls) != 0 {
		t.Error("handler invoked for media message without URL")
	}
	if !strings.Contains(rec.Body.String(), "<Message>") {
		t.Errorf("expected notice in TwiML, got %q", rec.Body.String())
	}
}

func TestWebhook_AsyncAcksEmptyAndDelivers(t *testing.T) {
	ex := &fakeExchange{reply: "tarde pero seguro"}
	srv, msg, pool := newTestServer(t, ex, true)
	msg.done = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)
	defer pool.Stop()

	rec := postForm(t, srv.Router(), url.Values{
		"From": {"whatsapp:+1555"},
		"Body": {"hola"},
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "<Message>") {
		t.Errorf("async ack must carry no message body, got %q", rec.Body.String())
	}

	select {
	case <-msg.done:
	case <-time.After(2 * time.Second):
		t.Fatal("delivery never happened")
	}
	msg.mu.Lock()
	defer msg.mu.Unlock()
	if len(msg.sends) != 1 || msg.sends[0] != "whatsapp:+1555|tarde pero seguro" {
		t.Errorf("sends = %v", msg.sends)
	}
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeExchange{}, false)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestStats_RequiresToken(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeExchange{}, false)
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", rec.Code)
	}

	tok, err := srv.auth.Mint()
	if err != nil {
		t.Fatal(err)
	}
	req = httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("authenticated status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"estado":"operativo"`) {
		t.Errorf("stats body = %q", rec.Body.String())
	}
}

func TestAuth_RejectsForgedToken(t *testing.T) {
	auth := NewAuthManager("secret-a", time.Minute)
	other := NewAuthManager("secret-b", time.Minute)

	tok, err := other.Mint()
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	if _, err := auth.ParseFromRequest(req); err == nil {
		t.Fatal("token signed with wrong secret accepted")
	}
}

func TestAuth_RejectsExpiredToken(t *testing.T) {
	auth := NewAuthManager("secret", -time.Minute)
	tok, err := auth.Mint()
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	if _, err := auth.ParseFromRequest(req); err == nil {
		t.Fatal("expired token accepted")
	}
}
