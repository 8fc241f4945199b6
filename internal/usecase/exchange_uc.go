// File: internal/usecase/exchange_uc.go
package usecase

import (
	"context"
	"encoding/base64"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"whatsapp-ai-translator/internal/domain/model"
	"whatsapp-ai-translator/internal/domain/ports/adapter"
	"whatsapp-ai-translator/internal/domain/ports/repository"
	"whatsapp-ai-translator/internal/infra/i18n"
	"whatsapp-ai-translator/internal/infra/logging"
	"whatsapp-ai-translator/internal/infra/metrics"
)

// Compile-time check
var _ ExchangeUseCase = (*exchangeUC)(nil)

// ExchangeUseCase drives one complete webhook exchange. Every method returns
// the text to relay to the user; failures are converted to notices at this
// boundary and never escape as errors.
type ExchangeUseCase interface {
	HandleText(ctx context.Context, senderID, body string) string
	HandleImage(ctx context.Context, senderID, mediaURL, caption string) string
	HandleVoice(ctx context.Context, senderID, mediaURL string) string
}

type exchangeUC struct {
	store        repository.ConversationStore
	ai           adapter.AIServiceAdapter
	msg          adapter.MessagingAdapter
	stt          adapter.Transcriber // nil when voice is disabled
	tr           *i18n.Translator
	provider     string
	model        string
	timeout      time.Duration
	overflowKeep int
	log          *zerolog.Logger
}

func NewExchangeUseCase(
	store repository.ConversationStore,
	ai adapter.AIServiceAdapter,
	msg adapter.MessagingAdapter,
	stt adapter.Transcriber,
	tr *i18n.Translator,
	provider, modelName string,
	timeout time.Duration,
	overflowKeep int,
	logger *zerolog.Logger,
) *exchangeUC {
	if overflowKeep <= 0 {
		overflowKeep = 10
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &exchangeUC{
		store:        store,
		ai:           ai,
		msg:          msg,
		stt:          stt,
		tr:           tr,
		provider:     provider,
		model:        modelName,
		timeout:      timeout,
		overflowKeep: overflowKeep,
		log:          logger,
	}
}

func (u *exchangeUC) HandleText(ctx context.Context, senderID, body string) string {
	defer logging.TraceDuration(logging.With(ctx, u.log), "ExchangeUC.HandleText")()

	body = strings.TrimSpace(body)
	if body == "" {
		metrics.IncExchange("text", "empty")
		return u.tr.T("empty_input")
	}

	u.store.Append(senderID, model.RoleUser, body)
	reply, outcome := u.converse(ctx, senderID)
	metrics.IncExchange("text", outcome)
	return reply
}

func (u *exchangeUC) HandleImage(ctx context.Context, senderID, mediaURL, caption string) string {
	defer logging.TraceDuration(logging.With(ctx, u.log), "ExchangeUC.HandleImage")()
	log := logging.With(ctx, u.log)

	caption = strings.TrimSpace(caption)

	// The history stays text-only: record a placeholder for the image before
	// anything can fail, so the conversation reflects the attempt.
	if caption != "" {
		u.store.Append(senderID, model.RoleUser, u.tr.T("image_placeholder_caption", caption))
	} else {
		u.store.Append(senderID, model.RoleUser, u.tr.T("image_placeholder"))
	}

	media, err := u.msg.FetchMedia(ctx, mediaURL)
	if err != nil {
		log.Warn().Err(err).Msg("image fetch failed")
		metrics.IncExchange("image", "fetch_error")
		return u.tr.T("download_error")
	}

	contentType := media.ContentType
	if !strings.HasPrefix(contentType, "image/") {
		contentType = "image/jpeg"
	}

	prompt := u.tr.T("image_prompt")
	if caption != "" {
		prompt = u.tr.T("image_prompt_caption", caption)
	}
	parts := []adapter.Part{
		{Type: "text", Text: prompt},
		{Type: "image_url", ImageURL: &adapter.ImageURL{
			URL: "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(media.Bytes),
		}},
	}

	callCtx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()
	start := time.Now()
	reply, err := u.ai.ChatVision(callCtx, u.model, toAdapterMessages(u.store.History(senderID)), parts)
	metrics.ObserveAICall(u.provider, u.model, int(time.Since(start).Milliseconds()), err == nil)
	if err != nil {
		// Image exchanges are terminal on any model failure; no retry.
		log.Error().Err(err).Msg("vision call failed")
		metrics.IncExchange("image", "error")
		return u.tr.T("analysis_error")
	}

	u.store.Append(senderID, model.RoleAssistant, reply)
	metrics.IncExchange("image", "ok")
	return reply
}

func (u *exchangeUC) HandleVoice(ctx context.Context, senderID, mediaURL string) string {
	defer logging.TraceDuration(logging.With(ctx, u.log), "ExchangeUC.HandleVoice")()
	log := logging.With(ctx, u.log)

	if u.stt == nil {
		metrics.IncExchange("voice", "disabled")
		return u.tr.T("empty_input")
	}

	media, err := u.msg.FetchMedia(ctx, mediaURL)
	if err != nil {
		log.Warn().Err(err).Msg("audio fetch failed")
		metrics.IncExchange("voice", "fetch_error")
		return u.tr.T("audio_download_error")
	}

	text, err := u.transcribe(ctx, media.Bytes)
	if err != nil {
		log.Error().Err(err).Msg("transcription failed")
		metrics.IncExchange("voice", "transcribe_error")
		return u.tr.T("transcribe_error")
	}

	u.store.AppendVoice(senderID, text)
	reply, outcome := u.converse(ctx, senderID)
	metrics.IncExchange("voice", outcome)
	return u.tr.T("voice_reply", text, reply)
}

// transcribe stages the audio bytes in a scoped temp file for the local
// speech-to-text engine. The file is removed on every exit path.
func (u *exchangeUC) transcribe(ctx context.Context, audio []byte) (string, error) {
	f, err := os.CreateTemp("", "voice-*.ogg")
	if err != nil {
		return "", err
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(audio); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return u.stt.Transcribe(ctx, f.Name())
}

// converse runs the model over the sender's full history, recovering from a
// context overflow with exactly one trim-and-retry.
func (u *exchangeUC) converse(ctx context.Context, senderID string) (reply string, outcome string) {
	log := logging.With(ctx, u.log)

	reply, err := u.chat(ctx, u.store.History(senderID))
	if err == nil {
		u.store.Append(senderID, model.RoleAssistant, reply)
		return reply, "ok"
	}

	switch adapter.Classify(err) {
	case adapter.FailContextOverflow:
		log.Warn().Str("sender", logging.Redact(senderID, false)).Msg("context overflow, trimming history")
		metrics.IncContextTrim()
		u.store.TrimAggressively(senderID, u.overflowKeep)

		reply, err = u.chat(ctx, u.store.History(senderID))
		if err != nil {
			log.Error().Err(err).Msg("retry after trim failed")
			return u.tr.T("overflow_error"), "overflow_failed"
		}
		u.store.Append(senderID, model.RoleAssistant, reply)
		return reply, "overflow_recovered"

	case adapter.FailTimeout:
		log.Warn().Err(err).Msg("model call timed out")
		return u.tr.T("timeout_error"), "timeout"

	case adapter.FailRateLimited:
		log.Warn().Err(err).Msg("provider rate limited")
		return u.tr.T("rate_limited"), "rate_limited"

	default:
		log.Error().Err(err).Msg("model call failed")
		return u.tr.T("generic_error"), "error"
	}
}

func (u *exchangeUC) chat(ctx context.Context, turns []model.Turn) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	start := time.Now()
	reply, err := u.ai.Chat(callCtx, u.model, toAdapterMessages(turns))
	metrics.ObserveAICall(u.provider, u.model, int(time.Since(start).Milliseconds()), err == nil)
	return reply, err
}

func toAdapterMessages(turns []model.Turn) []adapter.Message {
	out := make([]adapter.Message, 0, len(turns))
	for _, t := range turns {
		out = append(out, adapter.Message{Role: string(t.Role), Content: t.Content})
	}
	return out
}
