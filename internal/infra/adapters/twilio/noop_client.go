package twilio

import (
	"context"

	"github.com/rs/zerolog"

	"whatsapp-ai-translator/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.MessagingAdapter = (*NoopClient)(nil)

// NoopClient logs instead of calling Twilio; used in dev mode.
type NoopClient struct {
	log *zerolog.Logger
}

func NewNoopClient(logger *zerolog.Logger) *NoopClient {
	return &NoopClient{log: logger}
}

func (n *NoopClient) FetchMedia(ctx context.Context, mediaURL string) (adapter.Media, error) {
	n.log.Debug().Str("url", mediaURL).Msg("noop fetch media")
	return adapter.Media{Bytes: []byte{}, ContentType: "image/jpeg"}, nil
}

func (n *NoopClient) SendText(ctx context.Context, to, body string) error {
	n.log.Info().Str("to", to).Str("body", body).Msg("noop send")
	return nil
}
