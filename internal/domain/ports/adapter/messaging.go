package adapter

import "context"

// Media is the result of fetching platform-hosted message media.
type Media struct {
	Bytes       []byte
	ContentType string
}

// MessagingAdapter is the port for the WhatsApp messaging platform.
type MessagingAdapter interface {
	// FetchMedia downloads platform-hosted media with platform credentials.
	FetchMedia(ctx context.Context, url string) (Media, error)

	// SendText delivers an out-of-band message to the given identifier
	// (used by the async delivery mode).
	SendText(ctx context.Context, to, body string) error
}
