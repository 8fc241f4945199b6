package adapter

import "context"

// Transcriber is the port for a local speech-to-text engine.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}
