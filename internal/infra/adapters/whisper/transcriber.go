// Package whisper shells out to a local whisper.cpp binary for
// speech-to-text. Voice notes are short, so one process per transcription is
// acceptable.
package whisper

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	"whatsapp-ai-translator/internal/domain"
	"whatsapp-ai-translator/internal/domain/ports/adapter"
)

// Compile-time assurance this transcriber satisfies the port
var _ adapter.Transcriber = (*Transcriber)(nil)

type Transcriber struct {
	bin   string
	model string
	log   *zerolog.Logger
}

func New(bin, model string, logger *zerolog.Logger) (*Transcriber, error) {
	if bin == "" {
		return nil, fmt.Errorf("whisper binary path: %w", domain.ErrInvalidArgument)
	}
	if model == "" {
		return nil, fmt.Errorf("whisper model path: %w", domain.ErrInvalidArgument)
	}
	return &Transcriber{bin: bin, model: model, log: logger}, nil
}

func (t *Transcriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	cmd := exec.CommandContext(ctx, t.bin,
		"-m", t.model,
		"-f", audioPath,
		"--no-timestamps",
		"--language", "auto",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		t.log.Error().Err(err).Str("stderr", strings.TrimSpace(stderr.String())).Msg("whisper run failed")
		return "", fmt.Errorf("whisper: %w", err)
	}

	text := strings.TrimSpace(stdout.String())
	if text == "" {
		return "", fmt.Errorf("whisper transcription: %w", domain.ErrEmptyMessage)
	}
	return text, nil
}
