package application

import (
	"context"
	"fmt"

	"voice-journal/internal/domain"
)

type SpeechToText interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// NoopSTT stands in when no transcription provider is configured.
type NoopSTT struct{}

func (n *NoopSTT) Transcribe(_ context.Context, _ []byte, _ string) (string, error) {
	return "", fmt.Errorf("speech-to-text: %w: set groq.api_key to enable transcription", domain.ErrNotConfigured)
}
