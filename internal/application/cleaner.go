package application

import (
	"context"
	"fmt"

	"voice-journal/internal/domain"
)

// TextCleaner removes filler words and disfluencies from a transcript.
type TextCleaner interface {
	Clean(ctx context.Context, text string) (string, error)
}

type NoopCleaner struct{}

func (n *NoopCleaner) Clean(_ context.Context, _ string) (string, error) {
	return "", fmt.Errorf("cleaner: %w", domain.ErrNotConfigured)
}

type CleanResult struct {
	Text    string
	Cleaned bool
}
