package application

import (
	"context"
	"fmt"

	"voice-journal/internal/domain"
)

type Tagger interface {
	Tag(ctx context.Context, text string) (*TagResult, error)
}

type TagResult struct {
	Tags     []string
	Category string
	// Tagged is false when the result is the fallback for a failed or skipped call.
	Tagged bool
}

type NoopTagger struct{}

func (n *NoopTagger) Tag(_ context.Context, _ string) (*TagResult, error) {
	return nil, fmt.Errorf("tagger: %w", domain.ErrNotConfigured)
}
