package application

import (
	"context"
	"time"

	"voice-journal/internal/domain"
)

type ListOptions struct {
	Limit  int
	Offset int
	Tag    string
	Query  string
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Normalize clamps paging values to sane bounds.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultListLimit
	}
	if o.Limit > MaxListLimit {
		o.Limit = MaxListLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	o.Tag = domain.NormalizeTag(o.Tag)
	return o
}

type ThoughtStore interface {
	Create(ctx context.Context, thought *domain.Thought) error
	Get(ctx context.Context, userID, id string) (*domain.Thought, error)
	List(ctx context.Context, userID string, opts ListOptions) ([]domain.Thought, int, error)
	Delete(ctx context.Context, userID, id string) error
	DeleteAllForUser(ctx context.Context, userID string) error
}

type ProfileStore interface {
	GetOrCreate(ctx context.Context, userID, email string) (*domain.Profile, error)
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	FindByCustomerID(ctx context.Context, customerID string) (*domain.Profile, error)
	Update(ctx context.Context, profile *domain.Profile) error
	AddUsage(ctx context.Context, userID string, minutes float64, credits int) error
	ResetUsage(ctx context.Context, userID string, periodStart time.Time) error
	Delete(ctx context.Context, userID string) error
}
