package memory

import (
	"context"
	"sync"
	"time"

	"voice-journal/internal/domain"
)

type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]domain.Profile
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{profiles: make(map[string]domain.Profile)}
}

func (s *ProfileStore) GetOrCreate(_ context.Context, userID, email string) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.profiles[userID]; ok {
		if email != "" && p.Email != email {
			p.Email = email
			p.UpdatedAt = time.Now().UTC()
			s.profiles[userID] = p
		}
		return &p, nil
	}

	now := time.Now().UTC()
	p := domain.Profile{
		UserID:           userID,
		Email:            email,
		Tier:             domain.TierTrial,
		UsagePeriodStart: now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.profiles[userID] = p
	return &p, nil
}

func (s *ProfileStore) Get(_ context.Context, userID string) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (s *ProfileStore) FindByCustomerID(_ context.Context, customerID string) (*domain.Profile, error) {
	if customerID == "" {
		return nil, domain.ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.profiles {
		if p.StripeCustomerID == customerID {
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *ProfileStore) Update(_ context.Context, profile *domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[profile.UserID]; !ok {
		return domain.ErrNotFound
	}
	profile.UpdatedAt = time.Now().UTC()
	s.profiles[profile.UserID] = *profile
	return nil
}

func (s *ProfileStore) AddUsage(_ context.Context, userID string, minutes float64, credits int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return domain.ErrNotFound
	}
	p.MinutesUsed += minutes
	p.CreditsUsed += credits
	p.UpdatedAt = time.Now().UTC()
	s.profiles[userID] = p
	return nil
}

func (s *ProfileStore) ResetUsage(_ context.Context, userID string, periodStart time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return domain.ErrNotFound
	}
	p.MinutesUsed = 0
	p.CreditsUsed = 0
	p.UsagePeriodStart = periodStart
	p.UpdatedAt = time.Now().UTC()
	s.profiles[userID] = p
	return nil
}

func (s *ProfileStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[userID]; !ok {
		return domain.ErrNotFound
	}
	delete(s.profiles, userID)
	return nil
}
