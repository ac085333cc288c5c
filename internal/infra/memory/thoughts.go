package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"voice-journal/internal/application"
	"voice-journal/internal/domain"
)

// ThoughtStore keeps thoughts in process memory. Used when no database is configured.
type ThoughtStore struct {
	mu       sync.RWMutex
	thoughts map[string]domain.Thought
}

func NewThoughtStore() *ThoughtStore {
	return &ThoughtStore{thoughts: make(map[string]domain.Thought)}
}

func (s *ThoughtStore) Create(_ context.Context, thought *domain.Thought) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if thought.ID == "" {
		thought.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if thought.CreatedAt.IsZero() {
		thought.CreatedAt = now
	}
	thought.UpdatedAt = now
	if thought.Tags == nil {
		thought.Tags = []string{}
	}

	s.thoughts[thought.ID] = cloneThought(*thought)
	return nil
}

func (s *ThoughtStore) Get(_ context.Context, userID, id string) (*domain.Thought, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.thoughts[id]
	if !ok || t.UserID != userID {
		return nil, domain.ErrNotFound
	}
	c := cloneThought(t)
	return &c, nil
}

func (s *ThoughtStore) List(_ context.Context, userID string, opts application.ListOptions) ([]domain.Thought, int, error) {
	opts = opts.Normalize()
	query := strings.ToLower(strings.TrimSpace(opts.Query))

	s.mu.RLock()
	var matched []domain.Thought
	for _, t := range s.thoughts {
		if t.UserID != userID {
			continue
		}
		if opts.Tag != "" && !t.HasTag(opts.Tag) {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(t.CleanedText), query) &&
			!strings.Contains(strings.ToLower(t.RawTranscript), query) {
			continue
		}
		matched = append(matched, cloneThought(t))
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if opts.Offset >= total {
		return []domain.Thought{}, total, nil
	}
	end := opts.Offset + opts.Limit
	if end > total {
		end = total
	}
	return matched[opts.Offset:end], total, nil
}

func (s *ThoughtStore) Delete(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.thoughts[id]
	if !ok || t.UserID != userID {
		return domain.ErrNotFound
	}
	delete(s.thoughts, id)
	return nil
}

func (s *ThoughtStore) DeleteAllForUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.thoughts {
		if t.UserID == userID {
			delete(s.thoughts, id)
		}
	}
	return nil
}

func cloneThought(t domain.Thought) domain.Thought {
	t.Tags = append([]string(nil), t.Tags...)
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return t
}
