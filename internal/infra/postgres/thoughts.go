package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"voice-journal/internal/application"
	"voice-journal/internal/domain"
)

type ThoughtRepository struct {
	db *gorm.DB
}

func NewThoughtRepository(db *gorm.DB) *ThoughtRepository {
	return &ThoughtRepository{db: db}
}

func (r *ThoughtRepository) Create(ctx context.Context, thought *domain.Thought) error {
	rec := newThoughtRecord(thought)
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("inserting thought: %w", err)
	}
	*thought = rec.toDomain()
	return nil
}

func (r *ThoughtRepository) Get(ctx context.Context, userID, id string) (*domain.Thought, error) {
	var rec thoughtRecord
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying thought: %w", err)
	}
	t := rec.toDomain()
	return &t, nil
}

func (r *ThoughtRepository) List(ctx context.Context, userID string, opts application.ListOptions) ([]domain.Thought, int, error) {
	opts = opts.Normalize()

	query := r.db.WithContext(ctx).Model(&thoughtRecord{}).Where("user_id = ?", userID)
	if opts.Tag != "" {
		tagJSON, err := json.Marshal([]string{opts.Tag})
		if err != nil {
			return nil, 0, fmt.Errorf("encoding tag filter: %w", err)
		}
		query = query.Where("tags @> ?::jsonb", string(tagJSON))
	}
	if q := strings.TrimSpace(opts.Query); q != "" {
		pattern := "%" + escapeLike(q) + "%"
		query = query.Where("(cleaned_text ILIKE ? OR raw_transcript ILIKE ?)", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting thoughts: %w", err)
	}

	var recs []thoughtRecord
	err := query.Order("created_at DESC").Order("id DESC").
		Limit(opts.Limit).Offset(opts.Offset).
		Find(&recs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("listing thoughts: %w", err)
	}

	thoughts := make([]domain.Thought, 0, len(recs))
	for i := range recs {
		thoughts = append(thoughts, recs[i].toDomain())
	}
	return thoughts, int(total), nil
}

func (r *ThoughtRepository) Delete(ctx context.Context, userID, id string) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&thoughtRecord{})
	if res.Error != nil {
		return fmt.Errorf("deleting thought: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ThoughtRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&thoughtRecord{}).Error; err != nil {
		return fmt.Errorf("deleting thoughts: %w", err)
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
