package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"voice-journal/internal/domain"
)

type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetOrCreate inserts the trial profile with ON CONFLICT DO NOTHING and then
// reads the row, so concurrent first requests for one user all see the same profile.
func (r *ProfileRepository) GetOrCreate(ctx context.Context, userID, email string) (*domain.Profile, error) {
	rec := profileRecord{
		UserID:           userID,
		Email:            email,
		Tier:             string(domain.TierTrial),
		UsagePeriodStart: time.Now().UTC(),
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&rec).Error
	if err != nil {
		return nil, fmt.Errorf("creating profile: %w", err)
	}

	rec = profileRecord{}
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&rec).Error; err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}

	if email != "" && rec.Email != email {
		if err := r.db.WithContext(ctx).Model(&rec).Update("email", email).Error; err != nil {
			return nil, fmt.Errorf("updating email: %w", err)
		}
	}

	return rec.toDomain(), nil
}

func (r *ProfileRepository) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	return r.first(ctx, "user_id = ?", userID)
}

func (r *ProfileRepository) FindByCustomerID(ctx context.Context, customerID string) (*domain.Profile, error) {
	if customerID == "" {
		return nil, domain.ErrNotFound
	}
	return r.first(ctx, "stripe_customer_id = ?", customerID)
}

func (r *ProfileRepository) first(ctx context.Context, where string, arg any) (*domain.Profile, error) {
	var rec profileRecord
	err := r.db.WithContext(ctx).Where(where, arg).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying profile: %w", err)
	}
	return rec.toDomain(), nil
}

func (r *ProfileRepository) Update(ctx context.Context, profile *domain.Profile) error {
	rec := newProfileRecord(profile)
	rec.UpdatedAt = time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&profileRecord{UserID: profile.UserID}).
		Select("email", "tier", "stripe_customer_id", "stripe_subscription_id", "subscription_status",
			"current_period_end", "cancel_at_period_end", "updated_at").
		Updates(rec)
	if res.Error != nil {
		return fmt.Errorf("updating profile: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	profile.UpdatedAt = rec.UpdatedAt
	return nil
}

// AddUsage increments counters in place so concurrent uploads do not lose minutes.
func (r *ProfileRepository) AddUsage(ctx context.Context, userID string, minutes float64, credits int) error {
	res := r.db.WithContext(ctx).Model(&profileRecord{}).Where("user_id = ?", userID).
		Updates(map[string]any{
			"minutes_used": gorm.Expr("minutes_used + ?", minutes),
			"credits_used": gorm.Expr("credits_used + ?", credits),
		})
	if res.Error != nil {
		return fmt.Errorf("recording usage: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ProfileRepository) ResetUsage(ctx context.Context, userID string, periodStart time.Time) error {
	res := r.db.WithContext(ctx).Model(&profileRecord{}).Where("user_id = ?", userID).
		Updates(map[string]any{
			"minutes_used":       0,
			"credits_used":       0,
			"usage_period_start": periodStart.UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("resetting usage: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ProfileRepository) Delete(ctx context.Context, userID string) error {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&profileRecord{})
	if res.Error != nil {
		return fmt.Errorf("deleting profile: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
