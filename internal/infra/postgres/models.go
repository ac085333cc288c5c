package postgres

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"voice-journal/internal/domain"
)

type thoughtRecord struct {
	ID              string                      `gorm:"type:uuid;primaryKey"`
	UserID          string                      `gorm:"type:uuid;index:idx_thoughts_user_created,priority:1;not null"`
	RawTranscript   string                      `gorm:"type:text;not null"`
	CleanedText     string                      `gorm:"type:text"`
	Tags            datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	Category        string                      `gorm:"size:64"`
	DurationSeconds float64
	CreatedAt       time.Time `gorm:"index:idx_thoughts_user_created,priority:2,sort:desc"`
	UpdatedAt       time.Time
}

func (thoughtRecord) TableName() string { return "thoughts" }

func (t *thoughtRecord) BeforeCreate(_ *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

func newThoughtRecord(t *domain.Thought) *thoughtRecord {
	tags := datatypes.JSONSlice[string](t.Tags)
	if tags == nil {
		tags = datatypes.JSONSlice[string]{}
	}
	return &thoughtRecord{
		ID:              t.ID,
		UserID:          t.UserID,
		RawTranscript:   t.RawTranscript,
		CleanedText:     t.CleanedText,
		Tags:            tags,
		Category:        t.Category,
		DurationSeconds: t.DurationSeconds,
		CreatedAt:       t.CreatedAt,
	}
}

func (t *thoughtRecord) toDomain() domain.Thought {
	tags := []string(t.Tags)
	if tags == nil {
		tags = []string{}
	}
	return domain.Thought{
		ID:              t.ID,
		UserID:          t.UserID,
		RawTranscript:   t.RawTranscript,
		CleanedText:     t.CleanedText,
		Tags:            tags,
		Category:        t.Category,
		DurationSeconds: t.DurationSeconds,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

type profileRecord struct {
	UserID               string `gorm:"type:uuid;primaryKey"`
	Email                string
	Tier                 string `gorm:"size:32;not null;default:trial"`
	StripeCustomerID     string `gorm:"index"`
	StripeSubscriptionID string
	SubscriptionStatus   string `gorm:"size:32"`
	CurrentPeriodEnd     *time.Time
	CancelAtPeriodEnd    bool
	MinutesUsed          float64 `gorm:"not null;default:0"`
	CreditsUsed          int     `gorm:"not null;default:0"`
	UsagePeriodStart     time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (profileRecord) TableName() string { return "profiles" }

func newProfileRecord(p *domain.Profile) *profileRecord {
	return &profileRecord{
		UserID:               p.UserID,
		Email:                p.Email,
		Tier:                 string(p.Tier),
		StripeCustomerID:     p.StripeCustomerID,
		StripeSubscriptionID: p.StripeSubscriptionID,
		SubscriptionStatus:   p.SubscriptionStatus,
		CurrentPeriodEnd:     p.CurrentPeriodEnd,
		CancelAtPeriodEnd:    p.CancelAtPeriodEnd,
		MinutesUsed:          p.MinutesUsed,
		CreditsUsed:          p.CreditsUsed,
		UsagePeriodStart:     p.UsagePeriodStart,
		CreatedAt:            p.CreatedAt,
	}
}

func (p *profileRecord) toDomain() *domain.Profile {
	tier, ok := domain.ParseTier(p.Tier)
	if !ok {
		tier = domain.TierTrial
	}
	return &domain.Profile{
		UserID:               p.UserID,
		Email:                p.Email,
		Tier:                 tier,
		StripeCustomerID:     p.StripeCustomerID,
		StripeSubscriptionID: p.StripeSubscriptionID,
		SubscriptionStatus:   p.SubscriptionStatus,
		CurrentPeriodEnd:     p.CurrentPeriodEnd,
		CancelAtPeriodEnd:    p.CancelAtPeriodEnd,
		MinutesUsed:          p.MinutesUsed,
		CreditsUsed:          p.CreditsUsed,
		UsagePeriodStart:     p.UsagePeriodStart,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}
