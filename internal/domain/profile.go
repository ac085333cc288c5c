package domain

import (
	"math"
	"time"
)

type Tier string

const (
	TierTrial      Tier = "trial"
	TierApprentice Tier = "apprentice"
	TierPro        Tier = "pro"
	TierSovereign  Tier = "sovereign"
)

// Unlimited marks a tier without a minutes cap.
var Unlimited = math.Inf(1)

type TierLimits struct {
	MinutesPerPeriod   float64
	MaxRecordingLength time.Duration
	// ResetsMonthly is false for the trial allotment, which is granted once.
	ResetsMonthly bool
}

var tierLimits = map[Tier]TierLimits{
	TierTrial:      {MinutesPerPeriod: 30, MaxRecordingLength: 5 * time.Minute, ResetsMonthly: false},
	TierApprentice: {MinutesPerPeriod: 300, MaxRecordingLength: 10 * time.Minute, ResetsMonthly: true},
	TierPro:        {MinutesPerPeriod: 1200, MaxRecordingLength: 30 * time.Minute, ResetsMonthly: true},
	TierSovereign:  {MinutesPerPeriod: Unlimited, MaxRecordingLength: 60 * time.Minute, ResetsMonthly: true},
}

func ParseTier(s string) (Tier, bool) {
	t := Tier(s)
	_, ok := tierLimits[t]
	return t, ok
}

// Paid reports whether the tier is sold through a subscription.
func (t Tier) Paid() bool {
	return t == TierApprentice || t == TierPro || t == TierSovereign
}

func (t Tier) Limits() TierLimits {
	if l, ok := tierLimits[t]; ok {
		return l
	}
	return tierLimits[TierTrial]
}

type Profile struct {
	UserID               string
	Email                string
	Tier                 Tier
	StripeCustomerID     string
	StripeSubscriptionID string
	SubscriptionStatus   string
	CurrentPeriodEnd     *time.Time
	CancelAtPeriodEnd    bool
	MinutesUsed          float64
	CreditsUsed          int
	UsagePeriodStart     time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (p *Profile) MinutesRemaining() float64 {
	limit := p.Tier.Limits().MinutesPerPeriod
	if math.IsInf(limit, 1) {
		return Unlimited
	}
	remaining := limit - p.MinutesUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CanRecord checks a recording of the given length against the tier caps.
func (p *Profile) CanRecord(d time.Duration) error {
	limits := p.Tier.Limits()
	if d > limits.MaxRecordingLength {
		return ErrRecordingTooLong
	}
	if p.MinutesRemaining() < d.Minutes() {
		return ErrLimitExceeded
	}
	return nil
}
