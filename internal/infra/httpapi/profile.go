package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"voice-journal/internal/domain"
)

type profileView struct {
	UserID              string      `json:"user_id"`
	Email               string      `json:"email"`
	Tier                domain.Tier `json:"tier"`
	SubscriptionStatus  string      `json:"subscription_status"`
	CurrentPeriodEnd    *time.Time  `json:"current_period_end"`
	CancelAtPeriodEnd   bool        `json:"cancel_at_period_end"`
	HasBillingAccount   bool        `json:"has_billing_account"`
	MinutesUsed         float64     `json:"minutes_used"`
	MinutesLimit        *float64    `json:"minutes_limit"`
	MinutesRemaining    *float64    `json:"minutes_remaining"`
	MaxRecordingSeconds float64     `json:"max_recording_seconds"`
	CreditsUsed         int         `json:"credits_used"`
	UsagePeriodStart    time.Time   `json:"usage_period_start"`
	CreatedAt           time.Time   `json:"created_at"`
}

func newProfileView(p *domain.Profile) profileView {
	limits := p.Tier.Limits()
	return profileView{
		UserID:              p.UserID,
		Email:               p.Email,
		Tier:                p.Tier,
		SubscriptionStatus:  p.SubscriptionStatus,
		CurrentPeriodEnd:    p.CurrentPeriodEnd,
		CancelAtPeriodEnd:   p.CancelAtPeriodEnd,
		HasBillingAccount:   p.StripeCustomerID != "",
		MinutesUsed:         p.MinutesUsed,
		MinutesLimit:        finite(limits.MinutesPerPeriod),
		MinutesRemaining:    finite(p.MinutesRemaining()),
		MaxRecordingSeconds: limits.MaxRecordingLength.Seconds(),
		CreditsUsed:         p.CreditsUsed,
		UsagePeriodStart:    p.UsagePeriodStart,
		CreatedAt:           p.CreatedAt,
	}
}

func (s *Server) getProfile(c *gin.Context) {
	user, ok := s.profile(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newProfileView(user))
}

func (s *Server) streamEvents(c *gin.Context) {
	if s.events == nil {
		s.abort(c, fmt.Errorf("events: %w", domain.ErrNotConfigured))
		return
	}
	identity, _ := identityFrom(c)
	s.events.Serve(c.Writer, c.Request, identity.UserID)
}
