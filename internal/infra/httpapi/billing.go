package httpapi

import (
	"errors"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"voice-journal/internal/domain"
)

// maxWebhookBytes leaves headroom above the largest events Stripe sends, such as
// invoices with many line items. Larger bodies are rejected, never truncated.
const maxWebhookBytes = 1 << 20

type checkoutRequest struct {
	Tier string `json:"tier"`
}

type subscriptionView struct {
	Tier              domain.Tier `json:"tier"`
	Status            string      `json:"status"`
	CurrentPeriodEnd  *time.Time  `json:"current_period_end"`
	CancelAtPeriodEnd bool        `json:"cancel_at_period_end"`
	MinutesUsed       float64     `json:"minutes_used"`
	MinutesLimit      *float64    `json:"minutes_limit"`
}

func (s *Server) requireBilling(c *gin.Context) {
	if s.billing == nil || !s.billing.Configured() {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "billing not configured"})
		return
	}
	c.Next()
}

func (s *Server) createCheckout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Tier == "" {
		badRequest(c, "tier is required")
		return
	}
	tier, ok := domain.ParseTier(req.Tier)
	if !ok || !tier.Paid() {
		badRequest(c, "tier must be apprentice, pro or sovereign")
		return
	}

	user, ok := s.profile(c)
	if !ok {
		return
	}

	session, err := s.billing.Checkout(c.Request.Context(), user, tier)
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": session.URL, "session_id": session.ID})
}

func (s *Server) createPortal(c *gin.Context) {
	user, ok := s.profile(c)
	if !ok {
		return
	}

	url, err := s.billing.Portal(c.Request.Context(), user)
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (s *Server) subscriptionStatus(c *gin.Context) {
	user, ok := s.profile(c)
	if !ok {
		return
	}

	status, err := s.billing.Status(c.Request.Context(), user)
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, subscriptionView{
		Tier:              status.Tier,
		Status:            status.Status,
		CurrentPeriodEnd:  status.CurrentPeriodEnd,
		CancelAtPeriodEnd: status.CancelAtPeriodEnd,
		MinutesUsed:       status.MinutesUsed,
		MinutesLimit:      finite(status.MinutesLimit),
	})
}

func (s *Server) webhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.logger.Warn("webhook body over limit", "limit", maxErr.Limit)
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "webhook body too large"})
			return
		}
		badRequest(c, "reading body")
		return
	}

	if err := s.billing.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (s *Server) deleteAccount(c *gin.Context) {
	identity, _ := identityFrom(c)

	if err := s.accounts.DeleteAccount(c.Request.Context(), identity.UserID); err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// finite maps an unlimited allowance to JSON null.
func finite(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}
