package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"voice-journal/internal/domain"
)

type PaymentProvider interface {
	CreateCustomer(ctx context.Context, email, userID string) (string, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	CreatePortalSession(ctx context.Context, customerID string) (string, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error
	DeleteCustomer(ctx context.Context, customerID string) error
	// ParseWebhook verifies the signature header and decodes the event.
	ParseWebhook(payload []byte, signature string) (*BillingEvent, error)
}

type CheckoutRequest struct {
	CustomerID string
	UserID     string
	Tier       domain.Tier
}

type CheckoutSession struct {
	ID  string
	URL string
}

type Subscription struct {
	ID                string
	CustomerID        string
	Status            string
	Tier              domain.Tier
	CurrentPeriodEnd  time.Time
	CancelAtPeriodEnd bool
}

// Active reports whether the subscription grants its tier.
func (s *Subscription) Active() bool {
	return s.Status == "active" || s.Status == "trialing"
}

type BillingEventKind string

const (
	BillingCheckoutCompleted    BillingEventKind = "checkout.session.completed"
	BillingSubscriptionUpdated  BillingEventKind = "customer.subscription.updated"
	BillingSubscriptionDeleted  BillingEventKind = "customer.subscription.deleted"
	BillingInvoicePaid          BillingEventKind = "invoice.paid"
	BillingInvoicePaymentFailed BillingEventKind = "invoice.payment_failed"
)

type BillingEvent struct {
	ID             string
	Kind           BillingEventKind
	CustomerID     string
	SubscriptionID string

	// UserID and Tier come from checkout metadata.
	UserID       string
	Tier         domain.Tier
	Subscription *Subscription
	PeriodStart  time.Time
	AmountDue    int64
	Currency     string
}

// ErrInvalidSignature is returned by payment providers when a webhook fails verification.
var ErrInvalidSignature = errors.New("invalid webhook signature")

type SubscriptionStatus struct {
	Tier              domain.Tier
	Status            string
	CurrentPeriodEnd  *time.Time
	CancelAtPeriodEnd bool
	MinutesUsed       float64
	MinutesLimit      float64
}

// Billing links profiles to subscriptions held by the payment provider.
type Billing struct {
	payments PaymentProvider
	profiles ProfileStore
	notifier Notifier
	events   EventPublisher
	logger   *slog.Logger
}

func NewBilling(payments PaymentProvider, profiles ProfileStore, notifier Notifier, events EventPublisher, logger *slog.Logger) *Billing {
	if notifier == nil {
		notifier = &NoopNotifier{}
	}
	if events == nil {
		events = &NoopPublisher{}
	}
	return &Billing{
		payments: payments,
		profiles: profiles,
		notifier: notifier,
		events:   events,
		logger:   logger,
	}
}

func (b *Billing) Configured() bool {
	return b.payments != nil
}

func (b *Billing) Checkout(ctx context.Context, user *domain.Profile, tier domain.Tier) (*CheckoutSession, error) {
	if !b.Configured() {
		return nil, fmt.Errorf("billing: %w", domain.ErrNotConfigured)
	}
	if !tier.Paid() {
		return nil, fmt.Errorf("tier %q cannot be purchased: %w", tier, domain.ErrInvalidInput)
	}

	if user.StripeCustomerID == "" {
		customerID, err := b.payments.CreateCustomer(ctx, user.Email, user.UserID)
		if err != nil {
			return nil, fmt.Errorf("creating customer: %w", err)
		}
		user.StripeCustomerID = customerID
		if err := b.profiles.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("saving customer id: %w", err)
		}
		b.logger.Info("payment customer created", "user_id", user.UserID, "customer_id", customerID)
	}

	session, err := b.payments.CreateCheckoutSession(ctx, CheckoutRequest{
		CustomerID: user.StripeCustomerID,
		UserID:     user.UserID,
		Tier:       tier,
	})
	if err != nil {
		return nil, fmt.Errorf("creating checkout session: %w", err)
	}

	return session, nil
}

func (b *Billing) Portal(ctx context.Context, user *domain.Profile) (string, error) {
	if !b.Configured() {
		return "", fmt.Errorf("billing: %w", domain.ErrNotConfigured)
	}
	if user.StripeCustomerID == "" {
		return "", fmt.Errorf("no billing account for this user: %w", domain.ErrInvalidInput)
	}

	url, err := b.payments.CreatePortalSession(ctx, user.StripeCustomerID)
	if err != nil {
		return "", fmt.Errorf("creating portal session: %w", err)
	}
	return url, nil
}

// Status reports the subscription, refreshing it from the payment provider
// when one is linked. A failed refresh falls back to the stored values.
func (b *Billing) Status(ctx context.Context, user *domain.Profile) (*SubscriptionStatus, error) {
	if b.Configured() && user.StripeSubscriptionID != "" {
		sub, err := b.payments.GetSubscription(ctx, user.StripeSubscriptionID)
		if err != nil {
			b.logger.Warn("failed to refresh subscription", "user_id", user.UserID, "error", err)
		} else if applySubscription(user, sub) {
			if err := b.profiles.Update(ctx, user); err != nil {
				return nil, fmt.Errorf("saving subscription: %w", err)
			}
		}
	}

	return &SubscriptionStatus{
		Tier:              user.Tier,
		Status:            user.SubscriptionStatus,
		CurrentPeriodEnd:  user.CurrentPeriodEnd,
		CancelAtPeriodEnd: user.CancelAtPeriodEnd,
		MinutesUsed:       user.MinutesUsed,
		MinutesLimit:      user.Tier.Limits().MinutesPerPeriod,
	}, nil
}

// HandleWebhook applies a payment provider event. Events for unknown
// customers and unhandled event kinds are acknowledged and ignored.
func (b *Billing) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if !b.Configured() {
		return fmt.Errorf("billing: %w", domain.ErrNotConfigured)
	}

	event, err := b.payments.ParseWebhook(payload, signature)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	logger := b.logger.With("event_id", event.ID, "kind", event.Kind, "customer_id", event.CustomerID)

	switch event.Kind {
	case BillingCheckoutCompleted:
		return b.checkoutCompleted(ctx, event, logger)
	case BillingSubscriptionUpdated:
		return b.withProfile(ctx, event, logger, func(p *domain.Profile) bool {
			if event.Subscription == nil {
				return false
			}
			return applySubscription(p, event.Subscription)
		})
	case BillingSubscriptionDeleted:
		return b.withProfile(ctx, event, logger, func(p *domain.Profile) bool {
			p.Tier = domain.TierTrial
			p.StripeSubscriptionID = ""
			p.SubscriptionStatus = "canceled"
			p.CancelAtPeriodEnd = false
			p.CurrentPeriodEnd = nil
			return true
		})
	case BillingInvoicePaid:
		return b.invoicePaid(ctx, event, logger)
	case BillingInvoicePaymentFailed:
		msg := fmt.Sprintf("Payment failed for customer %s (%.2f %s)", event.CustomerID, float64(event.AmountDue)/100, event.Currency)
		if err := b.notifier.Notify(ctx, msg); err != nil {
			logger.Error("failed to send payment alert", "error", err)
		}
		return b.withProfile(ctx, event, logger, func(p *domain.Profile) bool {
			p.SubscriptionStatus = "past_due"
			return true
		})
	default:
		logger.Debug("ignoring billing event")
		return nil
	}
}

func (b *Billing) checkoutCompleted(ctx context.Context, event *BillingEvent, logger *slog.Logger) error {
	var (
		profile *domain.Profile
		err     error
	)
	if event.UserID != "" {
		profile, err = b.profiles.Get(ctx, event.UserID)
	} else {
		profile, err = b.profiles.FindByCustomerID(ctx, event.CustomerID)
	}
	if errors.Is(err, domain.ErrNotFound) {
		logger.Warn("checkout for unknown user", "user_id", event.UserID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading profile: %w", err)
	}

	if event.CustomerID != "" {
		profile.StripeCustomerID = event.CustomerID
	}
	if event.SubscriptionID != "" {
		profile.StripeSubscriptionID = event.SubscriptionID
	}
	if event.Tier.Paid() {
		profile.Tier = event.Tier
	}
	profile.SubscriptionStatus = "active"
	if event.Subscription != nil {
		applySubscription(profile, event.Subscription)
	}

	return b.save(ctx, profile, logger)
}

func (b *Billing) invoicePaid(ctx context.Context, event *BillingEvent, logger *slog.Logger) error {
	profile, err := b.profiles.FindByCustomerID(ctx, event.CustomerID)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Warn("invoice for unknown customer")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading profile: %w", err)
	}
	if !profile.Tier.Limits().ResetsMonthly {
		return nil
	}

	periodStart := event.PeriodStart
	if periodStart.IsZero() {
		periodStart = time.Now()
	}
	if err := b.profiles.ResetUsage(ctx, profile.UserID, periodStart); err != nil {
		return fmt.Errorf("resetting usage: %w", err)
	}

	logger.Info("usage period reset", "user_id", profile.UserID, "period_start", periodStart)
	b.publishProfile(profile.UserID)
	return nil
}

func (b *Billing) withProfile(ctx context.Context, event *BillingEvent, logger *slog.Logger, mutate func(*domain.Profile) bool) error {
	profile, err := b.profiles.FindByCustomerID(ctx, event.CustomerID)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Warn("billing event for unknown customer")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading profile: %w", err)
	}

	if !mutate(profile) {
		return nil
	}
	return b.save(ctx, profile, logger)
}

func (b *Billing) save(ctx context.Context, profile *domain.Profile, logger *slog.Logger) error {
	if err := b.profiles.Update(ctx, profile); err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	logger.Info("subscription updated",
		"user_id", profile.UserID,
		"tier", profile.Tier,
		"status", profile.SubscriptionStatus,
	)
	b.publishProfile(profile.UserID)
	return nil
}

func (b *Billing) publishProfile(userID string) {
	b.events.Publish(domain.Event{
		Type:      domain.EventProfileUpdated,
		UserID:    userID,
		Timestamp: time.Now(),
	})
}

// applySubscription copies subscription state onto the profile and reports whether anything changed.
func applySubscription(p *domain.Profile, sub *Subscription) bool {
	before := *p

	p.SubscriptionStatus = sub.Status
	p.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
	if sub.ID != "" {
		p.StripeSubscriptionID = sub.ID
	}
	if !sub.CurrentPeriodEnd.IsZero() {
		end := sub.CurrentPeriodEnd
		p.CurrentPeriodEnd = &end
	}

	switch {
	case sub.Active() && sub.Tier.Paid():
		p.Tier = sub.Tier
	case !sub.Active():
		p.Tier = domain.TierTrial
	}

	return before.Tier != p.Tier ||
		before.SubscriptionStatus != p.SubscriptionStatus ||
		before.CancelAtPeriodEnd != p.CancelAtPeriodEnd ||
		before.StripeSubscriptionID != p.StripeSubscriptionID ||
		!sameTime(before.CurrentPeriodEnd, p.CurrentPeriodEnd)
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
