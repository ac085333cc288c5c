package stripe

import (
	"context"
	"fmt"
	"time"

	gostripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"voice-journal/internal/application"
	"voice-journal/internal/domain"
)

type Config struct {
	SecretKey       string
	WebhookSecret   string
	Prices          map[domain.Tier]string
	SuccessURL      string
	CancelURL       string
	PortalReturnURL string
}

// Client implements application.PaymentProvider on top of stripe-go.
type Client struct {
	api    *client.API
	cfg    Config
	byTier map[domain.Tier]string
	byID   map[string]domain.Tier
}

func NewClient(cfg Config) *Client {
	return newClient(cfg, nil)
}

// NewClientWithURL points the API backend at baseURL, for tests.
func NewClientWithURL(cfg Config, baseURL string) *Client {
	backend := gostripe.GetBackendWithConfig(gostripe.APIBackend, &gostripe.BackendConfig{
		URL:               gostripe.String(baseURL),
		MaxNetworkRetries: gostripe.Int64(0),
	})
	return newClient(cfg, &gostripe.Backends{API: backend, Connect: backend, Uploads: backend})
}

func newClient(cfg Config, backends *gostripe.Backends) *Client {
	c := &Client{
		api:    client.New(cfg.SecretKey, backends),
		cfg:    cfg,
		byTier: make(map[domain.Tier]string),
		byID:   make(map[string]domain.Tier),
	}
	for tier, price := range cfg.Prices {
		if price == "" || !tier.Paid() {
			continue
		}
		c.byTier[tier] = price
		c.byID[price] = tier
	}
	return c
}

// PriceFor returns the configured price for a tier.
func (c *Client) PriceFor(tier domain.Tier) (string, bool) {
	price, ok := c.byTier[tier]
	return price, ok
}

// TierFor maps a price back to its tier.
func (c *Client) TierFor(priceID string) (domain.Tier, bool) {
	tier, ok := c.byID[priceID]
	return tier, ok
}

func (c *Client) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	params := &gostripe.CustomerParams{}
	params.Context = ctx
	if email != "" {
		params.Email = gostripe.String(email)
	}
	params.AddMetadata("user_id", userID)

	cus, err := c.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe customer: %w", err)
	}
	return cus.ID, nil
}

func (c *Client) CreateCheckoutSession(ctx context.Context, req application.CheckoutRequest) (*application.CheckoutSession, error) {
	price, ok := c.PriceFor(req.Tier)
	if !ok {
		return nil, fmt.Errorf("no price configured for tier %s: %w", req.Tier, domain.ErrInvalidInput)
	}

	params := &gostripe.CheckoutSessionParams{
		Mode:              gostripe.String(string(gostripe.CheckoutSessionModeSubscription)),
		Customer:          gostripe.String(req.CustomerID),
		ClientReferenceID: gostripe.String(req.UserID),
		SuccessURL:        gostripe.String(c.cfg.SuccessURL),
		CancelURL:         gostripe.String(c.cfg.CancelURL),
		LineItems: []*gostripe.CheckoutSessionLineItemParams{
			{Price: gostripe.String(price), Quantity: gostripe.Int64(1)},
		},
		SubscriptionData: &gostripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				"user_id": req.UserID,
				"tier":    string(req.Tier),
			},
		},
	}
	params.Context = ctx
	params.AddMetadata("user_id", req.UserID)
	params.AddMetadata("tier", string(req.Tier))

	session, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session: %w", err)
	}
	return &application.CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

func (c *Client) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	params := &gostripe.BillingPortalSessionParams{
		Customer:  gostripe.String(customerID),
		ReturnURL: gostripe.String(c.cfg.PortalReturnURL),
	}
	params.Context = ctx

	session, err := c.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe portal session: %w", err)
	}
	return session.URL, nil
}

func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*application.Subscription, error) {
	params := &gostripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := c.api.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe subscription: %w", err)
	}
	return c.toSubscription(sub), nil
}

func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) error {
	params := &gostripe.SubscriptionCancelParams{}
	params.Context = ctx

	if _, err := c.api.Subscriptions.Cancel(subscriptionID, params); err != nil {
		return fmt.Errorf("stripe cancel subscription: %w", err)
	}
	return nil
}

func (c *Client) DeleteCustomer(ctx context.Context, customerID string) error {
	params := &gostripe.CustomerParams{}
	params.Context = ctx

	if _, err := c.api.Customers.Del(customerID, params); err != nil {
		return fmt.Errorf("stripe delete customer: %w", err)
	}
	return nil
}

func (c *Client) toSubscription(sub *gostripe.Subscription) *application.Subscription {
	out := &application.Subscription{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.CurrentPeriodEnd > 0 {
		out.CurrentPeriodEnd = time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	}

	if sub.Items != nil {
		for _, item := range sub.Items.Data {
			if item.Price == nil {
				continue
			}
			if tier, ok := c.TierFor(item.Price.ID); ok {
				out.Tier = tier
				break
			}
		}
	}
	if out.Tier == "" {
		if tier, ok := domain.ParseTier(sub.Metadata["tier"]); ok {
			out.Tier = tier
		}
	}

	return out
}
