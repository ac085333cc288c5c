package stripe

import (
	"encoding/json"
	"fmt"
	"time"

	gostripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"voice-journal/internal/application"
	"voice-journal/internal/domain"
)

// ParseWebhook verifies the Stripe-Signature header and maps the event
// into an application.BillingEvent. Unknown event types come back with
// only ID and Kind set.
func (c *Client) ParseWebhook(payload []byte, signature string) (*application.BillingEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, c.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", application.ErrInvalidSignature, err)
	}

	out := &application.BillingEvent{
		ID:   event.ID,
		Kind: application.BillingEventKind(event.Type),
	}

	switch out.Kind {
	case application.BillingCheckoutCompleted:
		var session gostripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("decoding checkout session: %w", err)
		}
		if session.Customer != nil {
			out.CustomerID = session.Customer.ID
		}
		if session.Subscription != nil {
			out.SubscriptionID = session.Subscription.ID
		}
		out.UserID = session.ClientReferenceID
		if out.UserID == "" {
			out.UserID = session.Metadata["user_id"]
		}
		if tier, ok := domain.ParseTier(session.Metadata["tier"]); ok {
			out.Tier = tier
		}

	case application.BillingSubscriptionUpdated, application.BillingSubscriptionDeleted:
		var sub gostripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("decoding subscription: %w", err)
		}
		out.Subscription = c.toSubscription(&sub)
		out.CustomerID = out.Subscription.CustomerID
		out.SubscriptionID = sub.ID
		out.Tier = out.Subscription.Tier

	case application.BillingInvoicePaid, application.BillingInvoicePaymentFailed:
		var inv gostripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("decoding invoice: %w", err)
		}
		if inv.Customer != nil {
			out.CustomerID = inv.Customer.ID
		}
		if inv.Subscription != nil {
			out.SubscriptionID = inv.Subscription.ID
		}
		out.AmountDue = inv.AmountDue
		out.Currency = string(inv.Currency)
		out.PeriodStart = invoicePeriodStart(&inv)
	}

	return out, nil
}

// invoicePeriodStart prefers the subscription line period, which is the
// period being paid for, over the invoice's own billing window.
func invoicePeriodStart(inv *gostripe.Invoice) time.Time {
	if inv.Lines != nil {
		for _, line := range inv.Lines.Data {
			if line.Period != nil && line.Period.Start > 0 {
				return time.Unix(line.Period.Start, 0).UTC()
			}
		}
	}
	if inv.PeriodStart > 0 {
		return time.Unix(inv.PeriodStart, 0).UTC()
	}
	return time.Time{}
}
