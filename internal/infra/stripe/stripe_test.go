package stripe_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v76/webhook"

	"voice-journal/internal/application"
	"voice-journal/internal/domain"
	"voice-journal/internal/infra/stripe"
)

const webhookSecret = "whsec_test"

func testConfig() stripe.Config {
	return stripe.Config{
		SecretKey:     "sk_test_123",
		WebhookSecret: webhookSecret,
		Prices: map[domain.Tier]string{
			domain.TierApprentice: "price_apprentice",
			domain.TierPro:        "price_pro",
			domain.TierSovereign:  "price_sovereign",
		},
		SuccessURL:      "https://app.example/success",
		CancelURL:       "https://app.example/cancel",
		PortalReturnURL: "https://app.example/settings",
	}
}

func signedEvent(t *testing.T, eventType string, object any) ([]byte, string) {
	t.Helper()

	raw, err := json.Marshal(object)
	if err != nil {
		t.Fatalf("marshaling object: %v", err)
	}
	payload, err := json.Marshal(map[string]any{
		"id":          "evt_1",
		"object":      "event",
		"type":        eventType,
		"api_version": "2023-10-16",
		"data":        map[string]json.RawMessage{"object": raw},
	})
	if err != nil {
		t.Fatalf("marshaling event: %v", err)
	}

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    webhookSecret,
		Timestamp: time.Now(),
	})
	return signed.Payload, signed.Header
}

func TestParseWebhook_InvalidSignature(t *testing.T) {
	c := stripe.NewClient(testConfig())

	payload, _ := signedEvent(t, "invoice.paid", map[string]any{"id": "in_1"})

	_, err := c.ParseWebhook(payload, "t=1,v1=deadbeef")
	if !errors.Is(err, application.ErrInvalidSignature) {
		t.Errorf("got %v, want ErrInvalidSignature", err)
	}
}

func TestParseWebhook_CheckoutCompleted(t *testing.T) {
	c := stripe.NewClient(testConfig())

	payload, header := signedEvent(t, "checkout.session.completed", map[string]any{
		"id":                  "cs_1",
		"object":              "checkout.session",
		"customer":            "cus_1",
		"subscription":        "sub_1",
		"client_reference_id": "user-1",
		"metadata":            map[string]string{"tier": "pro"},
	})

	ev, err := c.ParseWebhook(payload, header)
	if err != nil {
		t.Fatalf("ParseWebhook: %v", err)
	}
	if ev.Kind != application.BillingCheckoutCompleted {
		t.Errorf("Kind: got %s", ev.Kind)
	}
	if ev.CustomerID != "cus_1" || ev.SubscriptionID != "sub_1" || ev.UserID != "user-1" || ev.Tier != domain.TierPro {
		t.Errorf("event: %+v", ev)
	}
}

func TestParseWebhook_SubscriptionUpdated(t *testing.T) {
	c := stripe.NewClient(testConfig())
	periodEnd := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	payload, header := signedEvent(t, "customer.subscription.updated", map[string]any{
		"id":                   "sub_1",
		"object":               "subscription",
		"customer":             "cus_1",
		"status":               "active",
		"cancel_at_period_end": true,
		"current_period_end":   periodEnd.Unix(),
		"items": map[string]any{
			"object": "list",
			"data": []map[string]any{
				{"id": "si_1", "object": "subscription_item", "price": map[string]any{"id": "price_sovereign", "object": "price"}},
			},
		},
	})

	ev, err := c.ParseWebhook(payload, header)
	if err != nil {
		t.Fatalf("ParseWebhook: %v", err)
	}
	sub := ev.Subscription
	if sub == nil {
		t.Fatal("expected a subscription")
	}
	if ev.CustomerID != "cus_1" || sub.Tier != domain.TierSovereign || sub.Status != "active" {
		t.Errorf("subscription: %+v", sub)
	}
	if !sub.CancelAtPeriodEnd || !sub.CurrentPeriodEnd.Equal(periodEnd) {
		t.Errorf("period: %+v", sub)
	}
}

func TestParseWebhook_InvoicePaid(t *testing.T) {
	c := stripe.NewClient(testConfig())
	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	payload, header := signedEvent(t, "invoice.paid", map[string]any{
		"id":         "in_1",
		"object":     "invoice",
		"customer":   "cus_1",
		"amount_due": 900,
		"currency":   "usd",
		"lines": map[string]any{
			"object": "list",
			"data": []map[string]any{
				{"id": "il_1", "object": "line_item", "period": map[string]any{"start": start.Unix(), "end": start.AddDate(0, 1, 0).Unix()}},
			},
		},
	})

	ev, err := c.ParseWebhook(payload, header)
	if err != nil {
		t.Fatalf("ParseWebhook: %v", err)
	}
	if ev.CustomerID != "cus_1" || ev.AmountDue != 900 || !ev.PeriodStart.Equal(start) {
		t.Errorf("event: %+v", ev)
	}
}

func TestParseWebhook_UnknownEvent(t *testing.T) {
	c := stripe.NewClient(testConfig())

	payload, header := signedEvent(t, "charge.refunded", map[string]any{"id": "ch_1", "object": "charge"})

	ev, err := c.ParseWebhook(payload, header)
	if err != nil {
		t.Fatalf("ParseWebhook: %v", err)
	}
	if ev.Kind != "charge.refunded" || ev.CustomerID != "" {
		t.Errorf("event: %+v", ev)
	}
}

func TestClient_CheckoutAndPortal(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/checkout/sessions":
			if r.PostForm.Get("line_items[0][price]") != "price_pro" || r.PostForm.Get("mode") != "subscription" {
				http.Error(w, `{"error":{"message":"bad params"}}`, http.StatusBadRequest)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"id": "cs_1", "object": "checkout.session", "url": "https://checkout.stripe.com/cs_1"})
		case "/v1/billing_portal/sessions":
			json.NewEncoder(w).Encode(map[string]any{"id": "bps_1", "object": "billing_portal.session", "url": "https://billing.stripe.com/p/1"})
		default:
			http.Error(w, `{"error":{"message":"not found"}}`, http.StatusNotFound)
		}
	}))
	defer server.Close()

	c := stripe.NewClientWithURL(testConfig(), server.URL)
	ctx := context.Background()

	session, err := c.CreateCheckoutSession(ctx, application.CheckoutRequest{CustomerID: "cus_1", UserID: "user-1", Tier: domain.TierPro})
	if err != nil {
		t.Fatalf("CreateCheckoutSession: %v", err)
	}
	if session.ID != "cs_1" || session.URL != "https://checkout.stripe.com/cs_1" {
		t.Errorf("session: %+v", session)
	}

	url, err := c.CreatePortalSession(ctx, "cus_1")
	if err != nil {
		t.Fatalf("CreatePortalSession: %v", err)
	}
	if url != "https://billing.stripe.com/p/1" {
		t.Errorf("portal url: %s", url)
	}

	if _, err := c.CreateCheckoutSession(ctx, application.CheckoutRequest{Tier: domain.TierTrial}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("trial checkout: got %v, want ErrInvalidInput", err)
	}
	if len(paths) != 2 {
		t.Errorf("requests: %v", paths)
	}
}
