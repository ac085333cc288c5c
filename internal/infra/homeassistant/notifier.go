package homeassistant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"voice-journal/internal/infra"
)

// Notifier delivers operator alerts through a Home Assistant notify service,
// e.g. "mobile_app_pixel" for the companion app.
type Notifier struct {
	baseURL    string
	token      string
	service    string
	title      string
	httpClient *http.Client
}

func NewNotifier(baseURL, token, service string) *Notifier {
	return &Notifier{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		service:    strings.TrimPrefix(service, "notify."),
		title:      "Voice Journal",
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (n *Notifier) Configured() bool {
	return n.baseURL != "" && n.token != "" && n.service != ""
}

func (n *Notifier) Notify(ctx context.Context, message string) error {
	if !n.Configured() {
		return nil
	}

	body, err := json.Marshal(map[string]string{
		"title":   n.title,
		"message": message,
	})
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	path := fmt.Sprintf("/api/services/notify/%s", n.service)

	return infra.WithRetry(ctx, infra.DefaultRetryConfig(), func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+path, strings.NewReader(string(body)))
		if err != nil {
			return infra.Permanent(fmt.Errorf("creating request: %w", err))
		}

		req.Header.Set("Authorization", "Bearer "+n.token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending notification: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusUnauthorized {
			return infra.Permanent(fmt.Errorf("unauthorized: check your Home Assistant token"))
		}
		return infra.CheckResponse("home assistant", resp)
	})
}
