package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"voice-journal/internal/domain"
	"voice-journal/internal/infra"
)

// AdminClient calls the GoTrue admin API with the service role key.
type AdminClient struct {
	baseURL        string
	serviceRoleKey string
	httpClient     *http.Client
}

func NewAdminClient(projectURL, serviceRoleKey string) *AdminClient {
	return &AdminClient{
		baseURL:        strings.TrimRight(projectURL, "/"),
		serviceRoleKey: serviceRoleKey,
		httpClient:     &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *AdminClient) Configured() bool {
	return c.baseURL != "" && c.serviceRoleKey != ""
}

// DeleteUser removes the auth user. A user that is already gone is not an error.
func (c *AdminClient) DeleteUser(ctx context.Context, userID string) error {
	if !c.Configured() {
		return fmt.Errorf("supabase admin: %w", domain.ErrNotConfigured)
	}

	return infra.WithRetry(ctx, infra.DefaultRetryConfig(), func() error {
		endpoint := c.baseURL + "/auth/v1/admin/users/" + url.PathEscape(userID)
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("apikey", c.serviceRoleKey)
		req.Header.Set("Authorization", "Bearer "+c.serviceRoleKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return nil
		}
		return infra.CheckResponse("supabase", resp)
	})
}
