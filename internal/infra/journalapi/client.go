// Package journalapi is the HTTP client used by the recorder to talk to the journal server.
package journalapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"voice-journal/internal/application"
	"voice-journal/internal/domain"
	"voice-journal/internal/infra"
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 3 * time.Minute},
	}
}

// Health returns the server's provider flags.
func (c *Client) Health(ctx context.Context) (map[string]bool, error) {
	var result struct {
		Status    string          `json:"status"`
		Providers map[string]bool `json:"providers"`
	}

	err := infra.WithRetry(ctx, infra.DefaultRetryConfig(), func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
		if err != nil {
			return infra.Permanent(fmt.Errorf("creating request: %w", err))
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		if err := infra.CheckResponse("journal", resp); err != nil {
			return err
		}
		return json.NewDecoder(resp.Body).Decode(&result)
	})
	if err != nil {
		return nil, fmt.Errorf("checking health: %w", err)
	}
	return result.Providers, nil
}

// Record uploads a recording to be transcribed, cleaned, tagged and saved.
// Uploads are not retried since the server may already have stored the thought.
func (c *Client) Record(ctx context.Context, rec *application.Recording) (*domain.Thought, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("audio", rec.Filename)
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(rec.Data); err != nil {
		return nil, fmt.Errorf("writing audio data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/thoughts/record", &body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if err := infra.CheckResponse("journal", resp); err != nil {
		return nil, friendlyError(err)
	}

	var thought domain.Thought
	if err := json.NewDecoder(resp.Body).Decode(&thought); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &thought, nil
}

// friendlyError unwraps the server's {"error": "..."} body.
func friendlyError(err error) error {
	var apiErr *infra.APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal([]byte(apiErr.Body), &body) != nil || body.Error == "" {
		return err
	}

	switch apiErr.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("not signed in (%s): %w", body.Error, domain.ErrUnauthorized)
	case http.StatusPaymentRequired:
		return fmt.Errorf("%s: %w", body.Error, domain.ErrLimitExceeded)
	case http.StatusForbidden:
		return fmt.Errorf("%s: %w", body.Error, domain.ErrRecordingTooLong)
	default:
		return fmt.Errorf("server returned %d: %s", apiErr.StatusCode, body.Error)
	}
}
