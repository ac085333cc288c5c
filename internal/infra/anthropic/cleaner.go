package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"voice-journal/internal/infra"
)

// Cleaner is the Claude alternative to the Gemini transcript cleaner.
type Cleaner struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	model      string
}

func NewCleaner(apiKey, model string) *Cleaner {
	return NewCleanerWithURL(apiKey, model, "https://api.anthropic.com/v1")
}

func NewCleanerWithURL(apiKey, model, baseURL string) *Cleaner {
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}
	return &Cleaner{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		model:      model,
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type response struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func (c *Cleaner) Clean(ctx context.Context, text string) (string, error) {
	reqBody := request{
		Model:     c.model,
		MaxTokens: 4096,
		System:    infra.CleanSystemPrompt,
		Messages: []message{
			{Role: "user", Content: text},
		},
		Temperature: 0.1,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	var result response
	retryErr := infra.WithRetry(ctx, infra.DefaultRetryConfig(), func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(bodyBytes))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("anthropic-version", "2023-06-01")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		if err := infra.CheckResponse("claude", resp); err != nil {
			return err
		}

		if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}

		return nil
	})

	if retryErr != nil {
		return "", retryErr
	}

	if result.StopReason == "max_tokens" {
		return "", fmt.Errorf("claude stopped early: %s", result.StopReason)
	}

	var sb strings.Builder
	for _, block := range result.Content {
		if block.Type == "" || block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	cleaned := strings.TrimSpace(sb.String())
	if cleaned == "" {
		return "", fmt.Errorf("empty response from claude")
	}

	return cleaned, nil
}
