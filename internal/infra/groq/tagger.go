package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"voice-journal/internal/application"
	"voice-journal/internal/infra"
)

const tagSystemPrompt = `You organise voice journal entries. Read the entry and pick up to 5 short topical tags
(one or two lowercase words each, no '#') and a single broad category such as work, personal, health,
ideas, family, finance, learning or creative.

Respond ONLY with valid JSON (no markdown, no backticks):
{"tags": ["tag one", "tag two"], "category": "category"}`

// TagClient extracts tags with a Llama model over Groq chat completions.
type TagClient struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	model      string
}

func NewTagClient(apiKey, model string) *TagClient {
	return NewTagClientWithURL(apiKey, model, DefaultBaseURL)
}

func NewTagClientWithURL(apiKey, model, baseURL string) *TagClient {
	if model == "" {
		model = "llama-3.1-8b-instant"
	}
	return &TagClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		model:      model,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type parsedTags struct {
	Tags     []string `json:"tags"`
	Category string   `json:"category"`
}

func (c *TagClient) Tag(ctx context.Context, text string) (*application.TagResult, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: tagSystemPrompt},
			{Role: "user", Content: text},
		},
		Temperature:    0.2,
		MaxTokens:      150,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	var result chatResponse
	retryErr := infra.WithRetry(ctx, infra.DefaultRetryConfig(), func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		if err := infra.CheckResponse("groq", resp); err != nil {
			return err
		}

		if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}

		return nil
	})

	if retryErr != nil {
		return nil, retryErr
	}

	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("empty response from groq")
	}

	responseText := infra.StripCodeFence(result.Choices[0].Message.Content)

	var parsed parsedTags
	if err = json.Unmarshal([]byte(responseText), &parsed); err != nil {
		return nil, fmt.Errorf("parsing tags JSON (%s): %w", responseText, err)
	}

	return &application.TagResult{
		Tags:     parsed.Tags,
		Category: parsed.Category,
		Tagged:   true,
	}, nil
}
