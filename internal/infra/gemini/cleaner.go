package gemini

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

// Cleaner removes filler words from transcripts with Gemini generateContent.
type Cleaner struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	model      string
}

func NewCleaner(apiKey, model string) *Cleaner {
	return NewCleanerWithURL(apiKey, model, "https://generativelanguage.googleapis.com/v1beta")
}

func NewCleanerWithURL(apiKey, model, baseURL string) *Cleaner {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &Cleaner{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		model:      model,
	}
}

type content struct {
	Parts []part `json:"parts"`
	Role  string `json:"role,omitempty"`
}

type part struct {
	Text string `json:"text"`
}

type request struct {
	Contents         []content        `json:"contents"`
	SystemInstruct   *content         `json:"systemInstruction,omitempty"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
}

type response struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

func (c *Cleaner) Clean(ctx context.Context, text string) (string, error) {
	reqBody := request{
		SystemInstruct: &content{
			Parts: []part{{Text: infra.CleanSystemPrompt}},
		},
		Contents: []content{
			{
				Role:  "user",
				Parts: []part{{Text: text}},
			},
		},
		GenerationConfig: generationConfig{
			MaxOutputTokens: maxOutputTokens(text),
			Temperature:     0.1,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	var result response
	retryErr := infra.WithRetry(ctx, infra.DefaultRetryConfig(), func() error {
		url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		if err := infra.CheckResponse("gemini", resp); err != nil {
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

	if result.Error != nil {
		return "", fmt.Errorf("gemini error: %s", result.Error.Message)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from gemini")
	}

	// A cut-off reply would replace the transcript with a fragment.
	if reason := result.Candidates[0].FinishReason; reason != "" && reason != "STOP" {
		return "", fmt.Errorf("gemini stopped early: %s", reason)
	}

	var sb strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}

	return strings.TrimSpace(sb.String()), nil
}

// maxOutputTokens leaves room for the cleaned text, which is never much longer than the input.
func maxOutputTokens(text string) int {
	n := len(text)/2 + 256
	if n > 8192 {
		return 8192
	}
	return n
}
