package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"voice-journal/internal/infra/gemini"
)

func TestCleaner_Clean(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-test:generateContent") {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		var req struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
			SystemInstruction *struct{} `json:"systemInstruction"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.SystemInstruction == nil || len(req.Contents) != 1 || req.Contents[0].Parts[0].Text != "um so like hello" {
			http.Error(w, "bad request body", http.StatusBadRequest)
			return
		}

		response := map[string]any{
			"candidates": []map[string]any{
				{
					"content":      map[string]any{"parts": []map[string]string{{"text": "  So, hello.\n"}}},
					"finishReason": "STOP",
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	cleaner := gemini.NewCleanerWithURL("test-key", "gemini-test", server.URL)

	got, err := cleaner.Clean(context.Background(), "um so like hello")
	if err != nil {
		t.Fatalf("Clean error: %v", err)
	}
	if got != "So, hello." {
		t.Errorf("Clean: got %q, want %q", got, "So, hello.")
	}
}

func TestCleaner_EmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer server.Close()

	cleaner := gemini.NewCleanerWithURL("test-key", "", server.URL)

	if _, err := cleaner.Clean(context.Background(), "text"); err == nil {
		t.Error("expected an error for a response without candidates")
	}
}

func TestCleaner_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":400,"message":"API key not valid"}}`, http.StatusBadRequest)
	}))
	defer server.Close()

	cleaner := gemini.NewCleanerWithURL("bad-key", "", server.URL)

	_, err := cleaner.Clean(context.Background(), "text")
	if err == nil || !strings.Contains(err.Error(), "400") {
		t.Errorf("expected a 400 error, got %v", err)
	}
}

func TestCleaner_TruncatedReply(t *testing.T) {
	tests := []string{"MAX_TOKENS", "SAFETY"}

	for _, reason := range tests {
		t.Run(reason, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{
					"candidates": []map[string]any{
						{
							"content":      map[string]any{"parts": []map[string]string{{"text": "I went to the"}}},
							"finishReason": reason,
						},
					},
				})
			}))
			defer server.Close()

			cleaner := gemini.NewCleanerWithURL("test-key", "", server.URL)

			got, err := cleaner.Clean(context.Background(), "um I went to the store and then home")
			if err == nil {
				t.Fatalf("expected an error for finishReason %s, got %q", reason, got)
			}
			if got != "" {
				t.Errorf("Clean returned partial text %q", got)
			}
		})
	}
}
