package infra_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"voice-journal/internal/infra"
)

func fastRetry() infra.RetryConfig {
	return infra.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2}
}

func TestWithRetry_SucceedsAfterTransientErrors(t *testing.T) {
	calls := 0
	err := infra.WithRetry(context.Background(), fastRetry(), func() error {
		calls++
		if calls < 3 {
			return errors.New("temporary")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithRetry: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls: got %d, want 3", calls)
	}
}

func TestWithRetry_PermanentStopsImmediately(t *testing.T) {
	sentinel := errors.New("bad request")
	calls := 0
	err := infra.WithRetry(context.Background(), fastRetry(), func() error {
		calls++
		return infra.Permanent(sentinel)
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("got %v, want %v", err, sentinel)
	}
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}

func TestWithRetry_ContextDeadline(t *testing.T) {
	calls := 0
	err := infra.WithRetry(context.Background(), fastRetry(), func() error {
		calls++
		return context.DeadlineExceeded
	})
	if !errors.Is(err, context.DeadlineExceeded) || calls != 1 {
		t.Errorf("got %v after %d calls", err, calls)
	}
}

func TestCheckResponse(t *testing.T) {
	tests := []struct {
		status        int
		wantErr       bool
		wantRetryable bool
	}{
		{http.StatusOK, false, false},
		{http.StatusBadRequest, true, false},
		{http.StatusUnauthorized, true, false},
		{http.StatusTooManyRequests, true, true},
		{http.StatusBadGateway, true, true},
	}

	for _, tt := range tests {
		resp := &http.Response{StatusCode: tt.status, Body: io.NopCloser(strings.NewReader("details"))}
		err := infra.CheckResponse("groq", resp)
		if (err != nil) != tt.wantErr {
			t.Errorf("status %d: got err %v", tt.status, err)
			continue
		}
		if err == nil {
			continue
		}

		var apiErr *infra.APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != tt.status || apiErr.Body != "details" {
			t.Errorf("status %d: unexpected error %v", tt.status, err)
		}

		calls := 0
		_ = infra.WithRetry(context.Background(), fastRetry(), func() error {
			calls++
			return err
		})
		if retried := calls > 1; retried != tt.wantRetryable {
			t.Errorf("status %d: retried=%v, want %v", tt.status, retried, tt.wantRetryable)
		}
	}
}

func TestStripCodeFence(t *testing.T) {
	in := "```json\n{\"tags\": []}\n```"
	if got := infra.StripCodeFence(in); got != `{"tags": []}` {
		t.Errorf("StripCodeFence: got %q", got)
	}
}
