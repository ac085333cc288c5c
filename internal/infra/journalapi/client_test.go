package journalapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"voice-journal/internal/application"
	"voice-journal/internal/domain"
	"voice-journal/internal/infra/journalapi"
)

func TestClient_Record(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/thoughts/record" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("Authorization: got %q", r.Header.Get("Authorization"))
		}

		file, header, err := r.FormFile("audio")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		if header.Filename != "note.wav" || string(data) != "RIFF" {
			t.Errorf("upload: got %s %q", header.Filename, data)
		}

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(domain.Thought{ID: "t1", CleanedText: "Hello.", Tags: []string{"greeting"}})
	}))
	defer server.Close()

	client := journalapi.NewClient(server.URL+"/", "tok")
	thought, err := client.Record(context.Background(), &application.Recording{Filename: "note.wav", Data: []byte("RIFF")})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if thought.ID != "t1" || thought.CleanedText != "Hello." || len(thought.Tags) != 1 {
		t.Errorf("got %+v", thought)
	}
}

func TestClient_RecordErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, domain.ErrUnauthorized},
		{"over quota", http.StatusPaymentRequired, domain.ErrLimitExceeded},
		{"too long", http.StatusForbidden, domain.ErrRecordingTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"nope"}`))
			}))
			defer server.Close()

			client := journalapi.NewClient(server.URL, "tok")
			_, err := client.Record(context.Background(), &application.Recording{Filename: "a.wav", Data: []byte("x")})
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
			if calls.Load() != 1 {
				t.Errorf("uploads should not be retried, got %d calls", calls.Load())
			}
		})
	}
}

func TestClient_HealthRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok","providers":{"transcription":true}}`))
	}))
	defer server.Close()

	providers, err := journalapi.NewClient(server.URL, "").Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if !providers["transcription"] || calls.Load() != 2 {
		t.Errorf("providers=%v calls=%d", providers, calls.Load())
	}
}
