package pushover_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"voice-journal/internal/infra/pushover"
)

func TestClient_Notify(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages.json" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		r.ParseForm()
		got = map[string]string{
			"token":   r.PostForm.Get("token"),
			"user":    r.PostForm.Get("user"),
			"message": r.PostForm.Get("message"),
			"title":   r.PostForm.Get("title"),
		}
		w.Write([]byte(`{"status":1}`))
	}))
	defer server.Close()

	client := pushover.NewClientWithURL("tok", "usr", server.URL)

	if err := client.Notify(context.Background(), "Payment failed"); err != nil {
		t.Fatalf("Notify error: %v", err)
	}
	if got["token"] != "tok" || got["user"] != "usr" || got["message"] != "Payment failed" {
		t.Errorf("form: got %v", got)
	}
	if got["title"] != "Voice Journal" {
		t.Errorf("title: got %q", got["title"])
	}
}

func TestClient_Notify_Unconfigured(t *testing.T) {
	client := pushover.NewClientWithURL("", "", "http://127.0.0.1:1")

	if err := client.Notify(context.Background(), "ignored"); err != nil {
		t.Errorf("unconfigured client should be a no-op, got %v", err)
	}
}
