package ws_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"voice-journal/internal/domain"
	"voice-journal/internal/infra/ws"
)

func TestHub_PublishToUser(t *testing.T) {
	hub := ws.NewHub(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, r.URL.Query().Get("user"))
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	alice, _, err := websocket.DefaultDialer.Dial(wsURL+"?user=alice", nil)
	if err != nil {
		t.Fatalf("dial alice: %v", err)
	}
	defer alice.Close()
	bob, _, err := websocket.DefaultDialer.Dial(wsURL+"?user=bob", nil)
	if err != nil {
		t.Fatalf("dial bob: %v", err)
	}
	defer bob.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Connections("alice") == 0 || hub.Connections("bob") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("clients never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Publish(domain.Event{
		Type:      domain.EventThoughtCreated,
		UserID:    "alice",
		Payload:   map[string]string{"id": "t1"},
		Timestamp: time.Now(),
	})

	_ = alice.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := alice.ReadMessage()
	if err != nil {
		t.Fatalf("alice read: %v", err)
	}

	var got struct {
		Type    string            `json:"type"`
		UserID  string            `json:"user_id"`
		Payload map[string]string `json:"payload"`
	}
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatalf("decoding event: %v", err)
	}
	if got.Type != "thought.created" || got.Payload["id"] != "t1" {
		t.Errorf("event: %s", msg)
	}
	if got.UserID != "" {
		t.Error("user id should not be sent over the wire")
	}

	_ = bob.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := bob.ReadMessage(); err == nil {
		t.Error("bob should not receive alice's events")
	}
}

func TestHub_UnregisterOnClose(t *testing.T) {
	hub := ws.NewHub([]string{"https://app.example"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, "alice")
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	header := http.Header{"Origin": []string{"https://evil.example"}}
	if _, _, err := websocket.DefaultDialer.Dial(wsURL, header); err == nil {
		t.Error("disallowed origin should be rejected")
	}

	header = http.Header{"Origin": []string{"https://app.example"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.Connections("alice") != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	conn.Close()

	deadline = time.Now().Add(2 * time.Second)
	for hub.Connections("alice") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never unregistered")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
