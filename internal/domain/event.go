package domain

import "time"

type EventType string

const (
	EventThoughtCreated EventType = "thought.created"
	EventThoughtDeleted EventType = "thought.deleted"
	EventProfileUpdated EventType = "profile.updated"
)

type Event struct {
	Type      EventType `json:"type"`
	UserID    string    `json:"-"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
