package application

import "voice-journal/internal/domain"

type EventPublisher interface {
	Publish(event domain.Event)
}

type NoopPublisher struct{}

func (n *NoopPublisher) Publish(_ domain.Event) {}
