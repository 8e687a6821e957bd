// Package service holds the application's use cases on top of the repositories.
package service

import (
	"context"

	"pipal/internal/notifications"
)

// Publisher delivers events to topic subscribers. Publishing never fails from
// the caller's point of view.
type Publisher interface {
	Publish(ctx context.Context, topic string, event notifications.Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, notifications.Event) {}

func publisherOrNoop(p Publisher) Publisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}
