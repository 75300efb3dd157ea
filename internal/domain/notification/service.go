package notification

import (
	"context"
)

// Publisher delivers a batch of events.
type Publisher interface {
	Publish(ctx context.Context, events []Event) error
	Close() error
}

// Service defines the notification service interface. Queue never blocks
// the caller on delivery.
type Service interface {
	Queue(ctx context.Context, event Event) error

	// Lifecycle
	Stop()
}
