package notifier

import (
	"context"
	"time"
)

// Notifier delivers match events. Delivery is best effort and never fails the caller.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// Store defines the persistence of in-app notifications and push subscriptions.
type Store interface {
	AddPending(ctx context.Context, p Pending) error
	ListPending(ctx context.Context, recipientID string, limit int) ([]Pending, error)
	PrunePendingBefore(ctx context.Context, before time.Time) (int64, error)

	// SaveSubscription upserts by endpoint and re-enables a disabled row.
	SaveSubscription(ctx context.Context, sub Subscription) error
	ActiveSubscriptions(ctx context.Context, userID string) ([]Subscription, error)
	GetSubscription(ctx context.Context, id string) (*Subscription, error)
	DisableSubscription(ctx context.Context, id, reason string, at time.Time) error
	RecordFailure(ctx context.Context, id, reason string) error
}
