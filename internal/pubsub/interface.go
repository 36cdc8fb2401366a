package pubsub

import "context"

// PubSubClient publishes realtime match events and decodes pushed ones.
type PubSubClient interface {
	SendMessage(ctx context.Context, event EventType, data any) error
	ProcessMessage(data []byte, returnValue any) error
	Close() error
}
