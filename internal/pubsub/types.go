package pubsub

import "cloud.google.com/go/pubsub"

type client struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// EventType represents the type of event/message sent via pubsub.
// It travels as the "event" attribute of each message.
type EventType string

const (
	EventMatchNotification EventType = "match-notification"
)

// AttributeEvent is the message attribute carrying the EventType.
const AttributeEvent = "event"
