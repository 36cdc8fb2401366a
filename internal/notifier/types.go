package notifier

import (
	"database/sql"
	"time"

	"github.com/mauv0809/pingpong-ladder/internal/match"
)

// Kind says why a member is being told about a match.
type Kind string

const (
	// KindPendingCreated goes to the opponent of a newly registered match.
	KindPendingCreated Kind = "pending_created"
	// KindPendingTransferred goes to the other participant after a contest.
	KindPendingTransferred Kind = "pending_transferred"
	// KindPendingResolved goes to the other participant once the match is validated.
	KindPendingResolved Kind = "pending_resolved"
)

// store handles the notification and subscription tables.
type store struct {
	db *sql.DB
}

// Event is one notification to one recipient.
type Event struct {
	Kind        Kind         `json:"kind" msgpack:"kind"`
	MatchID     string       `json:"match_id" msgpack:"match_id"`
	ActorID     string       `json:"actor_id" msgpack:"actor_id"`
	RecipientID string       `json:"recipient_id" msgpack:"recipient_id"`
	MatchStatus match.Status `json:"match_status" msgpack:"match_status"`
	CreatedAt   time.Time    `json:"created_at" msgpack:"created_at"`
}

// Pending is the stored in-app notification row.
type Pending struct {
	ID string `json:"id"`
	Event
}

// Subscription is a browser push subscription of a member.
type Subscription struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Endpoint     string     `json:"endpoint"`
	P256dh       string     `json:"p256dh"`
	Auth         string     `json:"auth"`
	Disabled     bool       `json:"disabled"`
	FailureCount int        `json:"failure_count"`
	LastError    string     `json:"last_error,omitempty"`
	DisabledAt   *time.Time `json:"disabled_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Payload is the JSON body a service worker receives.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
	Tag   string `json:"tag"`
}
