package notifier

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// ErrSubscriptionNotFound is returned for an unknown subscription id.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// NewStore creates a new notification Store.
func NewStore(db *sql.DB) Store {
	return &store{
		db: db,
	}
}

func (s *store) AddPending(ctx context.Context, p Pending) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_notifications (id, kind, match_id, actor_id, recipient_id, match_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Kind, p.MatchID, p.ActorID, p.RecipientID, p.MatchStatus, p.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert pending notification: %w", err)
	}
	return nil
}

func (s *store) ListPending(ctx context.Context, recipientID string, limit int) ([]Pending, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, match_id, actor_id, recipient_id, match_status, created_at
		FROM pending_notifications
		WHERE recipient_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, recipientID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	pending := []Pending{}
	for rows.Next() {
		var p Pending
		var createdAt int64
		if err := rows.Scan(&p.ID, &p.Kind, &p.MatchID, &p.ActorID, &p.RecipientID, &p.MatchStatus, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		p.CreatedAt = time.Unix(createdAt, 0)
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

func (s *store) PrunePendingBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM pending_notifications WHERE created_at < ?", before.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune notifications: %w", err)
	}
	return res.RowsAffected()
}

func (s *store) SaveSubscription(ctx context.Context, sub Subscription) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO push_subscriptions (id, user_id, endpoint, p256dh, auth, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(endpoint) DO UPDATE SET
			user_id = excluded.user_id,
			p256dh = excluded.p256dh,
			auth = excluded.auth,
			disabled = 0,
			failure_count = 0,
			last_error = NULL,
			disabled_at = NULL
	`, sub.ID, sub.UserID, sub.Endpoint, sub.P256dh, sub.Auth, sub.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save push subscription: %w", err)
	}
	log.Debug("Saved push subscription", "userID", sub.UserID)
	return nil
}

const subscriptionColumns = "id, user_id, endpoint, p256dh, auth, disabled, failure_count, last_error, disabled_at, created_at"

func (s *store) ActiveSubscriptions(ctx context.Context, userID string) ([]Subscription, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+subscriptionColumns+
		" FROM push_subscriptions WHERE user_id = ? AND disabled = 0 ORDER BY created_at", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query push subscriptions: %w", err)
	}
	defer rows.Close()

	subs := []Subscription{}
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan push subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

func (s *store) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	sub, err := scanSubscription(s.db.QueryRowContext(ctx, "SELECT "+subscriptionColumns+" FROM push_subscriptions WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to get push subscription: %w", err)
	}
	return sub, nil
}

func (s *store) DisableSubscription(ctx context.Context, id, reason string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE push_subscriptions SET disabled = 1, last_error = ?, disabled_at = ? WHERE id = ?
	`, reason, at.Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to disable push subscription: %w", err)
	}
	return nil
}

func (s *store) RecordFailure(ctx context.Context, id, reason string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE push_subscriptions SET failure_count = failure_count + 1, last_error = ? WHERE id = ?
	`, reason, id)
	if err != nil {
		return fmt.Errorf("failed to record push failure: %w", err)
	}
	return nil
}

func scanSubscription(scanner interface{ Scan(...any) error }) (*Subscription, error) {
	var sub Subscription
	var lastError sql.NullString
	var disabledAt sql.NullInt64
	var createdAt int64
	err := scanner.Scan(&sub.ID, &sub.UserID, &sub.Endpoint, &sub.P256dh, &sub.Auth, &sub.Disabled,
		&sub.FailureCount, &lastError, &disabledAt, &createdAt)
	if err != nil {
		return nil, err
	}
	sub.LastError = lastError.String
	if disabledAt.Valid {
		t := time.Unix(disabledAt.Int64, 0)
		sub.DisabledAt = &t
	}
	sub.CreatedAt = time.Unix(createdAt, 0)
	return &sub, nil
}
