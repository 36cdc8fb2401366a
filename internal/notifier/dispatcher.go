package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/mauv0809/pingpong-ladder/internal/metrics"
	"github.com/mauv0809/pingpong-ladder/internal/pubsub"
	"github.com/mauv0809/pingpong-ladder/internal/push"
	"golang.org/x/sync/errgroup"
)

// maxParallelPushes bounds concurrent deliveries to one recipient's devices.
const maxParallelPushes = 4

// Dispatcher writes the in-app row for every event and fans it out to the
// realtime topic and the recipient's push subscriptions.
type Dispatcher struct {
	store     Store
	pusher    push.Sender
	publisher pubsub.PubSubClient
	metrics   metrics.Metrics
	now       func() time.Time
}

var _ Notifier = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher. pusher and publisher may be nil when
// web push or Pub/Sub are not configured.
func NewDispatcher(store Store, pusher push.Sender, publisher pubsub.PubSubClient, m metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		store:     store,
		pusher:    pusher,
		publisher: publisher,
		metrics:   m,
		now:       time.Now,
	}
}

// Notify records the event and delivers it. When Pub/Sub is configured push
// delivery happens in the subscriber that receives the published event;
// otherwise it happens inline.
func (d *Dispatcher) Notify(ctx context.Context, ev Event) {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = d.now()
	}
	logger := log.With("kind", ev.Kind, "matchID", ev.MatchID, "recipientID", ev.RecipientID)

	if err := d.store.AddPending(ctx, Pending{ID: uuid.NewString(), Event: ev}); err != nil {
		logger.Error("Failed to store in-app notification", "error", err)
		d.metrics.IncNotificationFailed(metrics.ChannelInApp)
	} else {
		d.metrics.IncNotificationSent(metrics.ChannelInApp)
	}

	if d.publisher != nil {
		err := d.publisher.SendMessage(ctx, pubsub.EventMatchNotification, ev)
		if err == nil {
			d.metrics.IncNotificationSent(metrics.ChannelPubSub)
			return
		}
		d.metrics.IncNotificationFailed(metrics.ChannelPubSub)
		logger.Warn("Failed to publish notification event, delivering push inline", "error", err)
	}
	d.DeliverPush(ctx, ev)
}

// DeliverPush sends the event to every enabled subscription of the recipient.
// Gone subscriptions are disabled; other failures are counted on the row.
func (d *Dispatcher) DeliverPush(ctx context.Context, ev Event) {
	if d.pusher == nil {
		return
	}
	logger := log.With("kind", ev.Kind, "matchID", ev.MatchID, "recipientID", ev.RecipientID)

	subs, err := d.store.ActiveSubscriptions(ctx, ev.RecipientID)
	if err != nil {
		logger.Error("Failed to load push subscriptions", "error", err)
		return
	}
	if len(subs) == 0 {
		logger.Debug("Recipient has no push subscriptions")
		return
	}

	payload, err := json.Marshal(BuildPayload(ev))
	if err != nil {
		logger.Error("Failed to encode push payload", "error", err)
		return
	}
	topic := pushTopic(ev.MatchID)

	var g errgroup.Group
	g.SetLimit(maxParallelPushes)
	for _, sub := range subs {
		g.Go(func() error {
			d.sendOne(ctx, sub, payload, topic)
			return nil
		})
	}
	_ = g.Wait()
}

func (d *Dispatcher) sendOne(ctx context.Context, sub Subscription, payload []byte, topic string) {
	err := d.pusher.Send(ctx, push.Target{Endpoint: sub.Endpoint, P256dh: sub.P256dh, Auth: sub.Auth}, payload, topic)
	if err == nil {
		d.metrics.IncNotificationSent(metrics.ChannelPush)
		return
	}
	d.metrics.IncNotificationFailed(metrics.ChannelPush)

	if errors.Is(err, push.ErrGone) {
		log.Info("Disabling gone push subscription", "subscriptionID", sub.ID, "userID", sub.UserID)
		if err := d.store.DisableSubscription(ctx, sub.ID, err.Error(), d.now()); err != nil {
			log.Error("Failed to disable push subscription", "subscriptionID", sub.ID, "error", err)
		}
		return
	}
	log.Warn("Push delivery failed", "subscriptionID", sub.ID, "error", err)
	if err := d.store.RecordFailure(ctx, sub.ID, err.Error()); err != nil {
		log.Error("Failed to record push failure", "subscriptionID", sub.ID, "error", err)
	}
}
