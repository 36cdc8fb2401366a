package push

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/charmbracelet/log"
)

// ErrGone means the push service no longer knows the subscription. The
// subscription should not be used again.
var ErrGone = errors.New("push subscription is gone")

// Target is the browser endpoint and keys a message is encrypted for.
type Target struct {
	Endpoint string
	P256dh   string
	Auth     string
}

// Sender delivers one encrypted payload to one subscription.
type Sender interface {
	Send(ctx context.Context, target Target, payload []byte, topic string) error
}

// Options holds the VAPID identity.
type Options struct {
	Subscriber      string
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	TTL             int
}

type sender struct {
	opts   Options
	client *http.Client
}

// New creates a VAPID web push Sender.
func New(opts Options) Sender {
	if opts.TTL <= 0 {
		opts.TTL = 3600
	}
	return &sender{
		opts:   opts,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send returns ErrGone for 404 and 410 responses, and a plain error for any
// other non-2xx status.
func (s *sender) Send(ctx context.Context, target Target, payload []byte, topic string) error {
	sub := &webpush.Subscription{
		Endpoint: target.Endpoint,
		Keys: webpush.Keys{
			Auth:   target.Auth,
			P256dh: target.P256dh,
		},
	}
	resp, err := webpush.SendNotificationWithContext(ctx, payload, sub, &webpush.Options{
		HTTPClient:      s.client,
		Subscriber:      s.opts.Subscriber,
		VAPIDPublicKey:  s.opts.VAPIDPublicKey,
		VAPIDPrivateKey: s.opts.VAPIDPrivateKey,
		TTL:             s.opts.TTL,
		Topic:           topic,
		Urgency:         webpush.UrgencyNormal,
	})
	if err != nil {
		return fmt.Errorf("failed to send push: %w", err)
	}
	defer resp.Body.Close()
	return classify(resp)
}

func classify(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%w: status %d", ErrGone, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Debug("Push service rejected message", "status", resp.StatusCode, "body", string(body))
		return fmt.Errorf("push service responded with status %d", resp.StatusCode)
	}
	return nil
}
