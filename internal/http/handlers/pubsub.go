package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pingpong-ladder/internal/notifier"
	"github.com/mauv0809/pingpong-ladder/internal/pubsub"
)

// PushDeliverer sends a notification event to the recipient's browsers.
type PushDeliverer interface {
	DeliverPush(ctx context.Context, ev notifier.Event)
}

// pushEnvelope is the body Pub/Sub posts to a push subscription endpoint.
type pushEnvelope struct {
	Subscription string `json:"subscription"`
	Message      struct {
		Data       string            `json:"data"`
		Attributes map[string]string `json:"attributes"`
		MessageID  string            `json:"messageId"`
	} `json:"message"`
}

// NotificationEventHandler receives published notification events and
// delivers them as web push. Events of other types are acknowledged and dropped.
func NotificationEventHandler(deliverer PushDeliverer, pubsubClient pubsub.PubSubClient) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if pubsubClient == nil {
			http.Error(w, "Pub/Sub is not configured", http.StatusServiceUnavailable)
			return
		}
		bodyBytes, err := io.ReadAll(r.Body)
		if err != nil {
			log.Error("Failed to read request body", "error", err)
			http.Error(w, "Failed to read request body", http.StatusInternalServerError)
			return
		}
		log.Debug("Received notification event", "body", string(bodyBytes))

		var envelope pushEnvelope
		if err := json.Unmarshal(bodyBytes, &envelope); err != nil {
			log.Error("Failed to unmarshal wrapper JSON", "error", err)
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}

		if event := envelope.Message.Attributes[pubsub.AttributeEvent]; event != string(pubsub.EventMatchNotification) {
			log.Warn("Ignoring unexpected event type", "event", event, "messageID", envelope.Message.MessageID)
			w.Write([]byte("OK"))
			return
		}

		rawData, err := base64.StdEncoding.DecodeString(envelope.Message.Data)
		if err != nil {
			log.Error("Failed to decode base64 data", "error", err)
			http.Error(w, "Invalid base64 data", http.StatusBadRequest)
			return
		}

		var ev notifier.Event
		if err := pubsubClient.ProcessMessage(rawData, &ev); err != nil {
			log.Error("Failed to decode notification event", "messageID", envelope.Message.MessageID, "error", err)
			http.Error(w, "Invalid event payload", http.StatusBadRequest)
			return
		}

		if IsDryRunFromContext(r) {
			log.Info("[Dry Run] Would deliver push", "matchID", ev.MatchID, "recipientID", ev.RecipientID)
		} else {
			deliverer.DeliverPush(r.Context(), ev)
		}
		w.Write([]byte("OK"))
	}
}
