package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/mauv0809/pingpong-ladder/internal/notifier"
)

// subscriptionRequest mirrors the browser's PushSubscription.toJSON().
type subscriptionRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// SaveSubscriptionHandler stores a push subscription for the caller.
func SaveSubscriptionHandler(store notifier.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req subscriptionRequest
		if err := decodeBody(w, r, &req); err != nil {
			badRequest(w, "body must be a push subscription")
			return
		}
		if !strings.HasPrefix(req.Endpoint, "https://") || req.Keys.P256dh == "" || req.Keys.Auth == "" {
			badRequest(w, "endpoint and keys are required")
			return
		}
		sub := notifier.Subscription{
			ID:        uuid.NewString(),
			UserID:    UserIDFromContext(r),
			Endpoint:  req.Endpoint,
			P256dh:    req.Keys.P256dh,
			Auth:      req.Keys.Auth,
			CreatedAt: time.Now(),
		}
		if err := store.SaveSubscription(r.Context(), sub); err != nil {
			log.Error("Failed to save push subscription", "userID", sub.UserID, "error", err)
			respondError(w, err)
			return
		}
		log.Info("Saved push subscription", "userID", sub.UserID)
		respondJSON(w, http.StatusCreated, struct{}{})
	}
}
