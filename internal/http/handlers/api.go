package handlers

import (
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pingpong-ladder/internal/achievement"
	"github.com/mauv0809/pingpong-ladder/internal/club"
	"github.com/mauv0809/pingpong-ladder/internal/notifier"
	"github.com/mauv0809/pingpong-ladder/internal/rating"
)

func LeaderboardHandler(store club.ClubStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		players, err := store.GetLeaderboard(r.Context(), queryInt(r, "limit", 0))
		if err != nil {
			log.Error("Failed to get leaderboard from store", "error", err)
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, players)
	}
}

// PlayerAchievementsHandler lists what a member has unlocked, newest first.
func PlayerAchievementsHandler(store achievement.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		unlocked, err := store.ListForUser(r.Context(), r.PathValue("id"))
		if err != nil {
			log.Error("Failed to list achievements", "userID", r.PathValue("id"), "error", err)
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, unlocked)
	}
}

// ListNotificationsHandler returns the caller's in-app notifications.
func ListNotificationsHandler(store notifier.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pending, err := store.ListPending(r.Context(), UserIDFromContext(r), queryInt(r, "limit", 20))
		if err != nil {
			log.Error("Failed to list notifications", "error", err)
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, pending)
	}
}

type settingRequest struct {
	Key   string `json:"key"`
	Value int    `json:"value"`
}

// UpdateSettingHandler changes the K-factor or the daily match limit.
func UpdateSettingHandler(store club.ClubStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req settingRequest
		if err := decodeBody(w, r, &req); err != nil {
			badRequest(w, "body must be {key, value}")
			return
		}
		switch req.Key {
		case club.SettingKFactor:
			if !rating.ValidFactor(req.Value) {
				badRequest(w, "rating factor out of range")
				return
			}
		case club.SettingDailyMatchLimit:
			if req.Value < 0 {
				badRequest(w, "daily match limit cannot be negative")
				return
			}
		default:
			badRequest(w, "unknown setting")
			return
		}
		if err := store.SetSetting(r.Context(), req.Key, strconv.Itoa(req.Value)); err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, req)
	}
}
