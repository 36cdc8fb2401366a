package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pingpong-ladder/internal/achievement"
	"github.com/mauv0809/pingpong-ladder/internal/club"
	"github.com/slack-go/slack"
)

// SlackFormatter renders slash command replies.
type SlackFormatter interface {
	FormatLeaderboardResponse(players []club.Player) (any, error)
	FormatPlayerStatsResponse(player *club.Player, unlocked []achievement.Unlocked) (any, error)
	FormatPlayerNotFoundResponse(query string) (any, error)
}

// respondWithSlackMsg is a helper to format and write a Slack message as an HTTP response.
func respondWithSlackMsg(w http.ResponseWriter, msg any) {
	slackMsg, ok := msg.(slack.Message)
	if !ok {
		http.Error(w, "Invalid message format for Slack", http.StatusInternalServerError)
		log.Error("Failed to cast message to slack.Message")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(slackMsg); err != nil {
		log.Error("Failed to encode slack message to JSON", "error", err)
	}
}

func LeaderboardCommandHandler(store club.ClubStore, formatter SlackFormatter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		players, err := store.GetLeaderboard(r.Context(), 10)
		if err != nil {
			http.Error(w, "Failed to get leaderboard", http.StatusInternalServerError)
			log.Error("Failed to get leaderboard from store", "error", err)
			return
		}

		msg, err := formatter.FormatLeaderboardResponse(players)
		if err != nil {
			http.Error(w, "Failed to format leaderboard", http.StatusInternalServerError)
			log.Error("Failed to format leaderboard", "error", err)
			return
		}
		respondWithSlackMsg(w, msg)
	}
}

func PlayerStatsCommandHandler(store club.ClubStore, achievements achievement.Store, formatter SlackFormatter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Error parsing form", http.StatusBadRequest)
			return
		}

		playerName := strings.TrimSpace(r.FormValue("text"))
		if playerName == "" {
			http.Error(w, "Player name is required.", http.StatusBadRequest)
			return
		}

		log.Info("Received player stats command", "player", playerName)
		var msg any
		player, err := store.FindPlayerByName(r.Context(), playerName)
		switch {
		case errors.Is(err, club.ErrPlayerNotFound):
			log.Warn("Could not find player", "player", playerName)
			msg, err = formatter.FormatPlayerNotFoundResponse(playerName)
		case err != nil:
			http.Error(w, "Failed to get player", http.StatusInternalServerError)
			log.Error("Failed to find player", "player", playerName, "error", err)
			return
		default:
			unlocked, lerr := achievements.ListForUser(r.Context(), player.ID)
			if lerr != nil {
				log.Warn("Failed to list achievements for stats", "playerID", player.ID, "error", lerr)
			}
			msg, err = formatter.FormatPlayerStatsResponse(player, unlocked)
		}

		if err != nil {
			http.Error(w, "Failed to format player stats", http.StatusInternalServerError)
			log.Error("Failed to format player stats", "error", err)
			return
		}
		respondWithSlackMsg(w, msg)
	}
}
