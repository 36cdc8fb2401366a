package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pingpong-ladder/internal/achievement"
	"github.com/mauv0809/pingpong-ladder/internal/match"
	"github.com/mauv0809/pingpong-ladder/internal/settlement"
)

// Settler runs the settlement protocol.
type Settler interface {
	Register(ctx context.Context, playerID, opponentID, rawOutcome string) (*settlement.RegisterResult, error)
	Contest(ctx context.Context, matchID, userID, rawOutcome string) error
	Confirm(ctx context.Context, matchID, userID string) (*settlement.ConfirmResult, error)
	Cancel(ctx context.Context, matchID, adminID string) error
}

type registerRequest struct {
	OpponentID string `json:"opponent_id"`
	Outcome    string `json:"outcome"`
}

type registerResponse struct {
	MatchID string `json:"match_id"`
}

type contestRequest struct {
	Outcome string `json:"outcome"`
}

type confirmResponse struct {
	Unlocked []achievement.Unlocked `json:"unlocked_achievements"`
	Winner   match.PlayerState      `json:"winner"`
	Loser    match.PlayerState      `json:"loser"`
}

// RegisterMatchHandler reports a new result on behalf of the caller.
func RegisterMatchHandler(svc Settler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := decodeBody(w, r, &req); err != nil {
			badRequest(w, "body must be {opponent_id, outcome}")
			return
		}
		userID := UserIDFromContext(r)
		res, err := svc.Register(r.Context(), userID, req.OpponentID, req.Outcome)
		if err != nil {
			respondError(w, err)
			return
		}
		log.Info("Match registered", "matchID", res.MatchID, "by", userID, "opponent", req.OpponentID)
		respondJSON(w, http.StatusCreated, registerResponse{MatchID: res.MatchID})
	}
}

// ContestMatchHandler replaces the score of an open match.
func ContestMatchHandler(svc Settler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req contestRequest
		if err := decodeBody(w, r, &req); err != nil {
			badRequest(w, "body must be {outcome}")
			return
		}
		if err := svc.Contest(r.Context(), r.PathValue("id"), UserIDFromContext(r), req.Outcome); err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, struct{}{})
	}
}

// ConfirmMatchHandler validates an open match and returns what the caller unlocked.
func ConfirmMatchHandler(svc Settler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.Confirm(r.Context(), r.PathValue("id"), UserIDFromContext(r))
		if err != nil {
			respondError(w, err)
			return
		}
		unlocked := res.Unlocked
		if unlocked == nil {
			unlocked = []achievement.Unlocked{}
		}
		respondJSON(w, http.StatusOK, confirmResponse{Unlocked: unlocked, Winner: res.Winner, Loser: res.Loser})
	}
}

// CancelMatchHandler cancels a match. Routed behind the admin token.
func CancelMatchHandler(svc Settler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID := UserIDFromContext(r)
		if adminID == "" {
			adminID = "admin"
		}
		if IsDryRunFromContext(r) {
			log.Info("[Dry Run] Would cancel match", "matchID", r.PathValue("id"), "by", adminID)
			respondJSON(w, http.StatusOK, struct{}{})
			return
		}
		if err := svc.Cancel(r.Context(), r.PathValue("id"), adminID); err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, struct{}{})
	}
}

// GetMatchHandler returns a single match.
func GetMatchHandler(matches match.MatchStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := matches.Get(r.Context(), r.PathValue("id"))
		if err != nil {
			if errors.Is(err, match.ErrMatchNotFound) {
				respondError(w, &settlement.Error{Code: settlement.CodeNotFound, Message: "match not found"})
				return
			}
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, m)
	}
}

// ListPlayerMatchesHandler returns the latest matches of a member.
func ListPlayerMatchesHandler(matches match.MatchStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := matches.ListForPlayer(r.Context(), r.PathValue("id"), queryInt(r, "limit", 50))
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}
