package settlement

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/mauv0809/pingpong-ladder/internal/achievement"
	"github.com/mauv0809/pingpong-ladder/internal/club"
	"github.com/mauv0809/pingpong-ladder/internal/match"
	"github.com/mauv0809/pingpong-ladder/internal/metrics"
	"github.com/mauv0809/pingpong-ladder/internal/notifier"
	"github.com/mauv0809/pingpong-ladder/internal/rating"
)

// New creates a new settlement Service. feed may be nil.
func New(clubStore club.ClubStore, matches match.MatchStore, quota match.QuotaStore, achievements achievement.Evaluator,
	n notifier.Notifier, feed Feed, m metrics.Metrics, opts Options) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.BackgroundTimeout <= 0 {
		opts.BackgroundTimeout = DefaultBackgroundTimeout
	}
	if opts.AchievementTimeout <= 0 {
		opts.AchievementTimeout = DefaultAchievementTimeout
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Service{
		club:         clubStore,
		matches:      matches,
		quota:        quota,
		achievements: achievements,
		notifier:     n,
		feed:         feed,
		metrics:      m,
		opts:         opts,
		now:          time.Now,
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Register records a result reported by playerID against opponentID. The
// outcome is written from the registrant's side: "3x1" means playerID won 3 to 1.
func (s *Service) Register(ctx context.Context, playerID, opponentID, rawOutcome string) (*RegisterResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	playerID, opponentID = strings.TrimSpace(playerID), strings.TrimSpace(opponentID)
	if playerID == "" || opponentID == "" {
		return nil, newError(CodeInvalidInput, "player and opponent are required", nil)
	}
	if playerID == opponentID {
		return nil, ErrSamePlayer
	}
	outcome, err := match.ParseOutcome(rawOutcome)
	if err != nil {
		return nil, newError(CodeInvalidInput, "outcome must look like 3x1", err)
	}

	players, err := s.club.GetPlayers(ctx, []string{playerID, opponentID})
	if err != nil {
		return nil, internal("failed to load players", err)
	}
	if len(players) != 2 {
		return nil, newError(CodeNotFound, "player not found", nil)
	}

	limit, err := s.club.GetIntSetting(ctx, club.SettingDailyMatchLimit, defaultDailyLimit)
	if err != nil {
		return nil, internal("failed to read daily match limit", err)
	}
	now := s.now()
	day := now.In(s.opts.Location).Format(time.DateOnly)
	if err := s.quota.Reserve(ctx, playerID, opponentID, day, limit); err != nil {
		if errors.Is(err, match.ErrQuotaExceeded) {
			s.metrics.IncQuotaRejections()
			return nil, ErrQuotaExceeded
		}
		return nil, internal("failed to reserve daily quota", err)
	}

	m := &match.Match{
		ID:        uuid.NewString(),
		PlayerA:   playerID,
		PlayerB:   opponentID,
		WinnerID:  outcome.Winner(playerID, opponentID),
		ScoreA:    outcome.ScoreA,
		ScoreB:    outcome.ScoreB,
		Status:    match.StatusPending,
		CreatedBy: playerID,
		CreatedAt: now,
	}
	if err := s.matches.Create(ctx, m); err != nil {
		if rerr := s.quota.Release(context.WithoutCancel(ctx), playerID, opponentID, day); rerr != nil {
			log.Error("Failed to release quota slot", "playerID", playerID, "opponentID", opponentID, "day", day, "error", rerr)
		}
		return nil, internal("failed to create match", err)
	}
	s.metrics.IncMatchesRegistered()

	ev := notifier.Event{Kind: notifier.KindPendingCreated, MatchID: m.ID, ActorID: playerID,
		RecipientID: opponentID, MatchStatus: m.Status, CreatedAt: now}
	s.detach(ctx, "notify-created", func(ctx context.Context) {
		s.notifier.Notify(ctx, ev)
	})

	return &RegisterResult{MatchID: m.ID, Match: m}, nil
}

// Contest replaces the score of an open match. The new outcome is in slot
// order (player A's points first) and the match goes back to the other
// participant for confirmation.
func (s *Service) Contest(ctx context.Context, matchID, userID, rawOutcome string) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	outcome, err := match.ParseOutcome(rawOutcome)
	if err != nil {
		return newError(CodeInvalidInput, "outcome must look like 3x1", err)
	}
	m, err := s.matches.Get(ctx, matchID)
	if err != nil {
		if errors.Is(err, match.ErrMatchNotFound) {
			return newError(CodeNotFound, "match not found", nil)
		}
		return internal("failed to load match", err)
	}
	if !m.IsParticipant(userID) {
		return ErrNotParticipant
	}
	if err := terminalError(m.Status); err != nil {
		return err
	}

	now := s.now()
	if err := s.matches.Contest(ctx, matchID, userID, outcome, now); err != nil {
		if errors.Is(err, match.ErrStatusChanged) {
			s.metrics.IncSettlementConflicts()
			return ErrMatchAlreadyProcessed
		}
		return internal("failed to contest match", err)
	}
	s.metrics.IncMatchesContested()
	log.Info("Match handed back for confirmation", "matchID", matchID, "by", userID, "score", outcome.String())

	ev := notifier.Event{Kind: notifier.KindPendingTransferred, MatchID: matchID, ActorID: userID,
		RecipientID: m.Opponent(userID), MatchStatus: match.StatusEdited, CreatedAt: now}
	s.detach(ctx, "notify-transferred", func(ctx context.Context) {
		s.notifier.Notify(ctx, ev)
	})
	return nil
}

// Confirm validates an open match and applies the rating change exactly once.
// Losing a race against another confirm, contest or cancel yields
// ErrMatchAlreadyProcessed with nothing written.
func (s *Service) Confirm(ctx context.Context, matchID, userID string) (*ConfirmResult, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveSettlementDuration(time.Since(start).Seconds())
	}()
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	m, err := s.matches.GetOpen(ctx, matchID)
	if err != nil {
		if errors.Is(err, match.ErrMatchNotFound) {
			return nil, s.classifyClosed(ctx, matchID)
		}
		return nil, internal("failed to load match", err)
	}
	if !m.IsParticipant(userID) {
		return nil, ErrNotParticipant
	}
	if err := m.Validate(); err != nil {
		return nil, newError(CodeInconsistentMatch, "declared winner does not match the score", err)
	}

	inputs, err := s.club.GetRatingInputs(ctx, m.WinnerID, m.LoserID())
	if err != nil {
		if errors.Is(err, club.ErrPlayerNotFound) {
			return nil, newError(CodeNotFound, "participant not found", err)
		}
		return nil, internal("failed to read ratings", err)
	}
	if !rating.ValidFactor(inputs.KFactor) {
		log.Error("Refusing to settle with invalid rating factor", "matchID", matchID, "k", inputs.KFactor)
		return nil, ErrInvalidKFactor
	}
	deltas := rating.Calculate(inputs.PlayerA.Rating, inputs.PlayerB.Rating, inputs.KFactor)

	settled, err := s.matches.Settle(ctx, match.Settlement{
		MatchID:    matchID,
		ApprovedBy: userID,
		Expected:   *m,
		Deltas:     deltas,
		KFactor:    inputs.KFactor,
		At:         s.now(),
	})
	if err != nil {
		if errors.Is(err, match.ErrStatusChanged) {
			s.metrics.IncSettlementConflicts()
			log.Info("Confirm lost a race", "matchID", matchID, "userID", userID)
			return nil, ErrMatchAlreadyProcessed
		}
		return nil, internal("failed to settle match", err)
	}
	s.metrics.IncMatchesValidated()

	actor, opponent := settled.Winner, settled.Loser
	if userID != settled.Winner.ID {
		actor, opponent = settled.Loser, settled.Winner
	}

	actx, acancel := context.WithTimeout(ctx, s.opts.AchievementTimeout)
	unlocked := s.achievements.Evaluate(actx, achievementContext(settled, actor, opponent))
	acancel()

	players := map[string]club.Player{
		inputs.PlayerA.ID: inputs.PlayerA,
		inputs.PlayerB.ID: inputs.PlayerB,
	}
	s.detach(ctx, "post-settlement", func(ctx context.Context) {
		opponentUnlocked := s.achievements.Evaluate(ctx, achievementContext(settled, opponent, actor))
		s.notifier.Notify(ctx, notifier.Event{Kind: notifier.KindPendingResolved, MatchID: matchID, ActorID: userID,
			RecipientID: opponent.ID, MatchStatus: match.StatusValidated, CreatedAt: settled.Match.UpdatedAt})
		s.announce(ctx, settled, players, map[string][]achievement.Unlocked{
			actor.ID:    unlocked,
			opponent.ID: opponentUnlocked,
		})
	})

	return &ConfirmResult{
		Match:    settled.Match,
		Winner:   settled.Winner,
		Loser:    settled.Loser,
		Unlocked: unlocked,
	}, nil
}

// Cancel moves a match to cancelado. A validated match has its rating effect reversed.
func (s *Service) Cancel(ctx context.Context, matchID, adminID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	m, err := s.matches.Get(ctx, matchID)
	if err != nil {
		if errors.Is(err, match.ErrMatchNotFound) {
			return newError(CodeNotFound, "match not found", nil)
		}
		return internal("failed to load match", err)
	}
	if m.Status == match.StatusCanceled {
		return ErrAlreadyCanceled
	}

	reversed, err := s.matches.Cancel(ctx, matchID, adminID, s.now())
	if err != nil {
		if errors.Is(err, match.ErrStatusChanged) {
			s.metrics.IncSettlementConflicts()
			return s.classifyClosed(ctx, matchID)
		}
		return internal("failed to cancel match", err)
	}
	s.metrics.IncMatchesCanceled()
	log.Info("Match canceled", "matchID", matchID, "by", adminID, "reversed", reversed)
	return nil
}

// Wait blocks until detached post-processing has finished or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// classifyClosed explains why a match was not open.
func (s *Service) classifyClosed(ctx context.Context, matchID string) error {
	m, err := s.matches.Get(ctx, matchID)
	if err != nil {
		if errors.Is(err, match.ErrMatchNotFound) {
			return newError(CodeNotFound, "match not found", nil)
		}
		return internal("failed to load match", err)
	}
	if err := terminalError(m.Status); err != nil {
		return err
	}
	return ErrMatchAlreadyProcessed
}

func terminalError(status match.Status) error {
	switch status {
	case match.StatusValidated:
		return ErrAlreadyValidated
	case match.StatusCanceled:
		return ErrAlreadyCanceled
	}
	return nil
}

func achievementContext(settled *match.Settled, self, other match.PlayerState) achievement.Context {
	return achievement.Context{
		UserID:         self.ID,
		Wins:           self.Wins,
		Losses:         self.Losses,
		GamesPlayed:    self.GamesPlayed,
		Rating:         self.Rating,
		WinStreak:      self.WinStreak,
		HasMatch:       true,
		MatchID:        settled.Match.ID,
		IsWinner:       self.ID == settled.Match.WinnerID,
		RatingBefore:   self.RatingBefore,
		OpponentRating: other.RatingBefore,
		Score:          settled.Match.ScoreFor(self.ID),
	}
}

func (s *Service) announce(ctx context.Context, settled *match.Settled, players map[string]club.Player, unlocked map[string][]achievement.Unlocked) {
	if s.feed == nil {
		return
	}
	if err := s.feed.MatchValidated(ctx, settled, players[settled.Winner.ID], players[settled.Loser.ID]); err != nil {
		log.Warn("Failed to announce result", "matchID", settled.Match.ID, "error", err)
	}
	for id, list := range unlocked {
		if len(list) == 0 {
			continue
		}
		if err := s.feed.AchievementsUnlocked(ctx, players[id], list); err != nil {
			log.Warn("Failed to announce achievements", "userID", id, "error", err)
		}
	}
}

// detach runs fn after the caller has returned, on a context that survives
// the request but carries its own deadline.
func (s *Service) detach(parent context.Context, task string, fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error("Detached task panicked", "task", task, "panic", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), s.opts.BackgroundTimeout)
		defer cancel()
		fn(ctx)
	}()
}
