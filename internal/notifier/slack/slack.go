package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pingpong-ladder/internal/achievement"
	"github.com/mauv0809/pingpong-ladder/internal/club"
	"github.com/mauv0809/pingpong-ladder/internal/match"
	"github.com/mauv0809/pingpong-ladder/internal/metrics"
	"github.com/mauv0809/pingpong-ladder/internal/settlement"
	"github.com/slack-go/slack"
)

// slackClient is an interface that contains the methods from the slack.Client that we use.
// This allows for easy mocking in tests.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

var _ settlement.Feed = &Notifier{}

// Notifier posts the club feed to a Slack channel.
type Notifier struct {
	api       slackClient
	channelID string
	metrics   metrics.Metrics
	dryRun    bool
}

// NewNotifier creates a new Notifier. With dryRun set messages are logged instead of posted.
func NewNotifier(token, channelID string, metrics metrics.Metrics, dryRun bool) *Notifier {
	api := slack.New(token)
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
		dryRun:    dryRun,
	}
}

// NewNotifierWithAPI creates a new Notifier with a specific slack.Client instance.
// Useful for tests that need to intercept API calls.
func NewNotifierWithAPI(api slackClient, channelID string, metrics metrics.Metrics) *Notifier {
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
	}
}

func (s *Notifier) sendMessage(ctx context.Context, message slack.Message) (string, string, error) {
	if s.dryRun {
		jsonMsg, _ := json.MarshalIndent(message, "", "  ")
		log.Info("[Dry Run] Would send Slack message", "channel", s.channelID, "message", string(jsonMsg))
		return "dry-run-channel", "dry-run-ts", nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	channelID, timestamp, err := s.api.PostMessageContext(
		ctx,
		s.channelID,
		slack.MsgOptionBlocks(message.Blocks.BlockSet...),
		slack.MsgOptionAsUser(true),
	)
	if err != nil {
		s.metrics.IncNotificationFailed(metrics.ChannelSlack)
		log.Error("Failed to send Slack message", "error", err, "channel", s.channelID)
		return "", "", fmt.Errorf("failed to post message: %w", err)
	}

	s.metrics.IncNotificationSent(metrics.ChannelSlack)
	log.Info("Successfully sent Slack message", "channel", channelID, "timestamp", timestamp)
	return channelID, timestamp, nil
}

// MatchValidated announces a settled result.
func (s *Notifier) MatchValidated(ctx context.Context, settled *match.Settled, winner, loser club.Player) error {
	_, _, err := s.sendMessage(ctx, s.formatResult(settled, winner, loser))
	return err
}

// AchievementsUnlocked announces what a member just unlocked.
func (s *Notifier) AchievementsUnlocked(ctx context.Context, player club.Player, unlocked []achievement.Unlocked) error {
	if len(unlocked) == 0 {
		return nil
	}
	_, _, err := s.sendMessage(ctx, s.formatAchievements(player, unlocked))
	return err
}

// FormatLeaderboardResponse formats a leaderboard message for a slash command response.
func (s *Notifier) FormatLeaderboardResponse(players []club.Player) (any, error) {
	return s.formatLeaderboard(players), nil
}

// FormatPlayerStatsResponse formats a single member's standing for a slash command response.
func (s *Notifier) FormatPlayerStatsResponse(player *club.Player, unlocked []achievement.Unlocked) (any, error) {
	return s.formatPlayerStats(player, unlocked), nil
}

// FormatPlayerNotFoundResponse formats a player not found message for a slash command response.
func (s *Notifier) FormatPlayerNotFoundResponse(query string) (any, error) {
	return s.formatPlayerNotFound(query), nil
}

func signed(delta int) string {
	return fmt.Sprintf("%+d", delta)
}

// formatResult creates the Slack message for a validated match using Block Kit.
func (s *Notifier) formatResult(settled *match.Settled, winner, loser club.Player) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", "🏓 Partida validada! 🏓", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	score := settled.Match.ScoreFor(settled.Winner.ID)
	resultText := fmt.Sprintf("*%s* venceu *%s* por %s 🏆", name(winner, settled.Winner.ID), name(loser, settled.Loser.ID), score)
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", resultText, false, false), nil, nil))

	fields := []*slack.TextBlockObject{
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*%s*\n%d (%s)", name(winner, settled.Winner.ID),
			settled.Winner.Rating, signed(settled.Winner.AppliedChange)), false, false),
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*%s*\n%d (%s)", name(loser, settled.Loser.ID),
			settled.Loser.Rating, signed(settled.Loser.AppliedChange)), false, false),
	}
	blocks = append(blocks, slack.NewSectionBlock(nil, fields, nil))

	if settled.Winner.WinStreak >= 3 {
		streakText := fmt.Sprintf("🔥 %s está com %d vitórias seguidas!", name(winner, settled.Winner.ID), settled.Winner.WinStreak)
		blocks = append(blocks, slack.NewContextBlock("", slack.NewTextBlockObject("plain_text", streakText, true, false)))
	}

	return slack.NewBlockMessage(blocks...)
}

func (s *Notifier) formatAchievements(player club.Player, unlocked []achievement.Unlocked) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := fmt.Sprintf("🎖️ %s desbloqueou conquistas!", name(player, player.ID))
	blocks = append(blocks, slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", headerText, true, false)))

	lines := make([]string, 0, len(unlocked))
	for _, u := range unlocked {
		lines = append(lines, fmt.Sprintf("• *%s* (%s): %s", u.Name, u.Rarity, u.Description))
	}
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", strings.Join(lines, "\n"), false, false), nil, nil))

	return slack.NewBlockMessage(blocks...)
}

// formatLeaderboard creates a Slack message to display the rating leaderboard.
func (s *Notifier) formatLeaderboard(players []club.Player) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", "🏆 Ranking do clube 🏆", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	if len(players) == 0 {
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", "Nenhuma partida validada ainda. Bora jogar!", true, false), nil, nil))
		return slack.NewBlockMessage(blocks...)
	}

	for i, player := range players {
		rank := i + 1
		var medal string
		switch rank {
		case 1:
			medal = "🥇"
		case 2:
			medal = "🥈"
		case 3:
			medal = "🥉"
		}

		playerText := fmt.Sprintf("%d. %s %s\n> *Rating*: %d | *Vitórias*: %.0f%% (%d/%d)",
			rank,
			medal,
			player.Name,
			player.Rating,
			player.WinPercentage(),
			player.Wins,
			player.GamesPlayed,
		)
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", playerText, false, false), nil, nil))
	}

	return slack.NewBlockMessage(blocks...)
}

// formatPlayerStats creates a Slack message to display a single member's stats.
func (s *Notifier) formatPlayerStats(player *club.Player, unlocked []achievement.Unlocked) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := fmt.Sprintf("🏓 %s", player.Name)
	blocks = append(blocks, slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", headerText, true, false)))

	playerText := fmt.Sprintf("> *Rating*: %d\n> *Vitórias*: %d | *Derrotas*: %d\n> *Sequência*: %d (melhor %d)\n> *Conquistas*: %d",
		player.Rating,
		player.Wins,
		player.Losses,
		player.WinStreak,
		player.BestStreak,
		len(unlocked),
	)
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", playerText, false, false), nil, nil))

	return slack.NewBlockMessage(blocks...)
}

// formatPlayerNotFound creates a Slack message for when a member is not found.
func (s *Notifier) formatPlayerNotFound(query string) slack.Message {
	text := fmt.Sprintf("Não encontrei nenhum jogador *%s*. Tente outro nome.", query)
	return slack.NewBlockMessage(
		slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", text, false, false), nil, nil),
	)
}

func name(p club.Player, fallback string) string {
	if p.Name != "" {
		return p.Name
	}
	return fallback
}
