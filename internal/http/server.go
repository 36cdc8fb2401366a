package http

import (
	"net/http"

	"github.com/mauv0809/pingpong-ladder/internal/http/handlers"
)

func NewServer(deps Dependencies) *Server {
	server := &Server{
		deps:   deps,
		Router: http.NewServeMux(),
	}

	server.routes()
	return server
}

func (s *Server) routes() {
	// All handlers are wrapped with middleware using the Chain helper.
	// e.g. Chain(s.MyHandler(), paramsMiddleware, authMiddleware)
	d := s.deps
	member := []Middleware{paramsMiddleware, userMiddleware}
	admin := []Middleware{paramsMiddleware, adminMiddleware(d.Cfg.AdminToken)}
	slackCmd := []Middleware{paramsMiddleware, slackVerifyMiddleware(d.Cfg.Slack.SigningSecret)}

	s.Router.Handle("GET /metrics", d.MetricsHandler)
	s.Router.Handle("GET /health", Chain(handlers.HealthCheckHandler(d.DB), paramsMiddleware))

	s.Router.Handle("POST /matches", Chain(handlers.RegisterMatchHandler(d.Settlement), member...))
	s.Router.Handle("GET /matches/{id}", Chain(handlers.GetMatchHandler(d.Matches), member...))
	s.Router.Handle("POST /matches/{id}/contest", Chain(handlers.ContestMatchHandler(d.Settlement), member...))
	s.Router.Handle("POST /matches/{id}/confirm", Chain(handlers.ConfirmMatchHandler(d.Settlement), member...))
	s.Router.Handle("POST /matches/{id}/cancel", Chain(handlers.CancelMatchHandler(d.Settlement), admin...))

	s.Router.Handle("GET /leaderboard", Chain(handlers.LeaderboardHandler(d.Club), paramsMiddleware))
	s.Router.Handle("GET /players/{id}/achievements", Chain(handlers.PlayerAchievementsHandler(d.Achievements), paramsMiddleware))
	s.Router.Handle("GET /players/{id}/matches", Chain(handlers.ListPlayerMatchesHandler(d.Matches), paramsMiddleware))
	s.Router.Handle("GET /notifications", Chain(handlers.ListNotificationsHandler(d.Notifications), member...))
	s.Router.Handle("POST /push/subscriptions", Chain(handlers.SaveSubscriptionHandler(d.Notifications), member...))
	s.Router.Handle("POST /admin/settings", Chain(handlers.UpdateSettingHandler(d.Club), admin...))

	s.Router.Handle("POST /pubsub/notifications", Chain(handlers.NotificationEventHandler(d.Deliverer, d.PubSub), paramsMiddleware))
	s.Router.Handle("POST /slack/command/leaderboard", Chain(handlers.LeaderboardCommandHandler(d.Club, d.SlackFormatter), slackCmd...))
	s.Router.Handle("POST /slack/command/player-stats", Chain(handlers.PlayerStatsCommandHandler(d.Club, d.Achievements, d.SlackFormatter), slackCmd...))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}
