package http

import (
	"net/http"

	"github.com/mauv0809/pingpong-ladder/internal/achievement"
	"github.com/mauv0809/pingpong-ladder/internal/club"
	"github.com/mauv0809/pingpong-ladder/internal/config"
	"github.com/mauv0809/pingpong-ladder/internal/http/handlers"
	"github.com/mauv0809/pingpong-ladder/internal/match"
	"github.com/mauv0809/pingpong-ladder/internal/notifier"
	"github.com/mauv0809/pingpong-ladder/internal/pubsub"
)

// Dependencies are the collaborators the routes are built from.
type Dependencies struct {
	DB             handlers.Pinger
	Settlement     handlers.Settler
	Club           club.ClubStore
	Matches        match.MatchStore
	Achievements   achievement.Store
	Notifications  notifier.Store
	Deliverer      handlers.PushDeliverer
	PubSub         pubsub.PubSubClient
	SlackFormatter handlers.SlackFormatter
	MetricsHandler http.Handler
	Cfg            config.Config
}

type Server struct {
	deps   Dependencies
	Router *http.ServeMux
}
