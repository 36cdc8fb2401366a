package notifier

import (
	"fmt"
	"strings"
)

var messages = map[Kind]struct{ title, body string }{
	KindPendingCreated: {
		title: "Nova partida para confirmar",
		body:  "Um adversário registrou uma partida com você. Confirme ou conteste o placar.",
	},
	KindPendingTransferred: {
		title: "Placar contestado",
		body:  "Seu adversário alterou o placar. Confirme ou conteste novamente.",
	},
	KindPendingResolved: {
		title: "Partida validada",
		body:  "A partida foi confirmada e o ranking foi atualizado.",
	},
}

// BuildPayload renders the push payload for an event.
func BuildPayload(ev Event) Payload {
	msg, ok := messages[ev.Kind]
	if !ok {
		msg = messages[KindPendingCreated]
	}
	return Payload{
		Title: msg.title,
		Body:  msg.body,
		URL:   fmt.Sprintf("/matches/%s", ev.MatchID),
		Tag:   fmt.Sprintf("match-%s", ev.MatchID),
	}
}

// pushTopic collapses repeated pushes about one match. Push services accept
// at most 32 URL-safe characters.
func pushTopic(matchID string) string {
	topic := strings.ReplaceAll(matchID, "-", "")
	if len(topic) > 32 {
		topic = topic[:32]
	}
	return topic
}
