package broadcast

import (
	"github.com/rs/zerolog/log"
)

// Event is one arena occurrence worth telling the outside world about.
// Type names the occurrence (session_started, hand_completed, ...) and
// Data carries the payload serialized as-is.
type Event struct {
	Type      string `json:"event"`
	SessionID string `json:"session_id"`
	Data      any    `json:"data"`
}

// Publisher is a fire-and-forget event sink. Implementations must not
// block the hand loop.
type Publisher interface {
	Publish(ev Event)
}

// LogPublisher mirrors every event into the structured log.
type LogPublisher struct{}

func (LogPublisher) Publish(ev Event) {
	log.Info().
		Str("event", ev.Type).
		Str("session_id", ev.SessionID).
		Msg("arena event")
}

// Fanout delivers each event to every configured sink in order.
type Fanout []Publisher

func (f Fanout) Publish(ev Event) {
	metricEventsPublishedTotal.Add(1)
	for _, p := range f {
		p.Publish(ev)
	}
}
