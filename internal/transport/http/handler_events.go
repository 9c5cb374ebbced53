package httptransport

import (
	"fmt"
	"net/http"
	"time"

	"stakepit/internal/broadcast"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

var ssePingInterval = 15 * time.Second

// EventsSSEHandler streams the live session feed. Clients resume with
// Last-Event-ID; events that fell out of the buffer window are gone,
// the durable snapshot endpoints cover the rest.
func EventsSSEHandler(buf *broadcast.EventBuffer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if buf == nil {
			WriteHTTPError(w, http.StatusServiceUnavailable, "events_not_available")
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			WriteHTTPError(w, http.StatusInternalServerError, "stream_not_supported")
			return
		}

		metricSSEConnectionsTotal.Add(1)
		metricSSEConnectionsActive.Add(1)
		defer metricSSEConnectionsActive.Add(-1)

		broadcast.SetSSEHeaders(w)
		lastEventID := r.Header.Get("Last-Event-ID")
		log.Info().
			Str("request_id", chimw.GetReqID(r.Context())).
			Str("last_event_id", lastEventID).
			Msg("event stream opened")

		for _, ev := range buf.ReplayAfter(lastEventID) {
			if err := broadcast.WriteSSE(w, ev); err != nil {
				return
			}
		}
		flusher.Flush()

		ch := buf.Subscribe()
		defer buf.Unsubscribe(ch)
		ticker := time.NewTicker(ssePingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				log.Info().
					Str("request_id", chimw.GetReqID(r.Context())).
					Msg("event stream closed")
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if err := broadcast.WriteSSE(w, ev); err != nil {
					return
				}
				flusher.Flush()
			case <-ticker.C:
				// Comment-only heartbeat; clients ignore it, proxies
				// keep the connection warm.
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}
