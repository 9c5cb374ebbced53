package httptransport

import (
	"encoding/json"
	"net/http"

	"stakepit/internal/settlement"
	"stakepit/internal/store"
)

// HealthHandler reports readiness. A missing store or gateway is a
// configuration, not a failure; only an unreachable store degrades the
// status.
func HealthHandler(st *store.Store, pipe *settlement.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{
			"status":     "ok",
			"store":      false,
			"settlement": pipe.Enabled(),
		}
		if st.Enabled() {
			if err := st.Ping(r.Context()); err != nil {
				body["status"] = "degraded"
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(body)
				return
			}
			body["store"] = true
		}
		_ = json.NewEncoder(w).Encode(body)
	}
}
