package httptransport

import (
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"stakepit/internal/app/control"
	"stakepit/internal/broadcast"
	"stakepit/internal/config"
	"stakepit/internal/mcpserver"
	"stakepit/internal/settlement"
	"stakepit/internal/store"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

func NewRouter(svc *control.Service, st *store.Store, pipe *settlement.Pipeline, buf *broadcast.EventBuffer, cfg config.ServerConfig) *chi.Mux {
	mcpSrv := mcpserver.New(svc)
	sessions := NewSessionHandlers(svc)
	settle := NewSettlementHandlers(svc)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", HealthHandler(st, pipe))
	r.With(APILogMiddleware()).MethodFunc(http.MethodOptions, "/mcp", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Allow", "POST, GET, DELETE, OPTIONS")
		w.WriteHeader(http.StatusNoContent)
	})
	r.With(APILogMiddleware()).Method(http.MethodPost, "/mcp", mcpSrv.Handler())
	r.With(APILogMiddleware()).Method(http.MethodGet, "/mcp", mcpSrv.Handler())
	r.With(APILogMiddleware()).Method(http.MethodDelete, "/mcp", mcpSrv.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())

		// The event stream lives outside the timeout group; it stays
		// open as long as the client does.
		r.Get("/events", EventsSSEHandler(buf))

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(60 * time.Second))

			r.Post("/sessions", sessions.Start())
			r.Post("/sessions/stop", sessions.Stop())
			r.Get("/sessions/state", sessions.State())
			r.Get("/sessions", sessions.List())
			r.Get("/sessions/{session_id}", sessions.Get())
			r.Get("/sessions/{session_id}/transactions", settle.Transactions())
			r.Get("/sessions/{session_id}/payment-account", settle.PaymentAccount())
			r.Post("/sessions/{session_id}/payment-account", settle.CreatePaymentAccount())

			r.Group(func(r chi.Router) {
				r.Use(AdminAuthMiddleware(cfg.AdminAPIKey))
				r.Post("/sessions/{session_id}/distribute", settle.Distribute())

				r.Route("/debug", func(r chi.Router) {
					r.Use(DebugBodyLog(4096))
					r.Get("/vars", expvar.Handler().ServeHTTP)
				})
			})
		})
	})

	return r
}

func LogRoutes(r chi.Router) {
	var lines []string
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		lines = append(lines, fmt.Sprintf("  %-6s %s", method, route))
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Strings(lines)
	fmt.Printf("Registered routes (%d):\n%s\n", len(lines), strings.Join(lines, "\n"))
}
