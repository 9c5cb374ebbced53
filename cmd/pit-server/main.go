package main

import (
	"context"
	"net/http"
	"time"

	"stakepit/internal/agent"
	"stakepit/internal/app/control"
	"stakepit/internal/arena"
	"stakepit/internal/broadcast"
	"stakepit/internal/config"
	"stakepit/internal/ledger"
	"stakepit/internal/logging"
	"stakepit/internal/settlement"
	"stakepit/internal/store"
	httptransport "stakepit/internal/transport/http"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	logging.Init(cfg.Log)

	st := openStore(cfg.Server)
	defer st.Close()

	led := ledger.New(st)
	pipe := newPipeline(cfg.Settlement, led, st)

	buf := broadcast.NewEventBuffer(cfg.Broadcast.EventBufferSize)
	pub := newPublisher(cfg.Broadcast, buf)

	roster := func(modelNames []string, seed int64) []agent.Agent {
		return agent.Roster(cfg.LLM, modelNames, seed)
	}
	orch := arena.New(cfg.Arena, st, led, pipe, pub, roster)
	svc := control.NewService(orch, st, led, pipe)

	r := httptransport.NewRouter(svc, st, pipe, buf, cfg.Server)
	httptransport.LogRoutes(r)

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	log.Info().Str("addr", cfg.Server.HTTPAddr).Msg("http listening")
	log.Fatal().Err(server.ListenAndServe()).Msg("server stopped")
}

// openStore connects when a DSN is configured. Without one the server
// runs store-less and storage-backed endpoints report 503.
func openStore(cfg config.ServerConfig) *store.Store {
	if cfg.PostgresDSN == "" {
		log.Warn().Msg("no postgres dsn configured, running without persistence")
		return nil
	}
	st, err := store.New(cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("store init failed")
	}
	if err := st.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("db ping failed")
	}
	if err := st.Migrate(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("db migrate failed")
	}
	return st
}

// newPipeline wires the settlement gateway when one is configured. A
// client-less pipeline reports ErrNotConfigured from every stage and
// sessions then play with in-memory chips only.
func newPipeline(cfg config.SettlementConfig, led *ledger.Ledger, st *store.Store) *settlement.Pipeline {
	var client *settlement.GatewayClient
	if cfg.GatewayURL != "" {
		client = settlement.NewGatewayClient(cfg.GatewayURL, cfg.APIKey, cfg.StageTimeout)
	} else {
		log.Warn().Msg("no settlement gateway configured, value settlement disabled")
	}
	return settlement.NewPipeline(client, led, st, cfg)
}

func newPublisher(cfg config.BroadcastConfig, buf *broadcast.EventBuffer) broadcast.Publisher {
	sinks := broadcast.Fanout{broadcast.LogPublisher{}, buf}
	if len(cfg.WebhookURLs) > 0 {
		hooks := broadcast.NewWebhookPublisher(cfg)
		hooks.Start(context.Background())
		sinks = append(sinks, hooks)
	}
	return sinks
}
