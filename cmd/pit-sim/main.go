package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"stakepit/internal/arena"
	"stakepit/internal/broadcast"
	"stakepit/internal/config"
	"stakepit/internal/ledger"
	"stakepit/internal/logging"

	"github.com/rs/zerolog/log"
)

func main() {
	var (
		sessionID  = flag.String("session", "sim", "session id")
		models     = flag.String("models", "alpha,beta,gamma", "comma-separated agent names")
		chips      = flag.Int64("chips", 1000, "starting chips per agent")
		smallBlind = flag.Int64("small-blind", 10, "small blind")
		bigBlind   = flag.Int64("big-blind", 20, "big blind")
		maxHands   = flag.Int("max-hands", 20, "hand cap")
		seed       = flag.Int64("seed", 0, "deck seed, 0 seeds from the clock")
	)
	flag.Parse()

	logCfg, err := config.LoadLog()
	if err != nil {
		panic(err)
	}
	logging.Init(logCfg)

	led := ledger.New(nil)
	orchCfg := config.ArenaConfig{
		AgentActionTimeout: 5 * time.Second,
		DeckSeed:           *seed,
		ChatLogLimit:       50,
	}
	// No store, no gateway, nil factory: every seat gets a policy agent.
	orch := arena.New(orchCfg, nil, led, nil, broadcast.LogPublisher{}, nil)

	cfg := arena.Config{
		ModelNames:    splitModels(*models),
		StartingChips: *chips,
		SmallBlind:    *smallBlind,
		BigBlind:      *bigBlind,
		MaxHands:      *maxHands,
	}
	if _, err := orch.Start(context.Background(), *sessionID, cfg); err != nil {
		log.Fatal().Err(err).Msg("start session failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		orch.Stop()
	}()

	view := waitForCompletion(orch)
	printReport(view, led, *sessionID)
}

func splitModels(raw string) []string {
	parts := strings.Split(raw, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if name := strings.TrimSpace(p); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// waitForCompletion blocks until the final snapshot is published and
// the session handle is released, so the ledger holds every record.
func waitForCompletion(orch *arena.Orchestrator) arena.StateView {
	for {
		view := orch.State()
		_, running := orch.CurrentSessionID()
		if !running && view.GameState != nil && view.GameState.Status == arena.StatusStopped {
			return view
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func printReport(view arena.StateView, led *ledger.Ledger, sessionID string) {
	var b strings.Builder
	fmt.Fprintf(&b, "session %s: %d hands, total pot %d, %d timeouts\n",
		sessionID, view.Stats.HandsPlayed, view.Stats.TotalPot, view.Stats.AgentTimeouts)

	b.WriteString("final standings:\n")
	for _, r := range view.Rankings {
		line := fmt.Sprintf("  %d. %-12s %6d chips", r.Rank, r.Name, r.Chips)
		if r.EliminatedHand > 0 {
			line += fmt.Sprintf("  (busted hand %d)", r.EliminatedHand)
		}
		b.WriteString(line + "\n")
	}

	recs, err := led.ListBySession(context.Background(), sessionID)
	if err != nil {
		log.Error().Err(err).Msg("read ledger failed")
	}
	fmt.Fprintf(&b, "ledger (%d records):\n", len(recs))
	for _, rec := range recs {
		fmt.Fprintf(&b, "  hand %3d  %-8s %-9s %s -> %s  %d chips\n",
			rec.HandNumber, rec.Kind, rec.Status, rec.FromAgent, rec.ToAgent, rec.AmountChips)
	}
	fmt.Print(b.String())
}
