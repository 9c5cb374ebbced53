package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"stakepit/internal/agent"
	"stakepit/internal/arena"
	"stakepit/internal/config"
	"stakepit/internal/game"
	"stakepit/internal/ledger"
	"stakepit/internal/settlement"
	"stakepit/internal/store"
)

// stallAgent parks every decision until release closes, then plays
// passively. started fires on the first decision.
type stallAgent struct {
	name    string
	release chan struct{}
	started func()
}

func (a *stallAgent) Name() string { return a.name }

func (a *stallAgent) Decide(ctx context.Context, obs agent.Observation) (agent.Action, error) {
	if a.started != nil {
		a.started()
	}
	select {
	case <-a.release:
	case <-ctx.Done():
	}
	if obs.ToCall == 0 {
		return agent.Action{Type: game.ActionCheck}, nil
	}
	return agent.Action{Type: game.ActionFold}, nil
}

func stallRoster(release, started chan struct{}) arena.AgentFactory {
	var once sync.Once
	signal := func() { once.Do(func() { close(started) }) }
	return func(modelNames []string, seed int64) []agent.Agent {
		out := make([]agent.Agent, 0, len(modelNames))
		for _, name := range modelNames {
			out = append(out, &stallAgent{name: name, release: release, started: signal})
		}
		return out
	}
}

// scriptedGateway fakes the settlement gateway and counts calls per
// endpoint.
type scriptedGateway struct {
	mu       sync.Mutex
	calls    map[string]int
	failures map[string]int
	srv      *httptest.Server
}

func newScriptedGateway(t *testing.T) *scriptedGateway {
	t.Helper()
	g := &scriptedGateway{calls: map[string]int{}, failures: map[string]int{}}
	g.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		g.calls[r.URL.Path]++
		fail := g.failures[r.URL.Path] > 0
		if fail {
			g.failures[r.URL.Path]--
		}
		g.mu.Unlock()
		if fail {
			http.Error(w, "gateway down", http.StatusBadGateway)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/funds":
			var receipts []settlement.Receipt
			if agents, ok := body["agents"].([]any); ok {
				for _, a := range agents {
					receipts = append(receipts, settlement.Receipt{
						Signature: fmt.Sprintf("fund-%v", a),
						Recipient: fmt.Sprintf("%v", a),
					})
				}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"receipts": receipts})
		case "/v1/lobbies":
			_ = json.NewEncoder(w).Encode(map[string]any{"registration_ref": "reg-1"})
		case "/v1/distributions":
			_ = json.NewEncoder(w).Encode(map[string]any{"receipts": []settlement.Receipt{{
				Signature: "payout-sig",
				Recipient: fmt.Sprintf("%v", body["winner"]),
			}}})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(g.srv.Close)
	return g
}

func (g *scriptedGateway) count(path string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[path]
}

func (g *scriptedGateway) pipeline(led *ledger.Ledger) *settlement.Pipeline {
	client := settlement.NewGatewayClient(g.srv.URL, "test-key", 2*time.Second)
	return settlement.NewPipeline(client, led, nil, config.SettlementConfig{
		DepositAddress: "escrow",
		ChipsPerUnit:   1000,
		StageTimeout:   2 * time.Second,
	})
}

func testConfig(models ...string) arena.Config {
	return arena.Config{
		ModelNames:    models,
		StartingChips: 1000,
		SmallBlind:    10,
		BigBlind:      20,
		MaxHands:      1,
	}
}

func newService(t *testing.T, led *ledger.Ledger, pipe *settlement.Pipeline, agents arena.AgentFactory) (*Service, *arena.Orchestrator) {
	t.Helper()
	if led == nil {
		led = ledger.New(nil)
	}
	orch := arena.New(config.ArenaConfig{AgentActionTimeout: 2 * time.Second, ChatLogLimit: 50}, nil, led, pipe, nil, agents)
	return NewService(orch, nil, led, pipe), orch
}

func waitStopped(t *testing.T, svc *Service) arena.StateView {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		view := svc.SessionState()
		if view.GameState != nil && view.GameState.Status == arena.StatusStopped {
			return view
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("session did not stop in time")
	return arena.StateView{}
}

func waitReleased(t *testing.T, orch *arena.Orchestrator) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := orch.CurrentSessionID(); !ok {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("session handle was not released")
}

func TestStopSessionWithoutActive(t *testing.T) {
	svc, _ := newService(t, nil, nil, nil)
	if res := svc.StopSession(); res.Stopped || res.SessionID != "" {
		t.Fatalf("StopSession with nothing running = %+v, want zero", res)
	}
}

func TestStartSessionRejectsBadConfig(t *testing.T) {
	svc, _ := newService(t, nil, nil, nil)
	_, err := svc.StartSession(context.Background(), "g1", testConfig("solo"))
	var verr *arena.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("StartSession with one model: err = %v, want ValidationError", err)
	}
}

func TestListTransactionsKnownViaLedger(t *testing.T) {
	led := ledger.New(nil)
	rec, err := led.Record(context.Background(), ledger.Transfer{
		SessionID: "g1", HandNumber: 1, FromAgent: "a", ToAgent: "b",
		AmountChips: 30, Kind: ledger.KindTransfer,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := led.Confirm(context.Background(), rec.ID, ""); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	svc, _ := newService(t, led, nil, nil)
	list, err := svc.ListTransactions(context.Background(), "g1")
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if list.Count != 1 || len(list.Transactions) != 1 {
		t.Fatalf("got %d transactions, want 1", list.Count)
	}
	if list.Transactions[0].Status != ledger.StatusCompleted {
		t.Fatalf("status = %s, want completed", list.Transactions[0].Status)
	}
}

func TestListTransactionsUnknownSession(t *testing.T) {
	svc, _ := newService(t, nil, nil, nil)
	_, err := svc.ListTransactions(context.Background(), "ghost")
	if !errors.Is(err, ErrUnknownSession) {
		t.Fatalf("err = %v, want ErrUnknownSession", err)
	}
}

func TestListTransactionsCurrentSessionIsKnownWhileEmpty(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	svc, orch := newService(t, nil, nil, stallRoster(release, started))

	if _, err := svc.StartSession(context.Background(), "g1", testConfig("alpha", "beta")); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	<-started
	defer func() {
		svc.StopSession()
		close(release)
		waitReleased(t, orch)
	}()

	list, err := svc.ListTransactions(context.Background(), "g1")
	if err != nil {
		t.Fatalf("ListTransactions for the running session: %v", err)
	}
	if list.Count != 0 {
		t.Fatalf("count = %d, want 0 before any hand settles", list.Count)
	}
}

func TestStoreBackedReadsWithoutStore(t *testing.T) {
	svc, _ := newService(t, nil, nil, nil)
	if _, err := svc.ListSessions(context.Background(), 10, 0); !errors.Is(err, store.ErrNotConfigured) {
		t.Fatalf("ListSessions err = %v, want ErrNotConfigured", err)
	}
	if _, err := svc.GetSession(context.Background(), "g1"); !errors.Is(err, store.ErrNotConfigured) {
		t.Fatalf("GetSession err = %v, want ErrNotConfigured", err)
	}
	if _, err := svc.PaymentAccount(context.Background(), "g1"); !errors.Is(err, store.ErrNotConfigured) {
		t.Fatalf("PaymentAccount err = %v, want ErrNotConfigured", err)
	}
}

func TestTriggerDistributionRequiresGateway(t *testing.T) {
	svc, _ := newService(t, nil, nil, nil)
	_, err := svc.TriggerDistribution(context.Background(), "g1", "")
	if !errors.Is(err, settlement.ErrNotConfigured) {
		t.Fatalf("err = %v, want settlement.ErrNotConfigured", err)
	}
}

func TestTriggerDistributionWhileRunning(t *testing.T) {
	g := newScriptedGateway(t)
	led := ledger.New(nil)
	release := make(chan struct{})
	started := make(chan struct{})
	svc, orch := newService(t, led, g.pipeline(led), stallRoster(release, started))

	if _, err := svc.StartSession(context.Background(), "g1", testConfig("alpha", "beta")); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	<-started
	defer func() {
		svc.StopSession()
		close(release)
		waitReleased(t, orch)
	}()

	_, err := svc.TriggerDistribution(context.Background(), "g1", "")
	if !errors.Is(err, ErrSessionRunning) {
		t.Fatalf("err = %v, want ErrSessionRunning", err)
	}
	if got := g.count("/v1/distributions"); got != 0 {
		t.Fatalf("gateway distributions = %d, want 0 while running", got)
	}
}

func TestTriggerDistributionUnknownSession(t *testing.T) {
	g := newScriptedGateway(t)
	led := ledger.New(nil)
	svc, _ := newService(t, led, g.pipeline(led), nil)
	_, err := svc.TriggerDistribution(context.Background(), "ghost", "")
	if !errors.Is(err, ErrUnknownSession) {
		t.Fatalf("err = %v, want ErrUnknownSession", err)
	}
}

// completedSession runs one hand to the end with the gateway wired and
// waits for the handle to release.
func completedSession(t *testing.T, svc *Service, orch *arena.Orchestrator, sessionID string) arena.StateView {
	t.Helper()
	cfg := testConfig("alpha", "beta")
	if _, err := svc.StartSession(context.Background(), sessionID, cfg); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	view := waitStopped(t, svc)
	waitReleased(t, orch)
	return view
}

func TestTriggerDistributionResolvesWinner(t *testing.T) {
	g := newScriptedGateway(t)
	led := ledger.New(nil)
	pipe := g.pipeline(led)
	orchCfg := config.ArenaConfig{AgentActionTimeout: 2 * time.Second, DeckSeed: 11, ChatLogLimit: 50}
	orch := arena.New(orchCfg, nil, led, pipe, nil, nil)
	svc := NewService(orch, nil, led, pipe)

	view := completedSession(t, svc, orch, "g1")
	if len(view.Rankings) == 0 {
		t.Fatalf("completed session has no rankings")
	}
	autoCalls := g.count("/v1/distributions")

	res, err := svc.TriggerDistribution(context.Background(), "g1", "")
	if err != nil {
		t.Fatalf("TriggerDistribution: %v", err)
	}
	if res.Winner != view.Rankings[0].Name {
		t.Fatalf("winner = %q, want standings leader %q", res.Winner, view.Rankings[0].Name)
	}
	if len(res.Receipts) != 1 || res.Receipts[0].Signature != "payout-sig" {
		t.Fatalf("receipts = %+v, want the gateway receipt", res.Receipts)
	}
	if got := g.count("/v1/distributions"); got != autoCalls+1 {
		t.Fatalf("gateway distributions = %d, want %d", got, autoCalls+1)
	}
}

func TestTriggerDistributionRejectsUnknownWinner(t *testing.T) {
	g := newScriptedGateway(t)
	led := ledger.New(nil)
	pipe := g.pipeline(led)
	orchCfg := config.ArenaConfig{AgentActionTimeout: 2 * time.Second, DeckSeed: 11, ChatLogLimit: 50}
	orch := arena.New(orchCfg, nil, led, pipe, nil, nil)
	svc := NewService(orch, nil, led, pipe)

	completedSession(t, svc, orch, "g1")
	_, err := svc.TriggerDistribution(context.Background(), "g1", "nobody")
	var verr *arena.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError for an unknown winner", err)
	}
}

func TestCreatePaymentAccountRequiresGateway(t *testing.T) {
	svc, _ := newService(t, nil, nil, nil)
	_, _, err := svc.CreatePaymentAccount(context.Background(), "g1")
	if !errors.Is(err, settlement.ErrNotConfigured) {
		t.Fatalf("err = %v, want settlement.ErrNotConfigured", err)
	}
}

func TestCreatePaymentAccountNeedsStore(t *testing.T) {
	g := newScriptedGateway(t)
	led := ledger.New(nil)
	pipe := g.pipeline(led)
	orchCfg := config.ArenaConfig{AgentActionTimeout: 2 * time.Second, DeckSeed: 11, ChatLogLimit: 50}
	orch := arena.New(orchCfg, nil, led, pipe, nil, nil)
	svc := NewService(orch, nil, led, pipe)

	completedSession(t, svc, orch, "g1")
	// The config is resolvable from the live snapshot, but accounts are
	// durable rows; without a store the pipeline reports not configured.
	_, _, err := svc.CreatePaymentAccount(context.Background(), "g1")
	if !errors.Is(err, store.ErrNotConfigured) {
		t.Fatalf("err = %v, want store.ErrNotConfigured", err)
	}
}
