package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"stakepit/internal/agent"
	"stakepit/internal/app/control"
	"stakepit/internal/arena"
	"stakepit/internal/broadcast"
	"stakepit/internal/config"
	"stakepit/internal/game"
	"stakepit/internal/ledger"

	"github.com/go-chi/chi/v5"
)

type routerEnv struct {
	router *chi.Mux
	orch   *arena.Orchestrator
	svc    *control.Service
	buf    *broadcast.EventBuffer
	ledger *ledger.Ledger
}

func newRouterEnv(t *testing.T, serverCfg config.ServerConfig) *routerEnv {
	return newRouterEnvWithAgents(t, serverCfg, nil)
}

func newRouterEnvWithAgents(t *testing.T, serverCfg config.ServerConfig, agents arena.AgentFactory) *routerEnv {
	t.Helper()
	led := ledger.New(nil)
	buf := broadcast.NewEventBuffer(100)
	arenaCfg := config.ArenaConfig{AgentActionTimeout: 2 * time.Second, DeckSeed: 3, ChatLogLimit: 50}
	orch := arena.New(arenaCfg, nil, led, nil, broadcast.Fanout{buf}, agents)
	svc := control.NewService(orch, nil, led, nil)
	return &routerEnv{
		router: NewRouter(svc, nil, nil, buf, serverCfg),
		orch:   orch,
		svc:    svc,
		buf:    buf,
		ledger: led,
	}
}

// stallAgent parks decisions until release closes, so a session stays
// running for as long as a test needs it to.
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

func (env *routerEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func (env *routerEnv) waitStopped(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		view := env.svc.SessionState()
		if view.GameState != nil && view.GameState.Status == arena.StatusStopped {
			if _, running := env.orch.CurrentSessionID(); !running {
				return
			}
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("session did not stop in time")
}

func startBody(sessionID string) map[string]any {
	return map[string]any{
		"session_id":     sessionID,
		"model_names":    []string{"alpha", "beta"},
		"starting_chips": 1000,
		"small_blind":    10,
		"big_blind":      20,
		"max_hands":      1,
	}
}

func TestStartSessionAccepted(t *testing.T) {
	env := newRouterEnv(t, config.ServerConfig{})
	w := env.do(t, http.MethodPost, "/api/sessions", startBody("g1"))
	if w.Code != http.StatusAccepted {
		t.Fatalf("start status=%d body=%s", w.Code, w.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode start response: %v", err)
	}
	if resp["session_id"] != "g1" || resp["status"] != "accepted" {
		t.Fatalf("unexpected start response: %v", resp)
	}
	env.waitStopped(t)
}

func TestStartSessionInvalidConfig(t *testing.T) {
	env := newRouterEnv(t, config.ServerConfig{})
	body := startBody("g1")
	body["model_names"] = []string{"solo"}
	w := env.do(t, http.MethodPost, "/api/sessions", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "invalid_config") {
		t.Fatalf("body=%s, want invalid_config", w.Body.String())
	}
}

func TestStartSessionInvalidJSON(t *testing.T) {
	env := newRouterEnv(t, config.ServerConfig{})
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", w.Code)
	}
}

func TestStartSessionConflictAndIdempotent(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	env := newRouterEnvWithAgents(t, config.ServerConfig{}, stallRoster(release, started))

	body := startBody("g1")
	if w := env.do(t, http.MethodPost, "/api/sessions", body); w.Code != http.StatusAccepted {
		t.Fatalf("first start status=%d body=%s", w.Code, w.Body.String())
	}
	<-started

	same := env.do(t, http.MethodPost, "/api/sessions", body)
	if same.Code != http.StatusOK {
		t.Fatalf("same id status=%d body=%s", same.Code, same.Body.String())
	}
	var dup map[string]any
	_ = json.Unmarshal(same.Body.Bytes(), &dup)
	if dup["already_running"] != true {
		t.Fatalf("same id response=%v, want already_running", dup)
	}

	other := env.do(t, http.MethodPost, "/api/sessions", startBody("g2"))
	if other.Code != http.StatusConflict {
		t.Fatalf("other id status=%d body=%s", other.Code, other.Body.String())
	}
	var conflict map[string]any
	_ = json.Unmarshal(other.Body.Bytes(), &conflict)
	if conflict["error"] != "session_conflict" || conflict["running_session_id"] != "g1" {
		t.Fatalf("conflict response=%v", conflict)
	}

	if w := env.do(t, http.MethodPost, "/api/sessions/stop", nil); w.Code != http.StatusOK {
		t.Fatalf("stop status=%d", w.Code)
	}
	close(release)
	env.waitStopped(t)
}

func TestStopWithoutSession(t *testing.T) {
	env := newRouterEnv(t, config.ServerConfig{})
	w := env.do(t, http.MethodPost, "/api/sessions/stop", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", w.Code)
	}
	var resp control.StopResult
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode stop response: %v", err)
	}
	if resp.Stopped {
		t.Fatalf("stopped=%v, want false with nothing running", resp.Stopped)
	}
}

func TestSessionStateEndpoint(t *testing.T) {
	env := newRouterEnv(t, config.ServerConfig{})
	if w := env.do(t, http.MethodPost, "/api/sessions", startBody("g1")); w.Code != http.StatusAccepted {
		t.Fatalf("start status=%d", w.Code)
	}
	env.waitStopped(t)

	w := env.do(t, http.MethodGet, "/api/sessions/state", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("state status=%d", w.Code)
	}
	var view arena.StateView
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if view.IsRunning {
		t.Fatalf("is_running=true after completion")
	}
	if view.GameState == nil || view.GameState.SessionID != "g1" {
		t.Fatalf("state missing game_state for g1: %+v", view)
	}
	if len(view.Rankings) == 0 {
		t.Fatalf("state missing rankings")
	}
}

func TestListSessionsWithoutStore(t *testing.T) {
	env := newRouterEnv(t, config.ServerConfig{})
	w := env.do(t, http.MethodGet, "/api/sessions", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d, want 503 without a store", w.Code)
	}
	if !strings.Contains(w.Body.String(), "store_not_configured") {
		t.Fatalf("body=%s", w.Body.String())
	}
}

func TestGetSessionWithoutStore(t *testing.T) {
	env := newRouterEnv(t, config.ServerConfig{})
	w := env.do(t, http.MethodGet, "/api/sessions/g1", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d, want 503 without a store", w.Code)
	}
}

func TestHealthzDegradedModes(t *testing.T) {
	env := newRouterEnv(t, config.ServerConfig{})
	w := env.do(t, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode healthz: %v", err)
	}
	if resp["status"] != "ok" || resp["store"] != false || resp["settlement"] != false {
		t.Fatalf("healthz=%v", resp)
	}
}
