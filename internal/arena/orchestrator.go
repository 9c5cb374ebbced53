package arena

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"stakepit/internal/agent"
	"stakepit/internal/broadcast"
	"stakepit/internal/config"
	"stakepit/internal/game"
	"stakepit/internal/ledger"
	"stakepit/internal/settlement"
	"stakepit/internal/store"
)

// AgentFactory builds the session roster, one agent per model name.
type AgentFactory func(modelNames []string, seed int64) []agent.Agent

// session is the in-memory handle for the one active session.
type session struct {
	id     string
	cfg    Config
	seed   int64
	agents []agent.Agent
	stop   atomic.Bool
	done   chan struct{}
}

// Orchestrator owns the single active session: it claims the handle,
// runs the settlement stages around the lifecycle, drives the hand
// loop and publishes immutable snapshots for concurrent readers.
type Orchestrator struct {
	cfg      config.ArenaConfig
	store    *store.Store
	ledger   *ledger.Ledger
	pipeline *settlement.Pipeline
	pub      broadcast.Publisher
	agents   AgentFactory

	mu     sync.Mutex
	active *session

	snapshot atomic.Pointer[Snapshot]
}

func New(cfg config.ArenaConfig, st *store.Store, led *ledger.Ledger, pipe *settlement.Pipeline, pub broadcast.Publisher, agents AgentFactory) *Orchestrator {
	if led == nil {
		led = ledger.New(nil)
	}
	if pub == nil {
		pub = broadcast.LogPublisher{}
	}
	if agents == nil {
		agents = func(modelNames []string, seed int64) []agent.Agent {
			out := make([]agent.Agent, 0, len(modelNames))
			for i, name := range modelNames {
				out = append(out, agent.NewPolicyAgent(name, seed+int64(i)))
			}
			return out
		}
	}
	return &Orchestrator{
		cfg:      cfg,
		store:    st,
		ledger:   led,
		pipeline: pipe,
		pub:      pub,
		agents:   agents,
	}
}

// Start validates the config, claims the single-session handle and
// runs the funding stage before the hand loop launches. A start for
// the id already running is accepted idempotently; a start for a
// different id is rejected while any session holds the handle.
func (o *Orchestrator) Start(ctx context.Context, sessionID string, cfg Config) (StartResult, error) {
	if err := validateSessionID(sessionID); err != nil {
		return StartResult{}, err
	}
	if err := cfg.Validate(); err != nil {
		return StartResult{}, err
	}

	sess := &session{id: sessionID, cfg: cfg, done: make(chan struct{})}

	o.mu.Lock()
	if o.active != nil {
		id := o.active.id
		o.mu.Unlock()
		if id == sessionID {
			return StartResult{SessionID: sessionID, AlreadyRunning: true}, nil
		}
		return StartResult{}, &ConflictError{RunningSessionID: id}
	}
	o.active = sess
	o.mu.Unlock()

	o.publish(initialSnapshot(sess, StatusWaiting))
	o.upsertLobby(ctx, sessionID, cfg, StatusWaiting)

	// Funding is fatal: a failed escrow releases the handle and the
	// session never runs.
	if _, err := o.pipeline.FundSession(ctx, sessionID, cfg.ModelNames, cfg.StartingChips); err != nil && !errors.Is(err, settlement.ErrNotConfigured) {
		o.release(sess)
		snap := initialSnapshot(sess, StatusStopped)
		snap.LastError = err.Error()
		o.publish(snap)
		o.persistSnapshot(ctx, snap)
		o.setLobbyStatus(ctx, sessionID, StatusStopped)
		return StartResult{}, err
	}

	sess.seed = o.cfg.DeckSeed
	if sess.seed == 0 {
		sess.seed = game.NewSeed()
	}
	sess.agents = o.agents(cfg.ModelNames, sess.seed)

	// Registration never holds up gameplay.
	go o.register(sess)

	o.publish(initialSnapshot(sess, StatusRunning))
	o.setLobbyStatus(ctx, sessionID, StatusRunning)
	o.pub.Publish(broadcast.Event{Type: "session_started", SessionID: sessionID, Data: cfg})
	metricSessionsStarted.Add(1)

	go o.run(sess)

	return StartResult{SessionID: sessionID}, nil
}

// Stop flips the stop flag; the loop halts at the next hand boundary,
// never mid-hand. Calling with no active session is a no-op.
func (o *Orchestrator) Stop() bool {
	o.mu.Lock()
	sess := o.active
	o.mu.Unlock()
	if sess == nil {
		return false
	}
	sess.stop.Store(true)
	return true
}

// State returns the latest published snapshot without blocking on the
// hand loop. After a session ends the final snapshot stays readable.
func (o *Orchestrator) State() StateView {
	snap := o.snapshot.Load()
	if snap == nil {
		return StateView{}
	}
	return StateView{
		IsRunning: snap.Status != StatusStopped,
		SessionID: snap.SessionID,
		GameState: snap,
		Stats:     snap.Stats,
		Rankings:  snap.Rankings,
		ChatLog:   snap.ChatLog,
		LastError: snap.LastError,
	}
}

func (o *Orchestrator) CurrentSessionID() (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active == nil {
		return "", false
	}
	return o.active.id, true
}

func (o *Orchestrator) register(sess *session) {
	params := settlement.SessionParams{
		ModelNames:    sess.cfg.ModelNames,
		StartingChips: sess.cfg.StartingChips,
		SmallBlind:    sess.cfg.SmallBlind,
		BigBlind:      sess.cfg.BigBlind,
		MaxHands:      sess.cfg.MaxHands,
	}
	if _, err := o.pipeline.RegisterSession(context.Background(), sess.id, params); err != nil && !errors.Is(err, settlement.ErrNotConfigured) {
		log.Warn().Err(err).Str("session_id", sess.id).Msg("session registration dropped")
	}
}

func (o *Orchestrator) release(sess *session) {
	o.mu.Lock()
	if o.active == sess {
		o.active = nil
	}
	o.mu.Unlock()
	close(sess.done)
}

func (o *Orchestrator) publish(snap *Snapshot) {
	snap.UpdatedAt = time.Now().UTC()
	o.snapshot.Store(snap)
}

func initialSnapshot(sess *session, status string) *Snapshot {
	seats := make([]SeatState, 0, len(sess.cfg.ModelNames))
	for i, name := range sess.cfg.ModelNames {
		seats = append(seats, SeatState{Seat: i, Name: name, Chips: sess.cfg.StartingChips})
	}
	return &Snapshot{
		SessionID: sess.id,
		Status:    status,
		Config:    sess.cfg,
		Seats:     seats,
	}
}

func (o *Orchestrator) upsertLobby(ctx context.Context, sessionID string, cfg Config, status string) {
	if !o.store.Enabled() {
		return
	}
	l := store.Lobby{
		SessionID:     sessionID,
		ModelNames:    cfg.ModelNames,
		StartingChips: cfg.StartingChips,
		SmallBlind:    cfg.SmallBlind,
		BigBlind:      cfg.BigBlind,
		MaxHands:      cfg.MaxHands,
		Status:        status,
	}
	if err := o.store.UpsertLobby(ctx, l); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("lobby upsert failed")
	}
}

func (o *Orchestrator) setLobbyStatus(ctx context.Context, sessionID, status string) {
	if !o.store.Enabled() {
		return
	}
	if err := o.store.SetLobbyStatus(ctx, sessionID, status); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Str("status", status).Msg("lobby status update failed")
	}
}

func (o *Orchestrator) persistSnapshot(ctx context.Context, snap *Snapshot) {
	if !o.store.Enabled() {
		return
	}
	state, err := json.Marshal(snap)
	if err != nil {
		log.Warn().Err(err).Str("session_id", snap.SessionID).Msg("snapshot marshal failed")
		return
	}
	if err := o.store.UpsertSnapshot(ctx, snap.SessionID, snap.Status, snap.HandNumber, state, snap.LastError); err != nil {
		log.Warn().Err(err).Str("session_id", snap.SessionID).Msg("snapshot upsert failed")
	}
}

func (o *Orchestrator) actionTimeout() time.Duration {
	if o.cfg.AgentActionTimeout > 0 {
		return o.cfg.AgentActionTimeout
	}
	return 30 * time.Second
}

func (o *Orchestrator) chatLimit() int {
	if o.cfg.ChatLogLimit > 0 {
		return o.cfg.ChatLogLimit
	}
	return 50
}
