// Package control hosts the application service shared by the HTTP
// and MCP surfaces. It holds no game state of its own; it composes the
// orchestrator, ledger, settlement pipeline and store into the
// operations both transports expose.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"stakepit/internal/arena"
	"stakepit/internal/ledger"
	"stakepit/internal/settlement"
	"stakepit/internal/store"
)

type Service struct {
	orch     *arena.Orchestrator
	store    *store.Store
	ledger   *ledger.Ledger
	pipeline *settlement.Pipeline
}

// NewService wires the service. The store and pipeline may be nil or
// disabled; the ledger must be the instance the orchestrator books
// hand transfers into, so reads see the live session.
func NewService(orch *arena.Orchestrator, st *store.Store, led *ledger.Ledger, pipe *settlement.Pipeline) *Service {
	if led == nil {
		led = ledger.New(nil)
	}
	return &Service{orch: orch, store: st, ledger: led, pipeline: pipe}
}

func (s *Service) StartSession(ctx context.Context, sessionID string, cfg arena.Config) (arena.StartResult, error) {
	return s.orch.Start(ctx, sessionID, cfg)
}

// StopSession requests a stop at the next hand boundary. A zero result
// means nothing was running.
func (s *Service) StopSession() StopResult {
	id, running := s.orch.CurrentSessionID()
	if !running || !s.orch.Stop() {
		return StopResult{}
	}
	return StopResult{Stopped: true, SessionID: id}
}

// SessionState is the live view of the current or most recent session.
func (s *Service) SessionState() arena.StateView {
	return s.orch.State()
}

// ListSessions pages through durable lobbies, newest first.
func (s *Service) ListSessions(ctx context.Context, limit, offset int) (*SessionList, error) {
	items, err := s.store.ListLobbies(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := s.store.CountLobbies(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []store.Lobby{}
	}
	return &SessionList{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

// GetSession returns the lobby row plus the latest persisted snapshot,
// when one exists.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*SessionDetail, error) {
	lobby, err := s.store.GetLobby(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	detail := &SessionDetail{Lobby: lobby}
	snap, err := s.store.GetSnapshot(ctx, sessionID)
	switch {
	case err == nil:
		detail.Snapshot = snap
	case errors.Is(err, store.ErrNotFound):
	default:
		return nil, err
	}
	return detail, nil
}

// ListTransactions returns the session's ledger, newest first. An
// empty list is only an answer for a session somebody has heard of;
// otherwise the session does not exist.
func (s *Service) ListTransactions(ctx context.Context, sessionID string) (*TransactionList, error) {
	recs, err := s.ledger.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 && !s.knownSession(ctx, sessionID) {
		return nil, ErrUnknownSession
	}
	if recs == nil {
		recs = []ledger.Record{}
	}
	return &TransactionList{SessionID: sessionID, Transactions: recs, Count: len(recs)}, nil
}

func (s *Service) knownSession(ctx context.Context, sessionID string) bool {
	if s.ledger.HasSession(sessionID) {
		return true
	}
	if id, ok := s.orch.CurrentSessionID(); ok && id == sessionID {
		return true
	}
	if s.liveSnapshot(sessionID) != nil {
		return true
	}
	if s.store.Enabled() {
		if _, err := s.store.GetLobby(ctx, sessionID); err == nil {
			return true
		}
	}
	return false
}

// PaymentAccount reads the session's escrow account.
func (s *Service) PaymentAccount(ctx context.Context, sessionID string) (*store.PaymentAccount, error) {
	return s.store.GetPaymentAccount(ctx, sessionID)
}

// CreatePaymentAccount opens the escrow account ahead of a session
// start. The funding total comes from the session's recorded config.
// The second return is false when the account already existed.
func (s *Service) CreatePaymentAccount(ctx context.Context, sessionID string) (*store.PaymentAccount, bool, error) {
	if !s.pipeline.Enabled() {
		return nil, false, settlement.ErrNotConfigured
	}
	cfg, err := s.sessionConfig(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}
	total := s.pipeline.FundingAmount(cfg.StartingChips, len(cfg.ModelNames))
	return s.pipeline.CreatePaymentAccount(ctx, sessionID, total)
}

// TriggerDistribution re-runs the payout stage for a finished session,
// the manual remediation path after a failed automatic payout. It
// refuses while the session is still playing and resolves the winner
// from the final standings when the caller does not name one.
func (s *Service) TriggerDistribution(ctx context.Context, sessionID, winner string) (*DistributionResult, error) {
	if !s.pipeline.Enabled() {
		return nil, settlement.ErrNotConfigured
	}
	if id, ok := s.orch.CurrentSessionID(); ok && id == sessionID {
		return nil, ErrSessionRunning
	}
	snap, err := s.snapshotFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if winner == "" {
		if len(snap.Rankings) == 0 {
			return nil, ErrNoWinner
		}
		winner = snap.Rankings[0].Name
	}
	var chips int64
	found := false
	for _, r := range snap.Rankings {
		if r.Name == winner {
			chips = r.Chips
			found = true
			break
		}
	}
	if !found {
		return nil, &arena.ValidationError{Field: "winner", Reason: "not in session standings"}
	}
	value := s.pipeline.FundingAmount(snap.Config.StartingChips, len(snap.Config.ModelNames))
	receipts, err := s.pipeline.Payout(ctx, sessionID, winner, chips, value)
	if err != nil {
		return nil, err
	}
	return &DistributionResult{SessionID: sessionID, Winner: winner, Receipts: receipts}, nil
}

func (s *Service) sessionConfig(ctx context.Context, sessionID string) (arena.Config, error) {
	if snap := s.liveSnapshot(sessionID); snap != nil {
		return snap.Config, nil
	}
	lobby, err := s.store.GetLobby(ctx, sessionID)
	if err != nil {
		return arena.Config{}, err
	}
	return arena.Config{
		ModelNames:    lobby.ModelNames,
		StartingChips: lobby.StartingChips,
		SmallBlind:    lobby.SmallBlind,
		BigBlind:      lobby.BigBlind,
		MaxHands:      lobby.MaxHands,
	}, nil
}

// snapshotFor finds the session's last known standings, preferring the
// in-memory view over the persisted snapshot.
func (s *Service) snapshotFor(ctx context.Context, sessionID string) (*arena.Snapshot, error) {
	if snap := s.liveSnapshot(sessionID); snap != nil {
		return snap, nil
	}
	if !s.store.Enabled() {
		return nil, ErrUnknownSession
	}
	row, err := s.store.GetSnapshot(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnknownSession
		}
		return nil, err
	}
	var snap arena.Snapshot
	if err := json.Unmarshal(row.State, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot for %s: %w", sessionID, err)
	}
	return &snap, nil
}

func (s *Service) liveSnapshot(sessionID string) *arena.Snapshot {
	if view := s.orch.State(); view.GameState != nil && view.GameState.SessionID == sessionID {
		return view.GameState
	}
	return nil
}
