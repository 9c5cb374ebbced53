package ledger

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"stakepit/internal/store"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

type Kind string

const (
	KindFunding  Kind = "funding"
	KindTransfer Kind = "transfer"
	KindPayout   Kind = "payout"
)

var (
	ErrNotFound      = errors.New("transaction_not_found")
	ErrBadTransition = errors.New("bad_status_transition")
)

// listLimit caps how many records a session read returns.
const listLimit = 100

// memoryWindow bounds per-session records held in memory. Durable
// rows in the store keep the full history.
const memoryWindow = 256

// Transfer describes a value movement to be recorded.
type Transfer struct {
	SessionID   string
	HandNumber  int
	FromAgent   string
	ToAgent     string
	AmountChips int64
	AmountValue int64
	Kind        Kind
}

// Record is one ledger entry. Entries are append-only; only Status,
// Signature, FailReason and UpdatedAt change after creation, and only
// through the transition methods.
type Record struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	HandNumber  int       `json:"hand_number,omitempty"`
	FromAgent   string    `json:"from_agent"`
	ToAgent     string    `json:"to_agent"`
	AmountChips int64     `json:"amount_chips"`
	AmountValue int64     `json:"amount_value"`
	Kind        Kind      `json:"kind"`
	Status      Status    `json:"status"`
	Signature   string    `json:"signature,omitempty"`
	FailReason  string    `json:"fail_reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Ledger tracks value movements in memory and writes them through to
// the store when one is configured. Memory is canonical for the
// running session; store writes are best-effort and never block a
// transition.
type Ledger struct {
	store *store.Store

	mu        sync.Mutex
	byID      map[string]*Record
	bySession map[string][]*Record
}

func New(st *store.Store) *Ledger {
	return &Ledger{
		store:     st,
		byID:      make(map[string]*Record),
		bySession: make(map[string][]*Record),
	}
}

// Record creates a pending entry for the transfer and returns a copy.
func (l *Ledger) Record(ctx context.Context, tr Transfer) (Record, error) {
	now := time.Now().UTC()
	rec := &Record{
		ID:          store.NewID(),
		SessionID:   tr.SessionID,
		HandNumber:  tr.HandNumber,
		FromAgent:   tr.FromAgent,
		ToAgent:     tr.ToAgent,
		AmountChips: tr.AmountChips,
		AmountValue: tr.AmountValue,
		Kind:        tr.Kind,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	l.mu.Lock()
	l.byID[rec.ID] = rec
	sess := append(l.bySession[tr.SessionID], rec)
	if len(sess) > memoryWindow {
		drop := sess[0]
		sess = sess[1:]
		delete(l.byID, drop.ID)
	}
	l.bySession[tr.SessionID] = sess
	out := *rec
	l.mu.Unlock()

	l.persistInsert(ctx, out)
	return out, nil
}

// MarkProcessing moves pending to processing.
func (l *Ledger) MarkProcessing(ctx context.Context, id string) error {
	return l.transition(ctx, id, StatusProcessing, "", "", StatusPending)
}

// Confirm finalizes a record with the settlement signature. Pending
// records may confirm directly, skipping processing.
func (l *Ledger) Confirm(ctx context.Context, id, signature string) error {
	return l.transition(ctx, id, StatusCompleted, signature, "", StatusPending, StatusProcessing)
}

// Fail finalizes a record with the failure reason.
func (l *Ledger) Fail(ctx context.Context, id, reason string) error {
	return l.transition(ctx, id, StatusFailed, "", reason, StatusPending, StatusProcessing)
}

// Retry re-enters a failed record into pending so the movement can be
// attempted again.
func (l *Ledger) Retry(ctx context.Context, id string) error {
	return l.transition(ctx, id, StatusPending, "", "", StatusFailed)
}

func (l *Ledger) transition(ctx context.Context, id string, to Status, signature, reason string, from ...Status) error {
	l.mu.Lock()
	rec, ok := l.byID[id]
	if !ok {
		l.mu.Unlock()
		return ErrNotFound
	}
	allowed := false
	for _, f := range from {
		if rec.Status == f {
			allowed = true
			break
		}
	}
	if !allowed {
		l.mu.Unlock()
		return ErrBadTransition
	}
	rec.Status = to
	rec.UpdatedAt = time.Now().UTC()
	if signature != "" {
		rec.Signature = signature
	}
	rec.FailReason = reason
	out := *rec
	l.mu.Unlock()

	l.persistUpdate(ctx, out)
	return nil
}

// Get returns a copy of the record by id from memory.
func (l *Ledger) Get(id string) (Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.byID[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// HasSession reports whether any memory record references the session.
func (l *Ledger) HasSession(sessionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.bySession[sessionID]) > 0
}

// ListBySession merges the in-memory window with durable rows, newest
// first, capped at the read limit. With no store configured the
// memory view stands alone.
func (l *Ledger) ListBySession(ctx context.Context, sessionID string) ([]Record, error) {
	l.mu.Lock()
	mem := make([]Record, 0, len(l.bySession[sessionID]))
	for _, rec := range l.bySession[sessionID] {
		mem = append(mem, *rec)
	}
	l.mu.Unlock()

	var durable []Record
	if l.store.Enabled() {
		rows, err := l.store.ListTransactionsBySession(ctx, sessionID, listLimit)
		if err != nil {
			log.Warn().Err(err).Str("session_id", sessionID).Msg("ledger store read failed, serving memory only")
		} else {
			durable = make([]Record, 0, len(rows))
			for _, row := range rows {
				durable = append(durable, fromStoreRow(row))
			}
		}
	}
	merged := Merge(durable, mem)
	if len(merged) > listLimit {
		merged = merged[:listLimit]
	}
	return merged, nil
}

// Merge unions two record sets by id, letting the later UpdatedAt win,
// and orders the result newest first with id as the tie break. It is
// associative over repeated syncs of the same rows.
func Merge(existing, incoming []Record) []Record {
	byID := make(map[string]Record, len(existing)+len(incoming))
	for _, r := range existing {
		byID[r.ID] = r
	}
	for _, r := range incoming {
		if cur, ok := byID[r.ID]; !ok || r.UpdatedAt.After(cur.UpdatedAt) {
			byID[r.ID] = r
		}
	}
	out := make([]Record, 0, len(byID))
	for _, r := range byID {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (l *Ledger) persistInsert(ctx context.Context, rec Record) {
	if !l.store.Enabled() {
		return
	}
	if err := l.store.InsertTransaction(ctx, toStoreRow(rec)); err != nil {
		log.Warn().Err(err).Str("tx_id", rec.ID).Msg("ledger insert write-through failed")
	}
}

func (l *Ledger) persistUpdate(ctx context.Context, rec Record) {
	if !l.store.Enabled() {
		return
	}
	if err := l.store.UpdateTransactionStatus(ctx, rec.ID, string(rec.Status), rec.Signature, rec.FailReason); err != nil {
		log.Warn().Err(err).Str("tx_id", rec.ID).Msg("ledger status write-through failed")
	}
}

func toStoreRow(rec Record) store.Transaction {
	return store.Transaction{
		ID:          rec.ID,
		SessionID:   rec.SessionID,
		HandNumber:  rec.HandNumber,
		FromAgent:   rec.FromAgent,
		ToAgent:     rec.ToAgent,
		AmountChips: rec.AmountChips,
		AmountValue: rec.AmountValue,
		Kind:        string(rec.Kind),
		Status:      string(rec.Status),
		Signature:   rec.Signature,
		FailReason:  rec.FailReason,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}

func fromStoreRow(row store.Transaction) Record {
	return Record{
		ID:          row.ID,
		SessionID:   row.SessionID,
		HandNumber:  row.HandNumber,
		FromAgent:   row.FromAgent,
		ToAgent:     row.ToAgent,
		AmountChips: row.AmountChips,
		AmountValue: row.AmountValue,
		Kind:        Kind(row.Kind),
		Status:      Status(row.Status),
		Signature:   row.Signature,
		FailReason:  row.FailReason,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}
