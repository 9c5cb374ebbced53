package ledger

import (
	"context"
	"testing"
	"time"

	"stakepit/internal/testutil"
)

func testTransfer(session string, hand int) Transfer {
	return Transfer{
		SessionID:   session,
		HandNumber:  hand,
		FromAgent:   "loser",
		ToAgent:     "winner",
		AmountChips: 150,
		Kind:        KindTransfer,
	}
}

func TestRecordStartsPending(t *testing.T) {
	l := New(nil)
	rec, err := l.Record(context.Background(), testTransfer("s1", 1))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("record must get an id")
	}
	if rec.Status != StatusPending {
		t.Fatalf("new records are pending, got %s", rec.Status)
	}
	if rec.CreatedAt.IsZero() || !rec.CreatedAt.Equal(rec.UpdatedAt) {
		t.Fatalf("timestamps: created=%v updated=%v", rec.CreatedAt, rec.UpdatedAt)
	}
}

func TestStatusTransitions(t *testing.T) {
	ctx := context.Background()
	l := New(nil)
	rec, _ := l.Record(ctx, testTransfer("s1", 1))

	if err := l.MarkProcessing(ctx, rec.ID); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	if err := l.Confirm(ctx, rec.ID, "sig-1"); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	got, _ := l.Get(rec.ID)
	if got.Status != StatusCompleted || got.Signature != "sig-1" {
		t.Fatalf("after confirm: %+v", got)
	}

	// completed is terminal
	if err := l.MarkProcessing(ctx, rec.ID); err != ErrBadTransition {
		t.Fatalf("expected ErrBadTransition, got %v", err)
	}
	if err := l.Fail(ctx, rec.ID, "too late"); err != ErrBadTransition {
		t.Fatalf("expected ErrBadTransition, got %v", err)
	}
}

func TestConfirmDirectlyFromPending(t *testing.T) {
	ctx := context.Background()
	l := New(nil)
	rec, _ := l.Record(ctx, testTransfer("s1", 1))
	if err := l.Confirm(ctx, rec.ID, "sig-2"); err != nil {
		t.Fatalf("Confirm from pending: %v", err)
	}
}

func TestRetryReentersPending(t *testing.T) {
	ctx := context.Background()
	l := New(nil)
	rec, _ := l.Record(ctx, testTransfer("s1", 1))
	if err := l.Fail(ctx, rec.ID, "gateway down"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	got, _ := l.Get(rec.ID)
	if got.Status != StatusFailed || got.FailReason != "gateway down" {
		t.Fatalf("after fail: %+v", got)
	}
	if err := l.Retry(ctx, rec.ID); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	got, _ = l.Get(rec.ID)
	if got.Status != StatusPending || got.FailReason != "" {
		t.Fatalf("retry should clear the failure: %+v", got)
	}
	// retry only applies to failed records
	if err := l.Retry(ctx, rec.ID); err != ErrBadTransition {
		t.Fatalf("expected ErrBadTransition, got %v", err)
	}
}

func TestTransitionUnknownID(t *testing.T) {
	l := New(nil)
	if err := l.Confirm(context.Background(), "nope", "sig"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListBySessionNewestFirst(t *testing.T) {
	ctx := context.Background()
	l := New(nil)
	var last Record
	for i := 1; i <= 3; i++ {
		last, _ = l.Record(ctx, testTransfer("s1", i))
	}
	l.Record(ctx, testTransfer("other", 1))

	rows, err := l.ListBySession(ctx, "s1")
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 records, got %d", len(rows))
	}
	if rows[0].ID != last.ID {
		t.Fatalf("newest record first, got %s want %s", rows[0].ID, last.ID)
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].CreatedAt.After(rows[i-1].CreatedAt) {
			t.Fatal("rows out of order")
		}
	}
}

func TestListBySessionCapped(t *testing.T) {
	ctx := context.Background()
	l := New(nil)
	for i := 0; i < listLimit+20; i++ {
		l.Record(ctx, testTransfer("s1", i))
	}
	rows, err := l.ListBySession(ctx, "s1")
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	if len(rows) != listLimit {
		t.Fatalf("expected the cap of %d, got %d", listLimit, len(rows))
	}
}

func TestMergeLaterUpdateWins(t *testing.T) {
	now := time.Now().UTC()
	stale := Record{ID: "t1", Status: StatusPending, CreatedAt: now, UpdatedAt: now}
	fresh := Record{ID: "t1", Status: StatusCompleted, CreatedAt: now, UpdatedAt: now.Add(time.Second)}
	other := Record{ID: "t2", Status: StatusPending, CreatedAt: now.Add(-time.Minute), UpdatedAt: now.Add(-time.Minute)}

	merged := Merge([]Record{stale, other}, []Record{fresh})
	if len(merged) != 2 {
		t.Fatalf("expected 2 records, got %d", len(merged))
	}
	if merged[0].ID != "t1" || merged[0].Status != StatusCompleted {
		t.Fatalf("later update should win and sort first: %+v", merged[0])
	}

	// merging the same rows again changes nothing
	again := Merge(merged, []Record{fresh, other})
	if len(again) != 2 || again[0].Status != StatusCompleted {
		t.Fatalf("merge not stable: %+v", again)
	}
}

func TestMergeTieBreaksOnID(t *testing.T) {
	now := time.Now().UTC()
	a := Record{ID: "a", CreatedAt: now, UpdatedAt: now}
	b := Record{ID: "b", CreatedAt: now, UpdatedAt: now}
	merged := Merge([]Record{a}, []Record{b})
	if merged[0].ID != "b" || merged[1].ID != "a" {
		t.Fatalf("equal timestamps break ties by id desc: %+v", merged)
	}
}

func TestWriteThroughStore(t *testing.T) {
	st, cleanup := testutil.OpenTestStore(t)
	defer cleanup()

	ctx := context.Background()
	l := New(st)
	rec, err := l.Record(ctx, testTransfer("s-db", 4))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := l.Confirm(ctx, rec.ID, "sig-db"); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	row, err := st.GetTransaction(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if row.Status != string(StatusCompleted) || row.Signature != "sig-db" {
		t.Fatalf("durable row out of sync: %+v", row)
	}

	// a fresh ledger over the same store still serves the history
	fresh := New(st)
	rows, err := fresh.ListBySession(ctx, "s-db")
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != rec.ID {
		t.Fatalf("expected the durable record, got %+v", rows)
	}
}
