package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestCursorUpsertAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, ok, err := store.GetCursor(ctx, CursorID)
	if err != nil {
		t.Fatalf("get cursor: %v", err)
	}
	if ok {
		t.Fatalf("expected no cursor on fresh db")
	}

	if err := store.UpsertCursor(ctx, CursorID, 100); err != nil {
		t.Fatalf("upsert cursor: %v", err)
	}
	block, ok, err := store.GetCursor(ctx, CursorID)
	if err != nil || !ok {
		t.Fatalf("get cursor failed err=%v ok=%v", err, ok)
	}
	if block != 100 {
		t.Fatalf("cursor = %d, want 100", block)
	}

	if err := store.UpsertCursor(ctx, CursorID, 120); err != nil {
		t.Fatalf("upsert cursor update: %v", err)
	}
	block, ok, err = store.GetCursor(ctx, CursorID)
	if err != nil || !ok || block != 120 {
		t.Fatalf("cursor not updated: %d err=%v ok=%v", block, err, ok)
	}
}

func TestRecordDeliveryIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	d := Delivery{
		Key:     "0xabc:3",
		Display: "node_registered",
		TxHash:  "0xabc",
		Block:   100,
	}

	if err := store.RecordDelivery(ctx, d); err != nil {
		t.Fatalf("record delivery: %v", err)
	}
	// Re-recording after a mid-batch crash must be a no-op.
	if err := store.RecordDelivery(ctx, d); err != nil {
		t.Fatalf("repeat record delivery: %v", err)
	}

	out, err := store.Deliveries(ctx, 10)
	if err != nil {
		t.Fatalf("list deliveries: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(out))
	}
	if out[0].Key != d.Key || out[0].Display != d.Display || out[0].Block != d.Block {
		t.Fatalf("unexpected delivery: %+v", out[0])
	}
}

func TestDeliveriesNewestFirstWithLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := uint64(1); i <= 5; i++ {
		err := store.RecordDelivery(ctx, Delivery{
			Key:     string(rune('a' + i)),
			Display: "node_registered",
			TxHash:  "0xabc",
			Block:   i,
		})
		if err != nil {
			t.Fatalf("record delivery %d: %v", i, err)
		}
	}

	out, err := store.Deliveries(ctx, 3)
	if err != nil {
		t.Fatalf("list deliveries: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("deliveries = %d, want 3", len(out))
	}
	if out[0].Block != 5 || out[1].Block != 4 || out[2].Block != 3 {
		t.Fatalf("not newest first: %d %d %d", out[0].Block, out[1].Block, out[2].Block)
	}
}

func TestRecordDeliveryRequiresKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.RecordDelivery(ctx, Delivery{Display: "x"}); err == nil {
		t.Fatalf("expected missing key to fail")
	}
}

func TestPing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("ping failed: %v", err)
	}

	store.Close()
	if err := store.Ping(ctx); err == nil {
		t.Fatalf("expected ping to fail after close")
	}
}
