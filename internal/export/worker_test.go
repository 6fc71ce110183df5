package export

import (
	"context"
	"errors"
	"testing"
	"time"

	"coinshelter/internal/amqp"
	"coinshelter/internal/core"
	"coinshelter/internal/records/memory"
)

type fakeWriter struct {
	rows [][]any
	err  error
}

func (f *fakeWriter) AppendRows(_ context.Context, rows [][]any) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, rows...)
	return nil
}

func draft(name string, cents int64) core.CoinDraft {
	price := core.Money{Cents: cents}
	return core.CoinDraft{Name: name, Material: core.Gold, Price: &price}
}

func TestHandleChangeFlushesAtBatchSize(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	writer := &fakeWriter{}
	w := NewWorker(store, writer, 2, time.Minute, nil)

	first, err := store.Insert(ctx, "owner", draft("Sovereign", 40000))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	second, err := store.Insert(ctx, "owner", draft("Krugerrand", 185000))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := w.HandleChange(ctx, amqp.NewCoinChangeMessage(first.ID, amqp.OpCreated)); err != nil {
		t.Fatalf("handle first: %v", err)
	}
	if len(writer.rows) != 0 {
		t.Fatalf("expected buffering before batch size, wrote %d rows", len(writer.rows))
	}
	if w.Pending() != 1 {
		t.Fatalf("expected 1 pending row, got %d", w.Pending())
	}

	if err := w.HandleChange(ctx, amqp.NewCoinChangeMessage(second.ID, amqp.OpCreated)); err != nil {
		t.Fatalf("handle second: %v", err)
	}
	if len(writer.rows) != 2 {
		t.Fatalf("expected 2 rows after batch flush, got %d", len(writer.rows))
	}
	if w.Pending() != 0 {
		t.Fatalf("expected empty buffer after flush, got %d", w.Pending())
	}

	row := writer.rows[0]
	if row[2] != first.ID || row[3] != "Sovereign" || row[4] != "Gold" {
		t.Fatalf("unexpected row contents: %v", row)
	}
	if row[5] != 400.0 {
		t.Fatalf("expected price 400.0 euros, got %v", row[5])
	}
}

func TestHandleChangeDeletedNeedsNoRecord(t *testing.T) {
	ctx := context.Background()
	writer := &fakeWriter{}
	w := NewWorker(memory.New(), writer, 1, time.Minute, nil)

	msg := amqp.NewCoinChangeMessage("gone-id", amqp.OpDeleted)
	if err := w.HandleChange(ctx, msg); err != nil {
		t.Fatalf("handle deleted: %v", err)
	}
	if len(writer.rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(writer.rows))
	}
	if writer.rows[0][1] != amqp.OpDeleted || writer.rows[0][2] != "gone-id" {
		t.Fatalf("unexpected deletion row: %v", writer.rows[0])
	}
}

func TestHandleChangeSkipsMissingRecord(t *testing.T) {
	ctx := context.Background()
	writer := &fakeWriter{}
	w := NewWorker(memory.New(), writer, 1, time.Minute, nil)

	if err := w.HandleChange(ctx, amqp.NewCoinChangeMessage("missing", amqp.OpUpdated)); err != nil {
		t.Fatalf("expected missing record to be skipped, got %v", err)
	}
	if len(writer.rows) != 0 || w.Pending() != 0 {
		t.Fatalf("expected no rows for missing record")
	}
}

func TestFlushKeepsRowsOnWriteFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	writer := &fakeWriter{err: errors.New("quota exceeded")}
	w := NewWorker(store, writer, 10, time.Minute, nil)

	rec, err := store.Insert(ctx, "owner", draft("Panda", 52000))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := w.HandleChange(ctx, amqp.NewCoinChangeMessage(rec.ID, amqp.OpCreated)); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if err := w.Flush(ctx); err == nil {
		t.Fatal("expected flush error")
	}
	if w.Pending() != 1 {
		t.Fatalf("expected row retained after failed flush, got %d pending", w.Pending())
	}

	writer.err = nil
	if err := w.Flush(ctx); err != nil {
		t.Fatalf("retry flush: %v", err)
	}
	if len(writer.rows) != 1 || w.Pending() != 0 {
		t.Fatalf("expected retry to drain buffer, rows=%d pending=%d", len(writer.rows), w.Pending())
	}
}
