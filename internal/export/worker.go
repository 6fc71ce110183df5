package export

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"coinshelter/internal/amqp"
	"coinshelter/internal/core"
	"coinshelter/internal/log"
	"coinshelter/internal/records"
)

// Worker consumes coin change events and exports them as spreadsheet rows.
// Rows are buffered and flushed when the batch size is reached or on the
// flush interval, whichever comes first.
type Worker struct {
	store    records.Store
	writer   RowWriter
	logger   *log.Logger
	batch    int
	interval time.Duration

	mu     sync.Mutex
	buffer [][]any
}

func NewWorker(store records.Store, writer RowWriter, batchSize int, interval time.Duration, logger *log.Logger) *Worker {
	if logger == nil {
		cfg := log.DefaultConfig()
		cfg.Component = log.ComponentExport
		logger = log.New(cfg)
	}
	if batchSize < 1 {
		batchSize = 1
	}
	return &Worker{
		store:    store,
		writer:   writer,
		logger:   logger,
		batch:    batchSize,
		interval: interval,
	}
}

// HandleChange resolves a change event into an export row. Created and
// updated events fetch the current record from the store; deleted events
// carry only the id, since the record is gone by the time we see them.
// Returning an error requeues the message.
func (w *Worker) HandleChange(ctx context.Context, msg *amqp.CoinChangeMessage) error {
	if msg == nil {
		return errors.New("nil change message")
	}

	var row []any
	switch msg.Op {
	case amqp.OpDeleted:
		row = deletionRow(msg)
	case amqp.OpCreated, amqp.OpUpdated:
		rec, err := w.store.Get(ctx, msg.ID)
		if err != nil {
			if errors.Is(err, records.ErrNotFound) {
				// Deleted between publish and consume. Nothing to export.
				w.logger.Warn("Skipping change for missing record",
					log.FieldCoinID, msg.ID,
					log.FieldOperation, msg.Op)
				return nil
			}
			return fmt.Errorf("fetch record %s: %w", msg.ID, err)
		}
		row = coinRow(msg, rec)
	default:
		w.logger.Warn("Skipping change with unknown operation",
			log.FieldCoinID, msg.ID,
			log.FieldOperation, msg.Op)
		return nil
	}

	w.mu.Lock()
	w.buffer = append(w.buffer, row)
	full := len(w.buffer) >= w.batch
	w.mu.Unlock()

	if full {
		return w.Flush(ctx)
	}
	return nil
}

// Flush writes all buffered rows. On write failure the rows are kept for
// the next attempt.
func (w *Worker) Flush(ctx context.Context) error {
	w.mu.Lock()
	rows := w.buffer
	w.buffer = nil
	w.mu.Unlock()

	if len(rows) == 0 {
		return nil
	}

	if err := w.writer.AppendRows(ctx, rows); err != nil {
		w.mu.Lock()
		w.buffer = append(rows, w.buffer...)
		w.mu.Unlock()
		return fmt.Errorf("flush %d rows: %w", len(rows), err)
	}

	w.logger.Info("Flushed export rows", log.FieldCount, len(rows))
	return nil
}

// Run flushes the buffer on the configured interval until ctx is
// cancelled, then makes a final flush attempt.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := w.Flush(flushCtx); err != nil {
				w.logger.Error("Final flush failed", log.FieldError, err)
			}
			return ctx.Err()
		case <-ticker.C:
			if err := w.Flush(ctx); err != nil {
				w.logger.Error("Periodic flush failed", log.FieldError, err)
			}
		}
	}
}

// Pending reports the number of buffered rows.
func (w *Worker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.buffer)
}

func coinRow(msg *amqp.CoinChangeMessage, rec core.CoinRecord) []any {
	row := []any{
		msg.Timestamp.Format(time.RFC3339),
		msg.Op,
		rec.ID,
		rec.Name,
		string(rec.Material),
	}
	if rec.Price != nil {
		row = append(row, rec.Price.Euros())
	} else {
		row = append(row, "")
	}
	if rec.Year != nil {
		row = append(row, *rec.Year)
	} else {
		row = append(row, "")
	}
	row = append(row, rec.Country)
	if rec.PurchasedAt.IsEmpty() {
		row = append(row, "")
	} else {
		row = append(row, rec.PurchasedAt.ISO())
	}
	row = append(row, rec.Certificate)
	return row
}

func deletionRow(msg *amqp.CoinChangeMessage) []any {
	return []any{
		msg.Timestamp.Format(time.RFC3339),
		msg.Op,
		msg.ID,
		"", "", "", "", "", "", "",
	}
}
