package domain

import (
	"context"
	"sync"
)

// Store accepts flushed records. Implementations append Line plus a newline.
type Store interface {
	Append(ctx context.Context, rec LogRecord) error
}

// Flusher is implemented by stores that buffer writes. Flush is called once per drain.
type Flusher interface {
	Flush() error
}

// LogStore is the durable log behind the pipeline.
type LogStore interface {
	Store
	// Clear removes the log. A missing log is not an error.
	Clear(ctx context.Context) error
	// ReadLog returns up to maxBytes from the start of the log; maxBytes <= 0 means everything.
	ReadLog(ctx context.Context, maxBytes int64) ([]byte, error)
}

// MirrorBacklog is how many records a mirror may fall behind the primary store before
// further records for it are dropped.
const MirrorBacklog = 64

// mirrorLane feeds one mirror from its own goroutine.
type mirrorLane struct {
	store   Store
	records chan LogRecord
}

// TeeStore writes every record to a primary LogStore and hands it to mirrors without
// waiting for them. Only primary failures are reported; mirror failures and backlog
// overflows are logged.
type TeeStore struct {
	LogStore
	lanes     []*mirrorLane
	logger    Logger
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Append writes rec to the primary store and, if that succeeds, queues it for every mirror.
func (t *TeeStore) Append(ctx context.Context, rec LogRecord) error {
	if err := t.LogStore.Append(ctx, rec); err != nil {
		return err
	}
	for _, lane := range t.lanes {
		select {
		case lane.records <- rec:
		default:
			t.logger.Error("mirror backlog full, dropping %s record", rec.Kind)
		}
	}
	return nil
}

// Flush flushes the primary store if it buffers.
func (t *TeeStore) Flush() error {
	if f, ok := t.LogStore.(Flusher); ok {
		return f.Flush()
	}
	return nil
}

// Close stops the mirror goroutines. Records still waiting for a mirror are abandoned.
// The primary store is not closed.
func (t *TeeStore) Close() {
	t.closeOnce.Do(func() {
		t.cancel()
		t.wg.Wait()
	})
}

func (t *TeeStore) runLane(ctx context.Context, lane *mirrorLane) {
	defer t.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case rec := <-lane.records:
			if err := lane.store.Append(ctx, rec); err != nil && ctx.Err() == nil {
				t.logger.Error("mirror append failed: %s", err.Error())
			}
		}
	}
}

// NewTeeStore combines primary with zero or more mirrors. Each mirror is fed by its own
// goroutine until Close is called.
func NewTeeStore(primary LogStore, logger Logger, mirrors ...Store) *TeeStore {
	if logger == nil {
		logger = NopLogger{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := &TeeStore{LogStore: primary, logger: logger, cancel: cancel}
	for _, m := range mirrors {
		lane := &mirrorLane{store: m, records: make(chan LogRecord, MirrorBacklog)}
		t.lanes = append(t.lanes, lane)
		t.wg.Add(1)
		go t.runLane(ctx, lane)
	}
	return t
}
