package domain

import (
	"context"
	"time"

	"github.com/looplab/fsm"
)

// Flush worker states and events.
const (
	FlushStateSleeping = "sleeping"
	FlushStateDraining = "draining"

	flushEventDrain = "drain"
	flushEventSleep = "sleep"
)

// FlushWorker periodically drains the record queue into a Store.
type FlushWorker struct {
	queue    *RecordQueue
	store    Store
	interval FlushInterval
	logger   Logger
	metrics  Metrics
	machine  *fsm.FSM
}

// State returns FlushStateSleeping or FlushStateDraining.
func (f *FlushWorker) State() string {
	return f.machine.Current()
}

// Run wakes every interval and drains the queue until ctx is done.
func (f *FlushWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(f.interval))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.Drain(ctx)
		}
	}
}

// Drain appends pending records to the store until the queue is empty or ctx is done.
// A record whose append fails is dropped. It returns the number of records written.
func (f *FlushWorker) Drain(ctx context.Context) int {
	if err := f.machine.Event(context.Background(), flushEventDrain); err != nil {
		f.logger.Error("flush: %s", err.Error())
		return 0
	}
	defer func() {
		if err := f.machine.Event(context.Background(), flushEventSleep); err != nil {
			f.logger.Error("flush: %s", err.Error())
		}
	}()

	started := time.Now()
	written := 0
	for f.queue.Count() > 0 {
		if ctx.Err() != nil {
			break
		}
		rec, err := f.queue.Dequeue(ctx)
		if err != nil {
			break
		}
		if err := f.store.Append(ctx, rec); err != nil {
			f.logger.Error("flush: dropping %s record: %s", rec.Kind, err.Error())
			f.metrics.RecordDropped(rec.Kind)
			continue
		}
		f.metrics.RecordFlushed(rec.Kind)
		written++
	}

	if flusher, ok := f.store.(Flusher); ok && written > 0 {
		if err := flusher.Flush(); err != nil {
			f.logger.Error("flush: sync failed: %s", err.Error())
		}
	}
	f.metrics.FlushCompleted(time.Since(started))
	if written > 0 {
		f.logger.Info("flush: wrote %d records", written)
	}
	return written
}

// NewFlushWorker creates a sleeping flush worker.
func NewFlushWorker(queue *RecordQueue, store Store, interval FlushInterval, logger Logger, metrics Metrics) *FlushWorker {
	if logger == nil {
		logger = NopLogger{}
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &FlushWorker{
		queue:    queue,
		store:    store,
		interval: interval,
		logger:   logger,
		metrics:  metrics,
		machine: fsm.NewFSM(
			FlushStateSleeping,
			fsm.Events{
				{Name: flushEventDrain, Src: []string{FlushStateSleeping}, Dst: FlushStateDraining},
				{Name: flushEventSleep, Src: []string{FlushStateDraining}, Dst: FlushStateSleeping},
			},
			fsm.Callbacks{},
		),
	}
}
