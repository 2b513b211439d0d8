package domain

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// WorkerDeps are the shared collaborators handed to every sampling worker.
type WorkerDeps struct {
	Snapshot *SnapshotStore
	Queue    *RecordQueue
	Feed     *LiveFeed
	Clock    Clock
	Logger   Logger
	Metrics  Metrics
	Checks   *Interceptors[SensorReading]
}

// SamplingWorker reads one sensor kind at its own period, publishes every successful
// reading to the snapshot store and enqueues it for the durable log.
type SamplingWorker struct {
	kind          SensorKind
	adapter       SensorAdapter
	period        atomic.Int64
	periodChanged chan struct{}
	deps          WorkerDeps
}

// Kind returns the sensor kind sampled by the worker.
func (w *SamplingWorker) Kind() SensorKind {
	return w.kind
}

// Period returns the current sampling period.
func (w *SamplingWorker) Period() time.Duration {
	return time.Duration(w.period.Load())
}

// SetPeriod changes the sampling period. A running worker picks it up at its next wait.
func (w *SamplingWorker) SetPeriod(d time.Duration) {
	w.period.Store(int64(d))
	select {
	case w.periodChanged <- struct{}{}:
	default:
	}
}

// Run samples until ctx is done. The first cycle starts immediately.
func (w *SamplingWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.Period())
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return
		}
		_ = w.cycle(ctx)
		if !w.wait(ctx, ticker) {
			return
		}
	}
}

func (w *SamplingWorker) wait(ctx context.Context, ticker *time.Ticker) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case <-w.periodChanged:
			ticker.Reset(w.Period())
		case <-ticker.C:
			return true
		}
	}
}

// cycle performs one read/parse/publish round.
func (w *SamplingWorker) cycle(ctx context.Context) error {
	ts := w.deps.Clock.Uptime()
	text, err := SafeCall(func() (string, error) { return w.adapter.Read(ctx) }, w.deps.Logger)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.fail(err)
		return err
	}

	fields, err := ParseReading(w.kind, text)
	if err != nil {
		w.fail(err)
		return err
	}
	reading := SensorReading{Kind: w.kind, Values: fields, Valid: true, Timestamp: ts}
	if w.deps.Checks != nil {
		if err := w.deps.Checks.Apply(&reading); err != nil {
			w.fail(err)
			return err
		}
	}

	w.deps.Snapshot.Update(w.kind, reading)
	w.deps.Metrics.ReadSucceeded(w.kind)

	rec := NewLogRecord(reading, text)
	if err := w.deps.Queue.Enqueue(ctx, rec); err != nil {
		return err
	}
	w.deps.Metrics.RecordEnqueued(w.kind, w.deps.Queue.Count())
	if w.deps.Feed != nil {
		w.deps.Feed.Publish(rec)
	}
	return nil
}

func (w *SamplingWorker) fail(err error) {
	w.deps.Snapshot.MarkInvalid(w.kind)
	w.deps.Metrics.ReadFailed(w.kind)
	if errors.Is(err, ErrParse) {
		w.deps.Logger.Error("%s: discarded reading: %s", w.kind, err.Error())
		return
	}
	w.deps.Logger.Error("%s: read failed: %s", w.kind, err.Error())
}

// NewSamplingWorker creates a worker for kind. Missing optional deps are replaced by no-ops.
func NewSamplingWorker(kind SensorKind, adapter SensorAdapter, period time.Duration, deps WorkerDeps) *SamplingWorker {
	if deps.Logger == nil {
		deps.Logger = NopLogger{}
	}
	if deps.Metrics == nil {
		deps.Metrics = NopMetrics{}
	}
	if deps.Clock == nil {
		deps.Clock = NewMonotonicClock()
	}
	w := &SamplingWorker{
		kind:          kind,
		adapter:       adapter,
		periodChanged: make(chan struct{}, 1),
		deps:          deps,
	}
	w.period.Store(int64(period))
	return w
}
