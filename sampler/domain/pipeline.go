package domain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// FlushWorkerName is the handle name of the flush worker in Running.
const FlushWorkerName = "flush"

// Source binds a sensor kind to its adapter and initial sampling period.
type Source struct {
	Kind    SensorKind
	Adapter SensorAdapter
	Period  time.Duration
}

// PipelineConfig wires a Pipeline. Store and at least one Source are required.
type PipelineConfig struct {
	Sources       []Source
	Store         LogStore
	QueueCapacity QueueCapacity
	FlushInterval FlushInterval
	Clock         Clock
	Logger        Logger
	Metrics       Metrics
	Feed          *LiveFeed
}

type workerHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Pipeline owns the snapshot store, the record queue and the workers and exposes the
// lifecycle controls.
type Pipeline struct {
	mu       sync.Mutex
	handles  map[string]*workerHandle
	workers  map[SensorKind]*SamplingWorker
	flusher  *FlushWorker
	snapshot *SnapshotStore
	queue    *RecordQueue
	store    LogStore
	feed     *LiveFeed
	clock    Clock
	logger   Logger
	metrics  Metrics
}

// Start spawns every worker that is not already running. Calling it on a running
// pipeline is a no-op. The snapshot is reset when the pipeline was fully stopped.
func (p *Pipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.handles) == 0 {
		p.snapshot.Reset()
	}

	started := 0
	for kind, w := range p.workers {
		if p.spawn(kind.String(), w.Run) {
			started++
		}
	}
	if p.spawn(FlushWorkerName, p.flusher.Run) {
		started++
	}
	if started > 0 {
		p.logger.Info("pipeline started %d workers", started)
	}
	return nil
}

// spawn starts run under name unless a worker with that name is running. p.mu must be held.
func (p *Pipeline) spawn(name string, run func(context.Context)) bool {
	if _, ok := p.handles[name]; ok {
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &workerHandle{cancel: cancel, done: make(chan struct{})}
	p.handles[name] = h
	go func() {
		defer close(h.done)
		run(ctx)
	}()
	return true
}

// Stop cancels all workers, waits for them and discards every queued record.
// It returns the number of discarded records.
func (p *Pipeline) Stop() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, h := range p.handles {
		h.cancel()
	}
	for name, h := range p.handles {
		<-h.done
		delete(p.handles, name)
	}

	discarded := p.queue.Discard()
	if discarded > 0 {
		p.metrics.RecordsDiscarded(discarded)
		p.logger.Info("pipeline stopped, discarded %d queued records", discarded)
	}
	return discarded
}

// Running returns the sorted names of running workers.
func (p *Pipeline) Running() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.handles))
	for name := range p.handles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRunning reports whether any worker is running.
func (p *Pipeline) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.handles) > 0
}

// GetLast returns a copy of the latest reading of kind.
func (p *Pipeline) GetLast(kind SensorKind) (SensorReading, error) {
	r, ok := p.snapshot.Get(kind)
	if !ok {
		return SensorReading{}, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return r, nil
}

// Snapshot returns copies of every reading ordered by kind.
func (p *Pipeline) Snapshot() []SensorReading {
	return p.snapshot.All()
}

// Summary renders the snapshot as one line stamped with the current uptime.
func (p *Pipeline) Summary() string {
	return Summary(p.clock.Uptime(), p.snapshot.All())
}

// SetPeriod changes the sampling period of kind. Periods below MinPeriod are rejected.
func (p *Pipeline) SetPeriod(kind SensorKind, d time.Duration) error {
	w, ok := p.workers[kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	period, err := NewPeriod(d)
	if err != nil {
		return err
	}
	w.SetPeriod(time.Duration(period))
	p.logger.Info("%s: period set to %s", kind, d)
	return nil
}

// Period returns the sampling period of kind.
func (p *Pipeline) Period(kind SensorKind) (time.Duration, error) {
	w, ok := p.workers[kind]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return w.Period(), nil
}

// ClearLog deletes the durable log.
func (p *Pipeline) ClearLog(ctx context.Context) error {
	if err := p.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear log: %w", err)
	}
	p.logger.Info("log cleared")
	return nil
}

// ReadLog returns up to maxBytes of the durable log; maxBytes <= 0 returns all of it.
func (p *Pipeline) ReadLog(ctx context.Context, maxBytes int64) ([]byte, error) {
	data, err := p.store.ReadLog(ctx, maxBytes)
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	return data, nil
}

// QueueDepth returns the number of records waiting for the next flush.
func (p *Pipeline) QueueDepth() int {
	return p.queue.Count()
}

// QueueCapacity returns the queue bound.
func (p *Pipeline) QueueCapacity() int {
	return p.queue.Capacity()
}

// FlushState returns the state of the flush worker.
func (p *Pipeline) FlushState() string {
	return p.flusher.State()
}

// Feed returns the live record feed.
func (p *Pipeline) Feed() *LiveFeed {
	return p.feed
}

// Uptime returns the pipeline clock reading.
func (p *Pipeline) Uptime() time.Duration {
	return p.clock.Uptime()
}

// NewPipeline validates cfg and builds a stopped pipeline.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Store == nil {
		return nil, errors.New("pipeline requires a store")
	}
	if len(cfg.Sources) == 0 {
		return nil, errors.New("pipeline requires at least one sensor source")
	}
	if cfg.QueueCapacity == 0 {
		cfg.QueueCapacity = DefaultQueueCapacity
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = FlushInterval(20 * time.Second)
	}
	if cfg.Clock == nil {
		cfg.Clock = NewMonotonicClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = NopLogger{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NopMetrics{}
	}
	if cfg.Feed == nil {
		cfg.Feed = NewLiveFeed()
	}

	p := &Pipeline{
		handles:  make(map[string]*workerHandle),
		workers:  make(map[SensorKind]*SamplingWorker, len(cfg.Sources)),
		snapshot: NewSnapshotStore(),
		queue:    NewRecordQueue(cfg.QueueCapacity),
		store:    cfg.Store,
		feed:     cfg.Feed,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
	}

	deps := WorkerDeps{
		Snapshot: p.snapshot,
		Queue:    p.queue,
		Feed:     p.feed,
		Clock:    p.clock,
		Logger:   p.logger,
		Metrics:  p.metrics,
		Checks:   DefaultChecks(),
	}
	for _, src := range cfg.Sources {
		if !src.Kind.Known() {
			return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(src.Kind))
		}
		if src.Adapter == nil {
			return nil, fmt.Errorf("%s: adapter is required", src.Kind)
		}
		if _, dup := p.workers[src.Kind]; dup {
			return nil, fmt.Errorf("%s: duplicate sensor source", src.Kind)
		}
		period := src.Period
		if period <= 0 {
			period = DefaultPeriod(src.Kind)
		}
		p.workers[src.Kind] = NewSamplingWorker(src.Kind, src.Adapter, period, deps)
	}
	p.flusher = NewFlushWorker(p.queue, cfg.Store, cfg.FlushInterval, p.logger, p.metrics)

	return p, nil
}
