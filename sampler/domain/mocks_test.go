package domain

import (
	"context"
	"errors"
	"sync"
	"time"
)

type mockLogger struct {
	mu       sync.Mutex
	messages []string
}

func (m *mockLogger) Info(_ string, _ ...interface{}) {}

func (m *mockLogger) Error(msg string, _ ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

func (m *mockLogger) errorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Duration
}

func (c *fixedClock) Uptime() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) set(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = d
}

// scriptedAdapter returns its outputs in order and repeats the last one.
type scriptedAdapter struct {
	mu      sync.Mutex
	outputs []adapterOutput
	calls   int
}

type adapterOutput struct {
	text string
	err  error
}

func (a *scriptedAdapter) Read(_ context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	i := a.calls
	if i >= len(a.outputs) {
		i = len(a.outputs) - 1
	}
	a.calls++
	out := a.outputs[i]
	return out.text, out.err
}

func (a *scriptedAdapter) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func okAdapter(text string) *scriptedAdapter {
	return &scriptedAdapter{outputs: []adapterOutput{{text: text}}}
}

func failingAdapter() *scriptedAdapter {
	return &scriptedAdapter{outputs: []adapterOutput{{err: errors.New("i2c transaction failed")}}}
}

// blockingAdapter never completes a read before cancellation.
type blockingAdapter struct{}

func (blockingAdapter) Read(ctx context.Context) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

type panickingAdapter struct{}

func (panickingAdapter) Read(_ context.Context) (string, error) {
	panic("bus fault")
}

// memoryStore records appended lines and can be told to fail specific appends.
type memoryStore struct {
	mu      sync.Mutex
	lines   []string
	failOn  map[int]bool
	appends int
	flushes int
	cleared int
}

func (s *memoryStore) Append(_ context.Context, rec LogRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.appends
	s.appends++
	if s.failOn[n] {
		return errors.New("disk full")
	}
	s.lines = append(s.lines, rec.Line)
	return nil
}

func (s *memoryStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	return nil
}

func (s *memoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	s.cleared++
	return nil
}

func (s *memoryStore) ReadLog(_ context.Context, maxBytes int64) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []byte
	for _, l := range s.lines {
		out = append(out, l...)
		out = append(out, '\n')
	}
	if maxBytes > 0 && int64(len(out)) > maxBytes {
		out = out[:maxBytes]
	}
	return out, nil
}

func (s *memoryStore) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.lines...)
}

const (
	htText  = "Temperature: 24.3 C, Humidity: 55.0 %\n"
	pText   = "Pressure: 101.3 kPa\n"
	imuText = "Accel: 0.01, -0.02, 9.81 | Gyro: 0.00, 0.01, -0.01\n"
)

func testDeps(clock Clock, capacity int) (WorkerDeps, *mockLogger) {
	logger := &mockLogger{}
	return WorkerDeps{
		Snapshot: NewSnapshotStore(),
		Queue:    NewRecordQueue(QueueCapacity(capacity)),
		Feed:     NewLiveFeed(),
		Clock:    clock,
		Logger:   logger,
		Metrics:  NopMetrics{},
		Checks:   DefaultChecks(),
	}, logger
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
