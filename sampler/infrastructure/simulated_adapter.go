// Package infrastructure provides the concrete collaborators of the sampling pipeline:
// simulated sensor adapters, the file store, the MQTT mirror, metrics, the control
// service and application configuration.
package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samoilenko/sensorlog/sampler/domain"
)

// ErrBusTransfer is returned by simulated reads chosen to fail.
var ErrBusTransfer = errors.New("bus transfer failed")

// SimulatedAdapter produces plausible readings in the device text layout. It can be
// configured to fail a fraction of reads, to take time per read and to report its
// device as absent.
type SimulatedAdapter struct {
	kind        domain.SensorKind
	failureRate float64
	latency     time.Duration
	notReady    atomic.Bool

	mu  sync.Mutex
	rnd *rand.Rand
}

// SetNotReady switches the simulated device off or on.
func (s *SimulatedAdapter) SetNotReady(v bool) {
	s.notReady.Store(v)
}

// Init implements domain.Initializer.
func (s *SimulatedAdapter) Init(_ context.Context) error {
	if s.notReady.Load() {
		return fmt.Errorf("%s: %w", s.kind, domain.ErrDeviceNotReady)
	}
	return nil
}

// Read implements domain.SensorAdapter.
func (s *SimulatedAdapter) Read(ctx context.Context) (string, error) {
	if s.notReady.Load() {
		return "", fmt.Errorf("%s: %w", s.kind, domain.ErrDeviceNotReady)
	}
	if s.latency > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.latency):
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failureRate > 0 && s.rnd.Float64() < s.failureRate {
		return "", ErrBusTransfer
	}

	switch s.kind {
	case domain.HumidityTemp:
		return fmt.Sprintf("Temperature: %.1f C, Humidity: %.1f %%\n",
			s.around(24, 3), s.around(55, 10)), nil
	case domain.Pressure:
		return fmt.Sprintf("Pressure: %.1f kPa\n", s.around(101.3, 1.5)), nil
	case domain.Inertial:
		return fmt.Sprintf("Accel: %.2f, %.2f, %.2f | Gyro: %.2f, %.2f, %.2f\n",
			s.around(0, 0.05), s.around(0, 0.05), s.around(9.81, 0.05),
			s.around(0, 0.02), s.around(0, 0.02), s.around(0, 0.02)), nil
	}
	return "", fmt.Errorf("%w: %s", domain.ErrUnknownKind, s.kind)
}

// around returns a value uniformly distributed in center±spread.
func (s *SimulatedAdapter) around(center, spread float64) float64 {
	return center + (s.rnd.Float64()*2-1)*spread
}

// SimulatedAdapterOption customises a SimulatedAdapter.
type SimulatedAdapterOption func(*SimulatedAdapter)

// WithFailureRate makes a fraction (0..1) of reads fail.
func WithFailureRate(rate float64) SimulatedAdapterOption {
	return func(s *SimulatedAdapter) {
		s.failureRate = min(max(rate, 0), 1)
	}
}

// WithLatency makes every read take d.
func WithLatency(d time.Duration) SimulatedAdapterOption {
	return func(s *SimulatedAdapter) {
		s.latency = d
	}
}

// WithSeed makes the generated values reproducible.
func WithSeed(seed uint64) SimulatedAdapterOption {
	return func(s *SimulatedAdapter) {
		s.rnd = rand.New(rand.NewPCG(seed, seed))
	}
}

// WithNotReady starts the adapter with an absent device.
func WithNotReady() SimulatedAdapterOption {
	return func(s *SimulatedAdapter) {
		s.notReady.Store(true)
	}
}

// NewSimulatedAdapter creates a simulated device of kind.
func NewSimulatedAdapter(kind domain.SensorKind, opts ...SimulatedAdapterOption) *SimulatedAdapter {
	s := &SimulatedAdapter{
		kind: kind,
		rnd:  rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
