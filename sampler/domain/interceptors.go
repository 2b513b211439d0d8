package domain

import (
	"fmt"
	"math"
)

// Interceptor checks or adjusts a value of type K before it is published.
// Returning an error halts the chain and rejects the value.
type Interceptor[K any] interface {
	Apply(msg *K) error
}

// Interceptors applies a sequence of interceptors in order.
type Interceptors[K any] struct {
	Interceptors []Interceptor[K]
}

// Apply runs every interceptor on msg and stops at the first error.
func (i *Interceptors[K]) Apply(msg *K) error {
	for _, interceptor := range i.Interceptors {
		if err := interceptor.Apply(msg); err != nil {
			return err
		}
	}

	return nil
}

// WithInterceptors creates a chain from the given interceptors.
//
//	checks := WithInterceptors[SensorReading](FiniteValues{}, FieldCount{})
//	err := checks.Apply(&reading)
func WithInterceptors[K any](interceptors ...Interceptor[K]) *Interceptors[K] {
	return &Interceptors[K]{Interceptors: interceptors}
}

// FiniteValues rejects readings holding NaN or infinite values.
type FiniteValues struct{}

// Apply implements Interceptor.
func (FiniteValues) Apply(r *SensorReading) error {
	for _, f := range r.Values {
		if math.IsNaN(f.Value) || math.IsInf(f.Value, 0) {
			return fmt.Errorf("%w: %s %s is not finite", ErrParse, r.Kind, f.Name)
		}
	}
	return nil
}

// FieldCount rejects readings whose value count does not match their kind.
type FieldCount struct{}

// Apply implements Interceptor.
func (FieldCount) Apply(r *SensorReading) error {
	if want := len(fieldNames[r.Kind]); len(r.Values) != want {
		return fmt.Errorf("%w: %s has %d values, want %d", ErrParse, r.Kind, len(r.Values), want)
	}
	return nil
}

// DefaultChecks is the chain every sampling worker runs on parsed readings.
func DefaultChecks() *Interceptors[SensorReading] {
	return WithInterceptors[SensorReading](FiniteValues{}, FieldCount{})
}
