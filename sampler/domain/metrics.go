package domain

import "time"

// Metrics receives pipeline events. Implementations must be safe for concurrent use.
type Metrics interface {
	ReadSucceeded(kind SensorKind)
	ReadFailed(kind SensorKind)
	RecordEnqueued(kind SensorKind, depth int)
	RecordFlushed(kind SensorKind)
	RecordDropped(kind SensorKind)
	RecordsDiscarded(n int)
	FlushCompleted(elapsed time.Duration)
}

// NopMetrics ignores every event.
type NopMetrics struct{}

// ReadSucceeded does nothing.
func (NopMetrics) ReadSucceeded(SensorKind) {}

// ReadFailed does nothing.
func (NopMetrics) ReadFailed(SensorKind) {}

// RecordEnqueued does nothing.
func (NopMetrics) RecordEnqueued(SensorKind, int) {}

// RecordFlushed does nothing.
func (NopMetrics) RecordFlushed(SensorKind) {}

// RecordDropped does nothing.
func (NopMetrics) RecordDropped(SensorKind) {}

// RecordsDiscarded does nothing.
func (NopMetrics) RecordsDiscarded(int) {}

// FlushCompleted does nothing.
func (NopMetrics) FlushCompleted(time.Duration) {}
