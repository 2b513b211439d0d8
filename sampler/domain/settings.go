package domain

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// MinPeriod is the shortest accepted sampling period.
const MinPeriod = 100 * time.Millisecond

// BindAddress is a host:port the control server listens on, e.g. ":8081" or "[::1]:8081".
type BindAddress string

// NewBindAddress validates a listen address.
func NewBindAddress(value string) (BindAddress, error) {
	if value == "" {
		return "", fmt.Errorf("%w: bind address must be non-empty", ErrValidation)
	}
	_, port, err := net.SplitHostPort(value)
	if err != nil {
		return "", fmt.Errorf("%w: invalid bind address format: %s", ErrValidation, err.Error())
	}
	if _, err := strconv.Atoi(port); err != nil {
		return "", fmt.Errorf("%w: port must be a number: %s", ErrValidation, port)
	}
	return BindAddress(value), nil
}

// LogPath is the location of the durable record log.
type LogPath string

// NewLogPath rejects empty and directory-like paths.
func NewLogPath(value string) (LogPath, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%w: log path must be non-empty", ErrValidation)
	}
	if strings.HasSuffix(value, "/") {
		return "", fmt.Errorf("%w: log path %q names a directory", ErrValidation, value)
	}
	return LogPath(value), nil
}

// BufferSize is the write buffer of the file store in bytes.
type BufferSize int

// NewBufferSize requires at least one record worth of buffer.
func NewBufferSize(value int) (BufferSize, error) {
	if value < MaxRecordLen {
		return 0, fmt.Errorf("%w: buffer size must be at least %d bytes", ErrValidation, MaxRecordLen)
	}
	return BufferSize(value), nil
}

// FlushInterval is the time the flush worker sleeps between drains.
type FlushInterval time.Duration

// NewFlushInterval requires a positive interval.
func NewFlushInterval(value time.Duration) (FlushInterval, error) {
	if value <= 0 {
		return 0, fmt.Errorf("%w: flush interval must be greater than 0", ErrValidation)
	}
	return FlushInterval(value), nil
}

// QueueCapacity bounds the record queue.
type QueueCapacity int

// NewQueueCapacity requires room for at least one record.
func NewQueueCapacity(value int) (QueueCapacity, error) {
	if value < 1 {
		return 0, fmt.Errorf("%w: queue capacity must be at least 1", ErrValidation)
	}
	return QueueCapacity(value), nil
}

// Period is a sampling period of one worker.
type Period time.Duration

// NewPeriod rejects periods shorter than MinPeriod.
func NewPeriod(value time.Duration) (Period, error) {
	if value < MinPeriod {
		return 0, fmt.Errorf("%w: %w: %s < %s", ErrValidation, ErrPeriodTooShort, value, MinPeriod)
	}
	return Period(value), nil
}

// DefaultPeriod is the out-of-the-box sampling period of kind.
func DefaultPeriod(kind SensorKind) time.Duration {
	switch kind {
	case HumidityTemp:
		return 2 * time.Second
	case Pressure:
		return 5 * time.Second
	default:
		return time.Second
	}
}
