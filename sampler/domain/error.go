package domain

import "errors"

var (
	// ErrParse marks adapter output that does not match the expected layout.
	// A parse failure is handled exactly like a failed read.
	ErrParse = errors.New("malformed sensor reading")

	// ErrUnknownKind is returned for kinds that have no worker or no name.
	ErrUnknownKind = errors.New("unknown sensor kind")

	// ErrDeviceNotReady is returned by adapters whose device is absent or not initialised.
	ErrDeviceNotReady = errors.New("device not ready")

	// ErrStoreNotReady is returned when the durable store cannot accept writes.
	ErrStoreNotReady = errors.New("store is not ready")

	// ErrValidation is wrapped by every configuration value constructor.
	ErrValidation = errors.New("validation failed")
)

// ErrPeriodTooShort is returned when a sampling period is below MinPeriod.
var ErrPeriodTooShort = errors.New("sampling period is too short")
