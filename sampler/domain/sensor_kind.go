// Package domain contains the sampling pipeline: sensor workers, the snapshot store,
// the bounded record queue and the batch flush worker, together with the
// collaborator contracts they depend on.
package domain

import (
	"fmt"
	"strings"
)

// SensorKind identifies a category of sensor sampled by a dedicated worker.
type SensorKind int

const (
	// HumidityTemp is a combined humidity and temperature sensor.
	HumidityTemp SensorKind = iota
	// Pressure is a barometric pressure sensor.
	Pressure
	// Inertial is an accelerometer plus gyroscope.
	Inertial
)

// Kinds returns every known kind in reporting order.
func Kinds() []SensorKind {
	return []SensorKind{HumidityTemp, Pressure, Inertial}
}

// String returns the stable name of the kind.
func (k SensorKind) String() string {
	switch k {
	case HumidityTemp:
		return "humidity_temp"
	case Pressure:
		return "pressure"
	case Inertial:
		return "inertial"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Tag returns the short label used in summary lines.
func (k SensorKind) Tag() string {
	switch k {
	case HumidityTemp:
		return "HT"
	case Pressure:
		return "P"
	case Inertial:
		return "IMU"
	}
	return "?"
}

// Known reports whether k is one of Kinds.
func (k SensorKind) Known() bool {
	return k >= HumidityTemp && k <= Inertial
}

// ParseSensorKind accepts a stable name or a short tag, case-insensitively.
func ParseSensorKind(s string) (SensorKind, error) {
	needle := strings.TrimSpace(s)
	for _, k := range Kinds() {
		if strings.EqualFold(needle, k.String()) || strings.EqualFold(needle, k.Tag()) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}
