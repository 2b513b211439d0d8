package domain

import (
	"fmt"
	"strconv"
	"strings"
)

var fieldNames = map[SensorKind][]string{
	HumidityTemp: {"temperature_c", "humidity_pct"},
	Pressure:     {"pressure_kpa"},
	Inertial:     {"ax", "ay", "az", "gx", "gy", "gz"},
}

// FieldNames returns the ordered value names produced for kind.
func FieldNames(kind SensorKind) []string {
	return append([]string(nil), fieldNames[kind]...)
}

// ParseReading turns the text emitted by a sensor adapter into typed fields.
//
// Accepted layouts (trailing newline optional):
//
//	Temperature: 24.3 C, Humidity: 55.0 %
//	Pressure: 101.3 kPa
//	Accel: 0.01, -0.02, 9.81 | Gyro: 0.00, 0.01, -0.01
func ParseReading(kind SensorKind, text string) ([]Field, error) {
	line := strings.TrimSpace(text)

	var (
		values []float64
		ok     bool
	)
	switch kind {
	case HumidityTemp:
		values, ok = parseHumidityTemp(line)
	case Pressure:
		values, ok = parsePressure(line)
	case Inertial:
		values, ok = parseInertial(line)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s: %q", ErrParse, kind, line)
	}

	names := fieldNames[kind]
	fields := make([]Field, len(names))
	for i, name := range names {
		fields[i] = Field{Name: name, Value: values[i]}
	}
	return fields, nil
}

func parseHumidityTemp(line string) ([]float64, bool) {
	parts := strings.Split(line, ",")
	if len(parts) != 2 {
		return nil, false
	}
	t, ok := labeledValue(parts[0], "Temperature:", "C")
	if !ok {
		return nil, false
	}
	h, ok := labeledValue(parts[1], "Humidity:", "%")
	if !ok {
		return nil, false
	}
	return []float64{t, h}, true
}

func parsePressure(line string) ([]float64, bool) {
	p, ok := labeledValue(line, "Pressure:", "kPa")
	if !ok {
		return nil, false
	}
	return []float64{p}, true
}

func parseInertial(line string) ([]float64, bool) {
	groups := strings.Split(line, "|")
	if len(groups) != 2 {
		return nil, false
	}
	accel, ok := labeledTriple(groups[0], "Accel:")
	if !ok {
		return nil, false
	}
	gyro, ok := labeledTriple(groups[1], "Gyro:")
	if !ok {
		return nil, false
	}
	return append(accel, gyro...), true
}

// labeledValue parses "<label> <number> <unit>".
func labeledValue(s, label, unit string) (float64, bool) {
	tokens := strings.Fields(s)
	if len(tokens) != 3 || tokens[0] != label || tokens[2] != unit {
		return 0, false
	}
	v, err := strconv.ParseFloat(tokens[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// labeledTriple parses "<label> <number>, <number>, <number>".
func labeledTriple(s, label string) ([]float64, bool) {
	rest, found := strings.CutPrefix(strings.TrimSpace(s), label)
	if !found {
		return nil, false
	}
	parts := strings.Split(rest, ",")
	if len(parts) != 3 {
		return nil, false
	}
	out := make([]float64, 0, 3)
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, false
		}
		out = append(out, v)
	}
	return out, true
}
