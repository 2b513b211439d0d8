package domain

import "time"

// Field is one named value of a reading, e.g. temperature_c.
type Field struct {
	Name  string
	Value float64
}

// SensorReading is the latest observation of one sensor kind.
// Timestamp is the uptime at which the read was issued.
type SensorReading struct {
	Kind      SensorKind
	Values    []Field
	Valid     bool
	Timestamp time.Duration
}

// Clone returns a copy that shares no memory with r.
func (r SensorReading) Clone() SensorReading {
	r.Values = cloneFields(r.Values)
	return r
}

// Value looks up a field by name.
func (r SensorReading) Value(name string) (float64, bool) {
	for _, f := range r.Values {
		if f.Name == name {
			return f.Value, true
		}
	}
	return 0, false
}

func cloneFields(fields []Field) []Field {
	if fields == nil {
		return nil
	}
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}
