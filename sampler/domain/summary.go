package domain

import (
	"fmt"
	"strings"
	"time"
)

// Summary renders every reading on one line:
//
//	[12.345] HT[Y] T=24.30C H=55.00% | P[Y]=101.30kPa | IMU[N] A=(0.01,-0.02,9.81) G=(0.00,0.01,-0.01)
func Summary(now time.Duration, readings []SensorReading) string {
	parts := make([]string, 0, len(readings))
	for _, r := range readings {
		switch r.Kind {
		case HumidityTemp:
			t, _ := r.Value("temperature_c")
			h, _ := r.Value("humidity_pct")
			parts = append(parts, fmt.Sprintf("HT[%s] T=%.2fC H=%.2f%%", validMark(r.Valid), t, h))
		case Pressure:
			p, _ := r.Value("pressure_kpa")
			parts = append(parts, fmt.Sprintf("P[%s]=%.2fkPa", validMark(r.Valid), p))
		case Inertial:
			v := make([]float64, 6)
			for i, name := range fieldNames[Inertial] {
				v[i], _ = r.Value(name)
			}
			parts = append(parts, fmt.Sprintf("IMU[%s] A=(%.2f,%.2f,%.2f) G=(%.2f,%.2f,%.2f)",
				validMark(r.Valid), v[0], v[1], v[2], v[3], v[4], v[5]))
		}
	}
	return "[" + FormatUptime(now) + "] " + strings.Join(parts, " | ")
}

func validMark(valid bool) string {
	if valid {
		return "Y"
	}
	return "N"
}
