package infrastructure

import (
	"fmt"
	"sort"
	"strings"

	controlapiv1 "github.com/samoilenko/sensorlog/pkg/controlapi/v1"
)

// FormatReading renders a GetLast response on one line, values sorted by name.
func FormatReading(r controlapiv1.Reading) string {
	names := make([]string, 0, len(r.Values))
	for name := range r.Values {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	valid := "invalid"
	if r.Valid {
		valid = "valid"
	}
	fmt.Fprintf(&b, "%s %s at %d.%03ds", r.Kind, valid, r.TimestampMs/1000, r.TimestampMs%1000)
	for _, name := range names {
		fmt.Fprintf(&b, " %s=%.2f", name, r.Values[name])
	}
	return b.String()
}

// FormatStatus renders a Status response as a few human-readable lines.
func FormatStatus(s controlapiv1.Status) string {
	var b strings.Builder
	running := "none"
	if len(s.Running) > 0 {
		running = strings.Join(s.Running, ", ")
	}
	fmt.Fprintf(&b, "workers: %s\n", running)
	fmt.Fprintf(&b, "queue: %d/%d, flush worker %s\n", s.QueueDepth, s.QueueCapacity, s.FlushState)
	for _, kind := range s.PeriodKinds() {
		fmt.Fprintf(&b, "rate %s: %d ms\n", kind, s.PeriodsMs[kind])
	}
	fmt.Fprintf(&b, "live clients: %d, uptime: %d.%03ds", s.LiveClients, s.UptimeMs/1000, s.UptimeMs%1000)
	return b.String()
}
