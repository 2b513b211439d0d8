// Package controlapiv1 describes the sensorlog control service: procedure names and the
// payloads exchanged over it. Payloads travel as protobuf well-known types so that both
// the daemon and the CLI can use connect without generated stubs.
package controlapiv1

import (
	"fmt"
	"math"
	"sort"

	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified name of the control service.
const ServiceName = "sensorlog.v1.ControlService"

// Procedure paths. Start, Stop, ClearLog, Status and Summary take google.protobuf.Empty.
const (
	StartProcedure     = "/" + ServiceName + "/Start"
	StopProcedure      = "/" + ServiceName + "/Stop"
	ClearLogProcedure  = "/" + ServiceName + "/ClearLog"
	GetLastProcedure   = "/" + ServiceName + "/GetLast"
	StatusProcedure    = "/" + ServiceName + "/Status"
	SetPeriodProcedure = "/" + ServiceName + "/SetPeriod"
	ReadLogProcedure   = "/" + ServiceName + "/ReadLog"
	SummaryProcedure   = "/" + ServiceName + "/Summary"
	LiveProcedure      = "/" + ServiceName + "/Live"
)

// Reading is the GetLast response.
type Reading struct {
	Kind        string
	Valid       bool
	TimestampMs int64
	Values      map[string]float64
}

// ToStruct encodes r.
func (r Reading) ToStruct() (*structpb.Struct, error) {
	values := make(map[string]any, len(r.Values))
	for k, v := range r.Values {
		values[k] = v
	}
	return structpb.NewStruct(map[string]any{
		"kind":         r.Kind,
		"valid":        r.Valid,
		"timestamp_ms": r.TimestampMs,
		"values":       values,
	})
}

// ReadingFromStruct decodes a GetLast response.
func ReadingFromStruct(s *structpb.Struct) (Reading, error) {
	f := s.GetFields()
	kind, ok := f["kind"]
	if !ok {
		return Reading{}, fmt.Errorf("reading: missing kind")
	}
	r := Reading{
		Kind:        kind.GetStringValue(),
		Valid:       f["valid"].GetBoolValue(),
		TimestampMs: int64(f["timestamp_ms"].GetNumberValue()),
		Values:      make(map[string]float64),
	}
	for k, v := range f["values"].GetStructValue().GetFields() {
		r.Values[k] = v.GetNumberValue()
	}
	return r, nil
}

// Status is the Status response.
type Status struct {
	Running       []string
	QueueDepth    int
	QueueCapacity int
	FlushState    string
	UptimeMs      int64
	PeriodsMs     map[string]int64
	LiveClients   int
}

// ToStruct encodes s.
func (s Status) ToStruct() (*structpb.Struct, error) {
	running := make([]any, len(s.Running))
	for i, name := range s.Running {
		running[i] = name
	}
	periods := make(map[string]any, len(s.PeriodsMs))
	for k, v := range s.PeriodsMs {
		periods[k] = v
	}
	return structpb.NewStruct(map[string]any{
		"running":        running,
		"queue_depth":    s.QueueDepth,
		"queue_capacity": s.QueueCapacity,
		"flush_state":    s.FlushState,
		"uptime_ms":      s.UptimeMs,
		"periods_ms":     periods,
		"live_clients":   s.LiveClients,
	})
}

// StatusFromStruct decodes a Status response.
func StatusFromStruct(s *structpb.Struct) Status {
	f := s.GetFields()
	st := Status{
		QueueDepth:    int(f["queue_depth"].GetNumberValue()),
		QueueCapacity: int(f["queue_capacity"].GetNumberValue()),
		FlushState:    f["flush_state"].GetStringValue(),
		UptimeMs:      int64(f["uptime_ms"].GetNumberValue()),
		LiveClients:   int(f["live_clients"].GetNumberValue()),
		PeriodsMs:     make(map[string]int64),
	}
	for _, v := range f["running"].GetListValue().GetValues() {
		st.Running = append(st.Running, v.GetStringValue())
	}
	for k, v := range f["periods_ms"].GetStructValue().GetFields() {
		st.PeriodsMs[k] = int64(v.GetNumberValue())
	}
	return st
}

// PeriodKinds returns the kinds of PeriodsMs in a stable order.
func (s Status) PeriodKinds() []string {
	kinds := make([]string, 0, len(s.PeriodsMs))
	for k := range s.PeriodsMs {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// PeriodRequest is the SetPeriod request.
type PeriodRequest struct {
	Kind     string
	PeriodMs int64
}

// ToStruct encodes p.
func (p PeriodRequest) ToStruct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"kind":      p.Kind,
		"period_ms": p.PeriodMs,
	})
}

// PeriodRequestFromStruct decodes a SetPeriod request.
func PeriodRequestFromStruct(s *structpb.Struct) (PeriodRequest, error) {
	f := s.GetFields()
	kind, ok := f["kind"]
	if !ok {
		return PeriodRequest{}, fmt.Errorf("period request: missing kind")
	}
	period, ok := f["period_ms"]
	if !ok {
		return PeriodRequest{}, fmt.Errorf("period request: missing period_ms")
	}
	ms := period.GetNumberValue()
	if math.IsNaN(ms) || ms >= math.MaxInt64 || ms < math.MinInt64 {
		return PeriodRequest{}, fmt.Errorf("period request: period_ms %v out of range", ms)
	}
	return PeriodRequest{Kind: kind.GetStringValue(), PeriodMs: int64(ms)}, nil
}
