package controlapiv1

import (
	"reflect"
	"testing"

	"google.golang.org/protobuf/types/known/structpb"
)

func TestReadingStruct(t *testing.T) {
	in := Reading{Kind: "pressure", Valid: true, TimestampMs: 5000, Values: map[string]float64{"pressure_kpa": 101.3}}
	s, err := in.ToStruct()
	if err != nil {
		t.Fatalf("ToStruct: %v", err)
	}
	out, err := ReadingFromStruct(s)
	if err != nil {
		t.Fatalf("ReadingFromStruct: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("expected %+v, got %+v", in, out)
	}
}

func TestStatusStruct(t *testing.T) {
	in := Status{
		Running:       []string{"flush", "pressure"},
		QueueDepth:    3,
		QueueCapacity: 30,
		FlushState:    "sleeping",
		UptimeMs:      1234,
		PeriodsMs:     map[string]int64{"pressure": 5000, "inertial": 1000},
		LiveClients:   1,
	}
	s, err := in.ToStruct()
	if err != nil {
		t.Fatalf("ToStruct: %v", err)
	}
	out := StatusFromStruct(s)
	if !reflect.DeepEqual(in, out) {
		t.Errorf("expected %+v, got %+v", in, out)
	}
	if kinds := out.PeriodKinds(); !reflect.DeepEqual(kinds, []string{"inertial", "pressure"}) {
		t.Errorf("unexpected order %v", kinds)
	}
}

func TestPeriodRequestFromStruct_Missing(t *testing.T) {
	s, _ := PeriodRequest{Kind: "pressure"}.ToStruct()
	delete(s.Fields, "period_ms")
	if _, err := PeriodRequestFromStruct(s); err == nil {
		t.Error("expected an error for a missing period")
	}
}

func TestPeriodRequestFromStruct_OutOfRange(t *testing.T) {
	s, err := structpb.NewStruct(map[string]interface{}{"kind": "pressure", "period_ms": 1e30})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := PeriodRequestFromStruct(s); err == nil {
		t.Error("expected an error for a period beyond int64")
	}
}
