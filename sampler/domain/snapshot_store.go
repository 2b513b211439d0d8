package domain

import "sync"

// SnapshotStore keeps the latest reading of every sensor kind.
// A single mutex guards the whole group; critical sections only copy fields.
type SnapshotStore struct {
	mu      sync.Mutex
	entries map[SensorKind]SensorReading
}

// Reset recreates an invalid, empty entry for every known kind.
func (s *SnapshotStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range Kinds() {
		s.entries[k] = SensorReading{Kind: k}
	}
}

// Update replaces the entry for kind with a copy of reading.
func (s *SnapshotStore) Update(kind SensorKind, reading SensorReading) {
	reading = reading.Clone()
	reading.Kind = kind

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[kind] = reading
}

// MarkInvalid clears the validity flag of kind, keeping the last values and timestamp.
func (s *SnapshotStore) MarkInvalid(kind SensorKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.entries[kind]
	entry.Kind = kind
	entry.Valid = false
	s.entries[kind] = entry
}

// Get returns a copy of the entry for kind.
func (s *SnapshotStore) Get(kind SensorKind) (SensorReading, bool) {
	s.mu.Lock()
	entry, ok := s.entries[kind]
	s.mu.Unlock()
	if !ok {
		return SensorReading{}, false
	}
	return entry.Clone(), true
}

// All returns copies of every entry ordered by kind.
func (s *SnapshotStore) All() []SensorReading {
	out := make([]SensorReading, 0, len(Kinds()))
	for _, k := range Kinds() {
		if entry, ok := s.Get(k); ok {
			out = append(out, entry)
		}
	}
	return out
}

// NewSnapshotStore creates a store with an invalid entry for every kind.
func NewSnapshotStore() *SnapshotStore {
	s := &SnapshotStore{entries: make(map[SensorKind]SensorReading, len(Kinds()))}
	s.Reset()
	return s
}
