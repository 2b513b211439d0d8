package domain

import "sync"

// LiveFeed fans records out to subscribers. Slow subscribers miss records rather than
// delaying the sampling workers.
type LiveFeed struct {
	mu     sync.Mutex
	subs   map[int]chan LogRecord
	nextID int
}

// Subscribe registers a consumer with a buffer of size records. The returned cancel
// function unregisters it and closes the channel; calling it twice is harmless.
func (f *LiveFeed) Subscribe(size int) (<-chan LogRecord, func()) {
	if size < 1 {
		size = 1
	}
	ch := make(chan LogRecord, size)

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = ch
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
			close(ch)
		})
	}
}

// Publish offers rec to every subscriber without blocking.
func (f *LiveFeed) Publish(rec LogRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- rec:
		default:
		}
	}
}

// Subscribers returns the number of registered consumers.
func (f *LiveFeed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// NewLiveFeed creates a feed without subscribers.
func NewLiveFeed() *LiveFeed {
	return &LiveFeed{subs: make(map[int]chan LogRecord)}
}
