package domain

import "context"

// DefaultQueueCapacity is the number of records buffered between sampling and flushing.
const DefaultQueueCapacity = 30

// RecordQueue is a fixed-capacity FIFO shared by all sampling workers and drained by
// the flush worker. Enqueue blocks while the queue is full.
type RecordQueue struct {
	ch chan LogRecord
}

// Enqueue appends rec, blocking until there is room or ctx is done.
func (q *RecordQueue) Enqueue(ctx context.Context, rec LogRecord) error {
	select {
	case q.ch <- rec:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue removes the oldest record, blocking until one exists or ctx is done.
func (q *RecordQueue) Dequeue(ctx context.Context) (LogRecord, error) {
	select {
	case rec := <-q.ch:
		return rec, nil
	case <-ctx.Done():
		return LogRecord{}, ctx.Err()
	}
}

// Count is the number of pending records. The value is advisory under concurrency.
func (q *RecordQueue) Count() int {
	return len(q.ch)
}

// Capacity is the maximum number of pending records.
func (q *RecordQueue) Capacity() int {
	return cap(q.ch)
}

// Discard drops every pending record and returns how many were dropped.
func (q *RecordQueue) Discard() int {
	n := 0
	for {
		select {
		case <-q.ch:
			n++
		default:
			return n
		}
	}
}

// NewRecordQueue creates a queue holding at most capacity records.
func NewRecordQueue(capacity QueueCapacity) *RecordQueue {
	return &RecordQueue{ch: make(chan LogRecord, int(capacity))}
}
