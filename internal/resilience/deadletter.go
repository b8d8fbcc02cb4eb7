package resilience

import (
	"sync"
	"time"
)

// DeadLetter is one permanently failed work item with its full error context.
type DeadLetter struct {
	RunID     string
	AssetName string
	Attempts  int
	Err       error
	FailedAt  time.Time
}

// DeadLetterQueue is a bounded buffer of permanently failed items. When the
// buffer is full the oldest item is evicted first. Items stay available for
// inspection or replay by an operator.
type DeadLetterQueue struct {
	mu       sync.Mutex
	capacity int
	items    []DeadLetter
}

// NewDeadLetterQueue creates a queue holding at most capacity items. Values
// below 1 fall back to a capacity of 1.
func NewDeadLetterQueue(capacity int) *DeadLetterQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &DeadLetterQueue{capacity: capacity}
}

// Push appends a failed item, evicting the oldest entry when full.
func (q *DeadLetterQueue) Push(item DeadLetter) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == q.capacity {
		copy(q.items, q.items[1:])
		q.items = q.items[:len(q.items)-1]
	}
	q.items = append(q.items, item)
}

// Items returns a copy of the queued items, oldest first.
func (q *DeadLetterQueue) Items() []DeadLetter {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]DeadLetter, len(q.items))
	copy(out, q.items)
	return out
}

// Drain removes and returns all queued items, oldest first. Replay tooling
// uses it to take ownership of the failures it is about to re-execute.
func (q *DeadLetterQueue) Drain() []DeadLetter {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.items
	q.items = nil
	return out
}

// Len reports the number of queued items.
func (q *DeadLetterQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
