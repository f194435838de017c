package security

import (
	"sync"

	audit "guardian/pkg/platform/audit"
)

// RingBuffer is a bounded FIFO of pending security events. Overflow evicts
// the oldest entry and counts it as dropped.
type RingBuffer struct {
	mu      sync.Mutex
	slots   []audit.Event
	next    int
	first   int
	size    int
	dropped int64
}

// NewRingBuffer creates a ring buffer with the given capacity.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 10000
	}
	return &RingBuffer{slots: make([]audit.Event, capacity)}
}

// Enqueue adds an event, evicting the oldest when full.
func (b *RingBuffer) Enqueue(event audit.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.size == len(b.slots) {
		b.first = (b.first + 1) % len(b.slots)
		b.size--
		b.dropped++
	}
	b.slots[b.next] = event
	b.next = (b.next + 1) % len(b.slots)
	b.size++
}

// DequeueBatch removes up to n events, oldest first.
func (b *RingBuffer) DequeueBatch(n int) []audit.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	n = min(n, b.size)
	if n == 0 {
		return nil
	}
	out := make([]audit.Event, n)
	for i := range out {
		out[i] = b.slots[b.first]
		b.slots[b.first] = audit.Event{}
		b.first = (b.first + 1) % len(b.slots)
	}
	b.size -= n
	return out
}

func (b *RingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

func (b *RingBuffer) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
