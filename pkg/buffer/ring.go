package buffer

import (
	"sync"

	"github.com/c360/pulseboard/errors"
)

// ring is a thread-safe circular buffer with a configurable overflow policy.
type ring[T any] struct {
	mu       sync.RWMutex
	items    []T
	capacity int
	size     int
	head     int // next write position
	tail     int // next read position
	stats    *Statistics
	metrics  *bufferMetrics // optional Prometheus metrics
	opts     *bufferOptions[T]
	closed   bool
}

// newRing creates a new ring buffer instance.
// Returns an error if metrics registration fails when requested.
func newRing[T any](capacity int, opts *bufferOptions[T]) (*ring[T], error) {
	if capacity <= 0 {
		capacity = 1
	}

	// Stats are always collected
	stats := NewStatistics()

	var metrics *bufferMetrics
	if opts.metricsReg != nil && opts.metricsPrefix != "" {
		var err error
		metrics, err = newBufferMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.WrapTransient(err, "buffer", "newRing", "metrics registration")
		}
	}

	return &ring[T]{
		items:    make([]T, capacity),
		capacity: capacity,
		stats:    stats,
		metrics:  metrics,
		opts:     opts,
	}, nil
}

// Write adds an item to the buffer according to the overflow policy.
func (b *ring[T]) Write(item T) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errors.WrapInvalid(errors.ErrAlreadyStopped, "Buffer", "Write", "buffer closed")
	}

	if b.size == b.capacity {
		switch b.opts.overflowPolicy {
		case DropOldest:
			// Evict the oldest item to make room
			droppedItem := b.items[b.tail]
			b.tail = (b.tail + 1) % b.capacity
			b.size--

			b.stats.Overflow()
			b.stats.Drop()
			if b.metrics != nil {
				b.metrics.recordOverflow()
				b.metrics.recordDrop()
			}

			if b.opts.dropCallback != nil {
				// Call dropCallback outside the lock to avoid deadlock
				defer b.opts.dropCallback(droppedItem)
			}

		case DropNewest:
			b.stats.Overflow()
			b.stats.Drop()
			if b.metrics != nil {
				b.metrics.recordOverflow()
				b.metrics.recordDrop()
			}

			if b.opts.dropCallback != nil {
				defer b.opts.dropCallback(item)
			}
			return nil
		}
	}

	b.items[b.head] = item
	b.head = (b.head + 1) % b.capacity
	b.size++

	b.stats.Write()
	b.stats.UpdateSize(int64(b.size))
	if b.metrics != nil {
		b.metrics.recordWrite(b.size, b.capacity)
	}

	return nil
}

// Read retrieves and removes the oldest item from the buffer.
func (b *ring[T]) Read() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var zero T
	if b.size == 0 {
		return zero, false
	}

	item := b.items[b.tail]
	b.items[b.tail] = zero // clear for GC
	b.tail = (b.tail + 1) % b.capacity
	b.size--

	b.stats.Read()
	b.stats.UpdateSize(int64(b.size))
	if b.metrics != nil {
		b.metrics.recordRead(b.size, b.capacity)
	}

	return item, true
}

// Peek retrieves the oldest item without removing it.
func (b *ring[T]) Peek() (T, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var zero T
	if b.size == 0 {
		return zero, false
	}

	b.stats.Peek()
	return b.items[b.tail], true
}

// Last retrieves the most recently written item without removing it.
func (b *ring[T]) Last() (T, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var zero T
	if b.size == 0 {
		return zero, false
	}

	b.stats.Peek()
	last := (b.head - 1 + b.capacity) % b.capacity
	return b.items[last], true
}

// Items returns a copy of the buffer contents, oldest first.
func (b *ring[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]T, b.size)
	for i := 0; i < b.size; i++ {
		result[i] = b.items[(b.tail+i)%b.capacity]
	}
	return result
}

// Size returns the current number of items in the buffer.
func (b *ring[T]) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Capacity returns the maximum number of items the buffer can hold.
func (b *ring[T]) Capacity() int {
	return b.capacity // immutable, no lock needed
}

// IsFull returns true if the buffer is at maximum capacity.
func (b *ring[T]) IsFull() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size == b.capacity
}

// IsEmpty returns true if the buffer contains no items.
func (b *ring[T]) IsEmpty() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size == 0
}

// Clear removes all items from the buffer.
func (b *ring[T]) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	var zero T

	if b.opts.dropCallback != nil {
		itemsToDrop := make([]T, b.size)
		for i := 0; i < b.size; i++ {
			itemsToDrop[i] = b.items[(b.tail+i)%b.capacity]
		}
		// Call callbacks outside the lock to avoid deadlock
		defer func() {
			for _, item := range itemsToDrop {
				b.opts.dropCallback(item)
			}
		}()
	}

	for i := 0; i < b.capacity; i++ {
		b.items[i] = zero
	}

	b.head = 0
	b.tail = 0
	b.size = 0

	b.stats.UpdateSize(0)
	if b.metrics != nil {
		b.metrics.updateSize(0, b.capacity)
	}
}

// Stats returns buffer statistics.
func (b *ring[T]) Stats() *Statistics {
	return b.stats
}

// Close shuts down the buffer; subsequent writes fail.
func (b *ring[T]) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
