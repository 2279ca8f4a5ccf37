// Package buffer provides a generic, thread-safe bounded ring buffer.
//
// PulseBoard uses it for per-device reading history: a fixed-capacity
// buffer that evicts the oldest entry on overflow (DropOldest), with
// statistics always enabled and optional Prometheus metrics via the
// WithMetrics functional option.
package buffer

// Buffer represents a generic bounded buffer parameterized by item type T.
type Buffer[T any] interface {
	// Write adds an item to the buffer. Behavior on a full buffer depends
	// on the overflow policy.
	Write(item T) error

	// Read retrieves and removes the oldest item from the buffer.
	// Returns the zero value and false if the buffer is empty.
	Read() (T, bool)

	// Peek retrieves the oldest item without removing it.
	Peek() (T, bool)

	// Last retrieves the most recently written item without removing it.
	Last() (T, bool)

	// Items returns a copy of the buffer contents in insertion order,
	// oldest first, without consuming them.
	Items() []T

	// Size returns the current number of items in the buffer.
	Size() int

	// Capacity returns the maximum number of items the buffer can hold.
	Capacity() int

	// IsFull returns true if the buffer is at maximum capacity.
	IsFull() bool

	// IsEmpty returns true if the buffer contains no items.
	IsEmpty() bool

	// Clear removes all items from the buffer.
	Clear()

	// Stats returns buffer statistics (always available).
	Stats() *Statistics

	// Close shuts down the buffer; subsequent writes fail.
	Close() error
}

// OverflowPolicy defines how the buffer behaves when it reaches capacity.
type OverflowPolicy int

const (
	// DropOldest removes the oldest item to make room for new items.
	DropOldest OverflowPolicy = iota

	// DropNewest drops new items when the buffer is full.
	DropNewest
)

// String returns a human-readable representation of the overflow policy.
func (p OverflowPolicy) String() string {
	switch p {
	case DropOldest:
		return "DropOldest"
	case DropNewest:
		return "DropNewest"
	default:
		return "Unknown"
	}
}

// DropCallback is invoked with each item discarded by the overflow policy.
type DropCallback[T any] func(item T)

// NewRing creates a new bounded ring buffer with the given capacity.
func NewRing[T any](capacity int, options ...Option[T]) (Buffer[T], error) {
	opts := applyOptions(options...)
	return newRing(capacity, opts)
}
