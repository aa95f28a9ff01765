package rtd

import (
	"sync/atomic"
	"time"
)

// ringSlot is one cell of a RingBuffer's backing array: a value plus a
// sequence number that publishes whether the slot is writable or
// readable for a given ticket (spec §3). The sequence store is a
// release operation and the sequence load is an acquire operation, so
// the value write always happens-before the sequence store that
// publishes it, and a reader's value read always happens-after the
// sequence load that confirmed it is safe to read.
type ringSlot[T any] struct {
	seq atomic.Uint64
	val T
}

// RingBuffer is a bounded lock-free MPMC queue driven by per-slot
// sequence numbers, in the style described by Dmitry Vyukov's bounded
// MPMC queue (spec §3, §4.1). It is the Go counterpart of the original
// source's rtd::RingBuffer<T> (original_source/include/rtd/ringbuf.h).
//
// The zero value is not usable; construct with NewRingBuffer.
type RingBuffer[T any] struct {
	buf  []ringSlot[T]
	mask uint64
	cap  uint64

	enqueuePos atomic.Uint64
	dequeuePos atomic.Uint64
	disposed   atomic.Bool
}

// NewRingBuffer constructs a RingBuffer with capacity rounded up to the
// next power of two ≥ size (spec §3: "capacity is a power of two ≥ the
// requested size"). A size below 2 is treated as 2: with a single slot
// the sequence numbers cannot tell a written slot from a free one.
func NewRingBuffer[T any](size int) *RingBuffer[T] {
	if size < 2 {
		size = 2
	}
	cap := roundUpPow2(uint64(size))
	rb := &RingBuffer[T]{
		buf:  make([]ringSlot[T], cap),
		mask: cap - 1,
		cap:  cap,
	}
	for i := range rb.buf {
		rb.buf[i].seq.Store(uint64(i))
	}
	return rb
}

func roundUpPow2(v uint64) uint64 {
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v |= v >> 32
	v++
	return v
}

// Put reserves the next enqueue ticket and publishes v into its slot.
// It returns false if disposal was observed before a ticket was
// reserved (spec §4.1). While the buffer is full, Put spins until a Get
// frees a slot or the buffer is disposed.
func (rb *RingBuffer[T]) Put(v T) bool {
	pos := rb.enqueuePos.Load()
	for {
		if rb.disposed.Load() {
			return false
		}

		slot := &rb.buf[pos&rb.mask]
		seq := slot.seq.Load()
		diff := int64(seq - pos)

		switch {
		case diff == 0:
			if rb.enqueuePos.CompareAndSwap(pos, pos+1) {
				slot.val = v
				slot.seq.Store(pos + 1)
				return true
			}
			// Lost the race for this ticket; reload and retry with
			// whatever enqueuePos now is.
			pos = rb.enqueuePos.Load()
		case diff < 0:
			// The slot still holds an unread value from the previous
			// wrap: the buffer is full. Keep spinning until a Get frees
			// it or disposal.
			pos = rb.enqueuePos.Load()
		default:
			pos = rb.enqueuePos.Load()
		}
	}
}

// Get reserves the next dequeue ticket once its slot is readable,
// copies the value out, and republishes the slot for the next wrap
// around the buffer. timeout of zero means wait indefinitely (bounded
// only by eventual disposal); a positive timeout gives up and returns
// false once that long has elapsed without success. Get spins rather
// than blocking on a condition variable (spec §4.1).
func (rb *RingBuffer[T]) Get(timeout time.Duration) (T, bool) {
	var start time.Time
	if timeout > 0 {
		start = time.Now()
	}

	pos := rb.dequeuePos.Load()
	for {
		if rb.disposed.Load() {
			var zero T
			return zero, false
		}

		slot := &rb.buf[pos&rb.mask]
		seq := slot.seq.Load()
		diff := int64(seq - (pos + 1))

		switch {
		case diff == 0:
			if rb.dequeuePos.CompareAndSwap(pos, pos+1) {
				v := slot.val
				slot.seq.Store(pos + rb.cap)
				return v, true
			}
			pos = rb.dequeuePos.Load()
		case diff < 0:
			// The slot has not been written for this ticket yet: the
			// buffer is empty. Keep spinning until a Put, a timeout or
			// disposal.
			pos = rb.dequeuePos.Load()
		default:
			pos = rb.dequeuePos.Load()
		}

		if timeout > 0 && time.Since(start) >= timeout {
			var zero T
			return zero, false
		}
	}
}

// Dispose marks the ring buffer disposed. It is monotone and
// idempotent: once disposed, it stays disposed, and calling it again
// has no further effect. All in-progress and future Put/Get calls
// return failure promptly.
func (rb *RingBuffer[T]) Dispose() {
	rb.disposed.Store(true)
}

// IsDisposed reports whether Dispose has been called.
func (rb *RingBuffer[T]) IsDisposed() bool {
	return rb.disposed.Load()
}

// Len returns the number of values currently held. Concurrent Put/Get
// calls may make this a transient overestimate or underestimate, but
// it never drifts from the true invariant 0 ≤ Len ≤ Cap once those
// calls quiesce.
func (rb *RingBuffer[T]) Len() int {
	return int(rb.enqueuePos.Load() - rb.dequeuePos.Load())
}

// Cap returns the ring buffer's actual capacity, rounded up to a power
// of two from the size requested at construction.
func (rb *RingBuffer[T]) Cap() int {
	return int(rb.cap)
}
