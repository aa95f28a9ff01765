package rtd

import (
	"sync/atomic"
)

// dcounter packs two related int32 counters into one atomic uint64 so
// that both can be updated or read together without a separate lock.
// WaitGroup uses it to hold its task counter and waiter count (spec §3,
// §4.5): registering a waiter and observing the task counter must be
// consistent with each other, or a Done() racing a Wait() can signal
// before the waiter has registered and the wakeup is lost.
//
// Adapted from the teacher's dual-counter-with-ticket-generation
// (xsync's counter.go): the generation bits there exist to compare
// monotonically growing ticket numbers across 30-bit wraparound, which
// is specific to xsync's fair-notification-list use case. A WaitGroup's
// counter pair never needs cross-generation comparison, so this version
// uses the full 32 bits of each half as a plain two's-complement int32
// and drops comparebits/equalbits/the generation table entirely.
type dcounter struct {
	bits uint64
}

// Add atomically adds delta1 to the left half and delta2 to the right
// half and returns the resulting halves.
func (d *dcounter) Add(delta1, delta2 int32) (int32, int32) {
	for {
		bits := atomic.LoadUint64(&d.bits)
		a, b := split(bits)
		r1 := a + delta1
		r2 := b + delta2
		next := join(r1, r2)
		if atomic.CompareAndSwapUint64(&d.bits, bits, next) {
			return r1, r2
		}
	}
}

// Store atomically stores both halves.
func (d *dcounter) Store(a, b int32) {
	atomic.StoreUint64(&d.bits, join(a, b))
}

// Load atomically loads both halves.
func (d *dcounter) Load() (a, b int32) {
	return split(atomic.LoadUint64(&d.bits))
}

func join(a, b int32) uint64 {
	return uint64(uint32(a))<<32 | uint64(uint32(b))
}

func split(v uint64) (a, b int32) {
	return int32(uint32(v >> 32)), int32(uint32(v))
}
