package rtd

import (
	"sync"
)

// WaitGroup coordinates fan-out/fan-in of tasks: Add registers pending
// work, Done marks one unit complete, and Wait blocks until the net
// count returns to zero (spec §4.5, §3).
//
// Unlike sync.WaitGroup, a WaitGroup here does not require Add to
// happen-before the goroutines it waits for are started; it only
// requires that an Add with a positive delta is never called
// concurrently with a Wait that has already observed the counter at
// zero, the same caveat the original C++ WaitGroup and sync.WaitGroup
// both document.
//
// The zero value is a usable WaitGroup with a zero counter.
type WaitGroup struct {
	mu   sync.Mutex
	cv   sync.Cond
	once sync.Once

	n dcounter // [ c, w ]: task counter, waiter count.
}

func (wg *WaitGroup) init() {
	wg.once.Do(func() {
		wg.cv.L = &wg.mu
	})
}

// Add adds delta to the task counter. If the counter becomes negative,
// Add panics: that is always a bug in the caller (spec §4.5, §7). If
// the counter returns to zero while waiters are registered, every
// waiter is woken.
func (wg *WaitGroup) Add(delta int) {
	wg.init()

	c, w := wg.n.Add(int32(delta), 0)
	if c < 0 {
		fatalf("negative WaitGroup counter")
	}
	if c == 0 && w > 0 {
		wg.mu.Lock()
		wg.cv.Broadcast()
		wg.mu.Unlock()
	}
}

// Done decrements the task counter by one. It is shorthand for
// Add(-1).
func (wg *WaitGroup) Done() {
	wg.Add(-1)
}

// Wait blocks until the task counter is zero. If it is already zero,
// Wait returns immediately without registering as a waiter.
func (wg *WaitGroup) Wait() {
	wg.init()

	wg.mu.Lock()
	defer wg.mu.Unlock()

	if c, _ := wg.n.Load(); c == 0 {
		return
	}

	// Register before checking again: Add's wake path only broadcasts
	// (taking wg.mu to do so) when its atomic update sees w > 0, so we
	// must be registered, under wg.mu, before we can safely rely on that
	// broadcast.
	c, _ := wg.n.Add(0, 1)
	for c != 0 {
		wg.cv.Wait()
		c, _ = wg.n.Load()
	}
	wg.n.Add(0, -1)
}
