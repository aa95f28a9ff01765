package rtd

import (
	"runtime"
	"sync"
	"time"

	"github.com/blackredscarf/rtdsync/internal/theap"
)

// timerState is the state machine a timer record moves through (spec
// §3, §4.4). fresh is the only legal pre-insert state; removed is
// terminal; deleted is a tombstone the poller collects on its next
// pass over the heap.
type timerState int32

const (
	timerFresh timerState = iota
	timerWaiting
	timerRunning
	timerDeleted
	timerRemoved
)

// timerRecord is one entry in the TimerService's heap. It implements
// theap.Item[*timerRecord] so the heap can order by fire time and
// relocate it on Stop.
type timerRecord struct {
	when   time.Time
	period time.Duration // zero for a one-shot timer, positive for a ticker.
	state  timerState    // guarded by the owning service's lock, except in add (before t enters the heap), Start and IsStopped.

	fire func()
	end  func()

	pos int
}

func (t *timerRecord) Less(other *timerRecord) bool { return t.when.Before(other.when) }
func (t *timerRecord) Pos() int                     { return t.pos }
func (t *timerRecord) SetPos(p int)                 { t.pos = p }

// TimerService is a process-wide-capable min-heap of pending timers
// plus the single background poller goroutine that drives them (spec
// §2, §3, §4.4). The zero value is not usable; construct with
// NewService, or use DefaultService for the lazily-initialized
// package-wide instance.
type TimerService struct {
	mu   sync.Mutex
	cv   sync.Cond
	heap theap.Heap[*timerRecord]

	stop     chan struct{}
	stopOnce sync.Once
}

// NewService constructs a TimerService and starts its poller goroutine.
// Most callers should use DefaultService instead; NewService exists for
// an embedder that wants an independently-owned heap and poller, e.g.
// to Shutdown it without affecting the rest of the process.
func NewService() *TimerService {
	s := &TimerService{stop: make(chan struct{})}
	s.cv.L = &s.mu
	go s.poll()
	return s
}

var (
	defaultService     *TimerService
	defaultServiceOnce sync.Once
)

// DefaultService returns the process-wide TimerService, constructing it
// on first use.
func DefaultService() *TimerService {
	defaultServiceOnce.Do(func() {
		defaultService = NewService()
	})
	return defaultService
}

// Shutdown stops the poller goroutine. It does not fire or remove any
// pending timer; it simply stops observing the heap. Shutdown is
// intended for services constructed with NewService, not the process
// singleton returned by DefaultService.
func (s *TimerService) Shutdown() {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.mu.Lock()
		s.cv.Broadcast()
		s.mu.Unlock()
	})
}

// add inserts t, sweeping deleted entries off the top of the heap first
// (spec §4.4 "Add"). t must be fresh.
func (s *TimerService) add(t *timerRecord) {
	if t.state != timerFresh {
		fatalf("racy use of timers: Add on a timer that is not fresh")
	}
	t.state = timerWaiting

	s.mu.Lock()
	for !s.heap.IsEmpty() && s.heap.Min().state == timerDeleted {
		s.heap.Pop().state = timerRemoved
	}
	s.heap.Push(t)
	s.cv.Broadcast()
	s.mu.Unlock()
}

// stopTimer takes t out of service (spec §4.4 "Stop"): a waiting t is
// marked deleted and left in the heap for the poller to collect, a fresh
// t is marked removed. It reports whether t was stoppable: false means
// it had already fired (one-shot) or already been stopped.
func (s *TimerService) stopTimer(t *timerRecord) bool {
	for {
		s.mu.Lock()
		switch t.state {
		case timerWaiting:
			t.state = timerDeleted
			s.mu.Unlock()
			return true
		case timerDeleted, timerRemoved:
			s.mu.Unlock()
			return false
		case timerFresh:
			t.state = timerRemoved
			s.mu.Unlock()
			return true
		case timerRunning:
			s.mu.Unlock()
			// The poller is running this timer's fire/end actions with
			// the heap lock released; spin until it lands in waiting
			// (ticker) or removed (one-shot).
			runtime.Gosched()
			continue
		default:
			s.mu.Unlock()
			fatalf("racy use of timers: illegal state observed in Stop")
		}
	}
}

// poll is the single background goroutine that drives every timer
// owned by s (spec §4.4 "Poller loop").
func (s *TimerService) poll() {
	for {
		s.mu.Lock()
		until, hasDeadline, shouldRun := s.pollOnce()
		if shouldRun {
			s.runTop()
			s.mu.Unlock()
			continue
		}
		if hasDeadline {
			s.waitUntilLocked(until)
		} else {
			s.waitLocked()
		}
		s.mu.Unlock()

		select {
		case <-s.stop:
			return
		default:
		}
	}
}

// pollOnce inspects the heap's top element under s.mu and reports what
// the poller should do next: run the top timer now (shouldRun), wait
// until a deadline (hasDeadline, until), or wait indefinitely (neither).
// It must be called with s.mu held, and returns with s.mu still held.
func (s *TimerService) pollOnce() (until time.Time, hasDeadline bool, shouldRun bool) {
	for {
		if s.heap.IsEmpty() {
			return time.Time{}, false, false
		}
		top := s.heap.Min()
		switch top.state {
		case timerDeleted:
			s.heap.Pop().state = timerRemoved
			continue
		case timerWaiting:
			now := Now()
			if top.when.After(now) {
				return top.when, true, false
			}
			top.state = timerRunning
			return time.Time{}, false, true
		default:
			fatalf("racy use of timers: poller observed illegal top state")
			return time.Time{}, false, false // unreachable
		}
	}
}

// runTop runs the current heap top, which pollOnce has already marked
// running. It releases s.mu around the fire/end callbacks so that a
// callback starting another timer cannot deadlock against this
// goroutine (spec §4.4 "Running a timer", §9 "Lock released around
// callbacks").
func (s *TimerService) runTop() {
	t := s.heap.Min()
	now := Now()

	if t.period > 0 {
		next := t.when
		for !next.After(now) {
			next = next.Add(t.period)
		}
		s.heap.Pop()
		t.when = next
		s.heap.Push(t)
		t.state = timerWaiting

		s.mu.Unlock()
		t.fire()
		s.mu.Lock()
		return
	}

	s.heap.Pop()
	s.mu.Unlock()
	t.fire()
	t.end()
	s.mu.Lock()
	t.state = timerRemoved
}

func (s *TimerService) waitLocked() {
	s.cv.Wait()
}

func (s *TimerService) waitUntilLocked(until time.Time) {
	d := until.Sub(Now())
	if d <= 0 {
		return
	}
	// sync.Cond has no timed wait; emulate one by releasing s.mu,
	// sleeping (or waking early on a timer-side broadcast via a
	// goroutine that rejoins the lock), and relocking before returning,
	// matching the "wait on the CV until that fire time" contract of
	// spec §4.4 without inventing a second synchronization primitive
	// for what is, from the waiter's point of view, still just a
	// bounded wait on one condition variable.
	done := make(chan struct{})
	timer := time.NewTimer(d)
	defer timer.Stop()

	go func() {
		select {
		case <-timer.C:
			s.mu.Lock()
			s.cv.Broadcast()
			s.mu.Unlock()
		case <-done:
		}
	}()
	s.cv.Wait()
	close(done)
}

// Timer is a one-shot timer handle: a timer record plus the channel its
// fire event is delivered through (spec §3 "Timer handle").
type Timer struct {
	svc *TimerService
	t   *timerRecord
	ch  *Channel[TimePoint]
}

// NewTimer returns a Timer that, once Start is called, fires once after
// d has elapsed by pushing the fire time into its channel and then
// closing it. It uses the process-wide DefaultService.
func NewTimer(d time.Duration) *Timer {
	return DefaultService().NewTimer(d)
}

// NewTimer returns a Timer scheduled against s rather than the
// process-wide default service.
func (s *TimerService) NewTimer(d time.Duration) *Timer {
	ch := NewChannel[TimePoint](1)
	t := &timerRecord{when: Now().Add(d), period: 0, state: timerFresh}
	t.fire = func() { ch.TryPush(Now()) }
	t.end = func() { ch.Close() }
	return &Timer{svc: s, t: t, ch: ch}
}

// Start arms the timer. It panics if called more than once on the same
// handle (spec §7: "Start on an already-started or stopped timer").
func (tm *Timer) Start() *Timer {
	if tm.t.state != timerFresh {
		fatalf("Start called on a timer that has already been started or stopped")
	}
	tm.svc.add(tm.t)
	return tm
}

// Stop cancels the timer before it fires. It reports whether the timer
// was still stoppable; false means it had already fired or already been
// stopped. A successful Stop also closes the timer's channel, so a
// consumer's next Pop reliably observes closed-empty rather than
// blocking forever.
func (tm *Timer) Stop() bool {
	ok := tm.svc.stopTimer(tm.t)
	if ok {
		tm.ch.Close()
	}
	return ok
}

// Channel returns the channel the fire time is pushed into.
func (tm *Timer) Channel() *Channel[TimePoint] {
	return tm.ch
}

// IsStopped reports whether the timer has been stopped or has already
// fired to completion.
func (tm *Timer) IsStopped() bool {
	switch tm.t.state {
	case timerDeleted, timerRemoved:
		return true
	default:
		return false
	}
}

// Ticker is a repeating timer handle: like Timer, but its period is
// non-zero and it re-arms itself after every fire (spec §3 "Ticker
// handles differ only in having a non-zero period").
type Ticker struct {
	Timer
}

// NewTicker returns a Ticker that, once Start is called, fires every d
// by pushing the fire time into its channel on each tick, dropping the
// tick silently if the channel is full (spec §4.4: "Non-blocking push
// is essential... missed ticks are dropped silently"). It uses the
// process-wide DefaultService.
func NewTicker(d time.Duration) *Ticker {
	return DefaultService().NewTicker(d)
}

// NewTicker returns a Ticker scheduled against s rather than the
// process-wide default service.
func (s *TimerService) NewTicker(d time.Duration) *Ticker {
	ch := NewChannel[TimePoint](1)
	t := &timerRecord{when: Now().Add(d), period: d, state: timerFresh}
	t.fire = func() { ch.TryPush(Now()) }
	t.end = func() { ch.Close() }
	return &Ticker{Timer{svc: s, t: t, ch: ch}}
}
