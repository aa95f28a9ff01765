package rtd

import (
	"math/rand"
	"runtime"
)

// Probe is a non-blocking attempt at one specific channel operation,
// usable as a Select alternative (spec §4.3, glossary "Probe"). Obtain
// one from a Channel's TryPushProbe or TryPopProbe.
//
// Probe is implemented by two concrete pointer types rather than a
// general `func() Status` closure, so that constructing one is a single
// small heap allocation holding the probe's own channel pointer and value
// slot — the "small sum type" spec §9 asks for, in place of the
// original C++ source's std::function<int(void)>.
type Probe interface {
	tryOp() Status
}

type pushProbe[T any] struct {
	ch *Channel[T]
	v  T
}

func (p *pushProbe[T]) tryOp() Status {
	return p.ch.TryPush(p.v)
}

type popProbe[T any] struct {
	ch  *Channel[T]
	out *T
}

func (p *popProbe[T]) tryOp() Status {
	v, status := p.ch.TryPop()
	if status == StatusOK && p.out != nil {
		*p.out = v
	}
	return status
}

// TryPushProbe returns a Probe for a non-blocking Push of v on c,
// usable as a Select alternative.
func (c *Channel[T]) TryPushProbe(v T) Probe {
	return &pushProbe[T]{ch: c, v: v}
}

// TryPopProbe returns a Probe for a non-blocking Pop on c, usable as a
// Select alternative. If the probe becomes ready, the popped value is
// written to *out.
func (c *Channel[T]) TryPopProbe(out *T) Probe {
	return &popProbe[T]{ch: c, out: out}
}

// DefaultBranch is the sentinel Select returns when use_default was
// requested in Select and no probe was ready in a polling pass.
const DefaultBranch = -2

// AllClosed is the sentinel Select returns when every probe reported
// closed in the same polling pass.
const AllClosed = -1

// Select polls probes, in a once-shuffled order, until one of them
// reports ready, or every one of them reports closed within a single
// pass, or (if useDefault is set) a pass completes with nothing ready.
// It returns the original index of the first ready probe — the index
// in the probes slice as the caller wrote it, not its position in the
// internal shuffle — or AllClosed, or DefaultBranch (spec §4.3).
//
// The probe order is randomized once per Select call, not once per
// pass, so that a set of probes that are all simultaneously and
// permanently ready does not always favor the same index.
func Select(probes []Probe, useDefault bool) int {
	n := len(probes)
	if n == 0 {
		return AllClosed
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	rand.Shuffle(n, func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	for {
		closedCount := 0
		for _, idx := range order {
			switch probes[idx].tryOp() {
			case StatusOK:
				return idx
			case StatusClosed:
				closedCount++
			}
		}
		if closedCount == n {
			return AllClosed
		}
		if useDefault {
			return DefaultBranch
		}
		// Nothing was ready this pass and the caller wants to block;
		// yield rather than spin the core flat out (spec §4.3 permits,
		// but does not require, a short backoff between passes).
		runtime.Gosched()
	}
}
