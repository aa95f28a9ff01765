package rtd

import "fmt"

// Status is a discriminated result code returned by the non-exceptional
// operations on Channel. It is deliberately a small comparable value
// rather than an error, so callers can switch on it without an
// allocation. RingBuffer's Put and Get report failure as a false bool
// instead; StatusDisposed and StatusTimeout name those two causes, but
// no operation in this package returns them.
type Status int

const (
	// StatusOK indicates the operation completed normally.
	StatusOK Status = iota
	// StatusFull indicates a non-blocking push found the buffer full.
	StatusFull
	// StatusEmpty indicates a non-blocking pop found the buffer empty.
	StatusEmpty
	// StatusClosed indicates the channel is closed. For TryPush it is
	// returned immediately; for TryPop it is only returned once the
	// channel is both closed and drained (see StatusClosedEmpty).
	StatusClosed
	// StatusClosedEmpty indicates a blocking Pop found the channel
	// closed with nothing left to drain.
	StatusClosedEmpty
	// StatusDisposed names a RingBuffer operation that observed disposal.
	StatusDisposed
	// StatusTimeout names a RingBuffer Get that timed out before a value
	// became available.
	StatusTimeout
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusFull:
		return "full"
	case StatusEmpty:
		return "empty"
	case StatusClosed:
		return "closed"
	case StatusClosedEmpty:
		return "closed-empty"
	case StatusDisposed:
		return "disposed"
	case StatusTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("rtd.Status(%d)", int(s))
	}
}

// fatalf panics with a message identifying this package as the source,
// for programmer errors spec'd as unrecoverable (negative WaitGroup
// counter, racy timer state, ...).
// These are never returned as Status values: they indicate a bug in
// the calling code, not a condition the caller can react to.
func fatalf(format string, args ...any) {
	panic(fmt.Sprintf("rtdsync: "+format, args...))
}
