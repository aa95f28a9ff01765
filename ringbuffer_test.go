package rtd

import (
	"testing"
	"time"
)

func TestRingBufferCapacityRoundsUpToPowerOfTwo(t *testing.T) {
	rb := NewRingBuffer[int](6)
	if got := rb.Cap(); got != 8 {
		t.Fatalf("Cap() = %d; want 8", got)
	}
}

func TestRingBufferPutGetOrderPreserving(t *testing.T) {
	rb := NewRingBuffer[int](4)
	for i := 0; i < 4; i++ {
		if !rb.Put(i) {
			t.Fatalf("Put(%d) failed", i)
		}
	}
	for i := 0; i < 4; i++ {
		v, ok := rb.Get(0)
		if !ok || v != i {
			t.Fatalf("Get() = (%d, %v); want (%d, true)", v, ok, i)
		}
	}
}

func TestRingBufferLenBounds(t *testing.T) {
	rb := NewRingBuffer[int](4)
	if rb.Len() != 0 {
		t.Fatalf("Len() = %d; want 0", rb.Len())
	}
	rb.Put(1)
	rb.Put(2)
	if got := rb.Len(); got != 2 {
		t.Fatalf("Len() = %d; want 2", got)
	}
	rb.Get(0)
	if got := rb.Len(); got != 1 {
		t.Fatalf("Len() = %d; want 1", got)
	}
}

func TestRingBufferGetTimesOutWhenEmpty(t *testing.T) {
	rb := NewRingBuffer[int](4)
	start := time.Now()
	_, ok := rb.Get(50 * time.Millisecond)
	if ok {
		t.Fatal("Get() on empty ring buffer succeeded; want timeout")
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("Get() returned after %v; want >= 50ms", elapsed)
	}
}

func TestRingBufferDisposeIsIdempotentAndTerminal(t *testing.T) {
	rb := NewRingBuffer[int](4)
	rb.Put(1)
	rb.Dispose()
	rb.Dispose() // must not panic.

	if !rb.IsDisposed() {
		t.Fatal("IsDisposed() false after Dispose")
	}
	if rb.Put(2) {
		t.Fatal("Put() succeeded after Dispose")
	}
	if _, ok := rb.Get(0); ok {
		t.Fatal("Get() succeeded after Dispose")
	}
}

func TestRingBufferDisposeUnblocksGetPromptly(t *testing.T) {
	rb := NewRingBuffer[int](4)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, ok := rb.Get(0); ok {
			t.Error("Get() on disposed, empty buffer reported success")
		}
	}()

	time.Sleep(20 * time.Millisecond)
	rb.Dispose()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispose did not unblock a spinning Get")
	}
}

func TestRingBufferBackPressureBlocksPutUntilDrained(t *testing.T) {
	rb := NewRingBuffer[int](1) // rounds up to 2.
	rb.Put(1)
	rb.Put(2)

	putDone := make(chan struct{})
	go func() {
		defer close(putDone)
		rb.Put(3)
	}()

	select {
	case <-putDone:
		t.Fatal("Put() on a full ring buffer returned before a Get() freed a slot")
	case <-time.After(50 * time.Millisecond):
	}

	rb.Get(0)

	select {
	case <-putDone:
	case <-time.After(time.Second):
		t.Fatal("Put() did not unblock after a slot was freed")
	}
}
