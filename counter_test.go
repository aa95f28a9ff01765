package rtd

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDcounterAddAccumulatesBothFields(t *testing.T) {
	var d dcounter
	a, b := d.Add(3, 1)
	require.Equal(t, int32(3), a)
	require.Equal(t, int32(1), b)

	a, b = d.Add(-1, 2)
	require.Equal(t, int32(2), a)
	require.Equal(t, int32(3), b)
}

func TestDcounterStoreAndLoadRoundTrip(t *testing.T) {
	var d dcounter
	d.Store(-5, 42)
	a, b := d.Load()
	require.Equal(t, int32(-5), a)
	require.Equal(t, int32(42), b)
}

func TestDcounterAddIsAtomicUnderConcurrency(t *testing.T) {
	var d dcounter
	const goroutines = 50
	const perGoroutine = 200

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				d.Add(1, -1)
			}
		}()
	}
	wg.Wait()

	a, b := d.Load()
	require.Equal(t, int32(goroutines*perGoroutine), a)
	require.Equal(t, int32(-goroutines*perGoroutine), b)
}
