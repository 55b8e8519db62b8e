package sched

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDebounceLeadingFastPath(t *testing.T) {
	var runs atomic.Int32
	d := NewDebouncer(func() { runs.Add(1) }, 50*time.Millisecond)

	// First trigger after a long idle period fires immediately.
	d.Trigger()
	require.Equal(t, int32(1), runs.Load())
}

func TestDebounceCollapsesBurst(t *testing.T) {
	var runs atomic.Int32
	ran := make(chan time.Time, 8)
	d := NewDebouncer(func() {
		runs.Add(1)
		ran <- time.Now()
	}, 50*time.Millisecond)

	d.Trigger() // leading run
	<-ran

	var lastCall time.Time
	for i := 0; i < 5; i++ {
		d.Trigger()
		lastCall = time.Now()
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case at := <-ran:
		// One trailing run, no earlier than the quiet window after
		// the last trigger (minus scheduling slack).
		require.GreaterOrEqual(t, at.Sub(lastCall), 40*time.Millisecond)
	case <-time.After(time.Second):
		t.Fatal("debounced run never fired")
	}

	// Give any stray timers a chance to fire, then confirm the burst
	// collapsed into exactly one trailing run.
	time.Sleep(150 * time.Millisecond)
	require.Equal(t, int32(2), runs.Load())
}

func TestDebounceStopCancelsPending(t *testing.T) {
	var runs atomic.Int32
	d := NewDebouncer(func() { runs.Add(1) }, 50*time.Millisecond)

	d.Trigger() // leading run
	d.Trigger() // pending
	d.Stop()

	time.Sleep(150 * time.Millisecond)
	require.Equal(t, int32(1), runs.Load())
}

func TestDebounceIndependentInstances(t *testing.T) {
	var a, b atomic.Int32
	da := NewDebouncer(func() { a.Add(1) }, 50*time.Millisecond)
	db := NewDebouncer(func() { b.Add(1) }, 50*time.Millisecond)

	da.Trigger()
	db.Trigger()

	require.Equal(t, int32(1), a.Load())
	require.Equal(t, int32(1), b.Load())
}
