package timeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/louispotok/frieden/internal/layout"
	"github.com/louispotok/frieden/internal/model"
	"github.com/louispotok/frieden/internal/timeutil"
)

var kst = time.FixedZone("KST", 9*3600)

type fetchCall struct {
	anchor model.Instant
	days   int
}

type fakeFetcher struct {
	mu    sync.Mutex
	calls []fetchCall
	slots []model.BusyInterval
	err   error
	gate  chan struct{} // if non-nil, FetchBusy blocks until closed
}

func (f *fakeFetcher) FetchBusy(_ context.Context, start model.Instant, days int) ([]model.BusyInterval, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fetchCall{anchor: start, days: days})
	gate := f.gate
	slots, err := f.slots, f.err
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return slots, err
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeFetcher) lastCall() fetchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

type recorder struct {
	mu      sync.Mutex
	renders []layout.Timeline
	scrolls []float64
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		Render: func(tl layout.Timeline) {
			r.mu.Lock()
			r.renders = append(r.renders, tl)
			r.mu.Unlock()
		},
		ScrollTo: func(px float64) {
			r.mu.Lock()
			r.scrolls = append(r.scrolls, px)
			r.mu.Unlock()
		},
	}
}

func (r *recorder) renderCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.renders)
}

func (r *recorder) lastRender() layout.Timeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.renders[len(r.renders)-1]
}

func newTestController(t *testing.T, f Fetcher, rec *recorder) (*Controller, *timeutil.Clock) {
	t.Helper()
	now := time.Date(2024, 6, 10, 10, 0, 0, 0, kst)
	clock := timeutil.NewClock(kst, func() time.Time { return now })
	c := New(context.Background(), clock, f, rec.hooks(), Options{
		FetchDebounce:  time.Millisecond,
		ResizeDebounce: time.Millisecond,
	})
	t.Cleanup(c.Close)
	return c, clock
}

func TestFetchNoOpInvariant(t *testing.T) {
	f := &fakeFetcher{}
	rec := &recorder{}
	c, _ := newTestController(t, f, rec)

	c.Resize(500) // 3 days
	require.Eventually(t, func() bool { return f.callCount() == 1 }, time.Second, 5*time.Millisecond)

	// Unchanged (anchorDay, daysPerScreen): fetch must be a no-op.
	time.Sleep(20 * time.Millisecond)
	c.Today()
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 1, f.callCount())
}

func TestShiftRendersStaleThenFetches(t *testing.T) {
	gate := make(chan struct{})
	f := &fakeFetcher{
		slots: []model.BusyInterval{{Start: 1000, End: 2000}},
		gate:  gate,
	}
	rec := &recorder{}
	c, clock := newTestController(t, f, rec)

	c.Resize(500)
	require.Eventually(t, func() bool { return f.callCount() == 1 }, time.Second, 5*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	c.Shift(1)

	// The shift renders immediately with the (empty) stale cache.
	anchor, _ := c.State()
	require.Equal(t, clock.Dfloor(clock.Now())+model.Instant(timeutil.Day), anchor)
	require.GreaterOrEqual(t, rec.renderCount(), 2)
	require.Empty(t, rec.lastRender().Days[0].Slots, "render before fetch resolves uses stale data")

	// Release the in-flight responses; the fetch render follows.
	close(gate)
	require.Eventually(t, func() bool { return f.callCount() == 2 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		if len(rec.renders) == 0 {
			return false
		}
		last := rec.renders[len(rec.renders)-1]
		return len(last.Days) == 3 && last.AnchorDay == anchor
	}, time.Second, 5*time.Millisecond)

	require.Equal(t, anchor, f.lastCall().anchor)
	require.Equal(t, 3, f.lastCall().days)
}

func TestFetchFailureRetriesOnNextIntent(t *testing.T) {
	f := &fakeFetcher{err: errors.New("network down")}
	rec := &recorder{}
	c, _ := newTestController(t, f, rec)

	c.Resize(500)
	require.Eventually(t, func() bool { return f.callCount() == 1 }, time.Second, 5*time.Millisecond)

	// Markers were rolled back, so the same range qualifies again.
	time.Sleep(20 * time.Millisecond)
	c.Today()
	require.Eventually(t, func() bool { return f.callCount() == 2 }, time.Second, 5*time.Millisecond)
}

func TestFirstFetchScrollsToMorning(t *testing.T) {
	f := &fakeFetcher{}
	rec := &recorder{}
	c, _ := newTestController(t, f, rec)

	c.Resize(500)
	require.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.scrolls) == 1
	}, time.Second, 5*time.Millisecond)

	rec.mu.Lock()
	require.Equal(t, 8*timeutil.HourHeightPx, rec.scrolls[0])
	rec.mu.Unlock()

	// Later fetches do not scroll again.
	time.Sleep(20 * time.Millisecond)
	c.Shift(7)
	require.Eventually(t, func() bool { return f.callCount() == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.scrolls, 1)
}

func TestResizeRecomputesDaysPerScreen(t *testing.T) {
	f := &fakeFetcher{}
	rec := &recorder{}
	c, _ := newTestController(t, f, rec)

	c.Resize(1500)
	require.Eventually(t, func() bool {
		_, days := c.State()
		return days == 7
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool { return f.callCount() == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, 7, f.lastCall().days)
}
