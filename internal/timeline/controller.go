package timeline

import (
	"context"
	"sync"
	"time"

	appLog "github.com/louispotok/frieden/internal/log"
	"github.com/louispotok/frieden/internal/layout"
	"github.com/louispotok/frieden/internal/model"
	"github.com/louispotok/frieden/internal/sched"
	"github.com/louispotok/frieden/internal/timeutil"
	"github.com/louispotok/frieden/internal/viewport"
)

// DefaultDebounce is the quiet window shared by the resize and fetch
// schedulers. Each gets its own Debouncer instance.
const DefaultDebounce = 600 * time.Millisecond

// firstScrollHour is where the view lands after the first successful
// fetch.
const firstScrollHour = 8

// Fetcher loads busy intervals for a half-open day range.
type Fetcher interface {
	FetchBusy(ctx context.Context, start model.Instant, days int) ([]model.BusyInterval, error)
}

// Hooks are the controller's two outbound effects. Render receives a
// freshly built display tree; ScrollTo fires once, after the first
// successful fetch, with the pixel offset of the morning scroll
// position. Hooks may be invoked from timer or fetch goroutines.
type Hooks struct {
	Render   func(layout.Timeline)
	ScrollTo func(px float64)
}

// Options tune the controller; zero values take defaults.
type Options struct {
	FetchDebounce  time.Duration
	ResizeDebounce time.Duration
}

// Controller owns the view state of the timeline: the anchor day, the
// day-column count, and the cached busy intervals. It translates
// navigation intents into state transitions plus the two async
// effects (render, fetch). All state mutations are serialized through
// one mutex since debounce timers and fetch completions arrive on
// their own goroutines.
type Controller struct {
	clock   *timeutil.Clock
	builder *layout.Builder
	fetcher Fetcher
	hooks   Hooks
	ctx     context.Context

	mu                sync.Mutex
	anchorDay         model.Instant
	daysPerScreen     int
	busy              []model.BusyInterval
	lastFetchedAnchor model.Instant
	lastFetchedDays   int // 0 means never fetched
	firstScrolled     bool
	pendingWidth      int

	resizeDeb *sched.Debouncer
	fetchDeb  *sched.Debouncer
}

// New builds a Controller anchored on today. Call Resize with the
// initial viewport width to evaluate the viewport policy, render, and
// kick off the first fetch.
func New(ctx context.Context, clock *timeutil.Clock, fetcher Fetcher, hooks Hooks, opts Options) *Controller {
	if opts.FetchDebounce <= 0 {
		opts.FetchDebounce = DefaultDebounce
	}
	if opts.ResizeDebounce <= 0 {
		opts.ResizeDebounce = DefaultDebounce
	}

	c := &Controller{
		clock:         clock,
		builder:       layout.NewBuilder(clock),
		fetcher:       fetcher,
		hooks:         hooks,
		ctx:           ctx,
		anchorDay:     clock.Dfloor(clock.Now()),
		daysPerScreen: viewport.MinDays,
	}
	c.resizeDeb = sched.NewDebouncer(c.applyResize, opts.ResizeDebounce)
	c.fetchDeb = sched.NewDebouncer(c.fetch, opts.FetchDebounce)
	return c
}

// Today re-anchors the view on the current local day. No immediate
// render: the day may be unchanged, and the fetch path renders when
// new data lands.
func (c *Controller) Today() {
	c.mu.Lock()
	c.anchorDay = c.clock.Dfloor(c.clock.Now())
	c.mu.Unlock()

	c.fetchDeb.Trigger()
}

// Shift moves the anchor by deltaDays whole days. The view renders
// immediately with stale data, because the fetch's render may trail a
// network delay.
func (c *Controller) Shift(deltaDays int) {
	c.mu.Lock()
	c.anchorDay += model.Instant(int64(deltaDays) * timeutil.Day)
	c.mu.Unlock()

	c.render()
	c.fetchDeb.Trigger()
}

// Resize feeds a new viewport width into the debounced resize path.
// Bursts of resize signals collapse into one recomputation.
func (c *Controller) Resize(widthPx int) {
	c.mu.Lock()
	c.pendingWidth = widthPx
	c.mu.Unlock()

	c.resizeDeb.Trigger()
}

// applyResize is the debounced tail of Resize.
func (c *Controller) applyResize() {
	c.mu.Lock()
	c.daysPerScreen = viewport.DaysForWidth(c.pendingWidth)
	c.mu.Unlock()

	c.render()
	c.fetchDeb.Trigger()
}

// fetch is the debounced tail of every navigation/resize intent. It is
// a no-op when the visible range matches the last fetched one; the
// markers advance before the request resolves, so re-entrant calls for
// the same range are suppressed while it is in flight. A call for a
// different range proceeds concurrently; whichever response resolves
// last overwrites the cache (accepted last-write-wins race).
func (c *Controller) fetch() {
	c.mu.Lock()
	if c.lastFetchedAnchor == c.anchorDay && c.lastFetchedDays == c.daysPerScreen {
		c.mu.Unlock()
		return
	}
	c.lastFetchedAnchor = c.anchorDay
	c.lastFetchedDays = c.daysPerScreen
	anchor, days := c.anchorDay, c.daysPerScreen
	c.mu.Unlock()

	go func() {
		slots, err := c.fetcher.FetchBusy(c.ctx, anchor, days)
		if err != nil {
			appLog.Error("busy fetch failed", err,
				"anchor", anchor.ISO(),
				"days", days,
			)
			// Roll the markers back to the never-fetched sentinel so
			// the next qualifying navigation or resize retries.
			c.mu.Lock()
			c.lastFetchedDays = 0
			c.mu.Unlock()
			return
		}
		c.onFetchResolved(slots)
	}()
}

// onFetchResolved replaces the cached busy set wholesale and renders.
// The first-ever successful fetch additionally signals the one-time
// morning scroll to the presentation layer.
func (c *Controller) onFetchResolved(slots []model.BusyInterval) {
	c.mu.Lock()
	c.busy = slots
	firstFetch := !c.firstScrolled
	c.firstScrolled = true
	c.mu.Unlock()

	c.render()

	if firstFetch && c.hooks.ScrollTo != nil {
		c.hooks.ScrollTo(firstScrollHour * timeutil.HourHeightPx)
	}
}

// render projects the current view state into a display tree and hands
// it to the render hook. Pure with respect to state; safe to call any
// number of times.
func (c *Controller) render() {
	tl := c.Snapshot()
	if c.hooks.Render != nil {
		c.hooks.Render(tl)
	}
}

// Snapshot builds a display tree from the current view state.
func (c *Controller) Snapshot() layout.Timeline {
	c.mu.Lock()
	anchor, days := c.anchorDay, c.daysPerScreen
	busy := c.busy
	c.mu.Unlock()

	return c.builder.BuildTimeline(anchor, days, busy, c.clock.Now())
}

// State returns the current anchor day and day count, for status
// displays.
func (c *Controller) State() (model.Instant, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.anchorDay, c.daysPerScreen
}

// Close cancels any pending debounce timers.
func (c *Controller) Close() {
	c.resizeDeb.Stop()
	c.fetchDeb.Stop()
}
