package timeutil

import (
	"fmt"
	"time"

	"github.com/louispotok/frieden/internal/model"
)

// Millisecond-based time constants, mirroring the wire representation.
const (
	Minute int64 = 60 * 1000
	Hour         = 60 * Minute
	Day          = 24 * Hour
)

// Fixed layout constants for the hour-scaled grid.
const (
	// HourHeightPx is the rendered height of one hour.
	HourHeightPx = 50.0
	// HourRowHeaderPx is the vertical offset consumed by the date
	// header above hour zero.
	HourRowHeaderPx = HourHeightPx
)

// Clock bundles the timezone context for all date arithmetic. The
// offset is captured once at construction and never re-read, so every
// method is a pure function of its input. A DST transition during the
// process lifetime is not handled.
type Clock struct {
	loc    *time.Location
	offset int64 // ms to subtract from an Instant for local-day arithmetic
	now    func() time.Time
}

// NewClock builds a Clock for the given location. nowFn is injectable
// for tests; pass nil to use time.Now.
func NewClock(loc *time.Location, nowFn func() time.Time) *Clock {
	if loc == nil {
		loc = time.Local
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	// Zone() reports seconds east of UTC; day flooring wants the
	// signed distance from local wall-clock back to epoch-aligned
	// arithmetic, so the sign flips.
	_, sec := nowFn().In(loc).Zone()
	return &Clock{
		loc:    loc,
		offset: -int64(sec) * 1000,
		now:    nowFn,
	}
}

// Location returns the clock's display location.
func (c *Clock) Location() *time.Location {
	return c.loc
}

// Offset returns the captured offset in milliseconds.
func (c *Clock) Offset() int64 {
	return c.offset
}

// Now returns the current time as an Instant.
func (c *Clock) Now() model.Instant {
	return model.FromTime(c.now())
}

// FloorMod is a modulo that is total over all finite inputs and always
// returns a value in [0, m) for m > 0.
func FloorMod(v, m int64) int64 {
	return ((v % m) + m) % m
}

// Dfloor rounds an Instant down to the start of its local calendar
// day. Idempotent: Dfloor(Dfloor(t)) == Dfloor(t).
func (c *Clock) Dfloor(t model.Instant) model.Instant {
	ut := int64(t) - c.offset
	rounded := ut - FloorMod(ut, Day)
	return model.Instant(rounded + c.offset)
}

// TimeOfDay returns the local wall-clock offset of t into its day, in
// milliseconds, in [0, Day).
func (c *Clock) TimeOfDay(t model.Instant) int64 {
	return FloorMod(int64(t)-c.offset, Day)
}

// TimeToPx converts a duration in milliseconds into pixels on the
// hour-scaled grid. The scale is exactly linear; no rounding, so
// stacked conversions stay consistent.
func TimeToPx(durationMillis int64) float64 {
	return float64(durationMillis) / float64(Hour) * HourHeightPx
}

// Dhuman formats t as "M/D", or "Y/M/D" when t falls outside the
// current local year.
func (c *Clock) Dhuman(t model.Instant) string {
	dt := t.In(c.loc)
	year, month, day := dt.Date()
	if year == c.now().In(c.loc).Year() {
		return fmt.Sprintf("%d/%d", int(month), day)
	}
	return fmt.Sprintf("%d/%d/%d", year, int(month), day)
}

// Thuman formats t on a 12-hour clock: "9 AM", "9:05 AM", "12 PM".
// Minutes are omitted entirely when zero, not printed as ":00".
func (c *Clock) Thuman(t model.Instant) string {
	tod := c.TimeOfDay(t)

	hh := (tod / Hour) % 12
	if hh == 0 {
		hh = 12
	}
	mm := (tod % Hour) / Minute

	ampm := "AM"
	if tod >= Day/2 {
		ampm = "PM"
	}

	if mm == 0 {
		return fmt.Sprintf("%d %s", hh, ampm)
	}
	return fmt.Sprintf("%d:%02d %s", hh, mm, ampm)
}

// Weekday returns the three-letter weekday abbreviation of t's local day.
func (c *Clock) Weekday(t model.Instant) string {
	return t.In(c.loc).Weekday().String()[:3]
}
