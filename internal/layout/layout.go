package layout

import (
	"fmt"

	"github.com/louispotok/frieden/internal/interval"
	"github.com/louispotok/frieden/internal/model"
	"github.com/louispotok/frieden/internal/timeutil"
)

// HourRow is one fixed gridline of a day column. Hour 0 carries no
// label; noon carries a trailing space so it reads distinctly from
// midnight in the rendered ruler.
type HourRow struct {
	Hour  int    `json:"hour"`
	Label string `json:"label"`
}

// Slot is a positioned busy block inside a day column. TopPx can be
// negative when the interval started on a previous day; HeightPx is
// whatever the interval's duration scales to.
type Slot struct {
	TopPx    float64 `json:"top_px"`
	HeightPx float64 `json:"height_px"`
	Label    string  `json:"label"`
}

// NowMarker is the "now" line, present only on today's column.
type NowMarker struct {
	TopPx float64 `json:"top_px"`
}

// DayColumn is the full description of one rendered day.
type DayColumn struct {
	Day       model.Instant `json:"day"`
	Weekday   string        `json:"weekday"`
	DateLabel string        `json:"date_label"`
	Today     bool          `json:"today"`
	Hours     []HourRow     `json:"hours"`
	Slots     []Slot        `json:"slots"`
	Now       *NowMarker    `json:"now,omitempty"`
}

// Timeline is the render target: a pure projection of view state into
// display nodes. It holds no behavior and is rebuilt from scratch on
// every render pass.
type Timeline struct {
	AnchorDay     model.Instant `json:"anchor_day"`
	DaysPerScreen int           `json:"days_per_screen"`
	Days          []DayColumn   `json:"days"`
}

// Builder derives display trees from busy intervals against a clock's
// fixed timezone offset.
type Builder struct {
	clock *timeutil.Clock
}

func NewBuilder(clock *timeutil.Clock) *Builder {
	return &Builder{clock: clock}
}

// BuildTimeline lays out daysPerScreen consecutive day columns
// starting at anchor. now positions the today accent and now marker;
// callers pass the clock's current instant (tests pass a fixed one).
func (b *Builder) BuildTimeline(anchor model.Instant, daysPerScreen int, intervals []model.BusyInterval, now model.Instant) Timeline {
	tl := Timeline{
		AnchorDay:     anchor,
		DaysPerScreen: daysPerScreen,
		Days:          make([]DayColumn, 0, daysPerScreen),
	}
	for i := 0; i < daysPerScreen; i++ {
		day := anchor + model.Instant(int64(i)*timeutil.Day)
		tl.Days = append(tl.Days, b.BuildDay(day, intervals, now))
	}
	return tl
}

// BuildDay lays out a single day column for the window [day, day+DAY).
func (b *Builder) BuildDay(day model.Instant, intervals []model.BusyInterval, now model.Instant) DayColumn {
	col := DayColumn{
		Day:       day,
		Weekday:   b.clock.Weekday(day),
		DateLabel: b.clock.Dhuman(day),
		Today:     b.clock.Dfloor(now) == day,
		Hours:     hourRows(),
	}

	dayEnd := day + model.Instant(timeutil.Day)
	for _, iv := range interval.FilterOverlapping(day, dayEnd, intervals) {
		col.Slots = append(col.Slots, b.buildSlot(iv, day))
	}

	if col.Today {
		col.Now = &NowMarker{
			TopPx: timeutil.TimeToPx(b.clock.TimeOfDay(now)) + timeutil.HourRowHeaderPx,
		}
	}

	return col
}

// buildSlot positions one busy interval against the reference day.
// Intervals spanning midnight render against adjacent day columns with
// a signed day delta, which pushes the slot above the column top.
func (b *Builder) buildSlot(iv model.BusyInterval, day model.Instant) Slot {
	startOfDayOffset := b.clock.TimeOfDay(iv.Start)
	daysPrevious := (int64(b.clock.Dfloor(iv.Start)) - int64(day)) / timeutil.Day

	return Slot{
		TopPx:    timeutil.TimeToPx(startOfDayOffset+daysPrevious*timeutil.Day) + timeutil.HourRowHeaderPx,
		HeightPx: timeutil.TimeToPx(iv.Duration()),
		Label:    b.clock.Thuman(iv.Start) + " - " + b.clock.Thuman(iv.End),
	}
}

func hourRows() []HourRow {
	rows := make([]HourRow, 24)
	for h := range rows {
		rows[h] = HourRow{Hour: h, Label: hourLabel(h)}
	}
	return rows
}

// hourLabel renders the ruler annotation for an hour gridline,
// matching the 12-hour convention of the UI: midnight is blank and
// noon takes a trailing space to disambiguate it.
func hourLabel(hour int) string {
	if hour == 0 {
		return ""
	}
	hh := hour % 12
	if hh == 0 {
		hh = 12
	}
	ampm := "AM"
	if hour > 12 {
		ampm = "PM"
	}
	if hh == 12 {
		ampm = "PM "
	}
	return fmt.Sprintf("%d %s", hh, ampm)
}
