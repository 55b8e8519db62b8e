package layout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/louispotok/frieden/internal/model"
	"github.com/louispotok/frieden/internal/timeutil"
)

var kst = time.FixedZone("KST", 9*3600)

func testClock(now time.Time) *timeutil.Clock {
	return timeutil.NewClock(kst, func() time.Time { return now })
}

func TestBuildDayEndToEnd(t *testing.T) {
	// Anchor 2024-06-10 00:00 local, one busy hour 14:00-15:00.
	now := time.Date(2024, 6, 10, 10, 30, 0, 0, kst)
	clock := testClock(now)
	b := NewBuilder(clock)

	anchor := clock.Dfloor(model.FromTime(now))
	busy := []model.BusyInterval{{
		Start: model.FromTime(time.Date(2024, 6, 10, 14, 0, 0, 0, kst)),
		End:   model.FromTime(time.Date(2024, 6, 10, 15, 0, 0, 0, kst)),
	}}

	col := b.BuildDay(anchor, busy, clock.Now())

	require.Len(t, col.Slots, 1)
	slot := col.Slots[0]
	require.Equal(t, timeutil.TimeToPx(14*timeutil.Hour)+timeutil.HourRowHeaderPx, slot.TopPx)
	require.Equal(t, timeutil.TimeToPx(timeutil.Hour), slot.HeightPx)
	require.Equal(t, "2 PM - 3 PM", slot.Label)

	require.True(t, col.Today)
	require.Equal(t, "Mon", col.Weekday)
	require.Equal(t, "6/10", col.DateLabel)
}

func TestBuildDayNowMarkerOnlyOnToday(t *testing.T) {
	now := time.Date(2024, 6, 10, 10, 0, 0, 0, kst)
	clock := testClock(now)
	b := NewBuilder(clock)

	today := clock.Dfloor(model.FromTime(now))
	tomorrow := today + model.Instant(timeutil.Day)

	colToday := b.BuildDay(today, nil, clock.Now())
	require.NotNil(t, colToday.Now)
	require.Equal(t, timeutil.TimeToPx(10*timeutil.Hour)+timeutil.HourRowHeaderPx, colToday.Now.TopPx)

	colTomorrow := b.BuildDay(tomorrow, nil, clock.Now())
	require.Nil(t, colTomorrow.Now)
	require.False(t, colTomorrow.Today)
}

func TestBuildDayCrossMidnightSlot(t *testing.T) {
	now := time.Date(2024, 6, 11, 9, 0, 0, 0, kst)
	clock := testClock(now)
	b := NewBuilder(clock)

	// Interval 23:00 June 10 -> 01:00 June 11 rendered against June 11:
	// it started one day earlier, so its top sits above the column.
	busy := []model.BusyInterval{{
		Start: model.FromTime(time.Date(2024, 6, 10, 23, 0, 0, 0, kst)),
		End:   model.FromTime(time.Date(2024, 6, 11, 1, 0, 0, 0, kst)),
	}}

	day := clock.Dfloor(model.FromTime(now))
	col := b.BuildDay(day, busy, clock.Now())

	require.Len(t, col.Slots, 1)
	slot := col.Slots[0]
	wantTop := timeutil.TimeToPx(23*timeutil.Hour-timeutil.Day) + timeutil.HourRowHeaderPx
	require.Equal(t, wantTop, slot.TopPx)
	require.Equal(t, timeutil.TimeToPx(2*timeutil.Hour), slot.HeightPx)
}

func TestBuildDayExcludesAbuttingIntervals(t *testing.T) {
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, kst)
	clock := testClock(now)
	b := NewBuilder(clock)

	day := clock.Dfloor(model.FromTime(now))
	prevDay := day - model.Instant(timeutil.Day)

	// Ends exactly at the window start: excluded by the strict test.
	busy := []model.BusyInterval{{
		Start: prevDay + model.Instant(23*timeutil.Hour),
		End:   day,
	}}
	col := b.BuildDay(day, busy, clock.Now())
	require.Empty(t, col.Slots)
}

func TestHourLabels(t *testing.T) {
	rows := hourRows()
	require.Len(t, rows, 24)
	require.Equal(t, "", rows[0].Label)
	require.Equal(t, "1 AM", rows[1].Label)
	require.Equal(t, "11 AM", rows[11].Label)
	require.Equal(t, "12 PM ", rows[12].Label) // trailing space disambiguates noon
	require.Equal(t, "1 PM", rows[13].Label)
	require.Equal(t, "11 PM", rows[23].Label)
}

func TestBuildTimelineSharesIntervalsAcrossColumns(t *testing.T) {
	now := time.Date(2024, 6, 10, 8, 0, 0, 0, kst)
	clock := testClock(now)
	b := NewBuilder(clock)

	anchor := clock.Dfloor(model.FromTime(now))
	busy := []model.BusyInterval{
		{
			Start: model.FromTime(time.Date(2024, 6, 11, 9, 0, 0, 0, kst)),
			End:   model.FromTime(time.Date(2024, 6, 11, 10, 0, 0, 0, kst)),
		},
	}

	tl := b.BuildTimeline(anchor, 3, busy, clock.Now())
	require.Len(t, tl.Days, 3)
	require.Empty(t, tl.Days[0].Slots)
	require.Len(t, tl.Days[1].Slots, 1)
	require.Empty(t, tl.Days[2].Slots)
	require.True(t, tl.Days[0].Today)
	require.False(t, tl.Days[1].Today)
}
