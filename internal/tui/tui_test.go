package tui

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/louispotok/frieden/internal/layout"
	"github.com/louispotok/frieden/internal/timeutil"
)

func TestSlotAtHour(t *testing.T) {
	day := layout.DayColumn{
		Slots: []layout.Slot{{
			// 14:00-15:30
			TopPx:    timeutil.TimeToPx(14*timeutil.Hour) + timeutil.HourRowHeaderPx,
			HeightPx: timeutil.TimeToPx(90 * timeutil.Minute),
			Label:    "2 PM - 3:30 PM",
		}},
	}

	_, ok := slotAtHour(day, 13)
	require.False(t, ok)

	s, ok := slotAtHour(day, 14)
	require.True(t, ok)
	require.Equal(t, 14, slotStartRow(s))

	_, ok = slotAtHour(day, 15) // covers the first half of 15:00
	require.True(t, ok)

	_, ok = slotAtHour(day, 16)
	require.False(t, ok)
}

func TestClampRow(t *testing.T) {
	require.Equal(t, 0, clampRow(-5))
	require.Equal(t, 10, clampRow(10))
	require.Equal(t, 23, clampRow(99))
}

func TestRenderHourRowNarrowNowMarker(t *testing.T) {
	m := Model{styles: defaultStyles()}
	day := layout.DayColumn{
		Today: true,
		Hours: make([]layout.HourRow, 24),
		Now:   &layout.NowMarker{TopPx: timeutil.TimeToPx(10*timeutil.Hour) + timeutil.HourRowHeaderPx},
	}

	// Minimum column width gives a 3-cell body, too narrow for the
	// dashed rule. The row must still render rather than panic.
	for _, colWidth := range []int{10, 11, 12, 20} {
		require.NotPanics(t, func() {
			row := m.renderHourRow(day, 10, true, colWidth)
			require.Contains(t, row, "now")
		})
	}
}

func TestPad(t *testing.T) {
	require.Equal(t, "ab   ", pad("ab", 5))
	require.Equal(t, "abcd…", pad("abcdefgh", 5))
	require.Equal(t, "", pad("", 0))
}
