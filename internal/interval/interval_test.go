package interval

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/louispotok/frieden/internal/model"
)

func iv(start, end int64) model.BusyInterval {
	return model.BusyInterval{Start: model.Instant(start), End: model.Instant(end)}
}

func TestFilterOverlappingBoundaries(t *testing.T) {
	intervals := []model.BusyInterval{
		iv(200, 300), // abuts window end: excluded
		iv(50, 100),  // abuts window start: excluded
		iv(99, 101),  // straddles window start: included
		iv(150, 160), // fully inside: included
		iv(0, 400),   // covers window: included
	}

	got := FilterOverlapping(100, 200, intervals)
	require.Equal(t, []model.BusyInterval{
		iv(99, 101),
		iv(150, 160),
		iv(0, 400),
	}, got)
}

func TestFilterOverlappingPreservesOrder(t *testing.T) {
	// Deliberately unsorted input; relative order must survive.
	intervals := []model.BusyInterval{
		iv(180, 190),
		iv(110, 120),
		iv(150, 160),
	}
	got := FilterOverlapping(100, 200, intervals)
	require.Equal(t, intervals, got)
}

func TestFilterOverlappingEmpty(t *testing.T) {
	require.Empty(t, FilterOverlapping(100, 200, nil))
	require.Empty(t, FilterOverlapping(100, 200, []model.BusyInterval{iv(300, 400)}))
}

func TestSanitizeDropsMalformed(t *testing.T) {
	intervals := []model.BusyInterval{
		iv(100, 200),
		iv(300, 250), // end before start
		iv(400, 400), // zero-length is still well formed
	}
	got := Sanitize("test", intervals)
	require.Equal(t, []model.BusyInterval{iv(100, 200), iv(400, 400)}, got)
}
