package interval

import (
	"errors"

	appLog "github.com/louispotok/frieden/internal/log"
	"github.com/louispotok/frieden/internal/model"
)

// FilterOverlapping returns the subsequence of intervals overlapping
// the half-open window [windowStart, windowEnd). The test is strictly
// open at both boundaries: an interval that exactly abuts the window
// is excluded. Input order is preserved; no sortedness is assumed.
func FilterOverlapping(windowStart, windowEnd model.Instant, intervals []model.BusyInterval) []model.BusyInterval {
	out := make([]model.BusyInterval, 0, len(intervals))
	for _, iv := range intervals {
		if windowStart < iv.End && windowEnd > iv.Start {
			out = append(out, iv)
		}
	}
	return out
}

// Sanitize drops malformed intervals (End before Start) so they never
// reach the layout path as negative-height slots. Each drop is logged
// with the offending source label.
func Sanitize(source string, intervals []model.BusyInterval) []model.BusyInterval {
	out := make([]model.BusyInterval, 0, len(intervals))
	for _, iv := range intervals {
		if !iv.Valid() {
			appLog.Error("dropping malformed busy interval",
				errors.New("interval end precedes start"),
				"source", source,
				"start", iv.Start.ISO(),
				"end", iv.End.ISO(),
			)
			continue
		}
		out = append(out, iv)
	}
	return out
}
