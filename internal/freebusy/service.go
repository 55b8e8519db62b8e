package freebusy

import (
	"context"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "github.com/louispotok/frieden/internal/log"
	"github.com/louispotok/frieden/internal/model"
)

// maxOccurrencesPerEvent caps recurrence expansion so a pathological
// RRULE cannot stall the endpoint.
const maxOccurrencesPerEvent = 5000

// Service aggregates the configured ICS sources into per-calendar busy
// intervals. This is the implementation behind the /data endpoint: the
// timeline engine only ever sees the flattened busy blocks.
type Service struct {
	fetcher *Fetcher
	sources []Source
}

func NewService(fetcher *Fetcher, sources []Source) *Service {
	return &Service{fetcher: fetcher, sources: sources}
}

// Busy returns merged busy intervals per calendar id for the half-open
// range [timeMin, timeMax). Sources that fail to fetch or parse are
// logged and omitted; a partial aggregate beats an error page.
func (s *Service) Busy(ctx context.Context, timeMin, timeMax model.Instant) map[string][]model.BusyInterval {
	out := make(map[string][]model.BusyInterval, len(s.sources))

	results, errs := s.fetcher.FetchAll(ctx, s.sources)
	if len(errs) > 0 {
		appLog.Warn("freebusy: some sources failed", "error_count", len(errs))
	}

	minT := timeMin.Time()
	maxT := timeMax.Time()

	for _, res := range results {
		events, err := parseICS(res.Source, res.Body)
		if err != nil {
			continue
		}
		blocks := expandBusy(events, minT, maxT)
		out[res.Source.ID] = clipMerge(blocks, timeMin, timeMax)
	}
	return out
}

// expandBusy turns parsed VEVENTs into raw busy blocks inside the
// window. Recurring events expand through their RRULE with EXDATEs
// applied; instance overrides replace their base occurrence (the
// override's RECURRENCE-ID joins the exclusion set and the override
// itself becomes a standalone block).
func expandBusy(events []parsedEvent, timeMin, timeMax time.Time) []model.BusyInterval {
	overrideRIDs := make(map[string][]time.Time)
	for _, ev := range events {
		if ev.RecurrenceID != nil {
			overrideRIDs[ev.UID] = append(overrideRIDs[ev.UID], *ev.RecurrenceID)
		}
	}

	blocks := make([]model.BusyInterval, 0, len(events))
	for _, ev := range events {
		if ev.RecurrenceID != nil || ev.RawRRule == "" {
			// Overrides and plain events contribute their own range.
			if ev.End.After(timeMin) && ev.Start.Before(timeMax) {
				blocks = append(blocks, toInterval(ev.Start, ev.End, ev.AllDay))
			}
			continue
		}
		blocks = append(blocks, expandRecurring(ev, overrideRIDs[ev.UID], timeMin, timeMax)...)
	}
	return blocks
}

func expandRecurring(ev parsedEvent, overridden []time.Time, timeMin, timeMax time.Time) []model.BusyInterval {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("freebusy: bad RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	loc := ev.Start.Location()
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(loc))
	}
	for _, rid := range overridden {
		set.ExDate(rid.In(loc))
	}

	occStarts := set.Between(timeMin.In(loc), timeMax.In(loc), true)
	if len(occStarts) > maxOccurrencesPerEvent {
		appLog.Warn("freebusy: recurrence expansion truncated", "uid", ev.UID, "cap", maxOccurrencesPerEvent)
		occStarts = occStarts[:maxOccurrencesPerEvent]
	}

	dur := ev.End.Sub(ev.Start)
	out := make([]model.BusyInterval, 0, len(occStarts))
	for _, start := range occStarts {
		if ev.AllDay {
			out = append(out, toInterval(start, start, true))
			continue
		}
		out = append(out, toInterval(start, start.Add(dur), false))
	}
	return out
}

// toInterval converts an occurrence into wire form. All-day events
// occupy their full local day.
func toInterval(start, end time.Time, allDay bool) model.BusyInterval {
	if allDay {
		day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
		return model.BusyInterval{
			Start: model.FromTime(day),
			End:   model.FromTime(day.Add(24 * time.Hour)),
		}
	}
	return model.BusyInterval{Start: model.FromTime(start), End: model.FromTime(end)}
}

// clipMerge clips busy blocks to the requested window, sorts them, and
// merges overlapping or abutting blocks into maximal runs, matching
// what calendar freebusy APIs return.
func clipMerge(blocks []model.BusyInterval, timeMin, timeMax model.Instant) []model.BusyInterval {
	clipped := make([]model.BusyInterval, 0, len(blocks))
	for _, b := range blocks {
		if b.Start < timeMin {
			b.Start = timeMin
		}
		if b.End > timeMax {
			b.End = timeMax
		}
		if b.Start >= b.End {
			continue
		}
		clipped = append(clipped, b)
	}

	sort.Slice(clipped, func(i, j int) bool { return clipped[i].Start < clipped[j].Start })

	merged := make([]model.BusyInterval, 0, len(clipped))
	for _, b := range clipped {
		if n := len(merged); n > 0 && b.Start <= merged[n-1].End {
			if b.End > merged[n-1].End {
				merged[n-1].End = b.End
			}
			continue
		}
		merged = append(merged, b)
	}
	return merged
}
