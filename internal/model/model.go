package model

import "time"

// Instant is an absolute point in time in milliseconds since the UNIX
// epoch. All engine arithmetic (day flooring, pixel scaling, overlap
// tests) runs on this representation; time.Time appears only at the
// wire and timezone boundaries.
type Instant int64

// FromTime converts a time.Time into an Instant.
func FromTime(t time.Time) Instant {
	return Instant(t.UnixMilli())
}

// Time converts the Instant back into a UTC time.Time.
func (i Instant) Time() time.Time {
	return time.UnixMilli(int64(i)).UTC()
}

// In converts the Instant into a time.Time in the given location.
func (i Instant) In(loc *time.Location) time.Time {
	return time.UnixMilli(int64(i)).In(loc)
}

// ISO formats the Instant as an ISO-8601 / RFC 3339 UTC string, the
// format the /data endpoint speaks.
func (i Instant) ISO() string {
	return i.Time().Format(time.RFC3339Nano)
}

// ParseISO parses an ISO-8601 timestamp as produced by calendar
// backends into an Instant.
func ParseISO(s string) (Instant, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, err
	}
	return FromTime(t), nil
}

// BusyInterval is a half-open range [Start, End) during which the
// person is unavailable. Intervals arrive verbatim from the
// aggregation endpoint and are treated as opaque by the engine.
type BusyInterval struct {
	Start Instant `json:"start"`
	End   Instant `json:"end"`
}

// Valid reports whether the interval is well formed. Malformed
// intervals (End before Start) are dropped at the fetch boundary, not
// inside the layout path.
func (b BusyInterval) Valid() bool {
	return b.Start <= b.End
}

// Duration returns the interval length in milliseconds.
func (b BusyInterval) Duration() int64 {
	return int64(b.End - b.Start)
}
