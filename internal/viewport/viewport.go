package viewport

// MinColPx is the minimum usable width of a single day column.
const MinColPx = 150

// Bounds on simultaneously visible day columns.
const (
	MinDays = 3
	MaxDays = 7
)

// DaysForWidth maps an available pixel width onto a day-column count.
// This is a deterministic step function: floor(w / MinColPx) clamped
// into [MinDays, MaxDays].
func DaysForWidth(widthPx int) int {
	if widthPx < 0 {
		widthPx = 0
	}
	count := widthPx / MinColPx
	switch {
	case count <= MinDays:
		return MinDays
	case count >= MaxDays:
		return MaxDays
	default:
		return count
	}
}
