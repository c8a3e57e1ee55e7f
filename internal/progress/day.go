package progress

import "time"

// NormalizeDay truncates t to midnight of its UTC calendar day
func NormalizeDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween counts whole calendar days from a to b; both must be normalized
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
