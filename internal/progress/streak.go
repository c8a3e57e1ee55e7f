package progress

import (
	"sort"
	"time"

	"bookshelf/internal/models"
)

// ComputeStreaks recomputes the current and best streak from the whole log.
//
// A day counts when at least one entry exists for it, whatever the book or page count.
// The current streak must end on today (UTC); otherwise it is 0.
func ComputeStreaks(entries []models.ReadingLogEntry, now time.Time) (current, best int) {
	days := distinctDays(entries)
	if len(days) == 0 {
		return 0, 0
	}

	best = 1
	run := 1
	for i := 1; i < len(days); i++ {
		if daysBetween(days[i-1], days[i]) == 1 {
			run++
			if run > best {
				best = run
			}
		} else {
			run = 1
		}
	}

	today := NormalizeDay(now)
	last := len(days) - 1
	if !days[last].Equal(today) {
		return 0, best
	}

	current = 1
	for i := last; i > 0; i-- {
		if daysBetween(days[i-1], days[i]) != 1 {
			break
		}
		current++
	}

	return current, best
}

// distinctDays returns the sorted set of calendar days present in entries
func distinctDays(entries []models.ReadingLogEntry) []time.Time {
	seen := make(map[time.Time]struct{}, len(entries))
	days := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		day := NormalizeDay(e.Day)
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}

	sort.Slice(days, func(i, j int) bool {
		return days[i].Before(days[j])
	})
	return days
}
