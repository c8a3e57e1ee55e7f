package progress

import (
	"sort"
	"time"

	"bookshelf/internal/models"
)

// ProjectActivity builds a windowDays long daily series ending at referenceDay, oldest first.
//
// Entries for books outside ownedBookIDs are dropped. For each (day, book) only the latest
// logged entry survives; survivors are summed per day.
func ProjectActivity(entries []models.ReadingLogEntry, ownedBookIDs map[string]struct{}, windowDays int, referenceDay time.Time) []models.ActivityDay {
	if windowDays <= 0 {
		return nil
	}

	end := NormalizeDay(referenceDay)
	start := end.AddDate(0, 0, -(windowDays - 1))

	// newest first; later insertions win ties, so walk the log backwards before a stable sort
	ordered := make([]models.ReadingLogEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		ordered = append(ordered, entries[i])
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		di, dj := NormalizeDay(ordered[i].Day), NormalizeDay(ordered[j].Day)
		if !di.Equal(dj) {
			return di.After(dj)
		}
		return ordered[i].LoggedAt.After(ordered[j].LoggedAt)
	})

	type dayBook struct {
		day    time.Time
		bookID string
	}
	seen := make(map[dayBook]struct{})
	perDay := make(map[time.Time]int)

	for _, e := range ordered {
		if _, ok := ownedBookIDs[e.BookID]; !ok {
			continue
		}
		day := NormalizeDay(e.Day)
		if day.Before(start) || day.After(end) {
			continue
		}
		key := dayBook{day: day, bookID: e.BookID}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		perDay[day] += e.PagesRead
	}

	series := make([]models.ActivityDay, windowDays)
	for i := range series {
		day := start.AddDate(0, 0, i)
		series[i] = models.ActivityDay{Day: day, PagesRead: perDay[day]}
	}
	return series
}
