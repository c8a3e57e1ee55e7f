package progress

import (
	"math"

	"bookshelf/internal/models"
)

// MaxPages bounds page counts and pages read so they fit the storage columns
const MaxPages = math.MaxInt32

// Resolution is the canonical outcome of a progress update
type Resolution struct {
	PagesRead int
	Progress  float64
}

// Resolve converts a requested progress value into pages read and a percentage.
// A nil value or an unknown progress type counts as missing and is reported first.
// Resolve has no side effects.
func Resolve(book models.Book, value *float64, progressType models.ProgressType) (Resolution, error) {
	if value == nil {
		return Resolution{}, invalid("progress", ErrMissingField)
	}
	if progressType == models.ProgressTypeUnknown {
		return Resolution{}, invalid("progress_type", ErrMissingField)
	}

	v := *value
	pageCount, known := book.KnownPageCount()

	switch progressType {
	case models.ProgressTypePages:
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > MaxPages || v != math.Trunc(v) {
			return Resolution{}, invalid("progress", ErrInvalidPageCount)
		}
		if known && v > float64(pageCount) {
			return Resolution{}, invalid("progress", ErrInvalidPageCount)
		}
		res := Resolution{PagesRead: int(v)}
		if known {
			res.Progress = v / float64(pageCount) * 100
		}
		return res, nil

	case models.ProgressTypePercentage:
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 100 {
			return Resolution{}, invalid("progress", ErrInvalidPercentage)
		}
		res := Resolution{Progress: v}
		if known {
			res.PagesRead = int(math.Round(v / 100 * float64(pageCount)))
		}
		return res, nil
	}

	return Resolution{}, invalid("progress_type", ErrInvalidProgressType)
}
