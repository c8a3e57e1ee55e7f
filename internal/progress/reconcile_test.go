package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bookshelf/internal/models"
)

func TestContribution(t *testing.T) {
	book := models.Book{PagesRead: 109, PageCount: ptr(300)}

	assert.Equal(t, 109, Contribution(book, models.CategoryCurrentlyReading))
	assert.Equal(t, 300, Contribution(book, models.CategoryFinishedReading))
	assert.Equal(t, 0, Contribution(book, models.CategoryWantToRead))
	assert.Equal(t, 0, Contribution(models.Book{PagesRead: 10}, models.CategoryFinishedReading), "unknown page count")
}

func TestCategoryDelta_AllTransitions(t *testing.T) {
	categories := []models.Category{
		models.CategoryCurrentlyReading,
		models.CategoryWantToRead,
		models.CategoryFinishedReading,
	}

	for _, from := range categories {
		for _, to := range categories {
			book := models.Book{PagesRead: 109, PageCount: ptr(300), Category: from}
			want := Contribution(book, to) - Contribution(book, from)
			assert.Equal(t, want, CategoryDelta(book, to), "%s -> %s", from, to)
		}
	}
}

func TestCategoryDelta(t *testing.T) {
	testCases := []struct {
		name string
		from models.Category
		to   models.Category
		want int
	}{
		{"reading to finished", models.CategoryCurrentlyReading, models.CategoryFinishedReading, 300 - 109},
		{"finished to reading", models.CategoryFinishedReading, models.CategoryCurrentlyReading, 109 - 300},
		{"reading to want", models.CategoryCurrentlyReading, models.CategoryWantToRead, -109},
		{"want to reading", models.CategoryWantToRead, models.CategoryCurrentlyReading, 109},
		{"finished to want", models.CategoryFinishedReading, models.CategoryWantToRead, -300},
		{"want to finished", models.CategoryWantToRead, models.CategoryFinishedReading, 300},
		{"no-op", models.CategoryFinishedReading, models.CategoryFinishedReading, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			book := models.Book{PagesRead: 109, PageCount: ptr(300), Category: tc.from}
			assert.Equal(t, tc.want, CategoryDelta(book, tc.to))
		})
	}
}

func TestProgressDelta(t *testing.T) {
	reading := models.Book{PagesRead: 40, Category: models.CategoryCurrentlyReading}
	assert.Equal(t, 20, ProgressDelta(reading, 60))
	assert.Equal(t, -15, ProgressDelta(reading, 25))

	finished := models.Book{PagesRead: 40, PageCount: ptr(300), Category: models.CategoryFinishedReading}
	assert.Equal(t, 0, ProgressDelta(finished, 60))

	want := models.Book{PagesRead: 40, Category: models.CategoryWantToRead}
	assert.Equal(t, 0, ProgressDelta(want, 60))
}

func TestDeletionDelta(t *testing.T) {
	assert.Equal(t, -300, DeletionDelta(models.Book{PagesRead: 12, PageCount: ptr(300), Category: models.CategoryFinishedReading}))
	assert.Equal(t, -12, DeletionDelta(models.Book{PagesRead: 12, PageCount: ptr(300), Category: models.CategoryCurrentlyReading}))
	assert.Equal(t, 0, DeletionDelta(models.Book{PagesRead: 12, PageCount: ptr(300), Category: models.CategoryWantToRead}))
}

func TestApplyDelta(t *testing.T) {
	assert.Equal(t, 1191, ApplyDelta(1000, 191))
	assert.Equal(t, 700, ApplyDelta(1000, -300))
	assert.Equal(t, 0, ApplyDelta(100, -300), "floored at zero")
	assert.Equal(t, 0, ApplyDelta(0, 0))
}
