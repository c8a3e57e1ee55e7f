package progress

import "bookshelf/internal/models"

// Contribution is what a book adds to the user's total pages read while it sits in category
func Contribution(book models.Book, category models.Category) int {
	switch category {
	case models.CategoryCurrentlyReading:
		return book.PagesRead
	case models.CategoryFinishedReading:
		pageCount, _ := book.KnownPageCount()
		return pageCount
	case models.CategoryWantToRead, models.CategoryUnknown:
		return 0
	}
	return 0
}

// CategoryDelta is the change in total pages read when book moves to next
func CategoryDelta(book models.Book, next models.Category) int {
	prev := book.Category
	pageCount, _ := book.KnownPageCount()

	switch {
	case prev == next:
		return 0
	case prev == models.CategoryCurrentlyReading && next == models.CategoryFinishedReading:
		return pageCount - book.PagesRead
	case prev == models.CategoryFinishedReading && next == models.CategoryCurrentlyReading:
		return book.PagesRead - pageCount
	default:
		// one side is neither reading nor finished and contributes nothing
		return Contribution(book, next) - Contribution(book, prev)
	}
}

// ProgressDelta is the change in total pages read when book's pages read become pagesRead
func ProgressDelta(book models.Book, pagesRead int) int {
	if book.Category != models.CategoryCurrentlyReading {
		return 0
	}
	return pagesRead - book.PagesRead
}

// DeletionDelta is the change in total pages read when book is removed
func DeletionDelta(book models.Book) int {
	return -Contribution(book, book.Category)
}

// ApplyDelta adds delta to total, never going below zero
func ApplyDelta(total, delta int) int {
	if total+delta < 0 {
		return 0
	}
	return total + delta
}
