package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"bookshelf/internal/progress"
)

// handleStart shows welcome message and available commands
func (b *Bot) handleStart() string {
	return `Welcome to Bookshelf! 📚

Available commands:
/books - List your books
/add_book <pages|-> <shelf> <title> - Add a book
/progress <book id> <value> <pages|percentage> - Record reading progress
/shelf <book id> <shelf> - Move a book (currentlyReading, wantToRead, finishedReading)
/delete <book id> - Remove a book and its reading history
/activity [days] - Pages read per day
/stats - Totals and streaks`
}

func (b *Bot) handleBooks(ctx context.Context, userID string) string {
	books, err := b.svc.ListBooks(ctx, userID)
	if err != nil {
		b.logger.Error("Failed to list books", zap.Error(err), zap.String("user_id", userID))
		return describeError(err)
	}
	if len(books) == 0 {
		return "No books yet. Add one with /add_book"
	}

	var sb strings.Builder
	sb.WriteString("📚 Your books:\n")
	for _, book := range books {
		pages := "?"
		if pc, ok := book.KnownPageCount(); ok {
			pages = strconv.Itoa(pc)
		}
		fmt.Fprintf(&sb, "\n%s\n  %s · %s · %d/%s pages (%.0f%%)\n",
			book.Title, book.ID, book.Category, book.PagesRead, pages, book.Progress)
	}
	return sb.String()
}

func (b *Bot) handleAddBook(ctx context.Context, userID, args string) string {
	fields := strings.Fields(args)
	if len(fields) < 3 {
		return "Usage: /add_book <pages|-> <shelf> <title>"
	}

	var pageCount *int
	if fields[0] != "-" {
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			return "Page count must be a number or -"
		}
		pageCount = &n
	}

	category, err := progress.ParseCategoryInput(fields[1])
	if err != nil {
		return describeError(err)
	}

	book, err := b.svc.AddBook(ctx, userID, strings.Join(fields[2:], " "), pageCount, category)
	if err != nil {
		return describeError(err)
	}
	return fmt.Sprintf("✅ Added %q (%s)\nid: %s", book.Title, book.Category, book.ID)
}

func (b *Bot) handleProgress(ctx context.Context, userID, args string) string {
	fields := strings.Fields(args)
	if len(fields) != 3 {
		return "Usage: /progress <book id> <value> <pages|percentage>"
	}

	value, err := strconv.ParseFloat(strings.TrimSuffix(fields[1], "%"), 64)
	if err != nil {
		return "Progress value must be a number"
	}
	progressType, err := progress.ParseProgressTypeInput(fields[2])
	if err != nil {
		return describeError(err)
	}

	res, err := b.svc.UpdateProgress(ctx, userID, fields[0], &value, progressType)
	if err != nil {
		return describeError(err)
	}

	stats, err := b.svc.GetStats(ctx, userID)
	if err != nil {
		return fmt.Sprintf("✅ %s: %d pages (%.0f%%)", res.Book.Title, res.Book.PagesRead, res.Book.Progress)
	}
	return fmt.Sprintf("✅ %s: %d pages (%.0f%%)\n🔥 Streak: %d day(s), best %d\n📖 Total pages read: %d",
		res.Book.Title, res.Book.PagesRead, res.Book.Progress, stats.CurrentStreak, stats.MaxStreak, stats.TotalPagesRead)
}

func (b *Bot) handleShelf(ctx context.Context, userID, args string) string {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return "Usage: /shelf <book id> <shelf>"
	}

	category, err := progress.ParseCategoryInput(fields[1])
	if err != nil {
		return describeError(err)
	}

	book, err := b.svc.ChangeCategory(ctx, userID, fields[0], category)
	if err != nil {
		return describeError(err)
	}
	return fmt.Sprintf("📦 %s moved to %s", book.Title, book.Category)
}

func (b *Bot) handleDelete(ctx context.Context, userID, args string) string {
	bookID := strings.TrimSpace(args)
	if bookID == "" {
		return "Usage: /delete <book id>"
	}

	if err := b.svc.DeleteBook(ctx, userID, bookID); err != nil {
		return describeError(err)
	}
	return "🗑 Book deleted"
}

func (b *Bot) handleActivity(ctx context.Context, userID, args string) string {
	days := 0
	if s := strings.TrimSpace(args); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return "Usage: /activity [days]"
		}
		days = n
	}

	series, err := b.svc.GetActivity(ctx, userID, days)
	if err != nil {
		return describeError(err)
	}

	var sb strings.Builder
	sb.WriteString("📅 Pages read per day:\n")
	for _, d := range series {
		fmt.Fprintf(&sb, "\n%s  %d", d.Day.Format("Mon 2006-01-02"), d.PagesRead)
	}
	return sb.String()
}

func (b *Bot) handleStats(ctx context.Context, userID string) string {
	stats, err := b.svc.GetStats(ctx, userID)
	if err != nil {
		return describeError(err)
	}
	return fmt.Sprintf("📖 Total pages read: %d\n🔥 Current streak: %d day(s)\n🏆 Best streak: %d day(s)",
		stats.TotalPagesRead, stats.CurrentStreak, stats.MaxStreak)
}

