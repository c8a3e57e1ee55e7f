package progress

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bookshelf/internal/models"
	"bookshelf/internal/storage"
)

const (
	DefaultWindowDays = 7
	MaxWindowDays     = 366
)

// Service runs reading progress operations against a Storage.
// Mutations for the same user are serialized so that two updates can never
// both read the same totals and overwrite each other.
type Service struct {
	db         storage.Storage
	logger     *zap.Logger
	now        func() time.Time
	windowDays int

	locksMu sync.Mutex
	locks   map[string]*userLock
}

// userLock is dropped from Service.locks once nobody holds or waits on it
type userLock struct {
	mu   sync.Mutex
	refs int
}

// Option configures a Service
type Option func(*Service)

// WithClock replaces time.Now as the source of "today"
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithDefaultWindow sets the activity window used when callers pass 0
func WithDefaultWindow(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.windowDays = days
		}
	}
}

// NewService creates a progress service
func NewService(db storage.Storage, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		db:         db,
		logger:     logger,
		now:        time.Now,
		windowDays: DefaultWindowDays,
		locks:      make(map[string]*userLock),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UpdateResult is returned by UpdateProgress
type UpdateResult struct {
	Book       models.Book              `json:"book"`
	ReadingLog []models.ReadingLogEntry `json:"reading_log"`
}

// lockUser blocks until no other mutation for userID is running
func (s *Service) lockUser(userID string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, userID)
		}
		s.locksMu.Unlock()
	}
}

// UpdateProgress records a new progress value for a book, appends a log entry for today,
// adjusts the user's total and recomputes both streaks.
func (s *Service) UpdateProgress(ctx context.Context, userID, bookID string, value *float64, progressType models.ProgressType) (UpdateResult, error) {
	if value == nil {
		return UpdateResult{}, s.rejected("update progress", userID, bookID, invalid("progress", ErrMissingField))
	}
	if progressType == models.ProgressTypeUnknown {
		return UpdateResult{}, s.rejected("update progress", userID, bookID, invalid("progress_type", ErrMissingField))
	}

	unlock := s.lockUser(userID)
	defer unlock()

	user, book, err := s.loadOwned(ctx, userID, bookID)
	if err != nil {
		return UpdateResult{}, err
	}

	res, err := Resolve(book, value, progressType)
	if err != nil {
		return UpdateResult{}, s.rejected("update progress", userID, bookID, err)
	}

	now := s.now().UTC()
	day := NormalizeDay(now)

	total := ApplyDelta(user.TotalPagesRead, ProgressDelta(book, res.PagesRead))

	entry := models.ReadingLogEntry{
		Day:       day,
		PagesRead: pagesReadToday(user.ReadingLog, book, res.PagesRead, day),
		BookID:    book.ID,
		LoggedAt:  now,
	}
	log := append(user.ReadingLog, entry)

	current, best := ComputeStreaks(log, now)
	maxStreak := max(user.MaxStreak, best)

	book.PagesRead = res.PagesRead
	book.Progress = res.Progress
	book.ProgressType = progressType
	book.LastReadAt = &now

	delta := models.UserDelta{
		PushLogEntry:      &entry,
		SetTotalPagesRead: &total,
		SetCurrentStreak:  &current,
		SetMaxStreak:      &maxStreak,
		SetLastUpdate:     &now,
	}
	if err := s.writeBoth(ctx, book, userID, delta); err != nil {
		s.logger.Error("Failed to persist progress update",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.String("book_id", bookID),
		)
		return UpdateResult{}, err
	}

	s.logger.Info("Progress updated",
		zap.String("user_id", userID),
		zap.String("book_id", bookID),
		zap.Int("pages_read", book.PagesRead),
		zap.Int("total_pages_read", total),
		zap.Int("current_streak", current),
		zap.Int("max_streak", maxStreak),
	)

	return UpdateResult{Book: book, ReadingLog: log}, nil
}

// ChangeCategory moves a book to another shelf and reconciles the user's total
func (s *Service) ChangeCategory(ctx context.Context, userID, bookID string, category models.Category) (models.Book, error) {
	if !category.Valid() {
		return models.Book{}, s.rejected("change category", userID, bookID, invalid("category", ErrInvalidCategory))
	}

	unlock := s.lockUser(userID)
	defer unlock()

	user, book, err := s.loadOwned(ctx, userID, bookID)
	if err != nil {
		return models.Book{}, err
	}
	if book.Category == category {
		return book, nil
	}

	total := ApplyDelta(user.TotalPagesRead, CategoryDelta(book, category))
	previous := book.Category
	book.Category = category

	if err := s.writeBoth(ctx, book, userID, models.UserDelta{SetTotalPagesRead: &total}); err != nil {
		s.logger.Error("Failed to persist category change",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.String("book_id", bookID),
		)
		return models.Book{}, err
	}

	s.logger.Info("Category changed",
		zap.String("user_id", userID),
		zap.String("book_id", bookID),
		zap.Stringer("from", previous),
		zap.Stringer("to", category),
		zap.Int("total_pages_read", total),
	)
	return book, nil
}

// DeleteBook removes a book, its contribution to the total and its log entries,
// then recomputes streaks over what is left of the log.
func (s *Service) DeleteBook(ctx context.Context, userID, bookID string) error {
	unlock := s.lockUser(userID)
	defer unlock()

	user, book, err := s.loadOwned(ctx, userID, bookID)
	if err != nil {
		return err
	}

	total := ApplyDelta(user.TotalPagesRead, DeletionDelta(book))

	pruned := make([]models.ReadingLogEntry, 0, len(user.ReadingLog))
	for _, e := range user.ReadingLog {
		if e.BookID != bookID {
			pruned = append(pruned, e)
		}
	}
	current, best := ComputeStreaks(pruned, s.now())

	delta := models.UserDelta{
		PruneBookID:       bookID,
		SetTotalPagesRead: &total,
		SetCurrentStreak:  &current,
		SetMaxStreak:      &best,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.db.DeleteBook(gctx, bookID); err != nil {
			return fmt.Errorf("failed to delete book: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.db.ApplyUserDelta(gctx, userID, delta); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("Failed to delete book",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.String("book_id", bookID),
		)
		return err
	}

	s.logger.Info("Book deleted",
		zap.String("user_id", userID),
		zap.String("book_id", bookID),
		zap.Int("removed_log_entries", len(user.ReadingLog)-len(pruned)),
		zap.Int("total_pages_read", total),
	)
	return nil
}

// GetActivity returns pages read per day over the last windowDays days, oldest first.
// A window of 0 uses the configured default.
func (s *Service) GetActivity(ctx context.Context, userID string, windowDays int) ([]models.ActivityDay, error) {
	if windowDays == 0 {
		windowDays = s.windowDays
	}
	if windowDays < 0 || windowDays > MaxWindowDays {
		return nil, invalid("days", ErrInvalidWindow)
	}

	user, err := s.db.LoadUser(ctx, userID)
	if err != nil {
		return nil, notFound("user", err)
	}

	books, err := s.db.ListBooksOwnedBy(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	owned := make(map[string]struct{}, len(books))
	for _, b := range books {
		owned[b.ID] = struct{}{}
	}

	return ProjectActivity(user.ReadingLog, owned, windowDays, s.now()), nil
}

// GetStats returns the user's aggregates with the current streak evaluated for today
func (s *Service) GetStats(ctx context.Context, userID string) (models.Stats, error) {
	user, err := s.db.LoadUser(ctx, userID)
	if err != nil {
		return models.Stats{}, notFound("user", err)
	}

	current, best := ComputeStreaks(user.ReadingLog, s.now())
	return models.Stats{
		TotalPagesRead:      user.TotalPagesRead,
		CurrentStreak:       current,
		MaxStreak:           max(user.MaxStreak, best),
		LastReadingUpdateAt: user.LastReadingUpdateAt,
	}, nil
}

// AddBook puts a new book on one of the user's shelves, creating the user on first use
func (s *Service) AddBook(ctx context.Context, userID, title string, pageCount *int, category models.Category) (models.Book, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return models.Book{}, s.rejected("add book", userID, "", invalid("title", ErrMissingField))
	}
	if pageCount != nil && (*pageCount < 0 || *pageCount > MaxPages) {
		return models.Book{}, s.rejected("add book", userID, "", invalid("page_count", ErrInvalidPageCount))
	}
	if !category.Valid() {
		return models.Book{}, s.rejected("add book", userID, "", invalid("category", ErrInvalidCategory))
	}

	unlock := s.lockUser(userID)
	defer unlock()

	if err := s.db.CreateUser(ctx, userID); err != nil {
		return models.Book{}, fmt.Errorf("failed to create user: %w", err)
	}

	book := models.Book{
		ID:           uuid.NewString(),
		OwnerID:      userID,
		Title:        title,
		PageCount:    pageCount,
		ProgressType: models.ProgressTypePages,
		Category:     category,
	}
	if err := s.db.CreateBook(ctx, book); err != nil {
		return models.Book{}, fmt.Errorf("failed to create book: %w", err)
	}

	if contribution := Contribution(book, category); contribution > 0 {
		user, err := s.db.LoadUser(ctx, userID)
		if err != nil {
			return models.Book{}, fmt.Errorf("failed to load user: %w", err)
		}
		total := ApplyDelta(user.TotalPagesRead, contribution)
		if err := s.db.ApplyUserDelta(ctx, userID, models.UserDelta{SetTotalPagesRead: &total}); err != nil {
			return models.Book{}, fmt.Errorf("failed to update user: %w", err)
		}
	}

	s.logger.Info("Book added",
		zap.String("user_id", userID),
		zap.String("book_id", book.ID),
		zap.String("title", title),
		zap.Stringer("category", category),
	)
	return book, nil
}

// ListBooks returns the user's books ordered by title
func (s *Service) ListBooks(ctx context.Context, userID string) ([]models.Book, error) {
	books, err := s.db.ListBooksOwnedBy(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return books, nil
}

// loadOwned loads the user and one of their books. A book owned by someone else is not found.
func (s *Service) loadOwned(ctx context.Context, userID, bookID string) (models.User, models.Book, error) {
	user, err := s.db.LoadUser(ctx, userID)
	if err != nil {
		return models.User{}, models.Book{}, notFound("user", err)
	}
	book, err := s.db.LoadBook(ctx, bookID)
	if err != nil {
		return models.User{}, models.Book{}, notFound("book", err)
	}
	if book.OwnerID != userID {
		return models.User{}, models.Book{}, fmt.Errorf("book %s: %w", bookID, ErrNotFound)
	}
	return user, book, nil
}

// writeBoth saves the book and applies the user delta in parallel
func (s *Service) writeBoth(ctx context.Context, book models.Book, userID string, delta models.UserDelta) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.db.SaveBook(gctx, book); err != nil {
			return fmt.Errorf("failed to save book: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.db.ApplyUserDelta(gctx, userID, delta); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func (s *Service) rejected(op, userID, bookID string, err error) error {
	s.logger.Warn("Rejected "+op,
		zap.Error(err),
		zap.String("user_id", userID),
		zap.String("book_id", bookID),
	)
	return err
}

// pagesReadToday is how far the book is past its lowest position during day, including this update.
// The latest entry for the day holds position minus low point, so the low point is recovered from it.
func pagesReadToday(log []models.ReadingLogEntry, book models.Book, pagesRead int, day time.Time) int {
	var latest *models.ReadingLogEntry
	for i := range log {
		e := &log[i]
		if e.BookID != book.ID || !NormalizeDay(e.Day).Equal(day) {
			continue
		}
		if latest == nil || !e.LoggedAt.Before(latest.LoggedAt) {
			latest = e
		}
	}

	low := book.PagesRead
	if latest != nil {
		low = max(book.PagesRead-latest.PagesRead, 0)
	}
	return max(pagesRead-low, 0)
}

func notFound(what string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}

// ParseProgressTypeInput maps request input to a ProgressType, distinguishing missing from invalid
func ParseProgressTypeInput(raw string) (models.ProgressType, error) {
	if strings.TrimSpace(raw) == "" {
		return models.ProgressTypeUnknown, invalid("progress_type", ErrMissingField)
	}
	pt, err := models.ParseProgressType(raw)
	if err != nil {
		return models.ProgressTypeUnknown, invalid("progress_type", ErrInvalidProgressType)
	}
	return pt, nil
}

// ParseCategoryInput maps request input to a Category
func ParseCategoryInput(raw string) (models.Category, error) {
	if strings.TrimSpace(raw) == "" {
		return models.CategoryUnknown, invalid("category", ErrMissingField)
	}
	c, err := models.ParseCategory(raw)
	if err != nil {
		return models.CategoryUnknown, invalid("category", ErrInvalidCategory)
	}
	return c, nil
}
