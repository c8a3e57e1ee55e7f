package ch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"bookshelf/internal/models"
	"bookshelf/internal/storage"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// ClickHouseDB stores books and users as versioned rows in ReplacingMergeTree tables
// and the reading log as an append-only MergeTree table.
type ClickHouseDB struct {
	conn clickhouse.Conn
}

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(host string, port int, database, user, password string, useTLS bool) (*ClickHouseDB, error) {
	addr := fmt.Sprintf("%s:%d", host, port)

	options := &clickhouse.Options{
		Addr:     []string{addr},
		Protocol: clickhouse.Native,
		Auth: clickhouse.Auth{
			Database: database,
			Username: user,
			Password: password,
		},
	}

	if useTLS {
		options.TLS = &tls.Config{
			InsecureSkipVerify: false,
		}
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &ClickHouseDB{conn: conn}, nil
}

// Initialize is a no-op - tables are managed via migrations
func (db *ClickHouseDB) Initialize(ctx context.Context) error {
	return nil
}

func nextVersion() uint64 {
	return uint64(time.Now().UnixNano())
}

const bookColumns = `id, owner_id, title, page_count, pages_read, progress, progress_type, category, last_read_at`

// CreateBook inserts a new book
func (db *ClickHouseDB) CreateBook(ctx context.Context, book models.Book) error {
	if err := db.insertBook(ctx, book, false); err != nil {
		return fmt.Errorf("failed to create book: %w", err)
	}
	return nil
}

// LoadBook returns the latest live version of a book
func (db *ClickHouseDB) LoadBook(ctx context.Context, id string) (models.Book, error) {
	books, err := db.queryBooks(ctx,
		`SELECT `+bookColumns+` FROM books FINAL WHERE id = ? AND is_deleted = 0`, id)
	if err != nil {
		return models.Book{}, fmt.Errorf("failed to load book: %w", err)
	}
	if len(books) == 0 {
		return models.Book{}, storage.ErrNotFound
	}
	return books[0], nil
}

// SaveBook writes a new version of an existing book
func (db *ClickHouseDB) SaveBook(ctx context.Context, book models.Book) error {
	if _, err := db.LoadBook(ctx, book.ID); err != nil {
		return err
	}
	if err := db.insertBook(ctx, book, false); err != nil {
		return fmt.Errorf("failed to save book: %w", err)
	}
	return nil
}

// DeleteBook writes a tombstone version of the book
func (db *ClickHouseDB) DeleteBook(ctx context.Context, id string) error {
	book, err := db.LoadBook(ctx, id)
	if err != nil {
		return err
	}
	if err := db.insertBook(ctx, book, true); err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}
	return nil
}

// ListBooksOwnedBy returns the user's live books ordered by title
func (db *ClickHouseDB) ListBooksOwnedBy(ctx context.Context, userID string) ([]models.Book, error) {
	books, err := db.queryBooks(ctx,
		`SELECT `+bookColumns+` FROM books FINAL WHERE owner_id = ? AND is_deleted = 0 ORDER BY title, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return books, nil
}

func (db *ClickHouseDB) insertBook(ctx context.Context, book models.Book, deleted bool) error {
	var pageCount any
	if book.PageCount != nil {
		pageCount = int32(*book.PageCount)
	}
	var lastReadAt any
	if book.LastReadAt != nil {
		lastReadAt = book.LastReadAt.UTC()
	}
	var isDeleted uint8
	if deleted {
		isDeleted = 1
	}

	return db.conn.Exec(ctx, `INSERT INTO books (`+bookColumns+`, is_deleted, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		book.ID, book.OwnerID, book.Title, pageCount, int32(book.PagesRead), book.Progress,
		book.ProgressType.String(), book.Category.String(), lastReadAt, isDeleted, nextVersion())
}

func (db *ClickHouseDB) queryBooks(ctx context.Context, query string, args ...any) ([]models.Book, error) {
	rows, err := db.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []models.Book
	for rows.Next() {
		var (
			book         models.Book
			pageCount    *int32
			pagesRead    int32
			progressType string
			category     string
			lastReadAt   *time.Time
		)
		if err := rows.Scan(&book.ID, &book.OwnerID, &book.Title, &pageCount, &pagesRead,
			&book.Progress, &progressType, &category, &lastReadAt); err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		if pageCount != nil {
			pc := int(*pageCount)
			book.PageCount = &pc
		}
		book.PagesRead = int(pagesRead)
		if book.ProgressType, err = models.ParseProgressType(progressType); err != nil {
			return nil, fmt.Errorf("book %s: %w", book.ID, err)
		}
		if book.Category, err = models.ParseCategory(category); err != nil {
			return nil, fmt.Errorf("book %s: %w", book.ID, err)
		}
		if lastReadAt != nil {
			t := lastReadAt.UTC()
			book.LastReadAt = &t
		}
		books = append(books, book)
	}
	return books, rows.Err()
}

// CreateUser inserts an empty user unless one already exists
func (db *ClickHouseDB) CreateUser(ctx context.Context, id string) error {
	_, err := db.loadUserRow(ctx, id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	if err := db.insertUser(ctx, models.User{ID: id}); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// LoadUser returns the latest user aggregates with the full reading log in insertion order
func (db *ClickHouseDB) LoadUser(ctx context.Context, id string) (models.User, error) {
	user, err := db.loadUserRow(ctx, id)
	if err != nil {
		return models.User{}, err
	}

	rows, err := db.conn.Query(ctx,
		`SELECT book_id, day, pages_read, logged_at FROM reading_log WHERE user_id = ? ORDER BY logged_at`, id)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to load reading log: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			entry     models.ReadingLogEntry
			pagesRead int32
		)
		if err := rows.Scan(&entry.BookID, &entry.Day, &pagesRead, &entry.LoggedAt); err != nil {
			return models.User{}, fmt.Errorf("failed to scan reading log entry: %w", err)
		}
		entry.Day = entry.Day.UTC()
		entry.LoggedAt = entry.LoggedAt.UTC()
		entry.PagesRead = int(pagesRead)
		user.ReadingLog = append(user.ReadingLog, entry)
	}
	if err := rows.Err(); err != nil {
		return models.User{}, fmt.Errorf("failed to read reading log: %w", err)
	}
	return user, nil
}

// ApplyUserDelta prunes and appends log entries, then writes a new version of the aggregates.
// ClickHouse has no transactions; callers serialize mutations per user.
func (db *ClickHouseDB) ApplyUserDelta(ctx context.Context, userID string, delta models.UserDelta) error {
	user, err := db.loadUserRow(ctx, userID)
	if err != nil {
		return err
	}

	if delta.PruneBookID != "" {
		syncCtx := clickhouse.Context(ctx, clickhouse.WithSettings(clickhouse.Settings{
			"mutations_sync": 1,
		}))
		if err := db.conn.Exec(syncCtx, `ALTER TABLE reading_log DELETE WHERE user_id = ? AND book_id = ?`,
			userID, delta.PruneBookID); err != nil {
			return fmt.Errorf("failed to prune reading log: %w", err)
		}
	}

	if e := delta.PushLogEntry; e != nil {
		if err := db.conn.Exec(ctx, `INSERT INTO reading_log (user_id, book_id, day, pages_read, logged_at) VALUES (?, ?, ?, ?, ?)`,
			userID, e.BookID, e.Day.UTC().Format("2006-01-02"), int32(e.PagesRead), e.LoggedAt.UTC()); err != nil {
			return fmt.Errorf("failed to append reading log entry: %w", err)
		}
	}

	if delta.SetTotalPagesRead == nil && delta.SetCurrentStreak == nil &&
		delta.SetMaxStreak == nil && delta.SetLastUpdate == nil {
		return nil
	}
	if delta.SetTotalPagesRead != nil {
		user.TotalPagesRead = *delta.SetTotalPagesRead
	}
	if delta.SetCurrentStreak != nil {
		user.CurrentStreak = *delta.SetCurrentStreak
	}
	if delta.SetMaxStreak != nil {
		user.MaxStreak = *delta.SetMaxStreak
	}
	if delta.SetLastUpdate != nil {
		t := delta.SetLastUpdate.UTC()
		user.LastReadingUpdateAt = &t
	}
	if err := db.insertUser(ctx, user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (db *ClickHouseDB) loadUserRow(ctx context.Context, id string) (models.User, error) {
	rows, err := db.conn.Query(ctx,
		`SELECT id, total_pages_read, current_streak, max_streak, last_reading_update_at FROM users FINAL WHERE id = ?`, id)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to load user: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return models.User{}, fmt.Errorf("failed to load user: %w", err)
		}
		return models.User{}, storage.ErrNotFound
	}

	var (
		user           models.User
		total          int64
		current, best  int32
		lastReadUpdate *time.Time
	)
	if err := rows.Scan(&user.ID, &total, &current, &best, &lastReadUpdate); err != nil {
		return models.User{}, fmt.Errorf("failed to scan user: %w", err)
	}
	user.TotalPagesRead = int(total)
	user.CurrentStreak = int(current)
	user.MaxStreak = int(best)
	if lastReadUpdate != nil {
		t := lastReadUpdate.UTC()
		user.LastReadingUpdateAt = &t
	}
	return user, nil
}

func (db *ClickHouseDB) insertUser(ctx context.Context, user models.User) error {
	var lastUpdate any
	if user.LastReadingUpdateAt != nil {
		lastUpdate = user.LastReadingUpdateAt.UTC()
	}
	return db.conn.Exec(ctx, `INSERT INTO users (id, total_pages_read, current_streak, max_streak, last_reading_update_at, version)
		VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, int64(user.TotalPagesRead), int32(user.CurrentStreak), int32(user.MaxStreak), lastUpdate, nextVersion())
}

// Close closes the database connection
func (db *ClickHouseDB) Close() error {
	if db.conn != nil {
		err := db.conn.Close()
		db.conn = nil
		return err
	}
	return nil
}
