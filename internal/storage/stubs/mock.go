package stubs

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"bookshelf/internal/models"
	"bookshelf/internal/storage"
)

// MockDB is an in-memory implementation of the Storage interface for testing
type MockDB struct {
	mu    sync.RWMutex
	books map[string]models.Book
	users map[string]models.User

	// yield makes every read hand the scheduler over before returning, widening
	// read-then-write windows in concurrency tests
	yield bool
}

// NewMockDB creates a new mock database
func NewMockDB() *MockDB {
	return &MockDB{
		books: make(map[string]models.Book),
		users: make(map[string]models.User),
	}
}

// WithYield enables scheduler hand-off after reads
func (m *MockDB) WithYield() *MockDB {
	m.yield = true
	return m
}

// Initialize is a no-op for the mock DB
func (m *MockDB) Initialize(ctx context.Context) error {
	return nil
}

// CreateBook stores a new book
func (m *MockDB) CreateBook(ctx context.Context, book models.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.books[book.ID] = cloneBook(book)
	return nil
}

// LoadBook returns the book with the given id
func (m *MockDB) LoadBook(ctx context.Context, id string) (models.Book, error) {
	m.mu.RLock()
	book, ok := m.books[id]
	m.mu.RUnlock()
	m.pause()

	if !ok {
		return models.Book{}, storage.ErrNotFound
	}
	return cloneBook(book), nil
}

// SaveBook overwrites an existing book
func (m *MockDB) SaveBook(ctx context.Context, book models.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.books[book.ID]; !ok {
		return storage.ErrNotFound
	}
	m.books[book.ID] = cloneBook(book)
	return nil
}

// DeleteBook removes a book
func (m *MockDB) DeleteBook(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.books[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.books, id)
	return nil
}

// ListBooksOwnedBy returns the user's books sorted by title
func (m *MockDB) ListBooksOwnedBy(ctx context.Context, userID string) ([]models.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var books []models.Book
	for _, book := range m.books {
		if book.OwnerID == userID {
			books = append(books, cloneBook(book))
		}
	}

	sort.Slice(books, func(i, j int) bool {
		if books[i].Title != books[j].Title {
			return books[i].Title < books[j].Title
		}
		return books[i].ID < books[j].ID
	})

	return books, nil
}

// CreateUser creates an empty user record; existing users are left as they are
func (m *MockDB) CreateUser(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		m.users[id] = models.User{ID: id}
	}
	return nil
}

// LoadUser returns a copy of the user including the reading log
func (m *MockDB) LoadUser(ctx context.Context, id string) (models.User, error) {
	m.mu.RLock()
	user, ok := m.users[id]
	if ok {
		user.ReadingLog = append([]models.ReadingLogEntry(nil), user.ReadingLog...)
	}
	m.mu.RUnlock()
	m.pause()

	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return user, nil
}

// ApplyUserDelta applies a partial update to the user record
func (m *MockDB) ApplyUserDelta(ctx context.Context, userID string, delta models.UserDelta) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		return storage.ErrNotFound
	}

	if delta.PruneBookID != "" {
		kept := user.ReadingLog[:0:0]
		for _, entry := range user.ReadingLog {
			if entry.BookID != delta.PruneBookID {
				kept = append(kept, entry)
			}
		}
		user.ReadingLog = kept
	}
	if delta.PushLogEntry != nil {
		user.ReadingLog = append(user.ReadingLog, *delta.PushLogEntry)
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
		t := *delta.SetLastUpdate
		user.LastReadingUpdateAt = &t
	}

	m.users[userID] = user
	return nil
}

// Close does nothing for mock DB
func (m *MockDB) Close() error {
	return nil
}

func (m *MockDB) pause() {
	if m.yield {
		runtime.Gosched()
	}
}

func cloneBook(b models.Book) models.Book {
	if b.PageCount != nil {
		pc := *b.PageCount
		b.PageCount = &pc
	}
	if b.LastReadAt != nil {
		t := *b.LastReadAt
		b.LastReadAt = &t
	}
	return b
}
