package storage

import (
	"context"
	"errors"

	"bookshelf/internal/models"
)

// ErrNotFound is returned when a book or user does not exist
var ErrNotFound = errors.New("not found")

// Storage defines the interface for data storage operations
type Storage interface {
	// Book operations
	CreateBook(ctx context.Context, book models.Book) error
	LoadBook(ctx context.Context, id string) (models.Book, error)
	SaveBook(ctx context.Context, book models.Book) error
	DeleteBook(ctx context.Context, id string) error

	// ListBooksOwnedBy returns the user's books ordered by title
	ListBooksOwnedBy(ctx context.Context, userID string) ([]models.Book, error)

	// User operations

	// LoadUser returns the user together with the full reading log
	LoadUser(ctx context.Context, id string) (models.User, error)
	CreateUser(ctx context.Context, id string) error

	// ApplyUserDelta applies every non-nil field of delta to the user record.
	// PruneBookID removes all reading log entries of that book before PushLogEntry is appended.
	ApplyUserDelta(ctx context.Context, userID string, delta models.UserDelta) error

	// Lifecycle
	Initialize(ctx context.Context) error
	Close() error
}
