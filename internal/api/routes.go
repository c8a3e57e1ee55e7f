package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"bookshelf/internal/models"
	"bookshelf/internal/progress"
)

const (
	paramUserID = "userID"
	paramBookID = "bookID"
)

// ProgressService is the set of operations the API exposes
type ProgressService interface {
	UpdateProgress(ctx context.Context, userID, bookID string, value *float64, progressType models.ProgressType) (progress.UpdateResult, error)
	ChangeCategory(ctx context.Context, userID, bookID string, category models.Category) (models.Book, error)
	DeleteBook(ctx context.Context, userID, bookID string) error
	GetActivity(ctx context.Context, userID string, windowDays int) ([]models.ActivityDay, error)
	GetStats(ctx context.Context, userID string) (models.Stats, error)
	AddBook(ctx context.Context, userID, title string, pageCount *int, category models.Category) (models.Book, error)
	ListBooks(ctx context.Context, userID string) ([]models.Book, error)
}

// NewRouter builds the HTTP router
func NewRouter(svc ProgressService, logger *zap.Logger) http.Handler {
	h := &Handler{svc: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api/users/{"+paramUserID+"}", func(r chi.Router) {
		r.Get("/books", h.wrap(h.handleListBooks))
		r.Post("/books", h.wrap(h.handleAddBook))
		r.Put("/books/{"+paramBookID+"}/progress", h.wrap(h.handleUpdateProgress))
		r.Put("/books/{"+paramBookID+"}/category", h.wrap(h.handleChangeCategory))
		r.Delete("/books/{"+paramBookID+"}", h.wrap(h.handleDeleteBook))
		r.Get("/activity", h.wrap(h.handleActivity))
		r.Get("/stats", h.wrap(h.handleStats))
	})

	return r
}
