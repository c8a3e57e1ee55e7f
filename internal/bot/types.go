package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"bookshelf/internal/models"
	"bookshelf/internal/progress"
)

// Service is the set of progress operations the bot issues
type Service interface {
	UpdateProgress(ctx context.Context, userID, bookID string, value *float64, progressType models.ProgressType) (progress.UpdateResult, error)
	ChangeCategory(ctx context.Context, userID, bookID string, category models.Category) (models.Book, error)
	DeleteBook(ctx context.Context, userID, bookID string) error
	GetActivity(ctx context.Context, userID string, windowDays int) ([]models.ActivityDay, error)
	GetStats(ctx context.Context, userID string) (models.Stats, error)
	AddBook(ctx context.Context, userID, title string, pageCount *int, category models.Category) (models.Book, error)
	ListBooks(ctx context.Context, userID string) ([]models.Book, error)
}

// Bot represents the Telegram bot wrapper
type Bot struct {
	api          *tgbotapi.BotAPI
	svc          Service
	allowedUsers map[int64]bool
	logger       *zap.Logger
}
