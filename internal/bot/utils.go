package bot

import (
	"errors"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"bookshelf/internal/progress"
)

// sendMessage sends a plain text message
func (b *Bot) sendMessage(chatID int64, text string) {
	if b.api == nil {
		return // For testing
	}

	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error("Failed to send message", zap.Error(err), zap.Int64("chat_id", chatID))
	}
}

// userKey maps a Telegram user to a reader id
func userKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// describeError turns a service error into a chat reply
func describeError(err error) string {
	switch {
	case errors.Is(err, progress.ErrMissingField):
		return "Something is missing: " + err.Error()
	case errors.Is(err, progress.ErrInvalidPageCount):
		return "That page number doesn't fit this book."
	case errors.Is(err, progress.ErrInvalidPercentage):
		return "Percentage must be between 0 and 100."
	case errors.Is(err, progress.ErrInvalidProgressType):
		return "Progress type must be pages or percentage."
	case errors.Is(err, progress.ErrInvalidCategory):
		return "Shelf must be one of: currentlyReading, wantToRead, finishedReading."
	case errors.Is(err, progress.ErrInvalidWindow):
		return "Days must be between 1 and 366."
	case errors.Is(err, progress.ErrNotFound):
		return "Not found. Add a book with /add_book first, then use the id from /books."
	}
	return "An error occurred while processing your request. Please try again."
}
