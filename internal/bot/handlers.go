package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// handleMessage processes a single message
func (b *Bot) handleMessage(message *tgbotapi.Message) {
	// Recover from panics to prevent bot crashes
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleMessage", zap.Any("panic", r))
			b.sendMessage(message.Chat.ID, "An error occurred while processing your request. Please try again.")
		}
	}()

	if !message.IsCommand() {
		return
	}

	reply := b.handleCommand(context.Background(), message)
	b.sendMessage(message.Chat.ID, reply)
}

// handleCommand runs a command and returns the reply text
func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) string {
	userID := userKey(message.From.ID)
	args := message.CommandArguments()

	switch message.Command() {
	case "start", "help":
		return b.handleStart()
	case "books":
		return b.handleBooks(ctx, userID)
	case "add_book":
		return b.handleAddBook(ctx, userID, args)
	case "progress":
		return b.handleProgress(ctx, userID, args)
	case "shelf":
		return b.handleShelf(ctx, userID, args)
	case "delete":
		return b.handleDelete(ctx, userID, args)
	case "activity":
		return b.handleActivity(ctx, userID, args)
	case "stats":
		return b.handleStats(ctx, userID)
	}
	return "Unknown command. Use /start to see available commands."
}
