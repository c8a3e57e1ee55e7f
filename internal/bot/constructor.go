package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// NewBot creates a new Telegram bot
func NewBot(token string, svc Service, allowedUserIDs []int64, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		logger.Error("Failed to create bot API", zap.Error(err))
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	allowedUsers := make(map[int64]bool)
	for _, id := range allowedUserIDs {
		allowedUsers[id] = true
	}

	logger.Info("Bot created", zap.String("bot_username", api.Self.UserName))

	return &Bot{
		api:          api,
		svc:          svc,
		allowedUsers: allowedUsers,
		logger:       logger,
	}, nil
}
