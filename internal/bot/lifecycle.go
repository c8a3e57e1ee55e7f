package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Start starts the bot in polling mode
func (b *Bot) Start() error {
	b.logger.Info("Starting bot in polling mode")

	// Remove webhook (if any was set previously)
	_, err := b.api.Request(tgbotapi.DeleteWebhookConfig{})
	if err != nil {
		b.logger.Warn("Failed to delete webhook", zap.Error(err))
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("Bot started successfully. Waiting for updates...")

	// Blocks until the updates channel is closed
	for update := range updates {
		b.HandleWebhookUpdate(update)
	}
	return nil
}

// Stop stops polling for updates
func (b *Bot) Stop() {
	if b.api != nil {
		b.api.StopReceivingUpdates()
	}
}

// StartWebhook sets up the bot to receive updates via webhook
func (b *Bot) StartWebhook(webhookURL string) error {
	b.logger.Info("Setting up webhook", zap.String("webhook_url", webhookURL))

	webhookConfig, err := tgbotapi.NewWebhook(webhookURL + "/telegram-webhook")
	if err != nil {
		return err
	}
	webhookConfig.MaxConnections = 40

	if _, err := b.api.Request(webhookConfig); err != nil {
		b.logger.Error("Failed to set webhook", zap.Error(err), zap.String("webhook_url", webhookURL))
		return err
	}

	info, err := b.api.GetWebhookInfo()
	if err != nil {
		b.logger.Warn("Failed to get webhook info", zap.Error(err))
	} else {
		b.logger.Info("Webhook set successfully",
			zap.String("url", info.URL),
			zap.Int("pending_updates", info.PendingUpdateCount),
		)
	}

	return nil
}

// HandleWebhookUpdate processes a single update from webhook or polling
func (b *Bot) HandleWebhookUpdate(update tgbotapi.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	userID := update.Message.From.ID
	if !b.allowedUsers[userID] {
		b.logger.Warn("Unauthorized access attempt",
			zap.Int64("user_id", userID),
			zap.String("username", update.Message.From.UserName),
			zap.String("text", update.Message.Text),
		)
		b.sendMessage(update.Message.Chat.ID, "Sorry, you are not authorized to use this bot.")
		return
	}
	b.handleMessage(update.Message)
}
