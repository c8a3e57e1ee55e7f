package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"bookshelf/internal/api"
	"bookshelf/internal/bot"
	"bookshelf/internal/config"
	"bookshelf/internal/progress"
	"bookshelf/internal/storage"
	"bookshelf/internal/storage/ch"
	"bookshelf/internal/storage/stubs"
)

// App represents the application
type App struct {
	config *config.Config
	logger *zap.Logger
	db     storage.Storage
	svc    *progress.Service
	bot    *bot.Bot
	server *http.Server
}

// New creates and initializes a new application instance
func New() (*App, error) {
	// Load .env file if it exists
	envErr := godotenv.Load()

	// Load configuration from environment variables
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	if envErr != nil {
		logger.Info("No .env file found, using system environment variables")
	}

	app := &App{config: cfg, logger: logger}

	logger.Info("Starting Bookshelf...")

	// Initialize database
	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.svc = progress.NewService(app.db, logger, progress.WithDefaultWindow(cfg.ActivityWindowDays))

	// Initialize bot
	if err := app.initBot(); err != nil {
		return nil, err
	}

	// Initialize HTTP server
	app.initHTTPServer()

	return app, nil
}

func newLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if level == "debug" {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zcfg.Build()
}

// initDatabase initializes the database connection
func (a *App) initDatabase() error {
	var db storage.Storage
	if a.config.UseMockDB {
		a.logger.Info("Using mock database")
		db = stubs.NewMockDB()
	} else {
		a.logger.Info("Connecting to ClickHouse",
			zap.String("host", a.config.ClickHouseHost),
			zap.Int("port", a.config.ClickHousePort),
			zap.String("database", a.config.ClickHouseDatabase),
			zap.String("user", a.config.ClickHouseUser),
			zap.Bool("tls", a.config.ClickHouseUseTLS),
		)
		clickhouseDB, err := ch.NewClickHouseDB(
			a.config.ClickHouseHost,
			a.config.ClickHousePort,
			a.config.ClickHouseDatabase,
			a.config.ClickHouseUser,
			a.config.ClickHousePassword,
			a.config.ClickHouseUseTLS,
		)
		if err != nil {
			return fmt.Errorf("failed to connect to ClickHouse: %w", err)
		}
		db = clickhouseDB
	}

	ctx := context.Background()
	if err := db.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	a.logger.Info("Database initialized successfully")

	a.db = db
	return nil
}

// initBot initializes the Telegram bot when a token is configured
func (a *App) initBot() error {
	if !a.config.BotEnabled() {
		a.logger.Info("TELEGRAM_BOT_TOKEN not set, running HTTP API only")
		return nil
	}

	telegramBot, err := bot.NewBot(a.config.TelegramToken, a.svc, a.config.AllowedUserIDs, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	a.logger.Info("Bot created successfully", zap.Int64s("allowed_users", a.config.AllowedUserIDs))

	a.bot = telegramBot
	return nil
}

// initHTTPServer initializes the HTTP server for the API and the webhook
func (a *App) initHTTPServer() {
	r := chi.NewRouter()

	// Webhook endpoint (only used in webhook mode)
	if a.bot != nil && a.config.WebhookMode {
		r.Post("/telegram-webhook", func(w http.ResponseWriter, r *http.Request) {
			var update tgbotapi.Update
			if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
				a.logger.Warn("Error decoding webhook update", zap.Error(err))
				w.WriteHeader(http.StatusBadRequest)
				return
			}

			// Process update in background to respond quickly to Telegram
			go a.bot.HandleWebhookUpdate(update)

			w.WriteHeader(http.StatusOK)
		})
	}

	r.Mount("/", api.NewRouter(a.svc, a.logger))

	a.server = &http.Server{
		Addr:         ":" + a.config.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 35 * time.Second,
	}
}

// Run starts the application and blocks until shutdown
func (a *App) Run() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("port", a.config.Port))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	if a.bot != nil {
		if a.config.WebhookMode {
			// Webhook mode: configure webhook and wait for HTTP requests
			if err := a.bot.StartWebhook(a.config.WebhookURL); err != nil {
				return fmt.Errorf("failed to setup webhook: %w", err)
			}
			a.logger.Info("Webhook configured. Bot will receive updates via HTTP endpoint /telegram-webhook")
		} else {
			// Polling mode: actively poll Telegram servers
			go func() {
				if err := a.bot.Start(); err != nil {
					a.logger.Error("Bot polling stopped", zap.Error(err))
				}
			}()
		}
	}

	select {
	case <-sigChan:
	case err := <-serverErr:
		a.logger.Error("HTTP server error", zap.Error(err))
	}

	a.logger.Info("Shutting down...")
	return a.Shutdown()
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown() error {
	defer a.logger.Sync()

	if a.bot != nil {
		a.bot.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("HTTP server shutdown error", zap.Error(err))
	}

	if err := a.db.Close(); err != nil {
		a.logger.Error("Error closing database", zap.Error(err))
		return err
	}

	a.logger.Info("Shutdown complete")
	return nil
}
