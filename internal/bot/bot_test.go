package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"bookshelf/internal/models"
	"bookshelf/internal/progress"
	"bookshelf/internal/storage/stubs"
)

// Note: We can't easily mock tgbotapi.BotAPI, so tests call handleCommand
// directly and check the reply text

func newTestBot(t *testing.T) (*Bot, *progress.Service) {
	t.Helper()
	db := stubs.NewMockDB()
	if err := db.Initialize(context.Background()); err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}

	now := time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC)
	svc := progress.NewService(db, zap.NewNop(), progress.WithClock(func() time.Time { return now }))

	bot := &Bot{
		api:          nil, // Not needed for internal logic tests
		svc:          svc,
		allowedUsers: map[int64]bool{123: true},
		logger:       zap.NewNop(),
	}
	return bot, svc
}

func command(userID int64, text string) *tgbotapi.Message {
	length := len(text)
	if i := strings.IndexByte(text, ' '); i >= 0 {
		length = i
	}
	return &tgbotapi.Message{
		From:     &tgbotapi.User{ID: userID},
		Chat:     &tgbotapi.Chat{ID: 456},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}},
	}
}

func TestBot_ReadingFlow(t *testing.T) {
	bot, svc := newTestBot(t)
	ctx := context.Background()

	reply := bot.handleCommand(ctx, command(123, "/add_book 300 currentlyReading The Left Hand of Darkness"))
	if !strings.Contains(reply, "Added") {
		t.Fatalf("Expected book to be added, got %q", reply)
	}

	books, err := svc.ListBooks(ctx, "123")
	if err != nil || len(books) != 1 {
		t.Fatalf("Expected 1 book, got %d (%v)", len(books), err)
	}
	book := books[0]
	if book.Title != "The Left Hand of Darkness" {
		t.Errorf("Expected full title, got %q", book.Title)
	}

	reply = bot.handleCommand(ctx, command(123, "/progress "+book.ID+" 60 pages"))
	if !strings.Contains(reply, "60 pages") || !strings.Contains(reply, "Streak: 1") {
		t.Errorf("Unexpected progress reply: %q", reply)
	}

	reply = bot.handleCommand(ctx, command(123, "/progress "+book.ID+" 50% percentage"))
	if !strings.Contains(reply, "150 pages") {
		t.Errorf("Expected 150 pages after 50%%, got %q", reply)
	}

	reply = bot.handleCommand(ctx, command(123, "/books"))
	if !strings.Contains(reply, book.ID) || !strings.Contains(reply, "150/300") {
		t.Errorf("Unexpected books reply: %q", reply)
	}

	reply = bot.handleCommand(ctx, command(123, "/activity 2"))
	if !strings.Contains(reply, "2025-05-06  150") || !strings.Contains(reply, "2025-05-05  0") {
		t.Errorf("Unexpected activity reply: %q", reply)
	}

	reply = bot.handleCommand(ctx, command(123, "/shelf "+book.ID+" finishedReading"))
	if !strings.Contains(reply, "finishedReading") {
		t.Errorf("Unexpected shelf reply: %q", reply)
	}

	reply = bot.handleCommand(ctx, command(123, "/stats"))
	if !strings.Contains(reply, "Total pages read: 300") {
		t.Errorf("Expected finished book to count in full, got %q", reply)
	}

	reply = bot.handleCommand(ctx, command(123, "/delete "+book.ID))
	if !strings.Contains(reply, "deleted") {
		t.Errorf("Unexpected delete reply: %q", reply)
	}

	reply = bot.handleCommand(ctx, command(123, "/stats"))
	if !strings.Contains(reply, "Total pages read: 0") || !strings.Contains(reply, "Current streak: 0") {
		t.Errorf("Expected empty stats after delete, got %q", reply)
	}
}

func TestBot_InputErrors(t *testing.T) {
	bot, svc := newTestBot(t)
	ctx := context.Background()

	pages := 100
	book, err := svc.AddBook(ctx, "123", "Short Book", &pages, models.CategoryCurrentlyReading)
	if err != nil {
		t.Fatalf("Failed to add book: %v", err)
	}

	testCases := []struct {
		name string
		text string
		want string
	}{
		{"usage add", "/add_book 100", "Usage"},
		{"bad page count", "/add_book many wantToRead Title", "Page count"},
		{"bad shelf", "/add_book - attic Title", "Shelf must be"},
		{"usage progress", "/progress " + book.ID, "Usage"},
		{"not a number", "/progress " + book.ID + " lots pages", "must be a number"},
		{"bad type", "/progress " + book.ID + " 5 words", "pages or percentage"},
		{"beyond page count", "/progress " + book.ID + " 101 pages", "doesn't fit"},
		{"bad percentage", "/progress " + book.ID + " 120 percentage", "between 0 and 100"},
		{"unknown book", "/progress nope 5 pages", "Not found"},
		{"usage delete", "/delete", "Usage"},
		{"bad window", "/activity 1000", "between 1 and 366"},
		{"unknown command", "/dance", "Unknown command"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			reply := bot.handleCommand(ctx, command(123, tc.text))
			if !strings.Contains(reply, tc.want) {
				t.Errorf("Expected reply containing %q, got %q", tc.want, reply)
			}
		})
	}
}

func TestBot_UnknownUserStats(t *testing.T) {
	bot, _ := newTestBot(t)

	reply := bot.handleCommand(context.Background(), command(999, "/stats"))
	if !strings.Contains(reply, "Not found") {
		t.Errorf("Expected not found reply, got %q", reply)
	}

	reply = bot.handleCommand(context.Background(), command(999, "/books"))
	if !strings.Contains(reply, "No books yet") {
		t.Errorf("Expected empty shelf reply, got %q", reply)
	}
}

func TestBot_HandleWebhookUpdateUnauthorized(t *testing.T) {
	bot, svc := newTestBot(t)

	bot.HandleWebhookUpdate(tgbotapi.Update{Message: command(999, "/add_book - wantToRead Sneaky")})

	books, _ := svc.ListBooks(context.Background(), "999")
	if len(books) != 0 {
		t.Errorf("Expected unauthorized user to be ignored, got %d books", len(books))
	}

	bot.HandleWebhookUpdate(tgbotapi.Update{Message: command(123, "/add_book - wantToRead Allowed")})
	books, _ = svc.ListBooks(context.Background(), "123")
	if len(books) != 1 {
		t.Errorf("Expected authorized user's book to be added, got %d", len(books))
	}
}
