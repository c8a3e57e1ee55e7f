package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bookshelf/internal/models"
	"bookshelf/internal/progress"
	"bookshelf/internal/storage/stubs"
)

func setupRouter(t *testing.T) (http.Handler, *progress.Service) {
	t.Helper()
	db := stubs.NewMockDB()
	require.NoError(t, db.Initialize(context.Background()))
	now := time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC)
	svc := progress.NewService(db, zap.NewNop(), progress.WithClock(func() time.Time { return now }))
	return NewRouter(svc, zap.NewNop()), svc
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Health(t *testing.T) {
	h, _ := setupRouter(t)
	rec := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestRouter_ProgressFlow(t *testing.T) {
	h, _ := setupRouter(t)

	rec := do(t, h, http.MethodPost, "/api/users/u1/books", map[string]any{
		"title": "Dune", "page_count": 300, "category": "currentlyReading",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var book models.Book
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &book))
	assert.Equal(t, models.CategoryCurrentlyReading, book.Category)

	rec = do(t, h, http.MethodPut, "/api/users/u1/books/"+book.ID+"/progress", map[string]any{
		"progress": 50, "progress_type": "pages",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res progress.UpdateResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 50, res.Book.PagesRead)
	assert.Len(t, res.ReadingLog, 1)

	rec = do(t, h, http.MethodPut, "/api/users/u1/books/"+book.ID+"/category", map[string]any{
		"category": "finishedReading",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/users/u1/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats models.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 300, stats.TotalPagesRead)
	assert.Equal(t, 1, stats.CurrentStreak)

	rec = do(t, h, http.MethodGet, "/api/users/u1/activity?days=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var series []models.ActivityDay
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &series))
	require.Len(t, series, 3)
	assert.Equal(t, 50, series[2].PagesRead)

	rec = do(t, h, http.MethodGet, "/api/users/u1/books", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var books []models.Book
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &books))
	assert.Len(t, books, 1)

	rec = do(t, h, http.MethodDelete, "/api/users/u1/books/"+book.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/users/u1/books/"+book.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_ValidationErrors(t *testing.T) {
	h, svc := setupRouter(t)
	book, err := svc.AddBook(context.Background(), "u1", "Dune", nil, models.CategoryCurrentlyReading)
	require.NoError(t, err)
	path := "/api/users/u1/books/" + book.ID

	testCases := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"missing progress", http.MethodPut, path + "/progress", map[string]any{"progress_type": "pages"}, http.StatusBadRequest},
		{"missing type", http.MethodPut, path + "/progress", map[string]any{"progress": 3}, http.StatusBadRequest},
		{"bad type", http.MethodPut, path + "/progress", map[string]any{"progress": 3, "progress_type": "words"}, http.StatusBadRequest},
		{"huge pages", http.MethodPut, path + "/progress", map[string]any{"progress": 1e300, "progress_type": "pages"}, http.StatusBadRequest},
		{"oversized page count", http.MethodPost, "/api/users/u1/books", map[string]any{"title": "Big", "page_count": 3000000000, "category": "wantToRead"}, http.StatusBadRequest},
		{"bad percentage", http.MethodPut, path + "/progress", map[string]any{"progress": 300, "progress_type": "percentage"}, http.StatusBadRequest},
		{"bad category", http.MethodPut, path + "/category", map[string]any{"category": "lost"}, http.StatusBadRequest},
		{"unknown book", http.MethodPut, "/api/users/u1/books/nope/progress", map[string]any{"progress": 3, "progress_type": "pages"}, http.StatusNotFound},
		{"unknown user", http.MethodGet, "/api/users/ghost/stats", nil, http.StatusNotFound},
		{"bad window", http.MethodGet, "/api/users/u1/activity?days=abc", nil, http.StatusBadRequest},
		{"negative window", http.MethodGet, "/api/users/u1/activity?days=-4", nil, http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestRouter_MalformedBody(t *testing.T) {
	h, _ := setupRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/users/u1/books", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
