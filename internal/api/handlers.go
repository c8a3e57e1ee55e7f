package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"bookshelf/internal/models"
	"bookshelf/internal/progress"
)

// Handler serves the progress API
type Handler struct {
	svc    ProgressService
	logger *zap.Logger
}

type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// wrap turns a handler error into a JSON error response
func (h *Handler) wrap(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}

		var ve *progress.ValidationError
		switch {
		case errors.As(err, &ve):
			respondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, progress.ErrNotFound):
			respondWithError(w, http.StatusNotFound, err.Error())
		default:
			h.logger.Error("Request failed",
				zap.Error(err),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
			)
			respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		}
	}
}

func respondWithJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, status int, message string) {
	respondWithJSON(w, status, map[string]string{"error": message})
}

var errBadBody = errors.New("invalid request body")

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &progress.ValidationError{Field: "body", Err: errBadBody}
	}
	return nil
}

// UpdateProgressRequest is the body of a progress update
type UpdateProgressRequest struct {
	Progress     *float64 `json:"progress"`
	ProgressType string   `json:"progress_type"`
}

func (h *Handler) handleUpdateProgress(w http.ResponseWriter, r *http.Request) error {
	var req UpdateProgressRequest
	if err := decode(r, &req); err != nil {
		return err
	}
	if req.Progress == nil {
		return &progress.ValidationError{Field: "progress", Err: progress.ErrMissingField}
	}
	progressType, err := progress.ParseProgressTypeInput(req.ProgressType)
	if err != nil {
		return err
	}

	res, err := h.svc.UpdateProgress(r.Context(), chi.URLParam(r, paramUserID), chi.URLParam(r, paramBookID), req.Progress, progressType)
	if err != nil {
		return err
	}
	respondWithJSON(w, http.StatusOK, res)
	return nil
}

// ChangeCategoryRequest is the body of a category change
type ChangeCategoryRequest struct {
	Category string `json:"category"`
}

func (h *Handler) handleChangeCategory(w http.ResponseWriter, r *http.Request) error {
	var req ChangeCategoryRequest
	if err := decode(r, &req); err != nil {
		return err
	}
	category, err := progress.ParseCategoryInput(req.Category)
	if err != nil {
		return err
	}

	book, err := h.svc.ChangeCategory(r.Context(), chi.URLParam(r, paramUserID), chi.URLParam(r, paramBookID), category)
	if err != nil {
		return err
	}
	respondWithJSON(w, http.StatusOK, book)
	return nil
}

func (h *Handler) handleDeleteBook(w http.ResponseWriter, r *http.Request) error {
	if err := h.svc.DeleteBook(r.Context(), chi.URLParam(r, paramUserID), chi.URLParam(r, paramBookID)); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *Handler) handleActivity(w http.ResponseWriter, r *http.Request) error {
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return &progress.ValidationError{Field: "days", Err: progress.ErrInvalidWindow}
		}
		days = n
	}

	series, err := h.svc.GetActivity(r.Context(), chi.URLParam(r, paramUserID), days)
	if err != nil {
		return err
	}
	respondWithJSON(w, http.StatusOK, series)
	return nil
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) error {
	stats, err := h.svc.GetStats(r.Context(), chi.URLParam(r, paramUserID))
	if err != nil {
		return err
	}
	respondWithJSON(w, http.StatusOK, stats)
	return nil
}

// AddBookRequest is the body of a new book
type AddBookRequest struct {
	Title     string `json:"title"`
	PageCount *int   `json:"page_count"`
	Category  string `json:"category"`
}

func (h *Handler) handleAddBook(w http.ResponseWriter, r *http.Request) error {
	var req AddBookRequest
	if err := decode(r, &req); err != nil {
		return err
	}
	category, err := progress.ParseCategoryInput(req.Category)
	if err != nil {
		return err
	}

	book, err := h.svc.AddBook(r.Context(), chi.URLParam(r, paramUserID), req.Title, req.PageCount, category)
	if err != nil {
		return err
	}
	respondWithJSON(w, http.StatusCreated, book)
	return nil
}

func (h *Handler) handleListBooks(w http.ResponseWriter, r *http.Request) error {
	books, err := h.svc.ListBooks(r.Context(), chi.URLParam(r, paramUserID))
	if err != nil {
		return err
	}
	if books == nil {
		books = []models.Book{}
	}
	respondWithJSON(w, http.StatusOK, books)
	return nil
}
