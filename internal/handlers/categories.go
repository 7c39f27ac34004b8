package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/benvon/toptag/internal/database"
	"github.com/benvon/toptag/internal/logger"
	"github.com/benvon/toptag/internal/models"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// CategoryStore is the writable category catalog
type CategoryStore interface {
	ListTags(ctx context.Context, title string) ([]models.CategoryTagRow, error)
	Save(ctx context.Context, items []models.CategorizedTag) (database.SaveCategoriesResult, error)
	Clear(ctx context.Context) error
}

// CategoryHandler manages the curated category catalog
type CategoryHandler struct {
	store  CategoryStore
	logger *zap.Logger
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(store CategoryStore, logger *zap.Logger) *CategoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategoryHandler{store: store, logger: logger}
}

// RegisterRoutes registers category routes.
// The router should already have the /categories prefix.
func (h *CategoryHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.SaveCategories).Methods("POST")
	r.HandleFunc("", h.ClearCategories).Methods("DELETE")
	r.HandleFunc("/{title}", h.ListCategoryTags).Methods("GET")
}

// SaveCategoriesRequest is the body of POST /categories
type SaveCategoriesRequest struct {
	Items []models.CategorizedTag `json:"items" validate:"required,min=1,max=5000,dive"`
}

// SaveCategories handles POST /categories
func (h *CategoryHandler) SaveCategories(w http.ResponseWriter, r *http.Request) {
	var req SaveCategoriesRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.store.Save(r.Context(), req.Items)
	if err != nil {
		h.logger.Error("category_save_failed", zap.Int("items", len(req.Items)), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to save categories")
		return
	}
	if len(result.SkippedTags) > 0 {
		h.logger.Warn("category_tags_skipped",
			zap.Int("skipped", len(result.SkippedTags)),
			zap.Strings("tags", logger.SanitizeTags(result.SkippedTags)),
		)
	}
	respondJSON(w, http.StatusOK, result)
}

// ClearCategories handles DELETE /categories
func (h *CategoryHandler) ClearCategories(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(r.Context()); err != nil {
		h.logger.Error("category_clear_failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to clear categories")
		return
	}
	h.logger.Info("categories_cleared")
	w.WriteHeader(http.StatusNoContent)
}

// ListCategoryTags handles GET /categories/{title}
func (h *CategoryHandler) ListCategoryTags(w http.ResponseWriter, r *http.Request) {
	title := strings.TrimSpace(mux.Vars(r)["title"])
	if title == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Category title is required")
		return
	}

	rows, err := h.store.ListTags(r.Context(), title)
	if err != nil {
		h.logger.Error("category_list_failed",
			zap.String("category", logger.SanitizeString(title, logger.MaxTagLength)),
			zap.Error(err),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to list category tags")
		return
	}
	if rows == nil {
		rows = []models.CategoryTagRow{}
	}
	respondJSON(w, http.StatusOK, rows)
}
