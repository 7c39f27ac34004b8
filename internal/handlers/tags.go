package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/benvon/toptag/internal/models"
	"github.com/benvon/toptag/internal/validation"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 30
	maxHistoryLimit     = 365
)

// TagLookup resolves tag titles to stored tags and their count history
type TagLookup interface {
	ResolveByTitle(ctx context.Context, titles []string) ([]models.Tag, error)
	FindByTitle(ctx context.Context, title string) (models.Tag, bool, error)
	CountHistory(ctx context.Context, tagID int64, limit int) ([]models.TagCount, error)
}

// TagHistoryResponse is one tag with its recorded counts, newest first
type TagHistoryResponse struct {
	Tag     models.Tag        `json:"tag"`
	History []models.TagCount `json:"history"`
}

// TagHandler serves tag lookups
type TagHandler struct {
	tags   TagLookup
	logger *zap.Logger
}

// NewTagHandler creates a new tag handler
func NewTagHandler(tags TagLookup, logger *zap.Logger) *TagHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TagHandler{tags: tags, logger: logger}
}

// RegisterRoutes registers tag routes.
// The router should already have the /tags prefix.
func (h *TagHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/{titles}", h.GetTags).Methods("GET")
	r.HandleFunc("/{title}/history", h.GetTagHistory).Methods("GET")
}

// GetTags handles GET /tags/{titles} where titles is comma separated.
// Unknown titles are omitted from the result.
func (h *TagHandler) GetTags(w http.ResponseWriter, r *http.Request) {
	titles := models.NormalizeTagTitles(validation.SplitTagList(mux.Vars(r)["titles"]))
	if len(titles) == 0 {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "At least one tag title is required")
		return
	}
	if len(titles) > validation.MaxSeedTags {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Too many tag titles")
		return
	}

	tags, err := h.tags.ResolveByTitle(r.Context(), titles)
	if err != nil {
		h.logger.Error("tag_lookup_failed", zap.Int("titles", len(titles)), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to look up tags")
		return
	}
	if tags == nil {
		tags = []models.Tag{}
	}
	respondJSON(w, http.StatusOK, tags)
}

// GetTagHistory handles GET /tags/{title}/history?limit=N
func (h *TagHandler) GetTagHistory(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["title"]
	if err := validation.ValidateTagTitle(raw); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxHistoryLimit {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "limit must be between 1 and 365")
			return
		}
		limit = n
	}

	title := models.NormalizeTagTitle(raw)
	tag, found, err := h.tags.FindByTitle(r.Context(), title)
	if err != nil {
		h.logger.Error("tag_history_lookup_failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to look up tag")
		return
	}
	if !found {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Tag not found")
		return
	}

	history, err := h.tags.CountHistory(r.Context(), tag.ID, limit)
	if err != nil {
		h.logger.Error("tag_history_query_failed", zap.Int64("tag_id", tag.ID), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load tag history")
		return
	}
	if history == nil {
		history = []models.TagCount{}
	}
	respondJSON(w, http.StatusOK, TagHistoryResponse{Tag: tag, History: history})
}
