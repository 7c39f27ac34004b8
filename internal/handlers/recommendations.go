package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/benvon/toptag/internal/logger"
	"github.com/benvon/toptag/internal/models"
	"github.com/benvon/toptag/internal/recommend"
	"github.com/benvon/toptag/internal/validation"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Recommender produces ranked tag suggestions
type Recommender interface {
	Recommend(ctx context.Context, seeds []string, kind recommend.Kind) ([]models.Recommendation, error)
}

// RecommendationHandler serves tag recommendations
type RecommendationHandler struct {
	service Recommender
	logger  *zap.Logger
}

// NewRecommendationHandler creates a new recommendation handler
func NewRecommendationHandler(service Recommender, logger *zap.Logger) *RecommendationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecommendationHandler{service: service, logger: logger}
}

// RegisterRoutes registers recommendation routes.
// The router should already have the /recommendations prefix.
func (h *RecommendationHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetRecommendations).Methods("GET")
	r.HandleFunc("", h.PostRecommendations).Methods("POST")
}

// RecommendationRequest is the body of POST /recommendations.
// Affinity seeds must additionally be valid tag titles; see serve.
type RecommendationRequest struct {
	Tags     []string `json:"tags" validate:"required,min=1,max=100,dive,search_term"`
	Strategy string   `json:"strategy,omitempty" validate:"strategy"`
}

// RecommendationResponse carries the ranked suggestions
type RecommendationResponse struct {
	Strategy        recommend.Kind          `json:"strategy"`
	Tags            []string                `json:"tags"`
	Recommendations []models.Recommendation `json:"recommendations"`
}

// GetRecommendations handles GET /recommendations?tags=a,b&strategy=affinity
func (h *RecommendationHandler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := RecommendationRequest{
		Tags:     validation.SplitTagList(query.Get("tags")),
		Strategy: strings.TrimSpace(query.Get("strategy")),
	}
	if err := validation.Validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}
	h.serve(w, r, req)
}

// PostRecommendations handles POST /recommendations
func (h *RecommendationHandler) PostRecommendations(w http.ResponseWriter, r *http.Request) {
	var req RecommendationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	h.serve(w, r, req)
}

func (h *RecommendationHandler) serve(w http.ResponseWriter, r *http.Request, req RecommendationRequest) {
	kind, err := recommend.ParseKind(req.Strategy)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if err := validation.ValidateSeeds(kind, req.Tags); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %v", err))
		return
	}

	result, err := h.service.Recommend(r.Context(), req.Tags, kind)
	if err != nil {
		if errors.Is(err, recommend.ErrUnknownStrategy) {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		h.logger.Error("recommendation_request_failed",
			zap.String("strategy", string(kind)),
			zap.Strings("tags", logger.SanitizeTags(req.Tags)),
			zap.Error(err),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to compute recommendations")
		return
	}

	respondJSON(w, http.StatusOK, RecommendationResponse{
		Strategy:        kind,
		Tags:            models.NormalizeTagTitles(req.Tags),
		Recommendations: result,
	})
}
