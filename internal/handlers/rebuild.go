package handlers

import (
	"context"
	"net/http"

	"github.com/benvon/toptag/internal/queue"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// RebuildHandler publishes affinity rebuild jobs for the worker
type RebuildHandler struct {
	queue  queue.Enqueuer
	logger *zap.Logger
}

// NewRebuildHandler creates a new rebuild handler
func NewRebuildHandler(q queue.Enqueuer, logger *zap.Logger) *RebuildHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RebuildHandler{queue: q, logger: logger}
}

// RegisterRoutes registers rebuild routes.
// The router should already have the /affinity prefix.
func (h *RebuildHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/rebuild", h.TriggerRebuild).Methods("POST")
}

// RebuildResponse acknowledges a published rebuild job
type RebuildResponse struct {
	Message string `json:"message"`
	JobID   string `json:"job_id"`
}

// TriggerRebuild handles POST /affinity/rebuild. The job is coalesced by the worker
// when a rebuild is already running, so repeated calls are safe.
func (h *RebuildHandler) TriggerRebuild(w http.ResponseWriter, r *http.Request) {
	job := queue.NewRebuildJob(queue.SourceAPI)
	ctx := context.WithoutCancel(r.Context())
	if err := h.queue.Enqueue(ctx, job); err != nil {
		h.logger.Error("rebuild_enqueue_failed",
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Failed to start rebuild")
		return
	}

	h.logger.Info("rebuild_requested",
		zap.String("job_id", job.ID.String()),
		zap.String("source", queue.SourceAPI),
	)
	respondJSON(w, http.StatusAccepted, RebuildResponse{
		Message: "rebuild started",
		JobID:   job.ID.String(),
	})
}
