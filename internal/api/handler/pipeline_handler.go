package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"globalnews_translator/internal/app/service"
	"globalnews_translator/internal/common"

	"github.com/go-chi/chi/v5"
)

const defaultStopTimeout = 30 * time.Second

type PipelineHandler struct {
	translationService *service.TranslationService
	stopTimeout        time.Duration
}

func NewPipelineHandler(ts *service.TranslationService, stopTimeout time.Duration) *PipelineHandler {
	if stopTimeout <= 0 {
		stopTimeout = defaultStopTimeout
	}
	return &PipelineHandler{translationService: ts, stopTimeout: stopTimeout}
}

type PipelineStateResponse struct {
	Running bool `json:"running"`
	// Changed is false when the request found the pipeline already in the wanted state.
	Changed bool `json:"changed"`
	// Draining is set when stop returned before in-flight jobs finished.
	Draining bool `json:"draining,omitempty"`
}

func (h *PipelineHandler) RegisterRoutes(r chi.Router) {
	r.Get("/metrics", h.metrics)
	r.Post("/start", h.start)
	r.Post("/stop", h.stop)
}

func (h *PipelineHandler) metrics(w http.ResponseWriter, r *http.Request) {
	m, err := h.translationService.GetQueueMetrics(r.Context())
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, m)
}

func (h *PipelineHandler) start(w http.ResponseWriter, r *http.Request) {
	started := h.translationService.StartPipeline()
	common.RespondWithJSON(w, http.StatusOK, PipelineStateResponse{Running: true, Changed: started})
}

func (h *PipelineHandler) stop(w http.ResponseWriter, r *http.Request) {
	wasRunning := h.translationService.PipelineRunning()

	ctx, cancel := context.WithTimeout(r.Context(), h.stopTimeout)
	defer cancel()
	err := h.translationService.StopPipeline(ctx)
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		common.RespondWithJSON(w, http.StatusAccepted, PipelineStateResponse{Changed: wasRunning, Draining: true})
	case err != nil:
		common.RespondWithDomainError(w, err)
	default:
		common.RespondWithJSON(w, http.StatusOK, PipelineStateResponse{Changed: wasRunning})
	}
}
