package handler

import (
	"net/http"

	"globalnews_translator/internal/app/service"
	"globalnews_translator/internal/common"
	"globalnews_translator/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type TranslationHandler struct {
	translationService *service.TranslationService
}

func NewTranslationHandler(ts *service.TranslationService) *TranslationHandler {
	return &TranslationHandler{translationService: ts}
}

type CreateJobsRequest struct {
	ArticleID       string                `json:"article_id"`
	TargetLanguages []string              `json:"target_languages"`
	Priority        model.Priority        `json:"priority"`
	Config          *model.ConfigOverride `json:"config,omitempty"`
}

type BulkJobsRequest struct {
	Urgency         model.UrgencyTag `json:"urgency"`
	TargetLanguages []string         `json:"target_languages"`
	Limit           int              `json:"limit"`
}

type JobIDsResponse struct {
	JobIDs []string `json:"job_ids"`
	Count  int      `json:"count"`
}

// RegisterRoutes mounts the job endpoints. Callers wrap the router with the
// authentication middleware.
func (h *TranslationHandler) RegisterRoutes(r chi.Router) {
	r.Post("/jobs", h.createJobs)
	r.Post("/jobs/bulk", h.createBulkJobs)
	r.Get("/jobs/{jobID}", h.getJob)
	r.Post("/jobs/{jobID}/cancel", h.cancelJob)
	r.Get("/articles/{articleID}", h.listArticleTranslations)
}

func (h *TranslationHandler) createJobs(w http.ResponseWriter, r *http.Request) {
	var req CreateJobsRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	if req.ArticleID == "" {
		common.RespondWithError(w, http.StatusBadRequest, "article_id is required")
		return
	}

	ids, err := h.translationService.CreateTranslationJobs(r.Context(), req.ArticleID, req.TargetLanguages, req.Priority, req.Config)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, JobIDsResponse{JobIDs: ids, Count: len(ids)})
}

func (h *TranslationHandler) createBulkJobs(w http.ResponseWriter, r *http.Request) {
	var req BulkJobsRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}

	ids, err := h.translationService.CreateBulkTranslationJobs(r.Context(), req.Urgency, req.TargetLanguages, req.Limit)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, JobIDsResponse{JobIDs: ids, Count: len(ids)})
}

func (h *TranslationHandler) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.translationService.GetJob(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, job)
}

func (h *TranslationHandler) cancelJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.translationService.CancelJob(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, job)
}

func (h *TranslationHandler) listArticleTranslations(w http.ResponseWriter, r *http.Request) {
	results, err := h.translationService.ListArticleTranslations(r.Context(), chi.URLParam(r, "articleID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	if results == nil {
		results = []model.TranslationResult{}
	}
	common.RespondWithJSON(w, http.StatusOK, results)
}
