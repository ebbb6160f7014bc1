package handler

import (
	"context"
	"net/http"
	"time"

	"globalnews_translator/internal/app/translation"
	"globalnews_translator/internal/common"
)

type HealthHandler struct {
	gateway translation.HealthChecker // nil when the gateway cannot report readiness
	running func() bool
}

func NewHealthHandler(gateway translation.HealthChecker, running func() bool) *HealthHandler {
	return &HealthHandler{gateway: gateway, running: running}
}

type HealthResponse struct {
	Status          string `json:"status"`
	Gateway         string `json:"gateway"`
	PipelineRunning bool   `json:"pipeline_running"`
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Gateway: "unknown", PipelineRunning: h.running()}
	code := http.StatusOK

	if h.gateway != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := h.gateway.Healthy(ctx); err != nil {
			resp.Status = "degraded"
			resp.Gateway = err.Error()
			code = http.StatusServiceUnavailable
		} else {
			resp.Gateway = "ok"
		}
	}
	common.RespondWithJSON(w, code, resp)
}
