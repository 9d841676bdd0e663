package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"tradingx/internal/archive"
	"tradingx/internal/engine"
	"tradingx/internal/repository"
)

type PipelineHandler struct {
	Engine *engine.Engine
	Repo   repository.Repository
}

func (h *PipelineHandler) Register(r *gin.Engine) {
	r.POST("/api/v1/pipeline/refresh", h.forceRefresh)
	r.GET("/api/v1/pipeline/status", h.pipelineStatus)
	r.POST("/api/v1/signals/:id/archive", h.archiveSignal)
	r.GET("/api/v1/pipeline/sources", h.listSources)
}

// @Summary Trigger an out-of-band pipeline run
// @Tags pipeline
// @Success 202 {object} map[string]any
// @Router /api/v1/pipeline/refresh [post]
func (h *PipelineHandler) forceRefresh(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	queued := h.Engine.ForceRefresh()
	Accepted(c, gin.H{"queued": queued})
}

// @Summary Pipeline liveness and feed health
// @Tags pipeline
// @Success 200 {object} map[string]any
// @Router /api/v1/pipeline/status [get]
func (h *PipelineHandler) pipelineStatus(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	st := h.Engine.Status()
	feeds := make([]gin.H, 0, len(st.Feeds))
	for _, f := range st.Feeds {
		feeds = append(feeds, gin.H{
			"name":                 f.Name,
			"status":               f.Status,
			"last_poll_at":         f.LastPollAt,
			"last_error":           f.LastError,
			"consecutive_failures": f.ConsecutiveFailures,
		})
	}
	var lastTick *time.Time
	if !st.LastTickAt.IsZero() {
		t := st.LastTickAt
		lastTick = &t
	}
	Ok(c, gin.H{
		"last_tick_at": lastTick,
		"tick_count":   st.TickCount,
		"active_count": st.ActiveCount,
		"last_error":   st.LastError,
		"feeds":        feeds,
	}, nil)
}

// @Summary Archive one signal on demand
// @Tags pipeline
// @Param id path string true "signal id"
// @Success 200 {object} map[string]any
// @Router /api/v1/signals/{id}/archive [post]
func (h *PipelineHandler) archiveSignal(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "missing signal id", nil)
		return
	}
	err := h.Engine.ArchiveSignal(c.Request.Context(), id)
	switch {
	case err == nil:
		Ok(c, gin.H{"archived": id}, nil)
	case errors.Is(err, engine.ErrSignalNotFound):
		Error(c, http.StatusNotFound, "signal not found", nil)
	case errors.Is(err, archive.ErrBusy):
		Error(c, http.StatusConflict, "archive already in progress", nil)
	default:
		Error(c, http.StatusBadGateway, err.Error(), nil)
	}
}

// @Summary List persisted feed sources
// @Tags pipeline
// @Success 200 {object} map[string]any
// @Router /api/v1/pipeline/sources [get]
func (h *PipelineHandler) listSources(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	items, err := h.Repo.ListSignalSources(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}
