package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tradingx/internal/engine"
)

type HealthHandler struct {
	DB     *gorm.DB
	Engine *engine.Engine
}

func (h *HealthHandler) Register(r *gin.Engine) {
	r.GET("/healthz", h.health)
	r.GET("/readyz", h.ready)
}

// @Summary Health check
// @Tags health
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (h *HealthHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "signal-engine"})
}

// @Summary Readiness check
// @Tags health
// @Success 200 {object} map[string]any
// @Router /readyz [get]
func (h *HealthHandler) ready(c *gin.Context) {
	checks := gin.H{}

	if h.DB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "checks": gin.H{"db": "missing"}})
		return
	}
	sqlDB, err := h.DB.DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		checks["db"] = "unreachable"
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "checks": checks})
		return
	}
	checks["db"] = "ok"

	// The engine is ready once it has completed at least one tick; before that
	// the active set is still being rehydrated.
	if h.Engine != nil {
		if h.Engine.Status().TickCount > 0 {
			checks["engine"] = "ok"
		} else {
			checks["engine"] = "warming_up"
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready", "checks": checks})
}
