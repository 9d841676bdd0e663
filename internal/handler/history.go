package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tradingx/internal/repository"
)

type HistoryHandler struct {
	Repo repository.Repository
}

func (h *HistoryHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/history")
	group.GET("", h.listHistory)
	group.GET("/stats", h.historyStats)
}

// @Summary List archived signals
// @Tags history
// @Param symbol query string false "filter by symbol"
// @Param result query string false "filter by trade result"
// @Param reason query string false "filter by archive reason"
// @Param since query string false "RFC3339 lower bound on archived_at"
// @Param until query string false "RFC3339 upper bound on archived_at"
// @Param limit query int false "page size"
// @Param offset query int false "page offset"
// @Success 200 {object} map[string]any
// @Router /api/v1/history [get]
func (h *HistoryHandler) listHistory(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListArchivedSignalsParams{
		Limit:       limit,
		Offset:      offset,
		Symbol:      strQueryPtr(c, "symbol"),
		TradeResult: strQueryPtr(c, "result"),
		Reason:      strQueryPtr(c, "reason"),
		Since:       timeQueryPtr(c, "since"),
		Until:       timeQueryPtr(c, "until"),
		OrderBy:     "archived_at",
		Asc:         boolPtr(false),
	}
	items, err := h.Repo.ListArchivedSignals(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountArchivedSignals(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

// @Summary Aggregate archived outcomes
// @Tags history
// @Param symbol query string false "filter by symbol"
// @Param since query string false "RFC3339 lower bound on archived_at"
// @Param until query string false "RFC3339 upper bound on archived_at"
// @Success 200 {object} map[string]any
// @Router /api/v1/history/stats [get]
func (h *HistoryHandler) historyStats(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	stats, err := h.Repo.HistoryStats(c.Request.Context(), repository.HistoryStatsParams{
		Symbol: strQueryPtr(c, "symbol"),
		Since:  timeQueryPtr(c, "since"),
		Until:  timeQueryPtr(c, "until"),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{
		"total":            stats.Total,
		"success_count":    stats.SuccessCount,
		"failure_count":    stats.FailureCount,
		"breakeven_count":  stats.BreakevenCount,
		"unresolved_count": stats.UnresolvedCount,
		"win_rate":         stats.WinRate,
		"avg_profit_pct":   stats.AvgProfitPct,
	}, nil)
}
