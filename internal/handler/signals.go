package handler

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"tradingx/internal/engine"
	"tradingx/internal/lifecycle"
	"tradingx/internal/models"
	"tradingx/internal/risk"
)

// SignalHandler serves the live active set out of the engine store. Reads
// never touch the database; the store snapshot is the authoritative view.
type SignalHandler struct {
	Store *engine.Store
}

func (h *SignalHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/signals")
	group.GET("", h.listSignals)
}

// signalView is the read model for one active signal, thresholds and
// freshness included.
type signalView struct {
	ID               string           `json:"id"`
	Symbol           string           `json:"symbol"`
	Direction        models.Direction `json:"direction"`
	StrategyName     string           `json:"strategy_name"`
	PrimaryTimeframe string           `json:"primary_timeframe"`
	IsScalping       bool             `json:"is_scalping"`

	EntryPrice    decimal.Decimal  `json:"entry_price"`
	CurrentPrice  *decimal.Decimal `json:"current_price,omitempty"`
	StopLossPct   float64          `json:"stop_loss_pct"`
	TakeProfitPct float64          `json:"take_profit_pct"`
	RiskReward    float64          `json:"risk_reward"`

	Confidence float64        `json:"confidence"`
	Urgency    models.Urgency `json:"urgency"`

	Status           models.Status `json:"status"`
	ValidityBucket   string        `json:"validity_bucket"`
	RemainingPct     float64       `json:"remaining_pct"`
	RemainingSeconds int64         `json:"remaining_seconds"`

	BreakoutScore float64 `json:"breakout_score"`
	IsBreakout    bool    `json:"is_breakout"`

	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	PriceUpdatedAt *time.Time `json:"price_updated_at,omitempty"`
}

// @Summary List active signals
// @Tags signals
// @Param symbol query string false "filter by symbol"
// @Param status query string false "filter by lifecycle status"
// @Param scalping query bool false "filter by scalping flag"
// @Param limit query int false "page size"
// @Param offset query int false "page offset"
// @Success 200 {object} map[string]any
// @Router /api/v1/signals [get]
func (h *SignalHandler) listSignals(c *gin.Context) {
	if h.Store == nil {
		Error(c, 500, "store unavailable", nil)
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(c.Query("symbol")))
	status := strings.ToLower(strings.TrimSpace(c.Query("status")))
	scalping := boolQueryPtr(c, "scalping")
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	now := time.Now().UTC()
	views := make([]signalView, 0)
	for _, sig := range h.Store.Snapshot() {
		if symbol != "" && sig.Symbol != symbol {
			continue
		}
		if scalping != nil && sig.IsScalping != *scalping {
			continue
		}
		view := toSignalView(sig, now)
		if status != "" && string(view.Status) != status {
			continue
		}
		views = append(views, view)
	}

	total := int64(len(views))
	if offset >= len(views) {
		views = views[:0]
	} else {
		end := offset + limit
		if end > len(views) {
			end = len(views)
		}
		views = views[offset:end]
	}
	Ok(c, views, paginationMeta(limit, offset, total))
}

func toSignalView(sig models.Signal, now time.Time) signalView {
	v := lifecycle.Evaluate(sig, now)
	return signalView{
		ID:               sig.ID,
		Symbol:           sig.Symbol,
		Direction:        sig.Direction,
		StrategyName:     sig.StrategyName,
		PrimaryTimeframe: sig.PrimaryTimeframe,
		IsScalping:       sig.IsScalping,
		EntryPrice:       sig.EntryPrice,
		CurrentPrice:     sig.CurrentPrice,
		StopLossPct:      sig.StopLossPct,
		TakeProfitPct:    sig.TakeProfitPct,
		RiskReward:       sig.RiskReward,
		Confidence:       sig.Confidence,
		Urgency:          sig.Urgency,
		Status:           v.Status,
		ValidityBucket:   v.Bucket,
		RemainingPct:     v.Pct,
		RemainingSeconds: int64(v.Remaining / time.Second),
		BreakoutScore:    risk.BreakoutScore(sig),
		IsBreakout:       risk.IsBreakout(sig),
		CreatedAt:        sig.CreatedAt,
		ExpiresAt:        sig.ExpiresAt,
		PriceUpdatedAt:   sig.PriceUpdatedAt,
	}
}
