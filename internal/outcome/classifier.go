package outcome

import (
	"tradingx/internal/models"
	"tradingx/internal/risk"
)

// BreakevenBandPct is the noise floor: moves inside (0, BreakevenBandPct) are
// too small to count as a win or a loss.
const BreakevenBandPct = 0.5

// Outcome is the classification of a signal against its thresholds.
type Outcome struct {
	Result    models.TradeResult
	ProfitPct float64
}

// ProfitPct returns the direction-aware percent move from entry to the current
// price. ok is false when either price is missing.
func ProfitPct(sig models.Signal) (float64, bool) {
	if !sig.HasPrice() || !sig.EntryPrice.IsPositive() {
		return 0, false
	}
	entry, _ := sig.EntryPrice.Float64()
	current, _ := sig.CurrentPrice.Float64()
	profit := (current - entry) / entry * 100
	if sig.Direction == models.DirectionShort {
		profit = -profit
	}
	return profit, true
}

// Classify applies the take-profit/stop-loss thresholds to a signal's current
// price, direction-aware. ok is false when no usable price or entry is present;
// in that case classification is deferred, never defaulted to breakeven.
func Classify(sig models.Signal) (Outcome, bool) {
	profit, ok := ProfitPct(sig)
	if !ok {
		return Outcome{Result: models.ResultUnresolved}, false
	}

	tp := risk.TakeProfitPct(sig)
	sl := risk.StopLossPct(sig)

	switch {
	case profit >= tp:
		return Outcome{Result: models.ResultSuccess, ProfitPct: profit}, true
	case profit <= -sl:
		return Outcome{Result: models.ResultFailure, ProfitPct: profit}, true
	case profit > 0 && profit < BreakevenBandPct:
		return Outcome{Result: models.ResultBreakeven, ProfitPct: profit}, true
	case profit >= BreakevenBandPct:
		// Partial win below the take-profit threshold still counts as success:
		// any positive move past the noise floor is a win for statistics.
		return Outcome{Result: models.ResultSuccess, ProfitPct: profit}, true
	default:
		// Negative but above the stop: a loss that has not hit the stop yet.
		return Outcome{Result: models.ResultBreakeven, ProfitPct: profit}, true
	}
}
