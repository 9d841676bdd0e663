package risk

import "tradingx/internal/models"

// Breakout thresholds. The detection rule demands three independent
// corroborating conditions so a single noisy indicator cannot fire it.
const (
	breakoutScoreMin      = 1.5
	breakoutTakeProfitMin = 3.5
	breakoutConfidenceMin = 0.8
)

// BreakoutScore sums independent breakout contributions. Always >= 0; missing
// indicators contribute nothing.
func BreakoutScore(sig models.Signal) float64 {
	ind := sig.Indicators
	score := 0.0

	if ind.VolumeRatio != nil {
		switch vr := *ind.VolumeRatio; {
		case vr > 2.0:
			score += 0.8
		case vr > 1.5:
			score += 0.4
		}
	}
	if ind.BreakoutPotential != nil && *ind.BreakoutPotential > 0.7 {
		score += 0.6
	}
	if sw := ind.Swing; sw != nil {
		if sw.MACDLine != nil && sw.MACDSignal != nil && sw.MACDHistogram != nil &&
			*sw.MACDLine > *sw.MACDSignal && *sw.MACDHistogram > 0 {
			score += 0.5
		}
		if up, low := sw.BollingerUp, sw.BollingerLow; up != nil && low != nil {
			if price, ok := referencePrice(sig); ok && (price > *up || price < *low) {
				score += 0.7
			}
		}
	}
	// Momentum zone: RSI between the extremes, exclusive.
	if ind.RSI != nil && *ind.RSI > 30 && *ind.RSI < 70 {
		score += 0.3
	}
	return score
}

// IsBreakout reports whether the signal qualifies as a breakout: high score,
// wide computed take-profit, and high confidence all at once.
func IsBreakout(sig models.Signal) bool {
	return BreakoutScore(sig) > breakoutScoreMin &&
		TakeProfitPct(sig) > breakoutTakeProfitMin &&
		sig.Confidence > breakoutConfidenceMin
}

func referencePrice(sig models.Signal) (float64, bool) {
	if sig.HasPrice() {
		v, _ := sig.CurrentPrice.Float64()
		return v, true
	}
	if sig.EntryPrice.IsPositive() {
		v, _ := sig.EntryPrice.Float64()
		return v, true
	}
	return 0, false
}
