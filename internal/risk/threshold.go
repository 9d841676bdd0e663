package risk

import (
	"strings"

	"tradingx/internal/models"
)

// Threshold bounds. Dynamic take-profit and stop-loss always land inside these
// regardless of how extreme the inputs are.
const (
	TakeProfitMin = 1.2
	TakeProfitMax = 6.0
	StopLossMin   = 0.5
	StopLossMax   = 5.0
)

// takeProfitBase is the per-timeframe starting threshold in percent.
func takeProfitBase(timeframe string) float64 {
	switch strings.ToLower(strings.TrimSpace(timeframe)) {
	case "1m":
		return 1.5
	case "3m":
		return 2.0
	case "5m":
		return 2.5
	case "15m":
		return 3.0
	case "30m":
		return 4.0
	default:
		return 2.0
	}
}

// priceLevelMultiplier buckets by entry price: large-cap price levels move in
// wider absolute bands, sub-dollar assets in tighter ones.
func priceLevelMultiplier(entry float64) float64 {
	switch {
	case entry > 50000:
		return 1.3
	case entry > 3000:
		return 1.2
	case entry > 300:
		return 1.1
	case entry > 1:
		return 1.0
	default:
		return 0.8
	}
}

// trendScore builds the 0-3 composite from RSI extremity, MACD magnitude and
// stochastic extremity. Missing indicator families contribute nothing.
func trendScore(ind models.IndicatorSet) float64 {
	score := 0.0
	if ind.RSI != nil {
		switch rsi := *ind.RSI; {
		case rsi >= 70 || rsi <= 30:
			score += 1.0
		case rsi >= 60 || rsi <= 40:
			score += 0.5
		}
	}
	if sw := ind.Swing; sw != nil && sw.MACDHistogram != nil {
		switch hist := abs(*sw.MACDHistogram); {
		case hist >= 0.5:
			score += 1.0
		case hist >= 0.2:
			score += 0.5
		}
	}
	if sc := ind.Scalping; sc != nil && sc.StochasticK != nil {
		switch k := *sc.StochasticK; {
		case k >= 80 || k <= 20:
			score += 1.0
		case k >= 70 || k <= 30:
			score += 0.5
		}
	}
	return score
}

func trendMultiplier(score float64) float64 {
	switch {
	case score >= 2.5:
		return 1.4
	case score >= 1.5:
		return 1.2
	case score >= 0.5:
		return 1.0
	default:
		return 0.8
	}
}

func confidenceMultiplier(confidence float64) float64 {
	switch {
	case confidence > 0.9:
		return 1.3
	case confidence > 0.8:
		return 1.2
	case confidence > 0.6:
		return 1.0
	default:
		return 0.8
	}
}

// TakeProfitPct computes the dynamic take-profit threshold in percent for a
// signal. Pure function of the signal fields; clamped to
// [TakeProfitMin, TakeProfitMax].
func TakeProfitPct(sig models.Signal) float64 {
	base := takeProfitBase(sig.PrimaryTimeframe)
	entry, _ := sig.EntryPrice.Float64()
	tp := base *
		priceLevelMultiplier(entry) *
		trendMultiplier(trendScore(sig.Indicators)) *
		confidenceMultiplier(sig.Confidence)
	tp += BreakoutScore(sig)
	return clamp(tp, TakeProfitMin, TakeProfitMax)
}

// volatilityFactor is the per-asset stop-loss widening table. Unlisted symbols
// use 1.0.
var volatilityFactor = map[string]float64{
	"BTCUSDT":  0.9,
	"ETHUSDT":  1.0,
	"BNBUSDT":  0.95,
	"SOLUSDT":  1.2,
	"XRPUSDT":  1.15,
	"ADAUSDT":  1.25,
	"DOGEUSDT": 1.4,
}

func stopLossBase(timeframe string) float64 {
	// Base range midpoint: [1,3] for intraday timeframes, [2,5] for 4h/1d.
	switch strings.ToLower(strings.TrimSpace(timeframe)) {
	case "4h", "1d":
		return (2.0 + 5.0) / 2
	default:
		return (1.0 + 3.0) / 2
	}
}

func urgencyMultiplier(u models.Urgency) float64 {
	switch u {
	case models.UrgencyUrgent:
		return 0.8
	case models.UrgencyHigh:
		return 0.9
	case models.UrgencyMedium:
		return 1.1
	default:
		return 1.0
	}
}

// StopLossPct computes the dynamic stop-loss threshold in percent. Pure;
// clamped to [StopLossMin, StopLossMax].
func StopLossPct(sig models.Signal) float64 {
	factor, ok := volatilityFactor[strings.ToUpper(strings.TrimSpace(sig.Symbol))]
	if !ok {
		factor = 1.0
	}
	sl := stopLossBase(sig.PrimaryTimeframe) * factor * urgencyMultiplier(sig.Urgency)
	return clamp(sl, StopLossMin, StopLossMax)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
