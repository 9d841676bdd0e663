package models

// IndicatorSet is the technical context attached to a signal. The shared core
// is populated for every strategy family; the Scalping and Swing records are
// optional variants so downstream calculators work over explicit shapes instead
// of a loose bag of nullable fields.
type IndicatorSet struct {
	RSI               *float64 `json:"rsi,omitempty"`
	VolumeRatio       *float64 `json:"volume_ratio,omitempty"`
	ATRPercent        *float64 `json:"atr_percent,omitempty"`
	BreakoutPotential *float64 `json:"breakout_potential,omitempty"`

	Scalping *ScalpingIndicators `json:"scalping,omitempty"`
	Swing    *SwingIndicators    `json:"swing,omitempty"`
}

// ScalpingIndicators carries the short-horizon family.
type ScalpingIndicators struct {
	EMADeviationPct  *float64 `json:"ema_deviation_pct,omitempty"`
	VWAPDeviationPct *float64 `json:"vwap_deviation_pct,omitempty"`
	StochasticK      *float64 `json:"stochastic_k,omitempty"`
}

// SwingIndicators carries the longer-horizon family.
type SwingIndicators struct {
	MACDLine      *float64 `json:"macd_line,omitempty"`
	MACDSignal    *float64 `json:"macd_signal,omitempty"`
	MACDHistogram *float64 `json:"macd_histogram,omitempty"`
	BollingerUp   *float64 `json:"bollinger_upper,omitempty"`
	BollingerLow  *float64 `json:"bollinger_lower,omitempty"`
}

// Value returns *p or def when absent.
func Value(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// Float is a literal-pointer helper used by feed decoding and tests.
func Float(v float64) *float64 { return &v }
