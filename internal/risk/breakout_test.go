package risk

import (
	"testing"

	"github.com/shopspring/decimal"

	"tradingx/internal/models"
)

func TestBreakoutScoreAdditive(t *testing.T) {
	sig := models.Signal{
		EntryPrice: decimal.NewFromInt(100),
		Indicators: models.IndicatorSet{
			VolumeRatio:       models.Float(2.5),
			BreakoutPotential: models.Float(0.8),
			RSI:               models.Float(55),
		},
	}
	// 0.8 (volume) + 0.6 (potential) + 0.3 (momentum zone)
	if got := BreakoutScore(sig); !approxEqual(got, 1.7) {
		t.Fatalf("expected 1.7, got %.2f", got)
	}
}

func approxEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}

func TestBreakoutScoreBandViolation(t *testing.T) {
	price := decimal.NewFromInt(120)
	sig := models.Signal{
		EntryPrice:   decimal.NewFromInt(100),
		CurrentPrice: &price,
		Indicators: models.IndicatorSet{
			Swing: &models.SwingIndicators{
				BollingerUp:  models.Float(110),
				BollingerLow: models.Float(90),
			},
		},
	}
	if got := BreakoutScore(sig); !approxEqual(got, 0.7) {
		t.Fatalf("expected band violation only, got %.2f", got)
	}

	// Inside the band nothing fires.
	inside := decimal.NewFromInt(100)
	sig.CurrentPrice = &inside
	if got := BreakoutScore(sig); got != 0 {
		t.Fatalf("expected 0 inside the band, got %.2f", got)
	}
}

func TestBreakoutScoreMACDCrossNeedsPositiveHistogram(t *testing.T) {
	sig := models.Signal{
		EntryPrice: decimal.NewFromInt(100),
		Indicators: models.IndicatorSet{
			Swing: &models.SwingIndicators{
				MACDLine:      models.Float(1.0),
				MACDSignal:    models.Float(0.5),
				MACDHistogram: models.Float(-0.1),
			},
		},
	}
	if got := BreakoutScore(sig); got != 0 {
		t.Fatalf("cross with negative histogram must not score, got %.2f", got)
	}
}

func TestIsBreakoutRequiresAllThree(t *testing.T) {
	strong := models.Signal{
		Symbol:           "BTCUSDT",
		PrimaryTimeframe: "30m",
		EntryPrice:       decimal.NewFromInt(60000),
		Confidence:       0.85,
		Indicators: models.IndicatorSet{
			VolumeRatio:       models.Float(2.5),
			BreakoutPotential: models.Float(0.8),
			RSI:               models.Float(55),
			Swing: &models.SwingIndicators{
				MACDLine:      models.Float(1.0),
				MACDSignal:    models.Float(0.4),
				MACDHistogram: models.Float(0.6),
			},
		},
	}
	if !IsBreakout(strong) {
		t.Fatal("expected breakout for corroborated strong signal")
	}

	lowConfidence := strong
	lowConfidence.Confidence = 0.7
	if IsBreakout(lowConfidence) {
		t.Fatal("low confidence must veto breakout")
	}

	weakScore := strong
	weakScore.Indicators = models.IndicatorSet{RSI: models.Float(55)}
	if IsBreakout(weakScore) {
		t.Fatal("weak score must veto breakout")
	}
}
