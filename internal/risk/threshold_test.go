package risk

import (
	"testing"

	"github.com/shopspring/decimal"

	"tradingx/internal/models"
)

func baseSignal() models.Signal {
	return models.Signal{
		Symbol:           "ETHUSDT",
		Direction:        models.DirectionLong,
		PrimaryTimeframe: "5m",
		EntryPrice:       decimal.NewFromInt(2500),
		Confidence:       0.7,
		Urgency:          models.UrgencyMedium,
	}
}

func TestTakeProfitStaysInsideBounds(t *testing.T) {
	// Maximally bullish input: every multiplier at its top plus a large
	// breakout score must still clamp to the ceiling.
	sig := baseSignal()
	sig.PrimaryTimeframe = "30m"
	sig.EntryPrice = decimal.NewFromInt(60000)
	sig.Confidence = 0.95
	sig.Indicators = models.IndicatorSet{
		RSI:               models.Float(50),
		VolumeRatio:       models.Float(3),
		BreakoutPotential: models.Float(0.9),
		Scalping:          &models.ScalpingIndicators{StochasticK: models.Float(90)},
		Swing: &models.SwingIndicators{
			MACDLine:      models.Float(1.2),
			MACDSignal:    models.Float(0.4),
			MACDHistogram: models.Float(0.8),
			BollingerUp:   models.Float(59000),
			BollingerLow:  models.Float(55000),
		},
	}
	if tp := TakeProfitPct(sig); tp != TakeProfitMax {
		t.Fatalf("expected clamp to %.1f, got %.4f", TakeProfitMax, tp)
	}

	// Minimal input clamps to the floor.
	weak := models.Signal{
		PrimaryTimeframe: "1m",
		EntryPrice:       decimal.NewFromFloat(0.5),
		Confidence:       0.2,
	}
	if tp := TakeProfitPct(weak); tp < TakeProfitMin {
		t.Fatalf("take-profit below floor: %.4f", tp)
	}
}

func TestTakeProfitUsesTimeframeBase(t *testing.T) {
	short := baseSignal()
	short.PrimaryTimeframe = "1m"
	long := baseSignal()
	long.PrimaryTimeframe = "30m"

	if TakeProfitPct(short) >= TakeProfitPct(long) {
		t.Fatal("longer timeframe must produce a wider take-profit")
	}
}

func TestTakeProfitUnknownTimeframeDefaults(t *testing.T) {
	sig := baseSignal()
	sig.PrimaryTimeframe = "7m"
	ref := baseSignal()
	ref.PrimaryTimeframe = "3m"
	if TakeProfitPct(sig) != TakeProfitPct(ref) {
		t.Fatal("unknown timeframe must fall back to the 2.0 base")
	}
}

func TestTrendScoreComposite(t *testing.T) {
	cases := []struct {
		name string
		ind  models.IndicatorSet
		want float64
	}{
		{"empty", models.IndicatorSet{}, 0},
		{"rsi extreme", models.IndicatorSet{RSI: models.Float(75)}, 1.0},
		{"rsi elevated", models.IndicatorSet{RSI: models.Float(62)}, 0.5},
		{
			"all extreme",
			models.IndicatorSet{
				RSI:      models.Float(25),
				Scalping: &models.ScalpingIndicators{StochasticK: models.Float(15)},
				Swing:    &models.SwingIndicators{MACDHistogram: models.Float(-0.6)},
			},
			3.0,
		},
		{
			"mixed",
			models.IndicatorSet{
				RSI:   models.Float(65),
				Swing: &models.SwingIndicators{MACDHistogram: models.Float(0.3)},
			},
			1.0,
		},
	}
	for _, tc := range cases {
		if got := trendScore(tc.ind); got != tc.want {
			t.Fatalf("%s: expected %.1f, got %.1f", tc.name, tc.want, got)
		}
	}
}

func TestStopLossVolatilityTable(t *testing.T) {
	btc := baseSignal()
	btc.Symbol = "BTCUSDT"
	doge := baseSignal()
	doge.Symbol = "DOGEUSDT"

	if StopLossPct(btc) >= StopLossPct(doge) {
		t.Fatal("volatile asset must get a wider stop")
	}

	unknown := baseSignal()
	unknown.Symbol = "NEWUSDT"
	eth := baseSignal()
	eth.Symbol = "ETHUSDT"
	if StopLossPct(unknown) != StopLossPct(eth) {
		t.Fatal("unlisted symbol must use the neutral factor")
	}
}

func TestStopLossUrgencyTightens(t *testing.T) {
	urgent := baseSignal()
	urgent.Urgency = models.UrgencyUrgent
	medium := baseSignal()
	medium.Urgency = models.UrgencyMedium

	if StopLossPct(urgent) >= StopLossPct(medium) {
		t.Fatal("urgent signals must carry tighter stops")
	}
}

func TestStopLossBounds(t *testing.T) {
	sig := baseSignal()
	sig.Symbol = "DOGEUSDT"
	sig.PrimaryTimeframe = "1d"
	sig.Urgency = models.UrgencyMedium
	if sl := StopLossPct(sig); sl > StopLossMax {
		t.Fatalf("stop-loss above ceiling: %.4f", sl)
	}

	sig.Symbol = "BTCUSDT"
	sig.PrimaryTimeframe = "1m"
	sig.Urgency = models.UrgencyUrgent
	if sl := StopLossPct(sig); sl < StopLossMin {
		t.Fatalf("stop-loss below floor: %.4f", sl)
	}
}
