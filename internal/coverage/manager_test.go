package coverage

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tradingx/internal/models"
)

func testSignal(id, symbol string, confidence float64, scalping bool, created time.Time) models.Signal {
	return models.Signal{
		ID:               id,
		Symbol:           symbol,
		Direction:        models.DirectionLong,
		EntryPrice:       decimal.NewFromInt(100),
		Confidence:       confidence,
		IsScalping:       scalping,
		Status:           models.StatusActive,
		PrimaryTimeframe: "5m",
		CreatedAt:        created,
		ExpiresAt:        created.Add(time.Hour),
	}
}

func TestMergeKeepsExistingOverIncoming(t *testing.T) {
	now := time.Now().UTC()
	mgr := &Manager{}

	existing := []models.Signal{testSignal("a", "BTCUSDT", 0.6, false, now.Add(-10*time.Minute))}
	incoming := []models.Signal{testSignal("b", "BTCUSDT", 0.99, false, now)}

	out := mgr.Merge(existing, incoming, now)
	if len(out) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(out))
	}
	if out[0].ID != "a" {
		t.Fatalf("expected in-flight signal to survive, got %s", out[0].ID)
	}
}

func TestMergeDropsExpiredExistingAndAdmitsIncoming(t *testing.T) {
	now := time.Now().UTC()
	mgr := &Manager{}

	stale := testSignal("a", "ETHUSDT", 0.9, false, now.Add(-2*time.Hour))
	stale.ExpiresAt = now.Add(-time.Hour)
	incoming := []models.Signal{testSignal("b", "ETHUSDT", 0.7, false, now)}

	out := mgr.Merge([]models.Signal{stale}, incoming, now)
	if len(out) != 1 || out[0].ID != "b" {
		t.Fatalf("expected replacement signal b, got %+v", out)
	}
}

func TestMergePicksHigherConfidence(t *testing.T) {
	now := time.Now().UTC()
	mgr := &Manager{}

	incoming := []models.Signal{
		testSignal("low", "SOLUSDT", 0.6, false, now),
		testSignal("high", "SOLUSDT", 0.85, false, now),
	}
	out := mgr.Merge(nil, incoming, now)
	if len(out) != 1 || out[0].ID != "high" {
		t.Fatalf("expected high-confidence winner, got %+v", out)
	}
}

func TestMergeScalpingTieBreak(t *testing.T) {
	now := time.Now().UTC()
	mgr := &Manager{}

	// 0.85 generic vs 0.81 scalping: inside the tie band the scalping
	// signal wins despite the lower raw confidence.
	incoming := []models.Signal{
		testSignal("generic", "BTCUSDT", 0.85, false, now),
		testSignal("scalp", "BTCUSDT", 0.81, true, now),
	}
	out := mgr.Merge(nil, incoming, now)
	if len(out) != 1 || out[0].ID != "scalp" {
		t.Fatalf("expected scalping tie-break winner, got %+v", out)
	}

	// Outside the band raw confidence decides.
	incoming = []models.Signal{
		testSignal("generic", "BTCUSDT", 0.95, false, now),
		testSignal("scalp", "BTCUSDT", 0.80, true, now),
	}
	out = mgr.Merge(nil, incoming, now)
	if len(out) != 1 || out[0].ID != "generic" {
		t.Fatalf("expected confidence winner outside tie band, got %+v", out)
	}
}

func TestMergeSymbolKeyIgnoresDirection(t *testing.T) {
	now := time.Now().UTC()
	mgr := &Manager{}

	long := testSignal("long", "XRPUSDT", 0.7, false, now)
	short := testSignal("short", "XRPUSDT", 0.72, false, now)
	short.Direction = models.DirectionShort

	out := mgr.Merge(nil, []models.Signal{long, short}, now)
	if len(out) != 1 {
		t.Fatalf("expected one signal per symbol regardless of direction, got %d", len(out))
	}
}

func TestBackfillFillsUncoveredTargets(t *testing.T) {
	now := time.Now().UTC()
	mgr := &Manager{TargetSymbols: []string{"BTCUSDT", "ETHUSDT", "ADAUSDT"}}

	active := []models.Signal{testSignal("a", "BTCUSDT", 0.8, false, now)}
	pool := []models.Signal{
		testSignal("eth", "ETHUSDT", 0.65, false, now),
		testSignal("doge", "DOGEUSDT", 0.9, false, now),
	}

	out := mgr.Backfill(active, pool, nil, now)
	if len(out) != 1 || out[0].ID != "eth" {
		t.Fatalf("expected only the uncovered target to be filled, got %+v", out)
	}
}

func TestBackfillNeverResurrectsArchived(t *testing.T) {
	now := time.Now().UTC()
	mgr := &Manager{TargetSymbols: []string{"ETHUSDT"}}

	pool := []models.Signal{testSignal("eth", "ETHUSDT", 0.9, false, now)}
	archived := map[string]bool{"eth": true}

	out := mgr.Backfill(nil, pool, archived, now)
	if len(out) != 0 {
		t.Fatalf("archived signal must not come back, got %+v", out)
	}
}

func TestEligibleRejectsMalformed(t *testing.T) {
	now := time.Now().UTC()

	noEntry := testSignal("a", "BTCUSDT", 0.8, false, now)
	noEntry.EntryPrice = decimal.Zero
	if Eligible(noEntry, now) {
		t.Fatal("zero entry price must not be eligible")
	}

	noExpiry := testSignal("b", "BTCUSDT", 0.8, false, now)
	noExpiry.ExpiresAt = time.Time{}
	if Eligible(noExpiry, now) {
		t.Fatal("missing expiry must not be eligible")
	}

	executed := testSignal("c", "BTCUSDT", 0.8, false, now)
	executed.Status = models.StatusExecuted
	if Eligible(executed, now) {
		t.Fatal("terminal signal must not be eligible")
	}
}
