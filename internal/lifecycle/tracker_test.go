package lifecycle

import (
	"testing"
	"time"

	"tradingx/internal/models"
)

func windowSignal(created time.Time, window time.Duration) models.Signal {
	return models.Signal{
		ID:        "sig-1",
		Symbol:    "BTCUSDT",
		Status:    models.StatusActive,
		CreatedAt: created,
		ExpiresAt: created.Add(window),
	}
}

func TestEvaluateBuckets(t *testing.T) {
	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	sig := windowSignal(created, time.Hour)

	cases := []struct {
		elapsed time.Duration
		status  models.Status
		bucket  string
	}{
		{5 * time.Minute, models.StatusActive, "fresh"},
		{30 * time.Minute, models.StatusActive, "valid"},
		{50 * time.Minute, models.StatusExpiring, "expiring"},
		{60 * time.Minute, models.StatusExpired, "expired"},
		{90 * time.Minute, models.StatusExpired, "expired"},
	}
	for _, tc := range cases {
		v := Evaluate(sig, created.Add(tc.elapsed))
		if v.Status != tc.status || v.Bucket != tc.bucket {
			t.Fatalf("at +%s: expected %s/%s, got %s/%s",
				tc.elapsed, tc.status, tc.bucket, v.Status, v.Bucket)
		}
	}
}

func TestEvaluateRemainingMonotonic(t *testing.T) {
	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	sig := windowSignal(created, time.Hour)

	prev := 101.0
	for elapsed := time.Duration(0); elapsed < time.Hour; elapsed += 7 * time.Minute {
		v := Evaluate(sig, created.Add(elapsed))
		if v.Pct > prev {
			t.Fatalf("remaining pct must not increase: %.2f after %.2f", v.Pct, prev)
		}
		prev = v.Pct
	}
}

func TestEvaluateMissingTimestampsUnknown(t *testing.T) {
	now := time.Now().UTC()

	noExpiry := models.Signal{CreatedAt: now}
	if v := Evaluate(noExpiry, now); v.Status != models.StatusUnknown || v.Bucket != "unknown" {
		t.Fatalf("missing expiry must be unknown, got %s/%s", v.Status, v.Bucket)
	}

	inverted := models.Signal{CreatedAt: now, ExpiresAt: now.Add(-time.Hour)}
	if v := Evaluate(inverted, now); v.Status != models.StatusUnknown {
		t.Fatalf("inverted window must be unknown, got %s", v.Status)
	}
}

func TestEvaluateExpiryBoundaryIsExpired(t *testing.T) {
	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	sig := windowSignal(created, time.Hour)
	if v := Evaluate(sig, sig.ExpiresAt); v.Status != models.StatusExpired {
		t.Fatalf("expiry instant must already be expired, got %s", v.Status)
	}
}

func TestEvaluateClockSkewClamps(t *testing.T) {
	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	sig := windowSignal(created, time.Hour)
	v := Evaluate(sig, created.Add(-10*time.Minute))
	if v.Pct > 100 {
		t.Fatalf("remaining pct must clamp at 100, got %.2f", v.Pct)
	}
	if v.Status != models.StatusActive {
		t.Fatalf("pre-creation clock skew must still be active, got %s", v.Status)
	}
}

func TestCanExecute(t *testing.T) {
	created := time.Now().UTC().Add(-10 * time.Minute)
	sig := windowSignal(created, time.Hour)
	now := time.Now().UTC()

	if !CanExecute(sig, now) {
		t.Fatal("active signal must be executable")
	}

	sig.Status = models.StatusCancelled
	if CanExecute(sig, now) {
		t.Fatal("terminal signal must not be executable")
	}

	expired := windowSignal(now.Add(-2*time.Hour), time.Hour)
	if CanExecute(expired, now) {
		t.Fatal("expired signal must not be executable")
	}
}
