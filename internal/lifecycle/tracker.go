package lifecycle

import (
	"time"

	"tradingx/internal/models"
)

// Validity is the single authoritative answer to "how alive is this signal".
// Everything derives from the stored ExpiresAt; no caller may recompute expiry
// from elapsed time since creation.
type Validity struct {
	Status    models.Status
	Remaining time.Duration
	// Pct is the remaining share of the total window in [0,100].
	Pct float64
	// Bucket is the coarse freshness label served to readers:
	// fresh (>70%), valid (30-70%), expiring (<30%), expired, unknown.
	Bucket string
}

// Bucket boundaries as a share of the total validity window.
const (
	freshAbovePct    = 70.0
	expiringBelowPct = 30.0
)

// Evaluate buckets a signal's remaining lifetime at the given instant.
// Signals missing their authoritative timestamps come back StatusUnknown and
// are excluded from downstream computation.
func Evaluate(sig models.Signal, now time.Time) Validity {
	if sig.ExpiresAt.IsZero() || sig.CreatedAt.IsZero() || !sig.ExpiresAt.After(sig.CreatedAt) {
		return Validity{Status: models.StatusUnknown, Bucket: "unknown"}
	}
	now = now.UTC()
	if !now.Before(sig.ExpiresAt) {
		return Validity{Status: models.StatusExpired, Bucket: "expired"}
	}

	total := sig.ExpiresAt.Sub(sig.CreatedAt)
	remaining := sig.ExpiresAt.Sub(now)
	if remaining > total {
		// Clock skew: now before CreatedAt. Treat as a full window.
		remaining = total
	}
	pct := float64(remaining) / float64(total) * 100

	status := models.StatusActive
	bucket := "valid"
	switch {
	case pct > freshAbovePct:
		bucket = "fresh"
	case pct < expiringBelowPct:
		status = models.StatusExpiring
		bucket = "expiring"
	}
	return Validity{Status: status, Remaining: remaining, Pct: pct, Bucket: bucket}
}

// Expired is a convenience for sweep loops.
func Expired(sig models.Signal, now time.Time) bool {
	return Evaluate(sig, now).Status == models.StatusExpired
}

// Fresh reports whether the signal is still in the top share of its window.
func Fresh(sig models.Signal, now time.Time) bool {
	v := Evaluate(sig, now)
	return v.Status == models.StatusActive && v.Pct > freshAbovePct
}

// CanExecute reports whether a signal is still actionable: not expired, not in
// a terminal state, and not flagged unknown.
func CanExecute(sig models.Signal, now time.Time) bool {
	if sig.Terminal() || sig.Status == models.StatusUnknown {
		return false
	}
	v := Evaluate(sig, now)
	return v.Status == models.StatusActive || v.Status == models.StatusExpiring
}
