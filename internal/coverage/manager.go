package coverage

import (
	"sort"
	"strings"
	"time"

	"tradingx/internal/lifecycle"
	"tradingx/internal/models"
)

// confidenceTieBand is the confidence difference under which two candidates for
// the same symbol are considered equivalent and the specialization tie-break
// applies.
const confidenceTieBand = 0.1

// Manager resolves per-symbol deduplication and watch-list coverage. It is
// pure: callers pass the current state in and apply the returned set. Only the
// engine's writer goroutine does so.
type Manager struct {
	// TargetSymbols is the watch-list that must stay covered whenever an
	// eligible candidate exists.
	TargetSymbols []string
}

// Merge combines the existing active set with incoming candidates, keyed by
// symbol only: one tracked opportunity per symbol, regardless of direction.
// Existing non-expired signals are never pre-empted by a newer candidate for
// the same symbol.
func (m *Manager) Merge(existing, incoming []models.Signal, now time.Time) []models.Signal {
	out := make([]models.Signal, 0, len(existing)+len(incoming))
	taken := make(map[string]bool, len(existing))

	for _, sig := range existing {
		if lifecycle.Expired(sig, now) || sig.Terminal() {
			continue
		}
		key := symbolKey(sig.Symbol)
		if taken[key] {
			continue
		}
		taken[key] = true
		out = append(out, sig)
	}

	for _, group := range groupBySymbol(incoming) {
		key := symbolKey(group[0].Symbol)
		if taken[key] {
			continue
		}
		best, ok := pickBest(group, now)
		if !ok {
			continue
		}
		taken[key] = true
		out = append(out, best)
	}
	return out
}

// Backfill returns candidates from the secondary pool for every target symbol
// that has no active signal. Candidates whose ID is already in history are
// skipped so an archived signal can never be resurrected.
func (m *Manager) Backfill(active []models.Signal, pool []models.Signal, archived map[string]bool, now time.Time) []models.Signal {
	covered := make(map[string]bool, len(active))
	for _, sig := range active {
		covered[symbolKey(sig.Symbol)] = true
	}

	groups := groupBySymbol(pool)
	var out []models.Signal
	for _, target := range m.TargetSymbols {
		key := symbolKey(target)
		if key == "" || covered[key] {
			continue
		}
		group := groups[key]
		candidates := group[:0:0]
		for _, sig := range group {
			if archived[sig.ID] {
				continue
			}
			candidates = append(candidates, sig)
		}
		best, ok := pickBest(candidates, now)
		if !ok {
			continue
		}
		covered[key] = true
		out = append(out, best)
	}
	return out
}

// pickBest ranks eligible candidates: strictly higher confidence wins; inside
// the tie band a specialized (scalping) signal beats a generic one.
func pickBest(candidates []models.Signal, now time.Time) (models.Signal, bool) {
	var best models.Signal
	found := false
	for _, sig := range candidates {
		if !Eligible(sig, now) {
			continue
		}
		if !found || Better(sig, best) {
			best = sig
			found = true
		}
	}
	return best, found
}

// Better reports whether a should be preferred over b for the same symbol.
func Better(a, b models.Signal) bool {
	diff := a.Confidence - b.Confidence
	if diff < 0 {
		diff = -diff
	}
	if diff < confidenceTieBand && a.IsScalping != b.IsScalping {
		return a.IsScalping
	}
	return a.Confidence > b.Confidence
}

// Eligible reports whether a candidate is usable at all: well-formed
// timestamps, a positive entry price, and not already expired or terminal.
func Eligible(sig models.Signal, now time.Time) bool {
	if strings.TrimSpace(sig.Symbol) == "" || !sig.EntryPrice.IsPositive() {
		return false
	}
	if sig.Terminal() {
		return false
	}
	v := lifecycle.Evaluate(sig, now)
	return v.Status != models.StatusExpired && v.Status != models.StatusUnknown
}

func groupBySymbol(signals []models.Signal) map[string][]models.Signal {
	groups := make(map[string][]models.Signal)
	for _, sig := range signals {
		key := symbolKey(sig.Symbol)
		if key == "" {
			continue
		}
		groups[key] = append(groups[key], sig)
	}
	// Keep per-symbol ordering deterministic for stable tie handling.
	for key := range groups {
		group := groups[key]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].CreatedAt.Before(group[j].CreatedAt)
		})
	}
	return groups
}

func symbolKey(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
