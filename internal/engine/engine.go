package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"tradingx/internal/archive"
	"tradingx/internal/coverage"
	"tradingx/internal/feed"
	"tradingx/internal/lifecycle"
	"tradingx/internal/models"
	"tradingx/internal/outcome"
	"tradingx/internal/repository"
	"tradingx/internal/risk"
)

// ErrSignalNotFound is returned by ArchiveSignal for unknown IDs.
var ErrSignalNotFound = errors.New("signal not found")

// Source couples a feed health reporter with its persistence metadata.
type Source struct {
	Reporter     feed.HealthReporter
	SourceType   string
	Endpoint     string
	PollInterval time.Duration
}

// Status is the pipeline snapshot served by the status endpoint.
type Status struct {
	LastTickAt  time.Time
	TickCount   uint64
	ActiveCount int
	LastError   string
	Feeds       []FeedStatus
}

type FeedStatus struct {
	Name                string
	Status              string
	LastPollAt          *time.Time
	LastError           *string
	ConsecutiveFailures int
}

// Engine drives the signal lifecycle. All active-set mutations happen on the
// Run goroutine in a fixed per-tick order: price refresh, threshold
// classification, expiry sweep, archival, coverage sync. Readers see the
// result through the store snapshot.
type Engine struct {
	Repo       repository.Repository
	Prices     feed.PriceFeed
	Candidates feed.CandidateFeed
	Coverage   *coverage.Manager
	Archiver   *archive.Pipeline
	Logger     *zap.Logger
	Sources    []Source

	TickInterval     time.Duration
	TickTimeout      time.Duration
	CandidateFilters feed.Filters

	initOnce sync.Once
	store    *Store
	refresh  chan struct{}

	// applyMu serializes manual archives against the moment a tick applies its
	// result, so a tick holding a pre-archive snapshot cannot reinstate the
	// signal. tombstones holds IDs archived while a tick was in flight; the
	// tick drops them before Replace/Upsert and then clears the set.
	applyMu    sync.Mutex
	tombstones map[string]struct{}

	statusMu   sync.Mutex
	lastTickAt time.Time
	tickCount  uint64
	lastErr    string
}

func (e *Engine) init() {
	e.initOnce.Do(func() {
		if e.Logger == nil {
			e.Logger = zap.NewNop()
		}
		if e.TickInterval <= 0 {
			e.TickInterval = 30 * time.Second
		}
		if e.Coverage == nil {
			e.Coverage = &coverage.Manager{}
		}
		e.store = NewStore()
		e.refresh = make(chan struct{}, 1)
		e.tombstones = map[string]struct{}{}
	})
}

// Store exposes the read-only view used by HTTP handlers.
func (e *Engine) Store() *Store {
	e.init()
	return e.store
}

// ForceRefresh requests an out-of-band tick. Requests arriving while one is
// already pending coalesce; the return value reports whether this call queued
// a new run.
func (e *Engine) ForceRefresh() bool {
	e.init()
	select {
	case e.refresh <- struct{}{}:
		return true
	default:
		return false
	}
}

func (e *Engine) Run(ctx context.Context) error {
	if e == nil || e.Repo == nil {
		return nil
	}
	e.init()
	e.loadActive(ctx)
	e.tick(ctx)

	ticker := time.NewTicker(e.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.tick(ctx)
		case <-e.refresh:
			e.tick(ctx)
		}
	}
}

// loadActive rehydrates the in-memory set from the database on startup.
func (e *Engine) loadActive(ctx context.Context) {
	items, err := e.Repo.ListSignals(ctx, repository.ListSignalsParams{Limit: 500})
	if err != nil {
		e.Logger.Warn("active set rehydrate failed", zap.Error(err))
		return
	}
	e.store.Replace(items)
	e.Logger.Info("active set rehydrated", zap.Int("signals", len(items)))
}

func (e *Engine) tick(parent context.Context) {
	e.init()
	ctx := parent
	if e.TickTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, e.TickTimeout)
		defer cancel()
	}
	now := time.Now().UTC()
	active := e.store.Snapshot()

	active = e.refreshPrices(ctx, active, now)

	completed, stopped, rest := classify(active)
	expired, rest := sweepExpired(rest, now)

	var retained []models.Signal
	retained = append(retained, e.archiveBatch(ctx, completed, models.ReasonCompleted)...)
	retained = append(retained, e.archiveBatch(ctx, stopped, models.ReasonStopped)...)
	retained = append(retained, e.archiveBatch(ctx, expired, models.ReasonExpired)...)

	final := e.syncCoverage(ctx, rest, now)
	final = mergeRetained(final, retained)
	final = withThresholds(final)

	e.applyMu.Lock()
	final = e.dropTombstoned(final)
	err := e.Repo.UpsertSignals(ctx, final)
	e.store.Replace(final)
	e.applyMu.Unlock()
	if err != nil {
		e.Logger.Error("active set persist failed", zap.Error(err))
		e.setStatus(now, err)
	} else {
		e.setStatus(now, nil)
	}
	e.reportSources(ctx, now)
}

// dropTombstoned removes signals archived out-of-band while this tick was
// running, then clears the set. Must be called with applyMu held.
func (e *Engine) dropTombstoned(final []models.Signal) []models.Signal {
	if len(e.tombstones) == 0 {
		return final
	}
	out := final[:0:0]
	for _, sig := range final {
		if _, dead := e.tombstones[sig.ID]; dead {
			continue
		}
		out = append(out, sig)
	}
	e.tombstones = map[string]struct{}{}
	return out
}

// refreshPrices attaches the latest quote to every active signal and
// recomputes its thresholds at the new mark.
func (e *Engine) refreshPrices(ctx context.Context, active []models.Signal, now time.Time) []models.Signal {
	if e.Prices == nil || len(active) == 0 {
		return active
	}
	symbols := make([]string, 0, len(active))
	for _, sig := range active {
		symbols = append(symbols, sig.Symbol)
	}
	quotes, err := e.Prices.Prices(ctx, symbols)
	if err != nil {
		e.Logger.Warn("price refresh failed", zap.Error(err))
		return active
	}

	updates := make([]repository.PriceUpdate, 0, len(active))
	for i := range active {
		quote, ok := quotes[strings.ToUpper(active[i].Symbol)]
		if !ok || !quote.Price.IsPositive() {
			continue
		}
		price := quote.Price
		at := quote.At
		if at.IsZero() {
			at = now
		}
		active[i].CurrentPrice = &price
		active[i].PriceUpdatedAt = &at
		updates = append(updates, repository.PriceUpdate{
			SignalID:  active[i].ID,
			Price:     price,
			UpdatedAt: at,
		})
	}
	if len(updates) > 0 {
		if err := e.Repo.UpdateSignalPrices(ctx, updates); err != nil {
			e.Logger.Warn("price persist failed", zap.Int("updates", len(updates)), zap.Error(err))
		}
	}
	return withThresholds(active)
}

// classify splits the active set into take-profit hits, stop-loss hits and
// still-running signals. Signals without a usable price always keep running;
// they are never force-classified.
func classify(active []models.Signal) (completed, stopped, rest []models.Signal) {
	for _, sig := range active {
		profit, ok := outcome.ProfitPct(sig)
		if !ok {
			rest = append(rest, sig)
			continue
		}
		switch {
		case sig.TakeProfitPct > 0 && profit >= sig.TakeProfitPct:
			sig.Status = models.StatusExecuted
			completed = append(completed, sig)
		case sig.StopLossPct > 0 && profit <= -sig.StopLossPct:
			sig.Status = models.StatusExecuted
			stopped = append(stopped, sig)
		default:
			rest = append(rest, sig)
		}
	}
	return completed, stopped, rest
}

// sweepExpired separates signals past their window and refreshes the
// active/expiring status of the rest.
func sweepExpired(active []models.Signal, now time.Time) (expired, rest []models.Signal) {
	for _, sig := range active {
		v := lifecycle.Evaluate(sig, now)
		switch v.Status {
		case models.StatusExpired:
			sig.Status = models.StatusExpired
			expired = append(expired, sig)
		case models.StatusUnknown:
			sig.Status = models.StatusUnknown
			rest = append(rest, sig)
		default:
			sig.Status = v.Status
			rest = append(rest, sig)
		}
	}
	return expired, rest
}

// archiveBatch sends one batch through the pipeline. On failure the batch is
// returned so the caller keeps it active for the next attempt.
func (e *Engine) archiveBatch(ctx context.Context, batch []models.Signal, reason models.ArchiveReason) []models.Signal {
	if len(batch) == 0 || e.Archiver == nil {
		return nil
	}
	if _, err := e.Archiver.Archive(ctx, batch, reason); err != nil {
		e.Logger.Warn("archive batch failed, retaining signals",
			zap.String("reason", string(reason)),
			zap.Int("batch_size", len(batch)),
			zap.Error(err))
		return batch
	}
	return nil
}

// syncCoverage folds fresh candidates into the active set and backfills
// uncovered watch-list symbols.
func (e *Engine) syncCoverage(ctx context.Context, remaining []models.Signal, now time.Time) []models.Signal {
	if e.Candidates == nil {
		return remaining
	}
	pool, err := e.Candidates.Candidates(ctx, e.CandidateFilters)
	if err != nil {
		e.Logger.Warn("candidate fetch failed", zap.Error(err))
		return remaining
	}

	archived := map[string]bool{}
	if len(pool) > 0 {
		ids := make([]string, 0, len(pool))
		for _, sig := range pool {
			ids = append(ids, sig.ID)
		}
		found, err := e.Repo.ListArchivedSignalIDs(ctx, ids)
		if err != nil {
			e.Logger.Warn("archived id lookup failed", zap.Error(err))
		}
		for _, id := range found {
			archived[id] = true
		}
	}
	incoming := pool[:0:0]
	for _, sig := range pool {
		if archived[sig.ID] {
			continue
		}
		incoming = append(incoming, sig)
	}

	merged := e.Coverage.Merge(remaining, incoming, now)
	additions := e.Coverage.Backfill(merged, incoming, archived, now)
	return append(merged, additions...)
}

// mergeRetained reinserts signals whose archival failed, displacing any
// candidate that took their symbol in the meantime.
func mergeRetained(final, retained []models.Signal) []models.Signal {
	if len(retained) == 0 {
		return final
	}
	bySymbol := make(map[string]bool, len(retained))
	for _, sig := range retained {
		bySymbol[strings.ToUpper(sig.Symbol)] = true
	}
	out := final[:0:0]
	for _, sig := range final {
		if bySymbol[strings.ToUpper(sig.Symbol)] {
			continue
		}
		out = append(out, sig)
	}
	return append(out, retained...)
}

func withThresholds(signals []models.Signal) []models.Signal {
	for i := range signals {
		tp := risk.TakeProfitPct(signals[i])
		sl := risk.StopLossPct(signals[i])
		signals[i].TakeProfitPct = tp
		signals[i].StopLossPct = sl
		if sl > 0 {
			signals[i].RiskReward = tp / sl
		}
	}
	return signals
}

// ArchiveSignal archives one signal on demand, regardless of its thresholds.
// It runs on the caller's goroutine; applyMu plus the tombstone keep a
// concurrent tick from reinstating the signal out of its stale snapshot.
func (e *Engine) ArchiveSignal(ctx context.Context, id string) error {
	e.init()
	e.applyMu.Lock()
	defer e.applyMu.Unlock()
	sig, ok := e.store.Get(id)
	if !ok {
		found, err := e.Repo.GetSignalByID(ctx, id)
		if err != nil {
			return err
		}
		if found == nil {
			return ErrSignalNotFound
		}
		sig = *found
	}
	sig.Status = models.StatusExecuted
	if _, err := e.Archiver.Archive(ctx, []models.Signal{sig}, models.ReasonArchived); err != nil {
		return err
	}
	e.store.Remove(id)
	e.tombstones[id] = struct{}{}
	return nil
}

func (e *Engine) reportSources(ctx context.Context, now time.Time) {
	for _, src := range e.Sources {
		if src.Reporter == nil {
			continue
		}
		health := src.Reporter.Health()
		item := &models.SignalSource{
			Name:         src.Reporter.Name(),
			SourceType:   src.SourceType,
			Endpoint:     src.Endpoint,
			PollInterval: src.PollInterval.String(),
			Enabled:      true,
			LastPollAt:   health.LastPollAt,
			LastError:    health.LastError,
			HealthStatus: health.Status,
			UpdatedAt:    now,
		}
		if err := e.Repo.UpsertSignalSource(ctx, item); err != nil {
			e.Logger.Warn("signal source upsert failed",
				zap.String("source", item.Name),
				zap.Error(err))
		}
	}
}

func (e *Engine) setStatus(at time.Time, err error) {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	e.lastTickAt = at
	e.tickCount++
	if err != nil {
		e.lastErr = err.Error()
	} else {
		e.lastErr = ""
	}
}

// Status reports pipeline liveness plus per-feed health.
func (e *Engine) Status() Status {
	e.init()
	e.statusMu.Lock()
	st := Status{
		LastTickAt: e.lastTickAt,
		TickCount:  e.tickCount,
		LastError:  e.lastErr,
	}
	e.statusMu.Unlock()
	st.ActiveCount = e.store.Len()
	for _, src := range e.Sources {
		if src.Reporter == nil {
			continue
		}
		health := src.Reporter.Health()
		st.Feeds = append(st.Feeds, FeedStatus{
			Name:                src.Reporter.Name(),
			Status:              health.Status,
			LastPollAt:          health.LastPollAt,
			LastError:           health.LastError,
			ConsecutiveFailures: health.ConsecutiveFailures,
		})
	}
	return st
}
