package archive

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"tradingx/internal/models"
	"tradingx/internal/outcome"
	"tradingx/internal/repository"
)

// ErrBusy is returned when an archival run is already in flight.
var ErrBusy = errors.New("archive already in progress")

// Pipeline moves finished signals from the active table into history. Writes
// happen history-first: a signal is only removed from the active set after its
// archived row is durably stored, so a crash in between leaves a duplicate
// (deduplicated by signal_id on the next run) rather than a lost record.
type Pipeline struct {
	repo    repository.Repository
	logger  *zap.Logger
	running atomic.Bool
}

func NewPipeline(repo repository.Repository, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{repo: repo, logger: logger}
}

// Archive persists the batch to history and deletes the archived signals from
// the active set. Returns the number of signals archived. Only one archival
// runs at a time; overlapping calls fail fast with ErrBusy.
func (p *Pipeline) Archive(ctx context.Context, batch []models.Signal, reason models.ArchiveReason) (int, error) {
	if p == nil || len(batch) == 0 {
		return 0, nil
	}
	if !p.running.CompareAndSwap(false, true) {
		p.logger.Debug("archive already in flight, skipping batch",
			zap.Int("batch_size", len(batch)))
		return 0, ErrBusy
	}
	defer p.running.Store(false)

	ids := make([]string, 0, len(batch))
	for _, sig := range batch {
		ids = append(ids, sig.ID)
	}
	existing, err := p.repo.ListArchivedSignalIDs(ctx, ids)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(existing))
	for _, id := range existing {
		seen[id] = true
	}

	now := time.Now().UTC()
	rows := make([]models.ArchivedSignal, 0, len(batch))
	archivedIDs := make([]string, 0, len(batch))
	for _, sig := range batch {
		if seen[sig.ID] {
			// Already in history from an earlier run; just clear the
			// active row.
			archivedIDs = append(archivedIDs, sig.ID)
			continue
		}
		rows = append(rows, buildRow(sig, reason, now))
		archivedIDs = append(archivedIDs, sig.ID)
	}

	if len(rows) > 0 {
		if _, err := p.repo.InsertArchivedSignals(ctx, rows); err != nil {
			// Leave the batch active; it will be retried next cycle.
			p.logger.Error("history write failed, keeping batch active",
				zap.Int("batch_size", len(rows)),
				zap.Error(err))
			return 0, err
		}
	}
	if _, err := p.repo.DeleteSignals(ctx, archivedIDs); err != nil {
		// History rows exist; the duplicate active rows are harmless and
		// will be filtered out on the next pass.
		p.logger.Warn("active-set cleanup failed after history write",
			zap.Int("batch_size", len(archivedIDs)),
			zap.Error(err))
		return len(rows), err
	}

	p.logger.Info("archived signals",
		zap.Int("archived", len(rows)),
		zap.Int("deduplicated", len(archivedIDs)-len(rows)),
		zap.String("reason", string(reason)))
	return len(rows), nil
}

// buildRow finalizes a signal into its history form. Signals without a usable
// price are stored unresolved, never defaulted to breakeven.
func buildRow(sig models.Signal, reason models.ArchiveReason, now time.Time) models.ArchivedSignal {
	row := models.ArchivedSignal{
		SignalID:         sig.ID,
		Symbol:           sig.Symbol,
		Direction:        sig.Direction,
		StrategyName:     sig.StrategyName,
		PrimaryTimeframe: sig.PrimaryTimeframe,
		IsScalping:       sig.IsScalping,
		EntryPrice:       sig.EntryPrice,
		ExitPrice:        sig.CurrentPrice,
		StopLossPct:      sig.StopLossPct,
		TakeProfitPct:    sig.TakeProfitPct,
		Confidence:       sig.Confidence,
		Urgency:          sig.Urgency,
		TradeResult:      models.ResultUnresolved,
		ArchiveReason:    reason,
		ArchivedAt:       now,
		SignalCreatedAt:  sig.CreatedAt,
		SignalExpiresAt:  sig.ExpiresAt,
		Payload:          sig.Payload,
	}
	if out, ok := outcome.Classify(sig); ok {
		row.TradeResult = out.Result
		profit := out.ProfitPct
		row.ProfitPct = &profit
	}
	return row
}
