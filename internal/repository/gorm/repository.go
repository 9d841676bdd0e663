package gormrepository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tradingx/internal/models"
	"tradingx/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- Active signals ----------------------------------------------------------

func (s *Store) UpsertSignals(ctx context.Context, items []models.Signal) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"current_price",
			"stop_loss_pct",
			"take_profit_pct",
			"risk_reward",
			"status",
			"price_updated_at",
		}),
	}).CreateInBatches(items, 200).Error
}

func (s *Store) GetSignalByID(ctx context.Context, id string) (*models.Signal, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var item models.Signal
	err := s.db.WithContext(ctx).Model(&models.Signal{}).Where("id = ?", id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSignals(ctx context.Context, params repository.ListSignalsParams) ([]models.Signal, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applySignalFilters(s.db.WithContext(ctx).Model(&models.Signal{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.Signal
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountSignals(ctx context.Context, params repository.ListSignalsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	query := applySignalFilters(s.db.WithContext(ctx).Model(&models.Signal{}), params)
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) UpdateSignalPrices(ctx context.Context, updates []repository.PriceUpdate) error {
	if s == nil || s.db == nil || len(updates) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, upd := range updates {
			id := strings.TrimSpace(upd.SignalID)
			if id == "" {
				continue
			}
			at := upd.UpdatedAt
			if at.IsZero() {
				at = time.Now().UTC()
			}
			if err := tx.Model(&models.Signal{}).
				Where("id = ?", id).
				Updates(map[string]any{
					"current_price":    upd.Price,
					"price_updated_at": at,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) DeleteSignals(ctx context.Context, ids []string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	ids = cleanStrings(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Signal{})
	return res.RowsAffected, res.Error
}

// --- Signal history ----------------------------------------------------------

// InsertArchivedSignals writes archived rows, skipping signal IDs that already
// exist in history. Returns the number of rows actually inserted.
func (s *Store) InsertArchivedSignals(ctx context.Context, items []models.ArchivedSignal) (int64, error) {
	if s == nil || s.db == nil || len(items) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "signal_id"}},
		DoNothing: true,
	}).CreateInBatches(items, 200)
	return res.RowsAffected, res.Error
}

func (s *Store) ListArchivedSignals(ctx context.Context, params repository.ListArchivedSignalsParams) ([]models.ArchivedSignal, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyArchivedFilters(s.db.WithContext(ctx).Model(&models.ArchivedSignal{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "archived_at")
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.ArchivedSignal
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountArchivedSignals(ctx context.Context, params repository.ListArchivedSignalsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	query := applyArchivedFilters(s.db.WithContext(ctx).Model(&models.ArchivedSignal{}), params)
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// ListArchivedSignalIDs returns the subset of the given signal IDs that are
// already present in history.
func (s *Store) ListArchivedSignalIDs(ctx context.Context, ids []string) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	ids = cleanStrings(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	var out []string
	if err := s.db.WithContext(ctx).
		Model(&models.ArchivedSignal{}).
		Where("signal_id IN ?", ids).
		Pluck("signal_id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) HistoryStats(ctx context.Context, params repository.HistoryStatsParams) (repository.HistoryStats, error) {
	var stats repository.HistoryStats
	if s == nil || s.db == nil {
		return stats, nil
	}
	query := s.db.WithContext(ctx).Model(&models.ArchivedSignal{})
	if params.Symbol != nil && strings.TrimSpace(*params.Symbol) != "" {
		query = query.Where("symbol = ?", strings.ToUpper(strings.TrimSpace(*params.Symbol)))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("archived_at >= ?", *params.Since)
	}
	if params.Until != nil && !params.Until.IsZero() {
		query = query.Where("archived_at < ?", *params.Until)
	}
	row := struct {
		Total      int64
		Success    int64
		Failure    int64
		Breakeven  int64
		Unresolved int64
		AvgProfit  *float64
	}{}
	err := query.Select(`
		COUNT(*) AS total,
		COUNT(*) FILTER (WHERE trade_result = 'success') AS success,
		COUNT(*) FILTER (WHERE trade_result = 'failure') AS failure,
		COUNT(*) FILTER (WHERE trade_result = 'breakeven') AS breakeven,
		COUNT(*) FILTER (WHERE trade_result = 'unresolved') AS unresolved,
		AVG(profit_pct) FILTER (WHERE trade_result <> 'unresolved') AS avg_profit
	`).Scan(&row).Error
	if err != nil {
		return stats, err
	}
	stats.Total = row.Total
	stats.SuccessCount = row.Success
	stats.FailureCount = row.Failure
	stats.BreakevenCount = row.Breakeven
	stats.UnresolvedCount = row.Unresolved
	if row.AvgProfit != nil {
		stats.AvgProfitPct = *row.AvgProfit
	}
	if resolved := row.Success + row.Failure + row.Breakeven; resolved > 0 {
		stats.WinRate = float64(row.Success) / float64(resolved)
	}
	return stats, nil
}

func (s *Store) DeleteArchivedBefore(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	if before.IsZero() {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("archived_at < ?", before).
		Delete(&models.ArchivedSignal{})
	return res.RowsAffected, res.Error
}

// --- Feed health -------------------------------------------------------------

func (s *Store) UpsertSignalSource(ctx context.Context, item *models.SignalSource) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.Name) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"source_type",
			"endpoint",
			"poll_interval",
			"enabled",
			"last_poll_at",
			"last_error",
			"health_status",
			"config",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) ListSignalSources(ctx context.Context) ([]models.SignalSource, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.SignalSource
	if err := s.db.WithContext(ctx).
		Model(&models.SignalSource{}).
		Order("name asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Helpers -----------------------------------------------------------------

func applySignalFilters(query *gorm.DB, params repository.ListSignalsParams) *gorm.DB {
	if params.Symbol != nil && strings.TrimSpace(*params.Symbol) != "" {
		query = query.Where("symbol = ?", strings.ToUpper(strings.TrimSpace(*params.Symbol)))
	}
	if params.Direction != nil && strings.TrimSpace(*params.Direction) != "" {
		query = query.Where("direction = ?", strings.ToUpper(strings.TrimSpace(*params.Direction)))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.ToLower(strings.TrimSpace(*params.Status)))
	}
	if params.Scalping != nil {
		query = query.Where("is_scalping = ?", *params.Scalping)
	}
	return query
}

func applyArchivedFilters(query *gorm.DB, params repository.ListArchivedSignalsParams) *gorm.DB {
	if params.Symbol != nil && strings.TrimSpace(*params.Symbol) != "" {
		query = query.Where("symbol = ?", strings.ToUpper(strings.TrimSpace(*params.Symbol)))
	}
	if params.TradeResult != nil && strings.TrimSpace(*params.TradeResult) != "" {
		query = query.Where("trade_result = ?", strings.ToLower(strings.TrimSpace(*params.TradeResult)))
	}
	if params.Reason != nil && strings.TrimSpace(*params.Reason) != "" {
		query = query.Where("archive_reason = ?", strings.ToLower(strings.TrimSpace(*params.Reason)))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("archived_at >= ?", *params.Since)
	}
	if params.Until != nil && !params.Until.IsZero() {
		query = query.Where("archived_at < ?", *params.Until)
	}
	return query
}

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	seen := map[string]struct{}{}
	for _, raw := range items {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		if _, ok := seen[val]; ok {
			continue
		}
		seen[val] = struct{}{}
		out = append(out, val)
	}
	return out
}
