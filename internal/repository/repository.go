package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"tradingx/internal/models"
)

// Repository is the persistence surface used by the engine, the archival
// pipeline and the HTTP handlers.
type Repository interface {
	// Active signals
	UpsertSignals(ctx context.Context, items []models.Signal) error
	GetSignalByID(ctx context.Context, id string) (*models.Signal, error)
	ListSignals(ctx context.Context, params ListSignalsParams) ([]models.Signal, error)
	CountSignals(ctx context.Context, params ListSignalsParams) (int64, error)
	UpdateSignalPrices(ctx context.Context, updates []PriceUpdate) error
	DeleteSignals(ctx context.Context, ids []string) (int64, error)

	// Signal history
	InsertArchivedSignals(ctx context.Context, items []models.ArchivedSignal) (int64, error)
	ListArchivedSignals(ctx context.Context, params ListArchivedSignalsParams) ([]models.ArchivedSignal, error)
	CountArchivedSignals(ctx context.Context, params ListArchivedSignalsParams) (int64, error)
	ListArchivedSignalIDs(ctx context.Context, ids []string) ([]string, error)
	HistoryStats(ctx context.Context, params HistoryStatsParams) (HistoryStats, error)
	DeleteArchivedBefore(ctx context.Context, before time.Time) (int64, error)

	// Feed health
	UpsertSignalSource(ctx context.Context, item *models.SignalSource) error
	ListSignalSources(ctx context.Context) ([]models.SignalSource, error)
}

// PriceUpdate carries one signal's refreshed mark price for persistence.
type PriceUpdate struct {
	SignalID  string
	Price     decimal.Decimal
	UpdatedAt time.Time
}

type ListSignalsParams struct {
	Limit     int
	Offset    int
	Symbol    *string
	Direction *string
	Status    *string
	Scalping  *bool
	OrderBy   string
	Asc       *bool
}

type ListArchivedSignalsParams struct {
	Limit       int
	Offset      int
	Symbol      *string
	TradeResult *string
	Reason      *string
	Since       *time.Time
	Until       *time.Time
	OrderBy     string
	Asc         *bool
}

type HistoryStatsParams struct {
	Symbol *string
	Since  *time.Time
	Until  *time.Time
}

// HistoryStats aggregates archived outcomes. Unresolved rows are counted but
// excluded from the win-rate denominator.
type HistoryStats struct {
	Total           int64
	SuccessCount    int64
	FailureCount    int64
	BreakevenCount  int64
	UnresolvedCount int64
	WinRate         float64
	AvgProfitPct    float64
}
