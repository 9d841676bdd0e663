package feed

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"tradingx/internal/models"
)

// Quote is one symbol's latest known market price.
type Quote struct {
	Symbol string
	Price  decimal.Decimal
	At     time.Time
	// Stale marks a quote served from cache after the upstream fetch failed.
	Stale bool
}

// PriceFeed resolves current prices for a set of symbols. Implementations may
// return a partial map; absent symbols simply have no usable price this cycle.
type PriceFeed interface {
	Prices(ctx context.Context, symbols []string) (map[string]Quote, error)
}

// CandidateFeed supplies freshly generated signal candidates from the strategy
// layer.
type CandidateFeed interface {
	Candidates(ctx context.Context, filters Filters) ([]models.Signal, error)
}

// Filters narrows a candidate fetch. Zero values mean no constraint; the
// strategy service applies them server-side.
type Filters struct {
	Symbols       []string
	Timeframes    []string
	UrgencyLevels []string
	MinConfidence float64
	ScalpingOnly  bool
	Limit         int
}

// HealthStatus is the liveness snapshot of one upstream feed.
type HealthStatus struct {
	Status              string
	LastPollAt          *time.Time
	LastError           *string
	ConsecutiveFailures int
}

// HealthReporter is implemented by feeds that track their own liveness.
type HealthReporter interface {
	Name() string
	Health() HealthStatus
}
