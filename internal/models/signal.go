package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

type Urgency string

const (
	UrgencyUrgent Urgency = "urgent"
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusExpiring  Status = "expiring"
	StatusExpired   Status = "expired"
	StatusExecuted  Status = "executed"
	StatusCancelled Status = "cancelled"
	// StatusUnknown marks signals with integrity problems (missing expires_at or
	// entry price). They are excluded from threshold and outcome computation
	// rather than classified with made-up defaults.
	StatusUnknown Status = "unknown"
)

// Signal is one tracked trade opportunity. CreatedAt and ExpiresAt come from the
// strategy feed and are authoritative: nothing recomputes expiry from elapsed
// wall-clock time after insert.
type Signal struct {
	ID string `gorm:"type:varchar(160);primaryKey"`

	Symbol           string    `gorm:"type:varchar(30);not null;index"`
	Direction        Direction `gorm:"type:varchar(10);not null"`
	StrategyName     string    `gorm:"type:varchar(80);not null"`
	PrimaryTimeframe string    `gorm:"type:varchar(10);not null"`
	IsScalping       bool      `gorm:"not null;default:false"`

	EntryPrice    decimal.Decimal  `gorm:"type:numeric(30,10);not null"`
	CurrentPrice  *decimal.Decimal `gorm:"type:numeric(30,10)"`
	StopLossPct   float64          `gorm:"not null"`
	TakeProfitPct float64          `gorm:"not null"`
	RiskReward    float64          `gorm:"not null;default:0"`

	Confidence float64 `gorm:"not null;index"`
	Urgency    Urgency `gorm:"type:varchar(10);not null;default:'medium'"`

	Indicators IndicatorSet   `gorm:"type:jsonb;serializer:json"`
	Payload    datatypes.JSON `gorm:"type:jsonb"`

	Status         Status     `gorm:"type:varchar(12);not null;index;default:'active'"`
	CreatedAt      time.Time  `gorm:"type:timestamptz;not null;index"`
	ExpiresAt      time.Time  `gorm:"type:timestamptz;not null;index"`
	PriceUpdatedAt *time.Time `gorm:"type:timestamptz"`
}

func (Signal) TableName() string {
	return "active_signals"
}

// Terminal reports whether the signal has reached an end state and is due for
// archival.
func (s Signal) Terminal() bool {
	switch s.Status {
	case StatusExpired, StatusExecuted, StatusCancelled:
		return true
	}
	return false
}

// HasPrice reports whether a usable market price is attached.
func (s Signal) HasPrice() bool {
	return s.CurrentPrice != nil && s.CurrentPrice.IsPositive()
}

// DedupWindow buckets signal creation times so the same real-world opportunity
// recurring within the window maps to one ID.
const DedupWindow = 30 * time.Minute

// SignalID derives the stable identity for a signal. Two candidates for the
// same symbol/direction/timeframe/strategy inside one dedup window collide on
// purpose.
func SignalID(symbol string, dir Direction, timeframe, strategy string, createdAt time.Time) string {
	bucket := createdAt.UTC().Truncate(DedupWindow).Unix()
	return fmt.Sprintf("%s|%s|%s|%s|%d",
		strings.ToUpper(strings.TrimSpace(symbol)),
		dir,
		strings.TrimSpace(timeframe),
		strings.TrimSpace(strategy),
		bucket,
	)
}
