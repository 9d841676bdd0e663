package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type ArchiveReason string

const (
	ReasonCompleted ArchiveReason = "completed"
	ReasonExpired   ArchiveReason = "expired"
	ReasonStopped   ArchiveReason = "stopped"
	ReasonArchived  ArchiveReason = "archived"
)

type TradeResult string

const (
	ResultSuccess   TradeResult = "success"
	ResultFailure   TradeResult = "failure"
	ResultBreakeven TradeResult = "breakeven"
	// ResultUnresolved is recorded when no market price was available at archive
	// time. It is a distinct state, not a guess at breakeven, so win-rate stats
	// stay honest.
	ResultUnresolved TradeResult = "unresolved"
)

// ArchivedSignal is the terminal record of a signal. The unique index on
// SignalID makes archival idempotent at the storage layer: a second write for
// the same signal is a conflict no-op.
type ArchivedSignal struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	SignalID string `gorm:"type:varchar(160);uniqueIndex;not null"`

	Symbol           string    `gorm:"type:varchar(30);not null;index"`
	Direction        Direction `gorm:"type:varchar(10);not null"`
	StrategyName     string    `gorm:"type:varchar(80);not null;index"`
	PrimaryTimeframe string    `gorm:"type:varchar(10);not null"`
	IsScalping       bool      `gorm:"not null;default:false"`

	EntryPrice    decimal.Decimal  `gorm:"type:numeric(30,10);not null"`
	ExitPrice     *decimal.Decimal `gorm:"type:numeric(30,10)"`
	StopLossPct   float64          `gorm:"not null"`
	TakeProfitPct float64          `gorm:"not null"`
	Confidence    float64          `gorm:"not null"`
	Urgency       Urgency          `gorm:"type:varchar(10);not null;default:'medium'"`

	TradeResult TradeResult `gorm:"type:varchar(12);not null;index"`
	ProfitPct   *float64

	ArchiveReason ArchiveReason `gorm:"type:varchar(12);not null;index"`
	ArchivedAt    time.Time     `gorm:"type:timestamptz;not null;index"`

	SignalCreatedAt time.Time      `gorm:"type:timestamptz;not null"`
	SignalExpiresAt time.Time      `gorm:"type:timestamptz;not null"`
	Payload         datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (ArchivedSignal) TableName() string {
	return "signal_history"
}
