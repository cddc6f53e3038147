package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is an immutable execution record; trades form an append-only history.
type Trade struct {
	ID           string          `gorm:"primaryKey" json:"trade_id"`
	AccountID    string          `gorm:"index" json:"account_id"`
	InstrumentID string          `gorm:"index" json:"instrument_id"`
	Side         string          `json:"side"`
	Shares       int64           `json:"shares"`
	Price        decimal.Decimal `json:"execution_price"`
	Balance      decimal.Decimal `json:"new_balance"`
	CreatedAt    time.Time       `json:"created_at"`
}

const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)
