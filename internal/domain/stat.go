package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatUpdate is the canonical, provider-agnostic performance event.
// All deltas are incremental; Injured is tri-state (nil means no change).
type StatUpdate struct {
	InstrumentID string    `json:"instrument_id"`
	Goals        int       `json:"goals"`
	Assists      int       `json:"assists"`
	Minutes      int       `json:"minutes"`
	Injured      *bool     `json:"injured,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	SourceSeq    string    `json:"sequence,omitempty"`
}

// PriceChange is emitted by the pricing engine when an applied StatUpdate
// moved the price. It is the broadcast payload and the history record.
type PriceChange struct {
	InstrumentID string          `json:"instrument_id"`
	OldPrice     decimal.Decimal `json:"old_price"`
	NewPrice     decimal.Decimal `json:"new_price"`
	Goals        int             `json:"goals"`
	Assists      int             `json:"assists"`
	Minutes      int             `json:"minutes"`
	Injured      bool            `json:"injured"`
	Timestamp    time.Time       `json:"timestamp"`
}
