package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Instrument represents one tradable player share.
type Instrument struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Position  string          `json:"position,omitempty"`
	Team      string          `json:"team,omitempty"`
	Price     decimal.Decimal `json:"price"`
	BasePrice decimal.Decimal `json:"base_price"`
	Goals     int             `json:"goals"`
	Assists   int             `json:"assists"`
	Minutes   int             `json:"minutes"`
	Injured   bool            `json:"injured"`
	UpdatedAt time.Time       `json:"updated_at"`
	IconPath  string          `json:"icon_path,omitempty"`
}
