package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"footy_go/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PlayerInfo is persisted instrument metadata.
type PlayerInfo struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	Name         string    `json:"name"`
	Position     string    `json:"position"`
	Team         string    `json:"team"`
	IconPath     string    `json:"icon_path"`
	LastSyncedAt time.Time `json:"last_synced_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PriceTick is one row of broadcastable price history.
type PriceTick struct {
	ID           uint            `gorm:"primaryKey" json:"-"`
	InstrumentID string          `gorm:"index" json:"instrument_id"`
	OldPrice     decimal.Decimal `json:"old_price"`
	NewPrice     decimal.Decimal `json:"new_price"`
	Goals        int             `json:"goals"`
	Assists      int             `json:"assists"`
	Minutes      int             `json:"minutes"`
	Injured      bool            `json:"injured"`
	Timestamp    time.Time       `gorm:"index" json:"timestamp"`
}

// FundingTransaction records one provider-confirmed deposit or withdrawal.
type FundingTransaction struct {
	Reference string          `gorm:"primaryKey" json:"reference"`
	AccountID string          `gorm:"index" json:"account_id"`
	Kind      string          `json:"kind"` // "deposit" | "withdrawal"
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// Storage wraps the SQLite database.
type Storage struct {
	db *gorm.DB
}

// NewStorage creates a new SQLite storage instance. An empty path falls
// back to the OS config directory.
func NewStorage(path string) (*Storage, error) {
	dbPath := path
	if dbPath == "" {
		resolved, err := getDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
		dbPath = resolved
	}

	// Ensure directory exists
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto Migration
	if err := db.AutoMigrate(&PlayerInfo{}, &PriceTick{}, &FundingTransaction{}, &domain.Trade{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// getDBPath resolves the database file path based on OS
func getDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "FootyGo", "data", "footygo.db"), nil
}

// UpsertPlayer creates or updates player metadata
func (s *Storage) UpsertPlayer(player *PlayerInfo) error {
	return s.db.Save(player).Error
}

// GetPlayer retrieves player metadata by id
func (s *Storage) GetPlayer(id string) (*PlayerInfo, error) {
	var player PlayerInfo
	err := s.db.First(&player, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	return &player, err
}

// GetAllPlayers retrieves all players
func (s *Storage) GetAllPlayers() ([]PlayerInfo, error) {
	var players []PlayerInfo
	err := s.db.Find(&players).Error
	return players, err
}

// SaveTrade appends one trade to the history. Trades are immutable.
func (s *Storage) SaveTrade(trade *domain.Trade) error {
	return s.db.Create(trade).Error
}

// TradesByAccount returns an account's trades, newest first.
func (s *Storage) TradesByAccount(accountID string, limit int) ([]domain.Trade, error) {
	var trades []domain.Trade
	err := s.db.Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(limit).
		Find(&trades).Error
	return trades, err
}

// SavePriceChange appends one price-history row.
func (s *Storage) SavePriceChange(change domain.PriceChange) error {
	return s.db.Create(&PriceTick{
		InstrumentID: change.InstrumentID,
		OldPrice:     change.OldPrice,
		NewPrice:     change.NewPrice,
		Goals:        change.Goals,
		Assists:      change.Assists,
		Minutes:      change.Minutes,
		Injured:      change.Injured,
		Timestamp:    change.Timestamp,
	}).Error
}

// RecentPrices returns the latest price ticks for an instrument.
func (s *Storage) RecentPrices(instrumentID string, limit int) ([]PriceTick, error) {
	var ticks []PriceTick
	err := s.db.Where("instrument_id = ?", instrumentID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&ticks).Error
	return ticks, err
}

// SaveFunding records one provider-confirmed funding movement. References
// are unique; recording one a second time fails on the primary key, which
// is what blocks a replayed deposit confirmation across restarts.
func (s *Storage) SaveFunding(accountID, reference, kind string, amount decimal.Decimal) error {
	return s.db.Create(&FundingTransaction{
		Reference: reference,
		AccountID: accountID,
		Kind:      kind,
		Amount:    amount,
		Status:    "success",
		CreatedAt: time.Now(),
	}).Error
}
