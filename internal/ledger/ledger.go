package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"footy_go/internal/domain"
	"footy_go/internal/infra"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceSource yields the current instrument price. The read is brief and
// serialized per instrument; the ledger never holds it together with a
// wallet lock.
type PriceSource interface {
	Price(instrumentID string) (decimal.Decimal, error)
}

// TradeStore persists the append-only trade history.
type TradeStore interface {
	SaveTrade(trade *domain.Trade) error
}

// FundingStore persists provider-confirmed funding movements. A reference
// can be recorded once; recording it again must fail.
type FundingStore interface {
	SaveFunding(accountID, reference, kind string, amount decimal.Decimal) error
}

// Store combines the persistence surfaces the ledger writes to.
type Store interface {
	TradeStore
	FundingStore
}

// walletEntry pairs one wallet with its own lock. All mutation of one
// account's wallet is serialized here; different accounts never contend.
type walletEntry struct {
	mu sync.Mutex
	w  *domain.Wallet
}

// Ledger executes buys and sells atomically against the instrument's
// current price, the account's wallet, and the compliance gate. A trade
// never acquires two wallet locks, so multi-account deadlock is
// structurally impossible.
type Ledger struct {
	prices  PriceSource
	gate    domain.ComplianceGate
	funding domain.FundingProvider
	store   Store

	mu      sync.RWMutex
	wallets map[string]*walletEntry

	// Deposit references already credited. The set guards this process;
	// the store's reference primary key rejects replays across restarts.
	refMu    sync.Mutex
	consumed map[string]struct{}
}

// New creates a ledger. store and funding may be nil when persistence or
// external funding is not wired (tests, simulator runs).
func New(prices PriceSource, gate domain.ComplianceGate, funding domain.FundingProvider, store Store) *Ledger {
	return &Ledger{
		prices:   prices,
		gate:     gate,
		funding:  funding,
		store:    store,
		wallets:  make(map[string]*walletEntry),
		consumed: make(map[string]struct{}),
	}
}

// CreateWallet creates the account's wallet if absent and returns a copy.
func (l *Ledger) CreateWallet(accountID string) domain.Wallet {
	l.mu.Lock()
	e, ok := l.wallets[accountID]
	if !ok {
		e = &walletEntry{w: domain.NewWallet(accountID)}
		l.wallets[accountID] = e
	}
	l.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.w.Snapshot()
}

// GetWallet returns a copy of the account's wallet.
func (l *Ledger) GetWallet(accountID string) (domain.Wallet, error) {
	e, err := l.entry(accountID)
	if err != nil {
		return domain.Wallet{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.w.Snapshot(), nil
}

func (l *Ledger) entry(accountID string) (*walletEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.wallets[accountID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return e, nil
}

// checkCompliance asks the gate and fails closed: a gate error is a denial.
func (l *Ledger) checkCompliance(ctx context.Context, accountID string, amount decimal.Decimal, direction string) error {
	decision, err := l.gate.CheckLimit(ctx, accountID, amount, direction)
	if err != nil {
		slog.Warn("Compliance gate unavailable, failing closed", slog.Any("error", err))
		return &domain.ComplianceError{Reason: "compliance gate unavailable"}
	}
	if !decision.Allowed {
		return &domain.ComplianceError{Tier: decision.Tier, Ceiling: decision.Ceiling, Reason: decision.Reason}
	}
	return nil
}

// Buy purchases shares at the instrument's current price.
func (l *Ledger) Buy(ctx context.Context, accountID, instrumentID string, shares int64) (domain.Trade, error) {
	if shares <= 0 {
		return domain.Trade{}, fmt.Errorf("%w: share count must be positive", domain.ErrInvalidRequest)
	}

	price, err := l.prices.Price(instrumentID)
	if err != nil {
		return domain.Trade{}, err
	}
	cost := price.Mul(decimal.NewFromInt(shares)).RoundBank(2)

	if err := l.checkCompliance(ctx, accountID, cost, domain.DirectionSpend); err != nil {
		return domain.Trade{}, err
	}

	e, err := l.entry(accountID)
	if err != nil {
		return domain.Trade{}, err
	}

	e.mu.Lock()
	if err := e.w.Debit(cost); err != nil {
		e.mu.Unlock()
		return domain.Trade{}, err
	}
	e.w.AddShares(instrumentID, shares)
	e.w.VerifyInvariant()
	trade := domain.Trade{
		ID:           uuid.NewString(),
		AccountID:    accountID,
		InstrumentID: instrumentID,
		Side:         domain.SideBuy,
		Shares:       shares,
		Price:        price,
		Balance:      e.w.Balance,
		CreatedAt:    time.Now(),
	}
	e.mu.Unlock()

	l.record(&trade)
	return trade, nil
}

// Sell disposes of shares at the instrument's current price.
func (l *Ledger) Sell(ctx context.Context, accountID, instrumentID string, shares int64) (domain.Trade, error) {
	if shares <= 0 {
		return domain.Trade{}, fmt.Errorf("%w: share count must be positive", domain.ErrInvalidRequest)
	}

	price, err := l.prices.Price(instrumentID)
	if err != nil {
		return domain.Trade{}, err
	}
	proceeds := price.Mul(decimal.NewFromInt(shares)).RoundBank(2)

	if err := l.checkCompliance(ctx, accountID, proceeds, domain.DirectionReceive); err != nil {
		return domain.Trade{}, err
	}

	e, err := l.entry(accountID)
	if err != nil {
		return domain.Trade{}, err
	}

	e.mu.Lock()
	if err := e.w.RemoveShares(instrumentID, shares); err != nil {
		e.mu.Unlock()
		return domain.Trade{}, err
	}
	e.w.Credit(proceeds)
	e.w.VerifyInvariant()
	trade := domain.Trade{
		ID:           uuid.NewString(),
		AccountID:    accountID,
		InstrumentID: instrumentID,
		Side:         domain.SideSell,
		Shares:       shares,
		Price:        price,
		Balance:      e.w.Balance,
		CreatedAt:    time.Now(),
	}
	e.mu.Unlock()

	l.record(&trade)
	return trade, nil
}

// record appends the trade to persistent history. The in-memory wallet
// mutation is authoritative; a history write failure is logged, not
// propagated.
func (l *Ledger) record(trade *domain.Trade) {
	infra.GlobalMetrics.RecordTrade()
	if l.store == nil {
		return
	}
	if err := l.store.SaveTrade(trade); err != nil {
		slog.Warn("Failed to persist trade", slog.String("trade", trade.ID), slog.Any("error", err))
	}
}

// RequestDeposit initializes a deposit with the funding provider and
// returns the provider reference. No balance is credited here.
func (l *Ledger) RequestDeposit(ctx context.Context, accountID string, amount decimal.Decimal) (string, error) {
	if !amount.IsPositive() {
		return "", fmt.Errorf("%w: deposit amount must be positive", domain.ErrInvalidRequest)
	}
	if _, err := l.entry(accountID); err != nil {
		return "", err
	}
	if err := l.checkCompliance(ctx, accountID, amount, domain.DirectionReceive); err != nil {
		return "", err
	}
	if l.funding == nil {
		return "", domain.ErrFundingUnconfirmed
	}
	return l.funding.InitializeDeposit(ctx, accountID, amount)
}

// ConfirmDeposit credits the wallet once the funding provider confirms
// the reference. Successful external confirmation is the only trigger
// for crediting; the wallet is never credited speculatively.
func (l *Ledger) ConfirmDeposit(ctx context.Context, accountID, reference string) (domain.Wallet, error) {
	e, err := l.entry(accountID)
	if err != nil {
		return domain.Wallet{}, err
	}
	if l.funding == nil {
		return domain.Wallet{}, domain.ErrFundingUnconfirmed
	}

	conf, err := l.funding.VerifyDeposit(ctx, reference)
	if err != nil || !conf.Success {
		return domain.Wallet{}, domain.ErrFundingUnconfirmed
	}

	if err := l.consumeReference(accountID, reference, conf.Amount); err != nil {
		return domain.Wallet{}, err
	}

	e.mu.Lock()
	e.w.Credit(conf.Amount)
	e.w.VerifyInvariant()
	snapshot := e.w.Snapshot()
	e.mu.Unlock()
	return snapshot, nil
}

// Withdraw debits the wallet and hands the amount to the funding
// provider. A failed provider transfer rolls the debit back.
func (l *Ledger) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) (string, error) {
	if !amount.IsPositive() {
		return "", fmt.Errorf("%w: withdrawal amount must be positive", domain.ErrInvalidRequest)
	}
	if err := l.checkCompliance(ctx, accountID, amount, domain.DirectionSpend); err != nil {
		return "", err
	}

	e, err := l.entry(accountID)
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	if err := e.w.Debit(amount); err != nil {
		e.mu.Unlock()
		return "", err
	}
	e.mu.Unlock()

	if l.funding == nil {
		l.refund(e, amount)
		return "", domain.ErrFundingUnconfirmed
	}
	reference, err := l.funding.Transfer(ctx, accountID, amount)
	if err != nil {
		l.refund(e, amount)
		return "", err
	}
	l.recordFunding(accountID, reference, "withdrawal", amount)
	return reference, nil
}

// consumeReference marks a deposit reference as credited, rejecting one
// seen before. A store write failure also blocks the credit; the wallet
// must never be credited for a reference with no durable record.
func (l *Ledger) consumeReference(accountID, reference string, amount decimal.Decimal) error {
	l.refMu.Lock()
	if _, dup := l.consumed[reference]; dup {
		l.refMu.Unlock()
		return domain.ErrFundingReplayed
	}
	l.consumed[reference] = struct{}{}
	l.refMu.Unlock()

	if l.store == nil {
		return nil
	}
	if err := l.store.SaveFunding(accountID, reference, "deposit", amount); err != nil {
		slog.Warn("Funding reference rejected by store", slog.String("reference", reference), slog.Any("error", err))
		return domain.ErrFundingReplayed
	}
	return nil
}

// recordFunding appends a withdrawal row. The transfer has already
// settled, so a failed write is logged, not propagated.
func (l *Ledger) recordFunding(accountID, reference, kind string, amount decimal.Decimal) {
	if l.store == nil {
		return
	}
	if err := l.store.SaveFunding(accountID, reference, kind, amount); err != nil {
		slog.Warn("Failed to persist funding transaction", slog.String("reference", reference), slog.Any("error", err))
	}
}

func (l *Ledger) refund(e *walletEntry, amount decimal.Decimal) {
	e.mu.Lock()
	e.w.Credit(amount)
	e.mu.Unlock()
}
