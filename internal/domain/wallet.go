package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Wallet holds one account's cash balance and share positions.
// Balance and every holding count are non-negative at every observable
// instant; the ledger serializes all mutation per account.
type Wallet struct {
	AccountID string           `json:"account_id"`
	Balance   decimal.Decimal  `json:"balance"`
	Holdings  map[string]int64 `json:"holdings"`
}

// NewWallet creates an empty wallet for an account.
func NewWallet(accountID string) *Wallet {
	return &Wallet{
		AccountID: accountID,
		Balance:   decimal.Zero,
		Holdings:  make(map[string]int64),
	}
}

// Credit adds funds to the balance.
func (w *Wallet) Credit(amount decimal.Decimal) {
	w.Balance = w.Balance.Add(amount)
}

// Debit removes funds from the balance. Fails without mutation if the
// balance does not cover the amount.
func (w *Wallet) Debit(amount decimal.Decimal) error {
	if w.Balance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	w.Balance = w.Balance.Sub(amount)
	return nil
}

// AddShares increases the held count for an instrument.
func (w *Wallet) AddShares(instrumentID string, count int64) {
	w.Holdings[instrumentID] += count
}

// RemoveShares decreases the held count for an instrument. Fails without
// mutation if fewer shares are held. A position drained to zero is removed.
func (w *Wallet) RemoveShares(instrumentID string, count int64) error {
	if w.Holdings[instrumentID] < count {
		return ErrInsufficientShares
	}
	w.Holdings[instrumentID] -= count
	if w.Holdings[instrumentID] == 0 {
		delete(w.Holdings, instrumentID)
	}
	return nil
}

// Shares returns the held count for an instrument.
func (w *Wallet) Shares(instrumentID string) int64 {
	return w.Holdings[instrumentID]
}

// VerifyInvariant panics if the wallet violates its non-negativity
// invariants. A violation means a ledger bug, not a user error.
func (w *Wallet) VerifyInvariant() {
	if w.Balance.IsNegative() {
		panic(fmt.Sprintf("WALLET_INVARIANT_NEGATIVE_BALANCE: %s = %s", w.AccountID, w.Balance))
	}
	for id, count := range w.Holdings {
		if count < 0 {
			panic(fmt.Sprintf("WALLET_INVARIANT_NEGATIVE_HOLDING: %s %s = %d", w.AccountID, id, count))
		}
	}
}

// Snapshot returns a copy safe to hand outside the wallet lock.
func (w *Wallet) Snapshot() Wallet {
	holdings := make(map[string]int64, len(w.Holdings))
	for k, v := range w.Holdings {
		holdings[k] = v
	}
	return Wallet{AccountID: w.AccountID, Balance: w.Balance, Holdings: holdings}
}
