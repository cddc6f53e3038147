package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestWalletCashFlow(t *testing.T) {
	w := NewWallet("acct")

	w.Credit(decimal.NewFromInt(100))
	if !w.Balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Balance after credit: %v", w.Balance)
	}

	t.Run("Debit within balance", func(t *testing.T) {
		if err := w.Debit(decimal.NewFromInt(40)); err != nil {
			t.Fatalf("Debit failed: %v", err)
		}
		if !w.Balance.Equal(decimal.NewFromInt(60)) {
			t.Errorf("Balance after debit: %v", w.Balance)
		}
	})

	t.Run("Overdraft rejected without mutation", func(t *testing.T) {
		if err := w.Debit(decimal.NewFromInt(61)); !errors.Is(err, ErrInsufficientFunds) {
			t.Errorf("Expected ErrInsufficientFunds, got %v", err)
		}
		if !w.Balance.Equal(decimal.NewFromInt(60)) {
			t.Errorf("Balance mutated on failed debit: %v", w.Balance)
		}
	})

	t.Run("Exact balance debit allowed", func(t *testing.T) {
		if err := w.Debit(decimal.NewFromInt(60)); err != nil {
			t.Fatalf("Debit failed: %v", err)
		}
		if !w.Balance.Equal(decimal.Zero) {
			t.Errorf("Balance should be zero: %v", w.Balance)
		}
	})
}

func TestWalletHoldings(t *testing.T) {
	w := NewWallet("acct")

	w.AddShares("p1", 5)
	if w.Shares("p1") != 5 {
		t.Errorf("Shares = %d, want 5", w.Shares("p1"))
	}

	t.Run("Oversell rejected without mutation", func(t *testing.T) {
		if err := w.RemoveShares("p1", 6); !errors.Is(err, ErrInsufficientShares) {
			t.Errorf("Expected ErrInsufficientShares, got %v", err)
		}
		if w.Shares("p1") != 5 {
			t.Errorf("Holdings mutated on failed sell: %d", w.Shares("p1"))
		}
	})

	t.Run("Unknown instrument sells nothing", func(t *testing.T) {
		if err := w.RemoveShares("ghost", 1); !errors.Is(err, ErrInsufficientShares) {
			t.Errorf("Expected ErrInsufficientShares, got %v", err)
		}
	})

	t.Run("Drained position removed", func(t *testing.T) {
		if err := w.RemoveShares("p1", 5); err != nil {
			t.Fatalf("RemoveShares failed: %v", err)
		}
		if _, held := w.Holdings["p1"]; held {
			t.Error("Zero position should be deleted")
		}
	})
}

func TestWalletSnapshotIsolation(t *testing.T) {
	w := NewWallet("acct")
	w.Credit(decimal.NewFromInt(10))
	w.AddShares("p1", 2)

	snap := w.Snapshot()
	snap.Holdings["p1"] = 99

	if w.Shares("p1") != 2 {
		t.Error("Mutating the snapshot leaked into the wallet")
	}
}

func TestWalletInvariantPanics(t *testing.T) {
	w := NewWallet("acct")
	w.Holdings["p1"] = -1

	defer func() {
		if recover() == nil {
			t.Error("VerifyInvariant should panic on a negative holding")
		}
	}()
	w.VerifyInvariant()
}
