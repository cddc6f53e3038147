package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// Transaction directions presented to the compliance gate.
const (
	DirectionSpend   = "spend"
	DirectionReceive = "receive"
)

// ComplianceDecision is the gate's answer for one proposed transaction.
type ComplianceDecision struct {
	Allowed bool
	Tier    string
	Ceiling decimal.Decimal
	Reason  string
}

// ComplianceGate decides whether an account may move the given amount
// today. It is treated as a remote call; the ledger fails closed when
// the gate itself errors.
type ComplianceGate interface {
	CheckLimit(ctx context.Context, accountID string, amount decimal.Decimal, direction string) (ComplianceDecision, error)
}

// FundingConfirmation is the provider's verdict for a deposit reference.
type FundingConfirmation struct {
	Reference string
	Success   bool
	Amount    decimal.Decimal
}

// FundingProvider is the external deposit/withdraw processor. A wallet is
// credited only after VerifyDeposit confirms the reference.
type FundingProvider interface {
	InitializeDeposit(ctx context.Context, accountID string, amount decimal.Decimal) (reference string, err error)
	VerifyDeposit(ctx context.Context, reference string) (FundingConfirmation, error)
	Transfer(ctx context.Context, accountID string, amount decimal.Decimal) (reference string, err error)
}
