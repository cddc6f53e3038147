package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// FeedError represents a failure reading the upstream live source.
// The driver logs it and retries on the next cycle; it never reaches
// the trade or subscriber paths.
type FeedError struct {
	Op        string // Operation that failed (e.g., "poll", "normalize")
	Err       error  // Underlying error
	Retriable bool
}

func (e *FeedError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *FeedError) IsRetriable() bool {
	return e.Retriable
}

func (e *FeedError) Unwrap() error {
	return e.Err
}

// NewFeedError creates a retriable feed error
func NewFeedError(op string, err error) *FeedError {
	return &FeedError{Op: op, Err: err, Retriable: true}
}

// ComplianceError carries the limiting tier so the caller can explain a
// denied transaction. It wraps ErrComplianceDenied.
type ComplianceError struct {
	Tier    string
	Ceiling decimal.Decimal
	Reason  string
}

func (e *ComplianceError) Error() string {
	return fmt.Sprintf("compliance denied [tier=%s ceiling=%s]: %s", e.Tier, e.Ceiling, e.Reason)
}

func (e *ComplianceError) Unwrap() error {
	return ErrComplianceDenied
}

var (
	// ErrInvalidRequest is returned for malformed or out-of-range input.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNotFound is returned when an unknown instrument or account is referenced.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientFunds is returned when a buy exceeds the wallet balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientShares is returned when a sell exceeds the held share count.
	ErrInsufficientShares = errors.New("insufficient shares")

	// ErrComplianceDenied is returned when the compliance gate rejects a transaction.
	ErrComplianceDenied = errors.New("compliance denied")

	// ErrFundingUnconfirmed is returned when a deposit reference has no
	// successful provider confirmation. The wallet is never credited speculatively.
	ErrFundingUnconfirmed = errors.New("funding not confirmed")

	// ErrFundingReplayed is returned when a deposit reference that already
	// credited a wallet is confirmed again. Each reference credits once.
	ErrFundingReplayed = errors.New("funding reference already consumed")
)
