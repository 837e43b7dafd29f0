package services

import (
	"context"

	"github.com/bankbank/atm-core/internal/core/domain"
	"github.com/shopspring/decimal"
)

// LedgerReaderSvc defines read operations against the shared account ledger.
type LedgerReaderSvc interface {
	// Balance returns the current balance of an account. Readers never observe
	// a partially applied transfer.
	Balance(ctx context.Context, accountID string) (decimal.Decimal, error)

	// AccountExists reports whether an account exists and is active.
	AccountExists(ctx context.Context, accountID string) (bool, error)

	// WithinDailyLimit reports whether a withdrawal of amount would respect
	// both the per-transaction and the cumulative daily cap.
	WithinDailyLimit(ctx context.Context, accountID string, amount decimal.Decimal) (bool, error)
}

// LedgerWriterSvc defines the mutating ledger operations. Every mutation
// acquires an exclusive per-account lock and performs its balance check and
// update atomically with respect to all other operations on that account.
type LedgerWriterSvc interface {
	// Debit subtracts amount from the account balance. Fails with
	// apperrors.ErrInsufficientFunds or apperrors.ErrLimitExceeded.
	Debit(ctx context.Context, accountID string, amount decimal.Decimal) error

	// Credit adds amount to the account balance.
	Credit(ctx context.Context, accountID string, amount decimal.Decimal) error

	// Transfer moves amount between two accounts atomically; both account
	// locks are taken in ascending account-id order.
	Transfer(ctx context.Context, fromAccountID, toAccountID string, amount decimal.Decimal) error

	// CompensateDebit reverses a withdrawal debit whose dispense failed,
	// restoring both the balance and the consumed daily allowance.
	CompensateDebit(ctx context.Context, accountID string, amount decimal.Decimal) error
}

// LedgerAuthSvc defines cardholder-credential operations on the ledger.
type LedgerAuthSvc interface {
	// VerifyPIN checks a candidate PIN against the stored hash.
	VerifyPIN(ctx context.Context, accountID string, pin string) error

	// ChangePIN replaces the PIN after verifying the old one.
	ChangePIN(ctx context.Context, accountID string, oldPIN, newPIN string) error
}

// LedgerAdminSvc defines operator-facing account management.
type LedgerAdminSvc interface {
	// CreateAccount provisions a new account with an opening balance.
	CreateAccount(ctx context.Context, accountID string, pin string, openingBalance decimal.Decimal, createdBy string) (*domain.Account, error)

	// GetAccount returns the account including daily-withdrawal state.
	GetAccount(ctx context.Context, accountID string) (*domain.Account, error)
}

// LedgerSvcFacade combines all ledger service interfaces.
type LedgerSvcFacade interface {
	LedgerReaderSvc
	LedgerWriterSvc
	LedgerAuthSvc
	LedgerAdminSvc
}
