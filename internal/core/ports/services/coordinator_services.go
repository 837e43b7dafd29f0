package services

import (
	"context"

	"github.com/bankbank/atm-core/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CoordinatorSvcFacade orchestrates one transaction as a unit spanning the
// ledger, the dispenser and the authorization gateway. Each method drives the
// transaction to a terminal status and appends the audit record before
// returning; a debit is never left without its dispense or compensation.
type CoordinatorSvcFacade interface {
	// Withdraw runs the full withdrawal ordering: caps check, gateway
	// authorization, dispense intent, ledger debit, physical dispense. The
	// returned record carries the terminal status even when err is non-nil.
	Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.TransactionRecord, error)

	// Deposit validates the inserted currency and credits the ledger.
	Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.TransactionRecord, error)

	// Transfer moves funds to another account after verifying it exists.
	Transfer(ctx context.Context, accountID, targetAccountID string, amount decimal.Decimal) (*domain.TransactionRecord, error)

	// Inquiry reads the balance; it never mutates the ledger.
	Inquiry(ctx context.Context, accountID string) (*domain.TransactionRecord, decimal.Decimal, error)

	// RecentTransactions returns up to count audit records, most recent first.
	RecentTransactions(ctx context.Context, accountID string, count int) ([]domain.TransactionRecord, error)

	// Recover compensates every outstanding dispense intent left by a crash
	// between a ledger debit and its dispense confirmation. Called once at
	// startup before any new transaction is admitted.
	Recover(ctx context.Context) error
}
