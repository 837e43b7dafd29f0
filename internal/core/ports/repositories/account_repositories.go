package repositories

import (
	"context"
	"time"

	"github.com/bankbank/atm-core/internal/core/domain"
	"github.com/shopspring/decimal"
)

// AccountReader defines read operations for account data.
type AccountReader interface {
	// FindAccountByID retrieves a specific account by its unique identifier.
	// Returns apperrors.ErrNotFound when the account does not exist.
	FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error)
}

// AccountWriter defines write operations for account data.
// Callers must hold the ledger's per-account lock for the accounts involved;
// the repository itself only guarantees durability of each call.
type AccountWriter interface {
	// SaveAccount persists a new account.
	SaveAccount(ctx context.Context, account domain.Account) error

	// UpdateBalance persists a new balance and daily-withdrawn total for an account.
	UpdateBalance(ctx context.Context, accountID string, balance decimal.Decimal, dailyWithdrawn decimal.Decimal, withdrawnDay string, now time.Time) error

	// UpdatePINHash replaces the stored PIN hash for an account.
	UpdatePINHash(ctx context.Context, accountID string, pinHash string, now time.Time) error
}

// AccountRepositoryFacade combines all account-related repository interfaces.
type AccountRepositoryFacade interface {
	AccountReader
	AccountWriter
}
