package repositories

import (
	"context"

	"github.com/bankbank/atm-core/internal/core/domain"
)

// TransactionRepository stores the append-only per-account audit trail.
// Records are appended on terminal status only and never updated.
type TransactionRepository interface {
	// AppendTransaction appends a terminal-status record to the account's history.
	// Implementations may trim the history to a bounded length, dropping the
	// oldest entries first.
	AppendTransaction(ctx context.Context, record domain.TransactionRecord) error

	// ListRecentByAccount returns up to limit records for the account,
	// most recent first.
	ListRecentByAccount(ctx context.Context, accountID string, limit int) ([]domain.TransactionRecord, error)
}

// IntentRepository stores dispense intents, the recoverable unit coupling a
// ledger debit to its physical dispense. An intent present at startup marks a
// debited-but-undispensed withdrawal that must be compensated.
type IntentRepository interface {
	// SaveIntent persists an intent before the ledger debit it covers.
	SaveIntent(ctx context.Context, intent domain.DispenseIntent) error

	// DeleteIntent clears an intent after dispense confirmation or compensation.
	DeleteIntent(ctx context.Context, transactionID string) error

	// ListIntents returns all outstanding intents.
	ListIntents(ctx context.Context) ([]domain.DispenseIntent, error)
}
