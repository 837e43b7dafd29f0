// Package pgsql provides PostgreSQL-backed repositories over a pgx pool.
// The database is the ACID store beneath the ledger: every balance mutation
// and audit append is durable before the service layer reports success.
package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/bankbank/atm-core/internal/apperrors"
	"github.com/bankbank/atm-core/internal/core/domain"
	portsrepo "github.com/bankbank/atm-core/internal/core/ports/repositories"
)

type accountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new repository for account data.
func NewAccountRepository(pool *pgxpool.Pool) portsrepo.AccountRepositoryFacade {
	return &accountRepository{pool: pool}
}

var _ portsrepo.AccountRepositoryFacade = (*accountRepository)(nil)

func (r *accountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	query := `
		INSERT INTO accounts (account_id, pin_hash, balance, daily_withdrawn, withdrawn_day, is_active, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	_, err := r.pool.Exec(ctx, query,
		account.AccountID,
		account.PINHash,
		account.Balance,
		account.DailyWithdrawn,
		account.WithdrawnDay,
		account.Active,
		account.CreatedAt,
		account.CreatedBy,
		account.LastUpdatedAt,
		account.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save account %s: %w", account.AccountID, err)
	}
	return nil
}

func (r *accountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	query := `
		SELECT account_id, pin_hash, balance, daily_withdrawn, withdrawn_day, is_active, created_at, created_by, last_updated_at, last_updated_by
		FROM accounts
		WHERE account_id = $1;
	`
	var acc domain.Account
	err := r.pool.QueryRow(ctx, query, accountID).Scan(
		&acc.AccountID,
		&acc.PINHash,
		&acc.Balance,
		&acc.DailyWithdrawn,
		&acc.WithdrawnDay,
		&acc.Active,
		&acc.CreatedAt,
		&acc.CreatedBy,
		&acc.LastUpdatedAt,
		&acc.LastUpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("account %s: %w", accountID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find account %s: %w", accountID, err)
	}
	return &acc, nil
}

func (r *accountRepository) UpdateBalance(ctx context.Context, accountID string, balance decimal.Decimal, dailyWithdrawn decimal.Decimal, withdrawnDay string, now time.Time) error {
	query := `
		UPDATE accounts
		SET balance = $2, daily_withdrawn = $3, withdrawn_day = $4, last_updated_at = $5
		WHERE account_id = $1;
	`
	tag, err := r.pool.Exec(ctx, query, accountID, balance, dailyWithdrawn, withdrawnDay, now)
	if err != nil {
		return fmt.Errorf("failed to update balance for account %s: %w", accountID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %s: %w", accountID, apperrors.ErrNotFound)
	}
	return nil
}

func (r *accountRepository) UpdatePINHash(ctx context.Context, accountID string, pinHash string, now time.Time) error {
	query := `
		UPDATE accounts
		SET pin_hash = $2, last_updated_at = $3
		WHERE account_id = $1;
	`
	tag, err := r.pool.Exec(ctx, query, accountID, pinHash, now)
	if err != nil {
		return fmt.Errorf("failed to update PIN for account %s: %w", accountID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %s: %w", accountID, apperrors.ErrNotFound)
	}
	return nil
}
