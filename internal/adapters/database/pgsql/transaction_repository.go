package pgsql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bankbank/atm-core/internal/core/domain"
	portsrepo "github.com/bankbank/atm-core/internal/core/ports/repositories"
)

type transactionRepository struct {
	pool    *pgxpool.Pool
	maxKeep int
}

// NewTransactionRepository creates the durable audit trail keeping at most
// maxKeep records per account.
func NewTransactionRepository(pool *pgxpool.Pool, maxKeep int) portsrepo.TransactionRepository {
	if maxKeep < 1 {
		maxKeep = 20
	}
	return &transactionRepository{pool: pool, maxKeep: maxKeep}
}

var _ portsrepo.TransactionRepository = (*transactionRepository)(nil)

func (r *transactionRepository) AppendTransaction(ctx context.Context, record domain.TransactionRecord) error {
	// Append and trim in one transaction so the history bound holds even
	// under concurrent appends for the same account.
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	insert := `
		INSERT INTO transactions (transaction_id, txn_type, amount, source_account_id, target_account_id, status, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	_, err = tx.Exec(ctx, insert,
		record.TransactionID,
		record.Type,
		record.Amount,
		record.SourceAccountID,
		nullable(record.TargetAccountID),
		record.Status,
		record.Detail,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append transaction %s: %w", record.TransactionID, err)
	}

	trim := `
		DELETE FROM transactions
		WHERE source_account_id = $1
		AND transaction_id NOT IN (
			SELECT transaction_id FROM transactions
			WHERE source_account_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		);
	`
	if _, err := tx.Exec(ctx, trim, record.SourceAccountID, r.maxKeep); err != nil {
		return fmt.Errorf("failed to trim history for account %s: %w", record.SourceAccountID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction append: %w", err)
	}
	return nil
}

func (r *transactionRepository) ListRecentByAccount(ctx context.Context, accountID string, limit int) ([]domain.TransactionRecord, error) {
	if limit < 1 || limit > r.maxKeep {
		limit = r.maxKeep
	}
	query := `
		SELECT transaction_id, txn_type, amount, source_account_id, COALESCE(target_account_id, ''), status, detail, created_at
		FROM transactions
		WHERE source_account_id = $1
		ORDER BY created_at DESC
		LIMIT $2;
	`
	rows, err := r.pool.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for account %s: %w", accountID, err)
	}
	defer rows.Close()

	var records []domain.TransactionRecord
	for rows.Next() {
		var rec domain.TransactionRecord
		if err := rows.Scan(
			&rec.TransactionID,
			&rec.Type,
			&rec.Amount,
			&rec.SourceAccountID,
			&rec.TargetAccountID,
			&rec.Status,
			&rec.Detail,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return records, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
