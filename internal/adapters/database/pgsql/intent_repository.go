package pgsql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bankbank/atm-core/internal/core/domain"
	portsrepo "github.com/bankbank/atm-core/internal/core/ports/repositories"
)

type intentRepository struct {
	pool *pgxpool.Pool
}

// NewIntentRepository creates the durable dispense-intent store. Intents
// present at startup mark withdrawals interrupted between debit and dispense
// confirmation; recovery compensates them.
func NewIntentRepository(pool *pgxpool.Pool) portsrepo.IntentRepository {
	return &intentRepository{pool: pool}
}

var _ portsrepo.IntentRepository = (*intentRepository)(nil)

func (r *intentRepository) SaveIntent(ctx context.Context, intent domain.DispenseIntent) error {
	query := `
		INSERT INTO dispense_intents (transaction_id, account_id, amount, created_at)
		VALUES ($1, $2, $3, $4);
	`
	_, err := r.pool.Exec(ctx, query, intent.TransactionID, intent.AccountID, intent.Amount, intent.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save dispense intent %s: %w", intent.TransactionID, err)
	}
	return nil
}

func (r *intentRepository) DeleteIntent(ctx context.Context, transactionID string) error {
	query := `DELETE FROM dispense_intents WHERE transaction_id = $1;`
	if _, err := r.pool.Exec(ctx, query, transactionID); err != nil {
		return fmt.Errorf("failed to delete dispense intent %s: %w", transactionID, err)
	}
	return nil
}

func (r *intentRepository) ListIntents(ctx context.Context) ([]domain.DispenseIntent, error) {
	query := `
		SELECT transaction_id, account_id, amount, created_at
		FROM dispense_intents
		ORDER BY created_at;
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list dispense intents: %w", err)
	}
	defer rows.Close()

	var intents []domain.DispenseIntent
	for rows.Next() {
		var intent domain.DispenseIntent
		if err := rows.Scan(&intent.TransactionID, &intent.AccountID, &intent.Amount, &intent.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan dispense intent row: %w", err)
		}
		intents = append(intents, intent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dispense intent rows: %w", err)
	}
	return intents, nil
}
