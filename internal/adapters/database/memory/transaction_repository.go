package memory

import (
	"context"
	"sync"

	"github.com/bankbank/atm-core/internal/core/domain"
	portsrepo "github.com/bankbank/atm-core/internal/core/ports/repositories"
)

type transactionRepository struct {
	mu      sync.RWMutex
	maxKeep int
	byAcct  map[string][]domain.TransactionRecord // most recent first
}

// NewTransactionRepository creates an in-memory audit trail keeping at most
// maxKeep records per account.
func NewTransactionRepository(maxKeep int) portsrepo.TransactionRepository {
	if maxKeep < 1 {
		maxKeep = 20
	}
	return &transactionRepository{
		maxKeep: maxKeep,
		byAcct:  make(map[string][]domain.TransactionRecord),
	}
}

var _ portsrepo.TransactionRepository = (*transactionRepository)(nil)

func (r *transactionRepository) AppendTransaction(ctx context.Context, record domain.TransactionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	history := append([]domain.TransactionRecord{record}, r.byAcct[record.SourceAccountID]...)
	if len(history) > r.maxKeep {
		history = history[:r.maxKeep]
	}
	r.byAcct[record.SourceAccountID] = history
	return nil
}

func (r *transactionRepository) ListRecentByAccount(ctx context.Context, accountID string, limit int) ([]domain.TransactionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	history := r.byAcct[accountID]
	if limit > 0 && limit < len(history) {
		history = history[:limit]
	}
	out := make([]domain.TransactionRecord, len(history))
	copy(out, history)
	return out, nil
}
