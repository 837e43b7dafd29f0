package memory

import (
	"context"
	"sync"

	"github.com/bankbank/atm-core/internal/core/domain"
	portsrepo "github.com/bankbank/atm-core/internal/core/ports/repositories"
)

type intentRepository struct {
	mu      sync.Mutex
	intents map[string]domain.DispenseIntent
}

// NewIntentRepository creates an in-memory dispense-intent store. Note that
// an in-memory store cannot survive a process restart; deployments that need
// the recovery guarantee use the pgsql implementation.
func NewIntentRepository() portsrepo.IntentRepository {
	return &intentRepository{intents: make(map[string]domain.DispenseIntent)}
}

var _ portsrepo.IntentRepository = (*intentRepository)(nil)

func (r *intentRepository) SaveIntent(ctx context.Context, intent domain.DispenseIntent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intents[intent.TransactionID] = intent
	return nil
}

func (r *intentRepository) DeleteIntent(ctx context.Context, transactionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.intents, transactionID)
	return nil
}

func (r *intentRepository) ListIntents(ctx context.Context) ([]domain.DispenseIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.DispenseIntent, 0, len(r.intents))
	for _, intent := range r.intents {
		out = append(out, intent)
	}
	return out, nil
}
