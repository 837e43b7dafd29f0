// Package memory provides in-memory repository implementations for tests and
// for running a machine without a PostgreSQL instance. All maps are guarded
// by a mutex; callers get value copies, never internal pointers.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bankbank/atm-core/internal/apperrors"
	"github.com/bankbank/atm-core/internal/core/domain"
	portsrepo "github.com/bankbank/atm-core/internal/core/ports/repositories"
)

type accountRepository struct {
	mu       sync.RWMutex
	accounts map[string]domain.Account
}

// NewAccountRepository creates an in-memory account store.
func NewAccountRepository() portsrepo.AccountRepositoryFacade {
	return &accountRepository{accounts: make(map[string]domain.Account)}
}

var _ portsrepo.AccountRepositoryFacade = (*accountRepository)(nil)

func (r *accountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[account.AccountID]; ok {
		return fmt.Errorf("account %s: %w", account.AccountID, apperrors.ErrDuplicate)
	}
	r.accounts[account.AccountID] = account
	return nil
}

func (r *accountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", accountID, apperrors.ErrNotFound)
	}
	cp := acc
	return &cp, nil
}

func (r *accountRepository) UpdateBalance(ctx context.Context, accountID string, balance decimal.Decimal, dailyWithdrawn decimal.Decimal, withdrawnDay string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[accountID]
	if !ok {
		return fmt.Errorf("account %s: %w", accountID, apperrors.ErrNotFound)
	}
	acc.Balance = balance
	acc.DailyWithdrawn = dailyWithdrawn
	acc.WithdrawnDay = withdrawnDay
	acc.LastUpdatedAt = now
	r.accounts[accountID] = acc
	return nil
}

func (r *accountRepository) UpdatePINHash(ctx context.Context, accountID string, pinHash string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[accountID]
	if !ok {
		return fmt.Errorf("account %s: %w", accountID, apperrors.ErrNotFound)
	}
	acc.PINHash = pinHash
	acc.LastUpdatedAt = now
	r.accounts[accountID] = acc
	return nil
}
