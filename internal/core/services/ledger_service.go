package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bankbank/atm-core/internal/apperrors"
	"github.com/bankbank/atm-core/internal/core/domain"
	portsrepo "github.com/bankbank/atm-core/internal/core/ports/repositories"
	portssvc "github.com/bankbank/atm-core/internal/core/ports/services"
	"github.com/bankbank/atm-core/internal/middleware"
	"github.com/bankbank/atm-core/internal/utils"
)

const dayFormat = "2006-01-02"

// ledgerService owns all account mutation. Every operation takes an
// exclusive lock scoped to the specific account(s) involved, so two
// withdrawals against the same account are serialized: the second observes
// the result of the first, never an intermediate balance.
type ledgerService struct {
	repo      portsrepo.AccountRepositoryFacade
	perTxnCap decimal.Decimal
	dailyCap  decimal.Decimal

	mu    sync.Mutex // guards locks map only
	locks map[string]*sync.Mutex
}

// NewLedgerService creates a new ledger service over the given account store.
func NewLedgerService(repo portsrepo.AccountRepositoryFacade, perTxnCap, dailyCap decimal.Decimal) portssvc.LedgerSvcFacade {
	return &ledgerService{
		repo:      repo,
		perTxnCap: perTxnCap,
		dailyCap:  dailyCap,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Ensure ledgerService implements the LedgerSvcFacade interface.
var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

// accountLock returns the mutex for one account, creating it on first use.
func (s *ledgerService) accountLock(accountID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[accountID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[accountID] = l
	}
	return l
}

// lockAccounts locks the given accounts in ascending account-id order to
// prevent deadlock between concurrent transfers, and returns the unlock
// function. Duplicate ids are locked once.
func (s *ledgerService) lockAccounts(accountIDs ...string) func() {
	ids := uniqueSorted(accountIDs)
	held := make([]*sync.Mutex, 0, len(ids))
	for _, id := range ids {
		l := s.accountLock(id)
		l.Lock()
		held = append(held, l)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// loadActive fetches an account and rolls its daily-withdrawn total over to
// the current UTC day. Caller must hold the account lock.
func (s *ledgerService) loadActive(ctx context.Context, accountID string) (*domain.Account, error) {
	acc, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !acc.Active {
		return nil, fmt.Errorf("account %s is inactive: %w", accountID, apperrors.ErrNotFound)
	}
	today := time.Now().UTC().Format(dayFormat)
	if acc.WithdrawnDay != today {
		acc.WithdrawnDay = today
		acc.DailyWithdrawn = decimal.Zero
	}
	return acc, nil
}

func (s *ledgerService) Balance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	unlock := s.lockAccounts(accountID)
	defer unlock()

	acc, err := s.loadActive(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return acc.Balance, nil
}

func (s *ledgerService) AccountExists(ctx context.Context, accountID string) (bool, error) {
	acc, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return acc.Active, nil
}

func (s *ledgerService) WithinDailyLimit(ctx context.Context, accountID string, amount decimal.Decimal) (bool, error) {
	unlock := s.lockAccounts(accountID)
	defer unlock()

	acc, err := s.loadActive(ctx, accountID)
	if err != nil {
		return false, err
	}
	return s.capsAllow(acc, amount), nil
}

// capsAllow checks the per-transaction and cumulative daily caps.
func (s *ledgerService) capsAllow(acc *domain.Account, amount decimal.Decimal) bool {
	if amount.GreaterThan(s.perTxnCap) {
		return false
	}
	return acc.DailyWithdrawn.Add(amount).LessThanOrEqual(s.dailyCap)
}

func (s *ledgerService) Debit(ctx context.Context, accountID string, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("debit amount must be positive: %w", apperrors.ErrValidation)
	}

	unlock := s.lockAccounts(accountID)
	defer unlock()

	acc, err := s.loadActive(ctx, accountID)
	if err != nil {
		return err
	}
	if !s.capsAllow(acc, amount) {
		return fmt.Errorf("amount %s: %w", amount.String(), apperrors.ErrLimitExceeded)
	}
	if amount.GreaterThan(acc.Balance) {
		return fmt.Errorf("amount %s exceeds balance: %w", amount.String(), apperrors.ErrInsufficientFunds)
	}

	newBalance := acc.Balance.Sub(amount)
	newDaily := acc.DailyWithdrawn.Add(amount)
	now := time.Now().UTC()
	if err := s.repo.UpdateBalance(ctx, accountID, newBalance, newDaily, acc.WithdrawnDay, now); err != nil {
		return fmt.Errorf("failed to persist debit for account %s: %w", accountID, err)
	}

	middleware.GetLoggerFromCtx(ctx).Info("Ledger debit applied",
		slog.String("account_id", accountID),
		slog.String("amount", amount.String()),
		slog.String("balance", newBalance.String()))
	return nil
}

func (s *ledgerService) Credit(ctx context.Context, accountID string, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("credit amount must be positive: %w", apperrors.ErrValidation)
	}

	unlock := s.lockAccounts(accountID)
	defer unlock()

	acc, err := s.loadActive(ctx, accountID)
	if err != nil {
		return err
	}

	newBalance := acc.Balance.Add(amount)
	now := time.Now().UTC()
	if err := s.repo.UpdateBalance(ctx, accountID, newBalance, acc.DailyWithdrawn, acc.WithdrawnDay, now); err != nil {
		return fmt.Errorf("failed to persist credit for account %s: %w", accountID, err)
	}

	middleware.GetLoggerFromCtx(ctx).Info("Ledger credit applied",
		slog.String("account_id", accountID),
		slog.String("amount", amount.String()),
		slog.String("balance", newBalance.String()))
	return nil
}

func (s *ledgerService) CompensateDebit(ctx context.Context, accountID string, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("compensation amount must be positive: %w", apperrors.ErrValidation)
	}

	unlock := s.lockAccounts(accountID)
	defer unlock()

	acc, err := s.loadActive(ctx, accountID)
	if err != nil {
		return err
	}

	newBalance := acc.Balance.Add(amount)
	newDaily := acc.DailyWithdrawn.Sub(amount)
	if newDaily.IsNegative() {
		// Day rolled over between debit and compensation; nothing left to give back.
		newDaily = decimal.Zero
	}
	now := time.Now().UTC()
	if err := s.repo.UpdateBalance(ctx, accountID, newBalance, newDaily, acc.WithdrawnDay, now); err != nil {
		return fmt.Errorf("failed to persist compensation for account %s: %w", accountID, err)
	}

	middleware.GetLoggerFromCtx(ctx).Warn("Compensating credit applied",
		slog.String("account_id", accountID),
		slog.String("amount", amount.String()),
		slog.String("balance", newBalance.String()))
	return nil
}

func (s *ledgerService) Transfer(ctx context.Context, fromAccountID, toAccountID string, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("transfer amount must be positive: %w", apperrors.ErrValidation)
	}
	if fromAccountID == toAccountID {
		return fmt.Errorf("source and target accounts are the same: %w", apperrors.ErrValidation)
	}

	unlock := s.lockAccounts(fromAccountID, toAccountID)
	defer unlock()

	from, err := s.loadActive(ctx, fromAccountID)
	if err != nil {
		return err
	}
	to, err := s.loadActive(ctx, toAccountID)
	if err != nil {
		return err
	}
	if amount.GreaterThan(from.Balance) {
		return fmt.Errorf("amount %s exceeds balance: %w", amount.String(), apperrors.ErrInsufficientFunds)
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateBalance(ctx, fromAccountID, from.Balance.Sub(amount), from.DailyWithdrawn, from.WithdrawnDay, now); err != nil {
		return fmt.Errorf("failed to persist transfer debit for account %s: %w", fromAccountID, err)
	}
	if err := s.repo.UpdateBalance(ctx, toAccountID, to.Balance.Add(amount), to.DailyWithdrawn, to.WithdrawnDay, now); err != nil {
		// Undo the source side before releasing the locks so no reader ever
		// sees a half-applied transfer.
		if undoErr := s.repo.UpdateBalance(ctx, fromAccountID, from.Balance, from.DailyWithdrawn, from.WithdrawnDay, now); undoErr != nil {
			return fmt.Errorf("transfer credit failed and source restore failed (%v): %w", undoErr, apperrors.ErrConsistency)
		}
		return fmt.Errorf("failed to persist transfer credit for account %s: %w", toAccountID, err)
	}

	middleware.GetLoggerFromCtx(ctx).Info("Ledger transfer applied",
		slog.String("from_account_id", fromAccountID),
		slog.String("to_account_id", toAccountID),
		slog.String("amount", amount.String()))
	return nil
}

func (s *ledgerService) VerifyPIN(ctx context.Context, accountID string, pin string) error {
	acc, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !acc.Active {
		return fmt.Errorf("account %s is inactive: %w", accountID, apperrors.ErrNotFound)
	}
	if !utils.CheckPINHash(pin, acc.PINHash) {
		return apperrors.ErrInvalidPIN
	}
	return nil
}

func (s *ledgerService) ChangePIN(ctx context.Context, accountID string, oldPIN, newPIN string) error {
	if !utils.ValidPINFormat(newPIN) {
		return fmt.Errorf("new PIN must be 4 to 6 digits: %w", apperrors.ErrValidation)
	}
	if err := s.VerifyPIN(ctx, accountID, oldPIN); err != nil {
		return err
	}

	hash, err := utils.HashPIN(newPIN)
	if err != nil {
		return fmt.Errorf("failed to hash PIN: %w", err)
	}
	if err := s.repo.UpdatePINHash(ctx, accountID, hash, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to persist PIN change for account %s: %w", accountID, err)
	}

	middleware.GetLoggerFromCtx(ctx).Info("PIN changed", slog.String("account_id", accountID))
	return nil
}

func (s *ledgerService) CreateAccount(ctx context.Context, accountID string, pin string, openingBalance decimal.Decimal, createdBy string) (*domain.Account, error) {
	if accountID == "" {
		return nil, fmt.Errorf("account id is required: %w", apperrors.ErrValidation)
	}
	if !utils.ValidPINFormat(pin) {
		return nil, fmt.Errorf("PIN must be 4 to 6 digits: %w", apperrors.ErrValidation)
	}
	if openingBalance.IsNegative() {
		return nil, fmt.Errorf("opening balance must not be negative: %w", apperrors.ErrValidation)
	}

	hash, err := utils.HashPIN(pin)
	if err != nil {
		return nil, fmt.Errorf("failed to hash PIN: %w", err)
	}

	now := time.Now().UTC()
	account := domain.Account{
		AccountID:      accountID,
		PINHash:        hash,
		Balance:        openingBalance,
		DailyWithdrawn: decimal.Zero,
		WithdrawnDay:   now.Format(dayFormat),
		Active:         true,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     createdBy,
			LastUpdatedAt: now,
			LastUpdatedBy: createdBy,
		},
	}
	if err := s.repo.SaveAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to save account %s: %w", accountID, err)
	}

	middleware.GetLoggerFromCtx(ctx).Info("Account created",
		slog.String("account_id", accountID),
		slog.String("created_by", createdBy))
	return &account, nil
}

func (s *ledgerService) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	unlock := s.lockAccounts(accountID)
	defer unlock()
	return s.loadActive(ctx, accountID)
}
