package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bankbank/atm-core/internal/apperrors"
	"github.com/bankbank/atm-core/internal/core/domain"
	portsrepo "github.com/bankbank/atm-core/internal/core/ports/repositories"
	portssvc "github.com/bankbank/atm-core/internal/core/ports/services"
	"github.com/bankbank/atm-core/internal/middleware"
)

// coordinatorService orchestrates one transaction as a unit spanning the
// ledger, the dispenser and the authorization gateway. It is the only writer
// of terminal transaction status, and it appends the audit record exactly
// once, when the transaction reaches that status.
type coordinatorService struct {
	ledger       portssvc.LedgerSvcFacade
	dispenser    portssvc.DispenserSvcFacade
	gateway      portssvc.GatewayAuthorizer
	depositSlot  portssvc.DepositSlot
	txnRepo      portsrepo.TransactionRepository
	intentRepo   portsrepo.IntentRepository
	historyLimit int
}

// NewCoordinatorService creates the transaction coordinator.
func NewCoordinatorService(
	ledger portssvc.LedgerSvcFacade,
	dispenser portssvc.DispenserSvcFacade,
	gateway portssvc.GatewayAuthorizer,
	depositSlot portssvc.DepositSlot,
	txnRepo portsrepo.TransactionRepository,
	intentRepo portsrepo.IntentRepository,
	historyLimit int,
) portssvc.CoordinatorSvcFacade {
	if historyLimit < 1 {
		historyLimit = 20
	}
	return &coordinatorService{
		ledger:       ledger,
		dispenser:    dispenser,
		gateway:      gateway,
		depositSlot:  depositSlot,
		txnRepo:      txnRepo,
		intentRepo:   intentRepo,
		historyLimit: historyLimit,
	}
}

// Ensure coordinatorService implements the CoordinatorSvcFacade interface.
var _ portssvc.CoordinatorSvcFacade = (*coordinatorService)(nil)

func newRecord(txnType domain.TransactionType, accountID string, amount decimal.Decimal) *domain.TransactionRecord {
	return &domain.TransactionRecord{
		TransactionID:   uuid.NewString(),
		Type:            txnType,
		Amount:          amount,
		SourceAccountID: accountID,
		Status:          domain.StatusPending,
		CreatedAt:       time.Now().UTC(),
	}
}

// finish stamps the terminal status onto the record and appends it to the
// immutable audit trail. The record must not be touched afterward.
func (s *coordinatorService) finish(ctx context.Context, rec *domain.TransactionRecord, status domain.TransactionStatus, detail string) {
	rec.Status = status
	rec.Detail = detail
	if err := s.txnRepo.AppendTransaction(ctx, *rec); err != nil {
		middleware.GetLoggerFromCtx(ctx).Error("Failed to append transaction record",
			slog.String("transaction_id", rec.TransactionID),
			slog.String("error", err.Error()))
	}
}

// Withdraw runs the withdrawal ordering that must hold exactly:
//  1. validate the amount against per-transaction and daily caps,
//  2. call the gateway for authorization,
//  3. only on gateway success, debit the ledger (intent persisted first),
//  4. only after a successful debit, instruct the dispenser.
//
// A gateway failure or timeout rejects before any state mutation. A dispense
// failure after the debit triggers a synchronous compensating credit before
// control returns, so no operation ever observes the debited-but-undispensed
// window.
func (s *coordinatorService) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.TransactionRecord, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	rec := newRecord(domain.Withdrawal, accountID, amount)

	if amount.LessThanOrEqual(decimal.Zero) || !amount.IsInteger() {
		s.finish(ctx, rec, domain.StatusRejected, "amount not dispensable")
		return rec, fmt.Errorf("amount %s is not dispensable: %w", amount.String(), apperrors.ErrValidation)
	}

	// (1) Caps.
	ok, err := s.ledger.WithinDailyLimit(ctx, accountID, amount)
	if err != nil {
		s.finish(ctx, rec, domain.StatusRejected, "limit check failed")
		return rec, err
	}
	if !ok {
		s.finish(ctx, rec, domain.StatusRejected, "withdrawal limit exceeded")
		return rec, fmt.Errorf("amount %s: %w", amount.String(), apperrors.ErrLimitExceeded)
	}

	// (2) Bank authorization. No mutation has happened yet; any non-approval
	// rejects the transaction outright.
	decision, err := s.gateway.Authorize(ctx, accountID, amount)
	if err != nil {
		s.finish(ctx, rec, domain.StatusRejected, "authorization error")
		return rec, fmt.Errorf("authorization failed: %w", apperrors.ErrGatewayDeclined)
	}
	switch decision {
	case domain.AuthApproved:
		rec.Status = domain.StatusAuthorized
	case domain.AuthTimeout:
		logger.Warn("Gateway timeout on withdrawal",
			slog.String("transaction_id", rec.TransactionID),
			slog.String("account_id", accountID))
		s.finish(ctx, rec, domain.StatusRejected, "authorization timed out")
		return rec, apperrors.ErrGatewayTimeout
	default:
		s.finish(ctx, rec, domain.StatusRejected, "authorization declined")
		return rec, apperrors.ErrGatewayDeclined
	}

	// (3) Persist the dispense intent, then debit. The intent makes the
	// debit-plus-dispense a recoverable unit across a crash.
	intent := domain.DispenseIntent{
		TransactionID: rec.TransactionID,
		AccountID:     accountID,
		Amount:        amount,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.intentRepo.SaveIntent(ctx, intent); err != nil {
		s.finish(ctx, rec, domain.StatusRejected, "could not persist dispense intent")
		return rec, fmt.Errorf("failed to persist dispense intent: %w", err)
	}

	if err := s.ledger.Debit(ctx, accountID, amount); err != nil {
		s.clearIntent(ctx, rec.TransactionID)
		s.finish(ctx, rec, domain.StatusRejected, "debit refused")
		return rec, err
	}

	// (4) Physical dispense. From here until the intent is cleared, a failure
	// must be compensated synchronously.
	plan, err := s.dispenser.PlanBills(amount)
	if err == nil {
		err = s.dispenser.Dispense(ctx, plan)
	}
	if err != nil {
		s.compensate(ctx, rec, amount)
		return rec, err
	}

	s.clearIntent(ctx, rec.TransactionID)
	s.finish(ctx, rec, domain.StatusCommitted, "")
	logger.Info("Withdrawal committed",
		slog.String("transaction_id", rec.TransactionID),
		slog.String("account_id", accountID),
		slog.String("amount", amount.String()))
	return rec, nil
}

// compensate credits back a debited amount whose dispense failed, clears the
// intent and closes the record as rolled back. Runs synchronously: the
// withdrawal does not return to the session until the credit has landed or
// the intent has been left for recovery to retry.
func (s *coordinatorService) compensate(ctx context.Context, rec *domain.TransactionRecord, amount decimal.Decimal) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := s.ledger.CompensateDebit(ctx, rec.SourceAccountID, amount); err != nil {
		// The intent stays on disk so recovery retries the compensation.
		logger.Error("Compensating credit failed, intent left for recovery",
			slog.String("transaction_id", rec.TransactionID),
			slog.String("account_id", rec.SourceAccountID),
			slog.String("error", err.Error()))
		s.finish(ctx, rec, domain.StatusRolledBack, "dispense failed; compensation pending recovery")
		return
	}
	s.clearIntent(ctx, rec.TransactionID)
	s.finish(ctx, rec, domain.StatusRolledBack, "dispense failed; amount credited back")
}

func (s *coordinatorService) clearIntent(ctx context.Context, transactionID string) {
	if err := s.intentRepo.DeleteIntent(ctx, transactionID); err != nil {
		middleware.GetLoggerFromCtx(ctx).Error("Failed to clear dispense intent",
			slog.String("transaction_id", transactionID),
			slog.String("error", err.Error()))
	}
}

func (s *coordinatorService) Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.TransactionRecord, error) {
	rec := newRecord(domain.Deposit, accountID, amount)

	if amount.LessThanOrEqual(decimal.Zero) {
		s.finish(ctx, rec, domain.StatusRejected, "invalid amount")
		return rec, fmt.Errorf("deposit amount must be positive: %w", apperrors.ErrValidation)
	}

	// The physical accept step validates the currency; no credit happens if
	// it cannot.
	if err := s.depositSlot.Accept(ctx, amount); err != nil {
		s.finish(ctx, rec, domain.StatusRejected, "currency rejected")
		return rec, fmt.Errorf("deposit not accepted: %w", apperrors.ErrCurrencyRejected)
	}

	if err := s.ledger.Credit(ctx, accountID, amount); err != nil {
		s.finish(ctx, rec, domain.StatusRejected, "credit refused")
		return rec, err
	}

	s.finish(ctx, rec, domain.StatusCommitted, "")
	return rec, nil
}

func (s *coordinatorService) Transfer(ctx context.Context, accountID, targetAccountID string, amount decimal.Decimal) (*domain.TransactionRecord, error) {
	rec := newRecord(domain.Transfer, accountID, amount)
	rec.TargetAccountID = targetAccountID

	// Target existence is checked before any mutation to the source account.
	exists, err := s.ledger.AccountExists(ctx, targetAccountID)
	if err != nil {
		s.finish(ctx, rec, domain.StatusRejected, "target lookup failed")
		return rec, err
	}
	if !exists {
		s.finish(ctx, rec, domain.StatusRejected, "target account not found")
		return rec, fmt.Errorf("target account %s: %w", targetAccountID, apperrors.ErrNotFound)
	}

	if err := s.ledger.Transfer(ctx, accountID, targetAccountID, amount); err != nil {
		s.finish(ctx, rec, domain.StatusRejected, "transfer refused")
		return rec, err
	}

	s.finish(ctx, rec, domain.StatusCommitted, "")
	return rec, nil
}

func (s *coordinatorService) Inquiry(ctx context.Context, accountID string) (*domain.TransactionRecord, decimal.Decimal, error) {
	rec := newRecord(domain.Inquiry, accountID, decimal.Zero)

	balance, err := s.ledger.Balance(ctx, accountID)
	if err != nil {
		s.finish(ctx, rec, domain.StatusRejected, "balance lookup failed")
		return rec, decimal.Zero, err
	}

	s.finish(ctx, rec, domain.StatusCommitted, "")
	return rec, balance, nil
}

func (s *coordinatorService) RecentTransactions(ctx context.Context, accountID string, count int) ([]domain.TransactionRecord, error) {
	if count < 1 {
		count = s.historyLimit
	}
	if count > s.historyLimit {
		count = s.historyLimit
	}
	return s.txnRepo.ListRecentByAccount(ctx, accountID, count)
}

// Recover resolves every dispense intent left behind by a crash between a
// ledger debit and its dispense confirmation: the transaction is treated as
// incomplete and the compensating credit re-applied. Must run to completion
// before new transactions are admitted.
func (s *coordinatorService) Recover(ctx context.Context) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	intents, err := s.intentRepo.ListIntents(ctx)
	if err != nil {
		return fmt.Errorf("failed to list dispense intents: %w", err)
	}

	var failed []string
	for _, intent := range intents {
		logger.Warn("Recovering unresolved dispense intent",
			slog.String("transaction_id", intent.TransactionID),
			slog.String("account_id", intent.AccountID),
			slog.String("amount", intent.Amount.String()))

		if err := s.ledger.CompensateDebit(ctx, intent.AccountID, intent.Amount); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				// Account vanished; nothing to restore, drop the intent.
				s.clearIntent(ctx, intent.TransactionID)
				continue
			}
			failed = append(failed, intent.TransactionID)
			continue
		}
		s.clearIntent(ctx, intent.TransactionID)

		rec := domain.TransactionRecord{
			TransactionID:   intent.TransactionID,
			Type:            domain.Withdrawal,
			Amount:          intent.Amount,
			SourceAccountID: intent.AccountID,
			Status:          domain.StatusRolledBack,
			Detail:          "recovered after restart; debit compensated",
			CreatedAt:       time.Now().UTC(),
		}
		if err := s.txnRepo.AppendTransaction(ctx, rec); err != nil {
			logger.Error("Failed to append recovery record",
				slog.String("transaction_id", intent.TransactionID),
				slog.String("error", err.Error()))
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("could not compensate %d dispense intent(s): %w", len(failed), apperrors.ErrConsistency)
	}
	return nil
}
