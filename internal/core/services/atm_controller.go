package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bankbank/atm-core/internal/apperrors"
	"github.com/bankbank/atm-core/internal/core/domain"
	portssvc "github.com/bankbank/atm-core/internal/core/ports/services"
	"github.com/bankbank/atm-core/internal/middleware"
)

// ATMController is the facade binding the session state machine and the
// transaction coordinator to the external card, display and log
// collaborators. One instance per physical machine.
type ATMController struct {
	machineID   string
	sessions    portssvc.SessionSvcFacade
	coordinator portssvc.CoordinatorSvcFacade
	dispenser   portssvc.DispenserSvcFacade
	ledger      portssvc.LedgerSvcFacade
	display     portssvc.Display
}

// NewATMController creates the controller facade for one machine.
func NewATMController(
	machineID string,
	sessions portssvc.SessionSvcFacade,
	coordinator portssvc.CoordinatorSvcFacade,
	dispenser portssvc.DispenserSvcFacade,
	ledger portssvc.LedgerSvcFacade,
	display portssvc.Display,
) *ATMController {
	return &ATMController{
		machineID:   machineID,
		sessions:    sessions,
		coordinator: coordinator,
		dispenser:   dispenser,
		ledger:      ledger,
		display:     display,
	}
}

// MachineID returns the identifier of the machine this controller drives.
func (c *ATMController) MachineID() string {
	return c.machineID
}

// InsertCard opens a session. A machine below its minimum cash threshold
// still serves deposits, transfers and inquiries, so the session opens with
// a low-cash notice instead of refusing the card.
func (c *ATMController) InsertCard(ctx context.Context, cardNumber string) (*domain.CardSession, error) {
	sess, err := c.sessions.InsertCard(ctx, cardNumber)
	if err != nil {
		return nil, err
	}
	if c.dispenser.BelowThreshold() {
		c.display.Show(sess.SessionID, "Notice: cash withdrawals may be limited at this machine.")
		middleware.GetLoggerFromCtx(ctx).Warn("Machine below minimum cash threshold",
			slog.String("machine_id", c.machineID),
			slog.String("available", c.dispenser.AvailableTotal().String()))
	}
	return sess, nil
}

// EnterPIN forwards PIN entry to the session state machine.
func (c *ATMController) EnterPIN(ctx context.Context, sessionID, pin string) (*domain.CardSession, error) {
	return c.sessions.EnterPIN(ctx, sessionID, pin)
}

// Withdraw runs one withdrawal under the session, driving the session state
// machine around the coordinator call.
func (c *ATMController) Withdraw(ctx context.Context, sessionID string, amount decimal.Decimal) (*domain.TransactionRecord, error) {
	accountID, err := c.beginFor(ctx, sessionID, domain.MenuWithdrawal)
	if err != nil {
		return nil, err
	}
	rec, txnErr := c.coordinator.Withdraw(ctx, accountID, amount)
	c.finishSession(ctx, sessionID, txnErr == nil)
	return rec, txnErr
}

// Deposit runs one deposit under the session.
func (c *ATMController) Deposit(ctx context.Context, sessionID string, amount decimal.Decimal) (*domain.TransactionRecord, error) {
	accountID, err := c.beginFor(ctx, sessionID, domain.MenuDeposit)
	if err != nil {
		return nil, err
	}
	rec, txnErr := c.coordinator.Deposit(ctx, accountID, amount)
	c.finishSession(ctx, sessionID, txnErr == nil)
	return rec, txnErr
}

// Transfer runs one transfer under the session.
func (c *ATMController) Transfer(ctx context.Context, sessionID, targetAccountID string, amount decimal.Decimal) (*domain.TransactionRecord, error) {
	accountID, err := c.beginFor(ctx, sessionID, domain.MenuTransfer)
	if err != nil {
		return nil, err
	}
	rec, txnErr := c.coordinator.Transfer(ctx, accountID, targetAccountID, amount)
	c.finishSession(ctx, sessionID, txnErr == nil)
	return rec, txnErr
}

// Inquiry reads the balance under the session.
func (c *ATMController) Inquiry(ctx context.Context, sessionID string) (*domain.TransactionRecord, decimal.Decimal, error) {
	accountID, err := c.beginFor(ctx, sessionID, domain.MenuInquiry)
	if err != nil {
		return nil, decimal.Zero, err
	}
	rec, balance, txnErr := c.coordinator.Inquiry(ctx, accountID)
	c.finishSession(ctx, sessionID, txnErr == nil)
	return rec, balance, txnErr
}

// RecentTransactions returns the account's bounded history under the session.
func (c *ATMController) RecentTransactions(ctx context.Context, sessionID string, count int) ([]domain.TransactionRecord, error) {
	sess, err := c.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.AccountID == "" {
		return nil, fmt.Errorf("session not authenticated: %w", apperrors.ErrInvalidState)
	}
	return c.coordinator.RecentTransactions(ctx, sess.AccountID, count)
}

// ChangePIN changes the cardholder's PIN under an authenticated session.
func (c *ATMController) ChangePIN(ctx context.Context, sessionID, oldPIN, newPIN string) error {
	accountID, err := c.beginFor(ctx, sessionID, domain.MenuChangePIN)
	if err != nil {
		return err
	}
	txnErr := c.ledger.ChangePIN(ctx, accountID, oldPIN, newPIN)
	c.finishSession(ctx, sessionID, txnErr == nil)
	return txnErr
}

// Cancel aborts the session.
func (c *ATMController) Cancel(ctx context.Context, sessionID string) (*domain.CardSession, error) {
	return c.sessions.Cancel(ctx, sessionID)
}

// GetSession returns the session snapshot.
func (c *ATMController) GetSession(ctx context.Context, sessionID string) (*domain.CardSession, error) {
	return c.sessions.GetSession(ctx, sessionID)
}

// RunIdleWatchdog expires idle sessions on the given interval until the
// context is cancelled. Started once per machine.
func (c *ATMController) RunIdleWatchdog(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.sessions.ExpireIdle(ctx, now.UTC())
		}
	}
}

// beginFor selects the menu entry and moves the session into
// TransactionInProgress, returning the authenticated account id.
func (c *ATMController) beginFor(ctx context.Context, sessionID string, choice domain.MenuChoice) (string, error) {
	if _, err := c.sessions.SelectMenu(ctx, sessionID, choice); err != nil {
		return "", err
	}
	return c.sessions.BeginTransaction(ctx, sessionID)
}

// finishSession closes out the session after a transaction; the coordinator
// has already driven the transaction itself to a terminal status.
func (c *ATMController) finishSession(ctx context.Context, sessionID string, succeeded bool) {
	if _, err := c.sessions.FinishTransaction(ctx, sessionID, succeeded); err != nil {
		middleware.GetLoggerFromCtx(ctx).Error("Failed to finish session",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()))
	}
}
