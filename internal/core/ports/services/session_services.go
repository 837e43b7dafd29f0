package services

import (
	"context"
	"time"

	"github.com/bankbank/atm-core/internal/core/domain"
)

// SessionSvcFacade drives cardholder sessions through the state machine
// Idle -> CardInserted -> Authenticating -> Authenticated -> MenuActive ->
// TransactionInProgress -> Completed|Rejected -> CardReturning|CardRetaining.
// Every waiting state carries an idle deadline; expiry ejects the card.
type SessionSvcFacade interface {
	// InsertCard opens a new session for a card.
	InsertCard(ctx context.Context, cardNumber string) (*domain.CardSession, error)

	// EnterPIN verifies the PIN. A failure increments the per-session counter;
	// reaching the lockout threshold retains the card and returns
	// apperrors.ErrCardRetained.
	EnterPIN(ctx context.Context, sessionID string, pin string) (*domain.CardSession, error)

	// SelectMenu records the cardholder's menu choice.
	SelectMenu(ctx context.Context, sessionID string, choice domain.MenuChoice) (*domain.CardSession, error)

	// BeginTransaction moves the session to TransactionInProgress and returns
	// the authenticated account id.
	BeginTransaction(ctx context.Context, sessionID string) (string, error)

	// FinishTransaction records the transaction outcome and returns the card.
	FinishTransaction(ctx context.Context, sessionID string, succeeded bool) (*domain.CardSession, error)

	// Cancel aborts the session and ejects the card. Not permitted while a
	// transaction is in progress.
	Cancel(ctx context.Context, sessionID string) (*domain.CardSession, error)

	// GetSession returns the current session snapshot.
	GetSession(ctx context.Context, sessionID string) (*domain.CardSession, error)

	// ExpireIdle force-ejects every waiting session whose deadline has passed
	// and returns the ids of the expired sessions.
	ExpireIdle(ctx context.Context, now time.Time) []string
}
