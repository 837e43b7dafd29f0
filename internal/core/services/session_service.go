package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bankbank/atm-core/internal/apperrors"
	"github.com/bankbank/atm-core/internal/core/domain"
	portssvc "github.com/bankbank/atm-core/internal/core/ports/services"
	"github.com/bankbank/atm-core/internal/middleware"
)

// sessionService owns the card-session lifecycle. Sessions live in memory on
// the machine that created them; terminal sessions are kept until the card
// reader reports the slot free (modeled by EndSession via Cancel/eviction)
// so callers can still observe CardEjected/CardRetained.
type sessionService struct {
	ledger           portssvc.LedgerAuthSvc
	cardReader       portssvc.CardReader
	display          portssvc.Display
	idleTimeout      time.Duration
	lockoutThreshold int

	mu       sync.Mutex
	sessions map[string]*domain.CardSession
}

// NewSessionService creates the session state machine for one machine.
func NewSessionService(ledger portssvc.LedgerAuthSvc, cardReader portssvc.CardReader, display portssvc.Display, idleTimeout time.Duration, lockoutThreshold int) portssvc.SessionSvcFacade {
	if lockoutThreshold < 1 {
		lockoutThreshold = 3
	}
	return &sessionService{
		ledger:           ledger,
		cardReader:       cardReader,
		display:          display,
		idleTimeout:      idleTimeout,
		lockoutThreshold: lockoutThreshold,
		sessions:         make(map[string]*domain.CardSession),
	}
}

// Ensure sessionService implements the SessionSvcFacade interface.
var _ portssvc.SessionSvcFacade = (*sessionService)(nil)

func (s *sessionService) InsertCard(ctx context.Context, cardNumber string) (*domain.CardSession, error) {
	if cardNumber == "" {
		return nil, fmt.Errorf("card number is required: %w", apperrors.ErrValidation)
	}

	now := time.Now().UTC()
	sess := &domain.CardSession{
		SessionID:    uuid.NewString(),
		CardNumber:   cardNumber,
		State:        domain.StateCardInserted,
		LastActivity: now,
		Deadline:     now.Add(s.idleTimeout),
		CreatedAt:    now,
	}

	s.mu.Lock()
	s.sessions[sess.SessionID] = sess
	s.mu.Unlock()

	s.display.Show(sess.SessionID, "Please enter your PIN")
	middleware.GetLoggerFromCtx(ctx).Info("Card inserted",
		slog.String("session_id", sess.SessionID),
		slog.String("card_number", cardNumber))

	snapshot := *sess
	return &snapshot, nil
}

func (s *sessionService) EnterPIN(ctx context.Context, sessionID string, pin string) (*domain.CardSession, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.liveSession(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.State != domain.StateCardInserted && sess.State != domain.StateAuthenticating {
		return nil, fmt.Errorf("state %s: %w", sess.State, apperrors.ErrInvalidState)
	}
	sess.State = domain.StateAuthenticating
	s.touch(sess)

	if err := s.ledger.VerifyPIN(ctx, sess.CardNumber, pin); err != nil {
		sess.FailedPINCount++
		logger.Warn("PIN verification failed",
			slog.String("session_id", sessionID),
			slog.Int("failed_attempts", sess.FailedPINCount))

		if sess.FailedPINCount >= s.lockoutThreshold {
			// Third consecutive failure: the card is never returned.
			sess.State = domain.StateCardRetaining
			sess.CardRetained = true
			s.cardReader.RetainCard(sessionID)
			s.display.Show(sessionID, "Your card has been retained. Please contact your bank.")
			snapshot := *sess
			return &snapshot, apperrors.ErrCardRetained
		}

		s.display.Show(sessionID, "Incorrect PIN. Please try again.")
		snapshot := *sess
		return &snapshot, apperrors.ErrInvalidPIN
	}

	sess.AccountID = sess.CardNumber
	sess.FailedPINCount = 0
	sess.State = domain.StateAuthenticated
	s.display.Show(sessionID, "PIN accepted. Please select a transaction.")
	logger.Info("Cardholder authenticated", slog.String("session_id", sessionID))

	snapshot := *sess
	return &snapshot, nil
}

func (s *sessionService) SelectMenu(ctx context.Context, sessionID string, choice domain.MenuChoice) (*domain.CardSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.liveSession(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.State != domain.StateAuthenticated && sess.State != domain.StateMenuActive {
		return nil, fmt.Errorf("state %s: %w", sess.State, apperrors.ErrInvalidState)
	}

	switch choice {
	case domain.MenuWithdrawal, domain.MenuDeposit, domain.MenuTransfer, domain.MenuInquiry, domain.MenuChangePIN:
	default:
		return nil, fmt.Errorf("unknown menu choice %q: %w", choice, apperrors.ErrValidation)
	}

	sess.MenuSelection = choice
	sess.State = domain.StateMenuActive
	s.touch(sess)

	snapshot := *sess
	return &snapshot, nil
}

func (s *sessionService) BeginTransaction(ctx context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.liveSession(sessionID)
	if err != nil {
		return "", err
	}
	if sess.State != domain.StateMenuActive {
		return "", fmt.Errorf("state %s: %w", sess.State, apperrors.ErrInvalidState)
	}
	if sess.AccountID == "" {
		return "", fmt.Errorf("session not authenticated: %w", apperrors.ErrConsistency)
	}

	sess.State = domain.StateTransactionInProgress
	s.touch(sess)
	return sess.AccountID, nil
}

func (s *sessionService) FinishTransaction(ctx context.Context, sessionID string, succeeded bool) (*domain.CardSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.liveSession(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.State != domain.StateTransactionInProgress {
		return nil, fmt.Errorf("state %s: %w", sess.State, apperrors.ErrInvalidState)
	}

	if succeeded {
		sess.State = domain.StateCompleted
		s.display.Show(sessionID, "Transaction complete. Please take your card.")
	} else {
		sess.State = domain.StateRejected
		s.display.Show(sessionID, "Transaction could not be completed. Please take your card.")
	}

	s.eject(sess)
	snapshot := *sess
	return &snapshot, nil
}

func (s *sessionService) Cancel(ctx context.Context, sessionID string) (*domain.CardSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.liveSession(sessionID)
	if err != nil {
		return nil, err
	}
	// Cancellation after the ledger has been touched is not permitted; the
	// coordinator always drives an in-progress transaction to a terminal
	// status before the session regains control.
	if sess.State == domain.StateTransactionInProgress {
		return nil, fmt.Errorf("transaction in progress: %w", apperrors.ErrInvalidState)
	}

	s.display.Show(sessionID, "Session cancelled. Please take your card.")
	s.eject(sess)
	snapshot := *sess
	return &snapshot, nil
}

func (s *sessionService) GetSession(ctx context.Context, sessionID string) (*domain.CardSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, apperrors.ErrNotFound)
	}
	snapshot := *sess
	return &snapshot, nil
}

func (s *sessionService) ExpireIdle(ctx context.Context, now time.Time) []string {
	logger := middleware.GetLoggerFromCtx(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []string
	for id, sess := range s.sessions {
		if !sess.State.IsWaiting() || now.Before(sess.Deadline) {
			continue
		}
		// A timeout is not a security violation: the card is ejected, never
		// retained.
		logger.Info("Session idle timeout",
			slog.String("session_id", id),
			slog.String("state", string(sess.State)))
		s.display.Show(id, "Session timed out. Please take your card.")
		s.eject(sess)
		expired = append(expired, id)
	}
	return expired
}

// liveSession returns a non-terminal, non-expired session or the matching
// domain error. Caller must hold s.mu.
func (s *sessionService) liveSession(sessionID string) (*domain.CardSession, error) {
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, apperrors.ErrNotFound)
	}
	if sess.CardRetained {
		return nil, apperrors.ErrCardRetained
	}
	if sess.State.IsTerminal() {
		return nil, apperrors.ErrSessionExpired
	}
	return sess, nil
}

// touch resets the idle deadline after cardholder activity. Caller must hold s.mu.
func (s *sessionService) touch(sess *domain.CardSession) {
	now := time.Now().UTC()
	sess.LastActivity = now
	sess.Deadline = now.Add(s.idleTimeout)
}

// eject moves a session to CardReturning and returns the card exactly once.
// Caller must hold s.mu.
func (s *sessionService) eject(sess *domain.CardSession) {
	if sess.CardEjected || sess.CardRetained {
		return
	}
	sess.State = domain.StateCardReturning
	sess.CardEjected = true
	s.cardReader.EjectCard(sess.SessionID)
}
