package domain

import "time"

// SessionState is the state of a cardholder session at the machine.
type SessionState string

const (
	StateIdle                  SessionState = "IDLE"
	StateCardInserted          SessionState = "CARD_INSERTED"
	StateAuthenticating        SessionState = "AUTHENTICATING"
	StateAuthenticated         SessionState = "AUTHENTICATED"
	StateMenuActive            SessionState = "MENU_ACTIVE"
	StateTransactionInProgress SessionState = "TRANSACTION_IN_PROGRESS"
	StateCompleted             SessionState = "COMPLETED"
	StateRejected              SessionState = "REJECTED"
	StateCardReturning         SessionState = "CARD_RETURNING"
	StateCardRetaining         SessionState = "CARD_RETAINING"
)

// IsWaiting reports whether the state waits on cardholder input and is
// therefore subject to the idle timeout.
func (s SessionState) IsWaiting() bool {
	switch s {
	case StateCardInserted, StateAuthenticating, StateAuthenticated, StateMenuActive:
		return true
	}
	return false
}

// IsTerminal reports whether the session has reached a state where the card
// has been returned or retained and no further input is accepted.
func (s SessionState) IsTerminal() bool {
	return s == StateCardReturning || s == StateCardRetaining
}

// MenuChoice is a cardholder menu selection.
type MenuChoice string

const (
	MenuWithdrawal MenuChoice = "WITHDRAWAL"
	MenuDeposit    MenuChoice = "DEPOSIT"
	MenuTransfer   MenuChoice = "TRANSFER"
	MenuInquiry    MenuChoice = "INQUIRY"
	MenuChangePIN  MenuChoice = "CHANGE_PIN"
)

// CardSession tracks one cardholder interaction from card insertion through
// card return or retention. AccountID stays empty until the PIN is verified.
type CardSession struct {
	SessionID      string       `json:"sessionID"`
	CardNumber     string       `json:"cardNumber"`
	AccountID      string       `json:"accountID,omitempty"`
	State          SessionState `json:"state"`
	MenuSelection  MenuChoice   `json:"menuSelection,omitempty"`
	FailedPINCount int          `json:"failedPINCount"`
	LastActivity   time.Time    `json:"lastActivity"`
	Deadline       time.Time    `json:"deadline"` // Idle expiry for waiting states
	CardEjected    bool         `json:"cardEjected"`
	CardRetained   bool         `json:"cardRetained"`
	CreatedAt      time.Time    `json:"createdAt"`
}
