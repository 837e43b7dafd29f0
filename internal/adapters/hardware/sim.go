// Package hardware provides simulated drivers for the physical collaborators
// of a machine: card reader, display, cash unit and deposit slot. The real
// drivers live outside this module; these implementations satisfy the same
// ports and are used by the standalone binary and the tests.
package hardware

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/bankbank/atm-core/internal/core/domain"
	portssvc "github.com/bankbank/atm-core/internal/core/ports/services"
)

// SimCardReader records eject/retain calls per session.
type SimCardReader struct {
	mu       sync.Mutex
	ejected  map[string]bool
	retained map[string]bool
}

// NewSimCardReader creates a simulated card reader.
func NewSimCardReader() *SimCardReader {
	return &SimCardReader{
		ejected:  make(map[string]bool),
		retained: make(map[string]bool),
	}
}

var _ portssvc.CardReader = (*SimCardReader)(nil)

func (r *SimCardReader) EjectCard(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ejected[sessionID] = true
}

func (r *SimCardReader) RetainCard(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retained[sessionID] = true
}

// Ejected reports whether the card of a session was ejected.
func (r *SimCardReader) Ejected(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ejected[sessionID]
}

// Retained reports whether the card of a session was retained.
func (r *SimCardReader) Retained(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retained[sessionID]
}

// SimDisplay logs display messages; Show never blocks.
type SimDisplay struct {
	Logger *slog.Logger
}

var _ portssvc.Display = (*SimDisplay)(nil)

func (d *SimDisplay) Show(sessionID string, message string) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Display", slog.String("session_id", sessionID), slog.String("message", message))
}

// SimCashUnit confirms every dispense unless FailNext is armed, which makes
// the next n attempts report a jam.
type SimCashUnit struct {
	mu        sync.Mutex
	failLeft  int
	dispensed []domain.DenominationPlan
}

// NewSimCashUnit creates a simulated cash unit.
func NewSimCashUnit() *SimCashUnit {
	return &SimCashUnit{}
}

var _ portssvc.CashUnit = (*SimCashUnit)(nil)

// ErrJam is the simulated mechanical failure.
var ErrJam = errors.New("bill transport jam")

// FailNext arms the unit to fail the next n dispense attempts.
func (u *SimCashUnit) FailNext(n int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.failLeft = n
}

func (u *SimCashUnit) DispenseBills(ctx context.Context, plan domain.DenominationPlan) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.failLeft > 0 {
		u.failLeft--
		return ErrJam
	}
	u.dispensed = append(u.dispensed, plan)
	return nil
}

// DispensedTotal returns the total value handed out so far.
func (u *SimCashUnit) DispensedTotal() decimal.Decimal {
	u.mu.Lock()
	defer u.mu.Unlock()
	total := decimal.Zero
	for _, plan := range u.dispensed {
		total = total.Add(plan.Total())
	}
	return total
}

// SimDepositSlot accepts every deposit unless RejectNext is armed.
type SimDepositSlot struct {
	mu         sync.Mutex
	rejectLeft int
}

// NewSimDepositSlot creates a simulated deposit slot.
func NewSimDepositSlot() *SimDepositSlot {
	return &SimDepositSlot{}
}

var _ portssvc.DepositSlot = (*SimDepositSlot)(nil)

// ErrUnreadable is the simulated currency-validation failure.
var ErrUnreadable = errors.New("currency could not be validated")

// RejectNext arms the slot to reject the next n deposits.
func (s *SimDepositSlot) RejectNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectLeft = n
}

func (s *SimDepositSlot) Accept(ctx context.Context, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rejectLeft > 0 {
		s.rejectLeft--
		return ErrUnreadable
	}
	return nil
}
