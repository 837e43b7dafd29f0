package services

import (
	"context"

	"github.com/bankbank/atm-core/internal/core/domain"
	"github.com/shopspring/decimal"
)

// DispenserSvcFacade controls the physical cash dispenser of one machine.
// Inventory is local to the machine and protected by local exclusion only.
type DispenserSvcFacade interface {
	// PlanBills computes a denomination plan summing exactly to amount. It
	// fails with apperrors.ErrUnfulfillable when no combination of available
	// bills reaches the amount; it never returns a plan for a different value.
	PlanBills(amount decimal.Decimal) (domain.DenominationPlan, error)

	// Dispense drives the hardware to hand out the planned bills, retrying a
	// mechanical failure up to the configured bound. Inventory is decremented
	// only after the hardware confirms. On exhausted retries the staged bills
	// are moved to the reject bin and apperrors.ErrMechanicalFailure is
	// returned.
	Dispense(ctx context.Context, plan domain.DenominationPlan) error

	// ReturnCash moves the bills of a staged plan to the internal reject bin.
	ReturnCash(plan domain.DenominationPlan)

	// AvailableTotal returns the total value of bills currently loaded.
	AvailableTotal() decimal.Decimal

	// BelowThreshold reports whether available cash is under the configured
	// minimum for opening new sessions.
	BelowThreshold() bool

	// Load adds count bills of the given denomination (operator replenishment).
	Load(denomination int64, count int) error

	// Inventory returns a snapshot of the current cash inventory.
	Inventory() domain.CashInventory
}
