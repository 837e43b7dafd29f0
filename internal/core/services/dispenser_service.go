package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/bankbank/atm-core/internal/apperrors"
	"github.com/bankbank/atm-core/internal/core/domain"
	portssvc "github.com/bankbank/atm-core/internal/core/ports/services"
	"github.com/bankbank/atm-core/internal/middleware"
)

// dispenserService plans and drives physical cash dispensing for one
// machine. The inventory is machine-local state and only needs local
// exclusion. Counts are never decremented speculatively: a plan consumes
// inventory only once the cash unit confirms the dispense.
type dispenserService struct {
	unit         portssvc.CashUnit
	maxRetries   int
	minThreshold decimal.Decimal

	// dispenseMu serializes Dispense end to end. The machine has one
	// physical transport; without this, two plans could both clear the
	// inventory check against the same bills.
	dispenseMu sync.Mutex

	mu        sync.Mutex
	inventory map[int64]int
	rejectBin int
}

// NewDispenserService creates a dispenser controller over the given cash
// unit, seeded with the initial per-denomination bill counts.
func NewDispenserService(unit portssvc.CashUnit, initial map[int64]int, maxRetries int, minThreshold decimal.Decimal) portssvc.DispenserSvcFacade {
	inv := make(map[int64]int, len(initial))
	for value, count := range initial {
		inv[value] = count
	}
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &dispenserService{
		unit:         unit,
		maxRetries:   maxRetries,
		minThreshold: minThreshold,
		inventory:    inv,
	}
}

// Ensure dispenserService implements the DispenserSvcFacade interface.
var _ portssvc.DispenserSvcFacade = (*dispenserService)(nil)

func (s *dispenserService) PlanBills(amount decimal.Decimal) (domain.DenominationPlan, error) {
	if amount.LessThanOrEqual(decimal.Zero) || !amount.IsInteger() {
		return domain.DenominationPlan{}, fmt.Errorf("amount %s is not dispensable: %w", amount.String(), apperrors.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target := amount.IntPart()
	values := s.sortedDenominations()

	if plan, ok := greedyPlan(target, values, s.inventory); ok {
		return plan, nil
	}
	// Greedy missed the exact amount; fall back to an exact-sum search over
	// the remaining denominations.
	if plan, ok := exactPlan(target, values, s.inventory); ok {
		return plan, nil
	}
	return domain.DenominationPlan{}, fmt.Errorf("amount %s: %w", amount.String(), apperrors.ErrUnfulfillable)
}

// sortedDenominations returns the loaded bill values, largest first.
// Caller must hold s.mu.
func (s *dispenserService) sortedDenominations() []int64 {
	values := make([]int64, 0, len(s.inventory))
	for value := range s.inventory {
		values = append(values, value)
	}
	sort.Slice(values, func(i, j int) bool { return values[i] > values[j] })
	return values
}

// greedyPlan takes as many of each denomination as possible, largest first.
func greedyPlan(target int64, values []int64, inventory map[int64]int) (domain.DenominationPlan, bool) {
	var plan domain.DenominationPlan
	remaining := target
	for _, value := range values {
		if remaining <= 0 {
			break
		}
		count := int(remaining / value)
		if avail := inventory[value]; count > avail {
			count = avail
		}
		if count > 0 {
			plan.Lines = append(plan.Lines, domain.PlanLine{Value: value, Count: count})
			remaining -= value * int64(count)
		}
	}
	if remaining != 0 {
		return domain.DenominationPlan{}, false
	}
	return plan, true
}

// exactPlan searches for any inventory-feasible combination summing exactly
// to target. Bounded-count coin change over the loaded denominations; the
// target is capped by the per-transaction limit so the table stays small.
func exactPlan(target int64, values []int64, inventory map[int64]int) (domain.DenominationPlan, bool) {
	type choice struct {
		value int64
		count int
		prev  int64
	}
	reachable := map[int64]choice{0: {}}
	sums := []int64{0}

	for _, value := range values {
		avail := inventory[value]
		if avail == 0 {
			continue
		}
		for _, sum := range append([]int64(nil), sums...) {
			for n := 1; n <= avail; n++ {
				next := sum + value*int64(n)
				if next > target {
					break
				}
				if _, ok := reachable[next]; ok {
					continue
				}
				reachable[next] = choice{value: value, count: n, prev: sum}
				sums = append(sums, next)
			}
		}
		if _, ok := reachable[target]; ok {
			break
		}
	}

	c, ok := reachable[target]
	if !ok || target == 0 {
		return domain.DenominationPlan{}, false
	}

	var plan domain.DenominationPlan
	for at := target; at != 0; {
		c = reachable[at]
		plan.Lines = append(plan.Lines, domain.PlanLine{Value: c.value, Count: c.count})
		at = c.prev
	}
	sort.Slice(plan.Lines, func(i, j int) bool { return plan.Lines[i].Value > plan.Lines[j].Value })
	return plan, true
}

func (s *dispenserService) Dispense(ctx context.Context, plan domain.DenominationPlan) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	s.dispenseMu.Lock()
	defer s.dispenseMu.Unlock()

	if err := s.reserveCheck(plan); err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		lastErr = s.unit.DispenseBills(ctx, plan)
		if lastErr == nil {
			s.consume(plan)
			logger.Info("Cash dispensed",
				slog.String("amount", plan.Total().String()),
				slog.Int("bills", plan.BillCount()),
				slog.Int("attempt", attempt))
			return nil
		}
		logger.Warn("Dispense attempt failed",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", s.maxRetries),
			slog.String("error", lastErr.Error()))
	}

	// Never hand partially valid cash to the cardholder: staged bills go to
	// the reject bin and the inventory stays untouched.
	s.ReturnCash(plan)
	return fmt.Errorf("dispense failed after %d attempts (%v): %w", s.maxRetries, lastErr, apperrors.ErrMechanicalFailure)
}

// reserveCheck verifies the plan is still coverable by current inventory.
// A plan that no longer fits means a double dispense was attempted.
func (s *dispenserService) reserveCheck(plan domain.DenominationPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, line := range plan.Lines {
		if s.inventory[line.Value] < line.Count {
			return fmt.Errorf("plan needs %dx%d but inventory has %d: %w",
				line.Count, line.Value, s.inventory[line.Value], apperrors.ErrConsistency)
		}
	}
	return nil
}

// consume decrements inventory for a confirmed dispense.
func (s *dispenserService) consume(plan domain.DenominationPlan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, line := range plan.Lines {
		s.inventory[line.Value] -= line.Count
	}
}

func (s *dispenserService) ReturnCash(plan domain.DenominationPlan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectBin += plan.BillCount()
}

func (s *dispenserService) AvailableTotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for value, count := range s.inventory {
		total += value * int64(count)
	}
	return decimal.NewFromInt(total)
}

func (s *dispenserService) BelowThreshold() bool {
	return s.AvailableTotal().LessThan(s.minThreshold)
}

func (s *dispenserService) Load(denomination int64, count int) error {
	if denomination <= 0 || count <= 0 {
		return fmt.Errorf("denomination and count must be positive: %w", apperrors.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inventory[denomination] += count
	return nil
}

func (s *dispenserService) Inventory() domain.CashInventory {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[int64]int, len(s.inventory))
	for value, count := range s.inventory {
		counts[value] = count
	}
	return domain.CashInventory{Counts: counts, RejectBin: s.rejectBin}
}
