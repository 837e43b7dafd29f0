package domain

import "github.com/shopspring/decimal"

// PlanLine is one (bill value, count) pair of a denomination plan.
// Value is in whole currency units; bills have no fractional part.
type PlanLine struct {
	Value int64 `json:"value"`
	Count int   `json:"count"`
}

// DenominationPlan is an ordered (largest bill first) set of plan lines that
// sums exactly to a requested amount. A plan is computed fresh for each
// dispense attempt and discarded after use.
type DenominationPlan struct {
	Lines []PlanLine `json:"lines"`
}

// Total returns the amount the plan sums to.
func (p DenominationPlan) Total() decimal.Decimal {
	var total int64
	for _, l := range p.Lines {
		total += l.Value * int64(l.Count)
	}
	return decimal.NewFromInt(total)
}

// BillCount returns the number of physical bills in the plan.
func (p DenominationPlan) BillCount() int {
	n := 0
	for _, l := range p.Lines {
		n += l.Count
	}
	return n
}

// CashInventory is the per-denomination count of bills available in one
// machine, plus the count of bills moved to the reject bin after failed
// dispense attempts. Counts are decremented only on a confirmed dispense.
type CashInventory struct {
	Counts    map[int64]int `json:"counts"`
	RejectBin int           `json:"rejectBin"`
}

// Total returns the total value of bills available for dispensing.
func (inv CashInventory) Total() decimal.Decimal {
	var total int64
	for value, count := range inv.Counts {
		total += value * int64(count)
	}
	return decimal.NewFromInt(total)
}
