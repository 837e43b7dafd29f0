package services_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/bankbank/atm-core/internal/adapters/hardware"
	"github.com/bankbank/atm-core/internal/apperrors"
	"github.com/bankbank/atm-core/internal/core/domain"
	portssvc "github.com/bankbank/atm-core/internal/core/ports/services"
	"github.com/bankbank/atm-core/internal/core/services"
)

// stallCashUnit holds every dispense until released, so the test can have
// a second dispense arrive while the first is still at the hardware.
type stallCashUnit struct {
	release chan struct{}
}

func (u *stallCashUnit) DispenseBills(ctx context.Context, plan domain.DenominationPlan) error {
	<-u.release
	return nil
}

// --- Test Suite Setup ---

type DispenserServiceTestSuite struct {
	suite.Suite
	unit    *hardware.SimCashUnit
	service portssvc.DispenserSvcFacade
}

func (suite *DispenserServiceTestSuite) SetupTest() {
	suite.unit = hardware.NewSimCashUnit()
	suite.service = services.NewDispenserService(suite.unit, map[int64]int{
		100: 50,
		50:  100,
		20:  200,
		10:  100,
	}, 3, decimal.NewFromInt(1000))
}

// --- Test Cases ---

func (suite *DispenserServiceTestSuite) TestPlanBills_Greedy() {
	plan, err := suite.service.PlanBills(decimal.NewFromInt(380))

	suite.Require().NoError(err)
	suite.True(decimal.NewFromInt(380).Equal(plan.Total()))
	// Largest-first: 3x100, 1x50, 1x20, 1x10.
	suite.Equal(6, plan.BillCount())
}

func (suite *DispenserServiceTestSuite) TestPlanBills_ExactSumFallback() {
	suite.service = services.NewDispenserService(suite.unit, map[int64]int{
		50: 1,
		20: 3,
	}, 3, decimal.NewFromInt(1000))

	// Greedy takes the 50 and strands a remainder of 10; the exact search
	// must find 3x20 instead.
	plan, err := suite.service.PlanBills(decimal.NewFromInt(60))

	suite.Require().NoError(err)
	suite.True(decimal.NewFromInt(60).Equal(plan.Total()))
	suite.Equal(3, plan.BillCount())
}

func (suite *DispenserServiceTestSuite) TestPlanBills_Unfulfillable() {
	suite.service = services.NewDispenserService(suite.unit, map[int64]int{
		50: 1,
		20: 1,
	}, 3, decimal.NewFromInt(1000))

	_, err := suite.service.PlanBills(decimal.NewFromInt(30))
	suite.Require().ErrorIs(err, apperrors.ErrUnfulfillable)
}

func (suite *DispenserServiceTestSuite) TestPlanBills_RejectsNonIntegerAmount() {
	_, err := suite.service.PlanBills(decimal.NewFromFloat(20.50))
	suite.Require().ErrorIs(err, apperrors.ErrValidation)

	_, err = suite.service.PlanBills(decimal.Zero)
	suite.Require().ErrorIs(err, apperrors.ErrValidation)
}

func (suite *DispenserServiceTestSuite) TestDispense_Success() {
	before := suite.service.AvailableTotal()

	plan, err := suite.service.PlanBills(decimal.NewFromInt(200))
	suite.Require().NoError(err)
	suite.Require().NoError(suite.service.Dispense(context.Background(), plan))

	suite.True(before.Sub(decimal.NewFromInt(200)).Equal(suite.service.AvailableTotal()))
	suite.True(decimal.NewFromInt(200).Equal(suite.unit.DispensedTotal()))
}

func (suite *DispenserServiceTestSuite) TestDispense_RetriesTransientFailure() {
	suite.unit.FailNext(2)

	plan, err := suite.service.PlanBills(decimal.NewFromInt(100))
	suite.Require().NoError(err)

	// Two jams, third attempt succeeds within the retry bound.
	suite.Require().NoError(suite.service.Dispense(context.Background(), plan))
	suite.True(decimal.NewFromInt(100).Equal(suite.unit.DispensedTotal()))
}

func (suite *DispenserServiceTestSuite) TestDispense_ExhaustedRetriesReturnsCash() {
	suite.unit.FailNext(3)
	before := suite.service.AvailableTotal()

	plan, err := suite.service.PlanBills(decimal.NewFromInt(380))
	suite.Require().NoError(err)

	err = suite.service.Dispense(context.Background(), plan)

	suite.Require().ErrorIs(err, apperrors.ErrMechanicalFailure)
	// No partial dispense: the cardholder got nothing and dispensable
	// inventory is untouched; the staged bills sit in the reject bin.
	suite.True(decimal.Zero.Equal(suite.unit.DispensedTotal()))
	suite.True(before.Equal(suite.service.AvailableTotal()))
	suite.Equal(plan.BillCount(), suite.service.Inventory().RejectBin)
}

func (suite *DispenserServiceTestSuite) TestDispense_RefusesOverdrawnPlan() {
	plan, err := suite.service.PlanBills(decimal.NewFromInt(100))
	suite.Require().NoError(err)

	suite.Require().NoError(suite.service.Dispense(context.Background(), plan))

	// Replaying a plan built against stale inventory must be caught once the
	// counts no longer cover it.
	for {
		if err := suite.service.Dispense(context.Background(), plan); err != nil {
			suite.Require().ErrorIs(err, apperrors.ErrConsistency)
			return
		}
	}
}

func (suite *DispenserServiceTestSuite) TestDispense_ConcurrentPlansNeverOversellInventory() {
	unit := &stallCashUnit{release: make(chan struct{})}
	service := services.NewDispenserService(unit, map[int64]int{100: 1}, 3, decimal.Zero)

	plan, err := service.PlanBills(decimal.NewFromInt(100))
	suite.Require().NoError(err)

	// Two sessions race for the machine's last 100 bill.
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			errs <- service.Dispense(context.Background(), plan)
		}()
	}
	close(unit.release)

	var successes int
	for i := 0; i < 2; i++ {
		if err := <-errs; err == nil {
			successes++
		} else {
			suite.Require().ErrorIs(err, apperrors.ErrConsistency)
		}
	}

	// The bill leaves the machine at most once and the count never goes
	// negative.
	suite.Equal(1, successes)
	suite.Equal(0, service.Inventory().Counts[100])
}

func (suite *DispenserServiceTestSuite) TestLoadAndThreshold() {
	suite.service = services.NewDispenserService(suite.unit, map[int64]int{100: 5}, 3, decimal.NewFromInt(1000))

	suite.True(suite.service.BelowThreshold())

	suite.Require().NoError(suite.service.Load(100, 10))
	suite.False(suite.service.BelowThreshold())
	suite.True(decimal.NewFromInt(1500).Equal(suite.service.AvailableTotal()))

	suite.Require().ErrorIs(suite.service.Load(0, 10), apperrors.ErrValidation)
	suite.Require().ErrorIs(suite.service.Load(100, -1), apperrors.ErrValidation)
}

// --- Run Suite ---

func TestDispenserServiceTestSuite(t *testing.T) {
	suite.Run(t, new(DispenserServiceTestSuite))
}
