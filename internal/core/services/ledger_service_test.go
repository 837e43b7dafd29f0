package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/bankbank/atm-core/internal/adapters/database/memory"
	"github.com/bankbank/atm-core/internal/apperrors"
	portssvc "github.com/bankbank/atm-core/internal/core/ports/services"
	"github.com/bankbank/atm-core/internal/core/services"
)

// --- Test Suite Setup ---

type LedgerServiceTestSuite struct {
	suite.Suite
	service portssvc.LedgerSvcFacade
}

func (suite *LedgerServiceTestSuite) SetupTest() {
	repo := memory.NewAccountRepository()
	suite.service = services.NewLedgerService(repo, decimal.NewFromInt(500), decimal.NewFromInt(1000))
}

func (suite *LedgerServiceTestSuite) createAccount(accountID string, balance int64) {
	_, err := suite.service.CreateAccount(context.Background(), accountID, "1234", decimal.NewFromInt(balance), "operator-1")
	suite.Require().NoError(err)
}

func (suite *LedgerServiceTestSuite) balance(accountID string) decimal.Decimal {
	balance, err := suite.service.Balance(context.Background(), accountID)
	suite.Require().NoError(err)
	return balance
}

// --- Test Cases ---

func (suite *LedgerServiceTestSuite) TestCreateAccount_Success() {
	acc, err := suite.service.CreateAccount(context.Background(), "acc-1", "4321", decimal.NewFromInt(100), "operator-1")

	suite.Require().NoError(err)
	suite.Require().NotNil(acc)
	suite.Equal("acc-1", acc.AccountID)
	suite.True(acc.Active)
	suite.Equal("operator-1", acc.CreatedBy)
	suite.NotEqual("4321", acc.PINHash)
	suite.True(decimal.NewFromInt(100).Equal(acc.Balance))
}

func (suite *LedgerServiceTestSuite) TestCreateAccount_RejectsBadPIN() {
	_, err := suite.service.CreateAccount(context.Background(), "acc-1", "12", decimal.Zero, "operator-1")
	suite.Require().ErrorIs(err, apperrors.ErrValidation)

	_, err = suite.service.CreateAccount(context.Background(), "acc-1", "12ab", decimal.Zero, "operator-1")
	suite.Require().ErrorIs(err, apperrors.ErrValidation)
}

func (suite *LedgerServiceTestSuite) TestCreateAccount_Duplicate() {
	suite.createAccount("acc-1", 100)

	_, err := suite.service.CreateAccount(context.Background(), "acc-1", "1234", decimal.Zero, "operator-1")
	suite.Require().ErrorIs(err, apperrors.ErrDuplicate)
}

func (suite *LedgerServiceTestSuite) TestDebit_Success() {
	suite.createAccount("acc-1", 1000)

	err := suite.service.Debit(context.Background(), "acc-1", decimal.NewFromInt(200))

	suite.Require().NoError(err)
	suite.True(decimal.NewFromInt(800).Equal(suite.balance("acc-1")))
}

func (suite *LedgerServiceTestSuite) TestDebit_InsufficientFunds() {
	suite.createAccount("acc-1", 100)

	err := suite.service.Debit(context.Background(), "acc-1", decimal.NewFromInt(200))

	suite.Require().ErrorIs(err, apperrors.ErrInsufficientFunds)
	suite.True(decimal.NewFromInt(100).Equal(suite.balance("acc-1")))
}

func (suite *LedgerServiceTestSuite) TestDebit_PerTransactionCap() {
	suite.createAccount("acc-1", 5000)

	err := suite.service.Debit(context.Background(), "acc-1", decimal.NewFromInt(600))

	suite.Require().ErrorIs(err, apperrors.ErrLimitExceeded)
	suite.True(decimal.NewFromInt(5000).Equal(suite.balance("acc-1")))
}

func (suite *LedgerServiceTestSuite) TestDebit_DailyCapAccumulates() {
	suite.createAccount("acc-1", 5000)
	ctx := context.Background()

	suite.Require().NoError(suite.service.Debit(ctx, "acc-1", decimal.NewFromInt(500)))
	suite.Require().NoError(suite.service.Debit(ctx, "acc-1", decimal.NewFromInt(500)))

	// The daily cap of 1000 is exhausted now.
	err := suite.service.Debit(ctx, "acc-1", decimal.NewFromInt(100))
	suite.Require().ErrorIs(err, apperrors.ErrLimitExceeded)

	ok, err := suite.service.WithinDailyLimit(ctx, "acc-1", decimal.NewFromInt(100))
	suite.Require().NoError(err)
	suite.False(ok)
}

func (suite *LedgerServiceTestSuite) TestCompensateDebit_RestoresBalanceAndAllowance() {
	suite.createAccount("acc-1", 2000)
	ctx := context.Background()

	suite.Require().NoError(suite.service.Debit(ctx, "acc-1", decimal.NewFromInt(500)))
	suite.Require().NoError(suite.service.Debit(ctx, "acc-1", decimal.NewFromInt(500)))

	ok, err := suite.service.WithinDailyLimit(ctx, "acc-1", decimal.NewFromInt(100))
	suite.Require().NoError(err)
	suite.False(ok)

	suite.Require().NoError(suite.service.CompensateDebit(ctx, "acc-1", decimal.NewFromInt(500)))

	suite.True(decimal.NewFromInt(1500).Equal(suite.balance("acc-1")))
	ok, err = suite.service.WithinDailyLimit(ctx, "acc-1", decimal.NewFromInt(100))
	suite.Require().NoError(err)
	suite.True(ok)
}

func (suite *LedgerServiceTestSuite) TestConcurrentDebits_ExactlyOneSucceeds() {
	suite.createAccount("acc-1", 100)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- suite.service.Debit(ctx, "acc-1", decimal.NewFromInt(80))
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, failed int
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			suite.ErrorIs(err, apperrors.ErrInsufficientFunds)
			failed++
		}
	}
	suite.Equal(1, succeeded)
	suite.Equal(1, failed)
	suite.True(decimal.NewFromInt(20).Equal(suite.balance("acc-1")))
}

func (suite *LedgerServiceTestSuite) TestConcurrentDebits_Conservation() {
	suite.createAccount("acc-1", 1000)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = suite.service.Debit(ctx, "acc-1", decimal.NewFromInt(50))
		}()
	}
	wg.Wait()

	// All ten fit within balance and daily cap, so every debit must land.
	suite.True(decimal.NewFromInt(500).Equal(suite.balance("acc-1")))
}

func (suite *LedgerServiceTestSuite) TestTransfer_Success() {
	suite.createAccount("acc-1", 300)
	suite.createAccount("acc-2", 50)

	err := suite.service.Transfer(context.Background(), "acc-1", "acc-2", decimal.NewFromInt(120))

	suite.Require().NoError(err)
	suite.True(decimal.NewFromInt(180).Equal(suite.balance("acc-1")))
	suite.True(decimal.NewFromInt(170).Equal(suite.balance("acc-2")))
}

func (suite *LedgerServiceTestSuite) TestTransfer_InsufficientFunds() {
	suite.createAccount("acc-1", 100)
	suite.createAccount("acc-2", 0)

	err := suite.service.Transfer(context.Background(), "acc-1", "acc-2", decimal.NewFromInt(200))

	suite.Require().ErrorIs(err, apperrors.ErrInsufficientFunds)
	suite.True(decimal.NewFromInt(100).Equal(suite.balance("acc-1")))
	suite.True(decimal.Zero.Equal(suite.balance("acc-2")))
}

func (suite *LedgerServiceTestSuite) TestTransfer_SameAccount() {
	suite.createAccount("acc-1", 100)

	err := suite.service.Transfer(context.Background(), "acc-1", "acc-1", decimal.NewFromInt(10))
	suite.Require().ErrorIs(err, apperrors.ErrValidation)
}

func (suite *LedgerServiceTestSuite) TestConcurrentOpposingTransfers_NoDeadlockNoLoss() {
	suite.createAccount("acc-1", 500)
	suite.createAccount("acc-2", 500)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = suite.service.Transfer(ctx, "acc-1", "acc-2", decimal.NewFromInt(10))
		}()
		go func() {
			defer wg.Done()
			_ = suite.service.Transfer(ctx, "acc-2", "acc-1", decimal.NewFromInt(10))
		}()
	}
	wg.Wait()

	total := suite.balance("acc-1").Add(suite.balance("acc-2"))
	suite.True(decimal.NewFromInt(1000).Equal(total), "money is conserved across transfers, got %s", total)
}

func (suite *LedgerServiceTestSuite) TestVerifyPIN() {
	suite.createAccount("acc-1", 100)
	ctx := context.Background()

	suite.Require().NoError(suite.service.VerifyPIN(ctx, "acc-1", "1234"))
	suite.Require().ErrorIs(suite.service.VerifyPIN(ctx, "acc-1", "9999"), apperrors.ErrInvalidPIN)
	suite.Require().ErrorIs(suite.service.VerifyPIN(ctx, "no-such", "1234"), apperrors.ErrNotFound)
}

func (suite *LedgerServiceTestSuite) TestChangePIN() {
	suite.createAccount("acc-1", 100)
	ctx := context.Background()

	suite.Require().ErrorIs(suite.service.ChangePIN(ctx, "acc-1", "1234", "12"), apperrors.ErrValidation)
	suite.Require().ErrorIs(suite.service.ChangePIN(ctx, "acc-1", "0000", "5678"), apperrors.ErrInvalidPIN)

	suite.Require().NoError(suite.service.ChangePIN(ctx, "acc-1", "1234", "5678"))
	suite.Require().NoError(suite.service.VerifyPIN(ctx, "acc-1", "5678"))
	suite.Require().ErrorIs(suite.service.VerifyPIN(ctx, "acc-1", "1234"), apperrors.ErrInvalidPIN)
}

func (suite *LedgerServiceTestSuite) TestAccountExists() {
	suite.createAccount("acc-1", 100)
	ctx := context.Background()

	exists, err := suite.service.AccountExists(ctx, "acc-1")
	suite.Require().NoError(err)
	suite.True(exists)

	exists, err = suite.service.AccountExists(ctx, "no-such")
	suite.Require().NoError(err)
	suite.False(exists)
}

// --- Run Suite ---

func TestLedgerServiceTestSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceTestSuite))
}
