package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/bankbank/atm-core/internal/adapters/database/memory"
	"github.com/bankbank/atm-core/internal/adapters/hardware"
	"github.com/bankbank/atm-core/internal/core/domain"
	portsrepo "github.com/bankbank/atm-core/internal/core/ports/repositories"
	portssvc "github.com/bankbank/atm-core/internal/core/ports/services"
	"github.com/bankbank/atm-core/internal/core/services"
	"github.com/bankbank/atm-core/internal/dto"
	"github.com/bankbank/atm-core/internal/handlers"
	"github.com/bankbank/atm-core/pkg/config"
)

// --- Test Suite Setup ---

type SessionHandlerTestSuite struct {
	suite.Suite
	router *gin.Engine
	cfg    *config.Config
	svcs   *portssvc.ServiceContainer
	unit   *hardware.SimCashUnit
}

func (suite *SessionHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	suite.cfg = &config.Config{
		Port:                 "8080",
		MachineID:            "ATM-TEST",
		JWTSecret:            "test-secret",
		JWTExpiryDuration:    time.Hour,
		JWTIssuer:            "atm-core-test",
		OperatorSecret:       "op-secret",
		DailyWithdrawalCap:   decimal.NewFromInt(1000),
		PerTransactionCap:    decimal.NewFromInt(500),
		MinimumCashThreshold: decimal.NewFromInt(1000),
		IdleTimeout:          time.Minute,
		MaxDispenseRetries:   3,
		PinLockoutThreshold:  3,
		GatewayTimeout:       time.Second,
		HistoryLimit:         20,
		InitialCash:          map[int64]int{100: 50, 50: 100, 20: 200, 10: 100},
	}

	repos := portsrepo.RepositoryProvider{
		AccountRepo:     memory.NewAccountRepository(),
		TransactionRepo: memory.NewTransactionRepository(suite.cfg.HistoryLimit),
		IntentRepo:      memory.NewIntentRepository(),
	}
	suite.unit = hardware.NewSimCashUnit()
	hw := services.Hardware{
		CardReader:  hardware.NewSimCardReader(),
		Display:     &hardware.SimDisplay{},
		CashUnit:    suite.unit,
		DepositSlot: hardware.NewSimDepositSlot(),
	}

	suite.svcs = services.NewServiceContainer(suite.cfg, repos, hw, services.ApproveAll)
	controller := services.NewATMController(suite.cfg.MachineID, suite.svcs.Sessions, suite.svcs.Coordinator, suite.svcs.Dispenser, suite.svcs.Ledger, hw.Display)

	_, err := suite.svcs.Ledger.CreateAccount(context.Background(), "4111-2222", "1234", decimal.NewFromInt(1000), "operator-1")
	suite.Require().NoError(err)

	suite.router = gin.New()
	handlers.RegisterRoutes(suite.router, suite.cfg, suite.svcs, controller)
}

func (suite *SessionHandlerTestSuite) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		suite.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *SessionHandlerTestSuite) decode(w *httptest.ResponseRecorder, out any) {
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), out))
}

func (suite *SessionHandlerTestSuite) openSession() string {
	w := suite.do(http.MethodPost, "/api/v1/sessions", dto.InsertCardRequest{CardNumber: "4111-2222"}, nil)
	suite.Require().Equal(http.StatusCreated, w.Code)

	var resp dto.SessionResponse
	suite.decode(w, &resp)
	suite.Require().Equal(domain.StateCardInserted, resp.State)
	return resp.SessionID
}

func (suite *SessionHandlerTestSuite) authenticatedSession() string {
	id := suite.openSession()
	w := suite.do(http.MethodPost, "/api/v1/sessions/"+id+"/pin", dto.EnterPINRequest{PIN: "1234"}, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	return id
}

func (suite *SessionHandlerTestSuite) operatorToken() string {
	w := suite.do(http.MethodPost, "/api/v1/auth/login", dto.LoginRequest{OperatorID: "op-1", Secret: "op-secret"}, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var resp dto.LoginResponse
	suite.decode(w, &resp)
	suite.Require().NotEmpty(resp.Token)
	return resp.Token
}

// --- Health ---

func (suite *SessionHandlerTestSuite) TestHealth() {
	w := suite.do(http.MethodGet, "/health", nil, nil)
	suite.Equal(http.StatusOK, w.Code)
}

// --- Session API ---

func (suite *SessionHandlerTestSuite) TestInsertCard_MissingNumber() {
	w := suite.do(http.MethodPost, "/api/v1/sessions", gin.H{}, nil)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *SessionHandlerTestSuite) TestEnterPIN_WrongPIN() {
	id := suite.openSession()

	w := suite.do(http.MethodPost, "/api/v1/sessions/"+id+"/pin", dto.EnterPINRequest{PIN: "0000"}, nil)

	suite.Equal(http.StatusForbidden, w.Code)
	var resp struct {
		Error   string              `json:"error"`
		Session dto.SessionResponse `json:"session"`
	}
	suite.decode(w, &resp)
	suite.Equal(1, resp.Session.FailedPINCount)
	suite.False(resp.Session.CardRetained)
}

func (suite *SessionHandlerTestSuite) TestEnterPIN_LockoutRetainsCard() {
	id := suite.openSession()

	for _, pin := range []string{"0000", "0001"} {
		w := suite.do(http.MethodPost, "/api/v1/sessions/"+id+"/pin", dto.EnterPINRequest{PIN: pin}, nil)
		suite.Require().Equal(http.StatusForbidden, w.Code)
	}

	w := suite.do(http.MethodPost, "/api/v1/sessions/"+id+"/pin", dto.EnterPINRequest{PIN: "0002"}, nil)
	suite.Require().Equal(http.StatusForbidden, w.Code)

	var resp struct {
		Session dto.SessionResponse `json:"session"`
	}
	suite.decode(w, &resp)
	suite.True(resp.Session.CardRetained)
	suite.Equal(domain.StateCardRetaining, resp.Session.State)
}

func (suite *SessionHandlerTestSuite) TestWithdrawal_Committed() {
	id := suite.authenticatedSession()

	w := suite.do(http.MethodPost, "/api/v1/sessions/"+id+"/withdrawal", dto.AmountRequest{Amount: decimal.NewFromInt(200)}, nil)

	suite.Require().Equal(http.StatusOK, w.Code)
	var resp dto.TransactionResponse
	suite.decode(w, &resp)
	suite.Equal(domain.StatusCommitted, resp.Status)
	suite.True(decimal.NewFromInt(200).Equal(resp.Amount))
	suite.True(decimal.NewFromInt(200).Equal(suite.unit.DispensedTotal()))

	// The session ends with the transaction and returns the card.
	sw := suite.do(http.MethodGet, "/api/v1/sessions/"+id, nil, nil)
	suite.Require().Equal(http.StatusOK, sw.Code)
	var sess dto.SessionResponse
	suite.decode(sw, &sess)
	suite.Equal(domain.StateCardReturning, sess.State)
	suite.True(sess.CardEjected)
}

func (suite *SessionHandlerTestSuite) TestWithdrawal_OverPerTransactionCap() {
	id := suite.authenticatedSession()

	w := suite.do(http.MethodPost, "/api/v1/sessions/"+id+"/withdrawal", dto.AmountRequest{Amount: decimal.NewFromInt(600)}, nil)

	suite.Require().Equal(http.StatusUnprocessableEntity, w.Code)
	var resp struct {
		Error       string                  `json:"error"`
		Transaction dto.TransactionResponse `json:"transaction"`
	}
	suite.decode(w, &resp)
	suite.Equal(domain.StatusRejected, resp.Transaction.Status)
}

func (suite *SessionHandlerTestSuite) TestWithdrawal_RequiresAuthentication() {
	id := suite.openSession()

	w := suite.do(http.MethodPost, "/api/v1/sessions/"+id+"/withdrawal", dto.AmountRequest{Amount: decimal.NewFromInt(100)}, nil)
	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *SessionHandlerTestSuite) TestDeposit_Committed() {
	id := suite.authenticatedSession()

	w := suite.do(http.MethodPost, "/api/v1/sessions/"+id+"/deposit", dto.AmountRequest{Amount: decimal.NewFromInt(300)}, nil)

	suite.Require().Equal(http.StatusOK, w.Code)
	var resp dto.TransactionResponse
	suite.decode(w, &resp)
	suite.Equal(domain.StatusCommitted, resp.Status)
}

func (suite *SessionHandlerTestSuite) TestInquiry() {
	id := suite.authenticatedSession()

	w := suite.do(http.MethodGet, "/api/v1/sessions/"+id+"/balance", nil, nil)

	suite.Require().Equal(http.StatusOK, w.Code)
	var resp struct {
		Balance dto.BalanceResponse `json:"balance"`
	}
	suite.decode(w, &resp)
	suite.Equal("4111-2222", resp.Balance.AccountID)
	suite.True(decimal.NewFromInt(1000).Equal(resp.Balance.Balance))
}

func (suite *SessionHandlerTestSuite) TestCancel() {
	id := suite.authenticatedSession()

	w := suite.do(http.MethodDelete, "/api/v1/sessions/"+id, nil, nil)

	suite.Require().Equal(http.StatusOK, w.Code)
	var resp dto.SessionResponse
	suite.decode(w, &resp)
	suite.True(resp.CardEjected)
}

func (suite *SessionHandlerTestSuite) TestGetSession_NotFound() {
	w := suite.do(http.MethodGet, "/api/v1/sessions/no-such", nil, nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

// --- Operator API ---

func (suite *SessionHandlerTestSuite) TestOperatorLogin_WrongSecret() {
	w := suite.do(http.MethodPost, "/api/v1/auth/login", dto.LoginRequest{OperatorID: "op-1", Secret: "nope"}, nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *SessionHandlerTestSuite) TestOperatorAPI_RequiresToken() {
	w := suite.do(http.MethodGet, "/api/v1/operator/cash", nil, nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *SessionHandlerTestSuite) TestOperatorCreateAccountAndInventory() {
	token := suite.operatorToken()
	auth := map[string]string{"Authorization": "Bearer " + token}

	w := suite.do(http.MethodPost, "/api/v1/operator/accounts", dto.CreateAccountRequest{
		AccountID:      "acc-new",
		PIN:            "9876",
		OpeningBalance: decimal.NewFromInt(250),
	}, auth)
	suite.Require().Equal(http.StatusCreated, w.Code)

	var acc dto.AccountResponse
	suite.decode(w, &acc)
	suite.Equal("acc-new", acc.AccountID)
	suite.Equal("op-1", acc.CreatedBy)
	suite.True(decimal.NewFromInt(250).Equal(acc.Balance))

	w = suite.do(http.MethodGet, "/api/v1/operator/cash", nil, auth)
	suite.Require().Equal(http.StatusOK, w.Code)
	var inv dto.InventoryResponse
	suite.decode(w, &inv)
	suite.Equal("ATM-TEST", inv.MachineID)
	suite.True(decimal.NewFromInt(15000).Equal(inv.Total))
}

func (suite *SessionHandlerTestSuite) TestOperatorLoadCash() {
	token := suite.operatorToken()
	auth := map[string]string{"Authorization": "Bearer " + token}

	w := suite.do(http.MethodPost, "/api/v1/operator/cash", dto.LoadCashRequest{Denomination: 100, Count: 10}, auth)

	suite.Require().Equal(http.StatusOK, w.Code)
	var inv dto.InventoryResponse
	suite.decode(w, &inv)
	suite.Equal(60, inv.Counts[100])
}

// --- Run Suite ---

func TestSessionHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(SessionHandlerTestSuite))
}
