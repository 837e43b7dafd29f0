package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	portssvc "github.com/bankbank/atm-core/internal/core/ports/services"
	"github.com/bankbank/atm-core/internal/core/services"
	"github.com/bankbank/atm-core/internal/dto"
	"github.com/bankbank/atm-core/internal/middleware"
)

// operatorHandler exposes the JWT-protected operator API: account
// provisioning, cash replenishment and audit inspection.
type operatorHandler struct {
	ledger      portssvc.LedgerSvcFacade
	coordinator portssvc.CoordinatorSvcFacade
	dispenser   portssvc.DispenserSvcFacade
	controller  *services.ATMController
}

func newOperatorHandler(svcs *portssvc.ServiceContainer, controller *services.ATMController) *operatorHandler {
	return &operatorHandler{
		ledger:      svcs.Ledger,
		coordinator: svcs.Coordinator,
		dispenser:   svcs.Dispenser,
		controller:  controller,
	}
}

// registerOperatorRoutes registers the operator API under JWT auth.
func registerOperatorRoutes(rg *gin.RouterGroup, svcs *portssvc.ServiceContainer, controller *services.ATMController) {
	h := newOperatorHandler(svcs, controller)

	operator := rg.Group("/operator")
	{
		operator.POST("/accounts", h.createAccount)
		operator.GET("/accounts/:accountID", h.getAccount)
		operator.GET("/accounts/:accountID/transactions", h.listTransactions)
		operator.POST("/cash", h.loadCash)
		operator.GET("/cash", h.inventory)
	}
}

func (h *operatorHandler) createAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	operatorID, ok := middleware.GetOperatorIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	account, err := h.ledger.CreateAccount(c.Request.Context(), req.AccountID, req.PIN, req.OpeningBalance, operatorID)
	if err != nil {
		respondError(c, err)
		return
	}

	logger.Info("Account provisioned",
		slog.String("account_id", account.AccountID),
		slog.String("operator_id", operatorID))
	c.JSON(http.StatusCreated, dto.ToAccountResponse(account))
}

func (h *operatorHandler) getAccount(c *gin.Context) {
	account, err := h.ledger.GetAccount(c.Request.Context(), c.Param("accountID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

func (h *operatorHandler) listTransactions(c *gin.Context) {
	count, _ := strconv.Atoi(c.DefaultQuery("count", "0"))

	records, err := h.coordinator.RecentTransactions(c.Request.Context(), c.Param("accountID"), count)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTransactionResponses(records))
}

func (h *operatorHandler) loadCash(c *gin.Context) {
	var req dto.LoadCashRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	if err := h.dispenser.Load(req.Denomination, req.Count); err != nil {
		respondError(c, err)
		return
	}
	h.writeInventory(c)
}

func (h *operatorHandler) inventory(c *gin.Context) {
	h.writeInventory(c)
}

func (h *operatorHandler) writeInventory(c *gin.Context) {
	inv := h.dispenser.Inventory()
	c.JSON(http.StatusOK, dto.InventoryResponse{
		MachineID: h.controller.MachineID(),
		Counts:    inv.Counts,
		RejectBin: inv.RejectBin,
		Total:     inv.Total(),
	})
}
