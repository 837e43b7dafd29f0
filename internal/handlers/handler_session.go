package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	limitermem "github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/bankbank/atm-core/internal/core/domain"
	"github.com/bankbank/atm-core/internal/core/services"
	"github.com/bankbank/atm-core/internal/dto"
	"github.com/bankbank/atm-core/internal/middleware"
)

// sessionHandler exposes the cardholder session API for one machine.
type sessionHandler struct {
	controller *services.ATMController
}

func newSessionHandler(controller *services.ATMController) *sessionHandler {
	return &sessionHandler{controller: controller}
}

// registerSessionRoutes registers the cardholder session API. PIN entry is
// rate limited by client IP to slow down brute-force attempts.
func registerSessionRoutes(rg *gin.RouterGroup, controller *services.ATMController) {
	h := newSessionHandler(controller)

	rate, _ := limiter.NewRateFromFormatted("10-M")
	pinLimiter := limiter.New(limitermem.NewStore(), rate)

	sessions := rg.Group("/sessions")
	{
		sessions.POST("", h.insertCard)
		sessions.GET("/:sessionID", h.getSession)
		sessions.DELETE("/:sessionID", h.cancel)
		sessions.POST("/:sessionID/pin", middleware.RateLimit(pinLimiter), h.enterPIN)
		sessions.POST("/:sessionID/withdrawal", h.withdraw)
		sessions.POST("/:sessionID/deposit", h.deposit)
		sessions.POST("/:sessionID/transfer", h.transfer)
		sessions.GET("/:sessionID/balance", h.inquiry)
		sessions.GET("/:sessionID/transactions", h.recentTransactions)
		sessions.POST("/:sessionID/pin-change", h.changePIN)
	}
}

func (h *sessionHandler) insertCard(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.InsertCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	sess, err := h.controller.InsertCard(c.Request.Context(), req.CardNumber)
	if err != nil {
		respondError(c, err)
		return
	}

	logger.Info("Session opened", slog.String("session_id", sess.SessionID))
	c.JSON(http.StatusCreated, dto.ToSessionResponse(sess))
}

func (h *sessionHandler) getSession(c *gin.Context) {
	sess, err := h.controller.GetSession(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToSessionResponse(sess))
}

func (h *sessionHandler) cancel(c *gin.Context) {
	sess, err := h.controller.Cancel(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToSessionResponse(sess))
}

func (h *sessionHandler) enterPIN(c *gin.Context) {
	var req dto.EnterPINRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	sess, err := h.controller.EnterPIN(c.Request.Context(), c.Param("sessionID"), req.PIN)
	if err != nil {
		// The caller still needs the session snapshot to see the retained
		// flag and the remaining attempts, so failures return it alongside.
		if sess != nil {
			status := http.StatusForbidden
			c.JSON(status, gin.H{"error": err.Error(), "session": dto.ToSessionResponse(sess)})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToSessionResponse(sess))
}

func (h *sessionHandler) withdraw(c *gin.Context) {
	var req dto.AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	rec, err := h.controller.Withdraw(c.Request.Context(), c.Param("sessionID"), req.Amount)
	if err != nil {
		if rec != nil {
			// The transaction reached a terminal status; report it with the error.
			respondRejected(c, err, rec)
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTransactionResponse(rec))
}

func (h *sessionHandler) deposit(c *gin.Context) {
	var req dto.AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	rec, err := h.controller.Deposit(c.Request.Context(), c.Param("sessionID"), req.Amount)
	if err != nil {
		if rec != nil {
			respondRejected(c, err, rec)
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTransactionResponse(rec))
}

func (h *sessionHandler) transfer(c *gin.Context) {
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	rec, err := h.controller.Transfer(c.Request.Context(), c.Param("sessionID"), req.TargetAccountID, req.Amount)
	if err != nil {
		if rec != nil {
			respondRejected(c, err, rec)
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTransactionResponse(rec))
}

func (h *sessionHandler) inquiry(c *gin.Context) {
	rec, balance, err := h.controller.Inquiry(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"balance":     dto.BalanceResponse{AccountID: rec.SourceAccountID, Balance: balance},
		"transaction": dto.ToTransactionResponse(rec),
	})
}

func (h *sessionHandler) recentTransactions(c *gin.Context) {
	count, _ := strconv.Atoi(c.DefaultQuery("count", "0"))

	records, err := h.controller.RecentTransactions(c.Request.Context(), c.Param("sessionID"), count)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTransactionResponses(records))
}

func (h *sessionHandler) changePIN(c *gin.Context) {
	var req dto.ChangePINRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	if err := h.controller.ChangePIN(c.Request.Context(), c.Param("sessionID"), req.OldPIN, req.NewPIN); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "pin changed"})
}

// respondRejected reports a transaction that reached a terminal failure
// status, pairing the record with the mapped error.
func respondRejected(c *gin.Context, err error, rec *domain.TransactionRecord) {
	c.JSON(statusFor(err), gin.H{"error": err.Error(), "transaction": dto.ToTransactionResponse(rec)})
}
