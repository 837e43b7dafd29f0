package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bankbank/atm-core/internal/apperrors"
	"github.com/bankbank/atm-core/internal/middleware"
)

// ErrorResponse is a generic error response structure for handlers.
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusFor maps the domain error taxonomy onto HTTP statuses. Business
// rule violations surface as 422, input problems as 400, hardware and
// gateway failures as 502/504.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrInsufficientFunds),
		errors.Is(err, apperrors.ErrLimitExceeded),
		errors.Is(err, apperrors.ErrUnfulfillable),
		errors.Is(err, apperrors.ErrCurrencyRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrInvalidPIN),
		errors.Is(err, apperrors.ErrCardRetained):
		return http.StatusForbidden
	case errors.Is(err, apperrors.ErrSessionExpired),
		errors.Is(err, apperrors.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrGatewayTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, apperrors.ErrGatewayDeclined),
		errors.Is(err, apperrors.ErrMechanicalFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the mapped status for a domain error; unexpected
// errors become a bare 500 with the detail kept in the logs only.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		middleware.GetLoggerFromCtx(c.Request.Context()).Error("Unhandled error", slog.String("error", err.Error()))
		c.JSON(status, ErrorResponse{Error: "internal error"})
		return
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

// GetHealth godoc: liveness probe for the machine controller.
func GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
