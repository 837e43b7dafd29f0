package handlers

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/bankbank/atm-core/internal/dto"
	"github.com/bankbank/atm-core/internal/middleware"
	"github.com/bankbank/atm-core/pkg/config"
)

type authHandler struct {
	cfg *config.Config
}

// registerAuthRoutes registers the operator login endpoint.
func registerAuthRoutes(rg *gin.RouterGroup, cfg *config.Config) {
	h := &authHandler{cfg: cfg}
	rg.POST("/auth/login", h.login)
}

// login exchanges the shared operator secret for a short-lived JWT.
func (h *authHandler) login(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(h.cfg.OperatorSecret)) != 1 {
		logger.Warn("Operator login rejected", slog.String("operator_id", req.OperatorID))
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid credentials"})
		return
	}

	expiresAt := time.Now().Add(h.cfg.JWTExpiryDuration)
	claims := jwt.RegisteredClaims{
		Subject:   req.OperatorID,
		Issuer:    h.cfg.JWTIssuer,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.cfg.JWTSecret))
	if err != nil {
		logger.Error("Failed to sign operator token", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to issue token"})
		return
	}

	logger.Info("Operator logged in", slog.String("operator_id", req.OperatorID))
	c.JSON(http.StatusOK, dto.LoginResponse{Token: token, ExpiresAt: expiresAt})
}
