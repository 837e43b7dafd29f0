package handlers

import (
	"github.com/gin-gonic/gin"

	portssvc "github.com/bankbank/atm-core/internal/core/ports/services"
	"github.com/bankbank/atm-core/internal/core/services"
	"github.com/bankbank/atm-core/internal/middleware"
	"github.com/bankbank/atm-core/pkg/config"
)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	svcs *portssvc.ServiceContainer,
	controller *services.ATMController,
) {
	r.GET("/health", GetHealth)

	// Setup API v1 routes
	setupAPIV1Routes(r, cfg, svcs, controller)
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific entity route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	cfg *config.Config,
	svcs *portssvc.ServiceContainer,
	controller *services.ATMController,
) {
	v1 := r.Group("/api/v1")

	// Operator login is public; everything else under /operator requires a JWT.
	registerAuthRoutes(v1, cfg)

	// Cardholder session endpoints authenticate via the session itself (card +
	// PIN), not via JWT.
	registerSessionRoutes(v1, controller)

	protected := v1.Group("", middleware.AuthMiddleware(cfg.JWTSecret))
	registerOperatorRoutes(protected, svcs, controller)
}
