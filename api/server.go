package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bookie/settlement-engine/application"
	"bookie/settlement-engine/config"
	"bookie/settlement-engine/domain/entities"
	"bookie/settlement-engine/domain/interfaces"
	"bookie/settlement-engine/infrastructure"
)

// Server wires the HTTP surface over the domain services
type Server struct {
	settlementService     interfaces.SettlementService
	cashoutService        interfaces.CashoutService
	ledgerService         interfaces.LedgerService
	reconciliationService interfaces.ReconciliationService
	chargebackProcessor   *application.ChargebackProcessor
	rateLimiter           *infrastructure.RateLimiter
	jwtSecret             string
}

// NewServer creates the HTTP server over the given services
func NewServer(
	settlementService interfaces.SettlementService,
	cashoutService interfaces.CashoutService,
	ledgerService interfaces.LedgerService,
	reconciliationService interfaces.ReconciliationService,
	chargebackProcessor *application.ChargebackProcessor,
	rateLimiter *infrastructure.RateLimiter,
	cfg *config.Config,
) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	return &Server{
		settlementService:     settlementService,
		cashoutService:        cashoutService,
		ledgerService:         ledgerService,
		reconciliationService: reconciliationService,
		chargebackProcessor:   chargebackProcessor,
		rateLimiter:           rateLimiter,
		jwtSecret:             cfg.JWTSecret,
	}
}

// Router builds the route table
func (s *Server) Router() *gin.Engine {
	router := gin.Default()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/webhooks/chargeback", s.handleChargebackWebhook)

	admin := router.Group("/admin")
	admin.Use(AuthMiddleware(s.jwtSecret))
	if s.rateLimiter != nil {
		admin.Use(RateLimitMiddleware(s.rateLimiter))
	}
	{
		admin.POST("/settlements/bets/:id", s.handleSettleWager)
		admin.POST("/settlements/matches/:id", s.handleSettleMatch)
		admin.POST("/settlements/sweep", s.handleSettlementSweep)
		admin.GET("/ledger/export", s.handleLedgerExport)
		admin.POST("/reconciliation", s.handleReconciliation)
	}

	ws := router.Group("/ws")
	ws.Use(AuthMiddleware(s.jwtSecret))
	{
		ws.GET("/cashout", s.handleCashoutSocket)
	}

	return router
}

// respondError maps domain errors onto HTTP status codes
func respondError(c *gin.Context, err error) {
	var validationErr *entities.ValidationError
	var conflictErr *entities.StateConflictError
	var fundsErr *entities.InsufficientFundsError
	var integrityErr *entities.IntegrityError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &fundsErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.As(err, &integrityErr):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ledger integrity failure, writes halted"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
