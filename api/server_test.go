package api

import (
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"bookie/settlement-engine/application"
	"bookie/settlement-engine/config"
	"bookie/settlement-engine/domain/testhelpers"
)

type testServerMocks struct {
	settlementService     *testhelpers.MockSettlementService
	cashoutService        *testhelpers.MockCashoutService
	ledgerService         *testhelpers.MockLedgerService
	reconciliationService *testhelpers.MockReconciliationService
	wagerRepo             *testhelpers.MockWagerRepository
}

func newTestServer(t *testing.T) (*gin.Engine, *testServerMocks) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.NewTestConfig()

	mocks := &testServerMocks{
		settlementService:     new(testhelpers.MockSettlementService),
		cashoutService:        new(testhelpers.MockCashoutService),
		ledgerService:         new(testhelpers.MockLedgerService),
		reconciliationService: new(testhelpers.MockReconciliationService),
		wagerRepo:             new(testhelpers.MockWagerRepository),
	}

	chargebackProcessor := application.NewChargebackProcessor(
		mocks.wagerRepo, mocks.settlementService, cfg.ChargebackSecret)

	server := NewServer(
		mocks.settlementService,
		mocks.cashoutService,
		mocks.ledgerService,
		mocks.reconciliationService,
		chargebackProcessor,
		nil,
		cfg,
	)

	return server.Router(), mocks
}

func adminToken(t *testing.T) string {
	t.Helper()
	cfg := config.NewTestConfig()

	token, err := GenerateAdminToken(cfg.JWTSecret, "ops@test", time.Hour)
	require.NoError(t, err)
	return token
}
