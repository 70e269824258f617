package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"bookie/settlement-engine/api"
	"bookie/settlement-engine/application"
	"bookie/settlement-engine/config"
	"bookie/settlement-engine/database"
	"bookie/settlement-engine/domain/events"
	"bookie/settlement-engine/domain/services"
	"bookie/settlement-engine/infrastructure"
	"bookie/settlement-engine/infrastructure/observability"
	"bookie/settlement-engine/repository"
)

// Run initializes and starts the settlement engine
func Run(ctx context.Context) error {
	log.Println("Starting settlement engine...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Println("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("Database connection established successfully")

	// Initialize metrics
	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		log.Printf("Metrics initialization failed, continuing without metrics: %v", err)
	}

	// Initialize NATS
	log.Printf("Connecting to NATS at %s...", cfg.NATSServers)
	natsClient := infrastructure.NewNATSClient(cfg.NATSServers)
	if err := natsClient.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	subjectMapper := infrastructure.NewEventSubjectMapper()
	eventPublisher := infrastructure.NewNATSEventPublisher(natsClient, subjectMapper)
	if err := eventPublisher.EnsureDomainEventStream(); err != nil {
		return fmt.Errorf("failed to ensure event stream: %w", err)
	}
	log.Println("NATS connection established successfully")

	// Initialize repositories
	wagerRepo := repository.NewWagerRepository(db)
	selectionRepo := repository.NewSelectionRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	notarizationRepo := repository.NewNotarizationRepository(db)
	reconciliationRepo := repository.NewReconciliationRepository(db)

	// Initialize domain services
	ledgerService := services.NewLedgerService(ledgerRepo, eventPublisher, cfg.Currency)
	settlementService := services.NewSettlementService(
		wagerRepo, selectionRepo, ledgerService, services.NewPayoutCalculator(), eventPublisher)
	cashoutService := services.NewCashoutService(
		wagerRepo, ledgerService, eventPublisher, cfg.CashoutOfferRate)
	reconciliationService := services.NewReconciliationService(
		ledgerRepo, reconciliationRepo, eventPublisher, cfg.ReconciliationAlertThreshold)
	chargebackProcessor := application.NewChargebackProcessor(
		wagerRepo, settlementService, cfg.ChargebackSecret)

	// Wire async notarization off the settlement event stream
	if cfg.NotaryURL != "" {
		forwarder := infrastructure.NewNotaryForwarder(
			cfg.NotaryURL, cfg.NotaryPayoutFloor, notarizationRepo)
		subscriber := infrastructure.NewNATSEventSubscriber(natsClient, subjectMapper)
		if err := subscriber.Subscribe(events.EventTypeWagerSettled, forwarder.HandleWagerSettled); err != nil {
			return fmt.Errorf("failed to subscribe notary forwarder: %w", err)
		}
		log.Printf("Notary forwarder subscribed (payout floor %d)", cfg.NotaryPayoutFloor)
	} else {
		log.Println("NOTARY_URL not set, notarization disabled")
	}

	// Rate limiting degrades to unlimited when Redis is unreachable
	var rateLimiter *infrastructure.RateLimiter
	rdb, err := infrastructure.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Printf("Redis unavailable, running without rate limiting: %v", err)
	} else {
		rateLimiter = infrastructure.NewRateLimiter(
			rdb, cfg.RateLimitRequests, time.Duration(cfg.RateLimitWindow)*time.Second)
	}

	// Start the background sweep. The sweep runs against its own settlement
	// service whose events are held back and flushed per pass, so a long
	// sweep does not interleave half-batch events with live settlements.
	sweepPublisher := infrastructure.NewNATSTransactionalPublisher(eventPublisher)
	sweepService := services.NewSettlementService(
		wagerRepo, selectionRepo, ledgerService, services.NewPayoutCalculator(), sweepPublisher)
	sweepWorker := application.NewSettlementSweepWorker(
		sweepService, sweepPublisher, time.Duration(cfg.SweepIntervalSeconds)*time.Second)
	stopSweep := sweepWorker.Start(ctx)

	// Start the HTTP server
	server := api.NewServer(
		settlementService,
		cashoutService,
		ledgerService,
		reconciliationService,
		chargebackProcessor,
		rateLimiter,
		cfg,
	)
	httpServer := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: server.Router(),
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on :%s", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	log.Printf("Engine is running in %s mode...", cfg.Environment)
	select {
	case err := <-serverErr:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	// Cleanup resources
	log.Println("Shutting down engine...")
	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}
	if err := natsClient.Close(); err != nil {
		log.Printf("Error closing NATS connection: %v", err)
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Printf("Error closing Redis connection: %v", err)
		}
	}
	if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
		log.Printf("Error shutting down metrics: %v", err)
	}

	log.Println("Closing database connection...")
	db.Close()

	log.Println("Shutdown completed")
	return nil
}
