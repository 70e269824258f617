package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bookie/settlement-engine/api"
	"bookie/settlement-engine/cmd"
	"bookie/settlement-engine/config"
	"bookie/settlement-engine/database"
	"bookie/settlement-engine/domain/services"
	"bookie/settlement-engine/infrastructure"
	"bookie/settlement-engine/repository"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Check for migration subcommands
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := handleMigrationCommand(); err != nil {
			log.Fatal("Migration error:", err)
		}
		return
	}

	// Check for admin token issuance
	if len(os.Args) > 1 && os.Args[1] == "issue-token" {
		if err := handleIssueToken(); err != nil {
			log.Fatal("Token error:", err)
		}
		return
	}

	// Check for ledger audit subcommand
	if len(os.Args) > 1 && os.Args[1] == "verify-chain" {
		if err := handleVerifyChain(); err != nil {
			log.Fatal("Chain verification error:", err)
		}
		return
	}

	// Normal engine operation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	// Run the application
	if err := cmd.Run(ctx); err != nil {
		log.Fatal("Application error:", err)
	}
}

func handleMigrationCommand() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: settlement-engine migrate [up|down|status] [args...]")
	}

	command := os.Args[2]
	switch command {
	case "up":
		return database.MigrateUp()
	case "down":
		steps := "1"
		if len(os.Args) > 3 {
			steps = os.Args[3]
		}
		return database.MigrateDown(steps)
	case "status":
		return database.MigrateStatus()
	default:
		return fmt.Errorf("unknown migration command: %s", command)
	}
}

// handleIssueToken prints a short-lived admin JWT for the given principal
func handleIssueToken() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: settlement-engine issue-token principal [ttl-hours]")
	}

	principal := os.Args[2]
	ttl := 24 * time.Hour
	if len(os.Args) > 3 {
		hours, err := strconv.Atoi(os.Args[3])
		if err != nil || hours <= 0 {
			return fmt.Errorf("ttl-hours must be a positive integer")
		}
		ttl = time.Duration(hours) * time.Hour
	}

	cfg := config.Get()
	token, err := api.GenerateAdminToken(cfg.JWTSecret, principal, ttl)
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}

	fmt.Println(token)
	return nil
}

// handleVerifyChain audits a user's ledger hash chain from the command line
func handleVerifyChain() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: settlement-engine verify-chain user-id")
	}

	userID, err := strconv.ParseInt(os.Args[2], 10, 64)
	if err != nil {
		return fmt.Errorf("user-id must be an integer")
	}

	ctx := context.Background()
	cfg := config.Get()

	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	ledgerRepo := repository.NewLedgerRepository(db)
	ledgerService := services.NewLedgerService(
		ledgerRepo, infrastructure.NewNoopEventPublisher(), cfg.Currency)

	if err := ledgerService.VerifyChain(ctx, userID); err != nil {
		return err
	}

	balance, err := ledgerService.Balance(ctx, userID)
	if err != nil {
		return err
	}

	fmt.Printf("chain intact for user %d, balance %d\n", userID, balance)
	return nil
}
