package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"bookie/settlement-engine/database"
)

// Config holds all application configuration
type Config struct {
	// HTTP configuration
	HTTPPort string

	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// Auth configuration
	JWTSecret         string // Signing secret for admin API tokens
	ChargebackSecret  string // HMAC secret shared with the payment provider
	RateLimitRequests int64  // Requests per principal per window
	RateLimitWindow   int    // Window length in seconds

	// Ledger configuration
	Currency string // ISO currency code for exports

	// Cashout configuration
	CashoutOfferRate float64 // Fraction of unrealized profit included in offers

	// Reconciliation configuration
	ReconciliationAlertThreshold int64 // Minor units; discrepancies above alert

	// Notarization configuration
	NotaryURL         string
	NotaryPayoutFloor int64 // Minimum payout that must be notarized

	// Settlement sweep configuration
	SweepIntervalSeconds int

	// NATS configuration
	NATSServers string // NATS server addresses (comma-separated)

	// Redis configuration
	RedisAddr string

	// OpenTelemetry configuration
	OTelEnabled              bool
	OTelServiceName          string
	OTelExporterType         string // "console", "otlp" or "none"
	OTelOTLPEndpoint         string
	OTelExportIntervalMillis int

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			// Tests run without a full environment.
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		HTTPPort: getEnvWithDefault("HTTP_PORT", "8080"),

		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		JWTSecret:         os.Getenv("JWT_SECRET"),
		ChargebackSecret:  os.Getenv("CHARGEBACK_WEBHOOK_SECRET"),
		RateLimitRequests: getEnvInt64WithDefault("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getEnvIntWithDefault("RATE_LIMIT_WINDOW_SECONDS", 60),

		Currency: getEnvWithDefault("CURRENCY", "NGN"),

		CashoutOfferRate: 0.70,

		ReconciliationAlertThreshold: getEnvInt64WithDefault("RECONCILIATION_ALERT_THRESHOLD", 100000),

		NotaryURL:         os.Getenv("NOTARY_URL"),
		NotaryPayoutFloor: getEnvInt64WithDefault("NOTARY_PAYOUT_FLOOR", 1000000),

		SweepIntervalSeconds: getEnvIntWithDefault("SWEEP_INTERVAL_SECONDS", 60),

		NATSServers: getEnvWithDefault("NATS_SERVERS", "nats://nats:4222"),

		RedisAddr: getEnvWithDefault("REDIS_ADDR", "redis:6379"),

		OTelEnabled:              os.Getenv("OTEL_ENABLED") == "true",
		OTelServiceName:          getEnvWithDefault("OTEL_SERVICE_NAME", "settlement-engine"),
		OTelExporterType:         getEnvWithDefault("OTEL_EXPORTER_TYPE", "none"),
		OTelOTLPEndpoint:         getEnvWithDefault("OTEL_OTLP_ENDPOINT", "localhost:4317"),
		OTelExportIntervalMillis: getEnvIntWithDefault("OTEL_EXPORT_INTERVAL_MILLIS", 60000),

		Environment: os.Getenv("ENVIRONMENT"),
	}

	if rate := os.Getenv("CASHOUT_OFFER_RATE"); rate != "" {
		parsed, err := strconv.ParseFloat(rate, 64)
		if err != nil || parsed <= 0 || parsed > 1 {
			return nil, fmt.Errorf("CASHOUT_OFFER_RATE must be a fraction in (0, 1]")
		}
		config.CashoutOfferRate = parsed
	}

	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET is required")
		}
		if config.ChargebackSecret == "" {
			return nil, fmt.Errorf("CHARGEBACK_WEBHOOK_SECRET is required")
		}
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	}

	return config, nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt64WithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:                  "test",
		HTTPPort:                     "8080",
		JWTSecret:                    "test-secret",
		ChargebackSecret:             "test-webhook-secret",
		Currency:                     "NGN",
		CashoutOfferRate:             0.70,
		ReconciliationAlertThreshold: 1000,
		NotaryPayoutFloor:            1000000,
		RateLimitRequests:            60,
		RateLimitWindow:              60,
		SweepIntervalSeconds:         60,
		OTelServiceName:              "settlement-engine",
		OTelExporterType:             "none",
	}
}
