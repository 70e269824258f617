package interfaces

import (
	"context"
	"time"

	"bookie/settlement-engine/domain/entities"
	"bookie/settlement-engine/domain/events"
)

// WagerRepository defines the interface for wager data access
type WagerRepository interface {
	// Create persists a new wager with its selections
	Create(ctx context.Context, wager *entities.Wager) error

	// GetByID retrieves a wager by its ID
	GetByID(ctx context.Context, id int64) (*entities.Wager, error)

	// GetByReference retrieves a wager by the payment reference on its stake
	GetByReference(ctx context.Context, reference string) (*entities.Wager, error)

	// GetPendingByEvent returns pending wagers holding at least one pending
	// selection on the given event
	GetPendingByEvent(ctx context.Context, eventID int64) ([]*entities.Wager, error)

	// GetFullySelectedPending returns pending wagers whose selections are all
	// settled, i.e. candidates for the automated sweep
	GetFullySelectedPending(ctx context.Context, limit int) ([]*entities.Wager, error)

	// TransitionStatus performs the compare-and-set status update: the write
	// succeeds only if the persisted status still equals expected. Returns
	// false (and no error) when the guard fails.
	TransitionStatus(ctx context.Context, id int64, expected, target entities.WagerStatus, settledAt time.Time) (bool, error)
}

// SelectionRepository defines the interface for wager leg data access
type SelectionRepository interface {
	// GetByWager returns all selections belonging to a wager
	GetByWager(ctx context.Context, wagerID int64) ([]*entities.Selection, error)

	// GetByID retrieves a selection by its ID
	GetByID(ctx context.Context, id int64) (*entities.Selection, error)

	// SettleResult records a leg outcome together with its racing adjustments
	SettleResult(ctx context.Context, id int64, result entities.SelectionResult, deadHeatDivisor int, withdrawnOdds float64, settledAt time.Time) error
}

// LedgerRepository defines the interface for the append-only ledger store
type LedgerRepository interface {
	// Append inserts a new entry as a strict append. The global sequence is
	// assigned inside the insert and never reused.
	Append(ctx context.Context, entry *entities.LedgerEntry) error

	// GetLatestByUser returns the user's most recent entry, or nil if the
	// user has no entries yet
	GetLatestByUser(ctx context.Context, userID int64) (*entities.LedgerEntry, error)

	// GetAllByUser returns every entry for a user in sequence order
	GetAllByUser(ctx context.Context, userID int64) ([]*entities.LedgerEntry, error)

	// GetByPeriod returns entries created within [from, to) in sequence order
	GetByPeriod(ctx context.Context, from, to time.Time) ([]*entities.LedgerEntry, error)

	// GetExternalByPeriod returns deposit/withdrawal entries within [from, to)
	GetExternalByPeriod(ctx context.Context, from, to time.Time) ([]*entities.LedgerEntry, error)
}

// NotarizationRepository defines the interface for notarization side records
type NotarizationRepository interface {
	// Record persists the outcome of a notarization attempt
	Record(ctx context.Context, record *entities.NotarizationRecord) error

	// GetFailed returns permanently failed records for operational review
	GetFailed(ctx context.Context, limit int) ([]*entities.NotarizationRecord, error)
}

// ReconciliationRepository defines the interface for reconciliation reports
type ReconciliationRepository interface {
	// Save persists a finished report. Reports are immutable once written.
	Save(ctx context.Context, report *entities.ReconciliationReport) error

	// GetByPeriod returns all reports produced for a period, newest first
	GetByPeriod(ctx context.Context, start, end time.Time) ([]*entities.ReconciliationReport, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	Publish(event events.Event) error
}

// TransactionalEventPublisher extends EventPublisher with transaction support
type TransactionalEventPublisher interface {
	EventPublisher

	// Flush publishes all pending events after a successful commit
	Flush(ctx context.Context) error

	// Discard drops all pending events on rollback
	Discard()
}
