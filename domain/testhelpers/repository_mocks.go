package testhelpers

import (
	"context"
	"io"
	"time"

	"bookie/settlement-engine/domain/entities"
	"bookie/settlement-engine/domain/events"
	"bookie/settlement-engine/domain/interfaces"

	"github.com/stretchr/testify/mock"
)

// MockWagerRepository is a mock implementation of WagerRepository
type MockWagerRepository struct {
	mock.Mock
}

func (m *MockWagerRepository) Create(ctx context.Context, wager *entities.Wager) error {
	args := m.Called(ctx, wager)
	return args.Error(0)
}

func (m *MockWagerRepository) GetByID(ctx context.Context, id int64) (*entities.Wager, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Wager), args.Error(1)
}

func (m *MockWagerRepository) GetByReference(ctx context.Context, reference string) (*entities.Wager, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Wager), args.Error(1)
}

func (m *MockWagerRepository) GetPendingByEvent(ctx context.Context, eventID int64) ([]*entities.Wager, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Wager), args.Error(1)
}

func (m *MockWagerRepository) GetFullySelectedPending(ctx context.Context, limit int) ([]*entities.Wager, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Wager), args.Error(1)
}

func (m *MockWagerRepository) TransitionStatus(ctx context.Context, id int64, expected, target entities.WagerStatus, settledAt time.Time) (bool, error) {
	args := m.Called(ctx, id, expected, target, settledAt)
	return args.Bool(0), args.Error(1)
}

// MockSelectionRepository is a mock implementation of SelectionRepository
type MockSelectionRepository struct {
	mock.Mock
}

func (m *MockSelectionRepository) GetByWager(ctx context.Context, wagerID int64) ([]*entities.Selection, error) {
	args := m.Called(ctx, wagerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Selection), args.Error(1)
}

func (m *MockSelectionRepository) GetByID(ctx context.Context, id int64) (*entities.Selection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Selection), args.Error(1)
}

func (m *MockSelectionRepository) SettleResult(ctx context.Context, id int64, result entities.SelectionResult, deadHeatDivisor int, withdrawnOdds float64, settledAt time.Time) error {
	args := m.Called(ctx, id, result, deadHeatDivisor, withdrawnOdds, settledAt)
	return args.Error(0)
}

// MockLedgerRepository is a mock implementation of LedgerRepository
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Append(ctx context.Context, entry *entities.LedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) GetLatestByUser(ctx context.Context, userID int64) (*entities.LedgerEntry, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) GetAllByUser(ctx context.Context, userID int64) ([]*entities.LedgerEntry, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) GetByPeriod(ctx context.Context, from, to time.Time) ([]*entities.LedgerEntry, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) GetExternalByPeriod(ctx context.Context, from, to time.Time) ([]*entities.LedgerEntry, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.LedgerEntry), args.Error(1)
}

// MockNotarizationRepository is a mock implementation of NotarizationRepository
type MockNotarizationRepository struct {
	mock.Mock
}

func (m *MockNotarizationRepository) Record(ctx context.Context, record *entities.NotarizationRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockNotarizationRepository) GetFailed(ctx context.Context, limit int) ([]*entities.NotarizationRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.NotarizationRecord), args.Error(1)
}

// MockReconciliationRepository is a mock implementation of ReconciliationRepository
type MockReconciliationRepository struct {
	mock.Mock
}

func (m *MockReconciliationRepository) Save(ctx context.Context, report *entities.ReconciliationReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockReconciliationRepository) GetByPeriod(ctx context.Context, start, end time.Time) ([]*entities.ReconciliationReport, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.ReconciliationReport), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockLedgerService is a mock implementation of LedgerService
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) Append(ctx context.Context, userID int64, txType entities.TransactionType, amount int64, reference string, metadata entities.EntryMetadata) (*entities.LedgerEntry, error) {
	args := m.Called(ctx, userID, txType, amount, reference, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.LedgerEntry), args.Error(1)
}

func (m *MockLedgerService) Balance(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerService) VerifyChain(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockLedgerService) ExportCSV(ctx context.Context, w io.Writer, from, to time.Time) error {
	args := m.Called(ctx, w, from, to)
	return args.Error(0)
}

// MockSettlementService is a mock implementation of SettlementService
type MockSettlementService struct {
	mock.Mock
}

func (m *MockSettlementService) SettleSelection(ctx context.Context, wagerID, selectionID int64, result entities.SelectionResult, deadHeatDivisor int, withdrawnOdds float64) error {
	args := m.Called(ctx, wagerID, selectionID, result, deadHeatDivisor, withdrawnOdds)
	return args.Error(0)
}

func (m *MockSettlementService) SettleWager(ctx context.Context, wagerID int64, result entities.WagerStatus) (*interfaces.SettlementResult, error) {
	args := m.Called(ctx, wagerID, result)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.SettlementResult), args.Error(1)
}

func (m *MockSettlementService) SettleMatch(ctx context.Context, eventID int64, result entities.SelectionResult) ([]interfaces.BatchItemResult, error) {
	args := m.Called(ctx, eventID, result)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]interfaces.BatchItemResult), args.Error(1)
}

func (m *MockSettlementService) AutoSettle(ctx context.Context) ([]interfaces.BatchItemResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]interfaces.BatchItemResult), args.Error(1)
}

func (m *MockSettlementService) CancelWager(ctx context.Context, wagerID int64, disputeID, reason string) error {
	args := m.Called(ctx, wagerID, disputeID, reason)
	return args.Error(0)
}

// MockCashoutService is a mock implementation of CashoutService
type MockCashoutService struct {
	mock.Mock
}

func (m *MockCashoutService) RequestCashout(ctx context.Context, wagerID int64) (*entities.CashoutOffer, error) {
	args := m.Called(ctx, wagerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CashoutOffer), args.Error(1)
}

func (m *MockCashoutService) AcceptCashout(ctx context.Context, offer *entities.CashoutOffer, offeredAmount int64) (int64, error) {
	args := m.Called(ctx, offer, offeredAmount)
	return args.Get(0).(int64), args.Error(1)
}

// MockReconciliationService is a mock implementation of ReconciliationService
type MockReconciliationService struct {
	mock.Mock
}

func (m *MockReconciliationService) Reconcile(ctx context.Context, periodStart, periodEnd time.Time, bankLines []entities.BankStatementLine) (*entities.ReconciliationReport, error) {
	args := m.Called(ctx, periodStart, periodEnd, bankLines)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ReconciliationReport), args.Error(1)
}
