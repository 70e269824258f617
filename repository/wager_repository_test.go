package repository

import (
	"context"
	"testing"
	"time"

	"bookie/settlement-engine/domain/entities"
	"bookie/settlement-engine/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWagerRepository_CreateAndGet(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	wagerRepo := NewWagerRepository(testDB.DB)
	selectionRepo := NewSelectionRepository(testDB.DB)

	wager := testutil.CreateTestWager(42, 100)
	err := wagerRepo.Create(ctx, wager)
	require.NoError(t, err)
	require.NotEqual(t, int64(0), wager.ID)

	saved, err := wagerRepo.GetByID(ctx, wager.ID)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, entities.WagerStatusPending, saved.Status)
	assert.Equal(t, int64(1000), saved.Stake)
	assert.Equal(t, wager.Reference, saved.Reference)
	assert.Nil(t, saved.SettledAt)

	selections, err := selectionRepo.GetByWager(ctx, wager.ID)
	require.NoError(t, err)
	require.Len(t, selections, 1)
	assert.Equal(t, int64(100), selections[0].EventID)
	assert.Equal(t, entities.SelectionResultPending, selections[0].Result)

	byRef, err := wagerRepo.GetByReference(ctx, wager.Reference)
	require.NoError(t, err)
	require.NotNil(t, byRef)
	assert.Equal(t, wager.ID, byRef.ID)

	missing, err := wagerRepo.GetByID(ctx, 999999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestWagerRepository_TransitionStatus(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	wagerRepo := NewWagerRepository(testDB.DB)
	wager := testutil.CreateTestWager(42, 100)
	require.NoError(t, wagerRepo.Create(ctx, wager))

	settledAt := time.Now().UTC()

	t.Run("first transition wins", func(t *testing.T) {
		ok, err := wagerRepo.TransitionStatus(ctx, wager.ID, entities.WagerStatusPending, entities.WagerStatusWon, settledAt)
		require.NoError(t, err)
		assert.True(t, ok)

		saved, err := wagerRepo.GetByID(ctx, wager.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.WagerStatusWon, saved.Status)
		require.NotNil(t, saved.SettledAt)
	})

	t.Run("second transition is rejected without error", func(t *testing.T) {
		ok, err := wagerRepo.TransitionStatus(ctx, wager.ID, entities.WagerStatusPending, entities.WagerStatusLost, settledAt)
		require.NoError(t, err)
		assert.False(t, ok)

		// The original outcome survives.
		saved, err := wagerRepo.GetByID(ctx, wager.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.WagerStatusWon, saved.Status)
	})

	t.Run("concurrent transitions settle exactly once", func(t *testing.T) {
		race := testutil.CreateTestWager(42, 101)
		require.NoError(t, wagerRepo.Create(ctx, race))

		const attempts = 8
		wins := make(chan bool, attempts)
		for i := 0; i < attempts; i++ {
			go func() {
				ok, err := wagerRepo.TransitionStatus(ctx, race.ID, entities.WagerStatusPending, entities.WagerStatusWon, time.Now().UTC())
				assert.NoError(t, err)
				wins <- ok
			}()
		}

		winners := 0
		for i := 0; i < attempts; i++ {
			if <-wins {
				winners++
			}
		}
		assert.Equal(t, 1, winners)
	})
}

func TestWagerRepository_GetPendingByEvent(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	wagerRepo := NewWagerRepository(testDB.DB)
	selectionRepo := NewSelectionRepository(testDB.DB)

	onEvent := testutil.CreateTestWager(42, 200)
	require.NoError(t, wagerRepo.Create(ctx, onEvent))

	otherEvent := testutil.CreateTestWager(42, 201)
	require.NoError(t, wagerRepo.Create(ctx, otherEvent))

	accumulator := testutil.CreateTestAccumulator(7, 500, 200, 202)
	require.NoError(t, wagerRepo.Create(ctx, accumulator))

	pending, err := wagerRepo.GetPendingByEvent(ctx, 200)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	// A wager whose leg on the event is already settled drops out.
	selections, err := selectionRepo.GetByWager(ctx, onEvent.ID)
	require.NoError(t, err)
	require.Len(t, selections, 1)
	err = selectionRepo.SettleResult(ctx, selections[0].ID, entities.SelectionResultWon, 1, 0, time.Now().UTC())
	require.NoError(t, err)

	pending, err = wagerRepo.GetPendingByEvent(ctx, 200)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, accumulator.ID, pending[0].ID)
}

func TestWagerRepository_GetFullySelectedPending(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	wagerRepo := NewWagerRepository(testDB.DB)
	selectionRepo := NewSelectionRepository(testDB.DB)

	ready := testutil.CreateTestWager(42, 300)
	require.NoError(t, wagerRepo.Create(ctx, ready))
	notReady := testutil.CreateTestAccumulator(42, 500, 300, 301)
	require.NoError(t, wagerRepo.Create(ctx, notReady))

	readySelections, err := selectionRepo.GetByWager(ctx, ready.ID)
	require.NoError(t, err)
	require.NoError(t, selectionRepo.SettleResult(ctx, readySelections[0].ID, entities.SelectionResultWon, 1, 0, time.Now().UTC()))

	// Only the first leg of the accumulator settles.
	accSelections, err := selectionRepo.GetByWager(ctx, notReady.ID)
	require.NoError(t, err)
	require.Len(t, accSelections, 2)
	require.NoError(t, selectionRepo.SettleResult(ctx, accSelections[0].ID, entities.SelectionResultWon, 1, 0, time.Now().UTC()))

	candidates, err := wagerRepo.GetFullySelectedPending(ctx, 100)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, ready.ID, candidates[0].ID)
}

func TestSelectionRepository_SettleResultOnce(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	wagerRepo := NewWagerRepository(testDB.DB)
	selectionRepo := NewSelectionRepository(testDB.DB)

	wager := testutil.CreateTestWager(42, 400)
	require.NoError(t, wagerRepo.Create(ctx, wager))

	selections, err := selectionRepo.GetByWager(ctx, wager.ID)
	require.NoError(t, err)
	selID := selections[0].ID

	require.NoError(t, selectionRepo.SettleResult(ctx, selID, entities.SelectionResultWon, 2, 0, time.Now().UTC()))

	saved, err := selectionRepo.GetByID(ctx, selID)
	require.NoError(t, err)
	assert.Equal(t, entities.SelectionResultWon, saved.Result)
	assert.Equal(t, 2, saved.DeadHeatDivisor)
	require.NotNil(t, saved.SettledAt)

	err = selectionRepo.SettleResult(ctx, selID, entities.SelectionResultLost, 1, 0, time.Now().UTC())
	require.Error(t, err)
}
