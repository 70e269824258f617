package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"bookie/settlement-engine/domain/entities"
	"bookie/settlement-engine/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerRepository_Append(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	repo := NewLedgerRepository(testDB.DB)

	t.Run("first entry links to the genesis hash", func(t *testing.T) {
		entry := testutil.CreateTestLedgerEntry(42, 5000, "DEP-001")
		entry.CreatedAt = time.Now().UTC()
		require.NoError(t, repo.Append(ctx, entry))

		assert.Equal(t, entities.GenesisHash(), entry.PrevHash)
		assert.Equal(t, int64(0), entry.BalanceBefore)
		assert.Equal(t, int64(5000), entry.BalanceAfter)
		assert.True(t, entry.VerifyHash())
	})

	t.Run("subsequent entries chain to the predecessor", func(t *testing.T) {
		first, err := repo.GetLatestByUser(ctx, 42)
		require.NoError(t, err)
		require.NotNil(t, first)

		second := testutil.CreateTestLedgerEntry(42, -2000, "WDR-001")
		second.Type = entities.TransactionTypeWithdrawal
		second.CreatedAt = time.Now().UTC()
		require.NoError(t, repo.Append(ctx, second))

		assert.Equal(t, first.Hash, second.PrevHash)
		assert.Equal(t, first.BalanceAfter, second.BalanceBefore)
		assert.Equal(t, int64(3000), second.BalanceAfter)
		assert.Greater(t, second.Sequence, first.Sequence)
	})

	t.Run("overdraft is rejected", func(t *testing.T) {
		entry := testutil.CreateTestLedgerEntry(42, -1000000, "WDR-002")
		entry.Type = entities.TransactionTypeWithdrawal
		entry.CreatedAt = time.Now().UTC()

		var insufficientFunds *entities.InsufficientFundsError
		err := repo.Append(ctx, entry)
		require.ErrorAs(t, err, &insufficientFunds)
		assert.Equal(t, int64(42), insufficientFunds.UserID)

		// Nothing was written.
		latest, err := repo.GetLatestByUser(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, "WDR-001", latest.Reference)
	})

	t.Run("metadata round-trips", func(t *testing.T) {
		entry := testutil.CreateTestLedgerEntry(7, 3500, "wager:9")
		entry.Type = entities.TransactionTypeWagerPayout
		entry.CreatedAt = time.Now().UTC()
		entry.Metadata = entities.WagerSettlementMetadata{
			WagerID: 9,
			Result:  string(entities.WagerStatusWon),
		}
		require.NoError(t, repo.Append(ctx, entry))

		entries, err := repo.GetAllByUser(ctx, 7)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		meta, ok := entries[0].Metadata.(entities.WagerSettlementMetadata)
		require.True(t, ok)
		assert.Equal(t, int64(9), meta.WagerID)
	})
}

func TestLedgerRepository_ConcurrentAppendsStayChained(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	repo := NewLedgerRepository(testDB.DB)

	seed := testutil.CreateTestLedgerEntry(42, 100000, "DEP-SEED")
	seed.CreatedAt = time.Now().UTC()
	require.NoError(t, repo.Append(ctx, seed))

	const writers = 10
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			entry := testutil.CreateTestLedgerEntry(42, -1000, "WDR-RACE")
			entry.Type = entities.TransactionTypeWithdrawal
			entry.CreatedAt = time.Now().UTC()
			assert.NoError(t, repo.Append(ctx, entry))
		}(i)
	}
	wg.Wait()

	entries, err := repo.GetAllByUser(ctx, 42)
	require.NoError(t, err)
	require.Len(t, entries, writers+1)

	// Every entry must link to its predecessor with consistent balances.
	prevHash := entities.GenesisHash()
	prevBalance := int64(0)
	for _, entry := range entries {
		assert.Equal(t, prevHash, entry.PrevHash)
		assert.Equal(t, prevBalance, entry.BalanceBefore)
		assert.Equal(t, entry.BalanceBefore+entry.Amount, entry.BalanceAfter)
		assert.True(t, entry.VerifyHash())
		prevHash = entry.Hash
		prevBalance = entry.BalanceAfter
	}
	assert.Equal(t, int64(90000), prevBalance)
}

func TestLedgerRepository_AppendOnlyEnforcedByDatabase(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	repo := NewLedgerRepository(testDB.DB)

	entry := testutil.CreateTestLedgerEntry(42, 5000, "DEP-001")
	entry.CreatedAt = time.Now().UTC()
	require.NoError(t, repo.Append(ctx, entry))

	_, err := testDB.DB.Exec(ctx, `UPDATE ledger_entries SET amount = 1 WHERE sequence = $1`, entry.Sequence)
	require.Error(t, err)

	_, err = testDB.DB.Exec(ctx, `DELETE FROM ledger_entries WHERE sequence = $1`, entry.Sequence)
	require.Error(t, err)
}

func TestLedgerRepository_PeriodQueries(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	repo := NewLedgerRepository(testDB.DB)

	now := time.Now().UTC()

	deposit := testutil.CreateTestLedgerEntry(42, 5000, "DEP-001")
	deposit.CreatedAt = now
	require.NoError(t, repo.Append(ctx, deposit))

	payout := testutil.CreateTestLedgerEntry(42, 3500, "wager:1")
	payout.Type = entities.TransactionTypeWagerPayout
	payout.CreatedAt = now
	require.NoError(t, repo.Append(ctx, payout))

	from := now.Add(-time.Hour)
	to := now.Add(time.Hour)

	all, err := repo.GetByPeriod(ctx, from, to)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	external, err := repo.GetExternalByPeriod(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, external, 1)
	assert.Equal(t, entities.TransactionTypeDeposit, external[0].Type)

	empty, err := repo.GetByPeriod(ctx, from.Add(-48*time.Hour), from.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, empty)
}
