package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func legs(results ...SelectionResult) []*Selection {
	selections := make([]*Selection, len(results))
	for i, r := range results {
		selections[i] = &Selection{ID: int64(i + 1), Result: r}
	}
	return selections
}

func TestWagerOverallStatus(t *testing.T) {
	w := &Wager{ID: 1, BetType: BetTypeMultiple}

	t.Run("nil without selections", func(t *testing.T) {
		assert.Nil(t, w.OverallStatus(nil))
	})

	t.Run("open while all legs pend", func(t *testing.T) {
		assert.Nil(t, w.OverallStatus(legs(SelectionResultPending, SelectionResultPending)))
	})

	t.Run("won once every leg won", func(t *testing.T) {
		status := w.OverallStatus(legs(SelectionResultWon, SelectionResultWon))
		require.NotNil(t, status)
		assert.Equal(t, WagerStatusWon, *status)
	})

	t.Run("lost leg loses the slip regardless of order", func(t *testing.T) {
		for _, selections := range [][]*Selection{
			legs(SelectionResultLost, SelectionResultPending),
			legs(SelectionResultPending, SelectionResultLost),
			legs(SelectionResultWon, SelectionResultPending, SelectionResultLost),
		} {
			status := w.OverallStatus(selections)
			require.NotNil(t, status)
			assert.Equal(t, WagerStatusLost, *status)
		}
	})

	t.Run("void only when every leg voided", func(t *testing.T) {
		status := w.OverallStatus(legs(SelectionResultVoid, SelectionResultVoid))
		require.NotNil(t, status)
		assert.Equal(t, WagerStatusVoid, *status)

		status = w.OverallStatus(legs(SelectionResultVoid, SelectionResultWon))
		require.NotNil(t, status)
		assert.Equal(t, WagerStatusWon, *status)
	})
}
