package repository

import (
	"context"
	"fmt"
	"time"

	"bookie/settlement-engine/database"
	"bookie/settlement-engine/domain/entities"

	"github.com/jackc/pgx/v5"
)

// SelectionRepository implements wager leg data access
type SelectionRepository struct {
	q Queryable
}

// NewSelectionRepository creates a new selection repository
func NewSelectionRepository(db *database.DB) *SelectionRepository {
	return &SelectionRepository{q: db.Pool}
}

const selectionColumns = `
	id, wager_id, event_id, outcome, odds, result,
	dead_heat_divisor, withdrawn_odds, settled_at
`

func scanSelection(row pgx.Row) (*entities.Selection, error) {
	var sel entities.Selection
	err := row.Scan(
		&sel.ID,
		&sel.WagerID,
		&sel.EventID,
		&sel.Outcome,
		&sel.Odds,
		&sel.Result,
		&sel.DeadHeatDivisor,
		&sel.WithdrawnOdds,
		&sel.SettledAt,
	)
	if err != nil {
		return nil, err
	}
	return &sel, nil
}

// GetByWager returns all selections belonging to a wager in placement order
func (r *SelectionRepository) GetByWager(ctx context.Context, wagerID int64) ([]*entities.Selection, error) {
	query := `SELECT ` + selectionColumns + ` FROM selections WHERE wager_id = $1 ORDER BY id`

	rows, err := r.q.Query(ctx, query, wagerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query selections for wager %d: %w", wagerID, err)
	}
	defer rows.Close()

	var selections []*entities.Selection
	for rows.Next() {
		sel, err := scanSelection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan selection: %w", err)
		}
		selections = append(selections, sel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate selections: %w", err)
	}
	return selections, nil
}

// GetByID retrieves a selection by its ID
func (r *SelectionRepository) GetByID(ctx context.Context, id int64) (*entities.Selection, error) {
	query := `SELECT ` + selectionColumns + ` FROM selections WHERE id = $1`

	sel, err := scanSelection(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get selection by ID %d: %w", id, err)
	}
	return sel, nil
}

// SettleResult records a leg outcome together with its racing adjustments.
// A leg result is written once; settled legs are never updated.
func (r *SelectionRepository) SettleResult(ctx context.Context, id int64, result entities.SelectionResult, deadHeatDivisor int, withdrawnOdds float64, settledAt time.Time) error {
	query := `
		UPDATE selections
		SET result = $1, dead_heat_divisor = $2, withdrawn_odds = $3, settled_at = $4
		WHERE id = $5 AND result = $6
	`

	tag, err := r.q.Exec(ctx, query, result, deadHeatDivisor, withdrawnOdds, settledAt, id, entities.SelectionResultPending)
	if err != nil {
		return fmt.Errorf("failed to settle selection %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("selection %d is not pending", id)
	}
	return nil
}
