package repository

import (
	"context"
	"fmt"
	"time"

	"bookie/settlement-engine/database"
	"bookie/settlement-engine/domain/entities"

	"github.com/jackc/pgx/v5"
)

// WagerRepository implements wager data access
type WagerRepository struct {
	db *database.DB
	q  Queryable
}

// NewWagerRepository creates a new wager repository
func NewWagerRepository(db *database.DB) *WagerRepository {
	return &WagerRepository{db: db, q: db.Pool}
}

const wagerColumns = `
	id, user_id, bet_type, stake, combined_odds, potential_payout,
	status, reference, created_at, settled_at
`

func scanWager(row pgx.Row) (*entities.Wager, error) {
	var wager entities.Wager
	err := row.Scan(
		&wager.ID,
		&wager.UserID,
		&wager.BetType,
		&wager.Stake,
		&wager.CombinedOdds,
		&wager.PotentialPayout,
		&wager.Status,
		&wager.Reference,
		&wager.CreatedAt,
		&wager.SettledAt,
	)
	if err != nil {
		return nil, err
	}
	return &wager, nil
}

// Create persists a new wager together with its selections in one transaction
func (r *WagerRepository) Create(ctx context.Context, wager *entities.Wager) error {
	if err := wager.Validate(); err != nil {
		return err
	}

	return r.withTx(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO wagers (
				user_id, bet_type, stake, combined_odds, potential_payout,
				status, reference
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at
		`
		err := tx.QueryRow(ctx, query,
			wager.UserID,
			wager.BetType,
			wager.Stake,
			wager.CombinedOdds,
			wager.PotentialPayout,
			wager.Status,
			wager.Reference,
		).Scan(&wager.ID, &wager.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create wager: %w", err)
		}

		for _, sel := range wager.Selections {
			sel.WagerID = wager.ID
			if err := sel.Validate(); err != nil {
				return err
			}
			selQuery := `
				INSERT INTO selections (
					wager_id, event_id, outcome, odds, result,
					dead_heat_divisor, withdrawn_odds
				)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				RETURNING id
			`
			err := tx.QueryRow(ctx, selQuery,
				sel.WagerID,
				sel.EventID,
				sel.Outcome,
				sel.Odds,
				sel.Result,
				sel.DeadHeatDivisor,
				sel.WithdrawnOdds,
			).Scan(&sel.ID)
			if err != nil {
				return fmt.Errorf("failed to create selection: %w", err)
			}
		}
		return nil
	})
}

// GetByID retrieves a wager by its ID
func (r *WagerRepository) GetByID(ctx context.Context, id int64) (*entities.Wager, error) {
	query := `SELECT ` + wagerColumns + ` FROM wagers WHERE id = $1`

	wager, err := scanWager(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wager by ID %d: %w", id, err)
	}
	return wager, nil
}

// GetByReference retrieves a wager by the payment reference on its stake
func (r *WagerRepository) GetByReference(ctx context.Context, reference string) (*entities.Wager, error) {
	query := `SELECT ` + wagerColumns + ` FROM wagers WHERE reference = $1`

	wager, err := scanWager(r.q.QueryRow(ctx, query, reference))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wager by reference %s: %w", reference, err)
	}
	return wager, nil
}

// GetPendingByEvent returns pending wagers holding at least one pending
// selection on the given event
func (r *WagerRepository) GetPendingByEvent(ctx context.Context, eventID int64) ([]*entities.Wager, error) {
	query := `
		SELECT DISTINCT w.id, w.user_id, w.bet_type, w.stake, w.combined_odds,
			w.potential_payout, w.status, w.reference, w.created_at, w.settled_at
		FROM wagers w
		JOIN selections s ON s.wager_id = w.id
		WHERE w.status = $1 AND s.event_id = $2 AND s.result = $3
		ORDER BY w.id
	`

	rows, err := r.q.Query(ctx, query, entities.WagerStatusPending, eventID, entities.SelectionResultPending)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending wagers for event %d: %w", eventID, err)
	}
	defer rows.Close()

	return r.collectWagers(rows)
}

// GetFullySelectedPending returns pending wagers whose selections all carry a
// result, i.e. candidates for the automated settlement sweep
func (r *WagerRepository) GetFullySelectedPending(ctx context.Context, limit int) ([]*entities.Wager, error) {
	query := `
		SELECT w.id, w.user_id, w.bet_type, w.stake, w.combined_odds,
			w.potential_payout, w.status, w.reference, w.created_at, w.settled_at
		FROM wagers w
		WHERE w.status = $1
		  AND NOT EXISTS (
			SELECT 1 FROM selections s
			WHERE s.wager_id = w.id AND s.result = $2
		  )
		ORDER BY w.id
		LIMIT $3
	`

	rows, err := r.q.Query(ctx, query, entities.WagerStatusPending, entities.SelectionResultPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sweep candidates: %w", err)
	}
	defer rows.Close()

	return r.collectWagers(rows)
}

// TransitionStatus performs the compare-and-set status update. The write
// succeeds only while the persisted status still equals expected; a false
// return means another actor settled the wager first.
func (r *WagerRepository) TransitionStatus(ctx context.Context, id int64, expected, target entities.WagerStatus, settledAt time.Time) (bool, error) {
	query := `
		UPDATE wagers
		SET status = $1, settled_at = $2
		WHERE id = $3 AND status = $4
	`

	tag, err := r.q.Exec(ctx, query, target, settledAt, id, expected)
	if err != nil {
		return false, fmt.Errorf("failed to transition wager %d to %s: %w", id, target, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *WagerRepository) collectWagers(rows pgx.Rows) ([]*entities.Wager, error) {
	var wagers []*entities.Wager
	for rows.Next() {
		wager, err := scanWager(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wager: %w", err)
		}
		wagers = append(wagers, wager)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate wagers: %w", err)
	}
	return wagers, nil
}

func (r *WagerRepository) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
