package repository

import (
	"context"
	"fmt"

	"bookie/settlement-engine/database"
	"bookie/settlement-engine/domain/entities"
)

// NotarizationRepository implements notarization side-record storage
type NotarizationRepository struct {
	q Queryable
}

// NewNotarizationRepository creates a new notarization repository
func NewNotarizationRepository(db *database.DB) *NotarizationRepository {
	return &NotarizationRepository{q: db.Pool}
}

// Record persists the outcome of a notarization attempt
func (r *NotarizationRepository) Record(ctx context.Context, record *entities.NotarizationRecord) error {
	query := `
		INSERT INTO notarization_records (
			submission_id, wager_id, user_id, payout, status, attempts, last_error
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		record.SubmissionID,
		record.WagerID,
		record.UserID,
		record.Payout,
		record.Status,
		record.Attempts,
		record.LastError,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record notarization attempt: %w", err)
	}
	return nil
}

// GetFailed returns permanently failed records for operational review
func (r *NotarizationRepository) GetFailed(ctx context.Context, limit int) ([]*entities.NotarizationRecord, error) {
	query := `
		SELECT id, submission_id, wager_id, user_id, payout, status, attempts, last_error, created_at
		FROM notarization_records
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, entities.NotarizationStatusFailed, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query failed notarizations: %w", err)
	}
	defer rows.Close()

	var records []*entities.NotarizationRecord
	for rows.Next() {
		var record entities.NotarizationRecord
		err := rows.Scan(
			&record.ID,
			&record.SubmissionID,
			&record.WagerID,
			&record.UserID,
			&record.Payout,
			&record.Status,
			&record.Attempts,
			&record.LastError,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notarization record: %w", err)
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notarization records: %w", err)
	}
	return records, nil
}
