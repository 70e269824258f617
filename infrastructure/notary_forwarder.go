package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"bookie/settlement-engine/domain/entities"
	"bookie/settlement-engine/domain/events"
	"bookie/settlement-engine/domain/interfaces"
	"bookie/settlement-engine/infrastructure/observability"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// NotaryForwarder forwards qualifying settlement outcomes to an external
// notarization service. It consumes WagerSettledEvent asynchronously, so a
// slow or dead notary never delays settlement itself.
type NotaryForwarder struct {
	client      *http.Client
	notaryURL   string
	payoutFloor int64
	maxAttempts int
	backoff     time.Duration
	repo        interfaces.NotarizationRepository
}

// NewNotaryForwarder creates a new notary forwarder
func NewNotaryForwarder(notaryURL string, payoutFloor int64, repo interfaces.NotarizationRepository) *NotaryForwarder {
	return &NotaryForwarder{
		client:      &http.Client{Timeout: 10 * time.Second},
		notaryURL:   notaryURL,
		payoutFloor: payoutFloor,
		maxAttempts: 3,
		backoff:     2 * time.Second,
		repo:        repo,
	}
}

// notarySubmission is the request body sent to the external notary
type notarySubmission struct {
	SubmissionID string    `json:"submission_id"`
	WagerID      int64     `json:"wager_id"`
	UserID       int64     `json:"user_id"`
	Result       string    `json:"result"`
	Stake        int64     `json:"stake"`
	Payout       int64     `json:"payout"`
	SettledAt    time.Time `json:"settled_at"`
}

// HandleWagerSettled is the event handler wired to settlements.wager_settled
func (f *NotaryForwarder) HandleWagerSettled(ctx context.Context, event events.Event) error {
	settled, ok := event.(*events.WagerSettledEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	if !f.qualifies(settled) {
		return nil
	}

	record := &entities.NotarizationRecord{
		SubmissionID: uuid.New().String(),
		WagerID:      settled.WagerID,
		UserID:       settled.UserID,
		Payout:       settled.Payout,
		Status:       entities.NotarizationStatusSubmitted,
	}

	submission := notarySubmission{
		SubmissionID: record.SubmissionID,
		WagerID:      settled.WagerID,
		UserID:       settled.UserID,
		Result:       string(settled.Result),
		Stake:        settled.Stake,
		Payout:       settled.Payout,
		SettledAt:    settled.SettledAt,
	}

	if err := f.submitWithRetry(ctx, record, submission); err != nil {
		record.Status = entities.NotarizationStatusFailed
		record.LastError = err.Error()
		if m := observability.GetMetrics(); m != nil {
			m.RecordNotarizationFailure()
		}
		log.WithFields(log.Fields{
			"wagerId":      settled.WagerID,
			"submissionId": record.SubmissionID,
			"attempts":     record.Attempts,
			"error":        err,
		}).Error("Notarization failed after retries")
	}

	if err := f.repo.Record(ctx, record); err != nil {
		return fmt.Errorf("failed to record notarization outcome: %w", err)
	}

	// A failed forward is recorded for review, not re-queued. Returning nil
	// acknowledges the message so the broker does not redeliver it.
	return nil
}

// qualifies returns true for outcomes the notary must see: wins and cashouts
// at or above the payout floor
func (f *NotaryForwarder) qualifies(settled *events.WagerSettledEvent) bool {
	if settled.Result != entities.WagerStatusWon && settled.Result != entities.WagerStatusCashedOut {
		return false
	}
	return settled.Payout >= f.payoutFloor
}

func (f *NotaryForwarder) submitWithRetry(ctx context.Context, record *entities.NotarizationRecord, submission notarySubmission) error {
	body, err := json.Marshal(submission)
	if err != nil {
		return fmt.Errorf("failed to marshal submission: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		record.Attempts = attempt

		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(f.backoff * time.Duration(attempt-1)):
			}
		}

		lastErr = f.submit(ctx, body)
		if lastErr == nil {
			return nil
		}

		log.WithFields(log.Fields{
			"submissionId": submission.SubmissionID,
			"attempt":      attempt,
			"error":        lastErr,
		}).Warn("Notary submission attempt failed")
	}

	return lastErr
}

func (f *NotaryForwarder) submit(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.notaryURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build notary request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return &entities.ExternalServiceError{Service: "notary", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &entities.ExternalServiceError{
			Service: "notary",
			Err:     fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}
	return nil
}
