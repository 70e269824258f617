package application

import (
	"context"
	"time"

	"bookie/settlement-engine/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// SettlementSweepWorker periodically settles pending wagers whose legs all
// carry results. It is the safety net behind event-driven settlement: a wager
// missed by a match settlement call is picked up on the next sweep.
//
// When constructed with a transactional publisher, the events raised during a
// sweep are held back and flushed as one batch once the pass completes.
type SettlementSweepWorker struct {
	settlementService interfaces.SettlementService
	batchPublisher    interfaces.TransactionalEventPublisher
	interval          time.Duration
}

// NewSettlementSweepWorker creates a new settlement sweep worker.
// batchPublisher may be nil, in which case events go out as they occur.
func NewSettlementSweepWorker(settlementService interfaces.SettlementService, batchPublisher interfaces.TransactionalEventPublisher, interval time.Duration) *SettlementSweepWorker {
	return &SettlementSweepWorker{
		settlementService: settlementService,
		batchPublisher:    batchPublisher,
		interval:          interval,
	}
}

// Start begins the sweep loop and returns a stop function
func (w *SettlementSweepWorker) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})

	go func() {
		log.WithField("interval", w.interval).Info("Settlement sweep worker started")

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info("Settlement sweep worker shutting down (context cancelled)")
				return
			case <-stopChan:
				log.Info("Settlement sweep worker shutting down (stop requested)")
				return
			case <-ticker.C:
				w.runSweep(ctx)
			}
		}
	}()

	return func() {
		close(stopChan)
	}
}

// runSweep executes one sweep pass
func (w *SettlementSweepWorker) runSweep(ctx context.Context) {
	results, err := w.settlementService.AutoSettle(ctx)
	if err != nil {
		log.WithError(err).Error("Settlement sweep failed")
		if w.batchPublisher != nil {
			w.batchPublisher.Discard()
		}
		return
	}

	if w.batchPublisher != nil {
		if err := w.batchPublisher.Flush(ctx); err != nil {
			log.WithError(err).Error("Failed to flush sweep events")
		}
	}

	if len(results) == 0 {
		return
	}

	var settled, failed int
	var payoutTotal int64
	for _, item := range results {
		if item.Err != nil {
			failed++
			continue
		}
		settled++
		payoutTotal += item.Payout
	}

	log.WithFields(log.Fields{
		"candidates":  len(results),
		"settled":     settled,
		"failed":      failed,
		"payoutTotal": payoutTotal,
	}).Info("Completed settlement sweep")
}
