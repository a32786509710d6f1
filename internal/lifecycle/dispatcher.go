package lifecycle

import (
	"context"
	"log"
	"time"

	"rental-marketplace/internal/database"
	"rental-marketplace/internal/models"
)

// Deliverer is the notification service the dispatcher hands records to.
// Delivery must be idempotent on the recipient's inbox: a record whose
// dedupe key was already delivered is acknowledged without a second effect.
type Deliverer interface {
	Deliver(ctx context.Context, rec *models.NotificationRecord) error
}

// Dispatcher performs best-effort, at-least-once delivery of the
// notifications a run produced. Delivery failures never roll back the state
// transition that produced the notification; after the bounded retry the
// record is parked in the outbox for the background worker.
type Dispatcher struct {
	deliverer Deliverer
	store     *database.GormDB
	timeout   time.Duration
	retries   int
}

// NewDispatcher creates a new notification dispatcher. retries is the number
// of additional attempts after the first failure.
func NewDispatcher(deliverer Deliverer, store *database.GormDB, timeout time.Duration, retries int) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if retries < 0 {
		retries = 0
	}
	return &Dispatcher{
		deliverer: deliverer,
		store:     store,
		timeout:   timeout,
		retries:   retries,
	}
}

// Dispatch attempts to deliver each record, returning how many were
// delivered and how many ended in error after the bounded retry.
func (d *Dispatcher) Dispatch(ctx context.Context, records []models.NotificationRecord) (delivered, failed int) {
	for i := range records {
		rec := &records[i]
		if err := d.deliverWithRetry(ctx, rec); err != nil {
			log.Printf("Lifecycle: delivery failed for %s after retries: %v", rec.DedupeKey, err)
			d.parkInOutbox(ctx, rec, err)
			failed++
			continue
		}
		delivered++
	}
	return delivered, failed
}

func (d *Dispatcher) deliverWithRetry(ctx context.Context, rec *models.NotificationRecord) error {
	var lastErr error
	for attempt := 0; attempt <= d.retries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, d.timeout)
		lastErr = d.deliverer.Deliver(callCtx, rec)
		cancel()
		if lastErr == nil {
			return nil
		}
		log.Printf("Lifecycle: delivery attempt %d for %s failed: %v", attempt+1, rec.DedupeKey, lastErr)
	}
	return lastErr
}

// parkInOutbox stores the failed record for the outbox worker. If even that
// fails there is nothing left to do but log; the dedupe key makes a later
// full re-run safe.
func (d *Dispatcher) parkInOutbox(ctx context.Context, rec *models.NotificationRecord, cause error) {
	if d.store == nil {
		return
	}
	entry := &models.NotificationOutbox{
		Recipient: rec.Recipient,
		Category:  rec.Category,
		Title:     rec.Title,
		Body:      rec.Body,
		EntityID:  rec.EntityID,
		DedupeKey: rec.DedupeKey,
		Status:    models.OutboxStatusPending,
		LastError: cause.Error(),
	}
	if err := d.store.DB().WithContext(ctx).Create(entry).Error; err != nil {
		log.Printf("Lifecycle: failed to park notification %s in outbox: %v", rec.DedupeKey, err)
	}
}
