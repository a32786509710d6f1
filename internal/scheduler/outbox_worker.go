package scheduler

import (
	"context"
	"log"
	"time"

	"rental-marketplace/internal/lifecycle"
	"rental-marketplace/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OutboxWorker redelivers notifications whose immediate dispatch failed.
// It polls the outbox table and retries entries with exponential backoff
// until delivery succeeds or the attempt budget runs out. The inbox dedupe
// key keeps redelivery idempotent even if an entry is picked up twice.
type OutboxWorker struct {
	db           *gorm.DB
	deliverer    lifecycle.Deliverer
	stopChan     chan struct{}
	isRunning    bool
	pollInterval time.Duration
}

// NewOutboxWorker creates a new outbox worker
func NewOutboxWorker(db *gorm.DB, deliverer lifecycle.Deliverer, pollInterval time.Duration) *OutboxWorker {
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	return &OutboxWorker{
		db:           db,
		deliverer:    deliverer,
		stopChan:     make(chan struct{}),
		pollInterval: pollInterval,
	}
}

// Start starts the worker loop
func (w *OutboxWorker) Start() {
	if w.isRunning {
		log.Println("OutboxWorker: Already running")
		return
	}

	w.isRunning = true
	log.Printf("OutboxWorker: Started (poll_interval=%v)", w.pollInterval)

	go w.run()
}

// Stop stops the worker
func (w *OutboxWorker) Stop() {
	if !w.isRunning {
		return
	}

	log.Println("OutboxWorker: Stopping...")
	w.isRunning = false
	close(w.stopChan)
}

func (w *OutboxWorker) run() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			log.Println("OutboxWorker: Stopped")
			return
		case <-ticker.C:
			w.ProcessNext()
		}
	}
}

// ProcessNext picks the next due outbox entry and attempts redelivery.
// Exposed for tests and for draining from the CLI.
func (w *OutboxWorker) ProcessNext() {
	var entry models.NotificationOutbox
	now := time.Now()

	// Fresh failures first, then retries whose backoff has elapsed.
	result := w.db.Where("status = ?", models.OutboxStatusPending).
		Order("created_at ASC").
		First(&entry)
	if result.Error == gorm.ErrRecordNotFound {
		result = w.db.Where("status = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?", models.OutboxStatusFailed, now).
			Order("created_at ASC").
			First(&entry)
	}

	if result.Error != nil {
		if result.Error != gorm.ErrRecordNotFound {
			log.Printf("OutboxWorker: Error fetching next outbox entry: %v", result.Error)
		}
		return
	}

	w.processEntry(&entry)
}

func (w *OutboxWorker) processEntry(entry *models.NotificationOutbox) {
	log.Printf("OutboxWorker: Delivering id=%d key=%s attempt=%d", entry.ID, entry.DedupeKey, entry.Attempts+1)

	entry.Status = models.OutboxStatusProcessing
	entry.Attempts++
	if err := w.db.Save(entry).Error; err != nil {
		log.Printf("OutboxWorker: Failed to mark entry as processing: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err := w.deliverer.Deliver(ctx, entry.Record(uuid.NewString()))
	cancel()

	if err != nil {
		w.handleDeliveryError(entry, err)
		return
	}

	deliveredAt := time.Now()
	entry.Status = models.OutboxStatusSent
	entry.LastError = ""
	entry.DeliveredAt = &deliveredAt
	entry.NextRetryAt = nil

	if err := w.db.Save(entry).Error; err != nil {
		log.Printf("OutboxWorker: Failed to mark entry as sent: %v", err)
	} else {
		log.Printf("OutboxWorker: Delivered id=%d key=%s", entry.ID, entry.DedupeKey)
	}
}

func (w *OutboxWorker) handleDeliveryError(entry *models.NotificationOutbox, err error) {
	log.Printf("OutboxWorker: Delivery failed for id=%d: %v", entry.ID, err)

	if entry.Attempts >= models.MaxDeliveryAttempts {
		log.Printf("OutboxWorker: Max attempts exceeded for id=%d (%d attempts)", entry.ID, entry.Attempts)
		entry.Status = models.OutboxStatusPermanentFail
		entry.LastError = err.Error()
		entry.NextRetryAt = nil
	} else {
		delay := models.NextRetryDelay(entry.Attempts - 1) // -1 because we already incremented Attempts
		nextRetry := time.Now().Add(delay)
		entry.Status = models.OutboxStatusFailed
		entry.LastError = err.Error()
		entry.NextRetryAt = &nextRetry
		log.Printf("OutboxWorker: Scheduling retry for id=%d in %v (attempt %d/%d)",
			entry.ID, delay, entry.Attempts, models.MaxDeliveryAttempts)
	}

	if saveErr := w.db.Save(entry).Error; saveErr != nil {
		log.Printf("OutboxWorker: Failed to save retry status: %v", saveErr)
	}
}

// GetQueueStats returns current outbox statistics
func (w *OutboxWorker) GetQueueStats() map[string]interface{} {
	var stats struct {
		Pending       int64
		Processing    int64
		Sent          int64
		Failed        int64
		PermanentFail int64
	}

	w.db.Model(&models.NotificationOutbox{}).Where("status = ?", models.OutboxStatusPending).Count(&stats.Pending)
	w.db.Model(&models.NotificationOutbox{}).Where("status = ?", models.OutboxStatusProcessing).Count(&stats.Processing)
	w.db.Model(&models.NotificationOutbox{}).Where("status = ?", models.OutboxStatusSent).Count(&stats.Sent)
	w.db.Model(&models.NotificationOutbox{}).Where("status = ?", models.OutboxStatusFailed).Count(&stats.Failed)
	w.db.Model(&models.NotificationOutbox{}).Where("status = ?", models.OutboxStatusPermanentFail).Count(&stats.PermanentFail)

	return map[string]interface{}{
		"pending":        stats.Pending,
		"processing":     stats.Processing,
		"sent":           stats.Sent,
		"failed":         stats.Failed,
		"permanent_fail": stats.PermanentFail,
		"is_running":     w.isRunning,
	}
}
