package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"rental-marketplace/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.NotificationRecord{},
		&models.NotificationOutbox{},
	))
	return db
}

type stubDeliverer struct {
	failures  int
	delivered int
}

func (s *stubDeliverer) Deliver(_ context.Context, _ *models.NotificationRecord) error {
	if s.failures > 0 {
		s.failures--
		return fmt.Errorf("notification service unavailable")
	}
	s.delivered++
	return nil
}

func seedOutboxEntry(t *testing.T, db *gorm.DB, key string) *models.NotificationOutbox {
	entry := &models.NotificationOutbox{
		Recipient: "tenant-1",
		Category:  models.NotificationLeaseWarning,
		Title:     "Lease ends in 7 days",
		EntityID:  "l1",
		DedupeKey: key,
		Status:    models.OutboxStatusPending,
	}
	require.NoError(t, db.Create(entry).Error)
	return entry
}

func TestOutboxWorker_DeliversPendingEntry(t *testing.T) {
	db := setupTestDB(t)
	deliverer := &stubDeliverer{}
	worker := NewOutboxWorker(db, deliverer, time.Second)
	seedOutboxEntry(t, db, "l1:warn:7")

	worker.ProcessNext()

	assert.Equal(t, 1, deliverer.delivered)

	var entry models.NotificationOutbox
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, models.OutboxStatusSent, entry.Status)
	assert.NotNil(t, entry.DeliveredAt)
	assert.Equal(t, 1, entry.Attempts)
}

func TestOutboxWorker_SchedulesRetryWithBackoff(t *testing.T) {
	db := setupTestDB(t)
	deliverer := &stubDeliverer{failures: 1}
	worker := NewOutboxWorker(db, deliverer, time.Second)
	seedOutboxEntry(t, db, "l1:warn:7")

	worker.ProcessNext()

	var entry models.NotificationOutbox
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, models.OutboxStatusFailed, entry.Status)
	assert.Equal(t, 1, entry.Attempts)
	require.NotNil(t, entry.NextRetryAt)
	assert.True(t, entry.NextRetryAt.After(time.Now()))
	assert.NotEmpty(t, entry.LastError)
}

func TestOutboxWorker_RespectsRetryTime(t *testing.T) {
	db := setupTestDB(t)
	deliverer := &stubDeliverer{}
	worker := NewOutboxWorker(db, deliverer, time.Second)

	entry := seedOutboxEntry(t, db, "l1:warn:7")
	future := time.Now().Add(time.Hour)
	require.NoError(t, db.Model(entry).Updates(map[string]interface{}{
		"status":        models.OutboxStatusFailed,
		"next_retry_at": future,
	}).Error)

	worker.ProcessNext()

	// Backoff has not elapsed: nothing delivered.
	assert.Equal(t, 0, deliverer.delivered)
}

func TestOutboxWorker_RetriesWhenDue(t *testing.T) {
	db := setupTestDB(t)
	deliverer := &stubDeliverer{}
	worker := NewOutboxWorker(db, deliverer, time.Second)

	entry := seedOutboxEntry(t, db, "l1:warn:7")
	past := time.Now().Add(-time.Minute)
	require.NoError(t, db.Model(entry).Updates(map[string]interface{}{
		"status":        models.OutboxStatusFailed,
		"next_retry_at": past,
		"attempts":      1,
	}).Error)

	worker.ProcessNext()

	assert.Equal(t, 1, deliverer.delivered)

	var stored models.NotificationOutbox
	require.NoError(t, db.First(&stored).Error)
	assert.Equal(t, models.OutboxStatusSent, stored.Status)
}

func TestOutboxWorker_PermanentFailAfterMaxAttempts(t *testing.T) {
	db := setupTestDB(t)
	deliverer := &stubDeliverer{failures: 100}
	worker := NewOutboxWorker(db, deliverer, time.Second)

	entry := seedOutboxEntry(t, db, "l1:warn:7")
	past := time.Now().Add(-time.Minute)
	require.NoError(t, db.Model(entry).Updates(map[string]interface{}{
		"status":        models.OutboxStatusFailed,
		"next_retry_at": past,
		"attempts":      models.MaxDeliveryAttempts - 1,
	}).Error)

	worker.ProcessNext()

	var stored models.NotificationOutbox
	require.NoError(t, db.First(&stored).Error)
	assert.Equal(t, models.OutboxStatusPermanentFail, stored.Status)
	assert.Nil(t, stored.NextRetryAt)
}

func TestOutboxWorker_QueueStats(t *testing.T) {
	db := setupTestDB(t)
	worker := NewOutboxWorker(db, &stubDeliverer{}, time.Second)

	seedOutboxEntry(t, db, "l1:warn:7")
	seedOutboxEntry(t, db, "l2:warn:7")

	stats := worker.GetQueueStats()
	assert.Equal(t, int64(2), stats["pending"])
	assert.Equal(t, int64(0), stats["sent"])
	assert.Equal(t, false, stats["is_running"])
}
