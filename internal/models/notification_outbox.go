package models

import (
	"time"
)

// NotificationOutbox holds notifications whose immediate delivery failed.
// The outbox worker retries them in the background so a flaky notification
// service never blocks or rolls back an already-committed state transition.
type NotificationOutbox struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Recipient string `gorm:"type:varchar(36);not null" json:"recipient"`

	Category NotificationCategory `gorm:"type:varchar(50);not null" json:"category"`
	Title    string               `gorm:"type:text;not null" json:"title"`
	Body     string               `gorm:"type:text" json:"body,omitempty"`
	EntityID string               `gorm:"type:varchar(36);not null" json:"entity_id"`

	// Same key as the eventual inbox record, so retries after a partial
	// delivery stay idempotent.
	DedupeKey string `gorm:"type:varchar(191);not null;index" json:"dedupe_key"`

	Status      string     `gorm:"type:varchar(20);not null;default:'pending';index:idx_outbox_status" json:"status"` // pending, processing, sent, failed, permanent_fail
	Attempts    int        `gorm:"default:0" json:"attempts"`
	LastError   string     `gorm:"type:text" json:"last_error,omitempty"`
	NextRetryAt *time.Time `gorm:"index:idx_outbox_retry" json:"next_retry_at,omitempty"`

	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
}

// TableName specifies the table name for GORM
func (NotificationOutbox) TableName() string {
	return "notification_outbox"
}

// Outbox status constants
const (
	OutboxStatusPending       = "pending"
	OutboxStatusProcessing    = "processing"
	OutboxStatusSent          = "sent"
	OutboxStatusFailed        = "failed"
	OutboxStatusPermanentFail = "permanent_fail"
)

// MaxDeliveryAttempts before an outbox entry is marked permanently failed
const MaxDeliveryAttempts = 5

// NextRetryDelay calculates exponential backoff for outbox redelivery
func NextRetryDelay(attempts int) time.Duration {
	// 1min, 5min, 15min, 1h, 4h
	delays := []time.Duration{
		1 * time.Minute,
		5 * time.Minute,
		15 * time.Minute,
		1 * time.Hour,
		4 * time.Hour,
	}

	if attempts >= len(delays) {
		return delays[len(delays)-1]
	}
	return delays[attempts]
}

// Record converts the outbox entry into the inbox record to deliver.
func (o *NotificationOutbox) Record(id string) *NotificationRecord {
	return &NotificationRecord{
		ID:        id,
		Recipient: o.Recipient,
		Category:  o.Category,
		Title:     o.Title,
		Body:      o.Body,
		EntityID:  o.EntityID,
		DedupeKey: o.DedupeKey,
	}
}
