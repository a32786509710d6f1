package models

import (
	"fmt"
	"time"
)

// NotificationRecord is one message in a recipient's inbox. Records are
// immutable after creation; the unique DedupeKey is what makes redelivery
// of the same lifecycle event a no-op for the inbox.
type NotificationRecord struct {
	ID        string `gorm:"type:varchar(36);primaryKey" json:"id"`
	Recipient string `gorm:"type:varchar(36);not null;index" json:"recipient"`

	Category NotificationCategory `gorm:"type:varchar(50);not null;index" json:"category"`
	Title    string               `gorm:"type:text;not null" json:"title"`
	Body     string               `gorm:"type:text" json:"body,omitempty"`

	// EntityID is the lease or application the notification is about.
	EntityID string `gorm:"type:varchar(36);not null;index" json:"entity_id"`

	// DedupeKey is entityID:event:thresholdOrReason. A second delivery with
	// the same key is recognized and suppressed.
	DedupeKey string `gorm:"type:varchar(191);not null;uniqueIndex" json:"dedupe_key"`

	CreatedAt time.Time `gorm:"type:datetime;not null;autoCreateTime;index" json:"created_at"`
}

// TableName specifies the table name for GORM
func (NotificationRecord) TableName() string {
	return "notification_records"
}

// NotificationCategory classifies lifecycle notifications
type NotificationCategory string

const (
	NotificationLeaseWarning        NotificationCategory = "lease_warning"
	NotificationLeaseExpired        NotificationCategory = "lease_expired"
	NotificationApplicationOverdue  NotificationCategory = "application_overdue"
	NotificationApplicationDecision NotificationCategory = "application_decision"
)

// DedupeKey builds the stable key for a lifecycle event on an entity.
// reason is the warning threshold for warnings, or a short event reason
// otherwise (e.g. "expired", "auto_reject").
func DedupeKey(entityID, event, reason string) string {
	return fmt.Sprintf("%s:%s:%s", entityID, event, reason)
}
