package notify

import (
	"context"
	"errors"
	"fmt"
	"log"

	"rental-marketplace/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InboxService delivers lifecycle notifications into the recipient's
// in-app inbox. Delivery is idempotent: a record whose dedupe key already
// exists is acknowledged without creating a duplicate, which is what makes
// at-least-once dispatch safe end to end.
type InboxService struct {
	db *gorm.DB
}

// NewInboxService creates a new inbox-backed notification service
func NewInboxService(db *gorm.DB) *InboxService {
	return &InboxService{db: db}
}

// Deliver implements lifecycle.Deliverer.
func (s *InboxService) Deliver(ctx context.Context, rec *models.NotificationRecord) error {
	if rec.DedupeKey == "" {
		return fmt.Errorf("notification for %s has no dedupe key", rec.Recipient)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	// Fast path: the key already exists, so the side effect already
	// happened. Acknowledge without a second insert.
	var existing models.NotificationRecord
	err := s.db.WithContext(ctx).
		Where("dedupe_key = ?", rec.DedupeKey).
		First(&existing).Error
	if err == nil {
		log.Printf("Notify: suppressing duplicate %s", rec.DedupeKey)
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check dedupe key %s: %w", rec.DedupeKey, err)
	}

	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		// Two dispatchers can race past the check; the unique index on
		// dedupe_key decides, and losing that race is still a delivery.
		var dup models.NotificationRecord
		if lookupErr := s.db.WithContext(ctx).Where("dedupe_key = ?", rec.DedupeKey).First(&dup).Error; lookupErr == nil {
			log.Printf("Notify: suppressing duplicate %s (insert race)", rec.DedupeKey)
			return nil
		}
		return fmt.Errorf("failed to store notification %s: %w", rec.DedupeKey, err)
	}
	return nil
}

// ListForRecipient returns the most recent inbox records for one recipient.
func (s *InboxService) ListForRecipient(ctx context.Context, recipient string, limit int) ([]models.NotificationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []models.NotificationRecord
	err := s.db.WithContext(ctx).
		Where("recipient = ?", recipient).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}
