package cleanup

import (
	"fmt"
	"log"
	"time"

	"rental-marketplace/internal/models"

	"gorm.io/gorm"
)

// Service purges old automation artifacts: delivered notifications, settled
// outbox entries and stale transition logs. Business entities are never
// touched here.
type Service struct {
	db *gorm.DB
}

// NewService creates a new cleanup service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CleanupConfig holds configuration for cleanup operations
type CleanupConfig struct {
	RetentionDays    int  // Days to keep records before deletion (default: 90)
	MaxDeletionCount int  // Maximum number of rows to delete in one run (safety limit)
	DryRun           bool // If true, only log what would be deleted without actually deleting
}

// DefaultCleanupConfig returns default configuration
func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{
		RetentionDays:    90,
		MaxDeletionCount: 10000,
		DryRun:           false,
	}
}

// CleanupResult holds the result of a cleanup operation
type CleanupResult struct {
	NotificationsTarget  int64     `json:"notifications_target"`
	NotificationsDeleted int64     `json:"notifications_deleted"`
	OutboxTarget         int64     `json:"outbox_target"`
	OutboxDeleted        int64     `json:"outbox_deleted"`
	LogsTarget           int64     `json:"logs_target"`
	LogsDeleted          int64     `json:"logs_deleted"`
	ErrorCount           int       `json:"error_count"`
	DryRun               bool      `json:"dry_run"`
	ExecutedAt           time.Time `json:"executed_at"`
	Errors               []string  `json:"errors,omitempty"`
}

// Purge deletes automation records older than the retention window.
func (s *Service) Purge(config CleanupConfig) (*CleanupResult, error) {
	result := &CleanupResult{
		DryRun:     config.DryRun,
		ExecutedAt: time.Now(),
	}

	cutoff := time.Now().AddDate(0, 0, -config.RetentionDays)
	log.Printf("Cleanup: Starting purge of records older than %s (retention: %d days, dry-run: %v)",
		cutoff.Format("2006-01-02"), config.RetentionDays, config.DryRun)

	// Count everything first so the safety check covers the whole run.
	if err := s.db.Model(&models.NotificationRecord{}).
		Where("created_at < ?", cutoff).
		Count(&result.NotificationsTarget).Error; err != nil {
		return nil, fmt.Errorf("failed to count old notifications: %w", err)
	}
	if err := s.db.Model(&models.NotificationOutbox{}).
		Where("status IN ? AND updated_at < ?", []string{models.OutboxStatusSent, models.OutboxStatusPermanentFail}, cutoff).
		Count(&result.OutboxTarget).Error; err != nil {
		return nil, fmt.Errorf("failed to count settled outbox entries: %w", err)
	}
	if err := s.db.Model(&models.TransitionLog{}).
		Where("applied_at < ?", cutoff).
		Count(&result.LogsTarget).Error; err != nil {
		return nil, fmt.Errorf("failed to count old transition logs: %w", err)
	}

	total := result.NotificationsTarget + result.OutboxTarget + result.LogsTarget
	if total == 0 {
		log.Println("Cleanup: Nothing to purge")
		return result, nil
	}

	// Safety check: abort if too many rows would be deleted
	if total > int64(config.MaxDeletionCount) {
		return nil, fmt.Errorf("safety check failed: %d rows exceed max deletion limit of %d",
			total, config.MaxDeletionCount)
	}

	if config.DryRun {
		log.Printf("Cleanup: [DRY-RUN] Would delete %d notifications, %d outbox entries, %d transition logs",
			result.NotificationsTarget, result.OutboxTarget, result.LogsTarget)
		return result, nil
	}

	res := s.db.Where("created_at < ?", cutoff).Delete(&models.NotificationRecord{})
	if res.Error != nil {
		errMsg := fmt.Sprintf("Failed to delete old notifications: %v", res.Error)
		log.Printf("ERROR: %s", errMsg)
		result.Errors = append(result.Errors, errMsg)
		result.ErrorCount++
	} else {
		result.NotificationsDeleted = res.RowsAffected
	}

	res = s.db.Where("status IN ? AND updated_at < ?", []string{models.OutboxStatusSent, models.OutboxStatusPermanentFail}, cutoff).
		Delete(&models.NotificationOutbox{})
	if res.Error != nil {
		errMsg := fmt.Sprintf("Failed to delete settled outbox entries: %v", res.Error)
		log.Printf("ERROR: %s", errMsg)
		result.Errors = append(result.Errors, errMsg)
		result.ErrorCount++
	} else {
		result.OutboxDeleted = res.RowsAffected
	}

	res = s.db.Where("applied_at < ?", cutoff).Delete(&models.TransitionLog{})
	if res.Error != nil {
		errMsg := fmt.Sprintf("Failed to delete old transition logs: %v", res.Error)
		log.Printf("ERROR: %s", errMsg)
		result.Errors = append(result.Errors, errMsg)
		result.ErrorCount++
	} else {
		result.LogsDeleted = res.RowsAffected
	}

	log.Printf("Cleanup: Completed. Notifications: %d/%d, Outbox: %d/%d, Logs: %d/%d, Errors: %d",
		result.NotificationsDeleted, result.NotificationsTarget,
		result.OutboxDeleted, result.OutboxTarget,
		result.LogsDeleted, result.LogsTarget,
		result.ErrorCount)

	return result, nil
}

// GetRetentionStats returns counts of records pending cleanup
func (s *Service) GetRetentionStats(retentionDays int) (map[string]interface{}, error) {
	stats := make(map[string]interface{})
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	var notifications, outbox, logs int64
	if err := s.db.Model(&models.NotificationRecord{}).Where("created_at < ?", cutoff).Count(&notifications).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.NotificationOutbox{}).
		Where("status IN ? AND updated_at < ?", []string{models.OutboxStatusSent, models.OutboxStatusPermanentFail}, cutoff).
		Count(&outbox).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.TransitionLog{}).Where("applied_at < ?", cutoff).Count(&logs).Error; err != nil {
		return nil, err
	}

	stats["notifications_expired"] = notifications
	stats["outbox_expired"] = outbox
	stats["transition_logs_expired"] = logs
	stats["retention_days"] = retentionDays

	return stats, nil
}
