package database

import (
	"context"
	"errors"
	"fmt"

	"rental-marketplace/internal/models"

	"gorm.io/gorm"
)

// ErrPreconditionFailed is returned by the conditional update helpers when
// the stored version no longer matches the one that was read. A concurrent
// run already applied the change; callers treat this as a benign no-op.
var ErrPreconditionFailed = errors.New("precondition failed: concurrency token is stale")

// ListActiveLeases returns leases that can still transition, i.e. active or
// expiring ones. Terminal leases are never lifecycle candidates.
func (gdb *GormDB) ListActiveLeases(ctx context.Context) ([]models.LeaseContract, error) {
	var leases []models.LeaseContract
	err := gdb.db.WithContext(ctx).
		Where("status IN ?", []models.LeaseStatus{models.LeaseStatusActive, models.LeaseStatusExpiring}).
		Order("end_date ASC").
		Find(&leases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active leases: %w", err)
	}
	return leases, nil
}

// ListPendingApplications returns applications still awaiting a decision.
func (gdb *GormDB) ListPendingApplications(ctx context.Context) ([]models.RentalApplication, error) {
	var apps []models.RentalApplication
	err := gdb.db.WithContext(ctx).
		Where("status = ?", models.ApplicationStatusPending).
		Order("submitted_at ASC").
		Find(&apps).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending applications: %w", err)
	}
	return apps, nil
}

// UpdateLeaseIfVersion applies the given column updates to the lease only if
// its stored version still equals expectedVersion, bumping the version in the
// same statement. Returns ErrPreconditionFailed when the row was changed by
// someone else in the meantime.
func (gdb *GormDB) UpdateLeaseIfVersion(ctx context.Context, leaseID string, expectedVersion int64, updates map[string]interface{}) error {
	updates["version"] = expectedVersion + 1
	res := gdb.db.WithContext(ctx).
		Model(&models.LeaseContract{}).
		Where("id = ? AND version = ?", leaseID, expectedVersion).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update lease %s: %w", leaseID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrPreconditionFailed
	}
	return nil
}

// UpdateApplicationIfVersion is the conditional update for rental
// applications, see UpdateLeaseIfVersion.
func (gdb *GormDB) UpdateApplicationIfVersion(ctx context.Context, appID string, expectedVersion int64, updates map[string]interface{}) error {
	updates["version"] = expectedVersion + 1
	res := gdb.db.WithContext(ctx).
		Model(&models.RentalApplication{}).
		Where("id = ? AND version = ?", appID, expectedVersion).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update application %s: %w", appID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrPreconditionFailed
	}
	return nil
}

// ReleaseProperty flips a property back to available unless it already is.
// The status guard in the WHERE clause makes a second release of the same
// property a no-op, so one lease expiry causes at most one flip.
func (gdb *GormDB) ReleaseProperty(ctx context.Context, propertyID string) (bool, error) {
	res := gdb.db.WithContext(ctx).
		Model(&models.Property{}).
		Where("id = ? AND status <> ?", propertyID, models.PropertyStatusAvailable).
		Updates(map[string]interface{}{
			"status":  models.PropertyStatusAvailable,
			"version": gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to release property %s: %w", propertyID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// GetProperty fetches one property by ID.
func (gdb *GormDB) GetProperty(ctx context.Context, propertyID string) (*models.Property, error) {
	var prop models.Property
	if err := gdb.db.WithContext(ctx).First(&prop, "id = ?", propertyID).Error; err != nil {
		return nil, err
	}
	return &prop, nil
}

// AppendTransitionLog records one applied lifecycle event. Best effort from
// the caller's point of view; failures here must not fail the transition.
func (gdb *GormDB) AppendTransitionLog(ctx context.Context, entry *models.TransitionLog) error {
	return gdb.db.WithContext(ctx).Create(entry).Error
}
