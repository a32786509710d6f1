package lifecycle

import (
	"context"
	"fmt"
	"testing"
	"time"

	"rental-marketplace/internal/config"
	"rental-marketplace/internal/database"
	"rental-marketplace/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *database.GormDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	gdb := database.NewGormDBFromDB(db)
	require.NoError(t, gdb.InitSchema())
	return gdb
}

func testLifecycleConfig() *config.LifecycleConfig {
	cfg := config.DefaultConfig().Lifecycle
	return &cfg
}

// fakeDeliverer records deliveries and can be told to fail, either always or
// for specific recipients.
type fakeDeliverer struct {
	delivered      []models.NotificationRecord
	failAll        bool
	failRecipients map[string]bool
	failuresLeft   int
}

func (f *fakeDeliverer) Deliver(_ context.Context, rec *models.NotificationRecord) error {
	if f.failAll || f.failRecipients[rec.Recipient] {
		return fmt.Errorf("delivery refused for %s", rec.Recipient)
	}
	if f.failuresLeft > 0 {
		f.failuresLeft--
		return fmt.Errorf("transient delivery failure")
	}
	f.delivered = append(f.delivered, *rec)
	return nil
}

func (f *fakeDeliverer) countByCategory(cat models.NotificationCategory) int {
	n := 0
	for _, rec := range f.delivered {
		if rec.Category == cat {
			n++
		}
	}
	return n
}

func seedLease(t *testing.T, gdb *database.GormDB, id string, endIn time.Duration, status models.LeaseStatus) *models.LeaseContract {
	now := time.Now()
	lease := &models.LeaseContract{
		ID:                    id,
		PropertyID:            "prop-" + id,
		TenantID:              "tenant-" + id,
		LandlordID:            "landlord-" + id,
		StartDate:             now.AddDate(-1, 0, 0),
		EndDate:               now.Add(endIn),
		Status:                status,
		SentWarningThresholds: models.ThresholdSet{},
	}
	require.NoError(t, gdb.DB().Create(lease).Error)

	prop := &models.Property{
		ID:         lease.PropertyID,
		LandlordID: lease.LandlordID,
		Title:      "Test property " + id,
		Status:     models.PropertyStatusRented,
	}
	require.NoError(t, gdb.DB().Create(prop).Error)

	return lease
}

func seedApplication(t *testing.T, gdb *database.GormDB, id string, age time.Duration, policy models.AutoProcessingPolicy) *models.RentalApplication {
	app := &models.RentalApplication{
		ID:          id,
		PropertyID:  "prop-" + id,
		ApplicantID: "applicant-" + id,
		Category:    "standard",
		SubmittedAt: time.Now().Add(-age),
		SLADays:     7,
		GraceDays:   3,
		AutoPolicy:  policy,
		Status:      models.ApplicationStatusPending,
	}
	require.NoError(t, gdb.DB().Create(app).Error)
	return app
}

func reloadLease(t *testing.T, gdb *database.GormDB, id string) *models.LeaseContract {
	var lease models.LeaseContract
	require.NoError(t, gdb.DB().First(&lease, "id = ?", id).Error)
	return &lease
}

func reloadApplication(t *testing.T, gdb *database.GormDB, id string) *models.RentalApplication {
	var app models.RentalApplication
	require.NoError(t, gdb.DB().First(&app, "id = ?", id).Error)
	return &app
}

func reloadProperty(t *testing.T, gdb *database.GormDB, id string) *models.Property {
	var prop models.Property
	require.NoError(t, gdb.DB().First(&prop, "id = ?", id).Error)
	return &prop
}
