package lifecycle

import (
	"testing"

	"rental-marketplace/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestGuardLeaseEvents_DropsSentWarnings(t *testing.T) {
	lease := &models.LeaseContract{
		Status:                models.LeaseStatusExpiring,
		SentWarningThresholds: models.ThresholdSet{60, 30},
	}
	events := []Event{
		{Type: EventWarn, Threshold: 60},
		{Type: EventWarn, Threshold: 30},
		{Type: EventWarn, Threshold: 15},
	}

	out := GuardLeaseEvents(lease, events)

	assert.Len(t, out, 1)
	assert.Equal(t, 15, out[0].Threshold)
}

func TestGuardLeaseEvents_DropsExpireOnTerminal(t *testing.T) {
	lease := &models.LeaseContract{Status: models.LeaseStatusExpired}

	out := GuardLeaseEvents(lease, []Event{{Type: EventExpire}})

	assert.Empty(t, out)
}

func TestGuardLeaseEvents_KeepsExpireOnActive(t *testing.T) {
	lease := &models.LeaseContract{Status: models.LeaseStatusActive}

	out := GuardLeaseEvents(lease, []Event{{Type: EventExpire}})

	assert.Len(t, out, 1)
}

func TestGuardLeaseEvents_DropsForeignEvents(t *testing.T) {
	lease := &models.LeaseContract{Status: models.LeaseStatusActive}

	out := GuardLeaseEvents(lease, []Event{{Type: EventMarkOverdue}})

	assert.Empty(t, out)
}

func TestGuardApplicationEvents_DropsAppliedOnes(t *testing.T) {
	app := &models.RentalApplication{
		Status:  models.ApplicationStatusPending,
		Overdue: true,
	}
	events := []Event{
		{Type: EventMarkOverdue},
		{Type: EventAutoDecide, Policy: models.AutoPolicyReject},
	}

	out := GuardApplicationEvents(app, events)

	assert.Len(t, out, 1)
	assert.Equal(t, EventAutoDecide, out[0].Type)
}

func TestGuardApplicationEvents_DropsAutoDecideWhenProcessed(t *testing.T) {
	app := &models.RentalApplication{
		Status:        models.ApplicationStatusRejected,
		Overdue:       true,
		AutoProcessed: true,
	}

	out := GuardApplicationEvents(app, []Event{{Type: EventAutoDecide, Policy: models.AutoPolicyReject}})

	assert.Empty(t, out)
}

func TestGuardApplicationEvents_DropsWhenNoLongerPending(t *testing.T) {
	app := &models.RentalApplication{Status: models.ApplicationStatusApproved}

	out := GuardApplicationEvents(app, []Event{
		{Type: EventMarkOverdue},
		{Type: EventAutoDecide, Policy: models.AutoPolicyApprove},
	})

	assert.Empty(t, out)
}
