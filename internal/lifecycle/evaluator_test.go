package lifecycle

import (
	"testing"
	"time"

	"rental-marketplace/internal/models"

	"github.com/stretchr/testify/assert"
)

var testSchedule = []int{60, 30, 15, 7, 1}

func testLease(endIn time.Duration, now time.Time) *models.LeaseContract {
	return &models.LeaseContract{
		ID:         "lease-1",
		PropertyID: "prop-1",
		TenantID:   "tenant-1",
		LandlordID: "landlord-1",
		StartDate:  now.AddDate(-1, 0, 0),
		EndDate:    now.Add(endIn),
		Status:     models.LeaseStatusActive,
	}
}

func TestEvaluateLease_Expired(t *testing.T) {
	now := time.Now()
	lease := testLease(-time.Hour, now)

	events := EvaluateLease(lease, testSchedule, now)

	assert.Len(t, events, 1)
	assert.Equal(t, EventExpire, events[0].Type)
}

func TestEvaluateLease_ExpiryOnEndDay(t *testing.T) {
	now := time.Now()
	// End date exactly now: zero days remaining means expired, and no
	// stale warnings may accompany the expiry.
	lease := testLease(0, now)

	events := EvaluateLease(lease, testSchedule, now)

	assert.Len(t, events, 1)
	assert.Equal(t, EventExpire, events[0].Type)
}

func TestEvaluateLease_WarningDay(t *testing.T) {
	now := time.Now()
	lease := testLease(7*24*time.Hour-time.Hour, now) // 7 days remaining
	lease.SentWarningThresholds = models.ThresholdSet{60, 30, 15}

	events := EvaluateLease(lease, testSchedule, now)

	// The evaluator reports every crossed threshold; the guard is what
	// removes the already-sent ones.
	assert.Len(t, events, 4)
	for _, ev := range events {
		assert.Equal(t, EventWarn, ev.Type)
	}
	assert.Equal(t, []int{60, 30, 15, 7}, []int{events[0].Threshold, events[1].Threshold, events[2].Threshold, events[3].Threshold})
}

func TestEvaluateLease_CatchUpAfterMissedRun(t *testing.T) {
	now := time.Now()
	// Days remaining dropped from 10 to 5 between runs; the 7-day mark was
	// never observed exactly but must still be reported.
	lease := testLease(5*24*time.Hour-time.Hour, now)

	events := EvaluateLease(lease, testSchedule, now)

	thresholds := make([]int, 0, len(events))
	for _, ev := range events {
		assert.Equal(t, EventWarn, ev.Type)
		thresholds = append(thresholds, ev.Threshold)
	}
	assert.Contains(t, thresholds, 7)
	// Largest first, so notifications come out in chronological order.
	assert.Equal(t, []int{60, 30, 15, 7}, thresholds)
}

func TestEvaluateLease_NothingDue(t *testing.T) {
	now := time.Now()
	lease := testLease(200*24*time.Hour, now)

	assert.Empty(t, EvaluateLease(lease, testSchedule, now))
}

func TestEvaluateLease_TerminalStatus(t *testing.T) {
	now := time.Now()
	lease := testLease(-time.Hour, now)
	lease.Status = models.LeaseStatusExpired

	assert.Empty(t, EvaluateLease(lease, testSchedule, now))
}

func TestEvaluateLease_DoesNotMutateInput(t *testing.T) {
	now := time.Now()
	lease := testLease(5*24*time.Hour, now)
	lease.SentWarningThresholds = models.ThresholdSet{60}
	before := *lease
	beforeSet := append(models.ThresholdSet{}, lease.SentWarningThresholds...)

	EvaluateLease(lease, testSchedule, now)

	assert.Equal(t, before.Status, lease.Status)
	assert.Equal(t, beforeSet, lease.SentWarningThresholds)
	assert.Equal(t, before.Version, lease.Version)
}

func testApplication(age time.Duration, now time.Time) *models.RentalApplication {
	return &models.RentalApplication{
		ID:          "app-1",
		PropertyID:  "prop-1",
		ApplicantID: "applicant-1",
		Category:    "standard",
		SubmittedAt: now.Add(-age),
		Status:      models.ApplicationStatusPending,
	}
}

func TestEvaluateApplication_WithinSLA(t *testing.T) {
	now := time.Now()
	app := testApplication(3*24*time.Hour, now)

	events := EvaluateApplication(app, 7*24*time.Hour, 3*24*time.Hour, models.AutoPolicyReject, now)

	assert.Empty(t, events)
}

func TestEvaluateApplication_OverdueOnly(t *testing.T) {
	now := time.Now()
	app := testApplication(8*24*time.Hour, now)

	events := EvaluateApplication(app, 7*24*time.Hour, 3*24*time.Hour, models.AutoPolicyReject, now)

	assert.Len(t, events, 1)
	assert.Equal(t, EventMarkOverdue, events[0].Type)
}

func TestEvaluateApplication_OverdueAndAutoDecide(t *testing.T) {
	now := time.Now()
	app := testApplication(10*24*time.Hour+time.Minute, now)

	events := EvaluateApplication(app, 7*24*time.Hour, 3*24*time.Hour, models.AutoPolicyReject, now)

	assert.Len(t, events, 2)
	assert.Equal(t, EventMarkOverdue, events[0].Type)
	assert.Equal(t, EventAutoDecide, events[1].Type)
	assert.Equal(t, models.AutoPolicyReject, events[1].Policy)
}

func TestEvaluateApplication_AlreadyOverdueStillAutoDecides(t *testing.T) {
	now := time.Now()
	app := testApplication(11*24*time.Hour, now)
	app.Overdue = true

	events := EvaluateApplication(app, 7*24*time.Hour, 3*24*time.Hour, models.AutoPolicyApprove, now)

	assert.Len(t, events, 1)
	assert.Equal(t, EventAutoDecide, events[0].Type)
	assert.Equal(t, models.AutoPolicyApprove, events[0].Policy)
}

func TestEvaluateApplication_PolicyDisabled(t *testing.T) {
	now := time.Now()
	app := testApplication(30*24*time.Hour, now)

	events := EvaluateApplication(app, 7*24*time.Hour, 3*24*time.Hour, models.AutoPolicyDisabled, now)

	assert.Len(t, events, 1)
	assert.Equal(t, EventMarkOverdue, events[0].Type)
}

func TestEvaluateApplication_NotPending(t *testing.T) {
	now := time.Now()
	app := testApplication(30*24*time.Hour, now)
	app.Status = models.ApplicationStatusWithdrawn

	assert.Empty(t, EvaluateApplication(app, 7*24*time.Hour, 0, models.AutoPolicyReject, now))
}
