package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaseStatusTransitions(t *testing.T) {
	assert.True(t, LeaseStatusActive.CanTransitionTo(LeaseStatusExpiring))
	assert.True(t, LeaseStatusActive.CanTransitionTo(LeaseStatusExpired))
	assert.True(t, LeaseStatusActive.CanTransitionTo(LeaseStatusTerminated))
	assert.True(t, LeaseStatusExpiring.CanTransitionTo(LeaseStatusExpired))

	// Terminal states never move again.
	assert.False(t, LeaseStatusExpired.CanTransitionTo(LeaseStatusActive))
	assert.False(t, LeaseStatusExpired.CanTransitionTo(LeaseStatusExpiring))
	assert.False(t, LeaseStatusTerminated.CanTransitionTo(LeaseStatusActive))
	assert.False(t, LeaseStatusExpiring.CanTransitionTo(LeaseStatusActive))

	assert.True(t, LeaseStatusExpired.IsTerminal())
	assert.True(t, LeaseStatusTerminated.IsTerminal())
	assert.False(t, LeaseStatusActive.IsTerminal())
	assert.False(t, LeaseStatusExpiring.IsTerminal())
}

func TestApplicationStatusTransitions(t *testing.T) {
	assert.True(t, ApplicationStatusPending.CanTransitionTo(ApplicationStatusApproved))
	assert.True(t, ApplicationStatusPending.CanTransitionTo(ApplicationStatusRejected))
	assert.True(t, ApplicationStatusPending.CanTransitionTo(ApplicationStatusWithdrawn))

	assert.False(t, ApplicationStatusApproved.CanTransitionTo(ApplicationStatusPending))
	assert.False(t, ApplicationStatusRejected.CanTransitionTo(ApplicationStatusApproved))
	assert.True(t, ApplicationStatusApproved.IsTerminal())
}

func TestDaysRemaining(t *testing.T) {
	now := time.Now()

	lease := &LeaseContract{EndDate: now.Add(7*24*time.Hour - time.Hour)}
	assert.Equal(t, 7, lease.DaysRemaining(now))

	lease = &LeaseContract{EndDate: now.Add(-time.Hour)}
	assert.LessOrEqual(t, lease.DaysRemaining(now), 0)

	// A few minutes remaining still counts as one day.
	lease = &LeaseContract{EndDate: now.Add(10 * time.Minute)}
	assert.Equal(t, 1, lease.DaysRemaining(now))
}

func TestThresholdSet(t *testing.T) {
	var set ThresholdSet

	assert.False(t, set.Contains(30))

	set = set.WithThreshold(30)
	assert.True(t, set.Contains(30))

	// Set semantics: re-adding does not grow the set.
	set = set.WithThreshold(30)
	assert.Len(t, set, 1)

	set = set.WithThreshold(7)
	assert.Len(t, set, 2)
}

func TestThresholdSetRoundTrip(t *testing.T) {
	set := ThresholdSet{60, 30, 7}

	value, err := set.Value()
	require.NoError(t, err)

	var scanned ThresholdSet
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, set, scanned)
}

func TestThresholdSetScanEmpty(t *testing.T) {
	var set ThresholdSet
	require.NoError(t, set.Scan(nil))
	assert.Empty(t, set)

	require.NoError(t, set.Scan(""))
	assert.Empty(t, set)

	require.NoError(t, set.Scan([]byte("[]")))
	assert.Empty(t, set)
}

func TestAutoProcessingPolicy(t *testing.T) {
	assert.True(t, AutoPolicyDisabled.Valid())
	assert.True(t, AutoPolicyApprove.Valid())
	assert.True(t, AutoPolicyReject.Valid())
	assert.False(t, AutoProcessingPolicy("noop").Valid())

	assert.Equal(t, ApplicationStatusApproved, AutoPolicyApprove.DecidedStatus())
	assert.Equal(t, ApplicationStatusRejected, AutoPolicyReject.DecidedStatus())
}

func TestDedupeKey(t *testing.T) {
	assert.Equal(t, "l1:warn:30", DedupeKey("l1", "warn", "30"))
	assert.Equal(t, "a1:auto_decide:auto_reject", DedupeKey("a1", "auto_decide", "auto_reject"))
}

func TestNextRetryDelay(t *testing.T) {
	assert.Equal(t, 1*time.Minute, NextRetryDelay(0))
	assert.Equal(t, 5*time.Minute, NextRetryDelay(1))
	// Past the schedule the last delay repeats.
	assert.Equal(t, 4*time.Hour, NextRetryDelay(99))
}
