package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// LeaseContract represents a signed rental agreement between a tenant and a
// landlord for one property. The lifecycle engine is the only writer of
// Status, SentWarningThresholds and Version; everything else is owned by the
// application layer.
type LeaseContract struct {
	ID         string `gorm:"type:varchar(36);primaryKey" json:"id"`
	PropertyID string `gorm:"type:varchar(36);not null;index" json:"property_id"`
	TenantID   string `gorm:"type:varchar(36);not null;index" json:"tenant_id"`
	LandlordID string `gorm:"type:varchar(36);not null;index" json:"landlord_id"`

	StartDate time.Time `gorm:"type:datetime;not null" json:"start_date"`
	EndDate   time.Time `gorm:"type:datetime;not null;index" json:"end_date"`

	Status LeaseStatus `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`

	// Warning day-counts already notified for this lease. Grows monotonically;
	// a threshold appears at most once.
	SentWarningThresholds ThresholdSet `gorm:"type:text" json:"sent_warning_thresholds"`

	// Version is the optimistic concurrency token. Every lifecycle write is
	// conditional on it, so overlapping runs cannot double-apply an event.
	Version int64 `gorm:"not null;default:0" json:"version"`

	CreatedAt time.Time `gorm:"type:datetime;not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:datetime;not null;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (LeaseContract) TableName() string {
	return "lease_contracts"
}

// LeaseStatus is the lifecycle state of a lease contract
type LeaseStatus string

const (
	LeaseStatusActive     LeaseStatus = "active"
	LeaseStatusExpiring   LeaseStatus = "expiring"
	LeaseStatusExpired    LeaseStatus = "expired"
	LeaseStatusTerminated LeaseStatus = "terminated"
)

// leaseTransitions is the closed set of allowed status moves. Expired and
// terminated are terminal; the map makes an illegal move a construction-time
// failure instead of a runtime string comparison.
var leaseTransitions = map[LeaseStatus][]LeaseStatus{
	LeaseStatusActive:     {LeaseStatusExpiring, LeaseStatusExpired, LeaseStatusTerminated},
	LeaseStatusExpiring:   {LeaseStatusExpired, LeaseStatusTerminated},
	LeaseStatusExpired:    {},
	LeaseStatusTerminated: {},
}

// CanTransitionTo reports whether moving from the current status to next is a
// legal lease transition.
func (s LeaseStatus) CanTransitionTo(next LeaseStatus) bool {
	for _, allowed := range leaseTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status can never change again.
func (s LeaseStatus) IsTerminal() bool {
	return len(leaseTransitions[s]) == 0
}

// DaysRemaining returns the whole days left until the lease end date, rounded
// up. Zero or negative means the lease has run out.
func (l *LeaseContract) DaysRemaining(now time.Time) int {
	return int(math.Ceil(l.EndDate.Sub(now).Hours() / 24))
}

// ThresholdSet is the set of warning day-counts already sent for a lease.
// Stored as a JSON array in a text column so it works unchanged across
// MySQL, Postgres and SQLite.
type ThresholdSet []int

// Contains reports whether the threshold is already in the set.
func (s ThresholdSet) Contains(t int) bool {
	for _, v := range s {
		if v == t {
			return true
		}
	}
	return false
}

// WithThreshold returns a new set including t. Adding an existing threshold
// returns the set unchanged (set semantics).
func (s ThresholdSet) WithThreshold(t int) ThresholdSet {
	if s.Contains(t) {
		return s
	}
	out := make(ThresholdSet, len(s), len(s)+1)
	copy(out, s)
	return append(out, t)
}

// Value implements driver.Valuer
func (s ThresholdSet) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]int(s))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (s *ThresholdSet) Scan(value interface{}) error {
	if value == nil {
		*s = ThresholdSet{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan threshold set from %T", value)
	}
	if len(data) == 0 {
		*s = ThresholdSet{}
		return nil
	}
	var values []int
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("invalid threshold set %q: %w", data, err)
	}
	*s = values
	return nil
}
