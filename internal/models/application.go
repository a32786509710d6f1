package models

import "time"

// RentalApplication represents a prospective tenant's application for a
// property listing. The lifecycle engine marks applications overdue when
// their SLA runs out and, past the grace period, auto-decides them according
// to the listing's policy.
type RentalApplication struct {
	ID          string `gorm:"type:varchar(36);primaryKey" json:"id"`
	PropertyID  string `gorm:"type:varchar(36);not null;index" json:"property_id"`
	ApplicantID string `gorm:"type:varchar(36);not null;index" json:"applicant_id"`

	// Category selects the SLA defaults from configuration when the
	// per-application overrides below are unset (e.g. "standard",
	// "short_term", "furnished").
	Category string `gorm:"type:varchar(50);not null;default:'standard';index" json:"category"`

	SubmittedAt time.Time `gorm:"type:datetime;not null;index" json:"submitted_at"`

	// Per-application overrides, snapshotted at creation time. Zero values
	// mean "use the category default from config".
	SLADays    int                  `gorm:"not null;default:0" json:"sla_days"`
	GraceDays  int                  `gorm:"not null;default:0" json:"grace_days"`
	AutoPolicy AutoProcessingPolicy `gorm:"type:varchar(20);not null;default:''" json:"auto_policy"`

	Status ApplicationStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`

	// Overdue is monotonic: once set while pending it never resets.
	Overdue       bool          `gorm:"not null;default:false" json:"overdue"`
	AutoProcessed bool          `gorm:"not null;default:false" json:"auto_processed"`
	DecisionActor DecisionActor `gorm:"type:varchar(20);not null;default:''" json:"decision_actor,omitempty"`

	// Optimistic concurrency token, see LeaseContract.Version.
	Version int64 `gorm:"not null;default:0" json:"version"`

	CreatedAt time.Time `gorm:"type:datetime;not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:datetime;not null;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (RentalApplication) TableName() string {
	return "rental_applications"
}

// ApplicationStatus is the review state of a rental application
type ApplicationStatus string

const (
	ApplicationStatusPending   ApplicationStatus = "pending"
	ApplicationStatusApproved  ApplicationStatus = "approved"
	ApplicationStatusRejected  ApplicationStatus = "rejected"
	ApplicationStatusWithdrawn ApplicationStatus = "withdrawn"
)

var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationStatusPending:   {ApplicationStatusApproved, ApplicationStatusRejected, ApplicationStatusWithdrawn},
	ApplicationStatusApproved:  {},
	ApplicationStatusRejected:  {},
	ApplicationStatusWithdrawn: {},
}

// CanTransitionTo reports whether moving to next is a legal application
// transition.
func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	for _, allowed := range applicationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status can never change again.
func (s ApplicationStatus) IsTerminal() bool {
	return len(applicationTransitions[s]) == 0
}

// Age returns how long the application has been waiting since submission.
func (a *RentalApplication) Age(now time.Time) time.Duration {
	return now.Sub(a.SubmittedAt)
}

// AutoProcessingPolicy controls what happens to a pending application once
// the SLA plus grace period has elapsed.
type AutoProcessingPolicy string

const (
	AutoPolicyDisabled AutoProcessingPolicy = "disabled"
	AutoPolicyApprove  AutoProcessingPolicy = "auto_approve"
	AutoPolicyReject   AutoProcessingPolicy = "auto_reject"
)

// Valid reports whether the policy is one of the known values.
func (p AutoProcessingPolicy) Valid() bool {
	switch p {
	case AutoPolicyDisabled, AutoPolicyApprove, AutoPolicyReject:
		return true
	}
	return false
}

// DecidedStatus returns the application status the policy resolves to.
// Only meaningful for auto_approve and auto_reject.
func (p AutoProcessingPolicy) DecidedStatus() ApplicationStatus {
	if p == AutoPolicyApprove {
		return ApplicationStatusApproved
	}
	return ApplicationStatusRejected
}

// DecisionActor records who decided an application
type DecisionActor string

const (
	DecisionActorHuman  DecisionActor = "human"
	DecisionActorSystem DecisionActor = "system"
)
