package models

import "time"

// TransitionLog is an append-only record of every lifecycle event the engine
// applied. Used by the admin screens to audit what the automation did and
// when.
type TransitionLog struct {
	ID         uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	EntityType string `gorm:"type:varchar(20);not null;index" json:"entity_type"` // lease, application, property
	EntityID   string `gorm:"type:varchar(36);not null;index" json:"entity_id"`
	Event      string `gorm:"type:varchar(30);not null" json:"event"`
	FromStatus string `gorm:"type:varchar(20)" json:"from_status,omitempty"`
	ToStatus   string `gorm:"type:varchar(20)" json:"to_status,omitempty"`
	Threshold  int    `gorm:"default:0" json:"threshold,omitempty"`
	Reason     string `gorm:"type:varchar(100)" json:"reason,omitempty"`

	AppliedAt time.Time `gorm:"type:datetime;not null;autoCreateTime;index" json:"applied_at"`
}

// TableName specifies the table name for GORM
func (TransitionLog) TableName() string {
	return "transition_logs"
}

// Entity type constants for transition logs
const (
	EntityTypeLease       = "lease"
	EntityTypeApplication = "application"
	EntityTypeProperty    = "property"
)
