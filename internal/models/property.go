package models

import "time"

// Property is a rental listing. The lifecycle engine only ever flips its
// status back to available when the occupying lease expires or is
// terminated; everything else belongs to the listing side of the
// application.
type Property struct {
	ID         string `gorm:"type:varchar(36);primaryKey" json:"id"`
	LandlordID string `gorm:"type:varchar(36);not null;index" json:"landlord_id"`
	Title      string `gorm:"type:text;not null" json:"title"`
	Address    string `gorm:"type:text" json:"address,omitempty"`
	City       string `gorm:"type:varchar(100);index" json:"city,omitempty"`

	Rent     *int     `gorm:"type:int;index" json:"rent,omitempty"`
	Bedrooms *int     `gorm:"type:int" json:"bedrooms,omitempty"`
	Area     *float64 `gorm:"type:decimal(10,2)" json:"area,omitempty"`

	Status PropertyStatus `gorm:"type:varchar(20);not null;default:'available';index" json:"status"`

	// Optimistic concurrency token, bumped on every lifecycle write.
	Version int64 `gorm:"not null;default:0" json:"version"`

	CreatedAt time.Time `gorm:"type:datetime;not null;autoCreateTime;index:idx_created_at,sort:desc" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:datetime;not null;autoUpdateTime" json:"updated_at"`
}

// PropertyStatus is the occupancy state of a property
type PropertyStatus string

const (
	PropertyStatusAvailable   PropertyStatus = "available"
	PropertyStatusRented      PropertyStatus = "rented"
	PropertyStatusMaintenance PropertyStatus = "maintenance"
)

// TableName specifies the table name for GORM
func (Property) TableName() string {
	return "properties"
}

// IsAvailable reports whether the property can be listed for new tenants.
func (p *Property) IsAvailable() bool {
	return p.Status == PropertyStatusAvailable
}
