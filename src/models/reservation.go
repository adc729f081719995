package models

import (
	"cabin/src/types"
)

// Reservation dates are stored as ISO YYYY-MM-DD strings, inclusive on both
// ends. A reservation belongs to a user or carries a custom name for legacy
// guests entered by an admin, never both.
type Reservation struct {
	ID         uint    `gorm:"primarykey" json:"id"`
	UserID     *uint   `json:"user_id,omitempty"`
	CustomName *string `json:"custom_name,omitempty"`
	StartDate  string  `gorm:"type:char(10);index" json:"start_date"`
	EndDate    string  `gorm:"type:char(10);index" json:"end_date"`
	GuestCount int     `gorm:"default:1" json:"guest_count"`
	Notes      *string `json:"notes,omitempty"`

	User *User `gorm:"foreignKey:user_id" json:"user,omitempty"`

	types.Timestamps
}

// OwnerName resolves the display name for a reservation: the linked user's
// name when one exists, otherwise the free-text custom name.
func (r *Reservation) OwnerName() string {
	if r.User != nil && r.User.Name != "" {
		return r.User.Name
	}
	if r.CustomName != nil {
		return *r.CustomName
	}
	return ""
}
