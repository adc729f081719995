package models

import (
	"cabin/src/types"
	"time"
)

type Invitation struct {
	ID         uint                   `gorm:"primarykey" json:"id"`
	Email      string                 `gorm:"index" json:"email"`
	Token      string                 `gorm:"uniqueIndex" json:"-"`
	InvitedBy  uint                   `json:"invited_by"`
	Role       string                 `gorm:"default:'member'" json:"role"`
	Message    *string                `json:"message,omitempty"`
	Status     types.InvitationStatus `gorm:"type:text;default:'pending'" json:"status"`
	ExpiresAt  time.Time              `json:"expires_at"`
	AcceptedAt *time.Time             `json:"accepted_at,omitempty"`

	Inviter *User `gorm:"foreignKey:invited_by" json:"inviter,omitempty"`

	types.Timestamps
}

func (i *Invitation) IsExpired() bool {
	return time.Now().After(i.ExpiresAt)
}

func (i *Invitation) IsValid() bool {
	return i.Status == types.INVITATION_PENDING && !i.IsExpired()
}
