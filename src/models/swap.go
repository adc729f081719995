package models

import (
	"cabin/src/types"
	"time"
)

type ReservationSwapRequest struct {
	ID                     uint             `gorm:"primarykey" json:"id"`
	RequesterID            uint             `json:"requester_id"`
	RequesterReservationID uint             `json:"requester_reservation_id"`
	TargetUserID           uint             `json:"target_user_id"`
	TargetReservationID    uint             `json:"target_reservation_id"`
	Message                *string          `json:"message,omitempty"`
	Token                  string           `gorm:"uniqueIndex" json:"-"`
	ExpiresAt              time.Time        `json:"expires_at"`
	Status                 types.SwapStatus `gorm:"type:text;default:'pending'" json:"status"`
	RespondedAt            *time.Time       `json:"responded_at,omitempty"`

	Requester            *User        `gorm:"foreignKey:requester_id" json:"requester,omitempty"`
	RequesterReservation *Reservation `gorm:"foreignKey:requester_reservation_id" json:"requester_reservation,omitempty"`
	TargetUser           *User        `gorm:"foreignKey:target_user_id" json:"target_user,omitempty"`
	TargetReservation    *Reservation `gorm:"foreignKey:target_reservation_id" json:"target_reservation,omitempty"`

	types.Timestamps
}

func (s *ReservationSwapRequest) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// IsPending reports whether the request can still be resolved.
func (s *ReservationSwapRequest) IsPending() bool {
	return s.Status == types.SWAP_PENDING && !s.IsExpired()
}
