package models

import (
	"cabin/src/types"
	"time"
)

type Notification struct {
	ID       uint                   `gorm:"primarykey" json:"id"`
	UserID   uint                   `gorm:"index" json:"user_id"`
	Type     types.NotificationType `gorm:"type:text" json:"type"`
	Title    string                 `json:"title"`
	Message  string                 `json:"message"`
	Metadata *types.JSONB           `gorm:"type:jsonb" json:"metadata,omitempty"`
	Read     bool                   `gorm:"default:false" json:"read"`
	ReadAt   *time.Time             `json:"read_at,omitempty"`

	types.Timestamps
}
