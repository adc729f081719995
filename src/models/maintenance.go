package models

import (
	"cabin/src/types"
	"time"
)

type MaintenanceRequest struct {
	ID              uint                      `gorm:"primarykey" json:"id"`
	Title           string                    `json:"title"`
	Description     string                    `json:"description"`
	Priority        types.MaintenancePriority `gorm:"type:text;default:'normal'" json:"priority"`
	Status          types.MaintenanceStatus   `gorm:"type:text;default:'open'" json:"status"`
	ReportedBy      uint                      `json:"reported_by"`
	AssignedTo      *uint                     `json:"assigned_to,omitempty"`
	CostCents       *int64                    `json:"cost_cents,omitempty"`
	ResolutionNotes *string                   `json:"resolution_notes,omitempty"`
	ResolvedAt      *time.Time                `json:"resolved_at,omitempty"`

	Reporter *User `gorm:"foreignKey:reported_by" json:"reporter,omitempty"`
	Assignee *User `gorm:"foreignKey:assigned_to" json:"assignee,omitempty"`

	types.Timestamps
}
