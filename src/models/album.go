package models

import "cabin/src/types"

type Album struct {
	ID          uint    `gorm:"primarykey" json:"id"`
	Name        string  `json:"name"`
	Slug        string  `gorm:"uniqueIndex" json:"slug"`
	Description *string `json:"description,omitempty"`
	CreatedBy   uint    `json:"created_by"`

	Photos []Photo `gorm:"foreignKey:album_id" json:"photos,omitempty"`

	types.Timestamps
}
