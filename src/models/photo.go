package models

import "cabin/src/types"

type Photo struct {
	ID          uint    `gorm:"primarykey" json:"id"`
	AlbumID     uint    `gorm:"index" json:"album_id"`
	UploadedBy  uint    `json:"uploaded_by"`
	ObjectKey   string  `json:"-"`
	Caption     *string `json:"caption,omitempty"`
	ContentType string  `json:"content_type,omitempty"`
	Size        int64   `json:"size,omitempty"`

	// presigned GET URL, filled per response and never persisted
	URL string `gorm:"-" json:"url,omitempty"`

	types.Timestamps
}
