package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MediaFile is a photo/document attached to a response or a corrective
// action. The validator and close gating only ever count these.
type MediaFile struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ResponseID   *uuid.UUID `gorm:"type:uuid;index" json:"response_id,omitempty"`
	ActionID     *uint      `gorm:"index" json:"action_id,omitempty"`
	FileURL      string     `gorm:"size:1024;not null" json:"file_url"`
	StoragePath  string     `gorm:"size:1024;not null" json:"storage_path"`
	MimeType     *string    `gorm:"size:100" json:"mime_type,omitempty"`
	SizeBytes    *int64     `json:"size_bytes,omitempty"`
	OriginalName *string    `gorm:"size:255" json:"original_name,omitempty"`
	Description  *string    `gorm:"type:text" json:"description,omitempty"`
	UploadedByID *uuid.UUID `gorm:"type:uuid" json:"uploaded_by_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (MediaFile) TableName() string {
	return "media_files"
}

func (m *MediaFile) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return
}
