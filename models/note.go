package models

import (
	"time"

	"github.com/google/uuid"
)

// Append-only note history. Rows are never updated or overwritten; every
// change to a note field that alters its trimmed value appends a new entry.

type InspectionNote struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	InspectionID uint      `gorm:"not null;index" json:"inspection_id"`
	AuthorID     uuid.UUID `gorm:"type:uuid;not null" json:"author_id"`
	Author       *User     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Body         string    `gorm:"type:text;not null" json:"body"`
	CreatedAt    time.Time `json:"created_at"`
}

func (InspectionNote) TableName() string {
	return "inspection_notes"
}

type InspectionResponseNote struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ResponseID uuid.UUID `gorm:"type:uuid;not null;index" json:"response_id"`
	AuthorID   uuid.UUID `gorm:"type:uuid;not null" json:"author_id"`
	Author     *User     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Body       string    `gorm:"type:text;not null" json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

func (InspectionResponseNote) TableName() string {
	return "inspection_response_notes"
}

type CorrectiveActionNote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ActionID  uint      `gorm:"not null;index" json:"action_id"`
	AuthorID  uuid.UUID `gorm:"type:uuid;not null" json:"author_id"`
	Author    *User     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func (CorrectiveActionNote) TableName() string {
	return "action_notes"
}
