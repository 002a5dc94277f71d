package models

import (
	"time"

	"github.com/google/uuid"
)

// Corrective action severities.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Corrective action statuses.
const (
	ActionOpen       = "open"
	ActionInProgress = "in_progress"
	ActionClosed     = "closed"
)

// CorrectiveAction tracks remediation of a failed checklist item. Closing
// requires resolution notes and at least one attachment; reopening clears
// closed_at/closed_by. See handlers/actions.go.
type CorrectiveAction struct {
	ID           uint                `gorm:"primaryKey" json:"id"`
	InspectionID uint                `gorm:"not null;index" json:"inspection_id"`
	Inspection   *Inspection         `gorm:"foreignKey:InspectionID" json:"inspection,omitempty"`
	ResponseID   *uuid.UUID          `gorm:"type:uuid;index" json:"response_id,omitempty"`
	Response     *InspectionResponse `gorm:"foreignKey:ResponseID" json:"response,omitempty"`
	Title        string              `gorm:"size:255;not null" json:"title"`
	Description  *string             `gorm:"type:text" json:"description,omitempty"`
	Severity     string              `gorm:"size:20;not null;default:'medium'" json:"severity"`
	DueDate      *time.Time          `json:"due_date,omitempty"`
	AssignedToID *uuid.UUID          `gorm:"type:uuid;index" json:"assigned_to_id,omitempty"`
	Assignee     *User               `gorm:"foreignKey:AssignedToID" json:"assignee,omitempty"`
	Status       string              `gorm:"size:20;not null;default:'open';index" json:"status"`
	StartedByID  uuid.UUID           `gorm:"type:uuid;not null" json:"started_by_id"`
	StartedBy    *User               `gorm:"foreignKey:StartedByID" json:"started_by,omitempty"`
	ClosedByID   *uuid.UUID          `gorm:"type:uuid" json:"closed_by_id,omitempty"`
	ClosedBy     *User               `gorm:"foreignKey:ClosedByID" json:"closed_by,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	ClosedAt     *time.Time          `json:"closed_at,omitempty"`

	ResolutionNotes *string `gorm:"type:text" json:"resolution_notes,omitempty"`

	// Optional external work-order reference.
	WorkOrderNumber *string `gorm:"size:100" json:"work_order_number,omitempty"`
	WorkOrderVendor *string `gorm:"size:255" json:"work_order_vendor,omitempty"`

	MediaFiles  []MediaFile            `gorm:"foreignKey:ActionID;constraint:OnDelete:CASCADE" json:"media_files,omitempty"`
	NoteEntries []CorrectiveActionNote `gorm:"foreignKey:ActionID;constraint:OnDelete:CASCADE" json:"note_entries,omitempty"`
}

func (CorrectiveAction) TableName() string {
	return "corrective_actions"
}

// SeveritySLA maps action severity to the number of days allowed for
// resolution. Single row, lazily created with defaults.
type SeveritySLA struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	LowDays    int       `gorm:"not null;default:30" json:"low_days"`
	MediumDays int       `gorm:"not null;default:7" json:"medium_days"`
	HighDays   int       `gorm:"not null;default:1" json:"high_days"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (SeveritySLA) TableName() string {
	return "severity_sla"
}
