package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Inspection statuses. Forward edges only: draft -> submitted -> approved or
// rejected. The transitions live in handlers/inspection_lifecycle.go.
const (
	InspectionDraft     = "draft"
	InspectionSubmitted = "submitted"
	InspectionApproved  = "approved"
	InspectionRejected  = "rejected"
)

// How the inspection came to exist.
const (
	OriginAssignment  = "assignment"
	OriginIndependent = "independent"
)

// Response results.
const (
	ResultPending = "pending"
	ResultPass    = "pass"
	ResultFail    = "fail"
)

type Inspection struct {
	ID                    uint               `gorm:"primaryKey" json:"id"`
	TemplateID            uuid.UUID          `gorm:"type:uuid;index;not null" json:"template_id"`
	Template              *ChecklistTemplate `gorm:"foreignKey:TemplateID" json:"template,omitempty"`
	InspectorID           uuid.UUID          `gorm:"type:uuid;index;not null" json:"inspector_id"`
	Inspector             *User              `gorm:"foreignKey:InspectorID" json:"inspector,omitempty"`
	CreatedByID           uuid.UUID          `gorm:"type:uuid;not null" json:"created_by_id"`
	CreatedBy             *User              `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	ScheduledInspectionID *uint              `gorm:"uniqueIndex" json:"scheduled_inspection_id,omitempty"`
	Status                string             `gorm:"size:20;not null;default:'draft';index" json:"status"`
	InspectionOrigin      string             `gorm:"size:20;not null;default:'independent'" json:"inspection_origin"`
	Location              string             `gorm:"size:255" json:"location,omitempty"`
	LocationID            *uint              `gorm:"index" json:"location_id,omitempty"`
	Notes                 *string            `gorm:"type:text" json:"notes,omitempty"`
	OverallScore          *float64           `json:"overall_score,omitempty"`
	StartedAt             time.Time          `json:"started_at"`
	SubmittedAt           *time.Time         `json:"submitted_at,omitempty"`
	ApprovedAt            *time.Time         `json:"approved_at,omitempty"`
	RejectedAt            *time.Time         `json:"rejected_at,omitempty"`
	RejectedByID          *uuid.UUID         `gorm:"type:uuid" json:"rejected_by_id,omitempty"`
	RejectionReason       *string            `gorm:"type:text" json:"rejection_reason,omitempty"`

	Responses        []InspectionResponse       `gorm:"foreignKey:InspectionID;constraint:OnDelete:CASCADE" json:"responses,omitempty"`
	Actions          []CorrectiveAction         `gorm:"foreignKey:InspectionID;constraint:OnDelete:CASCADE" json:"actions,omitempty"`
	NoteEntries      []InspectionNote           `gorm:"foreignKey:InspectionID;constraint:OnDelete:CASCADE" json:"note_entries,omitempty"`
	RejectionEntries []InspectionRejectionEntry `gorm:"foreignKey:InspectionID;constraint:OnDelete:CASCADE" json:"rejection_entries,omitempty"`
}

func (Inspection) TableName() string {
	return "inspections"
}

type InspectionResponse struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	InspectionID   uint          `gorm:"not null;uniqueIndex:idx_response_inspection_item" json:"inspection_id"`
	TemplateItemID uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_response_inspection_item" json:"template_item_id"`
	Item           *TemplateItem `gorm:"foreignKey:TemplateItemID" json:"item,omitempty"`
	Result         string        `gorm:"size:20;not null;default:'pending'" json:"result"`
	Note           *string       `gorm:"type:text" json:"note,omitempty"`

	MediaFiles  []MediaFile              `gorm:"foreignKey:ResponseID;constraint:OnDelete:CASCADE" json:"media_files,omitempty"`
	NoteEntries []InspectionResponseNote `gorm:"foreignKey:ResponseID;constraint:OnDelete:CASCADE" json:"note_entries,omitempty"`
}

func (InspectionResponse) TableName() string {
	return "inspection_responses"
}

func (r *InspectionResponse) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}

// InspectionRejectionEntry records why a submitted inspection was sent back.
// One row per flagged item, or a single row with a nil item for a general
// rejection.
type InspectionRejectionEntry struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	InspectionID         uint       `gorm:"not null;index" json:"inspection_id"`
	TemplateItemID       *uuid.UUID `gorm:"type:uuid" json:"template_item_id,omitempty"`
	Reason               string     `gorm:"type:text;not null" json:"reason"`
	FollowUpInstructions string     `gorm:"type:text" json:"follow_up_instructions,omitempty"`
	RejectedByID         uuid.UUID  `gorm:"type:uuid;not null" json:"rejected_by_id"`
	CreatedAt            time.Time  `json:"created_at"`
}

func (InspectionRejectionEntry) TableName() string {
	return "inspection_rejection_entries"
}

func (e *InspectionRejectionEntry) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return
}
