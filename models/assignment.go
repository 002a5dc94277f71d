package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Recurrence cadences for assignments.
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// Scheduled inspection statuses.
const (
	ScheduledPending   = "pending"
	ScheduledOverdue   = "overdue"
	ScheduledCompleted = "completed"
)

// Assignment is a recurring obligation: a user inspects a template at a
// location on a cadence. The schedule generator materializes
// ScheduledInspection rows from it and flips Active off once no further
// occurrence fits before EndDate.
type Assignment struct {
	ID           uint               `gorm:"primaryKey" json:"id"`
	AssignedToID uuid.UUID          `gorm:"type:uuid;index;not null" json:"assigned_to_id"`
	Assignee     *User              `gorm:"foreignKey:AssignedToID" json:"assignee,omitempty"`
	TemplateID   *uuid.UUID         `gorm:"type:uuid;index" json:"template_id,omitempty"`
	Template     *ChecklistTemplate `gorm:"foreignKey:TemplateID" json:"template,omitempty"`
	Location     string             `gorm:"size:255" json:"location,omitempty"`
	Frequency    string             `gorm:"size:20;not null;default:'weekly'" json:"frequency"`
	Active       bool               `gorm:"not null;default:true" json:"active"`
	StartDueAt   time.Time          `gorm:"not null" json:"start_due_at"`
	// Inclusive last eligible due date.
	EndDate  *time.Time     `gorm:"type:date" json:"end_date,omitempty"`
	NotifyCC pq.StringArray `gorm:"type:text[]" json:"notify_cc,omitempty"`

	ScheduledInspections []ScheduledInspection `gorm:"foreignKey:AssignmentID;constraint:OnDelete:CASCADE" json:"-"`

	// Annotated on list endpoints, not persisted.
	CurrentWeekCompleted bool `gorm:"-" json:"current_week_completed"`
}

func (Assignment) TableName() string {
	return "assignments"
}

// ScheduledInspection is one concrete due-date occurrence generated from an
// assignment. The (assignment_id, period_start) unique index is the backstop
// against two generator runs racing on the same occurrence.
type ScheduledInspection struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	AssignmentID uint        `gorm:"not null;uniqueIndex:idx_scheduled_assignment_period" json:"assignment_id"`
	Assignment   *Assignment `gorm:"foreignKey:AssignmentID" json:"assignment,omitempty"`
	PeriodStart  time.Time   `gorm:"type:date;not null;uniqueIndex:idx_scheduled_assignment_period" json:"period_start"`
	DueAt        time.Time   `gorm:"not null;index" json:"due_at"`
	Status       string      `gorm:"size:20;not null;default:'pending'" json:"status"`
	GeneratedAt  time.Time   `gorm:"not null" json:"generated_at"`
}

func (ScheduledInspection) TableName() string {
	return "scheduled_inspections"
}
