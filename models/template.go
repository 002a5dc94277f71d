package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChecklistTemplate is the top of the template ownership graph:
// template -> sections -> items. Sections and items are deleted with their
// parent by the explicit cascade in handlers/templates.go.
type ChecklistTemplate struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Sections []TemplateSection `gorm:"foreignKey:TemplateID" json:"sections,omitempty"`
}

func (ChecklistTemplate) TableName() string {
	return "checklist_templates"
}

func (t *ChecklistTemplate) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return
}

type TemplateSection struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TemplateID uuid.UUID `gorm:"type:uuid;index;not null" json:"template_id"`
	Title      string    `gorm:"size:255;not null" json:"title"`
	OrderIndex int       `gorm:"default:0" json:"order_index"`

	Items []TemplateItem `gorm:"foreignKey:SectionID" json:"items,omitempty"`
}

func (TemplateSection) TableName() string {
	return "template_sections"
}

func (s *TemplateSection) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return
}

type TemplateItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SectionID uuid.UUID `gorm:"type:uuid;index;not null" json:"section_id"`
	Prompt    string    `gorm:"type:text;not null" json:"prompt"`
	// Required items must be answered before an inspection can be submitted.
	IsRequired bool `gorm:"default:true" json:"is_required"`
	// Failing this item demands a corrective action plus photo evidence.
	RequiresEvidenceOnFail bool `gorm:"column:requires_attachment_on_fail;default:true;not null" json:"requires_evidence_on_fail"`
	OrderIndex             int  `gorm:"default:0" json:"order_index"`
}

func (TemplateItem) TableName() string {
	return "template_items"
}

func (i *TemplateItem) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return
}
