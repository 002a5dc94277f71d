package models

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationLog records every outbound email attempt. Delivery is
// best-effort; the log is the audit trail for what was (not) sent.
type NotificationLog struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Recipient    string         `gorm:"size:255;not null;index" json:"recipient"`
	TemplateName string         `gorm:"size:100;not null" json:"template_name"`
	Subject      string         `gorm:"size:500;not null" json:"subject"`
	Context      datatypes.JSON `gorm:"type:jsonb" json:"context,omitempty"`
	Success      bool           `gorm:"not null" json:"success"`
	Error        *string        `gorm:"type:text" json:"error,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

func (NotificationLog) TableName() string {
	return "notification_logs"
}
