package config

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
	"p9e.in/safecheck/models"
)

func Migrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "20250110_create_core_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.User{}, &models.Location{},
					&models.ChecklistTemplate{}, &models.TemplateSection{}, &models.TemplateItem{},
					&models.Inspection{}, &models.InspectionResponse{}, &models.MediaFile{})
			},
		},
		{
			ID: "20250110_create_action_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.CorrectiveAction{}, &models.SeveritySLA{})
			},
		},
		{
			ID: "20250117_create_schedule_tables",
			Migrate: func(tx *gorm.DB) error {
				// The unique index on (assignment_id, period_start) is the
				// backstop against concurrent generator runs creating the
				// same occurrence twice.
				return tx.AutoMigrate(&models.Assignment{}, &models.ScheduledInspection{})
			},
		},
		{
			ID: "20250124_create_note_history_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.InspectionNote{}, &models.InspectionResponseNote{},
					&models.CorrectiveActionNote{})
			},
		},
		{
			ID: "20250207_add_rejection_entries",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.InspectionRejectionEntry{})
			},
		},
		{
			ID: "20250221_add_notification_log",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.NotificationLog{})
			},
		},
	})

	return m.Migrate()
}
