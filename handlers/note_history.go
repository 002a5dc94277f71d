package handlers

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"p9e.in/safecheck/models"
)

// Append-only note history. Empty (after trim) bodies are dropped; existing
// entries are never rewritten.

func addInspectionNote(tx *gorm.DB, inspectionID uint, authorID uuid.UUID, body string) error {
	content := strings.TrimSpace(body)
	if content == "" {
		return nil
	}
	entry := models.InspectionNote{InspectionID: inspectionID, AuthorID: authorID, Body: content}
	return tx.Create(&entry).Error
}

func addResponseNote(tx *gorm.DB, responseID uuid.UUID, authorID uuid.UUID, body string) error {
	content := strings.TrimSpace(body)
	if content == "" {
		return nil
	}
	entry := models.InspectionResponseNote{ResponseID: responseID, AuthorID: authorID, Body: content}
	return tx.Create(&entry).Error
}

func addActionNote(tx *gorm.DB, actionID uint, authorID uuid.UUID, body string) error {
	content := strings.TrimSpace(body)
	if content == "" {
		return nil
	}
	entry := models.CorrectiveActionNote{ActionID: actionID, AuthorID: authorID, Body: content}
	return tx.Create(&entry).Error
}

// noteChanged reports whether the trimmed note text actually changed, which
// is the trigger for a history append.
func noteChanged(previous *string, next string) bool {
	prev := ""
	if previous != nil {
		prev = strings.TrimSpace(*previous)
	}
	trimmed := strings.TrimSpace(next)
	return trimmed != "" && trimmed != prev
}
