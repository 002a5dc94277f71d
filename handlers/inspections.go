package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
	"p9e.in/safecheck/config"
	"p9e.in/safecheck/middleware"
	"p9e.in/safecheck/models"
	"p9e.in/safecheck/utils"
)

// InspectionHandler manages the inspection record lifecycle: creation from a
// template or a scheduled occurrence, responses, and the review transitions
// in inspection_lifecycle.go.
type InspectionHandler struct {
	db *gorm.DB
}

// NewInspectionHandler creates a new inspection handler
func NewInspectionHandler() *InspectionHandler {
	return &InspectionHandler{db: config.DB}
}

type createInspectionRequest struct {
	TemplateID            string  `json:"template_id"`
	ScheduledInspectionID *uint   `json:"scheduled_inspection_id"`
	AssignmentID          *uint   `json:"assignment_id"`
	Location              string  `json:"location"`
	Notes                 *string `json:"notes"`
}

// CreateInspection opens a draft inspection. Two entry points share this
// handler: an independent inspection names a template directly, an
// assignment-driven one names a scheduled occurrence (or its assignment, in
// which case the next pending occurrence is resolved, generating it on demand
// if the generator has not run yet).
func (h *InspectionHandler) CreateInspection(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		http.Error(w, "Invalid user", http.StatusUnauthorized)
		return
	}

	var req createInspectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	inspection := models.Inspection{
		InspectorID:      userID,
		CreatedByID:      userID,
		Status:           models.InspectionDraft,
		InspectionOrigin: models.OriginIndependent,
		StartedAt:        time.Now(),
		Notes:            req.Notes,
	}

	switch {
	case req.ScheduledInspectionID != nil || req.AssignmentID != nil:
		scheduled, assignment, err := h.resolveScheduledSlot(req.ScheduledInspectionID, req.AssignmentID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if assignment.AssignedToID != userID {
			http.Error(w, "This assignment belongs to another inspector", http.StatusForbidden)
			return
		}
		if scheduled.Status == models.ScheduledCompleted {
			http.Error(w, "This scheduled inspection is already completed", http.StatusConflict)
			return
		}
		if assignment.TemplateID == nil {
			http.Error(w, "Assignment has no template", http.StatusConflict)
			return
		}
		inspection.TemplateID = *assignment.TemplateID
		inspection.ScheduledInspectionID = &scheduled.ID
		inspection.InspectionOrigin = models.OriginAssignment
		inspection.Location = req.Location
		if inspection.Location == "" {
			inspection.Location = assignment.Location
		}

	case req.TemplateID != "":
		templateID, err := uuid.Parse(req.TemplateID)
		if err != nil {
			http.Error(w, "Invalid template_id", http.StatusBadRequest)
			return
		}
		var template models.ChecklistTemplate
		if err := h.db.First(&template, "id = ?", templateID).Error; err != nil {
			http.Error(w, "Template not found", http.StatusNotFound)
			return
		}
		inspection.TemplateID = templateID
		inspection.Location = req.Location

	default:
		http.Error(w, "Either template_id or a scheduled occurrence is required", http.StatusBadRequest)
		return
	}

	if inspection.Location != "" {
		loc, err := ensureLocationByName(h.db, inspection.Location)
		if err == nil && loc != nil {
			inspection.LocationID = &loc.ID
		}
	}

	if err := h.db.Create(&inspection).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			http.Error(w, "An inspection already exists for this scheduled occurrence", http.StatusConflict)
			return
		}
		log.Printf("❌ Failed to create inspection: %v", err)
		http.Error(w, "Failed to create inspection", http.StatusInternalServerError)
		return
	}

	log.Printf("✅ Created inspection %d (origin: %s) for %s", inspection.ID, inspection.InspectionOrigin, claims.Email)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(inspection)
}

// resolveScheduledSlot finds the occurrence an inspection should attach to,
// either directly by ID or as the assignment's next open occurrence.
func (h *InspectionHandler) resolveScheduledSlot(scheduledID, assignmentID *uint) (*models.ScheduledInspection, *models.Assignment, error) {
	if scheduledID != nil {
		var scheduled models.ScheduledInspection
		if err := h.db.Preload("Assignment.Assignee").First(&scheduled, *scheduledID).Error; err != nil {
			return nil, nil, fmt.Errorf("scheduled inspection %d not found", *scheduledID)
		}
		if scheduled.Assignment == nil {
			return nil, nil, fmt.Errorf("scheduled inspection %d has no assignment", *scheduledID)
		}
		return &scheduled, scheduled.Assignment, nil
	}

	var assignment models.Assignment
	if err := h.db.Preload("Assignee").First(&assignment, *assignmentID).Error; err != nil {
		return nil, nil, fmt.Errorf("assignment %d not found", *assignmentID)
	}
	scheduled, err := ensurePendingSchedule(h.db, &assignment)
	if err != nil {
		return nil, nil, err
	}
	return scheduled, &assignment, nil
}

// ListInspections lists inspections visible to the caller. Inspectors see
// only their own; reviewers and admins see everything. Optional filters:
// status, origin, template_id, assigned-only date ranges.
func (h *InspectionHandler) ListInspections(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	query := h.db.Model(&models.Inspection{}).
		Preload("Template").
		Preload("Inspector").
		Order("started_at desc")

	if !utils.CanViewAllRecords(claims.Role) {
		query = query.Where("inspector_id = ?", claims.UserID)
	}

	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if origin := r.URL.Query().Get("origin"); origin != "" {
		query = query.Where("inspection_origin = ?", origin)
	}
	if templateID := r.URL.Query().Get("template_id"); templateID != "" {
		query = query.Where("template_id = ?", templateID)
	}
	if from := r.URL.Query().Get("from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			query = query.Where("started_at >= ?", t)
		}
	}
	if to := r.URL.Query().Get("to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			query = query.Where("started_at < ?", t.AddDate(0, 0, 1))
		}
	}

	var inspections []models.Inspection
	if err := query.Find(&inspections).Error; err != nil {
		http.Error(w, "Failed to fetch inspections", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"inspections": inspections,
		"count":       len(inspections),
	})
}

// GetInspection returns one inspection with its full detail graph.
func (h *InspectionHandler) GetInspection(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	var inspection models.Inspection
	if err := h.db.
		Preload("Template.Sections", func(db *gorm.DB) *gorm.DB { return db.Order("order_index asc") }).
		Preload("Template.Sections.Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_index asc") }).
		Preload("Inspector").
		Preload("Responses.MediaFiles").
		Preload("Responses.NoteEntries").
		Preload("Actions").
		Preload("NoteEntries").
		Preload("RejectionEntries").
		First(&inspection, "id = ?", vars["id"]).Error; err != nil {
		http.Error(w, "Inspection not found", http.StatusNotFound)
		return
	}

	if !utils.CanViewAllRecords(claims.Role) && inspection.InspectorID.String() != claims.UserID {
		http.Error(w, "You do not have access to this inspection", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(inspection)
}

type updateInspectionRequest struct {
	Location *string `json:"location"`
	Notes    *string `json:"notes"`
}

// UpdateInspection edits the mutable header fields of a draft or rejected
// inspection. Changing the notes also appends a history entry so earlier
// notes survive being replaced.
func (h *InspectionHandler) UpdateInspection(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	inspection, ok := h.loadOwnedInspection(w, r, claims)
	if !ok {
		return
	}
	if inspection.Status != models.InspectionDraft && inspection.Status != models.InspectionRejected {
		http.Error(w, fmt.Sprintf("Inspection in status %s cannot be edited", inspection.Status), http.StatusConflict)
		return
	}

	var req updateInspectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	authorID, _ := uuid.Parse(claims.UserID)

	tx := h.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if req.Location != nil {
		inspection.Location = strings.TrimSpace(*req.Location)
		inspection.LocationID = nil
		if inspection.Location != "" {
			loc, err := ensureLocationByName(tx, inspection.Location)
			if err != nil {
				tx.Rollback()
				http.Error(w, "Failed to resolve location", http.StatusInternalServerError)
				return
			}
			inspection.LocationID = &loc.ID
		}
	}

	if req.Notes != nil {
		if noteChanged(inspection.Notes, *req.Notes) {
			if err := addInspectionNote(tx, inspection.ID, authorID, *req.Notes); err != nil {
				tx.Rollback()
				http.Error(w, "Failed to record note history", http.StatusInternalServerError)
				return
			}
		}
		trimmed := strings.TrimSpace(*req.Notes)
		if trimmed == "" {
			inspection.Notes = nil
		} else {
			inspection.Notes = &trimmed
		}
	}

	if err := tx.Save(inspection).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Failed to update inspection", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit().Error; err != nil {
		http.Error(w, "Failed to commit transaction", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(inspection)
}

type upsertResponseRequest struct {
	TemplateItemID string  `json:"template_item_id"`
	Result         string  `json:"result"`
	Note           *string `json:"note"`
}

// UpsertResponse records or revises the answer for one checklist item. One
// response per (inspection, item); a second write for the same item updates
// the existing row.
func (h *InspectionHandler) UpsertResponse(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	inspection, ok := h.loadOwnedInspection(w, r, claims)
	if !ok {
		return
	}
	if inspection.Status != models.InspectionDraft && inspection.Status != models.InspectionRejected {
		http.Error(w, fmt.Sprintf("Inspection in status %s cannot be edited", inspection.Status), http.StatusConflict)
		return
	}

	var req upsertResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	itemID, err := uuid.Parse(req.TemplateItemID)
	if err != nil {
		http.Error(w, "Invalid template_item_id", http.StatusBadRequest)
		return
	}

	switch req.Result {
	case models.ResultPending, models.ResultPass, models.ResultFail:
	default:
		http.Error(w, "Result must be pending, pass or fail", http.StatusBadRequest)
		return
	}

	items, err := templateItems(h.db, inspection.TemplateID)
	if err != nil {
		http.Error(w, "Failed to load template", http.StatusInternalServerError)
		return
	}
	found := false
	for _, item := range items {
		if item.ID == itemID {
			found = true
			break
		}
	}
	if !found {
		http.Error(w, "Item does not belong to this inspection's template", http.StatusBadRequest)
		return
	}

	authorID, _ := uuid.Parse(claims.UserID)

	tx := h.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var response models.InspectionResponse
	err = tx.Where("inspection_id = ? AND template_item_id = ?", inspection.ID, itemID).First(&response).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		response = models.InspectionResponse{
			InspectionID:   inspection.ID,
			TemplateItemID: itemID,
			Result:         req.Result,
		}
		if req.Note != nil && strings.TrimSpace(*req.Note) != "" {
			trimmed := strings.TrimSpace(*req.Note)
			response.Note = &trimmed
			if err := addResponseNoteDeferred(tx, &response, authorID, trimmed); err != nil {
				tx.Rollback()
				http.Error(w, "Failed to record note history", http.StatusInternalServerError)
				return
			}
		} else if err := tx.Create(&response).Error; err != nil {
			tx.Rollback()
			http.Error(w, "Failed to save response", http.StatusInternalServerError)
			return
		}
	case err != nil:
		tx.Rollback()
		http.Error(w, "Failed to load response", http.StatusInternalServerError)
		return
	default:
		response.Result = req.Result
		if req.Note != nil {
			if noteChanged(response.Note, *req.Note) {
				if err := addResponseNote(tx, response.ID, authorID, *req.Note); err != nil {
					tx.Rollback()
					http.Error(w, "Failed to record note history", http.StatusInternalServerError)
					return
				}
			}
			trimmed := strings.TrimSpace(*req.Note)
			if trimmed == "" {
				response.Note = nil
			} else {
				response.Note = &trimmed
			}
		}
		if err := tx.Save(&response).Error; err != nil {
			tx.Rollback()
			http.Error(w, "Failed to save response", http.StatusInternalServerError)
			return
		}
	}

	if err := tx.Commit().Error; err != nil {
		http.Error(w, "Failed to commit transaction", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// addResponseNoteDeferred creates the response first so the note has a real
// response ID to point at.
func addResponseNoteDeferred(tx *gorm.DB, response *models.InspectionResponse, authorID uuid.UUID, body string) error {
	if err := tx.Create(response).Error; err != nil {
		return err
	}
	return addResponseNote(tx, response.ID, authorID, body)
}

// DeleteResponse removes a response (and its attachments via cascade) while
// the inspection is still editable.
func (h *InspectionHandler) DeleteResponse(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	inspection, ok := h.loadOwnedInspection(w, r, claims)
	if !ok {
		return
	}
	if inspection.Status != models.InspectionDraft && inspection.Status != models.InspectionRejected {
		http.Error(w, fmt.Sprintf("Inspection in status %s cannot be edited", inspection.Status), http.StatusConflict)
		return
	}

	vars := mux.Vars(r)
	var response models.InspectionResponse
	if err := h.db.Where("id = ? AND inspection_id = ?", vars["responseId"], inspection.ID).First(&response).Error; err != nil {
		http.Error(w, "Response not found", http.StatusNotFound)
		return
	}

	var actionCount int64
	if err := h.db.Model(&models.CorrectiveAction{}).Where("response_id = ?", response.ID).Count(&actionCount).Error; err != nil {
		http.Error(w, "Failed to check linked actions", http.StatusInternalServerError)
		return
	}
	if actionCount > 0 {
		http.Error(w, "Response has linked corrective actions and cannot be deleted", http.StatusConflict)
		return
	}

	if err := h.db.Delete(&response).Error; err != nil {
		http.Error(w, "Failed to delete response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
