package handlers

import (
	"encoding/json"
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

// ActionHandler manages corrective actions raised against inspection
// responses.
type ActionHandler struct {
	db *gorm.DB
}

// NewActionHandler creates a new action handler
func NewActionHandler() *ActionHandler {
	return &ActionHandler{db: config.DB}
}

func validSeverity(severity string) bool {
	switch severity {
	case models.SeverityLow, models.SeverityMedium, models.SeverityHigh:
		return true
	}
	return false
}

// resolveCloseNotes picks the resolution notes a close should record: the
// explicitly supplied ones win, otherwise notes already stored on the action
// carry over. Returns nil if neither yields a non-empty value.
func resolveCloseNotes(action *models.CorrectiveAction, supplied *string) *string {
	if supplied != nil && strings.TrimSpace(*supplied) != "" {
		trimmed := strings.TrimSpace(*supplied)
		return &trimmed
	}
	if action.ResolutionNotes != nil && strings.TrimSpace(*action.ResolutionNotes) != "" {
		return action.ResolutionNotes
	}
	return nil
}

// validateActionClose gates the transition to closed: at least one attachment
// and resolution notes (supplied now or already stored).
func validateActionClose(action *models.CorrectiveAction, attachmentCount int, suppliedNotes *string) []string {
	var problems []string
	if attachmentCount == 0 {
		problems = append(problems, "closing an action requires at least one attachment")
	}
	if resolveCloseNotes(action, suppliedNotes) == nil {
		problems = append(problems, "closing an action requires resolution notes")
	}
	return problems
}

// applyReopen returns a closed action to the given working status, clearing
// the closing metadata. Resolution notes are replaced by the supplied text, or
// cleared when none is given.
func applyReopen(action *models.CorrectiveAction, status string, suppliedNotes *string) {
	action.Status = status
	action.ClosedAt = nil
	action.ClosedByID = nil
	if suppliedNotes != nil && strings.TrimSpace(*suppliedNotes) != "" {
		trimmed := strings.TrimSpace(*suppliedNotes)
		action.ResolutionNotes = &trimmed
	} else {
		action.ResolutionNotes = nil
	}
}

type createActionRequest struct {
	InspectionID    uint       `json:"inspection_id"`
	ResponseID      *string    `json:"response_id"`
	Title           string     `json:"title"`
	Description     *string    `json:"description"`
	Severity        string     `json:"severity"`
	DueDate         *time.Time `json:"due_date"`
	AssignedToID    *string    `json:"assigned_to_id"`
	WorkOrderNumber *string    `json:"work_order_number"`
	WorkOrderVendor *string    `json:"work_order_vendor"`
}

// CreateAction opens a corrective action on an inspection, optionally linked
// to one of its responses. Actions are always created open; the due date
// defaults from the severity SLA when the caller leaves it out.
func (h *ActionHandler) CreateAction(w http.ResponseWriter, r *http.Request) {
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

	var req createActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		http.Error(w, "Title is required", http.StatusBadRequest)
		return
	}
	if req.Severity == "" {
		req.Severity = models.SeverityMedium
	}
	if !validSeverity(req.Severity) {
		http.Error(w, "Severity must be low, medium or high", http.StatusBadRequest)
		return
	}

	var inspection models.Inspection
	if err := h.db.First(&inspection, req.InspectionID).Error; err != nil {
		http.Error(w, "Inspection not found", http.StatusNotFound)
		return
	}
	if !utils.CanViewAllRecords(claims.Role) && inspection.InspectorID != userID {
		http.Error(w, "You do not have access to this inspection", http.StatusForbidden)
		return
	}

	action := models.CorrectiveAction{
		InspectionID:    inspection.ID,
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		Severity:        req.Severity,
		DueDate:         req.DueDate,
		Status:          models.ActionOpen,
		StartedByID:     userID,
		WorkOrderNumber: req.WorkOrderNumber,
		WorkOrderVendor: req.WorkOrderVendor,
	}

	if req.ResponseID != nil {
		responseID, err := uuid.Parse(*req.ResponseID)
		if err != nil {
			http.Error(w, "Invalid response_id", http.StatusBadRequest)
			return
		}
		var response models.InspectionResponse
		if err := h.db.Where("id = ? AND inspection_id = ?", responseID, inspection.ID).First(&response).Error; err != nil {
			http.Error(w, "Response does not belong to this inspection", http.StatusBadRequest)
			return
		}
		action.ResponseID = &responseID
	}

	if req.AssignedToID != nil {
		assigneeID, err := uuid.Parse(*req.AssignedToID)
		if err != nil {
			http.Error(w, "Invalid assigned_to_id", http.StatusBadRequest)
			return
		}
		var assignee models.User
		if err := h.db.First(&assignee, "id = ?", assigneeID).Error; err != nil {
			http.Error(w, "Assignee not found", http.StatusNotFound)
			return
		}
		action.AssignedToID = &assigneeID
	}

	if action.DueDate == nil {
		sla, err := getSeveritySLA(h.db)
		if err == nil {
			due := dueDateForSeverity(sla, time.Now(), action.Severity)
			action.DueDate = &due
		}
	}

	if err := h.db.Create(&action).Error; err != nil {
		log.Printf("❌ Failed to create corrective action: %v", err)
		http.Error(w, "Failed to create corrective action", http.StatusInternalServerError)
		return
	}

	log.Printf("✅ Created corrective action %d (%s) on inspection %d", action.ID, action.Severity, inspection.ID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(action)
}

// ListActions lists actions visible to the caller. Action owners see actions
// assigned to them or started by them; inspectors additionally see actions on
// their own inspections; reviewers and admins see everything. Filters:
// status, severity, inspection_id, overdue=true.
func (h *ActionHandler) ListActions(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	query := h.db.Model(&models.CorrectiveAction{}).
		Preload("Assignee").
		Preload("StartedBy").
		Order("created_at desc")

	if !utils.CanViewAllRecords(claims.Role) {
		query = query.Where(
			"assigned_to_id = ? OR started_by_id = ? OR inspection_id IN (?)",
			claims.UserID, claims.UserID,
			h.db.Model(&models.Inspection{}).Select("id").Where("inspector_id = ?", claims.UserID),
		)
	}

	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if severity := r.URL.Query().Get("severity"); severity != "" {
		query = query.Where("severity = ?", severity)
	}
	if inspectionID := r.URL.Query().Get("inspection_id"); inspectionID != "" {
		query = query.Where("inspection_id = ?", inspectionID)
	}
	if r.URL.Query().Get("overdue") == "true" {
		query = query.Where("status != ? AND due_date < ?", models.ActionClosed, time.Now())
	}

	var actions []models.CorrectiveAction
	if err := query.Find(&actions).Error; err != nil {
		http.Error(w, "Failed to fetch actions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"actions": actions,
		"count":   len(actions),
	})
}

// GetAction returns one action with attachments and note history.
func (h *ActionHandler) GetAction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var action models.CorrectiveAction
	if err := h.db.
		Preload("Assignee").
		Preload("StartedBy").
		Preload("ClosedBy").
		Preload("MediaFiles").
		Preload("NoteEntries").
		First(&action, "id = ?", vars["id"]).Error; err != nil {
		http.Error(w, "Action not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(action)
}

type updateActionRequest struct {
	Title           *string    `json:"title"`
	Description     *string    `json:"description"`
	Severity        *string    `json:"severity"`
	DueDate         *time.Time `json:"due_date"`
	AssignedToID    *string    `json:"assigned_to_id"`
	Status          *string    `json:"status"`
	ResolutionNotes *string    `json:"resolution_notes"`
	WorkOrderNumber *string    `json:"work_order_number"`
	WorkOrderVendor *string    `json:"work_order_vendor"`
}

// UpdateAction edits an action and drives its status transitions. Closing
// requires attachment + resolution notes and records who closed it; reopening
// a closed action clears the closing metadata. Only a privileged role, the
// assignee, or the user who started the action may close or reopen it.
func (h *ActionHandler) UpdateAction(w http.ResponseWriter, r *http.Request) {
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

	vars := mux.Vars(r)
	var action models.CorrectiveAction
	if err := h.db.First(&action, "id = ?", vars["id"]).Error; err != nil {
		http.Error(w, "Action not found", http.StatusNotFound)
		return
	}

	var req updateActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			http.Error(w, "Title cannot be empty", http.StatusBadRequest)
			return
		}
		action.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		action.Description = req.Description
	}
	if req.Severity != nil {
		if !validSeverity(*req.Severity) {
			http.Error(w, "Severity must be low, medium or high", http.StatusBadRequest)
			return
		}
		action.Severity = *req.Severity
	}
	if req.DueDate != nil {
		action.DueDate = req.DueDate
	}
	if req.AssignedToID != nil {
		assigneeID, err := uuid.Parse(*req.AssignedToID)
		if err != nil {
			http.Error(w, "Invalid assigned_to_id", http.StatusBadRequest)
			return
		}
		action.AssignedToID = &assigneeID
	}
	if req.WorkOrderNumber != nil {
		action.WorkOrderNumber = req.WorkOrderNumber
	}
	if req.WorkOrderVendor != nil {
		action.WorkOrderVendor = req.WorkOrderVendor
	}

	notesChanged := req.ResolutionNotes != nil && noteChanged(action.ResolutionNotes, *req.ResolutionNotes)

	if req.Status != nil && *req.Status != action.Status {
		switch *req.Status {
		case models.ActionInProgress:
			if action.Status == models.ActionClosed {
				if !utils.CanCloseAction(claims.UserID, claims.Role, &action) {
					http.Error(w, "You are not allowed to reopen this action", http.StatusForbidden)
					return
				}
				applyReopen(&action, models.ActionInProgress, req.ResolutionNotes)
			} else {
				action.Status = models.ActionInProgress
			}

		case models.ActionClosed:
			if !utils.CanCloseAction(claims.UserID, claims.Role, &action) {
				http.Error(w, "You are not allowed to close this action", http.StatusForbidden)
				return
			}
			var attachments int64
			if err := h.db.Model(&models.MediaFile{}).Where("action_id = ?", action.ID).Count(&attachments).Error; err != nil {
				http.Error(w, "Failed to count attachments", http.StatusInternalServerError)
				return
			}
			if problems := validateActionClose(&action, int(attachments), req.ResolutionNotes); len(problems) > 0 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnprocessableEntity)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"error":    "Action cannot be closed",
					"problems": problems,
				})
				return
			}
			now := time.Now()
			action.Status = models.ActionClosed
			action.ClosedAt = &now
			action.ClosedByID = &userID
			action.ResolutionNotes = resolveCloseNotes(&action, req.ResolutionNotes)

		case models.ActionOpen:
			if action.Status == models.ActionClosed && !utils.CanCloseAction(claims.UserID, claims.Role, &action) {
				http.Error(w, "You are not allowed to reopen this action", http.StatusForbidden)
				return
			}
			applyReopen(&action, models.ActionOpen, req.ResolutionNotes)

		default:
			http.Error(w, "Status must be open, in_progress or closed", http.StatusBadRequest)
			return
		}
	} else if req.ResolutionNotes != nil {
		trimmed := strings.TrimSpace(*req.ResolutionNotes)
		if trimmed == "" {
			action.ResolutionNotes = nil
		} else {
			action.ResolutionNotes = &trimmed
		}
	}

	tx := h.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if notesChanged {
		if err := addActionNote(tx, action.ID, userID, *req.ResolutionNotes); err != nil {
			tx.Rollback()
			http.Error(w, "Failed to record note history", http.StatusInternalServerError)
			return
		}
	}

	if err := tx.Save(&action).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Failed to update action", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit().Error; err != nil {
		http.Error(w, "Failed to commit transaction", http.StatusInternalServerError)
		return
	}

	log.Printf("✅ Updated corrective action %d (status: %s)", action.ID, action.Status)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(action)
}

// DeleteAction removes an open action. Closed actions are audit history and
// stay.
func (h *ActionHandler) DeleteAction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var action models.CorrectiveAction
	if err := h.db.First(&action, "id = ?", vars["id"]).Error; err != nil {
		http.Error(w, "Action not found", http.StatusNotFound)
		return
	}
	if action.Status == models.ActionClosed {
		http.Error(w, "Closed actions cannot be deleted", http.StatusConflict)
		return
	}
	if err := h.db.Delete(&action).Error; err != nil {
		http.Error(w, "Failed to delete action", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// countOverdueActions counts open or in-progress actions past their due date.
func countOverdueActions(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&models.CorrectiveAction{}).
		Where("status != ? AND due_date IS NOT NULL AND due_date < ?", models.ActionClosed, time.Now()).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count overdue actions: %w", err)
	}
	return count, nil
}
