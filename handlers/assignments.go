package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"p9e.in/safecheck/config"
	"p9e.in/safecheck/middleware"
	"p9e.in/safecheck/models"
	"p9e.in/safecheck/utils"
)

// AssignmentHandler manages recurring inspection assignments.
type AssignmentHandler struct {
	db *gorm.DB
}

// NewAssignmentHandler creates a new assignment handler
func NewAssignmentHandler() *AssignmentHandler {
	return &AssignmentHandler{db: config.DB}
}

func validFrequency(frequency string) bool {
	switch frequency {
	case models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyMonthly:
		return true
	}
	return false
}

type createAssignmentRequest struct {
	AssignedToID string     `json:"assigned_to_id"`
	TemplateID   string     `json:"template_id"`
	Location     string     `json:"location"`
	Frequency    string     `json:"frequency"`
	StartDueAt   time.Time  `json:"start_due_at"`
	EndDate      *time.Time `json:"end_date"`
	NotifyCC     []string   `json:"notify_cc"`
}

// CreateAssignment creates a recurring assignment. The first occurrence is
// generated eagerly so the assignee sees it without waiting for the next
// worker pass.
func (h *AssignmentHandler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req createAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	assigneeID, err := uuid.Parse(req.AssignedToID)
	if err != nil {
		http.Error(w, "Invalid assigned_to_id", http.StatusBadRequest)
		return
	}
	var assignee models.User
	if err := h.db.First(&assignee, "id = ?", assigneeID).Error; err != nil {
		http.Error(w, "Assignee not found", http.StatusNotFound)
		return
	}

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

	if req.Frequency == "" {
		req.Frequency = models.FrequencyWeekly
	}
	if !validFrequency(req.Frequency) {
		http.Error(w, "Frequency must be daily, weekly or monthly", http.StatusBadRequest)
		return
	}
	if req.StartDueAt.IsZero() {
		http.Error(w, "start_due_at is required", http.StatusBadRequest)
		return
	}
	if req.EndDate != nil && req.EndDate.Before(req.StartDueAt) {
		http.Error(w, "end_date cannot be before start_due_at", http.StatusBadRequest)
		return
	}

	assignment := models.Assignment{
		AssignedToID: assigneeID,
		TemplateID:   &templateID,
		Location:     strings.TrimSpace(req.Location),
		Frequency:    req.Frequency,
		Active:       true,
		StartDueAt:   req.StartDueAt,
		EndDate:      req.EndDate,
		NotifyCC:     pq.StringArray(req.NotifyCC),
	}

	if err := h.db.Create(&assignment).Error; err != nil {
		log.Printf("❌ Failed to create assignment: %v", err)
		http.Error(w, "Failed to create assignment", http.StatusInternalServerError)
		return
	}

	assignment.Assignee = &assignee
	if _, err := generateForAssignment(h.db, &assignment, time.Now(), time.Now().AddDate(0, 0, 30), time.Now()); err != nil {
		log.Printf("⚠️ Initial schedule generation failed for assignment %d: %v", assignment.ID, err)
	}

	log.Printf("✅ Created assignment %d: %s inspects %q %s", assignment.ID, assignee.FullName, template.Name, assignment.Frequency)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(assignment)
}

// ListAssignments lists assignments. Inspectors see their own, privileged
// roles see all. Each row is annotated with whether the current week's
// occurrence is already completed.
func (h *AssignmentHandler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	query := h.db.Model(&models.Assignment{}).
		Preload("Assignee").
		Preload("Template").
		Order("id asc")

	if !utils.CanViewAllRecords(claims.Role) {
		query = query.Where("assigned_to_id = ?", claims.UserID)
	}
	if active := r.URL.Query().Get("active"); active != "" {
		query = query.Where("active = ?", active == "true")
	}

	var assignments []models.Assignment
	if err := query.Find(&assignments).Error; err != nil {
		http.Error(w, "Failed to fetch assignments", http.StatusInternalServerError)
		return
	}

	weekStart := normalizeWeekStart(time.Now())
	weekEnd := weekStart.AddDate(0, 0, 7)
	for i := range assignments {
		var completed int64
		h.db.Model(&models.ScheduledInspection{}).
			Where("assignment_id = ? AND status = ? AND due_at >= ? AND due_at < ?",
				assignments[i].ID, models.ScheduledCompleted, weekStart, weekEnd).
			Count(&completed)
		assignments[i].CurrentWeekCompleted = completed > 0
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"assignments": assignments,
		"count":       len(assignments),
	})
}

// GetAssignment returns one assignment with its upcoming occurrences.
func (h *AssignmentHandler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var assignment models.Assignment
	if err := h.db.
		Preload("Assignee").
		Preload("Template").
		Preload("ScheduledInspections", func(db *gorm.DB) *gorm.DB { return db.Order("due_at asc") }).
		First(&assignment, "id = ?", vars["id"]).Error; err != nil {
		http.Error(w, "Assignment not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(assignment)
}

type updateAssignmentRequest struct {
	AssignedToID *string    `json:"assigned_to_id"`
	Location     *string    `json:"location"`
	Frequency    *string    `json:"frequency"`
	EndDate      *time.Time `json:"end_date"`
	Active       *bool      `json:"active"`
	NotifyCC     *[]string  `json:"notify_cc"`
}

// UpdateAssignment edits an assignment. Cadence changes affect future
// occurrences only; rows already generated keep their due times.
func (h *AssignmentHandler) UpdateAssignment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var assignment models.Assignment
	if err := h.db.First(&assignment, "id = ?", vars["id"]).Error; err != nil {
		http.Error(w, "Assignment not found", http.StatusNotFound)
		return
	}

	var req updateAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
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
		assignment.AssignedToID = assigneeID
	}
	if req.Location != nil {
		assignment.Location = strings.TrimSpace(*req.Location)
	}
	if req.Frequency != nil {
		if !validFrequency(*req.Frequency) {
			http.Error(w, "Frequency must be daily, weekly or monthly", http.StatusBadRequest)
			return
		}
		assignment.Frequency = *req.Frequency
	}
	if req.EndDate != nil {
		assignment.EndDate = req.EndDate
	}
	if req.Active != nil {
		assignment.Active = *req.Active
	}
	if req.NotifyCC != nil {
		assignment.NotifyCC = pq.StringArray(*req.NotifyCC)
	}

	if err := h.db.Save(&assignment).Error; err != nil {
		http.Error(w, "Failed to update assignment", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(assignment)
}

// DeactivateAssignment turns recurrence off without touching history. Open
// occurrences stay until completed or swept overdue.
func (h *AssignmentHandler) DeactivateAssignment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var assignment models.Assignment
	if err := h.db.First(&assignment, "id = ?", vars["id"]).Error; err != nil {
		http.Error(w, "Assignment not found", http.StatusNotFound)
		return
	}

	if err := h.db.Model(&assignment).Update("active", false).Error; err != nil {
		http.Error(w, "Failed to deactivate assignment", http.StatusInternalServerError)
		return
	}

	log.Printf("✅ Deactivated assignment %d", assignment.ID)
	w.WriteHeader(http.StatusNoContent)
}
