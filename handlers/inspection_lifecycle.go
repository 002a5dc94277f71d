package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"p9e.in/safecheck/middleware"
	"p9e.in/safecheck/models"
	"p9e.in/safecheck/utils"
)

// calculateOverallScore returns the percentage of scored responses that
// passed, rounded to two decimals. Pending responses are ignored. An
// inspection with no scored responses scores 0.0.
func calculateOverallScore(responses []models.InspectionResponse) float64 {
	var passed, scored int
	for _, resp := range responses {
		switch resp.Result {
		case models.ResultPass:
			passed++
			scored++
		case models.ResultFail:
			scored++
		}
	}
	if scored == 0 {
		return 0.0
	}
	return math.Round(float64(passed)/float64(scored)*100*100) / 100
}

// validateSubmission checks an inspection against its template before it can
// leave draft. It returns one message per problem, all of them, so the
// inspector can fix everything in a single pass.
//
// Rules, in order:
//  1. Every required item must have a response. A pending result still
//     counts as answered; pending responses are simply excluded from the
//     score.
//  2. Every failing response on an item that requires evidence on fail must
//     have at least one linked corrective action, and at least one attachment
//     on the response itself or on any of its actions.
func validateSubmission(
	items []models.TemplateItem,
	responses []models.InspectionResponse,
	actions []models.CorrectiveAction,
	actionAttachments map[uint]int,
) []string {
	var problems []string

	responseByItem := make(map[uuid.UUID]*models.InspectionResponse, len(responses))
	for i := range responses {
		responseByItem[responses[i].TemplateItemID] = &responses[i]
	}

	actionsByResponse := make(map[uuid.UUID]int)
	actionMediaByResponse := make(map[uuid.UUID]int)
	for _, action := range actions {
		if action.ResponseID == nil {
			continue
		}
		actionsByResponse[*action.ResponseID]++
		actionMediaByResponse[*action.ResponseID] += actionAttachments[action.ID]
	}

	for _, item := range items {
		if !item.IsRequired {
			continue
		}
		if _, ok := responseByItem[item.ID]; !ok {
			problems = append(problems, fmt.Sprintf("required item %q has no response", item.Prompt))
		}
	}

	for _, item := range items {
		if !item.RequiresEvidenceOnFail {
			continue
		}
		resp, ok := responseByItem[item.ID]
		if !ok || resp.Result != models.ResultFail {
			continue
		}
		if actionsByResponse[resp.ID] == 0 {
			problems = append(problems, fmt.Sprintf("failing item %q requires a corrective action", item.Prompt))
		}
		if len(resp.MediaFiles)+actionMediaByResponse[resp.ID] == 0 {
			problems = append(problems, fmt.Sprintf("failing item %q requires at least one attachment", item.Prompt))
		}
	}

	return problems
}

// loadSubmissionContext fetches everything validateSubmission needs for one
// inspection: template items, responses with attachments, linked actions and
// per-action attachment counts.
func (h *InspectionHandler) loadSubmissionContext(inspection *models.Inspection) ([]models.TemplateItem, []models.InspectionResponse, []models.CorrectiveAction, map[uint]int, error) {
	items, err := templateItems(h.db, inspection.TemplateID)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	var responses []models.InspectionResponse
	if err := h.db.Preload("MediaFiles").Where("inspection_id = ?", inspection.ID).Find(&responses).Error; err != nil {
		return nil, nil, nil, nil, err
	}

	var actions []models.CorrectiveAction
	if err := h.db.Where("inspection_id = ?", inspection.ID).Find(&actions).Error; err != nil {
		return nil, nil, nil, nil, err
	}

	attachments := make(map[uint]int)
	for _, action := range actions {
		var count int64
		if err := h.db.Model(&models.MediaFile{}).Where("action_id = ?", action.ID).Count(&count).Error; err != nil {
			return nil, nil, nil, nil, err
		}
		attachments[action.ID] = int(count)
	}

	return items, responses, actions, attachments, nil
}

// SubmitInspection moves a draft or rejected inspection to submitted. The
// inspection is validated against its template, scored, and its scheduled
// slot (if any) is marked completed, all in one transaction.
func (h *InspectionHandler) SubmitInspection(w http.ResponseWriter, r *http.Request) {
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
		http.Error(w, fmt.Sprintf("Inspection in status %s cannot be submitted", inspection.Status), http.StatusConflict)
		return
	}

	items, responses, actions, attachments, err := h.loadSubmissionContext(inspection)
	if err != nil {
		http.Error(w, "Failed to load inspection data", http.StatusInternalServerError)
		return
	}

	if problems := validateSubmission(items, responses, actions, attachments); len(problems) > 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error":    "Inspection is not ready for submission",
			"problems": problems,
		})
		return
	}

	now := time.Now()
	score := calculateOverallScore(responses)

	tx := h.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	inspection.Status = models.InspectionSubmitted
	inspection.SubmittedAt = &now
	inspection.OverallScore = &score
	if err := tx.Save(inspection).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Failed to submit inspection", http.StatusInternalServerError)
		return
	}

	if inspection.ScheduledInspectionID != nil {
		if err := markScheduledCompleted(tx, *inspection.ScheduledInspectionID); err != nil {
			tx.Rollback()
			http.Error(w, "Failed to update schedule", http.StatusInternalServerError)
			return
		}
	}

	if err := tx.Commit().Error; err != nil {
		http.Error(w, "Failed to commit transaction", http.StatusInternalServerError)
		return
	}

	log.Printf("✅ Inspection %d submitted (score %.2f)", inspection.ID, score)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(inspection)
}

// ApproveInspection moves a submitted inspection to approved.
func (h *InspectionHandler) ApproveInspection(w http.ResponseWriter, r *http.Request) {
	inspection, ok := h.loadInspection(w, r)
	if !ok {
		return
	}

	if inspection.Status != models.InspectionSubmitted {
		http.Error(w, fmt.Sprintf("Inspection in status %s cannot be approved", inspection.Status), http.StatusConflict)
		return
	}

	now := time.Now()
	inspection.Status = models.InspectionApproved
	inspection.ApprovedAt = &now
	if err := h.db.Save(inspection).Error; err != nil {
		http.Error(w, "Failed to approve inspection", http.StatusInternalServerError)
		return
	}

	log.Printf("✅ Inspection %d approved", inspection.ID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(inspection)
}

type rejectItemRequest struct {
	TemplateItemID       string `json:"template_item_id"`
	Reason               string `json:"reason"`
	FollowUpInstructions string `json:"follow_up_instructions"`
}

type rejectInspectionRequest struct {
	Reason string              `json:"reason"`
	Items  []rejectItemRequest `json:"items"`
}

// RejectInspection sends a submitted inspection back to the inspector. A
// trimmed non-empty reason is required. Reviewers may flag individual items;
// each flagged item gets its own rejection entry, otherwise one general entry
// records the overall reason.
func (h *InspectionHandler) RejectInspection(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	inspection, ok := h.loadInspection(w, r)
	if !ok {
		return
	}

	if inspection.Status != models.InspectionSubmitted {
		http.Error(w, fmt.Sprintf("Inspection in status %s cannot be rejected", inspection.Status), http.StatusConflict)
		return
	}

	var req rejectInspectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		http.Error(w, "A rejection reason is required", http.StatusBadRequest)
		return
	}

	rejectedBy, err := uuid.Parse(claims.UserID)
	if err != nil {
		http.Error(w, "Invalid user", http.StatusUnauthorized)
		return
	}

	// Flagged items must exist on this inspection's template.
	items, err := templateItems(h.db, inspection.TemplateID)
	if err != nil {
		http.Error(w, "Failed to load template", http.StatusInternalServerError)
		return
	}
	validItems := make(map[uuid.UUID]bool, len(items))
	for _, item := range items {
		validItems[item.ID] = true
	}

	var entries []models.InspectionRejectionEntry
	for _, flagged := range req.Items {
		itemID, err := uuid.Parse(flagged.TemplateItemID)
		if err != nil || !validItems[itemID] {
			http.Error(w, fmt.Sprintf("Item %s does not belong to this inspection's template", flagged.TemplateItemID), http.StatusBadRequest)
			return
		}
		itemReason := strings.TrimSpace(flagged.Reason)
		if itemReason == "" {
			itemReason = reason
		}
		id := itemID
		entries = append(entries, models.InspectionRejectionEntry{
			InspectionID:         inspection.ID,
			TemplateItemID:       &id,
			Reason:               itemReason,
			FollowUpInstructions: flagged.FollowUpInstructions,
			RejectedByID:         rejectedBy,
		})
	}
	if len(entries) == 0 {
		entries = append(entries, models.InspectionRejectionEntry{
			InspectionID: inspection.ID,
			Reason:       reason,
			RejectedByID: rejectedBy,
		})
	}

	now := time.Now()

	tx := h.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	inspection.Status = models.InspectionRejected
	inspection.RejectedAt = &now
	inspection.RejectedByID = &rejectedBy
	inspection.RejectionReason = &reason
	if err := tx.Save(inspection).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Failed to reject inspection", http.StatusInternalServerError)
		return
	}

	if err := tx.Create(&entries).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Failed to record rejection details", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit().Error; err != nil {
		http.Error(w, "Failed to commit transaction", http.StatusInternalServerError)
		return
	}

	log.Printf("⚠️ Inspection %d rejected by %s", inspection.ID, claims.Email)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(inspection)
}

// loadInspection resolves the {id} path variable to an inspection row.
func (h *InspectionHandler) loadInspection(w http.ResponseWriter, r *http.Request) (*models.Inspection, bool) {
	vars := mux.Vars(r)
	var inspection models.Inspection
	if err := h.db.First(&inspection, "id = ?", vars["id"]).Error; err != nil {
		http.Error(w, "Inspection not found", http.StatusNotFound)
		return nil, false
	}
	return &inspection, true
}

// loadOwnedInspection is loadInspection plus an ownership check: inspectors
// may only touch their own inspections, privileged roles see everything.
func (h *InspectionHandler) loadOwnedInspection(w http.ResponseWriter, r *http.Request, claims *middleware.Claims) (*models.Inspection, bool) {
	inspection, ok := h.loadInspection(w, r)
	if !ok {
		return nil, false
	}
	if !utils.CanViewAllRecords(claims.Role) && inspection.InspectorID.String() != claims.UserID {
		http.Error(w, "You do not have access to this inspection", http.StatusForbidden)
		return nil, false
	}
	return inspection, true
}
