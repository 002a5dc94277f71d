package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"gorm.io/gorm"
	"p9e.in/safecheck/config"
	"p9e.in/safecheck/models"
)

// DashboardHandler aggregates workload metrics for the overview screen.
type DashboardHandler struct {
	db *gorm.DB
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler() *DashboardHandler {
	return &DashboardHandler{db: config.DB}
}

type dashboardMetrics struct {
	InspectionsByStatus map[string]int64 `json:"inspections_by_status"`
	AverageScore        *float64         `json:"average_score"`
	OpenActions         int64            `json:"open_actions"`
	OverdueActions      int64            `json:"overdue_actions"`
	PendingScheduled    int64            `json:"pending_scheduled"`
	OverdueScheduled    int64            `json:"overdue_scheduled"`
	CompletedThisWeek   int64            `json:"completed_this_week"`
}

// GetDashboard returns counts across inspections, corrective actions, and
// the schedule. The average score covers submitted and approved inspections
// only.
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	metrics := dashboardMetrics{
		InspectionsByStatus: make(map[string]int64),
	}

	type statusCount struct {
		Status string
		Count  int64
	}
	var byStatus []statusCount
	if err := h.db.Model(&models.Inspection{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&byStatus).Error; err != nil {
		http.Error(w, "Failed to compute dashboard", http.StatusInternalServerError)
		return
	}
	for _, row := range byStatus {
		metrics.InspectionsByStatus[row.Status] = row.Count
	}

	var avg struct {
		Avg *float64
	}
	h.db.Model(&models.Inspection{}).
		Select("avg(overall_score) as avg").
		Where("status IN ?", []string{models.InspectionSubmitted, models.InspectionApproved}).
		Scan(&avg)
	metrics.AverageScore = avg.Avg

	h.db.Model(&models.CorrectiveAction{}).
		Where("status != ?", models.ActionClosed).
		Count(&metrics.OpenActions)

	overdueActions, err := countOverdueActions(h.db)
	if err == nil {
		metrics.OverdueActions = overdueActions
	}

	h.db.Model(&models.ScheduledInspection{}).
		Where("status = ?", models.ScheduledPending).
		Count(&metrics.PendingScheduled)
	h.db.Model(&models.ScheduledInspection{}).
		Where("status = ?", models.ScheduledOverdue).
		Count(&metrics.OverdueScheduled)

	weekStart := normalizeWeekStart(time.Now())
	h.db.Model(&models.ScheduledInspection{}).
		Where("status = ? AND due_at >= ? AND due_at < ?",
			models.ScheduledCompleted, weekStart, weekStart.AddDate(0, 0, 7)).
		Count(&metrics.CompletedThisWeek)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(metrics)
}
