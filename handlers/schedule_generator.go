package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"gorm.io/gorm"
	"p9e.in/safecheck/models"
)

// lastDayOfMonth returns the number of days in the given month.
func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// advanceDueAt steps a due timestamp forward by one cadence interval. Monthly
// steps land on the same day of the next month, clamped to that month's last
// day, keeping the clock time intact. An assignment due on the 31st drifts to
// the 28th over February and stays there.
func advanceDueAt(current time.Time, frequency string) time.Time {
	switch frequency {
	case models.FrequencyDaily:
		return current.AddDate(0, 0, 1)
	case models.FrequencyMonthly:
		year, month, day := current.Date()
		month++
		if month > time.December {
			month = time.January
			year++
		}
		if last := lastDayOfMonth(year, month); day > last {
			day = last
		}
		return time.Date(year, month, day,
			current.Hour(), current.Minute(), current.Second(), current.Nanosecond(), current.Location())
	default: // weekly
		return current.AddDate(0, 0, 7)
	}
}

// normalizeWeekStart returns the Monday of the week containing t, at
// midnight.
func normalizeWeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	day := t.AddDate(0, 0, -offset)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, t.Location())
}

// periodStartForDue buckets a due timestamp into its recurrence period:
// the due date itself for daily, the Monday of its week for weekly, the
// first of its month for monthly. The (assignment, period) unique index
// keys off this value.
func periodStartForDue(dueAt time.Time, frequency string) time.Time {
	switch frequency {
	case models.FrequencyDaily:
		return time.Date(dueAt.Year(), dueAt.Month(), dueAt.Day(), 0, 0, 0, 0, dueAt.Location())
	case models.FrequencyMonthly:
		return time.Date(dueAt.Year(), dueAt.Month(), 1, 0, 0, 0, 0, dueAt.Location())
	default:
		return normalizeWeekStart(dueAt)
	}
}

// seedDueAt picks the first candidate due timestamp for an assignment: one
// step past the latest occurrence already generated, or the assignment's
// start when nothing exists yet. Seeding from the stored due keeps monthly
// clamping stable across runs.
func seedDueAt(assignment *models.Assignment, latestDue *time.Time) time.Time {
	if latestDue != nil {
		return advanceDueAt(*latestDue, assignment.Frequency)
	}
	return assignment.StartDueAt
}

// pastEndDate reports whether a due timestamp falls after the assignment's
// inclusive end date.
func pastEndDate(dueAt time.Time, endDate *time.Time) bool {
	if endDate == nil {
		return false
	}
	dueDay := time.Date(dueAt.Year(), dueAt.Month(), dueAt.Day(), 0, 0, 0, 0, time.UTC)
	endDay := time.Date(endDate.Year(), endDate.Month(), endDate.Day(), 0, 0, 0, 0, time.UTC)
	return dueDay.After(endDay)
}

// occurrencesInWindow computes the due timestamps an assignment produces in
// [windowStart, windowEnd). The second return reports whether the assignment
// is exhausted: its next occurrence would land past the end date.
func occurrencesInWindow(assignment *models.Assignment, latestDue *time.Time, windowStart, windowEnd time.Time) ([]time.Time, bool) {
	next := seedDueAt(assignment, latestDue)
	for next.Before(windowStart) {
		if pastEndDate(next, assignment.EndDate) {
			return nil, true
		}
		next = advanceDueAt(next, assignment.Frequency)
	}

	var due []time.Time
	for next.Before(windowEnd) {
		if pastEndDate(next, assignment.EndDate) {
			return due, true
		}
		due = append(due, next)
		next = advanceDueAt(next, assignment.Frequency)
	}
	return due, pastEndDate(next, assignment.EndDate)
}

// GenerateScheduledInspections materializes occurrence rows for every active
// assignment within the window. A zero targetWeekStart means a rolling window
// from now to thirty days out; otherwise the window is that week. Duplicate
// occurrences from concurrent runs are swallowed by the unique index.
// Assignments whose next occurrence falls past their end date are
// deactivated.
func GenerateScheduledInspections(db *gorm.DB, targetWeekStart time.Time) (int, error) {
	now := time.Now()
	var windowStart, windowEnd time.Time
	if targetWeekStart.IsZero() {
		windowStart = now
		windowEnd = now.AddDate(0, 0, 30)
	} else {
		windowStart = normalizeWeekStart(targetWeekStart)
		windowEnd = windowStart.AddDate(0, 0, 7)
	}

	var assignments []models.Assignment
	if err := db.Preload("Assignee").Where("active = ?", true).Find(&assignments).Error; err != nil {
		return 0, fmt.Errorf("load active assignments: %w", err)
	}

	created := 0
	for i := range assignments {
		n, err := generateForAssignment(db, &assignments[i], windowStart, windowEnd, now)
		if err != nil {
			log.Printf("⚠️ Schedule generation failed for assignment %d: %v", assignments[i].ID, err)
			continue
		}
		created += n
	}

	log.Printf("📅 Schedule generation: %d occurrence(s) created for window %s – %s",
		created, windowStart.Format("2006-01-02"), windowEnd.Format("2006-01-02"))
	return created, nil
}

func generateForAssignment(db *gorm.DB, assignment *models.Assignment, windowStart, windowEnd, now time.Time) (int, error) {
	var latestDue *time.Time
	var latest models.ScheduledInspection
	err := db.Where("assignment_id = ?", assignment.ID).Order("due_at desc").First(&latest).Error
	switch {
	case err == nil:
		latestDue = &latest.DueAt
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return 0, err
	}

	due, exhausted := occurrencesInWindow(assignment, latestDue, windowStart, windowEnd)

	created := 0
	for _, dueAt := range due {
		row := models.ScheduledInspection{
			AssignmentID: assignment.ID,
			PeriodStart:  periodStartForDue(dueAt, assignment.Frequency),
			DueAt:        dueAt,
			Status:       models.ScheduledPending,
			GeneratedAt:  now,
		}
		if err := db.Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				continue
			}
			return created, err
		}
		created++
	}

	if exhausted {
		if err := db.Model(assignment).Update("active", false).Error; err != nil {
			return created, err
		}
		log.Printf("📅 Assignment %d reached its end date and was deactivated", assignment.ID)
	}

	if created > 0 {
		notifyScheduleGenerated(db, assignment, created)
	}
	return created, nil
}

// notifyScheduleGenerated emails the assignee (and any CC list) about new
// occurrences. Best effort: a mail failure never fails generation.
func notifyScheduleGenerated(db *gorm.DB, assignment *models.Assignment, count int) {
	if assignment.Assignee == nil || assignment.Assignee.Email == "" {
		return
	}
	ctx := map[string]interface{}{
		"assignee_name": assignment.Assignee.FullName,
		"location":      assignment.Location,
		"count":         count,
	}
	recipients := append([]string{assignment.Assignee.Email}, assignment.NotifyCC...)
	for _, recipient := range recipients {
		SendTemplatedEmail(db, "schedule_generated", recipient, "New inspections scheduled", ctx)
	}
}

// MarkOverdueScheduledInspections flips pending occurrences whose due time
// has passed to overdue. Returns the number of rows updated.
func MarkOverdueScheduledInspections(db *gorm.DB) (int64, error) {
	result := db.Model(&models.ScheduledInspection{}).
		Where("status = ? AND due_at < ?", models.ScheduledPending, time.Now()).
		Update("status", models.ScheduledOverdue)
	if result.Error != nil {
		return 0, fmt.Errorf("mark overdue: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		log.Printf("⚠️ Marked %d scheduled inspection(s) overdue", result.RowsAffected)
	}
	return result.RowsAffected, nil
}

// markScheduledCompleted closes an occurrence when its inspection is
// submitted.
func markScheduledCompleted(tx *gorm.DB, scheduledID uint) error {
	return tx.Model(&models.ScheduledInspection{}).
		Where("id = ?", scheduledID).
		Update("status", models.ScheduledCompleted).Error
}

// ensurePendingSchedule returns the assignment's earliest open occurrence,
// generating on demand when the periodic run has not produced one yet.
func ensurePendingSchedule(db *gorm.DB, assignment *models.Assignment) (*models.ScheduledInspection, error) {
	openSlot := func() (*models.ScheduledInspection, error) {
		var scheduled models.ScheduledInspection
		err := db.Where("assignment_id = ? AND status IN ?", assignment.ID,
			[]string{models.ScheduledPending, models.ScheduledOverdue}).
			Order("due_at asc").First(&scheduled).Error
		if err != nil {
			return nil, err
		}
		return &scheduled, nil
	}

	scheduled, err := openSlot()
	if err == nil {
		return scheduled, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if !assignment.Active {
		return nil, fmt.Errorf("assignment %d is no longer active", assignment.ID)
	}
	if _, err := generateForAssignment(db, assignment, time.Now(), time.Now().AddDate(0, 0, 30), time.Now()); err != nil {
		return nil, fmt.Errorf("generate schedule for assignment %d: %w", assignment.ID, err)
	}

	scheduled, err = openSlot()
	if err != nil {
		return nil, fmt.Errorf("assignment %d has no upcoming occurrence", assignment.ID)
	}
	return scheduled, nil
}

// ScheduleHandler exposes the generator and occurrence listings over HTTP.
type ScheduleHandler struct {
	db *gorm.DB
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(db *gorm.DB) *ScheduleHandler {
	return &ScheduleHandler{db: db}
}

// TriggerGeneration runs the generator on demand. An optional week_start
// query parameter (YYYY-MM-DD) targets a specific week instead of the
// rolling window.
func (h *ScheduleHandler) TriggerGeneration(w http.ResponseWriter, r *http.Request) {
	var target time.Time
	if weekStart := r.URL.Query().Get("week_start"); weekStart != "" {
		parsed, err := time.Parse("2006-01-02", weekStart)
		if err != nil {
			http.Error(w, "week_start must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		target = parsed
	}

	created, err := GenerateScheduledInspections(h.db, target)
	if err != nil {
		http.Error(w, "Schedule generation failed", http.StatusInternalServerError)
		return
	}

	overdue, _ := MarkOverdueScheduledInspections(h.db)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"created":        created,
		"marked_overdue": overdue,
	})
}

// ListScheduled lists occurrences, optionally filtered by assignment or
// status.
func (h *ScheduleHandler) ListScheduled(w http.ResponseWriter, r *http.Request) {
	query := h.db.Model(&models.ScheduledInspection{}).
		Preload("Assignment.Assignee").
		Preload("Assignment.Template").
		Order("due_at asc")

	if assignmentID := r.URL.Query().Get("assignment_id"); assignmentID != "" {
		query = query.Where("assignment_id = ?", assignmentID)
	}
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var scheduled []models.ScheduledInspection
	if err := query.Find(&scheduled).Error; err != nil {
		http.Error(w, "Failed to fetch scheduled inspections", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"scheduled": scheduled,
		"count":     len(scheduled),
	})
}
