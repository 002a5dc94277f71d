package handlers

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"p9e.in/safecheck/models"
)

// ScheduleWorker periodically runs schedule generation, the overdue sweep and
// reminder mails. One instance runs for the life of the process.
type ScheduleWorker struct {
	db       *gorm.DB
	interval time.Duration

	lastDigest time.Time
}

// NewScheduleWorker creates a worker that ticks at the given interval.
func NewScheduleWorker(db *gorm.DB, interval time.Duration) *ScheduleWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &ScheduleWorker{db: db, interval: interval}
}

// Run blocks until the context is cancelled, executing one pass immediately
// and then one per tick. Every step is log-and-continue: a failing pass never
// stops the loop.
func (w *ScheduleWorker) Run(ctx context.Context) {
	log.Printf("📅 Schedule worker started (interval: %s)", w.interval)

	w.runOnce()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("📅 Schedule worker stopped")
			return
		case <-ticker.C:
			w.runOnce()
		}
	}
}

func (w *ScheduleWorker) runOnce() {
	if _, err := GenerateScheduledInspections(w.db, time.Time{}); err != nil {
		log.Printf("❌ Schedule generation pass failed: %v", err)
	}
	if _, err := MarkOverdueScheduledInspections(w.db); err != nil {
		log.Printf("❌ Overdue sweep failed: %v", err)
	}
	if err := w.sendDueTomorrowReminders(); err != nil {
		log.Printf("❌ Reminder pass failed: %v", err)
	}
	w.maybeSendDailyDigest()
}

// sendDueTomorrowReminders mails assignees whose pending occurrence falls
// due within the next day, skipping anyone already reminded for that
// occurrence.
func (w *ScheduleWorker) sendDueTomorrowReminders() error {
	now := time.Now()
	var upcoming []models.ScheduledInspection
	err := w.db.Preload("Assignment.Assignee").
		Where("status = ? AND due_at >= ? AND due_at < ?", models.ScheduledPending, now, now.AddDate(0, 0, 1)).
		Find(&upcoming).Error
	if err != nil {
		return err
	}

	for _, occurrence := range upcoming {
		if occurrence.Assignment == nil || occurrence.Assignment.Assignee == nil {
			continue
		}
		assignee := occurrence.Assignment.Assignee

		var alreadySent int64
		w.db.Model(&models.NotificationLog{}).
			Where("recipient = ? AND template_name = ? AND context ->> 'scheduled_id' = ?",
				assignee.Email, "inspection_due_tomorrow", fmt.Sprint(occurrence.ID)).
			Count(&alreadySent)
		if alreadySent > 0 {
			continue
		}

		SendTemplatedEmail(w.db, "inspection_due_tomorrow", assignee.Email, "Inspection due tomorrow", map[string]interface{}{
			"assignee_name": assignee.FullName,
			"location":      occurrence.Assignment.Location,
			"due_at":        occurrence.DueAt.Format("2006-01-02 15:04"),
			"scheduled_id":  occurrence.ID,
		})
	}
	return nil
}

// maybeSendDailyDigest mails admins a summary once per calendar day.
func (w *ScheduleWorker) maybeSendDailyDigest() {
	now := time.Now()
	if w.lastDigest.Year() == now.Year() && w.lastDigest.YearDay() == now.YearDay() {
		return
	}

	var pending, overdue int64
	w.db.Model(&models.ScheduledInspection{}).Where("status = ?", models.ScheduledPending).Count(&pending)
	w.db.Model(&models.ScheduledInspection{}).Where("status = ?", models.ScheduledOverdue).Count(&overdue)

	var openActions int64
	w.db.Model(&models.CorrectiveAction{}).Where("status != ?", models.ActionClosed).Count(&openActions)
	overdueActions, err := countOverdueActions(w.db)
	if err != nil {
		log.Printf("⚠️ Digest: %v", err)
	}

	var admins []models.User
	if err := w.db.Where("role = ? AND is_active = ?", models.RoleAdmin, true).Find(&admins).Error; err != nil {
		log.Printf("⚠️ Digest: failed to load admins: %v", err)
		return
	}

	ctx := map[string]interface{}{
		"pending":         pending,
		"overdue":         overdue,
		"open_actions":    openActions,
		"overdue_actions": overdueActions,
	}
	for _, admin := range admins {
		SendTemplatedEmail(w.db, "daily_digest", admin.Email, "Daily inspection digest", ctx)
	}

	w.sendAssigneeDigests()
	w.lastDigest = now
}

// sendAssigneeDigests mails each inspector with open occurrences their own
// pending/overdue counts.
func (w *ScheduleWorker) sendAssigneeDigests() {
	type assigneeCounts struct {
		AssignedToID string
		Email        string
		FullName     string
		Pending      int64
		Overdue      int64
	}
	var perUser []assigneeCounts
	err := w.db.Model(&models.ScheduledInspection{}).
		Select(`assignments.assigned_to_id,
			users.email,
			users.full_name,
			count(*) FILTER (WHERE scheduled_inspections.status = 'pending') AS pending,
			count(*) FILTER (WHERE scheduled_inspections.status = 'overdue') AS overdue`).
		Joins("JOIN assignments ON assignments.id = scheduled_inspections.assignment_id").
		Joins("JOIN users ON users.id = assignments.assigned_to_id").
		Where("scheduled_inspections.status IN ?", []string{models.ScheduledPending, models.ScheduledOverdue}).
		Where("users.is_active = ?", true).
		Group("assignments.assigned_to_id, users.email, users.full_name").
		Scan(&perUser).Error
	if err != nil {
		log.Printf("⚠️ Digest: failed to load per-assignee counts: %v", err)
		return
	}

	for _, row := range perUser {
		var openActions, overdueActions int64
		w.db.Model(&models.CorrectiveAction{}).
			Where("assigned_to_id = ? AND status != ?", row.AssignedToID, models.ActionClosed).
			Count(&openActions)
		w.db.Model(&models.CorrectiveAction{}).
			Where("assigned_to_id = ? AND status != ? AND due_date IS NOT NULL AND due_date < ?",
				row.AssignedToID, models.ActionClosed, time.Now()).
			Count(&overdueActions)

		SendTemplatedEmail(w.db, "daily_digest", row.Email, "Your daily inspection digest", map[string]interface{}{
			"pending":         row.Pending,
			"overdue":         row.Overdue,
			"open_actions":    openActions,
			"overdue_actions": overdueActions,
		})
	}
}
