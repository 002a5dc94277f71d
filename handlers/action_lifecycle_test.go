package handlers

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"p9e.in/safecheck/models"
)

func strPtr(s string) *string { return &s }

func TestValidateActionClose(t *testing.T) {
	tests := []struct {
		name        string
		storedNotes *string
		supplied    *string
		attachments int
		problems    int
	}{
		{"attachment and supplied notes", nil, strPtr("replaced the guard"), 1, 0},
		{"attachment and stored notes", strPtr("already documented"), nil, 2, 0},
		{"no attachment", nil, strPtr("fixed"), 0, 1},
		{"no notes anywhere", nil, nil, 1, 1},
		{"blank supplied notes do not count", strPtr("  "), strPtr("   "), 1, 1},
		{"nothing at all", nil, nil, 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action := models.CorrectiveAction{Status: models.ActionOpen, ResolutionNotes: tt.storedNotes}
			problems := validateActionClose(&action, tt.attachments, tt.supplied)
			if len(problems) != tt.problems {
				t.Errorf("expected %d problems, got %d: %v", tt.problems, len(problems), problems)
			}
		})
	}
}

func TestResolveCloseNotesPrefersSupplied(t *testing.T) {
	action := models.CorrectiveAction{ResolutionNotes: strPtr("stored")}
	got := resolveCloseNotes(&action, strPtr("  supplied  "))
	if got == nil || *got != "supplied" {
		t.Errorf("expected supplied notes (trimmed), got %v", got)
	}

	got = resolveCloseNotes(&action, nil)
	if got == nil || *got != "stored" {
		t.Errorf("expected stored notes fallback, got %v", got)
	}
}

func TestApplyReopenClearsClosingMetadata(t *testing.T) {
	closedAt := time.Now()
	closedBy := uuid.New()
	action := models.CorrectiveAction{
		Status:          models.ActionClosed,
		ClosedAt:        &closedAt,
		ClosedByID:      &closedBy,
		ResolutionNotes: strPtr("was fixed, turns out it was not"),
	}

	applyReopen(&action, models.ActionOpen, strPtr("leak came back after the rain"))

	if action.Status != models.ActionOpen {
		t.Errorf("status = %s, want open", action.Status)
	}
	if action.ClosedAt != nil || action.ClosedByID != nil {
		t.Error("closed_at and closed_by should be cleared on reopen")
	}
	if action.ResolutionNotes == nil || *action.ResolutionNotes != "leak came back after the rain" {
		t.Errorf("resolution notes should be replaced, got %v", action.ResolutionNotes)
	}
}

func TestApplyReopenStraightToInProgress(t *testing.T) {
	closedAt := time.Now()
	closedBy := uuid.New()
	action := models.CorrectiveAction{
		Status:          models.ActionClosed,
		ClosedAt:        &closedAt,
		ClosedByID:      &closedBy,
		ResolutionNotes: strPtr("patched"),
	}

	applyReopen(&action, models.ActionInProgress, nil)

	if action.Status != models.ActionInProgress {
		t.Errorf("status = %s, want in_progress", action.Status)
	}
	if action.ClosedAt != nil || action.ClosedByID != nil {
		t.Error("closed_at and closed_by should be cleared when work resumes")
	}
	if action.ResolutionNotes != nil {
		t.Errorf("resolution notes should be cleared, got %v", action.ResolutionNotes)
	}
}

func TestApplyReopenWithoutNotesClearsThem(t *testing.T) {
	closedAt := time.Now()
	action := models.CorrectiveAction{
		Status:          models.ActionClosed,
		ClosedAt:        &closedAt,
		ResolutionNotes: strPtr("done"),
	}

	applyReopen(&action, models.ActionOpen, nil)

	if action.ResolutionNotes != nil {
		t.Errorf("resolution notes should be cleared when reopening without notes, got %v", action.ResolutionNotes)
	}
}
