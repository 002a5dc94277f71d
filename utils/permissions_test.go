package utils

import (
	"testing"

	"github.com/google/uuid"
	"p9e.in/safecheck/models"
)

func TestCan(t *testing.T) {
	tests := []struct {
		name       string
		role       string
		capability string
		expected   bool
	}{
		{"admin manages templates", models.RoleAdmin, CapManageTemplates, true},
		{"admin manages config", models.RoleAdmin, CapManageConfig, true},
		{"admin manages users", models.RoleAdmin, CapManageUsers, true},
		{"reviewer manages templates", models.RoleReviewer, CapManageTemplates, true},
		{"reviewer manages assignments", models.RoleReviewer, CapManageAssignments, true},
		{"reviewer reviews inspections", models.RoleReviewer, CapReviewInspections, true},
		{"reviewer triggers generation", models.RoleReviewer, CapTriggerGeneration, true},
		{"reviewer cannot manage config", models.RoleReviewer, CapManageConfig, false},
		{"reviewer cannot manage users", models.RoleReviewer, CapManageUsers, false},
		{"inspector cannot review", models.RoleInspector, CapReviewInspections, false},
		{"inspector cannot manage assignments", models.RoleInspector, CapManageAssignments, false},
		{"inspector cannot view all", models.RoleInspector, CapViewAllRecords, false},
		{"action owner cannot review", models.RoleActionOwner, CapReviewInspections, false},
		{"unknown role has nothing", "ghost", CapManageTemplates, false},
		{"empty role has nothing", "", CapViewAllRecords, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Can(tt.role, tt.capability); got != tt.expected {
				t.Errorf("Can(%q, %q) = %v, expected %v", tt.role, tt.capability, got, tt.expected)
			}
		})
	}
}

func TestCanCloseAction(t *testing.T) {
	owner := uuid.New()
	starter := uuid.New()
	stranger := uuid.New()
	action := &models.CorrectiveAction{
		AssignedToID: &owner,
		StartedByID:  starter,
	}

	tests := []struct {
		name     string
		userID   string
		role     string
		action   *models.CorrectiveAction
		expected bool
	}{
		{"admin always", stranger.String(), models.RoleAdmin, action, true},
		{"reviewer always", stranger.String(), models.RoleReviewer, action, true},
		{"assignee may close", owner.String(), models.RoleActionOwner, action, true},
		{"starter may close", starter.String(), models.RoleInspector, action, true},
		{"stranger may not", stranger.String(), models.RoleInspector, action, false},
		{"nil action unprivileged", owner.String(), models.RoleInspector, nil, false},
		{"nil action privileged", owner.String(), models.RoleAdmin, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanCloseAction(tt.userID, tt.role, tt.action); got != tt.expected {
				t.Errorf("CanCloseAction(%q, %q) = %v, expected %v", tt.userID, tt.role, got, tt.expected)
			}
		})
	}
}
