package utils

import (
	"slices"

	"p9e.in/safecheck/models"
)

// Capabilities checked by handlers. Keeping the role -> capability mapping in
// one table means role rules are tested here, not scattered through handlers.
const (
	CapManageTemplates   = "templates:manage"
	CapManageAssignments = "assignments:manage"
	CapTriggerGeneration = "scheduler:generate"
	CapReviewInspections = "inspections:review"
	CapViewAllRecords    = "records:view_all"
	CapManageConfig      = "config:manage"
	CapManageUsers       = "users:manage"
)

var roleCapabilities = map[string][]string{
	models.RoleAdmin: {
		CapManageTemplates,
		CapManageAssignments,
		CapTriggerGeneration,
		CapReviewInspections,
		CapViewAllRecords,
		CapManageConfig,
		CapManageUsers,
	},
	models.RoleReviewer: {
		CapManageTemplates,
		CapManageAssignments,
		CapTriggerGeneration,
		CapReviewInspections,
		CapViewAllRecords,
	},
	models.RoleInspector:   {},
	models.RoleActionOwner: {},
}

// Can reports whether a role carries the given capability.
func Can(role, capability string) bool {
	return slices.Contains(roleCapabilities[role], capability)
}

// CanViewAllRecords is the scoping check: users without it only see their own
// inspections, actions and assignments.
func CanViewAllRecords(role string) bool {
	return Can(role, CapViewAllRecords)
}

// CanCloseAction allows privileged roles, the action's assignee, and the user
// who opened the action to close it.
func CanCloseAction(userID, role string, action *models.CorrectiveAction) bool {
	if Can(role, CapReviewInspections) {
		return true
	}
	if action == nil {
		return false
	}
	if action.AssignedToID != nil && action.AssignedToID.String() == userID {
		return true
	}
	return action.StartedByID.String() == userID
}
