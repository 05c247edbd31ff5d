// Package audit captures key authentication and authorization actions as
// events. Events stay transport-agnostic so stores and sinks can fan out.
package audit

import "time"

// EventCategory classifies audit events by their primary purpose. Categories
// drive retention and routing downstream.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance:
	// account creation, role and permission administration.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events feeding security monitoring:
	// failed sign-ins, reconciliation failures.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity useful for debugging.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from the session service to capture key actions.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	Subject   string // provider uid of the affected user, when known
	Email     string // email when the uid is not yet established
	Action    string
	Reason    string // why, for failures (taxonomy code)
	Device    string // summarized client device, when request metadata exists
	IP        string
	RequestID string
	ActorID   string // who performed the action when not the subject (admin updates)
}

// Action is the closed set of audited actions.
type Action string

const (
	ActionUserCreated            Action = "user_created"
	ActionLoginSucceeded         Action = "login_succeeded"
	ActionLoginFailed            Action = "login_failed"
	ActionLogout                 Action = "logout"
	ActionPasswordResetRequested Action = "password_reset_requested"
	ActionVerificationSent       Action = "verification_email_sent"
	ActionRolesUpdated           Action = "roles_updated"
	ActionPermissionsUpdated     Action = "permissions_updated"
	ActionReconciliationFailed   Action = "reconciliation_failed"
)

// actionCategories maps each action to its category.
var actionCategories = map[Action]EventCategory{
	ActionUserCreated:        CategoryCompliance,
	ActionRolesUpdated:       CategoryCompliance,
	ActionPermissionsUpdated: CategoryCompliance,

	ActionLoginFailed:          CategorySecurity,
	ActionReconciliationFailed: CategorySecurity,

	ActionLoginSucceeded:         CategoryOperations,
	ActionLogout:                 CategoryOperations,
	ActionPasswordResetRequested: CategoryOperations,
	ActionVerificationSent:       CategoryOperations,
}

// Category returns the EventCategory for this action.
// Unknown actions default to CategoryOperations.
func (a Action) Category() EventCategory {
	if cat, ok := actionCategories[a]; ok {
		return cat
	}
	return CategoryOperations
}
