package domain

import "time"

// ActionType identifies which user transition an action gates.
type ActionType string

const (
	ActionTypeRegister      ActionType = "REGISTER"
	ActionTypeResetPassword ActionType = "RESET_PASSWORD"
)

// ActionStatus is ACTIVE until the action is consumed, then USED forever.
type ActionStatus string

const (
	ActionStatusActive ActionStatus = "ACTIVE"
	ActionStatusUsed   ActionStatus = "USED"
)

// Action is a single-use token owned by the workflow that created it.
type Action struct {
	ID        string
	UserID    string
	Type      ActionType
	Status    ActionStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive reports whether the action can still be consumed.
func (a *Action) IsActive() bool {
	return a != nil && a.Status == ActionStatusActive
}
