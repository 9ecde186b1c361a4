package entities

import (
	"time"
)

// PlanStatus represents the lifecycle state of a remediation plan
type PlanStatus string

const (
	PlanStatusCreated PlanStatus = "created"
	PlanStatusPending PlanStatus = "pending"
	PlanStatusDone    PlanStatus = "done"
	PlanStatusArchive PlanStatus = "archive"
)

// ParsePlanStatus parses a plan status string
func ParsePlanStatus(s string) (PlanStatus, bool) {
	switch PlanStatus(s) {
	case PlanStatusCreated, PlanStatusPending, PlanStatusDone, PlanStatusArchive:
		return PlanStatus(s), true
	}
	return "", false
}

// CanTransitionTo reports whether the lifecycle allows moving to next.
// created → pending → done → archive, with a path back from done to pending.
func (s PlanStatus) CanTransitionTo(next PlanStatus) bool {
	switch s {
	case PlanStatusCreated:
		return next == PlanStatusPending
	case PlanStatusPending:
		return next == PlanStatusDone
	case PlanStatusDone:
		return next == PlanStatusArchive || next == PlanStatusPending
	}
	return false
}

// Plan represents a remediation plan tied to one object
type Plan struct {
	ID           string     `json:"id" db:"id"`
	ObjectID     string     `json:"object_id" db:"object_id"`
	DiagnosticID *string    `json:"diagnostic_id,omitempty" db:"diagnostic_id"`
	Status       PlanStatus `json:"status" db:"status"`
	Problem      string     `json:"problem,omitempty" db:"problem"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`

	// Actions is populated by list operations; not a database column.
	Actions []*PlanAction `json:"actions,omitempty" db:"-"`
}

// PlanAction represents one checklist item within a plan
type PlanAction struct {
	ID          string    `json:"id" db:"id"`
	PlanID      string    `json:"plan_id" db:"plan_id"`
	Description string    `json:"description" db:"description"`
	Done        bool      `json:"done" db:"done"`
	Position    int       `json:"position" db:"position"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
