package repositories

import (
	"context"

	"github.com/dkazakov/pipesentry/internal/domain/entities"
)

// PlanRepository defines the interface for remediation plan operations
type PlanRepository interface {
	// Create creates a plan together with its actions
	Create(ctx context.Context, plan *entities.Plan, actions []*entities.PlanAction) error

	// GetByID retrieves a plan by ID (without actions)
	GetByID(ctx context.Context, id string) (*entities.Plan, error)

	// ListByObject retrieves all plans for one object, actions included
	ListByObject(ctx context.Context, objectID string) ([]*entities.Plan, error)

	// ListByStatus retrieves all plans in the given lifecycle state
	ListByStatus(ctx context.Context, status entities.PlanStatus) ([]*entities.Plan, error)

	// LatestDoneByObject retrieves the most recently updated done plan for
	// an object. Returns (nil, nil) when the object has none.
	LatestDoneByObject(ctx context.Context, objectID string) (*entities.Plan, error)

	// UpdateStatus moves a plan to a new lifecycle state
	UpdateStatus(ctx context.Context, id string, status entities.PlanStatus) error

	// ListActions retrieves the ordered actions of a plan
	ListActions(ctx context.Context, planID string) ([]*entities.PlanAction, error)

	// GetAction retrieves a single action
	GetAction(ctx context.Context, actionID string) (*entities.PlanAction, error)

	// UpdateAction sets the completion flag of an action
	UpdateAction(ctx context.Context, actionID string, done bool) error
}
