package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkazakov/pipesentry/internal/domain/entities"
	"github.com/dkazakov/pipesentry/internal/domain/providers"
	"github.com/dkazakov/pipesentry/internal/domain/repositories"
	apperrors "github.com/dkazakov/pipesentry/pkg/errors"
)

// PlanService handles the remediation plan lifecycle
type PlanService struct {
	plans    repositories.PlanRepository
	objects  repositories.ObjectRepository
	eventBus providers.EventBus
}

// NewPlanService creates a new plan service
func NewPlanService(plans repositories.PlanRepository, objects repositories.ObjectRepository, eventBus providers.EventBus) *PlanService {
	return &PlanService{
		plans:    plans,
		objects:  objects,
		eventBus: eventBus,
	}
}

// CreatePlanInput describes a new plan request
type CreatePlanInput struct {
	ObjectID     string   `json:"object_id"`
	DiagnosticID *string  `json:"diagnostic_id,omitempty"`
	Problem      string   `json:"problem"`
	Actions      []string `json:"actions"`
}

// Create creates a plan with its checklist of actions
func (s *PlanService) Create(ctx context.Context, input CreatePlanInput) (*entities.Plan, error) {
	if input.ObjectID == "" {
		return nil, apperrors.NewValidationError("object_id is required")
	}

	// Object must exist; a plan for a deleted object is useless
	if _, err := s.objects.GetByID(ctx, input.ObjectID); err != nil {
		return nil, err
	}

	now := time.Now()
	plan := &entities.Plan{
		ID:           uuid.New().String(),
		ObjectID:     input.ObjectID,
		DiagnosticID: input.DiagnosticID,
		Status:       entities.PlanStatusCreated,
		Problem:      strings.TrimSpace(input.Problem),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	actions := make([]*entities.PlanAction, 0, len(input.Actions))
	for i, description := range input.Actions {
		description = strings.TrimSpace(description)
		if description == "" {
			continue
		}
		actions = append(actions, &entities.PlanAction{
			ID:          uuid.New().String(),
			PlanID:      plan.ID,
			Description: description,
			Position:    i,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	if err := s.plans.Create(ctx, plan, actions); err != nil {
		return nil, err
	}
	plan.Actions = actions

	s.publishPlanEvent(ctx, plan.ObjectID, plan.ID, string(plan.Status))

	log.Info().
		Str("plan_id", plan.ID).
		Str("object_id", plan.ObjectID).
		Int("actions", len(actions)).
		Msg("Plan created")

	return plan, nil
}

// GetByID retrieves a plan with its actions
func (s *PlanService) GetByID(ctx context.Context, id string) (*entities.Plan, error) {
	plan, err := s.plans.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	actions, err := s.plans.ListActions(ctx, id)
	if err != nil {
		return nil, err
	}
	plan.Actions = actions

	return plan, nil
}

// ListByObject retrieves all plans for one object
func (s *PlanService) ListByObject(ctx context.Context, objectID string) ([]*entities.Plan, error) {
	return s.plans.ListByObject(ctx, objectID)
}

// UpdateStatus moves a plan through its lifecycle. Illegal transitions
// are rejected; completion makes the object a reanalysis candidate.
func (s *PlanService) UpdateStatus(ctx context.Context, planID string, next entities.PlanStatus) (*entities.Plan, error) {
	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}

	if !plan.Status.CanTransitionTo(next) {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("plan cannot move from %s to %s", plan.Status, next))
	}

	if err := s.plans.UpdateStatus(ctx, planID, next); err != nil {
		return nil, err
	}
	plan.Status = next
	plan.UpdatedAt = time.Now()

	s.publishPlanEvent(ctx, plan.ObjectID, plan.ID, string(next))

	log.Info().
		Str("plan_id", planID).
		Str("object_id", plan.ObjectID).
		Str("status", string(next)).
		Msg("Plan status updated")

	return plan, nil
}

// ToggleAction sets the completion flag of one checklist item
func (s *PlanService) ToggleAction(ctx context.Context, actionID string, done bool) (*entities.PlanAction, error) {
	action, err := s.plans.GetAction(ctx, actionID)
	if err != nil {
		return nil, err
	}

	if err := s.plans.UpdateAction(ctx, actionID, done); err != nil {
		return nil, err
	}
	action.Done = done
	action.UpdatedAt = time.Now()

	if plan, err := s.plans.GetByID(ctx, action.PlanID); err == nil {
		s.publishPlanEvent(ctx, plan.ObjectID, plan.ID, string(plan.Status))
	}

	return action, nil
}

func (s *PlanService) publishPlanEvent(ctx context.Context, objectID, planID, status string) {
	if s.eventBus == nil {
		return
	}

	event := entities.NewObjectEvent(objectID, entities.ObjectEventTypePlanUpdate, map[string]interface{}{
		"plan_id": planID,
		"status":  status,
	})

	if err := s.eventBus.Publish(ctx, providers.GlobalObjectChannel, event); err != nil {
		log.Warn().Err(err).Str("plan_id", planID).Msg("Failed to publish plan event")
	}
	if err := s.eventBus.Publish(ctx, providers.GetObjectChannel(objectID), event); err != nil {
		log.Warn().Err(err).Str("plan_id", planID).Msg("Failed to publish per-object plan event")
	}
}
