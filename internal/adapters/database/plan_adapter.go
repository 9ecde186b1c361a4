package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/dkazakov/pipesentry/internal/domain/entities"
	"github.com/dkazakov/pipesentry/internal/domain/repositories"
	"github.com/dkazakov/pipesentry/internal/infrastructure/clients/postgres"
	apperrors "github.com/dkazakov/pipesentry/pkg/errors"
)

var planColumns = []interface{}{
	"id", "object_id", "diagnostic_id", "status", "problem",
	"created_at", "updated_at",
}

var actionColumns = []interface{}{
	"id", "plan_id", "description", "done", "position",
	"created_at", "updated_at",
}

// PlanAdapter implements PlanRepository
type PlanAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewPlanAdapter creates a new plan adapter
func NewPlanAdapter(client *postgres.Client) repositories.PlanRepository {
	return &PlanAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a plan together with its actions in one transaction
func (a *PlanAdapter) Create(ctx context.Context, plan *entities.Plan, actions []*entities.PlanAction) error {
	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return apperrors.NewInternalError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	planQuery, planArgs, err := a.db.Insert("plans").Rows(goqu.Record{
		"id":            plan.ID,
		"object_id":     plan.ObjectID,
		"diagnostic_id": nullString(plan.DiagnosticID),
		"status":        string(plan.Status),
		"problem":       sql.NullString{String: plan.Problem, Valid: plan.Problem != ""},
		"created_at":    plan.CreatedAt,
		"updated_at":    plan.UpdatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build plan insert query", err)
	}

	if _, err = tx.ExecContext(ctx, planQuery, planArgs...); err != nil {
		return apperrors.NewInternalError("failed to create plan", err)
	}

	if len(actions) > 0 {
		records := make([]interface{}, len(actions))
		for i, action := range actions {
			records[i] = goqu.Record{
				"id":          action.ID,
				"plan_id":     action.PlanID,
				"description": action.Description,
				"done":        action.Done,
				"position":    action.Position,
				"created_at":  action.CreatedAt,
				"updated_at":  action.UpdatedAt,
			}
		}

		actionQuery, actionArgs, err := a.db.Insert("actions").Rows(records...).ToSQL()
		if err != nil {
			return apperrors.NewInternalError("failed to build action insert query", err)
		}

		if _, err = tx.ExecContext(ctx, actionQuery, actionArgs...); err != nil {
			return apperrors.NewInternalError("failed to create plan actions", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return apperrors.NewInternalError("failed to commit plan transaction", err)
	}

	return nil
}

// GetByID retrieves a plan by ID (without actions)
func (a *PlanAdapter) GetByID(ctx context.Context, id string) (*entities.Plan, error) {
	query, args, err := a.db.Select(planColumns...).
		From("plans").
		Where(goqu.Ex{"id": id}).
		ToSQL()

	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	plan, err := scanPlan(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("plan with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get plan", err)
	}

	return plan, nil
}

// ListByObject retrieves all plans for one object, actions included
func (a *PlanAdapter) ListByObject(ctx context.Context, objectID string) ([]*entities.Plan, error) {
	query, args, err := a.db.Select(planColumns...).
		From("plans").
		Where(goqu.Ex{"object_id": objectID}).
		Order(goqu.I("created_at").Desc()).
		ToSQL()

	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	plans, err := a.queryPlans(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	if err := a.attachActions(ctx, plans); err != nil {
		return nil, err
	}

	return plans, nil
}

// ListByStatus retrieves all plans in the given lifecycle state
func (a *PlanAdapter) ListByStatus(ctx context.Context, status entities.PlanStatus) ([]*entities.Plan, error) {
	query, args, err := a.db.Select(planColumns...).
		From("plans").
		Where(goqu.Ex{"status": string(status)}).
		Order(goqu.I("updated_at").Desc()).
		ToSQL()

	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	return a.queryPlans(ctx, query, args...)
}

// LatestDoneByObject retrieves the most recently updated done plan for an object
func (a *PlanAdapter) LatestDoneByObject(ctx context.Context, objectID string) (*entities.Plan, error) {
	query, args, err := a.db.Select(planColumns...).
		From("plans").
		Where(goqu.Ex{
			"object_id": objectID,
			"status":    string(entities.PlanStatusDone),
		}).
		Order(goqu.I("updated_at").Desc()).
		Limit(1).
		ToSQL()

	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	plan, err := scanPlan(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get latest done plan", err)
	}

	return plan, nil
}

// UpdateStatus moves a plan to a new lifecycle state
func (a *PlanAdapter) UpdateStatus(ctx context.Context, id string, status entities.PlanStatus) error {
	query, args, err := a.db.Update("plans").
		Set(goqu.Record{
			"status":     string(status),
			"updated_at": time.Now(),
		}).
		Where(goqu.Ex{"id": id}).
		ToSQL()

	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update plan status", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("plan with id %s not found", id))
	}

	return nil
}

// ListActions retrieves the ordered actions of a plan
func (a *PlanAdapter) ListActions(ctx context.Context, planID string) ([]*entities.PlanAction, error) {
	query, args, err := a.db.Select(actionColumns...).
		From("actions").
		Where(goqu.Ex{"plan_id": planID}).
		Order(goqu.I("position").Asc()).
		ToSQL()

	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	return a.queryActions(ctx, query, args...)
}

// GetAction retrieves a single action
func (a *PlanAdapter) GetAction(ctx context.Context, actionID string) (*entities.PlanAction, error) {
	query, args, err := a.db.Select(actionColumns...).
		From("actions").
		Where(goqu.Ex{"id": actionID}).
		ToSQL()

	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	action, err := scanAction(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("action with id %s not found", actionID))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get action", err)
	}

	return action, nil
}

// UpdateAction sets the completion flag of an action
func (a *PlanAdapter) UpdateAction(ctx context.Context, actionID string, done bool) error {
	query, args, err := a.db.Update("actions").
		Set(goqu.Record{
			"done":       done,
			"updated_at": time.Now(),
		}).
		Where(goqu.Ex{"id": actionID}).
		ToSQL()

	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update action", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("action with id %s not found", actionID))
	}

	return nil
}

func (a *PlanAdapter) queryPlans(ctx context.Context, query string, args ...interface{}) ([]*entities.Plan, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query plans", err)
	}
	defer rows.Close()

	var plans []*entities.Plan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan plan", err)
		}
		plans = append(plans, plan)
	}

	if err = rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("error iterating plans", err)
	}

	return plans, nil
}

func (a *PlanAdapter) attachActions(ctx context.Context, plans []*entities.Plan) error {
	if len(plans) == 0 {
		return nil
	}

	planIDs := make([]string, len(plans))
	byID := make(map[string]*entities.Plan, len(plans))
	for i, plan := range plans {
		planIDs[i] = plan.ID
		byID[plan.ID] = plan
	}

	query, args, err := a.db.Select(actionColumns...).
		From("actions").
		Where(goqu.Ex{"plan_id": planIDs}).
		Order(goqu.I("position").Asc()).
		ToSQL()

	if err != nil {
		return apperrors.NewInternalError("failed to build actions query", err)
	}

	actions, err := a.queryActions(ctx, query, args...)
	if err != nil {
		return err
	}

	for _, action := range actions {
		if plan, ok := byID[action.PlanID]; ok {
			plan.Actions = append(plan.Actions, action)
		}
	}

	return nil
}

func (a *PlanAdapter) queryActions(ctx context.Context, query string, args ...interface{}) ([]*entities.PlanAction, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query actions", err)
	}
	defer rows.Close()

	var actions []*entities.PlanAction
	for rows.Next() {
		action, err := scanAction(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan action", err)
		}
		actions = append(actions, action)
	}

	if err = rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("error iterating actions", err)
	}

	return actions, nil
}

func scanPlan(row rowScanner) (*entities.Plan, error) {
	plan := &entities.Plan{}
	var diagnosticID, problem sql.NullString

	err := row.Scan(
		&plan.ID,
		&plan.ObjectID,
		&diagnosticID,
		&plan.Status,
		&problem,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if diagnosticID.Valid {
		plan.DiagnosticID = &diagnosticID.String
	}
	plan.Problem = problem.String

	return plan, nil
}

func scanAction(row rowScanner) (*entities.PlanAction, error) {
	action := &entities.PlanAction{}
	err := row.Scan(
		&action.ID,
		&action.PlanID,
		&action.Description,
		&action.Done,
		&action.Position,
		&action.CreatedAt,
		&action.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return action, nil
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
