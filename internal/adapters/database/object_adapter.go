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

var objectColumns = []interface{}{
	"id", "name", "object_type", "material", "install_year",
	"latitude", "longitude",
	"health_status", "urgency_score", "ai_summary", "recommended_action",
	"has_defects", "last_analysis_at",
	"created_at", "updated_at",
}

// ObjectAdapter implements ObjectRepository
type ObjectAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewObjectAdapter creates a new object adapter
func NewObjectAdapter(client *postgres.Client) repositories.ObjectRepository {
	return &ObjectAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a new object
func (a *ObjectAdapter) Create(ctx context.Context, object *entities.Object) error {
	record := goqu.Record{
		"id":           object.ID,
		"name":         object.Name,
		"object_type":  string(object.Type),
		"material":     sql.NullString{String: object.Material, Valid: object.Material != ""},
		"install_year": sql.NullInt64{Int64: int64(object.InstallYear), Valid: object.InstallYear != 0},
		"latitude":     object.Latitude,
		"longitude":    object.Longitude,
		"has_defects":  object.HasDefects,
		"created_at":   object.CreatedAt,
		"updated_at":   object.UpdatedAt,
	}

	query, args, err := a.db.Insert("objects").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	_, err = a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to create object", err)
	}

	return nil
}

// GetByID retrieves an object by ID
func (a *ObjectAdapter) GetByID(ctx context.Context, id string) (*entities.Object, error) {
	query, args, err := a.db.Select(objectColumns...).
		From("objects").
		Where(goqu.Ex{"id": id}).
		ToSQL()

	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	object, err := scanObject(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("object with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get object", err)
	}

	return object, nil
}

// GetByIDs retrieves multiple objects by their IDs
func (a *ObjectAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.Object, error) {
	if len(ids) == 0 {
		return []*entities.Object{}, nil
	}

	query, args, err := a.db.Select(objectColumns...).
		From("objects").
		Where(goqu.Ex{"id": ids}).
		ToSQL()

	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	return a.queryObjects(ctx, query, args...)
}

// List retrieves objects with filters
func (a *ObjectAdapter) List(ctx context.Context, filter repositories.ObjectFilter) ([]*entities.Object, error) {
	ds := a.db.Select(objectColumns...).From("objects")

	if filter.Type != "" {
		ds = ds.Where(goqu.Ex{"object_type": filter.Type})
	}

	if filter.HealthStatus != "" {
		ds = ds.Where(goqu.Ex{"health_status": filter.HealthStatus})
	}

	ds = ds.Order(goqu.I("urgency_score").Desc().NullsLast(), goqu.I("name").Asc())

	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}

	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	return a.queryObjects(ctx, query, args...)
}

// Update updates an object's base attributes
func (a *ObjectAdapter) Update(ctx context.Context, object *entities.Object) error {
	object.UpdatedAt = time.Now()

	record := goqu.Record{
		"name":         object.Name,
		"object_type":  string(object.Type),
		"material":     sql.NullString{String: object.Material, Valid: object.Material != ""},
		"install_year": sql.NullInt64{Int64: int64(object.InstallYear), Valid: object.InstallYear != 0},
		"latitude":     object.Latitude,
		"longitude":    object.Longitude,
		"updated_at":   object.UpdatedAt,
	}

	query, args, err := a.db.Update("objects").
		Set(record).
		Where(goqu.Ex{"id": object.ID}).
		ToSQL()

	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	return a.execExpectingRow(ctx, query, args, object.ID)
}

// UpdateAssessment writes the derived analysis fields onto an object
func (a *ObjectAdapter) UpdateAssessment(ctx context.Context, id string, assessment *entities.Assessment, analyzedAt time.Time) error {
	record := goqu.Record{
		"health_status":      string(assessment.HealthStatus),
		"urgency_score":      assessment.UrgencyScore,
		"ai_summary":         sql.NullString{String: assessment.AISummary, Valid: assessment.AISummary != ""},
		"recommended_action": sql.NullString{String: assessment.RecommendedAction, Valid: assessment.RecommendedAction != ""},
		"has_defects":        assessment.HasDefects,
		"last_analysis_at":   analyzedAt,
		"updated_at":         analyzedAt,
	}

	query, args, err := a.db.Update("objects").
		Set(record).
		Where(goqu.Ex{"id": id}).
		ToSQL()

	if err != nil {
		return apperrors.NewInternalError("failed to build assessment update query", err)
	}

	return a.execExpectingRow(ctx, query, args, id)
}

// Delete deletes an object
func (a *ObjectAdapter) Delete(ctx context.Context, id string) error {
	query, args, err := a.db.Delete("objects").
		Where(goqu.Ex{"id": id}).
		ToSQL()

	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	return a.execExpectingRow(ctx, query, args, id)
}

// CountByHealthStatus returns object counts grouped by health status
func (a *ObjectAdapter) CountByHealthStatus(ctx context.Context) (map[string]int, error) {
	query, args, err := a.db.Select(
		goqu.COALESCE(goqu.I("health_status"), goqu.L("''")).As("health_status"),
		goqu.COUNT("*").As("count"),
	).From("objects").
		GroupBy(goqu.I("health_status")).
		ToSQL()

	if err != nil {
		return nil, apperrors.NewInternalError("failed to build count query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to count objects", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, apperrors.NewInternalError("failed to scan count row", err)
		}
		counts[status] = count
	}

	if err = rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("error iterating count rows", err)
	}

	return counts, nil
}

func (a *ObjectAdapter) queryObjects(ctx context.Context, query string, args ...interface{}) ([]*entities.Object, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query objects", err)
	}
	defer rows.Close()

	var objects []*entities.Object
	for rows.Next() {
		object, err := scanObject(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan object", err)
		}
		objects = append(objects, object)
	}

	if err = rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("error iterating objects", err)
	}

	return objects, nil
}

func (a *ObjectAdapter) execExpectingRow(ctx context.Context, query string, args []interface{}, id string) error {
	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to execute statement", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("object with id %s not found", id))
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanObject(row rowScanner) (*entities.Object, error) {
	object := &entities.Object{}
	var material, healthStatus, aiSummary, recommendedAction sql.NullString
	var installYear, urgencyScore sql.NullInt64
	var lastAnalysisAt sql.NullTime

	err := row.Scan(
		&object.ID,
		&object.Name,
		&object.Type,
		&material,
		&installYear,
		&object.Latitude,
		&object.Longitude,
		&healthStatus,
		&urgencyScore,
		&aiSummary,
		&recommendedAction,
		&object.HasDefects,
		&lastAnalysisAt,
		&object.CreatedAt,
		&object.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	object.Material = material.String
	object.InstallYear = int(installYear.Int64)
	object.AISummary = aiSummary.String
	object.RecommendedAction = recommendedAction.String

	if healthStatus.Valid {
		status := entities.HealthStatus(healthStatus.String)
		object.HealthStatus = &status
	}
	if urgencyScore.Valid {
		score := int(urgencyScore.Int64)
		object.UrgencyScore = &score
	}
	if lastAnalysisAt.Valid {
		t := lastAnalysisAt.Time
		object.LastAnalysisAt = &t
	}

	return object, nil
}
