package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/dkazakov/pipesentry/internal/domain/entities"
	"github.com/dkazakov/pipesentry/internal/domain/repositories"
	"github.com/dkazakov/pipesentry/internal/infrastructure/clients/postgres"
	apperrors "github.com/dkazakov/pipesentry/pkg/errors"
)

var diagnosticColumns = []interface{}{
	"id", "object_id", "method", "inspection_date",
	"param1", "param2", "param3",
	"defect_found", "defect_description", "quality_grade", "ml_label",
	"created_at", "updated_at",
}

// DiagnosticAdapter implements DiagnosticRepository
type DiagnosticAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewDiagnosticAdapter creates a new diagnostic adapter
func NewDiagnosticAdapter(client *postgres.Client) repositories.DiagnosticRepository {
	return &DiagnosticAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a single diagnostic record
func (a *DiagnosticAdapter) Create(ctx context.Context, diagnostic *entities.Diagnostic) error {
	query, args, err := a.db.Insert("diagnostics").
		Rows(diagnosticRecord(diagnostic)).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	_, err = a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to create diagnostic", err)
	}

	return nil
}

// CreateBatch creates multiple diagnostic records in one statement
func (a *DiagnosticAdapter) CreateBatch(ctx context.Context, diagnostics []*entities.Diagnostic) error {
	if len(diagnostics) == 0 {
		return nil
	}

	records := make([]interface{}, len(diagnostics))
	for i, d := range diagnostics {
		records[i] = diagnosticRecord(d)
	}

	query, args, err := a.db.Insert("diagnostics").Rows(records...).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build batch insert query", err)
	}

	_, err = a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to create diagnostics", err)
	}

	return nil
}

// GetByID retrieves a diagnostic by ID
func (a *DiagnosticAdapter) GetByID(ctx context.Context, id string) (*entities.Diagnostic, error) {
	query, args, err := a.db.Select(diagnosticColumns...).
		From("diagnostics").
		Where(goqu.Ex{"id": id}).
		ToSQL()

	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	diagnostic, err := scanDiagnostic(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("diagnostic with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get diagnostic", err)
	}

	return diagnostic, nil
}

// ListByObject retrieves all diagnostics for one object
func (a *DiagnosticAdapter) ListByObject(ctx context.Context, objectID string) ([]*entities.Diagnostic, error) {
	query, args, err := a.db.Select(diagnosticColumns...).
		From("diagnostics").
		Where(goqu.Ex{"object_id": objectID}).
		Order(goqu.I("created_at").Desc()).
		ToSQL()

	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	return a.queryDiagnostics(ctx, query, args...)
}

// ListByObjects retrieves diagnostics for a set of objects, keyed by object ID
func (a *DiagnosticAdapter) ListByObjects(ctx context.Context, objectIDs []string) (map[string][]*entities.Diagnostic, error) {
	if len(objectIDs) == 0 {
		return map[string][]*entities.Diagnostic{}, nil
	}

	query, args, err := a.db.Select(diagnosticColumns...).
		From("diagnostics").
		Where(goqu.Ex{"object_id": objectIDs}).
		Order(goqu.I("created_at").Desc()).
		ToSQL()

	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	diagnostics, err := a.queryDiagnostics(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	byObject := make(map[string][]*entities.Diagnostic, len(objectIDs))
	for _, d := range diagnostics {
		byObject[d.ObjectID] = append(byObject[d.ObjectID], d)
	}

	return byObject, nil
}

func (a *DiagnosticAdapter) queryDiagnostics(ctx context.Context, query string, args ...interface{}) ([]*entities.Diagnostic, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query diagnostics", err)
	}
	defer rows.Close()

	var diagnostics []*entities.Diagnostic
	for rows.Next() {
		diagnostic, err := scanDiagnostic(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan diagnostic", err)
		}
		diagnostics = append(diagnostics, diagnostic)
	}

	if err = rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("error iterating diagnostics", err)
	}

	return diagnostics, nil
}

func diagnosticRecord(d *entities.Diagnostic) goqu.Record {
	return goqu.Record{
		"id":                 d.ID,
		"object_id":          d.ObjectID,
		"method":             string(d.Method),
		"inspection_date":    sql.NullString{String: d.InspectionDate, Valid: d.InspectionDate != ""},
		"param1":             nullFloat(d.Param1),
		"param2":             nullFloat(d.Param2),
		"param3":             nullFloat(d.Param3),
		"defect_found":       d.DefectFound,
		"defect_description": sql.NullString{String: d.DefectDescription, Valid: d.DefectDescription != ""},
		"quality_grade":      sql.NullString{String: string(d.QualityGrade), Valid: d.QualityGrade != ""},
		"ml_label":           sql.NullString{String: string(d.MLLabel), Valid: d.MLLabel != ""},
		"created_at":         d.CreatedAt,
		"updated_at":         d.UpdatedAt,
	}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func scanDiagnostic(row rowScanner) (*entities.Diagnostic, error) {
	diagnostic := &entities.Diagnostic{}
	var inspectionDate, defectDescription, qualityGrade, mlLabel sql.NullString
	var param1, param2, param3 sql.NullFloat64

	err := row.Scan(
		&diagnostic.ID,
		&diagnostic.ObjectID,
		&diagnostic.Method,
		&inspectionDate,
		&param1,
		&param2,
		&param3,
		&diagnostic.DefectFound,
		&defectDescription,
		&qualityGrade,
		&mlLabel,
		&diagnostic.CreatedAt,
		&diagnostic.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	diagnostic.InspectionDate = inspectionDate.String
	diagnostic.DefectDescription = defectDescription.String
	diagnostic.QualityGrade = entities.QualityGrade(qualityGrade.String)
	diagnostic.MLLabel = entities.MLLabel(mlLabel.String)

	if param1.Valid {
		diagnostic.Param1 = &param1.Float64
	}
	if param2.Valid {
		diagnostic.Param2 = &param2.Float64
	}
	if param3.Valid {
		diagnostic.Param3 = &param3.Float64
	}

	return diagnostic, nil
}
