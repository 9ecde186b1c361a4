package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dkazakov/pipesentry/internal/domain/entities"
	"github.com/dkazakov/pipesentry/internal/domain/repositories"
	apperrors "github.com/dkazakov/pipesentry/pkg/errors"
)

// ObjectService handles business logic for infrastructure objects
type ObjectService struct {
	objects     repositories.ObjectRepository
	diagnostics repositories.DiagnosticRepository
}

// NewObjectService creates a new object service
func NewObjectService(objects repositories.ObjectRepository, diagnostics repositories.DiagnosticRepository) *ObjectService {
	return &ObjectService{
		objects:     objects,
		diagnostics: diagnostics,
	}
}

// CreateObjectInput describes a new object request
type CreateObjectInput struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Material    string  `json:"material"`
	InstallYear int     `json:"install_year"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// Create creates a new object
func (s *ObjectService) Create(ctx context.Context, input CreateObjectInput) (*entities.Object, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required")
	}

	objectType, ok := entities.ParseObjectType(input.Type)
	if !ok {
		return nil, apperrors.NewValidationError("type must be crane, compressor or pipeline_section")
	}

	now := time.Now()
	object := &entities.Object{
		ID:          uuid.New().String(),
		Name:        name,
		Type:        objectType,
		Material:    strings.TrimSpace(input.Material),
		InstallYear: input.InstallYear,
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.objects.Create(ctx, object); err != nil {
		return nil, err
	}

	return object, nil
}

// GetByID retrieves an object by ID
func (s *ObjectService) GetByID(ctx context.Context, id string) (*entities.Object, error) {
	return s.objects.GetByID(ctx, id)
}

// List retrieves objects with filters
func (s *ObjectService) List(ctx context.Context, filter repositories.ObjectFilter) ([]*entities.Object, error) {
	return s.objects.List(ctx, filter)
}

// Delete deletes an object
func (s *ObjectService) Delete(ctx context.Context, id string) error {
	return s.objects.Delete(ctx, id)
}

// Diagnostics retrieves all diagnostic records for an object
func (s *ObjectService) Diagnostics(ctx context.Context, objectID string) ([]*entities.Diagnostic, error) {
	if _, err := s.objects.GetByID(ctx, objectID); err != nil {
		return nil, err
	}
	return s.diagnostics.ListByObject(ctx, objectID)
}

// CreateDiagnosticInput describes a manually recorded inspection
type CreateDiagnosticInput struct {
	Method            string   `json:"method"`
	InspectionDate    string   `json:"inspection_date"`
	Param1            *float64 `json:"param1"`
	Param2            *float64 `json:"param2"`
	Param3            *float64 `json:"param3"`
	DefectFound       bool     `json:"defect_found"`
	DefectDescription string   `json:"defect_description"`
	QualityGrade      string   `json:"quality_grade"`
	MLLabel           string   `json:"ml_label"`
}

// AddDiagnostic records one inspection result for an object
func (s *ObjectService) AddDiagnostic(ctx context.Context, objectID string, input CreateDiagnosticInput) (*entities.Diagnostic, error) {
	if _, err := s.objects.GetByID(ctx, objectID); err != nil {
		return nil, err
	}

	method, ok := entities.ParseMethod(input.Method)
	if !ok {
		return nil, apperrors.NewValidationError("unknown diagnostic method")
	}
	grade, ok := entities.ParseQualityGrade(input.QualityGrade)
	if !ok {
		return nil, apperrors.NewValidationError("unknown quality grade")
	}
	mlLabel, ok := entities.ParseMLLabel(input.MLLabel)
	if !ok {
		return nil, apperrors.NewValidationError("unknown ml label")
	}

	now := time.Now()
	diagnostic := &entities.Diagnostic{
		ID:                uuid.New().String(),
		ObjectID:          objectID,
		Method:            method,
		InspectionDate:    strings.TrimSpace(input.InspectionDate),
		Param1:            input.Param1,
		Param2:            input.Param2,
		Param3:            input.Param3,
		DefectFound:       input.DefectFound,
		DefectDescription: strings.TrimSpace(input.DefectDescription),
		QualityGrade:      grade,
		MLLabel:           mlLabel,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.diagnostics.Create(ctx, diagnostic); err != nil {
		return nil, err
	}

	return diagnostic, nil
}

// DashboardSummary aggregates object counts for the overview page
type DashboardSummary struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	Unanalyzed int            `json:"unanalyzed"`
}

// Summary returns object counts grouped by derived health status
func (s *ObjectService) Summary(ctx context.Context) (*DashboardSummary, error) {
	counts, err := s.objects.CountByHealthStatus(ctx)
	if err != nil {
		return nil, err
	}

	summary := &DashboardSummary{
		ByStatus: map[string]int{
			string(entities.HealthStatusOK):       0,
			string(entities.HealthStatusWarning):  0,
			string(entities.HealthStatusCritical): 0,
		},
	}
	for status, count := range counts {
		summary.Total += count
		if status == "" {
			summary.Unanalyzed = count
			continue
		}
		summary.ByStatus[status] += count
	}

	return summary, nil
}
