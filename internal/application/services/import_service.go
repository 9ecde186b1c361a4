package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkazakov/pipesentry/internal/domain/entities"
	"github.com/dkazakov/pipesentry/internal/domain/providers"
	"github.com/dkazakov/pipesentry/internal/domain/repositories"
	apperrors "github.com/dkazakov/pipesentry/pkg/errors"
)

// ImportReport summarizes one CSV import run
type ImportReport struct {
	Imported int      `json:"imported"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// ImportService loads objects and diagnostic records from CSV files.
// Rows are validated individually; a bad row is reported and skipped,
// it never aborts the import.
type ImportService struct {
	objects     repositories.ObjectRepository
	diagnostics repositories.DiagnosticRepository
	eventBus    providers.EventBus
	maxRows     int
}

// NewImportService creates a new import service
func NewImportService(
	objects repositories.ObjectRepository,
	diagnostics repositories.DiagnosticRepository,
	eventBus providers.EventBus,
	maxRows int,
) *ImportService {
	if maxRows <= 0 {
		maxRows = 10000
	}
	return &ImportService{
		objects:     objects,
		diagnostics: diagnostics,
		eventBus:    eventBus,
		maxRows:     maxRows,
	}
}

// ImportObjects imports objects from CSV. Expected header columns:
// name, type, material, install_year, latitude, longitude.
func (s *ImportService) ImportObjects(ctx context.Context, r io.Reader) (*ImportReport, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, apperrors.NewValidationError("csv file is empty or unreadable")
	}
	columns := headerIndex(header)

	for _, required := range []string{"name", "type"} {
		if _, ok := columns[required]; !ok {
			return nil, apperrors.NewValidationError(fmt.Sprintf("csv is missing required column %q", required))
		}
	}

	report := &ImportReport{}
	now := time.Now()
	row := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("row %d: %v", row, err))
			continue
		}
		if row-1 > s.maxRows {
			return nil, apperrors.NewValidationError(fmt.Sprintf("csv exceeds the %d row limit", s.maxRows))
		}

		name := strings.TrimSpace(cell(record, columns, "name"))
		if name == "" {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("row %d: name is required", row))
			continue
		}

		objectType, ok := entities.ParseObjectType(strings.TrimSpace(cell(record, columns, "type")))
		if !ok {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("row %d: unknown object type %q", row, cell(record, columns, "type")))
			continue
		}

		object := &entities.Object{
			ID:          uuid.New().String(),
			Name:        name,
			Type:        objectType,
			Material:    strings.TrimSpace(cell(record, columns, "material")),
			InstallYear: parseIntCell(cell(record, columns, "install_year")),
			Latitude:    parseFloatCell(cell(record, columns, "latitude")),
			Longitude:   parseFloatCell(cell(record, columns, "longitude")),
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := s.objects.Create(ctx, object); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("row %d: %v", row, err))
			continue
		}
		report.Imported++
	}

	s.publishImportEvent(ctx, "objects", report.Imported)

	log.Info().Int("imported", report.Imported).Int("failed", report.Failed).Msg("Object import finished")
	return report, nil
}

// ImportDiagnostics imports diagnostic records from CSV. Expected header
// columns: object_id, method, inspection_date, param1, param2, param3,
// defect_found, defect_description, quality_grade, ml_label.
func (s *ImportService) ImportDiagnostics(ctx context.Context, r io.Reader) (*ImportReport, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, apperrors.NewValidationError("csv file is empty or unreadable")
	}
	columns := headerIndex(header)

	for _, required := range []string{"object_id", "method"} {
		if _, ok := columns[required]; !ok {
			return nil, apperrors.NewValidationError(fmt.Sprintf("csv is missing required column %q", required))
		}
	}

	report := &ImportReport{}
	now := time.Now()
	row := 1
	var batch []*entities.Diagnostic
	touched := make(map[string]struct{})

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("row %d: %v", row, err))
			continue
		}
		if row-1 > s.maxRows {
			return nil, apperrors.NewValidationError(fmt.Sprintf("csv exceeds the %d row limit", s.maxRows))
		}

		objectID := strings.TrimSpace(cell(record, columns, "object_id"))
		if objectID == "" {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("row %d: object_id is required", row))
			continue
		}

		method, ok := entities.ParseMethod(cell(record, columns, "method"))
		if !ok {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("row %d: unknown method %q", row, cell(record, columns, "method")))
			continue
		}

		grade, ok := entities.ParseQualityGrade(cell(record, columns, "quality_grade"))
		if !ok {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("row %d: unknown quality grade %q", row, cell(record, columns, "quality_grade")))
			continue
		}

		mlLabel, ok := entities.ParseMLLabel(cell(record, columns, "ml_label"))
		if !ok {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("row %d: unknown ml label %q", row, cell(record, columns, "ml_label")))
			continue
		}

		batch = append(batch, &entities.Diagnostic{
			ID:                uuid.New().String(),
			ObjectID:          objectID,
			Method:            method,
			InspectionDate:    strings.TrimSpace(cell(record, columns, "inspection_date")),
			Param1:            parseFloatPtrCell(cell(record, columns, "param1")),
			Param2:            parseFloatPtrCell(cell(record, columns, "param2")),
			Param3:            parseFloatPtrCell(cell(record, columns, "param3")),
			DefectFound:       parseBoolCell(cell(record, columns, "defect_found")),
			DefectDescription: strings.TrimSpace(cell(record, columns, "defect_description")),
			QualityGrade:      grade,
			MLLabel:           mlLabel,
			CreatedAt:         now,
			UpdatedAt:         now,
		})
		touched[objectID] = struct{}{}
	}

	if len(batch) > 0 {
		if err := s.diagnostics.CreateBatch(ctx, batch); err != nil {
			return nil, err
		}
		report.Imported = len(batch)
	}

	for objectID := range touched {
		s.publishImportEvent(ctx, objectID, report.Imported)
	}

	log.Info().Int("imported", report.Imported).Int("failed", report.Failed).Msg("Diagnostic import finished")
	return report, nil
}

func (s *ImportService) publishImportEvent(ctx context.Context, objectID string, count int) {
	if s.eventBus == nil {
		return
	}

	event := entities.NewObjectEvent(objectID, entities.ObjectEventTypeImport, map[string]interface{}{
		"imported": count,
	})
	if err := s.eventBus.Publish(ctx, providers.GlobalObjectChannel, event); err != nil {
		log.Warn().Err(err).Msg("Failed to publish import event")
	}
}

func headerIndex(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return columns
}

func cell(record []string, columns map[string]int, name string) string {
	idx, ok := columns[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return record[idx]
}

func parseIntCell(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return v
}

func parseFloatCell(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseFloatPtrCell(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseBoolCell(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "да":
		return true
	}
	return false
}
