package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dkazakov/pipesentry/internal/domain/entities"
)

func gradedOn(date string, grade entities.QualityGrade) *entities.Diagnostic {
	return &entities.Diagnostic{
		Method:         entities.MethodUZT,
		InspectionDate: date,
		QualityGrade:   grade,
	}
}

func TestDetectConflict_Empty(t *testing.T) {
	assert.False(t, DetectConflict(nil))
}

func TestDetectConflict_InternalDefectSurfaceClean(t *testing.T) {
	diagnostics := []*entities.Diagnostic{
		diag(entities.MethodMFL, true, ""),
		diag(entities.MethodVIK, false, ""),
		diag(entities.MethodTVK, false, ""),
	}
	assert.True(t, DetectConflict(diagnostics))
}

func TestDetectConflict_NoSurfaceMethods(t *testing.T) {
	// An internal defect alone is not a conflict: there is nothing
	// disagreeing with it.
	diagnostics := []*entities.Diagnostic{
		diag(entities.MethodMFL, true, ""),
		diag(entities.MethodUZT, true, ""),
	}
	assert.False(t, DetectConflict(diagnostics))
}

func TestDetectConflict_SurfaceConfirmsDefect(t *testing.T) {
	diagnostics := []*entities.Diagnostic{
		diag(entities.MethodMFL, true, ""),
		diag(entities.MethodVIK, true, ""),
	}
	assert.False(t, DetectConflict(diagnostics))
}

func TestDetectConflict_ContradictoryRecentGrades(t *testing.T) {
	diagnostics := []*entities.Diagnostic{
		gradedOn("2024-03-01", entities.GradeSatisfactory),
		gradedOn("2024-03-15", entities.GradeUnacceptable),
	}
	assert.True(t, DetectConflict(diagnostics))
}

func TestDetectConflict_GradeWindowLimitedToFiveRecent(t *testing.T) {
	// The lone good grade is the sixth most recent record, outside the
	// window, so no grade conflict fires.
	diagnostics := []*entities.Diagnostic{
		gradedOn("2024-01-01", entities.GradeSatisfactory),
		gradedOn("2024-02-01", entities.GradeUnacceptable),
		gradedOn("2024-03-01", entities.GradeUnacceptable),
		gradedOn("2024-04-01", entities.GradeNeedsAction),
		gradedOn("2024-05-01", entities.GradeUnacceptable),
		gradedOn("2024-06-01", entities.GradeNeedsAction),
	}
	assert.False(t, DetectConflict(diagnostics))
}

func TestDetectConflict_UnparsableDatesExcludedFromGradeCheck(t *testing.T) {
	diagnostics := []*entities.Diagnostic{
		gradedOn("not a date", entities.GradeSatisfactory),
		gradedOn("2024-03-15", entities.GradeUnacceptable),
	}
	assert.False(t, DetectConflict(diagnostics))
}

func TestDetectConflict_DottedDateLayout(t *testing.T) {
	diagnostics := []*entities.Diagnostic{
		gradedOn("01.03.2024", entities.GradeAcceptable),
		gradedOn("15.03.2024", entities.GradeNeedsAction),
	}
	assert.True(t, DetectConflict(diagnostics))
}

func TestDetectConflict_Idempotent(t *testing.T) {
	diagnostics := []*entities.Diagnostic{
		diag(entities.MethodMFL, true, ""),
		diag(entities.MethodVIK, false, ""),
	}
	first := DetectConflict(diagnostics)
	second := DetectConflict(diagnostics)
	assert.Equal(t, first, second)
	assert.True(t, first)
}
