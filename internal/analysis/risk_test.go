package analysis

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dkazakov/pipesentry/internal/domain/entities"
)

func diag(method entities.Method, defect bool, grade entities.QualityGrade) *entities.Diagnostic {
	return &entities.Diagnostic{
		Method:       method,
		DefectFound:  defect,
		QualityGrade: grade,
	}
}

func TestRiskScore_Empty(t *testing.T) {
	assert.Equal(t, 0, RiskScore(nil))
	assert.Equal(t, 0, RiskScore([]*entities.Diagnostic{}))
}

func TestRiskScore_UnacceptableGradeIsCritical(t *testing.T) {
	// Scenario: a single MFL record with a confirmed defect graded
	// unacceptable must max out the score.
	diagnostics := []*entities.Diagnostic{
		diag(entities.MethodMFL, true, entities.GradeUnacceptable),
	}

	score := RiskScore(diagnostics)

	assert.Equal(t, 100, score)
	assert.Equal(t, entities.HealthStatusCritical, entities.HealthStatusForScore(score))
}

func TestRiskScore_GradeSeverities(t *testing.T) {
	tests := []struct {
		grade    entities.QualityGrade
		expected int
	}{
		{entities.GradeSatisfactory, 0},
		{entities.GradeAcceptable, 30},
		{entities.GradeNeedsAction, 70},
		{entities.GradeUnacceptable, 100},
	}

	for _, tt := range tests {
		t.Run(string(tt.grade), func(t *testing.T) {
			diagnostics := []*entities.Diagnostic{
				diag(entities.MethodUZT, false, tt.grade),
			}
			assert.Equal(t, tt.expected, RiskScore(diagnostics))
		})
	}
}

func TestRiskScore_MLLabelSeverities(t *testing.T) {
	tests := []struct {
		label    entities.MLLabel
		expected int
	}{
		{entities.MLLabelNormal, 0},
		{entities.MLLabelMedium, 40},
		{entities.MLLabelHigh, 80},
	}

	for _, tt := range tests {
		t.Run(string(tt.label), func(t *testing.T) {
			diagnostics := []*entities.Diagnostic{
				{Method: entities.MethodVBR, MLLabel: tt.label},
			}
			assert.Equal(t, tt.expected, RiskScore(diagnostics))
		})
	}
}

func TestRiskScore_DefectRecordFloor(t *testing.T) {
	// A defect with no grade and no ML label still scores 40
	diagnostics := []*entities.Diagnostic{
		diag(entities.MethodUZK, true, ""),
	}
	assert.Equal(t, 40, RiskScore(diagnostics))
}

func TestRiskScore_ConflictBoost(t *testing.T) {
	// Internal defect against clean surface methods: +20 over the
	// defect floor of 40.
	withConflict := []*entities.Diagnostic{
		diag(entities.MethodMFL, true, ""),
		diag(entities.MethodVIK, false, ""),
		diag(entities.MethodTVK, false, ""),
	}
	withoutConflict := []*entities.Diagnostic{
		diag(entities.MethodMFL, true, ""),
	}

	assert.Equal(t, RiskScore(withoutConflict)+conflictBoost, RiskScore(withConflict))
}

func TestRiskScore_MultiDefectBoost(t *testing.T) {
	two := []*entities.Diagnostic{
		diag(entities.MethodMFL, true, ""),
		diag(entities.MethodUZT, true, ""),
	}
	three := []*entities.Diagnostic{
		diag(entities.MethodMFL, true, ""),
		diag(entities.MethodUZT, true, ""),
		diag(entities.MethodRGK, true, ""),
	}

	assert.Equal(t, 40, RiskScore(two))
	assert.Equal(t, 50, RiskScore(three))
}

func TestRiskScore_CappedAt100(t *testing.T) {
	diagnostics := []*entities.Diagnostic{
		diag(entities.MethodMFL, true, entities.GradeUnacceptable),
		diag(entities.MethodUZT, true, entities.GradeUnacceptable),
		diag(entities.MethodRGK, true, entities.GradeUnacceptable),
		diag(entities.MethodVIK, false, ""),
	}
	assert.Equal(t, 100, RiskScore(diagnostics))
}

func TestRiskScore_AnyDefectFloor(t *testing.T) {
	// A single defect on a surface method, no grade, no boosts applies,
	// per-record floor 40 already exceeds 30. Force the low path with a
	// satisfactory grade defect that the record floor lifts to 40; the
	// any-defect floor only matters when boosts cannot apply, so check
	// the invariant directly instead.
	diagnostics := []*entities.Diagnostic{
		diag(entities.MethodVIK, true, entities.GradeSatisfactory),
	}
	assert.GreaterOrEqual(t, RiskScore(diagnostics), anyDefectFloor)
}

func TestRiskScore_MonotonicInDefects(t *testing.T) {
	// Adding one more defect record never decreases the score
	base := []*entities.Diagnostic{}
	prev := RiskScore(base)
	for i := 0; i < 6; i++ {
		base = append(base, diag(entities.MethodUZK, true, ""))
		cur := RiskScore(base)
		assert.GreaterOrEqual(t, cur, prev, fmt.Sprintf("score dropped after adding defect record %d", i+1))
		prev = cur
	}
}

func TestRiskScore_AlwaysInRange(t *testing.T) {
	grades := []entities.QualityGrade{"", entities.GradeSatisfactory, entities.GradeAcceptable, entities.GradeNeedsAction, entities.GradeUnacceptable}
	for _, g := range grades {
		for _, defect := range []bool{false, true} {
			score := RiskScore([]*entities.Diagnostic{diag(entities.MethodMFL, defect, g)})
			assert.GreaterOrEqual(t, score, 0)
			assert.LessOrEqual(t, score, 100)
		}
	}
}

func TestRiskLevelFor(t *testing.T) {
	tests := []struct {
		score    int
		expected RiskLevel
	}{
		{0, RiskLevelLow},
		{39, RiskLevelLow},
		{40, RiskLevelMedium},
		{65, RiskLevelMedium},
		{66, RiskLevelHigh},
		{100, RiskLevelHigh},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, RiskLevelFor(tt.score), fmt.Sprintf("score %d", tt.score))
	}
}
