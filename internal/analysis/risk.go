// Package analysis holds the pure scoring, conflict and reconciliation
// logic shared by the analysis service and the priority endpoints. No
// function here touches storage or the network.
package analysis

import (
	"github.com/dkazakov/pipesentry/internal/domain/entities"
)

const (
	maxRiskScore = 100

	// Per-record minimum when the record itself reports a defect
	defectRecordFloor = 40

	// Whole-set minimum when any record reports a defect
	anyDefectFloor = 30

	conflictBoost = 20

	// Applied when strictly more than multiDefectThreshold records
	// report defects
	multiDefectBoost     = 10
	multiDefectThreshold = 2
)

var gradeSeverity = map[entities.QualityGrade]int{
	entities.GradeUnacceptable: 100,
	entities.GradeNeedsAction:  70,
	entities.GradeAcceptable:   30,
	entities.GradeSatisfactory: 0,
}

var mlSeverity = map[entities.MLLabel]int{
	entities.MLLabelHigh:   80,
	entities.MLLabelMedium: 40,
	entities.MLLabelNormal: 0,
}

// RiskScore maps an object's diagnostic records to a composite 0-100
// score. An empty list scores 0.
func RiskScore(diagnostics []*entities.Diagnostic) int {
	if len(diagnostics) == 0 {
		return 0
	}

	score := 0
	defectCount := 0
	for _, d := range diagnostics {
		record := recordSeverity(d)
		if record > score {
			score = record
		}
		if d.DefectFound {
			defectCount++
		}
	}

	if DetectConflict(diagnostics) {
		score += conflictBoost
	}
	if defectCount > multiDefectThreshold {
		score += multiDefectBoost
	}
	if score > maxRiskScore {
		score = maxRiskScore
	}

	if defectCount > 0 && score < anyDefectFloor {
		score = anyDefectFloor
	}
	return score
}

// RiskLevel buckets a composite risk score for queue filtering and
// dashboard payloads.
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// RiskLevelFor buckets a score: low below 40, medium 40-65, high above.
// The low/medium boundary doubles as the priority queue's default
// threshold.
func RiskLevelFor(score int) RiskLevel {
	switch {
	case score < DefaultRiskThreshold:
		return RiskLevelLow
	case score <= 65:
		return RiskLevelMedium
	default:
		return RiskLevelHigh
	}
}

func recordSeverity(d *entities.Diagnostic) int {
	severity := gradeSeverity[d.QualityGrade]
	if ml := mlSeverity[d.MLLabel]; ml > severity {
		severity = ml
	}
	if d.DefectFound && severity < defectRecordFloor {
		severity = defectRecordFloor
	}
	return severity
}
