package analysis

import (
	"sort"

	"github.com/dkazakov/pipesentry/internal/domain/entities"
)

// Number of most-recent dated records considered for the grade check
const recentGradeWindow = 5

// DetectConflict reports disagreement within one object's diagnostics.
// Either signal alone is enough: internal methods seeing a defect that
// every surface method missed, or contradictory quality grades among
// the recent records.
func DetectConflict(diagnostics []*entities.Diagnostic) bool {
	return internalSurfaceConflict(diagnostics) || recentGradeConflict(diagnostics)
}

// internalSurfaceConflict is true when at least one internal-sensitive
// method found a defect while surface methods are present and all clean.
func internalSurfaceConflict(diagnostics []*entities.Diagnostic) bool {
	internalDefect := false
	surfaceSeen := false
	surfaceClean := true

	for _, d := range diagnostics {
		switch {
		case d.Method.IsInternal():
			if d.DefectFound {
				internalDefect = true
			}
		case d.Method.IsSurface():
			surfaceSeen = true
			if d.DefectFound {
				surfaceClean = false
			}
		}
	}
	return internalDefect && surfaceSeen && surfaceClean
}

// recentGradeConflict is true when the five most-recently-dated records
// carry both a good and a bad quality grade. Records whose inspection
// date cannot be parsed are excluded.
func recentGradeConflict(diagnostics []*entities.Diagnostic) bool {
	type dated struct {
		grade entities.QualityGrade
		at    int64
	}

	recent := make([]dated, 0, len(diagnostics))
	for _, d := range diagnostics {
		t, ok := d.InspectionTime()
		if !ok {
			continue
		}
		recent = append(recent, dated{grade: d.QualityGrade, at: t.UnixNano()})
	}

	sort.Slice(recent, func(i, j int) bool { return recent[i].at > recent[j].at })
	if len(recent) > recentGradeWindow {
		recent = recent[:recentGradeWindow]
	}

	good, bad := false, false
	for _, r := range recent {
		switch r.grade {
		case entities.GradeSatisfactory, entities.GradeAcceptable:
			good = true
		case entities.GradeNeedsAction, entities.GradeUnacceptable:
			bad = true
		}
	}
	return good && bad
}
