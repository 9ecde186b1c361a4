package analysis

import (
	"math"

	"github.com/dkazakov/pipesentry/internal/domain/entities"
	apperrors "github.com/dkazakov/pipesentry/pkg/errors"
)

// planCompletionFloorRatio is the residual risk kept after a finished
// remediation plan: a completed plan reduces risk but never zeroes it.
const planCompletionFloorRatio = 0.35

// ReconcileInput bundles the model output with the stored context it is
// normalized against.
type ReconcileInput struct {
	Raw *entities.RawAssessment

	// PreviousScore is the object's stored urgency score, nil when the
	// object was never analyzed
	PreviousScore *int

	// PlanCompleted is true when a remediation plan finished after the
	// last analysis
	PlanCompleted bool

	Diagnostics      []*entities.Diagnostic
	ConflictDetected bool
}

// Reconcile normalizes a raw model assessment into the form written
// onto an object. The urgency score is authoritative: the health status
// is always re-derived from the score and the model's own status string
// is discarded after validation.
func Reconcile(in ReconcileInput) (*entities.Assessment, error) {
	if in.Raw == nil {
		return nil, apperrors.NewUpstreamError("assessment is empty", nil)
	}
	if in.Raw.HealthStatus == "" {
		return nil, apperrors.NewUpstreamError("assessment is missing a health status", nil)
	}
	if in.Raw.UrgencyScore == nil {
		return nil, apperrors.NewUpstreamError("assessment is missing an urgency score", nil)
	}

	score := int(math.Round(*in.Raw.UrgencyScore))
	if score < 0 {
		score = 0
	}
	if score > maxRiskScore {
		score = maxRiskScore
	}

	if in.PlanCompleted && in.PreviousScore != nil {
		floor := int(math.Round(float64(*in.PreviousScore) * planCompletionFloorRatio))
		if score < floor {
			score = floor
		}
	}

	return &entities.Assessment{
		HealthStatus:      entities.HealthStatusForScore(score),
		UrgencyScore:      score,
		AISummary:         in.Raw.AISummary,
		RecommendedAction: in.Raw.RecommendedAction,
		HasDefects:        LatestDefectFlag(in.Diagnostics),
		ConflictDetected:  in.ConflictDetected,
	}, nil
}

// LatestDefectFlag reports whether the most recent diagnostic found a
// defect. Recency uses the inspection date when parsable, otherwise the
// record's own timestamps.
func LatestDefectFlag(diagnostics []*entities.Diagnostic) bool {
	var latest *entities.Diagnostic
	for _, d := range diagnostics {
		if latest == nil || d.EffectiveTime().After(latest.EffectiveTime()) {
			latest = d
		}
	}
	return latest != nil && latest.DefectFound
}
