package analysis

import (
	"sort"
	"time"

	"github.com/dkazakov/pipesentry/internal/domain/entities"
)

// ReanalysisCandidate is an object whose risk picture changed after its
// last analysis because a remediation plan was completed.
type ReanalysisCandidate struct {
	ObjectID       string     `json:"object_id"`
	ObjectName     string     `json:"object_name"`
	PlanID         string     `json:"plan_id"`
	PlanUpdatedAt  time.Time  `json:"plan_updated_at"`
	LastAnalysisAt *time.Time `json:"last_analysis_at,omitempty"`
}

// FindReanalysisCandidates filters completed plans down to objects that
// should be re-assessed. Only the most recently updated done plan per
// object is considered, and it qualifies when its update timestamp is
// strictly newer than both the object's last analysis and its own
// update time.
func FindReanalysisCandidates(donePlans []*entities.Plan, objects map[string]*entities.Object) []ReanalysisCandidate {
	latest := make(map[string]*entities.Plan, len(donePlans))
	for _, plan := range donePlans {
		if plan.Status != entities.PlanStatusDone {
			continue
		}
		if cur, ok := latest[plan.ObjectID]; !ok || plan.UpdatedAt.After(cur.UpdatedAt) {
			latest[plan.ObjectID] = plan
		}
	}

	candidates := make([]ReanalysisCandidate, 0, len(latest))
	for objectID, plan := range latest {
		obj, ok := objects[objectID]
		if !ok {
			continue
		}
		ref := obj.UpdatedAt
		if obj.LastAnalysisAt != nil && obj.LastAnalysisAt.After(ref) {
			ref = *obj.LastAnalysisAt
		}
		if !plan.UpdatedAt.After(ref) {
			continue
		}
		candidates = append(candidates, ReanalysisCandidate{
			ObjectID:       obj.ID,
			ObjectName:     obj.Name,
			PlanID:         plan.ID,
			PlanUpdatedAt:  plan.UpdatedAt,
			LastAnalysisAt: obj.LastAnalysisAt,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].PlanUpdatedAt.After(candidates[j].PlanUpdatedAt)
	})
	return candidates
}
