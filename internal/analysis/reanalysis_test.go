package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkazakov/pipesentry/internal/domain/entities"
)

func TestFindReanalysisCandidates_PlanCompletedAfterAnalysis(t *testing.T) {
	analyzedAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	obj := &entities.Object{
		ID:             "obj-1",
		Name:           "Compressor 12",
		LastAnalysisAt: &analyzedAt,
		UpdatedAt:      analyzedAt,
	}
	plan := &entities.Plan{
		ID:        "plan-1",
		ObjectID:  "obj-1",
		Status:    entities.PlanStatusDone,
		UpdatedAt: analyzedAt.Add(2 * time.Hour),
	}

	candidates := FindReanalysisCandidates(
		[]*entities.Plan{plan},
		map[string]*entities.Object{"obj-1": obj},
	)

	require.Len(t, candidates, 1)
	assert.Equal(t, "obj-1", candidates[0].ObjectID)
	assert.Equal(t, "Compressor 12", candidates[0].ObjectName)
	assert.Equal(t, "plan-1", candidates[0].PlanID)
}

func TestFindReanalysisCandidates_AnalysisAlreadyCurrent(t *testing.T) {
	planDone := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	analyzedAt := planDone.Add(time.Hour)
	obj := &entities.Object{
		ID:             "obj-1",
		LastAnalysisAt: &analyzedAt,
		UpdatedAt:      analyzedAt,
	}
	plan := &entities.Plan{
		ID:        "plan-1",
		ObjectID:  "obj-1",
		Status:    entities.PlanStatusDone,
		UpdatedAt: planDone,
	}

	candidates := FindReanalysisCandidates(
		[]*entities.Plan{plan},
		map[string]*entities.Object{"obj-1": obj},
	)

	assert.Empty(t, candidates)
}

func TestFindReanalysisCandidates_KeepsNewestPlanPerObject(t *testing.T) {
	analyzedAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	obj := &entities.Object{
		ID:             "obj-1",
		LastAnalysisAt: &analyzedAt,
		UpdatedAt:      analyzedAt,
	}
	older := &entities.Plan{
		ID:        "plan-old",
		ObjectID:  "obj-1",
		Status:    entities.PlanStatusDone,
		UpdatedAt: analyzedAt.Add(time.Hour),
	}
	newer := &entities.Plan{
		ID:        "plan-new",
		ObjectID:  "obj-1",
		Status:    entities.PlanStatusDone,
		UpdatedAt: analyzedAt.Add(3 * time.Hour),
	}

	candidates := FindReanalysisCandidates(
		[]*entities.Plan{older, newer},
		map[string]*entities.Object{"obj-1": obj},
	)

	require.Len(t, candidates, 1)
	assert.Equal(t, "plan-new", candidates[0].PlanID)
}

func TestFindReanalysisCandidates_IgnoresNonDonePlans(t *testing.T) {
	obj := &entities.Object{ID: "obj-1", UpdatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	plan := &entities.Plan{
		ID:        "plan-1",
		ObjectID:  "obj-1",
		Status:    entities.PlanStatusPending,
		UpdatedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}

	candidates := FindReanalysisCandidates(
		[]*entities.Plan{plan},
		map[string]*entities.Object{"obj-1": obj},
	)

	assert.Empty(t, candidates)
}

func TestFindReanalysisCandidates_NeverAnalyzedObjectUsesUpdateTime(t *testing.T) {
	objUpdated := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	obj := &entities.Object{ID: "obj-1", UpdatedAt: objUpdated}
	plan := &entities.Plan{
		ID:        "plan-1",
		ObjectID:  "obj-1",
		Status:    entities.PlanStatusDone,
		UpdatedAt: objUpdated.Add(time.Hour),
	}

	candidates := FindReanalysisCandidates(
		[]*entities.Plan{plan},
		map[string]*entities.Object{"obj-1": obj},
	)

	require.Len(t, candidates, 1)
}

func TestFindReanalysisCandidates_SortedByPlanRecency(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	objects := map[string]*entities.Object{
		"obj-a": {ID: "obj-a", UpdatedAt: base},
		"obj-b": {ID: "obj-b", UpdatedAt: base},
	}
	plans := []*entities.Plan{
		{ID: "plan-a", ObjectID: "obj-a", Status: entities.PlanStatusDone, UpdatedAt: base.Add(time.Hour)},
		{ID: "plan-b", ObjectID: "obj-b", Status: entities.PlanStatusDone, UpdatedAt: base.Add(2 * time.Hour)},
	}

	candidates := FindReanalysisCandidates(plans, objects)

	require.Len(t, candidates, 2)
	assert.Equal(t, "plan-b", candidates[0].PlanID)
	assert.Equal(t, "plan-a", candidates[1].PlanID)
}
