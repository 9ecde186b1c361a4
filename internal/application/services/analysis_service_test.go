package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dkazakov/pipesentry/internal/application/services"
	"github.com/dkazakov/pipesentry/internal/domain/entities"
	apperrors "github.com/dkazakov/pipesentry/pkg/errors"
)

type analysisFixture struct {
	objects     *MockObjectRepository
	diagnostics *MockDiagnosticRepository
	plans       *MockPlanRepository
	provider    *MockAssessmentProvider
	eventBus    *MockEventBus
	service     *services.AnalysisService
}

func newAnalysisFixture() *analysisFixture {
	f := &analysisFixture{
		objects:     &MockObjectRepository{},
		diagnostics: &MockDiagnosticRepository{},
		plans:       &MockPlanRepository{},
		provider:    &MockAssessmentProvider{},
		eventBus:    &MockEventBus{},
	}
	f.service = services.NewAnalysisService(f.objects, f.diagnostics, f.plans, f.provider, f.eventBus)
	return f
}

func scorePtr(v float64) *float64 { return &v }

func defectDiagnostic(objectID string) *entities.Diagnostic {
	return &entities.Diagnostic{
		ID:             "diag-" + objectID,
		ObjectID:       objectID,
		Method:         entities.MethodMFL,
		InspectionDate: "2024-03-01",
		DefectFound:    true,
	}
}

func TestAnalyzeObject_Success(t *testing.T) {
	f := newAnalysisFixture()
	ctx := context.Background()

	object := &entities.Object{ID: "obj-1", Name: "Crane 3", Type: entities.ObjectTypeCrane}
	f.objects.On("GetByID", mock.Anything, "obj-1").Return(object, nil)
	f.diagnostics.On("ListByObject", mock.Anything, "obj-1").
		Return([]*entities.Diagnostic{defectDiagnostic("obj-1")}, nil)
	f.plans.On("LatestDoneByObject", mock.Anything, "obj-1").Return(nil, nil)

	f.provider.On("AssessObject", mock.Anything, mock.MatchedBy(func(req *entities.AssessmentRequest) bool {
		return req.ObjectID == "obj-1" && len(req.Diagnostics) == 1 && req.RiskScore == 40
	})).Return(&entities.RawAssessment{
		HealthStatus:      "OK", // model says OK but the score decides
		UrgencyScore:      scorePtr(72),
		AISummary:         "corrosion progressing",
		RecommendedAction: "replace section",
	}, nil)

	f.objects.On("UpdateAssessment", mock.Anything, "obj-1", mock.MatchedBy(func(a *entities.Assessment) bool {
		return a.UrgencyScore == 72 && a.HealthStatus == entities.HealthStatusCritical && a.HasDefects
	}), mock.Anything).Return(nil)
	f.eventBus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	outcome, err := f.service.AnalyzeObject(ctx, "obj-1")

	require.NoError(t, err)
	assert.False(t, outcome.Skipped)
	require.NotNil(t, outcome.Result)
	assert.Equal(t, entities.HealthStatusCritical, outcome.Result.HealthStatus)
	f.objects.AssertExpectations(t)
	f.provider.AssertExpectations(t)
}

func TestAnalyzeObject_SkipsWithoutDiagnostics(t *testing.T) {
	f := newAnalysisFixture()

	object := &entities.Object{ID: "obj-1"}
	f.objects.On("GetByID", mock.Anything, "obj-1").Return(object, nil)
	f.diagnostics.On("ListByObject", mock.Anything, "obj-1").Return([]*entities.Diagnostic{}, nil)
	f.plans.On("LatestDoneByObject", mock.Anything, "obj-1").Return(nil, nil)

	outcome, err := f.service.AnalyzeObject(context.Background(), "obj-1")

	require.NoError(t, err)
	assert.True(t, outcome.Skipped)
	assert.Equal(t, services.SkipReasonNoDiagnostics, outcome.SkipReason)
	f.provider.AssertNotCalled(t, "AssessObject", mock.Anything, mock.Anything)
}

func TestAnalyzeObject_SkipsWithoutNewDiagnostics(t *testing.T) {
	f := newAnalysisFixture()

	analyzedAt := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	score := 35
	object := &entities.Object{ID: "obj-1", UrgencyScore: &score, LastAnalysisAt: &analyzedAt}

	// The only record predates the last analysis and no plan finished since
	old := defectDiagnostic("obj-1")
	old.InspectionDate = "2024-01-15"
	f.objects.On("GetByID", mock.Anything, "obj-1").Return(object, nil)
	f.diagnostics.On("ListByObject", mock.Anything, "obj-1").Return([]*entities.Diagnostic{old}, nil)
	f.plans.On("LatestDoneByObject", mock.Anything, "obj-1").Return(nil, nil)

	outcome, err := f.service.AnalyzeObject(context.Background(), "obj-1")

	require.NoError(t, err)
	assert.True(t, outcome.Skipped)
	assert.Equal(t, services.SkipReasonNoNewDiagnostics, outcome.SkipReason)
}

func TestAnalyzeObject_CompletedPlanForcesReanalysisAndFloor(t *testing.T) {
	f := newAnalysisFixture()

	analyzedAt := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	prevScore := 80
	object := &entities.Object{ID: "obj-1", UrgencyScore: &prevScore, LastAnalysisAt: &analyzedAt}

	old := defectDiagnostic("obj-1")
	old.InspectionDate = "2024-01-15"
	donePlan := &entities.Plan{
		ID:        "plan-1",
		ObjectID:  "obj-1",
		Status:    entities.PlanStatusDone,
		UpdatedAt: analyzedAt.Add(time.Hour),
	}

	f.objects.On("GetByID", mock.Anything, "obj-1").Return(object, nil)
	f.diagnostics.On("ListByObject", mock.Anything, "obj-1").Return([]*entities.Diagnostic{old}, nil)
	f.plans.On("LatestDoneByObject", mock.Anything, "obj-1").Return(donePlan, nil)

	f.provider.On("AssessObject", mock.Anything, mock.Anything).Return(&entities.RawAssessment{
		HealthStatus: "OK",
		UrgencyScore: scorePtr(10),
	}, nil)

	// round(80 * 0.35) = 28: residual risk survives the completed plan
	f.objects.On("UpdateAssessment", mock.Anything, "obj-1", mock.MatchedBy(func(a *entities.Assessment) bool {
		return a.UrgencyScore == 28 && a.HealthStatus == entities.HealthStatusWarning
	}), mock.Anything).Return(nil)
	f.eventBus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	outcome, err := f.service.AnalyzeObject(context.Background(), "obj-1")

	require.NoError(t, err)
	assert.Equal(t, 28, outcome.Result.UrgencyScore)
	f.objects.AssertExpectations(t)
}

func TestAnalyzeObject_ProviderFailureWritesNothing(t *testing.T) {
	f := newAnalysisFixture()

	object := &entities.Object{ID: "obj-1"}
	f.objects.On("GetByID", mock.Anything, "obj-1").Return(object, nil)
	f.diagnostics.On("ListByObject", mock.Anything, "obj-1").
		Return([]*entities.Diagnostic{defectDiagnostic("obj-1")}, nil)
	f.plans.On("LatestDoneByObject", mock.Anything, "obj-1").Return(nil, nil)
	f.provider.On("AssessObject", mock.Anything, mock.Anything).
		Return(nil, apperrors.NewUpstreamError("gemini response missing candidate text", nil))

	outcome, err := f.service.AnalyzeObject(context.Background(), "obj-1")

	require.Error(t, err)
	assert.Nil(t, outcome)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUpstream))
	f.objects.AssertNotCalled(t, "UpdateAssessment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAnalyzeObject_ConcurrentCallConflicts(t *testing.T) {
	f := newAnalysisFixture()

	object := &entities.Object{ID: "obj-1"}
	f.objects.On("GetByID", mock.Anything, "obj-1").Return(object, nil)
	f.diagnostics.On("ListByObject", mock.Anything, "obj-1").
		Return([]*entities.Diagnostic{defectDiagnostic("obj-1")}, nil)
	f.plans.On("LatestDoneByObject", mock.Anything, "obj-1").Return(nil, nil)

	entered := make(chan struct{})
	proceed := make(chan struct{})
	f.provider.On("AssessObject", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			close(entered)
			<-proceed
		}).
		Return(&entities.RawAssessment{HealthStatus: "OK", UrgencyScore: scorePtr(5)}, nil)
	f.objects.On("UpdateAssessment", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.eventBus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	firstDone := make(chan error, 1)
	go func() {
		_, err := f.service.AnalyzeObject(context.Background(), "obj-1")
		firstDone <- err
	}()

	<-entered
	_, err := f.service.AnalyzeObject(context.Background(), "obj-1")
	close(proceed)

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
	require.NoError(t, <-firstDone)
}

func TestAnalyzeBatch_ChunkFailureDegradesPerObject(t *testing.T) {
	f := newAnalysisFixture()

	// 12 objects: the first chunk of 10 fails at the model, the second
	// chunk of 2 succeeds.
	var ids []string
	var objects []*entities.Object
	diagnostics := make(map[string][]*entities.Diagnostic)
	for i := 0; i < 12; i++ {
		id := fmt.Sprintf("obj-%02d", i)
		ids = append(ids, id)
		objects = append(objects, &entities.Object{ID: id})
		diagnostics[id] = []*entities.Diagnostic{defectDiagnostic(id)}
	}

	f.objects.On("GetByIDs", mock.Anything, ids).Return(objects, nil)
	f.diagnostics.On("ListByObjects", mock.Anything, ids).Return(diagnostics, nil)
	f.plans.On("LatestDoneByObject", mock.Anything, mock.Anything).Return(nil, nil)

	f.provider.On("AssessObjects", mock.Anything, mock.MatchedBy(func(reqs []*entities.AssessmentRequest) bool {
		return len(reqs) == 10
	})).Return(nil, apperrors.NewUpstreamError("failed to parse gemini batch response", nil))

	secondChunk := map[string]*entities.RawAssessment{
		"obj-10": {HealthStatus: "WARNING", UrgencyScore: scorePtr(40)},
		"obj-11": {HealthStatus: "OK", UrgencyScore: scorePtr(5)},
	}
	f.provider.On("AssessObjects", mock.Anything, mock.MatchedBy(func(reqs []*entities.AssessmentRequest) bool {
		return len(reqs) == 2
	})).Return(secondChunk, nil)

	f.objects.On("UpdateAssessment", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.eventBus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	result, err := f.service.AnalyzeBatch(context.Background(), ids)

	require.NoError(t, err)
	assert.Len(t, result.Errors, 10)
	assert.Len(t, result.Results, 2)
	assert.Empty(t, result.Skipped)
}

func TestAnalyzeBatch_ReportsMissingObjectsAndSkips(t *testing.T) {
	f := newAnalysisFixture()

	ids := []string{"obj-1", "obj-missing", "obj-empty"}
	objects := []*entities.Object{
		{ID: "obj-1"},
		{ID: "obj-empty"},
	}
	diagnostics := map[string][]*entities.Diagnostic{
		"obj-1": {defectDiagnostic("obj-1")},
	}

	f.objects.On("GetByIDs", mock.Anything, ids).Return(objects, nil)
	f.diagnostics.On("ListByObjects", mock.Anything, ids).Return(diagnostics, nil)
	f.plans.On("LatestDoneByObject", mock.Anything, mock.Anything).Return(nil, nil)

	f.provider.On("AssessObjects", mock.Anything, mock.MatchedBy(func(reqs []*entities.AssessmentRequest) bool {
		return len(reqs) == 1 && reqs[0].ObjectID == "obj-1"
	})).Return(map[string]*entities.RawAssessment{
		"obj-1": {HealthStatus: "OK", UrgencyScore: scorePtr(20)},
	}, nil)

	f.objects.On("UpdateAssessment", mock.Anything, "obj-1", mock.Anything, mock.Anything).Return(nil)
	f.eventBus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	result, err := f.service.AnalyzeBatch(context.Background(), ids)

	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "obj-missing", result.Errors[0].ObjectID)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "obj-empty", result.Skipped[0].ObjectID)
	assert.Equal(t, services.SkipReasonNoDiagnostics, result.Skipped[0].SkipReason)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "obj-1", result.Results[0].ObjectID)
}

func TestAnalyzeBatch_EmptyInput(t *testing.T) {
	f := newAnalysisFixture()

	result, err := f.service.AnalyzeBatch(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, result.Results)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Skipped)
}

func TestBuildPriorityQueue_FiltersAndOrders(t *testing.T) {
	f := newAnalysisFixture()

	objects := []*entities.Object{
		{ID: "obj-high"},
		{ID: "obj-low"},
		{ID: "obj-empty"},
	}
	diagnostics := map[string][]*entities.Diagnostic{
		"obj-high": {{ObjectID: "obj-high", Method: entities.MethodMFL, DefectFound: true, QualityGrade: entities.GradeUnacceptable}},
		"obj-low":  {{ObjectID: "obj-low", Method: entities.MethodVIK, QualityGrade: entities.GradeAcceptable}},
	}

	f.objects.On("GetByIDs", mock.Anything, []string{"obj-high", "obj-low", "obj-empty"}).Return(objects, nil)
	f.diagnostics.On("ListByObjects", mock.Anything, mock.Anything).Return(diagnostics, nil)

	queue, err := f.service.BuildPriorityQueue(context.Background(), []string{"obj-high", "obj-low", "obj-empty"}, false)

	require.NoError(t, err)
	assert.Equal(t, []string{"obj-high", "obj-low"}, queue)
}

func TestBuildPriorityQueue_HighRiskOnly(t *testing.T) {
	f := newAnalysisFixture()

	objects := []*entities.Object{
		{ID: "obj-high"},
		{ID: "obj-low"},
	}
	diagnostics := map[string][]*entities.Diagnostic{
		"obj-high": {{ObjectID: "obj-high", Method: entities.MethodMFL, DefectFound: true, QualityGrade: entities.GradeUnacceptable}},
		"obj-low":  {{ObjectID: "obj-low", Method: entities.MethodVIK, QualityGrade: entities.GradeAcceptable}},
	}

	f.objects.On("List", mock.Anything, mock.Anything).Return(objects, nil)
	f.diagnostics.On("ListByObjects", mock.Anything, mock.Anything).Return(diagnostics, nil)

	queue, err := f.service.BuildPriorityQueue(context.Background(), nil, true)

	require.NoError(t, err)
	assert.Equal(t, []string{"obj-high"}, queue)
}

func TestBuildPriorityQueue_ExcludesAnalyzedWithoutNewRecords(t *testing.T) {
	f := newAnalysisFixture()

	analyzedAt := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	score := 50
	stale := &entities.Object{ID: "obj-stale", UrgencyScore: &score, LastAnalysisAt: &analyzedAt}

	old := defectDiagnostic("obj-stale")
	old.InspectionDate = "2024-01-15"

	f.objects.On("GetByIDs", mock.Anything, []string{"obj-stale"}).
		Return([]*entities.Object{stale}, nil)
	f.diagnostics.On("ListByObjects", mock.Anything, mock.Anything).
		Return(map[string][]*entities.Diagnostic{"obj-stale": {old}}, nil)

	queue, err := f.service.BuildPriorityQueue(context.Background(), []string{"obj-stale"}, false)

	require.NoError(t, err)
	assert.Empty(t, queue)
}

func TestFindReanalysisCandidates(t *testing.T) {
	f := newAnalysisFixture()

	analyzedAt := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	object := &entities.Object{ID: "obj-1", Name: "Compressor 12", LastAnalysisAt: &analyzedAt, UpdatedAt: analyzedAt}
	plan := &entities.Plan{
		ID:        "plan-1",
		ObjectID:  "obj-1",
		Status:    entities.PlanStatusDone,
		UpdatedAt: analyzedAt.Add(2 * time.Hour),
	}

	f.plans.On("ListByStatus", mock.Anything, entities.PlanStatusDone).
		Return([]*entities.Plan{plan}, nil)
	f.objects.On("GetByIDs", mock.Anything, []string{"obj-1"}).
		Return([]*entities.Object{object}, nil)

	candidates, err := f.service.FindReanalysisCandidates(context.Background())

	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "obj-1", candidates[0].ObjectID)
	assert.Equal(t, "plan-1", candidates[0].PlanID)
}
