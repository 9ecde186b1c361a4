package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkazakov/pipesentry/internal/analysis"
	"github.com/dkazakov/pipesentry/internal/domain/entities"
	"github.com/dkazakov/pipesentry/internal/domain/providers"
	"github.com/dkazakov/pipesentry/internal/domain/repositories"
	apperrors "github.com/dkazakov/pipesentry/pkg/errors"
)

// Skip reason codes reported to the caller. Skips are not errors.
const (
	SkipReasonNoDiagnostics    = "no_diagnostics"
	SkipReasonNoNewDiagnostics = "no_new_diagnostics"
)

// Batch assessments go to the model in chunks so one unparsable chunk
// response costs at most this many objects.
const defaultBatchChunkSize = 10

// AnalyzeOutcome is the per-object result of an analysis run
type AnalyzeOutcome struct {
	ObjectID   string               `json:"object_id"`
	Skipped    bool                 `json:"skipped,omitempty"`
	SkipReason string               `json:"reason,omitempty"`
	Result     *entities.Assessment `json:"result,omitempty"`
}

// BatchError reports one object that failed inside a batch run
type BatchError struct {
	ObjectID string `json:"object_id"`
	Error    string `json:"error"`
}

// BatchResult aggregates a batch analysis run
type BatchResult struct {
	Results []*AnalyzeOutcome `json:"results"`
	Skipped []*AnalyzeOutcome `json:"skipped"`
	Errors  []BatchError      `json:"errors"`
}

// AnalysisService orchestrates risk scoring, the AI assessment call and
// the write-back of reconciled results.
type AnalysisService struct {
	objects     repositories.ObjectRepository
	diagnostics repositories.DiagnosticRepository
	plans       repositories.PlanRepository
	provider    providers.AssessmentProvider
	eventBus    providers.EventBus

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(
	objects repositories.ObjectRepository,
	diagnostics repositories.DiagnosticRepository,
	plans repositories.PlanRepository,
	provider providers.AssessmentProvider,
	eventBus providers.EventBus,
) *AnalysisService {
	return &AnalysisService{
		objects:     objects,
		diagnostics: diagnostics,
		plans:       plans,
		provider:    provider,
		eventBus:    eventBus,
		inFlight:    make(map[string]struct{}),
	}
}

// AnalyzeObject runs the full analysis pipeline for one object. A
// second call for the same object while one is in flight is rejected
// with a conflict error rather than racing on the write-back.
func (s *AnalysisService) AnalyzeObject(ctx context.Context, objectID string) (*AnalyzeOutcome, error) {
	if !s.acquire(objectID) {
		return nil, apperrors.NewConflictError(fmt.Sprintf("analysis already in progress for object %s", objectID))
	}
	defer s.release(objectID)

	object, err := s.objects.GetByID(ctx, objectID)
	if err != nil {
		return nil, err
	}

	diagnostics, err := s.diagnostics.ListByObject(ctx, objectID)
	if err != nil {
		return nil, err
	}

	planCompleted, err := s.planCompletedSince(ctx, object)
	if err != nil {
		return nil, err
	}

	if reason, skip := skipReason(object, diagnostics, planCompleted); skip {
		return &AnalyzeOutcome{ObjectID: objectID, Skipped: true, SkipReason: reason}, nil
	}

	request := buildAssessmentRequest(object, diagnostics)

	raw, err := s.provider.AssessObject(ctx, request)
	if err != nil {
		return nil, err
	}

	assessment, err := analysis.Reconcile(analysis.ReconcileInput{
		Raw:              raw,
		PreviousScore:    object.UrgencyScore,
		PlanCompleted:    planCompleted,
		Diagnostics:      diagnostics,
		ConflictDetected: request.ConflictDetected,
	})
	if err != nil {
		return nil, err
	}

	analyzedAt := time.Now()
	if err := s.objects.UpdateAssessment(ctx, objectID, assessment, analyzedAt); err != nil {
		return nil, err
	}

	s.publishAnalysisEvent(ctx, objectID, assessment)

	log.Info().
		Str("object_id", objectID).
		Int("urgency_score", assessment.UrgencyScore).
		Str("health_status", string(assessment.HealthStatus)).
		Bool("conflict", assessment.ConflictDetected).
		Msg("Object analyzed")

	return &AnalyzeOutcome{ObjectID: objectID, Result: assessment}, nil
}

// AnalyzeBatch analyzes a set of objects. The model is called once per
// chunk of objects; a failed chunk call is reported per-object in the
// errors list and the remaining chunks still run.
func (s *AnalysisService) AnalyzeBatch(ctx context.Context, objectIDs []string) (*BatchResult, error) {
	result := &BatchResult{
		Results: []*AnalyzeOutcome{},
		Skipped: []*AnalyzeOutcome{},
		Errors:  []BatchError{},
	}
	if len(objectIDs) == 0 {
		return result, nil
	}

	objects, err := s.objects.GetByIDs(ctx, objectIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*entities.Object, len(objects))
	for _, obj := range objects {
		byID[obj.ID] = obj
	}

	diagnosticsByObject, err := s.diagnostics.ListByObjects(ctx, objectIDs)
	if err != nil {
		return nil, err
	}

	// Decide skips and build the work list up front, preserving the
	// caller's ordering.
	type workItem struct {
		object        *entities.Object
		diagnostics   []*entities.Diagnostic
		planCompleted bool
		request       *entities.AssessmentRequest
	}
	var work []workItem

	for _, id := range objectIDs {
		object, ok := byID[id]
		if !ok {
			result.Errors = append(result.Errors, BatchError{ObjectID: id, Error: "object not found"})
			continue
		}

		if !s.acquire(id) {
			result.Errors = append(result.Errors, BatchError{ObjectID: id, Error: "analysis already in progress"})
			continue
		}

		diagnostics := diagnosticsByObject[id]
		planCompleted, err := s.planCompletedSince(ctx, object)
		if err != nil {
			s.release(id)
			result.Errors = append(result.Errors, BatchError{ObjectID: id, Error: err.Error()})
			continue
		}

		if reason, skip := skipReason(object, diagnostics, planCompleted); skip {
			s.release(id)
			result.Skipped = append(result.Skipped, &AnalyzeOutcome{ObjectID: id, Skipped: true, SkipReason: reason})
			continue
		}

		work = append(work, workItem{
			object:        object,
			diagnostics:   diagnostics,
			planCompleted: planCompleted,
			request:       buildAssessmentRequest(object, diagnostics),
		})
	}

	defer func() {
		for _, item := range work {
			s.release(item.object.ID)
		}
	}()

	for start := 0; start < len(work); start += defaultBatchChunkSize {
		end := start + defaultBatchChunkSize
		if end > len(work) {
			end = len(work)
		}
		chunk := work[start:end]

		if err := ctx.Err(); err != nil {
			for _, item := range chunk {
				result.Errors = append(result.Errors, BatchError{ObjectID: item.object.ID, Error: err.Error()})
			}
			continue
		}

		requests := make([]*entities.AssessmentRequest, len(chunk))
		for i, item := range chunk {
			requests[i] = item.request
		}

		raws, err := s.provider.AssessObjects(ctx, requests)
		if err != nil {
			log.Warn().Err(err).Int("chunk_size", len(chunk)).Msg("Batch assessment chunk failed")
			for _, item := range chunk {
				result.Errors = append(result.Errors, BatchError{ObjectID: item.object.ID, Error: err.Error()})
			}
			continue
		}

		for _, item := range chunk {
			id := item.object.ID
			raw, ok := raws[id]
			if !ok {
				result.Errors = append(result.Errors, BatchError{ObjectID: id, Error: "missing assessment in batch response"})
				continue
			}

			assessment, err := analysis.Reconcile(analysis.ReconcileInput{
				Raw:              raw,
				PreviousScore:    item.object.UrgencyScore,
				PlanCompleted:    item.planCompleted,
				Diagnostics:      item.diagnostics,
				ConflictDetected: item.request.ConflictDetected,
			})
			if err != nil {
				result.Errors = append(result.Errors, BatchError{ObjectID: id, Error: err.Error()})
				continue
			}

			if err := s.objects.UpdateAssessment(ctx, id, assessment, time.Now()); err != nil {
				log.Error().Err(err).Str("object_id", id).Msg("Failed to write assessment")
				result.Errors = append(result.Errors, BatchError{ObjectID: id, Error: err.Error()})
				continue
			}

			s.publishAnalysisEvent(ctx, id, assessment)
			result.Results = append(result.Results, &AnalyzeOutcome{ObjectID: id, Result: assessment})
		}
	}

	return result, nil
}

// BuildPriorityQueue orders objects for analysis, highest risk first.
// Objects with no diagnostics are excluded, as are already-analyzed
// objects with nothing newer than their last analysis.
func (s *AnalysisService) BuildPriorityQueue(ctx context.Context, objectIDs []string, highRiskOnly bool) ([]string, error) {
	var objects []*entities.Object
	var err error

	if len(objectIDs) > 0 {
		objects, err = s.objects.GetByIDs(ctx, objectIDs)
	} else {
		objects, err = s.objects.List(ctx, repositories.ObjectFilter{})
	}
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(objects))
	for i, obj := range objects {
		ids[i] = obj.ID
	}

	diagnosticsByObject, err := s.diagnostics.ListByObjects(ctx, ids)
	if err != nil {
		return nil, err
	}

	eligible := make([]*entities.Object, 0, len(objects))
	for _, obj := range objects {
		diagnostics := diagnosticsByObject[obj.ID]
		if len(diagnostics) == 0 {
			continue
		}
		if obj.Analyzed() && !hasNewDiagnostics(obj, diagnostics) {
			continue
		}
		eligible = append(eligible, obj)
	}

	return analysis.BuildQueue(eligible, diagnosticsByObject, analysis.QueueOptions{
		HighRiskOnly: highRiskOnly,
	}), nil
}

// FindReanalysisCandidates returns objects whose most recent completed
// plan finished after their last analysis.
func (s *AnalysisService) FindReanalysisCandidates(ctx context.Context) ([]analysis.ReanalysisCandidate, error) {
	donePlans, err := s.plans.ListByStatus(ctx, entities.PlanStatusDone)
	if err != nil {
		return nil, err
	}
	if len(donePlans) == 0 {
		return []analysis.ReanalysisCandidate{}, nil
	}

	seen := make(map[string]struct{}, len(donePlans))
	var ids []string
	for _, plan := range donePlans {
		if _, ok := seen[plan.ObjectID]; ok {
			continue
		}
		seen[plan.ObjectID] = struct{}{}
		ids = append(ids, plan.ObjectID)
	}

	objects, err := s.objects.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*entities.Object, len(objects))
	for _, obj := range objects {
		byID[obj.ID] = obj
	}

	return analysis.FindReanalysisCandidates(donePlans, byID), nil
}

func (s *AnalysisService) acquire(objectID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[objectID]; busy {
		return false
	}
	s.inFlight[objectID] = struct{}{}
	return true
}

func (s *AnalysisService) release(objectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, objectID)
}

func (s *AnalysisService) planCompletedSince(ctx context.Context, object *entities.Object) (bool, error) {
	plan, err := s.plans.LatestDoneByObject(ctx, object.ID)
	if err != nil {
		return false, err
	}
	if plan == nil {
		return false, nil
	}
	if object.LastAnalysisAt == nil {
		return true, nil
	}
	return plan.UpdatedAt.After(*object.LastAnalysisAt), nil
}

func (s *AnalysisService) publishAnalysisEvent(ctx context.Context, objectID string, assessment *entities.Assessment) {
	if s.eventBus == nil {
		return
	}

	event := entities.NewObjectEvent(objectID, entities.ObjectEventTypeAnalysisUpdate, map[string]interface{}{
		"health_status": assessment.HealthStatus,
		"urgency_score": assessment.UrgencyScore,
		"risk_level":    analysis.RiskLevelFor(assessment.UrgencyScore),
	})

	if err := s.eventBus.Publish(ctx, providers.GlobalObjectChannel, event); err != nil {
		log.Warn().Err(err).Str("object_id", objectID).Msg("Failed to publish analysis event")
	}
	if err := s.eventBus.Publish(ctx, providers.GetObjectChannel(objectID), event); err != nil {
		log.Warn().Err(err).Str("object_id", objectID).Msg("Failed to publish per-object analysis event")
	}
}

func skipReason(object *entities.Object, diagnostics []*entities.Diagnostic, planCompleted bool) (string, bool) {
	if len(diagnostics) == 0 {
		return SkipReasonNoDiagnostics, true
	}
	if object.Analyzed() && !hasNewDiagnostics(object, diagnostics) && !planCompleted {
		return SkipReasonNoNewDiagnostics, true
	}
	return "", false
}

func hasNewDiagnostics(object *entities.Object, diagnostics []*entities.Diagnostic) bool {
	if object.LastAnalysisAt == nil {
		return true
	}
	for _, d := range diagnostics {
		if d.EffectiveTime().After(*object.LastAnalysisAt) {
			return true
		}
	}
	return false
}

func buildAssessmentRequest(object *entities.Object, diagnostics []*entities.Diagnostic) *entities.AssessmentRequest {
	request := &entities.AssessmentRequest{
		ObjectID:         object.ID,
		ObjectName:       object.Name,
		ObjectType:       object.Type,
		Material:         object.Material,
		InstallYear:      object.InstallYear,
		RiskScore:        analysis.RiskScore(diagnostics),
		ConflictDetected: analysis.DetectConflict(diagnostics),
		Diagnostics:      make([]entities.AssessmentDiagnostic, 0, len(diagnostics)),
	}

	for _, d := range diagnostics {
		request.Diagnostics = append(request.Diagnostics, entities.AssessmentDiagnostic{
			Method:            string(d.Method),
			Date:              d.InspectionDate,
			DefectFound:       d.DefectFound,
			DefectDescription: d.DefectDescription,
			QualityGrade:      string(d.QualityGrade),
			MLLabel:           string(d.MLLabel),
			Params:            d.Params(),
		})
	}

	return request
}
