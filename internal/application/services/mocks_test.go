package services_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/dkazakov/pipesentry/internal/domain/entities"
	"github.com/dkazakov/pipesentry/internal/domain/repositories"
)

// Hand-rolled testify mocks for the repository and provider interfaces
// used by the services.

type MockObjectRepository struct {
	mock.Mock
}

func (m *MockObjectRepository) Create(ctx context.Context, object *entities.Object) error {
	return m.Called(ctx, object).Error(0)
}

func (m *MockObjectRepository) GetByID(ctx context.Context, id string) (*entities.Object, error) {
	args := m.Called(ctx, id)
	if obj := args.Get(0); obj != nil {
		return obj.(*entities.Object), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockObjectRepository) GetByIDs(ctx context.Context, ids []string) ([]*entities.Object, error) {
	args := m.Called(ctx, ids)
	if objs := args.Get(0); objs != nil {
		return objs.([]*entities.Object), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockObjectRepository) List(ctx context.Context, filter repositories.ObjectFilter) ([]*entities.Object, error) {
	args := m.Called(ctx, filter)
	if objs := args.Get(0); objs != nil {
		return objs.([]*entities.Object), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockObjectRepository) Update(ctx context.Context, object *entities.Object) error {
	return m.Called(ctx, object).Error(0)
}

func (m *MockObjectRepository) UpdateAssessment(ctx context.Context, id string, assessment *entities.Assessment, analyzedAt time.Time) error {
	return m.Called(ctx, id, assessment, analyzedAt).Error(0)
}

func (m *MockObjectRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockObjectRepository) CountByHealthStatus(ctx context.Context) (map[string]int, error) {
	args := m.Called(ctx)
	if counts := args.Get(0); counts != nil {
		return counts.(map[string]int), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockDiagnosticRepository struct {
	mock.Mock
}

func (m *MockDiagnosticRepository) Create(ctx context.Context, diagnostic *entities.Diagnostic) error {
	return m.Called(ctx, diagnostic).Error(0)
}

func (m *MockDiagnosticRepository) CreateBatch(ctx context.Context, diagnostics []*entities.Diagnostic) error {
	return m.Called(ctx, diagnostics).Error(0)
}

func (m *MockDiagnosticRepository) GetByID(ctx context.Context, id string) (*entities.Diagnostic, error) {
	args := m.Called(ctx, id)
	if d := args.Get(0); d != nil {
		return d.(*entities.Diagnostic), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDiagnosticRepository) ListByObject(ctx context.Context, objectID string) ([]*entities.Diagnostic, error) {
	args := m.Called(ctx, objectID)
	if ds := args.Get(0); ds != nil {
		return ds.([]*entities.Diagnostic), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDiagnosticRepository) ListByObjects(ctx context.Context, objectIDs []string) (map[string][]*entities.Diagnostic, error) {
	args := m.Called(ctx, objectIDs)
	if ds := args.Get(0); ds != nil {
		return ds.(map[string][]*entities.Diagnostic), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockPlanRepository struct {
	mock.Mock
}

func (m *MockPlanRepository) Create(ctx context.Context, plan *entities.Plan, actions []*entities.PlanAction) error {
	return m.Called(ctx, plan, actions).Error(0)
}

func (m *MockPlanRepository) GetByID(ctx context.Context, id string) (*entities.Plan, error) {
	args := m.Called(ctx, id)
	if p := args.Get(0); p != nil {
		return p.(*entities.Plan), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPlanRepository) ListByObject(ctx context.Context, objectID string) ([]*entities.Plan, error) {
	args := m.Called(ctx, objectID)
	if ps := args.Get(0); ps != nil {
		return ps.([]*entities.Plan), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPlanRepository) ListByStatus(ctx context.Context, status entities.PlanStatus) ([]*entities.Plan, error) {
	args := m.Called(ctx, status)
	if ps := args.Get(0); ps != nil {
		return ps.([]*entities.Plan), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPlanRepository) LatestDoneByObject(ctx context.Context, objectID string) (*entities.Plan, error) {
	args := m.Called(ctx, objectID)
	if p := args.Get(0); p != nil {
		return p.(*entities.Plan), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPlanRepository) UpdateStatus(ctx context.Context, id string, status entities.PlanStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockPlanRepository) ListActions(ctx context.Context, planID string) ([]*entities.PlanAction, error) {
	args := m.Called(ctx, planID)
	if as := args.Get(0); as != nil {
		return as.([]*entities.PlanAction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPlanRepository) GetAction(ctx context.Context, actionID string) (*entities.PlanAction, error) {
	args := m.Called(ctx, actionID)
	if a := args.Get(0); a != nil {
		return a.(*entities.PlanAction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPlanRepository) UpdateAction(ctx context.Context, actionID string, done bool) error {
	return m.Called(ctx, actionID, done).Error(0)
}

type MockAssessmentProvider struct {
	mock.Mock
}

func (m *MockAssessmentProvider) AssessObject(ctx context.Context, request *entities.AssessmentRequest) (*entities.RawAssessment, error) {
	args := m.Called(ctx, request)
	if raw := args.Get(0); raw != nil {
		return raw.(*entities.RawAssessment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAssessmentProvider) AssessObjects(ctx context.Context, requests []*entities.AssessmentRequest) (map[string]*entities.RawAssessment, error) {
	args := m.Called(ctx, requests)
	if raws := args.Get(0); raws != nil {
		return raws.(map[string]*entities.RawAssessment), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, channel string, event *entities.ObjectEvent) error {
	return m.Called(ctx, channel, event).Error(0)
}

func (m *MockEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.ObjectEvent, error) {
	args := m.Called(ctx, channel)
	if ch := args.Get(0); ch != nil {
		return ch.(chan *entities.ObjectEvent), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEventBus) Close() error {
	return m.Called().Error(0)
}
