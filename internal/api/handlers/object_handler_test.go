package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dkazakov/pipesentry/internal/api/handlers"
	"github.com/dkazakov/pipesentry/internal/application/services"
	"github.com/dkazakov/pipesentry/internal/domain/entities"
	"github.com/dkazakov/pipesentry/internal/domain/repositories"
	apperrors "github.com/dkazakov/pipesentry/pkg/errors"
)

type stubObjectService struct {
	object      *entities.Object
	objects     []*entities.Object
	diagnostics []*entities.Diagnostic
	summary     *services.DashboardSummary
	err         error

	lastFilter repositories.ObjectFilter
	deletedID  string
}

func (s *stubObjectService) Create(ctx context.Context, input services.CreateObjectInput) (*entities.Object, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &entities.Object{ID: "new-id", Name: input.Name, Type: entities.ObjectType(input.Type)}, nil
}

func (s *stubObjectService) GetByID(ctx context.Context, id string) (*entities.Object, error) {
	return s.object, s.err
}

func (s *stubObjectService) List(ctx context.Context, filter repositories.ObjectFilter) ([]*entities.Object, error) {
	s.lastFilter = filter
	return s.objects, s.err
}

func (s *stubObjectService) Delete(ctx context.Context, id string) error {
	s.deletedID = id
	return s.err
}

func (s *stubObjectService) Diagnostics(ctx context.Context, objectID string) ([]*entities.Diagnostic, error) {
	return s.diagnostics, s.err
}

func (s *stubObjectService) AddDiagnostic(ctx context.Context, objectID string, input services.CreateDiagnosticInput) (*entities.Diagnostic, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &entities.Diagnostic{ID: "diag-1", ObjectID: objectID, Method: entities.MethodUZT}, nil
}

func (s *stubObjectService) Summary(ctx context.Context) (*services.DashboardSummary, error) {
	return s.summary, s.err
}

func TestObjectHandler_GetObject(t *testing.T) {
	service := &stubObjectService{object: &entities.Object{ID: "obj-1", Name: "Crane 3"}}
	handler := handlers.NewObjectHandler(service)

	req := httptest.NewRequest("GET", "/api/objects/obj-1", nil)
	req.SetPathValue("id", "obj-1")
	w := httptest.NewRecorder()

	handler.GetObject(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.NotNil(t, body["object"])
}

func TestObjectHandler_GetObject_NotFound(t *testing.T) {
	service := &stubObjectService{err: apperrors.NewNotFoundError("object not found")}
	handler := handlers.NewObjectHandler(service)

	req := httptest.NewRequest("GET", "/api/objects/nope", nil)
	req.SetPathValue("id", "nope")
	w := httptest.NewRecorder()

	handler.GetObject(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestObjectHandler_ListObjects_Filters(t *testing.T) {
	service := &stubObjectService{objects: []*entities.Object{{ID: "obj-1"}, {ID: "obj-2"}}}
	handler := handlers.NewObjectHandler(service)

	req := httptest.NewRequest("GET", "/api/objects?type=crane&status=CRITICAL&limit=10&offset=5", nil)
	w := httptest.NewRecorder()

	handler.ListObjects(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "crane", service.lastFilter.Type)
	assert.Equal(t, "CRITICAL", service.lastFilter.HealthStatus)
	assert.Equal(t, 10, service.lastFilter.Limit)
	assert.Equal(t, 5, service.lastFilter.Offset)

	body := decodeBody(t, w)
	assert.Equal(t, float64(2), body["count"])
}

func TestObjectHandler_CreateObject_Validation(t *testing.T) {
	service := &stubObjectService{err: apperrors.NewValidationError("name is required")}
	handler := handlers.NewObjectHandler(service)

	req := httptest.NewRequest("POST", "/api/objects", strings.NewReader(`{"type":"crane"}`))
	w := httptest.NewRecorder()

	handler.CreateObject(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestObjectHandler_CreateObject_Success(t *testing.T) {
	service := &stubObjectService{}
	handler := handlers.NewObjectHandler(service)

	req := httptest.NewRequest("POST", "/api/objects", strings.NewReader(`{"name":"Crane 3","type":"crane"}`))
	w := httptest.NewRecorder()

	handler.CreateObject(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestObjectHandler_CreateDiagnostic(t *testing.T) {
	service := &stubObjectService{}
	handler := handlers.NewObjectHandler(service)

	body := `{"method":"uzt","inspection_date":"2024-03-01","defect_found":true,"quality_grade":"недопустимо"}`
	req := httptest.NewRequest("POST", "/api/objects/obj-1/diagnostics", strings.NewReader(body))
	req.SetPathValue("id", "obj-1")
	w := httptest.NewRecorder()

	handler.CreateDiagnostic(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, true, resp["success"])
	assert.NotNil(t, resp["diagnostic"])
}

func TestObjectHandler_CreateDiagnostic_UnknownMethod(t *testing.T) {
	service := &stubObjectService{err: apperrors.NewValidationError("unknown diagnostic method")}
	handler := handlers.NewObjectHandler(service)

	req := httptest.NewRequest("POST", "/api/objects/obj-1/diagnostics", strings.NewReader(`{"method":"XRAY"}`))
	req.SetPathValue("id", "obj-1")
	w := httptest.NewRecorder()

	handler.CreateDiagnostic(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestObjectHandler_GetDashboardSummary(t *testing.T) {
	service := &stubObjectService{
		summary: &services.DashboardSummary{
			Total:      5,
			ByStatus:   map[string]int{"OK": 2, "WARNING": 1, "CRITICAL": 1},
			Unanalyzed: 1,
		},
	}
	handler := handlers.NewObjectHandler(service)

	req := httptest.NewRequest("GET", "/api/dashboard/summary", nil)
	w := httptest.NewRecorder()

	handler.GetDashboardSummary(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	summary := body["summary"].(map[string]interface{})
	assert.Equal(t, float64(5), summary["total"])
	assert.Equal(t, float64(1), summary["unanalyzed"])
}
