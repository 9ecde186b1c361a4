package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dkazakov/pipesentry/internal/application/services"
	"github.com/dkazakov/pipesentry/internal/domain/entities"
	"github.com/dkazakov/pipesentry/internal/domain/repositories"
	apperrors "github.com/dkazakov/pipesentry/pkg/errors"
)

// ObjectService is the slice of the object service the handler needs
type ObjectService interface {
	Create(ctx context.Context, input services.CreateObjectInput) (*entities.Object, error)
	GetByID(ctx context.Context, id string) (*entities.Object, error)
	List(ctx context.Context, filter repositories.ObjectFilter) ([]*entities.Object, error)
	Delete(ctx context.Context, id string) error
	Diagnostics(ctx context.Context, objectID string) ([]*entities.Diagnostic, error)
	AddDiagnostic(ctx context.Context, objectID string, input services.CreateDiagnosticInput) (*entities.Diagnostic, error)
	Summary(ctx context.Context) (*services.DashboardSummary, error)
}

// ObjectHandler handles object-related HTTP requests
type ObjectHandler struct {
	objects ObjectService
}

// NewObjectHandler creates a new object handler
func NewObjectHandler(objects ObjectService) *ObjectHandler {
	return &ObjectHandler{
		objects: objects,
	}
}

// ListObjects handles GET /api/objects
func (h *ObjectHandler) ListObjects(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := repositories.ObjectFilter{
		Type:         query.Get("type"),
		HealthStatus: query.Get("status"),
		Limit:        parseQueryInt(query.Get("limit"), 100),
		Offset:       parseQueryInt(query.Get("offset"), 0),
	}

	objects, err := h.objects.List(r.Context(), filter)
	if err != nil {
		respondWithAppError(w, err, "failed to list objects")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"objects": objects,
		"count":   len(objects),
	})
}

// GetObject handles GET /api/objects/{id}
func (h *ObjectHandler) GetObject(w http.ResponseWriter, r *http.Request) {
	objectID := r.PathValue("id")
	if objectID == "" {
		respondWithError(w, http.StatusBadRequest, "object ID is required")
		return
	}

	object, err := h.objects.GetByID(r.Context(), objectID)
	if err != nil {
		respondWithAppError(w, err, "failed to get object")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"object":  object,
	})
}

// CreateObject handles POST /api/objects
func (h *ObjectHandler) CreateObject(w http.ResponseWriter, r *http.Request) {
	var input services.CreateObjectInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	object, err := h.objects.Create(r.Context(), input)
	if err != nil {
		respondWithAppError(w, err, "failed to create object")
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"object":  object,
	})
}

// DeleteObject handles DELETE /api/objects/{id}
func (h *ObjectHandler) DeleteObject(w http.ResponseWriter, r *http.Request) {
	objectID := r.PathValue("id")
	if objectID == "" {
		respondWithError(w, http.StatusBadRequest, "object ID is required")
		return
	}

	if err := h.objects.Delete(r.Context(), objectID); err != nil {
		respondWithAppError(w, err, "failed to delete object")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}

// GetObjectDiagnostics handles GET /api/objects/{id}/diagnostics
func (h *ObjectHandler) GetObjectDiagnostics(w http.ResponseWriter, r *http.Request) {
	objectID := r.PathValue("id")
	if objectID == "" {
		respondWithError(w, http.StatusBadRequest, "object ID is required")
		return
	}

	diagnostics, err := h.objects.Diagnostics(r.Context(), objectID)
	if err != nil {
		respondWithAppError(w, err, "failed to list diagnostics")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"diagnostics": diagnostics,
		"count":       len(diagnostics),
	})
}

// CreateDiagnostic handles POST /api/objects/{id}/diagnostics
func (h *ObjectHandler) CreateDiagnostic(w http.ResponseWriter, r *http.Request) {
	objectID := r.PathValue("id")
	if objectID == "" {
		respondWithError(w, http.StatusBadRequest, "object ID is required")
		return
	}

	var input services.CreateDiagnosticInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	diagnostic, err := h.objects.AddDiagnostic(r.Context(), objectID, input)
	if err != nil {
		respondWithAppError(w, err, "failed to record diagnostic")
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"success":    true,
		"diagnostic": diagnostic,
	})
}

// GetDashboardSummary handles GET /api/dashboard/summary
func (h *ObjectHandler) GetDashboardSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.objects.Summary(r.Context())
	if err != nil {
		respondWithAppError(w, err, "failed to build summary")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"summary": summary,
	})
}

func parseQueryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

// Helper functions
func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// respondWithAppError maps an application error onto an HTTP status
func respondWithAppError(w http.ResponseWriter, err error, fallback string) {
	if appErr, ok := err.(*apperrors.AppError); ok {
		switch appErr.Type {
		case apperrors.ErrorTypeValidation:
			respondWithError(w, http.StatusBadRequest, appErr.Message)
		case apperrors.ErrorTypeNotFound:
			respondWithError(w, http.StatusNotFound, appErr.Message)
		case apperrors.ErrorTypeConflict:
			respondWithError(w, http.StatusConflict, appErr.Message)
		case apperrors.ErrorTypeUnauthorized:
			respondWithError(w, http.StatusUnauthorized, appErr.Message)
		default:
			respondWithError(w, http.StatusInternalServerError, appErr.Message)
		}
		return
	}
	respondWithError(w, http.StatusInternalServerError, fallback)
}
