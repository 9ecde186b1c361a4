package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dkazakov/pipesentry/internal/application/services"
	"github.com/dkazakov/pipesentry/internal/domain/entities"
)

// PlanService is the slice of the plan service the handler needs
type PlanService interface {
	Create(ctx context.Context, input services.CreatePlanInput) (*entities.Plan, error)
	GetByID(ctx context.Context, id string) (*entities.Plan, error)
	ListByObject(ctx context.Context, objectID string) ([]*entities.Plan, error)
	UpdateStatus(ctx context.Context, planID string, next entities.PlanStatus) (*entities.Plan, error)
	ToggleAction(ctx context.Context, actionID string, done bool) (*entities.PlanAction, error)
}

// PlanHandler handles remediation plan HTTP requests
type PlanHandler struct {
	service PlanService
}

// NewPlanHandler creates a new plan handler
func NewPlanHandler(service PlanService) *PlanHandler {
	return &PlanHandler{
		service: service,
	}
}

// CreatePlan handles POST /api/objects/{id}/plans
func (h *PlanHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	objectID := r.PathValue("id")
	if objectID == "" {
		respondWithError(w, http.StatusBadRequest, "object ID is required")
		return
	}

	var body struct {
		DiagnosticID *string  `json:"diagnostic_id"`
		Problem      string   `json:"problem"`
		Actions      []string `json:"actions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	plan, err := h.service.Create(r.Context(), services.CreatePlanInput{
		ObjectID:     objectID,
		DiagnosticID: body.DiagnosticID,
		Problem:      body.Problem,
		Actions:      body.Actions,
	})
	if err != nil {
		respondWithAppError(w, err, "failed to create plan")
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"plan":    plan,
	})
}

// ListObjectPlans handles GET /api/objects/{id}/plans
func (h *PlanHandler) ListObjectPlans(w http.ResponseWriter, r *http.Request) {
	objectID := r.PathValue("id")
	if objectID == "" {
		respondWithError(w, http.StatusBadRequest, "object ID is required")
		return
	}

	plans, err := h.service.ListByObject(r.Context(), objectID)
	if err != nil {
		respondWithAppError(w, err, "failed to list plans")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"plans":   plans,
		"count":   len(plans),
	})
}

// GetPlan handles GET /api/plans/{id}
func (h *PlanHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	planID := r.PathValue("id")
	if planID == "" {
		respondWithError(w, http.StatusBadRequest, "plan ID is required")
		return
	}

	plan, err := h.service.GetByID(r.Context(), planID)
	if err != nil {
		respondWithAppError(w, err, "failed to get plan")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"plan":    plan,
	})
}

// UpdatePlanStatus handles PATCH /api/plans/{id}/status
func (h *PlanHandler) UpdatePlanStatus(w http.ResponseWriter, r *http.Request) {
	planID := r.PathValue("id")
	if planID == "" {
		respondWithError(w, http.StatusBadRequest, "plan ID is required")
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status, ok := entities.ParsePlanStatus(body.Status)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "status must be created, pending, done or archive")
		return
	}

	plan, err := h.service.UpdateStatus(r.Context(), planID, status)
	if err != nil {
		respondWithAppError(w, err, "failed to update plan status")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"plan":    plan,
	})
}

// ToggleAction handles PATCH /api/plans/{id}/actions/{actionId}
func (h *PlanHandler) ToggleAction(w http.ResponseWriter, r *http.Request) {
	actionID := r.PathValue("actionId")
	if actionID == "" {
		respondWithError(w, http.StatusBadRequest, "action ID is required")
		return
	}

	var body struct {
		Done bool `json:"done"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	action, err := h.service.ToggleAction(r.Context(), actionID, body.Done)
	if err != nil {
		respondWithAppError(w, err, "failed to update action")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"action":  action,
	})
}
