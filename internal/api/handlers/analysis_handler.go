package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dkazakov/pipesentry/internal/analysis"
	"github.com/dkazakov/pipesentry/internal/application/services"
)

// AnalysisService is the slice of the analysis service the handler needs
type AnalysisService interface {
	AnalyzeObject(ctx context.Context, objectID string) (*services.AnalyzeOutcome, error)
	AnalyzeBatch(ctx context.Context, objectIDs []string) (*services.BatchResult, error)
	BuildPriorityQueue(ctx context.Context, objectIDs []string, highRiskOnly bool) ([]string, error)
	FindReanalysisCandidates(ctx context.Context) ([]analysis.ReanalysisCandidate, error)
}

// AnalysisHandler handles AI analysis HTTP requests
type AnalysisHandler struct {
	service AnalysisService
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(service AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{
		service: service,
	}
}

// AnalyzeObject handles POST /api/analyze
func (h *AnalysisHandler) AnalyzeObject(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ObjectID string `json:"object_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.ObjectID == "" {
		respondWithError(w, http.StatusBadRequest, "object_id is required")
		return
	}

	outcome, err := h.service.AnalyzeObject(r.Context(), body.ObjectID)
	if err != nil {
		respondWithAppError(w, err, "analysis failed")
		return
	}

	response := map[string]interface{}{
		"success":   true,
		"object_id": outcome.ObjectID,
	}
	if outcome.Skipped {
		response["skipped"] = true
		response["reason"] = outcome.SkipReason
	} else {
		response["result"] = outcome.Result
	}

	respondWithJSON(w, http.StatusOK, response)
}

// AnalyzeBatch handles PATCH /api/analyze
func (h *AnalysisHandler) AnalyzeBatch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ObjectIDs []string `json:"object_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(body.ObjectIDs) == 0 {
		respondWithError(w, http.StatusBadRequest, "object_ids is required")
		return
	}

	result, err := h.service.AnalyzeBatch(r.Context(), body.ObjectIDs)
	if err != nil {
		respondWithAppError(w, err, "batch analysis failed")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"results": result.Results,
		"skipped": result.Skipped,
		"errors":  result.Errors,
	})
}

// BuildPriorityQueue handles PUT /api/analyze
func (h *AnalysisHandler) BuildPriorityQueue(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ObjectIDs          []string `json:"object_ids"`
		PrioritizeHighRisk bool     `json:"prioritize_high_risk"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	queue, err := h.service.BuildPriorityQueue(r.Context(), body.ObjectIDs, body.PrioritizeHighRisk)
	if err != nil {
		respondWithAppError(w, err, "failed to build priority queue")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"total":      len(queue),
		"object_ids": queue,
	})
}

// GetReanalysisCandidates handles GET /api/analyze/reanalysis
func (h *AnalysisHandler) GetReanalysisCandidates(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.service.FindReanalysisCandidates(r.Context())
	if err != nil {
		respondWithAppError(w, err, "failed to find reanalysis candidates")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"items":   candidates,
		"count":   len(candidates),
	})
}
