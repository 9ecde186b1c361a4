package routes

import (
	"net/http"

	"github.com/dkazakov/pipesentry/internal/api/handlers"
	"github.com/dkazakov/pipesentry/internal/api/middleware"
	"github.com/dkazakov/pipesentry/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	objectHandler   *handlers.ObjectHandler
	analysisHandler *handlers.AnalysisHandler
	planHandler     *handlers.PlanHandler
	importHandler   *handlers.ImportHandler
	sseHandler      *handlers.SSEHandler

	cacheMiddleware *middleware.CacheMiddleware
	metrics         *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	objectHandler *handlers.ObjectHandler,
	analysisHandler *handlers.AnalysisHandler,
	planHandler *handlers.PlanHandler,
	importHandler *handlers.ImportHandler,
	sseHandler *handlers.SSEHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux: http.NewServeMux(),

		objectHandler:   objectHandler,
		analysisHandler: analysisHandler,
		planHandler:     planHandler,
		importHandler:   importHandler,
		sseHandler:      sseHandler,

		cacheMiddleware: cacheMiddleware,
		metrics:         metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Object endpoints
	r.mux.HandleFunc("GET /api/objects", r.objectHandler.ListObjects)
	r.mux.HandleFunc("POST /api/objects", r.objectHandler.CreateObject)
	r.mux.HandleFunc("GET /api/objects/{id}", r.objectHandler.GetObject)
	r.mux.HandleFunc("DELETE /api/objects/{id}", r.objectHandler.DeleteObject)
	r.mux.HandleFunc("GET /api/objects/{id}/diagnostics", r.objectHandler.GetObjectDiagnostics)
	r.mux.HandleFunc("POST /api/objects/{id}/diagnostics", r.objectHandler.CreateDiagnostic)

	// Dashboard endpoints
	r.mux.HandleFunc("GET /api/dashboard/summary", r.objectHandler.GetDashboardSummary)

	// Analysis endpoints
	r.mux.HandleFunc("POST /api/analyze", r.analysisHandler.AnalyzeObject)
	r.mux.HandleFunc("PATCH /api/analyze", r.analysisHandler.AnalyzeBatch)
	r.mux.HandleFunc("PUT /api/analyze", r.analysisHandler.BuildPriorityQueue)
	r.mux.HandleFunc("GET /api/analyze/reanalysis", r.analysisHandler.GetReanalysisCandidates)

	// Plan endpoints
	r.mux.HandleFunc("POST /api/objects/{id}/plans", r.planHandler.CreatePlan)
	r.mux.HandleFunc("GET /api/objects/{id}/plans", r.planHandler.ListObjectPlans)
	r.mux.HandleFunc("GET /api/plans/{id}", r.planHandler.GetPlan)
	r.mux.HandleFunc("PATCH /api/plans/{id}/status", r.planHandler.UpdatePlanStatus)
	r.mux.HandleFunc("PATCH /api/plans/{id}/actions/{actionId}", r.planHandler.ToggleAction)

	// CSV import endpoints
	r.mux.HandleFunc("POST /api/import/objects", r.importHandler.ImportObjects)
	r.mux.HandleFunc("POST /api/import/diagnostics", r.importHandler.ImportDiagnostics)

	// SSE endpoints
	r.mux.HandleFunc("GET /api/stream/objects", r.sseHandler.StreamGlobalUpdates)
	r.mux.HandleFunc("GET /api/stream/objects/{id}", r.sseHandler.StreamObjectUpdates)

	// Apply middleware in reverse order (last middleware wraps first)
	// CORS must be outermost so cached responses also get CORS headers.
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)

	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}

	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.CORSMiddleware(handler)

	return handler
}
