package server

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/jonathan/catalog-agent/internal/observability"
	"github.com/jonathan/catalog-agent/internal/orchestrator"
	"github.com/jonathan/catalog-agent/internal/server/middleware"
	"github.com/jonathan/catalog-agent/internal/types"
)

// AnalysisResponse represents the response for POST /products/{id}/analyses
type AnalysisResponse struct {
	JobID string `json:"job_id"`
}

// ConfigResponse represents the current run configuration
type ConfigResponse struct {
	BrandPersona string   `json:"brand_persona"`
	Providers    []string `json:"providers"`
	Available    []string `json:"available_providers,omitempty"`
}

// handleListProducts lists the whole catalog
func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	list, err := s.catalog.List(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, list)
}

// handleListPublished lists the public catalog
func (s *Server) handleListPublished(w http.ResponseWriter, r *http.Request) {
	list, err := s.catalog.ListPublished(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, list)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := s.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, product)
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req types.CreateProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	product, err := s.catalog.Create(r.Context(), &req)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, product)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.catalog.Delete(r.Context(), id); err != nil {
		s.handleError(w, r, err)
		return
	}
	auditLog(r, "product deleted", "product_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// handleTriggerAnalysis starts an analysis run and answers before it finishes
func (s *Server) handleTriggerAnalysis(w http.ResponseWriter, r *http.Request) {
	jobID, err := s.catalog.TriggerAnalysis(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	auditLog(r, "analysis triggered", "product_id", chi.URLParam(r, "id"), "job_id", jobID)
	w.Header().Set("Location", "/jobs/"+jobID)
	s.jsonResponse(w, http.StatusAccepted, AnalysisResponse{JobID: jobID})
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	product, err := s.catalog.Publish(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	auditLog(r, "product published", "product_id", product.ID)
	s.jsonResponse(w, http.StatusOK, product)
}

func (s *Server) handleUnpublish(w http.ResponseWriter, r *http.Request) {
	product, err := s.catalog.Unpublish(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	auditLog(r, "product unpublished", "product_id", product.ID)
	s.jsonResponse(w, http.StatusOK, product)
}

// handleProductJobs lists the analysis runs of a product, newest first
func (s *Server) handleProductJobs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.catalog.Get(r.Context(), id); err != nil {
		s.handleError(w, r, err)
		return
	}
	history, err := s.orch.History(r.Context(), id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, history)
}

// handleJobStatus reports a job. Unknown jobs answer 404 with status failed.
func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	report := s.orch.Status(r.Context(), chi.URLParam(r, "id"))
	status := http.StatusOK
	if !report.Found {
		status = http.StatusNotFound
	}
	s.jsonResponse(w, status, report)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.orch.Cancel(id) {
		report := s.orch.Status(r.Context(), id)
		if !report.Found {
			s.errorResponse(w, http.StatusNotFound, "job not found")
			return
		}
		s.errorResponse(w, http.StatusConflict, "job is not running")
		return
	}
	auditLog(r, "job cancelled", "job_id", id)
	s.jsonResponse(w, http.StatusAccepted, map[string]string{"job_id": id, "status": "cancelling"})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	resp := ConfigResponse{
		BrandPersona: s.orch.BrandPersona(),
		Providers:    s.orch.Providers(),
	}
	if s.registry != nil {
		resp.Available = s.registry.Names()
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleUpdateConfig replaces the persona and/or the provider order for future runs
func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req types.UpdateConfigRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.handleError(w, r, err)
		return
	}
	if req.BrandPersona == nil && req.Providers == nil {
		s.handleError(w, r, &ErrValidation{Field: "body", Message: "nothing to update"})
		return
	}

	update := orchestrator.ConfigUpdate{BrandPersona: req.BrandPersona}
	if req.Providers != nil {
		if s.registry == nil {
			s.handleError(w, r, &ErrValidation{Field: "providers", Message: "provider changes are not supported"})
			return
		}
		if dup := firstDuplicate(req.Providers); dup != "" {
			s.handleError(w, r, &ErrValidation{Field: "providers", Message: "duplicate provider " + dup})
			return
		}
		providers, err := s.registry.Resolve(req.Providers)
		if err != nil {
			s.handleError(w, r, err)
			return
		}
		update.Providers = providers
	}

	if err := s.orch.UpdateConfig(update); err != nil {
		s.handleError(w, r, err)
		return
	}
	auditLog(r, "run configuration updated", "providers", s.orch.Providers())
	s.handleGetConfig(w, r)
}

// auditLog records an admin action, tagged with the token subject when auth is on.
func auditLog(r *http.Request, msg string, args ...any) {
	logger := observability.FromContext(r.Context())
	if subject, err := middleware.Subject(r); err == nil {
		logger = logger.With("subject", subject)
	}
	logger.Info(msg, args...)
}

func firstDuplicate(names []string) string {
	for i, name := range names {
		if slices.Contains(names[:i], name) {
			return name
		}
	}
	return ""
}

func (s *Server) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	var req types.OpportunityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.handleError(w, r, err)
		return
	}
	result, err := s.orch.FindOpportunities(r.Context(), req.Niche)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleFreshness(w http.ResponseWriter, r *http.Request) {
	result, err := s.orch.CheckFreshness(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}
