package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/worksafe/worksafe-backend/internal/whs/repository"
	"github.com/worksafe/worksafe-backend/internal/whs/service"
	"github.com/worksafe/worksafe-backend/pkg/authz"
	"github.com/worksafe/worksafe-backend/pkg/errors"
	"github.com/worksafe/worksafe-backend/pkg/httputil"
	"github.com/worksafe/worksafe-backend/pkg/logger"
)

// ReportIncidentRequest is the payload for reporting an incident
type ReportIncidentRequest struct {
	WorkerID     string  `json:"worker_id" validate:"required,uuid"`
	TeamID       *string `json:"team_id,omitempty" validate:"omitempty,uuid"`
	IncidentDate string  `json:"incident_date" validate:"required"`
	IncidentType string  `json:"incident_type" validate:"required,oneof=transfer accident injury medical_leave other"`
	Description  string  `json:"description" validate:"required"`
	Severity     *string `json:"severity,omitempty" validate:"omitempty,oneof=low medium high critical"`
}

// IncidentHandler handles incident endpoints
type IncidentHandler struct {
	service *service.IncidentService
	logger  *logger.Logger
}

// NewIncidentHandler creates a new incident handler
func NewIncidentHandler(svc *service.IncidentService, log *logger.Logger) *IncidentHandler {
	return &IncidentHandler{
		service: svc,
		logger:  log,
	}
}

// Report records a new incident
func (h *IncidentHandler) Report(w http.ResponseWriter, r *http.Request) {
	if err := authz.Require(httputil.GetUserRole(r.Context()), "incidents.report"); err != nil {
		httputil.Error(w, err)
		return
	}

	var req ReportIncidentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	incidentDate, err := time.Parse(dateFormat, req.IncidentDate)
	if err != nil {
		httputil.Error(w, errors.BadRequest("invalid incident_date format, expected YYYY-MM-DD"))
		return
	}

	incident, err := h.service.Report(r.Context(), service.ReportIncidentInput{
		WorkerID:     req.WorkerID,
		TeamID:       req.TeamID,
		IncidentDate: incidentDate,
		IncidentType: req.IncidentType,
		Description:  req.Description,
		Severity:     req.Severity,
	}, httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, incident)
}

// List lists incidents with filters
func (h *IncidentHandler) List(w http.ResponseWriter, r *http.Request) {
	role := httputil.GetUserRole(r.Context())
	if !authz.CanAny(role, "incidents.read", "incidents.read.team") {
		httputil.Error(w, errors.Forbidden("you do not have permission to perform this action"))
		return
	}

	params := repository.IncidentListParams{}

	if workerID := r.URL.Query().Get("worker_id"); workerID != "" {
		params.WorkerID = &workerID
	}
	if teamID := r.URL.Query().Get("team_id"); teamID != "" {
		params.TeamID = &teamID
	}
	if status := r.URL.Query().Get("status"); status != "" {
		params.Status = &status
	}
	if limit, _ := strconv.Atoi(r.URL.Query().Get("limit")); limit > 0 && limit <= 200 {
		params.Limit = limit
	}

	incidents, err := h.service.List(r.Context(), params)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, incidents)
}

// Get returns an incident by ID
func (h *IncidentHandler) Get(w http.ResponseWriter, r *http.Request) {
	role := httputil.GetUserRole(r.Context())
	if !authz.CanAny(role, "incidents.read", "incidents.read.team") {
		httputil.Error(w, errors.Forbidden("you do not have permission to perform this action"))
		return
	}

	incident, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, incident)
}

// AssignToWHS escalates an incident, opening a linked case for the worker
func (h *IncidentHandler) AssignToWHS(w http.ResponseWriter, r *http.Request) {
	if err := authz.Require(httputil.GetUserRole(r.Context()), "incidents.assign_whs"); err != nil {
		httputil.Error(w, err)
		return
	}

	incident, err := h.service.AssignToWHS(r.Context(), chi.URLParam(r, "id"), httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, incident)
}

// Close closes an incident
func (h *IncidentHandler) Close(w http.ResponseWriter, r *http.Request) {
	if err := authz.Require(httputil.GetUserRole(r.Context()), "incidents.close"); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.Close(r.Context(), chi.URLParam(r, "id"), httputil.GetUserID(r.Context())); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}
