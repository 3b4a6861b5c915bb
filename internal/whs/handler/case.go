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

const dateFormat = "2006-01-02"

// OpenCaseRequest is the payload for opening a case
type OpenCaseRequest struct {
	UserID        string  `json:"user_id" validate:"required,uuid"`
	TeamID        *string `json:"team_id,omitempty" validate:"omitempty,uuid"`
	ExceptionType string  `json:"exception_type" validate:"required,oneof=transfer accident injury medical_leave other"`
	Reason        string  `json:"reason" validate:"required"`
	StartDate     string  `json:"start_date" validate:"required"`
	EndDate       *string `json:"end_date,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}

// UpdateStatusRequest is the payload for a status transition
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// AssignClinicianRequest is the payload for assigning a clinician
type AssignClinicianRequest struct {
	ClinicianID string `json:"clinician_id" validate:"required,uuid"`
}

// CaseHandler handles case lifecycle endpoints
type CaseHandler struct {
	service *service.CaseService
	teams   *service.TeamService
	logger  *logger.Logger
}

// NewCaseHandler creates a new case handler
func NewCaseHandler(svc *service.CaseService, teams *service.TeamService, log *logger.Logger) *CaseHandler {
	return &CaseHandler{
		service: svc,
		teams:   teams,
		logger:  log,
	}
}

// List lists cases with derived statuses. ?status= narrows to one
// lifecycle state ("all" or empty returns everything), ?limit= caps rows.
func (h *CaseHandler) List(w http.ResponseWriter, r *http.Request) {
	role := httputil.GetUserRole(r.Context())
	if !authz.CanAny(role, "cases.read", "cases.read.team") {
		httputil.Error(w, errors.Forbidden("you do not have permission to perform this action"))
		return
	}

	params := repository.ExceptionListParams{}

	if limit, _ := strconv.Atoi(r.URL.Query().Get("limit")); limit > 0 && limit <= 200 {
		params.Limit = limit
	}
	if workerID := r.URL.Query().Get("worker_id"); workerID != "" {
		params.UserID = &workerID
	}
	if teamID := r.URL.Query().Get("team_id"); teamID != "" {
		params.TeamID = &teamID
	}
	if r.URL.Query().Get("active") == "true" {
		params.ActiveOnly = true
	}

	// Team leaders only see their own team's cases.
	if !authz.Can(role, "cases.read") {
		team, err := h.teams.GetForLeader(r.Context(), httputil.GetUserID(r.Context()))
		if err != nil {
			httputil.Error(w, err)
			return
		}
		params.TeamID = &team.ID
	}

	// Clinicians see their own caseload unless they ask for everything.
	if role == authz.RoleClinician && r.URL.Query().Get("scope") == "mine" {
		clinicianID := httputil.GetUserID(r.Context())
		params.ClinicianID = &clinicianID
	}

	cases, err := h.service.List(r.Context(), params, r.URL.Query().Get("status"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, cases)
}

// Get returns a case with its derived status
func (h *CaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	role := httputil.GetUserRole(r.Context())
	if !authz.CanAny(role, "cases.read", "cases.read.team") {
		httputil.Error(w, errors.Forbidden("you do not have permission to perform this action"))
		return
	}

	c, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	// Team leaders only see their own team's cases.
	if !authz.Can(role, "cases.read") {
		team, err := h.teams.GetForLeader(r.Context(), httputil.GetUserID(r.Context()))
		if err != nil {
			httputil.Error(w, err)
			return
		}
		if c.TeamID == nil || *c.TeamID != team.ID {
			httputil.Error(w, errors.Forbidden("this case belongs to another team"))
			return
		}
	}

	httputil.JSON(w, http.StatusOK, c)
}

// GetMine returns the authenticated worker's active case, if any
func (h *CaseHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.GetActiveForWorker(r.Context(), httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, c)
}

// Create opens a case for a worker
func (h *CaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := authz.Require(httputil.GetUserRole(r.Context()), "cases.create"); err != nil {
		httputil.Error(w, err)
		return
	}

	var req OpenCaseRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	startDate, err := time.Parse(dateFormat, req.StartDate)
	if err != nil {
		httputil.Error(w, errors.BadRequest("invalid start_date format, expected YYYY-MM-DD"))
		return
	}

	input := service.OpenCaseInput{
		UserID:        req.UserID,
		TeamID:        req.TeamID,
		ExceptionType: req.ExceptionType,
		Reason:        req.Reason,
		StartDate:     startDate,
		Notes:         req.Notes,
	}
	if req.EndDate != nil {
		endDate, err := time.Parse(dateFormat, *req.EndDate)
		if err != nil {
			httputil.Error(w, errors.BadRequest("invalid end_date format, expected YYYY-MM-DD"))
			return
		}
		input.EndDate = &endDate
	}

	c, err := h.service.Open(r.Context(), input, httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, c)
}

// UpdateStatus transitions a case to a named lifecycle state. Clinicians may
// move a case anywhere; a role holding only cases.close (supervisors) is
// limited to the closed transition.
func (h *CaseHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	role := httputil.GetUserRole(r.Context())
	if !authz.CanAny(role, "cases.update_status", "cases.close") {
		httputil.Error(w, errors.Forbidden("you do not have permission to perform this action"))
		return
	}

	var req UpdateStatusRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	if !authz.Can(role, "cases.update_status") && req.Status != "closed" {
		httputil.Error(w, errors.Forbidden("this role may only close cases"))
		return
	}

	result, err := h.service.Transition(r.Context(), chi.URLParam(r, "id"), req.Status, httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// AssignToWHS escalates a case to a WHS case manager
func (h *CaseHandler) AssignToWHS(w http.ResponseWriter, r *http.Request) {
	if err := authz.Require(httputil.GetUserRole(r.Context()), "cases.assign_whs"); err != nil {
		httputil.Error(w, err)
		return
	}

	c, err := h.service.AssignToWHS(r.Context(), chi.URLParam(r, "id"), httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, c)
}

// AssignClinician assigns a clinician to a case
func (h *CaseHandler) AssignClinician(w http.ResponseWriter, r *http.Request) {
	if err := authz.Require(httputil.GetUserRole(r.Context()), "cases.assign_clinician"); err != nil {
		httputil.Error(w, err)
		return
	}

	var req AssignClinicianRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	c, err := h.service.AssignClinician(r.Context(), chi.URLParam(r, "id"), req.ClinicianID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, c)
}

// SweepExpired closes cases whose end date has passed. Normally owned by
// infrastructure cron; this endpoint lets operators trigger it by hand.
func (h *CaseHandler) SweepExpired(w http.ResponseWriter, r *http.Request) {
	if err := authz.Require(httputil.GetUserRole(r.Context()), "cases.sweep"); err != nil {
		httputil.Error(w, err)
		return
	}

	closed, err := h.service.CloseExpired(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]int{"closed": closed})
}
