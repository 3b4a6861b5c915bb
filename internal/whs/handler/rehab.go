package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/worksafe/worksafe-backend/internal/whs/service"
	"github.com/worksafe/worksafe-backend/pkg/authz"
	"github.com/worksafe/worksafe-backend/pkg/errors"
	"github.com/worksafe/worksafe-backend/pkg/httputil"
	"github.com/worksafe/worksafe-backend/pkg/logger"
)

// CreatePlanRequest is the payload for creating a rehabilitation plan
type CreatePlanRequest struct {
	ExceptionID  string                `json:"exception_id" validate:"required,uuid"`
	Name         string                `json:"name" validate:"required"`
	StartDate    string                `json:"start_date" validate:"required"`
	DurationDays int                   `json:"duration_days" validate:"min=1,max=365"`
	Exercises    []PlanExerciseRequest `json:"exercises" validate:"required,min=1,dive"`
}

// PlanExerciseRequest is one exercise within a new plan
type PlanExerciseRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description,omitempty"`
}

// RecordProgressRequest lists the exercises completed today
type RecordProgressRequest struct {
	ExerciseIDs []string `json:"exercise_ids" validate:"required,min=1,dive,uuid"`
}

// RehabHandler handles rehabilitation plan endpoints
type RehabHandler struct {
	service *service.RehabService
	logger  *logger.Logger
}

// NewRehabHandler creates a new rehabilitation handler
func NewRehabHandler(svc *service.RehabService, log *logger.Logger) *RehabHandler {
	return &RehabHandler{
		service: svc,
		logger:  log,
	}
}

// CreatePlan creates an active plan against a case
func (h *RehabHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	if err := authz.Require(httputil.GetUserRole(r.Context()), "rehabilitation.create"); err != nil {
		httputil.Error(w, err)
		return
	}

	var req CreatePlanRequest
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

	input := service.CreatePlanInput{
		ExceptionID:  req.ExceptionID,
		Name:         req.Name,
		StartDate:    startDate,
		DurationDays: req.DurationDays,
	}
	for _, ex := range req.Exercises {
		input.Exercises = append(input.Exercises, service.PlanExerciseInput{
			Name:        ex.Name,
			Description: ex.Description,
		})
	}

	plan, err := h.service.CreatePlan(r.Context(), input, httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, plan)
}

// GetPlan returns a plan with its exercises
func (h *RehabHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	role := httputil.GetUserRole(r.Context())
	if !authz.CanAny(role, "rehabilitation.read", "rehabilitation.read.own") {
		httputil.Error(w, errors.Forbidden("you do not have permission to perform this action"))
		return
	}

	plan, err := h.service.GetPlan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, plan)
}

// MyPlan returns the caller's active plan, resolved through their active case
func (h *RehabHandler) MyPlan(w http.ResponseWriter, r *http.Request) {
	if err := authz.Require(httputil.GetUserRole(r.Context()), "rehabilitation.read.own"); err != nil {
		httputil.Error(w, err)
		return
	}

	plan, err := h.service.ActivePlanForWorker(r.Context(), httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	if plan == nil {
		httputil.Error(w, errors.NotFound("no active rehabilitation plan"))
		return
	}

	httputil.JSON(w, http.StatusOK, plan)
}

// RecordProgress records the caller's exercise completions for today
func (h *RehabHandler) RecordProgress(w http.ResponseWriter, r *http.Request) {
	if err := authz.Require(httputil.GetUserRole(r.Context()), "rehabilitation.progress"); err != nil {
		httputil.Error(w, err)
		return
	}

	var req RecordProgressRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	progress, err := h.service.RecordProgress(r.Context(), chi.URLParam(r, "id"), httputil.GetUserID(r.Context()), req.ExerciseIDs)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, progress)
}

// Progress returns a plan's completion summary
func (h *RehabHandler) Progress(w http.ResponseWriter, r *http.Request) {
	role := httputil.GetUserRole(r.Context())
	if !authz.CanAny(role, "rehabilitation.read", "rehabilitation.read.own") {
		httputil.Error(w, errors.Forbidden("you do not have permission to perform this action"))
		return
	}

	progress, err := h.service.Progress(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, progress)
}

// Complete marks a plan as completed
func (h *RehabHandler) Complete(w http.ResponseWriter, r *http.Request) {
	if err := authz.Require(httputil.GetUserRole(r.Context()), "rehabilitation.complete"); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.CompletePlan(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// Cancel cancels an active plan
func (h *RehabHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := authz.Require(httputil.GetUserRole(r.Context()), "rehabilitation.cancel"); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.CancelPlan(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}
