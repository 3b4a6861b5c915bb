package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/worksafe/worksafe-backend/internal/whs/repository"
	"github.com/worksafe/worksafe-backend/internal/whs/service"
	"github.com/worksafe/worksafe-backend/pkg/authz"
	"github.com/worksafe/worksafe-backend/pkg/errors"
	"github.com/worksafe/worksafe-backend/pkg/httputil"
	"github.com/worksafe/worksafe-backend/pkg/logger"
)

// CreateScheduleRequest is the payload for creating a schedule. Exactly one
// of scheduled_date and day_of_week must be set.
type CreateScheduleRequest struct {
	WorkerID             string  `json:"worker_id" validate:"required,uuid"`
	TeamID               *string `json:"team_id,omitempty" validate:"omitempty,uuid"`
	ScheduledDate        *string `json:"scheduled_date,omitempty"`
	DayOfWeek            *int    `json:"day_of_week,omitempty" validate:"omitempty,min=0,max=6"`
	EffectiveDate        *string `json:"effective_date,omitempty"`
	ExpiryDate           *string `json:"expiry_date,omitempty"`
	StartTime            string  `json:"start_time" validate:"required"`
	EndTime              string  `json:"end_time" validate:"required"`
	RequiresDailyCheckin bool    `json:"requires_daily_checkin"`
	CheckinWindowStart   *string `json:"checkin_window_start,omitempty"`
	CheckinWindowEnd     *string `json:"checkin_window_end,omitempty"`
}

// ScheduleHandler handles worker schedule endpoints
type ScheduleHandler struct {
	service *service.ScheduleService
	logger  *logger.Logger
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(svc *service.ScheduleService, log *logger.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		service: svc,
		logger:  log,
	}
}

// Create creates a schedule for a worker
func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := authz.Require(httputil.GetUserRole(r.Context()), "schedules.create"); err != nil {
		httputil.Error(w, err)
		return
	}

	var req CreateScheduleRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	s := &repository.Schedule{
		WorkerID:             req.WorkerID,
		TeamID:               req.TeamID,
		DayOfWeek:            req.DayOfWeek,
		StartTime:            req.StartTime,
		EndTime:              req.EndTime,
		RequiresDailyCheckin: req.RequiresDailyCheckin,
		CheckinWindowStart:   req.CheckinWindowStart,
		CheckinWindowEnd:     req.CheckinWindowEnd,
	}

	for _, d := range []struct {
		raw  *string
		dest **time.Time
		name string
	}{
		{req.ScheduledDate, &s.ScheduledDate, "scheduled_date"},
		{req.EffectiveDate, &s.EffectiveDate, "effective_date"},
		{req.ExpiryDate, &s.ExpiryDate, "expiry_date"},
	} {
		if d.raw == nil {
			continue
		}
		t, err := time.Parse(dateFormat, *d.raw)
		if err != nil {
			httputil.Error(w, errors.BadRequest("invalid "+d.name+" format, expected YYYY-MM-DD"))
			return
		}
		*d.dest = &t
	}

	created, err := h.service.Create(r.Context(), s, httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, created)
}

// ListMine lists the authenticated worker's schedules
func (h *ScheduleHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.service.ListForWorker(r.Context(), httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, schedules)
}

// ListEffective lists schedules generating obligations on a date. Workers
// covered by an active exception are excluded. ?date= defaults to today.
func (h *ScheduleHandler) ListEffective(w http.ResponseWriter, r *http.Request) {
	if err := authz.Require(httputil.GetUserRole(r.Context()), "schedules.read.team"); err != nil {
		httputil.Error(w, err)
		return
	}

	date := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse(dateFormat, raw)
		if err != nil {
			httputil.Error(w, errors.BadRequest("invalid date format, expected YYYY-MM-DD"))
			return
		}
		date = parsed
	}

	var teamID *string
	if raw := r.URL.Query().Get("team_id"); raw != "" {
		teamID = &raw
	}

	schedules, err := h.service.ListEffectiveForDate(r.Context(), teamID, date)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, schedules)
}

// Deactivate deactivates a schedule
func (h *ScheduleHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if err := authz.Require(httputil.GetUserRole(r.Context()), "schedules.deactivate"); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.Deactivate(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}
