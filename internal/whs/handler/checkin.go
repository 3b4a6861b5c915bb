package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/worksafe/worksafe-backend/internal/whs/service"
	"github.com/worksafe/worksafe-backend/pkg/authz"
	"github.com/worksafe/worksafe-backend/pkg/errors"
	"github.com/worksafe/worksafe-backend/pkg/httputil"
	"github.com/worksafe/worksafe-backend/pkg/logger"
)

// CheckinHandler handles daily check-in and warm-up endpoints
type CheckinHandler struct {
	service *service.CheckinService
	logger  *logger.Logger
}

// NewCheckinHandler creates a new check-in handler
func NewCheckinHandler(svc *service.CheckinService, log *logger.Logger) *CheckinHandler {
	return &CheckinHandler{
		service: svc,
		logger:  log,
	}
}

// Submit records today's check-in for the authenticated worker
func (h *CheckinHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req service.SubmitCheckinInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	c, err := h.service.Submit(r.Context(), httputil.GetUserID(r.Context()), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, c)
}

// Today returns the authenticated worker's check-in for today, if any
func (h *CheckinHandler) Today(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.GetToday(r.Context(), httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, c)
}

// History lists the authenticated worker's recent check-ins
func (h *CheckinHandler) History(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	checkins, err := h.service.History(r.Context(), httputil.GetUserID(r.Context()), limit)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, checkins)
}

// Team lists a team's check-ins for a date. ?date= defaults to today.
func (h *CheckinHandler) Team(w http.ResponseWriter, r *http.Request) {
	if err := authz.Require(httputil.GetUserRole(r.Context()), "checkins.read.team"); err != nil {
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

	checkins, err := h.service.TeamForDate(r.Context(), chi.URLParam(r, "teamID"), date)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, checkins)
}

// CompleteWarmUp marks today's warm-up as done
func (h *CheckinHandler) CompleteWarmUp(w http.ResponseWriter, r *http.Request) {
	if err := h.service.CompleteWarmUp(r.Context(), httputil.GetUserID(r.Context())); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}
