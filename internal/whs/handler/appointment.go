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

// ScheduleAppointmentRequest is the payload for booking an appointment
type ScheduleAppointmentRequest struct {
	ExceptionID     string  `json:"exception_id" validate:"required,uuid"`
	WorkerID        string  `json:"worker_id" validate:"required,uuid"`
	AppointmentDate string  `json:"appointment_date" validate:"required"`
	StartTime       *string `json:"start_time,omitempty"`
	Location        *string `json:"location,omitempty"`
}

// RespondAppointmentRequest is a worker's answer to a pending appointment
type RespondAppointmentRequest struct {
	Response string `json:"response" validate:"required,oneof=confirmed declined"`
}

// CancelAppointmentRequest carries the cancellation reason
type CancelAppointmentRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// AppointmentHandler handles appointment endpoints
type AppointmentHandler struct {
	service *service.AppointmentService
	logger  *logger.Logger
}

// NewAppointmentHandler creates a new appointment handler
func NewAppointmentHandler(svc *service.AppointmentService, log *logger.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		service: svc,
		logger:  log,
	}
}

// Schedule books an appointment against a case
func (h *AppointmentHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	if err := authz.Require(httputil.GetUserRole(r.Context()), "appointments.schedule"); err != nil {
		httputil.Error(w, err)
		return
	}

	var req ScheduleAppointmentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	appointmentDate, err := time.Parse(dateFormat, req.AppointmentDate)
	if err != nil {
		httputil.Error(w, errors.BadRequest("invalid appointment_date format, expected YYYY-MM-DD"))
		return
	}

	appointment, err := h.service.Schedule(r.Context(), service.ScheduleAppointmentInput{
		ExceptionID:     req.ExceptionID,
		WorkerID:        req.WorkerID,
		AppointmentDate: appointmentDate,
		StartTime:       req.StartTime,
		Location:        req.Location,
	}, httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, appointment)
}

// Get returns an appointment by ID
func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	role := httputil.GetUserRole(r.Context())
	if !authz.CanAny(role, "appointments.read", "appointments.read.own") {
		httputil.Error(w, errors.Forbidden("you do not have permission to perform this action"))
		return
	}

	appointment, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if !authz.Can(role, "appointments.read") && appointment.WorkerID != httputil.GetUserID(r.Context()) {
		httputil.Error(w, errors.Forbidden("this appointment belongs to another worker"))
		return
	}

	httputil.JSON(w, http.StatusOK, appointment)
}

// ListForClinician lists the caller's caseload of appointments
func (h *AppointmentHandler) ListForClinician(w http.ResponseWriter, r *http.Request) {
	if err := authz.Require(httputil.GetUserRole(r.Context()), "appointments.read"); err != nil {
		httputil.Error(w, err)
		return
	}

	appointments, err := h.service.ListForClinician(r.Context(), httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, appointments)
}

// ListForWorker lists the caller's own appointments
func (h *AppointmentHandler) ListForWorker(w http.ResponseWriter, r *http.Request) {
	if err := authz.Require(httputil.GetUserRole(r.Context()), "appointments.read.own"); err != nil {
		httputil.Error(w, err)
		return
	}

	appointments, err := h.service.ListForWorker(r.Context(), httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, appointments)
}

// Respond records the caller's answer to a pending appointment
func (h *AppointmentHandler) Respond(w http.ResponseWriter, r *http.Request) {
	if err := authz.Require(httputil.GetUserRole(r.Context()), "appointments.respond"); err != nil {
		httputil.Error(w, err)
		return
	}

	var req RespondAppointmentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	appointment, err := h.service.Respond(r.Context(), chi.URLParam(r, "id"), httputil.GetUserID(r.Context()), req.Response)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, appointment)
}

// Cancel cancels an appointment with a reason
func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := authz.Require(httputil.GetUserRole(r.Context()), "appointments.cancel"); err != nil {
		httputil.Error(w, err)
		return
	}

	var req CancelAppointmentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	appointment, err := h.service.Cancel(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, appointment)
}

// Complete marks an appointment as completed
func (h *AppointmentHandler) Complete(w http.ResponseWriter, r *http.Request) {
	if err := authz.Require(httputil.GetUserRole(r.Context()), "appointments.complete"); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.Complete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}
