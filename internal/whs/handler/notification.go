package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/worksafe/worksafe-backend/internal/whs/service"
	"github.com/worksafe/worksafe-backend/pkg/authz"
	"github.com/worksafe/worksafe-backend/pkg/httputil"
	"github.com/worksafe/worksafe-backend/pkg/logger"
)

// NotificationHandler handles notification endpoints
type NotificationHandler struct {
	service *service.NotificationService
	logger  *logger.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(svc *service.NotificationService, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: svc,
		logger:  log,
	}
}

// List lists the caller's notifications, newest first
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	if err := authz.Require(httputil.GetUserRole(r.Context()), "notifications.read"); err != nil {
		httputil.Error(w, err)
		return
	}

	unreadOnly := r.URL.Query().Get("unread") == "true"
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 0 || limit > 200 {
		limit = 0
	}

	notifications, err := h.service.List(r.Context(), httputil.GetUserID(r.Context()), unreadOnly, limit)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, notifications)
}

// CountUnread returns the caller's unread notification count
func (h *NotificationHandler) CountUnread(w http.ResponseWriter, r *http.Request) {
	if err := authz.Require(httputil.GetUserRole(r.Context()), "notifications.read"); err != nil {
		httputil.Error(w, err)
		return
	}

	count, err := h.service.CountUnread(r.Context(), httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]int{"unread": count})
}

// MarkRead marks one of the caller's notifications as read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if err := authz.Require(httputil.GetUserRole(r.Context()), "notifications.manage"); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.MarkRead(r.Context(), chi.URLParam(r, "id"), httputil.GetUserID(r.Context())); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// MarkAllRead marks all of the caller's notifications as read
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	if err := authz.Require(httputil.GetUserRole(r.Context()), "notifications.manage"); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.MarkAllRead(r.Context(), httputil.GetUserID(r.Context())); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}
