package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/worksafe/worksafe-backend/internal/whs/service"
	"github.com/worksafe/worksafe-backend/pkg/authz"
	"github.com/worksafe/worksafe-backend/pkg/httputil"
	"github.com/worksafe/worksafe-backend/pkg/logger"
)

// CreateTranscriptionRequest attaches a consultation transcription to a case
type CreateTranscriptionRequest struct {
	ExceptionID string `json:"exception_id" validate:"required,uuid"`
	Content     string `json:"content" validate:"required"`
}

// TranscriptionHandler handles transcription endpoints
type TranscriptionHandler struct {
	service *service.TranscriptionService
	logger  *logger.Logger
}

// NewTranscriptionHandler creates a new transcription handler
func NewTranscriptionHandler(svc *service.TranscriptionService, log *logger.Logger) *TranscriptionHandler {
	return &TranscriptionHandler{
		service: svc,
		logger:  log,
	}
}

// Create records a transcription against a case
func (h *TranscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := authz.Require(httputil.GetUserRole(r.Context()), "transcriptions.create"); err != nil {
		httputil.Error(w, err)
		return
	}

	var req CreateTranscriptionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	transcription, err := h.service.Create(r.Context(), req.ExceptionID, req.Content, httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, transcription)
}

// ListForCase lists a case's transcriptions, newest first
func (h *TranscriptionHandler) ListForCase(w http.ResponseWriter, r *http.Request) {
	if err := authz.Require(httputil.GetUserRole(r.Context()), "transcriptions.read"); err != nil {
		httputil.Error(w, err)
		return
	}

	transcriptions, err := h.service.ListForException(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, transcriptions)
}
