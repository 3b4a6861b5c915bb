package handler

import (
	"net/http"

	"github.com/worksafe/worksafe-backend/internal/whs/repository"
	"github.com/worksafe/worksafe-backend/internal/whs/service"
	"github.com/worksafe/worksafe-backend/pkg/authz"
	"github.com/worksafe/worksafe-backend/pkg/errors"
	"github.com/worksafe/worksafe-backend/pkg/httputil"
	"github.com/worksafe/worksafe-backend/pkg/logger"
	"github.com/worksafe/worksafe-backend/pkg/session"
)

// LoginRequest is the login payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the account creation payload
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Role      string `json:"role" validate:"required,oneof=worker team_leader supervisor clinician admin"`
}

// AuthHandler handles login, logout and account endpoints
type AuthHandler struct {
	service  *service.AuthService
	sessions *session.Manager
	logger   *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(svc *service.AuthService, sessions *session.Manager, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		service:  svc,
		sessions: sessions,
		logger:   log,
	}
}

// Login authenticates a user and sets the session cookie
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password, r.RemoteAddr, r.UserAgent())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	http.SetCookie(w, h.sessions.Cookie(result.Token, result.Expires))
	httputil.JSON(w, http.StatusOK, result.User)
}

// Logout clears the session cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.sessions.ClearCookie())
	httputil.NoContent(w)
}

// Me returns the authenticated user
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, user)
}

// Register creates a new account. Admin only.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := authz.Require(httputil.GetUserRole(r.Context()), "users.create"); err != nil {
		httputil.Error(w, err)
		return
	}

	var req RegisterRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	if !authz.IsValidRole(req.Role) {
		httputil.Error(w, errors.BadRequest("unknown role"))
		return
	}

	user := &repository.User{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	}
	if err := h.service.Register(r.Context(), user, req.Password); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, user)
}
