package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/worksafe/worksafe-backend/internal/whs/service"
	"github.com/worksafe/worksafe-backend/pkg/authz"
	"github.com/worksafe/worksafe-backend/pkg/httputil"
	"github.com/worksafe/worksafe-backend/pkg/logger"
)

// CreateTeamRequest is the payload for creating a team
type CreateTeamRequest struct {
	Name         string  `json:"name" validate:"required"`
	TeamLeaderID string  `json:"team_leader_id" validate:"required,uuid"`
	SupervisorID *string `json:"supervisor_id,omitempty" validate:"omitempty,uuid"`
}

// AddMemberRequest adds a worker to a team
type AddMemberRequest struct {
	UserID string  `json:"user_id" validate:"required,uuid"`
	Phone  *string `json:"phone,omitempty"`
}

// TeamHandler handles team endpoints
type TeamHandler struct {
	service *service.TeamService
	logger  *logger.Logger
}

// NewTeamHandler creates a new team handler
func NewTeamHandler(svc *service.TeamService, log *logger.Logger) *TeamHandler {
	return &TeamHandler{
		service: svc,
		logger:  log,
	}
}

// Create creates a team
func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := authz.Require(httputil.GetUserRole(r.Context()), "teams.create"); err != nil {
		httputil.Error(w, err)
		return
	}

	var req CreateTeamRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	team, err := h.service.Create(r.Context(), service.CreateTeamInput{
		Name:         req.Name,
		TeamLeaderID: req.TeamLeaderID,
		SupervisorID: req.SupervisorID,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, team)
}

// Get returns a team by ID
func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	if err := authz.Require(httputil.GetUserRole(r.Context()), "teams.read"); err != nil {
		httputil.Error(w, err)
		return
	}

	team, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, team)
}

// GetMine returns the team led by the caller
func (h *TeamHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	team, err := h.service.GetForLeader(r.Context(), httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, team)
}

// ListSupervised lists teams supervised by the caller
func (h *TeamHandler) ListSupervised(w http.ResponseWriter, r *http.Request) {
	if err := authz.Require(httputil.GetUserRole(r.Context()), "teams.read"); err != nil {
		httputil.Error(w, err)
		return
	}

	teams, err := h.service.ListForSupervisor(r.Context(), httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, teams)
}

// AddMember adds a worker to a team
func (h *TeamHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	if err := authz.Require(httputil.GetUserRole(r.Context()), "teams.manage"); err != nil {
		httputil.Error(w, err)
		return
	}

	var req AddMemberRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	member, err := h.service.AddMember(r.Context(), chi.URLParam(r, "id"), req.UserID, req.Phone)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, member)
}

// Members lists the members of a team
func (h *TeamHandler) Members(w http.ResponseWriter, r *http.Request) {
	if err := authz.Require(httputil.GetUserRole(r.Context()), "teams.read"); err != nil {
		httputil.Error(w, err)
		return
	}

	members, err := h.service.Members(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, members)
}
