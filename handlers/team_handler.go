package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/acme/outline-api/models"
	"github.com/acme/outline-api/services/invitation"
	"github.com/acme/outline-api/services/team"
	"github.com/acme/outline-api/utils"
	"go.uber.org/zap"
)

// TeamService builds the team overview
type TeamService interface {
	GetTeamSnapshot(ctx context.Context, caller models.AuthContext) (*team.Snapshot, error)
}

// InvitationService performs owner-only team mutations
type InvitationService interface {
	Invite(ctx context.Context, caller models.AuthContext, orgID uuid.UUID, input invitation.InviteInput) (*models.Invitation, error)
	UpdateRole(ctx context.Context, caller models.AuthContext, orgID, memberID uuid.UUID, input invitation.UpdateRoleInput) (*models.MemberWithUser, error)
	RemoveMember(ctx context.Context, caller models.AuthContext, orgID, memberID uuid.UUID) (*invitation.RemoveResult, error)
}

// TeamHandler handles team HTTP requests
type TeamHandler struct {
	team        TeamService
	invitations InvitationService
	logger      *zap.Logger
}

// NewTeamHandler creates a new TeamHandler
func NewTeamHandler(teamSvc TeamService, invitations InvitationService, logger *zap.Logger) *TeamHandler {
	return &TeamHandler{
		team:        teamSvc,
		invitations: invitations,
		logger:      logger,
	}
}

// HandleGetTeam handles GET /team
func (h *TeamHandler) HandleGetTeam(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	snapshot, err := h.team.GetTeamSnapshot(r.Context(), caller)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, snapshot)
}

// HandleInvite handles POST /team/{orgId}/invite
func (h *TeamHandler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	orgID, ok := pathUUID(w, r, "orgId")
	if !ok {
		return
	}

	var input invitation.InviteInput
	if err := utils.DecodeJSON(r, &input); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	inv, err := h.invitations.Invite(r.Context(), caller, orgID, input)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	_ = utils.WriteCreated(w, inv)
}

// HandleUpdateRole handles PATCH /team/{orgId}/members/{memberId}/role
func (h *TeamHandler) HandleUpdateRole(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	orgID, ok := pathUUID(w, r, "orgId")
	if !ok {
		return
	}
	memberID, ok := pathUUID(w, r, "memberId")
	if !ok {
		return
	}

	var input invitation.UpdateRoleInput
	if err := utils.DecodeJSON(r, &input); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	m, err := h.invitations.UpdateRole(r.Context(), caller, orgID, memberID, input)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, m)
}

// HandleRemoveMember handles DELETE /team/{orgId}/members/{memberId}
func (h *TeamHandler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	orgID, ok := pathUUID(w, r, "orgId")
	if !ok {
		return
	}
	memberID, ok := pathUUID(w, r, "memberId")
	if !ok {
		return
	}

	res, err := h.invitations.RemoveMember(r.Context(), caller, orgID, memberID)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, res)
}
