package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/acme/outline-api/identity"
	"github.com/acme/outline-api/utils"
	"go.uber.org/zap"
)

// CreateOrganizationRequest is the body of POST /organizations
type CreateOrganizationRequest struct {
	Name string `json:"name" validate:"required,max=100"`
	Slug string `json:"slug" validate:"required,slug"`
}

// SetActiveOrganizationRequest is the body of POST /organizations/active
type SetActiveOrganizationRequest struct {
	OrganizationID string `json:"organizationId" validate:"required,uuid"`
}

// OrganizationHandler handles organization and invitation-acceptance requests
type OrganizationHandler struct {
	provider identity.Provider
	logger   *zap.Logger
}

// NewOrganizationHandler creates a new OrganizationHandler
func NewOrganizationHandler(provider identity.Provider, logger *zap.Logger) *OrganizationHandler {
	return &OrganizationHandler{
		provider: provider,
		logger:   logger,
	}
}

// HandleCreate handles POST /organizations
func (h *OrganizationHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	var req CreateOrganizationRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	org, err := h.provider.CreateOrganization(r.Context(), caller, req.Name, req.Slug)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	_ = utils.WriteCreated(w, org)
}

// HandleList handles GET /organizations
func (h *OrganizationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	orgs, err := h.provider.ListOrganizations(r.Context(), caller.UserID)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, orgs)
}

// HandleSetActive handles POST /organizations/active
func (h *OrganizationHandler) HandleSetActive(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	var req SetActiveOrganizationRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}
	orgID := uuid.MustParse(req.OrganizationID)

	if err := h.provider.SetActiveOrganization(r.Context(), caller, orgID); err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, map[string]interface{}{"activeOrganizationId": orgID})
}

// HandleAcceptInvitation handles POST /organizations/invitations/{invitationId}/accept
func (h *OrganizationHandler) HandleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	invitationID, ok := pathUUID(w, r, "invitationId")
	if !ok {
		return
	}

	membership, err := h.provider.AcceptInvitation(r.Context(), caller, invitationID)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, membership)
}
