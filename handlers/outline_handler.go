package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/acme/outline-api/models"
	"github.com/acme/outline-api/services"
	"github.com/acme/outline-api/services/outline"
	"github.com/acme/outline-api/utils"
	"go.uber.org/zap"
)

// OutlineService defines the outline operations used by the handler
type OutlineService interface {
	Create(ctx context.Context, caller models.AuthContext, input outline.CreateInput) (*models.Outline, error)
	ListByOrganization(ctx context.Context, caller models.AuthContext, orgID uuid.UUID) ([]*models.Outline, error)
	GetByID(ctx context.Context, caller models.AuthContext, id uuid.UUID) (*models.Outline, error)
	Update(ctx context.Context, caller models.AuthContext, id uuid.UUID, patch outline.UpdateInput) (*models.Outline, error)
	Remove(ctx context.Context, caller models.AuthContext, id uuid.UUID) error
}

// OutlineHandler handles outline HTTP requests
type OutlineHandler struct {
	outlines OutlineService
	logger   *zap.Logger
}

// NewOutlineHandler creates a new OutlineHandler
func NewOutlineHandler(outlines OutlineService, logger *zap.Logger) *OutlineHandler {
	return &OutlineHandler{
		outlines: outlines,
		logger:   logger,
	}
}

// HandleCreate handles POST /outlines
func (h *OutlineHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	var input outline.CreateInput
	if err := utils.DecodeJSON(r, &input); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	o, err := h.outlines.Create(r.Context(), caller, input)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	_ = utils.WriteCreated(w, o)
}

// HandleList handles GET /outlines for the session's active organization
func (h *OutlineHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	if !caller.HasActiveOrganization() {
		HandleServiceError(w, r, services.ErrNoActiveOrganization, h.logger)
		return
	}

	outlines, err := h.outlines.ListByOrganization(r.Context(), caller, *caller.ActiveOrganizationID)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, outlines)
}

// HandleGet handles GET /outlines/{id}
func (h *OutlineHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	o, err := h.outlines.GetByID(r.Context(), caller, id)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, o)
}

// HandleUpdate handles PATCH /outlines/{id}
func (h *OutlineHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var patch outline.UpdateInput
	if err := utils.DecodeJSON(r, &patch); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	o, err := h.outlines.Update(r.Context(), caller, id, patch)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, o)
}

// HandleDelete handles DELETE /outlines/{id}
func (h *OutlineHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.outlines.Remove(r.Context(), caller, id); err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	utils.WriteNoContent(w)
}
