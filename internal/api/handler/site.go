package handler

import (
	"context"
	"net/http"

	"github.com/edvin/netedge/internal/api/request"
	"github.com/edvin/netedge/internal/api/response"
	"github.com/edvin/netedge/internal/core"
	"github.com/edvin/netedge/internal/model"
)

type siteService interface {
	Create(ctx context.Context, v *model.Site) error
	Get(ctx context.Context, tenantID, id string) (*model.Site, error)
	List(ctx context.Context, tenantID string, f core.ListFilter) ([]model.Site, bool, error)
	Update(ctx context.Context, tenantID, id string, p core.SitePatch) (*model.Site, error)
	Delete(ctx context.Context, tenantID, id string) error
}

// Site serves /vpn/sites. Create and update answer with the settled
// record, whose status is ERROR when the device rejected the push.
type Site struct {
	svc siteService
}

func NewSite(svc siteService) *Site {
	return &Site{svc: svc}
}

func (h *Site) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFor(w, r, request.TenantParam(r))
	if !ok {
		return
	}
	items, hasMore, err := h.svc.List(r.Context(), tenantID, request.ParseListFilter(r))
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	writeList(w, r, items, hasMore, func(v model.Site) string { return v.ID })
}

func (h *Site) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateSite
	if !decode(w, r, &req) {
		return
	}
	tenantID, ok := tenantFor(w, r, req.TenantID)
	if !ok {
		return
	}

	v := req.Model(tenantID)
	if err := h.svc.Create(r.Context(), v); err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, v)
}

func (h *Site) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := target(w, r)
	if !ok {
		return
	}
	v, err := h.svc.Get(r.Context(), tenantID, id)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, v)
}

func (h *Site) Update(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := target(w, r)
	if !ok {
		return
	}
	var req request.UpdateSite
	if !decode(w, r, &req) {
		return
	}

	v, err := h.svc.Update(r.Context(), tenantID, id, req.Patch())
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, v)
}

func (h *Site) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := target(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), tenantID, id); err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
