package handler

import (
	"context"
	"net/http"

	"github.com/edvin/netedge/internal/api/request"
	"github.com/edvin/netedge/internal/api/response"
	"github.com/edvin/netedge/internal/core"
	"github.com/edvin/netedge/internal/model"
)

type ipsecPolicyService interface {
	Create(ctx context.Context, v *model.IPSecPolicy) error
	Get(ctx context.Context, tenantID, id string) (*model.IPSecPolicy, error)
	List(ctx context.Context, tenantID string, f core.ListFilter) ([]model.IPSecPolicy, bool, error)
	Update(ctx context.Context, tenantID, id string, p core.IPSecPolicyPatch) (*model.IPSecPolicy, error)
	Delete(ctx context.Context, tenantID, id string) error
}

// IPSecPolicy serves /vpn/ipsec_policys.
type IPSecPolicy struct {
	svc ipsecPolicyService
}

func NewIPSecPolicy(svc ipsecPolicyService) *IPSecPolicy {
	return &IPSecPolicy{svc: svc}
}

func (h *IPSecPolicy) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFor(w, r, request.TenantParam(r))
	if !ok {
		return
	}
	items, hasMore, err := h.svc.List(r.Context(), tenantID, request.ParseListFilter(r))
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	writeList(w, r, items, hasMore, func(v model.IPSecPolicy) string { return v.ID })
}

func (h *IPSecPolicy) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateIPSecPolicy
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

func (h *IPSecPolicy) Get(w http.ResponseWriter, r *http.Request) {
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

func (h *IPSecPolicy) Update(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := target(w, r)
	if !ok {
		return
	}
	var req request.UpdateIPSecPolicy
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

func (h *IPSecPolicy) Delete(w http.ResponseWriter, r *http.Request) {
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

type isakmpPolicyService interface {
	Create(ctx context.Context, v *model.IsakmpPolicy) error
	Get(ctx context.Context, tenantID, id string) (*model.IsakmpPolicy, error)
	List(ctx context.Context, tenantID string, f core.ListFilter) ([]model.IsakmpPolicy, bool, error)
	Update(ctx context.Context, tenantID, id string, p core.IsakmpPolicyPatch) (*model.IsakmpPolicy, error)
	Delete(ctx context.Context, tenantID, id string) error
}

// IsakmpPolicy serves /vpn/isakmp_policys.
type IsakmpPolicy struct {
	svc isakmpPolicyService
}

func NewIsakmpPolicy(svc isakmpPolicyService) *IsakmpPolicy {
	return &IsakmpPolicy{svc: svc}
}

func (h *IsakmpPolicy) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFor(w, r, request.TenantParam(r))
	if !ok {
		return
	}
	items, hasMore, err := h.svc.List(r.Context(), tenantID, request.ParseListFilter(r))
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	writeList(w, r, items, hasMore, func(v model.IsakmpPolicy) string { return v.ID })
}

// Create enables PFS when the body omits enable_pfs.
func (h *IsakmpPolicy) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateIsakmpPolicy
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

func (h *IsakmpPolicy) Get(w http.ResponseWriter, r *http.Request) {
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

func (h *IsakmpPolicy) Update(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := target(w, r)
	if !ok {
		return
	}
	var req request.UpdateIsakmpPolicy
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

func (h *IsakmpPolicy) Delete(w http.ResponseWriter, r *http.Request) {
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

type trustProfileService interface {
	Create(ctx context.Context, v *model.TrustProfile) error
	Get(ctx context.Context, tenantID, id string) (*model.TrustProfile, error)
	List(ctx context.Context, tenantID string, f core.ListFilter) ([]model.TrustProfile, bool, error)
	Update(ctx context.Context, tenantID, id string, p core.TrustProfilePatch) (*model.TrustProfile, error)
	Delete(ctx context.Context, tenantID, id string) error
}

// TrustProfile serves /vpn/trust_profiles.
type TrustProfile struct {
	svc trustProfileService
}

func NewTrustProfile(svc trustProfileService) *TrustProfile {
	return &TrustProfile{svc: svc}
}

func (h *TrustProfile) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFor(w, r, request.TenantParam(r))
	if !ok {
		return
	}
	items, hasMore, err := h.svc.List(r.Context(), tenantID, request.ParseListFilter(r))
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	writeList(w, r, items, hasMore, func(v model.TrustProfile) string { return v.ID })
}

func (h *TrustProfile) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateTrustProfile
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

func (h *TrustProfile) Get(w http.ResponseWriter, r *http.Request) {
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

func (h *TrustProfile) Update(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := target(w, r)
	if !ok {
		return
	}
	var req request.UpdateTrustProfile
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

func (h *TrustProfile) Delete(w http.ResponseWriter, r *http.Request) {
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
