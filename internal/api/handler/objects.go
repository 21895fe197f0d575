package handler

import (
	"context"
	"net/http"

	"github.com/edvin/netedge/internal/api/request"
	"github.com/edvin/netedge/internal/api/response"
	"github.com/edvin/netedge/internal/compose"
	"github.com/edvin/netedge/internal/core"
	"github.com/edvin/netedge/internal/model"
)

type ipObjService interface {
	Create(ctx context.Context, obj *model.IPObj) error
	Get(ctx context.Context, tenantID, id string) (*model.IPObj, error)
	List(ctx context.Context, tenantID string, f core.ListFilter) ([]model.IPObj, bool, error)
	Delete(ctx context.Context, tenantID, id string) error
}

// IPObj serves /fw/ipobjs.
type IPObj struct {
	svc ipObjService
}

func NewIPObj(svc ipObjService) *IPObj {
	return &IPObj{svc: svc}
}

func (h *IPObj) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFor(w, r, request.TenantParam(r))
	if !ok {
		return
	}
	objs, hasMore, err := h.svc.List(r.Context(), tenantID, request.ParseListFilter(r))
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	writeList(w, r, objs, hasMore, func(o model.IPObj) string { return o.ID })
}

func (h *IPObj) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateIPObj
	if !decode(w, r, &req) {
		return
	}
	tenantID, ok := tenantFor(w, r, req.TenantID)
	if !ok {
		return
	}

	obj := req.Model(tenantID)
	if err := h.svc.Create(r.Context(), obj); err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, obj)
}

func (h *IPObj) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := target(w, r)
	if !ok {
		return
	}
	obj, err := h.svc.Get(r.Context(), tenantID, id)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, obj)
}

func (h *IPObj) Delete(w http.ResponseWriter, r *http.Request) {
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

type serviceObjService interface {
	Create(ctx context.Context, tenantID string, doc compose.ServiceObjDocument) (*model.ServiceObj, error)
	Get(ctx context.Context, tenantID, id string) (*model.ServiceObj, error)
	List(ctx context.Context, tenantID string, f core.ListFilter) ([]model.ServiceObj, bool, error)
	Delete(ctx context.Context, tenantID, id string) error
}

// ServiceObj serves /fw/serviceobjs. Objects are rendered in their API
// document shape, with types or ports depending on the protocol.
type ServiceObj struct {
	svc serviceObjService
}

func NewServiceObj(svc serviceObjService) *ServiceObj {
	return &ServiceObj{svc: svc}
}

func (h *ServiceObj) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFor(w, r, request.TenantParam(r))
	if !ok {
		return
	}
	objs, hasMore, err := h.svc.List(r.Context(), tenantID, request.ParseListFilter(r))
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	docs := make([]compose.ServiceObjDocument, len(objs))
	for i, o := range objs {
		docs[i] = compose.ServiceObjToDocument(o)
	}
	writeList(w, r, docs, hasMore, func(d compose.ServiceObjDocument) string { return d.ID })
}

func (h *ServiceObj) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateServiceObj
	if !decode(w, r, &req) {
		return
	}
	tenantID, ok := tenantFor(w, r, req.TenantID)
	if !ok {
		return
	}

	obj, err := h.svc.Create(r.Context(), tenantID, req.Document())
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, compose.ServiceObjToDocument(*obj))
}

func (h *ServiceObj) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := target(w, r)
	if !ok {
		return
	}
	obj, err := h.svc.Get(r.Context(), tenantID, id)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, compose.ServiceObjToDocument(*obj))
}

func (h *ServiceObj) Delete(w http.ResponseWriter, r *http.Request) {
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

type zoneService interface {
	Create(ctx context.Context, zone *model.Zone) error
	Get(ctx context.Context, tenantID, id string) (*model.Zone, error)
	List(ctx context.Context, tenantID string, f core.ListFilter) ([]model.Zone, bool, error)
	Delete(ctx context.Context, tenantID, id string) error
}

// Zone serves /fw/zones.
type Zone struct {
	svc zoneService
}

func NewZone(svc zoneService) *Zone {
	return &Zone{svc: svc}
}

func (h *Zone) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFor(w, r, request.TenantParam(r))
	if !ok {
		return
	}
	zones, hasMore, err := h.svc.List(r.Context(), tenantID, request.ParseListFilter(r))
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	writeList(w, r, zones, hasMore, func(z model.Zone) string { return z.ID })
}

func (h *Zone) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateZone
	if !decode(w, r, &req) {
		return
	}
	tenantID, ok := tenantFor(w, r, req.TenantID)
	if !ok {
		return
	}

	zone := req.Model(tenantID)
	if err := h.svc.Create(r.Context(), zone); err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, zone)
}

func (h *Zone) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := target(w, r)
	if !ok {
		return
	}
	zone, err := h.svc.Get(r.Context(), tenantID, id)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, zone)
}

func (h *Zone) Delete(w http.ResponseWriter, r *http.Request) {
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
