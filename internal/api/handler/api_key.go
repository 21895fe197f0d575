package handler

import (
	"context"
	"fmt"
	"net/http"

	mw "github.com/edvin/netedge/internal/api/middleware"
	"github.com/edvin/netedge/internal/api/request"
	"github.com/edvin/netedge/internal/api/response"
	"github.com/edvin/netedge/internal/core"
	"github.com/edvin/netedge/internal/model"
)

type apiKeyService interface {
	Create(ctx context.Context, name, tenantID string, isAdmin bool) (*model.APIKey, string, error)
	List(ctx context.Context, tenantID string, limit int, cursor string) ([]model.APIKey, bool, error)
	Revoke(ctx context.Context, tenantID, id string) error
}

// APIKey serves /api-keys.
type APIKey struct {
	svc apiKeyService
}

func NewAPIKey(svc apiKeyService) *APIKey {
	return &APIKey{svc: svc}
}

type createdAPIKey struct {
	*model.APIKey
	Key string `json:"key"`
}

func (h *APIKey) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFor(w, r, request.TenantParam(r))
	if !ok {
		return
	}
	pg := request.ParsePagination(r)
	keys, hasMore, err := h.svc.List(r.Context(), tenantID, pg.Limit, pg.Cursor)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	writeList(w, r, keys, hasMore, func(k model.APIKey) string { return k.ID })
}

// Create issues a key. The raw key appears only in this response.
func (h *APIKey) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateAPIKey
	if !decode(w, r, &req) {
		return
	}
	tenantID, ok := tenantFor(w, r, req.TenantID)
	if !ok {
		return
	}
	if req.IsAdmin && !mw.CallerFrom(r.Context()).IsAdmin {
		response.WriteServiceError(w, r, fmt.Errorf("%w: only admins may issue admin keys", core.ErrForbidden))
		return
	}

	key, raw, err := h.svc.Create(r.Context(), req.Name, tenantID, req.IsAdmin)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, createdAPIKey{APIKey: key, Key: raw})
}

func (h *APIKey) Revoke(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := target(w, r)
	if !ok {
		return
	}
	if err := h.svc.Revoke(r.Context(), tenantID, id); err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
