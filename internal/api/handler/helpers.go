package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/edvin/netedge/internal/api/middleware"
	"github.com/edvin/netedge/internal/api/request"
	"github.com/edvin/netedge/internal/api/response"
	"github.com/edvin/netedge/internal/core"
)

// tenantFor resolves the tenant a request acts on, writing the error
// response itself when the caller may not act on the requested tenant.
func tenantFor(w http.ResponseWriter, r *http.Request, requested string) (string, bool) {
	tenantID, err := core.ResolveTenant(mw.CallerFrom(r.Context()), requested)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return "", false
	}
	return tenantID, true
}

// target reads the {id} path parameter and the acting tenant for
// get, update and delete routes.
func target(w http.ResponseWriter, r *http.Request) (tenantID, id string, ok bool) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return "", "", false
	}
	tenantID, ok = tenantFor(w, r, request.TenantParam(r))
	return tenantID, id, ok
}

// decode parses and validates the body into v, writing a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := request.Decode(r, v); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// writeList writes a cursor page; the cursor is the id of the last item.
func writeList[T any](w http.ResponseWriter, r *http.Request, items []T, hasMore bool, idOf func(T) string) {
	if items == nil {
		items = []T{}
	}
	var nextCursor string
	if hasMore && len(items) > 0 {
		nextCursor = idOf(items[len(items)-1])
	}
	response.WritePaginated(w, http.StatusOK, items, nextCursor, hasMore, request.ParseFields(r))
}
