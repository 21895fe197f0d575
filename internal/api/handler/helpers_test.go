package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"

	mw "github.com/edvin/netedge/internal/api/middleware"
	"github.com/edvin/netedge/internal/core"
)

const (
	validID  = "550e8400-e29b-41d4-a716-446655440000"
	validID2 = "550e8400-e29b-41d4-a716-446655440001"
)

// newRequest creates a request with an optional JSON body, authenticated as
// a non-admin caller of tenant t1.
func newRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")
	return asCaller(r, core.Caller{APIKeyID: "k1", TenantID: "t1"})
}

func newRequestRaw(method, target, body string) *http.Request {
	r := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	r.Header.Set("Content-Type", "application/json")
	return asCaller(r, core.Caller{APIKeyID: "k1", TenantID: "t1"})
}

func asCaller(r *http.Request, c core.Caller) *http.Request {
	return r.WithContext(mw.WithCaller(r.Context(), c))
}

func asAdmin(r *http.Request) *http.Request {
	return asCaller(r, core.Caller{APIKeyID: "admin", TenantID: "ops", IsAdmin: true})
}

// withChiURLParam adds a chi URL parameter to the request context.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeErrorResponse(rec *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	return body
}

type listBody[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor"`
	HasMore    bool   `json:"has_more"`
}

func decodeList[T any](rec *httptest.ResponseRecorder) listBody[T] {
	var body listBody[T]
	json.Unmarshal(rec.Body.Bytes(), &body)
	return body
}
