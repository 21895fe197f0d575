package handler

import (
	"context"
	"net/http"

	"github.com/edvin/netedge/internal/api/request"
	"github.com/edvin/netedge/internal/api/response"
	"github.com/edvin/netedge/internal/compose"
	"github.com/edvin/netedge/internal/core"
)

type ruleService interface {
	Create(ctx context.Context, tenantID string, doc compose.Document, location string) (*compose.Document, error)
	Get(ctx context.Context, tenantID, id string) (*compose.Document, error)
	List(ctx context.Context, tenantID string, f core.RuleFilter) ([]compose.Document, error)
	Update(ctx context.Context, tenantID, id string, p core.RulePatch) (*compose.Document, error)
	Delete(ctx context.Context, tenantID, id string) error
}

// Rule serves /fw/rules. Lists come back in chain order and are not paged.
type Rule struct {
	svc ruleService
}

func NewRule(svc ruleService) *Rule {
	return &Rule{svc: svc}
}

func (h *Rule) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFor(w, r, request.TenantParam(r))
	if !ok {
		return
	}
	f, err := request.ParseRuleFilter(r)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	rules, err := h.svc.List(r.Context(), tenantID, f)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	writeList(w, r, rules, false, func(d compose.Document) string { return d.ID })
}

func (h *Rule) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateRule
	if !decode(w, r, &req) {
		return
	}
	tenantID, ok := tenantFor(w, r, req.TenantID)
	if !ok {
		return
	}

	rule, err := h.svc.Create(r.Context(), tenantID, req.Document(), req.Location)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, rule)
}

func (h *Rule) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := target(w, r)
	if !ok {
		return
	}
	rule, err := h.svc.Get(r.Context(), tenantID, id)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, rule)
}

func (h *Rule) Update(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := target(w, r)
	if !ok {
		return
	}
	var req request.UpdateRule
	if !decode(w, r, &req) {
		return
	}

	rule, err := h.svc.Update(r.Context(), tenantID, id, req.Patch())
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, rule)
}

func (h *Rule) Delete(w http.ResponseWriter, r *http.Request) {
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
