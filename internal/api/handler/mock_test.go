package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/edvin/netedge/internal/compose"
	"github.com/edvin/netedge/internal/core"
	"github.com/edvin/netedge/internal/model"
)

type mockRuleService struct{ mock.Mock }

func (m *mockRuleService) Create(ctx context.Context, tenantID string, doc compose.Document, location string) (*compose.Document, error) {
	args := m.Called(ctx, tenantID, doc, location)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*compose.Document), args.Error(1)
}

func (m *mockRuleService) Get(ctx context.Context, tenantID, id string) (*compose.Document, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*compose.Document), args.Error(1)
}

func (m *mockRuleService) List(ctx context.Context, tenantID string, f core.RuleFilter) ([]compose.Document, error) {
	args := m.Called(ctx, tenantID, f)
	docs, _ := args.Get(0).([]compose.Document)
	return docs, args.Error(1)
}

func (m *mockRuleService) Update(ctx context.Context, tenantID, id string, p core.RulePatch) (*compose.Document, error) {
	args := m.Called(ctx, tenantID, id, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*compose.Document), args.Error(1)
}

func (m *mockRuleService) Delete(ctx context.Context, tenantID, id string) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

type mockIPObjService struct{ mock.Mock }

func (m *mockIPObjService) Create(ctx context.Context, obj *model.IPObj) error {
	return m.Called(ctx, obj).Error(0)
}

func (m *mockIPObjService) Get(ctx context.Context, tenantID, id string) (*model.IPObj, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.IPObj), args.Error(1)
}

func (m *mockIPObjService) List(ctx context.Context, tenantID string, f core.ListFilter) ([]model.IPObj, bool, error) {
	args := m.Called(ctx, tenantID, f)
	objs, _ := args.Get(0).([]model.IPObj)
	return objs, args.Bool(1), args.Error(2)
}

func (m *mockIPObjService) Delete(ctx context.Context, tenantID, id string) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

type mockServiceObjService struct{ mock.Mock }

func (m *mockServiceObjService) Create(ctx context.Context, tenantID string, doc compose.ServiceObjDocument) (*model.ServiceObj, error) {
	args := m.Called(ctx, tenantID, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ServiceObj), args.Error(1)
}

func (m *mockServiceObjService) Get(ctx context.Context, tenantID, id string) (*model.ServiceObj, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ServiceObj), args.Error(1)
}

func (m *mockServiceObjService) List(ctx context.Context, tenantID string, f core.ListFilter) ([]model.ServiceObj, bool, error) {
	args := m.Called(ctx, tenantID, f)
	objs, _ := args.Get(0).([]model.ServiceObj)
	return objs, args.Bool(1), args.Error(2)
}

func (m *mockServiceObjService) Delete(ctx context.Context, tenantID, id string) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

type mockSiteService struct{ mock.Mock }

func (m *mockSiteService) Create(ctx context.Context, site *model.Site) error {
	return m.Called(ctx, site).Error(0)
}

func (m *mockSiteService) Get(ctx context.Context, tenantID, id string) (*model.Site, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Site), args.Error(1)
}

func (m *mockSiteService) List(ctx context.Context, tenantID string, f core.ListFilter) ([]model.Site, bool, error) {
	args := m.Called(ctx, tenantID, f)
	sites, _ := args.Get(0).([]model.Site)
	return sites, args.Bool(1), args.Error(2)
}

func (m *mockSiteService) Update(ctx context.Context, tenantID, id string, p core.SitePatch) (*model.Site, error) {
	args := m.Called(ctx, tenantID, id, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Site), args.Error(1)
}

func (m *mockSiteService) Delete(ctx context.Context, tenantID, id string) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

type mockIsakmpPolicyService struct{ mock.Mock }

func (m *mockIsakmpPolicyService) Create(ctx context.Context, p *model.IsakmpPolicy) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockIsakmpPolicyService) Get(ctx context.Context, tenantID, id string) (*model.IsakmpPolicy, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.IsakmpPolicy), args.Error(1)
}

func (m *mockIsakmpPolicyService) List(ctx context.Context, tenantID string, f core.ListFilter) ([]model.IsakmpPolicy, bool, error) {
	args := m.Called(ctx, tenantID, f)
	ps, _ := args.Get(0).([]model.IsakmpPolicy)
	return ps, args.Bool(1), args.Error(2)
}

func (m *mockIsakmpPolicyService) Update(ctx context.Context, tenantID, id string, p core.IsakmpPolicyPatch) (*model.IsakmpPolicy, error) {
	args := m.Called(ctx, tenantID, id, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.IsakmpPolicy), args.Error(1)
}

func (m *mockIsakmpPolicyService) Delete(ctx context.Context, tenantID, id string) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

type mockAPIKeyService struct{ mock.Mock }

func (m *mockAPIKeyService) Create(ctx context.Context, name, tenantID string, isAdmin bool) (*model.APIKey, string, error) {
	args := m.Called(ctx, name, tenantID, isAdmin)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*model.APIKey), args.String(1), args.Error(2)
}

func (m *mockAPIKeyService) List(ctx context.Context, tenantID string, limit int, cursor string) ([]model.APIKey, bool, error) {
	args := m.Called(ctx, tenantID, limit, cursor)
	keys, _ := args.Get(0).([]model.APIKey)
	return keys, args.Bool(1), args.Error(2)
}

func (m *mockAPIKeyService) Revoke(ctx context.Context, tenantID, id string) error {
	return m.Called(ctx, tenantID, id).Error(0)
}
