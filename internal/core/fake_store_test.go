package core

import (
	"context"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/edvin/netedge/internal/edge"
	"github.com/edvin/netedge/internal/model"
	"github.com/edvin/netedge/internal/rulechain"
)

// memStore is an in-memory Store. A failed unit of work restores the state
// it started from.
type memStore struct {
	data memData
	txs  int
}

type memData struct {
	rules       map[string]model.Rule
	nodes       map[string]rulechain.Node
	ipobjs      map[string]model.IPObj
	serviceobjs map[string]model.ServiceObj
	zones       map[string]model.Zone
	ipsec       map[string]model.IPSecPolicy
	isakmp      map[string]model.IsakmpPolicy
	trust       map[string]model.TrustProfile
	sites       map[string]model.Site
	xrefs       map[string]model.EdgeXRef
}

func newMemStore() *memStore {
	return &memStore{data: memData{
		rules:       map[string]model.Rule{},
		nodes:       map[string]rulechain.Node{},
		ipobjs:      map[string]model.IPObj{},
		serviceobjs: map[string]model.ServiceObj{},
		zones:       map[string]model.Zone{},
		ipsec:       map[string]model.IPSecPolicy{},
		isakmp:      map[string]model.IsakmpPolicy{},
		trust:       map[string]model.TrustProfile{},
		sites:       map[string]model.Site{},
		xrefs:       map[string]model.EdgeXRef{},
	}}
}

func (d memData) clone() memData {
	return memData{
		rules:       maps.Clone(d.rules),
		nodes:       maps.Clone(d.nodes),
		ipobjs:      maps.Clone(d.ipobjs),
		serviceobjs: maps.Clone(d.serviceobjs),
		zones:       maps.Clone(d.zones),
		ipsec:       maps.Clone(d.ipsec),
		isakmp:      maps.Clone(d.isakmp),
		trust:       maps.Clone(d.trust),
		sites:       maps.Clone(d.sites),
		xrefs:       maps.Clone(d.xrefs),
	}
}

func (m *memStore) WithTx(_ context.Context, fn func(tx Tx) error) error {
	m.txs++
	snapshot := m.data.clone()
	if err := fn(&memTx{d: &m.data}); err != nil {
		m.data = snapshot
		return err
	}
	return nil
}

type memTx struct {
	d *memData
}

func xrefKey(kind model.XRefKind, uuid string) string { return string(kind) + "/" + uuid }

func (t *memTx) LookupXRef(_ context.Context, kind model.XRefKind, uuid string) (string, bool, error) {
	x, ok := t.d.xrefs[xrefKey(kind, uuid)]
	return x.DeviceID, ok, nil
}

func (t *memTx) PutXRef(_ context.Context, x model.EdgeXRef) error {
	t.d.xrefs[xrefKey(x.Kind, x.UUID)] = x
	return nil
}

func (t *memTx) DeleteXRef(_ context.Context, kind model.XRefKind, uuid string) error {
	delete(t.d.xrefs, xrefKey(kind, uuid))
	return nil
}

func (t *memTx) LockRuleChain(context.Context, string) error { return nil }

func (t *memTx) RuleChain(tenantID string) rulechain.Store {
	return &memChain{d: t.d, tenantID: tenantID}
}

func (t *memTx) ListRuleNodes(_ context.Context, tenantID string) ([]rulechain.Node, error) {
	var out []rulechain.Node
	for _, n := range t.d.nodes {
		if n.TenantID == tenantID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (t *memTx) InsertRule(_ context.Context, r *model.Rule) error {
	r.CreatedAt, r.UpdatedAt = time.Now(), time.Now()
	t.d.rules[r.ID] = *r
	return nil
}

func (t *memTx) UpdateRule(_ context.Context, r *model.Rule) error {
	cur, ok := t.d.rules[r.ID]
	if !ok {
		return ErrNotFound
	}
	r.CreatedAt, r.UpdatedAt = cur.CreatedAt, time.Now()
	t.d.rules[r.ID] = *r
	return nil
}

func (t *memTx) GetRule(_ context.Context, tenantID, id string) (*model.Rule, error) {
	return getScoped(t.d.rules, tenantID, id, func(r model.Rule) string { return r.TenantID })
}

func (t *memTx) ListRules(_ context.Context, tenantID string) ([]model.Rule, error) {
	var out []model.Rule
	for _, r := range t.d.rules {
		if r.TenantID == tenantID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (t *memTx) DeleteRule(_ context.Context, tenantID, id string) error {
	if _, err := t.GetRule(context.Background(), tenantID, id); err != nil {
		return err
	}
	delete(t.d.rules, id)
	delete(t.d.nodes, id)
	return nil
}

func (t *memTx) InsertIPObj(_ context.Context, o *model.IPObj) error {
	o.CreatedAt, o.UpdatedAt = time.Now(), time.Now()
	t.d.ipobjs[o.ID] = *o
	return nil
}

func (t *memTx) GetIPObj(_ context.Context, tenantID, id string) (*model.IPObj, error) {
	return getScoped(t.d.ipobjs, tenantID, id, func(o model.IPObj) string { return o.TenantID })
}

func (t *memTx) ListIPObjs(_ context.Context, tenantID string, f ListFilter) ([]model.IPObj, bool, error) {
	out, more := page(t.d.ipobjs, f, func(o model.IPObj) bool {
		return o.TenantID == tenantID && (f.Name == "" || o.Name == f.Name)
	}, func(o model.IPObj) string { return o.ID })
	return out, more, nil
}

func (t *memTx) DeleteIPObj(_ context.Context, tenantID, id string) error {
	delete(t.d.ipobjs, id)
	return nil
}

func (t *memTx) IPObjInUse(_ context.Context, id string) (bool, error) {
	for _, r := range t.d.rules {
		if slices.Contains(r.ReferencedIPObjs(), id) {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) InsertServiceObj(_ context.Context, o *model.ServiceObj) error {
	o.CreatedAt, o.UpdatedAt = time.Now(), time.Now()
	t.d.serviceobjs[o.ID] = *o
	return nil
}

func (t *memTx) GetServiceObj(_ context.Context, tenantID, id string) (*model.ServiceObj, error) {
	return getScoped(t.d.serviceobjs, tenantID, id, func(o model.ServiceObj) string { return o.TenantID })
}

func (t *memTx) ListServiceObjs(_ context.Context, tenantID string, f ListFilter) ([]model.ServiceObj, bool, error) {
	out, more := page(t.d.serviceobjs, f, func(o model.ServiceObj) bool {
		return o.TenantID == tenantID && (f.Protocol == "" || o.Protocol == f.Protocol)
	}, func(o model.ServiceObj) string { return o.ID })
	return out, more, nil
}

func (t *memTx) DeleteServiceObj(_ context.Context, tenantID, id string) error {
	delete(t.d.serviceobjs, id)
	return nil
}

func (t *memTx) ServiceObjInUse(_ context.Context, id string) (bool, error) {
	for _, r := range t.d.rules {
		if slices.Contains(r.Service.ServiceObjIDs, id) {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) InsertZone(_ context.Context, z *model.Zone) error {
	z.CreatedAt, z.UpdatedAt = time.Now(), time.Now()
	t.d.zones[z.ID] = *z
	return nil
}

func (t *memTx) GetZone(_ context.Context, tenantID, id string) (*model.Zone, error) {
	return getScoped(t.d.zones, tenantID, id, func(z model.Zone) string { return z.TenantID })
}

func (t *memTx) ListZones(_ context.Context, tenantID string, f ListFilter) ([]model.Zone, bool, error) {
	out, more := page(t.d.zones, f, func(z model.Zone) bool { return z.TenantID == tenantID },
		func(z model.Zone) string { return z.ID })
	return out, more, nil
}

func (t *memTx) DeleteZone(_ context.Context, tenantID, id string) error {
	delete(t.d.zones, id)
	return nil
}

func (t *memTx) ZoneInUse(_ context.Context, id string) (bool, error) {
	for _, r := range t.d.rules {
		for _, z := range []*string{r.Source.ZoneID, r.Destination.ZoneID} {
			if z != nil && *z == id {
				return true, nil
			}
		}
	}
	return false, nil
}

func (t *memTx) InsertIPSecPolicy(_ context.Context, p *model.IPSecPolicy) error {
	t.d.ipsec[p.ID] = *p
	return nil
}

func (t *memTx) GetIPSecPolicy(_ context.Context, tenantID, id string) (*model.IPSecPolicy, error) {
	return getScoped(t.d.ipsec, tenantID, id, func(p model.IPSecPolicy) string { return p.TenantID })
}

func (t *memTx) ListIPSecPolicies(_ context.Context, tenantID string, f ListFilter) ([]model.IPSecPolicy, bool, error) {
	out, more := page(t.d.ipsec, f, func(p model.IPSecPolicy) bool { return p.TenantID == tenantID },
		func(p model.IPSecPolicy) string { return p.ID })
	return out, more, nil
}

func (t *memTx) UpdateIPSecPolicy(_ context.Context, p *model.IPSecPolicy) error {
	t.d.ipsec[p.ID] = *p
	return nil
}

func (t *memTx) InsertIsakmpPolicy(_ context.Context, p *model.IsakmpPolicy) error {
	t.d.isakmp[p.ID] = *p
	return nil
}

func (t *memTx) GetIsakmpPolicy(_ context.Context, tenantID, id string) (*model.IsakmpPolicy, error) {
	return getScoped(t.d.isakmp, tenantID, id, func(p model.IsakmpPolicy) string { return p.TenantID })
}

func (t *memTx) ListIsakmpPolicies(_ context.Context, tenantID string, f ListFilter) ([]model.IsakmpPolicy, bool, error) {
	out, more := page(t.d.isakmp, f, func(p model.IsakmpPolicy) bool { return p.TenantID == tenantID },
		func(p model.IsakmpPolicy) string { return p.ID })
	return out, more, nil
}

func (t *memTx) UpdateIsakmpPolicy(_ context.Context, p *model.IsakmpPolicy) error {
	t.d.isakmp[p.ID] = *p
	return nil
}

func (t *memTx) InsertTrustProfile(_ context.Context, p *model.TrustProfile) error {
	t.d.trust[p.ID] = *p
	return nil
}

func (t *memTx) GetTrustProfile(_ context.Context, tenantID, id string) (*model.TrustProfile, error) {
	return getScoped(t.d.trust, tenantID, id, func(p model.TrustProfile) string { return p.TenantID })
}

func (t *memTx) ListTrustProfiles(_ context.Context, tenantID string, f ListFilter) ([]model.TrustProfile, bool, error) {
	out, more := page(t.d.trust, f, func(p model.TrustProfile) bool { return p.TenantID == tenantID },
		func(p model.TrustProfile) string { return p.ID })
	return out, more, nil
}

func (t *memTx) UpdateTrustProfile(_ context.Context, p *model.TrustProfile) error {
	t.d.trust[p.ID] = *p
	return nil
}

func (t *memTx) InsertSite(_ context.Context, s *model.Site) error {
	t.d.sites[s.ID] = *s
	return nil
}

func (t *memTx) GetSite(_ context.Context, tenantID, id string) (*model.Site, error) {
	return getScoped(t.d.sites, tenantID, id, func(s model.Site) string { return s.TenantID })
}

func (t *memTx) ListSites(_ context.Context, tenantID string, f ListFilter) ([]model.Site, bool, error) {
	out, more := page(t.d.sites, f, func(s model.Site) bool {
		return s.TenantID == tenantID && (f.Status == "" || s.Status == f.Status)
	}, func(s model.Site) string { return s.ID })
	return out, more, nil
}

func (t *memTx) UpdateSite(_ context.Context, s *model.Site) error {
	t.d.sites[s.ID] = *s
	return nil
}

func (t *memTx) SiteEndpointsTaken(_ context.Context, tenantID, local, peer, excludeID string) (bool, error) {
	for _, s := range t.d.sites {
		if s.ID != excludeID && s.TenantID == tenantID && s.LocalEndpoint == local && s.PeerEndpoint == peer {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) SitesUsingPolicy(_ context.Context, kind VPNKind, id string) (int, error) {
	n := 0
	for _, s := range t.d.sites {
		var ref *string
		switch kind {
		case KindIPSecPolicy:
			ref = s.IPSecPolicyID
		case KindIsakmpPolicy:
			ref = s.IsakmpPolicyID
		case KindTrustProfile:
			ref = s.TrustProfileID
		}
		if ref != nil && *ref == id {
			n++
		}
	}
	return n, nil
}

func (t *memTx) ListEdgeSites(context.Context) ([]model.SiteBundle, error) {
	ids := slices.Sorted(maps.Keys(t.d.sites))
	var out []model.SiteBundle
	for _, id := range ids {
		s := t.d.sites[id]
		if s.Status == model.StatusPendingDelete {
			continue
		}
		b := model.SiteBundle{Site: s}
		if s.IPSecPolicyID != nil {
			p := t.d.ipsec[*s.IPSecPolicyID]
			b.IPSecPolicy = &p
		}
		if s.IsakmpPolicyID != nil {
			p := t.d.isakmp[*s.IsakmpPolicyID]
			b.IsakmpPolicy = &p
		}
		if s.TrustProfileID != nil {
			p := t.d.trust[*s.TrustProfileID]
			b.TrustProfile = &p
		}
		out = append(out, b)
	}
	return out, nil
}

func (t *memTx) LockEdgeConfig(context.Context) error { return nil }

func (t *memTx) GetVPNStatus(ctx context.Context, kind VPNKind, tenantID, id string) (string, error) {
	switch kind {
	case KindSite:
		s, err := t.GetSite(ctx, tenantID, id)
		if err != nil {
			return "", err
		}
		return s.Status, nil
	case KindIPSecPolicy:
		p, err := t.GetIPSecPolicy(ctx, tenantID, id)
		if err != nil {
			return "", err
		}
		return p.Status, nil
	case KindIsakmpPolicy:
		p, err := t.GetIsakmpPolicy(ctx, tenantID, id)
		if err != nil {
			return "", err
		}
		return p.Status, nil
	default:
		p, err := t.GetTrustProfile(ctx, tenantID, id)
		if err != nil {
			return "", err
		}
		return p.Status, nil
	}
}

func (t *memTx) SetVPNStatus(_ context.Context, kind VPNKind, id, status string, msg *string) error {
	switch kind {
	case KindSite:
		s := t.d.sites[id]
		s.Status, s.StatusMessage = status, msg
		t.d.sites[id] = s
	case KindIPSecPolicy:
		p := t.d.ipsec[id]
		p.Status, p.StatusMessage = status, msg
		t.d.ipsec[id] = p
	case KindIsakmpPolicy:
		p := t.d.isakmp[id]
		p.Status, p.StatusMessage = status, msg
		t.d.isakmp[id] = p
	case KindTrustProfile:
		p := t.d.trust[id]
		p.Status, p.StatusMessage = status, msg
		t.d.trust[id] = p
	}
	return nil
}

func (t *memTx) DeleteVPNResource(_ context.Context, kind VPNKind, id string) error {
	switch kind {
	case KindSite:
		delete(t.d.sites, id)
	case KindIPSecPolicy:
		delete(t.d.ipsec, id)
	case KindIsakmpPolicy:
		delete(t.d.isakmp, id)
	case KindTrustProfile:
		delete(t.d.trust, id)
	}
	return nil
}

// memChain is the rule chain of one tenant inside a memTx.
type memChain struct {
	d        *memData
	tenantID string
}

func (c *memChain) Node(_ context.Context, id string) (*rulechain.Node, error) {
	n, ok := c.d.nodes[id]
	if !ok || n.TenantID != c.tenantID {
		return nil, rulechain.ErrNodeNotFound
	}
	return &n, nil
}

func (c *memChain) Tail(_ context.Context) (*rulechain.Node, error) {
	var tail *rulechain.Node
	for _, n := range c.d.nodes {
		if n.TenantID != c.tenantID || n.NextID != nil {
			continue
		}
		if tail != nil {
			return nil, rulechain.Corrupt(c.tenantID, "multiple tails")
		}
		tail = &n
	}
	return tail, nil
}

func (c *memChain) Insert(_ context.Context, n *rulechain.Node) error {
	c.d.nodes[n.ID] = *n
	return nil
}

func (c *memChain) SetLinks(_ context.Context, id string, prevID, nextID *string) error {
	n, ok := c.d.nodes[id]
	if !ok {
		return rulechain.ErrNodeNotFound
	}
	n.PrevID, n.NextID = prevID, nextID
	c.d.nodes[id] = n
	return nil
}

func (c *memChain) Delete(_ context.Context, id string) error {
	delete(c.d.nodes, id)
	return nil
}

func getScoped[T any](m map[string]T, tenantID, id string, tenant func(T) string) (*T, error) {
	v, ok := m[id]
	if !ok || tenant(v) != tenantID {
		return nil, ErrNotFound
	}
	return &v, nil
}

func page[T any](m map[string]T, f ListFilter, keep func(T) bool, id func(T) string) ([]T, bool) {
	var out []T
	for _, k := range slices.Sorted(maps.Keys(m)) {
		v := m[k]
		if keep(v) && strings.Compare(id(v), f.Cursor) > 0 {
			out = append(out, v)
		}
	}
	if f.Limit > 0 && len(out) > f.Limit {
		return out[:f.Limit], true
	}
	return out, false
}

// mockEdge is a testify mock of EdgeSync.
type mockEdge struct {
	mock.Mock
}

var _ EdgeSync = (*mockEdge)(nil)

func (m *mockEdge) CreateIPObj(ctx context.Context, xrefs edge.XRefStore, obj model.IPObj) error {
	return m.Called(ctx, xrefs, obj).Error(0)
}

func (m *mockEdge) DeleteIPObj(ctx context.Context, xrefs edge.XRefStore, id string) error {
	return m.Called(ctx, xrefs, id).Error(0)
}

func (m *mockEdge) CreateServiceObj(ctx context.Context, xrefs edge.XRefStore, obj model.ServiceObj) error {
	return m.Called(ctx, xrefs, obj).Error(0)
}

func (m *mockEdge) DeleteServiceObj(ctx context.Context, xrefs edge.XRefStore, id string) error {
	return m.Called(ctx, xrefs, id).Error(0)
}

func (m *mockEdge) CreateRule(ctx context.Context, xrefs edge.XRefStore, rule model.Rule, beforeID *string) error {
	return m.Called(ctx, xrefs, rule, beforeID).Error(0)
}

func (m *mockEdge) UpdateRule(ctx context.Context, xrefs edge.XRefStore, rule model.Rule) error {
	return m.Called(ctx, xrefs, rule).Error(0)
}

func (m *mockEdge) DeleteRule(ctx context.Context, xrefs edge.XRefStore, id string) error {
	return m.Called(ctx, xrefs, id).Error(0)
}

func (m *mockEdge) ApplySites(ctx context.Context, sites []model.SiteBundle) error {
	return m.Called(ctx, sites).Error(0)
}
