package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edvin/netedge/internal/model"
)

func newSite(tenantID string) *model.Site {
	return &model.Site{
		TenantID:      tenantID,
		Name:          "branch",
		LocalEndpoint: "192.0.2.1",
		PeerEndpoint:  "198.51.100.1",
		PSK:           "s3cret",
		PriNetworks: []model.SubnetPair{
			{LocalSubnets: "10.0.0.0/24,10.0.1.0/24", PeerSubnets: "172.16.0.0/24"},
		},
	}
}

func sitesInPush(sites []model.SiteBundle) []string {
	names := make([]string, len(sites))
	for i, b := range sites {
		names[i] = b.Site.Name
	}
	return names
}

func TestSiteService_CreateActive(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	e := &mockEdge{}
	e.On("ApplySites", mock.Anything, mock.MatchedBy(func(s []model.SiteBundle) bool {
		return len(s) == 1 && s[0].Site.Status == model.StatusPendingCreate
	})).Return(nil)
	svc := NewSiteService(store, e)

	site := newSite("t1")
	require.NoError(t, svc.Create(ctx, site))

	assert.Equal(t, model.StatusActive, site.Status)
	assert.Nil(t, site.StatusMessage)
	assert.Equal(t, model.DefaultSiteMTU, site.MTU)
	assert.Equal(t, "192.0.2.1", site.LocalID)
	assert.Equal(t, "198.51.100.1", site.PeerID)
	e.AssertExpectations(t)
}

func TestSiteService_CreatePushFailureIsError(t *testing.T) {
	ctx := context.Background()
	e := &mockEdge{}
	e.On("ApplySites", mock.Anything, mock.Anything).Return(errors.New("edge unreachable"))
	svc := NewSiteService(newMemStore(), e)

	site := newSite("t1")
	require.NoError(t, svc.Create(ctx, site))

	assert.Equal(t, model.StatusError, site.Status)
	require.NotNil(t, site.StatusMessage)
	assert.Contains(t, *site.StatusMessage, "edge unreachable")
}

func TestSiteService_CreateValidation(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewSiteService(store, NoopEdge{})

	tests := []struct {
		name string
		edit func(*model.Site)
		want error
	}{
		{"missing name", func(s *model.Site) { s.Name = "" }, ErrValidation},
		{"bad endpoint", func(s *model.Site) { s.PeerEndpoint = "peer.example" }, ErrValidation},
		{"mtu too small", func(s *model.Site) { s.MTU = 20 }, ErrValidation},
		{"no subnets", func(s *model.Site) { s.PriNetworks = nil }, ErrValidation},
		{"dash in local subnet", func(s *model.Site) { s.PriNetworks[0].LocalSubnets = "10.0.0.1-10.0.0.9" }, ErrValidation},
		{"missing psk", func(s *model.Site) { s.PSK = "" }, ErrValidation},
		{"unknown policy", func(s *model.Site) { id := "nope"; s.IPSecPolicyID = &id }, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			site := newSite("t1")
			tt.edit(site)
			assert.ErrorIs(t, svc.Create(ctx, site), tt.want)
		})
	}
	assert.Empty(t, store.data.sites)
}

func TestSiteService_DuplicateEndpoints(t *testing.T) {
	ctx := context.Background()
	svc := NewSiteService(newMemStore(), NoopEdge{})

	require.NoError(t, svc.Create(ctx, newSite("t1")))
	assert.ErrorIs(t, svc.Create(ctx, newSite("t1")), ErrConflict)
	assert.NoError(t, svc.Create(ctx, newSite("t2")))
}

func TestSiteService_CertificateAuthNeedsNoPSK(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	isakmp := NewIsakmpPolicyService(store, NoopEdge{})
	svc := NewSiteService(store, NoopEdge{})

	p := &model.IsakmpPolicy{TenantID: "t1", Name: "cert", AuthenticationMode: "x.509", EnablePFS: true}
	require.NoError(t, isakmp.Create(ctx, p))

	site := newSite("t1")
	site.PSK = ""
	site.IsakmpPolicyID = &p.ID
	assert.NoError(t, svc.Create(ctx, site))
}

func TestSiteService_ForeignPolicyNotFound(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	policies := NewIPSecPolicyService(store, NoopEdge{})
	svc := NewSiteService(store, NoopEdge{})

	p := &model.IPSecPolicy{TenantID: "t2", Name: "other"}
	require.NoError(t, policies.Create(ctx, p))

	site := newSite("t1")
	site.IPSecPolicyID = &p.ID
	assert.ErrorIs(t, svc.Create(ctx, site), ErrNotFound)
}

func TestSiteService_Update(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	e := &mockEdge{}
	e.On("ApplySites", mock.Anything, mock.Anything).Return(nil).Once()
	svc := NewSiteService(store, e)

	site := newSite("t1")
	require.NoError(t, svc.Create(ctx, site))

	e.On("ApplySites", mock.Anything, mock.MatchedBy(func(s []model.SiteBundle) bool {
		return len(s) == 1 && s[0].Site.Status == model.StatusPendingUpdate && s[0].Site.MTU == 1400
	})).Return(nil).Once()

	mtu := 1400
	updated, err := svc.Update(ctx, "t1", site.ID, SitePatch{MTU: &mtu})
	require.NoError(t, err)
	assert.Equal(t, 1400, updated.MTU)
	assert.Equal(t, model.StatusActive, updated.Status)
	e.AssertExpectations(t)

	_, err = svc.Update(ctx, "t2", site.ID, SitePatch{MTU: &mtu})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSiteService_UpdateRecoversFromError(t *testing.T) {
	ctx := context.Background()
	e := &mockEdge{}
	e.On("ApplySites", mock.Anything, mock.Anything).Return(errors.New("boom")).Once()
	e.On("ApplySites", mock.Anything, mock.Anything).Return(nil)
	svc := NewSiteService(newMemStore(), e)

	site := newSite("t1")
	require.NoError(t, svc.Create(ctx, site))
	require.Equal(t, model.StatusError, site.Status)

	updated, err := svc.Update(ctx, "t1", site.ID, SitePatch{})
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, updated.Status)
	assert.Nil(t, updated.StatusMessage)
}

func TestSiteService_Delete(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	e := &mockEdge{}
	e.On("ApplySites", mock.Anything, mock.Anything).Return(nil).Twice()
	svc := NewSiteService(store, e)

	keep := newSite("t1")
	keep.Name = "keep"
	require.NoError(t, svc.Create(ctx, keep))
	gone := newSite("t1")
	gone.Name = "gone"
	gone.PeerEndpoint = "198.51.100.2"
	require.NoError(t, svc.Create(ctx, gone))

	var pushed []string
	e.On("ApplySites", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		pushed = sitesInPush(args.Get(1).([]model.SiteBundle))
	}).Return(nil).Once()

	require.NoError(t, svc.Delete(ctx, "t1", gone.ID))
	assert.Equal(t, []string{"keep"}, pushed)
	_, err := svc.Get(ctx, "t1", gone.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSiteService_DeletePushFailureKeepsRow(t *testing.T) {
	ctx := context.Background()
	e := &mockEdge{}
	e.On("ApplySites", mock.Anything, mock.Anything).Return(nil).Once()
	svc := NewSiteService(newMemStore(), e)

	site := newSite("t1")
	require.NoError(t, svc.Create(ctx, site))

	e.On("ApplySites", mock.Anything, mock.Anything).Return(errors.New("timeout")).Once()
	err := svc.Delete(ctx, "t1", site.ID)
	require.Error(t, err)

	got, err := svc.Get(ctx, "t1", site.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusError, got.Status)
}

func TestSiteService_PendingDeleteIsImmutable(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewSiteService(store, NoopEdge{})

	site := newSite("t1")
	require.NoError(t, svc.Create(ctx, site))
	stuck := store.data.sites[site.ID]
	stuck.Status = model.StatusPendingDelete
	store.data.sites[site.ID] = stuck

	name := "renamed"
	_, err := svc.Update(ctx, "t1", site.ID, SitePatch{Name: &name})
	assert.ErrorIs(t, err, ErrStateInvalid)
	assert.ErrorIs(t, svc.Delete(ctx, "t1", site.ID), ErrStateInvalid)
}
