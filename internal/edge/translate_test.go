package edge

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/netedge/internal/model"
)

// memXRefs is an in-memory XRefStore.
type memXRefs map[model.XRefKind]map[string]string

func (m memXRefs) LookupXRef(_ context.Context, kind model.XRefKind, uuid string) (string, bool, error) {
	id, ok := m[kind][uuid]
	return id, ok, nil
}

func (m memXRefs) PutXRef(_ context.Context, x model.EdgeXRef) error {
	if m[x.Kind] == nil {
		m[x.Kind] = map[string]string{}
	}
	m[x.Kind][x.UUID] = x.DeviceID
	return nil
}

func (m memXRefs) DeleteXRef(_ context.Context, kind model.XRefKind, uuid string) error {
	delete(m[kind], uuid)
	return nil
}

func TestToDeviceRule(t *testing.T) {
	xrefs := memXRefs{}
	require.NoError(t, xrefs.PutXRef(context.Background(), model.EdgeXRef{Kind: model.XRefIPObj, UUID: "ip-1", DeviceID: "ipset-1"}))
	require.NoError(t, xrefs.PutXRef(context.Background(), model.EdgeXRef{Kind: model.XRefServiceObj, UUID: "svc-1", DeviceID: "application-9"}))

	zone := "zone-1"
	rule := model.Rule{
		ID:      "r1",
		Name:    "allow",
		Accept:  true,
		Enabled: true,
		Source: model.RuleEndpoint{
			Addresses: []string{"10.0.0.0/24"},
			IPObjIDs:  []string{"ip-1"},
			ZoneID:    &zone,
		},
		Service: model.RuleService{
			Services: []model.ServiceSpec{
				{Protocol: "tcp", Values: json.RawMessage(`["80",443]`), SourcePorts: json.RawMessage(`["1024-65535"]`)},
				{Protocol: "icmp", Values: json.RawMessage(`["0","8"]`)},
				{Protocol: "icmp"},
			},
			ServiceObjIDs: []string{"svc-1"},
		},
	}

	dr, err := ToDeviceRule(context.Background(), xrefs, rule)
	require.NoError(t, err)

	out, err := json.Marshal(dr)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"name": "allow",
		"description": "",
		"enabled": true,
		"loggingEnabled": false,
		"action": "accept",
		"source": {"ipAddress": ["10.0.0.0/24"], "groupingObjectId": ["ipset-1"], "vnicGroupId": []},
		"destination": {"ipAddress": [], "groupingObjectId": [], "vnicGroupId": []},
		"application": {
			"applicationId": ["application-9"],
			"service": [
				{"protocol": "tcp", "port": ["80", "443"], "sourcePort": ["1024-65535"]},
				{"protocol": "icmp", "icmpType": "0"},
				{"protocol": "icmp", "icmpType": "8"},
				{"protocol": "icmp"}
			]
		}
	}`, string(out))
}

func TestToDeviceRule_ReferenceNotPushed(t *testing.T) {
	rule := model.Rule{
		ID:          "r1",
		Name:        "deny",
		Destination: model.RuleEndpoint{IPObjIDs: []string{"ip-missing"}},
	}
	_, err := ToDeviceRule(context.Background(), memXRefs{}, rule)
	assert.ErrorIs(t, err, ErrReferenceNotPushed)

	dr, err := ToDeviceRule(context.Background(), memXRefs{}, model.Rule{Name: "deny"})
	require.NoError(t, err)
	assert.Equal(t, "drop", dr.Action)
}

func TestToDeviceIPSet(t *testing.T) {
	set := ToDeviceIPSet(model.IPObj{Name: "web", Description: "d", Value: []string{"10.0.0.1", "10.0.1.0/24"}})
	assert.Equal(t, DeviceIPSet{Name: "web", Description: "d", Value: "10.0.0.1,10.0.1.0/24"}, set)
}

func TestToDeviceApplication(t *testing.T) {
	app, err := ToDeviceApplication(model.ServiceObj{
		Name:        "dns",
		Protocol:    "udp",
		Values:      json.RawMessage(`[53]`),
		SourcePorts: json.RawMessage(`["1024-65535"]`),
	})
	require.NoError(t, err)
	assert.Equal(t, DeviceAppElement{ApplicationProtocol: "UDP", Value: "53", SourcePort: "1024-65535"}, app.Element)
}

func TestToDeviceSites_Defaults(t *testing.T) {
	b := model.SiteBundle{Site: model.Site{
		Name:          "branch",
		LocalEndpoint: "1.1.1.1",
		PeerEndpoint:  "2.2.2.2",
		LocalID:       "1.1.1.1",
		PeerID:        "2.2.2.2",
		PSK:           "s3cret",
		PriNetworks: []model.SubnetPair{
			{LocalSubnets: "10.0.0.0/24,10.0.1.0/24", PeerSubnets: "192.168.0.0/24"},
			{LocalSubnets: "10.0.2.0/24", PeerSubnets: "192.168.1.0/24"},
		},
	}}

	sites := ToDeviceSites(b)
	require.Len(t, sites, 2)
	assert.Equal(t, "branch", sites[0].Name)
	assert.Equal(t, "branch-2", sites[1].Name)
	assert.Equal(t, []string{"10.0.0.0/24", "10.0.1.0/24"}, sites[0].LocalSubnets.Subnets)
	assert.Equal(t, []string{"192.168.1.0/24"}, sites[1].PeerSubnets.Subnets)
	assert.Equal(t, "aes256", sites[0].EncryptionAlgorithm)
	assert.Equal(t, "dh2", sites[0].DHGroup)
	assert.Equal(t, model.DefaultSiteMTU, sites[0].MTU)
	assert.True(t, sites[0].EnablePFS)
	assert.Equal(t, AuthModePSK, sites[0].AuthenticationMode)
	require.NotNil(t, sites[0].PSK)
	assert.Equal(t, "s3cret", *sites[0].PSK)
	assert.Nil(t, sites[0].Certificate)
}

func TestToDeviceSites_Policies(t *testing.T) {
	b := model.SiteBundle{
		Site: model.Site{
			Name:        "hq",
			MTU:         1400,
			PSK:         "unused",
			PriNetworks: []model.SubnetPair{{LocalSubnets: "10.0.0.0/8", PeerSubnets: "172.16.0.0/12"}},
		},
		IPSecPolicy:  &model.IPSecPolicy{EncryptionAlgorithm: "aes", DHGroup: "5"},
		IsakmpPolicy: &model.IsakmpPolicy{AuthenticationMode: "x.509", DHGroup: "group14", EnablePFS: false},
		TrustProfile: &model.TrustProfile{ServerCertificate: "cert-1"},
	}

	sites := ToDeviceSites(b)
	require.Len(t, sites, 1)
	s := sites[0]
	assert.Equal(t, 1400, s.MTU)
	assert.Equal(t, "aes", s.EncryptionAlgorithm)
	assert.Equal(t, "dh14", s.DHGroup)
	assert.False(t, s.EnablePFS)
	assert.Equal(t, AuthModeCertificate, s.AuthenticationMode)
	assert.Nil(t, s.PSK)
	require.NotNil(t, s.Certificate)
	assert.Equal(t, "cert-1", *s.Certificate)

	cfg := ToIPSecConfig([]model.SiteBundle{b})
	assert.True(t, cfg.Enabled)
	require.NotNil(t, cfg.Global.ServiceCertificate)
	assert.Equal(t, "cert-1", *cfg.Global.ServiceCertificate)
	assert.Nil(t, cfg.Global.PSK)
}

func TestToIPSecConfig_JSON(t *testing.T) {
	out, err := json.Marshal(ToIPSecConfig(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"enabled": false,
		"logging": {"enable": true, "logLevel": "info"},
		"global": {"psk": null, "serviceCertificate": null},
		"sites": {"sites": []}
	}`, string(out))
}
