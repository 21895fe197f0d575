package edge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/edvin/netedge/internal/compose"
	"github.com/edvin/netedge/internal/model"
	"github.com/edvin/netedge/internal/vpn"
)

// ErrReferenceNotPushed is returned when a rule references an object that
// has no device-side id yet.
var ErrReferenceNotPushed = errors.New("referenced object not pushed to edge")

// XRefStore persists the mapping between local ids and device ids.
type XRefStore interface {
	LookupXRef(ctx context.Context, kind model.XRefKind, uuid string) (deviceID string, found bool, err error)
	PutXRef(ctx context.Context, x model.EdgeXRef) error
	DeleteXRef(ctx context.Context, kind model.XRefKind, uuid string) error
}

type RuleEnvelope struct {
	FirewallRules []DeviceRule `json:"firewallRules"`
}

type DeviceRule struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Enabled     bool              `json:"enabled"`
	LoggingOn   bool              `json:"loggingEnabled"`
	Action      string            `json:"action"`
	Source      DeviceEndpoint    `json:"source"`
	Destination DeviceEndpoint    `json:"destination"`
	Application DeviceApplication `json:"application"`
}

type DeviceEndpoint struct {
	IPAddress        []string `json:"ipAddress"`
	GroupingObjectID []string `json:"groupingObjectId"`
	VnicGroupID      []string `json:"vnicGroupId"`
}

type DeviceApplication struct {
	ApplicationID []string        `json:"applicationId"`
	Service       []DeviceService `json:"service"`
}

type DeviceService struct {
	Protocol   string   `json:"protocol"`
	Port       []string `json:"port,omitempty"`
	SourcePort []string `json:"sourcePort,omitempty"`
	ICMPType   string   `json:"icmpType,omitempty"`
}

type DeviceIPSet struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Value       string `json:"value"`
}

type DeviceAppObject struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Element     DeviceAppElement `json:"element"`
}

type DeviceAppElement struct {
	ApplicationProtocol string `json:"applicationProtocol"`
	Value               string `json:"value,omitempty"`
	SourcePort          string `json:"sourcePort,omitempty"`
}

// ToDeviceRule maps a stored rule onto the device rule schema. Referenced
// IP and service objects are resolved through xrefs; zones have no device
// counterpart and map to an empty vnic group list.
func ToDeviceRule(ctx context.Context, xrefs XRefStore, r model.Rule) (DeviceRule, error) {
	src, err := toDeviceEndpoint(ctx, xrefs, r.Source)
	if err != nil {
		return DeviceRule{}, fmt.Errorf("source: %w", err)
	}
	dst, err := toDeviceEndpoint(ctx, xrefs, r.Destination)
	if err != nil {
		return DeviceRule{}, fmt.Errorf("destination: %w", err)
	}

	appIDs, err := resolveAll(ctx, xrefs, model.XRefServiceObj, r.Service.ServiceObjIDs)
	if err != nil {
		return DeviceRule{}, fmt.Errorf("service: %w", err)
	}
	services, err := toDeviceServices(r.Service.Services)
	if err != nil {
		return DeviceRule{}, fmt.Errorf("service: %w", err)
	}

	action := compose.ActionDrop
	if r.Accept {
		action = compose.ActionAccept
	}
	return DeviceRule{
		Name:        r.Name,
		Description: r.Description,
		Enabled:     r.Enabled,
		LoggingOn:   r.Log,
		Action:      action,
		Source:      src,
		Destination: dst,
		Application: DeviceApplication{ApplicationID: appIDs, Service: services},
	}, nil
}

// ToDeviceIPSet maps an IP object to a device IP set.
func ToDeviceIPSet(o model.IPObj) DeviceIPSet {
	return DeviceIPSet{
		Name:        o.Name,
		Description: o.Description,
		Value:       strings.Join(o.Value, ","),
	}
}

// ToDeviceApplication maps a service object to a device application.
func ToDeviceApplication(o model.ServiceObj) (DeviceAppObject, error) {
	values, err := compose.ListValues(o.Values)
	if err != nil {
		return DeviceAppObject{}, err
	}
	sourcePorts, err := compose.ListValues(o.SourcePorts)
	if err != nil {
		return DeviceAppObject{}, err
	}
	return DeviceAppObject{
		Name:        o.Name,
		Description: o.Description,
		Element: DeviceAppElement{
			ApplicationProtocol: strings.ToUpper(o.Protocol),
			Value:               strings.Join(values, ","),
			SourcePort:          strings.Join(sourcePorts, ","),
		},
	}, nil
}

func toDeviceEndpoint(ctx context.Context, xrefs XRefStore, ep model.RuleEndpoint) (DeviceEndpoint, error) {
	groups, err := resolveAll(ctx, xrefs, model.XRefIPObj, ep.IPObjIDs)
	if err != nil {
		return DeviceEndpoint{}, err
	}
	addrs := ep.Addresses
	if addrs == nil {
		addrs = []string{}
	}
	return DeviceEndpoint{
		IPAddress:        addrs,
		GroupingObjectID: groups,
		VnicGroupID:      []string{},
	}, nil
}

func toDeviceServices(specs []model.ServiceSpec) ([]DeviceService, error) {
	out := []DeviceService{}
	for _, s := range specs {
		values, err := compose.ListValues(s.Values)
		if err != nil {
			return nil, err
		}
		if model.IsICMP(s.Protocol) {
			if len(values) == 0 {
				out = append(out, DeviceService{Protocol: s.Protocol})
				continue
			}
			for _, t := range values {
				out = append(out, DeviceService{Protocol: s.Protocol, ICMPType: t})
			}
			continue
		}

		sourcePorts, err := compose.ListValues(s.SourcePorts)
		if err != nil {
			return nil, err
		}
		out = append(out, DeviceService{Protocol: s.Protocol, Port: values, SourcePort: sourcePorts})
	}
	return out, nil
}

func resolveAll(ctx context.Context, xrefs XRefStore, kind model.XRefKind, ids []string) ([]string, error) {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		deviceID, found, err := xrefs.LookupXRef(ctx, kind, id)
		if err != nil {
			return nil, fmt.Errorf("lookup %s %s: %w", kind, id, err)
		}
		if !found {
			return nil, fmt.Errorf("%w: %s %s", ErrReferenceNotPushed, kind, id)
		}
		out = append(out, deviceID)
	}
	return out, nil
}

// IPsec configuration document.

type IPSecConfig struct {
	Enabled bool          `json:"enabled"`
	Logging IPSecLogging  `json:"logging"`
	Global  IPSecGlobal   `json:"global"`
	Sites   IPSecSiteList `json:"sites"`
}

type IPSecLogging struct {
	Enable   bool   `json:"enable"`
	LogLevel string `json:"logLevel"`
}

type IPSecGlobal struct {
	PSK                *string `json:"psk"`
	ServiceCertificate *string `json:"serviceCertificate"`
}

type IPSecSiteList struct {
	Sites []DeviceSite `json:"sites"`
}

type DeviceSite struct {
	Name                string        `json:"name"`
	Description         string        `json:"description"`
	LocalID             string        `json:"localId"`
	LocalIP             string        `json:"localIp"`
	PeerID              string        `json:"peerId"`
	PeerIP              string        `json:"peerIp"`
	EncryptionAlgorithm string        `json:"encryptionAlgorithm"`
	MTU                 int           `json:"mtu"`
	EnablePFS           bool          `json:"enablePfs"`
	DHGroup             string        `json:"dhGroup"`
	LocalSubnets        DeviceSubnets `json:"localSubnets"`
	PeerSubnets         DeviceSubnets `json:"peerSubnets"`
	PSK                 *string       `json:"psk"`
	Certificate         *string       `json:"certificate"`
	AuthenticationMode  string        `json:"authenticationMode"`
}

type DeviceSubnets struct {
	Subnets []string `json:"subnets"`
}

// Authentication modes understood by the device.
const (
	AuthModePSK         = "psk"
	AuthModeCertificate = "x.509"
)

// ToIPSecConfig renders the whole IPsec document for the given sites.
func ToIPSecConfig(bundles []model.SiteBundle) IPSecConfig {
	cfg := IPSecConfig{
		Enabled: len(bundles) > 0,
		Logging: IPSecLogging{Enable: true, LogLevel: "info"},
		Sites:   IPSecSiteList{Sites: []DeviceSite{}},
	}
	for _, b := range bundles {
		if b.TrustProfile != nil && b.TrustProfile.ServerCertificate != "" && cfg.Global.ServiceCertificate == nil {
			cert := b.TrustProfile.ServerCertificate
			cfg.Global.ServiceCertificate = &cert
		}
		cfg.Sites.Sites = append(cfg.Sites.Sites, ToDeviceSites(b)...)
	}
	return cfg
}

// ToDeviceSites renders one device site per subnet pair. The first keeps
// the site name, later ones get a "-N" suffix.
func ToDeviceSites(b model.SiteBundle) []DeviceSite {
	s := b.Site
	base := DeviceSite{
		Name:                s.Name,
		Description:         s.Description,
		LocalID:             s.LocalID,
		LocalIP:             s.LocalEndpoint,
		PeerID:              s.PeerID,
		PeerIP:              s.PeerEndpoint,
		EncryptionAlgorithm: model.DefaultEncryptionAlgorithm,
		MTU:                 s.MTU,
		EnablePFS:           true,
		DHGroup:             "dh" + model.DefaultDHGroup,
		AuthenticationMode:  AuthModePSK,
	}
	if base.MTU == 0 {
		base.MTU = model.DefaultSiteMTU
	}

	if p := b.IsakmpPolicy; p != nil {
		if p.EncryptionAlgorithm != "" {
			base.EncryptionAlgorithm = p.EncryptionAlgorithm
		}
		if p.DHGroup != "" {
			base.DHGroup = dhGroup(p.DHGroup)
		}
		base.EnablePFS = p.EnablePFS
		if p.AuthenticationMode != "" && p.AuthenticationMode != model.DefaultAuthenticationMode {
			base.AuthenticationMode = AuthModeCertificate
		}
	}
	if p := b.IPSecPolicy; p != nil {
		if p.EncryptionAlgorithm != "" {
			base.EncryptionAlgorithm = p.EncryptionAlgorithm
		}
		if b.IsakmpPolicy == nil && p.DHGroup != "" {
			base.DHGroup = dhGroup(p.DHGroup)
		}
	}

	if base.AuthenticationMode == AuthModeCertificate {
		if b.TrustProfile != nil && b.TrustProfile.ServerCertificate != "" {
			cert := b.TrustProfile.ServerCertificate
			base.Certificate = &cert
		}
	} else {
		psk := s.PSK
		base.PSK = &psk
	}

	out := make([]DeviceSite, 0, len(s.PriNetworks))
	for i, pair := range s.PriNetworks {
		ds := base
		if i > 0 {
			ds.Name = fmt.Sprintf("%s-%d", s.Name, i+1)
		}
		ds.LocalSubnets = DeviceSubnets{Subnets: vpn.SplitSubnets(pair.LocalSubnets)}
		ds.PeerSubnets = DeviceSubnets{Subnets: vpn.SplitSubnets(pair.PeerSubnets)}
		out = append(out, ds)
	}
	return out
}

func dhGroup(g string) string {
	g = strings.ToLower(strings.TrimSpace(g))
	if strings.HasPrefix(g, "dh") {
		return g
	}
	return "dh" + strings.TrimPrefix(g, "group")
}
