package edge

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/edvin/netedge/internal/model"
)

const (
	ipSetURI       = "/api/2.0/services/ipset"
	applicationURI = "/api/2.0/services/application"
)

// Syncer pushes firewall objects, rules and the IPsec configuration to one
// edge device and keeps the id cross-reference current.
type Syncer struct {
	client *Client
}

func NewSyncer(client *Client) *Syncer {
	return &Syncer{client: client}
}

func (s *Syncer) rulesURI() string {
	return fmt.Sprintf("/api/4.0/edges/%s/firewall/config/rules", url.PathEscape(s.client.EdgeID()))
}

func (s *Syncer) ipsecURI() string {
	return fmt.Sprintf("/api/4.0/edges/%s/ipsec/config", url.PathEscape(s.client.EdgeID()))
}

// CreateIPObj pushes an IP set and records its device id.
func (s *Syncer) CreateIPObj(ctx context.Context, xrefs XRefStore, obj model.IPObj) error {
	uri := fmt.Sprintf("%s/%s", ipSetURI, url.PathEscape(s.client.EdgeID()))
	deviceID, err := s.client.Create(ctx, "ipset", uri, ToDeviceIPSet(obj))
	if err != nil {
		return fmt.Errorf("push ipobj %s: %w", obj.ID, err)
	}
	return putXRef(ctx, xrefs, model.XRefIPObj, obj.ID, deviceID)
}

// DeleteIPObj removes the IP set of an object, if it was ever pushed.
func (s *Syncer) DeleteIPObj(ctx context.Context, xrefs XRefStore, id string) error {
	return s.deleteObject(ctx, xrefs, model.XRefIPObj, "ipset", ipSetURI, id)
}

// CreateServiceObj pushes an application and records its device id.
func (s *Syncer) CreateServiceObj(ctx context.Context, xrefs XRefStore, obj model.ServiceObj) error {
	app, err := ToDeviceApplication(obj)
	if err != nil {
		return fmt.Errorf("translate serviceobj %s: %w", obj.ID, err)
	}
	uri := fmt.Sprintf("%s/%s", applicationURI, url.PathEscape(s.client.EdgeID()))
	deviceID, err := s.client.Create(ctx, "application", uri, app)
	if err != nil {
		return fmt.Errorf("push serviceobj %s: %w", obj.ID, err)
	}
	return putXRef(ctx, xrefs, model.XRefServiceObj, obj.ID, deviceID)
}

// DeleteServiceObj removes the application of an object, if it was ever pushed.
func (s *Syncer) DeleteServiceObj(ctx context.Context, xrefs XRefStore, id string) error {
	return s.deleteObject(ctx, xrefs, model.XRefServiceObj, "application", applicationURI, id)
}

// CreateRule pushes a new firewall rule. When beforeID names a rule already
// on the device, the new rule is placed above it; otherwise it is appended.
func (s *Syncer) CreateRule(ctx context.Context, xrefs XRefStore, rule model.Rule, beforeID *string) error {
	dr, err := ToDeviceRule(ctx, xrefs, rule)
	if err != nil {
		return fmt.Errorf("translate rule %s: %w", rule.ID, err)
	}

	uri := s.rulesURI()
	if beforeID != nil {
		above, found, err := xrefs.LookupXRef(ctx, model.XRefRule, *beforeID)
		if err != nil {
			return fmt.Errorf("lookup rule %s: %w", *beforeID, err)
		}
		if found {
			uri += "?aboveRuleId=" + url.QueryEscape(above)
		}
	}

	deviceID, err := s.client.Create(ctx, "rule", uri, RuleEnvelope{FirewallRules: []DeviceRule{dr}})
	if err != nil {
		return fmt.Errorf("push rule %s: %w", rule.ID, err)
	}
	return putXRef(ctx, xrefs, model.XRefRule, rule.ID, deviceID)
}

// UpdateRule replaces a rule on the device.
func (s *Syncer) UpdateRule(ctx context.Context, xrefs XRefStore, rule model.Rule) error {
	deviceID, found, err := xrefs.LookupXRef(ctx, model.XRefRule, rule.ID)
	if err != nil {
		return fmt.Errorf("lookup rule %s: %w", rule.ID, err)
	}
	if !found {
		return fmt.Errorf("update rule: %w: rule %s", ErrReferenceNotPushed, rule.ID)
	}

	dr, err := ToDeviceRule(ctx, xrefs, rule)
	if err != nil {
		return fmt.Errorf("translate rule %s: %w", rule.ID, err)
	}
	if err := s.client.Put(ctx, "rule", s.rulesURI()+"/"+url.PathEscape(deviceID), dr); err != nil {
		return fmt.Errorf("push rule %s: %w", rule.ID, err)
	}
	return nil
}

// DeleteRule removes a rule from the device, if it was ever pushed.
func (s *Syncer) DeleteRule(ctx context.Context, xrefs XRefStore, id string) error {
	deviceID, found, err := xrefs.LookupXRef(ctx, model.XRefRule, id)
	if err != nil {
		return fmt.Errorf("lookup rule %s: %w", id, err)
	}
	if !found {
		zerolog.Ctx(ctx).Warn().Str("rule_id", id).Msg("rule has no edge id, skipping device delete")
		return nil
	}
	if err := s.client.Delete(ctx, "rule", s.rulesURI()+"/"+url.PathEscape(deviceID)); err != nil {
		return fmt.Errorf("delete rule %s: %w", id, err)
	}
	return xrefs.DeleteXRef(ctx, model.XRefRule, id)
}

// ApplySites replaces the device IPsec configuration with the given sites.
// An empty list removes the configuration.
func (s *Syncer) ApplySites(ctx context.Context, bundles []model.SiteBundle) error {
	if len(bundles) == 0 {
		if err := s.client.Delete(ctx, "ipsec", s.ipsecURI()); err != nil {
			return fmt.Errorf("clear ipsec config: %w", err)
		}
		return nil
	}
	if err := s.client.Put(ctx, "ipsec", s.ipsecURI(), ToIPSecConfig(bundles)); err != nil {
		return fmt.Errorf("push ipsec config: %w", err)
	}
	return nil
}

func (s *Syncer) deleteObject(ctx context.Context, xrefs XRefStore, kind model.XRefKind, resource, base, id string) error {
	deviceID, found, err := xrefs.LookupXRef(ctx, kind, id)
	if err != nil {
		return fmt.Errorf("lookup %s %s: %w", kind, id, err)
	}
	if !found {
		zerolog.Ctx(ctx).Warn().Str("kind", string(kind)).Str("id", id).Msg("object has no edge id, skipping device delete")
		return nil
	}
	if err := s.client.Delete(ctx, resource, base+"/"+url.PathEscape(deviceID)); err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, id, err)
	}
	return xrefs.DeleteXRef(ctx, kind, id)
}

func putXRef(ctx context.Context, xrefs XRefStore, kind model.XRefKind, id, deviceID string) error {
	if err := xrefs.PutXRef(ctx, model.EdgeXRef{Kind: kind, UUID: id, DeviceID: deviceID}); err != nil {
		return fmt.Errorf("record %s %s edge id: %w", kind, id, err)
	}
	return nil
}
