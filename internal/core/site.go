package core

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"github.com/rs/zerolog"

	"github.com/edvin/netedge/internal/model"
	"github.com/edvin/netedge/internal/platform"
	"github.com/edvin/netedge/internal/vpn"
)

const (
	minSiteMTU = 68
	maxSiteMTU = 9000
)

// SiteService manages IPsec site-to-site tunnels. Local writes commit
// first; the edge push then settles the site to ACTIVE or ERROR.
type SiteService struct {
	store  Store
	pusher ipsecPusher
}

func NewSiteService(store Store, edge EdgeSync) *SiteService {
	return &SiteService{store: store, pusher: ipsecPusher{store: store, edge: edge}}
}

// SitePatch holds the fields of an update. Nil fields are left unchanged.
// An empty policy or profile id clears the reference.
type SitePatch struct {
	Name           *string
	Description    *string
	SubnetID       *string
	LocalEndpoint  *string
	PeerEndpoint   *string
	LocalID        *string
	PeerID         *string
	PSK            *string
	MTU            *int
	PriNetworks    []model.SubnetPair
	IPSecPolicyID  *string
	IsakmpPolicyID *string
	TrustProfileID *string
}

func (s *SiteService) Create(ctx context.Context, site *model.Site) error {
	site.ID = platform.NewID()
	site.Status = model.StatusPendingCreate
	site.StatusMessage = nil
	if site.MTU == 0 {
		site.MTU = model.DefaultSiteMTU
	}
	if site.LocalID == "" {
		site.LocalID = site.LocalEndpoint
	}
	if site.PeerID == "" {
		site.PeerID = site.PeerEndpoint
	}

	err := s.store.WithTx(ctx, func(tx Tx) error {
		if err := validateSite(ctx, tx, site); err != nil {
			return err
		}
		if err := tx.InsertSite(ctx, site); err != nil {
			return fmt.Errorf("insert site: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	zerolog.Ctx(ctx).Info().Str("tenant_id", site.TenantID).Str("site_id", site.ID).Msg("site created")
	return s.settleAndReload(ctx, site)
}

func (s *SiteService) Get(ctx context.Context, tenantID, id string) (*model.Site, error) {
	var site *model.Site
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		site, err = tx.GetSite(ctx, tenantID, id)
		if err != nil {
			return fmt.Errorf("get site %s: %w", id, err)
		}
		return nil
	})
	return site, err
}

func (s *SiteService) List(ctx context.Context, tenantID string, f ListFilter) ([]model.Site, bool, error) {
	var (
		sites   []model.Site
		hasMore bool
	)
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		sites, hasMore, err = tx.ListSites(ctx, tenantID, f)
		if err != nil {
			return fmt.Errorf("list sites: %w", err)
		}
		return nil
	})
	return sites, hasMore, err
}

// Update applies p to an ACTIVE or ERROR site and re-pushes the edge
// configuration.
func (s *SiteService) Update(ctx context.Context, tenantID, id string, p SitePatch) (*model.Site, error) {
	var site *model.Site
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		site, err = tx.GetSite(ctx, tenantID, id)
		if err != nil {
			return fmt.Errorf("get site %s: %w", id, err)
		}
		next, err := vpn.BeginUpdate(id, site.Status)
		if err != nil {
			return err
		}

		p.apply(site)
		site.Status = next
		site.StatusMessage = nil
		if err := validateSite(ctx, tx, site); err != nil {
			return err
		}
		if err := tx.UpdateSite(ctx, site); err != nil {
			return fmt.Errorf("update site %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.settleAndReload(ctx, site); err != nil {
		return nil, err
	}
	return site, nil
}

// Delete marks the site PENDING_DELETE, pushes the configuration without
// it and removes the row. If the push fails the site stays in ERROR.
func (s *SiteService) Delete(ctx context.Context, tenantID, id string) error {
	if err := beginTransition(ctx, s.store, KindSite, tenantID, id, vpn.BeginDelete); err != nil {
		return err
	}
	if err := s.pusher.remove(ctx, KindSite, id); err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Str("tenant_id", tenantID).Str("site_id", id).Msg("site deleted")
	return nil
}

func (s *SiteService) settleAndReload(ctx context.Context, site *model.Site) error {
	if err := s.pusher.settle(ctx, KindSite, site.ID, true); err != nil {
		return err
	}
	reloaded, err := s.Get(ctx, site.TenantID, site.ID)
	if err != nil {
		return err
	}
	*site = *reloaded
	return nil
}

func validateSite(ctx context.Context, tx Tx, site *model.Site) error {
	if strings.TrimSpace(site.Name) == "" {
		return validationf("name is required")
	}
	for field, v := range map[string]string{"local_endpoint": site.LocalEndpoint, "peer_endpoint": site.PeerEndpoint} {
		if _, err := netip.ParseAddr(v); err != nil {
			return validationf("%s must be an IP address", field)
		}
	}
	if site.MTU < minSiteMTU || site.MTU > maxSiteMTU {
		return validationf("mtu must be between %d and %d", minSiteMTU, maxSiteMTU)
	}
	if _, err := vpn.EncodeSubnetPairs(site.PriNetworks); err != nil {
		if errors.Is(err, vpn.ErrInvalidSubnets) {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return err
	}

	var isakmp *model.IsakmpPolicy
	if site.IPSecPolicyID != nil {
		if _, err := tx.GetIPSecPolicy(ctx, site.TenantID, *site.IPSecPolicyID); err != nil {
			return fmt.Errorf("ipsec policy %s: %w", *site.IPSecPolicyID, err)
		}
	}
	if site.IsakmpPolicyID != nil {
		var err error
		isakmp, err = tx.GetIsakmpPolicy(ctx, site.TenantID, *site.IsakmpPolicyID)
		if err != nil {
			return fmt.Errorf("isakmp policy %s: %w", *site.IsakmpPolicyID, err)
		}
	}
	if site.TrustProfileID != nil {
		if _, err := tx.GetTrustProfile(ctx, site.TenantID, *site.TrustProfileID); err != nil {
			return fmt.Errorf("trust profile %s: %w", *site.TrustProfileID, err)
		}
	}
	usesPSK := isakmp == nil || isakmp.AuthenticationMode == "" || isakmp.AuthenticationMode == model.DefaultAuthenticationMode
	if usesPSK && site.PSK == "" {
		return validationf("psk is required")
	}

	taken, err := tx.SiteEndpointsTaken(ctx, site.TenantID, site.LocalEndpoint, site.PeerEndpoint, site.ID)
	if err != nil {
		return fmt.Errorf("check duplicate site: %w", err)
	}
	if taken {
		return conflictf("site %s -> %s already exists", site.LocalEndpoint, site.PeerEndpoint)
	}
	return nil
}

func (p SitePatch) apply(site *model.Site) {
	setIfPresent(&site.Name, p.Name)
	setIfPresent(&site.Description, p.Description)
	setIfPresent(&site.LocalEndpoint, p.LocalEndpoint)
	setIfPresent(&site.PeerEndpoint, p.PeerEndpoint)
	setIfPresent(&site.LocalID, p.LocalID)
	setIfPresent(&site.PeerID, p.PeerID)
	setIfPresent(&site.PSK, p.PSK)
	setIfPresent(&site.MTU, p.MTU)
	if p.PriNetworks != nil {
		site.PriNetworks = p.PriNetworks
	}
	site.SubnetID = optionalRef(site.SubnetID, p.SubnetID)
	site.IPSecPolicyID = optionalRef(site.IPSecPolicyID, p.IPSecPolicyID)
	site.IsakmpPolicyID = optionalRef(site.IsakmpPolicyID, p.IsakmpPolicyID)
	site.TrustProfileID = optionalRef(site.TrustProfileID, p.TrustProfileID)
}

// optionalRef applies a patch value to a nullable reference: nil keeps the
// current value, "" clears it.
func optionalRef(current, patch *string) *string {
	switch {
	case patch == nil:
		return current
	case *patch == "":
		return nil
	default:
		v := *patch
		return &v
	}
}
