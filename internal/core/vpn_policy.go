package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/edvin/netedge/internal/model"
	"github.com/edvin/netedge/internal/platform"
	"github.com/edvin/netedge/internal/vpn"
)

// Authentication modes accepted on ISAKMP policies. Anything other than psk
// is rendered as certificate authentication on the device.
var isakmpAuthModes = map[string]bool{
	"psk":         true,
	"x.509":       true,
	"certificate": true,
}

// IPSecPolicyPatch holds the fields of an IPSec policy update. Nil fields
// are left unchanged.
type IPSecPolicyPatch struct {
	Name                    *string
	Description             *string
	EncryptionAlgorithm     *string
	AuthenticationAlgorithm *string
	DHGroup                 *string
	LifeTime                *int
}

type IsakmpPolicyPatch struct {
	Name                    *string
	Description             *string
	AuthenticationMode      *string
	EncryptionAlgorithm     *string
	AuthenticationAlgorithm *string
	EnablePFS               *bool
	DHGroup                 *string
	LifeTime                *int
}

type TrustProfilePatch struct {
	Name              *string
	Description       *string
	TrustCA           *string
	CRL               *string
	ServerCertificate *string
}

// IPSecPolicyService manages phase-2 policies. Policies are not pushed on
// their own; a change is pushed only when a site references the policy.
type IPSecPolicyService struct {
	store  Store
	pusher ipsecPusher
}

func NewIPSecPolicyService(store Store, edge EdgeSync) *IPSecPolicyService {
	return &IPSecPolicyService{store: store, pusher: ipsecPusher{store: store, edge: edge}}
}

func (s *IPSecPolicyService) Create(ctx context.Context, p *model.IPSecPolicy) error {
	p.ID = platform.NewID()
	p.Status = model.StatusPendingCreate
	p.StatusMessage = nil
	p.EncryptionAlgorithm = orDefault(p.EncryptionAlgorithm, model.DefaultEncryptionAlgorithm)
	p.AuthenticationAlgorithm = orDefault(p.AuthenticationAlgorithm, model.DefaultAuthenticationAlgorithm)
	p.DHGroup = orDefault(p.DHGroup, model.DefaultDHGroup)
	if p.LifeTime == 0 {
		p.LifeTime = model.DefaultIPSecLifeTime
	}
	if err := validatePolicy(p.Name, p.LifeTime); err != nil {
		return err
	}

	err := s.store.WithTx(ctx, func(tx Tx) error {
		if err := tx.InsertIPSecPolicy(ctx, p); err != nil {
			return fmt.Errorf("insert ipsec policy: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Str("tenant_id", p.TenantID).Str("ipsec_policy_id", p.ID).Msg("ipsec policy created")

	if err := s.pusher.settle(ctx, KindIPSecPolicy, p.ID, false); err != nil {
		return err
	}
	created, err := s.Get(ctx, p.TenantID, p.ID)
	if err != nil {
		return err
	}
	*p = *created
	return nil
}

func (s *IPSecPolicyService) Get(ctx context.Context, tenantID, id string) (*model.IPSecPolicy, error) {
	var p *model.IPSecPolicy
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		p, err = tx.GetIPSecPolicy(ctx, tenantID, id)
		if err != nil {
			return fmt.Errorf("get ipsec policy %s: %w", id, err)
		}
		return nil
	})
	return p, err
}

func (s *IPSecPolicyService) List(ctx context.Context, tenantID string, f ListFilter) ([]model.IPSecPolicy, bool, error) {
	var (
		out     []model.IPSecPolicy
		hasMore bool
	)
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		out, hasMore, err = tx.ListIPSecPolicies(ctx, tenantID, f)
		if err != nil {
			return fmt.Errorf("list ipsec policies: %w", err)
		}
		return nil
	})
	return out, hasMore, err
}

func (s *IPSecPolicyService) Update(ctx context.Context, tenantID, id string, patch IPSecPolicyPatch) (*model.IPSecPolicy, error) {
	var inUse bool
	err := s.store.WithTx(ctx, func(tx Tx) error {
		p, err := tx.GetIPSecPolicy(ctx, tenantID, id)
		if err != nil {
			return fmt.Errorf("get ipsec policy %s: %w", id, err)
		}
		if p.Status, err = vpn.BeginUpdate(id, p.Status); err != nil {
			return err
		}
		p.StatusMessage = nil
		setIfPresent(&p.Name, patch.Name)
		setIfPresent(&p.Description, patch.Description)
		setIfPresent(&p.EncryptionAlgorithm, patch.EncryptionAlgorithm)
		setIfPresent(&p.AuthenticationAlgorithm, patch.AuthenticationAlgorithm)
		setIfPresent(&p.DHGroup, patch.DHGroup)
		setIfPresent(&p.LifeTime, patch.LifeTime)
		if err := validatePolicy(p.Name, p.LifeTime); err != nil {
			return err
		}
		if err := tx.UpdateIPSecPolicy(ctx, p); err != nil {
			return fmt.Errorf("update ipsec policy %s: %w", id, err)
		}
		inUse, err = policyInUse(ctx, tx, KindIPSecPolicy, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.pusher.settle(ctx, KindIPSecPolicy, id, inUse); err != nil {
		return nil, err
	}
	return s.Get(ctx, tenantID, id)
}

func (s *IPSecPolicyService) Delete(ctx context.Context, tenantID, id string) error {
	return deletePolicy(ctx, s.store, KindIPSecPolicy, tenantID, id)
}

// IsakmpPolicyService manages phase-1 policies.
type IsakmpPolicyService struct {
	store  Store
	pusher ipsecPusher
}

func NewIsakmpPolicyService(store Store, edge EdgeSync) *IsakmpPolicyService {
	return &IsakmpPolicyService{store: store, pusher: ipsecPusher{store: store, edge: edge}}
}

// Create stores an ISAKMP policy. EnablePFS is taken as given; callers
// apply the default of true for omitted input.
func (s *IsakmpPolicyService) Create(ctx context.Context, p *model.IsakmpPolicy) error {
	p.ID = platform.NewID()
	p.Status = model.StatusPendingCreate
	p.StatusMessage = nil
	p.AuthenticationMode = orDefault(strings.ToLower(p.AuthenticationMode), model.DefaultAuthenticationMode)
	p.EncryptionAlgorithm = orDefault(p.EncryptionAlgorithm, model.DefaultEncryptionAlgorithm)
	p.AuthenticationAlgorithm = orDefault(p.AuthenticationAlgorithm, model.DefaultAuthenticationAlgorithm)
	p.DHGroup = orDefault(p.DHGroup, model.DefaultDHGroup)
	if p.LifeTime == 0 {
		p.LifeTime = model.DefaultIsakmpLifeTime
	}
	if err := validateIsakmp(p); err != nil {
		return err
	}

	err := s.store.WithTx(ctx, func(tx Tx) error {
		if err := tx.InsertIsakmpPolicy(ctx, p); err != nil {
			return fmt.Errorf("insert isakmp policy: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Str("tenant_id", p.TenantID).Str("isakmp_policy_id", p.ID).Msg("isakmp policy created")

	if err := s.pusher.settle(ctx, KindIsakmpPolicy, p.ID, false); err != nil {
		return err
	}
	created, err := s.Get(ctx, p.TenantID, p.ID)
	if err != nil {
		return err
	}
	*p = *created
	return nil
}

func (s *IsakmpPolicyService) Get(ctx context.Context, tenantID, id string) (*model.IsakmpPolicy, error) {
	var p *model.IsakmpPolicy
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		p, err = tx.GetIsakmpPolicy(ctx, tenantID, id)
		if err != nil {
			return fmt.Errorf("get isakmp policy %s: %w", id, err)
		}
		return nil
	})
	return p, err
}

func (s *IsakmpPolicyService) List(ctx context.Context, tenantID string, f ListFilter) ([]model.IsakmpPolicy, bool, error) {
	var (
		out     []model.IsakmpPolicy
		hasMore bool
	)
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		out, hasMore, err = tx.ListIsakmpPolicies(ctx, tenantID, f)
		if err != nil {
			return fmt.Errorf("list isakmp policies: %w", err)
		}
		return nil
	})
	return out, hasMore, err
}

func (s *IsakmpPolicyService) Update(ctx context.Context, tenantID, id string, patch IsakmpPolicyPatch) (*model.IsakmpPolicy, error) {
	var inUse bool
	err := s.store.WithTx(ctx, func(tx Tx) error {
		p, err := tx.GetIsakmpPolicy(ctx, tenantID, id)
		if err != nil {
			return fmt.Errorf("get isakmp policy %s: %w", id, err)
		}
		if p.Status, err = vpn.BeginUpdate(id, p.Status); err != nil {
			return err
		}
		p.StatusMessage = nil
		setIfPresent(&p.Name, patch.Name)
		setIfPresent(&p.Description, patch.Description)
		if patch.AuthenticationMode != nil {
			p.AuthenticationMode = strings.ToLower(*patch.AuthenticationMode)
		}
		setIfPresent(&p.EncryptionAlgorithm, patch.EncryptionAlgorithm)
		setIfPresent(&p.AuthenticationAlgorithm, patch.AuthenticationAlgorithm)
		setIfPresent(&p.EnablePFS, patch.EnablePFS)
		setIfPresent(&p.DHGroup, patch.DHGroup)
		setIfPresent(&p.LifeTime, patch.LifeTime)
		if err := validateIsakmp(p); err != nil {
			return err
		}
		if err := tx.UpdateIsakmpPolicy(ctx, p); err != nil {
			return fmt.Errorf("update isakmp policy %s: %w", id, err)
		}
		inUse, err = policyInUse(ctx, tx, KindIsakmpPolicy, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.pusher.settle(ctx, KindIsakmpPolicy, id, inUse); err != nil {
		return nil, err
	}
	return s.Get(ctx, tenantID, id)
}

func (s *IsakmpPolicyService) Delete(ctx context.Context, tenantID, id string) error {
	return deletePolicy(ctx, s.store, KindIsakmpPolicy, tenantID, id)
}

// TrustProfileService manages the CA, CRL and server certificate used by
// certificate-authenticated sites.
type TrustProfileService struct {
	store  Store
	pusher ipsecPusher
}

func NewTrustProfileService(store Store, edge EdgeSync) *TrustProfileService {
	return &TrustProfileService{store: store, pusher: ipsecPusher{store: store, edge: edge}}
}

func (s *TrustProfileService) Create(ctx context.Context, p *model.TrustProfile) error {
	p.ID = platform.NewID()
	p.Status = model.StatusPendingCreate
	p.StatusMessage = nil
	if err := validateTrustProfile(p); err != nil {
		return err
	}

	err := s.store.WithTx(ctx, func(tx Tx) error {
		if err := tx.InsertTrustProfile(ctx, p); err != nil {
			return fmt.Errorf("insert trust profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Str("tenant_id", p.TenantID).Str("trust_profile_id", p.ID).Msg("trust profile created")

	if err := s.pusher.settle(ctx, KindTrustProfile, p.ID, false); err != nil {
		return err
	}
	created, err := s.Get(ctx, p.TenantID, p.ID)
	if err != nil {
		return err
	}
	*p = *created
	return nil
}

func (s *TrustProfileService) Get(ctx context.Context, tenantID, id string) (*model.TrustProfile, error) {
	var p *model.TrustProfile
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		p, err = tx.GetTrustProfile(ctx, tenantID, id)
		if err != nil {
			return fmt.Errorf("get trust profile %s: %w", id, err)
		}
		return nil
	})
	return p, err
}

func (s *TrustProfileService) List(ctx context.Context, tenantID string, f ListFilter) ([]model.TrustProfile, bool, error) {
	var (
		out     []model.TrustProfile
		hasMore bool
	)
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		out, hasMore, err = tx.ListTrustProfiles(ctx, tenantID, f)
		if err != nil {
			return fmt.Errorf("list trust profiles: %w", err)
		}
		return nil
	})
	return out, hasMore, err
}

func (s *TrustProfileService) Update(ctx context.Context, tenantID, id string, patch TrustProfilePatch) (*model.TrustProfile, error) {
	var inUse bool
	err := s.store.WithTx(ctx, func(tx Tx) error {
		p, err := tx.GetTrustProfile(ctx, tenantID, id)
		if err != nil {
			return fmt.Errorf("get trust profile %s: %w", id, err)
		}
		if p.Status, err = vpn.BeginUpdate(id, p.Status); err != nil {
			return err
		}
		p.StatusMessage = nil
		setIfPresent(&p.Name, patch.Name)
		setIfPresent(&p.Description, patch.Description)
		setIfPresent(&p.TrustCA, patch.TrustCA)
		setIfPresent(&p.CRL, patch.CRL)
		setIfPresent(&p.ServerCertificate, patch.ServerCertificate)
		if err := validateTrustProfile(p); err != nil {
			return err
		}
		if err := tx.UpdateTrustProfile(ctx, p); err != nil {
			return fmt.Errorf("update trust profile %s: %w", id, err)
		}
		inUse, err = policyInUse(ctx, tx, KindTrustProfile, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.pusher.settle(ctx, KindTrustProfile, id, inUse); err != nil {
		return nil, err
	}
	return s.Get(ctx, tenantID, id)
}

func (s *TrustProfileService) Delete(ctx context.Context, tenantID, id string) error {
	return deletePolicy(ctx, s.store, KindTrustProfile, tenantID, id)
}

// deletePolicy removes a policy or trust profile that no site references.
// Nothing is pushed: an unreferenced policy is not part of the device
// configuration.
func deletePolicy(ctx context.Context, store Store, kind VPNKind, tenantID, id string) error {
	err := store.WithTx(ctx, func(tx Tx) error {
		status, err := tx.GetVPNStatus(ctx, kind, tenantID, id)
		if err != nil {
			return fmt.Errorf("get %s %s: %w", kind, id, err)
		}
		if _, err := vpn.BeginDelete(id, status); err != nil {
			return err
		}
		inUse, err := policyInUse(ctx, tx, kind, id)
		if err != nil {
			return err
		}
		if inUse {
			return conflictf("%s %s is referenced by a site", kind, id)
		}
		if err := tx.DeleteVPNResource(ctx, kind, id); err != nil {
			return fmt.Errorf("delete %s %s: %w", kind, id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Str("tenant_id", tenantID).Str("kind", string(kind)).Str("id", id).Msg("vpn policy deleted")
	return nil
}

func policyInUse(ctx context.Context, tx Tx, kind VPNKind, id string) (bool, error) {
	n, err := tx.SitesUsingPolicy(ctx, kind, id)
	if err != nil {
		return false, fmt.Errorf("count sites using %s %s: %w", kind, id, err)
	}
	return n > 0, nil
}

func validatePolicy(name string, lifeTime int) error {
	if strings.TrimSpace(name) == "" {
		return validationf("name is required")
	}
	if lifeTime <= 0 {
		return validationf("life_time must be positive")
	}
	return nil
}

func validateIsakmp(p *model.IsakmpPolicy) error {
	if err := validatePolicy(p.Name, p.LifeTime); err != nil {
		return err
	}
	if !isakmpAuthModes[p.AuthenticationMode] {
		return validationf("unsupported authentication_mode %q", p.AuthenticationMode)
	}
	return nil
}

func validateTrustProfile(p *model.TrustProfile) error {
	if strings.TrimSpace(p.Name) == "" {
		return validationf("name is required")
	}
	if strings.TrimSpace(p.TrustCA) == "" {
		return validationf("trust_ca is required")
	}
	return nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func setIfPresent[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
