package request

import (
	"github.com/edvin/netedge/internal/core"
	"github.com/edvin/netedge/internal/model"
)

type SubnetPair struct {
	LocalSubnets string `json:"local_subnets" validate:"required"`
	PeerSubnets  string `json:"peer_subnets" validate:"required"`
}

func subnetPairs(in []SubnetPair) []model.SubnetPair {
	if in == nil {
		return nil
	}
	out := make([]model.SubnetPair, len(in))
	for i, p := range in {
		out[i] = model.SubnetPair{LocalSubnets: p.LocalSubnets, PeerSubnets: p.PeerSubnets}
	}
	return out
}

type CreateSite struct {
	TenantID       string       `json:"tenant_id"`
	Name           string       `json:"name" validate:"required,max=255"`
	Description    string       `json:"description" validate:"max=1024"`
	SubnetID       *string      `json:"subnet_id"`
	LocalEndpoint  string       `json:"local_endpoint" validate:"required,ip"`
	PeerEndpoint   string       `json:"peer_endpoint" validate:"required,ip"`
	LocalID        string       `json:"local_id"`
	PeerID         string       `json:"peer_id"`
	PSK            string       `json:"psk"`
	MTU            int          `json:"mtu" validate:"omitempty,min=68,max=9000"`
	PriNetworks    []SubnetPair `json:"pri_networks" validate:"required,min=1,dive"`
	IPSecPolicyID  *string      `json:"ipsec_policy_id" validate:"omitempty,rid"`
	IsakmpPolicyID *string      `json:"isakmp_policy_id" validate:"omitempty,rid"`
	TrustProfileID *string      `json:"trust_profile_id" validate:"omitempty,rid"`
}

func (c CreateSite) Model(tenantID string) *model.Site {
	return &model.Site{
		TenantID:       tenantID,
		Name:           c.Name,
		Description:    c.Description,
		SubnetID:       c.SubnetID,
		LocalEndpoint:  c.LocalEndpoint,
		PeerEndpoint:   c.PeerEndpoint,
		LocalID:        c.LocalID,
		PeerID:         c.PeerID,
		PSK:            c.PSK,
		MTU:            c.MTU,
		PriNetworks:    subnetPairs(c.PriNetworks),
		IPSecPolicyID:  c.IPSecPolicyID,
		IsakmpPolicyID: c.IsakmpPolicyID,
		TrustProfileID: c.TrustProfileID,
	}
}

// UpdateSite is a partial update. A policy id of "" detaches the policy.
type UpdateSite struct {
	Name           *string      `json:"name" validate:"omitempty,min=1,max=255"`
	Description    *string      `json:"description" validate:"omitempty,max=1024"`
	SubnetID       *string      `json:"subnet_id"`
	LocalEndpoint  *string      `json:"local_endpoint" validate:"omitempty,ip"`
	PeerEndpoint   *string      `json:"peer_endpoint" validate:"omitempty,ip"`
	LocalID        *string      `json:"local_id"`
	PeerID         *string      `json:"peer_id"`
	PSK            *string      `json:"psk"`
	MTU            *int         `json:"mtu" validate:"omitempty,min=68,max=9000"`
	PriNetworks    []SubnetPair `json:"pri_networks" validate:"omitempty,min=1,dive"`
	IPSecPolicyID  *string      `json:"ipsec_policy_id" validate:"omitempty,rid|len=0"`
	IsakmpPolicyID *string      `json:"isakmp_policy_id" validate:"omitempty,rid|len=0"`
	TrustProfileID *string      `json:"trust_profile_id" validate:"omitempty,rid|len=0"`
}

func (u UpdateSite) Patch() core.SitePatch {
	return core.SitePatch{
		Name:           u.Name,
		Description:    u.Description,
		SubnetID:       u.SubnetID,
		LocalEndpoint:  u.LocalEndpoint,
		PeerEndpoint:   u.PeerEndpoint,
		LocalID:        u.LocalID,
		PeerID:         u.PeerID,
		PSK:            u.PSK,
		MTU:            u.MTU,
		PriNetworks:    subnetPairs(u.PriNetworks),
		IPSecPolicyID:  u.IPSecPolicyID,
		IsakmpPolicyID: u.IsakmpPolicyID,
		TrustProfileID: u.TrustProfileID,
	}
}

type CreateIPSecPolicy struct {
	TenantID                string `json:"tenant_id"`
	Name                    string `json:"name" validate:"required,max=255"`
	Description             string `json:"description" validate:"max=1024"`
	EncryptionAlgorithm     string `json:"encryption_algorithm"`
	AuthenticationAlgorithm string `json:"authentication_algorithm"`
	DHGroup                 string `json:"dh_group"`
	LifeTime                int    `json:"life_time" validate:"omitempty,min=1"`
}

func (c CreateIPSecPolicy) Model(tenantID string) *model.IPSecPolicy {
	return &model.IPSecPolicy{
		TenantID:                tenantID,
		Name:                    c.Name,
		Description:             c.Description,
		EncryptionAlgorithm:     c.EncryptionAlgorithm,
		AuthenticationAlgorithm: c.AuthenticationAlgorithm,
		DHGroup:                 c.DHGroup,
		LifeTime:                c.LifeTime,
	}
}

type UpdateIPSecPolicy struct {
	Name                    *string `json:"name" validate:"omitempty,min=1,max=255"`
	Description             *string `json:"description" validate:"omitempty,max=1024"`
	EncryptionAlgorithm     *string `json:"encryption_algorithm"`
	AuthenticationAlgorithm *string `json:"authentication_algorithm"`
	DHGroup                 *string `json:"dh_group"`
	LifeTime                *int    `json:"life_time" validate:"omitempty,min=1"`
}

func (u UpdateIPSecPolicy) Patch() core.IPSecPolicyPatch {
	return core.IPSecPolicyPatch{
		Name:                    u.Name,
		Description:             u.Description,
		EncryptionAlgorithm:     u.EncryptionAlgorithm,
		AuthenticationAlgorithm: u.AuthenticationAlgorithm,
		DHGroup:                 u.DHGroup,
		LifeTime:                u.LifeTime,
	}
}

type CreateIsakmpPolicy struct {
	TenantID                string `json:"tenant_id"`
	Name                    string `json:"name" validate:"required,max=255"`
	Description             string `json:"description" validate:"max=1024"`
	AuthenticationMode      string `json:"authentication_mode"`
	EncryptionAlgorithm     string `json:"encryption_algorithm"`
	AuthenticationAlgorithm string `json:"authentication_algorithm"`
	EnablePFS               *bool  `json:"enable_pfs"`
	DHGroup                 string `json:"dh_group"`
	LifeTime                int    `json:"life_time" validate:"omitempty,min=1"`
}

// Model converts the request; PFS is on unless explicitly disabled.
func (c CreateIsakmpPolicy) Model(tenantID string) *model.IsakmpPolicy {
	pfs := true
	if c.EnablePFS != nil {
		pfs = *c.EnablePFS
	}
	return &model.IsakmpPolicy{
		TenantID:                tenantID,
		Name:                    c.Name,
		Description:             c.Description,
		AuthenticationMode:      c.AuthenticationMode,
		EncryptionAlgorithm:     c.EncryptionAlgorithm,
		AuthenticationAlgorithm: c.AuthenticationAlgorithm,
		EnablePFS:               pfs,
		DHGroup:                 c.DHGroup,
		LifeTime:                c.LifeTime,
	}
}

type UpdateIsakmpPolicy struct {
	Name                    *string `json:"name" validate:"omitempty,min=1,max=255"`
	Description             *string `json:"description" validate:"omitempty,max=1024"`
	AuthenticationMode      *string `json:"authentication_mode"`
	EncryptionAlgorithm     *string `json:"encryption_algorithm"`
	AuthenticationAlgorithm *string `json:"authentication_algorithm"`
	EnablePFS               *bool   `json:"enable_pfs"`
	DHGroup                 *string `json:"dh_group"`
	LifeTime                *int    `json:"life_time" validate:"omitempty,min=1"`
}

func (u UpdateIsakmpPolicy) Patch() core.IsakmpPolicyPatch {
	return core.IsakmpPolicyPatch{
		Name:                    u.Name,
		Description:             u.Description,
		AuthenticationMode:      u.AuthenticationMode,
		EncryptionAlgorithm:     u.EncryptionAlgorithm,
		AuthenticationAlgorithm: u.AuthenticationAlgorithm,
		EnablePFS:               u.EnablePFS,
		DHGroup:                 u.DHGroup,
		LifeTime:                u.LifeTime,
	}
}

type CreateTrustProfile struct {
	TenantID          string `json:"tenant_id"`
	Name              string `json:"name" validate:"required,max=255"`
	Description       string `json:"description" validate:"max=1024"`
	TrustCA           string `json:"trust_ca" validate:"required"`
	CRL               string `json:"crl"`
	ServerCertificate string `json:"server_certificate"`
}

func (c CreateTrustProfile) Model(tenantID string) *model.TrustProfile {
	return &model.TrustProfile{
		TenantID:          tenantID,
		Name:              c.Name,
		Description:       c.Description,
		TrustCA:           c.TrustCA,
		CRL:               c.CRL,
		ServerCertificate: c.ServerCertificate,
	}
}

type UpdateTrustProfile struct {
	Name              *string `json:"name" validate:"omitempty,min=1,max=255"`
	Description       *string `json:"description" validate:"omitempty,max=1024"`
	TrustCA           *string `json:"trust_ca" validate:"omitempty,min=1"`
	CRL               *string `json:"crl"`
	ServerCertificate *string `json:"server_certificate"`
}

func (u UpdateTrustProfile) Patch() core.TrustProfilePatch {
	return core.TrustProfilePatch{
		Name:              u.Name,
		Description:       u.Description,
		TrustCA:           u.TrustCA,
		CRL:               u.CRL,
		ServerCertificate: u.ServerCertificate,
	}
}
