package model

import "time"

// Site is a site-to-site IPsec tunnel definition.
type Site struct {
	ID             string       `json:"id" db:"id"`
	TenantID       string       `json:"tenant_id" db:"tenant_id"`
	Name           string       `json:"name" db:"name"`
	Description    string       `json:"description" db:"description"`
	SubnetID       *string      `json:"subnet_id,omitempty" db:"subnet_id"`
	LocalEndpoint  string       `json:"local_endpoint" db:"local_endpoint"`
	PeerEndpoint   string       `json:"peer_endpoint" db:"peer_endpoint"`
	LocalID        string       `json:"local_id" db:"local_id"`
	PeerID         string       `json:"peer_id" db:"peer_id"`
	PSK            string       `json:"psk" db:"psk"`
	MTU            int          `json:"mtu" db:"mtu"`
	PriNetworks    []SubnetPair `json:"pri_networks"`
	IPSecPolicyID  *string      `json:"ipsec_policy_id,omitempty" db:"ipsec_policy_id"`
	IsakmpPolicyID *string      `json:"isakmp_policy_id,omitempty" db:"isakmp_policy_id"`
	TrustProfileID *string      `json:"trust_profile_id,omitempty" db:"trust_profile_id"`
	Status         string       `json:"status" db:"status"`
	StatusMessage  *string      `json:"status_message,omitempty" db:"status_message"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at" db:"updated_at"`
}

// SubnetPair is one local/peer protected network pair. Each side may hold
// several comma-separated CIDRs.
type SubnetPair struct {
	LocalSubnets string `json:"local_subnets"`
	PeerSubnets  string `json:"peer_subnets"`
}

// SiteBundle is a site together with the policies it references, as needed
// to render the device configuration.
type SiteBundle struct {
	Site         Site
	IPSecPolicy  *IPSecPolicy
	IsakmpPolicy *IsakmpPolicy
	TrustProfile *TrustProfile
}
