package model

import "time"

// APIKey authenticates a caller as a tenant. Admin keys may act on behalf of
// any tenant.
type APIKey struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	KeyHash   string     `json:"-"`
	KeyPrefix string     `json:"key_prefix,omitempty"`
	TenantID  string     `json:"tenant_id"`
	IsAdmin   bool       `json:"is_admin"`
	CreatedAt time.Time  `json:"created_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}
