package core

import "fmt"

// Caller is the authenticated identity behind a request.
type Caller struct {
	APIKeyID string
	TenantID string
	IsAdmin  bool
}

// ResolveTenant returns the tenant a request acts on. Only admins may name
// a tenant other than their own.
func ResolveTenant(c Caller, requested string) (string, error) {
	if requested == "" || requested == c.TenantID {
		if c.TenantID == "" {
			return "", validationf("tenant_id is required")
		}
		return c.TenantID, nil
	}
	if !c.IsAdmin {
		return "", fmt.Errorf("%w: cannot act on tenant %s", ErrForbidden, requested)
	}
	return requested, nil
}
