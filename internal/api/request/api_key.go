package request

type CreateAPIKey struct {
	TenantID string `json:"tenant_id"`
	Name     string `json:"name" validate:"required,max=255"`
	IsAdmin  bool   `json:"is_admin"`
}
