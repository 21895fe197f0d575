package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/netedge/internal/model"
	"github.com/edvin/netedge/internal/platform"
)

// keyPrefixLen covers the "ne_" marker and the first 8 hex chars.
const keyPrefixLen = 11

// APIKeyService manages the keys callers authenticate with.
type APIKeyService struct {
	db DB
}

func NewAPIKeyService(db DB) *APIKeyService {
	return &APIKeyService{db: db}
}

// HashAPIKey returns the stored form of a raw key.
func HashAPIKey(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(sum[:])
}

// Create generates a key bound to tenantID and returns it along with the raw
// key string. The raw key is not stored and must be shown exactly once.
func (s *APIKeyService) Create(ctx context.Context, name, tenantID string, isAdmin bool) (*model.APIKey, string, error) {
	if strings.TrimSpace(name) == "" {
		return nil, "", validationf("name is required")
	}
	if strings.TrimSpace(tenantID) == "" {
		return nil, "", validationf("tenant_id is required")
	}
	rawKey, err := platform.NewAPIKey()
	if err != nil {
		return nil, "", fmt.Errorf("generate api key: %w", err)
	}

	key := &model.APIKey{
		ID:        platform.NewID(),
		Name:      name,
		KeyHash:   HashAPIKey(rawKey),
		KeyPrefix: rawKey[:keyPrefixLen],
		TenantID:  tenantID,
		IsAdmin:   isAdmin,
	}
	err = s.db.QueryRow(ctx,
		`INSERT INTO api_keys (id, name, key_hash, key_prefix, tenant_id, is_admin, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now()) RETURNING created_at`,
		key.ID, key.Name, key.KeyHash, key.KeyPrefix, key.TenantID, key.IsAdmin,
	).Scan(&key.CreatedAt)
	if err != nil {
		return nil, "", fmt.Errorf("insert api key: %w", err)
	}
	return key, rawKey, nil
}

// Authenticate resolves a raw key to the caller it identifies. Unknown and
// revoked keys are reported as ErrNotFound.
func (s *APIKeyService) Authenticate(ctx context.Context, rawKey string) (Caller, error) {
	var c Caller
	err := s.db.QueryRow(ctx,
		`SELECT id, tenant_id, is_admin FROM api_keys WHERE key_hash = $1 AND revoked_at IS NULL`,
		HashAPIKey(rawKey),
	).Scan(&c.APIKeyID, &c.TenantID, &c.IsAdmin)
	if errors.Is(err, pgx.ErrNoRows) {
		return Caller{}, notFoundf("api key")
	}
	if err != nil {
		return Caller{}, fmt.Errorf("lookup api key: %w", err)
	}
	return c, nil
}

// List returns the keys of a tenant, newest id last, with cursor pagination.
func (s *APIKeyService) List(ctx context.Context, tenantID string, limit int, cursor string) ([]model.APIKey, bool, error) {
	query := `SELECT id, name, key_prefix, tenant_id, is_admin, created_at, revoked_at FROM api_keys WHERE tenant_id = $1`
	args := []any{tenantID}
	if cursor != "" {
		args = append(args, cursor)
		query += fmt.Sprintf(` AND id > $%d`, len(args))
	}
	args = append(args, limit+1)
	query += fmt.Sprintf(` ORDER BY id LIMIT $%d`, len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []model.APIKey
	for rows.Next() {
		var k model.APIKey
		if err := rows.Scan(&k.ID, &k.Name, &k.KeyPrefix, &k.TenantID, &k.IsAdmin, &k.CreatedAt, &k.RevokedAt); err != nil {
			return nil, false, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate api keys: %w", err)
	}

	hasMore := len(keys) > limit
	if hasMore {
		keys = keys[:limit]
	}
	return keys, hasMore, nil
}

// Revoke soft-deletes a key of the tenant by setting revoked_at.
func (s *APIKeyService) Revoke(ctx context.Context, tenantID, id string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE api_keys SET revoked_at = now() WHERE id = $1 AND tenant_id = $2 AND revoked_at IS NULL`,
		id, tenantID,
	)
	if err != nil {
		return fmt.Errorf("revoke api key %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return notFoundf("api key %s not found or already revoked", id)
	}
	return nil
}
