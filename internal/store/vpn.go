package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/netedge/internal/core"
	"github.com/edvin/netedge/internal/model"
	"github.com/edvin/netedge/internal/vpn"
)

const edgeConfigLockKey = "edge-ipsec-config"

var vpnTables = map[core.VPNKind]string{
	core.KindSite:         "sites",
	core.KindIPSecPolicy:  "ipsec_policies",
	core.KindIsakmpPolicy: "isakmp_policies",
	core.KindTrustProfile: "trust_profiles",
}

// siteReferenceColumns maps a policy kind to the sites column referencing it.
var siteReferenceColumns = map[core.VPNKind]string{
	core.KindIPSecPolicy:  "ipsec_policy_id",
	core.KindIsakmpPolicy: "isakmp_policy_id",
	core.KindTrustProfile: "trust_profile_id",
}

func vpnTable(kind core.VPNKind) (string, error) {
	table, ok := vpnTables[kind]
	if !ok {
		return "", fmt.Errorf("unknown vpn resource kind %q", kind)
	}
	return table, nil
}

// ---------- IPSec policies ----------

const ipsecColumns = `id, tenant_id, name, description, enc_alg, auth_alg, dh_group, life_time,
	status, status_message, created_at, updated_at`

func scanIPSecPolicy(row pgx.Row) (*model.IPSecPolicy, error) {
	var p model.IPSecPolicy
	err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.Description, &p.EncryptionAlgorithm,
		&p.AuthenticationAlgorithm, &p.DHGroup, &p.LifeTime, &p.Status, &p.StatusMessage,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *Tx) InsertIPSecPolicy(ctx context.Context, p *model.IPSecPolicy) error {
	err := t.q.QueryRow(ctx,
		`INSERT INTO ipsec_policies (id, tenant_id, name, description, enc_alg, auth_alg, dh_group,
		                             life_time, status, status_message, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now()) RETURNING created_at, updated_at`,
		p.ID, p.TenantID, p.Name, p.Description, p.EncryptionAlgorithm, p.AuthenticationAlgorithm,
		p.DHGroup, p.LifeTime, p.Status, p.StatusMessage,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert ipsec policy %s: %w", p.ID, err)
	}
	return nil
}

func (t *Tx) GetIPSecPolicy(ctx context.Context, tenantID, id string) (*model.IPSecPolicy, error) {
	p, err := scanIPSecPolicy(t.q.QueryRow(ctx,
		`SELECT `+ipsecColumns+` FROM ipsec_policies WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	if err != nil {
		return nil, notFound(err, "ipsec policy", id)
	}
	return p, nil
}

func (t *Tx) ListIPSecPolicies(ctx context.Context, tenantID string, f core.ListFilter) ([]model.IPSecPolicy, bool, error) {
	q := newListQuery(`SELECT `+ipsecColumns+` FROM ipsec_policies`, tenantID)
	q.eq("name", f.Name)
	q.eq("description", f.Description)
	q.eq("status", f.Status)
	limit := q.page(f)

	out, err := collect(ctx, t.q, q, scanIPSecPolicy)
	if err != nil {
		return nil, false, fmt.Errorf("list ipsec policies: %w", err)
	}
	out, hasMore := trimPage(out, limit)
	return out, hasMore, nil
}

func (t *Tx) UpdateIPSecPolicy(ctx context.Context, p *model.IPSecPolicy) error {
	err := t.q.QueryRow(ctx,
		`UPDATE ipsec_policies SET name = $3, description = $4, enc_alg = $5, auth_alg = $6, dh_group = $7,
		        life_time = $8, status = $9, status_message = $10, updated_at = now()
		 WHERE id = $1 AND tenant_id = $2 RETURNING updated_at`,
		p.ID, p.TenantID, p.Name, p.Description, p.EncryptionAlgorithm, p.AuthenticationAlgorithm,
		p.DHGroup, p.LifeTime, p.Status, p.StatusMessage,
	).Scan(&p.UpdatedAt)
	if err != nil {
		return notFound(err, "ipsec policy", p.ID)
	}
	return nil
}

// ---------- ISAKMP policies ----------

const isakmpColumns = `id, tenant_id, name, description, auth_mode, enc_alg, auth_alg, enable_pfs,
	dh_group, life_time, status, status_message, created_at, updated_at`

func scanIsakmpPolicy(row pgx.Row) (*model.IsakmpPolicy, error) {
	var p model.IsakmpPolicy
	err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.Description, &p.AuthenticationMode,
		&p.EncryptionAlgorithm, &p.AuthenticationAlgorithm, &p.EnablePFS, &p.DHGroup, &p.LifeTime,
		&p.Status, &p.StatusMessage, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *Tx) InsertIsakmpPolicy(ctx context.Context, p *model.IsakmpPolicy) error {
	err := t.q.QueryRow(ctx,
		`INSERT INTO isakmp_policies (id, tenant_id, name, description, auth_mode, enc_alg, auth_alg,
		                              enable_pfs, dh_group, life_time, status, status_message, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now(), now()) RETURNING created_at, updated_at`,
		p.ID, p.TenantID, p.Name, p.Description, p.AuthenticationMode, p.EncryptionAlgorithm,
		p.AuthenticationAlgorithm, p.EnablePFS, p.DHGroup, p.LifeTime, p.Status, p.StatusMessage,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert isakmp policy %s: %w", p.ID, err)
	}
	return nil
}

func (t *Tx) GetIsakmpPolicy(ctx context.Context, tenantID, id string) (*model.IsakmpPolicy, error) {
	p, err := scanIsakmpPolicy(t.q.QueryRow(ctx,
		`SELECT `+isakmpColumns+` FROM isakmp_policies WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	if err != nil {
		return nil, notFound(err, "isakmp policy", id)
	}
	return p, nil
}

func (t *Tx) ListIsakmpPolicies(ctx context.Context, tenantID string, f core.ListFilter) ([]model.IsakmpPolicy, bool, error) {
	q := newListQuery(`SELECT `+isakmpColumns+` FROM isakmp_policies`, tenantID)
	q.eq("name", f.Name)
	q.eq("description", f.Description)
	q.eq("status", f.Status)
	limit := q.page(f)

	out, err := collect(ctx, t.q, q, scanIsakmpPolicy)
	if err != nil {
		return nil, false, fmt.Errorf("list isakmp policies: %w", err)
	}
	out, hasMore := trimPage(out, limit)
	return out, hasMore, nil
}

func (t *Tx) UpdateIsakmpPolicy(ctx context.Context, p *model.IsakmpPolicy) error {
	err := t.q.QueryRow(ctx,
		`UPDATE isakmp_policies SET name = $3, description = $4, auth_mode = $5, enc_alg = $6, auth_alg = $7,
		        enable_pfs = $8, dh_group = $9, life_time = $10, status = $11, status_message = $12,
		        updated_at = now()
		 WHERE id = $1 AND tenant_id = $2 RETURNING updated_at`,
		p.ID, p.TenantID, p.Name, p.Description, p.AuthenticationMode, p.EncryptionAlgorithm,
		p.AuthenticationAlgorithm, p.EnablePFS, p.DHGroup, p.LifeTime, p.Status, p.StatusMessage,
	).Scan(&p.UpdatedAt)
	if err != nil {
		return notFound(err, "isakmp policy", p.ID)
	}
	return nil
}

// ---------- Trust profiles ----------

const trustColumns = `id, tenant_id, name, description, trust_ca, crl, server_cert,
	status, status_message, created_at, updated_at`

func scanTrustProfile(row pgx.Row) (*model.TrustProfile, error) {
	var p model.TrustProfile
	err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.Description, &p.TrustCA, &p.CRL,
		&p.ServerCertificate, &p.Status, &p.StatusMessage, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *Tx) InsertTrustProfile(ctx context.Context, p *model.TrustProfile) error {
	err := t.q.QueryRow(ctx,
		`INSERT INTO trust_profiles (id, tenant_id, name, description, trust_ca, crl, server_cert,
		                             status, status_message, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now()) RETURNING created_at, updated_at`,
		p.ID, p.TenantID, p.Name, p.Description, p.TrustCA, p.CRL, p.ServerCertificate,
		p.Status, p.StatusMessage,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert trust profile %s: %w", p.ID, err)
	}
	return nil
}

func (t *Tx) GetTrustProfile(ctx context.Context, tenantID, id string) (*model.TrustProfile, error) {
	p, err := scanTrustProfile(t.q.QueryRow(ctx,
		`SELECT `+trustColumns+` FROM trust_profiles WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	if err != nil {
		return nil, notFound(err, "trust profile", id)
	}
	return p, nil
}

func (t *Tx) ListTrustProfiles(ctx context.Context, tenantID string, f core.ListFilter) ([]model.TrustProfile, bool, error) {
	q := newListQuery(`SELECT `+trustColumns+` FROM trust_profiles`, tenantID)
	q.eq("name", f.Name)
	q.eq("description", f.Description)
	q.eq("status", f.Status)
	limit := q.page(f)

	out, err := collect(ctx, t.q, q, scanTrustProfile)
	if err != nil {
		return nil, false, fmt.Errorf("list trust profiles: %w", err)
	}
	out, hasMore := trimPage(out, limit)
	return out, hasMore, nil
}

func (t *Tx) UpdateTrustProfile(ctx context.Context, p *model.TrustProfile) error {
	err := t.q.QueryRow(ctx,
		`UPDATE trust_profiles SET name = $3, description = $4, trust_ca = $5, crl = $6, server_cert = $7,
		        status = $8, status_message = $9, updated_at = now()
		 WHERE id = $1 AND tenant_id = $2 RETURNING updated_at`,
		p.ID, p.TenantID, p.Name, p.Description, p.TrustCA, p.CRL, p.ServerCertificate,
		p.Status, p.StatusMessage,
	).Scan(&p.UpdatedAt)
	if err != nil {
		return notFound(err, "trust profile", p.ID)
	}
	return nil
}

// ---------- Sites ----------

const siteColumns = `id, tenant_id, name, description, subnet_id, local_endpoint, peer_endpoint,
	local_id, peer_id, psk, mtu, pri_networks, ipsec_policy_id, isakmp_policy_id, trust_profile_id,
	status, status_message, created_at, updated_at`

func scanSite(row pgx.Row) (*model.Site, error) {
	var (
		s           model.Site
		priNetworks string
	)
	err := row.Scan(&s.ID, &s.TenantID, &s.Name, &s.Description, &s.SubnetID, &s.LocalEndpoint,
		&s.PeerEndpoint, &s.LocalID, &s.PeerID, &s.PSK, &s.MTU, &priNetworks, &s.IPSecPolicyID,
		&s.IsakmpPolicyID, &s.TrustProfileID, &s.Status, &s.StatusMessage, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.PriNetworks = vpn.DecodeSubnetPairs(priNetworks)
	return &s, nil
}

func (t *Tx) InsertSite(ctx context.Context, s *model.Site) error {
	priNetworks, err := vpn.EncodeSubnetPairs(s.PriNetworks)
	if err != nil {
		return err
	}
	err = t.q.QueryRow(ctx,
		`INSERT INTO sites (id, tenant_id, name, description, subnet_id, local_endpoint, peer_endpoint,
		                    local_id, peer_id, psk, mtu, pri_networks, ipsec_policy_id, isakmp_policy_id,
		                    trust_profile_id, status, status_message, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, now(), now())
		 RETURNING created_at, updated_at`,
		s.ID, s.TenantID, s.Name, s.Description, s.SubnetID, s.LocalEndpoint, s.PeerEndpoint,
		s.LocalID, s.PeerID, s.PSK, s.MTU, priNetworks, s.IPSecPolicyID, s.IsakmpPolicyID,
		s.TrustProfileID, s.Status, s.StatusMessage,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert site %s: %w", s.ID, err)
	}
	return nil
}

func (t *Tx) GetSite(ctx context.Context, tenantID, id string) (*model.Site, error) {
	s, err := scanSite(t.q.QueryRow(ctx,
		`SELECT `+siteColumns+` FROM sites WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	if err != nil {
		return nil, notFound(err, "site", id)
	}
	return s, nil
}

func (t *Tx) ListSites(ctx context.Context, tenantID string, f core.ListFilter) ([]model.Site, bool, error) {
	q := newListQuery(`SELECT `+siteColumns+` FROM sites`, tenantID)
	q.eq("name", f.Name)
	q.eq("description", f.Description)
	q.eq("status", f.Status)
	limit := q.page(f)

	out, err := collect(ctx, t.q, q, scanSite)
	if err != nil {
		return nil, false, fmt.Errorf("list sites: %w", err)
	}
	out, hasMore := trimPage(out, limit)
	return out, hasMore, nil
}

func (t *Tx) UpdateSite(ctx context.Context, s *model.Site) error {
	priNetworks, err := vpn.EncodeSubnetPairs(s.PriNetworks)
	if err != nil {
		return err
	}
	err = t.q.QueryRow(ctx,
		`UPDATE sites SET name = $3, description = $4, subnet_id = $5, local_endpoint = $6,
		        peer_endpoint = $7, local_id = $8, peer_id = $9, psk = $10, mtu = $11, pri_networks = $12,
		        ipsec_policy_id = $13, isakmp_policy_id = $14, trust_profile_id = $15, status = $16,
		        status_message = $17, updated_at = now()
		 WHERE id = $1 AND tenant_id = $2 RETURNING updated_at`,
		s.ID, s.TenantID, s.Name, s.Description, s.SubnetID, s.LocalEndpoint, s.PeerEndpoint,
		s.LocalID, s.PeerID, s.PSK, s.MTU, priNetworks, s.IPSecPolicyID, s.IsakmpPolicyID,
		s.TrustProfileID, s.Status, s.StatusMessage,
	).Scan(&s.UpdatedAt)
	if err != nil {
		return notFound(err, "site", s.ID)
	}
	return nil
}

func (t *Tx) SiteEndpointsTaken(ctx context.Context, tenantID, localEndpoint, peerEndpoint, excludeID string) (bool, error) {
	var taken bool
	err := t.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM sites
		  WHERE tenant_id = $1 AND local_endpoint = $2 AND peer_endpoint = $3 AND id <> $4)`,
		tenantID, localEndpoint, peerEndpoint, excludeID,
	).Scan(&taken)
	return taken, err
}

func (t *Tx) SitesUsingPolicy(ctx context.Context, kind core.VPNKind, id string) (int, error) {
	column, ok := siteReferenceColumns[kind]
	if !ok {
		return 0, fmt.Errorf("sites do not reference %q", kind)
	}
	var n int
	err := t.q.QueryRow(ctx, `SELECT count(*) FROM sites WHERE `+column+` = $1`, id).Scan(&n)
	return n, err
}

// ListEdgeSites loads every site that belongs in the device configuration
// together with the policies it references.
func (t *Tx) ListEdgeSites(ctx context.Context) ([]model.SiteBundle, error) {
	rows, err := t.q.Query(ctx,
		`SELECT `+siteColumns+` FROM sites WHERE status <> $1 ORDER BY created_at, id`,
		model.StatusPendingDelete)
	if err != nil {
		return nil, fmt.Errorf("list edge sites: %w", err)
	}
	var sites []model.Site
	for rows.Next() {
		s, err := scanSite(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan site: %w", err)
		}
		sites = append(sites, *s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edge sites: %w", err)
	}

	bundles := make([]model.SiteBundle, 0, len(sites))
	for _, s := range sites {
		b := model.SiteBundle{Site: s}
		if s.IPSecPolicyID != nil {
			if b.IPSecPolicy, err = t.GetIPSecPolicy(ctx, s.TenantID, *s.IPSecPolicyID); err != nil {
				return nil, err
			}
		}
		if s.IsakmpPolicyID != nil {
			if b.IsakmpPolicy, err = t.GetIsakmpPolicy(ctx, s.TenantID, *s.IsakmpPolicyID); err != nil {
				return nil, err
			}
		}
		if s.TrustProfileID != nil {
			if b.TrustProfile, err = t.GetTrustProfile(ctx, s.TenantID, *s.TrustProfileID); err != nil {
				return nil, err
			}
		}
		bundles = append(bundles, b)
	}
	return bundles, nil
}

func (t *Tx) LockEdgeConfig(ctx context.Context) error {
	return t.advisoryLock(ctx, edgeConfigLockKey)
}

// ---------- Status ----------

func (t *Tx) GetVPNStatus(ctx context.Context, kind core.VPNKind, tenantID, id string) (string, error) {
	table, err := vpnTable(kind)
	if err != nil {
		return "", err
	}
	var status string
	err = t.q.QueryRow(ctx,
		`SELECT status FROM `+table+` WHERE id = $1 AND tenant_id = $2`, id, tenantID,
	).Scan(&status)
	if err != nil {
		return "", notFound(err, string(kind), id)
	}
	return status, nil
}

func (t *Tx) SetVPNStatus(ctx context.Context, kind core.VPNKind, id, status string, message *string) error {
	table, err := vpnTable(kind)
	if err != nil {
		return err
	}
	tag, err := t.q.Exec(ctx,
		`UPDATE `+table+` SET status = $2, status_message = $3, updated_at = now() WHERE id = $1`,
		id, status, message,
	)
	if err != nil {
		return fmt.Errorf("set %s %s status: %w", kind, id, err)
	}
	return expectOne(tag, string(kind), id)
}

func (t *Tx) DeleteVPNResource(ctx context.Context, kind core.VPNKind, id string) error {
	table, err := vpnTable(kind)
	if err != nil {
		return err
	}
	tag, err := t.q.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, id, err)
	}
	return expectOne(tag, string(kind), id)
}

// collect runs q and scans every row with scan.
func collect[T any](ctx context.Context, db Querier, q *listQuery, scan func(pgx.Row) (*T, error)) ([]T, error) {
	rows, err := db.Query(ctx, q.sql, q.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return out, nil
}
