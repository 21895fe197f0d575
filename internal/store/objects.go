package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/netedge/internal/core"
	"github.com/edvin/netedge/internal/model"
)

const ipobjColumns = `id, tenant_id, name, description,
	ARRAY(SELECT address FROM ipobj_addresses a WHERE a.ipobj_id = ipobjs.id ORDER BY a.position),
	created_at, updated_at`

func scanIPObj(row pgx.Row) (*model.IPObj, error) {
	var o model.IPObj
	err := row.Scan(&o.ID, &o.TenantID, &o.Name, &o.Description, &o.Value, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (t *Tx) InsertIPObj(ctx context.Context, o *model.IPObj) error {
	err := t.q.QueryRow(ctx,
		`INSERT INTO ipobjs (id, tenant_id, name, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, now(), now()) RETURNING created_at, updated_at`,
		o.ID, o.TenantID, o.Name, o.Description,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert ipobj %s: %w", o.ID, err)
	}
	_, err = t.q.Exec(ctx,
		`INSERT INTO ipobj_addresses (ipobj_id, position, address)
		 SELECT $1, ord, addr FROM unnest($2::text[]) WITH ORDINALITY AS v(addr, ord)`,
		o.ID, o.Value,
	)
	if err != nil {
		return fmt.Errorf("insert ipobj %s addresses: %w", o.ID, err)
	}
	return nil
}

func (t *Tx) GetIPObj(ctx context.Context, tenantID, id string) (*model.IPObj, error) {
	o, err := scanIPObj(t.q.QueryRow(ctx,
		`SELECT `+ipobjColumns+` FROM ipobjs WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	if err != nil {
		return nil, notFound(err, "ipobj", id)
	}
	return o, nil
}

func (t *Tx) ListIPObjs(ctx context.Context, tenantID string, f core.ListFilter) ([]model.IPObj, bool, error) {
	q := newListQuery(`SELECT `+ipobjColumns+` FROM ipobjs`, tenantID)
	q.eq("name", f.Name)
	q.eq("description", f.Description)
	limit := q.page(f)

	rows, err := t.q.Query(ctx, q.sql, q.args...)
	if err != nil {
		return nil, false, fmt.Errorf("list ipobjs: %w", err)
	}
	defer rows.Close()

	var out []model.IPObj
	for rows.Next() {
		o, err := scanIPObj(rows)
		if err != nil {
			return nil, false, fmt.Errorf("scan ipobj: %w", err)
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate ipobjs: %w", err)
	}
	out, hasMore := trimPage(out, limit)
	return out, hasMore, nil
}

func (t *Tx) DeleteIPObj(ctx context.Context, tenantID, id string) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM ipobjs WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete ipobj %s: %w", id, err)
	}
	return expectOne(tag, "ipobj", id)
}

func (t *Tx) IPObjInUse(ctx context.Context, id string) (bool, error) {
	var inUse bool
	err := t.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM rule_ipobj_bindings WHERE ipobj_id = $1)`, id,
	).Scan(&inUse)
	return inUse, err
}

const serviceobjColumns = `id, tenant_id, name, description, protocol, "values", source_ports, created_at, updated_at`

func scanServiceObj(row pgx.Row) (*model.ServiceObj, error) {
	var (
		o                   model.ServiceObj
		values, sourcePorts []byte
	)
	err := row.Scan(&o.ID, &o.TenantID, &o.Name, &o.Description, &o.Protocol, &values, &sourcePorts, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.Values, o.SourcePorts = values, sourcePorts
	return &o, nil
}

func (t *Tx) InsertServiceObj(ctx context.Context, o *model.ServiceObj) error {
	err := t.q.QueryRow(ctx,
		`INSERT INTO serviceobjs (id, tenant_id, name, description, protocol, "values", source_ports, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now()) RETURNING created_at, updated_at`,
		o.ID, o.TenantID, o.Name, o.Description, o.Protocol, jsonArg(o.Values), jsonArg(o.SourcePorts),
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert serviceobj %s: %w", o.ID, err)
	}
	return nil
}

func (t *Tx) GetServiceObj(ctx context.Context, tenantID, id string) (*model.ServiceObj, error) {
	o, err := scanServiceObj(t.q.QueryRow(ctx,
		`SELECT `+serviceobjColumns+` FROM serviceobjs WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	if err != nil {
		return nil, notFound(err, "serviceobj", id)
	}
	return o, nil
}

func (t *Tx) ListServiceObjs(ctx context.Context, tenantID string, f core.ListFilter) ([]model.ServiceObj, bool, error) {
	q := newListQuery(`SELECT `+serviceobjColumns+` FROM serviceobjs`, tenantID)
	q.eq("name", f.Name)
	q.eq("description", f.Description)
	q.eq("protocol", f.Protocol)
	limit := q.page(f)

	rows, err := t.q.Query(ctx, q.sql, q.args...)
	if err != nil {
		return nil, false, fmt.Errorf("list serviceobjs: %w", err)
	}
	defer rows.Close()

	var out []model.ServiceObj
	for rows.Next() {
		o, err := scanServiceObj(rows)
		if err != nil {
			return nil, false, fmt.Errorf("scan serviceobj: %w", err)
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate serviceobjs: %w", err)
	}
	out, hasMore := trimPage(out, limit)
	return out, hasMore, nil
}

func (t *Tx) DeleteServiceObj(ctx context.Context, tenantID, id string) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM serviceobjs WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete serviceobj %s: %w", id, err)
	}
	return expectOne(tag, "serviceobj", id)
}

func (t *Tx) ServiceObjInUse(ctx context.Context, id string) (bool, error) {
	var inUse bool
	err := t.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM rule_serviceobj_bindings WHERE serviceobj_id = $1)`, id,
	).Scan(&inUse)
	return inUse, err
}

const zoneColumns = `id, tenant_id, name, description,
	ARRAY(SELECT network FROM zone_networks n WHERE n.zone_id = zones.id ORDER BY n.position),
	created_at, updated_at`

func scanZone(row pgx.Row) (*model.Zone, error) {
	var z model.Zone
	err := row.Scan(&z.ID, &z.TenantID, &z.Name, &z.Description, &z.Value, &z.CreatedAt, &z.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &z, nil
}

func (t *Tx) InsertZone(ctx context.Context, z *model.Zone) error {
	err := t.q.QueryRow(ctx,
		`INSERT INTO zones (id, tenant_id, name, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, now(), now()) RETURNING created_at, updated_at`,
		z.ID, z.TenantID, z.Name, z.Description,
	).Scan(&z.CreatedAt, &z.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert zone %s: %w", z.ID, err)
	}
	_, err = t.q.Exec(ctx,
		`INSERT INTO zone_networks (zone_id, position, network)
		 SELECT $1, ord, net FROM unnest($2::text[]) WITH ORDINALITY AS v(net, ord)`,
		z.ID, z.Value,
	)
	if err != nil {
		return fmt.Errorf("insert zone %s networks: %w", z.ID, err)
	}
	return nil
}

func (t *Tx) GetZone(ctx context.Context, tenantID, id string) (*model.Zone, error) {
	z, err := scanZone(t.q.QueryRow(ctx,
		`SELECT `+zoneColumns+` FROM zones WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	if err != nil {
		return nil, notFound(err, "zone", id)
	}
	return z, nil
}

func (t *Tx) ListZones(ctx context.Context, tenantID string, f core.ListFilter) ([]model.Zone, bool, error) {
	q := newListQuery(`SELECT `+zoneColumns+` FROM zones`, tenantID)
	q.eq("name", f.Name)
	q.eq("description", f.Description)
	limit := q.page(f)

	rows, err := t.q.Query(ctx, q.sql, q.args...)
	if err != nil {
		return nil, false, fmt.Errorf("list zones: %w", err)
	}
	defer rows.Close()

	var out []model.Zone
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, false, fmt.Errorf("scan zone: %w", err)
		}
		out = append(out, *z)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate zones: %w", err)
	}
	out, hasMore := trimPage(out, limit)
	return out, hasMore, nil
}

func (t *Tx) DeleteZone(ctx context.Context, tenantID, id string) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM zones WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete zone %s: %w", id, err)
	}
	return expectOne(tag, "zone", id)
}

func (t *Tx) ZoneInUse(ctx context.Context, id string) (bool, error) {
	var inUse bool
	err := t.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM rules WHERE source_zone_id = $1 OR destination_zone_id = $1)`, id,
	).Scan(&inUse)
	return inUse, err
}
