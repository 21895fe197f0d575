package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/netedge/internal/model"
)

const ruleColumns = `id, tenant_id, name, description, action, log, enabled,
	source_zone_id, destination_zone_id, created_at, updated_at`

func scanRule(row pgx.Row) (*model.Rule, error) {
	var r model.Rule
	err := row.Scan(&r.ID, &r.TenantID, &r.Name, &r.Description, &r.Accept, &r.Log, &r.Enabled,
		&r.Source.ZoneID, &r.Destination.ZoneID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (t *Tx) InsertRule(ctx context.Context, r *model.Rule) error {
	err := t.q.QueryRow(ctx,
		`INSERT INTO rules (id, tenant_id, name, description, action, log, enabled,
		                    source_zone_id, destination_zone_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now()) RETURNING created_at, updated_at`,
		r.ID, r.TenantID, r.Name, r.Description, r.Accept, r.Log, r.Enabled,
		r.Source.ZoneID, r.Destination.ZoneID,
	).Scan(&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert rule %s: %w", r.ID, err)
	}
	return t.insertRuleChildren(ctx, r)
}

// UpdateRule rewrites the rule row and replaces all of its child rows.
func (t *Tx) UpdateRule(ctx context.Context, r *model.Rule) error {
	err := t.q.QueryRow(ctx,
		`UPDATE rules SET name = $3, description = $4, action = $5, log = $6, enabled = $7,
		        source_zone_id = $8, destination_zone_id = $9, updated_at = now()
		 WHERE id = $1 AND tenant_id = $2 RETURNING created_at, updated_at`,
		r.ID, r.TenantID, r.Name, r.Description, r.Accept, r.Log, r.Enabled,
		r.Source.ZoneID, r.Destination.ZoneID,
	).Scan(&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return notFound(err, "rule", r.ID)
	}
	for _, table := range []string{"rule_addresses", "rule_ipobj_bindings", "rule_service_configs", "rule_serviceobj_bindings"} {
		if _, err := t.q.Exec(ctx, `DELETE FROM `+table+` WHERE rule_id = $1`, r.ID); err != nil {
			return fmt.Errorf("clear %s of rule %s: %w", table, r.ID, err)
		}
	}
	return t.insertRuleChildren(ctx, r)
}

func (t *Tx) insertRuleChildren(ctx context.Context, r *model.Rule) error {
	endpoints := []struct {
		direction string
		ep        model.RuleEndpoint
	}{
		{model.DirectionSource, r.Source},
		{model.DirectionDestination, r.Destination},
	}
	for _, e := range endpoints {
		for i, addr := range e.ep.Addresses {
			if _, err := t.q.Exec(ctx,
				`INSERT INTO rule_addresses (rule_id, direction, position, address) VALUES ($1, $2, $3, $4)`,
				r.ID, e.direction, i, addr,
			); err != nil {
				return fmt.Errorf("insert rule %s address: %w", r.ID, err)
			}
		}
		for i, id := range e.ep.IPObjIDs {
			if _, err := t.q.Exec(ctx,
				`INSERT INTO rule_ipobj_bindings (rule_id, direction, position, ipobj_id) VALUES ($1, $2, $3, $4)`,
				r.ID, e.direction, i, id,
			); err != nil {
				return fmt.Errorf("insert rule %s ipobj binding: %w", r.ID, err)
			}
		}
	}
	for i, s := range r.Service.Services {
		if _, err := t.q.Exec(ctx,
			`INSERT INTO rule_service_configs (rule_id, position, protocol, "values", source_ports) VALUES ($1, $2, $3, $4, $5)`,
			r.ID, i, s.Protocol, jsonArg(s.Values), jsonArg(s.SourcePorts),
		); err != nil {
			return fmt.Errorf("insert rule %s service: %w", r.ID, err)
		}
	}
	for i, id := range r.Service.ServiceObjIDs {
		if _, err := t.q.Exec(ctx,
			`INSERT INTO rule_serviceobj_bindings (rule_id, position, serviceobj_id) VALUES ($1, $2, $3)`,
			r.ID, i, id,
		); err != nil {
			return fmt.Errorf("insert rule %s serviceobj binding: %w", r.ID, err)
		}
	}
	return nil
}

func (t *Tx) GetRule(ctx context.Context, tenantID, id string) (*model.Rule, error) {
	r, err := scanRule(t.q.QueryRow(ctx,
		`SELECT `+ruleColumns+` FROM rules WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	if err != nil {
		return nil, notFound(err, "rule", id)
	}
	if err := t.loadRuleChildren(ctx, map[string]*model.Rule{r.ID: r}, "r.id = $1", r.ID); err != nil {
		return nil, err
	}
	return r, nil
}

// ListRules returns every rule of the tenant in no particular order. The
// order lives in the link nodes.
func (t *Tx) ListRules(ctx context.Context, tenantID string) ([]model.Rule, error) {
	rows, err := t.q.Query(ctx, `SELECT `+ruleColumns+` FROM rules WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var rules []*model.Rule
	byID := map[string]*model.Rule{}
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rules = append(rules, r)
		byID[r.ID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	rows.Close()

	if len(rules) > 0 {
		if err := t.loadRuleChildren(ctx, byID, "r.tenant_id = $1", tenantID); err != nil {
			return nil, err
		}
	}
	out := make([]model.Rule, len(rules))
	for i, r := range rules {
		out[i] = *r
	}
	return out, nil
}

func (t *Tx) DeleteRule(ctx context.Context, tenantID, id string) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM rules WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete rule %s: %w", id, err)
	}
	return expectOne(tag, "rule", id)
}

// loadRuleChildren fills addresses, bindings and services of the rules in
// byID. cond selects the parent rules and takes arg as $1.
func (t *Tx) loadRuleChildren(ctx context.Context, byID map[string]*model.Rule, cond string, arg any) error {
	endpoint := func(r *model.Rule, direction string) *model.RuleEndpoint {
		if direction == model.DirectionSource {
			return &r.Source
		}
		return &r.Destination
	}

	err := t.eachChild(ctx,
		`SELECT c.rule_id, c.direction, c.address FROM rule_addresses c JOIN rules r ON r.id = c.rule_id
		 WHERE `+cond+` ORDER BY c.rule_id, c.direction, c.position`, arg,
		func(rows pgx.Rows) error {
			var ruleID, direction, addr string
			if err := rows.Scan(&ruleID, &direction, &addr); err != nil {
				return err
			}
			if r, ok := byID[ruleID]; ok {
				ep := endpoint(r, direction)
				ep.Addresses = append(ep.Addresses, addr)
			}
			return nil
		})
	if err != nil {
		return fmt.Errorf("load rule addresses: %w", err)
	}

	err = t.eachChild(ctx,
		`SELECT c.rule_id, c.direction, c.ipobj_id FROM rule_ipobj_bindings c JOIN rules r ON r.id = c.rule_id
		 WHERE `+cond+` ORDER BY c.rule_id, c.direction, c.position`, arg,
		func(rows pgx.Rows) error {
			var ruleID, direction, objID string
			if err := rows.Scan(&ruleID, &direction, &objID); err != nil {
				return err
			}
			if r, ok := byID[ruleID]; ok {
				ep := endpoint(r, direction)
				ep.IPObjIDs = append(ep.IPObjIDs, objID)
			}
			return nil
		})
	if err != nil {
		return fmt.Errorf("load rule ipobj bindings: %w", err)
	}

	err = t.eachChild(ctx,
		`SELECT c.rule_id, c.protocol, c."values", c.source_ports FROM rule_service_configs c JOIN rules r ON r.id = c.rule_id
		 WHERE `+cond+` ORDER BY c.rule_id, c.position`, arg,
		func(rows pgx.Rows) error {
			var (
				ruleID              string
				spec                model.ServiceSpec
				values, sourcePorts []byte
			)
			if err := rows.Scan(&ruleID, &spec.Protocol, &values, &sourcePorts); err != nil {
				return err
			}
			spec.Values, spec.SourcePorts = values, sourcePorts
			if r, ok := byID[ruleID]; ok {
				r.Service.Services = append(r.Service.Services, spec)
			}
			return nil
		})
	if err != nil {
		return fmt.Errorf("load rule services: %w", err)
	}

	err = t.eachChild(ctx,
		`SELECT c.rule_id, c.serviceobj_id FROM rule_serviceobj_bindings c JOIN rules r ON r.id = c.rule_id
		 WHERE `+cond+` ORDER BY c.rule_id, c.position`, arg,
		func(rows pgx.Rows) error {
			var ruleID, objID string
			if err := rows.Scan(&ruleID, &objID); err != nil {
				return err
			}
			if r, ok := byID[ruleID]; ok {
				r.Service.ServiceObjIDs = append(r.Service.ServiceObjIDs, objID)
			}
			return nil
		})
	if err != nil {
		return fmt.Errorf("load rule serviceobj bindings: %w", err)
	}
	return nil
}

func (t *Tx) eachChild(ctx context.Context, sql string, arg any, fn func(pgx.Rows) error) error {
	rows, err := t.q.Query(ctx, sql, arg)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
