package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/netedge/internal/rulechain"
)

func (t *Tx) LockRuleChain(ctx context.Context, tenantID string) error {
	return t.advisoryLock(ctx, "rule-chain:"+tenantID)
}

func (t *Tx) RuleChain(tenantID string) rulechain.Store {
	return &ruleChain{q: t.q, tenantID: tenantID}
}

func (t *Tx) ListRuleNodes(ctx context.Context, tenantID string) ([]rulechain.Node, error) {
	rows, err := t.q.Query(ctx,
		`SELECT rule_id, tenant_id, prev_id, next_id FROM rule_link_nodes WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list rule link nodes: %w", err)
	}
	defer rows.Close()

	var nodes []rulechain.Node
	for rows.Next() {
		var n rulechain.Node
		if err := rows.Scan(&n.ID, &n.TenantID, &n.PrevID, &n.NextID); err != nil {
			return nil, fmt.Errorf("scan rule link node: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rule link nodes: %w", err)
	}
	return nodes, nil
}

// ruleChain is the rulechain.Store of one tenant inside a transaction.
type ruleChain struct {
	q        Querier
	tenantID string
}

func (c *ruleChain) Node(ctx context.Context, id string) (*rulechain.Node, error) {
	var n rulechain.Node
	err := c.q.QueryRow(ctx,
		`SELECT rule_id, tenant_id, prev_id, next_id FROM rule_link_nodes WHERE rule_id = $1 AND tenant_id = $2`,
		id, c.tenantID,
	).Scan(&n.ID, &n.TenantID, &n.PrevID, &n.NextID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, rulechain.ErrNodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get rule link node %s: %w", id, err)
	}
	return &n, nil
}

func (c *ruleChain) Tail(ctx context.Context) (*rulechain.Node, error) {
	rows, err := c.q.Query(ctx,
		`SELECT rule_id, tenant_id, prev_id, next_id FROM rule_link_nodes
		 WHERE tenant_id = $1 AND next_id IS NULL LIMIT 2`, c.tenantID)
	if err != nil {
		return nil, fmt.Errorf("find rule chain tail: %w", err)
	}
	defer rows.Close()

	var tails []rulechain.Node
	for rows.Next() {
		var n rulechain.Node
		if err := rows.Scan(&n.ID, &n.TenantID, &n.PrevID, &n.NextID); err != nil {
			return nil, fmt.Errorf("scan rule link node: %w", err)
		}
		tails = append(tails, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rule chain tail: %w", err)
	}

	switch len(tails) {
	case 0:
		return nil, nil
	case 1:
		return &tails[0], nil
	default:
		return nil, rulechain.Corrupt(c.tenantID, "multiple tails (%s, %s)", tails[0].ID, tails[1].ID)
	}
}

func (c *ruleChain) Insert(ctx context.Context, n *rulechain.Node) error {
	_, err := c.q.Exec(ctx,
		`INSERT INTO rule_link_nodes (rule_id, tenant_id, prev_id, next_id) VALUES ($1, $2, $3, $4)`,
		n.ID, c.tenantID, n.PrevID, n.NextID,
	)
	if err != nil {
		return fmt.Errorf("insert rule link node %s: %w", n.ID, err)
	}
	return nil
}

func (c *ruleChain) SetLinks(ctx context.Context, id string, prevID, nextID *string) error {
	tag, err := c.q.Exec(ctx,
		`UPDATE rule_link_nodes SET prev_id = $3, next_id = $4 WHERE rule_id = $1 AND tenant_id = $2`,
		id, c.tenantID, prevID, nextID,
	)
	if err != nil {
		return fmt.Errorf("relink rule link node %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return rulechain.ErrNodeNotFound
	}
	return nil
}

func (c *ruleChain) Delete(ctx context.Context, id string) error {
	tag, err := c.q.Exec(ctx,
		`DELETE FROM rule_link_nodes WHERE rule_id = $1 AND tenant_id = $2`, id, c.tenantID)
	if err != nil {
		return fmt.Errorf("delete rule link node %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return rulechain.ErrNodeNotFound
	}
	return nil
}
