// Package rulechain maintains the per-tenant order of firewall rules as a
// doubly linked list of nodes keyed by rule id.
//
// A tenant's nodes always form a single chain: exactly one head (no prev),
// exactly one tail (no next), and for every node n with n.Next = x,
// x.Prev = n.ID. Every mutation reads the affected nodes, computes the new
// links and writes both sides of each link through the same Store, which is
// expected to be bound to one database transaction.
package rulechain

import (
	"context"
	"errors"
	"fmt"
)

// Node is one link of a tenant's rule chain. ID is the rule id.
type Node struct {
	ID       string
	TenantID string
	PrevID   *string
	NextID   *string
}

// ErrNodeNotFound is returned by a Store when no node exists for the id.
var ErrNodeNotFound = errors.New("rule link node not found")

// Store reads and writes the nodes of a single tenant's chain.
type Store interface {
	// Node returns the node for a rule id, or ErrNodeNotFound.
	Node(ctx context.Context, id string) (*Node, error)
	// Tail returns the node with no successor, or nil for an empty chain.
	// Implementations return a CorruptionError if more than one exists.
	Tail(ctx context.Context) (*Node, error)
	// Insert stores a new node.
	Insert(ctx context.Context, n *Node) error
	// SetLinks overwrites both pointers of an existing node.
	SetLinks(ctx context.Context, id string, prevID, nextID *string) error
	// Delete removes a node.
	Delete(ctx context.Context, id string) error
}

// Append links ruleID after the current tail.
func Append(ctx context.Context, s Store, tenantID, ruleID string) (*Node, error) {
	tail, err := s.Tail(ctx)
	if err != nil {
		return nil, fmt.Errorf("find chain tail: %w", err)
	}

	n := &Node{ID: ruleID, TenantID: tenantID}
	if tail != nil {
		if err := s.SetLinks(ctx, tail.ID, tail.PrevID, &n.ID); err != nil {
			return nil, fmt.Errorf("link tail %s: %w", tail.ID, err)
		}
		n.PrevID = strPtr(tail.ID)
	}

	if err := s.Insert(ctx, n); err != nil {
		return nil, fmt.Errorf("insert node %s: %w", ruleID, err)
	}
	return n, nil
}

// InsertBefore links ruleID immediately in front of locationID.
func InsertBefore(ctx context.Context, s Store, tenantID, ruleID, locationID string) (*Node, error) {
	target, err := s.Node(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("get location node %s: %w", locationID, err)
	}

	n := &Node{ID: ruleID, TenantID: tenantID, NextID: strPtr(target.ID)}
	if target.PrevID != nil {
		prev, err := s.Node(ctx, *target.PrevID)
		if err != nil {
			return nil, fmt.Errorf("get node %s before location: %w", *target.PrevID, err)
		}
		if prev.NextID == nil || *prev.NextID != target.ID {
			return nil, corrupt(tenantID, "node %s does not point forward to %s", prev.ID, target.ID)
		}
		if err := s.SetLinks(ctx, prev.ID, prev.PrevID, &n.ID); err != nil {
			return nil, fmt.Errorf("link node %s: %w", prev.ID, err)
		}
		n.PrevID = strPtr(prev.ID)
	}

	if err := s.SetLinks(ctx, target.ID, &n.ID, target.NextID); err != nil {
		return nil, fmt.Errorf("link location node %s: %w", target.ID, err)
	}
	if err := s.Insert(ctx, n); err != nil {
		return nil, fmt.Errorf("insert node %s: %w", ruleID, err)
	}
	return n, nil
}

// Remove unlinks ruleID, joining its neighbours, and deletes its node.
func Remove(ctx context.Context, s Store, tenantID, ruleID string) error {
	n, err := s.Node(ctx, ruleID)
	if err != nil {
		return fmt.Errorf("get node %s: %w", ruleID, err)
	}

	if n.PrevID != nil {
		prev, err := s.Node(ctx, *n.PrevID)
		if err != nil {
			return fmt.Errorf("get previous node %s: %w", *n.PrevID, err)
		}
		if prev.NextID == nil || *prev.NextID != n.ID {
			return corrupt(tenantID, "node %s does not point forward to %s", prev.ID, n.ID)
		}
		if err := s.SetLinks(ctx, prev.ID, prev.PrevID, n.NextID); err != nil {
			return fmt.Errorf("relink previous node %s: %w", prev.ID, err)
		}
	}

	if n.NextID != nil {
		next, err := s.Node(ctx, *n.NextID)
		if err != nil {
			return fmt.Errorf("get next node %s: %w", *n.NextID, err)
		}
		if next.PrevID == nil || *next.PrevID != n.ID {
			return corrupt(tenantID, "node %s does not point back to %s", next.ID, n.ID)
		}
		if err := s.SetLinks(ctx, next.ID, n.PrevID, next.NextID); err != nil {
			return fmt.Errorf("relink next node %s: %w", next.ID, err)
		}
	}

	if err := s.Delete(ctx, n.ID); err != nil {
		return fmt.Errorf("delete node %s: %w", n.ID, err)
	}
	return nil
}

// Order walks a tenant's complete node set from head to tail and returns the
// rule ids in chain order. Any structural inconsistency is a CorruptionError;
// no partial ordering is ever returned.
func Order(tenantID string, nodes []Node) ([]string, error) {
	if len(nodes) == 0 {
		return []string{}, nil
	}

	byID := make(map[string]*Node, len(nodes))
	var head *Node
	for i := range nodes {
		n := &nodes[i]
		if _, dup := byID[n.ID]; dup {
			return nil, corrupt(tenantID, "duplicate node %s", n.ID)
		}
		byID[n.ID] = n
		if n.PrevID == nil {
			if head != nil {
				return nil, corrupt(tenantID, "multiple heads: %s and %s", head.ID, n.ID)
			}
			head = n
		}
	}
	if head == nil {
		return nil, corrupt(tenantID, "no head among %d nodes", len(nodes))
	}

	order := make([]string, 0, len(nodes))
	seen := make(map[string]bool, len(nodes))
	for cur := head; ; {
		if seen[cur.ID] {
			return nil, corrupt(tenantID, "cycle at node %s", cur.ID)
		}
		seen[cur.ID] = true
		order = append(order, cur.ID)

		if cur.NextID == nil {
			break
		}
		next, ok := byID[*cur.NextID]
		if !ok {
			return nil, corrupt(tenantID, "node %s points to missing node %s", cur.ID, *cur.NextID)
		}
		if next.PrevID == nil || *next.PrevID != cur.ID {
			return nil, corrupt(tenantID, "node %s does not point back to %s", next.ID, cur.ID)
		}
		cur = next
	}

	if len(order) != len(nodes) {
		return nil, corrupt(tenantID, "%d of %d nodes unreachable from head", len(nodes)-len(order), len(nodes))
	}
	return order, nil
}

func strPtr(s string) *string {
	return &s
}
