package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/edvin/netedge/internal/compose"
	"github.com/edvin/netedge/internal/metrics"
	"github.com/edvin/netedge/internal/model"
	"github.com/edvin/netedge/internal/platform"
	"github.com/edvin/netedge/internal/rulechain"
)

// RuleService manages a tenant's ordered firewall rule list.
type RuleService struct {
	store Store
	edge  EdgeSync
}

func NewRuleService(store Store, edge EdgeSync) *RuleService {
	return &RuleService{store: store, edge: edge}
}

// RuleFilter narrows List. Empty fields do not filter.
type RuleFilter struct {
	Name    string
	Enabled *bool
	Action  string
	Log     string
}

// RulePatch holds the fields of an update. Nil fields are left unchanged;
// a non-nil endpoint or service replaces the whole descriptor.
type RulePatch struct {
	Name        *string
	Description *string
	Action      *string
	Log         *string
	Enabled     *bool
	Source      *compose.Endpoint
	Destination *compose.Endpoint
	Service     *compose.Service
}

// Create stores a rule and links it into the tenant's chain, directly
// before location when given, otherwise at the tail.
func (s *RuleService) Create(ctx context.Context, tenantID string, doc compose.Document, location string) (*compose.Document, error) {
	doc.ID = platform.NewID()
	doc.TenantID = tenantID
	rule, err := compose.Normalize(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	err = s.store.WithTx(ctx, func(tx Tx) error {
		if err := tx.LockRuleChain(ctx, tenantID); err != nil {
			return fmt.Errorf("lock rule chain: %w", err)
		}
		if err := checkRuleReferences(ctx, tx, &rule); err != nil {
			return err
		}

		var before *string
		if location != "" {
			if _, err := tx.GetRule(ctx, tenantID, location); err != nil {
				return fmt.Errorf("location rule: %w", err)
			}
			before = &location
		}

		if err := tx.InsertRule(ctx, &rule); err != nil {
			return fmt.Errorf("insert rule: %w", err)
		}

		chain := tx.RuleChain(tenantID)
		if before != nil {
			_, err = rulechain.InsertBefore(ctx, chain, tenantID, rule.ID, *before)
		} else {
			_, err = rulechain.Append(ctx, chain, tenantID, rule.ID)
		}
		if err != nil {
			return s.chainError(ctx, err)
		}

		if err := s.edge.CreateRule(ctx, tx, rule, before); err != nil {
			return fmt.Errorf("push rule: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().Str("tenant_id", tenantID).Str("rule_id", rule.ID).Msg("rule created")
	out := compose.Denormalize(rule)
	return &out, nil
}

// Get returns one rule of the tenant.
func (s *RuleService) Get(ctx context.Context, tenantID, id string) (*compose.Document, error) {
	var out compose.Document
	err := s.store.WithTx(ctx, func(tx Tx) error {
		r, err := tx.GetRule(ctx, tenantID, id)
		if err != nil {
			return fmt.Errorf("get rule %s: %w", id, err)
		}
		out = compose.Denormalize(*r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns the tenant's rules in chain order, then applies f. Nodes and
// rules are read by separate statements, so the chain lock is held to keep
// writers from committing between them.
func (s *RuleService) List(ctx context.Context, tenantID string, f RuleFilter) ([]compose.Document, error) {
	var out []compose.Document
	err := s.store.WithTx(ctx, func(tx Tx) error {
		if err := tx.LockRuleChain(ctx, tenantID); err != nil {
			return fmt.Errorf("lock rule chain: %w", err)
		}
		nodes, err := tx.ListRuleNodes(ctx, tenantID)
		if err != nil {
			return fmt.Errorf("list rule nodes: %w", err)
		}
		order, err := rulechain.Order(tenantID, nodes)
		if err != nil {
			return s.chainError(ctx, err)
		}

		rules, err := tx.ListRules(ctx, tenantID)
		if err != nil {
			return fmt.Errorf("list rules: %w", err)
		}
		byID := make(map[string]model.Rule, len(rules))
		for _, r := range rules {
			byID[r.ID] = r
		}
		if len(byID) != len(order) {
			return s.chainError(ctx, rulechain.Corrupt(tenantID, "%d rules but %d chain nodes", len(byID), len(order)))
		}

		out = make([]compose.Document, 0, len(order))
		for _, id := range order {
			r, ok := byID[id]
			if !ok {
				return s.chainError(ctx, rulechain.Corrupt(tenantID, "chain node %s has no rule", id))
			}
			doc := compose.Denormalize(r)
			if f.matches(doc) {
				out = append(out, doc)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update changes a rule in place. Its position in the chain is kept.
func (s *RuleService) Update(ctx context.Context, tenantID, id string, p RulePatch) (*compose.Document, error) {
	var out compose.Document
	err := s.store.WithTx(ctx, func(tx Tx) error {
		if err := tx.LockRuleChain(ctx, tenantID); err != nil {
			return fmt.Errorf("lock rule chain: %w", err)
		}
		current, err := tx.GetRule(ctx, tenantID, id)
		if err != nil {
			return fmt.Errorf("get rule %s: %w", id, err)
		}

		doc := p.apply(compose.Denormalize(*current))
		rule, err := compose.Normalize(doc)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		if err := checkRuleReferences(ctx, tx, &rule); err != nil {
			return err
		}
		if err := tx.UpdateRule(ctx, &rule); err != nil {
			return fmt.Errorf("update rule %s: %w", id, err)
		}
		if err := s.edge.UpdateRule(ctx, tx, rule); err != nil {
			return fmt.Errorf("push rule: %w", err)
		}

		updated, err := tx.GetRule(ctx, tenantID, id)
		if err != nil {
			return fmt.Errorf("reload rule %s: %w", id, err)
		}
		out = compose.Denormalize(*updated)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete unlinks a rule from the chain and removes it.
func (s *RuleService) Delete(ctx context.Context, tenantID, id string) error {
	err := s.store.WithTx(ctx, func(tx Tx) error {
		if err := tx.LockRuleChain(ctx, tenantID); err != nil {
			return fmt.Errorf("lock rule chain: %w", err)
		}
		if _, err := tx.GetRule(ctx, tenantID, id); err != nil {
			return fmt.Errorf("get rule %s: %w", id, err)
		}
		if err := rulechain.Remove(ctx, tx.RuleChain(tenantID), tenantID, id); err != nil {
			return s.chainError(ctx, err)
		}
		if err := tx.DeleteRule(ctx, tenantID, id); err != nil {
			return fmt.Errorf("delete rule %s: %w", id, err)
		}
		if err := s.edge.DeleteRule(ctx, tx, id); err != nil {
			return fmt.Errorf("push rule delete: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Str("tenant_id", tenantID).Str("rule_id", id).Msg("rule deleted")
	return nil
}

func (s *RuleService) chainError(ctx context.Context, err error) error {
	if rulechain.IsCorruption(err) {
		metrics.RuleChainCorruptions.Inc()
		zerolog.Ctx(ctx).Error().Err(err).Msg("rule chain corrupted")
		return err
	}
	if errors.Is(err, rulechain.ErrNodeNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return fmt.Errorf("update rule chain: %w", err)
}

// checkRuleReferences verifies that every object a rule references exists
// and belongs to the rule's tenant.
func checkRuleReferences(ctx context.Context, tx Tx, r *model.Rule) error {
	for _, id := range r.ReferencedIPObjs() {
		if _, err := tx.GetIPObj(ctx, r.TenantID, id); err != nil {
			return fmt.Errorf("ipobj %s: %w", id, err)
		}
	}
	for _, id := range r.Service.ServiceObjIDs {
		if _, err := tx.GetServiceObj(ctx, r.TenantID, id); err != nil {
			return fmt.Errorf("serviceobj %s: %w", id, err)
		}
	}
	for _, z := range []*string{r.Source.ZoneID, r.Destination.ZoneID} {
		if z == nil {
			continue
		}
		if _, err := tx.GetZone(ctx, r.TenantID, *z); err != nil {
			return fmt.Errorf("zone %s: %w", *z, err)
		}
	}
	return nil
}

func (p RulePatch) apply(doc compose.Document) compose.Document {
	if p.Name != nil {
		doc.Name = *p.Name
	}
	if p.Description != nil {
		doc.Description = *p.Description
	}
	if p.Action != nil {
		doc.Action = *p.Action
	}
	if p.Log != nil {
		doc.Log = *p.Log
	}
	if p.Enabled != nil {
		doc.Enabled = *p.Enabled
	}
	if p.Source != nil {
		doc.Source = *p.Source
	}
	if p.Destination != nil {
		doc.Destination = *p.Destination
	}
	if p.Service != nil {
		doc.Service = *p.Service
	}
	return doc
}

func (f RuleFilter) matches(doc compose.Document) bool {
	if f.Name != "" && doc.Name != f.Name {
		return false
	}
	if f.Enabled != nil && doc.Enabled != *f.Enabled {
		return false
	}
	if f.Action != "" && !strings.EqualFold(doc.Action, f.Action) {
		return false
	}
	if f.Log != "" && !strings.EqualFold(doc.Log, f.Log) {
		return false
	}
	return true
}
