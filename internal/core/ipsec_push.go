package core

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/edvin/netedge/internal/metrics"
	"github.com/edvin/netedge/internal/vpn"
)

// ipsecPusher renders the edge IPsec document from every live site and
// settles the status of the resource whose change triggered the push.
type ipsecPusher struct {
	store Store
	edge  EdgeSync
}

// settle pushes the current configuration when push is set and moves the
// resource to ACTIVE, or to ERROR if the push failed. The push outcome is
// recorded, not returned.
func (p ipsecPusher) settle(ctx context.Context, kind VPNKind, id string, push bool) error {
	return p.store.WithTx(ctx, func(tx Tx) error {
		var pushErr error
		if push {
			if err := tx.LockEdgeConfig(ctx); err != nil {
				return fmt.Errorf("lock edge config: %w", err)
			}
			bundles, err := tx.ListEdgeSites(ctx)
			if err != nil {
				return fmt.Errorf("list edge sites: %w", err)
			}
			pushErr = p.edge.ApplySites(ctx, bundles)
			if pushErr != nil {
				zerolog.Ctx(ctx).Warn().Err(pushErr).Str("kind", string(kind)).Str("id", id).Msg("ipsec push failed")
			}
		}

		status, msg := vpn.Settle(pushErr)
		metrics.VPNStatusTransitions.WithLabelValues(string(kind), status).Inc()
		if err := tx.SetVPNStatus(ctx, kind, id, status, msg); err != nil {
			return fmt.Errorf("set %s %s status: %w", kind, id, err)
		}
		return nil
	})
}

// remove pushes the configuration without the resource, which must already
// be PENDING_DELETE, and deletes its row once the edge accepted it. On a
// failed push the row is kept in ERROR and the push error is returned.
func (p ipsecPusher) remove(ctx context.Context, kind VPNKind, id string) error {
	var pushErr error
	err := p.store.WithTx(ctx, func(tx Tx) error {
		if err := tx.LockEdgeConfig(ctx); err != nil {
			return fmt.Errorf("lock edge config: %w", err)
		}
		bundles, err := tx.ListEdgeSites(ctx)
		if err != nil {
			return fmt.Errorf("list edge sites: %w", err)
		}

		if pushErr = p.edge.ApplySites(ctx, bundles); pushErr != nil {
			status, msg := vpn.Settle(pushErr)
			metrics.VPNStatusTransitions.WithLabelValues(string(kind), status).Inc()
			if err := tx.SetVPNStatus(ctx, kind, id, status, msg); err != nil {
				return fmt.Errorf("set %s %s status: %w", kind, id, err)
			}
			return nil
		}

		if err := tx.DeleteVPNResource(ctx, kind, id); err != nil {
			return fmt.Errorf("delete %s %s: %w", kind, id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if pushErr != nil {
		return fmt.Errorf("push ipsec config: %w", pushErr)
	}
	return nil
}

// beginTransition moves a resource into a pending status in its own
// transaction so the pending state is visible while the edge is contacted.
func beginTransition(ctx context.Context, store Store, kind VPNKind, tenantID, id string, next func(id, status string) (string, error)) error {
	return store.WithTx(ctx, func(tx Tx) error {
		current, err := tx.GetVPNStatus(ctx, kind, tenantID, id)
		if err != nil {
			return fmt.Errorf("get %s %s: %w", kind, id, err)
		}
		status, err := next(id, current)
		if err != nil {
			return err
		}
		metrics.VPNStatusTransitions.WithLabelValues(string(kind), status).Inc()
		if err := tx.SetVPNStatus(ctx, kind, id, status, nil); err != nil {
			return fmt.Errorf("set %s %s status: %w", kind, id, err)
		}
		return nil
	})
}
