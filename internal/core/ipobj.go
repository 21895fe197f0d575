package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/edvin/netedge/internal/model"
	"github.com/edvin/netedge/internal/platform"
)

type IPObjService struct {
	store Store
	edge  EdgeSync
}

func NewIPObjService(store Store, edge EdgeSync) *IPObjService {
	return &IPObjService{store: store, edge: edge}
}

// Create stores an IP object and pushes it to the edge in the same unit of
// work; a failed push leaves nothing behind.
func (s *IPObjService) Create(ctx context.Context, obj *model.IPObj) error {
	if strings.TrimSpace(obj.Name) == "" {
		return validationf("name is required")
	}
	obj.Value = cleanValues(obj.Value)
	if len(obj.Value) == 0 {
		return validationf("value must hold at least one address")
	}
	obj.ID = platform.NewID()

	err := s.store.WithTx(ctx, func(tx Tx) error {
		if err := tx.InsertIPObj(ctx, obj); err != nil {
			return fmt.Errorf("insert ipobj: %w", err)
		}
		if err := s.edge.CreateIPObj(ctx, tx, *obj); err != nil {
			return fmt.Errorf("push ipobj: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Str("tenant_id", obj.TenantID).Str("ipobj_id", obj.ID).Msg("ipobj created")
	return nil
}

func (s *IPObjService) Get(ctx context.Context, tenantID, id string) (*model.IPObj, error) {
	var obj *model.IPObj
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		obj, err = tx.GetIPObj(ctx, tenantID, id)
		if err != nil {
			return fmt.Errorf("get ipobj %s: %w", id, err)
		}
		return nil
	})
	return obj, err
}

func (s *IPObjService) List(ctx context.Context, tenantID string, f ListFilter) ([]model.IPObj, bool, error) {
	var (
		objs    []model.IPObj
		hasMore bool
	)
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		objs, hasMore, err = tx.ListIPObjs(ctx, tenantID, f)
		if err != nil {
			return fmt.Errorf("list ipobjs: %w", err)
		}
		return nil
	})
	return objs, hasMore, err
}

// Delete removes an IP object that no rule references.
func (s *IPObjService) Delete(ctx context.Context, tenantID, id string) error {
	return s.store.WithTx(ctx, func(tx Tx) error {
		if _, err := tx.GetIPObj(ctx, tenantID, id); err != nil {
			return fmt.Errorf("get ipobj %s: %w", id, err)
		}
		inUse, err := tx.IPObjInUse(ctx, id)
		if err != nil {
			return fmt.Errorf("check ipobj usage: %w", err)
		}
		if inUse {
			return conflictf("ipobj %s is referenced by a rule", id)
		}
		if err := tx.DeleteIPObj(ctx, tenantID, id); err != nil {
			return fmt.Errorf("delete ipobj %s: %w", id, err)
		}
		if err := s.edge.DeleteIPObj(ctx, tx, id); err != nil {
			return fmt.Errorf("push ipobj delete: %w", err)
		}
		return nil
	})
}

// cleanValues trims entries and drops blanks and duplicates.
func cleanValues(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
