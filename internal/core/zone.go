package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/edvin/netedge/internal/model"
	"github.com/edvin/netedge/internal/platform"
)

// ZoneService manages network zones. Zones are local only; the edge has no
// counterpart object for them.
type ZoneService struct {
	store Store
}

func NewZoneService(store Store) *ZoneService {
	return &ZoneService{store: store}
}

func (s *ZoneService) Create(ctx context.Context, zone *model.Zone) error {
	if strings.TrimSpace(zone.Name) == "" {
		return validationf("name is required")
	}
	zone.Value = cleanValues(zone.Value)
	zone.ID = platform.NewID()

	return s.store.WithTx(ctx, func(tx Tx) error {
		if err := tx.InsertZone(ctx, zone); err != nil {
			return fmt.Errorf("insert zone: %w", err)
		}
		return nil
	})
}

func (s *ZoneService) Get(ctx context.Context, tenantID, id string) (*model.Zone, error) {
	var z *model.Zone
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		z, err = tx.GetZone(ctx, tenantID, id)
		if err != nil {
			return fmt.Errorf("get zone %s: %w", id, err)
		}
		return nil
	})
	return z, err
}

func (s *ZoneService) List(ctx context.Context, tenantID string, f ListFilter) ([]model.Zone, bool, error) {
	var (
		zones   []model.Zone
		hasMore bool
	)
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		zones, hasMore, err = tx.ListZones(ctx, tenantID, f)
		if err != nil {
			return fmt.Errorf("list zones: %w", err)
		}
		return nil
	})
	return zones, hasMore, err
}

// Delete removes a zone that no rule references.
func (s *ZoneService) Delete(ctx context.Context, tenantID, id string) error {
	return s.store.WithTx(ctx, func(tx Tx) error {
		if _, err := tx.GetZone(ctx, tenantID, id); err != nil {
			return fmt.Errorf("get zone %s: %w", id, err)
		}
		inUse, err := tx.ZoneInUse(ctx, id)
		if err != nil {
			return fmt.Errorf("check zone usage: %w", err)
		}
		if inUse {
			return conflictf("zone %s is referenced by a rule", id)
		}
		if err := tx.DeleteZone(ctx, tenantID, id); err != nil {
			return fmt.Errorf("delete zone %s: %w", id, err)
		}
		return nil
	})
}
