package core

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/edvin/netedge/internal/compose"
	"github.com/edvin/netedge/internal/model"
	"github.com/edvin/netedge/internal/platform"
)

type ServiceObjService struct {
	store Store
	edge  EdgeSync
}

func NewServiceObjService(store Store, edge EdgeSync) *ServiceObjService {
	return &ServiceObjService{store: store, edge: edge}
}

// Create validates a service object document, stores it and pushes it to
// the edge in the same unit of work.
func (s *ServiceObjService) Create(ctx context.Context, tenantID string, doc compose.ServiceObjDocument) (*model.ServiceObj, error) {
	obj, err := compose.ServiceObjFromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	obj.ID = platform.NewID()
	obj.TenantID = tenantID

	err = s.store.WithTx(ctx, func(tx Tx) error {
		if err := tx.InsertServiceObj(ctx, &obj); err != nil {
			return fmt.Errorf("insert serviceobj: %w", err)
		}
		if err := s.edge.CreateServiceObj(ctx, tx, obj); err != nil {
			return fmt.Errorf("push serviceobj: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().Str("tenant_id", tenantID).Str("serviceobj_id", obj.ID).Msg("serviceobj created")
	return &obj, nil
}

func (s *ServiceObjService) Get(ctx context.Context, tenantID, id string) (*model.ServiceObj, error) {
	var obj *model.ServiceObj
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		obj, err = tx.GetServiceObj(ctx, tenantID, id)
		if err != nil {
			return fmt.Errorf("get serviceobj %s: %w", id, err)
		}
		return nil
	})
	return obj, err
}

func (s *ServiceObjService) List(ctx context.Context, tenantID string, f ListFilter) ([]model.ServiceObj, bool, error) {
	var (
		objs    []model.ServiceObj
		hasMore bool
	)
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		objs, hasMore, err = tx.ListServiceObjs(ctx, tenantID, f)
		if err != nil {
			return fmt.Errorf("list serviceobjs: %w", err)
		}
		return nil
	})
	return objs, hasMore, err
}

// Delete removes a service object that no rule references.
func (s *ServiceObjService) Delete(ctx context.Context, tenantID, id string) error {
	return s.store.WithTx(ctx, func(tx Tx) error {
		if _, err := tx.GetServiceObj(ctx, tenantID, id); err != nil {
			return fmt.Errorf("get serviceobj %s: %w", id, err)
		}
		inUse, err := tx.ServiceObjInUse(ctx, id)
		if err != nil {
			return fmt.Errorf("check serviceobj usage: %w", err)
		}
		if inUse {
			return conflictf("serviceobj %s is referenced by a rule", id)
		}
		if err := tx.DeleteServiceObj(ctx, tenantID, id); err != nil {
			return fmt.Errorf("delete serviceobj %s: %w", id, err)
		}
		if err := s.edge.DeleteServiceObj(ctx, tx, id); err != nil {
			return fmt.Errorf("push serviceobj delete: %w", err)
		}
		return nil
	})
}
