package core

import (
	"context"

	"github.com/edvin/netedge/internal/edge"
	"github.com/edvin/netedge/internal/model"
)

// EdgeSync pushes local changes to the edge device. Firewall methods are
// called inside the local transaction and record device ids through xrefs.
type EdgeSync interface {
	CreateIPObj(ctx context.Context, xrefs edge.XRefStore, obj model.IPObj) error
	DeleteIPObj(ctx context.Context, xrefs edge.XRefStore, id string) error
	CreateServiceObj(ctx context.Context, xrefs edge.XRefStore, obj model.ServiceObj) error
	DeleteServiceObj(ctx context.Context, xrefs edge.XRefStore, id string) error
	CreateRule(ctx context.Context, xrefs edge.XRefStore, rule model.Rule, beforeID *string) error
	UpdateRule(ctx context.Context, xrefs edge.XRefStore, rule model.Rule) error
	DeleteRule(ctx context.Context, xrefs edge.XRefStore, id string) error
	ApplySites(ctx context.Context, sites []model.SiteBundle) error
}

var _ EdgeSync = (*edge.Syncer)(nil)

// NoopEdge is used when no edge device is configured.
type NoopEdge struct{}

func (NoopEdge) CreateIPObj(context.Context, edge.XRefStore, model.IPObj) error           { return nil }
func (NoopEdge) DeleteIPObj(context.Context, edge.XRefStore, string) error                { return nil }
func (NoopEdge) CreateServiceObj(context.Context, edge.XRefStore, model.ServiceObj) error { return nil }
func (NoopEdge) DeleteServiceObj(context.Context, edge.XRefStore, string) error           { return nil }
func (NoopEdge) CreateRule(context.Context, edge.XRefStore, model.Rule, *string) error    { return nil }
func (NoopEdge) UpdateRule(context.Context, edge.XRefStore, model.Rule) error             { return nil }
func (NoopEdge) DeleteRule(context.Context, edge.XRefStore, string) error                 { return nil }
func (NoopEdge) ApplySites(context.Context, []model.SiteBundle) error                     { return nil }
