package core

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/edvin/netedge/internal/edge"
	"github.com/edvin/netedge/internal/model"
	"github.com/edvin/netedge/internal/rulechain"
)

// DB is the query surface shared by *pgxpool.Pool and pgx.Tx.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ListFilter narrows a collection listing. Empty fields do not filter.
type ListFilter struct {
	Name        string
	Description string
	Protocol    string
	Status      string
	Cursor      string
	Limit       int
}

// VPNKind names a VPN resource collection.
type VPNKind string

const (
	KindSite         VPNKind = "site"
	KindIPSecPolicy  VPNKind = "ipsec_policy"
	KindIsakmpPolicy VPNKind = "isakmp_policy"
	KindTrustProfile VPNKind = "trust_profile"
)

// Store runs units of work. Every service operation executes inside exactly
// one WithTx call, or several sequential ones for VPN status transitions.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of persistence operations available inside a transaction.
// Reads are tenant-scoped: a row of another tenant is reported as
// ErrNotFound.
type Tx interface {
	edge.XRefStore

	// LockRuleChain serializes chain mutations of one tenant until the
	// transaction ends.
	LockRuleChain(ctx context.Context, tenantID string) error
	RuleChain(tenantID string) rulechain.Store
	ListRuleNodes(ctx context.Context, tenantID string) ([]rulechain.Node, error)
	InsertRule(ctx context.Context, r *model.Rule) error
	UpdateRule(ctx context.Context, r *model.Rule) error
	GetRule(ctx context.Context, tenantID, id string) (*model.Rule, error)
	ListRules(ctx context.Context, tenantID string) ([]model.Rule, error)
	DeleteRule(ctx context.Context, tenantID, id string) error

	InsertIPObj(ctx context.Context, o *model.IPObj) error
	GetIPObj(ctx context.Context, tenantID, id string) (*model.IPObj, error)
	ListIPObjs(ctx context.Context, tenantID string, f ListFilter) ([]model.IPObj, bool, error)
	DeleteIPObj(ctx context.Context, tenantID, id string) error
	IPObjInUse(ctx context.Context, id string) (bool, error)

	InsertServiceObj(ctx context.Context, o *model.ServiceObj) error
	GetServiceObj(ctx context.Context, tenantID, id string) (*model.ServiceObj, error)
	ListServiceObjs(ctx context.Context, tenantID string, f ListFilter) ([]model.ServiceObj, bool, error)
	DeleteServiceObj(ctx context.Context, tenantID, id string) error
	ServiceObjInUse(ctx context.Context, id string) (bool, error)

	InsertZone(ctx context.Context, z *model.Zone) error
	GetZone(ctx context.Context, tenantID, id string) (*model.Zone, error)
	ListZones(ctx context.Context, tenantID string, f ListFilter) ([]model.Zone, bool, error)
	DeleteZone(ctx context.Context, tenantID, id string) error
	ZoneInUse(ctx context.Context, id string) (bool, error)

	InsertIPSecPolicy(ctx context.Context, p *model.IPSecPolicy) error
	GetIPSecPolicy(ctx context.Context, tenantID, id string) (*model.IPSecPolicy, error)
	ListIPSecPolicies(ctx context.Context, tenantID string, f ListFilter) ([]model.IPSecPolicy, bool, error)
	UpdateIPSecPolicy(ctx context.Context, p *model.IPSecPolicy) error

	InsertIsakmpPolicy(ctx context.Context, p *model.IsakmpPolicy) error
	GetIsakmpPolicy(ctx context.Context, tenantID, id string) (*model.IsakmpPolicy, error)
	ListIsakmpPolicies(ctx context.Context, tenantID string, f ListFilter) ([]model.IsakmpPolicy, bool, error)
	UpdateIsakmpPolicy(ctx context.Context, p *model.IsakmpPolicy) error

	InsertTrustProfile(ctx context.Context, p *model.TrustProfile) error
	GetTrustProfile(ctx context.Context, tenantID, id string) (*model.TrustProfile, error)
	ListTrustProfiles(ctx context.Context, tenantID string, f ListFilter) ([]model.TrustProfile, bool, error)
	UpdateTrustProfile(ctx context.Context, p *model.TrustProfile) error

	InsertSite(ctx context.Context, s *model.Site) error
	GetSite(ctx context.Context, tenantID, id string) (*model.Site, error)
	ListSites(ctx context.Context, tenantID string, f ListFilter) ([]model.Site, bool, error)
	UpdateSite(ctx context.Context, s *model.Site) error
	SiteEndpointsTaken(ctx context.Context, tenantID, localEndpoint, peerEndpoint, excludeID string) (bool, error)
	SitesUsingPolicy(ctx context.Context, kind VPNKind, id string) (int, error)
	// ListEdgeSites returns every site not pending deletion, across all
	// tenants, with the policies it references.
	ListEdgeSites(ctx context.Context) ([]model.SiteBundle, error)
	// LockEdgeConfig serializes whole-document IPsec pushes.
	LockEdgeConfig(ctx context.Context) error

	GetVPNStatus(ctx context.Context, kind VPNKind, tenantID, id string) (string, error)
	SetVPNStatus(ctx context.Context, kind VPNKind, id, status string, message *string) error
	DeleteVPNResource(ctx context.Context, kind VPNKind, id string) error
}
