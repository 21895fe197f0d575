package model

import (
	"encoding/json"
	"time"
)

// Rule is the normalized form of a firewall rule. Position within the
// tenant's rule list lives in RuleLinkNode, not here.
type Rule struct {
	ID          string       `json:"id" db:"id"`
	TenantID    string       `json:"tenant_id" db:"tenant_id"`
	Name        string       `json:"name" db:"name"`
	Description string       `json:"description" db:"description"`
	Accept      bool         `json:"accept" db:"action"`
	Log         bool         `json:"log" db:"log"`
	Enabled     bool         `json:"enabled" db:"enabled"`
	Source      RuleEndpoint `json:"source"`
	Destination RuleEndpoint `json:"destination"`
	Service     RuleService  `json:"service"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
}

// RuleEndpoint is the source or destination match of a rule.
type RuleEndpoint struct {
	Addresses []string `json:"addresses,omitempty"`
	IPObjIDs  []string `json:"ipobjs,omitempty"`
	ZoneID    *string  `json:"zone,omitempty"`
}

// RuleService is the service match of a rule.
type RuleService struct {
	Services      []ServiceSpec `json:"services,omitempty"`
	ServiceObjIDs []string      `json:"serviceobjs,omitempty"`
}

// ServiceSpec is an inline protocol match. For ICMP, Values holds the ICMP
// type list; for every other protocol it holds the destination port list.
type ServiceSpec struct {
	Protocol    string          `json:"protocol" db:"protocol"`
	Values      json.RawMessage `json:"values,omitempty" db:"values"`
	SourcePorts json.RawMessage `json:"source_ports,omitempty" db:"source_ports"`
}

// Rule endpoint directions as stored in the child tables.
const (
	DirectionSource      = "source"
	DirectionDestination = "destination"
)

// ReferencedIPObjs returns every IPObj id referenced by either endpoint.
func (r *Rule) ReferencedIPObjs() []string {
	ids := make([]string, 0, len(r.Source.IPObjIDs)+len(r.Destination.IPObjIDs))
	ids = append(ids, r.Source.IPObjIDs...)
	return append(ids, r.Destination.IPObjIDs...)
}
