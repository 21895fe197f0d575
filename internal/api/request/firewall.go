package request

import (
	"encoding/json"

	"github.com/edvin/netedge/internal/compose"
	"github.com/edvin/netedge/internal/core"
	"github.com/edvin/netedge/internal/model"
)

// CreateRule is the body of POST /fw/rules. Location names the rule the new
// one is placed before; empty appends it.
type CreateRule struct {
	TenantID    string           `json:"tenant_id"`
	Location    string           `json:"location" validate:"omitempty,rid"`
	Name        string           `json:"name" validate:"required,max=255"`
	Description string           `json:"description" validate:"max=1024"`
	Action      string           `json:"action" validate:"omitempty,oneof=accept drop"`
	Log         string           `json:"log" validate:"omitempty,oneof=enabled disabled"`
	Enabled     *bool            `json:"enabled"`
	Source      compose.Endpoint `json:"source"`
	Destination compose.Endpoint `json:"destination"`
	Service     compose.Service  `json:"service"`
}

// Document converts the request to a rule document. Rules are enabled
// unless the caller says otherwise.
func (c CreateRule) Document() compose.Document {
	enabled := true
	if c.Enabled != nil {
		enabled = *c.Enabled
	}
	return compose.Document{
		Name:        c.Name,
		Description: c.Description,
		Action:      c.Action,
		Log:         c.Log,
		Enabled:     enabled,
		Source:      c.Source,
		Destination: c.Destination,
		Service:     c.Service,
	}
}

type UpdateRule struct {
	Name        *string           `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string           `json:"description" validate:"omitempty,max=1024"`
	Action      *string           `json:"action" validate:"omitempty,oneof=accept drop"`
	Log         *string           `json:"log" validate:"omitempty,oneof=enabled disabled"`
	Enabled     *bool             `json:"enabled"`
	Source      *compose.Endpoint `json:"source"`
	Destination *compose.Endpoint `json:"destination"`
	Service     *compose.Service  `json:"service"`
}

func (u UpdateRule) Patch() core.RulePatch {
	return core.RulePatch{
		Name:        u.Name,
		Description: u.Description,
		Action:      u.Action,
		Log:         u.Log,
		Enabled:     u.Enabled,
		Source:      u.Source,
		Destination: u.Destination,
		Service:     u.Service,
	}
}

type CreateIPObj struct {
	TenantID    string   `json:"tenant_id"`
	Name        string   `json:"name" validate:"required,max=255"`
	Description string   `json:"description" validate:"max=1024"`
	Value       []string `json:"value" validate:"required,min=1,dive,address"`
}

func (c CreateIPObj) Model(tenantID string) *model.IPObj {
	return &model.IPObj{
		TenantID:    tenantID,
		Name:        c.Name,
		Description: c.Description,
		Value:       c.Value,
	}
}

// CreateServiceObj carries either ICMP types or ports depending on the
// protocol; the composer enforces which.
type CreateServiceObj struct {
	TenantID    string          `json:"tenant_id"`
	Name        string          `json:"name" validate:"required,max=255"`
	Description string          `json:"description" validate:"max=1024"`
	Protocol    string          `json:"protocol" validate:"required"`
	Types       json.RawMessage `json:"types"`
	Ports       json.RawMessage `json:"ports"`
	SourcePorts json.RawMessage `json:"sourcePorts"`
}

func (c CreateServiceObj) Document() compose.ServiceObjDocument {
	return compose.ServiceObjDocument{
		Name:        c.Name,
		Description: c.Description,
		ServiceEntry: compose.ServiceEntry{
			Protocol:    c.Protocol,
			Types:       c.Types,
			Ports:       c.Ports,
			SourcePorts: c.SourcePorts,
		},
	}
}

type CreateZone struct {
	TenantID    string   `json:"tenant_id"`
	Name        string   `json:"name" validate:"required,max=255"`
	Description string   `json:"description" validate:"max=1024"`
	Value       []string `json:"value" validate:"dive,cidr|ip"`
}

func (c CreateZone) Model(tenantID string) *model.Zone {
	return &model.Zone{
		TenantID:    tenantID,
		Name:        c.Name,
		Description: c.Description,
		Value:       c.Value,
	}
}
