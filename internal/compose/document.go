// Package compose converts between the nested rule document exchanged with
// API callers and the normalized model.Rule kept in storage.
package compose

import (
	"encoding/json"
	"time"
)

// Action and log wire values.
const (
	ActionAccept = "accept"
	ActionDrop   = "drop"
	LogEnabled   = "enabled"
	LogDisabled  = "disabled"
)

// Document is the nested rule shape.
type Document struct {
	ID          string    `json:"id,omitempty"`
	TenantID    string    `json:"tenant_id,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Action      string    `json:"action"`
	Log         string    `json:"log"`
	Enabled     bool      `json:"enabled"`
	Source      Endpoint  `json:"source"`
	Destination Endpoint  `json:"destination"`
	Service     Service   `json:"service"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
}

// Endpoint is a source or destination sub-document.
type Endpoint struct {
	Addresses []string `json:"addresses,omitempty" validate:"dive,address"`
	IPObjs    []string `json:"ipobjs,omitempty" validate:"dive,rid"`
	Zone      string   `json:"zone,omitempty" validate:"omitempty,rid"`
}

// Service is the service sub-document.
type Service struct {
	Services    []ServiceEntry `json:"services,omitempty"`
	ServiceObjs []string       `json:"serviceobjs,omitempty" validate:"dive,rid"`
}

// ServiceEntry is one protocol match. ICMP entries carry Types, all other
// protocols carry Ports and optionally SourcePorts.
type ServiceEntry struct {
	Protocol    string          `json:"protocol"`
	Types       json.RawMessage `json:"types,omitempty"`
	Ports       json.RawMessage `json:"ports,omitempty"`
	SourcePorts json.RawMessage `json:"sourcePorts,omitempty"`
}

// ServiceObjDocument is the API shape of a service object.
type ServiceObjDocument struct {
	ID          string `json:"id,omitempty"`
	TenantID    string `json:"tenant_id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ServiceEntry
	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}
