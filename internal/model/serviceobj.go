package model

import (
	"encoding/json"
	"strings"
	"time"
)

const ProtocolICMP = "icmp"

// ServiceObj is a named, reusable protocol + ports (or ICMP types) match.
// Values and SourcePorts hold the raw JSON lists as supplied by the caller.
type ServiceObj struct {
	ID          string          `json:"id" db:"id"`
	TenantID    string          `json:"tenant_id" db:"tenant_id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Protocol    string          `json:"protocol" db:"protocol"`
	Values      json.RawMessage `json:"-" db:"values"`
	SourcePorts json.RawMessage `json:"-" db:"source_ports"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// IsICMP reports whether the protocol carries ICMP types instead of ports.
func IsICMP(protocol string) bool {
	return strings.EqualFold(protocol, ProtocolICMP)
}
