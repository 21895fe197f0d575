package compose

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/edvin/netedge/internal/model"
)

// ErrInvalid marks a malformed rule or service document.
var ErrInvalid = errors.New("invalid document")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Normalize validates a rule document and converts it to its stored form.
// ID, TenantID and timestamps are copied as-is; the caller assigns them.
// Lists are kept verbatim: blank, padded or repeated entries are rejected
// rather than cleaned up, so Denormalize returns the lists unchanged.
func Normalize(doc Document) (model.Rule, error) {
	if strings.TrimSpace(doc.Name) == "" {
		return model.Rule{}, invalid("name is required")
	}

	accept, err := parseAction(doc.Action)
	if err != nil {
		return model.Rule{}, err
	}
	logOn, err := parseLog(doc.Log)
	if err != nil {
		return model.Rule{}, err
	}

	src, err := normalizeEndpoint("source", doc.Source)
	if err != nil {
		return model.Rule{}, err
	}
	dst, err := normalizeEndpoint("destination", doc.Destination)
	if err != nil {
		return model.Rule{}, err
	}
	svc, err := normalizeService(doc.Service)
	if err != nil {
		return model.Rule{}, err
	}

	return model.Rule{
		ID:          doc.ID,
		TenantID:    doc.TenantID,
		Name:        doc.Name,
		Description: doc.Description,
		Accept:      accept,
		Log:         logOn,
		Enabled:     doc.Enabled,
		Source:      src,
		Destination: dst,
		Service:     svc,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}, nil
}

// Denormalize rebuilds the nested document from a stored rule.
func Denormalize(r model.Rule) Document {
	doc := Document{
		ID:          r.ID,
		TenantID:    r.TenantID,
		Name:        r.Name,
		Description: r.Description,
		Action:      ActionDrop,
		Log:         LogDisabled,
		Enabled:     r.Enabled,
		Source:      denormalizeEndpoint(r.Source),
		Destination: denormalizeEndpoint(r.Destination),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.Accept {
		doc.Action = ActionAccept
	}
	if r.Log {
		doc.Log = LogEnabled
	}

	for _, s := range r.Service.Services {
		doc.Service.Services = append(doc.Service.Services, EntryFromSpec(s))
	}
	if len(r.Service.ServiceObjIDs) > 0 {
		doc.Service.ServiceObjs = append([]string(nil), r.Service.ServiceObjIDs...)
	}
	return doc
}

// SpecFromEntry validates one service entry and maps its protocol-specific
// payload onto the stored Values column.
func SpecFromEntry(e ServiceEntry) (model.ServiceSpec, error) {
	protocol := strings.ToLower(strings.TrimSpace(e.Protocol))
	if protocol == "" {
		return model.ServiceSpec{}, invalid("service protocol is required")
	}

	spec := model.ServiceSpec{Protocol: protocol}
	var err error
	if model.IsICMP(protocol) {
		if len(e.Ports) > 0 || len(e.SourcePorts) > 0 {
			return model.ServiceSpec{}, invalid("icmp service takes types, not ports")
		}
		if spec.Values, err = canonicalList("types", e.Types); err != nil {
			return model.ServiceSpec{}, err
		}
		return spec, nil
	}

	if len(e.Types) > 0 {
		return model.ServiceSpec{}, invalid("%s service takes ports, not types", protocol)
	}
	if spec.Values, err = canonicalList("ports", e.Ports); err != nil {
		return model.ServiceSpec{}, err
	}
	if spec.SourcePorts, err = canonicalList("sourcePorts", e.SourcePorts); err != nil {
		return model.ServiceSpec{}, err
	}
	return spec, nil
}

// EntryFromSpec is the inverse of SpecFromEntry.
func EntryFromSpec(s model.ServiceSpec) ServiceEntry {
	e := ServiceEntry{Protocol: s.Protocol}
	if model.IsICMP(s.Protocol) {
		e.Types = s.Values
		return e
	}
	e.Ports = s.Values
	e.SourcePorts = s.SourcePorts
	return e
}

// ServiceObjFromDocument validates a service object document.
func ServiceObjFromDocument(doc ServiceObjDocument) (model.ServiceObj, error) {
	if strings.TrimSpace(doc.Name) == "" {
		return model.ServiceObj{}, invalid("name is required")
	}
	spec, err := SpecFromEntry(doc.ServiceEntry)
	if err != nil {
		return model.ServiceObj{}, err
	}
	return model.ServiceObj{
		ID:          doc.ID,
		TenantID:    doc.TenantID,
		Name:        doc.Name,
		Description: doc.Description,
		Protocol:    spec.Protocol,
		Values:      spec.Values,
		SourcePorts: spec.SourcePorts,
	}, nil
}

// ServiceObjToDocument renders a stored service object.
func ServiceObjToDocument(o model.ServiceObj) ServiceObjDocument {
	return ServiceObjDocument{
		ID:          o.ID,
		TenantID:    o.TenantID,
		Name:        o.Name,
		Description: o.Description,
		ServiceEntry: EntryFromSpec(model.ServiceSpec{
			Protocol:    o.Protocol,
			Values:      o.Values,
			SourcePorts: o.SourcePorts,
		}),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

// ListValues decodes a stored Values or SourcePorts list into strings,
// formatting numeric entries without a fractional part.
func ListValues(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode value list: %w", err)
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		switch v := it.(type) {
		case string:
			out = append(out, v)
		case json.Number:
			out = append(out, v.String())
		case float64:
			out = append(out, strconv.FormatFloat(v, 'f', -1, 64))
		default:
			return nil, fmt.Errorf("decode value list: unsupported element %v", it)
		}
	}
	return out, nil
}

func parseAction(s string) (bool, error) {
	switch strings.ToLower(s) {
	case ActionAccept:
		return true, nil
	case ActionDrop:
		return false, nil
	default:
		return false, invalid("action must be %q or %q", ActionAccept, ActionDrop)
	}
}

func parseLog(s string) (bool, error) {
	switch strings.ToLower(s) {
	case LogEnabled:
		return true, nil
	case "", LogDisabled:
		return false, nil
	default:
		return false, invalid("log must be %q or %q", LogEnabled, LogDisabled)
	}
}

func normalizeEndpoint(side string, e Endpoint) (model.RuleEndpoint, error) {
	var ep model.RuleEndpoint
	var err error
	if ep.Addresses, err = checkList(side+".addresses", e.Addresses); err != nil {
		return model.RuleEndpoint{}, err
	}
	for _, a := range ep.Addresses {
		if !IsAddress(a) {
			return model.RuleEndpoint{}, invalid("%s.addresses: %q is not an IP, CIDR or range", side, a)
		}
	}
	if ep.IPObjIDs, err = checkList(side+".ipobjs", e.IPObjs); err != nil {
		return model.RuleEndpoint{}, err
	}
	if e.Zone != "" {
		if strings.TrimSpace(e.Zone) != e.Zone {
			return model.RuleEndpoint{}, invalid("%s.zone must not be padded with whitespace", side)
		}
		z := e.Zone
		ep.ZoneID = &z
	}
	return ep, nil
}

func denormalizeEndpoint(e model.RuleEndpoint) Endpoint {
	out := Endpoint{}
	if len(e.Addresses) > 0 {
		out.Addresses = append([]string(nil), e.Addresses...)
	}
	if len(e.IPObjIDs) > 0 {
		out.IPObjs = append([]string(nil), e.IPObjIDs...)
	}
	if e.ZoneID != nil {
		out.Zone = *e.ZoneID
	}
	return out
}

func normalizeService(s Service) (model.RuleService, error) {
	ids, err := checkList("service.serviceobjs", s.ServiceObjs)
	if err != nil {
		return model.RuleService{}, err
	}
	out := model.RuleService{ServiceObjIDs: ids}
	for i, e := range s.Services {
		spec, err := SpecFromEntry(e)
		if err != nil {
			return model.RuleService{}, fmt.Errorf("service %d: %w", i, err)
		}
		out.Services = append(out.Services, spec)
	}
	return out, nil
}

// canonicalList checks that raw is absent or a JSON list of strings and
// numbers, and returns it compacted.
func canonicalList(field string, raw json.RawMessage) (json.RawMessage, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var items []any
	if err := dec.Decode(&items); err != nil {
		return nil, invalid("%s must be a list", field)
	}
	for _, it := range items {
		switch it.(type) {
		case string, json.Number:
		default:
			return nil, invalid("%s entries must be strings or numbers", field)
		}
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, invalid("%s: %v", field, err)
	}
	return buf.Bytes(), nil
}

// dedupe drops blanks and repeated entries, keeping first-seen order.
// checkList rejects blank, whitespace-padded and repeated entries. An
// empty list is returned as nil.
func checkList(field string, in []string) ([]string, error) {
	if len(in) == 0 {
		return nil, nil
	}
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		switch {
		case s == "":
			return nil, invalid("%s: empty entry", field)
		case strings.TrimSpace(s) != s:
			return nil, invalid("%s: %q has surrounding whitespace", field, s)
		case seen[s]:
			return nil, invalid("%s: %q listed twice", field, s)
		}
		seen[s] = true
	}
	return append([]string(nil), in...), nil
}
