package request

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/edvin/netedge/internal/core"
)

// ParseListFilter reads the equality filters and pagination shared by the
// object and VPN collections.
func ParseListFilter(r *http.Request) core.ListFilter {
	q := r.URL.Query()
	pg := ParsePagination(r)
	return core.ListFilter{
		Name:        q.Get("name"),
		Description: q.Get("description"),
		Protocol:    q.Get("protocol"),
		Status:      q.Get("status"),
		Cursor:      pg.Cursor,
		Limit:       pg.Limit,
	}
}

// ParseRuleFilter reads the rule list filters.
func ParseRuleFilter(r *http.Request) (core.RuleFilter, error) {
	q := r.URL.Query()
	f := core.RuleFilter{
		Name:   q.Get("name"),
		Action: q.Get("action"),
		Log:    q.Get("log"),
	}
	if v := q.Get("enabled"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, fmt.Errorf("invalid enabled filter %q", v)
		}
		f.Enabled = &b
	}
	return f, nil
}

// ParseFields returns the comma-separated "fields" projection, or nil.
func ParseFields(r *http.Request) []string {
	raw := r.URL.Query().Get("fields")
	if raw == "" {
		return nil
	}
	var fields []string
	for _, f := range strings.Split(raw, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

// TenantParam returns the tenant an admin asks to act on, if any.
func TenantParam(r *http.Request) string {
	return r.URL.Query().Get("tenant_id")
}
