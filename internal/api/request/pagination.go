package request

import (
	"net/http"
	"strconv"
)

// Pagination holds parsed pagination parameters.
type Pagination struct {
	Limit  int
	Cursor string
}

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// ParsePagination extracts limit and cursor from query parameters. Invalid
// or non-positive limits fall back to DefaultLimit.
func ParsePagination(r *http.Request) Pagination {
	q := r.URL.Query()
	p := Pagination{Limit: DefaultLimit, Cursor: q.Get("cursor")}

	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		p.Limit = min(n, MaxLimit)
	}
	return p
}
