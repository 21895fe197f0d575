package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/edvin/netedge/internal/core"
	"github.com/edvin/netedge/internal/edge"
	"github.com/edvin/netedge/internal/rulechain"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Error: message})
}

// ErrorStatus maps a service error to its HTTP status.
func ErrorStatus(err error) int {
	var deviceErr *edge.DeviceError
	switch {
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, core.ErrConflict), errors.Is(err, core.ErrStateInvalid):
		return http.StatusConflict
	case errors.Is(err, edge.ErrReferenceNotPushed):
		return http.StatusFailedDependency
	case errors.As(err, &deviceErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteServiceError writes err with the status ErrorStatus assigns.
// Internal errors are logged and replaced with a generic message.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := ErrorStatus(err)
	if status != http.StatusInternalServerError {
		WriteError(w, status, err.Error())
		return
	}

	zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
	msg := "internal server error"
	if rulechain.IsCorruption(err) {
		msg = "rule chain is corrupted; contact an administrator"
	}
	WriteError(w, status, msg)
}

// PaginatedResponse wraps a list with pagination metadata.
type PaginatedResponse struct {
	Items      any    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

// WritePaginated writes a paginated JSON response, keeping only the named
// fields of each item when fields is non-empty.
func WritePaginated(w http.ResponseWriter, status int, items any, nextCursor string, hasMore bool, fields []string) {
	if len(fields) > 0 {
		projected, err := Project(items, fields)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "encode response")
			return
		}
		items = projected
	}
	WriteJSON(w, status, PaginatedResponse{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	})
}

// Project returns items, a JSON array of objects once encoded, reduced to
// the given top-level keys. Unknown keys are ignored.
func Project(items any, fields []string) ([]map[string]json.RawMessage, error) {
	data, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	var full []map[string]json.RawMessage
	if err := json.Unmarshal(data, &full); err != nil {
		return nil, err
	}

	out := make([]map[string]json.RawMessage, len(full))
	for i, obj := range full {
		kept := make(map[string]json.RawMessage, len(fields))
		for _, f := range fields {
			if v, ok := obj[f]; ok {
				kept[f] = v
			}
		}
		out[i] = kept
	}
	return out, nil
}
