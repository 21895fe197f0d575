package vpn

import (
	"errors"
	"fmt"

	"github.com/edvin/netedge/internal/model"
)

// ErrStateInvalid is returned for a mutation of a resource being deleted.
var ErrStateInvalid = errors.New("invalid state")

// CheckMutable rejects any change to a resource in PENDING_DELETE.
func CheckMutable(id, status string) error {
	if status == model.StatusPendingDelete {
		return fmt.Errorf("%w: %s is %s", ErrStateInvalid, id, status)
	}
	return nil
}

// BeginUpdate returns the status a resource moves to while an update is
// pushed to the edge.
func BeginUpdate(id, status string) (string, error) {
	if err := CheckMutable(id, status); err != nil {
		return "", err
	}
	return model.StatusPendingUpdate, nil
}

// BeginDelete returns the status a resource moves to while its deletion is
// pushed to the edge.
func BeginDelete(id, status string) (string, error) {
	if err := CheckMutable(id, status); err != nil {
		return "", err
	}
	return model.StatusPendingDelete, nil
}

// Settle resolves a pending create or update once the edge push returned.
// A failed push yields ERROR with the push error as status message.
func Settle(pushErr error) (status string, message *string) {
	if pushErr != nil {
		msg := pushErr.Error()
		return model.StatusError, &msg
	}
	return model.StatusActive, nil
}
