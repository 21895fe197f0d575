package rulechain

import (
	"errors"
	"fmt"
)

// CorruptionError reports a rule chain that violates the single-chain
// invariant. It indicates an earlier bug and is never retried.
type CorruptionError struct {
	TenantID string
	Reason   string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("rule chain for tenant %s corrupted: %s", e.TenantID, e.Reason)
}

// IsCorruption reports whether err wraps a CorruptionError.
func IsCorruption(err error) bool {
	var ce *CorruptionError
	return errors.As(err, &ce)
}

func corrupt(tenantID, format string, args ...any) error {
	return &CorruptionError{TenantID: tenantID, Reason: fmt.Sprintf(format, args...)}
}

// Corrupt builds a CorruptionError. Store implementations use it when a
// query reveals more than one tail.
func Corrupt(tenantID, format string, args ...any) error {
	return corrupt(tenantID, format, args...)
}
