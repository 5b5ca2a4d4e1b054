package probe

import "errors"

// Sentinel kinds for probe failures.
var (
	ErrUnhealthy  = errors.New("service unhealthy")
	ErrViolations = errors.New("ledger invariants violated")
	ErrBadConfig  = errors.New("invalid probe config")
)
