package health

import "errors"

var (
	// ErrCheckFailed indicates a probe reported failure.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout indicates a probe exceeded its per-check timeout.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckerNotFound indicates the named checker is not registered.
	ErrCheckerNotFound = errors.New("health: checker not found")

	// ErrNoCheckers indicates the aggregator has no registered checkers.
	ErrNoCheckers = errors.New("health: no checkers registered")
)
