package common

import "errors"

// Error categories surfaced to callers. Wrap with fmt.Errorf("...: %w")
// so errors.Is can classify failures at the call site.
var (
	// ErrInvalidArgument marks a caller mistake: unknown interval,
	// unknown market filter, or an end date before the start date.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDataUnavailable marks a mandatory remote payload that came
	// back empty or malformed. The core does not retry.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrInvalidState marks an operation applied to a series in a
	// shape it cannot handle, e.g. price adjustment on an unordered
	// series.
	ErrInvalidState = errors.New("invalid state")
)
