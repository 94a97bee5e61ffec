package domain

import "errors"

// Error kind sentinels. Use errors.Is against these to classify an error
// returned from anywhere in the engine, per the propagation policy: only
// ErrConfig, ErrDataUnavailable, and ErrInvalidInput are meant to
// propagate out of a running Live Updater session. ErrTransientFetch is
// absorbed inside a cycle. ErrCancelled signals a clean cooperative stop.
var (
	// ErrConfig marks a bad configuration (tolerance out of range,
	// non-positive horizon, unparsable starting price). Raised before the
	// loop starts; fatal.
	ErrConfig = errors.New("config error")

	// ErrDataUnavailable marks a fatal start-of-session condition: the
	// Parameter Estimator returned no usable timeframe, or the anchor
	// price could not be resolved.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrTransientFetch marks a per-cycle failure of the external bar
	// source. Logged and absorbed; the cycle continues with the latest
	// stored price, or emits a no-data snapshot when none is stored.
	ErrTransientFetch = errors.New("transient fetch error")

	// ErrInvalidInput marks a programmer error inside the core (e.g. an
	// observed price <= 0 passed to Eliminate). Raised, never recovered.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCancelled marks a cooperative stop requested via context
	// cancellation.
	ErrCancelled = errors.New("cancelled")
)
