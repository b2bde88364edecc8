package domain

import "time"

// ParamID names a monitored vehicle parameter ("rpm", "speed", ...).
type ParamID string

// Parameter describes one monitored parameter. MayBeAbsent marks parameters
// the vehicle may legitimately not support (oil temperature on many ECUs);
// those read as "not available" until their first valid reading ever.
type Parameter struct {
	ID          ParamID
	MayBeAbsent bool
}

// Reading is one transport answer for one parameter on one tick. Valid is
// false when the adapter answered NO DATA or the parameter is unsupported;
// an invalid reading carries no value.
type Reading struct {
	Param     ParamID
	Value     int64
	Valid     bool
	Timestamp time.Time
}

// CachedValue is the last-known-good value of one parameter. Available stays
// false for a may-be-absent parameter until a valid reading arrives; numeric
// parameters start at zero with Available set.
type CachedValue struct {
	Param     ParamID
	Value     int64
	Available bool
	Timestamp time.Time
}

// Record is one tick's complete cache snapshot destined for the trip log.
// Records are appended in strictly increasing timestamp order.
type Record struct {
	Timestamp time.Time
	Values    []CachedValue
}
