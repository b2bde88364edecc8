package carlog

import (
	"carlog/internal/adapters/obdlink"
	"carlog/internal/app/config"
	"carlog/internal/app/logger"
	"carlog/internal/app/state"
	"carlog/internal/domain"
	"carlog/internal/ports"
)

// ParamID names a monitored vehicle parameter.
type ParamID = domain.ParamID

// Parameter describes one monitored parameter.
type Parameter = domain.Parameter

// Reading is one transport answer for one parameter on one tick.
type Reading = domain.Reading

// CachedValue is the last-known-good value of one parameter.
type CachedValue = domain.CachedValue

// Record is one tick's cache snapshot destined for the trip log.
type Record = domain.Record

// ConnState is the transport connection lifecycle state.
type ConnState = domain.ConnState

// Transport owns the stream connection to the diagnostic adapter.
type Transport = ports.Transport

// RecordSink persists ordered batches of trip records.
type RecordSink = ports.RecordSink

// Observability emits metrics/logs about ticks, flushes, and losses.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

// Policy controls acquisition cadence and flush thresholds.
type Policy = ports.Policy

// CommError reports a broken or unreachable transport.
type CommError = ports.CommError

// ErrInvalidState rejects a command issued in a forbidden state.
var ErrInvalidState = ports.ErrInvalidState

// Snapshot is one published tick view.
type Snapshot = state.Snapshot

// SessionStats describes the current (or last closed) logging session.
type SessionStats = logger.SessionStats

// Config re-exports the root configuration struct so embedders can construct
// or modify it programmatically.
type Config = config.Config

type (
	// ParameterConfig declares one monitored parameter.
	ParameterConfig = config.ParameterConfig
	// SinkConfig selects and configures the record sink.
	SinkConfig = config.SinkConfig
	// APIConfig configures the dashboard REST server.
	APIConfig = config.APIConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// TransportConfig holds the bridge endpoint and timeouts.
	TransportConfig = obdlink.Config
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

func paramIDs(params []domain.Parameter) []domain.ParamID {
	out := make([]domain.ParamID, 0, len(params))
	for _, p := range params {
		out = append(out, p.ID)
	}
	return out
}
