package carlog

import (
	base "carlog/pkg/carlog"
)

// Re-exported errors for convenience.
var (
	ErrInvalidState      = base.ErrInvalidState
	ErrChannelSinkClosed = base.ErrChannelSinkClosed
)

// Type aliases so consumers can import the module root directly.
type (
	Config          = base.Config
	ParameterConfig = base.ParameterConfig
	SinkConfig      = base.SinkConfig
	APIConfig       = base.APIConfig
	MetricsConfig   = base.MetricsConfig
	TransportConfig = base.TransportConfig
	Policy          = base.Policy
	Engine          = base.Engine
	Option          = base.Option
	SinkFactory     = base.SinkFactory
	ParamID         = base.ParamID
	Parameter       = base.Parameter
	Reading         = base.Reading
	CachedValue     = base.CachedValue
	Record          = base.Record
	ConnState       = base.ConnState
	Transport       = base.Transport
	RecordSink      = base.RecordSink
	RecordBatchFunc = base.RecordBatchFunc
	Observability   = base.Observability
	Field           = base.Field
	CommError       = base.CommError
	Snapshot        = base.Snapshot
	SessionStats    = base.SessionStats
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// Engine construction and options.
func New(cfg *Config, opts ...Option) (*Engine, error) {
	return base.New(cfg, opts...)
}

func WithTransport(tr Transport) Option {
	return base.WithTransport(tr)
}

func WithSinkFactory(f SinkFactory) Option {
	return base.WithSinkFactory(f)
}

func WithObservability(obs Observability) Option {
	return base.WithObservability(obs)
}

// Sink adapters.
func NewCallbackSink(name string, fn RecordBatchFunc) RecordSink {
	return base.NewCallbackSink(name, fn)
}

func NewChannelSink(name string, buffer int) (RecordSink, <-chan []Record, func()) {
	return base.NewChannelSink(name, buffer)
}
