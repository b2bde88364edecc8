package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"carlog/internal/adapters/obdlink"
	"carlog/internal/domain"
	"carlog/internal/ports"
)

type Config struct {
	Policy     ports.Policy      `yaml:"policy"`
	Transport  obdlink.Config    `yaml:"transport"`
	Parameters []ParameterConfig `yaml:"parameters"`
	Sink       SinkConfig        `yaml:"sink"`
	API        APIConfig         `yaml:"api"`
	Metrics    MetricsConfig     `yaml:"metrics"`
}

// ParameterConfig declares one monitored parameter. MayBeAbsent marks
// parameters the vehicle may not support at all (oil temperature).
type ParameterConfig struct {
	ID          string `yaml:"id"`
	MayBeAbsent bool   `yaml:"may_be_absent"`
}

type SinkConfig struct {
	Driver     string `yaml:"driver"` // "csv" or "postgres"
	Dir        string `yaml:"dir"`    // trip file directory for the csv driver
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
}

type APIConfig struct {
	Addr string `yaml:"addr"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.Policy.PollInterval == 0 {
		c.Policy.PollInterval = 100 * time.Millisecond
	}
	if c.Policy.FlushRows == 0 {
		c.Policy.FlushRows = 10
	}
	if c.Policy.FlushInterval == 0 {
		c.Policy.FlushInterval = 5 * time.Second
	}
	if c.Policy.MaxBufferRows == 0 {
		c.Policy.MaxBufferRows = 1000
	}
	if len(c.Parameters) == 0 {
		c.Parameters = []ParameterConfig{
			{ID: "rpm"},
			{ID: "speed"},
			{ID: "coolant"},
			{ID: "oil", MayBeAbsent: true},
		}
	}
	if c.Sink.Driver == "" {
		c.Sink.Driver = "csv"
	}
	if c.Sink.Dir == "" {
		c.Sink.Dir = "./logs"
	}
	if c.Sink.Table == "" {
		c.Sink.Table = "trip_records"
	}
	if c.API.Addr == "" {
		c.API.Addr = ":5000"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}

	c.Transport.ApplyDefaults()
}

func (c *Config) Validate() error {
	if err := c.Transport.Validate(); err != nil {
		return fmt.Errorf("transport config: %w", err)
	}
	switch c.Sink.Driver {
	case "csv":
		if c.Sink.Dir == "" {
			return fmt.Errorf("sink.dir is required for the csv driver")
		}
	case "postgres":
		if c.Sink.ConnString == "" {
			return fmt.Errorf("sink.conn_string is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown sink driver %q", c.Sink.Driver)
	}
	if c.Policy.PollInterval < 10*time.Millisecond {
		return fmt.Errorf("policy.poll_interval %s is below the 10ms floor", c.Policy.PollInterval)
	}
	for _, p := range c.Parameters {
		if p.ID == "" {
			return fmt.Errorf("parameter with empty id")
		}
	}
	return nil
}

// DomainParameters converts the declared parameters for cache/poller use.
func (c *Config) DomainParameters() []domain.Parameter {
	out := make([]domain.Parameter, 0, len(c.Parameters))
	for _, p := range c.Parameters {
		out = append(out, domain.Parameter{ID: domain.ParamID(p.ID), MayBeAbsent: p.MayBeAbsent})
	}
	return out
}
