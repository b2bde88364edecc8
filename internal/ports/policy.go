package ports

import "time"

// Policy controls acquisition cadence and trip-log flush thresholds.
type Policy struct {
	PollInterval time.Duration `yaml:"poll_interval"`

	FlushRows     int           `yaml:"flush_rows"`     // flush after N buffered rows
	FlushInterval time.Duration `yaml:"flush_interval"` // flush at least this often
	MaxBufferRows int           `yaml:"max_buffer_rows"`
}
