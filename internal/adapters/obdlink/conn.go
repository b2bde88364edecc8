package obdlink

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"carlog/internal/domain"
	"carlog/internal/ports"
)

// Config captures the runtime details required to reach the adapter's
// TCP bridge (e.g. a WiFi OBD-II dongle at 192.168.0.10:35000).
type Config struct {
	Endpoint       string        `yaml:"endpoint"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	QueryTimeout   time.Duration `yaml:"query_timeout"`
	// Commands maps a parameter id to the bridge command sent for it
	// (mode-01 PID strings by default). Unknown parameters fall back to
	// their own id.
	Commands map[string]string `yaml:"commands"`
}

func (c *Config) ApplyDefaults() {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = 2 * time.Second
	}
	if c.Commands == nil {
		c.Commands = map[string]string{
			"rpm":     "010C",
			"speed":   "010D",
			"coolant": "0105",
			"oil":     "015C",
		}
	}
}

func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("endpoint is required")
	}
	return nil
}

// Conn is the stream connection to the diagnostic bridge. The bridge speaks
// a line protocol: one command per request, one line per response carrying
// either the decoded integer value or the literal NO DATA marker. Decoding
// the underlying OBD frames is the bridge's job, not ours.
//
// Conn never retries; a broken socket surfaces as *ports.CommError and the
// state machine drops back to Disconnected until the poller reconnects.
type Conn struct {
	cfg   Config
	state atomic.Int32

	mu   sync.Mutex
	sock net.Conn
	r    *bufio.Reader
}

func New(cfg Config) (*Conn, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Conn{cfg: cfg}, nil
}

func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sock != nil {
		_ = c.sock.Close()
		c.sock = nil
		c.r = nil
	}

	c.state.Store(int32(domain.Connecting))

	d := net.Dialer{Timeout: c.cfg.ConnectTimeout}
	sock, err := d.DialContext(ctx, "tcp", c.cfg.Endpoint)
	if err != nil {
		c.state.Store(int32(domain.Disconnected))
		return &ports.CommError{Op: "connect", Err: err}
	}

	c.sock = sock
	c.r = bufio.NewReader(sock)
	c.state.Store(int32(domain.Connected))
	return nil
}

// IsLive reports connection liveness without touching the socket.
func (c *Conn) IsLive() bool {
	return c.State() == domain.Connected
}

func (c *Conn) State() domain.ConnState {
	return domain.ConnState(c.state.Load())
}

// Query sends the command for id and waits for one response line, bounded by
// the configured query timeout. A NO DATA reply becomes an invalid Reading;
// any socket failure kills the connection and returns a CommError.
func (c *Conn) Query(id domain.ParamID) (domain.Reading, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sock == nil {
		return domain.Reading{}, &ports.CommError{Op: "query", Err: errors.New("not connected")}
	}

	cmd, ok := c.cfg.Commands[string(id)]
	if !ok {
		cmd = string(id)
	}

	deadline := time.Now().Add(c.cfg.QueryTimeout)
	if err := c.sock.SetDeadline(deadline); err != nil {
		c.dropLocked()
		return domain.Reading{}, &ports.CommError{Op: "query", Err: err}
	}

	if _, err := c.sock.Write([]byte(cmd + "\r")); err != nil {
		c.dropLocked()
		return domain.Reading{}, &ports.CommError{Op: "query", Err: err}
	}

	line, err := c.r.ReadString('\n')
	if err != nil {
		c.dropLocked()
		return domain.Reading{}, &ports.CommError{Op: "query", Err: err}
	}

	now := time.Now()
	resp := strings.TrimSpace(strings.TrimSuffix(line, "\n"))
	if resp == "" || resp == "NO DATA" || resp == "?" {
		return domain.Reading{Param: id, Timestamp: now}, nil
	}

	v, err := strconv.ParseInt(resp, 10, 64)
	if err != nil {
		// Bridge answered something we cannot use; treat as a transient miss.
		return domain.Reading{Param: id, Timestamp: now}, nil
	}

	return domain.Reading{Param: id, Value: v, Valid: true, Timestamp: now}, nil
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sock == nil {
		return nil
	}
	err := c.sock.Close()
	c.sock = nil
	c.r = nil
	c.state.Store(int32(domain.Disconnected))
	return err
}

func (c *Conn) dropLocked() {
	if c.sock != nil {
		_ = c.sock.Close()
		c.sock = nil
		c.r = nil
	}
	c.state.Store(int32(domain.Disconnected))
}

var _ ports.Transport = (*Conn)(nil)
