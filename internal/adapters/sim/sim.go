package sim

import (
	"context"
	"errors"
	"sync"
	"time"

	"carlog/internal/domain"
	"carlog/internal/ports"
)

// Source produces the value for one parameter on the n-th query of it.
// Returning ok=false means NO DATA for that query.
type Source func(n int) (value int64, ok bool)

// Constant always answers the same value.
func Constant(v int64) Source {
	return func(int) (int64, bool) { return v, true }
}

// Absent never answers.
func Absent() Source {
	return func(int) (int64, bool) { return 0, false }
}

// Sequence replays values in order and repeats the last one. A nil entry
// means NO DATA for that query.
func Sequence(vals ...*int64) Source {
	return func(n int) (int64, bool) {
		if len(vals) == 0 {
			return 0, false
		}
		if n >= len(vals) {
			n = len(vals) - 1
		}
		if vals[n] == nil {
			return 0, false
		}
		return *vals[n], true
	}
}

// V is a convenience for building Sequence entries.
func V(v int64) *int64 { return &v }

// Transport is an in-memory ports.Transport for examples and tests. It
// answers queries from per-parameter Sources and can inject connect and
// mid-query failures.
type Transport struct {
	mu         sync.Mutex
	state      domain.ConnState
	connectErr error
	failNext   bool
	counts     map[domain.ParamID]int
	sources    map[domain.ParamID]Source
}

func New(sources map[domain.ParamID]Source) *Transport {
	return &Transport{
		sources: sources,
		counts:  make(map[domain.ParamID]int),
	}
}

// SetConnectErr makes subsequent Connect calls fail (nil clears it).
func (t *Transport) SetConnectErr(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connectErr = err
}

// InjectCommError makes the next Query fail and drop the connection.
func (t *Transport) InjectCommError() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failNext = true
}

func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = domain.Connecting
	if t.connectErr != nil {
		t.state = domain.Disconnected
		return &ports.CommError{Op: "connect", Err: t.connectErr}
	}
	t.state = domain.Connected
	return nil
}

func (t *Transport) IsLive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == domain.Connected
}

func (t *Transport) State() domain.ConnState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Transport) Query(id domain.ParamID) (domain.Reading, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != domain.Connected {
		return domain.Reading{}, &ports.CommError{Op: "query", Err: errors.New("not connected")}
	}
	if t.failNext {
		t.failNext = false
		t.state = domain.Disconnected
		return domain.Reading{}, &ports.CommError{Op: "query", Err: errors.New("connection reset")}
	}

	n := t.counts[id]
	t.counts[id]++

	src, ok := t.sources[id]
	if !ok {
		return domain.Reading{Param: id, Timestamp: time.Now()}, nil
	}
	v, valid := src(n)
	return domain.Reading{Param: id, Value: v, Valid: valid, Timestamp: time.Now()}, nil
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = domain.Disconnected
	return nil
}

var _ ports.Transport = (*Transport)(nil)
