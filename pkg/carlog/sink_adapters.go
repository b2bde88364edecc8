package carlog

import (
	"errors"
	"fmt"
	"sync"

	"carlog/internal/domain"
)

// ErrChannelSinkClosed is returned when a channel sink is written to after
// being closed.
var ErrChannelSinkClosed = errors.New("carlog: channel sink closed")

// RecordBatchFunc is invoked with ordered record batches flushed by the
// trip logger.
type RecordBatchFunc func([]Record) error

// NewCallbackSink adapts a RecordBatchFunc into a full RecordSink so
// embedders can plug arbitrary functions without defining structs.
func NewCallbackSink(name string, fn RecordBatchFunc) RecordSink {
	if name == "" {
		name = "callback"
	}
	return &callbackSink{name: name, fn: fn}
}

// NewChannelSink exposes flushed batches via a channel; it returns the sink,
// the read-only channel, and a close function for shutdown.
func NewChannelSink(name string, buffer int) (RecordSink, <-chan []Record, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan []Record, buffer)
	s := &channelSink{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return s, ch, func() { s.close() }
}

type callbackSink struct {
	name string
	fn   RecordBatchFunc
}

func (s *callbackSink) WriteRows(recs []domain.Record) error {
	if s.fn == nil {
		return fmt.Errorf("callback sink %q: nil handler", s.name)
	}
	if len(recs) == 0 {
		return nil
	}
	return s.fn(copyBatch(recs))
}

func (s *callbackSink) Close() error { return nil }
func (s *callbackSink) Name() string { return s.name }

type channelSink struct {
	name   string
	ch     chan []Record
	closed chan struct{}
	once   sync.Once

	// mu fences ch against close: senders hold the read side for the whole
	// send, close() takes the write side before closing ch.
	mu sync.RWMutex
}

func (s *channelSink) WriteRows(recs []domain.Record) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	default:
	}

	if len(recs) == 0 {
		return nil
	}

	batch := copyBatch(recs)

	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	case s.ch <- batch:
		return nil
	}
}

func (s *channelSink) Name() string { return s.name }

func (s *channelSink) Close() error {
	s.close()
	return nil
}

func (s *channelSink) close() {
	s.once.Do(func() {
		// Closing closed first unblocks senders parked on ch; the write
		// lock then waits out any send already in flight.
		close(s.closed)
		s.mu.Lock()
		close(s.ch)
		s.mu.Unlock()
	})
}

func copyBatch(recs []domain.Record) []Record {
	out := make([]Record, len(recs))
	copy(out, recs)
	return out
}
