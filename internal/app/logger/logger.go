package logger

import (
	"fmt"
	"sync"
	"time"

	"carlog/internal/domain"
	"carlog/internal/ports"
)

// SessionStats describes the current (or last closed) logging session.
type SessionStats struct {
	Active      bool
	ID          string
	Destination string
	StartedAt   time.Time
	Records     int
	Dropped     int
}

// TripLogger buffers tick records and flushes them to a RecordSink on a
// row-count threshold or a time ceiling, whichever fires first. A flush I/O
// error never stops acquisition: the buffer is retained and retried on the
// next trigger, bounded by MaxBufferRows beyond which the oldest rows are
// dropped with a counted-loss signal.
//
// The poller is the only Append caller; Open/Close arrive from the control
// surface. Append checks the time ceiling, and ticks that withhold a record
// (transport down) drive it through MaybeFlush instead, so an outage cannot
// hold buffered rows past the ceiling.
type TripLogger struct {
	obs ports.Observability
	pol ports.Policy

	mu        sync.Mutex
	sink      ports.RecordSink
	buf       []domain.Record
	lastFlush time.Time
	open      bool
	stats     SessionStats
}

func New(obs ports.Observability, pol ports.Policy) *TripLogger {
	return &TripLogger{obs: obs, pol: pol}
}

// Open starts a session against an already-constructed sink (whose
// constructor wrote the header). Fails when a session is active.
func (l *TripLogger) Open(sink ports.RecordSink, sessionID, destination string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.open {
		return fmt.Errorf("%w: logging session already open", ports.ErrInvalidState)
	}
	l.sink = sink
	l.buf = l.buf[:0]
	l.lastFlush = time.Now()
	l.open = true
	l.stats = SessionStats{
		Active:      true,
		ID:          sessionID,
		Destination: destination,
		StartedAt:   time.Now(),
	}
	l.obs.LogInfo("logging_started",
		ports.Field{Key: "session", Value: sessionID},
		ports.Field{Key: "destination", Value: destination})
	return nil
}

// Append buffers one record. No-op when no session is open.
func (l *TripLogger) Append(rec domain.Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.open {
		return
	}

	l.buf = append(l.buf, rec)
	l.stats.Records++
	l.obs.SetGauge("carlog_buffer_rows", float64(len(l.buf)))

	if len(l.buf) >= l.pol.FlushRows || time.Since(l.lastFlush) >= l.pol.FlushInterval {
		l.flushLocked()
	}
}

// MaybeFlush flushes buffered rows once the time ceiling has expired. Called
// every tick whether or not a record was appended.
func (l *TripLogger) MaybeFlush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.open || len(l.buf) == 0 {
		return
	}
	if time.Since(l.lastFlush) >= l.pol.FlushInterval {
		l.flushLocked()
	}
}

// Close flushes remaining rows and releases the sink. Idempotent: closing an
// already-closed logger returns the last session's record count and no error.
func (l *TripLogger) Close() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.open {
		return l.stats.Records, nil
	}

	flushErr := l.flushLocked()
	closeErr := l.sink.Close()

	l.open = false
	l.stats.Active = false
	l.sink = nil
	l.buf = l.buf[:0]
	l.obs.SetGauge("carlog_buffer_rows", 0)
	l.obs.LogInfo("logging_stopped", ports.Field{Key: "records", Value: l.stats.Records})

	if flushErr != nil {
		return l.stats.Records, flushErr
	}
	return l.stats.Records, closeErr
}

// Reset clears the last session's counters. Rejected while a session is open.
func (l *TripLogger) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.open {
		return fmt.Errorf("%w: cannot reset during an active session", ports.ErrInvalidState)
	}
	l.stats = SessionStats{}
	return nil
}

func (l *TripLogger) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.open
}

func (l *TripLogger) Stats() SessionStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// BufferLen reports the rows currently awaiting a flush.
func (l *TripLogger) BufferLen() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buf)
}

func (l *TripLogger) flushLocked() error {
	if len(l.buf) == 0 {
		l.lastFlush = time.Now()
		return nil
	}

	start := time.Now()
	err := l.sink.WriteRows(l.buf)
	l.lastFlush = time.Now()

	if err != nil {
		l.obs.LogError("sink_flush_failed", err)
		l.obs.IncCounter("carlog_flush_errors_total", 1)
		if over := len(l.buf) - l.pol.MaxBufferRows; over > 0 {
			l.buf = append(l.buf[:0], l.buf[over:]...)
			l.stats.Dropped += over
			l.obs.RecordDroppedRows(over, err)
		}
		return err
	}

	l.obs.ObserveLatency("carlog_flush_latency_seconds", time.Since(start).Seconds())
	l.obs.IncCounter("carlog_records_logged_total", float64(len(l.buf)))
	l.buf = l.buf[:0]
	l.obs.SetGauge("carlog_buffer_rows", 0)
	return nil
}
