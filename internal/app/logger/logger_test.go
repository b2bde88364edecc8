package logger

import (
	"errors"
	"testing"
	"time"

	"carlog/internal/domain"
	"carlog/internal/ports"
)

// fakeSink records flushed batches and can fail on demand.
type fakeSink struct {
	batches  [][]domain.Record
	failing  bool
	closed   int
	writeErr error
}

func (f *fakeSink) WriteRows(recs []domain.Record) error {
	if f.failing {
		if f.writeErr == nil {
			f.writeErr = errors.New("disk full")
		}
		return f.writeErr
	}
	batch := make([]domain.Record, len(recs))
	copy(batch, recs)
	f.batches = append(f.batches, batch)
	return nil
}

func (f *fakeSink) Close() error { f.closed++; return nil }
func (f *fakeSink) Name() string { return "fake" }

type nopObs struct{}

func (nopObs) LogInfo(string, ...ports.Field)         {}
func (nopObs) LogError(string, error, ...ports.Field) {}
func (nopObs) LogCritical(string, error, ...ports.Field) {
}
func (nopObs) IncCounter(string, float64)     {}
func (nopObs) ObserveLatency(string, float64) {}
func (nopObs) SetGauge(string, float64)       {}
func (nopObs) RecordDroppedRows(int, error)   {}

func testPolicy() ports.Policy {
	return ports.Policy{
		FlushRows:     3,
		FlushInterval: time.Hour, // keep the time ceiling out of count tests
		MaxBufferRows: 5,
	}
}

func rec(i int) domain.Record {
	return domain.Record{
		Timestamp: time.Date(2026, 8, 26, 10, 0, 0, i*1e6, time.UTC),
		Values:    []domain.CachedValue{{Param: "rpm", Value: int64(800 + i), Available: true}},
	}
}

func TestCountTriggeredFlushes(t *testing.T) {
	sink := &fakeSink{}
	l := New(nopObs{}, testPolicy())
	if err := l.Open(sink, "s1", "trip.csv"); err != nil {
		t.Fatalf("open: %v", err)
	}

	// Threshold 3, 7 appends: flushes after rows 3 and 6, final flush of 1 at close.
	for i := 0; i < 7; i++ {
		l.Append(rec(i))
	}
	if len(sink.batches) != 2 || len(sink.batches[0]) != 3 || len(sink.batches[1]) != 3 {
		t.Fatalf("expected two count-triggered flushes of 3, got %d batches", len(sink.batches))
	}

	n, err := l.Close()
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if n != 7 {
		t.Fatalf("expected 7 records, got %d", n)
	}
	if len(sink.batches) != 3 || len(sink.batches[2]) != 1 {
		t.Fatalf("expected final flush of 1 row, got %+v", sink.batches)
	}

	// Rows must land in tick order across flush boundaries.
	var i int
	for _, b := range sink.batches {
		for _, r := range b {
			if r.Values[0].Value != int64(800+i) {
				t.Fatalf("row %d out of order: %+v", i, r)
			}
			i++
		}
	}
}

func TestTimeCeilingFlush(t *testing.T) {
	sink := &fakeSink{}
	pol := testPolicy()
	pol.FlushRows = 1000
	pol.FlushInterval = 10 * time.Millisecond
	l := New(nopObs{}, pol)
	if err := l.Open(sink, "s1", "trip.csv"); err != nil {
		t.Fatalf("open: %v", err)
	}

	l.Append(rec(0))
	time.Sleep(20 * time.Millisecond)
	l.Append(rec(1))

	if len(sink.batches) != 1 || len(sink.batches[0]) != 2 {
		t.Fatalf("expected one time-triggered flush of 2 rows, got %+v", sink.batches)
	}
}

func TestTimeCeilingFlushWithoutAppend(t *testing.T) {
	sink := &fakeSink{}
	pol := testPolicy()
	pol.FlushRows = 1000
	pol.FlushInterval = 10 * time.Millisecond
	l := New(nopObs{}, pol)
	if err := l.Open(sink, "s1", "trip.csv"); err != nil {
		t.Fatalf("open: %v", err)
	}

	l.Append(rec(0))
	l.MaybeFlush()
	if len(sink.batches) != 0 {
		t.Fatalf("ceiling not reached yet, nothing should flush")
	}

	// No further appends; the ceiling alone must get the row out.
	time.Sleep(20 * time.Millisecond)
	l.MaybeFlush()
	if len(sink.batches) != 1 || len(sink.batches[0]) != 1 {
		t.Fatalf("expected the buffered row flushed on the ceiling, got %+v", sink.batches)
	}
}

func TestFlushErrorRetainsAndRetries(t *testing.T) {
	sink := &fakeSink{failing: true}
	l := New(nopObs{}, testPolicy())
	if err := l.Open(sink, "s1", "trip.csv"); err != nil {
		t.Fatalf("open: %v", err)
	}

	for i := 0; i < 3; i++ {
		l.Append(rec(i))
	}
	if len(sink.batches) != 0 {
		t.Fatalf("failing sink must not record batches")
	}
	if l.BufferLen() != 3 {
		t.Fatalf("buffer must be retained after a failed flush, got %d", l.BufferLen())
	}

	// Sink recovers; the retained rows go out with the next trigger.
	sink.failing = false
	l.Append(rec(3))
	if len(sink.batches) != 1 || len(sink.batches[0]) != 4 {
		t.Fatalf("expected retry flush of all 4 rows, got %+v", sink.batches)
	}
	if sink.batches[0][0].Values[0].Value != 800 {
		t.Fatalf("retained rows must flush first, got %+v", sink.batches[0][0])
	}
}

func TestBoundedBufferDropsOldest(t *testing.T) {
	sink := &fakeSink{failing: true}
	pol := testPolicy()
	pol.FlushRows = 1
	pol.MaxBufferRows = 4
	l := New(nopObs{}, pol)
	if err := l.Open(sink, "s1", "trip.csv"); err != nil {
		t.Fatalf("open: %v", err)
	}

	for i := 0; i < 6; i++ {
		l.Append(rec(i))
	}
	if l.BufferLen() != 4 {
		t.Fatalf("buffer must be capped at 4, got %d", l.BufferLen())
	}
	if got := l.Stats().Dropped; got != 2 {
		t.Fatalf("expected 2 dropped rows counted, got %d", got)
	}

	sink.failing = false
	l.Append(rec(6))
	last := sink.batches[len(sink.batches)-1]
	if last[0].Values[0].Value != 802 {
		t.Fatalf("oldest rows must be the ones dropped, first surviving row: %+v", last[0])
	}
}

func TestCloseIdempotent(t *testing.T) {
	sink := &fakeSink{}
	l := New(nopObs{}, testPolicy())
	if err := l.Open(sink, "s1", "trip.csv"); err != nil {
		t.Fatalf("open: %v", err)
	}
	l.Append(rec(0))

	n1, err := l.Close()
	if err != nil || n1 != 1 {
		t.Fatalf("first close: n=%d err=%v", n1, err)
	}
	n2, err := l.Close()
	if err != nil || n2 != 1 {
		t.Fatalf("second close must be a no-op: n=%d err=%v", n2, err)
	}
	if sink.closed != 1 {
		t.Fatalf("sink must be closed exactly once, got %d", sink.closed)
	}
}

func TestOpenWhileActiveRejected(t *testing.T) {
	l := New(nopObs{}, testPolicy())
	if err := l.Open(&fakeSink{}, "s1", "a.csv"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := l.Open(&fakeSink{}, "s2", "b.csv"); !errors.Is(err, ports.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestResetRequiresClosedSession(t *testing.T) {
	l := New(nopObs{}, testPolicy())
	if err := l.Open(&fakeSink{}, "s1", "a.csv"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := l.Reset(); !errors.Is(err, ports.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if _, err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := l.Reset(); err != nil {
		t.Fatalf("reset after close: %v", err)
	}
	if l.Stats().Records != 0 {
		t.Fatalf("reset must clear counters")
	}
}
