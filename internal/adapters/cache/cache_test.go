package cache

import (
	"testing"
	"time"

	"carlog/internal/domain"
)

var testParams = []domain.Parameter{
	{ID: "rpm"},
	{ID: "speed"},
	{ID: "oil", MayBeAbsent: true},
}

func valueOf(t *testing.T, snap []domain.CachedValue, id domain.ParamID) domain.CachedValue {
	t.Helper()
	for _, v := range snap {
		if v.Param == id {
			return v
		}
	}
	t.Fatalf("parameter %s missing from snapshot", id)
	return domain.CachedValue{}
}

func TestColdStartDefaults(t *testing.T) {
	c := New(testParams)
	snap := c.Snapshot()

	rpm := valueOf(t, snap, "rpm")
	if !rpm.Available || rpm.Value != 0 {
		t.Fatalf("numeric parameter should read zero at cold start, got %+v", rpm)
	}
	oil := valueOf(t, snap, "oil")
	if oil.Available {
		t.Fatalf("may-be-absent parameter should start unavailable, got %+v", oil)
	}
}

func TestAbsentReadingRetainsLastGood(t *testing.T) {
	c := New(testParams)
	now := time.Now()

	// RPM readings 800, absent, 820, absent, 830 must render
	// 800, 800, 820, 820, 830 with no zero flash.
	seq := []struct {
		value int64
		valid bool
		want  int64
	}{
		{800, true, 800},
		{0, false, 800},
		{820, true, 820},
		{0, false, 820},
		{830, true, 830},
	}

	for i, step := range seq {
		c.Update(domain.Reading{Param: "rpm", Value: step.value, Valid: step.valid, Timestamp: now.Add(time.Duration(i) * 100 * time.Millisecond)})
		got := valueOf(t, c.Snapshot(), "rpm")
		if got.Value != step.want {
			t.Fatalf("tick %d: expected rpm %d, got %d", i, step.want, got.Value)
		}
	}
}

func TestNeverSupportedStaysUnavailable(t *testing.T) {
	c := New(testParams)
	for i := 0; i < 50; i++ {
		c.Update(domain.Reading{Param: "oil", Valid: false, Timestamp: time.Now()})
	}
	if valueOf(t, c.Snapshot(), "oil").Available {
		t.Fatalf("oil must stay unavailable until a valid reading arrives")
	}

	c.Update(domain.Reading{Param: "oil", Value: 92, Valid: true, Timestamp: time.Now()})
	oil := valueOf(t, c.Snapshot(), "oil")
	if !oil.Available || oil.Value != 92 {
		t.Fatalf("expected oil 92 available, got %+v", oil)
	}
}

func TestSnapshotIsIsolatedCopy(t *testing.T) {
	c := New(testParams)
	c.Update(domain.Reading{Param: "speed", Value: 50, Valid: true, Timestamp: time.Now()})

	snap := c.Snapshot()
	snap[0].Value = 9999

	if got := valueOf(t, c.Snapshot(), "speed").Value; got != 50 {
		t.Fatalf("mutating a snapshot must not affect the cache, got %d", got)
	}
}

func TestUnknownParameterIgnored(t *testing.T) {
	c := New(testParams)
	c.Update(domain.Reading{Param: "boost", Value: 7, Valid: true, Timestamp: time.Now()})
	if len(c.Snapshot()) != len(testParams) {
		t.Fatalf("unknown parameters must not grow the cache")
	}
}
