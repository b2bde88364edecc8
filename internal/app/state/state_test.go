package state

import (
	"sync"
	"testing"

	"carlog/internal/domain"
)

func TestReadBeforeFirstPublish(t *testing.T) {
	s := New()
	snap := s.Read()
	if snap.Connected || snap.Logging || snap.Tick != 0 {
		t.Fatalf("expected zero snapshot, got %+v", snap)
	}
}

func TestPublishReplacesWholeSnapshot(t *testing.T) {
	s := New()
	s.Publish(Snapshot{Tick: 1, Connected: true, RecordCount: 3,
		Values: []domain.CachedValue{{Param: "rpm", Value: 800, Available: true}}})

	snap := s.Read()
	if snap.Tick != 1 || !snap.Connected || snap.RecordCount != 3 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	v, ok := snap.Value("rpm")
	if !ok || v.Value != 800 {
		t.Fatalf("unexpected rpm value: %+v ok=%v", v, ok)
	}

	s.Publish(Snapshot{Tick: 2, Connected: false})
	if snap := s.Read(); snap.Tick != 2 || snap.Connected {
		t.Fatalf("expected tick 2 disconnected, got %+v", snap)
	}
}

func TestConcurrentReadersSeeConsistentTicks(t *testing.T) {
	s := New()

	// Tick and RecordCount move in lockstep; a torn read would break that.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := uint64(1); i <= 5000; i++ {
			s.Publish(Snapshot{Tick: i, RecordCount: int(i)})
		}
	}()

	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 5000; i++ {
				snap := s.Read()
				if uint64(snap.RecordCount) != snap.Tick {
					t.Errorf("torn snapshot: tick=%d count=%d", snap.Tick, snap.RecordCount)
					return
				}
			}
		}()
	}
	wg.Wait()
	<-done
}
