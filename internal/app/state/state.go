package state

import (
	"sync/atomic"
	"time"

	"carlog/internal/domain"
)

// Snapshot is one complete, internally consistent tick view. The poller is
// the sole publisher; presentation consumers read at their own cadence
// without ever blocking acquisition.
type Snapshot struct {
	Tick        uint64
	Connected   bool
	Logging     bool
	Values      []domain.CachedValue
	RecordCount int
	DroppedRows int
	SessionID   string
	Destination string
	StartedAt   time.Time
	LastUpdate  time.Time
}

// Value returns one parameter's cached value from the snapshot.
func (s Snapshot) Value(id domain.ParamID) (domain.CachedValue, bool) {
	for _, v := range s.Values {
		if v.Param == id {
			return v, true
		}
	}
	return domain.CachedValue{}, false
}

// SharedState holds the latest published snapshot behind an atomic pointer
// swap, so readers never see a mix of two ticks and never stall the poller.
type SharedState struct {
	cur atomic.Pointer[Snapshot]
}

func New() *SharedState {
	s := &SharedState{}
	s.cur.Store(&Snapshot{})
	return s
}

// Publish replaces the exposed state. The snapshot's Values slice must not
// be mutated after publication; the poller hands over a fresh copy per tick.
func (s *SharedState) Publish(snap Snapshot) {
	s.cur.Store(&snap)
}

// Read returns a torn-free view of the last published tick.
func (s *SharedState) Read() Snapshot {
	return *s.cur.Load()
}
