package cache

import (
	"sync"

	"carlog/internal/domain"
)

// ValueCache retains the last valid reading per parameter so a dropped query
// never renders as a spurious zero. Numeric parameters start at zero;
// may-be-absent parameters carry a "not available" marker until their first
// valid reading ever.
//
// The poller is the only writer. Snapshot returns a copy safe to hand off
// without holding the lock during consumption.
type ValueCache struct {
	mu    sync.Mutex
	order []domain.ParamID
	vals  map[domain.ParamID]domain.CachedValue
}

func New(params []domain.Parameter) *ValueCache {
	c := &ValueCache{
		order: make([]domain.ParamID, 0, len(params)),
		vals:  make(map[domain.ParamID]domain.CachedValue, len(params)),
	}
	for _, p := range params {
		c.order = append(c.order, p.ID)
		c.vals[p.ID] = domain.CachedValue{
			Param:     p.ID,
			Available: !p.MayBeAbsent,
		}
	}
	return c
}

// Update overwrites the cached value on a valid reading and is a no-op on an
// absent one, retaining the prior value.
func (c *ValueCache) Update(r domain.Reading) {
	if !r.Valid {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	cv, ok := c.vals[r.Param]
	if !ok {
		return
	}
	cv.Value = r.Value
	cv.Available = true
	cv.Timestamp = r.Timestamp
	c.vals[r.Param] = cv
}

// Snapshot returns the cached values in declaration order.
func (c *ValueCache) Snapshot() []domain.CachedValue {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.CachedValue, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.vals[id])
	}
	return out
}
