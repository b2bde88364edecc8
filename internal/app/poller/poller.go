package poller

import (
	"context"
	"time"

	"carlog/internal/adapters/cache"
	"carlog/internal/app/logger"
	"carlog/internal/app/state"
	"carlog/internal/domain"
	"carlog/internal/ports"
)

// Poller drives the fixed-period acquisition cycle. Per tick it reconnects a
// dead transport, queries every monitored parameter, feeds the value cache,
// hands a record to the trip logger when a session is active, and publishes
// a complete snapshot. A CommError mid-cycle aborts the remaining queries of
// that tick: a tick either contributes a full record or none.
type Poller struct {
	transport ports.Transport
	cache     *cache.ValueCache
	log       *logger.TripLogger
	shared    *state.SharedState
	obs       ports.Observability
	pol       ports.Policy
	params    []domain.Parameter

	now  func() time.Time
	tick uint64
}

func New(tr ports.Transport, c *cache.ValueCache, l *logger.TripLogger, sh *state.SharedState, obs ports.Observability, pol ports.Policy, params []domain.Parameter) *Poller {
	return &Poller{
		transport: tr,
		cache:     c,
		log:       l,
		shared:    sh,
		obs:       obs,
		pol:       pol,
		params:    params,
		now:       time.Now,
	}
}

// Run loops until ctx is cancelled. Each cycle sleeps out the remainder of
// the poll interval, floored at zero: the cadence never tightens beyond the
// configured period and degrades to slower ticks under load.
func (p *Poller) Run(ctx context.Context) {
	for {
		start := p.now()
		p.runTick(ctx)
		elapsed := p.now().Sub(start)
		p.obs.ObserveLatency("carlog_tick_duration_seconds", elapsed.Seconds())

		rest := p.pol.PollInterval - elapsed
		if rest <= 0 {
			select {
			case <-ctx.Done():
				return
			default:
			}
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(rest):
		}
	}
}

func (p *Poller) runTick(ctx context.Context) {
	p.acquire(ctx)
	// Ticks that withhold a record still drive the logger's flush ceiling.
	p.log.MaybeFlush()
}

func (p *Poller) acquire(ctx context.Context) {
	p.tick++

	if !p.transport.IsLive() {
		p.obs.IncCounter("carlog_reconnect_attempts_total", 1)
		if err := p.transport.Connect(ctx); err != nil {
			p.obs.LogError("transport_reconnect_failed", err)
			p.publish(false, p.cache.Snapshot())
			return
		}
		p.obs.LogInfo("transport_reconnected")
	}

	for _, prm := range p.params {
		r, err := p.transport.Query(prm.ID)
		if err != nil {
			// The connection is dead; withhold this tick's record rather
			// than guess at the missing readings.
			p.obs.IncCounter("carlog_comm_errors_total", 1)
			p.obs.LogError("query_failed", err, ports.Field{Key: "param", Value: string(prm.ID)})
			p.publish(false, p.cache.Snapshot())
			return
		}
		p.cache.Update(r)
	}

	snap := p.cache.Snapshot()
	p.log.Append(domain.Record{Timestamp: p.now(), Values: snap})
	p.publish(true, snap)
}

func (p *Poller) publish(connected bool, values []domain.CachedValue) {
	if connected {
		p.obs.SetGauge("carlog_connected", 1)
	} else {
		p.obs.SetGauge("carlog_connected", 0)
	}

	st := p.log.Stats()
	p.shared.Publish(state.Snapshot{
		Tick:        p.tick,
		Connected:   connected,
		Logging:     st.Active,
		Values:      values,
		RecordCount: st.Records,
		DroppedRows: st.Dropped,
		SessionID:   st.ID,
		Destination: st.Destination,
		StartedAt:   st.StartedAt,
		LastUpdate:  p.now(),
	})
}
