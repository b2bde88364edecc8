package observability

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"

	"carlog/internal/ports"
)

type PromObs struct {
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

func NewPromObs() *PromObs {
	logged := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "carlog_records_logged_total",
		Help: "Trip records successfully flushed to the sink.",
	})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "carlog_rows_dropped_total",
		Help: "Buffered rows lost to the bounded-buffer overflow policy.",
	})
	flushErrs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "carlog_flush_errors_total",
		Help: "Sink flush attempts that failed and will be retried.",
	})
	commErrs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "carlog_comm_errors_total",
		Help: "Transport failures observed mid-cycle.",
	})
	reconnects := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "carlog_reconnect_attempts_total",
		Help: "Reconnect attempts made by the poller.",
	})
	connected := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "carlog_connected",
		Help: "1 while the transport connection is live.",
	})
	bufferRows := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "carlog_buffer_rows",
		Help: "Rows currently buffered by the trip logger.",
	})
	tick := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "carlog_tick_duration_seconds",
		Help:    "Wall time of one acquisition tick before the remainder sleep.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})
	flushLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "carlog_flush_latency_seconds",
		Help:    "Latency of sink flushes.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	prometheus.MustRegister(logged, dropped, flushErrs, commErrs, reconnects, connected, bufferRows, tick, flushLatency)

	return &PromObs{
		counters: map[string]prometheus.Counter{
			"carlog_records_logged_total":     logged,
			"carlog_rows_dropped_total":       dropped,
			"carlog_flush_errors_total":       flushErrs,
			"carlog_comm_errors_total":        commErrs,
			"carlog_reconnect_attempts_total": reconnects,
		},
		gauges: map[string]prometheus.Gauge{
			"carlog_connected":   connected,
			"carlog_buffer_rows": bufferRows,
		},
		histos: map[string]prometheus.Observer{
			"carlog_tick_duration_seconds": tick,
			"carlog_flush_latency_seconds": flushLatency,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("ERROR: %s: %v", msg, err)
	}
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("CRITICAL: %s: %v", msg, err)
	}
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) RecordDroppedRows(n int, err error) {
	p.IncCounter("carlog_rows_dropped_total", float64(n))
	if err != nil {
		log.Printf("dropped %d buffered rows: %v", n, err)
	}
}

var _ ports.Observability = (*PromObs)(nil)
