package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPromObsMetrics(t *testing.T) {
	origReg := prometheus.DefaultRegisterer
	origGatherer := prometheus.DefaultGatherer
	t.Cleanup(func() {
		prometheus.DefaultRegisterer = origReg
		prometheus.DefaultGatherer = origGatherer
	})

	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg

	obs := NewPromObs()

	obs.IncCounter("carlog_records_logged_total", 7)
	if got := testutil.ToFloat64(obs.counters["carlog_records_logged_total"]); got != 7 {
		t.Fatalf("expected logged counter 7, got %f", got)
	}

	obs.IncCounter("carlog_comm_errors_total", 1)
	if got := testutil.ToFloat64(obs.counters["carlog_comm_errors_total"]); got != 1 {
		t.Fatalf("expected comm error counter 1, got %f", got)
	}

	obs.SetGauge("carlog_connected", 1)
	if got := testutil.ToFloat64(obs.gauges["carlog_connected"]); got != 1 {
		t.Fatalf("expected connected gauge 1, got %f", got)
	}

	obs.ObserveLatency("carlog_tick_duration_seconds", 0.05)
	hCollector := obs.histos["carlog_tick_duration_seconds"].(prometheus.Collector)
	if samples := testutil.CollectAndCount(hCollector); samples != 1 {
		t.Fatalf("expected tick histogram to record 1 sample, got %d", samples)
	}

	obs.RecordDroppedRows(3, nil)
	if got := testutil.ToFloat64(obs.counters["carlog_rows_dropped_total"]); got != 3 {
		t.Fatalf("expected dropped counter 3, got %f", got)
	}
}
