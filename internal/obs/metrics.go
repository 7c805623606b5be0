package obs

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// FuelConsumedTotal tallies fuel charged per operation category (see
	// foundation.OpType.Category), mirroring the per-op-type ledger kept by
	// foundation.Counter but exported for external scraping.
	FuelConsumedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wrtgo_fuel_consumed_total",
			Help: "Total fuel units consumed, by operation category.",
		},
		[]string{"category"},
	)

	// OperationsTotal tallies recorded operations by op type.
	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wrtgo_operations_total",
			Help: "Total operations recorded by the foundation counter, by op type.",
		},
		[]string{"op_type"},
	)

	// TasksByState gauges the async executor's task population by state.
	TasksByState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wrtgo_tasks",
			Help: "Current number of async tasks by state.",
		},
		[]string{"state"},
	)

	// SchedulingLatency times scheduler selection cycles.
	SchedulingLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wrtgo_scheduling_latency_seconds",
			Help:    "Time taken to select and dispatch the next ready task.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// ChannelDepth gauges bounded async channel occupancy by channel id.
	ChannelDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wrtgo_channel_depth",
			Help: "Current queued item count for a bounded async channel.",
		},
		[]string{"channel_id"},
	)

	// InheritanceChainLength observes priority-inheritance block-chain
	// lengths at resolution time.
	InheritanceChainLength = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wrtgo_priority_inheritance_chain_length",
			Help:    "Length of the priority-inheritance block-chain at resolution.",
			Buckets: []float64{1, 2, 3, 4, 6, 8, 12, 16},
		},
	)

	// CleanupFailuresTotal counts cleanup entry failures by resource kind,
	// critical and non-critical alike (see async.CleanupManager).
	CleanupFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wrtgo_cleanup_failures_total",
			Help: "Cleanup entry failures by resource kind.",
		},
		[]string{"kind"},
	)

	// LinkerInstancesTotal gauges live component instances by state.
	LinkerInstancesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wrtgo_instances",
			Help: "Current number of component instances by state.",
		},
		[]string{"state"},
	)
)

func init() {
	prometheus.MustRegister(
		FuelConsumedTotal,
		OperationsTotal,
		TasksByState,
		SchedulingLatency,
		ChannelDepth,
		InheritanceChainLength,
		CleanupFailuresTotal,
		LinkerInstancesTotal,
	)
}

// Timer measures elapsed wall time and reports it to a prometheus
// Observer (histogram) on ObserveDuration.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration reports the elapsed time since NewTimer to obs.
func (t *Timer) ObserveDuration(obs prometheus.Observer) time.Duration {
	d := time.Since(t.start)
	obs.Observe(d.Seconds())
	return d
}

// Handler exposes the process metric registry over HTTP, for hosted
// deployments that want a /metrics scrape endpoint alongside the CLI.
func Handler() http.Handler {
	return promhttp.Handler()
}
