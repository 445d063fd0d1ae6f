package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	metricTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scriptd_tasks_total",
			Help: "Invocations by outcome (ok, error, cancelled, rejected).",
		},
		[]string{"outcome"},
	)
	metricCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scriptd_call_duration_seconds",
			Help:    "Time spent holding the execution lock per invocation.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)
	metricQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scriptd_queue_depth",
		Help: "Tasks waiting in the queue.",
	})
	metricCallables = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scriptd_callables",
		Help: "Entry points held in the callable registry.",
	})
	metricLifecycle = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scriptd_runtime_lifecycles_total",
			Help: "Runtime lifecycle transitions (started, failed, stopped).",
		},
		[]string{"phase"},
	)
)

func init() {
	prometheus.MustRegister(metricTasks, metricCallDuration, metricQueueDepth, metricCallables, metricLifecycle)
}
