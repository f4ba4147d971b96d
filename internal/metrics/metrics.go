package metrics

import (
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registry = prometheus.NewRegistry()

	jobsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "pman",
		Name:      "jobs_active",
		Help:      "Number of tracked background jobs that are not stopped.",
	})

	jobsTracked = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "pman",
		Name:      "jobs_tracked",
		Help:      "Number of background jobs currently held in the registry.",
	})

	jobsLaunched = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pman",
		Name:      "jobs_launched_total",
		Help:      "Total number of background jobs started.",
	})

	spawnFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pman",
		Name:      "spawn_failures_total",
		Help:      "Total number of launch attempts that failed before a job was registered.",
	})

	jobsReaped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pman",
		Name:      "jobs_reaped_total",
		Help:      "Child status changes consumed by the reaper, by kind.",
	}, []string{"kind"})

	signalsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pman",
		Name:      "signals_sent_total",
		Help:      "Signal requests issued by operators, by signal and result.",
	}, []string{"signal", "result"})

	buildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "pman",
		Name:      "build_info",
		Help:      "Build metadata for the running pman binary.",
	}, []string{"go_version", "vcs", "vcs_revision", "vcs_time", "vcs_modified"})

	buildInfoOnce sync.Once
)

func init() {
	registry.MustRegister(jobsActive, jobsTracked, jobsLaunched, spawnFailures, jobsReaped, signalsSent, buildInfo)
}

// Registry returns the Prometheus registry containing all pman metrics.
func Registry() *prometheus.Registry {
	return registry
}

// SetJobCounts publishes the registry size and the number of active jobs.
func SetJobCounts(tracked, active int) {
	jobsTracked.Set(float64(tracked))
	jobsActive.Set(float64(active))
}

// IncJobsLaunched counts a successful launch.
func IncJobsLaunched() {
	jobsLaunched.Inc()
}

// IncSpawnFailures counts a failed launch.
func IncSpawnFailures() {
	spawnFailures.Inc()
}

// IncJobsReaped counts a consumed status change of the given kind.
func IncJobsReaped(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	jobsReaped.WithLabelValues(kind).Inc()
}

// ObserveSignal counts a signal request. A nil error is recorded as "ok".
func ObserveSignal(signal string, err error) {
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	signalsSent.WithLabelValues(signal, result).Inc()
}

// EmitBuildInfo publishes build metadata about the running binary.
func EmitBuildInfo() {
	buildInfoOnce.Do(func() {
		labels := prometheus.Labels{
			"go_version":   runtime.Version(),
			"vcs":          "",
			"vcs_revision": "",
			"vcs_time":     "",
			"vcs_modified": "",
		}
		if info, ok := debug.ReadBuildInfo(); ok {
			if info.GoVersion != "" {
				labels["go_version"] = info.GoVersion
			}
			for _, setting := range info.Settings {
				switch setting.Key {
				case "vcs":
					labels["vcs"] = setting.Value
				case "vcs.revision":
					labels["vcs_revision"] = setting.Value
				case "vcs.time":
					labels["vcs_time"] = setting.Value
				case "vcs.modified":
					labels["vcs_modified"] = setting.Value
				}
			}
		}
		buildInfo.With(labels).Set(1)
	})
}
