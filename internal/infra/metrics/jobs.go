package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobsProcessedTotal, sweptEntriesTotal) }

var (
	jobsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_processed_total",
			Help: "Background jobs processed, labeled by job and status.",
		},
		[]string{"job", "status"}, // status: 'completed', 'failed'
	)

	sweptEntriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swept_entries_total",
			Help: "Expired in-memory entries removed by the sweeper.",
		},
		[]string{"store"},
	)
)

func IncJob(job, status string) {
	jobsProcessedTotal.WithLabelValues(norm(job), norm(status)).Inc()
}

func AddSwept(store string, n int) {
	if n <= 0 {
		return
	}
	sweptEntriesTotal.WithLabelValues(norm(store)).Add(float64(n))
}
