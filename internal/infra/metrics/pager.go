package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(pagerRendersTotal) }

var pagerRendersTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pager_renders_total",
		Help: "Pager page requests by collection and status.",
	},
	[]string{"kind", "status"}, // status: rendered|empty|failed
)

func IncPagerRender(kind, status string) {
	pagerRendersTotal.WithLabelValues(norm(kind), norm(status)).Inc()
}
