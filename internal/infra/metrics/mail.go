package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(mailSentTotal) }

var mailSentTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "mail_sent_total",
		Help: "Outbound verification mails by status.",
	},
	[]string{"status"}, // sent|failed|skipped
)

func IncMail(status string) {
	mailSentTotal.WithLabelValues(norm(status)).Inc()
}
