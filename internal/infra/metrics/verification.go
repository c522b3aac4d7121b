package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(tokensIssuedTotal, tokenChecksTotal) }

var (
	tokensIssuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "verification_tokens_issued_total",
			Help: "Verification codes issued.",
		},
	)

	tokenChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_checks_total",
			Help: "Verification code checks by result.",
		},
		[]string{"result"}, // matched|mismatch|expired|missing
	)
)

func IncTokenIssued() { tokensIssuedTotal.Inc() }

func IncTokenCheck(result string) {
	tokenChecksTotal.WithLabelValues(norm(result)).Inc()
}
