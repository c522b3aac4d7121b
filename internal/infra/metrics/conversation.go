package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(conversationEventsTotal, transitionDuration)
}

var (
	conversationEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_events_total",
			Help: "Inbound conversation events by kind and dispatch outcome.",
		},
		[]string{"kind", "outcome"}, // outcome: handled|unmatched|failed
	)

	transitionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "conversation_transition_duration_seconds",
			Help:    "Time spent inside a step handler, including collaborator calls.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"transition"},
	)
)

func IncConversationEvent(kind, outcome string) {
	conversationEventsTotal.WithLabelValues(norm(kind), norm(outcome)).Inc()
}

func ObserveTransition(name string, d time.Duration) {
	transitionDuration.WithLabelValues(norm(name)).Observe(d.Seconds())
}
