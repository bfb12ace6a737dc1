package changefeed

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	processedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roster_client",
		Subsystem: "changefeed",
		Name:      "records_processed_total",
		Help:      "Number of roster-change records handled and committed.",
	}, []string{"topic", "event_type"})

	handlerErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roster_client",
		Subsystem: "changefeed",
		Name:      "handler_errors_total",
		Help:      "Number of roster-change records whose refresh failed.",
	}, []string{"topic", "event_type"})

	decodeErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roster_client",
		Subsystem: "changefeed",
		Name:      "decode_errors_total",
		Help:      "Number of malformed roster-change records per topic.",
	}, []string{"topic"})
)

func init() {
	prometheus.MustRegister(processedCounter, handlerErrorCounter, decodeErrorCounter)
}

func recordProcessed(c Change) {
	processedCounter.WithLabelValues(c.Topic, c.EventType).Inc()
}

func recordHandlerError(c Change) {
	handlerErrorCounter.WithLabelValues(c.Topic, c.EventType).Inc()
}

func recordDecodeError(topic string) {
	decodeErrorCounter.WithLabelValues(topic).Inc()
}
