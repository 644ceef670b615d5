package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventsIngestedTotal = promauto.With(prometheus.DefaultRegisterer).NewCounter(
	prometheus.CounterOpts{
		Name: "buildwatch_events_ingested_total",
		Help: "Total number of runtime events accepted by the ingestor.",
	},
)

var eventsDroppedTotal = promauto.With(prometheus.DefaultRegisterer).NewCounter(
	prometheus.CounterOpts{
		Name: "buildwatch_events_dropped_total",
		Help: "Total number of events dropped from the bounded hand-off queue under sustained overflow.",
	},
)

var eventParseFailuresTotal = promauto.With(prometheus.DefaultRegisterer).NewCounter(
	prometheus.CounterOpts{
		Name: "buildwatch_event_parse_failures_total",
		Help: "Total number of malformed runtime records skipped by the event source adapters.",
	},
)

var sourceReconnectsTotal = promauto.With(prometheus.DefaultRegisterer).NewCounter(
	prometheus.CounterOpts{
		Name: "buildwatch_source_reconnects_total",
		Help: "Total number of reconnect attempts against the runtime event source.",
	},
)

var issuesDetectedTotal = promauto.With(prometheus.DefaultRegisterer).NewCounterVec(
	prometheus.CounterOpts{
		Name: "buildwatch_issues_detected_total",
		Help: "Total number of issues emitted by the detector, by issue type.",
	},
	[]string{"type"},
)

// RecordEventIngested increments the accepted-event counter.
func RecordEventIngested() {
	eventsIngestedTotal.Inc()
}

// RecordEventDropped increments the dropped-event counter.
func RecordEventDropped() {
	eventsDroppedTotal.Inc()
}

// RecordParseFailure increments the malformed-record counter.
func RecordParseFailure() {
	eventParseFailuresTotal.Inc()
}

// RecordSourceReconnect increments the reconnect-attempt counter.
func RecordSourceReconnect() {
	sourceReconnectsTotal.Inc()
}

// RecordIssueDetected increments the detected-issue counter for one issue type.
func RecordIssueDetected(issueType string) {
	issuesDetectedTotal.WithLabelValues(issueType).Inc()
}
