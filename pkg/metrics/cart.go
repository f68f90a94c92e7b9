package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storefront_cart"

// CartMetrics records cart synchronizer and session registry activity. A nil
// *CartMetrics, or one built without a registerer, records nothing.
type CartMetrics struct {
	remoteDuration   *prometheus.HistogramVec
	remoteFailures   *prometheus.CounterVec
	staleResponses   *prometheus.CounterVec
	guardOutcomes    *prometheus.CounterVec
	queuedMutations  prometheus.Gauge
	activeSessions   prometheus.Gauge
	sessionEvictions *prometheus.CounterVec
	eventsPublished  *prometheus.CounterVec
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	remoteDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "remote_duration_seconds",
		Help:      "Latency of cart service round trips.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})
	remoteFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "remote_failures_total",
		Help:      "Failed cart service calls by operation and error kind.",
	}, []string{"op", "kind"})
	staleResponses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stale_responses_total",
		Help:      "Cart service responses discarded because a newer request superseded them.",
	}, []string{"op"})
	guardOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quantity_guard_outcomes_total",
		Help:      "Stock guard decisions by outcome.",
	}, []string{"outcome"})
	queuedMutations := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "queued_mutations",
		Help:      "Mutations waiting for or holding a synchronizer slot.",
	})
	activeSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Sessions holding a live cart store.",
	})
	sessionEvictions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_evictions_total",
		Help:      "Cart stores torn down by reason.",
	}, []string{"reason"})
	eventsPublished := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Cart events handed to the event sink by type and result.",
	}, []string{"type", "result"})

	reg.MustRegister(remoteDuration, remoteFailures, staleResponses, guardOutcomes, queuedMutations, activeSessions, sessionEvictions, eventsPublished)
	return &CartMetrics{
		remoteDuration:   remoteDuration,
		remoteFailures:   remoteFailures,
		staleResponses:   staleResponses,
		guardOutcomes:    guardOutcomes,
		queuedMutations:  queuedMutations,
		activeSessions:   activeSessions,
		sessionEvictions: sessionEvictions,
		eventsPublished:  eventsPublished,
	}
}

// ObserveRemote records the latency of one cart service call.
func (c *CartMetrics) ObserveRemote(op string, duration time.Duration) {
	if c == nil || c.remoteDuration == nil {
		return
	}
	c.remoteDuration.WithLabelValues(normalizeLabel(op)).Observe(duration.Seconds())
}

// IncRemoteFailure counts a failed cart service call.
func (c *CartMetrics) IncRemoteFailure(op, kind string) {
	if c == nil || c.remoteFailures == nil {
		return
	}
	c.remoteFailures.WithLabelValues(normalizeLabel(op), normalizeLabel(kind)).Inc()
}

// IncStale counts a discarded stale response.
func (c *CartMetrics) IncStale(op string) {
	if c == nil || c.staleResponses == nil {
		return
	}
	c.staleResponses.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncGuardOutcome counts a stock guard decision.
func (c *CartMetrics) IncGuardOutcome(outcome string) {
	if c == nil || c.guardOutcomes == nil {
		return
	}
	c.guardOutcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// MutationQueued tracks a mutation entering the synchronizer queue.
func (c *CartMetrics) MutationQueued() {
	if c == nil || c.queuedMutations == nil {
		return
	}
	c.queuedMutations.Inc()
}

// MutationDone tracks a mutation leaving the synchronizer queue.
func (c *CartMetrics) MutationDone() {
	if c == nil || c.queuedMutations == nil {
		return
	}
	c.queuedMutations.Dec()
}

// SessionStarted tracks a new cart store.
func (c *CartMetrics) SessionStarted() {
	if c == nil || c.activeSessions == nil {
		return
	}
	c.activeSessions.Inc()
}

// SessionEnded tracks a cart store teardown.
func (c *CartMetrics) SessionEnded(reason string) {
	if c == nil || c.activeSessions == nil {
		return
	}
	c.activeSessions.Dec()
	c.sessionEvictions.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncEvent counts a cart event publish attempt.
func (c *CartMetrics) IncEvent(eventType string, ok bool) {
	if c == nil || c.eventsPublished == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	c.eventsPublished.WithLabelValues(normalizeLabel(eventType), result).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
