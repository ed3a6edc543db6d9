package metrics

import "github.com/prometheus/client_golang/prometheus"

// FanOutMetrics tracks donor notification fan-out outcomes.
type FanOutMetrics struct {
	candidates *prometheus.HistogramVec
	notified   *prometheus.CounterVec
	pushFailed *prometheus.CounterVec
	capped     *prometheus.CounterVec
}

// NewFanOutMetrics registers the fan-out metrics on the provided registerer.
func NewFanOutMetrics(reg prometheus.Registerer) *FanOutMetrics {
	if reg == nil {
		return &FanOutMetrics{}
	}
	candidates := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fanout_candidates",
		Help:    "Matching donor candidates per fan-out.",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 200},
	}, []string{"event"})
	notified := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fanout_notified_total",
		Help: "Notifications written during fan-out.",
	}, []string{"event"})
	pushFailed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fanout_push_failures_total",
		Help: "Push deliveries that the gateway rejected.",
	}, []string{"event"})
	capped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fanout_capped_total",
		Help: "Fan-outs truncated by the recipient cap.",
	}, []string{"event"})
	reg.MustRegister(candidates, notified, pushFailed, capped)
	return &FanOutMetrics{
		candidates: candidates,
		notified:   notified,
		pushFailed: pushFailed,
		capped:     capped,
	}
}

// ObserveCandidates records how many donors matched before capping.
func (f *FanOutMetrics) ObserveCandidates(event string, count int) {
	if f == nil || f.candidates == nil {
		return
	}
	f.candidates.WithLabelValues(normalizeLabel(event)).Observe(float64(count))
}

// AddNotified adds to the notified counter for the event type.
func (f *FanOutMetrics) AddNotified(event string, count int) {
	if f == nil || f.notified == nil {
		return
	}
	f.notified.WithLabelValues(normalizeLabel(event)).Add(float64(count))
}

// IncPushFailure increments the push failure counter for the event type.
func (f *FanOutMetrics) IncPushFailure(event string) {
	if f == nil || f.pushFailed == nil {
		return
	}
	f.pushFailed.WithLabelValues(normalizeLabel(event)).Inc()
}

// IncCapped increments the cap counter for the event type.
func (f *FanOutMetrics) IncCapped(event string) {
	if f == nil || f.capped == nil {
		return
	}
	f.capped.WithLabelValues(normalizeLabel(event)).Inc()
}
