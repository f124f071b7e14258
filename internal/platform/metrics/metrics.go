// Package metrics exposes Prometheus instruments for the aggregation cycle,
// the livescore provider client and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Option configures a Recorder.
type Option func(*Recorder)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(r *Recorder) {
		if namespace != "" {
			r.namespace = namespace
		}
	}
}

// WithRegistry registers metrics on registry instead of a fresh one.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(r *Recorder) {
		if registry != nil {
			r.registry = registry
		}
	}
}

// WithRuntimeCollectors adds the Go runtime and process collectors.
func WithRuntimeCollectors() Option {
	return func(r *Recorder) {
		r.runtime = true
	}
}

// Recorder owns the service metrics. A nil *Recorder records nothing.
type Recorder struct {
	namespace string
	registry  *prometheus.Registry
	runtime   bool

	refreshTotal    *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	h2hFetchTotal   *prometheus.CounterVec
	fixturesLast    prometheus.Gauge
	goodBetsLast    prometheus.Gauge

	providerRequests *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		namespace: "h2h_insight",
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.registry == nil {
		r.registry = prometheus.NewRegistry()
	}
	if r.runtime {
		r.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	auto := promauto.With(r.registry)

	r.refreshTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "stats",
		Name:      "refresh_total",
		Help:      "Aggregation cycles by outcome.",
	}, []string{"outcome"})
	r.refreshDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Subsystem: "stats",
		Name:      "refresh_duration_seconds",
		Help:      "Wall time of a full aggregation cycle.",
		Buckets:   prometheus.DefBuckets,
	})
	r.h2hFetchTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "stats",
		Name:      "h2h_fetch_total",
		Help:      "Per-fixture head-to-head fetches by outcome.",
	}, []string{"outcome"})
	r.fixturesLast = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Subsystem: "stats",
		Name:      "fixtures_last_cycle",
		Help:      "Fixtures included in the last successful cycle.",
	})
	r.goodBetsLast = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Subsystem: "stats",
		Name:      "good_bets_last_cycle",
		Help:      "Fixtures flagged as good bets in the last rendered snapshot.",
	})

	r.providerRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "livescore",
		Name:      "requests_total",
		Help:      "Provider requests by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})
	r.providerLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Subsystem: "livescore",
		Name:      "request_duration_seconds",
		Help:      "Provider request latency including retries.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint"})

	r.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "status_code"})
	r.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route and method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) ObserveRefresh(started time.Time, fixtures int, err error) {
	if r == nil {
		return
	}
	r.refreshDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		r.refreshTotal.WithLabelValues(OutcomeFailure).Inc()
		return
	}
	r.refreshTotal.WithLabelValues(OutcomeSuccess).Inc()
	r.fixturesLast.Set(float64(fixtures))
}

func (r *Recorder) ObserveH2HFetch(err error) {
	if r == nil {
		return
	}
	r.h2hFetchTotal.WithLabelValues(outcome(err)).Inc()
}

func (r *Recorder) SetGoodBets(count int) {
	if r == nil {
		return
	}
	r.goodBetsLast.Set(float64(count))
}

func (r *Recorder) ObserveProviderRequest(endpoint string, started time.Time, err error) {
	if r == nil {
		return
	}
	r.providerRequests.WithLabelValues(endpoint, outcome(err)).Inc()
	r.providerLatency.WithLabelValues(endpoint).Observe(time.Since(started).Seconds())
}

func (r *Recorder) ObserveHTTPRequest(route, method string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.httpRequestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// CacheStatsFunc reports cumulative lookups and the current entry count.
type CacheStatsFunc func() (hits, misses uint64, entries int)

// RegisterCache exposes a cache's counters, labelled by name, that are read
// on every scrape.
func (r *Recorder) RegisterCache(name string, stats CacheStatsFunc) {
	if r == nil || stats == nil {
		return
	}
	labels := prometheus.Labels{"cache": name}
	r.registry.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   r.namespace,
			Subsystem:   "cache",
			Name:        "hits_total",
			Help:        "Cache lookups served from memory.",
			ConstLabels: labels,
		}, func() float64 {
			hits, _, _ := stats()
			return float64(hits)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   r.namespace,
			Subsystem:   "cache",
			Name:        "misses_total",
			Help:        "Cache lookups that fell through to the provider.",
			ConstLabels: labels,
		}, func() float64 {
			_, misses, _ := stats()
			return float64(misses)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   r.namespace,
			Subsystem:   "cache",
			Name:        "entries",
			Help:        "Items currently held, including expired ones not yet read.",
			ConstLabels: labels,
		}, func() float64 {
			_, _, entries := stats()
			return float64(entries)
		}),
	)
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
