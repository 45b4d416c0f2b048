// AngelaMos | 2026
// metrics.go

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "eventhub"

// Metrics owns a private registry so tests can create as many as they
// like without duplicate registration panics.
type Metrics struct {
	registry     *prometheus.Registry
	lifecycle    *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		lifecycle: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lifecycle_transitions_total",
				Help:      "Event and ticket lifecycle outcomes",
			},
			[]string{"entity", "outcome"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// Lifecycle counts one outcome, e.g. ("ticket", "checked_in"). Safe on a
// nil receiver.
func (m *Metrics) Lifecycle(entity, outcome string) {
	if m == nil {
		return
	}
	m.lifecycle.WithLabelValues(entity, outcome).Inc()
}

// Snapshot returns lifecycle counter values keyed "entity.outcome".
func (m *Metrics) Snapshot() (map[string]float64, error) {
	out := map[string]float64{}
	if m == nil {
		return out, nil
	}

	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}

	name := namespace + "_lifecycle_transitions_total"
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			var entity, outcome string
			for _, label := range metric.GetLabel() {
				switch label.GetName() {
				case "entity":
					entity = label.GetValue()
				case "outcome":
					outcome = label.GetValue()
				}
			}
			out[entity+"."+outcome] = metric.GetCounter().GetValue()
		}
	}

	return out, nil
}

// Middleware records request counts and latency by chi route pattern so
// path parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Registry: m.registry,
	})
}
