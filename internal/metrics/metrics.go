package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics holds the collectors recorded during one generator run.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	reg *prometheus.Registry

	pagesFetched     prometheus.Counter
	repositoriesSeen prometheus.Counter
	rendered         prometheus.Gauge
	duration         prometheus.Gauge
	lastSuccess      prometheus.Gauge
	failures         *prometheus.CounterVec
}

// New creates the run collectors and registers them on a private registry.
func New() (*Metrics, error) {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		pagesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portfolio_pages_fetched_total",
			Help: "Number of repository listing pages requested from the GitHub API.",
		}),
		repositoriesSeen: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portfolio_repositories_seen_total",
			Help: "Number of repositories returned by the GitHub API before filtering.",
		}),
		rendered: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portfolio_repositories_rendered",
			Help: "Number of repository cards in the rendered page.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portfolio_run_duration_seconds",
			Help: "Wall time of the last generator run.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portfolio_last_success_timestamp_seconds",
			Help: "Unix time of the last successful generator run.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolio_run_failures_total",
			Help: "Generator runs that ended with an error, by error kind.",
		}, []string{"kind"}),
	}

	for _, c := range []prometheus.Collector{
		m.pagesFetched, m.repositoriesSeen, m.rendered, m.duration, m.lastSuccess, m.failures,
	} {
		if err := m.reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Registry exposes the private registry, mainly for tests and pushing.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// ObservePage records one fetched listing page holding items repositories.
func (m *Metrics) ObservePage(items int) {
	if m == nil {
		return
	}
	m.pagesFetched.Inc()
	m.repositoriesSeen.Add(float64(items))
}

// ObserveSuccess records a completed run.
func (m *Metrics) ObserveSuccess(rendered int, elapsed time.Duration, now time.Time) {
	if m == nil {
		return
	}
	m.rendered.Set(float64(rendered))
	m.duration.Set(elapsed.Seconds())
	m.lastSuccess.Set(float64(now.Unix()))
}

// ObserveFailure records a run that ended with an error of the given kind.
func (m *Metrics) ObserveFailure(kind string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(kind).Inc()
	m.duration.Set(elapsed.Seconds())
}

// Push sends every collector to a Prometheus Pushgateway, replacing the
// previous group for job and owner.
func (m *Metrics) Push(ctx context.Context, url, job, owner string) error {
	if m == nil || url == "" {
		return nil
	}
	err := push.New(url, job).
		Gatherer(m.reg).
		Grouping("owner", owner).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
