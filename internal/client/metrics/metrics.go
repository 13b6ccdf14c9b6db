// Package metrics exposes Prometheus counters for the client session layer.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Refresh outcomes recorded in token_refresh_total.
const (
	RefreshSucceeded  = "succeeded"
	RefreshFailed     = "failed"
	RefreshNoToken    = "no_refresh_token"
	RefreshSuperseded = "superseded"
)

// Config configures Metrics.
type Config struct {
	Namespace string
	Subsystem string
	Registry  prometheus.Registerer
}

type Option func(*Config)

func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithRegistry registers the collectors on r instead of a private registry.
func WithRegistry(r prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = r
	}
}

// Metrics holds the session-layer collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	requests     *prometheus.CounterVec
	refreshes    *prometheus.CounterVec
	forcedLogout prometheus.Counter
}

// New registers the collectors. Without WithRegistry they go to a fresh
// registry, so several clients in one process do not collide.
func New(opts ...Option) *Metrics {
	cfg := Config{
		Namespace: "sociusfit",
		Subsystem: "client",
		Registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	factory := promauto.With(cfg.Registry)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "requests_total",
			Help:      "Outbound API requests by response status class.",
		}, []string{"status"}),
		refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "token_refresh_total",
			Help:      "Handled 401 responses by refresh outcome.",
		}, []string{"result"}),
		forcedLogout: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "forced_logout_total",
			Help:      "Sessions cleared after an unrecoverable authorization failure.",
		}),
	}
}

// ObserveRequest counts a response; status 0 means a transport error.
func (m *Metrics) ObserveRequest(status int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(statusClass(status)).Inc()
}

func (m *Metrics) ObserveRefresh(result string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveForcedLogout() {
	if m == nil {
		return
	}
	m.forcedLogout.Inc()
}

func statusClass(status int) string {
	switch {
	case status == 0:
		return "error"
	case status == 401:
		return "401"
	default:
		return strconv.Itoa(status/100) + "xx"
	}
}
