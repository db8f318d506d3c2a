// Package tierprom exports scheduler activity of a tiered reactive system as
// Prometheus metrics. A Collector is a tiered.Observer:
//
//	c := tierprom.New(tierprom.WithRegistry(reg))
//	rs := tiered.CreateReactiveSystem(tiered.WithObserver(c))
package tierprom

import (
	"github.com/delaneyj/tiersignals/tiered"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the collector.
type Config struct {
	// Namespace is the metrics namespace (default: "tiersignals").
	Namespace string

	// Subsystem is the metrics subsystem (default: "scheduler").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for flush pass duration, in seconds.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "tiersignals",
		Subsystem: "scheduler",
		// flush passes range from microseconds to a few frames
		Buckets:  prometheus.ExponentialBuckets(0.0001, 2, 12),
		Registry: prometheus.DefaultRegisterer,
	}
}

// Collector records flush passes and tier migrations.
type Collector struct {
	flushes       prometheus.Counter
	flushDuration prometheus.Histogram
	effectRuns    *prometheus.CounterVec
	deferred      prometheus.Counter
	backlog       *prometheus.GaugeVec
	migrations    *prometheus.CounterVec
}

var _ tiered.Observer = (*Collector)(nil)

// New builds a collector and registers its metrics.
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Collector{
		flushes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_passes_total",
			Help:        "Total number of completed flush passes",
			ConstLabels: config.ConstLabels,
		}),

		flushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_duration_seconds",
			Help:        "Flush pass duration in seconds, including waits for frames and idle periods",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		effectRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effect_runs_total",
			Help:        "Total number of effect runs made by flush passes",
			ConstLabels: config.ConstLabels,
		}, []string{"tier"}),

		deferred: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effects_deferred_total",
			Help:        "Total number of frame and idle effects pushed to a later callback",
			ConstLabels: config.ConstLabels,
		}),

		backlog: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "backlog",
			Help:        "Effects left queued per tier at the end of the last flush pass",
			ConstLabels: config.ConstLabels,
		}, []string{"tier"}),

		migrations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "migrated_effects_total",
			Help:        "Total number of effects moved between tiers by the adaptive tuner",
			ConstLabels: config.ConstLabels,
		}, []string{"from", "to"}),
	}
}

func (c *Collector) FlushObserved(s tiered.FlushStats) {
	c.flushes.Inc()
	c.flushDuration.Observe(s.Duration.Seconds())
	c.deferred.Add(float64(s.Deferred))
	for i := range tiered.NumTiers {
		tier := tiered.Tier(i).String()
		if s.Ran[i] > 0 {
			c.effectRuns.WithLabelValues(tier).Add(float64(s.Ran[i]))
		}
		c.backlog.WithLabelValues(tier).Set(float64(s.After[i]))
	}
}

func (c *Collector) MigrationObserved(m tiered.Migration) {
	c.migrations.WithLabelValues(m.From.String(), m.To.String()).Add(float64(m.Count))
}
