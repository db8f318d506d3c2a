package tiered

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Config tunes a ReactiveSystem. Zero durations and thresholds fall back to DefaultConfig.
type Config struct {
	// FrameBudget is how long a single frame may spend running frame-tier effects.
	FrameBudget time.Duration
	// FrameFallback fires the frame tier if the host never delivers a frame.
	FrameFallback time.Duration
	// IdleTimeout bounds how long idle-tier effects wait for an idle callback.
	IdleTimeout time.Duration

	Adaptive bool
	Tuner    TunerConfig

	Host       Host
	Logger     *slog.Logger
	Observer   Observer
	Tracer     trace.Tracer
	OnError    OnErrorFunc
	OwnerCheck bool
}

// TunerConfig holds the thresholds of the adaptive tuner.
type TunerConfig struct {
	Cooldown time.Duration

	// A pass slower than SlowPass with more than DemoteBacklog microtask effects
	// queued moves 1/DemoteDivisor of them to the idle tier.
	SlowPass      time.Duration
	DemoteBacklog int
	DemoteDivisor int

	// A pass faster than FastPass with more than PromoteBacklog idle effects
	// queued moves 1/PromoteDivisor of them back to the microtask tier.
	FastPass       time.Duration
	PromoteBacklog int
	PromoteDivisor int
}

const (
	polyfillFrameInterval = 16 * time.Millisecond
	polyfillIdleDelay     = 1 * time.Millisecond
	polyfillIdleBudget    = 50 * time.Millisecond
)

// DefaultConfig returns the stock scheduler configuration.
func DefaultConfig() Config {
	return Config{
		FrameBudget:   16600 * time.Microsecond,
		FrameFallback: 100 * time.Millisecond,
		IdleTimeout:   50 * time.Millisecond,
		Tuner:         DefaultTunerConfig(),
	}
}

// DefaultTunerConfig returns the stock tuner thresholds.
func DefaultTunerConfig() TunerConfig {
	return TunerConfig{
		Cooldown:       2 * time.Second,
		SlowPass:       8 * time.Millisecond,
		DemoteBacklog:  20,
		DemoteDivisor:  3,
		FastPass:       2 * time.Millisecond,
		PromoteBacklog: 5,
		PromoteDivisor: 4,
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.FrameBudget <= 0 {
		c.FrameBudget = def.FrameBudget
	}
	if c.FrameFallback <= 0 {
		c.FrameFallback = def.FrameFallback
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = def.IdleTimeout
	}
	t, dt := &c.Tuner, def.Tuner
	if t.Cooldown <= 0 {
		t.Cooldown = dt.Cooldown
	}
	if t.SlowPass <= 0 {
		t.SlowPass = dt.SlowPass
	}
	if t.DemoteBacklog <= 0 {
		t.DemoteBacklog = dt.DemoteBacklog
	}
	if t.DemoteDivisor <= 0 {
		t.DemoteDivisor = dt.DemoteDivisor
	}
	if t.FastPass <= 0 {
		t.FastPass = dt.FastPass
	}
	if t.PromoteBacklog <= 0 {
		t.PromoteBacklog = dt.PromoteBacklog
	}
	if t.PromoteDivisor <= 0 {
		t.PromoteDivisor = dt.PromoteDivisor
	}
	if c.Host == nil {
		c.Host = NewManualHost()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Observer == nil {
		c.Observer = nopObserver{}
	}
	if c.Tracer == nil {
		c.Tracer = defaultTracer()
	}
}

// Option configures a ReactiveSystem.
type Option func(*Config)

// WithConfig replaces the timing and tuner settings. Hooks set by other options are kept.
func WithConfig(cfg Config) Option {
	return func(c *Config) {
		c.FrameBudget = cfg.FrameBudget
		c.FrameFallback = cfg.FrameFallback
		c.IdleTimeout = cfg.IdleTimeout
		c.Adaptive = cfg.Adaptive
		c.Tuner = cfg.Tuner
	}
}

// WithHost sets the host that supplies microtasks, timers, frames and idle callbacks.
func WithHost(h Host) Option {
	return func(c *Config) {
		c.Host = h
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithObserver registers an observer for flush passes and tier migrations.
func WithObserver(o Observer) Option {
	return func(c *Config) {
		c.Observer = o
	}
}

// WithTracer sets the tracer used to record one span per flush pass.
func WithTracer(t trace.Tracer) Option {
	return func(c *Config) {
		c.Tracer = t
	}
}

// WithOnError sets the handler for errors returned by effect bodies.
func WithOnError(fn OnErrorFunc) Option {
	return func(c *Config) {
		c.OnError = fn
	}
}

// WithOwnerCheck makes every graph operation panic when called from a goroutine
// other than the one that created the system.
func WithOwnerCheck() Option {
	return func(c *Config) {
		c.OwnerCheck = true
	}
}

// WithAdaptiveTuning enables tier migration based on flush timings.
func WithAdaptiveTuning(tc TunerConfig) Option {
	return func(c *Config) {
		c.Adaptive = true
		c.Tuner = tc
	}
}

// WithFrameBudget sets the per-frame budget for frame-tier effects.
func WithFrameBudget(d time.Duration) Option {
	return func(c *Config) {
		c.FrameBudget = d
	}
}

// WithIdleTimeout sets the idle-tier timeout.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.IdleTimeout = d
	}
}

type nodeOptions struct {
	name    string
	tier    Tier
	onWrite func(SignalAware)
}

// NodeOption configures a single signal, computed or effect.
type NodeOption func(*nodeOptions)

// WithName labels a node. Names appear in cycle errors, logs and spans.
func WithName(name string) NodeOption {
	return func(o *nodeOptions) {
		o.name = name
	}
}

// WithTier assigns an effect to a tier. It has no effect on signals and computeds.
func WithTier(t Tier) NodeOption {
	return func(o *nodeOptions) {
		o.tier = t
	}
}

// WithOnWrite registers fn on a signal. It runs after every write that
// changes the value, before dependents are notified, and is handed the
// signal itself. It has no effect on computeds and effects.
func WithOnWrite(fn func(SignalAware)) NodeOption {
	return func(o *nodeOptions) {
		o.onWrite = fn
	}
}

func buildNodeOptions(opts []NodeOption) nodeOptions {
	o := nodeOptions{tier: TierImmediate}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
