package tiered

import (
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// FlushStats describes one completed flush pass.
type FlushStats struct {
	Started  time.Time
	Duration time.Duration
	// Before is the size of each tier's queue when the pass started.
	Before [NumTiers]int
	// Ran counts effect runs per tier during the pass.
	Ran [NumTiers]int
	// Deferred counts frame and idle effects pushed to a later callback because
	// the budget or deadline ran out.
	Deferred int
	// After is the size of each tier's queue when the pass ended.
	After [NumTiers]int
}

// Migration describes a batch of effects moved between tiers by the tuner.
type Migration struct {
	From, To Tier
	Count    int
	// PassDuration is the duration of the pass that triggered the move.
	PassDuration time.Duration
}

// Observer receives scheduler events. Calls happen on the system's goroutine.
type Observer interface {
	FlushObserved(FlushStats)
	MigrationObserved(Migration)
}

type nopObserver struct{}

func (nopObserver) FlushObserved(FlushStats)    {}
func (nopObserver) MigrationObserved(Migration) {}

// Observers fans events out to several observers.
type Observers []Observer

func (os Observers) FlushObserved(s FlushStats) {
	for _, o := range os {
		o.FlushObserved(s)
	}
}

func (os Observers) MigrationObserved(m Migration) {
	for _, o := range os {
		o.MigrationObserved(m)
	}
}

func defaultTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer("github.com/delaneyj/tiersignals/tiered")
}
