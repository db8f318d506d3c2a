package tiered

import (
	"fmt"
	"log/slog"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/petermattis/goid"
)

type OnErrorFunc func(from SignalAware, err error)

// ReactiveSystem owns one dependency graph and its scheduler. It is not safe
// for concurrent use; every call, and every host callback, must come from the
// same goroutine.
type ReactiveSystem struct {
	cfg    Config
	logger *slog.Logger

	activeSub  subscriber
	pauseStack []subscriber

	batchDepth int
	batched    *orderedSet[*EffectRunner]

	inFlight mapset.Set[computedNode]
	chain    []computedNode

	sched *scheduler
	owner int64
	ids   uint64
}

// CreateReactiveSystem builds an independent graph with its own scheduler.
func CreateReactiveSystem(opts ...Option) *ReactiveSystem {
	cfg := Config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.applyDefaults()

	rs := &ReactiveSystem{
		cfg:      cfg,
		logger:   cfg.Logger.With("component", "tiered"),
		batched:  newOrderedSet[*EffectRunner](),
		inFlight: mapset.NewThreadUnsafeSet[computedNode](),
	}
	if cfg.OwnerCheck {
		rs.owner = goid.Get()
	}
	rs.sched = newScheduler(rs)
	return rs
}

// Config returns the effective configuration, defaults applied.
func (rs *ReactiveSystem) Config() Config { return rs.cfg }

// Host returns the host driving the scheduler.
func (rs *ReactiveSystem) Host() Host { return rs.cfg.Host }

func (rs *ReactiveSystem) assertOwner() {
	if rs.owner == 0 {
		return
	}
	if id := goid.Get(); id != rs.owner {
		panic(fmt.Errorf("%w: created on goroutine %d, called from %d", ErrForeignGoroutine, rs.owner, id))
	}
}

func (rs *ReactiveSystem) nextName(kind string) string {
	rs.ids++
	return fmt.Sprintf("%s#%d", kind, rs.ids)
}

func (rs *ReactiveSystem) StartBatch() {
	rs.assertOwner()
	rs.batchDepth++
}

// EndBatch closes the innermost batch. Closing the outermost one hands every
// effect dirtied inside it to its tier, in the order they were dirtied.
func (rs *ReactiveSystem) EndBatch() {
	rs.batchDepth--
	if rs.batchDepth == 0 && rs.batched.Len() > 0 {
		rs.sched.admit(rs.batched.Drain())
	}
}

func (rs *ReactiveSystem) Batch(cb func()) {
	rs.StartBatch()
	defer rs.EndBatch()
	cb()
}

// InBatch reports whether a batch is open.
func (rs *ReactiveSystem) InBatch() bool { return rs.batchDepth > 0 }

func (rs *ReactiveSystem) PauseTracking() {
	rs.pauseStack = append(rs.pauseStack, rs.activeSub)
	rs.activeSub = nil
}

func (rs *ReactiveSystem) ResumeTracking() {
	lastIdx := len(rs.pauseStack) - 1
	rs.activeSub = rs.pauseStack[lastIdx]
	rs.pauseStack = rs.pauseStack[:lastIdx]
}

// Untrack runs fn without a dependency context: reads inside it create no edges.
func Untrack[T any](rs *ReactiveSystem, fn func() T) T {
	rs.PauseTracking()
	defer rs.ResumeTracking()
	return fn()
}

// swapActive installs sub as the dependency context and returns the previous one.
func (rs *ReactiveSystem) swapActive(sub subscriber) subscriber {
	prev := rs.activeSub
	rs.activeSub = sub
	return prev
}


// enterComputed registers c as in flight. Re-entering a node that is already
// in flight returns the chain that closes the cycle.
func (rs *ReactiveSystem) enterComputed(c computedNode) *CycleError {
	if rs.inFlight.Contains(c) {
		names := make([]string, 0, len(rs.chain)+1)
		start := 0
		for i, n := range rs.chain {
			if n == c {
				start = i
				break
			}
		}
		for _, n := range rs.chain[start:] {
			names = append(names, n.label())
		}
		names = append(names, c.label())
		return &CycleError{Chain: names}
	}
	rs.inFlight.Add(c)
	rs.chain = append(rs.chain, c)
	return nil
}

func (rs *ReactiveSystem) leaveComputed(c computedNode) {
	rs.inFlight.Remove(c)
	if n := len(rs.chain); n > 0 && rs.chain[n-1] == c {
		rs.chain = rs.chain[:n-1]
	}
}

// enqueueEffect routes a freshly dirtied effect to the open batch, or
// straight to its tier when no batch is open.
func (rs *ReactiveSystem) enqueueEffect(e *EffectRunner) {
	if rs.batchDepth > 0 {
		rs.batched.Add(e)
		return
	}
	rs.sched.admit([]*EffectRunner{e})
}

func (rs *ReactiveSystem) reportError(from SignalAware, err error) {
	if rs.cfg.OnError != nil {
		rs.cfg.OnError(from, err)
		return
	}
	name := ""
	if e, ok := from.(*EffectRunner); ok {
		name = e.name
	}
	rs.logger.Error("effect failed", "effect", name, "error", err)
}

// Stats is a snapshot of the scheduler's queues.
type Stats struct {
	Pending    [NumTiers]int
	Registered [NumTiers]int
	Batched    int

	// PassInFlight is set from the moment a pass is queued until it finishes,
	// including while it is parked waiting for a frame or idle callback.
	PassInFlight bool
	// ActivePasses counts started passes that have not finished yet.
	ActivePasses int
}

// Stats reports queue sizes per tier.
func (rs *ReactiveSystem) Stats() Stats {
	st := Stats{
		Batched:      rs.batched.Len(),
		PassInFlight: rs.sched.flushScheduled || rs.sched.active > 0,
		ActivePasses: rs.sched.active,
	}
	for t := range NumTiers {
		st.Pending[t] = rs.sched.queues[t].Len()
		st.Registered[t] = rs.sched.members[t].Len()
	}
	return st
}
