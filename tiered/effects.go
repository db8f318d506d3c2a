package tiered

type ErrFn func() error

// Cleanup runs before the next run of the effect that returned it, and on dispose.
type Cleanup func()

// EffectFn is an effect body that may hand back a cleanup.
type EffectFn func() (Cleanup, error)

type EffectRunner struct {
	baseSubscriber

	rs      *ReactiveSystem
	name    string
	fn      EffectFn
	tier    Tier
	flags   subscriberFlags
	cleanup Cleanup
	runs    int
}

func (e *EffectRunner) isSignalAware() {}

// Effect runs fn once, synchronously, and again whenever anything it read changes.
// The rerun happens at the effect's tier, immediate unless WithTier says otherwise.
func Effect(rs *ReactiveSystem, fn ErrFn, opts ...NodeOption) *EffectRunner {
	return EffectWithCleanup(rs, func() (Cleanup, error) {
		return nil, fn()
	}, opts...)
}

// EffectWithCleanup is Effect for bodies that return a cleanup.
func EffectWithCleanup(rs *ReactiveSystem, fn EffectFn, opts ...NodeOption) *EffectRunner {
	rs.assertOwner()
	o := buildNodeOptions(opts)
	if o.name == "" {
		o.name = rs.nextName("effect")
	}
	e := &EffectRunner{
		rs:   rs,
		name: o.name,
		fn:   fn,
		tier: o.tier,
	}
	rs.sched.register(e)
	e.run()
	return e
}

func (e *EffectRunner) Name() string { return e.name }

// Tier reports the tier the effect currently belongs to. The adaptive tuner may change it.
func (e *EffectRunner) Tier() Tier { return e.tier }

func (e *EffectRunner) Disposed() bool { return e.flags&fDisposed != 0 }

// Runs counts how many times the body has been invoked.
func (e *EffectRunner) Runs() int { return e.runs }

// Run reruns the effect now, outside of its tier.
func (e *EffectRunner) Run() error {
	e.rs.assertOwner()
	if e.flags&fDisposed != 0 {
		return ErrDisposed
	}
	e.rs.sched.forgetQueued(e)
	e.rs.batched.Remove(e)
	e.run()
	return nil
}

// run executes the body with e as the dependency context. The dirty flag
// stays set for the whole run, so writes the body makes to its own inputs do
// not schedule it again.
func (e *EffectRunner) run() {
	if e.flags&(fDisposed|fRunning) != 0 {
		return
	}
	rs := e.rs
	e.flags |= fRunning | fDirty
	defer func() {
		e.flags &^= fRunning | fDirty
	}()

	if c := e.cleanup; c != nil {
		e.cleanup = nil
		c()
	}
	unlinkSources(e)

	prev := rs.swapActive(e)
	cleanup, err := func() (Cleanup, error) {
		defer rs.endTracking(e, prev)
		e.runs++
		return e.fn()
	}()

	if e.flags&fDisposed != 0 {
		// disposed by its own body
		unlinkSources(e)
		if cleanup != nil {
			cleanup()
		}
	} else {
		e.cleanup = cleanup
	}
	if err != nil {
		rs.reportError(e, err)
	}
}

func (e *EffectRunner) markDirty() {
	if e.flags&(fDirty|fDisposed) != 0 {
		return
	}
	e.flags |= fDirty
	e.rs.enqueueEffect(e)
}

// Dispose stops the effect for good. It is safe to call more than once.
func (e *EffectRunner) Dispose() {
	if e.flags&fDisposed != 0 {
		return
	}
	rs := e.rs
	rs.assertOwner()
	e.flags |= fDisposed
	rs.batched.Remove(e)
	rs.sched.unregister(e)
	unlinkSources(e)
	if c := e.cleanup; c != nil {
		e.cleanup = nil
		c()
	}
}
