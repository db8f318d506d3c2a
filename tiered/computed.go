package tiered

import "errors"

type ReadonlySignal[T any] struct {
	baseDependency
	baseSubscriber

	rs     *ReactiveSystem
	name   string
	getter func(oldValue T) T
	value  T
	dirty  bool
	runs   int
}

func (c *ReadonlySignal[T]) isSignalAware() {}

// Computed creates a lazily evaluated derivation. The getter runs on the first
// read and again on the first read after any of its inputs changed; it is
// handed the previous value.
func Computed[T any](rs *ReactiveSystem, getter func(oldValue T) T, opts ...NodeOption) *ReadonlySignal[T] {
	o := buildNodeOptions(opts)
	if o.name == "" {
		o.name = rs.nextName("computed")
	}
	return &ReadonlySignal[T]{
		rs:     rs,
		name:   o.name,
		getter: getter,
		dirty:  true,
	}
}

func (c *ReadonlySignal[T]) Name() string  { return c.name }
func (c *ReadonlySignal[T]) label() string { return c.name }

// Value returns the memoized value, recomputing it first when dirty.
// It panics with a *CycleError if the recompute re-enters a computed already in flight.
func (c *ReadonlySignal[T]) Value() T {
	c.rs.assertOwner()
	if c.dirty {
		c.recompute()
	}
	c.rs.track(c)
	return c.value
}

// Read is Value that returns a cycle as an error instead of panicking.
// Panics unrelated to cycles are not recovered.
func (c *ReadonlySignal[T]) Read() (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			if rerr, ok := r.(error); ok {
				var cycle *CycleError
				if errors.As(rerr, &cycle) {
					err = cycle
					return
				}
			}
			panic(r)
		}
	}()
	return c.Value(), nil
}

// Peek returns the value without linking the active context. It still
// recomputes a dirty node.
func (c *ReadonlySignal[T]) Peek() T {
	c.rs.assertOwner()
	if c.dirty {
		c.recompute()
	}
	return c.value
}

// Dirty reports whether the next read will recompute.
func (c *ReadonlySignal[T]) Dirty() bool { return c.dirty }

// Runs counts completed recomputes.
func (c *ReadonlySignal[T]) Runs() int { return c.runs }

// Dependents reports how many nodes currently read this computed.
func (c *ReadonlySignal[T]) Dependents() int {
	return countTargets(c)
}

func (c *ReadonlySignal[T]) recompute() {
	rs := c.rs
	if cycle := rs.enterComputed(c); cycle != nil {
		panic(cycle)
	}

	unlinkSources(c)
	prev := rs.swapActive(c)
	ok := false
	defer func() {
		rs.endTracking(c, prev)
		rs.leaveComputed(c)
		if !ok {
			// leave the node dirty with no inputs so the next read retries
			unlinkSources(c)
			c.dirty = true
		}
	}()

	c.value = c.getter(c.value)
	c.dirty = false
	c.runs++
	ok = true
}

func (c *ReadonlySignal[T]) markDirty() {
	if c.dirty {
		return
	}
	c.dirty = true
	c.rs.notify(c)
}
