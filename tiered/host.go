package tiered

import "time"

// Host supplies the suspension points of the scheduler. Every callback must
// run on the goroutine that owns the ReactiveSystem, and never while a graph
// operation is in progress. Callbacks must not run synchronously from inside
// the call that registers them.
type Host interface {
	// QueueMicrotask runs fn once the current task has returned.
	QueueMicrotask(fn func())
	// SetTimeout runs fn after d. The returned cancel is idempotent.
	SetTimeout(d time.Duration, fn func()) (cancel func())
	Now() time.Time
}

// FrameHost is a Host that delivers animation frames.
type FrameHost interface {
	Host
	RequestAnimationFrame(fn func(now time.Time)) (cancel func())
}

// IdleHost is a Host that reports idle periods.
type IdleHost interface {
	Host
	// RequestIdleCallback runs fn in the next idle period, or once timeout has
	// elapsed, whichever comes first.
	RequestIdleCallback(fn func(IdleDeadline), timeout time.Duration) (cancel func())
}

// IdleDeadline bounds the work done in one idle callback.
type IdleDeadline struct {
	Deadline   time.Time
	DidTimeout bool
}

// TimeRemaining is the idle time left at now.
func (d IdleDeadline) TimeRemaining(now time.Time) time.Duration {
	if r := d.Deadline.Sub(now); r > 0 {
		return r
	}
	return 0
}

// once wraps fn so that only the first of several racing callbacks runs it,
// and cancels the losers.
type once struct {
	fired   bool
	cancels []func()
}

func (o *once) add(cancel func()) {
	if cancel != nil {
		o.cancels = append(o.cancels, cancel)
	}
}

func (o *once) fire(fn func()) {
	if o.fired {
		return
	}
	o.fired = true
	for _, c := range o.cancels {
		c()
	}
	o.cancels = nil
	fn()
}

// awaitFrame calls fn at the next frame. A timer fallback fires it if the
// host never delivers one; hosts without frames get a fixed interval timer.
func awaitFrame(h Host, fallback time.Duration, fn func(now time.Time)) {
	o := &once{}
	if fh, ok := h.(FrameHost); ok {
		o.add(fh.RequestAnimationFrame(func(now time.Time) {
			o.fire(func() { fn(now) })
		}))
		o.add(h.SetTimeout(fallback, func() {
			o.fire(func() { fn(h.Now()) })
		}))
		return
	}
	o.add(h.SetTimeout(polyfillFrameInterval, func() {
		o.fire(func() { fn(h.Now()) })
	}))
}

// awaitIdle calls fn in the next idle period, or with DidTimeout set once
// timeout has elapsed.
func awaitIdle(h Host, timeout time.Duration, fn func(IdleDeadline)) {
	o := &once{}
	if ih, ok := h.(IdleHost); ok {
		o.add(ih.RequestIdleCallback(func(d IdleDeadline) {
			o.fire(func() { fn(d) })
		}, timeout))
		o.add(h.SetTimeout(timeout, func() {
			o.fire(func() { fn(IdleDeadline{Deadline: h.Now(), DidTimeout: true}) })
		}))
		return
	}
	o.add(h.SetTimeout(polyfillIdleDelay, func() {
		now := h.Now()
		o.fire(func() { fn(IdleDeadline{Deadline: now.Add(polyfillIdleBudget)}) })
	}))
}
