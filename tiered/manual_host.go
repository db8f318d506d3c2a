package tiered

import (
	"sort"
	"time"
)

// ManualHost is a deterministic Host driven by explicit calls. Time only moves
// through Advance and Sleep. It is the default host of a ReactiveSystem.
type ManualHost struct {
	now        time.Time
	seq        uint64
	microtasks []func()
	timers     []*manualTimer
	frames     []*manualFrame
	idles      []*manualIdle
}

type manualTimer struct {
	when     time.Time
	seq      uint64
	fn       func()
	canceled bool
}

type manualFrame struct {
	fn       func(time.Time)
	canceled bool
}

type manualIdle struct {
	fn       func(IdleDeadline)
	timeout  time.Time
	canceled bool
}

// ManualIdleBudget is the idle period Drain hands to idle callbacks.
const ManualIdleBudget = 50 * time.Millisecond

func NewManualHost() *ManualHost {
	return &ManualHost{now: time.Unix(0, 0).UTC()}
}

func (h *ManualHost) Now() time.Time { return h.now }

func (h *ManualHost) QueueMicrotask(fn func()) {
	h.microtasks = append(h.microtasks, fn)
}

func (h *ManualHost) SetTimeout(d time.Duration, fn func()) func() {
	if d < 0 {
		d = 0
	}
	h.seq++
	t := &manualTimer{when: h.now.Add(d), seq: h.seq, fn: fn}
	h.timers = append(h.timers, t)
	return func() { t.canceled = true }
}

func (h *ManualHost) RequestAnimationFrame(fn func(time.Time)) func() {
	f := &manualFrame{fn: fn}
	h.frames = append(h.frames, f)
	return func() { f.canceled = true }
}

func (h *ManualHost) RequestIdleCallback(fn func(IdleDeadline), timeout time.Duration) func() {
	r := &manualIdle{fn: fn}
	if timeout > 0 {
		r.timeout = h.now.Add(timeout)
	}
	h.idles = append(h.idles, r)
	return func() { r.canceled = true }
}

// RunMicrotasks runs queued microtasks, including ones queued while running,
// until none are left. It returns how many ran.
func (h *ManualHost) RunMicrotasks() int {
	n := 0
	for len(h.microtasks) > 0 {
		fn := h.microtasks[0]
		h.microtasks = h.microtasks[1:]
		fn()
		n++
	}
	return n
}

// Frame delivers one animation frame to every pending frame callback, then
// runs microtasks. It returns how many callbacks ran.
func (h *ManualHost) Frame() int {
	frames := h.frames
	h.frames = nil
	n := 0
	now := h.now
	for _, f := range frames {
		if f.canceled {
			continue
		}
		f.canceled = true
		f.fn(now)
		n++
		h.RunMicrotasks()
	}
	return n
}

// Idle delivers an idle period of length budget to every pending idle
// callback, then runs microtasks.
func (h *ManualHost) Idle(budget time.Duration) int {
	idles := h.idles
	h.idles = nil
	n := 0
	for _, r := range idles {
		if r.canceled {
			continue
		}
		r.canceled = true
		r.fn(IdleDeadline{Deadline: h.now.Add(budget)})
		n++
		h.RunMicrotasks()
	}
	return n
}

// Sleep moves the clock without firing anything, as if the caller did d of work.
func (h *ManualHost) Sleep(d time.Duration) {
	h.now = h.now.Add(d)
}

// Advance moves the clock by d, firing due timers and timed-out idle callbacks
// in time order and running microtasks after each.
func (h *ManualHost) Advance(d time.Duration) {
	target := h.now.Add(d)
	for {
		t, idle := h.nextDue(target)
		switch {
		case t != nil:
			if t.when.After(h.now) {
				h.now = t.when
			}
			t.canceled = true
			t.fn()
		case idle != nil:
			if idle.timeout.After(h.now) {
				h.now = idle.timeout
			}
			idle.canceled = true
			idle.fn(IdleDeadline{Deadline: h.now, DidTimeout: true})
		default:
			if target.After(h.now) {
				h.now = target
			}
			h.RunMicrotasks()
			return
		}
		h.RunMicrotasks()
	}
}

// nextDue returns the earliest live timer or timed-out idle request due at or
// before target. Timers win ties.
func (h *ManualHost) nextDue(target time.Time) (*manualTimer, *manualIdle) {
	h.compact()
	sort.SliceStable(h.timers, func(i, j int) bool {
		if h.timers[i].when.Equal(h.timers[j].when) {
			return h.timers[i].seq < h.timers[j].seq
		}
		return h.timers[i].when.Before(h.timers[j].when)
	})
	var t *manualTimer
	if len(h.timers) > 0 && !h.timers[0].when.After(target) {
		t = h.timers[0]
	}
	var idle *manualIdle
	for _, r := range h.idles {
		if r.timeout.IsZero() || r.timeout.After(target) {
			continue
		}
		if idle == nil || r.timeout.Before(idle.timeout) {
			idle = r
		}
	}
	if t != nil && idle != nil && idle.timeout.Before(t.when) {
		return nil, idle
	}
	if t != nil {
		return t, nil
	}
	return nil, idle
}

func (h *ManualHost) compact() {
	timers := h.timers[:0]
	for _, t := range h.timers {
		if !t.canceled {
			timers = append(timers, t)
		}
	}
	h.timers = timers
	idles := h.idles[:0]
	for _, r := range h.idles {
		if !r.canceled {
			idles = append(idles, r)
		}
	}
	h.idles = idles
}

// Pending reports whether any microtask, timer, frame or idle callback is waiting.
func (h *ManualHost) Pending() bool {
	h.compact()
	if len(h.microtasks) > 0 || len(h.timers) > 0 || len(h.idles) > 0 {
		return true
	}
	for _, f := range h.frames {
		if !f.canceled {
			return true
		}
	}
	return false
}

// Drain runs microtasks, frames and idle periods until the host is quiet or
// maxRounds rounds have passed. Pending timers are fired by advancing the
// clock to them. It returns the number of rounds used.
func (h *ManualHost) Drain(maxRounds int) int {
	for round := 1; round <= maxRounds; round++ {
		h.RunMicrotasks()
		ran := h.Frame() + h.Idle(ManualIdleBudget)
		if ran > 0 {
			continue
		}
		h.compact()
		if len(h.timers) > 0 {
			next := h.timers[0].when
			for _, t := range h.timers[1:] {
				if t.when.Before(next) {
					next = t.when
				}
			}
			h.Advance(next.Sub(h.now))
			continue
		}
		if !h.Pending() {
			return round
		}
	}
	return maxRounds
}
