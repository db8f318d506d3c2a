// Package eventloop is a single-goroutine event loop that hosts a tiered
// reactive system in a long-running program.
//
// One goroutine calls Run and owns everything the loop executes. Other
// goroutines hand work to it with Submit. Each tick runs, in order:
// submitted tasks, due timers, animation frames (at most once per frame
// interval) and, when nothing else is runnable, idle callbacks. Microtasks
// are drained after every single callback.
package eventloop

import (
	"container/heap"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/delaneyj/tiersignals/tiered"
)

var (
	// ErrLoopAlreadyRunning is returned when Run is called on a loop that is already running.
	ErrLoopAlreadyRunning = errors.New("eventloop: loop is already running")
	// ErrLoopTerminated is returned when work is submitted to a loop that has stopped.
	ErrLoopTerminated = errors.New("eventloop: loop has been terminated")
)

const (
	stateAwake int32 = iota
	stateRunning
	stateTerminated
)

const (
	DefaultFrameInterval = 16 * time.Millisecond
	DefaultIdleBudget    = 50 * time.Millisecond
)

var (
	_ tiered.FrameHost = (*Loop)(nil)
	_ tiered.IdleHost  = (*Loop)(nil)
)

type Loop struct {
	logger        *slog.Logger
	frameInterval time.Duration
	idleBudget    time.Duration

	state atomic.Int32
	done  chan struct{}
	wake  chan struct{}

	ingressMu sync.Mutex
	ingress   []func()

	// owned by the loop goroutine
	microtasks []func()
	timers     timerHeap
	seq        uint64
	frames     []*frameRequest
	idles      []*idleRequest
	lastFrame  time.Time
	ticks      uint64
}

type Option func(*Loop)

// WithFrameInterval sets how often frame callbacks are delivered.
func WithFrameInterval(d time.Duration) Option {
	return func(l *Loop) {
		l.frameInterval = d
	}
}

// WithIdleBudget sets the longest idle period handed to idle callbacks.
func WithIdleBudget(d time.Duration) Option {
	return func(l *Loop) {
		l.idleBudget = d
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

func New(opts ...Option) *Loop {
	l := &Loop{
		logger:        slog.Default(),
		frameInterval: DefaultFrameInterval,
		idleBudget:    DefaultIdleBudget,
		done:          make(chan struct{}),
		wake:          make(chan struct{}, 1),
		microtasks:    make([]func(), 0, 64),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "eventloop")
	l.state.Store(stateAwake)
	return l
}

// Run drives the loop on the calling goroutine until ctx is done.
// A loop runs once; it cannot be restarted after Run returns.
func (l *Loop) Run(ctx context.Context) error {
	if !l.state.CompareAndSwap(stateAwake, stateRunning) {
		if l.state.Load() == stateTerminated {
			return ErrLoopTerminated
		}
		return ErrLoopAlreadyRunning
	}
	defer func() {
		l.state.Store(stateTerminated)
		close(l.done)
	}()

	l.logger.Debug("loop started", "frame_interval", l.frameInterval, "idle_budget", l.idleBudget)
	for ctx.Err() == nil {
		l.tick()
		l.wait(ctx)
	}
	l.logger.Debug("loop stopped", "ticks", l.ticks)
	return nil
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Submit queues fn to run on the loop goroutine. It is safe for concurrent use.
func (l *Loop) Submit(fn func()) error {
	if l.state.Load() == stateTerminated {
		return ErrLoopTerminated
	}
	l.ingressMu.Lock()
	l.ingress = append(l.ingress, fn)
	l.ingressMu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

func (l *Loop) tick() {
	l.ticks++
	l.processIngress()
	l.runTimers()
	l.runFrames()
	if !l.busy() {
		l.runIdle()
	}
}

func (l *Loop) processIngress() {
	l.ingressMu.Lock()
	tasks := l.ingress
	l.ingress = nil
	l.ingressMu.Unlock()

	for _, fn := range tasks {
		l.safeExecute(fn)
		l.drainMicrotasks()
	}
}

func (l *Loop) drainMicrotasks() {
	for len(l.microtasks) > 0 {
		fn := l.microtasks[0]
		l.microtasks[0] = nil
		l.microtasks = l.microtasks[1:]
		l.safeExecute(fn)
	}
}

func (l *Loop) runTimers() {
	now := time.Now()
	for len(l.timers) > 0 && !l.timers[0].when.After(now) {
		t := heap.Pop(&l.timers).(*timer)
		if t.canceled {
			continue
		}
		t.canceled = true
		l.safeExecute(t.fn)
		l.drainMicrotasks()
	}
}

func (l *Loop) runFrames() {
	if len(l.frames) == 0 {
		return
	}
	now := time.Now()
	if !l.lastFrame.IsZero() && now.Sub(l.lastFrame) < l.frameInterval {
		return
	}
	l.lastFrame = now

	frames := l.frames
	l.frames = nil
	for _, f := range frames {
		if f.canceled {
			continue
		}
		f.canceled = true
		l.safeExecute(func() { f.fn(now) })
		l.drainMicrotasks()
	}
}

// busy reports whether submitted work or a due timer is waiting.
func (l *Loop) busy() bool {
	l.ingressMu.Lock()
	pending := len(l.ingress) > 0
	l.ingressMu.Unlock()
	if pending {
		return true
	}
	return len(l.timers) > 0 && !l.timers[0].when.After(time.Now())
}

func (l *Loop) runIdle() {
	if len(l.idles) == 0 {
		return
	}
	now := time.Now()
	deadline := now.Add(l.idleBudget)
	if len(l.frames) > 0 && !l.lastFrame.IsZero() {
		if next := l.lastFrame.Add(l.frameInterval); next.Before(deadline) {
			deadline = next
		}
	}

	idles := l.idles
	l.idles = nil
	for i, r := range idles {
		if r.fired {
			continue
		}
		if !time.Now().Before(deadline) {
			// out of idle time; the rest waits for the next idle period
			l.idles = append(idles[i:], l.idles...)
			return
		}
		r.fired = true
		if r.cancelTimer != nil {
			r.cancelTimer()
		}
		l.safeExecute(func() { r.fn(tiered.IdleDeadline{Deadline: deadline}) })
		l.drainMicrotasks()
	}
}

// wait blocks until there is something to do: submitted work, the next
// timer, the next frame, or the next idle period.
func (l *Loop) wait(ctx context.Context) {
	if len(l.microtasks) > 0 {
		return
	}
	l.ingressMu.Lock()
	pending := len(l.ingress) > 0
	l.ingressMu.Unlock()
	if pending {
		return
	}

	now := time.Now()
	d := time.Duration(-1)
	consider := func(c time.Duration) {
		if c < 0 {
			c = 0
		}
		if d < 0 || c < d {
			d = c
		}
	}
	for len(l.timers) > 0 && l.timers[0].canceled {
		heap.Pop(&l.timers)
	}
	if len(l.timers) > 0 {
		consider(l.timers[0].when.Sub(now))
	}
	if len(l.frames) > 0 {
		consider(l.lastFrame.Add(l.frameInterval).Sub(now))
	}
	if len(l.idles) > 0 {
		consider(l.frameInterval)
	}

	if d == 0 {
		return
	}
	if d < 0 {
		select {
		case <-ctx.Done():
		case <-l.wake:
		}
		return
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-l.wake:
	case <-t.C:
	}
}

// safeExecute runs fn, logging instead of propagating a panic so that one
// failing callback does not take the loop down.
func (l *Loop) safeExecute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("callback panicked", "panic", r, "tick", l.ticks)
		}
	}()
	fn()
}

// The methods below implement tiered.Host. They must only be called from
// the loop goroutine, which is where a reactive system hosted by the loop runs.

func (l *Loop) Now() time.Time { return time.Now() }

func (l *Loop) QueueMicrotask(fn func()) {
	l.microtasks = append(l.microtasks, fn)
}

func (l *Loop) SetTimeout(d time.Duration, fn func()) func() {
	if d < 0 {
		d = 0
	}
	l.seq++
	t := &timer{when: time.Now().Add(d), seq: l.seq, fn: fn}
	heap.Push(&l.timers, t)
	return func() { t.canceled = true }
}

func (l *Loop) RequestAnimationFrame(fn func(now time.Time)) func() {
	f := &frameRequest{fn: fn}
	l.frames = append(l.frames, f)
	return func() { f.canceled = true }
}

func (l *Loop) RequestIdleCallback(fn func(tiered.IdleDeadline), timeout time.Duration) func() {
	r := &idleRequest{fn: fn}
	if timeout > 0 {
		r.cancelTimer = l.SetTimeout(timeout, func() {
			if r.fired {
				return
			}
			r.fired = true
			fn(tiered.IdleDeadline{Deadline: time.Now(), DidTimeout: true})
		})
	}
	l.idles = append(l.idles, r)
	return func() {
		r.fired = true
		if r.cancelTimer != nil {
			r.cancelTimer()
		}
	}
}

type frameRequest struct {
	fn       func(time.Time)
	canceled bool
}

type idleRequest struct {
	fn          func(tiered.IdleDeadline)
	cancelTimer func()
	fired       bool
}

type timer struct {
	when     time.Time
	seq      uint64
	fn       func()
	canceled bool
}

// timerHeap is a min-heap of timers ordered by due time, then creation order.
type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].when.Equal(h[j].when) {
		return h[i].seq < h[j].seq
	}
	return h[i].when.Before(h[j].when)
}
func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x any) {
	*h = append(*h, x.(*timer))
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return x
}
