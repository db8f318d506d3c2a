package tiered

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// scheduler keeps one pending queue per tier and drains them in tier order.
// At most one pass start is queued at a time. A pass only suspends between
// tiers, while it waits for a frame or an idle period; it releases the start
// guard when it begins, so work dirtied while it waits gets a pass of its own
// at the next microtask boundary.
type scheduler struct {
	rs   *ReactiveSystem
	host Host

	// queues hold dirty effects waiting for their tier.
	queues [NumTiers]*orderedSet[*EffectRunner]
	// members hold every live effect of a tier, queued or not.
	members [NumTiers]*orderedSet[*EffectRunner]

	// flushScheduled is set while a startPass microtask is queued.
	flushScheduled bool
	draining       bool
	passes         uint64
	// active counts passes that have started and not finished, parked ones included.
	active int

	tuner *tuner
}

type flushPass struct {
	stats FlushStats
	span  trace.Span
}

func newScheduler(rs *ReactiveSystem) *scheduler {
	s := &scheduler{rs: rs, host: rs.cfg.Host}
	for t := range NumTiers {
		s.queues[t] = newOrderedSet[*EffectRunner]()
		s.members[t] = newOrderedSet[*EffectRunner]()
	}
	if rs.cfg.Adaptive {
		s.tuner = &tuner{s: s, cfg: rs.cfg.Tuner}
	}
	return s
}

func (s *scheduler) register(e *EffectRunner) {
	s.members[e.tier].Add(e)
}

func (s *scheduler) unregister(e *EffectRunner) {
	s.members[e.tier].Remove(e)
	s.queues[e.tier].Remove(e)
}

func (s *scheduler) forgetQueued(e *EffectRunner) {
	s.queues[e.tier].Remove(e)
}

func (s *scheduler) pending() bool {
	for _, q := range s.queues {
		if q.Len() > 0 {
			return true
		}
	}
	return false
}

// admit hands dirty effects to their tiers in order. Immediate ones run
// before admit returns; the rest wait for the next flush pass.
func (s *scheduler) admit(effects []*EffectRunner) {
	later := false
	for _, e := range effects {
		if e.flags&fDisposed != 0 {
			continue
		}
		s.queues[e.tier].Add(e)
		if e.tier != TierImmediate {
			later = true
		}
	}
	if later {
		s.scheduleFlush()
	}
	s.drainImmediate()
}

// drainImmediate runs the immediate queue until it stays empty. Nested calls
// return at once and leave the work to the outermost loop.
func (s *scheduler) drainImmediate() {
	q := s.queues[TierImmediate]
	if s.draining || q.Len() == 0 {
		return
	}
	s.draining = true
	defer func() {
		s.draining = false
		if q.Len() > 0 {
			// a run panicked; the rest goes to the next pass
			s.scheduleFlush()
		}
	}()
	for q.Len() > 0 {
		s.runSnapshot(q.Drain(), nil)
	}
}

// runSnapshot runs a drained queue. Effects that were disposed or already
// rerun since they were drained are skipped. Once stop reports true, after at
// least one run, the remainder goes back to its queue. If a run panics the
// remainder goes back as well.
func (s *scheduler) runSnapshot(batch []*EffectRunner, stop func() bool) (ran, deferred int) {
	i := 0
	completed := false
	defer func() {
		if !completed {
			s.requeue(batch[i+1:])
		}
	}()

	for ; i < len(batch); i++ {
		if ran > 0 && stop != nil && stop() {
			deferred = s.requeue(batch[i:])
			break
		}
		e := batch[i]
		if e.flags&(fDirty|fDisposed) != fDirty {
			continue
		}
		e.run()
		ran++
	}
	completed = true
	return ran, deferred
}

func (s *scheduler) requeue(effects []*EffectRunner) int {
	n := 0
	for _, e := range effects {
		if e.flags&(fDirty|fDisposed) != fDirty {
			continue
		}
		s.queues[e.tier].Add(e)
		n++
	}
	return n
}

func (s *scheduler) scheduleFlush() {
	if s.flushScheduled {
		return
	}
	s.flushScheduled = true
	s.host.QueueMicrotask(s.startPass)
}

func (s *scheduler) startPass() {
	s.flushScheduled = false
	s.active++
	p := &flushPass{}
	p.stats.Started = s.host.Now()
	for t := range NumTiers {
		p.stats.Before[t] = s.queues[t].Len()
	}
	_, p.span = s.rs.cfg.Tracer.Start(context.Background(), "tiered.flush",
		trace.WithAttributes(attribute.IntSlice("tiered.before", p.stats.Before[:])),
	)
	s.step(p, TierImmediate, nil)
}

// step runs pre, then drains tiers from `from` down. Frame and idle tiers end
// the step and resume it from their callback with the next tier.
func (s *scheduler) step(p *flushPass, from Tier, pre func()) {
	done := false
	defer func() {
		if !done {
			s.abort(p)
		}
	}()

	if pre != nil {
		pre()
	}

	for t := from; int(t) < NumTiers; t++ {
		q := s.queues[t]
		if q.Len() == 0 {
			continue
		}
		batch := q.Drain()
		next := t + 1

		switch t {
		case TierFrame:
			awaitFrame(s.host, s.rs.cfg.FrameFallback, func(time.Time) {
				s.step(p, next, func() { s.runFrame(p, batch) })
			})
			done = true
			return
		case TierIdle:
			awaitIdle(s.host, s.rs.cfg.IdleTimeout, func(d IdleDeadline) {
				s.step(p, next, func() { s.runIdle(p, batch, d) })
			})
			done = true
			return
		default:
			ran, _ := s.runSnapshot(batch, nil)
			p.stats.Ran[t] += ran
		}
	}

	done = true
	s.finish(p)
}

func (s *scheduler) runFrame(p *flushPass, batch []*EffectRunner) {
	end := s.host.Now().Add(s.rs.cfg.FrameBudget)
	ran, deferred := s.runSnapshot(batch, func() bool {
		return !s.host.Now().Before(end)
	})
	p.stats.Ran[TierFrame] += ran
	p.stats.Deferred += deferred
}

func (s *scheduler) runIdle(p *flushPass, batch []*EffectRunner, d IdleDeadline) {
	ran, deferred := s.runSnapshot(batch, func() bool {
		return !d.DidTimeout && d.TimeRemaining(s.host.Now()) <= 0
	})
	p.stats.Ran[TierIdle] += ran
	p.stats.Deferred += deferred
}

func (s *scheduler) finish(p *flushPass) {
	s.active--
	s.passes++

	st := &p.stats
	st.Duration = s.host.Now().Sub(st.Started)
	for t := range NumTiers {
		st.After[t] = s.queues[t].Len()
	}

	p.span.SetAttributes(
		attribute.IntSlice("tiered.ran", st.Ran[:]),
		attribute.IntSlice("tiered.after", st.After[:]),
		attribute.Int("tiered.deferred", st.Deferred),
		attribute.Int64("tiered.duration_us", st.Duration.Microseconds()),
	)
	p.span.End()

	s.rs.logger.Debug("flush pass",
		"pass", s.passes,
		"duration", st.Duration,
		"ran", st.Ran,
		"deferred", st.Deferred,
	)
	s.rs.cfg.Observer.FlushObserved(*st)

	if s.tuner != nil {
		s.tuner.observe(*st)
	}
	if s.pending() {
		s.scheduleFlush()
	}
}

func (s *scheduler) abort(p *flushPass) {
	s.active--
	p.span.SetStatus(codes.Error, "effect panicked")
	p.span.End()
	s.rs.logger.Warn("flush pass interrupted by a panicking effect")
	if s.pending() {
		s.scheduleFlush()
	}
}
