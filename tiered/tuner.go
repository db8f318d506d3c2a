package tiered

import "time"

// tuner moves effects between the microtask and idle tiers based on how long
// flush passes take. It acts at most once per cooldown.
type tuner struct {
	s        *scheduler
	cfg      TunerConfig
	tuned    bool
	lastTune time.Time
}

func (t *tuner) observe(st FlushStats) {
	now := t.s.host.Now()
	if t.tuned && now.Sub(t.lastTune) < t.cfg.Cooldown {
		return
	}
	t.tuned = true
	t.lastTune = now

	micro, idle := st.Before[TierMicrotask], st.Before[TierIdle]
	switch {
	case st.Duration > t.cfg.SlowPass && micro > t.cfg.DemoteBacklog:
		t.s.migrate(TierMicrotask, TierIdle, micro/t.cfg.DemoteDivisor, st.Duration)
	case st.Duration < t.cfg.FastPass && idle > t.cfg.PromoteBacklog:
		t.s.migrate(TierIdle, TierMicrotask, idle/t.cfg.PromoteDivisor, st.Duration)
	}
}

// migrate moves up to n effects from one tier to another, queued ones first,
// then registered ones, oldest first. Queued effects stay queued in their new tier.
func (s *scheduler) migrate(from, to Tier, n int, cause time.Duration) int {
	moved := 0
	move := func(e *EffectRunner) {
		queued := s.queues[from].Remove(e)
		s.members[from].Remove(e)
		e.tier = to
		s.members[to].Add(e)
		if queued {
			s.queues[to].Add(e)
		}
		moved++
	}

	for _, e := range s.queues[from].Items() {
		if moved >= n {
			break
		}
		move(e)
	}
	for _, e := range s.members[from].Items() {
		if moved >= n {
			break
		}
		move(e)
	}
	if moved == 0 {
		return 0
	}

	s.rs.logger.Debug("tier migration", "from", from, "to", to, "count", moved, "pass", cause)
	s.rs.cfg.Observer.MigrationObserved(Migration{From: from, To: to, Count: moved, PassDuration: cause})
	return moved
}
