package tiered_test

import (
	"errors"
	"testing"

	"github.com/delaneyj/tiersignals/tiered"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// should rerun a derived effect once per distinct write
func TestEffectRerunsOncePerChange(t *testing.T) {
	rs, _ := newSystem(t)
	x := tiered.Signal(rs, 1)
	y := tiered.Computed(rs, func(oldValue int) int {
		return x.Value() * 2
	})

	var log []int
	tiered.Effect(rs, func() error {
		log = append(log, y.Value())
		return nil
	})
	assert.Equal(t, []int{2}, log)

	x.SetValue(5)
	assert.Equal(t, []int{2, 10}, log)

	x.SetValue(5)
	assert.Equal(t, []int{2, 10}, log)
}

// should clear subscriptions when disposed
func TestEffectClearSubsWhenDisposed(t *testing.T) {
	bRunTimes := 0

	rs, _ := newSystem(t)
	a := tiered.Signal(rs, 1)
	b := tiered.Computed(rs, func(oldValue int) int {
		bRunTimes++
		return a.Value() * 2
	})
	e := tiered.Effect(rs, func() error {
		b.Value()
		return nil
	})

	assert.Equal(t, 1, bRunTimes)
	a.SetValue(2)
	assert.Equal(t, 2, bRunTimes)

	e.Dispose()
	assert.True(t, e.Disposed())
	assert.Equal(t, 0, b.Dependents())

	a.SetValue(3)
	assert.Equal(t, 2, bRunTimes)
	assert.Equal(t, 2, e.Runs())
}

// should drop a queued run when disposed before its tier fires
func TestEffectDisposedWhileQueued(t *testing.T) {
	rs, host := newSystem(t)
	a := tiered.Signal(rs, 1)
	runs := 0
	e := tiered.Effect(rs, func() error {
		a.Value()
		runs++
		return nil
	}, tiered.WithTier(tiered.TierMicrotask))
	assert.Equal(t, 1, runs)

	a.SetValue(2)
	assert.Equal(t, 1, rs.Stats().Pending[tiered.TierMicrotask])

	e.Dispose()
	e.Dispose()
	assert.Equal(t, 0, rs.Stats().Pending[tiered.TierMicrotask])

	host.Drain(10)
	assert.Equal(t, 1, runs)
}

// should run the cleanup before each rerun and on dispose
func TestEffectCleanup(t *testing.T) {
	rs, _ := newSystem(t)
	a := tiered.Signal(rs, 1)

	var log []string
	e := tiered.EffectWithCleanup(rs, func() (tiered.Cleanup, error) {
		v := a.Value()
		log = append(log, "run")
		return func() {
			log = append(log, "cleanup")
			_ = v
		}, nil
	})
	a.SetValue(2)
	e.Dispose()
	a.SetValue(3)

	assert.Equal(t, []string{"run", "cleanup", "run", "cleanup"}, log)
}

// should hand body errors to the error handler
func TestEffectErrorsGoToHandler(t *testing.T) {
	var got []error
	var from []tiered.SignalAware
	rs := tiered.CreateReactiveSystem(tiered.WithOnError(func(f tiered.SignalAware, err error) {
		from = append(from, f)
		got = append(got, err)
	}))

	boom := errors.New("boom")
	a := tiered.Signal(rs, 0)
	e := tiered.Effect(rs, func() error {
		if a.Value() > 0 {
			return boom
		}
		return nil
	})
	assert.Empty(t, got)

	a.SetValue(1)
	require.Len(t, got, 1)
	assert.ErrorIs(t, got[0], boom)
	assert.Same(t, e, from[0])
}

// should not rerun itself when it writes to its own input
func TestEffectSelfWriteIsNoop(t *testing.T) {
	rs, _ := newSystem(t)
	a := tiered.Signal(rs, 0)
	runs := 0
	tiered.Effect(rs, func() error {
		runs++
		a.SetValue(a.Value() + 1)
		return nil
	})
	assert.Equal(t, 1, runs)
	assert.Equal(t, 1, a.Peek())

	a.SetValue(10)
	assert.Equal(t, 2, runs)
	assert.Equal(t, 11, a.Peek())
}

// should detach when the body disposes its own effect
func TestEffectDisposesItself(t *testing.T) {
	rs, _ := newSystem(t)
	a := tiered.Signal(rs, 0)
	cleaned := 0
	var e *tiered.EffectRunner
	e = tiered.EffectWithCleanup(rs, func() (tiered.Cleanup, error) {
		if a.Value() == 1 {
			e.Dispose()
		}
		return func() { cleaned++ }, nil
	})

	a.SetValue(1)
	assert.True(t, e.Disposed())
	assert.Equal(t, 2, cleaned)
	assert.Equal(t, 0, a.Dependents())

	a.SetValue(2)
	assert.Equal(t, 2, e.Runs())
}

// should reset its guards when the body panics
func TestEffectPanicResetsGuards(t *testing.T) {
	rs, _ := newSystem(t)
	a := tiered.Signal(rs, 0)
	var seen []int
	tiered.Effect(rs, func() error {
		v := a.Value()
		if v == 1 {
			panic("bad value")
		}
		seen = append(seen, v)
		return nil
	})

	assert.PanicsWithValue(t, "bad value", func() {
		a.SetValue(1)
	})
	assert.False(t, rs.InBatch())

	a.SetValue(2)
	assert.Equal(t, []int{0, 2}, seen)
}

// should run an effect on demand and refuse once disposed
func TestEffectRun(t *testing.T) {
	rs, _ := newSystem(t)
	runs := 0
	e := tiered.Effect(rs, func() error {
		runs++
		return nil
	})
	require.NoError(t, e.Run())
	assert.Equal(t, 2, runs)

	e.Dispose()
	assert.ErrorIs(t, e.Run(), tiered.ErrDisposed)
	assert.Equal(t, 2, runs)
}

// should not track reads made by an untracked block
func TestUntrack(t *testing.T) {
	rs, _ := newSystem(t)
	a := tiered.Signal(rs, 1)
	b := tiered.Signal(rs, 10)
	var log []int
	tiered.Effect(rs, func() error {
		log = append(log, a.Value()+tiered.Untrack(rs, b.Value))
		return nil
	})

	b.SetValue(20)
	assert.Equal(t, []int{11}, log)

	a.SetValue(2)
	assert.Equal(t, []int{11, 22}, log)
}

// should pause tracking
func TestShouldPauseTracking(t *testing.T) {
	rs, _ := newSystem(t)

	src := tiered.Signal(rs, 0)
	c := tiered.Computed(rs, func(oldValue int) int {
		rs.PauseTracking()
		value := src.Value()
		rs.ResumeTracking()
		return value
	})
	assert.Equal(t, 0, c.Value())

	src.SetValue(1)
	assert.Equal(t, 0, c.Value())
}

// should rerun synchronously unless given a tier
func TestEffectDefaultTier(t *testing.T) {
	rs, host := newSystem(t)
	a := tiered.Signal(rs, 0)
	var log []int
	e := tiered.Effect(rs, func() error {
		log = append(log, a.Value())
		return nil
	})
	assert.Equal(t, tiered.TierImmediate, e.Tier())

	a.SetValue(1)
	assert.Equal(t, []int{0, 1}, log)
	assert.False(t, host.Pending())
}
