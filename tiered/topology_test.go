package tiered_test

import (
	"fmt"
	"testing"

	"github.com/delaneyj/tiersignals/tiered"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopologyDropAbaUpdates(t *testing.T) {
	rs, _ := newSystem(t)

	//     A
	//   / |
	//  B  |
	//   \ |
	//     C
	//     |
	//     D
	a := tiered.Signal(rs, 2)
	b := tiered.Computed(rs, func(oldValue int) int {
		return a.Value() - 1
	})
	c := tiered.Computed(rs, func(oldValue int) int {
		return a.Value() + b.Value()
	})
	callCount := 0
	d := tiered.Computed(rs, func(oldValue string) string {
		callCount++
		return fmt.Sprintf("d: %d", c.Value())
	})

	assert.Equal(t, "d: 3", d.Value())
	assert.Equal(t, 1, callCount)

	a.SetValue(4)
	assert.Equal(t, "d: 7", d.Value())
	assert.Equal(t, 2, callCount)
}

func TestShouldOnlyUpdateEverySignalOnceDiamond(t *testing.T) {
	rs, _ := newSystem(t)

	//     A
	//   /   \
	//  B     C
	//   \   /
	//     D
	a := tiered.Signal(rs, "a")
	b := tiered.Computed(rs, func(oldValue string) string {
		return a.Value()
	})
	c := tiered.Computed(rs, func(oldValue string) string {
		return a.Value()
	})

	callCount := 0
	d := tiered.Computed(rs, func(oldValue string) string {
		callCount++
		return b.Value() + " " + c.Value()
	})

	assert.Equal(t, "a a", d.Value())
	assert.Equal(t, 1, callCount)
	callCount = 0

	a.SetValue("aa")
	assert.Equal(t, "aa aa", d.Value())
	assert.Equal(t, 1, callCount)
}

func TestShouldOnlyUpdateEverySignalOnceDiamondTail(t *testing.T) {
	rs, _ := newSystem(t)

	//     A
	//   /   \
	//  B     C
	//   \   /
	//     D
	//     |
	//     E
	a := tiered.Signal(rs, "a")
	b := tiered.Computed(rs, func(oldValue string) string {
		return a.Value()
	})
	c := tiered.Computed(rs, func(oldValue string) string {
		return a.Value()
	})
	d := tiered.Computed(rs, func(oldValue string) string {
		return b.Value() + " " + c.Value()
	})

	eCallCount := 0
	e := tiered.Computed(rs, func(oldValue string) string {
		eCallCount++
		return d.Value()
	})

	assert.Equal(t, "a a", e.Value())
	assert.Equal(t, 1, eCallCount)

	a.SetValue("aa")
	assert.Equal(t, "aa aa", e.Value())
	assert.Equal(t, 2, eCallCount)
}

func TestShouldOnlyUpdateEverySignalOnceJaggedDiamondTails(t *testing.T) {
	rs, _ := newSystem(t)

	//     A
	//   /   \
	//  B     C
	//  |     |
	//  |     D
	//   \   /
	//     E
	//   /   \
	//  F     G
	a := tiered.Signal(rs, "a")
	b := tiered.Computed(rs, func(oldValue string) string {
		return a.Value()
	})
	c := tiered.Computed(rs, func(oldValue string) string {
		return a.Value()
	})
	d := tiered.Computed(rs, func(oldValue string) string {
		return c.Value()
	})

	var order []string
	e := tiered.Computed(rs, func(oldValue string) string {
		order = append(order, "e")
		return b.Value() + " " + d.Value()
	})
	f := tiered.Computed(rs, func(oldValue string) string {
		v := e.Value()
		order = append(order, "f")
		return v
	})
	g := tiered.Computed(rs, func(oldValue string) string {
		v := e.Value()
		order = append(order, "g")
		return v
	})

	require.Equal(t, "a a", f.Value())
	require.Equal(t, "a a", g.Value())
	require.Equal(t, []string{"e", "f", "g"}, order)

	for _, v := range []string{"b", "c"} {
		order = nil
		a.SetValue(v)
		require.Equal(t, v+" "+v, e.Value())
		require.Equal(t, v+" "+v, f.Value())
		require.Equal(t, v+" "+v, g.Value())
		// top to bottom, then left to right
		require.Equal(t, []string{"e", "f", "g"}, order)
	}
}

func TestShouldOnlySubscribeToSignalsListenedTo(t *testing.T) {
	rs, _ := newSystem(t)

	//    *A
	//   /   \
	// *B     C <- never read
	a := tiered.Signal(rs, "a")
	b := tiered.Computed(rs, func(oldValue string) string {
		return a.Value()
	})
	callCount := 0
	tiered.Computed(rs, func(oldValue string) string {
		callCount++
		return a.Value()
	})

	assert.Equal(t, "a", b.Value())
	assert.Equal(t, 0, callCount)

	a.SetValue("aa")
	assert.Equal(t, "aa", b.Value())
	assert.Equal(t, 0, callCount)
}

func TestShouldOnlySubscribeToSignalsListenedToII(t *testing.T) {
	rs, _ := newSystem(t)

	// B and C are live while the effect reads C. Once it is disposed
	// neither recomputes on writes to A.
	//    *A
	//   /   \
	// *B     D
	//  |
	// *C
	a := tiered.Signal(rs, "a")
	bCallCount := 0
	b := tiered.Computed(rs, func(oldValue string) string {
		bCallCount++
		return a.Value()
	})
	cCallCount := 0
	c := tiered.Computed(rs, func(oldValue string) string {
		cCallCount++
		return b.Value()
	})
	d := tiered.Computed(rs, func(oldValue string) string {
		return a.Value()
	})

	result := ""
	eff := tiered.Effect(rs, func() error {
		result = c.Value()
		return nil
	})

	assert.Equal(t, "a", result)
	assert.Equal(t, "a", d.Value())

	bCallCount, cCallCount = 0, 0
	eff.Dispose()

	a.SetValue("aa")
	assert.Equal(t, 0, bCallCount)
	assert.Equal(t, 0, cCallCount)
	assert.Equal(t, "aa", d.Value())
	assert.Equal(t, "a", result)
}

func TestShouldEnsureSubsUpdate(t *testing.T) {
	//     A
	//   /   \
	//  B     *C <- same value every time
	//   \   /
	//     D
	rs, _ := newSystem(t)
	a := tiered.Signal(rs, "a")
	b := tiered.Computed(rs, func(oldValue string) string {
		return a.Value()
	})
	c := tiered.Computed(rs, func(oldValue string) string {
		a.Value()
		return "c"
	})
	dCallCount := 0
	d := tiered.Computed(rs, func(oldValue string) string {
		dCallCount++
		return b.Value() + " " + c.Value()
	})

	assert.Equal(t, "a c", d.Value())
	assert.Equal(t, 1, dCallCount)

	a.SetValue("aa")
	assert.Equal(t, "aa c", d.Value())
	assert.Equal(t, 2, dCallCount)
}

func TestShouldEnsureSubsUpdateEvenIfTwoDepsUnmarkIt(t *testing.T) {
	//     A
	//   / | \
	//  B *C *D
	//   \ | /
	//     E
	rs, _ := newSystem(t)
	a := tiered.Signal(rs, "a")
	b := tiered.Computed(rs, func(oldValue string) string {
		return a.Value()
	})
	c := tiered.Computed(rs, func(oldValue string) string {
		a.Value()
		return "c"
	})
	d := tiered.Computed(rs, func(oldValue string) string {
		a.Value()
		return "d"
	})
	eCallCount := 0
	e := tiered.Computed(rs, func(oldValue string) string {
		eCallCount++
		return b.Value() + " " + c.Value() + " " + d.Value()
	})

	assert.Equal(t, "a c d", e.Value())
	assert.Equal(t, 1, eCallCount)

	a.SetValue("aa")
	assert.Equal(t, "aa c d", e.Value())
	assert.Equal(t, 2, eCallCount)
}

// should not recompute anything until a dirty computed is read
func TestShouldStayLazyUntilRead(t *testing.T) {
	//     A
	//   /   \
	// *B     *C
	//   \   /
	//     D
	rs, _ := newSystem(t)
	a := tiered.Signal(rs, "a")
	b := tiered.Computed(rs, func(oldValue string) string {
		a.Value()
		return "b"
	})
	c := tiered.Computed(rs, func(oldValue string) string {
		a.Value()
		return "c"
	})
	d := tiered.Computed(rs, func(oldValue string) string {
		return b.Value() + " " + c.Value()
	})

	assert.Equal(t, "b c", d.Value())
	assert.Equal(t, 1, d.Runs())

	a.SetValue("aa")
	assert.True(t, d.Dirty())
	assert.Equal(t, 1, b.Runs())
	assert.Equal(t, 1, d.Runs())
}

func TestShouldKeepGraphConsistentOnActivationErrors(t *testing.T) {
	rs, _ := newSystem(t)

	a := tiered.Signal(rs, 0)
	b := tiered.Computed(rs, func(oldValue int) int {
		panic("fail")
	})

	assert.Panics(t, func() {
		b.Value()
	})
	assert.True(t, b.Dirty())

	a.SetValue(1)
	assert.Equal(t, 1, a.Value())
}

func TestShouldKeepGraphConsistentOnComputedErrors(t *testing.T) {
	rs, _ := newSystem(t)

	a := tiered.Signal(rs, 0)
	b := tiered.Computed(rs, func(oldValue int) int {
		if a.Value() > 0 {
			panic("fail")
		}
		return a.Value()
	})
	c := tiered.Computed(rs, func(oldValue int) int {
		return a.Value()
	})

	assert.Equal(t, 0, b.Value())
	a.SetValue(1)
	assert.Panics(t, func() {
		b.Value()
	})
	assert.Equal(t, 0, a.Dependents())
	assert.Equal(t, 1, c.Value())
	assert.Equal(t, 1, a.Dependents())

	a.SetValue(0)
	assert.Equal(t, 0, b.Value())
}

// from README
func TestBasicUsage(t *testing.T) {
	rs, _ := newSystem(t)
	count := tiered.Signal(rs, 1)
	doubleCount := tiered.Computed(rs, func(oldValue int) int {
		return count.Value() * 2
	})

	var seen []int
	eff := tiered.Effect(rs, func() error {
		seen = append(seen, count.Value())
		return nil
	})
	defer eff.Dispose()

	assert.Equal(t, 2, doubleCount.Value())
	count.SetValue(2)
	assert.Equal(t, 4, doubleCount.Value())
	assert.Equal(t, []int{1, 2}, seen)
}
