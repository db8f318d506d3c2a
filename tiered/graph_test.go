package tiered

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkLinks walks both lists of every link reachable from sub and verifies
// that each link sits in exactly one list of each kind.
func checkLinks(t *testing.T, sub subscriber) {
	t.Helper()
	var prev *link
	for l := sub.sources(); l != nil; l = l.nextSource {
		assert.Same(t, prev, l.prevSource)
		assert.Equal(t, sub, l.target)

		found := 0
		for tl := l.source.targets(); tl != nil; tl = tl.nextTarget {
			if tl == l {
				found++
			}
			if tl.nextTarget != nil {
				assert.Same(t, tl, tl.nextTarget.prevTarget)
			}
		}
		assert.Equal(t, 1, found)
		prev = l
	}
}

// should insert at the head and collapse repeated reads
func TestLinkHeadInsertion(t *testing.T) {
	rs := CreateReactiveSystem()
	a := Signal(rs, 1)
	b := Signal(rs, 2)

	e := Effect(rs, func() error {
		a.Value()
		a.Value()
		b.Value()
		return nil
	})
	require.NotNil(t, e.sources())
	assert.Equal(t, dependency(b), e.sources().source)
	assert.Equal(t, 2, countSources(e))
	checkLinks(t, e)
}

// should keep one link per source however the reads interleave
func TestLinkInterleavedReads(t *testing.T) {
	rs := CreateReactiveSystem()
	a := Signal(rs, 1)
	b := Signal(rs, 2)

	e := Effect(rs, func() error {
		a.Value()
		b.Value()
		a.Value()
		b.Value()
		a.Value()
		return nil
	})
	assert.Equal(t, 1, a.Dependents())
	assert.Equal(t, 1, b.Dependents())
	assert.Equal(t, 2, countSources(e))
	checkLinks(t, e)
	assert.Nil(t, a.current())
	assert.Nil(t, b.current())

	a.SetValue(3)
	assert.Equal(t, 2, e.Runs())
	assert.Equal(t, 1, a.Dependents())
	assert.Equal(t, 2, countSources(e))
}

// should keep one link per source when a nested computed reads it in between
func TestLinkNestedReads(t *testing.T) {
	rs := CreateReactiveSystem()
	a := Signal(rs, 1)
	c := Computed(rs, func(int) int { return a.Value() * 2 })

	e := Effect(rs, func() error {
		a.Value()
		c.Value()
		a.Value()
		return nil
	})
	assert.Equal(t, 2, a.Dependents())
	assert.Equal(t, 1, c.Dependents())
	assert.Equal(t, 2, countSources(e))
	assert.Equal(t, 1, countSources(c))
	checkLinks(t, e)
	checkLinks(t, c)
	assert.Nil(t, a.current())
}

// should unlink from the middle of a dependents list
func TestUnlinkMiddle(t *testing.T) {
	rs := CreateReactiveSystem()
	a := Signal(rs, 1)

	var effects []*EffectRunner
	for range 3 {
		effects = append(effects, Effect(rs, func() error {
			a.Value()
			return nil
		}))
	}
	assert.Equal(t, 3, a.Dependents())

	effects[1].Dispose()
	assert.Equal(t, 2, a.Dependents())
	assert.Nil(t, effects[1].sources())
	checkLinks(t, effects[0])
	checkLinks(t, effects[2])

	effects[2].Dispose()
	effects[0].Dispose()
	assert.Nil(t, a.targets())
}

// should rebuild the dependency list on every run
func TestRelinkOnRun(t *testing.T) {
	rs := CreateReactiveSystem()
	n := Signal(rs, 1)
	sigs := []*WriteableSignal[int]{Signal(rs, 0), Signal(rs, 0), Signal(rs, 0)}

	e := Effect(rs, func() error {
		for _, s := range sigs[:n.Value()] {
			s.Value()
		}
		return nil
	})
	assert.Equal(t, 2, countSources(e))

	n.SetValue(3)
	assert.Equal(t, 4, countSources(e))
	checkLinks(t, e)

	n.SetValue(0)
	assert.Equal(t, 1, countSources(e))
	for _, s := range sigs {
		assert.Equal(t, 0, s.Dependents())
	}
}

// should keep insertion order across removals
func TestOrderedSet(t *testing.T) {
	s := newOrderedSet[int]()
	for i := range 40 {
		assert.True(t, s.Add(i))
	}
	assert.False(t, s.Add(3))

	for i := 0; i < 40; i += 2 {
		assert.True(t, s.Remove(i))
	}
	assert.False(t, s.Remove(0))
	assert.Equal(t, 20, s.Len())
	assert.True(t, s.Has(1))
	assert.False(t, s.Has(2))

	s.Add(0)
	items := s.Items()
	assert.Equal(t, 1, items[0])
	assert.Equal(t, 0, items[len(items)-1])

	drained := s.Drain()
	assert.Len(t, drained, 21)
	assert.Equal(t, 0, s.Len())
	assert.True(t, s.Add(5))
	assert.Equal(t, []int{5}, s.Items())
}
