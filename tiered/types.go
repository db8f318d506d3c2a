package tiered

import (
	"fmt"
	"strings"
)

// Tier is the scheduling class of an effect. Lower tiers drain first.
type Tier uint8

const (
	// TierImmediate effects rerun synchronously, before the write that dirtied them returns.
	TierImmediate Tier = iota
	// TierMicrotask effects rerun at the host's next microtask boundary.
	TierMicrotask
	// TierFrame effects rerun in the next animation frame, within the frame budget.
	TierFrame
	// TierIdle effects rerun when the host reports idle time, or when the idle timeout expires.
	TierIdle
)

// NumTiers is the number of scheduling tiers.
const NumTiers = int(TierIdle) + 1

var tierNames = [NumTiers]string{"immediate", "microtask", "frame", "idle"}

func (t Tier) String() string {
	if int(t) < NumTiers {
		return tierNames[t]
	}
	return fmt.Sprintf("Tier(%d)", uint8(t))
}

// ParseTier maps a tier name back to its Tier.
func ParseTier(s string) (Tier, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range tierNames {
		if n == name {
			return Tier(i), nil
		}
	}
	switch name {
	case "animationframe", "raf":
		return TierFrame, nil
	case "sync":
		return TierImmediate, nil
	}
	return 0, fmt.Errorf("tiered: unknown tier %q", s)
}

type subscriberFlags uint8

const (
	fDirty subscriberFlags = 1 << iota
	fRunning
	fDisposed
)

// link is one source -> target edge. It sits in two lists at once:
// prevSource/nextSource chain the dependencies of target,
// prevTarget/nextTarget chain the dependents of source.
type link struct {
	source dependency
	target subscriber

	prevSource, nextSource *link
	prevTarget, nextTarget *link

	// rollback is the current link of source before this one was made,
	// restored when target finishes tracking.
	rollback *link
}

type dependency interface {
	targets() *link
	setTargets(*link)
	// current is the link to the innermost context that is still tracking
	// and has read this dependency.
	current() *link
	setCurrent(*link)
}

type subscriber interface {
	sources() *link
	setSources(*link)
	markDirty()
}

// computedNode is a node that is both a dependency and a subscriber.
type computedNode interface {
	dependency
	subscriber
	label() string
}

type baseDependency struct {
	_targets *link
	_current *link
}

func (d *baseDependency) targets() *link     { return d._targets }
func (d *baseDependency) setTargets(l *link) { d._targets = l }
func (d *baseDependency) current() *link     { return d._current }
func (d *baseDependency) setCurrent(l *link) { d._current = l }

type baseSubscriber struct {
	_sources *link
}

func (s *baseSubscriber) sources() *link     { return s._sources }
func (s *baseSubscriber) setSources(l *link) { s._sources = l }

// SignalAware is implemented by every node an OnErrorFunc can be handed.
type SignalAware interface {
	isSignalAware()
}
