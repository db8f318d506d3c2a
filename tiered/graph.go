package tiered

// link wires dep as a dependency of sub for the current pass. The new edge goes
// to the head of both lists. Every later read of dep by sub in the same pass
// finds the edge through dep.current and adds nothing.
func (rs *ReactiveSystem) link(dep dependency, sub subscriber) {
	cur := dep.current()
	if cur != nil && cur.target == sub {
		return
	}

	l := &link{source: dep, target: sub, rollback: cur}
	dep.setCurrent(l)

	head := sub.sources()
	l.nextSource = head
	if head != nil {
		head.prevSource = l
	}
	sub.setSources(l)

	targets := dep.targets()
	l.nextTarget = targets
	if targets != nil {
		targets.prevTarget = l
	}
	dep.setTargets(l)
}

// track links the active subscriber, if any, to dep.
func (rs *ReactiveSystem) track(dep dependency) {
	if rs.activeSub != nil {
		rs.link(dep, rs.activeSub)
	}
}

// endTracking closes the pass of sub: each dependency it read gets back the
// current link it had before sub read it, then prev becomes the active context.
func (rs *ReactiveSystem) endTracking(sub, prev subscriber) {
	for l := sub.sources(); l != nil; l = l.nextSource {
		if l.source.current() == l {
			l.source.setCurrent(l.rollback)
		}
		l.rollback = nil
	}
	rs.activeSub = prev
}

// removeLink detaches l from both of its lists in O(1), repointing list heads
// when l was first.
func removeLink(l *link) {
	if l.source.current() == l {
		l.source.setCurrent(l.rollback)
	}
	l.rollback = nil
	if l.prevSource != nil {
		l.prevSource.nextSource = l.nextSource
	} else {
		l.target.setSources(l.nextSource)
	}
	if l.nextSource != nil {
		l.nextSource.prevSource = l.prevSource
	}

	if l.prevTarget != nil {
		l.prevTarget.nextTarget = l.nextTarget
	} else {
		l.source.setTargets(l.nextTarget)
	}
	if l.nextTarget != nil {
		l.nextTarget.prevTarget = l.prevTarget
	}

	l.prevSource, l.nextSource = nil, nil
	l.prevTarget, l.nextTarget = nil, nil
}

// unlinkSources drops every dependency edge of sub.
func unlinkSources(sub subscriber) {
	for l := sub.sources(); l != nil; {
		next := l.nextSource
		removeLink(l)
		l = next
	}
	sub.setSources(nil)
}

// notify marks every dependent of dep dirty, in list order, inside a batch so
// that effects reached through several paths are handed to the scheduler once.
func (rs *ReactiveSystem) notify(dep dependency) {
	if dep.targets() == nil {
		return
	}
	rs.StartBatch()
	defer rs.EndBatch()

	for l := dep.targets(); l != nil; {
		next := l.nextTarget
		l.target.markDirty()
		l = next
	}
}

func countSources(sub subscriber) int {
	n := 0
	for l := sub.sources(); l != nil; l = l.nextSource {
		n++
	}
	return n
}

func countTargets(dep dependency) int {
	n := 0
	for l := dep.targets(); l != nil; l = l.nextTarget {
		n++
	}
	return n
}
