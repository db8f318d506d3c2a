package tiered

// EqualFunc decides whether a write changes a signal.
type EqualFunc[T any] func(a, b T) bool

type WriteableSignal[T any] struct {
	baseDependency

	rs      *ReactiveSystem
	name    string
	value   T
	version uint64
	equal   EqualFunc[T]
	onWrite func(SignalAware)
}

func (s *WriteableSignal[T]) isSignalAware() {}

// Signal creates a mutable cell compared with ==.
func Signal[T comparable](rs *ReactiveSystem, initialValue T, opts ...NodeOption) *WriteableSignal[T] {
	return SignalWithEqual(rs, initialValue, func(a, b T) bool { return a == b }, opts...)
}

// SignalWithEqual creates a mutable cell whose writes are compared with equal.
// A nil equal treats every write as a change.
func SignalWithEqual[T any](rs *ReactiveSystem, initialValue T, equal EqualFunc[T], opts ...NodeOption) *WriteableSignal[T] {
	o := buildNodeOptions(opts)
	if o.name == "" {
		o.name = rs.nextName("signal")
	}
	if equal == nil {
		equal = func(T, T) bool { return false }
	}
	return &WriteableSignal[T]{
		rs:      rs,
		name:    o.name,
		value:   initialValue,
		equal:   equal,
		onWrite: o.onWrite,
	}
}

func (s *WriteableSignal[T]) Name() string { return s.name }

func (s *WriteableSignal[T]) Value() T {
	s.rs.assertOwner()
	s.rs.track(s)
	return s.value
}

// Peek returns the value without linking the active context.
func (s *WriteableSignal[T]) Peek() T {
	return s.value
}

func (s *WriteableSignal[T]) SetValue(v T) {
	rs := s.rs
	rs.assertOwner()
	if s.equal(s.value, v) {
		return
	}
	s.value = v
	s.version++
	if s.onWrite != nil {
		s.onWrite(s)
	}
	rs.notify(s)
}

// Update writes fn applied to the current value.
func (s *WriteableSignal[T]) Update(fn func(old T) T) {
	s.SetValue(fn(s.value))
}

// Version counts the writes that changed the value.
func (s *WriteableSignal[T]) Version() uint64 {
	return s.version
}

// Dependents reports how many nodes currently read this signal.
func (s *WriteableSignal[T]) Dependents() int {
	return countTargets(s)
}
