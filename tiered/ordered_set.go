package tiered

// orderedSet keeps insertion order with O(1) add, remove and membership.
// Removed entries leave a tombstone that is compacted once it dominates.
type orderedSet[T comparable] struct {
	items []T
	live  []bool
	index map[T]int
	n     int
}

func newOrderedSet[T comparable]() *orderedSet[T] {
	return &orderedSet[T]{index: map[T]int{}}
}

func (s *orderedSet[T]) Len() int { return s.n }

func (s *orderedSet[T]) Has(v T) bool {
	_, ok := s.index[v]
	return ok
}

// Add appends v unless it is already present. It reports whether v was added.
func (s *orderedSet[T]) Add(v T) bool {
	if _, ok := s.index[v]; ok {
		return false
	}
	s.index[v] = len(s.items)
	s.items = append(s.items, v)
	s.live = append(s.live, true)
	s.n++
	return true
}

func (s *orderedSet[T]) Remove(v T) bool {
	i, ok := s.index[v]
	if !ok {
		return false
	}
	delete(s.index, v)
	var zero T
	s.items[i] = zero
	s.live[i] = false
	s.n--
	if s.n == 0 {
		clear(s.items)
		s.items, s.live = s.items[:0], s.live[:0]
	} else if len(s.items) > 32 && s.n < len(s.items)/2 {
		s.compact()
	}
	return true
}

func (s *orderedSet[T]) compact() {
	j := 0
	for i, v := range s.items {
		if !s.live[i] {
			continue
		}
		s.items[j] = v
		s.live[j] = true
		s.index[v] = j
		j++
	}
	var zero T
	for i := j; i < len(s.items); i++ {
		s.items[i] = zero
	}
	s.items, s.live = s.items[:j], s.live[:j]
}

// Items returns the members in insertion order.
func (s *orderedSet[T]) Items() []T {
	out := make([]T, 0, s.n)
	for i, v := range s.items {
		if s.live[i] {
			out = append(out, v)
		}
	}
	return out
}

// Drain returns the members in insertion order and empties the set.
func (s *orderedSet[T]) Drain() []T {
	out := s.Items()
	clear(s.index)
	clear(s.items)
	s.items, s.live = s.items[:0], s.live[:0]
	s.n = 0
	return out
}
