package engine

// SeenSet is a bounded recency cache of delivery keys with FIFO
// eviction. Size never exceeds the capacity after any insert.
type SeenSet struct {
	capacity int
	order    []string
	members  map[string]struct{}
}

// NewSeenSet builds a set holding at most capacity keys.
func NewSeenSet(capacity int) *SeenSet {
	if capacity <= 0 {
		capacity = 1000
	}
	return &SeenSet{
		capacity: capacity,
		members:  make(map[string]struct{}, capacity),
	}
}

// Contains reports whether key was recorded and not yet evicted.
func (s *SeenSet) Contains(key string) bool {
	_, ok := s.members[key]
	return ok
}

// Add records key, evicting the oldest entries beyond capacity.
func (s *SeenSet) Add(key string) {
	if s.Contains(key) {
		return
	}
	s.order = append(s.order, key)
	s.members[key] = struct{}{}
	for len(s.order) > s.capacity {
		evicted := s.order[0]
		s.order = s.order[1:]
		delete(s.members, evicted)
	}
}

// Len returns the number of live keys.
func (s *SeenSet) Len() int { return len(s.order) }
