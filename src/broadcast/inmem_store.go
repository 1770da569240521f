package broadcast

import (
	"sync"
)

// InmemStore keeps values in memory. Reads may happen concurrently with the
// node's dispatch loop, writes only come from it.
type InmemStore struct {
	sync.RWMutex

	dedup  bool
	values []int
	seen   map[int]struct{}
}

// NewInmemStore ...
func NewInmemStore(dedup bool) *InmemStore {
	return &InmemStore{
		dedup:  dedup,
		values: []int{},
		seen:   make(map[int]struct{}),
	}
}

// Add implements the Store interface.
func (s *InmemStore) Add(v int) (bool, error) {
	s.Lock()
	defer s.Unlock()

	if s.dedup {
		if _, ok := s.seen[v]; ok {
			return false, nil
		}
	}

	s.seen[v] = struct{}{}
	s.values = append(s.values, v)

	return true, nil
}

// Contains reports whether v has been accepted.
func (s *InmemStore) Contains(v int) bool {
	s.RLock()
	defer s.RUnlock()

	_, ok := s.seen[v]
	return ok
}

// Values implements the Store interface. The result is a copy.
func (s *InmemStore) Values() ([]int, error) {
	s.RLock()
	defer s.RUnlock()

	res := make([]int, len(s.values))
	copy(res, s.values)
	return res, nil
}

// Len implements the Store interface.
func (s *InmemStore) Len() int {
	s.RLock()
	defer s.RUnlock()

	return len(s.values)
}

// Dedup implements the Store interface.
func (s *InmemStore) Dedup() bool {
	return s.dedup
}

// Close implements the Store interface.
func (s *InmemStore) Close() error {
	return nil
}
