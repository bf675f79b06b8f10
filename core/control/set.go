package control

import "sync"

// Set is the ordered collection of active control units the dispatcher scans
// during resolution. Insertion order is preserved so enumeration-based
// operations behave deterministically.
type Set struct {
	mu    sync.RWMutex
	order []string
	units map[string]ControlUnit
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{units: make(map[string]ControlUnit)}
}

// Add registers the unit under the given instance id. Re-adding an id
// replaces the unit but keeps its position.
func (s *Set) Add(id string, cu ControlUnit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.units[id]; !ok {
		s.order = append(s.order, id)
	}
	s.units[id] = cu
}

// Remove drops the instance with the given id.
func (s *Set) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.units[id]; !ok {
		return
	}
	delete(s.units, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Get returns the unit registered under id, or nil.
func (s *Set) Get(id string) ControlUnit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.units[id]
}

// All returns the units in insertion order.
func (s *Set) All() []ControlUnit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ControlUnit, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.units[id])
	}
	return out
}

// Len reports the number of active units.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.units)
}
