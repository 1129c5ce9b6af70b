package poller

import "sync"

// Canceler is any cancellable watch.
type Canceler interface {
	Cancel()
}

// Slots holds at most one live watch per named slot. Each start bumps the
// slot generation; notifications carry the generation they were started
// under and are dropped by the owner once it moves on.
type Slots struct {
	mu      sync.Mutex
	handles map[string]Canceler
	gens    map[string]uint64
}

// NewSlots returns an empty registry.
func NewSlots() *Slots {
	return &Slots{handles: make(map[string]Canceler), gens: make(map[string]uint64)}
}

// Next cancels the current watch in slot and returns the generation for the
// watch about to be started.
func (s *Slots) Next(slot string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h := s.handles[slot]; h != nil {
		h.Cancel()
		delete(s.handles, slot)
	}
	s.gens[slot]++
	return s.gens[slot]
}

// Bind records h as the live watch for slot if gen is still current.
// A stale bind cancels h instead.
func (s *Slots) Bind(slot string, gen uint64, h Canceler) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[slot] != gen {
		h.Cancel()
		return false
	}
	s.handles[slot] = h
	return true
}

// Current reports whether gen is the latest generation of slot.
func (s *Slots) Current(slot string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[slot] == gen
}

// Release forgets the watch in slot if gen is current, without cancelling.
// Called once a watch has delivered its outcome.
func (s *Slots) Release(slot string, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[slot] == gen {
		delete(s.handles, slot)
	}
}

// Active reports whether slot holds a live watch.
func (s *Slots) Active(slot string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handles[slot] != nil
}

// Cancel stops the watch in slot and invalidates its generation.
func (s *Slots) Cancel(slot string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h := s.handles[slot]; h != nil {
		h.Cancel()
		delete(s.handles, slot)
	}
	s.gens[slot]++
}

// CancelAll stops every watch.
func (s *Slots) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for slot, h := range s.handles {
		h.Cancel()
		delete(s.handles, slot)
	}
	for slot := range s.gens {
		s.gens[slot]++
	}
}
