package pipeline

import "sync"

// Sequencer serializes work per conversation key. Runs for the same key
// never interleave, so a run's history read always reflects the previous
// run's completed write; runs for different keys proceed in parallel.
type Sequencer struct {
	mu      sync.Mutex
	entries map[string]*sequencerEntry
}

type sequencerEntry struct {
	mu   sync.Mutex
	refs int
}

func NewSequencer() *Sequencer {
	return &Sequencer{entries: make(map[string]*sequencerEntry)}
}

// Do runs fn while holding the lock for key. Entries are reference counted
// so the map does not grow with every conversation ever seen.
func (s *Sequencer) Do(key string, fn func()) {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		e = &sequencerEntry{}
		s.entries[key] = e
	}
	e.refs++
	s.mu.Unlock()

	e.mu.Lock()
	defer func() {
		e.mu.Unlock()

		s.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(s.entries, key)
		}
		s.mu.Unlock()
	}()

	fn()
}
