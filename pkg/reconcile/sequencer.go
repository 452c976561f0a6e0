package reconcile

import "sync"

// Sequencer tags requests so a response that arrives after a newer one was
// accepted can be discarded.
type Sequencer struct {
	mu       sync.Mutex
	issued   uint64
	accepted uint64
}

// Next returns the tag for a new request
func (s *Sequencer) Next() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

// Accept reports whether the response tagged seq is still current. Once a
// response is accepted every older tag is stale.
func (s *Sequencer) Accept(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.accepted || seq > s.issued {
		return false
	}
	s.accepted = seq
	return true
}
