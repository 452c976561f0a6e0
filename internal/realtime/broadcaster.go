package realtime

import (
	"context"
	"sync"
)

// Broadcaster publishes events to a named channel (a topic such as "reels" or
// a room such as "chat:<id>") and lets in-process consumers follow one.
type Broadcaster interface {
	Publish(ctx context.Context, channel string, msg *Message) error
	// Subscribe returns a buffered stream of channel's events and a cancel
	// func that must be called to release it.
	Subscribe(ctx context.Context, channel string) (<-chan *Message, func(), error)
}

// Published is one recorded Publish call
type Published struct {
	Channel string
	Message *Message
}

// Recorder is an in-memory Broadcaster for tests. It records every Publish
// and forwards it to subscribers.
type Recorder struct {
	mu     sync.Mutex
	events []Published
	subs   *subscribers
}

var _ Broadcaster = (*Recorder)(nil)

func NewRecorder() *Recorder {
	return &Recorder{subs: newSubscribers()}
}

func (r *Recorder) Publish(_ context.Context, channel string, msg *Message) error {
	r.mu.Lock()
	r.events = append(r.events, Published{Channel: channel, Message: msg})
	r.mu.Unlock()

	r.subs.deliver(channel, msg)
	return nil
}

func (r *Recorder) Subscribe(_ context.Context, channel string) (<-chan *Message, func(), error) {
	ch, cancel := r.subs.add(channel)
	return ch, cancel, nil
}

// Events returns a copy of everything published so far
func (r *Recorder) Events() []Published {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Published(nil), r.events...)
}

// OfType returns the recorded events with the given message type
func (r *Recorder) OfType(msgType string) []Published {
	var out []Published
	for _, e := range r.Events() {
		if e.Message.Type == msgType {
			out = append(out, e)
		}
	}
	return out
}

// Reset forgets recorded events
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// subscriberBuffer is the per-subscription queue; a slow consumer loses events
const subscriberBuffer = 64

// subscribers is the in-process fan-out shared by Hub and Recorder
type subscribers struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]chan *Message
}

func newSubscribers() *subscribers {
	return &subscribers{subs: make(map[string]map[int]chan *Message)}
}

func (s *subscribers) add(channel string) (<-chan *Message, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	ch := make(chan *Message, subscriberBuffer)
	if s.subs[channel] == nil {
		s.subs[channel] = make(map[int]chan *Message)
	}
	s.subs[channel][id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			// closeAll may have released it already
			if _, ok := s.subs[channel][id]; !ok {
				return
			}
			delete(s.subs[channel], id)
			if len(s.subs[channel]) == 0 {
				delete(s.subs, channel)
			}
			close(ch)
		})
	}
	return ch, cancel
}

// deliver never blocks; it reports how many subscribers missed the event
func (s *subscribers) deliver(channel string, msg *Message) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dropped := 0
	for _, ch := range s.subs[channel] {
		select {
		case ch <- msg:
		default:
			dropped++
		}
	}
	return dropped
}

func (s *subscribers) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for channel, subs := range s.subs {
		for id, ch := range subs {
			close(ch)
			delete(subs, id)
		}
		delete(s.subs, channel)
	}
}
