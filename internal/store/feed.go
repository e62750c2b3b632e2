package store

import "sync"

// Collection names as seen by feed subscribers.
const (
	Teams       = "teams"
	Rooms       = "rooms"
	Progress    = "teamProgress"
	ActiveRooms = "activeRooms"
	Config      = "config"
	Leaderboard = "leaderboard"
	// Narration carries narration-sink events; it has no backing table.
	Narration = "narration"
)

type Op string

const (
	OpPut    Op = "put"
	OpDelete Op = "delete"
	OpSpeak  Op = "speak"
	// OpReset announces a bulk change to a whole collection; ID is empty.
	OpReset  Op = "reset"
)

// Change announces a committed write to one document.
type Change struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
	Op         Op     `json:"op"`
	// Text and Interrupt are set for narration events only.
	Text      string `json:"text,omitempty"`
	Interrupt bool   `json:"interrupt,omitempty"`
	// Origin identifies the publishing process so relays can skip echoes.
	Origin string `json:"origin,omitempty"`
}

// Publisher receives every committed change.
type Publisher interface {
	Publish(c Change)
}

// Topic names a subscription: a whole collection, or one document in it.
func Topic(collection, id string) string {
	if id == "" {
		return collection
	}
	return collection + "/" + id
}

// Feed is an in-process pub/sub of document changes. Each change is
// delivered to subscribers of its collection topic and its document topic.
type Feed struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[string]map[*Subscription]struct{})}
}

// Subscription receives changes on C until Cancel is called.
type Subscription struct {
	C <-chan Change

	ch    chan Change
	feed  *Feed
	topic string
	once  sync.Once
}

// Subscribe registers a listener for topic. The caller must Cancel it.
func (f *Feed) Subscribe(topic string) *Subscription {
	ch := make(chan Change, 32)
	sub := &Subscription{C: ch, ch: ch, feed: f, topic: topic}

	f.mu.Lock()
	if f.subs[topic] == nil {
		f.subs[topic] = make(map[*Subscription]struct{})
	}
	f.subs[topic][sub] = struct{}{}
	f.mu.Unlock()
	return sub
}

// Cancel unregisters the subscription and closes C. Extra calls are no-ops.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		f := s.feed
		f.mu.Lock()
		delete(f.subs[s.topic], s)
		if len(f.subs[s.topic]) == 0 {
			delete(f.subs, s.topic)
		}
		close(s.ch)
		f.mu.Unlock()
	})
}

// Publish fans c out without blocking; slow subscribers miss events and
// are expected to re-read the document.
func (f *Feed) Publish(c Change) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	f.deliver(Topic(c.Collection, ""), c)
	if c.ID != "" {
		f.deliver(Topic(c.Collection, c.ID), c)
	}
}

func (f *Feed) deliver(topic string, c Change) {
	for sub := range f.subs[topic] {
		select {
		case sub.ch <- c:
		default:
		}
	}
}

// Subscribers reports the listener count on topic.
func (f *Feed) Subscribers(topic string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs[topic])
}
