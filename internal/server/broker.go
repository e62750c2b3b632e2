package server

import (
	"sync"

	"github.com/playperu/escaperoom/internal/store"
)

// Broker hands each streaming client one channel merging several feed
// topics.
type Broker struct {
	feed *store.Feed
}

func NewBroker(feed *store.Feed) *Broker {
	return &Broker{feed: feed}
}

// Stream is a merged subscription. Close it exactly when the client goes.
type Stream struct {
	C <-chan store.Change

	subs []*store.Subscription
	wg   sync.WaitGroup
	once sync.Once
}

// Subscribe merges topics into one stream.
func (b *Broker) Subscribe(topics ...string) *Stream {
	out := make(chan store.Change, 16)
	s := &Stream{C: out}
	for _, topic := range topics {
		sub := b.feed.Subscribe(topic)
		s.subs = append(s.subs, sub)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for c := range sub.C {
				select {
				case out <- c:
				default:
					// Drop if the client is slow; it re-reads on the next change.
				}
			}
		}()
	}
	go func() {
		s.wg.Wait()
		close(out)
	}()
	return s
}

func (s *Stream) Close() {
	s.once.Do(func() {
		for _, sub := range s.subs {
			sub.Cancel()
		}
	})
}
