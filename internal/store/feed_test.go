package store

import (
	"testing"
	"time"
)

func receive(t *testing.T, sub *Subscription) Change {
	t.Helper()
	select {
	case c, ok := <-sub.C:
		if !ok {
			t.Fatal("subscription closed")
		}
		return c
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change")
	}
	return Change{}
}

func TestFeedDeliversToCollectionAndDocument(t *testing.T) {
	f := NewFeed()
	all := f.Subscribe(Topic(ActiveRooms, ""))
	defer all.Cancel()
	one := f.Subscribe(Topic(ActiveRooms, "3"))
	defer one.Cancel()
	other := f.Subscribe(Topic(ActiveRooms, "4"))
	defer other.Cancel()

	f.Publish(Change{Collection: ActiveRooms, ID: "3", Op: OpPut})

	if c := receive(t, all); c.ID != "3" {
		t.Errorf("collection subscriber got %+v", c)
	}
	if c := receive(t, one); c.ID != "3" {
		t.Errorf("document subscriber got %+v", c)
	}
	select {
	case c := <-other.C:
		t.Errorf("unrelated subscriber got %+v", c)
	default:
	}
}

func TestFeedCancelIsIdempotent(t *testing.T) {
	f := NewFeed()
	sub := f.Subscribe(Leaderboard)
	if n := f.Subscribers(Leaderboard); n != 1 {
		t.Fatalf("expected 1 subscriber, got %d", n)
	}

	sub.Cancel()
	sub.Cancel()

	if n := f.Subscribers(Leaderboard); n != 0 {
		t.Errorf("expected 0 subscribers, got %d", n)
	}
	if _, ok := <-sub.C; ok {
		t.Error("expected closed channel")
	}
	f.Publish(Change{Collection: Leaderboard, ID: "t1", Op: OpPut})
}

func TestFeedDropsForSlowSubscriber(t *testing.T) {
	f := NewFeed()
	sub := f.Subscribe(Teams)
	defer sub.Cancel()

	done := make(chan struct{})
	go func() {
		for range 100 {
			f.Publish(Change{Collection: Teams, ID: "t", Op: OpPut})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}
