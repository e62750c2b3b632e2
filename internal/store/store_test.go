package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/playperu/escaperoom/internal/escape"
)

var testNow = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*DocStore, *Feed) {
	t.Helper()
	feed := NewFeed()
	s, err := Open(context.Background(), ":memory:", feed, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, feed
}

func seedTeam(t *testing.T, s *DocStore, id, name string, room int, status escape.TeamStatus) escape.Team {
	t.Helper()
	team := escape.Team{
		ID:          id,
		Name:        name,
		Password:    "1234",
		CurrentRoom: room,
		Status:      status,
		CreatedAt:   testNow,
	}
	if err := s.PutTeam(context.Background(), team); err != nil {
		t.Fatalf("put team: %v", err)
	}
	return team
}

func TestTeamRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	start := testNow.Add(time.Minute)
	team := seedTeam(t, s, "t1", "Owls", 2, escape.TeamWaiting)
	team.SessionStartTime = &start
	if err := s.PutTeam(ctx, team); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.Team(ctx, "t1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Owls" || got.CurrentRoom != 2 || got.Status != escape.TeamWaiting {
		t.Errorf("unexpected team: %+v", got)
	}
	if got.SessionStartTime == nil || !got.SessionStartTime.Equal(start) {
		t.Errorf("expected session start %v, got %v", start, got.SessionStartTime)
	}
}

func TestGetMissingIsNotFound(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Team(context.Background(), "nope")
	if !errors.Is(err, escape.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_, err = s.ModifySlot(context.Background(), 9, func(*escape.ActiveRoomSlot) error { return nil })
	if !errors.Is(err, escape.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from modify, got %v", err)
	}
}

func TestTeamsByRoomFiltersStatus(t *testing.T) {
	s, _ := newTestStore(t)
	seedTeam(t, s, "a", "Alpha", 3, escape.TeamWaiting)
	seedTeam(t, s, "b", "Bravo", 3, escape.TeamActive)
	seedTeam(t, s, "c", "Charlie", 3, escape.TeamEliminated)
	seedTeam(t, s, "d", "Delta", 2, escape.TeamWaiting)

	teams, err := s.TeamsByRoom(context.Background(), 3)
	if err != nil {
		t.Fatalf("teams by room: %v", err)
	}
	if len(teams) != 2 || teams[0].ID != "a" || teams[1].ID != "b" {
		t.Fatalf("expected [a b], got %+v", teams)
	}
}

func TestModifyAbortLeavesDocument(t *testing.T) {
	s, _ := newTestStore(t)
	seedTeam(t, s, "t1", "Owls", 1, escape.TeamWaiting)

	boom := errors.New("boom")
	_, err := s.ModifyTeam(context.Background(), "t1", func(tm *escape.Team) error {
		tm.Name = "changed"
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got, _ := s.Team(context.Background(), "t1")
	if got.Name != "Owls" {
		t.Errorf("expected name unchanged, got %q", got.Name)
	}
}

func TestConcurrentModifySerialises(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	if err := s.PutProgress(ctx, escape.ProgressRecord{TeamID: "t1", RoomNumber: 2, AttemptsRemaining: 50}); err != nil {
		t.Fatalf("put progress: %v", err)
	}

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.ModifyProgress(ctx, "t1", 2, func(p *escape.ProgressRecord) error {
				p.AttemptsRemaining--
				return nil
			})
			if err != nil {
				t.Errorf("modify: %v", err)
			}
		}()
	}
	wg.Wait()

	p, err := s.Progress(ctx, "t1", 2)
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	if p.AttemptsRemaining != 30 {
		t.Errorf("expected 30 remaining, got %d", p.AttemptsRemaining)
	}
}

func TestWritesPublishChanges(t *testing.T) {
	s, feed := newTestStore(t)
	sub := feed.Subscribe(Topic(Teams, "t1"))
	defer sub.Cancel()

	seedTeam(t, s, "t1", "Owls", 1, escape.TeamWaiting)

	select {
	case c := <-sub.C:
		if c.Collection != Teams || c.ID != "t1" || c.Op != OpPut {
			t.Errorf("unexpected change %+v", c)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a change")
	}
}

func TestRoomsOrderedBySequence(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	for _, r := range []escape.Room{
		{RoomNumber: 1, Sequence: 3, MaxAttempts: 1},
		{RoomNumber: 2, Sequence: 1, MaxAttempts: 1},
		{RoomNumber: 3, Sequence: 2, MaxAttempts: 1},
	} {
		if err := s.PutRoom(ctx, r); err != nil {
			t.Fatalf("put room: %v", err)
		}
	}

	rooms, err := s.Rooms(ctx)
	if err != nil {
		t.Fatalf("rooms: %v", err)
	}
	if len(rooms) != 3 || rooms[0].RoomNumber != 2 || rooms[1].RoomNumber != 3 || rooms[2].RoomNumber != 1 {
		t.Errorf("unexpected order: %+v", rooms)
	}
}

func TestBootstrapIsIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	cfg := escape.Config{AdminPasswordHash: "hash", RoomSequence: escape.DefaultSequence(6)}

	if err := s.Bootstrap(ctx, escape.DefaultRooms(6), cfg); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if _, err := s.ModifyRoom(ctx, 2, func(r *escape.Room) error {
		r.CorrectCode = "4242"
		return nil
	}); err != nil {
		t.Fatalf("modify room: %v", err)
	}
	if err := s.Bootstrap(ctx, escape.DefaultRooms(6), escape.Config{AdminPasswordHash: "other"}); err != nil {
		t.Fatalf("second bootstrap: %v", err)
	}

	room, _ := s.Room(ctx, 2)
	if room.CorrectCode != "4242" {
		t.Errorf("bootstrap overwrote room content: %q", room.CorrectCode)
	}
	got, _ := s.Config(ctx)
	if got.AdminPasswordHash != "hash" {
		t.Errorf("bootstrap overwrote config: %q", got.AdminPasswordHash)
	}
	slots, _ := s.Slots(ctx)
	if len(slots) != 6 {
		t.Errorf("expected 6 slots, got %d", len(slots))
	}
}

func TestDeleteTeamCascades(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	if err := s.InitSlots(ctx, 3); err != nil {
		t.Fatalf("init slots: %v", err)
	}
	seedTeam(t, s, "t1", "Owls", 2, escape.TeamActive)
	seedTeam(t, s, "t2", "Bats", 2, escape.TeamWaiting)

	id := "t1"
	started := testNow
	if err := s.PutSlot(ctx, escape.ActiveRoomSlot{RoomNumber: 2, CurrentTeamID: &id, TimerStarted: &started}); err != nil {
		t.Fatalf("put slot: %v", err)
	}
	if err := s.PutProgress(ctx, escape.ProgressRecord{TeamID: "t1", RoomNumber: 2}); err != nil {
		t.Fatalf("put progress: %v", err)
	}
	if err := s.PutLeaderboardEntry(ctx, escape.LeaderboardEntry{TeamID: "t1"}); err != nil {
		t.Fatalf("put entry: %v", err)
	}

	if err := s.DeleteTeam(ctx, "t1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := s.Team(ctx, "t1"); !errors.Is(err, escape.ErrNotFound) {
		t.Errorf("expected team gone, got %v", err)
	}
	if _, err := s.Progress(ctx, "t1", 2); !errors.Is(err, escape.ErrNotFound) {
		t.Errorf("expected progress gone, got %v", err)
	}
	if _, err := s.LeaderboardEntry(ctx, "t1"); !errors.Is(err, escape.ErrNotFound) {
		t.Errorf("expected entry gone, got %v", err)
	}
	slot, _ := s.Slot(ctx, 2)
	if slot.Occupied() || slot.TimerStarted != nil {
		t.Errorf("expected slot released, got %+v", slot)
	}
	if _, err := s.Team(ctx, "t2"); err != nil {
		t.Errorf("other team should survive: %v", err)
	}
	if err := s.DeleteTeam(ctx, "t1"); !errors.Is(err, escape.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestResetAllProgress(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	start := testNow
	team := seedTeam(t, s, "t1", "Owls", 4, escape.TeamEliminated)
	team.SessionStartTime = &start
	team.TotalTime = 99
	s.PutTeam(ctx, team)
	s.PutProgress(ctx, escape.ProgressRecord{TeamID: "t1", RoomNumber: 3, Status: escape.ProgressCompleted})

	if err := s.ResetAllProgress(ctx, 6); err != nil {
		t.Fatalf("reset: %v", err)
	}

	got, _ := s.Team(ctx, "t1")
	if got.CurrentRoom != 1 || got.Status != escape.TeamWaiting || got.SessionStartTime != nil || got.TotalTime != 0 {
		t.Errorf("team not reset: %+v", got)
	}
	history, _ := s.TeamProgress(ctx, "t1")
	if len(history) != 0 {
		t.Errorf("expected no progress, got %d", len(history))
	}
}

func TestResetAllClearsEverything(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	seedTeam(t, s, "t1", "Owls", 2, escape.TeamWaiting)
	s.PutLeaderboardEntry(ctx, escape.LeaderboardEntry{TeamID: "t1"})

	if err := s.ResetAll(ctx, 6); err != nil {
		t.Fatalf("reset all: %v", err)
	}
	teams, _ := s.Teams(ctx)
	entries, _ := s.LeaderboardEntries(ctx)
	if len(teams) != 0 || len(entries) != 0 {
		t.Errorf("expected empty, got %d teams %d entries", len(teams), len(entries))
	}
}

func TestAdminSessions(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateAdminSession(ctx, "sess", testNow.Add(time.Hour)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if ok, err := s.AdminSessionValid(ctx, "sess", testNow); err != nil || !ok {
		t.Fatalf("expected valid session, got %v %v", ok, err)
	}
	if ok, _ := s.AdminSessionValid(ctx, "sess", testNow.Add(2*time.Hour)); ok {
		t.Error("expected expired session")
	}
	if err := s.DeleteAdminSession(ctx, "sess"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ := s.AdminSessionValid(ctx, "sess", testNow); ok {
		t.Error("expected deleted session")
	}
}
