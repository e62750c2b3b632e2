package game

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/playperu/escaperoom/internal/escape"
	"github.com/playperu/escaperoom/internal/store"
)

const testRooms = 6

var testStart = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

// recorder is a Narrator that keeps what it was asked to say.
type recorder struct {
	mu    sync.Mutex
	lines []spoken
}

type spoken struct {
	room      int
	text      string
	interrupt bool
}

func (r *recorder) Speak(_ context.Context, room int, text string, interrupt bool) {
	r.mu.Lock()
	r.lines = append(r.lines, spoken{room, text, interrupt})
	r.mu.Unlock()
}

func (r *recorder) said() []spoken {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]spoken(nil), r.lines...)
}

type fixture struct {
	store    *store.DocStore
	feed     *store.Feed
	clock    *escape.ManualClock
	narrator *recorder
	machine  *Machine
	admin    *Admin
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	feed := store.NewFeed()
	s, err := store.Open(ctx, ":memory:", feed, logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, Bootstrap(ctx, s, testRooms, "letmein", testStart))

	clock := escape.NewManualClock(testStart)
	narrator := &recorder{}
	m, err := NewMachine(&Config{
		Store:      s,
		Clock:      clock,
		Narrator:   narrator,
		Logger:     logger,
		TotalRooms: testRooms,
	})
	require.NoError(t, err)

	return &fixture{
		store:    s,
		feed:     feed,
		clock:    clock,
		narrator: narrator,
		machine:  m,
		admin:    NewAdmin(s, m),
	}
}

// team puts a team with password 1234 directly in room.
func (f *fixture) team(t *testing.T, id string, room int) escape.Team {
	t.Helper()
	team := escape.Team{
		ID:          id,
		Name:        "Team " + id,
		Password:    "1234",
		CurrentRoom: room,
		Status:      escape.TeamWaiting,
		CreatedAt:   testStart,
	}
	require.NoError(t, f.store.PutTeam(context.Background(), team))
	return team
}

// editRoom changes room content for a test.
func (f *fixture) editRoom(t *testing.T, n int, fn func(*escape.Room)) {
	t.Helper()
	_, err := f.store.ModifyRoom(context.Background(), n, func(r *escape.Room) error {
		fn(r)
		return nil
	})
	require.NoError(t, err)
}
