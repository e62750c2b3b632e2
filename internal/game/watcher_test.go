package game

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playperu/escaperoom/internal/escape"
)

// countingHandler wraps the machine and counts timeout calls.
type countingHandler struct {
	mu    sync.Mutex
	calls int
	next  TimeoutHandler
}

func (h *countingHandler) Timeout(ctx context.Context, room int, team string) (View, error) {
	h.mu.Lock()
	h.calls++
	h.mu.Unlock()
	return h.next.Timeout(ctx, room, team)
}

// Scenario B.
func TestWatcherFiresOncePerCycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.editRoom(t, 2, func(r *escape.Room) { r.TimerDuration = 60 })
	f.team(t, "owls", 2)
	_, err := f.machine.SelectTeam(ctx, 2, "owls", "1234")
	require.NoError(t, err)

	h := &countingHandler{next: f.machine}
	w := NewWatcher(f.store, h, f.clock, slog.New(slog.DiscardHandler))

	f.clock.Advance(59 * time.Second)
	n, err := w.Poll(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.clock.Advance(time.Second)
	n, err = w.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	for range 50 {
		f.clock.Advance(100 * time.Millisecond)
		n, err := w.Poll(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	}
	assert.Equal(t, 1, h.calls)

	team, err := f.store.Team(ctx, "owls")
	require.NoError(t, err)
	assert.Equal(t, escape.TeamEliminated, team.Status)

	p, err := f.store.Progress(ctx, "owls", 2)
	require.NoError(t, err)
	assert.Equal(t, escape.ProgressFailed, p.Status)
}

func TestWatcherSkipsPausedAndUntimedRooms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.team(t, "owls", escape.BasecampRoom)
	f.team(t, "bats", 2)
	_, err := f.machine.SelectTeam(ctx, escape.BasecampRoom, "owls", "1234")
	require.NoError(t, err)
	_, err = f.machine.SelectTeam(ctx, 2, "bats", "1234")
	require.NoError(t, err)
	_, err = f.admin.ControlSlot(ctx, 2, ActionPause)
	require.NoError(t, err)

	w := NewWatcher(f.store, f.machine, f.clock, slog.New(slog.DiscardHandler))
	f.clock.Advance(24 * time.Hour)
	n, err := w.Poll(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWatcherFiresAgainForNewCycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.editRoom(t, 2, func(r *escape.Room) { r.TimerDuration = 30 })
	f.team(t, "owls", 2)
	f.team(t, "bats", 2)

	h := &countingHandler{next: f.machine}
	w := NewWatcher(f.store, h, f.clock, slog.New(slog.DiscardHandler))

	_, err := f.machine.SelectTeam(ctx, 2, "owls", "1234")
	require.NoError(t, err)
	f.clock.Advance(30 * time.Second)
	_, err = w.Poll(ctx)
	require.NoError(t, err)

	_, err = f.machine.SelectTeam(ctx, 2, "bats", "1234")
	require.NoError(t, err)
	f.clock.Advance(30 * time.Second)
	n, err := w.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, h.calls)
	assert.Len(t, w.fired, 1)
}
