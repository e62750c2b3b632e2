package game

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/playperu/escaperoom/internal/escape"
)

// TimeoutHandler fails a room's occupant whose countdown ran out.
type TimeoutHandler interface {
	Timeout(ctx context.Context, roomNumber int, teamID string) (View, error)
}

// cycle identifies one countdown: a team's occupancy with a given start.
type cycle struct {
	room    int
	team    string
	started time.Time
}

// Watcher polls every room's countdown and fires a timeout once per
// cycle when it crosses zero.
type Watcher struct {
	store   Store
	handler TimeoutHandler
	clock   escape.Clock
	logger  *slog.Logger

	fired map[cycle]struct{}
}

func NewWatcher(s Store, handler TimeoutHandler, clock escape.Clock, logger *slog.Logger) *Watcher {
	return &Watcher{
		store:   s,
		handler: handler,
		clock:   clock,
		logger:  logger,
		fired:   make(map[cycle]struct{}),
	}
}

// Poll checks every slot once and returns how many timeouts it fired.
// Poll is not safe for concurrent use.
func (w *Watcher) Poll(ctx context.Context) (int, error) {
	slots, err := w.store.Slots(ctx)
	if err != nil {
		return 0, err
	}
	rooms, err := w.store.Rooms(ctx)
	if err != nil {
		return 0, err
	}
	byNumber := make(map[int]escape.Room, len(rooms))
	for _, r := range rooms {
		byNumber[r.RoomNumber] = r
	}

	now := w.clock.Now()
	live := make(map[cycle]struct{}, len(slots))
	fired := 0
	for _, s := range slots {
		room, ok := byNumber[s.RoomNumber]
		if !ok || !room.Timed() || !s.Occupied() || s.TimerStarted == nil {
			continue
		}
		key := cycle{room: s.RoomNumber, team: *s.CurrentTeamID, started: *s.TimerStarted}
		live[key] = struct{}{}

		if escape.Remaining(s.Timer(), room.TimerDuration, now) > 0 {
			continue
		}
		if _, done := w.fired[key]; done {
			continue
		}
		w.fired[key] = struct{}{}

		_, err := w.handler.Timeout(ctx, key.room, key.team)
		switch {
		case err == nil:
			fired++
		case errors.Is(err, escape.ErrNotPlaying), errors.Is(err, escape.ErrTimerRunning):
			// Someone else settled the room first.
		default:
			// Allow the next poll to retry this cycle.
			delete(w.fired, key)
			w.logger.Error("timeout failed", "room", key.room, "team", key.team, "error", err)
		}
	}

	for key := range w.fired {
		if _, ok := live[key]; !ok {
			delete(w.fired, key)
		}
	}
	return fired, nil
}

// Run polls every interval until ctx ends.
func (w *Watcher) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := w.Poll(ctx); err != nil && ctx.Err() == nil {
				w.logger.Warn("timer poll failed", "error", err)
			}
		}
	}
}
