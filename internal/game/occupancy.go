package game

import (
	"context"
	"errors"

	"github.com/playperu/escaperoom/internal/escape"
)

// Coordinator manages the single-occupant slot and countdown of each room.
type Coordinator struct {
	store Store
	clock escape.Clock
}

func NewCoordinator(s Store, clock escape.Clock) *Coordinator {
	return &Coordinator{store: s, clock: clock}
}

func (c *Coordinator) Slot(ctx context.Context, roomNumber int) (escape.ActiveRoomSlot, error) {
	return c.store.Slot(ctx, roomNumber)
}

// Occupy claims an idle room for teamID. Re-claiming a room the team
// already holds succeeds and leaves its timer alone; a room held by
// another team fails with ErrRoomOccupied.
func (c *Coordinator) Occupy(ctx context.Context, roomNumber int, teamID string) (escape.ActiveRoomSlot, error) {
	return c.store.ModifySlot(ctx, roomNumber, func(s *escape.ActiveRoomSlot) error {
		if s.HeldBy(teamID) {
			return nil
		}
		if s.Occupied() {
			return escape.ErrRoomOccupied
		}
		occupy(s, teamID)
		return nil
	})
}

// Assign is the operator override: it seats teamID whoever held the room.
func (c *Coordinator) Assign(ctx context.Context, roomNumber int, teamID string) (escape.ActiveRoomSlot, error) {
	return c.store.ModifySlot(ctx, roomNumber, func(s *escape.ActiveRoomSlot) error {
		if !s.HeldBy(teamID) {
			occupy(s, teamID)
		}
		return nil
	})
}

func occupy(s *escape.ActiveRoomSlot, teamID string) {
	id := teamID
	s.CurrentTeamID = &id
	clearTimer(s)
}

func clearTimer(s *escape.ActiveRoomSlot) {
	s.TimerStarted = nil
	s.TimerPaused = false
	s.TimerPausedAt = nil
}

// StartTimer (re)starts the countdown from now.
func (c *Coordinator) StartTimer(ctx context.Context, roomNumber int) (escape.ActiveRoomSlot, error) {
	return c.store.ModifySlot(ctx, roomNumber, func(s *escape.ActiveRoomSlot) error {
		now := c.clock.Now()
		s.TimerStarted = &now
		s.TimerPaused = false
		s.TimerPausedAt = nil
		return nil
	})
}

// Pause freezes the countdown at the current remaining time.
func (c *Coordinator) Pause(ctx context.Context, roomNumber int) (escape.ActiveRoomSlot, error) {
	return c.store.ModifySlot(ctx, roomNumber, func(s *escape.ActiveRoomSlot) error {
		if s.TimerPaused {
			return nil
		}
		s.TimerPaused = true
		if s.TimerStarted != nil {
			now := c.clock.Now()
			s.TimerPausedAt = &now
		}
		return nil
	})
}

// Resume continues a paused countdown from where it froze.
func (c *Coordinator) Resume(ctx context.Context, roomNumber int) (escape.ActiveRoomSlot, error) {
	return c.store.ModifySlot(ctx, roomNumber, func(s *escape.ActiveRoomSlot) error {
		if !s.TimerPaused {
			return nil
		}
		s.TimerStarted = escape.Resume(s.Timer(), c.clock.Now())
		s.TimerPaused = false
		s.TimerPausedAt = nil
		return nil
	})
}

// ResetTimer returns the countdown to not started.
func (c *Coordinator) ResetTimer(ctx context.Context, roomNumber int) (escape.ActiveRoomSlot, error) {
	return c.store.ModifySlot(ctx, roomNumber, func(s *escape.ActiveRoomSlot) error {
		clearTimer(s)
		return nil
	})
}

// TriggerReplay bumps the replay counter; narration listeners re-speak.
func (c *Coordinator) TriggerReplay(ctx context.Context, roomNumber int) (escape.ActiveRoomSlot, error) {
	return c.store.ModifySlot(ctx, roomNumber, func(s *escape.ActiveRoomSlot) error {
		s.ManualTTSTrigger++
		return nil
	})
}

// Release returns the room to idle.
func (c *Coordinator) Release(ctx context.Context, roomNumber int) (escape.ActiveRoomSlot, error) {
	return c.store.ModifySlot(ctx, roomNumber, func(s *escape.ActiveRoomSlot) error {
		s.CurrentTeamID = nil
		clearTimer(s)
		return nil
	})
}

// ReleaseIfHeld idles the room only while teamID still holds it, so a
// late finish never evicts the next occupant.
func (c *Coordinator) ReleaseIfHeld(ctx context.Context, roomNumber int, teamID string) (bool, error) {
	released := false
	_, err := c.store.ModifySlot(ctx, roomNumber, func(s *escape.ActiveRoomSlot) error {
		if !s.HeldBy(teamID) {
			return errSettled
		}
		s.CurrentTeamID = nil
		clearTimer(s)
		released = true
		return nil
	})
	if errors.Is(err, errSettled) {
		return false, nil
	}
	return released, err
}
