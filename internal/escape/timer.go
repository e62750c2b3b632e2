package escape

import "time"

// TimerState is the countdown portion of an ActiveRoomSlot.
type TimerState struct {
	Started  *time.Time
	Paused   bool
	PausedAt *time.Time
}

// Remaining computes the seconds left on a countdown of duration seconds.
//
// An unstarted timer shows the full duration. A paused timer is frozen at
// the moment it was paused; a paused timer without a pause instant (legacy
// documents) shows the full duration. Untimed rooms always report 0.
func Remaining(ts TimerState, duration int, now time.Time) int {
	if duration <= 0 {
		return 0
	}
	if ts.Started == nil {
		return duration
	}
	if ts.Paused && ts.PausedAt == nil {
		return duration
	}
	return max(0, duration-Elapsed(ts, now))
}

// Elapsed returns whole seconds of running time since the timer started,
// excluding the current pause if any. It is 0 for an unstarted timer.
func Elapsed(ts TimerState, now time.Time) int {
	if ts.Started == nil {
		return 0
	}
	ref := now
	if ts.Paused && ts.PausedAt != nil {
		ref = *ts.PausedAt
	}
	d := ref.Sub(*ts.Started)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}

// Resume returns the start instant shifted forward by the paused span so
// Elapsed continues from where the pause froze it.
func Resume(ts TimerState, now time.Time) *time.Time {
	if ts.Started == nil {
		return nil
	}
	if ts.PausedAt == nil {
		s := *ts.Started
		return &s
	}
	shifted := ts.Started.Add(now.Sub(*ts.PausedAt))
	return &shifted
}
