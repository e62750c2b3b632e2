package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/playperu/escaperoom/internal/escape"
)

// Tracker owns the per-(team, room) attempt ledgers.
type Tracker struct {
	store Store
	clock escape.Clock
}

func NewTracker(s Store, clock escape.Clock) *Tracker {
	return &Tracker{store: s, clock: clock}
}

// Create writes a fresh not-started ledger, overwriting any previous one.
func (t *Tracker) Create(ctx context.Context, teamID string, roomNumber, maxAttempts int) (escape.ProgressRecord, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	p := escape.ProgressRecord{
		ID:                escape.ProgressID(teamID, roomNumber),
		TeamID:            teamID,
		RoomNumber:        roomNumber,
		Attempts:          []escape.AttemptRecord{},
		AttemptsRemaining: maxAttempts,
		Status:            escape.ProgressNotStarted,
	}
	if err := t.store.PutProgress(ctx, p); err != nil {
		return escape.ProgressRecord{}, fmt.Errorf("create progress: %w", err)
	}
	return p, nil
}

// Start moves a ledger to in-progress. Starting an in-progress ledger
// keeps its original start time.
func (t *Tracker) Start(ctx context.Context, teamID string, roomNumber int) (escape.ProgressRecord, error) {
	return t.store.ModifyProgress(ctx, teamID, roomNumber, func(p *escape.ProgressRecord) error {
		switch {
		case p.Status.Terminal():
			return escape.ErrProgressClosed
		case p.Status == escape.ProgressInProgress && p.StartTime != nil:
			return nil
		}
		now := t.clock.Now()
		p.StartTime = &now
		p.Status = escape.ProgressInProgress
		return nil
	})
}

// RecordAttempt appends one attempt. An incorrect attempt costs exactly
// one from the remaining budget. Terminal ledgers are frozen.
func (t *Tracker) RecordAttempt(ctx context.Context, teamID string, roomNumber int, code string, correct bool) (escape.ProgressRecord, error) {
	return t.store.ModifyProgress(ctx, teamID, roomNumber, func(p *escape.ProgressRecord) error {
		if p.Status.Terminal() {
			return escape.ErrProgressClosed
		}
		if !correct && p.AttemptsRemaining <= 0 {
			return escape.ErrNoAttemptsLeft
		}
		p.Attempts = append(p.Attempts, escape.AttemptRecord{
			Code:      code,
			Timestamp: t.clock.Now(),
			Correct:   correct,
		})
		if !correct {
			p.AttemptsRemaining--
		}
		return nil
	})
}

// Complete closes the ledger as solved.
func (t *Tracker) Complete(ctx context.Context, teamID string, roomNumber, timeElapsed int) (escape.ProgressRecord, error) {
	return t.finish(ctx, teamID, roomNumber, escape.ProgressCompleted, timeElapsed)
}

// Fail closes the ledger as lost.
func (t *Tracker) Fail(ctx context.Context, teamID string, roomNumber, timeElapsed int) (escape.ProgressRecord, error) {
	return t.finish(ctx, teamID, roomNumber, escape.ProgressFailed, timeElapsed)
}

// finish writes the terminal fields. Repeating the same outcome rewrites
// them; a ledger already closed with the other outcome is returned as is,
// so callers compare the returned status to learn who won a race.
func (t *Tracker) finish(ctx context.Context, teamID string, roomNumber int, status escape.ProgressStatus, timeElapsed int) (escape.ProgressRecord, error) {
	p, err := t.store.ModifyProgress(ctx, teamID, roomNumber, func(p *escape.ProgressRecord) error {
		if p.Status.Terminal() && p.Status != status {
			return errSettled
		}
		now := t.clock.Now()
		p.Status = status
		p.EndTime = &now
		p.TimeElapsed = max(0, timeElapsed)
		return nil
	})
	if errors.Is(err, errSettled) {
		return t.store.Progress(ctx, teamID, roomNumber)
	}
	return p, err
}

var errSettled = errors.New("progress settled")

func (t *Tracker) Get(ctx context.Context, teamID string, roomNumber int) (escape.ProgressRecord, error) {
	return t.store.Progress(ctx, teamID, roomNumber)
}

// History lists every ledger of a team in room order.
func (t *Tracker) History(ctx context.Context, teamID string) ([]escape.ProgressRecord, error) {
	return t.store.TeamProgress(ctx, teamID)
}
