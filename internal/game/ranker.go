package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/playperu/escaperoom/internal/escape"
)

// Ranker maintains the leaderboard projection.
type Ranker struct {
	store  Store
	clock  escape.Clock
	logger *slog.Logger
}

func NewRanker(s Store, clock escape.Clock, logger *slog.Logger) *Ranker {
	return &Ranker{store: s, clock: clock, logger: logger}
}

// Recompute rebuilds one team's entry from its team document and ledgers.
// A non-empty teamName overrides the stored name.
func (r *Ranker) Recompute(ctx context.Context, teamID, teamName string) (escape.LeaderboardEntry, error) {
	team, err := r.store.Team(ctx, teamID)
	if err != nil {
		return escape.LeaderboardEntry{}, fmt.Errorf("recompute %s: %w", teamID, err)
	}
	progress, err := r.store.TeamProgress(ctx, teamID)
	if err != nil {
		return escape.LeaderboardEntry{}, fmt.Errorf("recompute %s: %w", teamID, err)
	}

	entry := escape.Project(team, progress, r.clock.Now())
	if teamName != "" {
		entry.TeamName = teamName
	}
	if err := r.store.PutLeaderboardEntry(ctx, entry); err != nil {
		return escape.LeaderboardEntry{}, fmt.Errorf("recompute %s: %w", teamID, err)
	}
	return entry, nil
}

// RefreshAll recomputes every team. It keeps going past failures and
// reports them together.
func (r *Ranker) RefreshAll(ctx context.Context) (int, error) {
	teams, err := r.store.Teams(ctx)
	if err != nil {
		return 0, err
	}
	var errs []error
	n := 0
	for _, t := range teams {
		if _, err := r.Recompute(ctx, t.ID, t.Name); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}

// Standings returns the leaderboard in rank order.
func (r *Ranker) Standings(ctx context.Context) ([]escape.Standing, error) {
	entries, err := r.store.LeaderboardEntries(ctx)
	if err != nil {
		return nil, err
	}
	return escape.Rank(entries), nil
}

// EntryOverride carries operator edits; nil fields are left unchanged.
type EntryOverride struct {
	TeamName       *string `json:"teamName,omitempty"`
	CurrentLevel   *int    `json:"currentLevel,omitempty"`
	RoomsCompleted *int    `json:"roomsCompleted,omitempty"`
	TotalAttempts  *int    `json:"totalAttempts,omitempty"`
}

// Override edits an entry directly. The next Recompute or sweep for the
// team replaces the edit.
func (r *Ranker) Override(ctx context.Context, teamID string, o EntryOverride) (escape.LeaderboardEntry, error) {
	return r.store.ModifyLeaderboardEntry(ctx, teamID, func(e *escape.LeaderboardEntry) error {
		if o.TeamName != nil {
			if err := escape.ValidateTeamName(*o.TeamName); err != nil {
				return err
			}
			e.TeamName = *o.TeamName
		}
		for _, v := range []*int{o.CurrentLevel, o.RoomsCompleted, o.TotalAttempts} {
			if v != nil && *v < 0 {
				return &escape.ValidationError{Field: "leaderboard", Message: "values must not be negative"}
			}
		}
		if o.CurrentLevel != nil {
			e.CurrentLevel = *o.CurrentLevel
		}
		if o.RoomsCompleted != nil {
			e.RoomsCompleted = *o.RoomsCompleted
		}
		if o.TotalAttempts != nil {
			e.TotalAttempts = *o.TotalAttempts
		}
		e.LastUpdated = r.clock.Now()
		return nil
	})
}

// Run sweeps the whole leaderboard every interval until ctx ends.
func (r *Ranker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := r.RefreshAll(ctx)
			if err != nil && ctx.Err() == nil {
				r.logger.Warn("leaderboard sweep incomplete", "refreshed", n, "error", err)
				continue
			}
			r.logger.Debug("leaderboard sweep", "refreshed", n)
		}
	}
}
