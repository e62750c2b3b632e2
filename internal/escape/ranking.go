package escape

import (
	"slices"
	"time"
)

// Standing is a leaderboard entry with its 1-based position.
type Standing struct {
	Rank int `json:"rank"`
	LeaderboardEntry
}

// compareEntries is the leaderboard order: higher level first, then the
// earlier session start; a team without a session sorts last. Team ID
// breaks any remaining tie so the order is total.
func compareEntries(a, b LeaderboardEntry) int {
	if a.CurrentLevel != b.CurrentLevel {
		if a.CurrentLevel > b.CurrentLevel {
			return -1
		}
		return 1
	}
	if c := compareSession(a.SessionStartTime, b.SessionStartTime); c != 0 {
		return c
	}
	switch {
	case a.TeamID < b.TeamID:
		return -1
	case a.TeamID > b.TeamID:
		return 1
	}
	return 0
}

func compareSession(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return a.Compare(*b)
}

// Rank sorts a copy of entries into leaderboard order.
func Rank(entries []LeaderboardEntry) []Standing {
	sorted := slices.Clone(entries)
	slices.SortFunc(sorted, compareEntries)

	out := make([]Standing, len(sorted))
	for i, e := range sorted {
		out[i] = Standing{Rank: i + 1, LeaderboardEntry: e}
	}
	return out
}

// Project derives a team's leaderboard entry from its current state and
// progress ledgers.
func Project(team Team, progress []ProgressRecord, now time.Time) LeaderboardEntry {
	total := 0
	for _, p := range progress {
		if p.TeamID == team.ID && p.Status == ProgressCompleted {
			total += len(p.Attempts)
		}
	}
	return LeaderboardEntry{
		TeamID:           team.ID,
		TeamName:         team.Name,
		CurrentLevel:     team.CurrentRoom,
		RoomsCompleted:   max(0, team.CurrentRoom-1),
		TotalAttempts:    total,
		SessionStartTime: team.SessionStartTime,
		LastUpdated:      now,
	}
}
