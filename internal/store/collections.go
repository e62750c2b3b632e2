package store

import (
	"cmp"
	"context"
	"slices"
	"strconv"

	"github.com/playperu/escaperoom/internal/escape"
)

func roomID(n int) string { return strconv.Itoa(n) }

// Teams

func (s *DocStore) Team(ctx context.Context, id string) (escape.Team, error) {
	return getDoc[escape.Team](ctx, s.db, Teams, id)
}

// Teams returns every team, newest first.
func (s *DocStore) Teams(ctx context.Context) ([]escape.Team, error) {
	teams, err := listDocs[escape.Team](ctx, s.db, `SELECT json(data) FROM teams`)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(teams, func(a, b escape.Team) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return teams, nil
}

// TeamsByRoom returns teams eligible to enter room: currently assigned
// to it and waiting or active.
func (s *DocStore) TeamsByRoom(ctx context.Context, roomNumber int) ([]escape.Team, error) {
	teams, err := listDocs[escape.Team](ctx, s.db,
		`SELECT json(data) FROM teams
		 WHERE json_extract(data, '$.currentRoom') = ?
		   AND json_extract(data, '$.status') IN ('waiting', 'active')`,
		roomNumber,
	)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(teams, func(a, b escape.Team) int { return cmp.Compare(a.Name, b.Name) })
	return teams, nil
}

func (s *DocStore) PutTeam(ctx context.Context, t escape.Team) error {
	return s.putDoc(ctx, Teams, t.ID, t)
}

func (s *DocStore) ModifyTeam(ctx context.Context, id string, fn func(*escape.Team) error) (escape.Team, error) {
	return modify(ctx, s, Teams, id, fn)
}

// Rooms

func (s *DocStore) Room(ctx context.Context, n int) (escape.Room, error) {
	return getDoc[escape.Room](ctx, s.db, Rooms, roomID(n))
}

// Rooms returns room content in display sequence.
func (s *DocStore) Rooms(ctx context.Context) ([]escape.Room, error) {
	return listDocs[escape.Room](ctx, s.db, `SELECT json(data) FROM rooms ORDER BY sequence, CAST(id AS INTEGER)`)
}

func (s *DocStore) PutRoom(ctx context.Context, r escape.Room) error {
	return s.putDoc(ctx, Rooms, roomID(r.RoomNumber), r)
}

func (s *DocStore) ModifyRoom(ctx context.Context, n int, fn func(*escape.Room) error) (escape.Room, error) {
	return modify(ctx, s, Rooms, roomID(n), fn)
}

// Active room slots

func (s *DocStore) Slot(ctx context.Context, n int) (escape.ActiveRoomSlot, error) {
	return getDoc[escape.ActiveRoomSlot](ctx, s.db, ActiveRooms, roomID(n))
}

func (s *DocStore) Slots(ctx context.Context) ([]escape.ActiveRoomSlot, error) {
	return listDocs[escape.ActiveRoomSlot](ctx, s.db, `SELECT json(data) FROM active_rooms ORDER BY CAST(id AS INTEGER)`)
}

func (s *DocStore) PutSlot(ctx context.Context, slot escape.ActiveRoomSlot) error {
	return s.putDoc(ctx, ActiveRooms, roomID(slot.RoomNumber), slot)
}

func (s *DocStore) ModifySlot(ctx context.Context, n int, fn func(*escape.ActiveRoomSlot) error) (escape.ActiveRoomSlot, error) {
	return modify(ctx, s, ActiveRooms, roomID(n), fn)
}

// Progress

func (s *DocStore) Progress(ctx context.Context, teamID string, roomNumber int) (escape.ProgressRecord, error) {
	return getDoc[escape.ProgressRecord](ctx, s.db, Progress, escape.ProgressID(teamID, roomNumber))
}

// TeamProgress returns a team's ledgers ordered by room.
func (s *DocStore) TeamProgress(ctx context.Context, teamID string) ([]escape.ProgressRecord, error) {
	return listDocs[escape.ProgressRecord](ctx, s.db,
		`SELECT json(data) FROM team_progress WHERE team_id = ? ORDER BY room_number`, teamID,
	)
}

func (s *DocStore) PutProgress(ctx context.Context, p escape.ProgressRecord) error {
	p.ID = escape.ProgressID(p.TeamID, p.RoomNumber)
	return s.putDoc(ctx, Progress, p.ID, p)
}

func (s *DocStore) ModifyProgress(ctx context.Context, teamID string, roomNumber int, fn func(*escape.ProgressRecord) error) (escape.ProgressRecord, error) {
	return modify(ctx, s, Progress, escape.ProgressID(teamID, roomNumber), fn)
}

// Leaderboard

func (s *DocStore) LeaderboardEntry(ctx context.Context, teamID string) (escape.LeaderboardEntry, error) {
	return getDoc[escape.LeaderboardEntry](ctx, s.db, Leaderboard, teamID)
}

// LeaderboardEntries returns entries unordered; ranking happens at read time.
func (s *DocStore) LeaderboardEntries(ctx context.Context) ([]escape.LeaderboardEntry, error) {
	return listDocs[escape.LeaderboardEntry](ctx, s.db, `SELECT json(data) FROM leaderboard`)
}

func (s *DocStore) PutLeaderboardEntry(ctx context.Context, e escape.LeaderboardEntry) error {
	return s.putDoc(ctx, Leaderboard, e.TeamID, e)
}

func (s *DocStore) ModifyLeaderboardEntry(ctx context.Context, teamID string, fn func(*escape.LeaderboardEntry) error) (escape.LeaderboardEntry, error) {
	return modify(ctx, s, Leaderboard, teamID, fn)
}

// Config

func (s *DocStore) Config(ctx context.Context) (escape.Config, error) {
	return getDoc[escape.Config](ctx, s.db, Config, configID)
}

func (s *DocStore) ModifyConfig(ctx context.Context, fn func(*escape.Config) error) (escape.Config, error) {
	return modify(ctx, s, Config, configID, fn)
}
