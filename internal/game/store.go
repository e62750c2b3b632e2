// Package game holds the escape-room services: the attempt tracker, the
// room occupancy coordinator, the leaderboard ranker, the per-room session
// state machine, the timeout watcher and narration. Services share state
// only through the Store.
package game

import (
	"context"
	"time"

	"github.com/playperu/escaperoom/internal/escape"
)

// Store is the document store the game services read and write.
// *store.DocStore implements it; modify callbacks run inside one
// serialized transaction per document.
type Store interface {
	Team(ctx context.Context, id string) (escape.Team, error)
	Teams(ctx context.Context) ([]escape.Team, error)
	TeamsByRoom(ctx context.Context, roomNumber int) ([]escape.Team, error)
	PutTeam(ctx context.Context, t escape.Team) error
	ModifyTeam(ctx context.Context, id string, fn func(*escape.Team) error) (escape.Team, error)

	Room(ctx context.Context, n int) (escape.Room, error)
	Rooms(ctx context.Context) ([]escape.Room, error)
	ModifyRoom(ctx context.Context, n int, fn func(*escape.Room) error) (escape.Room, error)

	Slot(ctx context.Context, n int) (escape.ActiveRoomSlot, error)
	Slots(ctx context.Context) ([]escape.ActiveRoomSlot, error)
	ModifySlot(ctx context.Context, n int, fn func(*escape.ActiveRoomSlot) error) (escape.ActiveRoomSlot, error)

	Progress(ctx context.Context, teamID string, roomNumber int) (escape.ProgressRecord, error)
	TeamProgress(ctx context.Context, teamID string) ([]escape.ProgressRecord, error)
	PutProgress(ctx context.Context, p escape.ProgressRecord) error
	ModifyProgress(ctx context.Context, teamID string, roomNumber int, fn func(*escape.ProgressRecord) error) (escape.ProgressRecord, error)

	LeaderboardEntry(ctx context.Context, teamID string) (escape.LeaderboardEntry, error)
	LeaderboardEntries(ctx context.Context) ([]escape.LeaderboardEntry, error)
	PutLeaderboardEntry(ctx context.Context, e escape.LeaderboardEntry) error
	ModifyLeaderboardEntry(ctx context.Context, teamID string, fn func(*escape.LeaderboardEntry) error) (escape.LeaderboardEntry, error)

	Config(ctx context.Context) (escape.Config, error)
	ModifyConfig(ctx context.Context, fn func(*escape.Config) error) (escape.Config, error)
}

// AdminStore adds the bulk operations that bypass the game invariants.
type AdminStore interface {
	Store

	Bootstrap(ctx context.Context, rooms []escape.Room, cfg escape.Config) error
	InitSlots(ctx context.Context, totalRooms int) error
	ResetAllTeamData(ctx context.Context, totalRooms int) error
	ResetAllProgress(ctx context.Context, totalRooms int) error
	ResetLeaderboard(ctx context.Context) error
	ResetAll(ctx context.Context, totalRooms int) error
	DeleteTeam(ctx context.Context, teamID string) error

	CreateAdminSession(ctx context.Context, id string, expiresAt time.Time) error
	AdminSessionValid(ctx context.Context, id string, now time.Time) (bool, error)
	DeleteAdminSession(ctx context.Context, id string) error
}
