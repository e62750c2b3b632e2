package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/playperu/escaperoom/internal/escape"
)

// Bulk administrative operations. They bypass the game services on
// purpose and run as single transactions.

func (s *DocStore) txn(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable(op, err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		s.logger.Error("store transaction failed", "op", op, "error", err)
		return err
	}
	if err := tx.Commit(); err != nil {
		return unavailable(op, err)
	}
	return nil
}

func exec(ctx context.Context, tx *sql.Tx, query string, args ...any) error {
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return unavailable("exec", err)
	}
	return nil
}

func idleSlot(n int) escape.ActiveRoomSlot {
	return escape.ActiveRoomSlot{RoomNumber: n}
}

func resetSlots(ctx context.Context, tx *sql.Tx, totalRooms int) error {
	for n := 1; n <= totalRooms; n++ {
		if err := put(ctx, tx, ActiveRooms, roomID(n), idleSlot(n)); err != nil {
			return err
		}
	}
	return nil
}

func (s *DocStore) announceReset(collections ...string) {
	for _, c := range collections {
		s.publish(Change{Collection: c, Op: OpReset})
	}
}

// InitSlots returns every room slot 1..totalRooms to idle.
func (s *DocStore) InitSlots(ctx context.Context, totalRooms int) error {
	err := s.txn(ctx, "init slots", func(tx *sql.Tx) error {
		return resetSlots(ctx, tx, totalRooms)
	})
	if err == nil {
		s.announceReset(ActiveRooms)
	}
	return err
}

// Bootstrap creates whatever is missing for a fresh event: room content,
// idle slots and the config document. Existing documents are untouched.
func (s *DocStore) Bootstrap(ctx context.Context, rooms []escape.Room, cfg escape.Config) error {
	created := false
	err := s.txn(ctx, "bootstrap", func(tx *sql.Tx) error {
		for _, r := range rooms {
			ok, err := missing(ctx, tx, Rooms, roomID(r.RoomNumber))
			if err != nil {
				return err
			}
			if ok {
				created = true
				if err := put(ctx, tx, Rooms, roomID(r.RoomNumber), r); err != nil {
					return err
				}
			}
			ok, err = missing(ctx, tx, ActiveRooms, roomID(r.RoomNumber))
			if err != nil {
				return err
			}
			if ok {
				created = true
				if err := put(ctx, tx, ActiveRooms, roomID(r.RoomNumber), idleSlot(r.RoomNumber)); err != nil {
					return err
				}
			}
		}
		ok, err := missing(ctx, tx, Config, configID)
		if err != nil {
			return err
		}
		if ok {
			created = true
			return put(ctx, tx, Config, configID, cfg)
		}
		return nil
	})
	if err == nil && created {
		s.announceReset(Rooms, ActiveRooms, Config)
	}
	return err
}

func missing(ctx context.Context, tx *sql.Tx, collection, id string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT 1 FROM %s WHERE id = ?`, tables[collection]), id,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, unavailable("exists", err)
	}
	return false, nil
}

// ResetAllTeamData deletes every team and ledger and idles all rooms.
func (s *DocStore) ResetAllTeamData(ctx context.Context, totalRooms int) error {
	err := s.txn(ctx, "reset team data", func(tx *sql.Tx) error {
		if err := exec(ctx, tx, `DELETE FROM teams`); err != nil {
			return err
		}
		if err := exec(ctx, tx, `DELETE FROM team_progress`); err != nil {
			return err
		}
		return resetSlots(ctx, tx, totalRooms)
	})
	if err == nil {
		s.announceReset(Teams, Progress, ActiveRooms)
	}
	return err
}

// ResetAllProgress keeps teams but clears their ledgers, sends everyone
// back to room 1 and idles all rooms.
func (s *DocStore) ResetAllProgress(ctx context.Context, totalRooms int) error {
	err := s.txn(ctx, "reset progress", func(tx *sql.Tx) error {
		if err := exec(ctx, tx, `DELETE FROM team_progress`); err != nil {
			return err
		}
		teams, err := listDocs[escape.Team](ctx, tx, `SELECT json(data) FROM teams`)
		if err != nil {
			return err
		}
		for _, t := range teams {
			t.CurrentRoom = 1
			t.Status = escape.TeamWaiting
			t.TotalTime = 0
			t.SessionStartTime = nil
			if err := put(ctx, tx, Teams, t.ID, t); err != nil {
				return err
			}
		}
		return resetSlots(ctx, tx, totalRooms)
	})
	if err == nil {
		s.announceReset(Teams, Progress, ActiveRooms)
	}
	return err
}

func (s *DocStore) ResetLeaderboard(ctx context.Context) error {
	err := s.txn(ctx, "reset leaderboard", func(tx *sql.Tx) error {
		return exec(ctx, tx, `DELETE FROM leaderboard`)
	})
	if err == nil {
		s.announceReset(Leaderboard)
	}
	return err
}

// ResetAll clears team data and the leaderboard together.
func (s *DocStore) ResetAll(ctx context.Context, totalRooms int) error {
	if err := s.ResetAllTeamData(ctx, totalRooms); err != nil {
		return err
	}
	return s.ResetLeaderboard(ctx)
}

// DeleteTeam removes a team with its ledgers and leaderboard entry and
// releases any room it holds.
func (s *DocStore) DeleteTeam(ctx context.Context, teamID string) error {
	var released []string
	err := s.txn(ctx, "delete team", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM teams WHERE id = ?`, teamID)
		if err != nil {
			return unavailable("delete team", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("team %q: %w", teamID, escape.ErrNotFound)
		}
		if err := exec(ctx, tx, `DELETE FROM team_progress WHERE team_id = ?`, teamID); err != nil {
			return err
		}
		if err := exec(ctx, tx, `DELETE FROM leaderboard WHERE id = ?`, teamID); err != nil {
			return err
		}

		slots, err := listDocs[escape.ActiveRoomSlot](ctx, tx, `SELECT json(data) FROM active_rooms`)
		if err != nil {
			return err
		}
		for _, slot := range slots {
			if !slot.HeldBy(teamID) {
				continue
			}
			slot.CurrentTeamID = nil
			slot.TimerStarted = nil
			slot.TimerPaused = false
			slot.TimerPausedAt = nil
			if err := put(ctx, tx, ActiveRooms, roomID(slot.RoomNumber), slot); err != nil {
				return err
			}
			released = append(released, roomID(slot.RoomNumber))
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(
		Change{Collection: Teams, ID: teamID, Op: OpDelete},
		Change{Collection: Leaderboard, ID: teamID, Op: OpDelete},
		Change{Collection: Progress, Op: OpReset},
	)
	for _, id := range released {
		s.publish(Change{Collection: ActiveRooms, ID: id, Op: OpPut})
	}
	return nil
}

// Admin sessions

func (s *DocStore) CreateAdminSession(ctx context.Context, id string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO admin_sessions (id, expires_at) VALUES (?, ?)`,
		id, expiresAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return unavailable("create admin session", err)
	}
	return nil
}

// AdminSessionValid reports whether id names an unexpired session.
func (s *DocStore) AdminSessionValid(ctx context.Context, id string, now time.Time) (bool, error) {
	var expires string
	err := s.db.QueryRowContext(ctx,
		`SELECT expires_at FROM admin_sessions WHERE id = ?`, id,
	).Scan(&expires)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, unavailable("admin session", err)
	}
	t, err := time.Parse(time.RFC3339, expires)
	if err != nil {
		return false, fmt.Errorf("parsing session expiry: %w", err)
	}
	return now.Before(t), nil
}

func (s *DocStore) DeleteAdminSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM admin_sessions WHERE id = ?`, id); err != nil {
		return unavailable("delete admin session", err)
	}
	return nil
}
