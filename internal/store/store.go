// Package store is the shared session store: JSONB documents in libSQL
// with a push feed of committed changes.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/playperu/escaperoom/internal/database"
	"github.com/playperu/escaperoom/internal/escape"
	"github.com/playperu/escaperoom/internal/migrations"
)

// ErrUnavailable wraps failures of the underlying database.
var ErrUnavailable = errors.New("store unavailable")

var tables = map[string]string{
	Teams:       "teams",
	Rooms:       "rooms",
	Progress:    "team_progress",
	ActiveRooms: "active_rooms",
	Config:      "config",
	Leaderboard: "leaderboard",
}

const configID = "global"

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// DocStore implements the session store over per-collection tables.
type DocStore struct {
	db     *sql.DB
	pub    Publisher
	logger *slog.Logger

	// Writes are serialised in-process; SQLite's busy timeout covers other
	// processes sharing the file.
	mu sync.Mutex
}

// New wraps an already-migrated database. pub may be nil.
func New(db *sql.DB, pub Publisher, logger *slog.Logger) *DocStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DocStore{db: db, pub: pub, logger: logger}
}

// Open connects to the database at path, applies migrations and returns
// a store that owns the connection.
func Open(ctx context.Context, path string, pub Publisher, logger *slog.Logger) (*DocStore, error) {
	db, err := database.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := migrations.Run(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return New(db, pub, logger), nil
}

func (s *DocStore) Close() error { return s.db.Close() }

func (s *DocStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (s *DocStore) publish(changes ...Change) {
	if s.pub == nil {
		return
	}
	for _, c := range changes {
		s.pub.Publish(c)
	}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

func getDoc[T any](ctx context.Context, q querier, collection, id string) (T, error) {
	var doc T
	var data string
	err := q.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT json(data) FROM %s WHERE id = ?`, tables[collection]), id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return doc, fmt.Errorf("%s %q: %w", collection, id, escape.ErrNotFound)
	}
	if err != nil {
		return doc, unavailable("get "+collection, err)
	}
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return doc, fmt.Errorf("decoding %s %q: %w", collection, id, err)
	}
	return doc, nil
}

func listDocs[T any](ctx context.Context, q querier, query string, args ...any) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("list", err)
	}
	defer rows.Close()

	var docs []T
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, unavailable("scan", err)
		}
		var doc T
		if err := json.Unmarshal([]byte(data), &doc); err != nil {
			return nil, fmt.Errorf("decoding document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list", err)
	}
	return docs, nil
}

// put upserts doc, filling the indexed columns each table carries.
func put(ctx context.Context, q querier, collection, id string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding %s %q: %w", collection, id, err)
	}

	switch d := doc.(type) {
	case escape.Room:
		_, err = q.ExecContext(ctx,
			`INSERT INTO rooms (id, sequence, data) VALUES (?, ?, jsonb(?))
			 ON CONFLICT(id) DO UPDATE SET sequence = excluded.sequence, data = excluded.data`,
			id, d.Sequence, string(data),
		)
	case escape.ProgressRecord:
		_, err = q.ExecContext(ctx,
			`INSERT INTO team_progress (id, team_id, room_number, data) VALUES (?, ?, ?, jsonb(?))
			 ON CONFLICT(id) DO UPDATE SET team_id = excluded.team_id, room_number = excluded.room_number, data = excluded.data`,
			id, d.TeamID, d.RoomNumber, string(data),
		)
	default:
		_, err = q.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s (id, data) VALUES (?, jsonb(?))
			 ON CONFLICT(id) DO UPDATE SET data = excluded.data`, tables[collection]),
			id, string(data),
		)
	}
	if err != nil {
		return unavailable("put "+collection, err)
	}
	return nil
}

func (s *DocStore) putDoc(ctx context.Context, collection, id string, doc any) error {
	s.mu.Lock()
	err := put(ctx, s.db, collection, id, doc)
	s.mu.Unlock()
	if err != nil {
		s.logger.Error("store write failed", "collection", collection, "id", id, "error", err)
		return err
	}
	s.publish(Change{Collection: collection, ID: id, Op: OpPut})
	return nil
}

// modify loads a document, applies fn, and saves it in one transaction.
// fn returning an error aborts without writing; fn must not touch the store.
func modify[T any](ctx context.Context, s *DocStore, collection, id string, fn func(*T) error) (T, error) {
	s.mu.Lock()
	doc, err := func() (T, error) {
		var zero T
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return zero, unavailable("begin", err)
		}
		defer tx.Rollback()

		doc, err := getDoc[T](ctx, tx, collection, id)
		if err != nil {
			return zero, err
		}
		if err := fn(&doc); err != nil {
			return zero, err
		}
		if err := put(ctx, tx, collection, id, doc); err != nil {
			return zero, err
		}
		if err := tx.Commit(); err != nil {
			return zero, unavailable("commit", err)
		}
		return doc, nil
	}()
	s.mu.Unlock()

	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			s.logger.Error("store modify failed", "collection", collection, "id", id, "error", err)
		}
		return doc, err
	}
	s.publish(Change{Collection: collection, ID: id, Op: OpPut})
	return doc, nil
}
