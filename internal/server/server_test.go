package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/playperu/escaperoom/internal/escape"
	"github.com/playperu/escaperoom/internal/game"
	"github.com/playperu/escaperoom/internal/store"
)

const (
	testRooms    = 6
	testAdminPwd = "letmein"
)

var testStart = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

type testEnv struct {
	handler http.Handler
	store   *store.DocStore
	feed    *store.Feed
	clock   *escape.ManualClock
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	feed := store.NewFeed()
	s, err := store.Open(ctx, ":memory:", feed, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := game.Bootstrap(ctx, s, testRooms, testAdminPwd, testStart); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	clock := escape.NewManualClock(testStart)
	m, err := game.NewMachine(&game.Config{
		Store:      s,
		Clock:      clock,
		Narrator:   game.NewFeedNarrator(feed),
		Logger:     logger,
		TotalRooms: testRooms,
	})
	if err != nil {
		t.Fatalf("machine: %v", err)
	}

	srv := New(":0", logger, Routes(Deps{
		Logger:    logger,
		Store:     s,
		Feed:      feed,
		Machine:   m,
		Admin:     game.NewAdmin(s, m),
		Ranker:    game.NewRanker(s, clock, logger),
		PublicURL: "https://escape.example",
	}))
	return &testEnv{handler: srv.Handler(), store: s, feed: feed, clock: clock}
}

// putTeam stores a team with password 1234 due in room.
func (e *testEnv) putTeam(t *testing.T, id string, room int) {
	t.Helper()
	err := e.store.PutTeam(context.Background(), escape.Team{
		ID:          id,
		Name:        "Team " + id,
		Password:    "1234",
		CurrentRoom: room,
		Status:      escape.TeamWaiting,
		CreatedAt:   testStart,
	})
	if err != nil {
		t.Fatalf("put team: %v", err)
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

// login returns the operator session cookies.
func (e *testEnv) login(t *testing.T) []*http.Cookie {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/admin/login", AdminLoginRequest{Password: testAdminPwd})
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	return w.Result().Cookies()
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v (body %q)", err, w.Body.String())
	}
	return v
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
