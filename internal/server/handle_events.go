package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/playperu/escaperoom/internal/game"
	"github.com/playperu/escaperoom/internal/store"
)

// NarrationEvent is sent on a room stream when the room should speak.
type NarrationEvent struct {
	Text      string `json:"text"`
	Interrupt bool   `json:"interrupt"`
}

const pingInterval = 30 * time.Second

// sse prepares w for an event stream.
func sse(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return flusher, true
}

func sendEvent(w http.ResponseWriter, flusher http.Flusher, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

// streamSnapshots sends snapshot() once, then again after every change on
// stream, until the client goes away. onChange may claim a change for a
// different event, returning true to skip the snapshot.
func streamSnapshots(w http.ResponseWriter, r *http.Request, stream *Stream, logger *slog.Logger,
	event string, snapshot func(ctx context.Context) (any, error),
	onChange func(c store.Change) (handled bool, err error),
) {
	flusher, ok := sse(w)
	if !ok {
		return
	}
	ctx := r.Context()

	send := func() error {
		v, err := snapshot(ctx)
		if err != nil {
			logger.Warn("snapshot failed", "event", event, "error", err)
			return sendEvent(w, flusher, "error", ErrorResponse{Error: "snapshot unavailable"})
		}
		return sendEvent(w, flusher, event, v)
	}
	if err := send(); err != nil {
		return
	}

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-stream.C:
			if !ok {
				return
			}
			if onChange != nil {
				handled, err := onChange(c)
				if err != nil {
					return
				}
				if handled {
					continue
				}
			}
			if err := send(); err != nil {
				return
			}
		case <-ping.C:
			if _, err := fmt.Fprintf(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// handleRoomEvents streams a room display's view and its narration.
func handleRoomEvents(m *game.Machine, broker *Broker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := roomParam(r)
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		// Validate before switching to a stream.
		if _, err := m.Enter(r.Context(), room); err != nil {
			writeErr(w, logger, err)
			return
		}
		id := strconv.Itoa(room)
		stream := broker.Subscribe(
			store.Topic(store.ActiveRooms, id),
			store.Topic(store.Rooms, id),
			store.Topic(store.Narration, id),
			store.Teams,
			store.Progress,
			store.Config,
		)
		defer stream.Close()

		streamSnapshots(w, r, stream, logger, "view",
			func(ctx context.Context) (any, error) { return m.Enter(ctx, room) },
			func(c store.Change) (bool, error) {
				if c.Collection != store.Narration {
					return false, nil
				}
				flusher := w.(http.Flusher)
				return true, sendEvent(w, flusher, "narration", NarrationEvent{Text: c.Text, Interrupt: c.Interrupt})
			},
		)
	}
}

// handleLeaderboardEvents streams ranked standings.
func handleLeaderboardEvents(ranker *game.Ranker, broker *Broker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stream := broker.Subscribe(store.Leaderboard)
		defer stream.Close()

		streamSnapshots(w, r, stream, logger, "standings",
			func(ctx context.Context) (any, error) { return ranker.Standings(ctx) },
			nil,
		)
	}
}
