package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/playperu/escaperoom/internal/store"
)

var allCollections = []string{
	store.Teams,
	store.Rooms,
	store.Progress,
	store.ActiveRooms,
	store.Config,
	store.Leaderboard,
	store.Narration,
}

// handleChangeStream pushes raw document changes to the operator console.
// ?topics=teams,activeRooms/3 narrows the stream; the default is every
// collection.
func handleChangeStream(broker *Broker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		topics := allCollections
		if q := r.URL.Query().Get("topics"); q != "" {
			topics = nil
			for _, t := range strings.Split(q, ",") {
				if t = strings.TrimSpace(t); t != "" {
					topics = append(topics, t)
				}
			}
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		stream := broker.Subscribe(topics...)
		defer stream.Close()

		// The console never sends; CloseRead handles pings and closes.
		ctx := conn.CloseRead(r.Context())

		ping := time.NewTicker(pingInterval)
		defer ping.Stop()

		for {
			select {
			case <-ctx.Done():
				conn.Close(websocket.StatusNormalClosure, "")
				return
			case c, ok := <-stream.C:
				if !ok {
					conn.Close(websocket.StatusGoingAway, "feed closed")
					return
				}
				wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
				err := wsjson.Write(wctx, conn, c)
				cancel()
				if err != nil {
					logger.Debug("websocket write failed", "error", err)
					return
				}
			case <-ping.C:
				pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
				err := conn.Ping(pctx)
				cancel()
				if err != nil {
					logger.Debug("websocket ping failed", "error", err)
					return
				}
			}
		}
	}
}
