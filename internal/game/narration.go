package game

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/playperu/escaperoom/internal/escape"
	"github.com/playperu/escaperoom/internal/store"
)

// Narrator is the fire-and-forget speech sink of a room.
type Narrator interface {
	Speak(ctx context.Context, roomNumber int, text string, interrupt bool)
}

// FeedNarrator publishes narration as feed events; room displays
// subscribed to the narration topic voice them.
type FeedNarrator struct {
	pub store.Publisher
}

func NewFeedNarrator(pub store.Publisher) *FeedNarrator {
	return &FeedNarrator{pub: pub}
}

func (n *FeedNarrator) Speak(_ context.Context, roomNumber int, text string, interrupt bool) {
	if text == "" {
		return
	}
	n.pub.Publish(store.Change{
		Collection: store.Narration,
		ID:         strconv.Itoa(roomNumber),
		Op:         store.OpSpeak,
		Text:       text,
		Interrupt:  interrupt,
	})
}

// ReplayListener re-speaks a room's narration whenever its replay counter
// increases.
type ReplayListener struct {
	feed     *store.Feed
	store    Store
	narrator Narrator
	logger   *slog.Logger

	seen map[int]int
}

func NewReplayListener(feed *store.Feed, s Store, narrator Narrator, logger *slog.Logger) *ReplayListener {
	return &ReplayListener{feed: feed, store: s, narrator: narrator, logger: logger, seen: make(map[int]int)}
}

// Run blocks until ctx ends. Counters present at start are the baseline;
// only later increments trigger speech.
func (l *ReplayListener) Run(ctx context.Context) error {
	sub := l.feed.Subscribe(store.ActiveRooms)
	defer sub.Cancel()

	slots, err := l.store.Slots(ctx)
	if err != nil {
		return err
	}
	for _, s := range slots {
		l.seen[s.RoomNumber] = s.ManualTTSTrigger
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case c, ok := <-sub.C:
			if !ok {
				return nil
			}
			l.handle(ctx, c)
		}
	}
}

func (l *ReplayListener) handle(ctx context.Context, c store.Change) {
	if c.Op == store.OpReset {
		clear(l.seen)
		return
	}
	n, err := strconv.Atoi(c.ID)
	if err != nil {
		return
	}
	slot, err := l.store.Slot(ctx, n)
	if err != nil {
		l.logger.Warn("replay: reading slot", "room", n, "error", err)
		return
	}
	prev, known := l.seen[n]
	l.seen[n] = slot.ManualTTSTrigger
	if !known || slot.ManualTTSTrigger <= prev {
		return
	}
	// A relayed change is narrated by the process that made it.
	if c.Origin != "" {
		return
	}
	room, err := l.store.Room(ctx, n)
	if err != nil {
		l.logger.Warn("replay: reading room", "room", n, "error", err)
		return
	}
	l.logger.Info("replaying narration", "room", n, "trigger", slot.ManualTTSTrigger)
	l.narrator.Speak(ctx, n, narrationFor(room), true)
}

func narrationFor(r escape.Room) string {
	if r.Narration != "" {
		return r.Narration
	}
	return r.Puzzle
}
