package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/escaperoom/internal/config"
	"github.com/playperu/escaperoom/internal/escape"
	"github.com/playperu/escaperoom/internal/game"
	"github.com/playperu/escaperoom/internal/handler/health"
	"github.com/playperu/escaperoom/internal/server"
	"github.com/playperu/escaperoom/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	feed := store.NewFeed()
	var pub store.Publisher = feed
	checks := map[string]health.Checker{}

	// --- Redis (optional) ---
	var relay *store.RedisRelay
	if cfg.RedisURL != "" {
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()

		relay, err = store.NewRedisRelay(&store.RelayConfig{
			Feed:    feed,
			Client:  rdb,
			Channel: cfg.RedisChannel,
			Logger:  logger,
		})
		if err != nil {
			return fmt.Errorf("creating relay: %w", err)
		}
		pub = relay
		checks["redis"] = health.CheckFunc(relay.Check)
		logger.Info("connected to redis", "channel", cfg.RedisChannel)
	}

	// --- SQLite ---
	st, err := store.Open(ctx, cfg.DBPath, pub, logger)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()
	checks["sqlite"] = health.CheckFunc(st.Ping)
	logger.Info("connected to sqlite", "path", cfg.DBPath)

	clock := escape.SystemClock{}
	if err := game.Bootstrap(ctx, st, cfg.TotalRooms, cfg.AdminPassword, clock.Now()); err != nil {
		return fmt.Errorf("bootstrapping event: %w", err)
	}

	// --- Game ---
	narrator := game.NewFeedNarrator(pub)
	ranker := game.NewRanker(st, clock, logger)
	machine, err := game.NewMachine(&game.Config{
		Store:      st,
		Clock:      clock,
		Narrator:   narrator,
		Logger:     logger,
		TotalRooms: cfg.TotalRooms,
		Ranker:     ranker,
	})
	if err != nil {
		return fmt.Errorf("creating machine: %w", err)
	}
	admin := game.NewAdmin(st, machine)
	watcher := game.NewWatcher(st, machine, clock, logger)
	replays := game.NewReplayListener(feed, st, narrator, logger)

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger,
		func(r chi.Router) {
			r.Mount("/healthz", health.NewHandler(logger, checks).Routes())
		},
		server.Routes(server.Deps{
			Logger:    logger,
			Store:     st,
			Feed:      feed,
			Machine:   machine,
			Admin:     admin,
			Ranker:    ranker,
			PublicURL: cfg.PublicURL,
			SPADir:    cfg.SPADir,
		}),
	)

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr, "rooms", cfg.TotalRooms)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	g.Go(func() error {
		return watcher.Run(gctx, cfg.TimerPollInterval)
	})

	g.Go(func() error {
		return ranker.Run(gctx, cfg.LeaderboardSweepInterval)
	})

	g.Go(func() error {
		return replays.Run(gctx)
	})

	if relay != nil {
		g.Go(func() error {
			err := relay.Run(gctx, nil)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("redis relay: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}
