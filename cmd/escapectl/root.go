package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/playperu/escaperoom/internal/config"
	"github.com/playperu/escaperoom/internal/escape"
	"github.com/playperu/escaperoom/internal/game"
	"github.com/playperu/escaperoom/internal/store"
)

// options are the flags shared by every subcommand. Defaults come from
// the same environment the server reads.
type options struct {
	dbPath        string
	totalRooms    int
	adminPassword string
	redisURL      string
	redisChannel  string
	verbose       bool
}

// env is an opened event database with the services built on it.
type env struct {
	store  *store.DocStore
	admin  *game.Admin
	ranker *game.Ranker
	closer func()
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "escapectl",
		Short:         "Operator tooling for the escape room event host.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadDefaults(cmd.Flags(), opts)
		},
	}

	fs := cmd.PersistentFlags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	fs.StringVar(&opts.dbPath, "db", "", "database path (env: DB_PATH)")
	fs.IntVar(&opts.totalRooms, "rooms", 0, "number of rooms including basecamp (env: TOTAL_ROOMS)")
	fs.StringVar(&opts.adminPassword, "admin-password", "", "operator password set on first seed (env: ADMIN_PASSWORD)")
	fs.StringVar(&opts.redisURL, "redis-url", "", "relay changes to running servers (env: REDIS_URL)")
	fs.StringVar(&opts.redisChannel, "redis-channel", "", "relay channel (env: REDIS_CHANNEL)")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "log store activity to stderr")

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	cmd.AddCommand(
		newSeedCmd(opts),
		newResetCmd(opts),
		newLeaderboardCmd(opts),
		newTeamCmd(opts),
	)
	return cmd
}

// loadDefaults fills unset flags from the environment.
func loadDefaults(fs *pflag.FlagSet, opts *options) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !fs.Changed("db") {
		opts.dbPath = cfg.DBPath
	}
	if !fs.Changed("rooms") {
		opts.totalRooms = cfg.TotalRooms
	}
	if !fs.Changed("admin-password") {
		opts.adminPassword = cfg.AdminPassword
	}
	if !fs.Changed("redis-url") {
		opts.redisURL = cfg.RedisURL
	}
	if !fs.Changed("redis-channel") {
		opts.redisChannel = cfg.RedisChannel
	}
	if opts.totalRooms < 1 {
		return fmt.Errorf("--rooms must be at least 1, got %d", opts.totalRooms)
	}
	return nil
}

// open connects to the database. With a Redis URL, writes are relayed so
// displays attached to a running server refresh.
func open(ctx context.Context, opts *options, stderr io.Writer) (*env, error) {
	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	feed := store.NewFeed()
	var pub store.Publisher = feed
	var rdb *redis.Client
	if opts.redisURL != "" {
		opt, err := redis.ParseURL(opts.redisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		rdb = redis.NewClient(opt)
		relay, err := store.NewRedisRelay(&store.RelayConfig{
			Feed:    feed,
			Client:  rdb,
			Channel: opts.redisChannel,
			Logger:  logger,
		})
		if err != nil {
			rdb.Close()
			return nil, err
		}
		pub = relay
	}

	st, err := store.Open(ctx, opts.dbPath, pub, logger)
	if err != nil {
		if rdb != nil {
			rdb.Close()
		}
		return nil, fmt.Errorf("opening store: %w", err)
	}

	clock := escape.SystemClock{}
	ranker := game.NewRanker(st, clock, logger)
	m, err := game.NewMachine(&game.Config{
		Store:      st,
		Clock:      clock,
		Logger:     logger,
		TotalRooms: opts.totalRooms,
		Ranker:     ranker,
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	return &env{
		store:  st,
		admin:  game.NewAdmin(st, m),
		ranker: ranker,
		closer: func() {
			st.Close()
			if rdb != nil {
				rdb.Close()
			}
		},
	}, nil
}

func (e *env) Close() { e.closer() }
