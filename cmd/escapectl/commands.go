package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/playperu/escaperoom/internal/escape"
	"github.com/playperu/escaperoom/internal/game"
)

func newSeedCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create default rooms, slots and config where missing.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := open(ctx, opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			if err := game.Bootstrap(ctx, e.store, opts.totalRooms, opts.adminPassword, time.Now().UTC()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d rooms in %s\n", opts.totalRooms, opts.dbPath)
			return nil
		},
	}
}

func newResetCmd(opts *options) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:       "reset {teams|progress|leaderboard|rooms|all}",
		Short:     "Wipe event data.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(game.ResetTeams), string(game.ResetProgress), string(game.ResetLeaderboard), string(game.ResetRooms), string(game.ResetEverything)},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("reset %s is destructive; pass --yes to confirm", args[0])
			}
			ctx := cmd.Context()
			e, err := open(ctx, opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.admin.Reset(ctx, game.ResetScope(args[0])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reset %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the reset")
	return cmd
}

func newLeaderboardCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the standings.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := open(ctx, opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			standings, err := e.ranker.Standings(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tTEAM\tLEVEL\tROOMS\tATTEMPTS\tSTARTED")
			for _, s := range standings {
				started := "-"
				if s.SessionStartTime != nil {
					started = s.SessionStartTime.Local().Format(time.Kitchen)
				}
				fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%s\n", s.Rank, s.TeamName, s.CurrentLevel, s.RoomsCompleted, s.TotalAttempts, started)
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Recompute every entry from team and ledger state.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := open(ctx, opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			n, err := e.admin.RefreshLeaderboard(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "refreshed %d entries\n", n)
			return nil
		},
	})
	return cmd
}

func newTeamCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "team",
		Short: "Manage teams.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create NAME PASSWORD",
		Short: "Create a team at basecamp with a 4-digit password.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := open(ctx, opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			t, err := e.admin.CreateTeam(ctx, game.NewTeam{Name: args[0], Password: args[1]})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", t.ID, t.Name)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List teams with their room and status.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := open(ctx, opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			teams, err := e.store.Teams(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tROOM\tSTATUS\tPASSWORD\tSESSION")
			for _, t := range teams {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n", t.ID, t.Name, t.CurrentRoom, t.Status, t.Password,
					escape.FormatClock(e.admin.SessionClock(t)))
			}
			return tw.Flush()
		},
	})
	return cmd
}
