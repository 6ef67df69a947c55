package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/tessro/vibe/internal/core"
	"github.com/tessro/vibe/internal/history"
	"github.com/tessro/vibe/internal/server"
)

var (
	historyLimit int
	favProvider  string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently played tracks",
	Long:  `List the tracks played by the configured listener, newest first.`,
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var favCmd = &cobra.Command{
	Use:     "fav",
	Aliases: []string{"favorites"},
	Short:   "Manage favorite tracks",
	Long:    `List, add and remove favorite tracks. Without a subcommand the favorites are listed.`,
	Args:    cobra.NoArgs,
	RunE:    runFavList,
}

var favListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List favorites",
	Args:    cobra.NoArgs,
	RunE:    runFavList,
}

var favAddCmd = &cobra.Command{
	Use:   "add [query]",
	Short: "Add a favorite",
	Long: `Add the best search match for query to the favorites. Without a query the
track currently playing on 'vibe serve' is added.`,
	RunE: runFavAdd,
}

var favRemoveCmd = &cobra.Command{
	Use:     "rm <source:id>",
	Aliases: []string{"remove"},
	Short:   "Remove a favorite",
	Long:    `Remove a favorite by the key shown in 'vibe fav ls', for example itunes:1440857781.`,
	Args:    cobra.ExactArgs(1),
	RunE:    runFavRemove,
}

var favPlayCmd = &cobra.Command{
	Use:   "play",
	Short: "Queue every favorite on 'vibe serve'",
	Args:  cobra.NoArgs,
	RunE:  runFavPlay,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "number of plays to show")
	favAddCmd.Flags().StringVarP(&favProvider, "provider", "P", "", "catalog to search")

	favCmd.AddCommand(favListCmd)
	favCmd.AddCommand(favAddCmd)
	favCmd.AddCommand(favRemoveCmd)
	favCmd.AddCommand(favPlayCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(favCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := requireHistory(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entries, err := store.Recent(ctx, cfg.History.Listener, historyLimit)
	if err != nil {
		return err
	}

	if JSONOutput() {
		return printJSON(entries)
	}
	if len(entries) == 0 {
		fmt.Println("Nothing played yet")
		return nil
	}

	now := time.Now()
	table := NewTable("PLAYED", "TITLE", "ARTIST", "KEY")
	for _, e := range entries {
		table.Row(
			humanize.RelTime(e.PlayedAt, now, "ago", "from now"),
			TruncateString(e.Track.Title, 40),
			TruncateString(e.Track.Artist, 30),
			e.Track.Key(),
		)
	}
	table.Flush()
	return nil
}

func runFavList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := requireHistory(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	tracks, err := store.Favorites(ctx, cfg.History.Listener)
	if err != nil {
		return err
	}

	if JSONOutput() {
		return printJSON(tracks)
	}
	if len(tracks) == 0 {
		fmt.Println("No favorites yet. Add one with 'vibe fav add <query>'")
		return nil
	}

	table := NewTable("#", "TITLE", "ARTIST", "PLAYS", "KEY")
	for i, t := range tracks {
		plays, err := store.PlayCount(ctx, cfg.History.Listener, t)
		if err != nil {
			return err
		}
		table.Row(
			strconv.Itoa(i+1),
			TruncateString(t.Title, 40),
			TruncateString(t.Artist, 30),
			humanize.Comma(int64(plays)),
			t.Key(),
		)
	}
	table.Flush()
	return nil
}

func runFavAdd(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	var track core.Track
	if len(args) > 0 {
		tracks, err := searchTracks(ctx, favProvider, strings.Join(args, " "), 1)
		if err != nil {
			return err
		}
		track = tracks[0]
	} else {
		state, err := withRemote(cmd, nil)
		if err != nil {
			return err
		}
		if !state.HasTrack() {
			return errors.New("nothing is playing; pass a query to search instead")
		}
		track = *state.Track
	}

	store, err := requireHistory(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.AddFavorite(ctx, cfg.History.Listener, track); err != nil {
		return err
	}

	if JSONOutput() {
		return printJSON(map[string]any{"status": "added", "track": track})
	}
	fmt.Printf("♥ %s - %s (%s)\n", track.Artist, track.Title, track.Key())
	return nil
}

func runFavRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := requireHistory(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.RemoveFavorite(ctx, cfg.History.Listener, args[0]); err != nil {
		if errors.Is(err, history.ErrNotFound) {
			return fmt.Errorf("%s is not a favorite", args[0])
		}
		return err
	}

	if JSONOutput() {
		return printJSON(map[string]string{"status": "removed", "key": args[0]})
	}
	fmt.Printf("Removed %s\n", args[0])
	return nil
}

func runFavPlay(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := requireHistory(ctx)
	if err != nil {
		return err
	}
	tracks, err := store.Favorites(ctx, cfg.History.Listener)
	_ = store.Close()
	if err != nil {
		return err
	}
	if len(tracks) == 0 {
		return errors.New("no favorites to play")
	}

	state, err := withRemote(cmd, func(ctx context.Context, c *server.Client) error {
		return seed(ctx, c, tracks)
	})
	if err != nil {
		return err
	}
	return printTrackChange("▶", "playing", state)
}
