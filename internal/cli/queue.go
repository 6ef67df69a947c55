package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/tessro/vibe/internal/core"
	"github.com/tessro/vibe/internal/server"
)

var (
	queueLimit       int
	queueAddProvider string
	queueAddAll      bool
	queueAddPick     bool
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show the playback queue",
	Long:  `List the queue of a running 'vibe serve' in play order. The current track is marked.`,
	Args:  cobra.NoArgs,
	RunE:  runQueueList,
}

var queueAddCmd = &cobra.Command{
	Use:   "add <query>",
	Short: "Add a track to the queue",
	Long: `Search the catalog and add the best match to the queue of a running
'vibe serve'. With --all every playable result is added; --pick lets you choose.

Examples:
  vibe queue add "bohemian rhapsody"
  vibe queue add --provider deezer --all daft punk`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQueueAdd,
}

func init() {
	queueCmd.Flags().IntVarP(&queueLimit, "limit", "l", 20, "maximum number of tracks to show")
	queueAddCmd.Flags().StringVarP(&queueAddProvider, "provider", "P", "", "catalog to search")
	queueAddCmd.Flags().BoolVarP(&queueAddAll, "all", "a", false, "add every result")
	queueAddCmd.Flags().BoolVarP(&queueAddPick, "pick", "p", false, "choose which results to add")
	queueAddCmd.MarkFlagsMutuallyExclusive("all", "pick")

	queueCmd.AddCommand(queueAddCmd)
	rootCmd.AddCommand(queueCmd)
}

func runQueueList(cmd *cobra.Command, args []string) error {
	state, err := withRemote(cmd, nil)
	if err != nil {
		return err
	}

	if JSONOutput() {
		return printJSON(map[string]any{
			"current": state.Track,
			"queue":   state.Queue,
		})
	}

	if len(state.Queue) == 0 {
		fmt.Println("Queue is empty")
		return nil
	}

	current := -1
	if state.HasTrack() {
		_, current, _ = lo.FindIndexOf(state.Queue, func(t core.Track) bool {
			return t.SameAs(state.Track)
		})
	}

	table := NewTable("", "#", "TITLE", "ARTIST", "LENGTH", "SOURCE")
	for i, t := range lo.Slice(state.Queue, 0, queueLimit) {
		table.Row(
			StatusIcon(i == current),
			strconv.Itoa(i+1),
			TruncateString(t.Title, 40),
			TruncateString(t.Artist, 30),
			FormatDuration(t.Duration),
			string(t.Source),
		)
	}
	table.Flush()

	if rest := len(state.Queue) - queueLimit; rest > 0 {
		fmt.Printf("... and %d more\n", rest)
	}
	return nil
}

func runQueueAdd(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	query := strings.Join(args, " ")
	limit := 1
	if queueAddAll || queueAddPick {
		limit = 0
	}
	tracks, err := searchTracks(ctx, queueAddProvider, query, limit)
	if err != nil {
		return err
	}
	switch {
	case queueAddPick:
		if tracks, err = pickTracks(true, query, tracks); err != nil || len(tracks) == 0 {
			return err
		}
	case !queueAddAll:
		tracks = tracks[:1]
	}

	_, err = withRemote(cmd, func(ctx context.Context, c *server.Client) error {
		for _, t := range tracks {
			if err := c.AddToQueue(ctx, t); err != nil {
				return fmt.Errorf("failed to add %q: %w", t.Title, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if JSONOutput() {
		return printJSON(map[string]any{"status": "queued", "tracks": tracks})
	}
	for _, t := range tracks {
		fmt.Printf("➕ Added to queue: %s - %s\n", t.Artist, t.Title)
	}
	return nil
}
