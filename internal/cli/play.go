package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tessro/vibe/internal/core"
	"github.com/tessro/vibe/internal/history"
	"github.com/tessro/vibe/internal/server"
	"github.com/tessro/vibe/internal/tui"
	"github.com/tessro/vibe/internal/wizard"
)

var (
	playProvider string
	playLimit    int
	playHeadless bool
	playMute     bool
	playServe    bool
	playPick     bool
)

var playCmd = &cobra.Command{
	Use:   "play <query>",
	Short: "Search and play previews",
	Long: `Search the catalog, queue every playable result and start the first one.

Without --headless the dashboard opens. With --headless playback events are
printed as they happen until Ctrl+C.

Examples:
  vibe play "bohemian rhapsody"
  vibe play --provider deezer daft punk
  vibe play --pick lofi                 # choose from the results
  vibe play --headless --serve lofi     # also accept remote control`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlay,
}

func init() {
	playCmd.Flags().StringVarP(&playProvider, "provider", "P", "", "catalog to search (itunes, deezer, spotify)")
	playCmd.Flags().IntVarP(&playLimit, "limit", "l", 0, "maximum number of results to queue")
	playCmd.Flags().BoolVar(&playHeadless, "headless", false, "print events instead of opening the dashboard")
	playCmd.Flags().BoolVar(&playMute, "mute", false, "run without audio output")
	playCmd.Flags().BoolVar(&playServe, "serve", false, "also serve the player on server.addr")
	playCmd.Flags().BoolVarP(&playPick, "pick", "p", false, "choose which results to queue")
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	query := strings.Join(args, " ")
	tracks, err := searchTracks(ctx, playProvider, query, playLimit)
	if err != nil {
		return err
	}
	if tracks, err = pickTracks(playPick, query, tracks); err != nil || len(tracks) == 0 {
		return err
	}

	// Nothing to draw on when stdout is redirected.
	if !wizard.IsTerminal() {
		playHeadless = true
	}

	l := logger
	if !playHeadless {
		l = screenLogger()
	}

	s, err := startSession(ctx, l, playMute)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	if err := seed(ctx, s.engine, tracks); err != nil {
		return err
	}

	if playServe {
		go func() {
			srv := server.New(s.engine, l.With("component", "server"))
			if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil {
				l.Error("server stopped", "err", err)
			}
		}()
	}

	if playHeadless {
		if !JSONOutput() {
			fmt.Printf("▶ Queued %d tracks from %s\n", len(tracks), tracks[0].Source)
		}
		return followEvents(ctx, s.engine)
	}

	return runDashboard(s.engine, s.history)
}

// runDashboard opens the TUI on p. store may be nil.
func runDashboard(p core.Player, store *history.Store) error {
	cat, err := newCatalog("")
	if err != nil {
		logger.Warn("search unavailable", "err", err)
	}

	opts := tui.Options{
		Player:      p,
		Catalog:     cat,
		Listener:    cfg.History.Listener,
		Theme:       cfg.TUI.Theme,
		Refresh:     tuiRefresh(),
		SearchLimit: cfg.Catalog.Limit,
	}
	if store != nil {
		opts.History = store
	}
	return tui.Run(opts)
}

// pickTracks lets the user narrow tracks down when asked to and a terminal
// is available. A cancelled picker returns no tracks.
func pickTracks(wanted bool, query string, tracks []core.Track) ([]core.Track, error) {
	if !wizard.CanInteract(wanted) {
		return tracks, nil
	}
	return wizard.PickTracks(cfg.TUI.Theme, fmt.Sprintf("Results for %q", query), tracks)
}
