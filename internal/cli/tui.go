package cli

import (
	"time"

	"github.com/spf13/cobra"
)

var (
	uiRefresh int
	uiRemote  bool
	uiMute    bool
)

var tuiCmd = &cobra.Command{
	Use:     "ui",
	Aliases: []string{"tui"},
	Short:   "Launch interactive dashboard",
	Long: `Launch the interactive terminal dashboard.

The dashboard provides a live view with:
  • Now Playing - current track, progress, modes and ambient color
  • Queue - tracks in play order
  • History - recently played tracks

With --remote it attaches to a running 'vibe serve' instead of starting
its own player.

Keyboard shortcuts:
  q, Ctrl+C    Quit
  ?            Help
  /            Search
  Space        Play/Pause
  n            Next track
  p            Previous track
  ←/→          Seek
  +/-          Volume up/down
  s, r         Shuffle, repeat
  Tab          Switch panel`,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().IntVar(&uiRefresh, "refresh", 0, "refresh interval in milliseconds (default from tui.refresh_interval)")
	tuiCmd.Flags().BoolVar(&uiRemote, "remote", false, "attach to a running 'vibe serve'")
	tuiCmd.Flags().BoolVar(&uiMute, "mute", false, "run without audio output")
	rootCmd.AddCommand(tuiCmd)
}

func tuiRefresh() time.Duration {
	ms := cfg.TUI.RefreshInterval
	if uiRefresh > 0 {
		ms = uiRefresh
	}
	return time.Duration(ms) * time.Millisecond
}

func runTUI(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	if uiRemote {
		c, err := dialRemote(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()

		store, err := openHistory(ctx)
		if err != nil {
			logger.Warn("history unavailable", "err", err)
		}
		if store != nil {
			defer func() { _ = store.Close() }()
		}
		return runDashboard(c, store)
	}

	s, err := startSession(ctx, screenLogger(), uiMute)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	return runDashboard(s.engine, s.history)
}
